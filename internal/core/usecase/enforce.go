package usecase

import (
	"context"
	"strings"

	"github.com/deenlabs/agent-deen/internal/core/domain"
)

// translateChunkLimit stays under the translation backend's ~5000-character
// per-request cap.
const translateChunkLimit = 4500

// ensureResponseLanguage checks the generated prose against the target language
// and machine-translates it on a mismatch. Every branch degrades to returning
// the text unchanged: a wrong-language answer is still better than no answer.
func (uc *AnswerUseCase) ensureResponseLanguage(ctx context.Context, answer string, target domain.Language) string {
	if strings.TrimSpace(answer) == "" || uc.translator == nil {
		return answer
	}

	// Too little prose to identify reliably; leave it alone.
	if uc.langID == nil || len([]rune(strings.TrimSpace(answer))) < uc.cfg.MinAnswerRunes {
		return answer
	}

	targetCode := target.Code()

	detected, ok := uc.langID.Identify(answer)
	if !ok {
		return answer
	}
	if languageMatches(detected, targetCode) {
		return answer
	}
	uc.log.Info("answer language mismatch, translating",
		"detected", detected, "target", targetCode)

	translated, err := uc.translateLong(ctx, answer, targetCode)
	if err != nil {
		uc.log.Warn("answer translation failed, returning original", "error", err)
		return answer
	}
	return translated
}

// languageMatches treats Malay and Indonesian as equivalent: general-purpose
// detectors routinely label Malay prose as Indonesian.
func languageMatches(detected, target string) bool {
	if detected == target {
		return true
	}
	return target == "ms" && (detected == "ms" || detected == "id")
}

// translateLong translates text that may exceed the backend's per-call limit
// by splitting on paragraph breaks and reassembling them unchanged.
func (uc *AnswerUseCase) translateLong(ctx context.Context, text, targetCode string) (string, error) {
	if len(text) <= translateChunkLimit {
		return uc.translator.Translate(ctx, text, "auto", targetCode)
	}

	paragraphs := strings.Split(text, "\n\n")
	translated := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		if strings.TrimSpace(para) == "" {
			translated = append(translated, para)
			continue
		}
		out, err := uc.translator.Translate(ctx, para, "auto", targetCode)
		if err != nil {
			return "", err
		}
		translated = append(translated, out)
	}
	return strings.Join(translated, "\n\n"), nil
}
