package lingua

import (
	"strings"

	linguago "github.com/pemistahl/lingua-go"

	"github.com/deenlabs/agent-deen/internal/core/ports"
)

// Identifier wraps a lingua detector restricted to the languages an answer can
// plausibly come back in. Restricting the set keeps detection reliable on the
// short Malay/Indonesian prose that trips open-set detectors.
type Identifier struct {
	detector linguago.LanguageDetector
}

func New() *Identifier {
	detector := linguago.NewLanguageDetectorBuilder().
		FromLanguages(
			linguago.English,
			linguago.Malay,
			linguago.Indonesian,
			linguago.Arabic,
		).
		Build()
	return &Identifier{detector: detector}
}

// Identify returns the ISO 639-1 code of the dominant language, or ok=false
// when the detector cannot decide.
func (i *Identifier) Identify(text string) (string, bool) {
	lang, ok := i.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

var _ ports.LanguageIdentifier = (*Identifier)(nil)
