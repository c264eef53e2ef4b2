package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/deenlabs/agent-deen/internal/core/domain"
	"github.com/deenlabs/agent-deen/internal/core/ports"
)

const (
	rewriteTemperature = 0.1
	rewriteMaxTokens   = 200
	// Rewrites shorter than this are treated as model failures.
	minRewriteLen = 3
)

// rewriteFollowUp turns a pronoun-laden follow-up ("is it permissible?") into a
// standalone retrieval query using the recent conversation. With no history, or
// on any failure, the original question is used verbatim.
func (uc *AnswerUseCase) rewriteFollowUp(ctx context.Context, generator ports.TextGenerator, question string, history []domain.ChatTurn) string {
	if len(history) == 0 || generator == nil {
		return question
	}
	if len(history) > uc.cfg.HistoryWindow {
		history = history[len(history)-uc.cfg.HistoryWindow:]
	}

	rewritten, err := generator.Generate(ctx, buildRewritePrompt(question, history), ports.GenerateOptions{
		Temperature: rewriteTemperature,
		MaxTokens:   rewriteMaxTokens,
	})
	if err != nil {
		uc.log.Warn("follow-up rewrite failed, using original question", "error", err)
		return question
	}

	rewritten = strings.TrimSpace(strings.Trim(strings.TrimSpace(rewritten), `"`))
	if len([]rune(rewritten)) < minRewriteLen {
		return question
	}
	return rewritten
}

func buildRewritePrompt(question string, history []domain.ChatTurn) string {
	var b strings.Builder
	b.WriteString("Given the conversation below, rewrite the final user question as a standalone question.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Replace pronouns and references (it, that, this, the first one) with the specific topic from the conversation.\n")
	b.WriteString("- If the question is already standalone, return it unchanged.\n")
	b.WriteString("- If the question starts a new topic, do NOT force a connection to the conversation.\n")
	b.WriteString("- Keep the question's original language.\n")
	b.WriteString("- Return ONLY the rewritten question, nothing else.\n\n")
	b.WriteString("Conversation:\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	fmt.Fprintf(&b, "\nFinal user question: %s\n\nStandalone question:", question)
	return b.String()
}
