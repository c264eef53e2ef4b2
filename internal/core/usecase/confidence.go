package usecase

import "github.com/deenlabs/agent-deen/internal/core/domain"

// estimateConfidence maps the count of surviving passages to a coarse label.
// It is a proxy for evidence breadth, not a calibrated probability.
func estimateConfidence(passageCount int) domain.Confidence {
	switch {
	case passageCount >= 4:
		return domain.ConfidenceHigh
	case passageCount >= 2:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
