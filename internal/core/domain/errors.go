package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")

	// ErrRetrievalUnavailable means the vector search capability is
	// unreachable. Fatal for the request; there is no cached fallback.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGenerationFailed means the language-model backend failed to produce
	// an answer. Fatal for the request; an ungrounded guess is worse than an
	// explicit error.
	ErrGenerationFailed = errors.New("generation failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
