package ports

import (
	"context"
	"io"

	"github.com/deenlabs/agent-deen/internal/core/domain"
)

// ComplianceAnswerer is the inbound contract for the answering pipeline.
type ComplianceAnswerer interface {
	Answer(ctx context.Context, req domain.AskRequest) (*domain.RAGResponse, error)
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType, source string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit int) ([]domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
