package ports

import (
	"context"
	"io"

	"github.com/deenlabs/agent-deen/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveIndexStats(ctx context.Context, id string, pageCount, chunkCount int, language string) error
	List(ctx context.Context, limit int) ([]domain.Document, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts per-page text from a stored document.
type TextExtractor interface {
	ExtractPages(ctx context.Context, doc *domain.Document) ([]domain.PageText, error)
}

// Chunker splits page text into index-sized chunks.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes chunks and performs semantic search over the corpus.
type VectorStore interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.IndexChunk, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Passage, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// CrossEncoder scores query/passage pairs jointly. Implementations may be
// unavailable at runtime; callers fall back to similarity thresholds.
type CrossEncoder interface {
	Rerank(ctx context.Context, query string, passages []domain.Passage, topK int) ([]domain.Passage, error)
}

// Translator translates text between language codes.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// LanguageIdentifier reports the dominant language of a piece of prose.
// Unlike domain.DetectLanguage it is general-purpose and used only to check
// generated answers, never user queries.
type LanguageIdentifier interface {
	Identify(text string) (code string, ok bool)
}

// GenerateOptions tunes a single completion call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// TextGenerator produces a completion from a fully assembled prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	ModelID() string
}

// ChatHistoryStore persists conversation turns for follow-up rewriting.
type ChatHistoryStore interface {
	AppendMessage(ctx context.Context, msg domain.ChatMessage) error
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.ChatMessage, error)
}
