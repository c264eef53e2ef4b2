package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is a regulatory source document in the corpus: a BNM policy,
// an AAOIFI standard, an SC resolution, a JAKIM fatwa, and so on.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	Title       string         `json:"title,omitempty"`
	Source      string         `json:"source"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	Language    string         `json:"language,omitempty"`
	PageCount   int            `json:"page_count,omitempty"`
	ChunkCount  int            `json:"chunk_count,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PageText is one extracted page of a source document, before chunking.
type PageText struct {
	Number int
	Text   string
}

// IndexChunk is one unit sent to the vector index. Text is what gets embedded
// (English-translated for non-English pages); OriginalText preserves the
// source-language wording for snippet display.
type IndexChunk struct {
	Text         string
	OriginalText string
	Index        int
	PageNumber   int
	TotalPages   int
	Language     string
}
