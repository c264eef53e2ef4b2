package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deenlabs/agent-deen/internal/core/domain"
	"github.com/deenlabs/agent-deen/internal/core/ports"
)

// ProcessDocumentUseCase runs the worker-side indexing pipeline: extract pages,
// chunk, translate non-English chunks to English for the index (keeping the
// source-language text for snippets), embed, and write to the vector store.
type ProcessDocumentUseCase struct {
	repo       ports.DocumentRepository
	extractor  ports.TextExtractor
	chunker    ports.Chunker
	translator ports.Translator
	embedder   ports.Embedder
	vectorDB   ports.VectorStore
	log        *slog.Logger
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	translator ports.Translator,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	log *slog.Logger,
) *ProcessDocumentUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &ProcessDocumentUseCase{
		repo:       repo,
		extractor:  extractor,
		chunker:    chunker,
		translator: translator,
		embedder:   embedder,
		vectorDB:   vectorDB,
		log:        log,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	doc, chunks, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	pages := 0
	language := ""
	if len(chunks) > 0 {
		pages = chunks[len(chunks)-1].TotalPages
		language = dominantChunkLanguage(chunks)
	}
	if err := uc.repo.SaveIndexStats(ctx, doc.ID, pages, len(chunks), language); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("save index stats: %w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save index stats: %w", err)
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (*domain.Document, []domain.IndexChunk, error) {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}

	pages, err := uc.extractPages(ctx, doc)
	if err != nil {
		return nil, nil, err
	}

	chunks, err := uc.chunkPages(pages)
	if err != nil {
		return nil, nil, err
	}

	uc.translateChunks(ctx, chunks)

	vectors, err := uc.embed(ctx, chunks)
	if err != nil {
		return nil, nil, err
	}

	if err := uc.vectorDB.IndexChunks(ctx, doc, chunks, vectors); err != nil {
		return nil, nil, fmt.Errorf("index chunks in vector db: %w", err)
	}

	return doc, chunks, nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) extractPages(ctx context.Context, doc *domain.Document) ([]domain.PageText, error) {
	pages, err := uc.extractor.ExtractPages(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract pages", errors.New("document has no extractable text"))
	}
	return pages, nil
}

// chunkPages splits each page separately so every chunk keeps an exact page
// number for its citation.
func (uc *ProcessDocumentUseCase) chunkPages(pages []domain.PageText) ([]domain.IndexChunk, error) {
	totalPages := len(pages)
	chunks := make([]domain.IndexChunk, 0, totalPages)
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		for _, text := range uc.chunker.Split(page.Text) {
			chunks = append(chunks, domain.IndexChunk{
				Text:       text,
				Index:      len(chunks),
				PageNumber: page.Number,
				TotalPages: totalPages,
				Language:   string(domain.DetectLanguage(text)),
			})
		}
	}
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}
	return chunks, nil
}

// translateChunks rewrites non-English chunk text to English so the whole index
// shares one embedding language, stashing the original for snippet display.
// Translation failures leave the chunk in its source language; retrieval
// quality degrades for that chunk but indexing proceeds.
func (uc *ProcessDocumentUseCase) translateChunks(ctx context.Context, chunks []domain.IndexChunk) {
	if uc.translator == nil {
		return
	}
	failed := 0
	for i := range chunks {
		lang := domain.Language(chunks[i].Language)
		if lang == domain.LanguageEnglish {
			continue
		}
		source := "auto"
		if lang != domain.LanguageMixed {
			source = lang.Code()
		}
		translated, err := uc.translator.Translate(ctx, chunks[i].Text, source, "en")
		if err != nil || strings.TrimSpace(translated) == "" {
			failed++
			continue
		}
		chunks[i].OriginalText = chunks[i].Text
		chunks[i].Text = translated
	}
	if failed > 0 {
		uc.log.Warn("some chunks kept their source language", "failed", failed, "total", len(chunks))
	}
}

func (uc *ProcessDocumentUseCase) embed(ctx context.Context, chunks []domain.IndexChunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	return vectors, nil
}

func dominantChunkLanguage(chunks []domain.IndexChunk) string {
	counts := make(map[string]int, 4)
	for _, c := range chunks {
		counts[c.Language]++
	}
	best, bestCount := "", 0
	for lang, n := range counts {
		if n > bestCount {
			best, bestCount = lang, n
		}
	}
	return best
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
