package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/deenlabs/agent-deen/internal/core/domain"
	"github.com/deenlabs/agent-deen/internal/core/ports"
)

type extractorFake struct {
	pages []domain.PageText
	err   error
}

func (f *extractorFake) ExtractPages(context.Context, *domain.Document) ([]domain.PageText, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

type chunkerFake struct{}

func (chunkerFake) Split(text string) []string { return []string{text} }

func newProcessUC(repo *repoFake, extractor *extractorFake, translator *translatorFake, vector *vectorFake) *ProcessDocumentUseCase {
	var tr ports.Translator
	if translator != nil {
		tr = translator
	}
	return NewProcessDocumentUseCase(repo, extractor, chunkerFake{}, tr, &embedderFake{}, vector, nil)
}

func TestProcessByIDIndexesAndMarksReady(t *testing.T) {
	repo := &repoFake{doc: &domain.Document{ID: "doc-1", StoragePath: "abc_def.pdf"}}
	extractor := &extractorFake{pages: []domain.PageText{
		{Number: 1, Text: "Murabahah is a cost-plus sale."},
		{Number: 2, Text: "   "},
		{Number: 3, Text: "Takaful operators must segregate funds."},
	}}
	vector := &vectorFake{}

	uc := newProcessUC(repo, extractor, nil, vector)
	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	if len(vector.indexed) != 2 {
		t.Fatalf("expected 2 indexed chunks (blank page skipped), got %d", len(vector.indexed))
	}
	if vector.indexed[0].PageNumber != 1 || vector.indexed[1].PageNumber != 3 {
		t.Fatalf("chunk page numbers wrong: %+v", vector.indexed)
	}
	if vector.indexed[1].TotalPages != 3 {
		t.Fatalf("total pages = %d", vector.indexed[1].TotalPages)
	}

	if repo.statsID != "doc-1" || repo.statsPages != 3 || repo.statsChunks != 2 {
		t.Fatalf("index stats = %q/%d/%d", repo.statsID, repo.statsPages, repo.statsChunks)
	}
	if repo.statsLanguage != string(domain.LanguageEnglish) {
		t.Fatalf("dominant language = %q", repo.statsLanguage)
	}

	if len(repo.statuses) != 2 || repo.statuses[0] != domain.StatusProcessing || repo.statuses[1] != domain.StatusReady {
		t.Fatalf("status transitions = %v", repo.statuses)
	}
}

func TestProcessByIDTranslatesNonEnglishChunks(t *testing.T) {
	repo := &repoFake{doc: &domain.Document{ID: "doc-1"}}
	malay := "Pengendali takaful perlu mengasingkan dana peserta kerana ia adalah amanah."
	extractor := &extractorFake{pages: []domain.PageText{{Number: 1, Text: malay}}}
	translator := &translatorFake{out: "Takaful operators must segregate participant funds."}
	vector := &vectorFake{}

	uc := newProcessUC(repo, extractor, translator, vector)
	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	chunk := vector.indexed[0]
	if chunk.Text != translator.out {
		t.Fatalf("indexed text must be the translation, got %q", chunk.Text)
	}
	if chunk.OriginalText != malay {
		t.Fatalf("the source-language text must be preserved, got %q", chunk.OriginalText)
	}
	if chunk.Language != string(domain.LanguageMalay) {
		t.Fatalf("chunk language = %q", chunk.Language)
	}
	if len(translator.calls) != 1 || translator.calls[0].source != "ms" || translator.calls[0].target != "en" {
		t.Fatalf("translation calls = %+v", translator.calls)
	}
}

func TestProcessByIDTranslationFailureKeepsSourceText(t *testing.T) {
	repo := &repoFake{doc: &domain.Document{ID: "doc-1"}}
	malay := "Adakah pelaburan ini patuh syariah dan adakah ia bebas riba sepenuhnya?"
	extractor := &extractorFake{pages: []domain.PageText{{Number: 1, Text: malay}}}
	translator := &translatorFake{err: errors.New("translate down")}
	vector := &vectorFake{}

	uc := newProcessUC(repo, extractor, translator, vector)
	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	chunk := vector.indexed[0]
	if chunk.Text != malay || chunk.OriginalText != "" {
		t.Fatalf("failed translation must leave the chunk untouched: %+v", chunk)
	}
}

func TestProcessByIDMarksFailedOnExtractError(t *testing.T) {
	repo := &repoFake{doc: &domain.Document{ID: "doc-1"}}
	extractor := &extractorFake{err: errors.New("corrupt pdf")}

	uc := newProcessUC(repo, extractor, nil, &vectorFake{})
	if err := uc.ProcessByID(context.Background(), "doc-1"); err == nil {
		t.Fatalf("expected error")
	}

	if len(repo.statuses) != 2 || repo.statuses[1] != domain.StatusFailed {
		t.Fatalf("status transitions = %v", repo.statuses)
	}
	if repo.errorMsgs[1] == "" {
		t.Fatalf("failure reason must be recorded")
	}
}

func TestProcessByIDRejectsEmptyDocuments(t *testing.T) {
	repo := &repoFake{doc: &domain.Document{ID: "doc-1"}}
	extractor := &extractorFake{pages: nil}

	uc := newProcessUC(repo, extractor, nil, &vectorFake{})
	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
