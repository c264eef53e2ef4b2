package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deenlabs/agent-deen/internal/config"
	"github.com/deenlabs/agent-deen/internal/core/domain"
)

type answererFake struct {
	resp *domain.RAGResponse
	err  error
	got  domain.AskRequest
}

func (f *answererFake) Answer(_ context.Context, req domain.AskRequest) (*domain.RAGResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &domain.RAGResponse{
		Answer:        "Murabahah is a cost-plus sale.",
		QueryLanguage: domain.LanguageEnglish,
		Confidence:    domain.ConfidenceMedium,
		ModelUsed:     "llama3.1:8b",
		Sources: []domain.SourceRef{
			{Source: "BNM", File: "Murabahah Policy", Page: 4, Snippet: "..."},
		},
	}, nil
}

type ingestorFake struct {
	err    error
	source string
}

func (f *ingestorFake) Upload(_ context.Context, filename, _, source string, _ io.Reader) (*domain.Document, error) {
	f.source = source
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: "doc-1", Filename: filename, Source: source, Status: domain.StatusUploaded}, nil
}

type docsFake struct {
	err error
}

func (f docsFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: "doc-1", Filename: "a.pdf", Source: "BNM", Status: domain.StatusReady}, nil
}

func (f docsFake) List(context.Context, int) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func postAsk(t *testing.T, handler http.Handler, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/ask", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestAskReturnsAnswerPayload(t *testing.T) {
	fake := &answererFake{}
	handler := NewRouter(config.Config{}, fake, &ingestorFake{}, docsFake{}).Handler()

	res := postAsk(t, handler, map[string]any{
		"question": "What is Murabahah?",
		"backend":  "claude",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var body domain.RAGResponse
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Answer == "" || body.Confidence != domain.ConfidenceMedium {
		t.Fatalf("unexpected body: %+v", body)
	}
	if fake.got.Backend != "claude" {
		t.Fatalf("backend not forwarded: %+v", fake.got)
	}
}

func TestAskForwardsLanguagePreferenceAndHistory(t *testing.T) {
	fake := &answererFake{}
	handler := NewRouter(config.Config{}, fake, &ingestorFake{}, docsFake{}).Handler()

	res := postAsk(t, handler, map[string]any{
		"question": "Is it permissible?",
		"language": "ms",
		"history": []map[string]string{
			{"role": "user", "content": "What is Tawarruq?"},
			{"role": "assistant", "content": "Tawarruq is..."},
		},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if fake.got.ResponseLanguage == nil || *fake.got.ResponseLanguage != domain.LanguageMalay {
		t.Fatalf("language preference not forwarded: %+v", fake.got)
	}
	if len(fake.got.PriorTurns) != 2 || fake.got.PriorTurns[0].Role != "user" {
		t.Fatalf("history not forwarded: %+v", fake.got.PriorTurns)
	}
}

func TestAskRejectsUnknownLanguage(t *testing.T) {
	handler := NewRouter(config.Config{}, &answererFake{}, &ingestorFake{}, docsFake{}).Handler()

	res := postAsk(t, handler, map[string]any{"question": "test", "language": "fr"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	handler := NewRouter(config.Config{}, &answererFake{}, &ingestorFake{}, docsFake{}).Handler()

	res := postAsk(t, handler, map[string]any{"question": "   "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAskMapsInvalidInputTo400(t *testing.T) {
	fake := &answererFake{err: domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("empty question"))}
	handler := NewRouter(config.Config{}, fake, &ingestorFake{}, docsFake{}).Handler()

	res := postAsk(t, handler, map[string]any{"question": "test"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAskMapsGenerationFailureTo502(t *testing.T) {
	fake := &answererFake{err: domain.WrapError(domain.ErrGenerationFailed, "answer", errors.New("backend down"))}
	handler := NewRouter(config.Config{}, fake, &ingestorFake{}, docsFake{}).Handler()

	res := postAsk(t, handler, map[string]any{"question": "test"})
	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.Code)
	}
}

func multipartUpload(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "bnm_policy.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4 fake")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadRequiresSource(t *testing.T) {
	handler := NewRouter(config.Config{}, &answererFake{}, &ingestorFake{}, docsFake{}).Handler()

	body, contentType := multipartUpload(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
	}
}

func TestUploadRejectsUnknownSource(t *testing.T) {
	registry := &config.SourceRegistry{Sources: []config.KnowledgeSource{
		{Name: "bnm", Organization: "BNM"},
	}}
	handler := NewRouter(
		config.Config{}, &answererFake{}, &ingestorFake{}, docsFake{},
		WithSourceRegistry(registry),
	).Handler()

	body, contentType := multipartUpload(t, map[string]string{"source": "SEC"})
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
	}
}

func TestUploadAcceptsRegisteredSource(t *testing.T) {
	ingestor := &ingestorFake{}
	registry := &config.SourceRegistry{Sources: []config.KnowledgeSource{
		{Name: "bnm", Organization: "BNM"},
	}}
	handler := NewRouter(
		config.Config{}, &answererFake{}, ingestor, docsFake{},
		WithSourceRegistry(registry),
	).Handler()

	body, contentType := multipartUpload(t, map[string]string{"source": "BNM"})
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if ingestor.source != "BNM" {
		t.Fatalf("source not forwarded: %q", ingestor.source)
	}
}

func TestGetDocumentMapsNotFoundTo404(t *testing.T) {
	docs := docsFake{err: domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New("no rows"))}
	handler := NewRouter(config.Config{}, &answererFake{}, &ingestorFake{}, docs).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestListDocumentsReturnsEmptyArray(t *testing.T) {
	handler := NewRouter(config.Config{}, &answererFake{}, &ingestorFake{}, docsFake{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body struct {
		Documents []domain.Document `json:"documents"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Documents == nil {
		t.Fatalf("documents must be an empty array, not null")
	}
}

type healthFake struct{}

func (healthFake) Health() (string, string) { return "ollama", "llama3.1:8b" }

func TestHealthzReportsBackend(t *testing.T) {
	handler := NewRouter(
		config.Config{}, &answererFake{}, &ingestorFake{}, docsFake{},
		WithHealthReporter(healthFake{}),
	).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" || body["backend"] != "ollama" || body["model"] != "llama3.1:8b" {
		t.Fatalf("unexpected health payload: %v", body)
	}
}
