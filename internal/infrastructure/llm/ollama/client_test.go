package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deenlabs/agent-deen/internal/core/domain"
	"github.com/deenlabs/agent-deen/internal/core/ports"
)

func TestGeneratePassesOptions(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"  ok  "}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen-model", "embed-model", nil))
	answer, err := gen.Generate(context.Background(), "What is Murabaha?", ports.GenerateOptions{
		Temperature: 0.2,
		MaxTokens:   2000,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "ok" {
		t.Fatalf("Generate() = %q, want trimmed %q", answer, "ok")
	}
	if captured["model"] != "gen-model" {
		t.Fatalf("model = %v", captured["model"])
	}
	opts, _ := captured["options"].(map[string]any)
	if opts == nil {
		t.Fatalf("options missing from request: %v", captured)
	}
	if opts["temperature"] != 0.2 {
		t.Fatalf("temperature = %v", opts["temperature"])
	}
	if opts["num_predict"] != float64(2000) {
		t.Fatalf("num_predict = %v", opts["num_predict"])
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", nil))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("502 should classify as temporary, got %v", err)
	}
}

func TestModelID(t *testing.T) {
	gen := NewGenerator(New("http://localhost", "llama3.2", "nomic-embed-text", nil))
	if gen.ModelID() != "llama3.2" {
		t.Fatalf("ModelID() = %q", gen.ModelID())
	}
}
