package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deenlabs/agent-deen/internal/config"
	"github.com/deenlabs/agent-deen/internal/core/domain"
	"github.com/deenlabs/agent-deen/internal/core/ports"
	"github.com/deenlabs/agent-deen/internal/observability/metrics"
)

const serviceName = "api"

// Concurrency ceiling for the shedding middleware. Generation requests hold
// a backend connection for seconds, so the queue must stay short.
const (
	maxInFlightRequests = 64
	inFlightQueueWait   = 250 * time.Millisecond
)

// healthReporter exposes the active generation backend for liveness output.
type healthReporter interface {
	Health() (backend, model string)
}

type Router struct {
	cfg      config.Config
	answerer ports.ComplianceAnswerer
	ingestor ports.DocumentIngestor
	docs     ports.DocumentReader
	sources  *config.SourceRegistry
	metrics  *metrics.HTTPServerMetrics
	health   healthReporter
}

func NewRouter(
	cfg config.Config,
	answerer ports.ComplianceAnswerer,
	ingestor ports.DocumentIngestor,
	docs ports.DocumentReader,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:      cfg,
		answerer: answerer,
		ingestor: ingestor,
		docs:     docs,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

type RouterOption func(*Router)

func WithSourceRegistry(registry *config.SourceRegistry) RouterOption {
	return func(rt *Router) { rt.sources = registry }
}

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) { rt.metrics = m }
}

func WithHealthReporter(h healthReporter) RouterOption {
	return func(rt *Router) { rt.health = h }
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat/ask", rt.ask)
	mux.HandleFunc("/v1/documents", rt.documents)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, maxInFlightRequests, inFlightQueueWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateRPS, rt.cfg.APIRateBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]string{"status": "ok"}
	if rt.health != nil {
		backend, model := rt.health.Health()
		payload["backend"] = backend
		payload["model"] = model
	}
	writeJSON(w, http.StatusOK, payload)
}

type askRequest struct {
	Question       string `json:"question"`
	Language       string `json:"language,omitempty"`
	Backend        string `json:"backend,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	History        []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"history,omitempty"`
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	ask := domain.AskRequest{
		Question:       req.Question,
		Backend:        req.Backend,
		ConversationID: req.ConversationID,
	}
	if req.Language != "" {
		lang, ok := domain.ParseLanguage(req.Language)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "language must be one of: ar, en, ms",
			})
			return
		}
		ask.ResponseLanguage = &lang
	}
	for _, turn := range req.History {
		ask.PriorTurns = append(ask.PriorTurns, domain.ChatTurn{Role: turn.Role, Content: turn.Content})
	}

	start := time.Now()
	resp, err := rt.answerer.Answer(r.Context(), ask)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		backend := req.Backend
		if backend == "" {
			backend = rt.cfg.DefaultLLMBackend
		}
		rt.metrics.RecordAsk(
			serviceName,
			resp.QueryLanguage.Code(),
			backend,
			string(resp.Confidence),
			len(resp.Sources),
			resp.Reranked,
			time.Since(start),
		)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) documents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadDocument(w, r)
	case http.MethodGet:
		rt.listDocuments(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	source := strings.TrimSpace(r.FormValue("source"))
	if source == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "form field 'source' is required"})
		return
	}
	if rt.sources != nil && !rt.sources.Known(source) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown source: " + source})
		return
	}

	doc, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		source,
		file,
	)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	docs, err := rt.docs.List(r.Context(), limit)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
