package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deenlabs/agent-deen/internal/core/domain"
	"github.com/deenlabs/agent-deen/internal/core/ports"
)

// AnswerConfig carries the read-only tuning knobs of the answering pipeline.
// RerankTopK and MinSimilarity are separate parameters on purpose: cross-encoder
// logits and cosine similarities live on different scales.
type AnswerConfig struct {
	TopK           int     // candidate pool when a reranker is configured
	RerankTopK     int     // passages kept after reranking
	FallbackTopK   int     // candidate pool without a reranker
	MinSimilarity  float64 // similarity cutoff used only without a reranker
	Temperature    float64
	MaxTokens      int
	HistoryWindow  int // prior turns fed to the follow-up rewriter
	SnippetRunes   int
	MinAnswerRunes int // below this, answer-language detection is skipped
}

func (c *AnswerConfig) applyDefaults() {
	if c.TopK <= 0 {
		c.TopK = 60
	}
	if c.RerankTopK <= 0 {
		c.RerankTopK = 25
	}
	if c.FallbackTopK <= 0 {
		c.FallbackTopK = 10
	}
	if c.MinSimilarity <= 0 {
		c.MinSimilarity = 0.60
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.2
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2000
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 6
	}
	if c.SnippetRunes <= 0 {
		c.SnippetRunes = 200
	}
	if c.MinAnswerRunes <= 0 {
		c.MinAnswerRunes = 10
	}
}

// AnswerUseCase is the retrieval-augmented answering pipeline: rewrite the
// follow-up, detect the query language, search in English, rerank or
// threshold-filter, assemble a cited context, generate, then enforce the
// response language. Reranker, translator, language identifier and history
// store are optional capabilities; the pipeline degrades without them.
type AnswerUseCase struct {
	embedder   ports.Embedder
	vectorDB   ports.VectorStore
	reranker   ports.CrossEncoder
	translator ports.Translator
	langID     ports.LanguageIdentifier
	generators map[string]ports.TextGenerator
	defaultGen string
	history    ports.ChatHistoryStore
	cfg        AnswerConfig
	log        *slog.Logger
}

func NewAnswerUseCase(
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	reranker ports.CrossEncoder,
	translator ports.Translator,
	langID ports.LanguageIdentifier,
	generators map[string]ports.TextGenerator,
	defaultGen string,
	history ports.ChatHistoryStore,
	cfg AnswerConfig,
	log *slog.Logger,
) *AnswerUseCase {
	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &AnswerUseCase{
		embedder:   embedder,
		vectorDB:   vectorDB,
		reranker:   reranker,
		translator: translator,
		langID:     langID,
		generators: generators,
		defaultGen: defaultGen,
		history:    history,
		cfg:        cfg,
		log:        log,
	}
}

func (uc *AnswerUseCase) Answer(ctx context.Context, req domain.AskRequest) (*domain.RAGResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("question is required"))
	}

	backend, generator := uc.selectGenerator(req.Backend)

	// Language is decided from the user's own phrasing, before any rewrite or
	// translation, and never recomputed.
	queryLang := domain.DetectLanguage(question)
	responseLang := domain.ResponseLanguage(queryLang, req.ResponseLanguage)

	// The rewrite drives retrieval only; the user's original question is what
	// goes into the prompt, the response, and stored history.
	retrievalQuestion := uc.rewriteFollowUp(ctx, generator, question, uc.loadHistory(ctx, req))

	searchQuery := uc.translateForSearch(ctx, retrievalQuestion, queryLang)

	candidates, err := uc.retrieve(ctx, searchQuery)
	if err != nil {
		return nil, err
	}

	passages, reranked := uc.rerankOrThreshold(ctx, searchQuery, candidates)

	if len(passages) == 0 {
		uc.log.Warn("no passages passed relevance filtering",
			"query_language", queryLang, "retrieved", len(candidates))
		resp := &domain.RAGResponse{
			Answer:        uc.ensureResponseLanguage(ctx, insufficientContextAnswer, responseLang),
			Sources:       []domain.SourceRef{},
			QueryLanguage: queryLang,
			Confidence:    domain.ConfidenceLow,
			ModelUsed:     backend,
			Reranked:      reranked,
		}
		uc.recordTurns(ctx, req.ConversationID, question, resp)
		return resp, nil
	}

	prompt := buildAdvisorPrompt(promptInput{
		Context:          assembleContext(passages),
		Question:         question,
		QueryLanguage:    queryLang.DisplayName(),
		ResponseLanguage: responseLang.DisplayName(),
	})

	answer, err := generator.Generate(ctx, prompt, ports.GenerateOptions{
		Temperature: uc.cfg.Temperature,
		MaxTokens:   uc.cfg.MaxTokens,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrGenerationFailed, "generate answer", err)
	}

	answer = uc.ensureResponseLanguage(ctx, answer, responseLang)

	resp := &domain.RAGResponse{
		Answer:        answer,
		Sources:       extractSources(passages, uc.cfg.SnippetRunes),
		QueryLanguage: queryLang,
		Confidence:    estimateConfidence(len(passages)),
		ModelUsed:     backend,
		Reranked:      reranked,
	}
	uc.recordTurns(ctx, req.ConversationID, question, resp)
	return resp, nil
}

// selectGenerator resolves the backend id, falling back to the default for
// unknown ids. The resolved id is what gets echoed back as model_used.
func (uc *AnswerUseCase) selectGenerator(backend string) (string, ports.TextGenerator) {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if gen, ok := uc.generators[backend]; ok {
		return backend, gen
	}
	return uc.defaultGen, uc.generators[uc.defaultGen]
}

func (uc *AnswerUseCase) loadHistory(ctx context.Context, req domain.AskRequest) []domain.ChatTurn {
	if len(req.PriorTurns) > 0 {
		return req.PriorTurns
	}
	if uc.history == nil || req.ConversationID == "" {
		return nil
	}
	msgs, err := uc.history.ListRecentMessages(ctx, req.ConversationID, uc.cfg.HistoryWindow)
	if err != nil {
		uc.log.Warn("load chat history failed", "error", err)
		return nil
	}
	turns := make([]domain.ChatTurn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, domain.ChatTurn{Role: m.Role, Content: m.Content})
	}
	return turns
}

// translateForSearch converts a non-English query to English so it matches the
// English-indexed corpus. Failures degrade to the original query.
func (uc *AnswerUseCase) translateForSearch(ctx context.Context, query string, lang domain.Language) string {
	if lang == domain.LanguageEnglish || uc.translator == nil {
		return query
	}
	source := "auto"
	if lang != domain.LanguageMixed {
		source = lang.Code()
	}
	translated, err := uc.translator.Translate(ctx, query, source, "en")
	if err != nil {
		uc.log.Warn("query translation failed, searching with original",
			"language", lang, "error", err)
		return query
	}
	if strings.TrimSpace(translated) == "" {
		return query
	}
	return translated
}

func (uc *AnswerUseCase) retrieve(ctx context.Context, searchQuery string) ([]domain.Passage, error) {
	topK := uc.cfg.FallbackTopK
	if uc.reranker != nil {
		// Rerankers need a wide pool to find precision in.
		topK = uc.cfg.TopK
	}

	vector, err := uc.embedder.EmbedQuery(ctx, searchQuery)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", err)
	}

	passages, err := uc.vectorDB.Search(ctx, vector, topK)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "search vector db", err)
	}
	return passages, nil
}

func (uc *AnswerUseCase) recordTurns(ctx context.Context, conversationID, question string, resp *domain.RAGResponse) {
	if uc.history == nil || conversationID == "" {
		return
	}
	now := time.Now().UTC()
	turns := []domain.ChatMessage{
		{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			Role:           "user",
			Content:        question,
			Language:       string(resp.QueryLanguage),
			CreatedAt:      now,
		},
		{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			Role:           "assistant",
			Content:        resp.Answer,
			Confidence:     string(resp.Confidence),
			CreatedAt:      now,
		},
	}
	for _, msg := range turns {
		if err := uc.history.AppendMessage(ctx, msg); err != nil {
			uc.log.Warn("append chat history failed", "error", err)
			return
		}
	}
}

// Health reports the configured default backend for the health endpoint.
func (uc *AnswerUseCase) Health() (backend, model string) {
	gen := uc.generators[uc.defaultGen]
	if gen == nil {
		return uc.defaultGen, ""
	}
	return uc.defaultGen, gen.ModelID()
}

var _ ports.ComplianceAnswerer = (*AnswerUseCase)(nil)
