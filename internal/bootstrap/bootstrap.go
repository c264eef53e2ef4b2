package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/deenlabs/agent-deen/internal/config"
	"github.com/deenlabs/agent-deen/internal/core/ports"
	"github.com/deenlabs/agent-deen/internal/core/usecase"
	"github.com/deenlabs/agent-deen/internal/infrastructure/chunking"
	"github.com/deenlabs/agent-deen/internal/infrastructure/extractor/pdfx"
	"github.com/deenlabs/agent-deen/internal/infrastructure/langid/lingua"
	"github.com/deenlabs/agent-deen/internal/infrastructure/llm/anthropic"
	"github.com/deenlabs/agent-deen/internal/infrastructure/llm/ollama"
	"github.com/deenlabs/agent-deen/internal/infrastructure/queue/nats"
	"github.com/deenlabs/agent-deen/internal/infrastructure/rerank/tei"
	"github.com/deenlabs/agent-deen/internal/infrastructure/repository/postgres"
	"github.com/deenlabs/agent-deen/internal/infrastructure/resilience"
	"github.com/deenlabs/agent-deen/internal/infrastructure/storage/localfs"
	"github.com/deenlabs/agent-deen/internal/infrastructure/translate/googletrans"
	"github.com/deenlabs/agent-deen/internal/infrastructure/vector/qdrant"
)

const (
	backendOllama = "ollama"
	backendClaude = "claude"
)

type App struct {
	Config  config.Config
	Sources *config.SourceRegistry

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	AnswerUC  *usecase.AnswerUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	history := postgres.NewChatRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		return nil, fmt.Errorf("load source registry: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)

	generators := map[string]ports.TextGenerator{
		backendOllama: ollama.NewGenerator(ollamaClient),
	}
	if cfg.AnthropicAPIKey != "" {
		generators[backendClaude] = anthropic.New(cfg.AnthropicBaseURL, cfg.AnthropicAPIKey, cfg.AnthropicModel, executor)
	}
	defaultBackend := cfg.DefaultLLMBackend
	if _, ok := generators[defaultBackend]; !ok {
		log.Warn("default backend not configured, using ollama", "backend", defaultBackend)
		defaultBackend = backendOllama
	}

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extractor := pdfx.NewExtractor(storage)

	var reranker ports.CrossEncoder
	if cfg.RerankerURL != "" {
		reranker = tei.New(cfg.RerankerURL)
	}
	translator := googletrans.New(cfg.TranslateEndpoint, cfg.TranslateRPS)
	langID := lingua.New()

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, extractor, chunker, translator, embedder, vectorDB, log)
	answerUC := usecase.NewAnswerUseCase(
		embedder,
		vectorDB,
		reranker,
		translator,
		langID,
		generators,
		defaultBackend,
		history,
		usecase.AnswerConfig{
			TopK:          cfg.RAGTopK,
			RerankTopK:    cfg.RAGRerankTopK,
			FallbackTopK:  cfg.RAGFallbackTopK,
			MinSimilarity: cfg.RAGMinSimilarity,
			Temperature:   cfg.LLMTemperature,
			MaxTokens:     cfg.LLMMaxTokens,
			HistoryWindow: cfg.HistoryWindow,
		},
		log,
	)

	return &App{
		Config:  cfg,
		Sources: sources,
		Queue:   queue,
		Repo:    repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		AnswerUC:  answerUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
