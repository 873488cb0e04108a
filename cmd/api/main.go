package main

import (
	"context"
	"log"
	"log/slog"
	"math/rand"
	nethttp "net/http"
	"os"
	"time"

	"notelink-ai/internal/config"
	"notelink-ai/internal/handlers"
	"notelink-ai/internal/http"
	"notelink-ai/internal/indexer"
	"notelink-ai/internal/insight"
	"notelink-ai/internal/library"
	"notelink-ai/internal/llm"
	"notelink-ai/internal/storage"
	"notelink-ai/internal/vectorstore"
	"notelink-ai/internal/websearch"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	level := parseLogLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", level.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	docRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	insightRepo := storage.NewInsightRepo(db)
	feedbackRepo := storage.NewFeedbackRepo(db)

	ctx := context.Background()

	// Initialize library manager
	libManager, err := library.NewManager(cfg.LibraryPath)
	if err != nil {
		log.Fatalf("Failed to initialize library manager: %v", err)
	}
	slog.Info("Library manager initialized", "root", libManager.Root())

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Create indexing pipeline
	indexerPipeline := indexer.NewPipeline(
		libManager,
		docRepo,
		chunkRepo,
		embedder,
		vectorStore,
		cfg.QdrantCollection,
	)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Web search is optional; without an endpoint the verification stage and
	// the web search tool disable themselves.
	var searcher insight.WebSearcher
	if cfg.SearchBaseURL != "" {
		searcher = websearch.NewClient(cfg.SearchBaseURL)
		slog.Info("Web search enabled", "base_url", cfg.SearchBaseURL)
	}

	tools := insight.NewToolRegistry()
	if searcher != nil {
		tools.Register(insight.NewWebSearchTool(searcher, 0))
	}
	tools.Register(insight.NewMindMapTool(0))

	retriever := insight.NewRetriever(
		docRepo,
		chunkRepo,
		embedder,
		vectorStore,
		cfg.QdrantCollection,
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)

	discovery := insight.NewPipeline(
		docRepo,
		chunkRepo,
		feedbackRepo,
		llmClient,
		retriever,
		searcher,
		tools,
		insight.EscalationCosts{PerToken: cfg.CostPerToken, PerCall: cfg.CostPerCall},
		insight.DefaultControllerConfig(),
	)
	slog.Info("Insight pipeline initialized", "tier", cfg.InsightTier)

	// Create router with dependencies
	deps := &http.Deps{
		InsightHandler:  handlers.NewInsightHandler(discovery, docRepo, insightRepo, insight.Tier(cfg.InsightTier)),
		FeedbackHandler: handlers.NewFeedbackHandler(feedbackRepo),
		HealthHandler:   handlers.NewHealthHandler(vectorStore, cfg.QdrantCollection),
		StatsHandler:    handlers.NewStatsHandler(indexerPipeline, cfg.EmbeddingModelName),
	}
	router := http.NewRouter(deps)

	// Start indexing in background after router is ready
	go func() {
		indexCtx := context.Background()
		slog.Info("Starting background indexing of library")
		if err := indexerPipeline.IndexAll(indexCtx); err != nil {
			slog.Error("Indexing completed with errors", "error", err)
		} else {
			slog.Info("Indexing completed successfully")
		}
	}()

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

// parseLogLevel maps the configured level name to a slog level, defaulting to
// info for unknown values.
func parseLogLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
