package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omnisource-labs/omni/internal/analytics"
	"github.com/omnisource-labs/omni/internal/api"
	"github.com/omnisource-labs/omni/internal/config"
	"github.com/omnisource-labs/omni/internal/corpus"
	"github.com/omnisource-labs/omni/internal/dataset"
	"github.com/omnisource-labs/omni/internal/engine"
	"github.com/omnisource-labs/omni/internal/events"
	"github.com/omnisource-labs/omni/internal/gemini"
	"github.com/omnisource-labs/omni/internal/ingest"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("omni starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("database connected")

	// Gemini client
	if cfg.GeminiAPIKey == "" {
		slog.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}
	llm := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EmbeddingModel)
	slog.Info("gemini client ready", "model", cfg.GeminiModel, "embedding_model", cfg.EmbeddingModel)

	// Stores
	index := corpus.New(pool, llm, slog.Default())
	if err := index.Init(ctx); err != nil {
		slog.Error("failed to init corpus schema", "error", err)
		os.Exit(1)
	}
	ds := dataset.New(pool, slog.Default())
	if err := ds.Init(ctx); err != nil {
		slog.Error("failed to init dataset schema", "error", err)
		os.Exit(1)
	}
	an := analytics.New(pool, slog.Default())
	if err := an.Init(ctx); err != nil {
		slog.Error("failed to init analytics schema", "error", err)
		os.Exit(1)
	}

	// Events (optional — omni answers fine without downstream consumers)
	var publisher *events.Publisher
	if cfg.NatsURL != "" {
		publisher, err = events.Connect(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without event signals")
	}

	// Engine — the answering pipeline
	eng := engine.New(llm, index, ds, an, slog.Default(), cfg.TopK)

	// Startup ingestion. A failure here is logged, not fatal: the API can
	// re-trigger ingestion once the data problem is fixed.
	runner := ingest.NewRunner(index, ds, cfg.DataDir, slog.Default())
	if report, err := runner.Run(ctx); err != nil {
		slog.Error("startup ingestion failed", "error", err)
	} else {
		slog.Info("startup ingestion done",
			"document_chunks", report.DocumentChunks, "dataset_rows", report.DatasetRows)
	}

	// HTTP API
	var pub api.EventPublisher
	if publisher != nil {
		pub = publisher
	}
	srv := api.NewServer(cfg.Port, eng, an, runner, pub, slog.Default())
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("omni ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	cancel()
	slog.Info("omni stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
