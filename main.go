package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"lectern/features/course"
	"lectern/internal/adapter/gemini"
	"lectern/internal/app"
	"lectern/internal/config"
	"lectern/internal/logger"
)

func main() {
	// Structured logger with correlation ids pulled from request context.
	handler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Genai.Close()
	if deps.NSQProducer != nil {
		defer deps.NSQProducer.Stop()
	}

	embedder := gemini.NewEmbedder(deps.Genai, cfg.EmbeddingModel)
	provider := gemini.NewGenerator(deps.Genai, cfg.GeminiModel)

	var pub course.Publisher
	if deps.NSQProducer != nil {
		pub = deps.NSQProducer
	}

	a, err := app.New(cfg, deps.VectorStore, embedder, provider, pub)
	if err != nil {
		return err
	}

	// Index any seed documents before accepting traffic.
	if loaded, err := a.CourseService.LoadDir(ctx, cfg.DocsDir); err != nil {
		slog.Error("failed to load seed documents", "error", err, "dir", cfg.DocsDir)
	} else if loaded > 0 {
		slog.Info("seed documents indexed", "count", loaded)
	}

	return a.Run(ctx)
}
