package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"lectern/features/chat"
	"lectern/features/course"
	"lectern/internal/config"
	"lectern/internal/middleware"
	"lectern/internal/retrieval"
	"lectern/internal/session"
	"lectern/internal/tool"
)

type App struct {
	Handler       http.Handler
	CourseService *course.Service

	port int
}

// New wires the application graph from already-bootstrapped dependencies.
// pub may be nil when no message bus is configured.
func New(
	cfg *config.Config,
	store retrieval.Store,
	embedder retrieval.Embedder,
	provider chat.Provider,
	pub course.Publisher,
) (*App, error) {
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}

	retrievalService := retrieval.NewService(embedder, store, queryLogger, cfg.MaxResults, cfg.CourseMatchCertainty)

	// Tools the model can call during a chat turn.
	registry := tool.NewRegistry()
	if err := registry.Register(tool.NewSearchTool(retrievalService)); err != nil {
		return nil, err
	}
	if err := registry.Register(tool.NewOutlineTool(retrievalService)); err != nil {
		return nil, err
	}

	sessions := session.NewStore(cfg.MaxHistory)

	// Feature: Chat
	chatService := chat.NewService(provider, registry, sessions, cfg.MaxToolRounds)
	chatHandler := chat.NewHandler(chatService)

	// Feature: Course
	courseService := course.NewService(retrievalService, pub, cfg.ChunkSize, cfg.ChunkOverlap)
	courseHandler := course.NewHandler(courseService, int(cfg.MaxUploadSizeMB))

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /api/chat", middleware.CorrelationID(enableCORS(chatHandler.Ask)))
	mux.Handle("DELETE /api/chat/sessions/{id}", middleware.CorrelationID(enableCORS(chatHandler.ClearSession)))

	mux.Handle("POST /api/courses", middleware.CorrelationID(enableCORS(courseHandler.Create)))
	mux.Handle("POST /api/courses/upload", middleware.CorrelationID(enableCORS(courseHandler.Upload)))
	mux.Handle("GET /api/courses", middleware.CorrelationID(enableCORS(courseHandler.List)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:       mux,
		CourseService: courseService,
		port:          cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
