// Aura chat backend server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/agent"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/api"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/chat"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/config"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/identity"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/middleware"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/retention"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	if err := run(logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "demo_mode", cfg.LLM.DemoMode())

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o750); err != nil {
		return err
	}
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		return err
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	for token, userID := range cfg.AuthTokens {
		if err := repo.UpsertToken(context.Background(), token, userID); err != nil {
			return err
		}
	}
	slog.Info("API tokens seeded", "count", len(cfg.AuthTokens))

	conversationLogger, err := agent.NewConversationLogger(cfg.ConversationLog, logger)
	if err != nil {
		return err
	}

	svc := agent.NewService(cfg.LLM, cfg.SSE.DemoTypingDelay, &http.Client{}, logger)
	chatHandler := agent.NewHandler(svc, repo, conversationLogger, cfg)
	defer chatHandler.Close()

	baseHandler := api.NewHandler(repo)
	sessionHandler := api.NewSessionHandler(baseHandler)
	healthHandler := api.NewHealthHandler(repo, svc.DemoMode())

	origins := []string{"*"}
	if !cfg.IsDevelopment() {
		origins = []string{cfg.FrontendURL}
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(origins, chat.DemoModeHeader))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo))
		sessionHandler.RegisterRoutes(r)
		chatHandler.RegisterRoutes(r)
	})

	// Chat streams are bounded by CHAT_TIMEOUT, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retention.Start(ctx, repo, cfg.Retention.MaxAge, cfg.Retention.Interval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

