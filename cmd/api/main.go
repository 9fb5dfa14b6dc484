package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/legal-assistant/backend/internal/config"
	"github.com/zhouzirui/legal-assistant/backend/internal/handler"
	"github.com/zhouzirui/legal-assistant/backend/internal/logging"
	"github.com/zhouzirui/legal-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/legal-assistant/backend/internal/view"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "legal assistant: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Debug("no .env file loaded, using system environment only", zap.Error(envErr))
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		return err
	}

	chatService := chat.NewService(
		chat.WithIdleTTL(cfg.Session.IdleTTL),
		chat.WithPendingTTL(cfg.Session.PendingTTL),
		chat.WithMaxSessions(cfg.Session.MaxSessions),
		chat.WithLogger(logger.Named("chat")),
	)
	go chatService.Run(ctx, cfg.Session.SweepInterval)

	router := handler.NewRouter(handler.RouterConfig{
		ChatService:    chatService,
		Renderer:       renderer,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	return startServer(ctx, logger, cfg.Server, router)
}

func startServer(ctx context.Context, logger *zap.Logger, serverCfg config.ServerConfig, router http.Handler) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("legal assistant listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
