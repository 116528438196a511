package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Chauhan0050r/GPT-clone/internal/config"
	"github.com/Chauhan0050r/GPT-clone/internal/handler"
	"github.com/Chauhan0050r/GPT-clone/internal/logger"
	"github.com/Chauhan0050r/GPT-clone/internal/service/ai"
	authService "github.com/Chauhan0050r/GPT-clone/internal/service/auth"
	"github.com/Chauhan0050r/GPT-clone/internal/store"
	"github.com/Chauhan0050r/GPT-clone/internal/store/memory"
	"github.com/Chauhan0050r/GPT-clone/internal/store/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		// Not fatal: system environment variables may carry everything.
		os.Stderr.WriteString("warning: no .env file loaded\n")
	}

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Log.File, cfg.Log.Prod)
	defer func() { _ = log.Sync() }()

	st, err := openStore(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	// Provider credentials are a startup precondition, not a per-request one.
	gateway, err := ai.NewGateway(ctx, cfg.AI)
	if err != nil {
		log.Fatal("failed to initialize llm gateway", zap.Error(err))
	}

	authSvc := authService.NewService(st, cfg.Auth)
	router := handler.NewRouter(authSvc, st, gateway, log, cfg.Server.ChatTimeout)

	startServer(ctx, cfg.Server, router, log)
}

func openStore(cfg config.DatabaseConfig, log *zap.Logger) (store.Store, error) {
	if cfg.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store; data will not survive restarts")
		return memory.New(), nil
	}
	return postgres.Open(cfg.URL)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("api listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
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
