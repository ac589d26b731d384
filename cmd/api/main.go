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

	"friendsnet-backend/internal/config"
	"friendsnet-backend/internal/httpserver"
	"friendsnet-backend/internal/logging"
	"friendsnet-backend/internal/storage"
	"friendsnet-backend/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

// storeTokenValidator narrows the storage API to the shape the websocket
// manager authenticates with.
type storeTokenValidator struct {
	store *storage.Store
}

func (v storeTokenValidator) ValidateToken(ctx context.Context, token string) (int64, error) {
	row, err := v.store.ValidateToken(ctx, token, time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return row.UserID, nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", "httpAddr", cfg.HTTPAddr, "databaseURL", storage.RedactedDatabaseURL(cfg.DatabaseURL))

	store, err := storage.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	if err := runStartupScripts(ctx, store, cfg); err != nil {
		return err
	}

	if cfg.UploadDir != "" {
		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			return fmt.Errorf("create upload dir: %w", err)
		}
	}

	wsManager := ws.NewManager(logger, storeTokenValidator{store: store})
	handler := httpserver.NewHandler(logger, store, wsManager, cfg.UploadDir)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logging.StdLogger(logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	wsManager.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		_ = srv.Close()
	}

	logger.Info("stopped")
	return nil
}

func runStartupScripts(ctx context.Context, store *storage.Store, cfg config.Config) error {
	for _, file := range []string{cfg.SchemaFile, cfg.SeedFile} {
		if file == "" {
			continue
		}
		script, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read SQL script %s: %w", file, err)
		}
		if err := store.ExecScript(ctx, string(script)); err != nil {
			return fmt.Errorf("exec SQL script %s: %w", file, err)
		}
	}
	return nil
}
