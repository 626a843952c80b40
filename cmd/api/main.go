package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"project-ledger-api/internal"
	"project-ledger-api/internal/config"
	"project-ledger-api/internal/log"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.New(log.DefaultConfig()).Error("failed to load .env", log.FieldError, err)
		os.Exit(1)
	}

	// Load and validate configuration
	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.New(log.DefaultConfig()).Error("configuration error", log.FieldError, err)
		os.Exit(1)
	}

	logger := log.New(log.Config{
		Level:  log.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := internal.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start server", log.FieldError, err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting project ledger API",
			"addr", httpServer.Addr,
			"backend", cfg.DataBackend,
			"session_store", cfg.SessionStore,
			"timezone", cfg.Location().String(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", log.FieldError, err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", log.FieldError, err)
	}
	if err := srv.Close(shutdownCtx); err != nil {
		logger.Error("failed to release resources", log.FieldError, err)
	}
}
