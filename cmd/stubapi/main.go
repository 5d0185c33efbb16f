package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediscan-client/internal/conf"
	"mediscan-client/internal/stubapi"
)

var flagconf string

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// load config
	cfg, err := conf.Load(flagconf)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Stub.Secret == "" {
		logger.Error("stub secret is required, set stub.secret or MEDISCAN_STUB_SECRET")
		os.Exit(1)
	}

	handler := stubapi.NewHandler(stubapi.Options{
		Secret:   []byte(cfg.Stub.Secret),
		TokenTTL: cfg.Stub.TokenTTL,
		Logger:   logger,
	})
	srv := &http.Server{
		Addr:              cfg.Stub.Addr,
		Handler:           stubapi.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("stub server stopped", "error", err)
			os.Exit(1)
		}
	}()
	logger.Info("stub server started", "addr", cfg.Stub.Addr, "token_ttl", cfg.Stub.TokenTTL)

	// wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
