package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contact-gateway/logging"

	"github.com/joho/godotenv"
)

func main() {
	// .env é opcional (dev local); em produção as variáveis vêm do ambiente
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env", "err", err)
	}

	cfg, err := readConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.logLevel, cfg.logFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.close()
	a.start(ctx, cfg)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           newRouter(cfg, a),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("contact gateway listening", "addr", cfg.listenAddr)
	logger.Info("site rate", "enabled", cfg.rateEnabled, "rps", cfg.rateRPS, "burst", cfg.rateBurst,
		"key_header", cfg.keyHeader, "trust_xff", cfg.trustXFF)
	logger.Info("contact limit", "max", cfg.contactPolicy.MaxAttempts, "window", cfg.contactPolicy.Window,
		"block", cfg.contactPolicy.BlockFor, "shared_store", cfg.redisAddr != "")
	logger.Info("delivery", "mongo", cfg.mongoURI != "", "smtp", cfg.smtpHost != "", "form_token", cfg.formTokenSecret != "")
	logger.Info("concurrency", "max", cfg.concurrencyMax, "acquire_timeout", cfg.concurrencyTimeout)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
