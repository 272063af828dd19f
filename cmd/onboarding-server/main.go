package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joelkehle/macro-onboarding/internal/config"
	"github.com/joelkehle/macro-onboarding/internal/httpapi"
	"github.com/joelkehle/macro-onboarding/internal/llm"
	"github.com/joelkehle/macro-onboarding/internal/logger"
	"github.com/joelkehle/macro-onboarding/internal/onboarding"
	"github.com/joelkehle/macro-onboarding/internal/store"
	"github.com/joelkehle/macro-onboarding/internal/telemetry"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("ONBOARDING_CONFIG"), "path to YAML config file")
		envFile    = flag.String("env-file", ".env", "dotenv file loaded before the environment is read")
		addr       = flag.String("addr", "", "listen address (overrides server.addr)")
	)
	flag.Parse()

	if err := run(*configPath, *envFile, *addr); err != nil {
		fmt.Fprintln(os.Stderr, "onboarding-server:", err)
		os.Exit(1)
	}
}

func run(configPath, envFile, addr string) error {
	if err := config.LoadDotenv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	log, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, log, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	completer, err := llm.New(llm.Options{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     cfg.LLM.Timeout,
		MaxAttempts: cfg.LLM.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("init llm: %w", err)
	}

	backends, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.Warn("store close failed", "error", err)
		}
	}()

	engine := onboarding.NewEngine(completer, onboarding.EngineConfig{
		Logger:                  log.With("component", "engine"),
		ExtractionTemperature:   cfg.LLM.ExtractionTemperature,
		ConversationTemperature: cfg.LLM.ConversationTemperature,
	})
	handler := httpapi.NewServer(httpapi.Config{
		Engine:   engine,
		Sessions: backends.Sessions,
		Profiles: backends.Profiles,
		Logger:   log.With("component", "httpapi"),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("onboarding-server listening",
			"addr", cfg.Server.Addr, "provider", cfg.LLM.Provider, "model", cfg.LLM.Model, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	sctx, scancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer scancel()
	return srv.Shutdown(sctx)
}
