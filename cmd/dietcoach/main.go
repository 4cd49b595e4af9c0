package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aadityaverma2011/dietplan-suggest/internal/advice"
	"github.com/aadityaverma2011/dietplan-suggest/internal/advice/claude"
	"github.com/aadityaverma2011/dietplan-suggest/internal/advice/gemini"
	"github.com/aadityaverma2011/dietplan-suggest/internal/advice/geminisdk"
	"github.com/aadityaverma2011/dietplan-suggest/internal/advice/ollama"
	"github.com/aadityaverma2011/dietplan-suggest/internal/config"
	"github.com/aadityaverma2011/dietplan-suggest/internal/db"
	"github.com/aadityaverma2011/dietplan-suggest/internal/logging"
	"github.com/aadityaverma2011/dietplan-suggest/internal/service"
	"github.com/aadityaverma2011/dietplan-suggest/internal/store"
	"github.com/aadityaverma2011/dietplan-suggest/internal/web"
	"github.com/aadityaverma2011/dietplan-suggest/internal/web/templates"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg, logger); err != nil {
		logger.Error("exiting", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	advisor, err := newAdvisor(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var svc *service.AdviceService
	if cfg.DBPath == "" {
		logger.Info("outcome tally disabled")
		svc = service.NewAdviceService(advisor, cfg.AdviceBackend, nil, logger)
	} else {
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := database.Close(); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}()
		svc = service.NewAdviceService(advisor, cfg.AdviceBackend, store.NewOutcomeStore(database), logger)
	}

	server := web.NewServer(svc, templates.FS, web.Options{
		Theme:          cfg.Theme,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, logger)

	return server.Run(ctx, cfg.ListenAddr)
}

func newAdvisor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (advice.Advisor, error) {
	switch cfg.AdviceBackend {
	case config.BackendGeminiSDK:
		logger.Info("using Gemini SDK advice backend", "model", cfg.GeminiModel)
		return geminisdk.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiAPIURL)
	case config.BackendClaude:
		logger.Info("using Claude advice backend", "model", cfg.ClaudeModel)
		return claude.NewClient(cfg.ClaudeAPIKey, cfg.ClaudeModel, ""), nil
	case config.BackendOllama:
		logger.Info("using Ollama advice backend", "model", cfg.OllamaModel)
		return ollama.NewClient(cfg.OllamaHost, cfg.OllamaModel), nil
	default:
		logger.Info("using Gemini advice backend", "model", cfg.GeminiModel)
		return gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiAPIURL), nil
	}
}
