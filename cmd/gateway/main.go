package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ai-gateway/chatrelay/internal/config"
	"github.com/ai-gateway/chatrelay/internal/logging"
	"github.com/ai-gateway/chatrelay/internal/metrics"
	"github.com/ai-gateway/chatrelay/internal/observability"
	"github.com/ai-gateway/chatrelay/internal/server"
)

func main() {
	// a missing .env is fine; real deployments use the environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := logging.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.Setup(ctx, cfg.TelemetryURL, "chat-relay")
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	m := metrics.New()
	rt := server.NewRouter(cfg, m, logger)
	if len(rt.Routes()) == 0 {
		logger.Error("no chat provider configured; every chat request will fail until GEMINI_API_KEY or OPENROUTER_API_KEY is set")
	}

	srv := server.New(cfg, rt, m, logger)
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
