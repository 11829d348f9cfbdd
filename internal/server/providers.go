package server

import (
	"log/slog"

	"github.com/ai-gateway/chatrelay/internal/config"
	"github.com/ai-gateway/chatrelay/internal/metrics"
	"github.com/ai-gateway/chatrelay/internal/provider"
	"github.com/ai-gateway/chatrelay/internal/provider/echo"
	"github.com/ai-gateway/chatrelay/internal/provider/gemini"
	"github.com/ai-gateway/chatrelay/internal/provider/openrouter"
	"github.com/ai-gateway/chatrelay/internal/routing"
)

// NewRouter builds one adapter per name in cfg.FallbackOrder and registers
// them in that order. Adapters without credentials are skipped by the router.
func NewRouter(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *routing.Router {
	opts := []provider.Option{provider.WithLogger(logger)}
	routerOpts := []routing.Option{routing.WithLogger(logger)}
	if m != nil {
		opts = append(opts, provider.WithCandidateSwitch(m.ObserveCandidateSwitch))
		routerOpts = append(routerOpts, routing.WithRecorder(m))
	}

	rt := routing.New(routerOpts...)
	for _, name := range cfg.FallbackOrder {
		switch name {
		case config.ProviderGemini:
			rt.Register(gemini.New(gemini.Config{
				APIKey:  cfg.Gemini.APIKey,
				BaseURL: cfg.Gemini.BaseURL,
				Models:  cfg.Gemini.Models,
				Timeout: cfg.RequestTimeout,
			}, opts...))
		case config.ProviderOpenRouter:
			rt.Register(openrouter.New(openrouter.Config{
				APIKey:  cfg.OpenRouter.APIKey,
				BaseURL: cfg.OpenRouter.BaseURL,
				Models:  cfg.OpenRouter.Models,
				Timeout: cfg.RequestTimeout,
				Referer: cfg.OpenRouter.Referer,
				Title:   cfg.OpenRouter.Title,
			}, opts...))
		case config.ProviderEcho:
			rt.Register(echo.New(cfg.Echo.Enabled))
		}
	}
	return rt
}
