// Package gemini is the adapter for Google's Generative Language API.
package gemini

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ai-gateway/chatrelay/internal/chat"
	"github.com/ai-gateway/chatrelay/internal/provider"
)

const (
	// Name identifies this adapter in configuration and failure reports.
	Name = "gemini"

	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
)

// Config is the adapter's slice of the process configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Models  []string
	Timeout time.Duration
}

// Adapter calls generateContent, trying each configured model in order.
type Adapter struct {
	cfg  Config
	opts provider.Options
}

// New builds a Gemini adapter. An empty APIKey yields an unconfigured adapter.
func New(cfg Config, opts ...provider.Option) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if len(cfg.Models) == 0 {
		cfg.Models = []string{DefaultModel}
	}
	return &Adapter{cfg: cfg, opts: provider.ApplyOptions(cfg.Timeout, opts...)}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Models() []string { return append([]string(nil), a.cfg.Models...) }

func (a *Adapter) Configured() bool { return a.cfg.APIKey != "" }

// Invoke implements provider.Adapter.
func (a *Adapter) Invoke(ctx context.Context, turns []chat.Turn, temperature float64) (*provider.Reply, error) {
	if !a.Configured() {
		return nil, provider.NotConfigured(Name, "GEMINI_API_KEY")
	}
	if err := provider.CheckTurns(Name, turns); err != nil {
		return nil, err
	}

	body := buildRequest(turns, temperature)
	loop := provider.Candidates{
		Provider: Name,
		Models:   a.cfg.Models,
		Logger:   a.opts.Logger,
		OnSwitch: a.opts.OnSwitch,
	}
	return loop.Run(ctx, func(ctx context.Context, model string) (string, error) {
		return a.generate(ctx, model, body)
	})
}

func (a *Adapter) generate(ctx context.Context, model string, body generateContentRequest) (string, error) {
	model = strings.TrimPrefix(model, "models/")
	call := provider.Call{
		Provider: Name,
		Model:    model,
		URL:      fmt.Sprintf("%s/models/%s:generateContent", a.cfg.BaseURL, url.PathEscape(model)),
		Headers:  map[string]string{"x-goog-api-key": a.cfg.APIKey},
	}
	var resp generateContentResponse
	if err := provider.PostJSON(ctx, a.opts.HTTPClient, call, body, &resp); err != nil {
		return "", err
	}
	text, problem := replyText(resp)
	if problem != "" {
		return "", &provider.Error{Provider: Name, Model: model, Kind: provider.KindBadResponse, Message: problem}
	}
	return text, nil
}
