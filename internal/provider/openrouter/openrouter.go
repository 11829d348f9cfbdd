// Package openrouter is the adapter for OpenAI-compatible chat completion
// endpoints, OpenRouter by default.
package openrouter

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ai-gateway/chatrelay/internal/chat"
	"github.com/ai-gateway/chatrelay/internal/provider"
)

const (
	Name           = "openrouter"
	DefaultBaseURL = "https://openrouter.ai/api/v1"
)

// DefaultModels tries the free tier of a model before its paid tier.
var DefaultModels = []string{
	"meta-llama/llama-3.3-70b-instruct:free",
	"meta-llama/llama-3.3-70b-instruct",
}

// Config is the adapter's slice of the process configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Models  []string
	Timeout time.Duration

	// Referer and Title are sent as HTTP-Referer and X-Title for OpenRouter attribution.
	Referer string
	Title   string
}

// Adapter posts to {BaseURL}/chat/completions.
type Adapter struct {
	cfg  Config
	opts provider.Options
}

func New(cfg Config, opts ...provider.Option) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if len(cfg.Models) == 0 {
		cfg.Models = append([]string(nil), DefaultModels...)
	}
	return &Adapter{cfg: cfg, opts: provider.ApplyOptions(cfg.Timeout, opts...)}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Models() []string { return append([]string(nil), a.cfg.Models...) }

func (a *Adapter) Configured() bool { return a.cfg.APIKey != "" }

// Invoke implements provider.Adapter.
func (a *Adapter) Invoke(ctx context.Context, turns []chat.Turn, temperature float64) (*provider.Reply, error) {
	if !a.Configured() {
		return nil, provider.NotConfigured(Name, "OPENROUTER_API_KEY")
	}
	if err := provider.CheckTurns(Name, turns); err != nil {
		return nil, err
	}

	msgs := make([]message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, message{Role: string(t.Role), Content: t.Content})
	}
	loop := provider.Candidates{
		Provider: Name,
		Models:   a.cfg.Models,
		Logger:   a.opts.Logger,
		OnSwitch: a.opts.OnSwitch,
	}
	return loop.Run(ctx, func(ctx context.Context, model string) (string, error) {
		return a.complete(ctx, chatCompletionRequest{Model: model, Messages: msgs, Temperature: &temperature})
	})
}

func (a *Adapter) complete(ctx context.Context, body chatCompletionRequest) (string, error) {
	call := provider.Call{
		Provider: Name,
		Model:    body.Model,
		URL:      a.cfg.BaseURL + "/chat/completions",
		Headers: map[string]string{
			"Authorization": "Bearer " + a.cfg.APIKey,
			"HTTP-Referer":  a.cfg.Referer,
			"X-Title":       a.cfg.Title,
		},
	}
	var resp chatCompletionResponse
	if err := provider.PostJSON(ctx, a.opts.HTTPClient, call, body, &resp); err != nil {
		return "", err
	}

	if resp.Error != nil {
		kind := provider.KindUpstreamError
		code := resp.Error.status()
		if code == http.StatusTooManyRequests {
			kind = provider.KindRateLimited
		}
		return "", &provider.Error{Provider: Name, Model: body.Model, Kind: kind, StatusCode: code, Message: resp.Error.String()}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "", &provider.Error{Provider: Name, Model: body.Model, Kind: provider.KindBadResponse, Message: "response has no choices"}
	}
	text := resp.Choices[0].Message.Content
	if text == "" {
		return "", &provider.Error{Provider: Name, Model: body.Model, Kind: provider.KindBadResponse, Message: "choice has no content"}
	}
	return text, nil
}
