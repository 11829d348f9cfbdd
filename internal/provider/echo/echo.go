package echo

import (
	"context"

	"github.com/ai-gateway/chatrelay/internal/chat"
	"github.com/ai-gateway/chatrelay/internal/provider"
)

const (
	Name  = "echo"
	Model = "echo"
)

// Provider responds by echoing the last user message. It makes no network
// calls and is only configured when explicitly enabled.
type Provider struct {
	enabled bool
}

func New(enabled bool) *Provider { return &Provider{enabled: enabled} }

func (p *Provider) Name() string { return Name }

func (p *Provider) Models() []string { return []string{Model} }

func (p *Provider) Configured() bool { return p.enabled }

func (p *Provider) Invoke(ctx context.Context, turns []chat.Turn, _ float64) (*provider.Reply, error) {
	if !p.enabled {
		return nil, provider.NotConfigured(Name, "echo.enabled")
	}
	if err := provider.CheckTurns(Name, turns); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &provider.Error{Provider: Name, Model: Model, Kind: provider.KindUpstreamError, Message: err.Error(), Cause: err}
	}
	last := turns[len(turns)-1]
	return &provider.Reply{Text: "Echo: " + last.Content, Model: Model}, nil
}
