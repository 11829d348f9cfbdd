package provider

import (
	"context"
	"fmt"
	"log/slog"
)

// Candidates walks an adapter's ordered model list. Only a rate-limit signal
// moves it to the next model; any other failure is returned immediately.
type Candidates struct {
	Provider string
	Models   []string
	Logger   *slog.Logger

	// OnSwitch, if set, is called each time a rate-limited model hands over to the next one.
	OnSwitch func(provider, from, to string)
}

// Run calls fn once per candidate until one succeeds or the list is exhausted.
func (c Candidates) Run(ctx context.Context, fn func(ctx context.Context, model string) (string, error)) (*Reply, error) {
	if len(c.Models) == 0 {
		return nil, &Error{Provider: c.Provider, Kind: KindNotConfigured, Message: "no candidate models configured"}
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limited []string
	for i, model := range c.Models {
		text, err := fn(ctx, model)
		if err == nil {
			return &Reply{Text: text, Model: model}, nil
		}
		if !IsRateLimited(err) {
			return nil, err
		}
		limited = append(limited, model)
		if i == len(c.Models)-1 {
			if len(limited) == 1 {
				return nil, err
			}
			pe, _ := AsError(err)
			return nil, &Error{
				Provider:   c.Provider,
				Model:      model,
				Kind:       KindRateLimited,
				StatusCode: pe.StatusCode,
				Message:    fmt.Sprintf("all %d candidate models rate limited, last: %s", len(limited), pe.Message),
				Cause:      err,
			}
		}
		if ctx.Err() != nil {
			return nil, err
		}
		next := c.Models[i+1]
		logger.Warn("candidate model rate limited, trying next",
			"provider", c.Provider, "model", model, "next", next, "error", err)
		if c.OnSwitch != nil {
			c.OnSwitch(c.Provider, model, next)
		}
	}
	// unreachable: the loop returns on the last candidate
	return nil, &Error{Provider: c.Provider, Kind: KindUpstreamError, Message: "candidate loop ended without a result"}
}
