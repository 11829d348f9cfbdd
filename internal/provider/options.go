package provider

import (
	"log/slog"
	"net/http"
	"time"
)

// Options carries the collaborators shared by every adapter.
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	OnSwitch   func(provider, from, to string)
}

// Option configures an adapter.
type Option func(*Options)

// WithHTTPClient replaces the adapter's HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.HTTPClient = c }
}

// WithLogger sets the adapter's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithCandidateSwitch registers a hook fired when a rate-limited model hands over to the next one.
func WithCandidateSwitch(fn func(provider, from, to string)) Option {
	return func(o *Options) { o.OnSwitch = fn }
}

// ApplyOptions resolves opts on top of defaults built from timeout.
func ApplyOptions(timeout time.Duration, opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.HTTPClient == nil {
		o.HTTPClient = NewHTTPClient(timeout)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
