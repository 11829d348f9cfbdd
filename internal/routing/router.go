package routing

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ai-gateway/chatrelay/internal/chat"
	"github.com/ai-gateway/chatrelay/internal/provider"
)

const tracerName = "github.com/ai-gateway/chatrelay/internal/routing"

// Recorder receives dispatch measurements. *metrics.Metrics implements it.
type Recorder interface {
	ObserveAttempt(provider, outcome string)
	ObserveDispatch(result string, elapsed time.Duration)
}

// Route describes one configured provider and its candidate models.
type Route struct {
	Provider string   `json:"provider"`
	Models   []string `json:"models"`
}

// Result is a successful dispatch.
type Result struct {
	Text     string
	Provider string
	Model    string
}

// Router tries configured adapters strictly in registration order. All
// Register calls happen at startup; Dispatch is safe for concurrent use
// afterwards because nothing mutates the router.
type Router struct {
	adapters []provider.Adapter
	skipped  []string
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder
}

// Option configures a Router.
type Option func(*Router)

func WithLogger(l *slog.Logger) Option { return func(r *Router) { r.logger = l } }

func WithTracer(t trace.Tracer) Option { return func(r *Router) { r.tracer = t } }

func WithRecorder(rec Recorder) Option { return func(r *Router) { r.recorder = rec } }

func New(opts ...Option) *Router {
	r := &Router{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	return r
}

// Register appends an adapter to the fallback order. Unconfigured adapters are
// remembered by name but never invoked. It reports whether a was kept.
func (r *Router) Register(a provider.Adapter) bool {
	if !a.Configured() {
		r.logger.Warn("provider not configured, skipping", "provider", a.Name())
		r.skipped = append(r.skipped, a.Name())
		return false
	}
	r.logger.Info("provider registered", "provider", a.Name(), "position", len(r.adapters), "models", a.Models())
	r.adapters = append(r.adapters, a)
	return true
}

// Routes lists configured providers in fallback order.
func (r *Router) Routes() []Route {
	routes := make([]Route, 0, len(r.adapters))
	for _, a := range r.adapters {
		routes = append(routes, Route{Provider: a.Name(), Models: a.Models()})
	}
	return routes
}

// Dispatch validates req and walks the adapters until one replies. Failures
// are *chat.ValidationError (no adapter touched), *FailureError (every
// configured adapter failed, or none is configured) or *InternalError.
func (r *Router) Dispatch(ctx context.Context, req chat.Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		r.observeDispatch("invalid", 0)
		return nil, err
	}

	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "chat.dispatch", trace.WithAttributes(
		attribute.Int("chat.turns", len(req.Turns)),
		attribute.Float64("chat.temperature", req.Temperature),
	))
	defer span.End()

	res, err := r.dispatch(ctx, req)
	result := "success"
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var fe *FailureError
		if errors.As(err, &fe) {
			result = fe.Severity().String()
		} else {
			result = "internal"
		}
	} else {
		span.SetAttributes(attribute.String("chat.provider", res.Provider), attribute.String("chat.model", res.Model))
	}
	r.observeDispatch(result, time.Since(start))
	return res, err
}

func (r *Router) dispatch(ctx context.Context, req chat.Request) (*Result, error) {
	if len(r.adapters) == 0 {
		r.logger.Error("no provider configured", "skipped", r.skipped)
		return nil, newMisconfigured(r.skipped)
	}

	attempts := make([]Attempt, 0, len(r.adapters))
	for i, a := range r.adapters {
		reply, err := r.attempt(ctx, a, req)
		if err == nil {
			r.observeAttempt(a.Name(), "success")
			r.logger.Info("provider replied", "provider", a.Name(), "model", reply.Model, "position", i)
			return &Result{Text: reply.Text, Provider: a.Name(), Model: reply.Model}, nil
		}

		var ie *InternalError
		if errors.As(err, &ie) {
			r.observeAttempt(a.Name(), "internal")
			return nil, err
		}

		at := attemptFrom(a.Name(), err)
		attempts = append(attempts, at)
		r.observeAttempt(a.Name(), string(at.Kind))
		r.logger.Warn("provider failed",
			"provider", at.Provider, "model", at.Model, "kind", at.Kind, "detail", at.Detail,
			"remaining", len(r.adapters)-i-1)

		if ctx.Err() != nil {
			r.logger.Warn("request context done, not falling back", "error", ctx.Err())
			break
		}
	}
	return nil, &FailureError{Attempts: attempts, Skipped: r.skipped}
}

func (r *Router) attempt(ctx context.Context, a provider.Adapter, req chat.Request) (reply *provider.Reply, err error) {
	ctx, span := r.tracer.Start(ctx, "chat.attempt", trace.WithAttributes(attribute.String("chat.provider", a.Name())))
	defer span.End()

	defer func() {
		if v := recover(); v != nil {
			reply, err = nil, &InternalError{Provider: a.Name(), Value: v, Stack: debug.Stack()}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(provider.KindOf(err)))
			span.SetAttributes(attribute.String("chat.error_kind", string(provider.KindOf(err))))
			return
		}
		span.SetAttributes(attribute.String("chat.model", reply.Model))
	}()

	reply, err = a.Invoke(ctx, req.Turns, req.Temperature)
	if err == nil && reply == nil {
		err = &provider.Error{Provider: a.Name(), Kind: provider.KindBadResponse, Message: "adapter returned no reply"}
	}
	return reply, err
}

func attemptFrom(name string, err error) Attempt {
	at := Attempt{Provider: name, Kind: provider.KindOf(err), Detail: err.Error()}
	if pe, ok := provider.AsError(err); ok {
		at.Model = pe.Model
		if pe.Message != "" {
			at.Detail = pe.Message
		}
	}
	return at
}

func (r *Router) observeAttempt(name, outcome string) {
	if r.recorder != nil {
		r.recorder.ObserveAttempt(name, outcome)
	}
}

func (r *Router) observeDispatch(result string, elapsed time.Duration) {
	if r.recorder != nil {
		r.recorder.ObserveDispatch(result, elapsed)
	}
}
