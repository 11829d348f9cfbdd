package routing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ai-gateway/chatrelay/internal/provider"
)

// Errors that can be checked with errors.Is().
var (
	// ErrNoProvidersConfigured is returned when no adapter had credentials at startup.
	ErrNoProvidersConfigured = errors.New("no providers configured")

	// ErrAllProvidersFailed is returned when every configured adapter was tried and failed.
	ErrAllProvidersFailed = errors.New("all providers failed")
)

// Severity tells the gateway how to report a failed dispatch.
type Severity int

const (
	// SeverityUpstream covers any mix of failures that is not rate-limit-only.
	SeverityUpstream Severity = iota
	// SeverityRateLimited means every attempted provider was rate limited.
	SeverityRateLimited
	// SeverityMisconfigured means no provider was configured at all.
	SeverityMisconfigured
)

func (s Severity) String() string {
	switch s {
	case SeverityRateLimited:
		return "rate_limited"
	case SeverityMisconfigured:
		return "misconfigured"
	default:
		return "upstream"
	}
}

// Attempt records one failed adapter call.
type Attempt struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model,omitempty"`
	Kind     provider.Kind `json:"kind"`
	Detail   string        `json:"detail"`
}

// noProviderName labels the synthetic attempt recorded when nothing is configured.
const noProviderName = "none"

// FailureError is returned by Dispatch when no adapter produced a reply.
// Attempts are in the order the adapters were tried.
type FailureError struct {
	Attempts []Attempt

	// Skipped lists adapters dropped at startup for lack of credentials.
	Skipped []string
}

func newMisconfigured(skipped []string) *FailureError {
	return &FailureError{
		Attempts: []Attempt{{
			Provider: noProviderName,
			Kind:     provider.KindNotConfigured,
			Detail:   "no provider is configured",
		}},
		Skipped: skipped,
	}
}

// Misconfigured reports whether the failure is the zero-providers condition.
func (e *FailureError) Misconfigured() bool {
	return len(e.Attempts) == 1 && e.Attempts[0].Provider == noProviderName
}

// Severity classifies the failure for transport mapping.
func (e *FailureError) Severity() Severity {
	if e.Misconfigured() {
		return SeverityMisconfigured
	}
	if len(e.Attempts) == 0 {
		return SeverityUpstream
	}
	for _, a := range e.Attempts {
		if a.Kind != provider.KindRateLimited {
			return SeverityUpstream
		}
	}
	return SeverityRateLimited
}

// Error synthesizes a caller-facing message from the attempt log.
func (e *FailureError) Error() string {
	switch e.Severity() {
	case SeverityMisconfigured:
		msg := "no chat provider is configured: set an API key for at least one provider"
		if len(e.Skipped) > 0 {
			msg += fmt.Sprintf(" (unconfigured: %s)", strings.Join(e.Skipped, ", "))
		}
		return msg
	case SeverityRateLimited:
		names := make([]string, 0, len(e.Attempts))
		for _, a := range e.Attempts {
			names = append(names, a.Provider)
		}
		return fmt.Sprintf("rate limit reached on every provider (%s): wait a moment and retry, or add credits to the provider account",
			strings.Join(names, ", "))
	}
	if len(e.Attempts) == 0 {
		return "all providers failed: request canceled before any provider was tried"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Kind == provider.KindRateLimited {
			parts = append(parts, fmt.Sprintf("%s: rate limited, wait or add credits", a.Provider))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", a.Provider, a.Detail))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// Is implements error matching for errors.Is().
func (e *FailureError) Is(target error) bool {
	if e.Misconfigured() {
		return target == ErrNoProvidersConfigured
	}
	return target == ErrAllProvidersFailed
}

// InternalError wraps a panic raised inside an adapter. It is never folded
// into the fallback chain.
type InternalError struct {
	Provider string
	Value    any
	Stack    []byte
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error in provider %q: %v", e.Provider, e.Value)
}
