package provider

import (
	"errors"
	"fmt"
)

// Kind classifies why an adapter could not produce a reply.
type Kind string

const (
	// KindNotConfigured means the adapter has no credential and never touched the network.
	KindNotConfigured Kind = "not_configured"
	// KindRateLimited means the upstream throttled the request.
	KindRateLimited Kind = "rate_limited"
	// KindBadResponse means the upstream answered successfully but without usable text.
	KindBadResponse Kind = "bad_response"
	// KindUpstreamError covers transport failures, timeouts, non-2xx statuses and malformed payloads.
	KindUpstreamError Kind = "upstream_error"
	// KindInvalidRequest means the translated request was rejected locally.
	KindInvalidRequest Kind = "invalid_request"
)

// Error is the failure returned by every adapter.
type Error struct {
	Provider string
	Model    string
	Kind     Kind

	// StatusCode is the upstream HTTP status, 0 when no response was received.
	StatusCode int

	Message string
	Cause   error
}

func (e *Error) Error() string {
	prefix := e.Provider
	if e.Model != "" {
		prefix = fmt.Sprintf("%s/%s", e.Provider, e.Model)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", prefix, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", prefix, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// KindOf returns the classification of err. Errors that did not come from an
// adapter are reported as upstream errors.
func KindOf(err error) Kind {
	if pe, ok := AsError(err); ok {
		return pe.Kind
	}
	return KindUpstreamError
}

// IsRateLimited reports whether err is a rate-limit signal.
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}

// NotConfigured builds the short-circuit error for an adapter without credentials.
func NotConfigured(name, what string) *Error {
	return &Error{Provider: name, Kind: KindNotConfigured, Message: what + " is not set"}
}
