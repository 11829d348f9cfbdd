package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single upstream call.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is kept as detail.
const maxErrorBody = 2048

// NewHTTPClient returns a client whose requests fail after timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Call describes one JSON POST to an upstream provider.
type Call struct {
	Provider string
	Model    string
	URL      string
	Headers  map[string]string
}

// PostJSON sends body as JSON and decodes a 2xx response into out. Every
// failure comes back as *Error with the kind already decided: 429 is
// KindRateLimited, marshal failures are KindInvalidRequest, everything else
// (transport, timeout, other statuses, undecodable payloads) is KindUpstreamError.
func PostJSON(ctx context.Context, client *http.Client, call Call, body, out any) error {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	fail := func(kind Kind, status int, msg string, cause error) error {
		return &Error{Provider: call.Provider, Model: call.Model, Kind: kind, StatusCode: status, Message: msg, Cause: cause}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fail(KindInvalidRequest, 0, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.URL, bytes.NewReader(payload))
	if err != nil {
		return fail(KindInvalidRequest, 0, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range call.Headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	res, err := client.Do(req)
	if err != nil {
		return fail(KindUpstreamError, 0, transportMessage(err), err)
	}
	defer func() {
		if cerr := res.Body.Close(); cerr != nil {
			slog.Warn("failed to close response body", "provider", call.Provider, "error", cerr)
		}
	}()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fail(KindUpstreamError, res.StatusCode, "read response body", err)
	}

	if res.StatusCode == http.StatusTooManyRequests {
		return fail(KindRateLimited, res.StatusCode, UpstreamMessage(raw), nil)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fail(KindUpstreamError, res.StatusCode, UpstreamMessage(raw), nil)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fail(KindUpstreamError, res.StatusCode, "malformed response: "+truncate(string(raw), 200), err)
	}
	return nil
}

func transportMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request canceled"
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return "request timed out"
	}
	return err.Error()
}

// UpstreamMessage pulls a human-readable message out of an error body. Both
// Google and OpenAI-compatible APIs use {"error": {"message": ...}}.
func UpstreamMessage(raw []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Error) > 0 {
		var detail struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &detail); err == nil && detail.Message != "" {
			return detail.Message
		}
		var s string
		if err := json.Unmarshal(envelope.Error, &s); err == nil && s != "" {
			return s
		}
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return "empty response body"
	}
	return truncate(msg, maxErrorBody)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes)", s[:n], len(s))
}
