package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ai-gateway/chatrelay/internal/config"
	"github.com/ai-gateway/chatrelay/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Address:        ":0",
		RequestTimeout: 5 * time.Second,
		FallbackOrder:  []string{config.ProviderGemini, config.ProviderOpenRouter},
		CORS:           config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Guardrails:     config.GuardrailsConfig{MaxTurns: 10, MaxTurnChars: 1000, Banned: []string{"banned"}},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	return New(cfg, NewRouter(cfg, m, logger), m, logger)
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// upstream counts calls and answers with a fixed status and body.
func upstream(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestChatPrimaryReplies(t *testing.T) {
	gem, gemCalls := upstream(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`)
	or, orCalls := upstream(t, http.StatusOK, `{"choices":[{"message":{"content":"unused"}}]}`)

	cfg := testConfig()
	cfg.Gemini = config.ProviderConfig{APIKey: "g", BaseURL: gem.URL, Models: []string{"gemini-test"}}
	cfg.OpenRouter = config.ProviderConfig{APIKey: "o", BaseURL: or.URL, Models: []string{"m"}}
	s := newTestServer(t, cfg)

	rec := do(s, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}],"temperature":0.7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "hello" || resp.Role != "assistant" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if rec.Header().Get("X-Chat-Provider") != config.ProviderGemini {
		t.Fatalf("unexpected provider header %q", rec.Header().Get("X-Chat-Provider"))
	}
	if gemCalls.Load() != 1 || orCalls.Load() != 0 {
		t.Fatalf("expected calls gemini=1 openrouter=0 got %d %d", gemCalls.Load(), orCalls.Load())
	}
}

func TestChatFallsBackWhenPrimaryUnconfigured(t *testing.T) {
	gem, gemCalls := upstream(t, http.StatusOK, `{}`)
	or, _ := upstream(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"from fallback"}}]}`)

	cfg := testConfig()
	cfg.Gemini = config.ProviderConfig{BaseURL: gem.URL}
	cfg.OpenRouter = config.ProviderConfig{APIKey: "o", BaseURL: or.URL, Models: []string{"m"}}
	s := newTestServer(t, cfg)

	rec := do(s, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "from fallback") {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
	if gemCalls.Load() != 0 {
		t.Fatalf("unconfigured primary was called")
	}
}

func TestChatLastTurnNotUser(t *testing.T) {
	gem, gemCalls := upstream(t, http.StatusOK, `{}`)
	cfg := testConfig()
	cfg.Gemini = config.ProviderConfig{APIKey: "g", BaseURL: gem.URL}
	s := newTestServer(t, cfg)

	rec := do(s, http.MethodPost, "/api/chat", `{"messages":[{"role":"assistant","content":"x"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if gemCalls.Load() != 0 {
		t.Fatalf("provider called for invalid request")
	}
}

func TestChatRejectsMalformedJSON(t *testing.T) {
	s := newTestServer(t, testConfig())
	if rec := do(s, http.MethodPost, "/api/chat", `{"messages":`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestChatGuardrails(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(s, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"something BANNED"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestChatNoProviderConfigured(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(s, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no chat provider is configured") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestChatRateLimitedEverywhere(t *testing.T) {
	gem, _ := upstream(t, http.StatusTooManyRequests, `{"error":{"message":"quota"}}`)
	or, orCalls := upstream(t, http.StatusTooManyRequests, `{"error":{"code":429,"message":"credits"}}`)

	cfg := testConfig()
	cfg.Gemini = config.ProviderConfig{APIKey: "g", BaseURL: gem.URL, Models: []string{"g1"}}
	cfg.OpenRouter = config.ProviderConfig{APIKey: "o", BaseURL: or.URL, Models: []string{"free", "paid"}}
	s := newTestServer(t, cfg)

	rec := do(s, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d: %s", rec.Code, rec.Body.String())
	}
	if orCalls.Load() != 2 {
		t.Fatalf("expected both openrouter candidates to be tried, got %d calls", orCalls.Load())
	}
	var body struct {
		Error    string `json:"error"`
		Attempts []struct {
			Provider string `json:"provider"`
			Kind     string `json:"kind"`
		} `json:"attempts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Attempts) != 2 || body.Attempts[0].Provider != "gemini" || body.Attempts[1].Provider != "openrouter" {
		t.Fatalf("unexpected attempts %+v", body.Attempts)
	}
}

func TestChatMixedFailure(t *testing.T) {
	gem, _ := upstream(t, http.StatusTooManyRequests, `{"error":{"message":"quota"}}`)
	or, _ := upstream(t, http.StatusBadGateway, `{"error":{"message":"upstream exploded"}}`)

	cfg := testConfig()
	cfg.Gemini = config.ProviderConfig{APIKey: "g", BaseURL: gem.URL, Models: []string{"g1"}}
	cfg.OpenRouter = config.ProviderConfig{APIKey: "o", BaseURL: or.URL, Models: []string{"m"}}
	s := newTestServer(t, cfg)

	rec := do(s, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "upstream exploded") {
		t.Fatalf("expected upstream detail in body %s", rec.Body.String())
	}
}

func TestHealthRootAndModels(t *testing.T) {
	cfg := testConfig()
	cfg.FallbackOrder = append(cfg.FallbackOrder, config.ProviderEcho)
	cfg.Echo.Enabled = true
	s := newTestServer(t, cfg)

	if rec := do(s, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(s, http.MethodGet, "/", ""); rec.Code != http.StatusOK {
		t.Fatalf("unexpected root status %d", rec.Code)
	}
	rec := do(s, http.MethodGet, "/v1/models", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"provider":"echo"`) {
		t.Fatalf("unexpected models response %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "gemini") {
		t.Fatalf("unconfigured provider listed: %s", rec.Body.String())
	}

	rec = do(s, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"ping"}]}`)
	if !strings.Contains(rec.Body.String(), "Echo: ping") {
		t.Fatalf("echo fallback not used: %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())
	do(s, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	rec := do(s, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), `chatrelay_dispatch_total{result="misconfigured"} 1`) {
		t.Fatalf("dispatch metric missing:\n%s", rec.Body.String())
	}
}

func TestCORSAndRequestID(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("missing CORS header")
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("missing request id")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set(requestIDHeader, "abc")
	s.Handler().ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected CORS header for foreign origin")
	}
	if rec.Header().Get(requestIDHeader) != "abc" {
		t.Fatalf("request id not propagated")
	}
}
