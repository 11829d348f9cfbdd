package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnv(t *testing.T) {
	t.Setenv("AIGW_ADDRESS", ":9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Address != ":9999" {
		t.Fatalf("expected :9999 got %s", cfg.Address)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("expected 30s timeout got %s", cfg.RequestTimeout)
	}
	if len(cfg.FallbackOrder) != 2 || cfg.FallbackOrder[0] != ProviderGemini || cfg.FallbackOrder[1] != ProviderOpenRouter {
		t.Fatalf("unexpected fallback order %v", cfg.FallbackOrder)
	}
	if len(cfg.OpenRouter.Models) != 2 {
		t.Fatalf("expected free and paid openrouter models got %v", cfg.OpenRouter.Models)
	}
	if cfg.Gemini.APIKey != "" {
		t.Fatalf("expected no gemini key")
	}
}

func TestLoadBareProviderKeys(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("OPENROUTER_API_KEY", "o-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Gemini.APIKey != "g-key" || cfg.OpenRouter.APIKey != "o-key" {
		t.Fatalf("bare keys not picked up: %q %q", cfg.Gemini.APIKey, cfg.OpenRouter.APIKey)
	}
}

func TestLoadModelsCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	data := "openrouter:\n  - cheap:free\n  - cheap\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("AIGW_MODELS_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.OpenRouter.Models) != 2 || cfg.OpenRouter.Models[0] != "cheap:free" {
		t.Fatalf("catalog not applied: %v", cfg.OpenRouter.Models)
	}
	if len(cfg.Gemini.Models) != 1 || cfg.Gemini.Models[0] != "gemini-2.5-flash" {
		t.Fatalf("gemini models should keep defaults: %v", cfg.Gemini.Models)
	}
}

func TestLoadModelsRejectsUnknownProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	if err := os.WriteFile(path, []byte("mystery:\n  - m\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadModels(path); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestValidate(t *testing.T) {
	base := Config{RequestTimeout: time.Second, Log: LogConfig{Format: "json"}, FallbackOrder: []string{"gemini"}}
	if err := base.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := base
	dup.FallbackOrder = []string{"gemini", "gemini"}
	if err := dup.Validate(); err == nil {
		t.Fatalf("expected duplicate error")
	}

	unknown := base
	unknown.FallbackOrder = []string{"bard"}
	if err := unknown.Validate(); err == nil {
		t.Fatalf("expected unknown provider error")
	}

	noTimeout := base
	noTimeout.RequestTimeout = 0
	if err := noTimeout.Validate(); err == nil {
		t.Fatalf("expected timeout error")
	}
}
