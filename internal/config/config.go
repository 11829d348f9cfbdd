package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider names accepted in fallback_order.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderEcho       = "echo"
)

type Config struct {
	Address        string        `mapstructure:"address"`
	ModelsPath     string        `mapstructure:"models_path"`
	TelemetryURL   string        `mapstructure:"telemetry_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	FallbackOrder  []string      `mapstructure:"fallback_order"`

	Log        LogConfig        `mapstructure:"log"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Gemini     ProviderConfig   `mapstructure:"gemini"`
	OpenRouter ProviderConfig   `mapstructure:"openrouter"`
	Echo       EchoConfig       `mapstructure:"echo"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ProviderConfig is one upstream. An empty APIKey leaves the provider unconfigured.
type ProviderConfig struct {
	APIKey  string   `mapstructure:"api_key"`
	BaseURL string   `mapstructure:"base_url"`
	Models  []string `mapstructure:"models"`
	Referer string   `mapstructure:"referer"`
	Title   string   `mapstructure:"title"`
}

type EchoConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type GuardrailsConfig struct {
	MaxTurns     int      `mapstructure:"max_turns"`
	MaxTurnChars int      `mapstructure:"max_turn_chars"`
	Banned       []string `mapstructure:"banned"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("address", ":8000")
	v.SetDefault("models_path", "")
	v.SetDefault("telemetry_url", "")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("fallback_order", []string{ProviderGemini, ProviderOpenRouter})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.models", []string{"gemini-2.5-flash"})

	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.models", []string{
		"meta-llama/llama-3.3-70b-instruct:free",
		"meta-llama/llama-3.3-70b-instruct",
	})
	v.SetDefault("openrouter.referer", "")
	v.SetDefault("openrouter.title", "")

	v.SetDefault("echo.enabled", false)

	v.SetDefault("guardrails.max_turns", 100)
	v.SetDefault("guardrails.max_turn_chars", 32000)
	v.SetDefault("guardrails.banned", []string{})
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	setDefaults(v)

	// allow environment variables like AIGW_ADDRESS or AIGW_GEMINI_API_KEY
	v.SetEnvPrefix("AIGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// the bare provider variables are accepted as well
	if err := v.BindEnv("gemini.api_key", "AIGW_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("openrouter.api_key", "AIGW_OPENROUTER_API_KEY", "OPENROUTER_API_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		// don't fail if config file is missing, allow env-only config
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if c.ModelsPath != "" {
		catalog, err := LoadModels(c.ModelsPath)
		if err != nil {
			return nil, err
		}
		c.applyModels(catalog)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the gateway cannot start with.
func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	seen := make(map[string]bool, len(c.FallbackOrder))
	for _, name := range c.FallbackOrder {
		switch name {
		case ProviderGemini, ProviderOpenRouter, ProviderEcho:
		default:
			return fmt.Errorf("fallback_order: unknown provider %q", name)
		}
		if seen[name] {
			return fmt.Errorf("fallback_order: provider %q listed twice", name)
		}
		seen[name] = true
	}
	return nil
}
