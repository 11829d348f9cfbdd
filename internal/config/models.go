package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog maps a provider name to its candidate models in try order.
type Catalog map[string][]string

// LoadModels reads a YAML catalog such as:
//
//	gemini:
//	  - gemini-2.5-flash
//	openrouter:
//	  - meta-llama/llama-3.3-70b-instruct:free
//	  - meta-llama/llama-3.3-70b-instruct
func LoadModels(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read models catalog: %w", err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse models catalog %s: %w", path, err)
	}
	for name, models := range cat {
		switch name {
		case ProviderGemini, ProviderOpenRouter:
		default:
			return nil, fmt.Errorf("models catalog %s: unknown provider %q", path, name)
		}
		if len(models) == 0 {
			return nil, fmt.Errorf("models catalog %s: provider %q has no models", path, name)
		}
	}
	return cat, nil
}

func (c *Config) applyModels(cat Catalog) {
	if m, ok := cat[ProviderGemini]; ok {
		c.Gemini.Models = m
	}
	if m, ok := cat[ProviderOpenRouter]; ok {
		c.OpenRouter.Models = m
	}
}
