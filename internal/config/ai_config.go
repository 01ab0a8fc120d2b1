package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

type AIConfig struct {
	// Providers is the order generative providers are tried in.
	Providers            []string      `mapstructure:"providers"`
	GeminiKey            string        `mapstructure:"gemini_key"`
	GeminiModel          string        `mapstructure:"gemini_model"`
	ClaudeKey            string        `mapstructure:"claude_key"`
	ClaudeModel          string        `mapstructure:"claude_model"`
	MaxTokens            int           `mapstructure:"max_tokens"`
	MaxRequestsPerMinute float32       `mapstructure:"max_requests_per_minute"`
	MaxRequestsPerDay    float32       `mapstructure:"max_requests_per_day"`
	Timeout              time.Duration `mapstructure:"timeout"`
}

func (config AIConfig) validate() error {
	var missingFields []string

	for _, provider := range config.Providers {
		switch strings.ToLower(provider) {
		case ProviderGemini:
			if config.GeminiKey == "" {
				missingFields = append(missingFields, "gemini_key")
			}
		case ProviderClaude:
			if config.ClaudeKey == "" {
				missingFields = append(missingFields, "claude_key")
			}
		default:
			return fmt.Errorf("unsupported ai provider %q", provider)
		}
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

func (config AIConfig) bindEnvironmentVariables() error {
	return bindEnvs(
		"ai.gemini_key", "GEMINI_KEY",
		"ai.claude_key", "CLAUDE_KEY",
		"ai.gemini_model", "GEMINI_MODEL",
		"ai.claude_model", "CLAUDE_MODEL",
	)
}
