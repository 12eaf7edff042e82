// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Defaults for the model catalog. Overridable via AVAILABLE_MODELS,
// COUNCIL_MODELS and CHAIRMAN_MODEL (comma-separated lists).
var (
	defaultAvailableModels = []string{
		"openai/gpt-5.2",
		"openai/gpt-5.1",
		"openai/gpt-4.1",
		"anthropic/claude-opus-4.5",
		"anthropic/claude-sonnet-4.5",
		"google/gemini-3-pro-preview",
		"google/gemini-2.5-pro",
		"x-ai/grok-4",
		"x-ai/grok-3",
	}
	defaultCouncilModels = []string{
		"anthropic/claude-opus-4.5",
		"openai/gpt-5.2",
		"x-ai/grok-4",
		"google/gemini-3-pro-preview",
	}
)

const defaultChairmanModel = "google/gemini-3-pro-preview"

// Config holds all application configuration.
type Config struct {
	Port             string
	DBPath           string
	AuthPassword     string
	AllowedEmails    []string
	OpenRouterAPIKey string
	OpenRouterURL    string
	QueryTimeout     time.Duration
	AvailableModels  []string
	CouncilModels    []string
	ChairmanModel    string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DBPath:           getEnv("DB_PATH", "./data/council.db"),
		AuthPassword:     getEnv("AUTH_PASSWORD", ""),
		AllowedEmails:    getEnvList("ALLOWED_EMAILS", nil),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterURL:    getEnv("OPENROUTER_API_URL", "https://openrouter.ai/api/v1/chat/completions"),
		QueryTimeout:     getEnvDuration("QUERY_TIMEOUT", 120*time.Second),
		AvailableModels:  getEnvList("AVAILABLE_MODELS", defaultAvailableModels),
		CouncilModels:    getEnvList("COUNCIL_MODELS", defaultCouncilModels),
		ChairmanModel:    getEnv("CHAIRMAN_MODEL", defaultChairmanModel),
	}

	// Allowed emails are matched case-insensitively.
	for i, email := range cfg.AllowedEmails {
		cfg.AllowedEmails[i] = strings.ToLower(email)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.OpenRouterURL == "" {
		return fmt.Errorf("OPENROUTER_API_URL cannot be empty")
	}
	if len(c.CouncilModels) == 0 {
		return fmt.Errorf("COUNCIL_MODELS cannot be empty")
	}
	if c.ChairmanModel == "" {
		return fmt.Errorf("CHAIRMAN_MODEL cannot be empty")
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
