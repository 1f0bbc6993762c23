package main

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration, read from the environment.
type Config struct {
	Port            string
	DevMode         bool
	LogFile         string
	GeminiAPIKey    string
	GCPProjectID    string
	GCPRegion       string
	TextModel       string
	ImageModel      string
	Background      bool
	GenerateTimeout time.Duration
	FillerWordsFile string
	TrustProxy      bool
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	apiKey := getEnv("GEMINI_API_KEY", "")
	if apiKey == "" {
		apiKey = getEnv("API_KEY", "")
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DevMode:         getEnvBool("DEV_MODE", false),
		LogFile:         getEnv("LOG_FILE", "kiddoword.log"),
		GeminiAPIKey:    apiKey,
		GCPProjectID:    getEnv("GCP_PROJECT_ID", ""),
		GCPRegion:       getEnv("GCP_REGION", defaultRegion),
		TextModel:       getEnv("TEXT_MODEL", defaultTextModel),
		ImageModel:      getEnv("IMAGE_MODEL", defaultImageModel),
		Background:      getEnvBool("BACKGROUND_ENABLED", true),
		GenerateTimeout: getEnvDuration("GENERATE_TIMEOUT", 2*time.Minute),
		FillerWordsFile: getEnv("FILLER_WORDS_FILE", ""),
		TrustProxy:      getEnvBool("TRUST_PROXY", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.TextModel == "" || c.ImageModel == "" {
		return fmt.Errorf("TEXT_MODEL and IMAGE_MODEL cannot be empty")
	}
	if c.GenerateTimeout <= 0 {
		return fmt.Errorf("GENERATE_TIMEOUT must be > 0")
	}
	return nil
}

// HasCredentials reports whether a Gemini backend can be reached.
func (c *Config) HasCredentials() bool {
	return c.GeminiAPIKey != "" || c.GCPProjectID != ""
}

// Gemini returns the client settings.
func (c *Config) Gemini() GeminiConfig {
	return GeminiConfig{
		APIKey:     c.GeminiAPIKey,
		ProjectID:  c.GCPProjectID,
		Region:     c.GCPRegion,
		TextModel:  c.TextModel,
		ImageModel: c.ImageModel,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
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
