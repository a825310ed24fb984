// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Research provider selection values.
const (
	ResearchProviderBackend = "backend" // remote scuttlebutt research service
	ResearchProviderClaude  = "claude"  // direct Anthropic API calls
)

// Config holds application configuration
type Config struct {
	DataDir            string // Base directory for the cache database (always absolute)
	Port               int
	DevMode            bool
	LogLevel           string
	FMPAPIKey          string // Financial Modeling Prep (primary fundamentals/quote provider)
	StockDataAPIToken  string // stockdata.org (secondary price provider)
	ResearchProvider   string // "backend" or "claude"
	ResearchServiceURL string // base URL of the remote research backend
	AnthropicAPIKey    string
	AnthropicModel     string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("MARGIN_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            absDataDir,
		Port:               getEnvAsInt("PORT", 8001),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		FMPAPIKey:          getEnv("FMP_API_KEY", ""),
		StockDataAPIToken:  getEnv("STOCKDATA_API_TOKEN", ""),
		ResearchProvider:   getEnv("RESEARCH_PROVIDER", ResearchProviderBackend),
		ResearchServiceURL: getEnv("RESEARCH_SERVICE_URL", "http://localhost:8000"),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:     getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present.
// API keys are intentionally not required at startup: quote/fundamentals
// lookups fail with a configuration error at request time instead, so the
// server can still serve health and system endpoints without credentials.
func (c *Config) Validate() error {
	if c.ResearchProvider != ResearchProviderBackend && c.ResearchProvider != ResearchProviderClaude {
		return fmt.Errorf("invalid RESEARCH_PROVIDER %q (must be %q or %q)",
			c.ResearchProvider, ResearchProviderBackend, ResearchProviderClaude)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
