package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig carries every runtime setting. It is constructed once in main
// and passed into component constructors; nothing reads the environment
// after Load returns.
type AppConfig struct {
	OpenWeatherAPIKey string
	OpenAIAPIKey      string
	OpenAIModel       string

	// Outbound HTTP client timeout for weather/geoip calls.
	HTTPTimeout time.Duration
	// Separate, longer timeout for language-model calls.
	LLMTimeout time.Duration

	// Bounded exponential backoff applied to all outbound calls.
	MaxRetries           int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration

	// DefaultUnits is "metric" or "imperial".
	DefaultUnits string

	// Default city used when the HTTP surface cannot geolocate the caller.
	DefaultCity string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	if cfg.OpenWeatherAPIKey == "" {
		return nil, fmt.Errorf("OPENWEATHER_API_KEY is required")
	}

	// Optional: without a key the intent parser and summary generator run
	// in deterministic fallback mode.
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = getenvDefault("OPENAI_MODEL", "gpt-4o-mini")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.LLMTimeout, err = getenvDuration("LLM_TIMEOUT", "30s"); err != nil {
		return nil, err
	}

	cfg.MaxRetries = getenvInt("MAX_RETRIES", 3)
	if cfg.RetryInitialInterval, err = getenvDuration("RETRY_INITIAL_INTERVAL", "500ms"); err != nil {
		return nil, err
	}
	if cfg.RetryMaxInterval, err = getenvDuration("RETRY_MAX_INTERVAL", "5s"); err != nil {
		return nil, err
	}

	cfg.DefaultUnits = getenvDefault("DEFAULT_UNITS", "metric")
	if cfg.DefaultUnits != "metric" && cfg.DefaultUnits != "imperial" {
		return nil, fmt.Errorf("invalid DEFAULT_UNITS %q: must be metric or imperial", cfg.DefaultUnits)
	}

	cfg.DefaultCity = getenvDefault("DEFAULT_CITY", "London")
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
