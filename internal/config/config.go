package config

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/text/language"
)

// Config holds all application configuration.
// Supports environment variables with sensible defaults.
//
// Environment Variables:
// Translation Backend:
// - TRANSLATE_API_KEY: API key for the translation provider (required)
// - TRANSLATE_API_URL: API endpoint URL (default: https://openrouter.ai/api/v1)
// - TRANSLATE_MODEL: Model name to use (default: openai/gpt-4o-mini)
// - TRANSLATE_MAX_TOKENS: Maximum tokens for responses (default: 512)
// - TRANSLATE_TEMPERATURE: Temperature for responses (default: 0.2)
// - TRANSLATE_TIMEOUT: Request timeout in seconds (default: 30)
//
// Overlay Pipeline:
// - TARGET_LANGUAGE: Translation target language (default: zh)
// - SOURCE_LANGUAGE: Caption source language (default: autodetect)
// - TIME_OFFSET_SECONDS: Offset added to resolved playback time (default: 0)
// - TIME_EPSILON: Minimum propagated time change in seconds (default: 0.05)
// - TRANSLATION_BATCH_SIZE: Cues per translation pass (default: 3)
// - TRANSLATION_REQUEST_DELAY_MS: Delay between requests in a batch (default: 350)
// - TRANSLATION_RESCHEDULE_DELAY_MS: Delay before the next pass (default: 1500)
// - SCRUBBER_RETRY_COUNT: Scrubber discovery attempts (default: 10)
// - SCRUBBER_RETRY_INTERVAL_MS: Delay between discovery attempts (default: 1000)
// - ENABLED: Feature flag for the overlay pipeline (default: true)
//
// System:
// - CAPSYNC_HTTP_ADDR: Listen address (default: :8972)
// - CAPSYNC_DB_PATH: Translation cache path (default: /app/data/capsync.db)
// - CACHE_TTL_HOURS: Translation cache lifetime (default: 720)
// - SWEEP_CRON_EXPR: Maintenance sweep schedule (default: @every 10m)
// - LOG_LEVEL: debug|info|warn|error (default: info)

type Config struct {
	Backend   BackendConfig   `json:"backend"`
	Translate TranslateConfig `json:"translate"`
	Resolver  ResolverConfig  `json:"resolver"`
	System    SystemConfig    `json:"system"`
}

// BackendConfig holds the configuration for the translation backend.
// Any OpenAI-compatible provider works.
type BackendConfig struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
}

// TranslateConfig holds the pipeline's translation tunables. The
// runtime-mutable subset is mirrored in RuntimeSettings.
type TranslateConfig struct {
	TargetLanguage    language.Tag `json:"target_language"`
	SourceLanguage    language.Tag `json:"source_language"` // Und means autodetect
	TimeOffsetSeconds float64      `json:"time_offset_seconds"`
	BatchSize         int          `json:"batch_size"`
	RequestDelayMs    int          `json:"request_delay_ms"`
	RescheduleDelayMs int          `json:"reschedule_delay_ms"`
	Enabled           bool         `json:"enabled"`
}

// ResolverConfig holds the time-source discovery tunables.
type ResolverConfig struct {
	ScrubberRetryCount      int     `json:"scrubber_retry_count"`
	ScrubberRetryIntervalMs int     `json:"scrubber_retry_interval_ms"`
	TimeEpsilon             float64 `json:"time_epsilon"`
}

// SystemConfig holds process-level configuration.
type SystemConfig struct {
	HTTPAddr      string `json:"http_addr"`
	DBPath        string `json:"db_path"`
	CacheTTLHours int    `json:"cache_ttl_hours"`
	SweepCronExpr string `json:"sweep_cron_expr"`
	LogLevel      string `json:"log_level"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Backend: BackendConfig{
			APIKey:      getEnvString("TRANSLATE_API_KEY", ""),
			APIURL:      getEnvString("TRANSLATE_API_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnvString("TRANSLATE_MODEL", "openai/gpt-4o-mini"),
			MaxTokens:   getEnvInt("TRANSLATE_MAX_TOKENS", 512),
			Temperature: getEnvFloat("TRANSLATE_TEMPERATURE", 0.2),
			Timeout:     getEnvInt("TRANSLATE_TIMEOUT", 30),
		},
		Translate: TranslateConfig{
			TargetLanguage:    getEnvLanguage("TARGET_LANGUAGE", language.Chinese),
			SourceLanguage:    getEnvLanguage("SOURCE_LANGUAGE", language.Und),
			TimeOffsetSeconds: getEnvFloat("TIME_OFFSET_SECONDS", 0),
			BatchSize:         getEnvInt("TRANSLATION_BATCH_SIZE", 3),
			RequestDelayMs:    getEnvInt("TRANSLATION_REQUEST_DELAY_MS", 350),
			RescheduleDelayMs: getEnvInt("TRANSLATION_RESCHEDULE_DELAY_MS", 1500),
			Enabled:           getEnvBool("ENABLED", true),
		},
		Resolver: ResolverConfig{
			ScrubberRetryCount:      getEnvInt("SCRUBBER_RETRY_COUNT", 10),
			ScrubberRetryIntervalMs: getEnvInt("SCRUBBER_RETRY_INTERVAL_MS", 1000),
			TimeEpsilon:             getEnvFloat("TIME_EPSILON", 0.05),
		},
		System: SystemConfig{
			HTTPAddr:      getEnvString("CAPSYNC_HTTP_ADDR", ":8972"),
			DBPath:        getEnvString("CAPSYNC_DB_PATH", "/app/data/capsync.db"),
			CacheTTLHours: getEnvInt("CACHE_TTL_HOURS", 720),
			SweepCronExpr: getEnvString("SWEEP_CRON_EXPR", "@every 10m"),
			LogLevel:      getEnvString("LOG_LEVEL", "info"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Backend.APIKey == "" {
		return fmt.Errorf("TRANSLATE_API_KEY is required")
	}
	if c.Translate.BatchSize < 1 {
		return fmt.Errorf("TRANSLATION_BATCH_SIZE must be at least 1")
	}
	if c.Resolver.ScrubberRetryCount < 1 {
		return fmt.Errorf("SCRUBBER_RETRY_COUNT must be at least 1")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvLanguage parses a language tag from environment variables with default
func getEnvLanguage(key string, defaultValue language.Tag) language.Tag {
	if value := os.Getenv(key); value != "" {
		if tag, err := language.Parse(value); err == nil {
			return tag
		}
	}
	return defaultValue
}
