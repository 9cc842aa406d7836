// Package config provides configuration loading and management for the application.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string `json:"port"`

	// Upper bound for one analysis, collectors included
	RequestTimeout time.Duration `json:"request_timeout"`

	// Block explorer (Etherscan v2 multichain API)
	EtherscanURL    string  `json:"etherscan_url"`
	EtherscanAPIKey string  `json:"etherscan_api_key,omitempty"`
	EtherscanRPS    float64 `json:"etherscan_rps"`

	// DEX aggregator
	DexScreenerURL string `json:"dexscreener_url"`

	// Collector fan-out and caching
	MaxConcurrentLookups int           `json:"max_concurrent_lookups"`
	MarketCacheTTL       time.Duration `json:"market_cache_ttl"`
	MaxTokens            int           `json:"max_tokens"`

	// Liquidity at or above this USD amount is reported as locked
	LockHeuristicUSD float64 `json:"lock_heuristic_usd"`

	// Inbound rate limiting
	RateLimitRPS   float64 `json:"rate_limit_rps"`
	RateLimitBurst int     `json:"rate_limit_burst"`

	// Upstream circuit breakers
	BreakerFailureThreshold int           `json:"breaker_failure_threshold"`
	BreakerCooldown         time.Duration `json:"breaker_cooldown"`

	// OpenTelemetry endpoint for observability
	OtelEndpoint string `json:"otel_endpoint"`

	// Sign responses with an ephemeral secp256k1 key
	SigningEnabled bool `json:"signing_enabled"`

	// Optional relay of completed reports
	ReportWebhookURL     string        `json:"report_webhook_url"`
	ReportWebhookAPIKey  string        `json:"report_webhook_api_key,omitempty"`
	ReportExportBatch    int           `json:"report_export_batch"`
	ReportExportInterval time.Duration `json:"report_export_interval"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Port:                    "8080",
		RequestTimeout:          30 * time.Second,
		EtherscanURL:            "https://api.etherscan.io/v2/api",
		EtherscanRPS:            5,
		DexScreenerURL:          "https://api.dexscreener.com/latest/dex/tokens",
		MaxConcurrentLookups:    5,
		MarketCacheTTL:          60 * time.Second,
		MaxTokens:               50,
		LockHeuristicUSD:        100_000,
		RateLimitRPS:            10,
		RateLimitBurst:          20,
		BreakerFailureThreshold: 5,
		BreakerCooldown:         30 * time.Second,
		ReportExportBatch:       50,
		ReportExportInterval:    time.Minute,
	}
}

// Load creates a new Config from an optional .env file, an optional JSON
// file named by CONFIG_FILE, and environment variables, in that order of
// increasing precedence.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("Failed to load .env file: %v", err)
	}

	cfg := Default()
	if path, ok := GetEnv("CONFIG_FILE"); ok && path != "" {
		fileCfg, err := LoadFile(path, cfg)
		if err != nil {
			logrus.Warnf("Ignoring config file: %v", err)
		} else {
			cfg = fileCfg
		}
	}

	return applyEnv(cfg)
}

// LoadFile overlays the JSON file at path onto base. Durations in the file
// use Go duration strings ("30s", "5m").
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file: %w", err)
	}

	overlay := fileConfig{config: base}
	if err := json.Unmarshal(data, &overlay); err != nil {
		return base, fmt.Errorf("failed to parse config file: %w", err)
	}

	logrus.Infof("Loaded configuration from %s", path)
	return overlay.config, nil
}

func applyEnv(cfg Config) Config {
	cfg.Port = GetEnvOrDefault("PORT", cfg.Port)
	cfg.RequestTimeout = GetEnvAsDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.EtherscanURL = GetEnvOrDefault("ETHERSCAN_URL", cfg.EtherscanURL)
	cfg.EtherscanAPIKey = GetEnvOrDefault("ETHERSCAN_API_KEY", cfg.EtherscanAPIKey)
	cfg.EtherscanRPS = GetEnvAsFloat("ETHERSCAN_RPS", cfg.EtherscanRPS)
	cfg.DexScreenerURL = GetEnvOrDefault("DEXSCREENER_URL", cfg.DexScreenerURL)
	cfg.MaxConcurrentLookups = GetEnvAsInt("MAX_CONCURRENT_LOOKUPS", cfg.MaxConcurrentLookups)
	cfg.MarketCacheTTL = GetEnvAsDuration("MARKET_CACHE_TTL", cfg.MarketCacheTTL)
	cfg.MaxTokens = GetEnvAsInt("MAX_TOKENS", cfg.MaxTokens)
	cfg.LockHeuristicUSD = GetEnvAsFloat("LOCK_HEURISTIC_USD", cfg.LockHeuristicUSD)
	cfg.RateLimitRPS = GetEnvAsFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = GetEnvAsInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.BreakerFailureThreshold = GetEnvAsInt("BREAKER_FAILURE_THRESHOLD", cfg.BreakerFailureThreshold)
	cfg.BreakerCooldown = GetEnvAsDuration("BREAKER_COOLDOWN", cfg.BreakerCooldown)
	cfg.OtelEndpoint = GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OtelEndpoint)
	cfg.SigningEnabled = GetEnvAsBool("SIGNING_ENABLED", cfg.SigningEnabled)
	cfg.ReportWebhookURL = GetEnvOrDefault("REPORT_WEBHOOK_URL", cfg.ReportWebhookURL)
	cfg.ReportWebhookAPIKey = GetEnvOrDefault("REPORT_WEBHOOK_API_KEY", cfg.ReportWebhookAPIKey)
	cfg.ReportExportBatch = GetEnvAsInt("REPORT_EXPORT_BATCH", cfg.ReportExportBatch)
	cfg.ReportExportInterval = GetEnvAsDuration("REPORT_EXPORT_INTERVAL", cfg.ReportExportInterval)
	return cfg
}

// fileConfig decodes duration fields from strings on top of an existing Config
type fileConfig struct {
	config Config
}

func (f *fileConfig) UnmarshalJSON(data []byte) error {
	type plain Config
	aux := struct {
		*plain
		RequestTimeout       string `json:"request_timeout"`
		MarketCacheTTL       string `json:"market_cache_ttl"`
		BreakerCooldown      string `json:"breaker_cooldown"`
		ReportExportInterval string `json:"report_export_interval"`
	}{plain: (*plain)(&f.config)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{aux.RequestTimeout, &f.config.RequestTimeout},
		{aux.MarketCacheTTL, &f.config.MarketCacheTTL},
		{aux.BreakerCooldown, &f.config.BreakerCooldown},
		{aux.ReportExportInterval, &f.config.ReportExportInterval},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", d.raw, err)
		}
		*d.dst = parsed
	}
	return nil
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.Warnf("Invalid integer in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		logrus.Warnf("Invalid float in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.Warnf("Invalid duration in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return parsed
		}
		logrus.Warnf("Invalid boolean in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}
