package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPListenAddr string
	DatabaseURL    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	WhatsAppAPIURL        string
	WhatsAppAccountID     string
	WhatsAppSendSecret    string
	WhatsAppWebhookSecret string
	WhatsAppTimeout       time.Duration

	BrainsBaseURL string
	BrainsAPIKey  string
	BrainsTimeout time.Duration

	AnthropicAPIKey    string
	AnthropicAPIURL    string
	AnthropicModel     string
	AnthropicMaxTokens int
	AnthropicTimeout   time.Duration

	StoreName      string
	StoreLocation  string
	StoreLatitude  float64
	StoreLongitude float64
	Currency       string
	CountryPrefix  string

	ContextWindow    int
	MetricsNamespace string
}

// Load returns configuration populated from environment variables with fallbacks.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:                getenvDefault("APP_ENV", "development"),
		LogLevel:              getenvDefault("LOG_LEVEL", "info"),
		HTTPListenAddr:        getenvDefault("HTTP_LISTEN_ADDR", ":8080"),
		DatabaseURL:           trimmedEnv("DATABASE_URL"),
		RedisAddr:             getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         trimmedEnv("REDIS_PASSWORD"),
		WhatsAppAPIURL:        getenvDefault("WHATSAPP_API_URL", "https://api.proxsms.com/message/send"),
		WhatsAppAccountID:     trimmedEnv("WHATSAPP_ACCOUNT_ID"),
		WhatsAppSendSecret:    trimmedEnv("WHATSAPP_SEND_SECRET"),
		WhatsAppWebhookSecret: trimmedEnv("WEBHOOK_SECRET"),
		BrainsBaseURL:         getenvDefault("BRAINS_API_BASE", "http://194.126.6.162:1980/Api"),
		BrainsAPIKey:          trimmedEnv("BRAINS_API_KEY"),
		AnthropicAPIKey:       trimmedEnv("ANTHROPIC_API_KEY"),
		AnthropicAPIURL:       getenvDefault("ANTHROPIC_API_URL", "https://api.anthropic.com/v1/messages"),
		AnthropicModel:        getenvDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		StoreName:             getenvDefault("STORE_NAME", "Librarie Memoires"),
		StoreLocation:         getenvDefault("STORE_LOCATION", "Tripoli, Lebanon"),
		Currency:              getenvDefault("CURRENCY", "LBP"),
		CountryPrefix:         getenvDefault("COUNTRY_PREFIX", "+961"),
		MetricsNamespace:      getenvDefault("METRICS_NAMESPACE", "whatsapp_bot"),
	}

	var err error
	if cfg.WhatsAppTimeout, err = parseDurationEnv("WHATSAPP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.BrainsTimeout, err = parseDurationEnv("BRAINS_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.AnthropicTimeout, err = parseDurationEnv("ANTHROPIC_TIMEOUT", "30s"); err != nil {
		return nil, err
	}

	if cfg.AnthropicMaxTokens, err = parseIntEnv("ANTHROPIC_MAX_TOKENS", 1024); err != nil {
		return nil, err
	}
	if cfg.ContextWindow, err = parseIntEnv("CONTEXT_WINDOW", 5); err != nil {
		return nil, err
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 5
	}
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	cfg.RedisTLS = strings.EqualFold(getenvDefault("REDIS_TLS", "false"), "true")

	if cfg.StoreLatitude, err = parseFloatEnv("STORE_LATITUDE", 34.4369); err != nil {
		return nil, err
	}
	if cfg.StoreLongitude, err = parseFloatEnv("STORE_LONGITUDE", 35.8335); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if cfg.WhatsAppAccountID == "" || cfg.WhatsAppSendSecret == "" {
		return nil, fmt.Errorf("WHATSAPP_ACCOUNT_ID and WHATSAPP_SEND_SECRET are required")
	}

	cfg.BrainsBaseURL = strings.TrimRight(cfg.BrainsBaseURL, "/")

	return cfg, nil
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	raw := getenvDefault(key, fallback)
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return dur, nil
}

func parseIntEnv(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return val, nil
}

func parseFloatEnv(key string, fallback float64) (float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return val, nil
}

func getenvDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func trimmedEnv(key string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return ""
}
