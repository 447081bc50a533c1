// Package config содержит загрузку и валидацию конфигурации.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config представляет конфигурацию приложения
type Config struct {
	// Database
	DatabaseURL   string
	DatabaseDebug bool

	// Redis
	RedisURL  string
	LedgerTTL time.Duration

	// Logging
	LogLevel string
	LogPath  string

	// HTTP Client
	HTTPClientConfig HTTPClientConfig

	// Retry
	RetryConfig RetryConfig

	// Scraper
	ScraperConfig ScraperConfig

	// Batch
	ListingsStartPath string
	HarvestCron       string
	Timezone          string

	// Health
	HealthPort         string
	HealthCheckEnabled bool

	// Geocoder
	GeocoderConfig GeocoderConfig

	// Telegram
	TelegramBotToken string
	TelegramChatID   int64
}

// HTTPClientConfig представляет конфигурацию HTTP клиента
type HTTPClientConfig struct {
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	DisableKeepAlives     bool
}

// RetryConfig представляет конфигурацию повторов целого вызова сбора
type RetryConfig struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// ScraperConfig представляет конфигурацию скрейпера
type ScraperConfig struct {
	Backend         string
	BaseURL         string
	Locale          string
	ProfileFile     string
	Timeout         time.Duration
	MinDelay        time.Duration
	MaxDelay        time.Duration
	EmptyPageBudget int
}

// GeocoderConfig представляет конфигурацию геокодера
type GeocoderConfig struct {
	Enabled   bool
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:   getEnv("DB_DSN", ""),
		DatabaseDebug: getEnvBool("DB_DEBUG", false),
		RedisURL:      getEnv("REDIS_URL", ""),
		LedgerTTL:     getEnvDuration("LEDGER_TTL", 30*24*time.Hour),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       getEnv("LOG_PATH", "logs/restoharvest.log"),
		HTTPClientConfig: HTTPClientConfig{
			MaxIdleConns:          getEnvInt("HTTP_MAX_IDLE_CONNS", 100),
			MaxIdleConnsPerHost:   getEnvInt("HTTP_MAX_IDLE_CONNS_PER_HOST", 10),
			IdleConnTimeout:       getEnvDuration("HTTP_IDLE_CONN_TIMEOUT", 90*time.Second),
			TLSHandshakeTimeout:   getEnvDuration("HTTP_TLS_HANDSHAKE_TIMEOUT", 10*time.Second),
			ResponseHeaderTimeout: getEnvDuration("HTTP_RESPONSE_HEADER_TIMEOUT", 30*time.Second),
			DisableKeepAlives:     getEnvBool("HTTP_DISABLE_KEEP_ALIVES", false),
		},
		RetryConfig: RetryConfig{
			MaxRetries:        getEnvInt("RETRY_MAX_RETRIES", 2),
			InitialDelay:      getEnvDuration("RETRY_INITIAL_DELAY", 5*time.Second),
			MaxDelay:          getEnvDuration("RETRY_MAX_DELAY", time.Minute),
			BackoffMultiplier: getEnvFloat("RETRY_BACKOFF_MULTIPLIER", 2.0),
		},
		ScraperConfig: ScraperConfig{
			Backend:         getEnv("SCRAPER_BACKEND", "http"),
			BaseURL:         getEnv("SCRAPER_BASE_URL", ""),
			Locale:          getEnv("SCRAPER_LOCALE", "fr"),
			ProfileFile:     getEnv("SCRAPER_PROFILE_FILE", ""),
			Timeout:         getEnvDuration("SCRAPER_TIMEOUT", 30*time.Second),
			MinDelay:        getEnvDuration("SCRAPER_MIN_DELAY", time.Second),
			MaxDelay:        getEnvDuration("SCRAPER_MAX_DELAY", 3*time.Second),
			EmptyPageBudget: getEnvInt("SCRAPER_EMPTY_PAGE_BUDGET", 10),
		},
		ListingsStartPath: getEnv("LISTINGS_START_PATH",
			"/FindRestaurants?geo=187265&offset=0&establishmentTypes=10591&minimumTravelerRating=TRAVELER_RATING_LOW&broadened=false"),
		HarvestCron:        getEnv("HARVEST_CRON", "0 3 * * 1"),
		Timezone:           getEnv("TIMEZONE", "Europe/Paris"),
		HealthPort:         getEnv("HEALTH_PORT", "8080"),
		HealthCheckEnabled: getEnvBool("HEALTH_CHECK_ENABLED", true),
		GeocoderConfig: GeocoderConfig{
			Enabled:   getEnvBool("GEOCODER_ENABLED", false),
			BaseURL:   getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent: getEnv("GEOCODER_USER_AGENT", "restoharvest/1.0"),
			Timeout:   getEnvDuration("GEOCODER_TIMEOUT", 10*time.Second),
		},
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnvInt64("TELEGRAM_CHAT_ID", 0),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate проверяет конфигурацию.
// DB_DSN не обязателен: команды listings и reviews работают без базы.
func (c *Config) Validate() error {
	switch c.ScraperConfig.Backend {
	case "http", "colly":
	default:
		return fmt.Errorf("SCRAPER_BACKEND must be http or colly, got %q", c.ScraperConfig.Backend)
	}

	if c.ScraperConfig.Locale == "" {
		return fmt.Errorf("SCRAPER_LOCALE is required")
	}

	if c.ScraperConfig.MinDelay < 0 || c.ScraperConfig.MaxDelay < c.ScraperConfig.MinDelay {
		return fmt.Errorf("SCRAPER_MIN_DELAY must be non-negative and not greater than SCRAPER_MAX_DELAY")
	}

	if c.ScraperConfig.EmptyPageBudget <= 0 {
		return fmt.Errorf("SCRAPER_EMPTY_PAGE_BUDGET must be positive")
	}

	if c.RetryConfig.MaxRetries < 0 {
		return fmt.Errorf("RETRY_MAX_RETRIES must be non-negative")
	}

	if c.RetryConfig.BackoffMultiplier < 1 {
		return fmt.Errorf("RETRY_BACKOFF_MULTIPLIER must be at least 1")
	}

	if c.HealthCheckEnabled {
		if port, err := strconv.Atoi(c.HealthPort); err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("HEALTH_PORT must be a valid port, got %q", c.HealthPort)
		}
	}

	if !strings.HasPrefix(c.ListingsStartPath, "/") {
		return fmt.Errorf("LISTINGS_START_PATH must be a path starting with /")
	}

	if (c.TelegramBotToken == "") != (c.TelegramChatID == 0) {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	return nil
}

// RequireDatabase проверяет наличие DB_DSN для команд, которые пишут в базу
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	return nil
}

// NotificationsEnabled сообщает, настроены ли уведомления в Telegram
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 получает переменную окружения как int64
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как time.Duration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvBool получает переменную окружения как bool
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
