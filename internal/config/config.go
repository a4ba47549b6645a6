package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Preference store backends.
const (
	PreferencePostgres = "postgres"
	PreferenceRedis    = "redis"
	PreferenceMemory   = "memory"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Backend struct {
		BaseURL   string
		Timeout   time.Duration
		RateLimit int
	}
	Alerts struct {
		InventoryInterval time.Duration
		OrderInterval     time.Duration
	}
	API struct {
		Port        string
		BasePath    string
		CORSOrigins []string
	}
	Preferences struct {
		Backend string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	Telegram struct {
		BotToken  string
		ChatID    int64
		RateLimit int
	}
	Notification struct {
		MaxVisible int
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads .env (if present) and the environment, applies defaults, and validates.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	var cfg Config

	// Back-office API
	cfg.Backend.BaseURL = strings.TrimRight(os.Getenv("BACKEND_BASE_URL"), "/")
	cfg.Backend.Timeout = time.Duration(envInt("BACKEND_TIMEOUT_SECONDS", 10)) * time.Second
	cfg.Backend.RateLimit = envInt("BACKEND_RATE_LIMIT", 20)

	// Poll cadence
	cfg.Alerts.InventoryInterval = time.Duration(envInt("INVENTORY_POLL_SECONDS", 30)) * time.Second
	cfg.Alerts.OrderInterval = time.Duration(envInt("ORDER_POLL_SECONDS", 30)) * time.Second

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")
	cfg.API.CORSOrigins = envList("CORS_ALLOW_ORIGINS", []string{
		"http://localhost:3000",
		"http://localhost:5173",
	})

	// Storage
	cfg.DB.DSN = os.Getenv("DB_DSN")
	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Preferences.Backend = strings.ToLower(os.Getenv("PREFERENCE_BACKEND"))

	// Kafka event feed
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// Telegram forwarding
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}
	cfg.Telegram.RateLimit = envInt("TELEGRAM_RATE_LIMIT", 1)

	cfg.Notification.MaxVisible = envInt("NOTIFICATION_MAX_VISIBLE", 200)

	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.Backend.BaseURL == "" {
		missing = append(missing, "BACKEND_BASE_URL")
	}
	if cfg.Preferences.Backend == PreferencePostgres && cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Preferences.Backend == "" {
		cfg.Preferences.Backend = PreferenceMemory
		if cfg.DB.DSN != "" {
			cfg.Preferences.Backend = PreferencePostgres
		}
	}
	switch cfg.Preferences.Backend {
	case PreferencePostgres, PreferenceRedis, PreferenceMemory:
	default:
		return Config{}, fmt.Errorf("unsupported PREFERENCE_BACKEND %q", cfg.Preferences.Backend)
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "backoffice-events"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "backoffice-alerts"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}

// TelegramEnabled reports whether danger notifications should be forwarded.
func (c Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != 0
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
