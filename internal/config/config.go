package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config - структура для хранения конфигурации приложения.
// Пороговые значения ядра неизменяемы после загрузки и передаются
// в сервисы при создании, а не читаются из глобального состояния.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Webhook Config
	WebhookURL        string        `env:"WEBHOOK_URL"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`
	WebhookBaseDelay  time.Duration `env:"WEBHOOK_BASE_DELAY" envDefault:"1s"`

	// Соль для фингерпринта клиента
	FingerprintSalt string `env:"FINGERPRINT_SALT"`

	// Спам-фильтр
	ThrottleWindow     time.Duration `env:"THROTTLE_WINDOW" envDefault:"2m"`
	ThrottleMaxReports int           `env:"THROTTLE_MAX_REPORTS" envDefault:"20"`
	DuplicateWindow    time.Duration `env:"DUPLICATE_WINDOW" envDefault:"15s"`
	DuplicateRadiusM   float64       `env:"DUPLICATE_RADIUS_METERS" envDefault:"25"`

	// Сопоставление инцидентов
	MatchWindow       time.Duration `env:"MATCH_WINDOW" envDefault:"15m"`
	MatchRadiusM      float64       `env:"MATCH_RADIUS_METERS" envDefault:"100"`
	BucketCellSizeDeg float64       `env:"BUCKET_CELL_SIZE_DEG" envDefault:"0.001"`
	CandidateLimit    int           `env:"CANDIDATE_LIMIT" envDefault:"25"`

	// Пороги подтверждения инцидента
	ConfirmReports int `env:"CONFIRM_REPORTS" envDefault:"5"`
	ConfirmUnique  int `env:"CONFIRM_UNIQUE" envDefault:"3"`

	// Повторные попытки при конфликте транзакций
	IngestMaxRetries int `env:"INGEST_MAX_RETRIES" envDefault:"3"`

	// Stats Config
	StatsTimeWindowMinutes int `env:"STATS_TIME_WINDOW_MINUTES" envDefault:"60"`

	// API Keys for authentication
	APIKeys []string `env:"API_KEYS"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		HTTPPort:               getEnv("HTTP_PORT", "8080"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:              os.Getenv("REDIS_PASSWORD"),
		RedisDB:                getEnvAsInt("REDIS_DB", 0),
		WebhookURL:             os.Getenv("WEBHOOK_URL"),
		WebhookSecret:          os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout:         getEnvAsDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMaxRetries:      getEnvAsInt("WEBHOOK_MAX_RETRIES", 3),
		WebhookBaseDelay:       getEnvAsDuration("WEBHOOK_BASE_DELAY", time.Second),
		FingerprintSalt:        os.Getenv("FINGERPRINT_SALT"),
		ThrottleWindow:         getEnvAsDuration("THROTTLE_WINDOW", 2*time.Minute),
		ThrottleMaxReports:     getEnvAsInt("THROTTLE_MAX_REPORTS", 20),
		DuplicateWindow:        getEnvAsDuration("DUPLICATE_WINDOW", 15*time.Second),
		DuplicateRadiusM:       getEnvAsFloat("DUPLICATE_RADIUS_METERS", 25),
		MatchWindow:            getEnvAsDuration("MATCH_WINDOW", 15*time.Minute),
		MatchRadiusM:           getEnvAsFloat("MATCH_RADIUS_METERS", 100),
		BucketCellSizeDeg:      getEnvAsFloat("BUCKET_CELL_SIZE_DEG", 0.001),
		CandidateLimit:         getEnvAsInt("CANDIDATE_LIMIT", 25),
		ConfirmReports:         getEnvAsInt("CONFIRM_REPORTS", 5),
		ConfirmUnique:          getEnvAsInt("CONFIRM_UNIQUE", 3),
		IngestMaxRetries:       getEnvAsInt("INGEST_MAX_RETRIES", 3),
		StatsTimeWindowMinutes: getEnvAsInt("STATS_TIME_WINDOW_MINUTES", 60),
	}

	// Загрузка API ключей
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		cfg.APIKeys = strings.Split(apiKeysStr, ",")
		for i, key := range cfg.APIKeys {
			cfg.APIKeys[i] = strings.TrimSpace(key)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if cfg.BucketCellSizeDeg <= 0 {
		return nil, fmt.Errorf("BUCKET_CELL_SIZE_DEG must be positive")
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat возвращает значение переменной окружения как float64 или значение по умолчанию
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
