package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string
	LogLevel       string

	// Store selects the persistence backend: "postgres" or "memory".
	Store string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often a pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	Admin AdminConfig

	Redis RedisConfig

	RabbitMQ RabbitMQConfig
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type AdminConfig struct {
	// TokenSecret signs operator bearer tokens (HS256).
	TokenSecret string
	Audience    string

	// AllowedOrigins is the CORS allowlist for the admin screens.
	AllowedOrigins []string
}

// RedisConfig enables the shared booking lock when Addr is set. Without it
// the API serializes requests in process only.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// RabbitMQConfig enables status change notifications when URL is set.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		LogLevel:       env("LOG_LEVEL", "info"),
		Store:          env("STORE", "postgres"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "hotelsync"),
			User:     env("DB_USER", "hotelsync"),
			Password: env("DB_PASSWORD", "hotelsync"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Admin: AdminConfig{
			TokenSecret:    os.Getenv("ADMIN_TOKEN_SECRET"),
			Audience:       env("ADMIN_TOKEN_AUDIENCE", "hotelsync-admin"),
			AllowedOrigins: envList("ADMIN_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
			LockTTL:  envDuration("LOCK_TTL", 10*time.Second),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: env("STATUS_EXCHANGE", "booking.status"),
		},
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
