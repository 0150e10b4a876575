package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Store              string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	ServerAddr         string
	LogLevel           slog.Level
	RateLimitPerMinute int
	JobTimeout         time.Duration
}

// Load reads configuration from the environment, after merging a .env file
// from the working directory if one exists. Variables already set in the
// environment win over .env. Missing or malformed required values panic.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Store:              strings.ToLower(envOrDefault("STORE", StorePostgres)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           envOrDefault("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		ServerAddr:         envOrDefault("SERVER_ADDR", ":8080"),
		LogLevel:           parseLogLevel(os.Getenv("LOG_LEVEL")),
		RateLimitPerMinute: 120,
		JobTimeout:         30 * time.Second,
	}

	var problems []string
	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		problems = append(problems, fmt.Sprintf("STORE must be %q or %q", StorePostgres, StoreMemory))
	}
	if cfg.Store == StorePostgres && cfg.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET not set")
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			problems = append(problems, "RATE_LIMIT_PER_MINUTE must be a positive integer")
		} else {
			cfg.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("JOB_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			problems = append(problems, "JOB_TIMEOUT must be a positive duration")
		} else {
			cfg.JobTimeout = d
		}
	}
	if len(problems) > 0 {
		panic(fmt.Sprintf("invalid configuration: %s", strings.Join(problems, "; ")))
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
