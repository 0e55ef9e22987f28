package config

import (
	"fmt"
	"time"
)

const DefaultPort = "3000"

type Config struct {
	// Server
	Host string
	Port string

	// Record store
	DBDriver string
	DBDSN    string

	// Redis, optional. Empty RedisAddr disables the analytics cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AnalyticsCacheTTL time.Duration
	Timezone          string

	EnableMetrics bool
	// Basic auth for /metrics, disabled when MetricsUser is empty.
	MetricsUser     string
	MetricsPassword string

	// Realtime channel keepalive
	PingInterval time.Duration
	PongTimeout  time.Duration
	WriteTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Host: GetEnv("APP_HOST", ""),
		Port: GetEnv("PORT", DefaultPort),

		DBDriver: GetEnv("DB_DRIVER", "sqlite3"),
		DBDSN:    GetEnv("DB_DSN", "queue.db"),

		RedisAddr:     GetEnv("REDIS_ADDR", ""),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		AnalyticsCacheTTL: getEnvAsDuration("ANALYTICS_CACHE_TTL", 30*time.Second),
		Timezone:          GetEnv("TIMEZONE", "Local"),

		EnableMetrics:   getEnvAsBool("ENABLE_METRICS", true),
		MetricsUser:     GetEnv("METRICS_USER", ""),
		MetricsPassword: GetEnv("METRICS_PASS", ""),

		PingInterval: getEnvAsDuration("WS_PING_INTERVAL", 20*time.Second),
		PongTimeout:  getEnvAsDuration("WS_PONG_TIMEOUT", 60*time.Second),
		WriteTimeout: getEnvAsDuration("WS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Location resolves the analytics time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
