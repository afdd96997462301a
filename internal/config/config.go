package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string `toml:"port"`
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`

	// DatabaseURL is a postgres DSN or "sqlite:<path>".
	DatabaseURL string `toml:"database_url"`

	JWTSecret      string `toml:"jwt_secret"`
	JWTExpireHours int    `toml:"jwt_expire_hours"`

	// Timezone decides the day window when a request carries no time or only a date.
	Timezone string `toml:"timezone"`

	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`

	// EncryptionKey is 64 hex chars (AES-256). Meal names are stored in plain text when empty.
	EncryptionKey string `toml:"encryption_key"`

	Redis RedisConfig `toml:"redis"`

	AuthRatePerMinute int `toml:"auth_rate_per_minute"`
	AuthRateBurst     int `toml:"auth_rate_burst"`

	// TrustProxy makes the server take the client IP from X-Forwarded-For / X-Real-IP.
	// Only set it behind a reverse proxy that overwrites those headers.
	TrustProxy bool `toml:"trust_proxy"`
}

type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// Load reads defaults, then the optional TOML file named by CONFIG_FILE, then the environment
// (including a .env file when present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	path := getEnv("CONFIG_FILE", "config.toml")
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	overrideByEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Port:               "8080",
		Env:                "dev",
		LogLevel:           "info",
		DatabaseURL:        "sqlite:icarus.db",
		JWTExpireHours:     72,
		Timezone:           "Local",
		CORSAllowedOrigins: []string{"*"},
		Redis: RedisConfig{
			TTLSeconds: 60,
		},
		AuthRatePerMinute: 10,
		AuthRateBurst:     5,
	}
}

func overrideByEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTExpireHours = getEnvInt("JWT_EXPIRE_HOURS", cfg.JWTExpireHours)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)
	if origins := parseList(os.Getenv("CORS_ALLOWED_ORIGINS")); len(origins) > 0 {
		cfg.CORSAllowedOrigins = origins
	}
	cfg.EncryptionKey = getEnv("ENCRYPTION_KEY", cfg.EncryptionKey)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.TTLSeconds = getEnvInt("REDIS_TTL_SECONDS", cfg.Redis.TTLSeconds)

	cfg.AuthRatePerMinute = getEnvInt("AUTH_RATE_PER_MINUTE", cfg.AuthRatePerMinute)
	cfg.AuthRateBurst = getEnvInt("AUTH_RATE_BURST", cfg.AuthRateBurst)
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", cfg.TrustProxy)
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves Timezone; "" and "Local" mean the server's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTExpireHours) * time.Hour
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// parseList splits a comma-separated list and trims spaces. Empty items are dropped.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
