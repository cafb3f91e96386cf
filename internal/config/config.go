package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime parameters, loaded from environment variables.
type Config struct {
	Port    string
	Env     string
	LogFile string

	DB        DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	Fipe      FipeConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the connection string understood by lib/pq and pgx.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr is host:port.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	Backend    string // memory | redis
	DefaultTTL time.Duration
}

// AdminConfig protects the pipeline endpoints.
type AdminConfig struct {
	JWTSecret string
}

// RateLimitConfig is the per-IP limit on public endpoints.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// FipeConfig tunes the import and normalization pipeline.
type FipeConfig struct {
	LatestMonthTTL     time.Duration
	ImportBatchSize    int
	NormalizeBatchSize int
	NormalizeWorkers   int
	NormalizeInterval  time.Duration
	SessionTTL         time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		Env:     getEnv("APP_ENV", "development"),
		LogFile: getEnv("LOG_FILE", ""),
	}

	cfg.DB = DatabaseConfig{
		Host:     getEnv("PG_HOST", "localhost"),
		Port:     getEnv("PG_PORT", "5432"),
		User:     getEnv("PG_USER", ""),
		Password: getEnv("PG_PASSWORD", ""),
		Name:     getEnv("PG_DB", ""),
		SSLMode:  getEnv("PG_SSLMODE", "disable"),
	}

	var err error
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
	}
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	cfg.Cache.Backend = getEnv("CACHE_BACKEND", "memory")
	if cfg.Cache.Backend != "memory" && cfg.Cache.Backend != "redis" {
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: want memory or redis", cfg.Cache.Backend)
	}
	if cfg.Cache.DefaultTTL, err = parseDurationEnv("CACHE_TTL", "5m"); err != nil {
		return nil, err
	}

	cfg.Admin.JWTSecret = getEnv("ADMIN_JWT_SECRET", "")

	if cfg.RateLimit.RPS, err = getEnvFloat("RATE_LIMIT_RPS", 10); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Burst, err = getEnvInt("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}

	if cfg.Fipe.LatestMonthTTL, err = parseDurationEnv("FIPE_LATEST_MONTH_TTL", "5m"); err != nil {
		return nil, err
	}
	if cfg.Fipe.ImportBatchSize, err = getEnvInt("FIPE_IMPORT_BATCH_SIZE", 500); err != nil {
		return nil, err
	}
	if cfg.Fipe.NormalizeBatchSize, err = getEnvInt("FIPE_NORMALIZE_BATCH_SIZE", 500); err != nil {
		return nil, err
	}
	if cfg.Fipe.NormalizeWorkers, err = getEnvInt("FIPE_NORMALIZE_WORKERS", 1); err != nil {
		return nil, err
	}
	if cfg.Fipe.NormalizeInterval, err = parseDurationEnv("FIPE_NORMALIZE_INTERVAL", "0"); err != nil {
		return nil, err
	}
	if cfg.Fipe.SessionTTL, err = parseDurationEnv("FIPE_SESSION_TTL", "30m"); err != nil {
		return nil, err
	}

	if cfg.Fipe.ImportBatchSize <= 0 || cfg.Fipe.NormalizeBatchSize <= 0 || cfg.Fipe.NormalizeWorkers <= 0 {
		return nil, errors.New("FIPE_IMPORT_BATCH_SIZE, FIPE_NORMALIZE_BATCH_SIZE and FIPE_NORMALIZE_WORKERS must be positive")
	}

	return cfg, nil
}

// ValidateDB reports whether enough is set to open a database connection.
func (c *Config) ValidateDB() error {
	if c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "" {
		return errors.New("database configuration incomplete: ensure PG_HOST, PG_USER, and PG_DB are set")
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func parseDurationEnv(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
