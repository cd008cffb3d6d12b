package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Port                   string `yaml:"port"`
	AllowedOrigin          string `yaml:"allowed_origin"`
	AuthSecret             string `yaml:"auth_secret"`
	AccessTokenTTLMinutes  int    `yaml:"access_token_ttl_minutes"`
	StorageBackend         string `yaml:"storage_backend"`
	StorageKey             string `yaml:"storage_key"`
	SQLitePath             string `yaml:"sqlite_path"`
	DatabaseURL            string `yaml:"database_url"`
	RedisAddr              string `yaml:"redis_addr"`
	RedisPassword          string `yaml:"redis_password"`
	RedisDB                int    `yaml:"redis_db"`
	GenAIAPIKey            string `yaml:"genai_api_key"`
	GenAIModel             string `yaml:"genai_model"`
	InsightTimeoutSeconds  int    `yaml:"insight_timeout_seconds"`
	InsightCacheTTLSeconds int    `yaml:"insight_cache_ttl_seconds"`
	LogLevel               string `yaml:"log_level"`
}

func defaults(backend string) Config {
	return Config{
		Port:                   "8080",
		AllowedOrigin:          "http://127.0.0.1:3000",
		AccessTokenTTLMinutes:  480,
		StorageBackend:         backend,
		StorageKey:             "nexus_erp_data_v2",
		SQLitePath:             "nexus_erp.db",
		InsightTimeoutSeconds:  20,
		InsightCacheTTLSeconds: 600,
		LogLevel:               "info",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// ERP_CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	return LoadWithBackend(BackendMemory)
}

// LoadWithBackend is Load with a different storage backend used when neither
// the file nor STORAGE_BACKEND picks one.
func LoadWithBackend(backend string) (Config, error) {
	cfg := defaults(backend)

	if path := strings.TrimSpace(os.Getenv("ERP_CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.AllowedOrigin = getEnv("ALLOWED_ORIGIN", cfg.AllowedOrigin)
	cfg.AuthSecret = strings.TrimSpace(getEnv("AUTH_SECRET", cfg.AuthSecret))
	cfg.AccessTokenTTLMinutes = getEnvInt("ACCESS_TOKEN_TTL_MINUTES", cfg.AccessTokenTTLMinutes)
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(getEnv("STORAGE_BACKEND", cfg.StorageBackend)))
	cfg.StorageKey = getEnv("STORAGE_KEY", cfg.StorageKey)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.GenAIAPIKey = strings.TrimSpace(getEnv("GENAI_API_KEY", cfg.GenAIAPIKey))
	cfg.GenAIModel = getEnv("GENAI_MODEL", cfg.GenAIModel)
	cfg.InsightTimeoutSeconds = getEnvInt("INSIGHT_TIMEOUT_SECONDS", cfg.InsightTimeoutSeconds)
	cfg.InsightCacheTTLSeconds = getEnvInt("INSIGHT_CACHE_TTL_SECONDS", cfg.InsightCacheTTLSeconds)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))

	fallback := defaults(backend)
	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = fallback.AccessTokenTTLMinutes
	}
	if cfg.InsightTimeoutSeconds < 1 {
		cfg.InsightTimeoutSeconds = fallback.InsightTimeoutSeconds
	}
	if cfg.InsightCacheTTLSeconds < 1 {
		cfg.InsightCacheTTLSeconds = fallback.InsightCacheTTLSeconds
	}
	if strings.TrimSpace(cfg.StorageKey) == "" {
		cfg.StorageKey = fallback.StorageKey
	}

	switch cfg.StorageBackend {
	case BackendMemory, BackendSQLite, BackendPostgres, BackendRedis:
	default:
		return Config{}, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) InsightTimeout() time.Duration {
	return time.Duration(c.InsightTimeoutSeconds) * time.Second
}

func (c Config) InsightCacheTTL() time.Duration {
	return time.Duration(c.InsightCacheTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

var ErrMissingDSN = errors.New("storage backend requires a connection setting")

// Validate checks that the selected backend has what it needs to connect.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("%w: DATABASE_URL", ErrMissingDSN)
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("%w: REDIS_ADDR", ErrMissingDSN)
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: SQLITE_PATH", ErrMissingDSN)
		}
	}
	return nil
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return val
}
