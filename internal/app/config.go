package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries everything the tokengate binary needs. Values resolve in
// layers: built-in defaults, then the YAML file named by TOKENGATE_CONFIG,
// then individual environment variables on top.
type Config struct {
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`

	PublicAccessKID string `yaml:"public_access_kid"`
	LocalAccessKID  string `yaml:"local_access_kid"`
	LocalRefreshKID string `yaml:"local_refresh_kid"`

	// Key material, base64. Inline values win over file paths so secrets
	// can come from the environment without touching disk.
	AccessPublicKey      string `yaml:"access_public_key"`
	AccessPublicKeyFile  string `yaml:"access_public_key_file"`
	AccessSecretKey      string `yaml:"access_secret_key"`
	AccessSecretKeyFile  string `yaml:"access_secret_key_file"`
	RefreshSecretKey     string `yaml:"refresh_secret_key"`
	RefreshSecretKeyFile string `yaml:"refresh_secret_key_file"`

	ClockSkew         time.Duration `yaml:"clock_skew"`
	MaxClaimsBytes    int           `yaml:"max_claims_bytes"`
	MinTokenLength    int           `yaml:"min_token_length"`
	MaxTokenLength    int           `yaml:"max_token_length"`
	ValidationPermits int64         `yaml:"validation_permits"`
	ClaimsPermits     int64         `yaml:"claims_permits"`
	MaxTokenLifetime  time.Duration `yaml:"max_token_lifetime"`

	// Backend selects the revocation store: memory, redis or sqlite.
	Backend        string `yaml:"backend"`
	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        int    `yaml:"redis_db"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`
	DatabaseFile   string `yaml:"database_file"`

	// SubjectsFile points at a YAML roster backing the subject directory.
	SubjectsFile string `yaml:"subjects_file"`

	SweepInterval time.Duration `yaml:"sweep_interval"`

	Env       string `yaml:"env"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// LoadConfig resolves the layered configuration. The YAML file is optional;
// a missing TOKENGATE_CONFIG just means defaults plus environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		Backend:       "memory",
		DatabaseFile:  "tokengate.db",
		SweepInterval: time.Hour,
		Env:           "dev",
		LogLevel:      "info",
		LogFormat:     "json",
	}

	if path := os.Getenv("TOKENGATE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Issuer = getEnvOrDefault("TOKENGATE_ISSUER", cfg.Issuer)
	cfg.Audience = getEnvOrDefault("TOKENGATE_AUDIENCE", cfg.Audience)

	cfg.PublicAccessKID = getEnvOrDefault("TOKENGATE_PUBLIC_ACCESS_KID", cfg.PublicAccessKID)
	cfg.LocalAccessKID = getEnvOrDefault("TOKENGATE_LOCAL_ACCESS_KID", cfg.LocalAccessKID)
	cfg.LocalRefreshKID = getEnvOrDefault("TOKENGATE_LOCAL_REFRESH_KID", cfg.LocalRefreshKID)

	cfg.AccessPublicKey = getEnvOrDefault("TOKENGATE_ACCESS_PUBLIC_KEY", cfg.AccessPublicKey)
	cfg.AccessPublicKeyFile = getEnvOrDefault("TOKENGATE_ACCESS_PUBLIC_KEY_FILE", cfg.AccessPublicKeyFile)
	cfg.AccessSecretKey = getEnvOrDefault("TOKENGATE_ACCESS_SECRET_KEY", cfg.AccessSecretKey)
	cfg.AccessSecretKeyFile = getEnvOrDefault("TOKENGATE_ACCESS_SECRET_KEY_FILE", cfg.AccessSecretKeyFile)
	cfg.RefreshSecretKey = getEnvOrDefault("TOKENGATE_REFRESH_SECRET_KEY", cfg.RefreshSecretKey)
	cfg.RefreshSecretKeyFile = getEnvOrDefault("TOKENGATE_REFRESH_SECRET_KEY_FILE", cfg.RefreshSecretKeyFile)

	cfg.ClockSkew = getEnvDurationOrDefault("TOKENGATE_CLOCK_SKEW", cfg.ClockSkew)
	cfg.MaxClaimsBytes = getEnvIntOrDefault("TOKENGATE_MAX_CLAIMS_BYTES", cfg.MaxClaimsBytes)
	cfg.MinTokenLength = getEnvIntOrDefault("TOKENGATE_MIN_TOKEN_LENGTH", cfg.MinTokenLength)
	cfg.MaxTokenLength = getEnvIntOrDefault("TOKENGATE_MAX_TOKEN_LENGTH", cfg.MaxTokenLength)
	cfg.ValidationPermits = int64(getEnvIntOrDefault("TOKENGATE_VALIDATION_PERMITS", int(cfg.ValidationPermits)))
	cfg.ClaimsPermits = int64(getEnvIntOrDefault("TOKENGATE_CLAIMS_PERMITS", int(cfg.ClaimsPermits)))
	cfg.MaxTokenLifetime = getEnvDurationOrDefault("TOKENGATE_MAX_TOKEN_LIFETIME", cfg.MaxTokenLifetime)

	cfg.Backend = getEnvOrDefault("TOKENGATE_BACKEND", cfg.Backend)
	cfg.RedisAddr = getEnvOrDefault("TOKENGATE_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnvOrDefault("TOKENGATE_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvIntOrDefault("TOKENGATE_REDIS_DB", cfg.RedisDB)
	cfg.RedisKeyPrefix = getEnvOrDefault("TOKENGATE_REDIS_KEY_PREFIX", cfg.RedisKeyPrefix)
	cfg.DatabaseFile = getEnvOrDefault("TOKENGATE_DATABASE_FILE", cfg.DatabaseFile)

	cfg.SubjectsFile = getEnvOrDefault("TOKENGATE_SUBJECTS_FILE", cfg.SubjectsFile)
	cfg.SweepInterval = getEnvDurationOrDefault("TOKENGATE_SWEEP_INTERVAL", cfg.SweepInterval)

	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	// Bare integers read as seconds.
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
