package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable keys recognized by the loader.
const (
	EnvConfigPath          = "CONFIG_PATH"
	EnvDBConnection        = "DB_CONNECTION"
	EnvJWTSecret           = "JWT_SECRET"
	EnvJWTExpiry           = "JWT_EXPIRY"
	EnvStripeSecretKey     = "STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret = "STRIPE_WEBHOOK_SECRET"
	EnvStripePremiumPrice  = "STRIPE_PRICE_ID_PREMIUM"
	EnvOpenAIAPIKey        = "OPENAI_API_KEY"
	EnvAdminUsername       = "ADMIN_USERNAME"
	EnvAdminPassword       = "ADMIN_PASSWORD"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// StripeConfig holds billing provider settings.
type StripeConfig struct {
	SecretKey      string `yaml:"secret-key"`
	WebhookSecret  string `yaml:"webhook-secret"`
	PriceIDPremium string `yaml:"price-id-premium"`
	AppBaseURL     string `yaml:"app-base-url"`
}

// LLMConfig holds model inference settings.
type LLMConfig struct {
	APIKey  string        `yaml:"api-key"`
	BaseURL string        `yaml:"base-url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// UploadConfig holds attachment storage settings.
type UploadConfig struct {
	Backend      string `yaml:"backend"` // local or s3
	Dir          string `yaml:"dir"`
	MaxSizeBytes int64  `yaml:"max-size-bytes"`

	S3Endpoint  string `yaml:"s3-endpoint"`
	S3Region    string `yaml:"s3-region"`
	S3Bucket    string `yaml:"s3-bucket"`
	S3AccessKey string `yaml:"s3-access-key"`
	S3SecretKey string `yaml:"s3-secret-key"`
}

// RateLimitConfig holds request rate limiting settings.
type RateLimitConfig struct {
	PerSecond     int    `yaml:"per-second"` // 0 disables limiting
	RedisEnabled  bool   `yaml:"redis-enabled"`
	RedisAddr     string `yaml:"redis-addr"`
	RedisPassword string `yaml:"redis-password"`
	RedisDB       int    `yaml:"redis-db"`
	RedisPrefix   string `yaml:"redis-prefix"`
}

// FeatureConfig holds feature flags.
type FeatureConfig struct {
	Roster bool `yaml:"roster"`
}

// fileConfig maps the full YAML config file.
type fileConfig struct {
	DatabaseDSN string `yaml:"database-dsn"`
	Database    struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Stripe    StripeConfig    `yaml:"stripe"`
	LLM       LLMConfig       `yaml:"llm"`
	Uploads   UploadConfig    `yaml:"uploads"`
	RateLimit RateLimitConfig `yaml:"rate-limit"`
	Features  FeatureConfig   `yaml:"features"`
}

// LoadDatabaseDSN reads the database DSN from the environment or config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	cfg, errRead := readFile(configPath)
	if errRead != nil {
		return "", errRead
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the config file with env overrides.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	result := JWTConfig{Expiry: defaultJWTExpiry}

	if cfg, errRead := readFile(configPath); errRead == nil {
		result = cfg.JWT
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// LoadStripeConfig loads billing settings from the config file with env overrides.
func LoadStripeConfig(configPath string) (StripeConfig, error) {
	var result StripeConfig
	if cfg, errRead := readFile(configPath); errRead == nil {
		result = cfg.Stripe
	}

	if key := strings.TrimSpace(os.Getenv(EnvStripeSecretKey)); key != "" {
		result.SecretKey = key
	}
	if secret := strings.TrimSpace(os.Getenv(EnvStripeWebhookSecret)); secret != "" {
		result.WebhookSecret = secret
	}
	if price := strings.TrimSpace(os.Getenv(EnvStripePremiumPrice)); price != "" {
		result.PriceIDPremium = price
	}
	if result.AppBaseURL == "" {
		result.AppBaseURL = "http://localhost:8318"
	}
	return result, nil
}

// defaultLLMTimeout bounds a single inference call.
const defaultLLMTimeout = 60 * time.Second

// LoadLLMConfig loads inference settings from the config file with env overrides.
func LoadLLMConfig(configPath string) (LLMConfig, error) {
	result := LLMConfig{Model: "gpt-4o-mini", Timeout: defaultLLMTimeout}
	if cfg, errRead := readFile(configPath); errRead == nil {
		if cfg.LLM.APIKey != "" {
			result.APIKey = cfg.LLM.APIKey
		}
		if cfg.LLM.BaseURL != "" {
			result.BaseURL = cfg.LLM.BaseURL
		}
		if cfg.LLM.Model != "" {
			result.Model = cfg.LLM.Model
		}
		if cfg.LLM.Timeout > 0 {
			result.Timeout = cfg.LLM.Timeout
		}
	}
	if key := strings.TrimSpace(os.Getenv(EnvOpenAIAPIKey)); key != "" {
		result.APIKey = key
	}
	return result, nil
}

// defaultUploadMaxBytes caps attachment size at 10 MiB.
const defaultUploadMaxBytes = 10 << 20

// LoadUploadConfig loads attachment storage settings from the config file.
func LoadUploadConfig(configPath string) (UploadConfig, error) {
	result := UploadConfig{
		Backend:      "local",
		Dir:          "uploads/chat_images",
		MaxSizeBytes: defaultUploadMaxBytes,
	}
	cfg, errRead := readFile(configPath)
	if errRead != nil {
		return result, nil
	}
	if backend := strings.TrimSpace(cfg.Uploads.Backend); backend != "" {
		result.Backend = backend
	}
	if dir := strings.TrimSpace(cfg.Uploads.Dir); dir != "" {
		result.Dir = dir
	}
	if cfg.Uploads.MaxSizeBytes > 0 {
		result.MaxSizeBytes = cfg.Uploads.MaxSizeBytes
	}
	result.S3Endpoint = cfg.Uploads.S3Endpoint
	result.S3Region = cfg.Uploads.S3Region
	result.S3Bucket = cfg.Uploads.S3Bucket
	result.S3AccessKey = cfg.Uploads.S3AccessKey
	result.S3SecretKey = cfg.Uploads.S3SecretKey
	return result, nil
}

// LoadRateLimitConfig loads rate limiter settings from the config file.
func LoadRateLimitConfig(configPath string) (RateLimitConfig, error) {
	result := RateLimitConfig{RedisPrefix: "edchat:rl"}
	if cfg, errRead := readFile(configPath); errRead == nil {
		result = cfg.RateLimit
		if strings.TrimSpace(result.RedisPrefix) == "" {
			result.RedisPrefix = "edchat:rl"
		}
	}
	return result, nil
}

// LoadFeatureConfig loads feature flags from the config file.
func LoadFeatureConfig(configPath string) (FeatureConfig, error) {
	if cfg, errRead := readFile(configPath); errRead == nil {
		return cfg.Features, nil
	}
	return FeatureConfig{}, nil
}

// readFile parses the YAML config file at the given path.
func readFile(configPath string) (fileConfig, error) {
	var cfg fileConfig
	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		return cfg, fmt.Errorf("read config file: %w", errRead)
	}
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return cfg, fmt.Errorf("parse config file: %w", errUnmarshal)
	}
	return cfg, nil
}
