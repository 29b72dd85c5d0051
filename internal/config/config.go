// Package config loads the server and admin CLI configuration from the
// environment, an optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/luxemuse/luxe-muse-backend/internal/models"
)

const (
	BackendFirebase = "firebase"
	BackendMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Port    string `mapstructure:"PORT"`
	GinMode string `mapstructure:"GIN_MODE"`
	// Backend selects the identity, store and storage implementations.
	Backend string `mapstructure:"BACKEND"`

	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	FirebaseAPIKey                   string `mapstructure:"FIREBASE_API_KEY"`
	StorageBucket                    string `mapstructure:"STORAGE_BUCKET"`

	OwnerUID  string `mapstructure:"OWNER_UID"`
	ClientURL string `mapstructure:"CLIENT_URL"`

	SessionKey       string        `mapstructure:"SESSION_KEY"` // Base64, 32 bytes
	SessionTTL       time.Duration `mapstructure:"SESSION_TTL"`
	SessionCapacity  int           `mapstructure:"SESSION_CAPACITY"`
	AuthPollInterval time.Duration `mapstructure:"AUTH_POLL_INTERVAL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	AMQPURL     string `mapstructure:"AMQP_URL"`
	EventsQueue string `mapstructure:"EVENTS_QUEUE"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`

	DefaultUserCredits   int           `mapstructure:"DEFAULT_USER_CREDITS"`
	CreditsPerGeneration int           `mapstructure:"CREDITS_PER_GENERATION"`
	GenerationLockTTL    time.Duration `mapstructure:"GENERATION_LOCK_TTL"`
	RenderDelay          time.Duration `mapstructure:"RENDER_DELAY"`
	RefundOnFailure      bool          `mapstructure:"REFUND_ON_FAILURE"`
	CatalogFile          string        `mapstructure:"CATALOG_FILE"`

	AuthRateLimit float64 `mapstructure:"AUTH_RATE_LIMIT"` // requests per second per client IP
	AuthRateBurst int     `mapstructure:"AUTH_RATE_BURST"`

	CallableRateLimit float64 `mapstructure:"CALLABLE_RATE_LIMIT"` // requests per second per principal
	CallableRateBurst int     `mapstructure:"CALLABLE_RATE_BURST"`
}

var defaults = map[string]any{
	"PORT":                   "8080",
	"GIN_MODE":               "debug",
	"BACKEND":                BackendFirebase,
	"CLIENT_URL":             "http://localhost:3000",
	"SESSION_TTL":            "24h",
	"SESSION_CAPACITY":       10000,
	"AUTH_POLL_INTERVAL":     "1m",
	"EVENTS_QUEUE":           "luxemuse.events",
	"SMTP_PORT":              587,
	"DEFAULT_USER_CREDITS":   models.DefaultUserCredits,
	"CREDITS_PER_GENERATION": models.CreditsPerGeneration,
	"GENERATION_LOCK_TTL":    "2m",
	"RENDER_DELAY":           "1500ms",
	"REFUND_ON_FAILURE":      false,
	"AUTH_RATE_LIMIT":        1.0,
	"AUTH_RATE_BURST":        5,
	"CALLABLE_RATE_LIMIT":    0.1,
	"CALLABLE_RATE_BURST":    3,
}

var keys = []string{
	"PORT", "GIN_MODE", "BACKEND",
	"FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
	"FIREBASE_API_KEY", "STORAGE_BUCKET",
	"OWNER_UID", "CLIENT_URL",
	"SESSION_KEY", "SESSION_TTL", "SESSION_CAPACITY", "AUTH_POLL_INTERVAL",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"AMQP_URL", "EVENTS_QUEUE",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "MAIL_FROM",
	"DEFAULT_USER_CREDITS", "CREDITS_PER_GENERATION", "GENERATION_LOCK_TTL", "RENDER_DELAY",
	"REFUND_ON_FAILURE", "CATALOG_FILE",
	"AUTH_RATE_LIMIT", "AUTH_RATE_BURST",
	"CALLABLE_RATE_LIMIT", "CALLABLE_RATE_BURST",
}

// LoadConfig reads .env when present, then the environment, then CONFIG_FILE
// if set. Environment variables win over the file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if err := v.BindEnv("CONFIG_FILE"); err != nil {
		return nil, fmt.Errorf("bind CONFIG_FILE: %w", err)
	}
	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	switch c.Backend {
	case BackendMemory:
	case BackendFirebase:
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required")
		}
		if c.GoogleApplicationCredentials == "" && c.FirebaseServiceAccountJSONBase64 == "" {
			return errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is required")
		}
		if c.FirebaseAPIKey == "" {
			return errors.New("FIREBASE_API_KEY is required for password sign-in")
		}
	default:
		return fmt.Errorf("BACKEND must be %q or %q, got %q", BackendFirebase, BackendMemory, c.Backend)
	}
	if c.DefaultUserCredits <= 0 {
		return errors.New("DEFAULT_USER_CREDITS must be positive")
	}
	if c.CreditsPerGeneration <= 0 {
		return errors.New("CREDITS_PER_GENERATION must be positive")
	}
	if c.SessionTTL <= 0 || c.SessionCapacity <= 0 {
		return errors.New("SESSION_TTL and SESSION_CAPACITY must be positive")
	}
	if c.AuthPollInterval <= 0 {
		return errors.New("AUTH_POLL_INTERVAL must be positive")
	}
	if c.GenerationLockTTL <= 0 {
		return errors.New("GENERATION_LOCK_TTL must be positive")
	}
	if c.RenderDelay < 0 {
		return errors.New("RENDER_DELAY must not be negative")
	}
	if c.AuthRateLimit <= 0 || c.AuthRateBurst <= 0 {
		return errors.New("AUTH_RATE_LIMIT and AUTH_RATE_BURST must be positive")
	}
	if c.CallableRateLimit <= 0 || c.CallableRateBurst <= 0 {
		return errors.New("CALLABLE_RATE_LIMIT and CALLABLE_RATE_BURST must be positive")
	}
	if c.SMTPHost != "" && c.MailFrom == "" {
		return errors.New("MAIL_FROM is required when SMTP_HOST is set")
	}
	return nil
}

// Release reports whether gin runs in release mode.
func (c *Config) Release() bool {
	return strings.EqualFold(c.GinMode, "release")
}

// Bucket returns the storage bucket, defaulting to the project's Firebase bucket.
func (c *Config) Bucket() string {
	if c.StorageBucket != "" {
		return c.StorageBucket
	}
	return c.FirebaseProjectID + ".appspot.com"
}
