package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// DefaultWebhookURL is the automation endpoint the assistant talks to when
// NEBULA_WEBHOOK_URL is not set.
const DefaultWebhookURL = "https://n8n.agilenebula.tech/webhook-test/nebula"

// MemoryDatabaseURL selects the in-process stores instead of Postgres.
const MemoryDatabaseURL = "memory://"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration values loaded from environment variables.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"nebula-backend"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL          string `env:"DATABASE_URL" envDefault:"memory://"`
	JWTSecret            string `env:"JWT_SECRET" envDefault:"default-super-secret-key"` // CHANGE THIS IN PRODUCTION!
	TokenExpirationHours int    `env:"JWT_EXPIRATION_HOURS" envDefault:"24"`
	TokenExpiration      time.Duration
	// Accounts created with these emails are approved admins from the start.
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	// Optional, hex encoded. When set, persisted slots are sealed with AES-256-GCM.
	StorageEncryptionKeyHex string `env:"STORAGE_ENCRYPTION_KEY"`
	StorageEncryptionKey    []byte

	WebhookURL     string        `env:"NEBULA_WEBHOOK_URL" envDefault:"https://n8n.agilenebula.tech/webhook-test/nebula"`
	WebhookTimeout time.Duration `env:"NEBULA_WEBHOOK_TIMEOUT" envDefault:"60s"`

	MaxRecordingDuration time.Duration `env:"MAX_RECORDING_DURATION" envDefault:"60s"`
	ChunkInterval        time.Duration `env:"RECORDING_CHUNK_INTERVAL" envDefault:"250ms"`
	AudioEnabled         bool          `env:"AUDIO_ENABLED" envDefault:"true"`
	MaxAttachmentBytes   int64         `env:"MAX_ATTACHMENT_BYTES" envDefault:"20971520"`

	SlackAlertWebhookURL string   `env:"SLACK_ALERT_WEBHOOK_URL"`
	AllowedOrigins       []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173,http://localhost:8080"`

	// Root directory of the terminal client's local slot store.
	DataDir string `env:"NEBULA_DATA_DIR" envDefault:".nebula"`

	EnvFileLoaded bool
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Don't fail if .env is not present, might be in production
	dotenvErr := godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	cfg.EnvFileLoaded = dotenvErr == nil
	return cfg, nil
}

// Parse builds a Config from the current process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: parse env: %v", ErrInvalidConfig, err)
	}

	if cfg.TokenExpirationHours <= 0 {
		cfg.TokenExpirationHours = 24
	}
	cfg.TokenExpiration = time.Hour * time.Duration(cfg.TokenExpirationHours)

	cfg.WebhookURL = strings.TrimSpace(cfg.WebhookURL)
	if cfg.WebhookURL == "" {
		cfg.WebhookURL = DefaultWebhookURL
	}
	if cfg.MaxRecordingDuration <= 0 {
		return nil, fmt.Errorf("%w: MAX_RECORDING_DURATION must be positive", ErrInvalidConfig)
	}
	if cfg.ChunkInterval <= 0 {
		return nil, fmt.Errorf("%w: RECORDING_CHUNK_INTERVAL must be positive", ErrInvalidConfig)
	}
	admins := cfg.AdminEmails[:0]
	for _, e := range cfg.AdminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins = append(admins, e)
		}
	}
	cfg.AdminEmails = admins

	if cfg.MaxAttachmentBytes <= 0 {
		cfg.MaxAttachmentBytes = 20 * 1024 * 1024
	}

	// Load and decode the storage key (MUST be 64 hex characters for 32 bytes)
	if keyHex := strings.TrimSpace(cfg.StorageEncryptionKeyHex); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("%w: STORAGE_ENCRYPTION_KEY is not valid hex: %v", ErrInvalidConfig, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("%w: STORAGE_ENCRYPTION_KEY must be 32 bytes (64 hex characters) long, got %d bytes", ErrInvalidConfig, len(key))
		}
		cfg.StorageEncryptionKey = key
	}

	return cfg, nil
}

// UsesMemoryStore reports whether the server should skip Postgres.
func (c *Config) UsesMemoryStore() bool {
	return c.DatabaseURL == "" || c.DatabaseURL == MemoryDatabaseURL
}
