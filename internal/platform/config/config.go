package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config struct {
	Addr              string        `env:"APP_ADDR" envDefault:":8080"`
	DatabaseURL       string        `env:"DATABASE_URL"`
	JWTSecret         string        `env:"JWT_SECRET"`
	TokenTTL          time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	DataEncryptionKey string        `env:"DATA_ENCRYPTION_KEY"`
	FrontendDir       string        `env:"FRONTEND_DIR" envDefault:"frontend/dist"`
	Environment       string        `env:"APP_ENV" envDefault:"development"`
	SeedAdminEmail    string        `env:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string        `env:"SEED_ADMIN_PASSWORD"`
	SeedAdminName     string        `env:"SEED_ADMIN_NAME" envDefault:"Administrator"`
	AllowSelfSignup   bool          `env:"ALLOW_SELF_SIGNUP" envDefault:"false"`
	EmailFrom         string        `env:"EMAIL_FROM" envDefault:"no-reply@example.com"`
	EmailEnabled      bool          `env:"EMAIL_ENABLED" envDefault:"false"`
	SMTPHost          string        `env:"SMTP_HOST"`
	SMTPPort          int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser          string        `env:"SMTP_USER"`
	SMTPPassword      string        `env:"SMTP_PASSWORD"`
	SMTPUseTLS        bool          `env:"SMTP_USE_TLS" envDefault:"true"`
	RunMigrations     bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
	RunSeed           bool          `env:"RUN_SEED" envDefault:"true"`
	MaxBodyBytes      int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	MaxUploadBytes    int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	RateLimitPerMin   int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	StorageDriver     string        `env:"STORAGE_DRIVER" envDefault:"local"`
	StorageLocalDir   string        `env:"STORAGE_LOCAL_DIR" envDefault:"uploads"`
	S3Endpoint        string        `env:"S3_ENDPOINT"`
	S3Bucket          string        `env:"S3_BUCKET"`
	S3AccessKey       string        `env:"S3_ACCESS_KEY"`
	S3SecretKey       string        `env:"S3_SECRET_KEY"`
	S3Region          string        `env:"S3_REGION" envDefault:"us-east-1"`
	RedisAddr         string        `env:"REDIS_ADDR"`
	CloseExpiredCron  string        `env:"CLOSE_EXPIRED_CRON" envDefault:"@every 1h"`
	WorkerConcurrency int           `env:"WORKER_CONCURRENCY" envDefault:"5"`
	OTelEndpoint      string        `env:"OTEL_ENDPOINT"`
	OTelEnabled       bool          `env:"OTEL_ENABLED" envDefault:"true"`
	MetricsEnabled    bool          `env:"METRICS_ENABLED" envDefault:"true"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for mfa secrets")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.MaxUploadBytes < c.MaxBodyBytes {
		return fmt.Errorf("MAX_UPLOAD_BYTES must not be smaller than MAX_BODY_BYTES")
	}
	if c.RateLimitPerMin <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	switch c.StorageDriver {
	case StorageLocal:
		if strings.TrimSpace(c.StorageLocalDir) == "" {
			return fmt.Errorf("STORAGE_LOCAL_DIR must be set for the local storage driver")
		}
	case StorageS3:
		if strings.TrimSpace(c.S3Bucket) == "" {
			return fmt.Errorf("S3_BUCKET must be set for the s3 storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}
