package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DatabaseURL:     "postgres://localhost/perfeval",
		TokenTTL:        24 * time.Hour,
		MaxBodyBytes:    1 << 20,
		MaxUploadBytes:  10 << 20,
		RateLimitPerMin: 60,
		StorageDriver:   StorageLocal,
		StorageLocalDir: "uploads",
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/perfeval")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, StorageLocal, cfg.StorageDriver)
	assert.Equal(t, "@every 1h", cfg.CloseExpiredCron)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "valid", mutate: func(*Config) {}, ok: true},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = " " }},
		{name: "production without secret", mutate: func(c *Config) { c.Environment = "production" }},
		{name: "small body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }},
		{name: "upload below body", mutate: func(c *Config) { c.MaxUploadBytes = 1024 }},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimitPerMin = 0 }},
		{name: "email without host", mutate: func(c *Config) { c.EmailEnabled = true }},
		{name: "s3 without bucket", mutate: func(c *Config) { c.StorageDriver = StorageS3 }},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "ftp" }},
		{
			name: "production complete",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.JWTSecret = "s3cret"
				c.DataEncryptionKey = "0123456789abcdef0123456789abcdef"
				c.SeedAdminPassword = "ChangeMe123!"
				c.RunSeed = true
			},
			ok: true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
		})
	}
}
