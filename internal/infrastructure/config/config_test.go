package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{Env: "production"},
		JWT: JWTConfig{Secret: "a-real-secret", AccessTokenTTL: time.Hour},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty secret", func(c *Config) { c.JWT.Secret = "" }},
		{"default secret in production", func(c *Config) { c.JWT.Secret = defaultJWTSecret }},
		{"zero ttl", func(c *Config) { c.JWT.AccessTokenTTL = 0 }},
		{"bucket without upload limit", func(c *Config) { c.Storage.Bucket = "images" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_DefaultSecretOutsideProduction(t *testing.T) {
	cfg := validConfig()
	cfg.App.Env = "development"
	cfg.JWT.Secret = defaultJWTSecret
	assert.NoError(t, cfg.Validate())
}

func TestGetAddress(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Host: "127.0.0.1", Port: 9090}}
	assert.Equal(t, "127.0.0.1:9090", cfg.GetAddress())
}
