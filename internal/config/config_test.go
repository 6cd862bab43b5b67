package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/wpos")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "warehousepos", cfg.Storage.Bucket)
	assert.Equal(t, 5, cfg.SMS.OTPLimit)
	assert.Equal(t, 10*time.Minute, cfg.SMS.OTPWindow)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.PendingOrderTTL)
	assert.True(t, cfg.App.IsDev())
}

func TestLoadPrefixedOverridesWin(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/wpos")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("WPOS_APP_PORT", "9090")
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.App.Port)
}

func TestLoadRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRequiresTokenVerifier(t *testing.T) {
	cfg := &Config{
		DB:   DBConfig{URL: "postgres://localhost/wpos"},
		SMS:  SMSConfig{OTPLimit: 5},
		Jobs: JobsConfig{PendingOrderTTL: time.Hour},
	}
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWKSURL = "https://auth.example.com/.well-known/jwks.json"
	assert.NoError(t, cfg.Validate())
}
