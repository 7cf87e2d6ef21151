package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 10*time.Minute, cfg.RecipeCostCacheTTL)
	assert.Equal(t, 15*time.Minute, cfg.AlertScanInterval)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.AlertEmailTo)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("APP_ENV", "production")
	t.Setenv("ALERT_EMAIL_TO", "chef@example.com, owner@example.com")
	t.Setenv("ALERT_SCAN_INTERVAL", "90s")
	t.Setenv("SMTP_USER", "kitchen@example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"chef@example.com", "owner@example.com"}, cfg.AlertEmailTo)
	assert.Equal(t, 90*time.Second, cfg.AlertScanInterval)
	assert.Equal(t, "kitchen@example.com", cfg.SMTPFrom)
}
