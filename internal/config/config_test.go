package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_SOURCE", "postgres://localhost/deals")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 5, cfg.TxMaxRetries)
	assert.Equal(t, 10*time.Minute, cfg.LinkCodeTTL)
	assert.False(t, cfg.TelegramEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoadRequiresDBSource(t *testing.T) {
	t.Setenv("DB_SOURCE", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_SOURCE")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_SOURCE", "postgres://localhost/deals")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TX_MAX_RETRIES", "3")
	t.Setenv("LINK_CODE_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, 3, cfg.TxMaxRetries)
	assert.Equal(t, 90*time.Second, cfg.LinkCodeTTL)
}

func TestValidateRejectsBadRetries(t *testing.T) {
	cfg := Config{DBSource: "x", TxMaxRetries: 0, RateLimitRPS: 1, RateLimitBurst: 1}
	assert.Error(t, cfg.Validate())
}
