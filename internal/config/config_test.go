package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RISKENGINE_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0.02, cfg.RiskFreeRate)
	assert.Equal(t, 252, cfg.LookbackDays)
	assert.False(t, cfg.Backup.Enabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RISKENGINE_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("RISK_FREE_RATE", "0.035")
	t.Setenv("LOOKBACK_DAYS", "126")
	t.Setenv("BACKUP_S3_BUCKET", "riskengine-backups")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 0.035, cfg.RiskFreeRate)
	assert.Equal(t, 126, cfg.LookbackDays)
	assert.True(t, cfg.Backup.Enabled)
	assert.Equal(t, "riskengine-backups", cfg.Backup.Bucket)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := &Config{Port: 8001, LookbackDays: 1}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Port: 0, LookbackDays: 252}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Port: 8001, LookbackDays: 252}
	assert.NoError(t, cfg.Validate())
}
