package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(100), cfg.RateLimitIPMax)
	assert.Equal(t, int64(50), cfg.RateLimitUserMax)
	assert.Equal(t, 30, cfg.AbandonedCartTimeoutMinutes)
	assert.Equal(t, 5000.0, cfg.MinimumCartValueForFollowup)
	assert.Equal(t, 30, cfg.FollowUpEmailDelayMinutes)
	assert.Equal(t, 2, cfg.FollowUpSMSDelayHours)
	assert.False(t, cfg.Testing)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("TESTING", "true")
	t.Setenv("RATE_LIMIT_IP_MAX", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsTest())
	assert.Equal(t, int64(5), cfg.RateLimitIPMax)
}

func TestConfig_EnvHelpers(t *testing.T) {
	assert.True(t, Config{AppEnv: "dev"}.IsDev())
	assert.True(t, Config{AppEnv: "PROD"}.IsProd())
	assert.True(t, Config{AppEnv: "Test"}.IsTest())
	assert.True(t, Config{Testing: true}.IsTest())
	assert.False(t, Config{AppEnv: "dev"}.IsProd())
}
