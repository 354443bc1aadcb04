package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("ADT_USERNAME", "user")
	t.Setenv("ADT_PASSWORD", "secret")
	t.Setenv("ADT_DOMAIN", "https://portal.example.com")
	t.Setenv("CACHE_TTL", "7s")
	t.Setenv("BYPASS_SENSORS", "Front Door,Kitchen Window")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "user", cfg.PortalCfg.Username)
	assert.Equal(t, "secret", cfg.PortalCfg.Password)
	assert.Equal(t, "https://portal.example.com", cfg.PortalCfg.Domain)
	assert.Equal(t, 7*time.Second, cfg.PortalCfg.CacheTTL)
	assert.Equal(t, []string{"Front Door", "Kitchen Window"}, cfg.PortalCfg.BypassSensors)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr)
}

func TestValidate(t *testing.T) {
	cfg := &Config{PortalCfg: &PortalConfig{}, MqttCfg: &MqttConfig{}}
	require.Error(t, Validate(cfg), "missing credentials")

	cfg.PortalCfg.Username = "user"
	cfg.PortalCfg.Password = "secret"
	require.Error(t, Validate(cfg), "missing domain")

	cfg.PortalCfg.Domain = "not a url"
	require.Error(t, Validate(cfg))

	cfg.PortalCfg.Domain = "https://portal.example.com"
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 5*time.Second, cfg.PortalCfg.CacheTTL, "TTL defaults when unset")
}
