package config

import (
	"errors"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	PortalCfg  *PortalConfig
	MqttCfg    *MqttConfig
	ListenAddr string `env:"LISTEN_ADDR" envDefault:"0.0.0.0:8000"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// PortalConfig holds everything needed to drive the alarm portal.
type PortalConfig struct {
	Username string `env:"ADT_USERNAME"`
	Password string `env:"ADT_PASSWORD"`
	// Domain is the portal origin, scheme included, e.g. "https://smartsecurity.adt.example".
	Domain string `env:"ADT_DOMAIN"`
	// CacheTTL is how long a fetched snapshot stays fresh.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5s"`
	// BypassSensors are the sensor names allowed to be auto-bypassed
	// when arming a not-ready system.
	BypassSensors []string `env:"BYPASS_SENSORS" envSeparator:","`
}

type MqttConfig struct {
	Host     string `env:"MQTT_HOST"`
	Username string `env:"MQTT_USER"`
	Password string `env:"MQTT_PASS"`
}

var (
	errCredentialsRequired = errors.New("portal username and password must be provided")
	errDomainRequired      = errors.New("portal domain must be provided")
)

// FromEnv builds a Config from environment variables. CLI flags layered
// on top of this in main override individual fields.
func FromEnv() (*Config, error) {
	cfg := &Config{
		PortalCfg: &PortalConfig{},
		MqttCfg:   &MqttConfig{},
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg.PortalCfg); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg.MqttCfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and formats.
func Validate(cfg *Config) error {
	if cfg.PortalCfg.Username == "" || cfg.PortalCfg.Password == "" {
		return errCredentialsRequired
	}
	if cfg.PortalCfg.Domain == "" {
		return errDomainRequired
	}
	u, err := url.Parse(cfg.PortalCfg.Domain)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("portal domain must be an absolute URL")
	}
	if cfg.PortalCfg.CacheTTL <= 0 {
		cfg.PortalCfg.CacheTTL = 5 * time.Second
	}
	return nil
}
