// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token        string        `yaml:"token"`
	AdminID      string        `yaml:"admin_id"`
	AdminContact string        `yaml:"admin_contact"`
	Language     string        `yaml:"language"`
	PollTimeout  time.Duration `yaml:"poll_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	Driver         string        `yaml:"driver"` // postgres|sqlite
	URL            string        `yaml:"url"`
	MaxConns       int32         `yaml:"max_conns"`
	ConnectRetries int           `yaml:"connect_retries"`
	ConnectBackoff time.Duration `yaml:"connect_backoff"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EntitlementConfig struct {
	CodeTTL           time.Duration `yaml:"code_ttl"`
	UsageDuration     time.Duration `yaml:"usage_duration"`
	ActivationCommand string        `yaml:"activation_command"`
}

type BroadcastConfig struct {
	BaseDelay time.Duration `yaml:"base_delay"`
	StepDelay time.Duration `yaml:"step_delay"`
	Workers   int           `yaml:"workers"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
}

type MaintenanceConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type RateLimitConfig struct {
	CommandsPerMinute int `yaml:"commands_per_minute"`
}

type TransportConfig struct {
	SendRate             float64       `yaml:"send_rate"`
	SendBurst            int           `yaml:"send_burst"`
	ReconnectMaxAttempts int           `yaml:"reconnect_max_attempts"`
	ReconnectInitial     time.Duration `yaml:"reconnect_initial"`
	ReconnectMax         time.Duration `yaml:"reconnect_max"`
}

type StatusConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type Config struct {
	Bot         BotConfig         `yaml:"bot"`
	Log         LogConfig         `yaml:"log"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Entitlement EntitlementConfig `yaml:"entitlement"`
	Broadcast   BroadcastConfig   `yaml:"broadcast"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Transport   TransportConfig   `yaml:"transport"`
	Status      StatusConfig      `yaml:"status"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Bot.Language == "" {
		c.Bot.Language = "en"
	}
	if c.Bot.AdminContact == "" {
		c.Bot.AdminContact = c.Bot.AdminID
	}
	if c.Bot.PollTimeout == 0 {
		c.Bot.PollTimeout = 60 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.ConnectRetries <= 0 {
		c.Database.ConnectRetries = 5
	}
	if c.Database.ConnectBackoff == 0 {
		c.Database.ConnectBackoff = 2 * time.Second
	}
	if c.Entitlement.CodeTTL == 0 {
		c.Entitlement.CodeTTL = 24 * time.Hour
	}
	if c.Entitlement.UsageDuration == 0 {
		c.Entitlement.UsageDuration = 30 * 24 * time.Hour
	}
	if c.Entitlement.ActivationCommand == "" {
		c.Entitlement.ActivationCommand = "/activate"
	}
	if c.Broadcast.BaseDelay == 0 {
		c.Broadcast.BaseDelay = 2 * time.Second
	}
	if c.Broadcast.StepDelay == 0 {
		c.Broadcast.StepDelay = 500 * time.Millisecond
	}
	if c.Broadcast.Workers <= 0 {
		c.Broadcast.Workers = 4
	}
	if c.Broadcast.LockTTL == 0 {
		c.Broadcast.LockTTL = 30 * time.Minute
	}
	if c.Maintenance.Interval == 0 {
		c.Maintenance.Interval = 2 * time.Hour
	}
	if c.RateLimit.CommandsPerMinute == 0 {
		c.RateLimit.CommandsPerMinute = 20
	}
	if c.Transport.SendRate == 0 {
		c.Transport.SendRate = 25
	}
	if c.Transport.SendBurst <= 0 {
		c.Transport.SendBurst = 5
	}
	if c.Transport.ReconnectMaxAttempts <= 0 {
		c.Transport.ReconnectMaxAttempts = 10
	}
	if c.Transport.ReconnectInitial == 0 {
		c.Transport.ReconnectInitial = 2 * time.Second
	}
	if c.Transport.ReconnectMax == 0 {
		c.Transport.ReconnectMax = 5 * time.Minute
	}
	if c.Status.Port == 0 {
		c.Status.Port = 8080
	}
}

func (c *Config) validate() error {
	if c.Bot.Token == "" {
		return errors.New("bot.token is required")
	}
	if c.Bot.AdminID == "" {
		return errors.New("bot.admin_id is required")
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if !strings.HasPrefix(c.Entitlement.ActivationCommand, "/") {
		return errors.New("entitlement.activation_command must start with /")
	}
	durations := map[string]time.Duration{
		"bot.poll_timeout":            c.Bot.PollTimeout,
		"database.connect_backoff":    c.Database.ConnectBackoff,
		"entitlement.code_ttl":        c.Entitlement.CodeTTL,
		"entitlement.usage_duration":  c.Entitlement.UsageDuration,
		"broadcast.base_delay":        c.Broadcast.BaseDelay,
		"broadcast.step_delay":        c.Broadcast.StepDelay,
		"broadcast.lock_ttl":          c.Broadcast.LockTTL,
		"maintenance.interval":        c.Maintenance.Interval,
		"transport.reconnect_initial": c.Transport.ReconnectInitial,
		"transport.reconnect_max":     c.Transport.ReconnectMax,
	}
	for k, d := range durations {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", k)
		}
	}
	if c.RateLimit.CommandsPerMinute < 0 {
		c.RateLimit.CommandsPerMinute = 0
	}
	if c.Transport.SendRate < 0 {
		return errors.New("transport.send_rate must not be negative")
	}
	return nil
}
