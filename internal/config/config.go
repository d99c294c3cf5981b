// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Database() DatabaseConfig
	Humanizer() HumanizerConfig
	Admin() AdminConfig

	SetDatabaseURL(url string)
	SetAdminListenAddr(addr string)
	SetHumanizerCacheTTL(d time.Duration)
}

// Config holds the entire application configuration. The humanizer's own
// rules live in the settings table, not here; this only says where to find
// them and how long to cache them.
type Config struct {
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	DatabaseCfg  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	HumanizerCfg HumanizerConfig `mapstructure:"humanizer" yaml:"humanizer"`
	AdminCfg     AdminConfig     `mapstructure:"admin" yaml:"admin"`
}

// -- Getters --

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Database() DatabaseConfig   { return c.DatabaseCfg }
func (c *Config) Humanizer() HumanizerConfig { return c.HumanizerCfg }
func (c *Config) Admin() AdminConfig         { return c.AdminCfg }

// -- Setters --

func (c *Config) SetDatabaseURL(url string)      { c.DatabaseCfg.URL = url }
func (c *Config) SetAdminListenAddr(addr string) { c.AdminCfg.ListenAddr = addr }
func (c *Config) SetHumanizerCacheTTL(d time.Duration) {
	c.HumanizerCfg.CacheTTL = d
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the database connection details. An empty URL runs the
// humanizer on built-in defaults with no settings backend.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// HumanizerConfig locates and caches the engine config document. SettingsDir
// is the file-backed store used when no database URL is set.
type HumanizerConfig struct {
	SettingsKey  string        `mapstructure:"settings_key" yaml:"settings_key"`
	SettingsDir  string        `mapstructure:"settings_dir" yaml:"settings_dir"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
}

// AdminConfig configures the preview and settings HTTP API.
type AdminConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	RateLimit      float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	// MaxConnections caps concurrent connections; 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections"`
	// AuthSecret, when set, requires an HS256 bearer token on the API routes.
	AuthSecret string        `mapstructure:"auth_secret" yaml:"auth_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// NewDefaultConfig creates a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "wa-humanizer")
	v.SetDefault("logger.log_file", "humanizer.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Database --
	v.SetDefault("database.url", "")

	// -- Humanizer --
	v.SetDefault("humanizer.settings_key", "agent_humanizer_config")
	v.SetDefault("humanizer.cache_ttl", "5m")
	v.SetDefault("humanizer.fetch_timeout", "5s")
	v.SetDefault("humanizer.settings_dir", "")

	// -- Admin API --
	v.SetDefault("admin.listen_addr", "127.0.0.1:8089")
	v.SetDefault("admin.rate_limit", 10.0)
	v.SetDefault("admin.rate_burst", 20)
	v.SetDefault("admin.request_timeout", "30s")
	v.SetDefault("admin.max_connections", 0)
	v.SetDefault("admin.auth_secret", "")
	v.SetDefault("admin.token_ttl", "1h")
}

// NewConfigFromViper builds and validates a Config from a populated viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("database.url", "HUMANIZER_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("admin.auth_secret", "HUMANIZER_ADMIN_AUTH_SECRET")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the loaded values for consistency.
func (c *Config) Validate() error {
	if c.HumanizerCfg.SettingsKey == "" {
		return fmt.Errorf("humanizer.settings_key must not be empty")
	}
	if c.HumanizerCfg.CacheTTL <= 0 {
		return fmt.Errorf("humanizer.cache_ttl must be a positive duration")
	}
	if c.HumanizerCfg.FetchTimeout <= 0 {
		return fmt.Errorf("humanizer.fetch_timeout must be a positive duration")
	}
	if err := c.AdminCfg.Validate(); err != nil {
		return fmt.Errorf("admin configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the admin API settings.
func (a *AdminConfig) Validate() error {
	if a.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if a.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive")
	}
	if a.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be at least 1")
	}
	if a.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be a positive duration")
	}
	if a.MaxConnections < 0 {
		return fmt.Errorf("max_connections must not be negative")
	}
	if a.AuthSecret != "" && len(a.AuthSecret) < 16 {
		return fmt.Errorf("auth_secret must be at least 16 bytes")
	}
	if a.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be a positive duration")
	}
	return nil
}
