// Package config provides configuration management for entityvault.
//
// Config file locations (priority order):
//  1. --config
//  2. $ENTITYVAULT_CONFIG
//  3. ./entityvault.yaml
//  4. $XDG_CONFIG_HOME/entityvault/config.yaml
//  5. ~/.config/entityvault/config.yaml
//  6. /etc/entityvault/config.yaml
//
// Environment variables override file values; see ApplyEnv.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"entityvault/internal/logging"
)

// Environment overrides.
const (
	EnvDBDriver  = "ENTITYVAULT_DB_DRIVER"
	EnvDBPath    = "ENTITYVAULT_DB_PATH"
	EnvDBDSN     = "ENTITYVAULT_DB_DSN"
	EnvHTTPAddr  = "ENTITYVAULT_HTTP_ADDR"
	EnvLogLevel  = "ENTITYVAULT_LOG_LEVEL"
	EnvLogFormat = "ENTITYVAULT_LOG_FORMAT"
)

// Load reads the file Locate picks, or starts from defaults when there is
// none. Environment overrides are applied and the result validated either
// way. The returned path is "" when defaults were used.
func Load(flagPath string, env Lookup) (*Config, string, error) {
	path, _, err := Locate(flagPath, env)
	if err != nil {
		return nil, path, err
	}

	cfg := DefaultConfig()
	if path != "" {
		if cfg, path, err = LoadFromPath(path); err != nil {
			return nil, path, err
		}
	}

	cfg.ApplyEnv(env)
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadFromPath loads config from a specific path. Unknown keys are rejected.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Parse decodes YAML and fills in defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Config{Metrics: MetricsConfig{Enabled: true}}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{
		Metrics: MetricsConfig{Enabled: true},
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = "./entityvault.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadHeaderTimeout == 0 {
		c.HTTP.ReadHeaderTimeout = Duration(5 * time.Second)
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = Duration(15 * time.Second)
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = Duration(60 * time.Second)
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Users.BcryptCost == 0 {
		c.Users.BcryptCost = bcrypt.DefaultCost
	}
}

// ApplyEnv overrides fields from the environment via lookup (os.LookupEnv
// in production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		key string
		dst *string
	}{
		{EnvDBDriver, &c.Database.Driver},
		{EnvDBPath, &c.Database.Path},
		{EnvDBDSN, &c.Database.DSN},
		{EnvHTTPAddr, &c.HTTP.Addr},
		{EnvLogLevel, &c.Log.Level},
		{EnvLogFormat, &c.Log.Format},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && strings.TrimSpace(v) != "" {
			*o.dst = strings.TrimSpace(v)
		}
	}
	c.applyDefaults()
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of %s, %s", c.Database.Driver, DriverSQLite, DriverPostgres))
	}
	if c.Database.MaxOpenConns < 0 {
		errs = append(errs, errors.New("database.max_open_conns must not be negative"))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}

	if c.Users.BcryptCost < bcrypt.MinCost || c.Users.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("users.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	return errors.Join(errs...)
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	target := c.Database.Path
	if c.Database.Driver == DriverPostgres {
		target = "(dsn)"
	}
	return fmt.Sprintf("Database: %s %s, HTTP: %s, Log: %s/%s, Metrics: %t",
		c.Database.Driver, target, c.HTTP.Addr, c.Log.Level, c.Log.Format, c.Metrics.Enabled)
}
