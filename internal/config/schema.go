package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Users    UsersConfig    `yaml:"users"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig holds database settings. Path is used by sqlite, DSN by
// postgres.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	Path         string `yaml:"path,omitempty"`
	DSN          string `yaml:"dsn,omitempty"`
	MaxOpenConns int    `yaml:"max_open_conns,omitempty"`
}

// HTTPConfig holds the API server settings. WriteTimeout stays zero by
// default so event streams are not cut off.
type HTTPConfig struct {
	Addr              string   `yaml:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout,omitempty"`
	ReadTimeout       Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout      Duration `yaml:"write_timeout,omitempty"`
	IdleTimeout       Duration `yaml:"idle_timeout,omitempty"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout,omitempty"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// UsersConfig tunes account handling.
type UsersConfig struct {
	CheckEmailUniqueness bool `yaml:"check_email_uniqueness"`
	BcryptCost           int  `yaml:"bcrypt_cost,omitempty"`
}

// MetricsConfig controls the /metrics endpoint.
type MetricsConfig struct {
	Enabled        bool `yaml:"enabled"`
	ProcessMetrics bool `yaml:"process_metrics"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
