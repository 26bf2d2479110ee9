// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Option configures New.
type Option func(*config)

type config struct {
	level     slog.Leveler
	format    string
	addSource bool
	out       io.Writer
}

func defaultConfig() config {
	return config{level: slog.LevelInfo, format: "text", out: os.Stderr}
}

// WithLevel sets the minimum level reported. Pass a *slog.LevelVar to
// change it while the logger is in use.
func WithLevel(level slog.Leveler) Option {
	return func(c *config) {
		if level != nil {
			c.level = level
		}
	}
}

// WithFormat selects "text" or "json" output.
func WithFormat(format string) Option {
	return func(c *config) { c.format = format }
}

// WithSource adds file:line to each record.
func WithSource(enabled bool) Option {
	return func(c *config) { c.addSource = enabled }
}

// WithOutput redirects records to w.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.out = w
		}
	}
}

// New returns a logger writing to stderr unless redirected.
func New(opts ...Option) (*slog.Logger, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	hopts := &slog.HandlerOptions{Level: cfg.level, AddSource: cfg.addSource}
	switch strings.ToLower(cfg.format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(cfg.out, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(cfg.out, hopts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.format)
	}
}

// ParseLevel maps debug, info, warn and error onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
