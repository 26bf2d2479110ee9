package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"entityvault/internal/config"
	"entityvault/internal/logging"
	"entityvault/internal/metrics"
	"entityvault/internal/repository"
	"entityvault/internal/repository/postgres"
	"entityvault/internal/repository/sqlite"
)

// database is what the commands need from either engine.
type database interface {
	DB() *sql.DB
	Ping(ctx context.Context) error
	Users(opts ...repository.Option) (*repository.Users, error)
	Organizations(opts ...repository.Option) (*repository.Organizations, error)
	Close() error
}

var (
	_ database = (*sqlite.Database)(nil)
	_ database = (*postgres.Database)(nil)
)

// app is one opened process: config, logger, storage and repositories.
type app struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger
	level   *slog.LevelVar
	metrics *metrics.Recorder
	db      database
	users   *repository.Users
	orgs    *repository.Organizations
}

// loadConfig reads the file named by --config, $ENTITYVAULT_CONFIG or the
// search list, in that order.
func loadConfig(path string) (*config.Config, string, error) {
	return config.Load(path, os.LookupEnv)
}

func newLogger(cfg *config.Config) (*slog.Logger, *slog.LevelVar, error) {
	parsed, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	level := new(slog.LevelVar)
	level.Set(parsed)
	logger, err := logging.New(logging.WithLevel(level), logging.WithFormat(cfg.Log.Format), logging.WithOutput(os.Stderr))
	if err != nil {
		return nil, nil, err
	}
	return logger, level, nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (database, error) {
	var (
		db  database
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err = sqlite.New(ctx, cfg.Path)
	case config.DriverPostgres:
		db, err = postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.DB().SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return db, nil
}

// openApp loads config and opens storage. withMetrics attaches a Prometheus
// recorder to the repositories when the config enables it.
func openApp(ctx context.Context, cfgPath string, withMetrics bool) (*app, error) {
	cfg, path, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	logger, level, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, cfgPath: path, logger: logger, level: level}
	opts := []repository.Option{repository.WithLogger(logger.With("component", "repository"))}
	if withMetrics && cfg.Metrics.Enabled {
		a.metrics = metrics.NewRecorder(cfg.Metrics.ProcessMetrics)
		opts = append(opts, repository.WithMetrics(a.metrics))
	}

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db

	if a.users, err = db.Users(opts...); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	if a.orgs, err = db.Organizations(opts...); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return a, nil
}

// reloadLogLevel re-reads the config file and applies its log level. Other
// settings need a restart.
func (a *app) reloadLogLevel() {
	cfg, _, err := loadConfig(a.cfgPath)
	if err != nil {
		a.logger.Warn("config reload failed", "path", a.cfgPath, "error", err)
		return
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		a.logger.Warn("config reload failed", "path", a.cfgPath, "error", err)
		return
	}
	if level != a.level.Level() {
		a.level.Set(level)
		a.logger.Info("log level changed", "level", level)
	}
}

func (a *app) Close() error {
	return a.db.Close()
}
