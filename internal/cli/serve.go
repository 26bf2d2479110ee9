package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"entityvault/internal/handler"
	"entityvault/internal/hub"
	"entityvault/internal/service"
	"entityvault/internal/watcher"
)

func serveCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, *configPath, true)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}
			return serve(ctx, a)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	return cmd
}

// serve runs the API until ctx is cancelled, then drains connections within
// the configured shutdown timeout.
func serve(ctx context.Context, a *app) error {
	logger := a.logger
	logger.Info("starting entityvault", "summary", a.cfg.Summary())

	if a.cfgPath != "" {
		logger.Info("config loaded", "path", a.cfgPath)
		w := watcher.New(a.cfgPath, a.reloadLogLevel).WithLogger(logger.With("component", "watcher"))
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("config watch stopped", "error", err)
			}
		}()
	}

	bus := service.NewEventBus()
	sse := hub.New(logger.With("component", "hub"))
	go sse.Run(ctx)

	events := make(chan service.Event, 100)
	bus.Subscribe(events)
	defer bus.Unsubscribe(events)
	go hub.Relay(ctx, sse, events)

	userSvc := service.NewUserService(a.users, bus, service.UserServiceConfig{
		CheckEmailUniqueness: a.cfg.Users.CheckEmailUniqueness,
		BcryptCost:           a.cfg.Users.BcryptCost,
		Logger:               logger.With("component", "users"),
	})
	orgSvc := service.NewOrganizationService(a.orgs, a.users, bus, logger.With("component", "organizations"))

	routes := handler.Routes{
		Users:         handler.NewUserHandler(userSvc, logger),
		Organizations: handler.NewOrganizationHandler(orgSvc, logger),
		Database:      a.db,
		Events:        sse,
		Logger:        logger.With("component", "http"),
	}
	if a.metrics != nil {
		routes.Metrics = a.metrics.Handler()
	}

	server := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           handler.NewRouter(routes),
		ReadHeaderTimeout: a.cfg.HTTP.ReadHeaderTimeout.Duration(),
		ReadTimeout:       a.cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout:      a.cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:       a.cfg.HTTP.IdleTimeout.Duration(),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.HTTP.ShutdownTimeout.Duration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
