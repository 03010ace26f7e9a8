package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/jobwatch/internal/api"
	"github.com/TimurManjosov/jobwatch/internal/audit"
	"github.com/TimurManjosov/jobwatch/internal/auth"
	"github.com/TimurManjosov/jobwatch/internal/config"
	"github.com/TimurManjosov/jobwatch/internal/logging"
	"github.com/TimurManjosov/jobwatch/internal/snapshot"
	"github.com/TimurManjosov/jobwatch/internal/store"
	"github.com/TimurManjosov/jobwatch/internal/tasks"
	"github.com/TimurManjosov/jobwatch/internal/telemetry"
	"github.com/TimurManjosov/jobwatch/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "jobwatch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewStore(ctx, cfg.StoreType, cfg.StoreDSN())
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	telemetry.Init()

	svc := tasks.NewService(st, logger)

	auditLog := audit.NewMemorySink(cfg.AuditLogSize)
	auditSvc := audit.NewService(audit.MultiSink{auditLog, audit.NewLogSink(logger)}, logger, cfg.AuditLogSize)
	defer auditSvc.Close()
	svc.OnEvent(auditSvc.Listener())

	srvAPI := api.NewServer(api.Options{
		Tasks:          svc,
		Store:          st,
		Snapshot:       snapshot.NewHolder(),
		Auth:           auth.NewAuthenticator(cfg.AdminAPIKey, cfg.AdminAPIKeyHash),
		Logger:         logger,
		RateLimitPerIP: cfg.RateLimitPerIP,
		Audit:          auditLog,
	})

	// initial snapshot
	if err := srvAPI.RebuildSnapshot(ctx); err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	dispatcher, err := startWebhooks(cfg, svc, logger)
	if err != nil {
		return err
	}
	if dispatcher != nil {
		defer dispatcher.Close()
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 0, // SSE
		IdleTimeout:  60 * time.Second,
	}
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           telemetry.Handler(),
		ReadHeaderTimeout: 3 * time.Second,
	}

	errCh := make(chan error, 2)
	serve := func(name string, s *http.Server) {
		logger.Info().Str("addr", s.Addr).Msgf("%s listening", name)
		if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server: %w", name, err)
		}
	}
	go serve("api", srv)
	go serve("metrics", metricsSrv)

	logger.Info().
		Str("env", cfg.AppEnv).
		Str("store", cfg.StoreType).
		Int("webhooks", len(cfg.WebhookURLs)).
		Msg("jobwatch started")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server failed")
	}

	srvAPI.CloseStreams()
	shutdown(cfg.ShutdownTimeout, logger, srv, metricsSrv)
	if runErr != nil {
		return runErr
	}
	logger.Info().Msg("stopped")
	return nil
}

// startWebhooks subscribes a dispatcher to task events when webhook URLs
// are configured. It returns nil when there is nothing to deliver to.
func startWebhooks(cfg *config.Config, svc *tasks.Service, logger zerolog.Logger) (*webhook.Dispatcher, error) {
	if len(cfg.WebhookURLs) == 0 {
		return nil, nil
	}

	secret := cfg.WebhookSecret
	if secret == "" {
		s, err := webhook.GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("webhook secret: %w", err)
		}
		secret = s
		logger.Warn().Str("secret", secret).Msg("WEBHOOK_SECRET not set, generated one for this run")
	}

	d := webhook.NewDispatcher(webhook.Options{
		URLs:       cfg.WebhookURLs,
		Secret:     secret,
		MaxRetries: cfg.WebhookMaxRetries,
		Timeout:    cfg.WebhookTimeout,
		Logger:     logger,
		OnDelivery: telemetry.ObserveDelivery,
	})
	d.Start()
	svc.OnEvent(d.Listener())
	return d, nil
}

func shutdown(timeout time.Duration, logger zerolog.Logger, servers ...*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Str("addr", s.Addr).Msg("shutdown")
		}
	}
}
