package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/clinic-scheduler/internal/api/router"
	"github.com/wolfman30/clinic-scheduler/internal/clinic"
	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/http/handlers"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// AWSLoader resolves the shared AWS SDK configuration.
type AWSLoader func(ctx context.Context, cfg *appconfig.Config) (aws.Config, error)

// OpenClients connects only what cfg needs. The returned func closes every
// opened connection.
func OpenClients(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, loadAWS AWSLoader) (Clients, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}
	var clients Clients
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if NeedsRedis(cfg) {
		// The store cannot start without Redis; velocity degrades to disabled.
		clients.Redis = BuildRedisClient(ctx, cfg, logger, true)
		if clients.Redis != nil {
			client := clients.Redis
			closers = append(closers, func() { _ = client.Close() })
		}
	}
	if NeedsPostgres(cfg) {
		pool, err := BuildPostgresPool(ctx, cfg)
		if err != nil {
			closeAll()
			return Clients{}, nil, err
		}
		if pool != nil {
			clients.Postgres = pool
			closers = append(closers, pool.Close)
		}
	}
	if NeedsAWS(cfg) {
		if loadAWS == nil {
			closeAll()
			return Clients{}, nil, fmt.Errorf("bootstrap: AWS configuration loader required")
		}
		awsCfg, err := loadAWS(ctx, cfg)
		if err != nil {
			closeAll()
			return Clients{}, nil, fmt.Errorf("bootstrap: load AWS config: %w", err)
		}
		clients.AWS = &awsCfg
	}
	return clients, closeAll, nil
}

// App is a fully wired scheduling core behind its HTTP router.
type App struct {
	Core     *clinic.Core
	Handler  http.Handler
	Events   *EventPipeline
	Registry *prometheus.Registry
}

// NewApp builds the core, its event pipeline and the router for cfg.
func NewApp(ctx context.Context, cfg *appconfig.Config, clients Clients, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	backend, err := BuildBackend(cfg, clients, logger)
	if err != nil {
		return nil, err
	}
	pipeline, err := BuildPublisher(cfg, clients, logger)
	if err != nil {
		return nil, err
	}

	catalog := BuildCatalog(cfg)
	sender, provider, reason := BuildEmailSender(cfg, clients, logger)
	if sender == nil && provider != appconfig.EmailNone {
		logger.Warn("practitioner notifications disabled", "provider", provider, "reason", reason)
	}
	publisher := WrapWithNotifications(pipeline.Publisher, sender, catalog, logger.WithComponent("notify"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	schedulingMetrics := metrics.NewSchedulingMetrics(registry)

	core := clinic.NewCore(ctx, clinic.Options{
		Backend:            backend,
		Catalog:            catalog,
		Publisher:          publisher,
		Velocity:           BuildVelocity(cfg, clients.Redis, logger),
		Metrics:            schedulingMetrics,
		Logger:             logger,
		TransactionTimeout: cfg.TransactionTimeout,
	})

	handler := router.New(&router.Config{
		Logger:               logger,
		CatalogHandler:       handlers.NewCatalogHandler(core, logger),
		ConsultationsHandler: handlers.NewConsultationsHandler(core, logger),
		PaymentsHandler:      handlers.NewPaymentsHandler(core, logger),
		PrescriptionsHandler: handlers.NewPrescriptionsHandler(core, logger),
		HealthHandler:        handlers.NewHealthHandler(HealthChecks(backend, clients)),
		StatsHandler:         clinic.NewStatsHandler(core, logger),
		AdminAuthSecret:      cfg.AdminJWTSecret,
		MetricsHandler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
	})
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin routes disabled")
	}

	return &App{Core: core, Handler: handler, Events: pipeline, Registry: registry}, nil
}

// Close releases the event transports.
func (a *App) Close() {
	if a == nil {
		return
	}
	a.Events.Close()
}
