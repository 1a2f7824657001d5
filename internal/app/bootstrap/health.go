package bootstrap

import (
	"context"

	"github.com/wolfman30/clinic-scheduler/internal/clinic"
	"github.com/wolfman30/clinic-scheduler/internal/http/handlers"
	"github.com/wolfman30/clinic-scheduler/internal/store"
)

// HealthChecks checks the durable backend and any shared connections.
func HealthChecks(backend store.Backend, clients Clients) map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{}
	if backend != nil {
		checks["store"] = func(ctx context.Context) error {
			_, err := backend.Load(ctx, clinic.CollectionConsultations)
			return err
		}
	}
	if clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return clients.Redis.Ping(ctx).Err()
		}
	}
	if clients.Postgres != nil {
		checks["postgres"] = clients.Postgres.Ping
	}
	return checks
}
