// Package bootstrap turns a loaded config into the clients, backends and
// publishers the scheduling core runs on. Both the HTTP server and the Lambda
// entry point build their dependencies through it.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// PostgresDB is the query surface shared by pgxpool.Pool and pgxmock.
type PostgresDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Clients holds the external connections a configuration needs. Unused ones
// stay nil.
type Clients struct {
	Redis    *redis.Client
	Postgres PostgresDB
	AWS      *aws.Config
}

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool opens a pgx pool for DATABASE_URL. It returns nil, nil
// when no URL is configured.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// NeedsRedis reports whether the configuration uses Redis for storage or
// booking velocity.
func NeedsRedis(cfg *appconfig.Config) bool {
	return cfg.StoreBackend == appconfig.StoreRedis || cfg.BookingVelocityEnabled
}

// NeedsPostgres reports whether the configuration stores state or events in Postgres.
func NeedsPostgres(cfg *appconfig.Config) bool {
	return cfg.StoreBackend == appconfig.StorePostgres || cfg.EventsBackend == appconfig.EventsOutbox
}

// NeedsAWS reports whether any configured component talks to AWS.
func NeedsAWS(cfg *appconfig.Config) bool {
	switch {
	case cfg.StoreBackend == appconfig.StoreDynamoDB, cfg.StoreBackend == appconfig.StoreS3:
		return true
	case cfg.EventsBackend == appconfig.EventsSQS:
		return true
	case cfg.EventsBackend == appconfig.EventsOutbox && cfg.EventsRelay == appconfig.EventsSQS:
		return true
	case cfg.EmailProvider == appconfig.EmailSES:
		return true
	}
	return false
}

// BuildCatalog returns the seeded reference catalog, or an empty one when
// seeding is disabled.
func BuildCatalog(cfg *appconfig.Config) *scheduling.Catalog {
	if cfg != nil && !cfg.SeedCatalog {
		return scheduling.NewCatalog()
	}
	return scheduling.NewSeededCatalog()
}
