package bootstrap

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/store"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// BuildBackend selects the durable backend named by STORE_BACKEND. A backend
// whose client is missing from clients is a configuration error.
func BuildBackend(cfg *appconfig.Config, clients Clients, logger *logging.Logger) (store.Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var backend store.Backend
	switch cfg.StoreBackend {
	case "", appconfig.StoreMemory:
		if strings.EqualFold(cfg.Env, "production") {
			logger.Warn("memory store backend in production: state is lost on restart")
		}
		backend = store.NewMemoryBackend()
	case appconfig.StoreRedis:
		if clients.Redis == nil {
			return nil, fmt.Errorf("bootstrap: store backend %q requires REDIS_ADDR", cfg.StoreBackend)
		}
		backend = store.NewRedisBackend(clients.Redis, cfg.StoreKeyPrefix)
	case appconfig.StorePostgres:
		if clients.Postgres == nil {
			return nil, fmt.Errorf("bootstrap: store backend %q requires DATABASE_URL", cfg.StoreBackend)
		}
		backend = store.NewPostgresBackend(clients.Postgres, cfg.StoreKeyPrefix)
	case appconfig.StoreDynamoDB:
		if clients.AWS == nil {
			return nil, fmt.Errorf("bootstrap: store backend %q requires AWS configuration", cfg.StoreBackend)
		}
		if strings.TrimSpace(cfg.StoreDynamoTable) == "" {
			return nil, fmt.Errorf("bootstrap: store backend %q requires STORE_DYNAMO_TABLE", cfg.StoreBackend)
		}
		backend = store.NewDynamoBackend(dynamodb.NewFromConfig(*clients.AWS), cfg.StoreDynamoTable, cfg.StoreKeyPrefix)
	case appconfig.StoreS3:
		if clients.AWS == nil {
			return nil, fmt.Errorf("bootstrap: store backend %q requires AWS configuration", cfg.StoreBackend)
		}
		if strings.TrimSpace(cfg.StoreS3Bucket) == "" {
			return nil, fmt.Errorf("bootstrap: store backend %q requires STORE_S3_BUCKET", cfg.StoreBackend)
		}
		backend = store.NewS3Backend(s3.NewFromConfig(*clients.AWS, func(o *s3.Options) {
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		}), cfg.StoreS3Bucket, cfg.StoreKeyPrefix)
	default:
		return nil, fmt.Errorf("bootstrap: unknown store backend %q", cfg.StoreBackend)
	}

	logger.Info("store backend selected", "backend", backendName(cfg.StoreBackend), "prefix", cfg.StoreKeyPrefix)
	return backend, nil
}

func backendName(name string) string {
	if name == "" {
		return appconfig.StoreMemory
	}
	return name
}
