package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each collection payload under prefix+collection.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if client == nil {
		panic("store: redis client cannot be nil")
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) key(collection string) string {
	return b.prefix + collection
}

func (b *RedisBackend) Save(ctx context.Context, collection string, payload []byte) error {
	if err := b.client.Set(ctx, b.key(collection), payload, 0).Err(); err != nil {
		return fmt.Errorf("store: redis set %s: %w", b.key(collection), err)
	}
	return nil
}

func (b *RedisBackend) Load(ctx context.Context, collection string) ([]byte, error) {
	payload, err := b.client.Get(ctx, b.key(collection)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: redis get %s: %w", b.key(collection), err)
	}
	return payload, nil
}
