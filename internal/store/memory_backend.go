package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps payloads in process memory. It is the default backend for
// development and the one most tests run against.
type MemoryBackend struct {
	mu       sync.RWMutex
	payloads map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{payloads: make(map[string][]byte)}
}

func (b *MemoryBackend) Save(_ context.Context, collection string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads[collection] = append([]byte(nil), payload...)
	return nil
}

func (b *MemoryBackend) Load(_ context.Context, collection string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	payload, ok := b.payloads[collection]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), payload...), nil
}
