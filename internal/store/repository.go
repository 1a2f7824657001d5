// Package store holds the repositories behind the scheduling core and the
// key-value backends that make them durable.
package store

import (
	"errors"
	"sync"
)

// ErrCorrupt indicates a persisted collection could not be decoded.
var ErrCorrupt = errors.New("store: corrupt collection payload")

// Repository is the storage contract shared by the consultation store, the
// payment ledger and the ratings store.
type Repository[T any] interface {
	Get(id string) (T, bool)
	Put(id string, value T)
	Delete(id string)
	List() []T
}

// Memory is an insertion-ordered in-memory Repository. Values are stored by
// value so callers never alias stored records.
type Memory[T any] struct {
	mu     sync.RWMutex
	order  []string
	values map[string]T
}

var _ Repository[struct{}] = (*Memory[struct{}])(nil)

// NewMemory creates an empty in-memory repository.
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{values: make(map[string]T)}
}

// Get returns the record stored under id.
func (m *Memory[T]) Get(id string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[id]
	return v, ok
}

// Put inserts or replaces the record under id. Replacing keeps the original position.
func (m *Memory[T]) Put(id string, value T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.values[id]; !exists {
		m.order = append(m.order, id)
	}
	m.values[id] = value
}

// Delete removes id. Missing ids are ignored.
func (m *Memory[T]) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.values[id]; !exists {
		return
	}
	delete(m.values, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// List returns every record in insertion order.
func (m *Memory[T]) List() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.values[id])
	}
	return out
}

// Len reports the number of stored records.
func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Reset drops every record.
func (m *Memory[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = nil
	m.values = make(map[string]T)
}

func (m *Memory[T]) snapshot() ([]string, map[string]T) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := append([]string(nil), m.order...)
	values := make(map[string]T, len(m.values))
	for id, v := range m.values {
		values[id] = v
	}
	return ids, values
}

func (m *Memory[T]) replace(ids []string, values map[string]T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = ids
	m.values = values
}
