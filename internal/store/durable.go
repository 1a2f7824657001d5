package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Backend is a durable key-value store holding one serialized payload per collection.
type Backend interface {
	Save(ctx context.Context, collection string, payload []byte) error
	// Load returns nil, nil when the collection has never been saved.
	Load(ctx context.Context, collection string) ([]byte, error)
}

// Collection is a named, persistable set of records.
type Collection interface {
	Name() string
	Save(ctx context.Context) error
	Load(ctx context.Context) error
	Reset()
	Len() int
}

// Durable is a Memory repository mirrored to a Backend under one collection key.
type Durable[T any] struct {
	*Memory[T]
	name    string
	backend Backend
}

var _ Repository[struct{}] = (*Durable[struct{}])(nil)
var _ Collection = (*Durable[struct{}])(nil)

// NewDurable binds a fresh in-memory repository to backend under name.
func NewDurable[T any](name string, backend Backend) *Durable[T] {
	if name == "" {
		panic("store: collection name required")
	}
	if backend == nil {
		panic("store: backend required")
	}
	return &Durable[T]{Memory: NewMemory[T](), name: name, backend: backend}
}

// Name returns the collection key.
func (d *Durable[T]) Name() string {
	return d.name
}

// Save writes the whole collection to the backend.
func (d *Durable[T]) Save(ctx context.Context) error {
	ids, values := d.snapshot()
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		raw, err := json.Marshal(values[id])
		if err != nil {
			return fmt.Errorf("store: encode %s/%s: %w", d.name, id, err)
		}
		entries = append(entries, Entry{ID: id, Record: raw})
	}
	payload, err := EncodeEntries(entries)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", d.name, err)
	}
	if err := d.backend.Save(ctx, d.name, payload); err != nil {
		return fmt.Errorf("store: save %s: %w", d.name, err)
	}
	return nil
}

// Load replaces the in-memory records with the persisted ones.
//
// A backend error leaves the current records untouched. A corrupt payload resets
// the collection to empty and returns an error wrapping ErrCorrupt.
func (d *Durable[T]) Load(ctx context.Context) error {
	payload, err := d.backend.Load(ctx, d.name)
	if err != nil {
		return fmt.Errorf("store: load %s: %w", d.name, err)
	}
	entries, err := DecodeEntries(payload)
	if err != nil {
		d.Reset()
		return fmt.Errorf("store: decode %s: %w", d.name, err)
	}
	ids := make([]string, 0, len(entries))
	values := make(map[string]T, len(entries))
	for _, entry := range entries {
		var v T
		if err := json.Unmarshal(entry.Record, &v); err != nil {
			d.Reset()
			return fmt.Errorf("store: decode %s/%s: %w: %v", d.name, entry.ID, ErrCorrupt, err)
		}
		if _, dup := values[entry.ID]; !dup {
			ids = append(ids, entry.ID)
		}
		values[entry.ID] = v
	}
	d.replace(ids, values)
	return nil
}
