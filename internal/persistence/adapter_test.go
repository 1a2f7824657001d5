package persistence

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/store"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

type item struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

type flakyBackend struct {
	*store.MemoryBackend
	mu      sync.Mutex
	saveErr map[string]error
	loadErr error
}

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{MemoryBackend: store.NewMemoryBackend(), saveErr: map[string]error{}}
}

func (b *flakyBackend) failSave(collection string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saveErr[collection] = err
}

func (b *flakyBackend) Save(ctx context.Context, collection string, payload []byte) error {
	b.mu.Lock()
	err := b.saveErr[collection]
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.MemoryBackend.Save(ctx, collection, payload)
}

func (b *flakyBackend) Load(ctx context.Context, collection string) ([]byte, error) {
	b.mu.Lock()
	err := b.loadErr
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return b.MemoryBackend.Load(ctx, collection)
}

type fixture struct {
	backend *flakyBackend
	first   *store.Durable[item]
	second  *store.Durable[item]
	adapter *Adapter
	logs    *bytes.Buffer
}

func newFixture() *fixture {
	backend := newFlakyBackend()
	first := store.NewDurable[item]("first", backend)
	second := store.NewDurable[item]("second", backend)
	logs := &bytes.Buffer{}
	adapter := New([]store.Collection{first, second}, WithLogger(logging.NewWithWriter("debug", logs)))
	return &fixture{backend: backend, first: first, second: second, adapter: adapter, logs: logs}
}

func TestWithFreshStatePersists(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	err := f.adapter.WithFreshState(ctx, func(tx *Tx) error {
		f.first.Put("a", item{ID: "a", Value: 1})
		f.second.Put("b", item{ID: "b", Value: 2})
		return nil
	})
	require.NoError(t, err)

	reloadedFirst := store.NewDurable[item]("first", f.backend)
	reloadedSecond := store.NewDurable[item]("second", f.backend)
	other := New([]store.Collection{reloadedFirst, reloadedSecond})
	other.Load(ctx)

	assert.Equal(t, f.first.List(), reloadedFirst.List())
	assert.Equal(t, f.second.List(), reloadedSecond.List())
}

func TestWithFreshStateReloadsBeforeMutation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Another process wrote directly to the backend.
	peer := store.NewDurable[item]("first", f.backend)
	peer.Put("peer", item{ID: "peer"})
	require.NoError(t, peer.Save(ctx))

	var seen int
	require.NoError(t, f.adapter.WithFreshState(ctx, func(tx *Tx) error {
		seen = f.first.Len()
		return nil
	}))
	assert.Equal(t, 1, seen)
}

func TestWithFreshStateRollsBackOnError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	boom := failure.New(failure.KindConflict, "nope")

	var order []string
	err := f.adapter.WithFreshState(ctx, func(tx *Tx) error {
		f.first.Put("a", item{ID: "a"})
		tx.OnRollback(func() { order = append(order, "first") })
		tx.OnRollback(func() { order = append(order, "second") })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"second", "first"}, order)

	payload, err := f.backend.MemoryBackend.Load(ctx, "first")
	require.NoError(t, err)
	assert.Nil(t, payload, "nothing persisted")
}

func TestWithFreshStateSaveFailureCompensates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.adapter.WithFreshState(ctx, func(tx *Tx) error {
		f.first.Put("keep", item{ID: "keep"})
		return nil
	}))

	f.backend.failSave("second", errors.New("disk full"))
	err := f.adapter.WithFreshState(ctx, func(tx *Tx) error {
		f.first.Put("new", item{ID: "new"})
		f.second.Put("new", item{ID: "new"})
		tx.OnRollback(func() {
			f.first.Delete("new")
			f.second.Delete("new")
		})
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, failure.KindPersistence, failure.KindOf(err))
	assert.Contains(t, err.Error(), "disk full")

	// The first collection was saved before the failure; the restore pass rewrote it.
	persisted := store.NewDurable[item]("first", f.backend)
	require.NoError(t, persisted.Load(ctx))
	require.Len(t, persisted.List(), 1)
	assert.Equal(t, "keep", persisted.List()[0].ID)
	assert.Equal(t, 1, f.first.Len())
	assert.Contains(t, f.logs.String(), "failed to save collection")
}

func TestWithFreshStateBackendReadErrorAborts(t *testing.T) {
	f := newFixture()
	f.backend.loadErr = errors.New("connection refused")

	called := false
	err := f.adapter.WithFreshState(context.Background(), func(tx *Tx) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.Equal(t, failure.KindPersistence, failure.KindOf(err))
}

func TestCorruptCollectionResetsOnlyThatCollection(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.adapter.WithFreshState(ctx, func(tx *Tx) error {
		f.first.Put("a", item{ID: "a"})
		f.second.Put("b", item{ID: "b"})
		return nil
	}))
	require.NoError(t, f.backend.MemoryBackend.Save(ctx, "first", []byte("garbage")))

	require.NoError(t, f.adapter.WithFreshState(ctx, func(tx *Tx) error {
		assert.Equal(t, 0, f.first.Len())
		assert.Equal(t, 1, f.second.Len())
		return nil
	}))
	assert.Contains(t, f.logs.String(), "collection payload corrupt")
}

func TestLoadNeverFails(t *testing.T) {
	f := newFixture()
	f.first.Put("stale", item{ID: "stale"})
	f.backend.loadErr = errors.New("timeout")

	f.adapter.Load(context.Background())
	assert.Equal(t, 0, f.first.Len())
	assert.Contains(t, f.logs.String(), "starting empty")
}

func TestAfterLoadHooksRunOnEveryReload(t *testing.T) {
	f := newFixture()
	calls := 0
	f.adapter.AfterLoad(func() { calls++ })

	ctx := context.Background()
	f.adapter.Load(ctx)
	require.NoError(t, f.adapter.WithFreshState(ctx, func(tx *Tx) error { return nil }))
	f.adapter.View(ctx, func() {})
	assert.Equal(t, 3, calls)
}

func TestSaveWritesEveryCollection(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.first.Put("a", item{ID: "a", Value: 1})
	f.second.Put("b", item{ID: "b", Value: 2})

	require.NoError(t, f.adapter.Save(ctx))

	reloaded := store.NewDurable[item]("second", f.backend)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, []item{{ID: "b", Value: 2}}, reloaded.List())
}

func TestSaveSurfacesBackendError(t *testing.T) {
	f := newFixture()
	boom := errors.New("disk full")
	f.backend.failSave("first", boom)

	err := f.adapter.Save(context.Background())
	assert.ErrorIs(t, err, boom)
}

type ctxKey struct{}

func TestTxContextCarriesCallerValuesAndDeadline(t *testing.T) {
	backend := newFlakyBackend()
	first := store.NewDurable[item]("first", backend)
	adapter := New([]store.Collection{first}, WithTimeout(time.Minute))

	ctx := context.WithValue(context.Background(), ctxKey{}, "caller")
	require.NoError(t, adapter.WithFreshState(ctx, func(tx *Tx) error {
		assert.Equal(t, "caller", tx.Context().Value(ctxKey{}))
		_, ok := tx.Context().Deadline()
		assert.True(t, ok)
		return nil
	}))
}
