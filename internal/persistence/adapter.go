// Package persistence mirrors the clinic's record collections to a durable
// backend and runs every mutation as reload, mutate, persist.
package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/store"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var persistenceTracer = otel.Tracer("clinic.internal.persistence")

// Tx collects the compensations of one WithFreshState call.
type Tx struct {
	ctx           context.Context
	compensations []func()
}

// Context returns the transaction context.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// OnRollback registers fn to run if the transaction fails. Compensations run
// in reverse registration order.
func (tx *Tx) OnRollback(fn func()) {
	if fn != nil {
		tx.compensations = append(tx.compensations, fn)
	}
}

func (tx *Tx) rollback() {
	for i := len(tx.compensations) - 1; i >= 0; i-- {
		tx.compensations[i]()
	}
	tx.compensations = nil
}

// Adapter serializes access to the durable collections.
type Adapter struct {
	mu          sync.RWMutex
	collections []store.Collection
	afterLoad   []func()
	logger      *logging.Logger
	metrics     *metrics.SchedulingMetrics
	timeout     time.Duration
}

// Option configures an Adapter.
type Option func(*Adapter)

func WithLogger(logger *logging.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

func WithMetrics(m *metrics.SchedulingMetrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// WithTimeout bounds the backend I/O of each transaction.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

// New builds an adapter over the given collections.
func New(collections []store.Collection, opts ...Option) *Adapter {
	a := &Adapter{collections: collections}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.Default()
	}
	return a
}

// AfterLoad registers a hook that runs after every reload, before the
// transaction body. Hooks rebuild state derived from the collections.
func (a *Adapter) AfterLoad(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.afterLoad = append(a.afterLoad, fn)
}

// Load populates every collection from the backend. Missing, unreadable or
// corrupt collections start empty; failures are logged, never returned.
func (a *Adapter) Load(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	for _, c := range a.collections {
		err := c.Load(ctx)
		a.metrics.ObservePersistence("load", c.Name(), err)
		if err != nil {
			c.Reset()
			a.logger.Error("failed to load collection, starting empty", "collection", c.Name(), "error", err)
			continue
		}
		a.logger.Debug("collection loaded", "collection", c.Name(), "records", c.Len())
	}
	a.runAfterLoad()
}

// Save writes every collection to the backend.
func (a *Adapter) Save(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.saveLocked(ctx)
}

// WithFreshState reloads persisted state, runs fn, and persists the result
// while holding the exclusive lock. If fn or the save fails, the compensations
// registered on tx run and the previous state is re-persisted best-effort.
func (a *Adapter) WithFreshState(ctx context.Context, fn func(tx *Tx) error) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, span := persistenceTracer.Start(ctx, "persistence.with_fresh_state")
	defer span.End()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	defer func() {
		a.metrics.ObserveTransaction(time.Since(started).Seconds(), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(failure.KindOf(err)))
		}
	}()

	if err := a.reloadLocked(ctx); err != nil {
		return err
	}

	tx := &Tx{ctx: ctx}
	if err := fn(tx); err != nil {
		span.SetAttributes(attribute.Int("persistence.compensations", len(tx.compensations)))
		tx.rollback()
		return err
	}

	if saveErr := a.saveLocked(ctx); saveErr != nil {
		tx.rollback()
		if restoreErr := a.saveLocked(ctx); restoreErr != nil {
			a.logger.Error("failed to restore previous state after save failure", "error", restoreErr)
		}
		return failure.Wrap(failure.KindPersistence, saveErr, "persist state")
	}
	return nil
}

// View refreshes the collections and runs read-only work under the shared lock.
// A refresh failure is logged and fn sees the last known state.
func (a *Adapter) View(ctx context.Context, fn func()) {
	a.mu.Lock()
	rctx, cancel := a.withTimeout(ctx)
	if err := a.reloadLocked(rctx); err != nil {
		a.logger.Warn("serving last known state", "error", err)
	}
	cancel()
	a.mu.Unlock()

	a.mu.RLock()
	defer a.mu.RUnlock()
	fn()
}

// reloadLocked reloads every collection. A corrupt payload resets that collection
// and is not fatal. A backend read error aborts with a Persistence failure.
func (a *Adapter) reloadLocked(ctx context.Context) error {
	var readErr error
	for _, c := range a.collections {
		err := c.Load(ctx)
		a.metrics.ObservePersistence("load", c.Name(), err)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrCorrupt):
			a.logger.Error("collection payload corrupt, reset to empty", "collection", c.Name(), "error", err)
		default:
			if readErr == nil {
				readErr = err
			}
		}
	}
	a.runAfterLoad()
	if readErr != nil {
		return failure.Wrap(failure.KindPersistence, readErr, "reload state")
	}
	return nil
}

func (a *Adapter) saveLocked(ctx context.Context) error {
	var firstErr error
	for _, c := range a.collections {
		err := c.Save(ctx)
		a.metrics.ObservePersistence("save", c.Name(), err)
		if err != nil {
			a.logger.Error("failed to save collection", "collection", c.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (a *Adapter) runAfterLoad() {
	for _, hook := range a.afterLoad {
		hook()
	}
}

func (a *Adapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}
