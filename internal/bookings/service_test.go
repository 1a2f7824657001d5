package bookings

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/consultations"
	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/ids"
	"github.com/wolfman30/clinic-scheduler/internal/payments"
	"github.com/wolfman30/clinic-scheduler/internal/persistence"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/internal/store"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

type flakyBackend struct {
	*store.MemoryBackend
	mu      sync.Mutex
	saveErr map[string]error
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

type testEnv struct {
	backend       *flakyBackend
	catalog       *scheduling.Catalog
	consultations *consultations.Store
	ledger        *payments.Ledger
	publisher     *events.MemoryPublisher
	service       *Service
}

func newTestEnv(t *testing.T, backend *flakyBackend, opts ...Option) *testEnv {
	t.Helper()
	if backend == nil {
		backend = newFlakyBackend()
	}
	logger := logging.NewWithWriter("error", io.Discard)
	catalog := scheduling.NewSeededCatalog()
	consultationRepo := store.NewDurable[consultations.Consultation]("consultations", backend)
	paymentRepo := store.NewDurable[payments.Payment]("payments", backend)
	cs := consultations.NewStore(consultationRepo)
	ledger := payments.NewLedger(paymentRepo)

	adapter := persistence.New([]store.Collection{consultationRepo, paymentRepo}, persistence.WithLogger(logger))
	adapter.AfterLoad(func() { catalog.SyncReservations(cs.ActiveSlotIDs()) })
	adapter.Load(context.Background())

	publisher := events.NewMemoryPublisher()
	base := []Option{
		WithLogger(logger),
		WithPublisher(publisher),
		WithClock(func() time.Time { return time.Date(2025, 11, 20, 10, 30, 0, 0, time.UTC) }),
	}
	svc := NewService(adapter, catalog, cs, ledger, append(base, opts...)...)
	return &testEnv{backend: backend, catalog: catalog, consultations: cs, ledger: ledger, publisher: publisher, service: svc}
}

func int64Ptr(v int64) *int64 { return &v }

func TestCreateConsultationBooksFreeSlot(t *testing.T) {
	env := newTestEnv(t, nil)

	booking, err := env.service.CreateConsultation(context.Background(), Request{
		PatientID: "PAC1",
		SlotID:    "D001",
		Method:    "pix",
	})
	require.NoError(t, err)

	assert.Equal(t, consultations.StatusScheduled, booking.Consultation.Status)
	assert.Equal(t, "PAC1", booking.Consultation.PatientID)
	assert.Equal(t, payments.StatusPending, booking.Payment.Status)
	assert.Equal(t, int64(25000), booking.Payment.AmountCents)
	assert.Equal(t, payments.MethodPix, booking.Payment.Method)
	assert.Equal(t, booking.Consultation.ID, booking.Payment.ConsultationID)
	assert.Equal(t, "2025-11-20", booking.Payment.Date)
	assert.Equal(t, "10:30", booking.Payment.Time)

	slot, ok := env.catalog.FindSlot("D001")
	require.True(t, ok)
	assert.True(t, slot.Reserved)

	assert.Equal(t, []string{events.TypeConsultationBooked}, env.publisher.Types())
}

func TestCreateConsultationExplicitAmountAndSchedule(t *testing.T) {
	env := newTestEnv(t, nil)

	booking, err := env.service.CreateConsultation(context.Background(), Request{
		PatientID:   "PAC1",
		SlotID:      "D003",
		AmountCents: int64Ptr(0),
		PaymentDate: "2025-11-28",
		PaymentTime: "08:15",
		Method:      "Crédito",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), booking.Payment.AmountCents)
	assert.Equal(t, payments.MethodCredit, booking.Payment.Method)
	assert.Equal(t, "2025-11-28", booking.Payment.Date)
	assert.Equal(t, "08:15", booking.Payment.Time)
}

func TestCreateConsultationTwiceIsUnavailable(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	req := Request{PatientID: "PAC1", SlotID: "D001", AmountCents: int64Ptr(25000), Method: "pix"}

	_, err := env.service.CreateConsultation(ctx, req)
	require.NoError(t, err)

	_, err = env.service.CreateConsultation(ctx, req)
	require.Error(t, err)
	assert.Equal(t, failure.KindSlotUnavailable, failure.KindOf(err))
	assert.Equal(t, 1, env.consultations.Len())
	assert.Equal(t, 1, env.ledger.Len())
}

func TestCreateConsultationValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  Request
		kind failure.Kind
	}{
		{"empty patient", Request{PatientID: "  ", SlotID: "D001", Method: "pix"}, failure.KindInvalidInput},
		{"empty slot", Request{PatientID: "PAC1", Method: "pix"}, failure.KindInvalidInput},
		{"unknown method", Request{PatientID: "PAC1", SlotID: "D001", Method: "boleto"}, failure.KindInvalidInput},
		{"negative amount", Request{PatientID: "PAC1", SlotID: "D001", Method: "pix", AmountCents: int64Ptr(-100)}, failure.KindInvalidInput},
		{"bad payment date", Request{PatientID: "PAC1", SlotID: "D001", Method: "pix", PaymentDate: "27/11/2025"}, failure.KindInvalidInput},
		{"bad payment time", Request{PatientID: "PAC1", SlotID: "D001", Method: "pix", PaymentTime: "8h"}, failure.KindInvalidInput},
		{"missing slot", Request{PatientID: "PAC1", SlotID: "D999", Method: "pix"}, failure.KindSlotNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.service.CreateConsultation(ctx, tc.req)
			assert.Equal(t, tc.kind, failure.KindOf(err))
		})
	}

	slot, _ := env.catalog.FindSlot("D001")
	assert.False(t, slot.Reserved)
	assert.Equal(t, 0, env.consultations.Len())
	assert.Equal(t, 0, env.ledger.Len())
}

func TestNoDoubleBookingUnderContention(t *testing.T) {
	env := newTestEnv(t, nil)

	const attempts = 25
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.service.CreateConsultation(context.Background(), Request{
				PatientID: "PAC" + string(rune('A'+i)),
				SlotID:    "D005",
				Method:    "cash",
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.Equal(t, failure.KindSlotUnavailable, failure.KindOf(err))
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, env.consultations.Len())
	assert.Equal(t, 1, env.ledger.Len())
}

func TestCreateConsultationRollsBackOnPersistenceFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.backend.failSave("payments", errors.New("redis: connection reset"))

	_, err := env.service.CreateConsultation(ctx, Request{PatientID: "PAC1", SlotID: "D001", Method: "pix"})
	require.Error(t, err)
	assert.Equal(t, failure.KindPersistence, failure.KindOf(err))

	slot, _ := env.catalog.FindSlot("D001")
	assert.False(t, slot.Reserved)
	assert.Equal(t, 0, env.consultations.Len())
	assert.Equal(t, 0, env.ledger.Len())

	persisted := store.NewDurable[consultations.Consultation]("consultations", env.backend)
	require.NoError(t, persisted.Load(ctx))
	assert.Equal(t, 0, persisted.Len())
	assert.Empty(t, env.publisher.Types())

	env.backend.failSave("payments", nil)
	_, err = env.service.CreateConsultation(ctx, Request{PatientID: "PAC1", SlotID: "D001", Method: "pix"})
	assert.NoError(t, err)
}

func TestCreateConsultationIDCollision(t *testing.T) {
	env := newTestEnv(t, nil, WithIDGenerator(ids.Fixed("same")))
	ctx := context.Background()

	_, err := env.service.CreateConsultation(ctx, Request{PatientID: "PAC1", SlotID: "D001", Method: "pix"})
	require.NoError(t, err)

	_, err = env.service.CreateConsultation(ctx, Request{PatientID: "PAC2", SlotID: "D002", Method: "pix"})
	require.Error(t, err)
	assert.Equal(t, failure.KindIDCollision, failure.KindOf(err))

	slot, _ := env.catalog.FindSlot("D002")
	assert.False(t, slot.Reserved)
	original, ok := env.consultations.Get("CON-same")
	require.True(t, ok)
	assert.Equal(t, "PAC1", original.PatientID)
	assert.Equal(t, 1, env.ledger.Len())
}

func TestReservationsSurviveRestart(t *testing.T) {
	backend := newFlakyBackend()
	first := newTestEnv(t, backend)
	_, err := first.service.CreateConsultation(context.Background(), Request{PatientID: "PAC1", SlotID: "D001", Method: "pix"})
	require.NoError(t, err)

	second := newTestEnv(t, backend)
	slot, _ := second.catalog.FindSlot("D001")
	assert.True(t, slot.Reserved)
	assert.Equal(t, 1, second.consultations.Len())

	_, err = second.service.CreateConsultation(context.Background(), Request{PatientID: "PAC2", SlotID: "D001", Method: "pix"})
	assert.Equal(t, failure.KindSlotUnavailable, failure.KindOf(err))
}

func TestCreateConsultationSeesPeerBookings(t *testing.T) {
	backend := newFlakyBackend()
	tabA := newTestEnv(t, backend)
	tabB := newTestEnv(t, backend)

	_, err := tabA.service.CreateConsultation(context.Background(), Request{PatientID: "PAC1", SlotID: "D004", Method: "debit"})
	require.NoError(t, err)

	// tabB has stale in-memory state but reloads before reserving.
	_, err = tabB.service.CreateConsultation(context.Background(), Request{PatientID: "PAC2", SlotID: "D004", Method: "debit"})
	assert.Equal(t, failure.KindSlotUnavailable, failure.KindOf(err))
}
