// Package clinic assembles the scheduling core: the catalog, the durable
// collections, the persistence adapter and the services that operate on them.
package clinic

import (
	"context"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/bookings"
	"github.com/wolfman30/clinic-scheduler/internal/consultations"
	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/internal/ids"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/payments"
	"github.com/wolfman30/clinic-scheduler/internal/persistence"
	"github.com/wolfman30/clinic-scheduler/internal/prescriptions"
	"github.com/wolfman30/clinic-scheduler/internal/ratings"
	"github.com/wolfman30/clinic-scheduler/internal/reconciliation"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/internal/store"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Collection keys in the durable backend.
const (
	CollectionConsultations = "consultations"
	CollectionPayments      = "payments"
	CollectionRatings       = "ratings"
	CollectionPrescriptions = "prescriptions"
)

// Options configures NewCore. Backend is required; everything else has a default.
type Options struct {
	Backend            store.Backend
	Catalog            *scheduling.Catalog
	Publisher          events.Publisher
	Velocity           *bookings.VelocityChecker
	Metrics            *metrics.SchedulingMetrics
	Logger             *logging.Logger
	TransactionTimeout time.Duration
	IDs                ids.Generator
	Clock              func() time.Time
}

// Core is the constructed scheduling core.
type Core struct {
	Catalog        *scheduling.Catalog
	Consultations  *consultations.Store
	Ledger         *payments.Ledger
	Ratings        *ratings.Store
	Prescriptions  *prescriptions.Store
	Adapter        *persistence.Adapter
	Bookings       *bookings.Service
	Reconciliation *reconciliation.Service
	Feedback       *ratings.Service
	Prescribing    *prescriptions.Service

	logger *logging.Logger
}

// NewCore wires the core and loads persisted state. Reservations in the catalog
// are rebuilt from the active consultations after every load.
func NewCore(ctx context.Context, opts Options) *Core {
	if opts.Backend == nil {
		panic("clinic: backend required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = scheduling.NewSeededCatalog()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	newID := opts.IDs
	if newID == nil {
		newID = ids.UUIDv7
	}
	now := opts.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	consultationRepo := store.NewDurable[consultations.Consultation](CollectionConsultations, opts.Backend)
	paymentRepo := store.NewDurable[payments.Payment](CollectionPayments, opts.Backend)
	ratingRepo := store.NewDurable[ratings.Rating](CollectionRatings, opts.Backend)
	prescriptionRepo := store.NewDurable[prescriptions.Prescription](CollectionPrescriptions, opts.Backend)

	c := &Core{
		Catalog:       catalog,
		Consultations: consultations.NewStore(consultationRepo),
		Ledger:        payments.NewLedger(paymentRepo),
		Ratings:       ratings.NewStore(ratingRepo),
		Prescriptions: prescriptions.NewStore(prescriptionRepo),
		logger:        logger,
	}

	c.Adapter = persistence.New(
		[]store.Collection{consultationRepo, paymentRepo, ratingRepo, prescriptionRepo},
		persistence.WithLogger(logger.WithComponent("persistence")),
		persistence.WithMetrics(opts.Metrics),
		persistence.WithTimeout(opts.TransactionTimeout),
	)
	c.Adapter.AfterLoad(c.syncReservations)

	c.Bookings = bookings.NewService(c.Adapter, catalog, c.Consultations, c.Ledger,
		bookings.WithPublisher(publisher),
		bookings.WithVelocity(opts.Velocity),
		bookings.WithIDGenerator(newID),
		bookings.WithMetrics(opts.Metrics),
		bookings.WithLogger(logger.WithComponent("bookings")),
		bookings.WithClock(now),
	)
	c.Reconciliation = reconciliation.NewService(c.Adapter, catalog, c.Consultations, c.Ledger,
		reconciliation.WithPublisher(publisher),
		reconciliation.WithMetrics(opts.Metrics),
		reconciliation.WithLogger(logger.WithComponent("reconciliation")),
		reconciliation.WithClock(now),
	)
	c.Feedback = ratings.NewService(c.Adapter, c.Consultations, c.Ratings,
		ratings.WithPublisher(publisher),
		ratings.WithIDGenerator(newID),
		ratings.WithLogger(logger.WithComponent("ratings")),
		ratings.WithClock(now),
	)
	c.Prescribing = prescriptions.NewService(c.Adapter, catalog, c.Consultations, c.Prescriptions,
		prescriptions.WithPublisher(publisher),
		prescriptions.WithIDGenerator(newID),
		prescriptions.WithLogger(logger.WithComponent("prescriptions")),
		prescriptions.WithClock(now),
	)

	c.Adapter.Load(ctx)
	return c
}

func (c *Core) syncReservations() {
	unknown := c.Catalog.SyncReservations(c.Consultations.ActiveSlotIDs())
	if len(unknown) > 0 {
		c.logger.Warn("active consultations reference unknown slots", "slot_ids", unknown)
	}
}
