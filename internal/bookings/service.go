// Package bookings turns a free slot into a scheduled consultation with a
// pending payment, as one reload-mutate-persist transaction.
package bookings

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-scheduler/internal/consultations"
	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/ids"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/payments"
	"github.com/wolfman30/clinic-scheduler/internal/persistence"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var bookingsTracer = otel.Tracer("clinic.internal.bookings")

// Request describes a booking attempt. A nil AmountCents charges the
// practitioner's list price.
type Request struct {
	PatientID   string
	SlotID      string
	AmountCents *int64
	PaymentDate string
	PaymentTime string
	Method      string
}

// Booking is the outcome of a successful CreateConsultation.
type Booking struct {
	Consultation consultations.Consultation `json:"consultation"`
	Payment      payments.Payment           `json:"payment"`
}

type velocityLimiter interface {
	CheckBookingVelocity(ctx context.Context, patientID string) (*VelocityResult, error)
}

// Service is the only writer of new consultations and payments.
type Service struct {
	adapter       *persistence.Adapter
	catalog       *scheduling.Catalog
	consultations *consultations.Store
	ledger        *payments.Ledger
	publisher     events.Publisher
	velocity      velocityLimiter
	newID         ids.Generator
	metrics       *metrics.SchedulingMetrics
	logger        *logging.Logger
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithVelocity enables per-patient rate limiting.
func WithVelocity(v *VelocityChecker) Option {
	return func(s *Service) {
		if v != nil {
			s.velocity = v
		}
	}
}

func WithIDGenerator(gen ids.Generator) Option {
	return func(s *Service) { s.newID = gen }
}

func WithMetrics(m *metrics.SchedulingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs a bookings service.
func NewService(adapter *persistence.Adapter, catalog *scheduling.Catalog, store *consultations.Store, ledger *payments.Ledger, opts ...Option) *Service {
	if adapter == nil || catalog == nil || store == nil || ledger == nil {
		panic("bookings: adapter, catalog, consultation store and ledger required")
	}
	s := &Service{
		adapter:       adapter,
		catalog:       catalog,
		consultations: store,
		ledger:        ledger,
		publisher:     events.NopPublisher{},
		newID:         ids.UUIDv7,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	return s
}

// CreateConsultation reserves the slot and records a scheduled consultation
// with a pending payment. Any failure after the reservation releases the slot
// and removes the records created so far.
func (s *Service) CreateConsultation(ctx context.Context, req Request) (booking *Booking, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.create_consultation")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.patient_id", req.PatientID),
		attribute.String("clinic.slot_id", req.SlotID),
	)
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = string(failure.KindOf(err))
			span.RecordError(err)
		}
		s.metrics.ObserveBooking(outcome)
	}()

	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		return nil, failure.New(failure.KindInvalidInput, "patient id is required")
	}
	if strings.TrimSpace(req.SlotID) == "" {
		return nil, failure.New(failure.KindInvalidInput, "slot id is required")
	}
	method, ok := payments.ParseMethod(req.Method)
	if !ok {
		return nil, failure.New(failure.KindInvalidInput, "unknown payment method %q", req.Method)
	}
	if req.AmountCents != nil && *req.AmountCents < 0 {
		return nil, failure.New(failure.KindInvalidInput, "amount must not be negative")
	}
	now := s.now()
	payDate, payTime, err := paymentSchedule(req, now)
	if err != nil {
		return nil, err
	}

	if s.velocity != nil {
		result, err := s.velocity.CheckBookingVelocity(ctx, patientID)
		if err == nil && result != nil && !result.Allowed {
			return nil, failure.New(failure.KindRateLimited, "%s", result.Message)
		}
	}

	err = s.adapter.WithFreshState(ctx, func(tx *persistence.Tx) error {
		slot, ok := s.catalog.FindSlot(req.SlotID)
		if !ok {
			return failure.New(failure.KindSlotNotFound, "slot %s not found", req.SlotID)
		}
		if slot.Reserved {
			return failure.New(failure.KindSlotUnavailable, "slot %s is already reserved", slot.ID)
		}
		if !s.catalog.Reserve(slot.ID) {
			return failure.New(failure.KindSlotUnavailable, "slot %s was reserved concurrently", slot.ID)
		}
		tx.OnRollback(func() { s.catalog.Release(slot.ID) })
		trace.SpanFromContext(tx.Context()).AddEvent("slot reserved", trace.WithAttributes(attribute.String("clinic.slot_id", slot.ID)))

		amount := s.listPrice(slot)
		if req.AmountCents != nil {
			amount = *req.AmountCents
		}

		consultationID, err := s.newID(ids.ConsultationPrefix)
		if err != nil {
			return failure.Wrap(failure.KindInternal, err, "generate consultation id")
		}
		c, err := s.consultations.Create(consultations.Consultation{
			ID:        consultationID,
			Status:    consultations.StatusScheduled,
			PatientID: patientID,
			SlotID:    slot.ID,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		tx.OnRollback(func() { s.consultations.Delete(c.ID) })

		paymentID, err := s.newID(ids.PaymentPrefix)
		if err != nil {
			return failure.Wrap(failure.KindInternal, err, "generate payment id")
		}
		p, err := s.ledger.Create(payments.Payment{
			ID:             paymentID,
			AmountCents:    amount,
			Date:           payDate,
			Time:           payTime,
			Method:         method,
			Status:         payments.StatusPending,
			ConsultationID: c.ID,
		})
		if err != nil {
			return err
		}
		tx.OnRollback(func() { s.ledger.Delete(p.ID) })

		booking = &Booking{Consultation: c, Payment: p}
		return nil
	})
	if err != nil {
		s.logger.Warn("booking failed", "patient_id", patientID, "slot_id", req.SlotID, "kind", failure.KindOf(err), "error", err)
		return nil, err
	}

	s.logger.Info("consultation booked",
		"consultation_id", booking.Consultation.ID,
		"payment_id", booking.Payment.ID,
		"patient_id", patientID,
		"slot_id", booking.Consultation.SlotID,
	)
	s.publish(ctx, events.TypeConsultationBooked, events.ConsultationBookedV1{
		ConsultationID: booking.Consultation.ID,
		PaymentID:      booking.Payment.ID,
		PatientID:      patientID,
		SlotID:         booking.Consultation.SlotID,
		AmountCents:    booking.Payment.AmountCents,
		Method:         string(booking.Payment.Method),
		BookedAt:       now,
	})
	return booking, nil
}

func (s *Service) listPrice(slot scheduling.AvailableSlot) int64 {
	tmpl, ok := s.catalog.Template(slot.TemplateID)
	if !ok {
		return 0
	}
	doc, ok := s.catalog.Practitioner(tmpl.PractitionerID)
	if !ok {
		return 0
	}
	return doc.PriceCents
}

func (s *Service) publish(ctx context.Context, eventType string, payload any) {
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.logger.Error("failed to publish event", "type", eventType, "error", err)
	}
}

func paymentSchedule(req Request, now time.Time) (string, string, error) {
	date := strings.TrimSpace(req.PaymentDate)
	clock := strings.TrimSpace(req.PaymentTime)
	if date == "" {
		date = now.Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", "", failure.New(failure.KindInvalidInput, "payment date must be YYYY-MM-DD")
	}
	if clock == "" {
		clock = now.Format("15:04")
	} else if _, err := time.Parse("15:04", clock); err != nil || len(clock) != 5 {
		return "", "", failure.New(failure.KindInvalidInput, "payment time must be HH:MM")
	}
	return date, clock, nil
}
