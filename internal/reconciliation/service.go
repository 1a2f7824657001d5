// Package reconciliation answers patient-facing queries over consultations and
// drives the post-booking state transitions of consultations and payments.
package reconciliation

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
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/payments"
	"github.com/wolfman30/clinic-scheduler/internal/persistence"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var reconciliationTracer = otel.Tracer("clinic.internal.reconciliation")

// Service reads and transitions consultations and payments.
type Service struct {
	adapter       *persistence.Adapter
	catalog       *scheduling.Catalog
	consultations *consultations.Store
	ledger        *payments.Ledger
	publisher     events.Publisher
	metrics       *metrics.SchedulingMetrics
	logger        *logging.Logger
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
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

// NewService constructs a reconciliation service.
func NewService(adapter *persistence.Adapter, catalog *scheduling.Catalog, store *consultations.Store, ledger *payments.Ledger, opts ...Option) *Service {
	if adapter == nil || catalog == nil || store == nil || ledger == nil {
		panic("reconciliation: adapter, catalog, consultation store and ledger required")
	}
	s := &Service{
		adapter:       adapter,
		catalog:       catalog,
		consultations: store,
		ledger:        ledger,
		publisher:     events.NopPublisher{},
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

// ListForPatient returns every consultation of patientID, enriched, in booking order.
func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]EnrichedConsultation, error) {
	ctx, span := reconciliationTracer.Start(ctx, "reconciliation.list_for_patient")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.patient_id", patientID))

	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, failure.New(failure.KindInvalidInput, "patient id is required")
	}
	out := []EnrichedConsultation{}
	s.adapter.View(ctx, func() {
		for _, c := range s.consultations.ListByPatient(patientID) {
			out = append(out, s.enrich(c))
		}
	})
	return out, nil
}

// ListUpcoming returns the patient's scheduled and confirmed consultations.
func (s *Service) ListUpcoming(ctx context.Context, patientID string) ([]EnrichedConsultation, error) {
	all, err := s.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return filterByStatus(all, consultations.Status.Active), nil
}

// ListHistory returns the patient's completed and cancelled consultations.
func (s *Service) ListHistory(ctx context.Context, patientID string) ([]EnrichedConsultation, error) {
	all, err := s.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return filterByStatus(all, consultations.Status.Terminal), nil
}

// ListByStatus returns the patient's consultations currently in status.
func (s *Service) ListByStatus(ctx context.Context, patientID string, status consultations.Status) ([]EnrichedConsultation, error) {
	all, err := s.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return filterByStatus(all, func(st consultations.Status) bool { return st == status }), nil
}

// Get returns one enriched consultation.
func (s *Service) Get(ctx context.Context, consultationID string) (EnrichedConsultation, error) {
	ctx, span := reconciliationTracer.Start(ctx, "reconciliation.get")
	defer span.End()

	var (
		view  EnrichedConsultation
		found bool
	)
	s.adapter.View(ctx, func() {
		c, ok := s.consultations.Get(consultationID)
		if ok {
			view, found = s.enrich(c), true
		}
	})
	if !found {
		return EnrichedConsultation{}, failure.New(failure.KindNotFound, "consultation %s not found", consultationID)
	}
	return view, nil
}

// ConfirmConsultation moves a scheduled consultation to confirmed.
func (s *Service) ConfirmConsultation(ctx context.Context, consultationID string) (consultations.Consultation, error) {
	return s.transition(ctx, "confirm", consultationID, consultations.StatusConfirmed, events.TypeConsultationConfirmed, nil)
}

// CompleteConsultation moves a confirmed consultation to completed.
func (s *Service) CompleteConsultation(ctx context.Context, consultationID string) (consultations.Consultation, error) {
	return s.transition(ctx, "complete", consultationID, consultations.StatusCompleted, events.TypeConsultationCompleted, nil)
}

// CancelConsultation cancels a scheduled or confirmed consultation, releases its
// slot and cancels its payment if still pending.
func (s *Service) CancelConsultation(ctx context.Context, consultationID string) (consultations.Consultation, error) {
	return s.transition(ctx, "cancel", consultationID, consultations.StatusCancelled, events.TypeConsultationCancelled,
		func(tx *persistence.Tx, c consultations.Consultation, change *events.ConsultationStatusChangedV1) error {
			s.catalog.Release(c.SlotID)
			tx.OnRollback(func() { s.catalog.Reserve(c.SlotID) })

			p, ok := s.ledger.GetByConsultation(c.ID)
			if !ok {
				return nil
			}
			change.PaymentStatus = string(p.Status)
			if p.Status != payments.StatusPending {
				return nil
			}
			cancelled, err := s.ledger.Cancel(p.ID)
			if err != nil {
				return err
			}
			tx.OnRollback(func() { s.ledger.Restore(p) })
			change.PaymentStatus = string(cancelled.Status)
			return nil
		})
}

type sideEffect func(tx *persistence.Tx, c consultations.Consultation, change *events.ConsultationStatusChangedV1) error

func (s *Service) transition(ctx context.Context, name, consultationID string, to consultations.Status, eventType string, effect sideEffect) (result consultations.Consultation, err error) {
	ctx, span := reconciliationTracer.Start(ctx, "reconciliation."+name)
	defer span.End()
	span.SetAttributes(attribute.String("clinic.consultation_id", consultationID))
	defer s.observe(span, name, &err)

	var change events.ConsultationStatusChangedV1
	err = s.adapter.WithFreshState(ctx, func(tx *persistence.Tx) error {
		before, ok := s.consultations.Get(consultationID)
		if !ok {
			return failure.New(failure.KindNotFound, "consultation %s not found", consultationID)
		}
		updated, err := s.consultations.UpdateStatus(consultationID, to)
		if err != nil {
			return err
		}
		tx.OnRollback(func() { s.consultations.Restore(before) })

		change = events.ConsultationStatusChangedV1{
			ConsultationID: updated.ID,
			PatientID:      updated.PatientID,
			SlotID:         updated.SlotID,
			From:           string(before.Status),
			To:             string(updated.Status),
			ChangedAt:      updated.UpdatedAt,
		}
		if effect != nil {
			if err := effect(tx, updated, &change); err != nil {
				return err
			}
		}
		result = updated
		return nil
	})
	if err != nil {
		return consultations.Consultation{}, err
	}

	s.logger.Info("consultation status changed",
		"transition", name,
		"consultation_id", result.ID,
		"from", change.From,
		"to", change.To,
	)
	s.publish(ctx, eventType, change)
	return result, nil
}

// ConfirmPayment settles a pending payment with method and confirms its
// consultation if it is still scheduled.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID, method string) (result payments.Payment, err error) {
	ctx, span := reconciliationTracer.Start(ctx, "reconciliation.confirm_payment")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.payment_id", paymentID))
	defer s.observe(span, "confirm_payment", &err)

	m, ok := payments.ParseMethod(method)
	if !ok {
		return payments.Payment{}, failure.New(failure.KindInvalidInput, "unknown payment method %q", method)
	}

	err = s.adapter.WithFreshState(ctx, func(tx *persistence.Tx) error {
		before, ok := s.ledger.Get(paymentID)
		if !ok {
			return failure.New(failure.KindNotFound, "payment %s not found", paymentID)
		}
		c, ok := s.consultations.Get(before.ConsultationID)
		if !ok {
			return failure.New(failure.KindNotFound, "consultation %s of payment %s not found", before.ConsultationID, paymentID)
		}
		if !c.Status.Active() {
			return failure.New(failure.KindConflict, "consultation %s is %s", c.ID, c.Status)
		}

		paid, err := s.ledger.MarkPaid(paymentID, m, s.now())
		if err != nil {
			return err
		}
		tx.OnRollback(func() { s.ledger.Restore(before) })

		if c.Status == consultations.StatusScheduled {
			if _, err := s.consultations.UpdateStatus(c.ID, consultations.StatusConfirmed); err != nil {
				return err
			}
			tx.OnRollback(func() { s.consultations.Restore(c) })
		}
		result = paid
		return nil
	})
	if err != nil {
		return payments.Payment{}, err
	}

	s.logger.Info("payment confirmed", "payment_id", result.ID, "consultation_id", result.ConsultationID, "method", result.Method)
	s.publish(ctx, events.TypePaymentConfirmed, events.PaymentConfirmedV1{
		PaymentID:      result.ID,
		ConsultationID: result.ConsultationID,
		AmountCents:    result.AmountCents,
		Method:         string(result.Method),
		PaidAt:         s.now(),
	})
	return result, nil
}

func (s *Service) observe(span trace.Span, name string, errp *error) {
	outcome := "success"
	if *errp != nil {
		outcome = string(failure.KindOf(*errp))
		span.RecordError(*errp)
	}
	s.metrics.ObserveTransition(name, outcome)
}

func (s *Service) publish(ctx context.Context, eventType string, payload any) {
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.logger.Error("failed to publish event", "type", eventType, "error", err)
	}
}
