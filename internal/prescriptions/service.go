package prescriptions

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
	"github.com/wolfman30/clinic-scheduler/internal/persistence"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var prescriptionsTracer = otel.Tracer("clinic.internal.prescriptions")

// IssueRequest is what the practitioner fills in after seeing the patient.
type IssueRequest struct {
	ConsultationID string
	Medications    []Medication
	Notes          string
}

// Service issues and looks up prescriptions.
type Service struct {
	adapter       *persistence.Adapter
	catalog       *scheduling.Catalog
	consultations *consultations.Store
	prescriptions *Store
	publisher     events.Publisher
	newID         ids.Generator
	logger        *logging.Logger
	now           func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithIDGenerator(gen ids.Generator) Option {
	return func(s *Service) { s.newID = gen }
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs a prescriptions service. The prescription store must
// be one of the adapter's collections.
func NewService(adapter *persistence.Adapter, catalog *scheduling.Catalog, cs *consultations.Store, ps *Store, opts ...Option) *Service {
	if adapter == nil || catalog == nil || cs == nil || ps == nil {
		panic("prescriptions: adapter, catalog, consultation store and prescription store required")
	}
	s := &Service{
		adapter:       adapter,
		catalog:       catalog,
		consultations: cs,
		prescriptions: ps,
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

// Issue records a prescription for a confirmed or completed consultation.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (Prescription, error) {
	ctx, span := prescriptionsTracer.Start(ctx, "prescriptions.issue")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.consultation_id", req.ConsultationID))

	consultationID := strings.TrimSpace(req.ConsultationID)
	if consultationID == "" {
		return Prescription{}, failure.New(failure.KindInvalidInput, "consultation id is required")
	}
	id, err := s.newID(ids.PrescriptionPrefix)
	if err != nil {
		return Prescription{}, failure.Wrap(failure.KindInternal, err, "generate prescription id")
	}

	var issued Prescription
	err = s.adapter.WithFreshState(ctx, func(tx *persistence.Tx) error {
		c, ok := s.consultations.Get(consultationID)
		if !ok {
			return failure.New(failure.KindNotFound, "consultation %s not found", consultationID)
		}
		if c.Status != consultations.StatusConfirmed && c.Status != consultations.StatusCompleted {
			return failure.New(failure.KindConflict, "consultation %s is %s, prescriptions need a confirmed or completed consultation", c.ID, c.Status)
		}
		p, err := s.prescriptions.Create(Prescription{
			ID:             id,
			ConsultationID: c.ID,
			PatientID:      c.PatientID,
			PractitionerID: s.practitionerFor(c.SlotID),
			Medications:    req.Medications,
			Notes:          req.Notes,
			IssuedAt:       s.now(),
		})
		if err != nil {
			return err
		}
		tx.OnRollback(func() { s.prescriptions.Delete(p.ID) })
		trace.SpanFromContext(tx.Context()).AddEvent("prescription recorded", trace.WithAttributes(attribute.Int("clinic.medications", len(p.Medications))))
		issued = p
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return Prescription{}, err
	}

	s.logger.Info("prescription issued",
		"prescription_id", issued.ID,
		"consultation_id", issued.ConsultationID,
		"practitioner_id", issued.PractitionerID,
		"medications", len(issued.Medications),
	)
	if err := s.publisher.Publish(ctx, events.TypePrescriptionIssued, events.PrescriptionIssuedV1{
		PrescriptionID: issued.ID,
		ConsultationID: issued.ConsultationID,
		PatientID:      issued.PatientID,
		PractitionerID: issued.PractitionerID,
		Medications:    len(issued.Medications),
		IssuedAt:       issued.IssuedAt,
	}); err != nil {
		s.logger.Error("failed to publish event", "type", events.TypePrescriptionIssued, "error", err)
	}
	return issued, nil
}

// Get returns a prescription by id.
func (s *Service) Get(ctx context.Context, id string) (Prescription, error) {
	var (
		p  Prescription
		ok bool
	)
	s.adapter.View(ctx, func() {
		p, ok = s.prescriptions.Get(id)
	})
	if !ok {
		return Prescription{}, failure.New(failure.KindNotFound, "prescription %s not found", id)
	}
	return p, nil
}

// GetByConsultation returns the prescription issued for a consultation.
func (s *Service) GetByConsultation(ctx context.Context, consultationID string) (Prescription, error) {
	var (
		p  Prescription
		ok bool
	)
	s.adapter.View(ctx, func() {
		p, ok = s.prescriptions.GetByConsultation(consultationID)
	})
	if !ok {
		return Prescription{}, failure.New(failure.KindNotFound, "no prescription for consultation %s", consultationID)
	}
	return p, nil
}

// ListForPatient returns the patient's prescriptions in issue order.
func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]Prescription, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, failure.New(failure.KindInvalidInput, "patient id is required")
	}
	var out []Prescription
	s.adapter.View(ctx, func() {
		out = s.prescriptions.ListByPatient(patientID)
	})
	return out, nil
}

func (s *Service) practitionerFor(slotID string) string {
	slot, ok := s.catalog.FindSlot(slotID)
	if !ok {
		return ""
	}
	tmpl, ok := s.catalog.Template(slot.TemplateID)
	if !ok {
		return ""
	}
	return tmpl.PractitionerID
}
