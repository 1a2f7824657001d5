package ratings

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-scheduler/internal/consultations"
	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/ids"
	"github.com/wolfman30/clinic-scheduler/internal/persistence"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var ratingsTracer = otel.Tracer("clinic.internal.ratings")

// Service rates completed consultations.
type Service struct {
	adapter       *persistence.Adapter
	consultations *consultations.Store
	ratings       *Store
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

// NewService constructs a ratings service. The ratings store must be one of the
// adapter's collections.
func NewService(adapter *persistence.Adapter, cs *consultations.Store, rs *Store, opts ...Option) *Service {
	if adapter == nil || cs == nil || rs == nil {
		panic("ratings: adapter, consultation store and ratings store required")
	}
	s := &Service{
		adapter:       adapter,
		consultations: cs,
		ratings:       rs,
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

// Rate records score for a completed consultation. When patientID is set it
// must match the consultation's patient.
func (s *Service) Rate(ctx context.Context, consultationID, patientID string, score int, comment string) (Rating, error) {
	ctx, span := ratingsTracer.Start(ctx, "ratings.rate")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.consultation_id", consultationID))

	if score < MinScore || score > MaxScore {
		return Rating{}, failure.New(failure.KindInvalidInput, "score must be between %d and %d", MinScore, MaxScore)
	}
	id, err := s.newID(ids.RatingPrefix)
	if err != nil {
		return Rating{}, failure.Wrap(failure.KindInternal, err, "generate rating id")
	}

	var created Rating
	err = s.adapter.WithFreshState(ctx, func(tx *persistence.Tx) error {
		c, ok := s.consultations.Get(consultationID)
		if !ok {
			return failure.New(failure.KindNotFound, "consultation %s not found", consultationID)
		}
		if p := strings.TrimSpace(patientID); p != "" && p != c.PatientID {
			return failure.New(failure.KindNotFound, "consultation %s not found", consultationID)
		}
		if c.Status != consultations.StatusCompleted {
			return failure.New(failure.KindConflict, "consultation %s is %s, only completed consultations can be rated", c.ID, c.Status)
		}
		r, err := s.ratings.Create(Rating{
			ID:             id,
			ConsultationID: c.ID,
			PatientID:      c.PatientID,
			Score:          score,
			Comment:        comment,
			CreatedAt:      s.now(),
		})
		if err != nil {
			return err
		}
		tx.OnRollback(func() { s.ratings.Delete(r.ID) })
		created = r
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return Rating{}, err
	}

	s.logger.Info("consultation rated", "rating_id", created.ID, "consultation_id", created.ConsultationID, "score", created.Score)
	if err := s.publisher.Publish(ctx, events.TypeConsultationRated, events.ConsultationRatedV1{
		RatingID:       created.ID,
		ConsultationID: created.ConsultationID,
		Score:          created.Score,
		RatedAt:        created.CreatedAt,
	}); err != nil {
		s.logger.Error("failed to publish event", "type", events.TypeConsultationRated, "error", err)
	}
	return created, nil
}

// ListRateable returns the patient's completed consultations without a rating.
func (s *Service) ListRateable(ctx context.Context, patientID string) []consultations.Consultation {
	out := []consultations.Consultation{}
	s.adapter.View(ctx, func() {
		for _, c := range s.consultations.ListByPatient(patientID) {
			if c.Status != consultations.StatusCompleted {
				continue
			}
			if _, rated := s.ratings.ForConsultation(c.ID); !rated {
				out = append(out, c)
			}
		}
	})
	return out
}

// ForConsultation returns the rating of a consultation.
func (s *Service) ForConsultation(ctx context.Context, consultationID string) (Rating, bool) {
	var (
		r  Rating
		ok bool
	)
	s.adapter.View(ctx, func() {
		r, ok = s.ratings.ForConsultation(consultationID)
	})
	return r, ok
}

// Average returns the clinic-wide mean score and rating count.
func (s *Service) Average(ctx context.Context) (float64, int) {
	var (
		avg   float64
		count int
	)
	s.adapter.View(ctx, func() {
		avg, count = s.ratings.Average()
	})
	return avg, count
}
