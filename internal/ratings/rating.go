// Package ratings records patient feedback on completed consultations.
package ratings

import (
	"strings"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/store"
)

const (
	MinScore = 1
	MaxScore = 5

	maxCommentLength = 1000
)

// Rating is one patient's score for a consultation.
type Rating struct {
	ID             string    `json:"id"`
	ConsultationID string    `json:"consultation_id"`
	PatientID      string    `json:"patient_id"`
	Score          int       `json:"score"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store holds ratings, at most one per consultation.
type Store struct {
	repo store.Repository[Rating]
}

// NewStore wraps a repository. A nil repo gets an in-memory one.
func NewStore(repo store.Repository[Rating]) *Store {
	if repo == nil {
		repo = store.NewMemory[Rating]()
	}
	return &Store{repo: repo}
}

// Create validates and inserts r.
func (s *Store) Create(r Rating) (Rating, error) {
	if r.ID == "" || r.ConsultationID == "" {
		return Rating{}, failure.New(failure.KindInvalidInput, "rating requires id and consultation")
	}
	if r.Score < MinScore || r.Score > MaxScore {
		return Rating{}, failure.New(failure.KindInvalidInput, "score must be between %d and %d", MinScore, MaxScore)
	}
	r.Comment = strings.TrimSpace(r.Comment)
	if len(r.Comment) > maxCommentLength {
		return Rating{}, failure.New(failure.KindInvalidInput, "comment exceeds %d characters", maxCommentLength)
	}
	if _, exists := s.repo.Get(r.ID); exists {
		return Rating{}, failure.New(failure.KindIDCollision, "rating id %s already exists", r.ID)
	}
	if _, rated := s.ForConsultation(r.ConsultationID); rated {
		return Rating{}, failure.New(failure.KindConflict, "consultation %s already rated", r.ConsultationID)
	}
	s.repo.Put(r.ID, r)
	return r, nil
}

// ForConsultation returns the rating left for consultationID, if any.
func (s *Store) ForConsultation(consultationID string) (Rating, bool) {
	for _, r := range s.repo.List() {
		if r.ConsultationID == consultationID {
			return r, true
		}
	}
	return Rating{}, false
}

func (s *Store) List() []Rating {
	return s.repo.List()
}

func (s *Store) Delete(id string) {
	s.repo.Delete(id)
}

// Average returns the mean score and the number of ratings. It is 0 when there are none.
func (s *Store) Average() (float64, int) {
	all := s.repo.List()
	if len(all) == 0 {
		return 0, 0
	}
	total := 0
	for _, r := range all {
		total += r.Score
	}
	return float64(total) / float64(len(all)), len(all)
}
