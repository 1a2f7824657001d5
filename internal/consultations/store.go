package consultations

import (
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/store"
)

// Store owns consultation records. It does not check slot exclusivity; the
// catalog reservation does.
type Store struct {
	repo store.Repository[Consultation]
	now  func() time.Time
}

// NewStore wraps a repository. A nil repo gets an in-memory one.
func NewStore(repo store.Repository[Consultation]) *Store {
	if repo == nil {
		repo = store.NewMemory[Consultation]()
	}
	return &Store{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a new consultation. An id that already exists is an IDCollision
// and the stored record is left untouched.
func (s *Store) Create(c Consultation) (Consultation, error) {
	if c.ID == "" || c.PatientID == "" || c.SlotID == "" {
		return Consultation{}, failure.New(failure.KindInvalidInput, "consultation requires id, patient and slot")
	}
	if _, exists := s.repo.Get(c.ID); exists {
		return Consultation{}, failure.New(failure.KindIDCollision, "consultation id %s already exists", c.ID)
	}
	if c.Status == "" {
		c.Status = StatusScheduled
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	c.UpdatedAt = c.CreatedAt
	s.repo.Put(c.ID, c)
	return c, nil
}

// Get returns the consultation with id.
func (s *Store) Get(id string) (Consultation, bool) {
	return s.repo.Get(id)
}

// List returns every consultation in insertion order.
func (s *Store) List() []Consultation {
	return s.repo.List()
}

// ListByPatient returns the patient's consultations in booking order.
func (s *Store) ListByPatient(patientID string) []Consultation {
	var out []Consultation
	for _, c := range s.repo.List() {
		if c.PatientID == patientID {
			out = append(out, c)
		}
	}
	return out
}

// UpdateStatus moves a consultation along the lifecycle. Illegal moves return a
// Conflict failure and change nothing.
func (s *Store) UpdateStatus(id string, next Status) (Consultation, error) {
	c, ok := s.repo.Get(id)
	if !ok {
		return Consultation{}, failure.New(failure.KindNotFound, "consultation %s not found", id)
	}
	if !c.Status.CanTransition(next) {
		return Consultation{}, failure.New(failure.KindConflict, "consultation %s cannot move from %s to %s", id, c.Status, next)
	}
	c.Status = next
	c.UpdatedAt = s.now()
	s.repo.Put(id, c)
	return c, nil
}

// Restore writes back a previously read record. Used to undo a mutation.
func (s *Store) Restore(c Consultation) {
	s.repo.Put(c.ID, c)
}

// Delete removes a consultation. Only booking compensation calls this.
func (s *Store) Delete(id string) {
	s.repo.Delete(id)
}

// ActiveSlotIDs lists the slots held by scheduled or confirmed consultations.
func (s *Store) ActiveSlotIDs() []string {
	var ids []string
	for _, c := range s.repo.List() {
		if c.Status.Active() {
			ids = append(ids, c.SlotID)
		}
	}
	return ids
}

// Len reports the number of stored consultations.
func (s *Store) Len() int {
	return len(s.repo.List())
}
