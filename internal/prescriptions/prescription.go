// Package prescriptions records what a practitioner prescribed at a
// consultation. A consultation carries at most one prescription.
package prescriptions

import (
	"strings"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/store"
)

const maxNotesLength = 2000

// Medication is one line of a prescription.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Quantity  string `json:"quantity,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// Prescription is issued by the practitioner who owns the consultation's slot.
type Prescription struct {
	ID             string       `json:"id"`
	ConsultationID string       `json:"consultation_id"`
	PatientID      string       `json:"patient_id"`
	PractitionerID string       `json:"practitioner_id,omitempty"`
	Medications    []Medication `json:"medications"`
	Notes          string       `json:"notes,omitempty"`
	IssuedAt       time.Time    `json:"issued_at"`
}

// Store holds prescriptions keyed by id.
type Store struct {
	repo store.Repository[Prescription]
}

// NewStore wraps a repository. A nil repo gets an in-memory one.
func NewStore(repo store.Repository[Prescription]) *Store {
	if repo == nil {
		repo = store.NewMemory[Prescription]()
	}
	return &Store{repo: repo}
}

// Create normalizes and inserts p. Medication lines without a name or a
// dosage are dropped; at least one complete line must remain.
func (s *Store) Create(p Prescription) (Prescription, error) {
	if p.ID == "" || p.ConsultationID == "" {
		return Prescription{}, failure.New(failure.KindInvalidInput, "prescription requires id and consultation")
	}
	p.Medications = normalizeMedications(p.Medications)
	if len(p.Medications) == 0 {
		return Prescription{}, failure.New(failure.KindInvalidInput, "at least one medication with name and dosage is required")
	}
	p.Notes = strings.TrimSpace(p.Notes)
	if len(p.Notes) > maxNotesLength {
		return Prescription{}, failure.New(failure.KindInvalidInput, "notes exceed %d characters", maxNotesLength)
	}
	if _, exists := s.repo.Get(p.ID); exists {
		return Prescription{}, failure.New(failure.KindIDCollision, "prescription id %s already exists", p.ID)
	}
	if _, issued := s.GetByConsultation(p.ConsultationID); issued {
		return Prescription{}, failure.New(failure.KindConflict, "consultation %s already has a prescription", p.ConsultationID)
	}
	s.repo.Put(p.ID, p)
	return p, nil
}

func (s *Store) Get(id string) (Prescription, bool) {
	return s.repo.Get(id)
}

// GetByConsultation returns the prescription issued for consultationID.
func (s *Store) GetByConsultation(consultationID string) (Prescription, bool) {
	for _, p := range s.repo.List() {
		if p.ConsultationID == consultationID {
			return p, true
		}
	}
	return Prescription{}, false
}

// ListByPatient returns the patient's prescriptions in issue order.
func (s *Store) ListByPatient(patientID string) []Prescription {
	out := []Prescription{}
	for _, p := range s.repo.List() {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) List() []Prescription {
	return s.repo.List()
}

func (s *Store) Delete(id string) {
	s.repo.Delete(id)
}

func normalizeMedications(in []Medication) []Medication {
	out := make([]Medication, 0, len(in))
	for _, m := range in {
		m = Medication{
			Name:      strings.TrimSpace(m.Name),
			Dosage:    strings.TrimSpace(m.Dosage),
			Quantity:  strings.TrimSpace(m.Quantity),
			Frequency: strings.TrimSpace(m.Frequency),
			Duration:  strings.TrimSpace(m.Duration),
		}
		if m.Name == "" || m.Dosage == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}
