// Package consultations stores patient bookings and enforces their lifecycle.
package consultations

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a consultation.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// Active reports whether the consultation still holds its slot.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var statusAliases = map[string]Status{
	"scheduled":  StatusScheduled,
	"agendada":   StatusScheduled,
	"confirmed":  StatusConfirmed,
	"confirmada": StatusConfirmed,
	"completed":  StatusCompleted,
	"realizada":  StatusCompleted,
	"cancelled":  StatusCancelled,
	"canceled":   StatusCancelled,
	"cancelada":  StatusCancelled,
}

// ParseStatus accepts the canonical names plus the clinic's Portuguese labels.
func ParseStatus(raw string) (Status, bool) {
	s, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// Consultation is a patient's booking of one slot.
type Consultation struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	PatientID string    `json:"patient_id"`
	SlotID    string    `json:"slot_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
