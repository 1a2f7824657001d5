package events

import (
	"encoding/json"
	"time"
)

const (
	TypeConsultationBooked    = "consultation.booked.v1"
	TypeConsultationConfirmed = "consultation.confirmed.v1"
	TypeConsultationCancelled = "consultation.cancelled.v1"
	TypeConsultationCompleted = "consultation.completed.v1"
	TypePaymentConfirmed      = "payment.confirmed.v1"
	TypeConsultationRated     = "consultation.rated.v1"
	TypePrescriptionIssued    = "prescription.issued.v1"
)

// Envelope is the wire form every transport carries.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type ConsultationBookedV1 struct {
	ConsultationID string    `json:"consultation_id"`
	PaymentID      string    `json:"payment_id"`
	PatientID      string    `json:"patient_id"`
	SlotID         string    `json:"slot_id"`
	AmountCents    int64     `json:"amount_cents"`
	Method         string    `json:"method"`
	BookedAt       time.Time `json:"booked_at"`
}

type ConsultationStatusChangedV1 struct {
	ConsultationID string    `json:"consultation_id"`
	PatientID      string    `json:"patient_id"`
	SlotID         string    `json:"slot_id"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	PaymentStatus  string    `json:"payment_status,omitempty"`
	ChangedAt      time.Time `json:"changed_at"`
}

type PaymentConfirmedV1 struct {
	PaymentID      string    `json:"payment_id"`
	ConsultationID string    `json:"consultation_id"`
	AmountCents    int64     `json:"amount_cents"`
	Method         string    `json:"method"`
	PaidAt         time.Time `json:"paid_at"`
}

type ConsultationRatedV1 struct {
	RatingID       string    `json:"rating_id"`
	ConsultationID string    `json:"consultation_id"`
	Score          int       `json:"score"`
	RatedAt        time.Time `json:"rated_at"`
}

type PrescriptionIssuedV1 struct {
	PrescriptionID string    `json:"prescription_id"`
	ConsultationID string    `json:"consultation_id"`
	PatientID      string    `json:"patient_id"`
	PractitionerID string    `json:"practitioner_id,omitempty"`
	Medications    int       `json:"medications"`
	IssuedAt       time.Time `json:"issued_at"`
}
