package reconciliation

import (
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/consultations"
	"github.com/wolfman30/clinic-scheduler/internal/payments"
)

// EnrichedConsultation is the display-ready join of a consultation with its
// slot, template, practitioner, specialty and payment. Fields whose join is
// missing are left empty.
type EnrichedConsultation struct {
	ID               string               `json:"id"`
	Status           consultations.Status `json:"status"`
	PatientID        string               `json:"patient_id"`
	SlotID           string               `json:"slot_id"`
	CreatedAt        time.Time            `json:"created_at"`
	Date             string               `json:"date,omitempty"`
	Weekday          string               `json:"weekday,omitempty"`
	TimeRange        string               `json:"time_range,omitempty"`
	PractitionerID   string               `json:"practitioner_id,omitempty"`
	PractitionerName string               `json:"practitioner_name,omitempty"`
	SpecialtyName    string               `json:"specialty_name,omitempty"`
	PaymentID        string               `json:"payment_id,omitempty"`
	AmountCents      *int64               `json:"amount_cents,omitempty"`
	PaymentStatus    payments.Status      `json:"payment_status,omitempty"`
	// PaymentMethod, PaidDate and PaidTime are set only once the payment is paid.
	PaymentMethod payments.Method `json:"payment_method,omitempty"`
	PaidDate      string          `json:"paid_date,omitempty"`
	PaidTime      string          `json:"paid_time,omitempty"`
}

func (s *Service) enrich(c consultations.Consultation) EnrichedConsultation {
	view := EnrichedConsultation{
		ID:        c.ID,
		Status:    c.Status,
		PatientID: c.PatientID,
		SlotID:    c.SlotID,
		CreatedAt: c.CreatedAt,
	}

	if slot, ok := s.catalog.FindSlot(c.SlotID); ok {
		view.Date = slot.Date
		if tmpl, ok := s.catalog.Template(slot.TemplateID); ok {
			view.Weekday = tmpl.Weekday
			view.TimeRange = tmpl.TimeRange()
			view.PractitionerID = tmpl.PractitionerID
			if doc, ok := s.catalog.Practitioner(tmpl.PractitionerID); ok {
				view.PractitionerName = doc.Name
				if spec, ok := s.catalog.Specialty(doc.SpecialtyID); ok {
					view.SpecialtyName = spec.Name
				}
			}
		}
	}

	if p, ok := s.ledger.GetByConsultation(c.ID); ok {
		amount := p.AmountCents
		view.PaymentID = p.ID
		view.AmountCents = &amount
		view.PaymentStatus = p.Status
		if p.Paid() {
			view.PaymentMethod = p.Method
			view.PaidDate = p.Date
			view.PaidTime = p.Time
		}
	}
	return view
}

func filterByStatus(in []EnrichedConsultation, keep func(consultations.Status) bool) []EnrichedConsultation {
	out := make([]EnrichedConsultation, 0, len(in))
	for _, v := range in {
		if keep(v.Status) {
			out = append(out, v)
		}
	}
	return out
}
