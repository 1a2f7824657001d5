// Package notify emails practitioners when their consultations are booked or
// cancelled.
package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Service turns consultation events into practitioner emails.
type Service struct {
	email   EmailSender
	catalog *scheduling.Catalog
	logger  *logging.Logger
}

func NewService(email EmailSender, catalog *scheduling.Catalog, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, catalog: catalog, logger: logger}
}

type appointment struct {
	practitioner scheduling.Practitioner
	date         string
	weekday      string
	timeRange    string
}

func (s *Service) lookup(slotID string) (appointment, bool) {
	slot, ok := s.catalog.FindSlot(slotID)
	if !ok {
		return appointment{}, false
	}
	tmpl, ok := s.catalog.Template(slot.TemplateID)
	if !ok {
		return appointment{}, false
	}
	doc, ok := s.catalog.Practitioner(tmpl.PractitionerID)
	if !ok || doc.Email == "" {
		return appointment{}, false
	}
	return appointment{practitioner: doc, date: slot.Date, weekday: tmpl.Weekday, timeRange: tmpl.TimeRange()}, true
}

// NotifyBooked tells the practitioner about a new consultation.
func (s *Service) NotifyBooked(ctx context.Context, evt events.ConsultationBookedV1) error {
	appt, ok := s.lookup(evt.SlotID)
	if !ok {
		s.logger.Debug("notify: no practitioner email for slot", "slot_id", evt.SlotID)
		return nil
	}
	subject := fmt.Sprintf("New consultation on %s (%s)", appt.date, appt.timeRange)
	body := fmt.Sprintf(`%s,

A consultation was booked with you.

Date: %s (%s)
Time: %s
Patient: %s
Consultation: %s
Amount: %s (%s, pending)
`, appt.practitioner.Name, appt.date, appt.weekday, appt.timeRange, evt.PatientID, evt.ConsultationID, formatCents(evt.AmountCents), evt.Method)

	htmlBody := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2>New consultation</h2>
<p>%s, a consultation was booked with you.</p>
<table style="border-collapse: collapse; margin: 20px 0;">
  <tr><td style="padding: 8px;"><strong>Date:</strong></td><td style="padding: 8px;">%s (%s)</td></tr>
  <tr><td style="padding: 8px;"><strong>Time:</strong></td><td style="padding: 8px;">%s</td></tr>
  <tr><td style="padding: 8px;"><strong>Patient:</strong></td><td style="padding: 8px;">%s</td></tr>
  <tr><td style="padding: 8px;"><strong>Amount:</strong></td><td style="padding: 8px;">%s</td></tr>
</table>
</div>`,
		escape(appt.practitioner.Name), escape(appt.date), escape(appt.weekday), escape(appt.timeRange),
		escape(evt.PatientID), formatCents(evt.AmountCents))

	return s.send(ctx, appt, events.TypeConsultationBooked, subject, body, htmlBody, evt.ConsultationID)
}

// NotifyCancelled tells the practitioner a consultation was cancelled and the
// slot is free again.
func (s *Service) NotifyCancelled(ctx context.Context, evt events.ConsultationStatusChangedV1) error {
	appt, ok := s.lookup(evt.SlotID)
	if !ok {
		s.logger.Debug("notify: no practitioner email for slot", "slot_id", evt.SlotID)
		return nil
	}
	subject := fmt.Sprintf("Consultation cancelled on %s (%s)", appt.date, appt.timeRange)
	body := fmt.Sprintf(`%s,

The consultation %s on %s (%s) at %s was cancelled. The slot is open again.
`, appt.practitioner.Name, evt.ConsultationID, appt.date, appt.weekday, appt.timeRange)

	htmlBody := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2>Consultation cancelled</h2>
<p>%s, the consultation on <strong>%s (%s)</strong> at <strong>%s</strong> was cancelled. The slot is open again.</p>
</div>`, escape(appt.practitioner.Name), escape(appt.date), escape(appt.weekday), escape(appt.timeRange))

	return s.send(ctx, appt, events.TypeConsultationCancelled, subject, body, htmlBody, evt.ConsultationID)
}

func (s *Service) send(ctx context.Context, appt appointment, category, subject, body, htmlBody, consultationID string) error {
	if s.email == nil {
		return nil
	}
	msg := EmailMessage{
		To:             appt.practitioner.Email,
		ToName:         appt.practitioner.Name,
		Subject:        subject,
		Body:           body,
		HTML:           htmlBody,
		Category:       category,
		ConsultationID: consultationID,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("notify: failed to send email", "error", err, "to", msg.To, "consultation_id", consultationID)
		return fmt.Errorf("notify: send: %w", err)
	}
	s.logger.Info("notify: practitioner email sent", "to", msg.To, "consultation_id", consultationID)
	return nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func escape(s string) string {
	return html.EscapeString(s)
}
