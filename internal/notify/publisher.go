package notify

import (
	"context"

	"github.com/wolfman30/clinic-scheduler/internal/events"
)

// Publisher forwards every event to next and emails practitioners about
// bookings and cancellations. Email failures are logged by Service and never
// fail the publish.
type Publisher struct {
	next    events.Publisher
	service *Service
}

var _ events.Publisher = (*Publisher)(nil)

func NewPublisher(next events.Publisher, service *Service) *Publisher {
	if next == nil {
		next = events.NopPublisher{}
	}
	return &Publisher{next: next, service: service}
}

func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) error {
	err := p.next.Publish(ctx, eventType, payload)
	if p.service == nil {
		return err
	}
	switch evt := payload.(type) {
	case events.ConsultationBookedV1:
		_ = p.service.NotifyBooked(ctx, evt)
	case events.ConsultationStatusChangedV1:
		if eventType == events.TypeConsultationCancelled {
			_ = p.service.NotifyCancelled(ctx, evt)
		}
	}
	return err
}
