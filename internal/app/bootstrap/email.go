package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/internal/notify"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// BuildEmailSender selects the practitioner email provider. It returns the
// sender (nil when disabled or misconfigured), the provider name and, when
// nil, the reason.
func BuildEmailSender(cfg *appconfig.Config, clients Clients, logger *logging.Logger) (notify.EmailSender, string, string) {
	if cfg == nil {
		return nil, "", "missing config"
	}
	if logger == nil {
		logger = logging.Default()
	}
	provider := cfg.EmailProvider
	switch provider {
	case "", appconfig.EmailNone:
		return nil, appconfig.EmailNone, "email disabled"
	case appconfig.EmailLog:
		return notify.NewStubEmailSender(logger.WithComponent("email")), provider, ""
	case appconfig.EmailSES, appconfig.EmailSendGrid:
	default:
		return nil, provider, "unknown email provider"
	}

	if strings.TrimSpace(cfg.EmailFrom) == "" {
		return nil, provider, "missing EMAIL_FROM"
	}
	if provider == appconfig.EmailSES {
		if clients.AWS == nil {
			return nil, provider, "missing AWS configuration"
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(*clients.AWS), notify.SESConfig{
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
			ReplyTo:   cfg.EmailReplyTo,
		}, logger.WithComponent("email"))
		return sender, provider, ""
	}

	sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
		ReplyTo:   cfg.EmailReplyTo,
	}, logger.WithComponent("email"))
	if sender == nil {
		return nil, provider, "missing SENDGRID_API_KEY"
	}
	return sender, provider, ""
}

// WrapWithNotifications decorates publisher so practitioners are emailed about
// bookings and cancellations. A nil sender returns publisher unchanged.
func WrapWithNotifications(publisher events.Publisher, sender notify.EmailSender, catalog *scheduling.Catalog, logger *logging.Logger) events.Publisher {
	if sender == nil {
		return publisher
	}
	return notify.NewPublisher(publisher, notify.NewService(sender, catalog, logger))
}
