package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// EventPipeline is the publisher handed to the core plus whatever runs
// behind it.
type EventPipeline struct {
	Publisher events.Publisher
	// Deliverer relays outbox rows to the configured transport. Nil unless
	// EVENTS_BACKEND is "outbox".
	Deliverer *events.Deliverer
	closers   []func() error
}

// Start runs the outbox deliverer in the background when there is one.
func (p *EventPipeline) Start(ctx context.Context) {
	if p == nil || p.Deliverer == nil {
		return
	}
	go p.Deliverer.Start(ctx)
}

// Close releases transport connections.
func (p *EventPipeline) Close() {
	if p == nil {
		return
	}
	for i := len(p.closers) - 1; i >= 0; i-- {
		_ = p.closers[i]()
	}
}

// BuildPublisher builds the domain event pipeline named by EVENTS_BACKEND.
// With the outbox backend events are written to Postgres and relayed to
// EVENTS_RELAY by the pipeline's Deliverer.
func BuildPublisher(cfg *appconfig.Config, clients Clients, logger *logging.Logger) (*EventPipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	pipeline := &EventPipeline{}
	if cfg.EventsBackend != appconfig.EventsOutbox {
		publisher, err := buildTransport(cfg.EventsBackend, cfg, clients, logger, pipeline)
		if err != nil {
			return nil, err
		}
		pipeline.Publisher = publisher
		logger.Info("event publisher selected", "backend", cfg.EventsBackend)
		return pipeline, nil
	}

	if clients.Postgres == nil {
		return nil, fmt.Errorf("bootstrap: events backend %q requires DATABASE_URL", cfg.EventsBackend)
	}
	if cfg.EventsRelay == appconfig.EventsOutbox {
		return nil, fmt.Errorf("bootstrap: EVENTS_RELAY cannot be %q", cfg.EventsRelay)
	}
	relay, err := buildTransport(cfg.EventsRelay, cfg, clients, logger, pipeline)
	if err != nil {
		pipeline.Close()
		return nil, err
	}
	outbox := events.NewOutboxStore(clients.Postgres)
	pipeline.Publisher = events.NewOutboxPublisher(outbox)
	deliverer := events.NewDeliverer(outbox, relay, logger.WithComponent("outbox"))
	if cfg.OutboxRelayInterval > 0 {
		deliverer = deliverer.WithInterval(cfg.OutboxRelayInterval)
	}
	pipeline.Deliverer = deliverer
	logger.Info("event publisher selected", "backend", cfg.EventsBackend, "relay", cfg.EventsRelay)
	return pipeline, nil
}

func buildTransport(kind string, cfg *appconfig.Config, clients Clients, logger *logging.Logger, pipeline *EventPipeline) (events.Publisher, error) {
	switch kind {
	case appconfig.EventsNone:
		return events.NopPublisher{}, nil
	case "", appconfig.EventsLog:
		return events.NewLogPublisher(logger.WithComponent("events")), nil
	case appconfig.EventsSQS:
		if clients.AWS == nil {
			return nil, fmt.Errorf("bootstrap: events transport %q requires AWS configuration", kind)
		}
		if strings.TrimSpace(cfg.EventsQueueURL) == "" {
			return nil, fmt.Errorf("bootstrap: events transport %q requires EVENTS_QUEUE_URL", kind)
		}
		return events.NewSQSPublisher(sqs.NewFromConfig(*clients.AWS), cfg.EventsQueueURL), nil
	case appconfig.EventsAMQP:
		if strings.TrimSpace(cfg.AMQPURL) == "" {
			return nil, fmt.Errorf("bootstrap: events transport %q requires AMQP_URL", kind)
		}
		publisher, err := events.DialAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: dial amqp: %w", err)
		}
		pipeline.closers = append(pipeline.closers, publisher.Close)
		return publisher, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown events transport %q", kind)
	}
}
