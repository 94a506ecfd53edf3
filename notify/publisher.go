package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"giftboard/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// StreamName is the JetStream stream that carries every published event
	StreamName = "gift_events"
	// SubjectPrefix prefixes every subject, e.g. giftboard.gift_sent
	SubjectPrefix = "giftboard"

	sourceService  = "giftboard"
	publishTimeout = 5 * time.Second
)

// MessagePublisher sends raw payloads to a subject
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Envelope wraps every event sent to the message bus
type Envelope struct {
	EventID       string           `json:"eventId"`
	EventType     events.EventType `json:"eventType"`
	Timestamp     time.Time        `json:"timestamp"`
	SourceService string           `json:"sourceService"`
	Payload       json.RawMessage  `json:"payload"`
}

// EventPublisher forwards committed domain events to the message bus
type EventPublisher struct {
	client MessagePublisher
	now    func() time.Time
}

// NewEventPublisher creates a publisher writing through client
func NewEventPublisher(client MessagePublisher) *EventPublisher {
	return &EventPublisher{client: client, now: time.Now}
}

// SubjectFor maps an event type to its subject
func SubjectFor(eventType events.EventType) string {
	return SubjectPrefix + "." + string(eventType)
}

// Subscribe registers the publisher on bus for the events consumers care about
func (p *EventPublisher) Subscribe(bus *events.Bus) {
	bus.Subscribe(p.handle,
		events.EventTypeGiftSent,
		events.EventTypeGiftCompensated,
		events.EventTypeBalanceChange,
		events.EventTypeCompetitorUpdated,
	)
}

func (p *EventPublisher) handle(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.Publish(ctx, event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to publish event")
	}
}

// Publish wraps event in an envelope and sends it
func (p *EventPublisher) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := Envelope{
		EventID:       uuid.NewString(),
		EventType:     event.Type(),
		Timestamp:     p.now().UTC(),
		SourceService: sourceService,
		Payload:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := SubjectFor(event.Type())
	if err := p.client.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Published event")
	return nil
}
