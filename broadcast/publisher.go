package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"casino/events"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Envelope wraps every outbound message so consumers can route and dedupe
// without parsing the payload.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Publisher bridges the in-process event bus onto NATS. The push is strictly
// one-way: nothing flows from NATS back into settlement.
type Publisher struct {
	nc *nats.Conn
}

// subjectFor maps event types to NATS subjects
func subjectFor(eventType events.EventType) string {
	switch eventType {
	case events.EventTypeRoundTick:
		return "casino.round.tick"
	case events.EventTypeRoundCrashed:
		return "casino.round.crashed"
	case events.EventTypeSessionResolved:
		return "casino.session.resolved"
	case events.EventTypeBetPlaced:
		return "casino.session.bet"
	default:
		return fmt.Sprintf("casino.events.%s", eventType)
	}
}

// Connect establishes the NATS connection
func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("casino"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.WithField("url", url).Info("Connected to NATS")
	return &Publisher{nc: nc}, nil
}

// Attach subscribes the publisher to the broadcast-worthy event types
func (p *Publisher) Attach(bus *events.Bus) {
	for _, eventType := range []events.EventType{
		events.EventTypeRoundTick,
		events.EventTypeRoundCrashed,
		events.EventTypeSessionResolved,
		events.EventTypeBetPlaced,
	} {
		bus.Subscribe(eventType, p.handle)
	}
}

func (p *Publisher) handle(ctx context.Context, event events.Event) {
	if err := p.publish(event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to broadcast event")
	}
}

func (p *Publisher) publish(event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := Envelope{
		EventID:   uuid.NewString(),
		EventType: string(event.Type()),
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	subject := subjectFor(event.Type())
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Broadcast event")
	return nil
}

// Close drains and closes the NATS connection
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
		log.Info("NATS connection closed")
	}
}
