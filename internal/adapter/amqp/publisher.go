package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iho/bizledger/internal/domain"
)

const publishTimeout = 5 * time.Second

// Channel is the publishing half of an AMQP channel.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// EventPublisher implements usecase.EventPublisher. Events are routed by
// their type, so consumers can bind to "entry.*" or a single mutation kind.
type EventPublisher struct {
	channel  Channel
	exchange string
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(channel Channel, exchange string) *EventPublisher {
	return &EventPublisher{channel: channel, exchange: exchange}
}

// Publish sends event as a persistent JSON message.
func (p *EventPublisher) Publish(ctx context.Context, event domain.EntryEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Type:         event.Type,
			Headers:      amqp.Table{"owner_id": event.OwnerID},
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s for entry %s: %w", event.Type, event.EntryID, err)
	}
	return nil
}
