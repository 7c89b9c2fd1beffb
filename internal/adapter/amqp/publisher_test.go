package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bizledger/internal/domain"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type recordingChannel struct {
	sent []published
	err  error
}

func (c *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func sampleEvent() domain.EntryEvent {
	return domain.EntryEvent{
		Type:    domain.EventEntryCreated,
		EntryID: "e1",
		OwnerID: "user-1",
		Payload: domain.PersistencePayload{
			ID:              "e1",
			OwnerID:         "user-1",
			TransactionType: domain.KindIncome,
			Category:        "Serviço",
			Description:     "Consulta",
			Amount:          decimal.NewFromInt(150),
			Date:            "2024-03-01",
			Status:          domain.StatusSettled,
		},
		OccurredAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestEventPublisherRoutesByType(t *testing.T) {
	ch := &recordingChannel{}
	p := NewEventPublisher(ch, "bizledger.entries")

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Len(t, ch.sent, 1)

	sent := ch.sent[0]
	assert.Equal(t, "bizledger.entries", sent.exchange)
	assert.Equal(t, domain.EventEntryCreated, sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)
	assert.Equal(t, "user-1", sent.msg.Headers["owner_id"])

	var decoded domain.EntryEvent
	require.NoError(t, json.Unmarshal(sent.msg.Body, &decoded))
	assert.Equal(t, "e1", decoded.EntryID)
	assert.True(t, decoded.Payload.Amount.Equal(decimal.NewFromInt(150)))
}

func TestEventPublisherWrapsChannelError(t *testing.T) {
	brokerErr := errors.New("channel closed")
	p := NewEventPublisher(&recordingChannel{err: brokerErr}, "bizledger.entries")

	err := p.Publish(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, brokerErr)
	assert.Contains(t, err.Error(), "entry.created")
}
