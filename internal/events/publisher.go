// Package events publishes order lifecycle events for downstream consumers
// (fulfilment, mail). Publishing is best-effort: the order is already durable
// when an event is emitted.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/magnusbcarlsen/webshop-template-sub000/internal/domain"
)

const orderCreatedEventType = "order.created"

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	msg, err := newOrderCreatedMessage(order)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write order.created: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type orderCreatedPayload struct {
	OrderID           string    `json:"order_id"`
	ExternalSessionID string    `json:"external_session_id"`
	GuestEmail        string    `json:"guest_email"`
	TotalAmount       string    `json:"total_amount"`
	ItemCount         int       `json:"item_count"`
	CreatedAt         time.Time `json:"created_at"`
}

func newOrderCreatedMessage(order domain.Order) (kafka.Message, error) {
	payload, err := json.Marshal(orderCreatedPayload{
		OrderID:           order.ID,
		ExternalSessionID: order.ExternalSessionID,
		GuestEmail:        order.GuestEmail,
		TotalAmount:       order.TotalAmount.StringFixed(2),
		ItemCount:         len(order.Items),
		CreatedAt:         order.CreatedAt,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal order.created: %w", err)
	}
	return kafka.Message{
		Key:   []byte(order.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(orderCreatedEventType)},
		},
	}, nil
}

// Nop satisfies the publisher contract when no broker is configured.
type Nop struct{}

func (Nop) PublishOrderCreated(context.Context, domain.Order) error {
	return nil
}
