// Package events publishes storefront domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"storefront/internal/domain"
)

// TypeOrderCompleted is the event type header of completed orders.
const TypeOrderCompleted = "order.completed"

// OrderCompleted is the payload published after a checkout commits.
type OrderCompleted struct {
	Type        string            `json:"type"`
	OrderID     string            `json:"orderId"`
	UserEmail   string            `json:"userEmail"`
	Items       []domain.CartLine `json:"items"`
	Total       string            `json:"total"`
	PointsAdded int64             `json:"pointsAdded"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes events synchronously to one topic.
type Kafka struct {
	writer messageWriter
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
	}}
}

// OrderCompleted keys the message by order id so retries land on the same partition.
func (k *Kafka) OrderCompleted(ctx context.Context, o domain.Order, pointsAdded int64) error {
	payload, err := json.Marshal(OrderCompleted{
		Type:        TypeOrderCompleted,
		OrderID:     o.OrderID,
		UserEmail:   o.UserEmail,
		Items:       o.Items,
		Total:       o.Total.StringFixed(2),
		PointsAdded: pointsAdded,
		CreatedAt:   o.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", TypeOrderCompleted, err)
	}
	msg := kafka.Message{
		Key:     []byte(o.OrderID),
		Value:   payload,
		Headers: []kafka.Header{{Key: "type", Value: []byte(TypeOrderCompleted)}},
		Time:    o.CreatedAt,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TypeOrderCompleted, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Noop drops events. It is used when no brokers are configured.
type Noop struct{}

func (Noop) OrderCompleted(context.Context, domain.Order, int64) error { return nil }

func (Noop) Close() error { return nil }
