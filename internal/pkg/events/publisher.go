// internal/pkg/events/publisher.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// EventType names an order lifecycle event
type EventType string

const (
	OrderPlaced     EventType = "order_placed"
	OrderPaid       EventType = "order_paid"
	OrderCancelled  EventType = "order_cancelled"
	OrderStatus     EventType = "order_status_changed"
	ReturnRequested EventType = "return_requested"
	ReturnReviewed  EventType = "return_reviewed"
	RefundRequired  EventType = "payment_refund_required"
)

// OrderEvent is the JSON payload written to the order events topic
type OrderEvent struct {
	Type          EventType       `json:"type"`
	OrderID       uint            `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status,omitempty"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Publisher delivers order events
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by order number
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
	logger *logrus.Logger
}

// NewKafkaPublisher creates a publisher for brokers and topic
func NewKafkaPublisher(brokers []string, topic string, logger *logrus.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}

	logger.WithFields(logrus.Fields{
		"topic":   topic,
		"brokers": brokers,
	}).Info("Kafka order event publisher initialized")

	return &KafkaPublisher{writer: w, topic: topic, logger: logger}
}

// Publish encodes and writes one event
func (p *KafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderNumber),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s for order %s: %w", event.Type, event.OrderNumber, err)
	}

	p.logger.WithFields(logrus.Fields{
		"type":         event.Type,
		"order_number": event.OrderNumber,
		"topic":        p.topic,
	}).Debug("Order event published")
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }
func (NopPublisher) Close() error                              { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (r *Recorder) Publish(_ context.Context, event OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types returns the recorded event types in order
func (r *Recorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}
