// Package events publishes normalized order lifecycle events. Publishing is
// best-effort: a failed publish never fails the operation that produced it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tournevent/courierhub/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// StatusEvent is emitted when an order's normalized status changes.
type StatusEvent struct {
	OrderID      string         `json:"orderId"`
	ProviderCode string         `json:"providerCode"`
	OldStatus    courier.Status `json:"oldStatus"`
	NewStatus    courier.Status `json:"newStatus"`
	OccurredAt   time.Time      `json:"occurredAt"`
}

// Publisher emits order status events.
type Publisher interface {
	// PublishStatusChange reports a status transition. Errors are the
	// publisher's to log; callers treat the call as fire-and-forget.
	PublishStatusChange(ctx context.Context, ev StatusEvent)

	// Close flushes and releases the underlying writer.
	Close() error
}

// KafkaPublisher writes status events to a Kafka topic.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *otelzap.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger *otelzap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

func (p *KafkaPublisher) PublishStatusChange(ctx context.Context, ev StatusEvent) {
	value, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("Failed to encode status event", zap.Error(err))
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OrderID),
		Value: value,
	})
	if err != nil {
		p.logger.Warn("Failed to publish status event",
			zap.String("order_id", ev.OrderID),
			zap.Error(err),
		)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishStatusChange(ctx context.Context, ev StatusEvent) {}
func (NoopPublisher) Close() error                                            { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = NoopPublisher{}
)
