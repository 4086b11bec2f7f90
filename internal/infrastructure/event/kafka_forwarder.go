package event

import (
	"context"
	"fmt"
	"time"

	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the forwarder needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig holds the forwarder settings
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// NewKafkaWriter creates a synchronous writer for the topic. Messages with
// the same key land on the same partition.
func NewKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// KafkaForwarder publishes ledger events to a Kafka topic for external
// consumers. Messages are keyed by aggregate id so that every event of a
// document keeps its order.
type KafkaForwarder struct {
	writer     MessageWriter
	serializer *EventSerializer
	timeout    time.Duration
	logger     *zap.Logger
}

// NewKafkaForwarder creates a forwarder over writer
func NewKafkaForwarder(writer MessageWriter, serializer *EventSerializer, timeout time.Duration, logger *zap.Logger) *KafkaForwarder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaForwarder{
		writer:     writer,
		serializer: serializer,
		timeout:    timeout,
		logger:     logger.Named("kafka_forwarder"),
	}
}

// Publish writes all events in one batch
func (f *KafkaForwarder) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		payload, err := f.serializer.Serialize(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.AggregateID().String()),
			Value: payload,
			Time:  event.OccurredAt(),
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType())},
				{Key: "event_id", Value: []byte(event.EventID().String())},
				{Key: "aggregate_type", Value: []byte(event.AggregateType())},
			},
		})
	}

	writeCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.writer.WriteMessages(writeCtx, msgs...); err != nil {
		return fmt.Errorf("kafka write of %d events failed: %w", len(msgs), err)
	}
	f.logger.Debug("events forwarded", zap.Int("count", len(msgs)))
	return nil
}

// Close closes the underlying writer
func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}

var _ shared.EventPublisher = (*KafkaForwarder)(nil)
