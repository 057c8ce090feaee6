// Package events publishes ledger changes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bepay-gateway/config"
	"bepay-gateway/internal/core/domain"
	"bepay-gateway/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const headerEventType = "event_type"

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements ports.EventPublisher. Messages are keyed by
// transaction id so every event for one transaction lands on one partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	log    zerolog.Logger
}

var _ ports.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher backed by a kafka-go Writer.
func NewKafkaPublisher(cfg config.KafkaConfig, log zerolog.Logger) *KafkaPublisher {
	log = log.With().Str("component", "kafka").Str("topic", cfg.Topic).Logger()

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
		Logger: kafka.LoggerFunc(func(format string, args ...interface{}) {
			log.Debug().Msgf(format, args...)
		}),
		ErrorLogger: kafka.LoggerFunc(func(format string, args ...interface{}) {
			log.Error().Msgf(format, args...)
		}),
	}

	return newKafkaPublisher(w, cfg.Topic, log)
}

func newKafkaPublisher(w messageWriter, topic string, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, log: log}
}

// Publish writes one event and waits for the broker ack.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.TransactionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.TransactionID.String()),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing %s event to %s: %w", event.Type, p.topic, err)
	}

	p.log.Debug().
		Str("tx_id", event.TransactionID.String()).
		Str("event", string(event.Type)).
		Msg("event published")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events. Used when kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.TransactionEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
