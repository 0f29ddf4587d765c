// Package kafka carries domain events onto the message bus with
// segmentio/kafka-go.  One writer per process; topics are derived from the
// event type under a configurable prefix.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vigiamx/satavisos/internal/application/events"
	"github.com/vigiamx/satavisos/internal/infrastructure/monitoring/logging"
	"github.com/vigiamx/satavisos/pkg/errors"
)

// Config holds producer connection settings.
type Config struct {
	Brokers      []string      `mapstructure:"brokers"`
	TopicPrefix  string        `mapstructure:"topic_prefix"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
}

// Producer publishes event envelopes.  It implements events.Publisher.
type Producer struct {
	writer *kafka.Writer
	prefix string
	logger logging.Logger
}

// NewProducer builds a producer over the configured brokers.  Topics are
// created by the broker (auto-create) or by migration tooling; the writer
// does not manage them.
func NewProducer(cfg Config, logger logging.Logger) *Producer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 100 * time.Millisecond
	}
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = "satavisos"
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			BatchTimeout: batchTimeout,
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		},
		prefix: prefix,
		logger: logger.Named("kafka"),
	}
}

// Topic returns the full topic name for an event type.
func (p *Producer) Topic(eventType string) string {
	return p.prefix + "." + eventType
}

// Publish serializes the envelope and writes it keyed by organization, so
// per-organization ordering is preserved within a partition.
func (p *Producer) Publish(ctx context.Context, e events.Envelope) error {
	value, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "marshal event envelope")
	}
	msg := kafka.Message{
		Topic: p.Topic(e.Type),
		Key:   []byte(e.OrgID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(e.ID)},
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "write event to kafka").
			WithDetail("topic=" + msg.Topic)
	}
	p.logger.Debug("event published",
		logging.String("topic", msg.Topic),
		logging.String("event_id", e.ID),
	)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
