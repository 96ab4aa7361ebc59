package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaPublisher implements the Publisher interface for a Kafka topic.
type kafkaPublisher struct {
	id     string
	writer kafkaWriter
	log    Logger
}

func newKafkaPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Kafka == nil {
		return nil, fmt.Errorf("publisher %q missing kafka configuration", cfg.ID)
	}

	return &kafkaPublisher{
		id: cfg.ID,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Kafka.Brokers...),
			Topic:                  cfg.Kafka.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		},
		log: ensureLogger(log),
	}, nil
}

func (k *kafkaPublisher) ID() string   { return k.id }
func (k *kafkaPublisher) Type() string { return TypeKafka }
func (k *kafkaPublisher) Close() error { return k.writer.Close() }

// Publish writes the event keyed by sanitized number so lookups of one number stay ordered.
func (k *kafkaPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	attrs := evt.Attributes()
	headers := make([]kafka.Header, 0, len(attrs))
	for key, val := range attrs {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(val)})
	}

	msg := kafka.Message{
		Key:     []byte(evt.SanitizedNumber),
		Value:   payload,
		Headers: headers,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		k.log.ErrorObj("kafka publisher send failed", "publisher_kafka_error", map[string]any{
			"publisher_id": k.id,
			"error":        err.Error(),
		})
		return fmt.Errorf("write message to kafka: %w", err)
	}
	k.log.DebugObj("kafka publisher delivered event", "publisher_kafka_delivery", map[string]any{
		"publisher_id": k.id,
		"event_id":     evt.ID,
	})
	return nil
}
