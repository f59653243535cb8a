package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"attest/internal/platform/kafka/producer"
)

// KafkaSink ships audit events to a Kafka topic, keyed by credential id so
// one credential's history stays ordered within a partition.
type KafkaSink struct {
	producer *producer.Producer
	topic    string
}

func NewKafkaSink(p *producer.Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.CredentialID),
		Value: value,
		Headers: map[string]string{
			"action": string(event.Action),
		},
	})
}

var _ Sink = (*KafkaSink)(nil)
