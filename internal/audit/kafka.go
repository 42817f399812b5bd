package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"condoflow/internal/platform/kafka"
)

// Sink receives events after they are persisted. Sink failures are logged by
// the worker, never propagated to the request path.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// KafkaSink streams audit events to the audit topic, keyed by condominium so
// one condominium's trail stays ordered within a partition.
type KafkaSink struct {
	producer *kafka.Producer
}

func NewKafkaSink(producer *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.producer.Publish(ctx, event.CondominiumID.String(), payload)
}
