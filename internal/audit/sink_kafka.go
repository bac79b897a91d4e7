package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink fans persisted audit events out to a Kafka topic for external
// compliance and SIEM consumers. The engine only produces; topic
// administration belongs to the platform.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects to the given seed brokers. Seeds is a
// comma-separated broker list.
func NewKafkaSink(seeds, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(seeds, ",")...),
		kgo.ProducerBatchMaxBytes(1<<20),
		kgo.ProduceRequestTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

type sinkRecord struct {
	Category   string            `json:"category"`
	Timestamp  time.Time         `json:"timestamp"`
	Actor      string            `json:"actor"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Reason     string            `json:"reason,omitempty"`
	Detail     map[string]string `json:"detail,omitempty"`
}

// Publish produces one event. Records are keyed by entity so consumers see
// per-entity ordering.
func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(sinkRecord{
		Category:   string(event.Category),
		Timestamp:  event.Timestamp,
		Actor:      event.Actor,
		Action:     string(event.Action),
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Reason:     event.Reason,
		Detail:     event.Detail,
	})
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.EntityType + ":" + event.EntityID),
		Value: value,
	}
	return s.client.ProduceSync(ctx, record).FirstErr()
}

// Close flushes pending records and releases the client.
func (s *KafkaSink) Close() {
	s.client.Close()
}
