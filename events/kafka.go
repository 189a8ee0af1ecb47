package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/reserve-attestation-registry/interfaces"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the subset of *kgo.Client used by KafkaSink.
type Producer interface {
	TryProduce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// KafkaSink publishes event envelopes as JSON records. Records for one asset
// share a key so they land on one partition in order.
//
// Emit only hands the record to the client's buffer and never waits for the
// brokers, since registries emit while holding their write lock. Delivery
// failures, including a full buffer, are logged and the event is dropped.
type KafkaSink struct {
	producer Producer
	topic    string
	log      *slog.Logger
	now      func() time.Time
}

// NewKafkaClient connects a franz-go client to the given seed brokers.
// Buffered records are failed after deliveryTimeout.
func NewKafkaClient(brokers []string, clientID string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(0),
		kgo.MaxBufferedRecords(maxBufferedEvents),
		kgo.RecordDeliveryTimeout(deliveryTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}
	return client, nil
}

const (
	maxBufferedEvents = 10_000
	deliveryTimeout   = 30 * time.Second
)

// NewKafkaSink creates a sink producing to topic.
func NewKafkaSink(producer Producer, topic string, log *slog.Logger) *KafkaSink {
	if log == nil {
		log = slog.Default()
	}
	return &KafkaSink{
		producer: producer,
		topic:    topic,
		log:      log,
		now:      time.Now,
	}
}

// Emit encodes event and queues it for production without blocking.
func (s *KafkaSink) Emit(ctx context.Context, event interfaces.Event) {
	env := NewEnvelope(event, s.now())
	value, err := json.Marshal(env)
	if err != nil {
		s.log.Error("Failed to encode event", slog.String("event", env.Name), "err", err)
		return
	}

	record := &kgo.Record{
		Topic: s.topic,
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event", Value: []byte(env.Name)},
		},
	}
	if env.AssetCode != "" {
		record.Key = []byte(env.AssetCode)
	}

	s.producer.TryProduce(context.WithoutCancel(ctx), record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.log.Error("Failed to publish event",
				slog.String("event", env.Name),
				slog.String("event_id", env.ID.String()),
				slog.String("topic", s.topic),
				"err", err)
		}
	})
}
