package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink publishes audit payloads to the audit topic. Records are keyed by
// the audit entry ID so replays compact cleanly.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects to the brokers and ensures the audit topic exists.
// Returns nil if no brokers are configured (Kafka not wired in this deployment).
func NewKafkaSink(ctx context.Context, brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	// 1 partition is enough; ordering across the whole trail matters more
	// than throughput here.
	if _, err := admin.CreateTopic(ctx, 1, -1, nil, topic); err != nil {
		// Topic already existing is the steady state after first boot.
		if !isTopicExists(err) {
			client.Close()
			return nil, fmt.Errorf("ensure audit topic: %w", err)
		}
	}

	return &KafkaSink{client: client, topic: topic}, nil
}

func isTopicExists(err error) bool {
	if err == nil {
		return false
	}
	// kadm surfaces TOPIC_ALREADY_EXISTS in the error string across broker versions.
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

// Publish produces one audit payload synchronously. The outbox worker calls
// this in batches and only marks rows published after a successful produce.
func (k *KafkaSink) Publish(ctx context.Context, key string, payload []byte) error {
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(key),
		Value: payload,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// Close flushes pending records and releases the client.
func (k *KafkaSink) Close() {
	k.client.Close()
}
