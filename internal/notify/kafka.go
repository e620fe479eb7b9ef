package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds kafka notifier configuration
type KafkaConfig struct {
	// Brokers is a comma-separated list of broker addresses
	Brokers string `json:"brokers"`
	// Topic is the topic events are published to
	Topic string `json:"topic"`
	// WriteTimeout bounds a single produce call
	WriteTimeout time.Duration `json:"write_timeout"`
}

// KafkaNotifier publishes events to a kafka topic. Events for the same
// project hash to the same partition so consumers see a project's
// transitions in order.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier creates a new kafka notifier
func NewKafkaNotifier(cfg *KafkaConfig) *KafkaNotifier {
	timeout := cfg.WriteTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(cfg.Brokers, ",")...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			WriteTimeout: timeout,
		},
	}
}

// Notify publishes the event, keyed by project ID
func (kn *KafkaNotifier) Notify(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = kn.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ProjectID),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("failed to produce event: %w", err)
	}

	return nil
}

// Close closes the underlying writer
func (kn *KafkaNotifier) Close() error {
	return kn.writer.Close()
}
