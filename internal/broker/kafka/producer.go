package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"image-enhancer/internal/domain"

	wbkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
)

type messageSender interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key, value []byte) error
	Close() error
}

// EventProducer writes lifecycle events to the job events topic, keyed by
// job id so a job's events stay on one partition.
type EventProducer struct {
	producer messageSender
	retries  retry.Strategy
}

func NewEventProducer(brokers []string, topic string, retries retry.Strategy) *EventProducer {
	return &EventProducer{
		producer: wbkafka.NewProducer(brokers, topic),
		retries:  retries,
	}
}

func (p *EventProducer) Publish(ctx context.Context, event domain.LifecycleEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	if err := p.producer.SendWithRetry(ctx, p.retries, []byte(event.JobID), value); err != nil {
		return fmt.Errorf("failed to send %s event: %w", event.Type, err)
	}
	return nil
}

func (p *EventProducer) Close() error {
	return p.producer.Close()
}
