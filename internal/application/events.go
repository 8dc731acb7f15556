package application

import (
	"context"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/kafka"
	"go.uber.org/zap"
)

// ServiceName is the CloudEvents source of everything this service publishes.
const ServiceName = "service-geo"

// EventPublisher publishes domain events. Implementations never fail the caller.
type EventPublisher interface {
	Publish(ctx context.Context, topic, eventType, key string, data interface{})
}

// KafkaEventPublisher publishes CloudEvents through a Kafka producer and only
// logs failures.
type KafkaEventPublisher struct {
	producer *kafka.Producer
	logger   *zap.Logger
}

// NewKafkaEventPublisher creates a new KafkaEventPublisher.
func NewKafkaEventPublisher(producer *kafka.Producer, logger *zap.Logger) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, logger: logger}
}

// Publish wraps data in a CloudEvent keyed by key and writes it to topic.
func (p *KafkaEventPublisher) Publish(ctx context.Context, topic, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(ServiceName, eventType, data)
	if err != nil {
		p.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = key

	if err := p.producer.PublishEvent(ctx, topic, cloudEvent); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

// NoopEventPublisher drops every event.
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, string, string, string, interface{}) {}
