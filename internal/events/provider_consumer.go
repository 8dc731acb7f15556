package events

import (
	"context"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/kafka"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/proto/events"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ProviderServicesProjector records which services each provider offers.
type ProviderServicesProjector interface {
	ApplyProviderServices(ctx context.Context, evt events.ProviderServicesUpdatedEvent) error
}

// ProviderEventConsumer maintains the provider-service catalog.
type ProviderEventConsumer struct {
	consumer  *kafka.Consumer
	projector ProviderServicesProjector
	logger    *zap.Logger
}

// NewProviderEventConsumer creates a new ProviderEventConsumer.
func NewProviderEventConsumer(
	brokers []string,
	groupID string,
	projector ProviderServicesProjector,
	logger *zap.Logger,
) *ProviderEventConsumer {
	return &ProviderEventConsumer{
		consumer:  kafka.NewConsumer(brokers, groupID, events.TopicProviderEvents, logger),
		projector: projector,
		logger:    logger,
	}
}

// Start begins consuming provider events. This blocks until the context is cancelled.
func (c *ProviderEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *ProviderEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *ProviderEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from provider topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil
	}

	if cloudEvent.Type != events.ProviderServicesUpdated {
		c.logger.Debug("ignoring unhandled provider event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
	return apply(ctx, c.logger, cloudEvent, c.projector.ApplyProviderServices)
}
