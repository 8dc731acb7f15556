package events

import (
	"context"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/kafka"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/proto/events"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// BookingProjector applies upstream booking events to the local projection.
type BookingProjector interface {
	ApplyScheduled(ctx context.Context, evt events.BookingScheduledEvent) error
	ApplyRescheduled(ctx context.Context, evt events.BookingRescheduledEvent) error
	ApplyCancelled(ctx context.Context, evt events.BookingCancelledEvent) error
	ApplyProviderAssigned(ctx context.Context, evt events.BookingProviderAssignedEvent) error
	ApplyStatusChanged(ctx context.Context, evt events.BookingStatusChangedEvent) error
}

// BookingEventConsumer keeps the booking projection in sync with the booking service.
type BookingEventConsumer struct {
	consumer  *kafka.Consumer
	projector BookingProjector
	logger    *zap.Logger
}

// NewBookingEventConsumer creates a new BookingEventConsumer.
func NewBookingEventConsumer(
	brokers []string,
	groupID string,
	projector BookingProjector,
	logger *zap.Logger,
) *BookingEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicBookingEvents, logger)
	return &BookingEventConsumer{
		consumer:  consumer,
		projector: projector,
		logger:    logger,
	}
}

// Start begins consuming booking events. This blocks until the context is cancelled.
func (c *BookingEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *BookingEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *BookingEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from booking topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case events.BookingScheduled:
		return apply(ctx, c.logger, cloudEvent, c.projector.ApplyScheduled)
	case events.BookingRescheduled:
		return apply(ctx, c.logger, cloudEvent, c.projector.ApplyRescheduled)
	case events.BookingCancelled:
		return apply(ctx, c.logger, cloudEvent, c.projector.ApplyCancelled)
	case events.BookingProviderAssigned:
		return apply(ctx, c.logger, cloudEvent, c.projector.ApplyProviderAssigned)
	case events.BookingStatusChanged:
		return apply(ctx, c.logger, cloudEvent, c.projector.ApplyStatusChanged)
	default:
		c.logger.Debug("ignoring unhandled booking event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

// apply decodes the payload and hands it to fn. Malformed payloads are dropped;
// errors from fn are returned so the consumer retries them.
func apply[T any](ctx context.Context, logger *zap.Logger, cloudEvent kafka.CloudEvent, fn func(context.Context, T) error) error {
	var evt T
	if err := cloudEvent.ParseData(&evt); err != nil {
		logger.Error("failed to parse event data",
			zap.String("type", cloudEvent.Type),
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	if err := fn(ctx, evt); err != nil {
		logger.Error("failed to apply event",
			zap.String("type", cloudEvent.Type),
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return err
	}

	logger.Debug("event applied",
		zap.String("type", cloudEvent.Type),
		zap.String("event_id", cloudEvent.ID),
	)
	return nil
}
