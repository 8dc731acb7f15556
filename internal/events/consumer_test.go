package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/kafka"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/proto/events"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingProjector struct {
	scheduled []events.BookingScheduledEvent
	cancelled []events.BookingCancelledEvent
	assigned  []events.BookingProviderAssignedEvent
	statuses  []events.BookingStatusChangedEvent
	moved     []events.BookingRescheduledEvent
	services  []events.ProviderServicesUpdatedEvent
	failWith  error
}

func (p *recordingProjector) ApplyScheduled(_ context.Context, evt events.BookingScheduledEvent) error {
	p.scheduled = append(p.scheduled, evt)
	return p.failWith
}

func (p *recordingProjector) ApplyRescheduled(_ context.Context, evt events.BookingRescheduledEvent) error {
	p.moved = append(p.moved, evt)
	return p.failWith
}

func (p *recordingProjector) ApplyCancelled(_ context.Context, evt events.BookingCancelledEvent) error {
	p.cancelled = append(p.cancelled, evt)
	return p.failWith
}

func (p *recordingProjector) ApplyProviderAssigned(_ context.Context, evt events.BookingProviderAssignedEvent) error {
	p.assigned = append(p.assigned, evt)
	return p.failWith
}

func (p *recordingProjector) ApplyStatusChanged(_ context.Context, evt events.BookingStatusChangedEvent) error {
	p.statuses = append(p.statuses, evt)
	return p.failWith
}

func (p *recordingProjector) ApplyProviderServices(_ context.Context, evt events.ProviderServicesUpdatedEvent) error {
	p.services = append(p.services, evt)
	return p.failWith
}

func message(t *testing.T, eventType string, data interface{}) kafkago.Message {
	t.Helper()
	ce, err := kafka.NewCloudEvent("service-booking", eventType, data)
	require.NoError(t, err)
	raw, err := json.Marshal(ce)
	require.NoError(t, err)
	return kafkago.Message{Value: raw}
}

func TestBookingEventConsumer_Dispatch(t *testing.T) {
	projector := &recordingProjector{}
	c := &BookingEventConsumer{projector: projector, logger: zap.NewNop()}
	ctx := context.Background()

	bookingID := uuid.New()
	start := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, c.handleMessage(ctx, message(t, events.BookingScheduled, events.BookingScheduledEvent{
		BookingID: bookingID, CustomerID: uuid.New(), StartsAt: start, EndsAt: start.Add(time.Hour),
	})))
	require.NoError(t, c.handleMessage(ctx, message(t, events.BookingCancelled, events.BookingCancelledEvent{BookingID: bookingID})))
	require.NoError(t, c.handleMessage(ctx, message(t, events.BookingProviderAssigned, events.BookingProviderAssignedEvent{BookingID: bookingID, ProviderID: uuid.New()})))
	require.NoError(t, c.handleMessage(ctx, message(t, events.BookingStatusChanged, events.BookingStatusChangedEvent{BookingID: bookingID, Status: "completed"})))
	require.NoError(t, c.handleMessage(ctx, message(t, events.BookingRescheduled, events.BookingRescheduledEvent{BookingID: bookingID, StartsAt: start, EndsAt: start.Add(time.Hour)})))

	require.Len(t, projector.scheduled, 1)
	assert.Equal(t, bookingID, projector.scheduled[0].BookingID)
	assert.True(t, projector.scheduled[0].StartsAt.Equal(start))
	assert.Len(t, projector.cancelled, 1)
	assert.Len(t, projector.assigned, 1)
	assert.Len(t, projector.statuses, 1)
	assert.Len(t, projector.moved, 1)
}

func TestBookingEventConsumer_DropsMalformedAndUnknown(t *testing.T) {
	projector := &recordingProjector{}
	c := &BookingEventConsumer{projector: projector, logger: zap.NewNop()}
	ctx := context.Background()

	assert.NoError(t, c.handleMessage(ctx, kafkago.Message{Value: []byte("not json")}))
	assert.NoError(t, c.handleMessage(ctx, message(t, "booking.archived", map[string]string{"booking_id": uuid.NewString()})))

	bad := message(t, events.BookingScheduled, nil)
	var ce kafka.CloudEvent
	require.NoError(t, json.Unmarshal(bad.Value, &ce))
	ce.Data = json.RawMessage(`{"booking_id": 42}`)
	raw, err := json.Marshal(ce)
	require.NoError(t, err)
	assert.NoError(t, c.handleMessage(ctx, kafkago.Message{Value: raw}))

	assert.Empty(t, projector.scheduled)
}

func TestBookingEventConsumer_ReturnsProjectionErrors(t *testing.T) {
	boom := errors.New("db down")
	projector := &recordingProjector{failWith: boom}
	c := &BookingEventConsumer{projector: projector, logger: zap.NewNop()}

	err := c.handleMessage(context.Background(), message(t, events.BookingCancelled, events.BookingCancelledEvent{BookingID: uuid.New()}))
	assert.ErrorIs(t, err, boom)
}

func TestProviderEventConsumer(t *testing.T) {
	projector := &recordingProjector{}
	c := &ProviderEventConsumer{projector: projector, logger: zap.NewNop()}
	ctx := context.Background()

	providerID := uuid.New()
	services := []uuid.UUID{uuid.New(), uuid.New()}
	require.NoError(t, c.handleMessage(ctx, message(t, events.ProviderServicesUpdated, events.ProviderServicesUpdatedEvent{
		ProviderID: providerID, ServiceIDs: services,
	})))
	require.NoError(t, c.handleMessage(ctx, message(t, "provider.rated", map[string]int{"stars": 5})))

	require.Len(t, projector.services, 1)
	assert.Equal(t, providerID, projector.services[0].ProviderID)
	assert.Equal(t, services, projector.services[0].ServiceIDs)
}
