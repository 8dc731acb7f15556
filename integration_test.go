//go:build integration

package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/application"
	bookingDomain "github.com/Kilat-Pet-Delivery/service-geo/internal/domain/booking"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/proto/events"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TestBookingEvents_ProjectBookingRefs verifies that booking.scheduled and
// booking.provider_assigned events published upstream land in booking_refs.
func TestBookingEvents_ProjectBookingRefs(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupGeoStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.BookingConsumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.BookingConsumer.Start(ctx) }()

	bookingID := uuid.New()
	customerID := uuid.New()
	providerID := uuid.New()
	startsAt := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	publishTestEvent(t, infra.KafkaBrokers, events.TopicBookingEvents, "service-booking", events.BookingScheduled,
		events.BookingScheduledEvent{
			BookingID:  bookingID,
			CustomerID: customerID,
			StartsAt:   startsAt,
			EndsAt:     startsAt.Add(time.Hour),
			OccurredAt: time.Now().UTC(),
		})

	projected := waitForBookingRef(t, infra.DB, bookingID, func(m repository.BookingRefModel) bool { return true }, 60*time.Second)
	assert.Equal(t, customerID, projected.CustomerID)
	assert.Equal(t, string(bookingDomain.StatusConfirmed), projected.Status)
	assert.Nil(t, projected.ProviderID)

	publishTestEvent(t, infra.KafkaBrokers, events.TopicBookingEvents, "service-booking", events.BookingProviderAssigned,
		events.BookingProviderAssignedEvent{
			BookingID:  bookingID,
			ProviderID: providerID,
			OccurredAt: time.Now().UTC(),
		})

	assigned := waitForBookingRef(t, infra.DB, bookingID, func(m repository.BookingRefModel) bool {
		return m.ProviderID != nil && *m.ProviderID == providerID
	}, 30*time.Second)
	assert.Greater(t, assigned.Version, projected.Version)
}

// TestCheckin_VerifiedArrivalPublishesEvent stores a customer location, records an
// arrival within the verification radius and checks both the stored history and
// the geo.checkin.recorded event.
func TestCheckin_VerifiedArrivalPublishesEvent(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupGeoStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	ctx := context.Background()
	providerID := uuid.New()
	bk := seedBooking(t, infra.DB, providerID, time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))
	bookingID := bk.ID()

	lat, lng := 40.7128, -74.0060
	_, err := stack.Tracker.SaveLocation(ctx, application.SaveLocationRequest{
		Role:      "customer",
		OwnerID:   bk.CustomerID(),
		BookingID: &bookingID,
		Lat:       &lat,
		Lng:       &lng,
	})
	require.NoError(t, err)

	atLat, atLng := 40.71285, -74.00605
	checkin, err := stack.Tracker.RecordCheckin(ctx, bookingID, providerID, application.RecordCheckinRequest{
		Lat:    &atLat,
		Lng:    &atLng,
		Type:   "arrival",
		Device: map[string]string{"platform": "ios"},
	})
	require.NoError(t, err)
	assert.True(t, checkin.IsVerified)

	history, err := stack.Tracker.CheckinHistory(ctx, bookingID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ios", history[0].Device["platform"])

	ce := consumeOneEvent(t, infra.KafkaBrokers, events.TopicGeoEvents, events.GeoCheckinRecorded, 30*time.Second)
	var evt events.CheckinRecordedEvent
	require.NoError(t, ce.ParseData(&evt))
	assert.Equal(t, bookingID, evt.BookingID)
	assert.True(t, evt.IsVerified)

	arrived := waitForBookingRef(t, infra.DB, bookingID, func(m repository.BookingRefModel) bool {
		return m.ArrivalVerified
	}, 10*time.Second)
	assert.NotNil(t, arrived.ArrivedAt)
}

// TestRouteOptimization_ReplacesStoredRoute optimizes the same day twice and
// checks only one route row remains per provider and date.
func TestRouteOptimization_ReplacesStoredRoute(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupGeoStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	ctx := context.Background()
	providerID := uuid.New()
	day := time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)

	coords := [][2]float64{{40.7128, -74.0060}, {40.7306, -73.9866}, {40.7580, -73.9855}}
	for i, c := range coords {
		bk := seedBooking(t, infra.DB, providerID, day.Add(time.Duration(9+i)*time.Hour))
		bookingID := bk.ID()
		lat, lng := c[0], c[1]
		_, err := stack.Tracker.SaveLocation(ctx, application.SaveLocationRequest{
			Role:      "customer",
			OwnerID:   bk.CustomerID(),
			BookingID: &bookingID,
			Lat:       &lat,
			Lng:       &lng,
		})
		require.NoError(t, err)
	}

	first, err := stack.Optimizer.OptimizeDailyRoute(ctx, providerID, day)
	require.NoError(t, err)
	require.Len(t, first.BookingIDs, 3)
	assert.Greater(t, first.TotalMiles, 0.0)

	second, err := stack.Optimizer.OptimizeDailyRoute(ctx, providerID, day)
	require.NoError(t, err)
	assert.Equal(t, first.BookingIDs, second.BookingIDs)

	stored, err := stack.Optimizer.GetDailyRoute(ctx, providerID, day)
	require.NoError(t, err)
	assert.Equal(t, second.BookingIDs, stored.BookingIDs)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, second.ID, stored.ID)
	assert.Equal(t, "2026-07-02", stored.Date)

	var count int64
	require.NoError(t, infra.DB.Model(&repository.RouteModel{}).Where("provider_id = ?", providerID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// seedBooking inserts a confirmed one-hour booking assigned to the provider.
func seedBooking(t *testing.T, db *gorm.DB, providerID uuid.UUID, startsAt time.Time) *bookingDomain.BookingRef {
	t.Helper()
	bk, err := bookingDomain.NewBookingRef(uuid.New(), &providerID, uuid.New(), nil, bookingDomain.StatusConfirmed, startsAt, startsAt.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, repository.NewGormBookingRepository(db).Save(context.Background(), bk), "failed to seed booking")
	return bk
}
