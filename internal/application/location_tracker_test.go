package application

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/config"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	bookingDomain "github.com/Kilat-Pet-Delivery/service-geo/internal/domain/booking"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/location"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/maps"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/proto/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type trackerFixture struct {
	tracker   *LocationTracker
	bookings  *fakeBookings
	locations *fakeLocations
	providers *fakeProviderLocations
	checkins  *fakeCheckins
	catalog   *fakeCatalog
	publisher *fakePublisher
	geocoder  *fakeMapClient
	now       time.Time
}

func newTrackerFixture(t *testing.T, settings config.GeoSettings) *trackerFixture {
	t.Helper()
	f := &trackerFixture{
		bookings:  newFakeBookings(),
		locations: &fakeLocations{},
		providers: newFakeProviderLocations(),
		checkins:  &fakeCheckins{},
		catalog:   newFakeCatalog(),
		publisher: &fakePublisher{},
		geocoder:  &fakeMapClient{},
		now:       time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.tracker = NewLocationTracker(f.locations, f.providers, f.checkins, f.bookings, f.catalog, f.geocoder, f.publisher, settings, zap.NewNop())
	f.tracker.now = func() time.Time { return f.now }
	return f
}

// addBooking projects a booking for providerID with its customer location at p.
func (f *trackerFixture) addBooking(t *testing.T, providerID uuid.UUID, p *geo.Point) *bookingDomain.BookingRef {
	t.Helper()
	start := f.now.Add(time.Hour)
	bk, err := bookingDomain.NewBookingRef(uuid.New(), &providerID, uuid.New(), nil, bookingDomain.StatusConfirmed, start, start.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, f.bookings.Save(context.Background(), bk))

	if p != nil {
		id := bk.ID()
		loc, err := location.NewLocation(location.RoleCustomer, bk.CustomerID(), &id, location.Address{}, p, "", true)
		require.NoError(t, err)
		require.NoError(t, f.locations.Save(context.Background(), loc))
	}
	return bk
}

// northOf returns the point meters due north of p.
func checkinAt(lat, lng float64, checkinType string) RecordCheckinRequest {
	return RecordCheckinRequest{Lat: &lat, Lng: &lng, Type: checkinType}
}

func northOf(p geo.Point, meters float64) geo.Point {
	return geo.NewPoint(p.Lat+meters/geo.EarthRadiusMeters*180/math.Pi, p.Lng)
}

func TestRecordCheckin_VerificationGate(t *testing.T) {
	settings := config.DefaultGeoSettings()
	settings.Checkin.RequireVerification = true
	f := newTrackerFixture(t, settings)
	ctx := context.Background()

	providerID := uuid.New()
	target := geo.NewPoint(40.0, -74.0)
	bk := f.addBooking(t, providerID, &target)

	far := northOf(target, 150)
	_, err := f.tracker.RecordCheckin(ctx, bk.ID(), providerID, checkinAt(far.Lat, far.Lng, "arrival"))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindLocationMismatch))

	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.InDelta(t, 150, derr.Details["distance_meters"], 1)
	assert.Empty(t, f.checkins.rows, "rejected check-ins are not stored")

	near := northOf(target, 50)
	c, err := f.tracker.RecordCheckin(ctx, bk.ID(), providerID, checkinAt(near.Lat, near.Lng, "arrival"))
	require.NoError(t, err)
	assert.True(t, c.IsVerified)
	require.NotNil(t, c.DistanceMeters)
	assert.InDelta(t, 50, *c.DistanceMeters, 1)

	stored, _ := f.bookings.FindByID(ctx, bk.ID())
	require.NotNil(t, stored.ArrivedAt())
	assert.True(t, stored.ArrivalVerified())

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.GeoCheckinRecorded, f.publisher.events[0].eventType)
	assert.Equal(t, events.TopicGeoEvents, f.publisher.events[0].topic)
}

func TestRecordCheckin_UnverifiedStoredWhenNotStrict(t *testing.T) {
	f := newTrackerFixture(t, config.DefaultGeoSettings())
	ctx := context.Background()

	providerID := uuid.New()
	target := geo.NewPoint(40.0, -74.0)
	bk := f.addBooking(t, providerID, &target)
	far := northOf(target, 150)

	c, err := f.tracker.RecordCheckin(ctx, bk.ID(), providerID, checkinAt(far.Lat, far.Lng, "departure"))
	require.NoError(t, err)
	assert.False(t, c.IsVerified)

	history, err := f.tracker.CheckinHistory(ctx, bk.ID())
	require.NoError(t, err)
	assert.Len(t, history, 1)

	stored, _ := f.bookings.FindByID(ctx, bk.ID())
	assert.Nil(t, stored.ArrivedAt(), "departures do not mark arrival")
}

func TestRecordCheckin_NoBookingLocation(t *testing.T) {
	settings := config.DefaultGeoSettings()
	f := newTrackerFixture(t, settings)
	ctx := context.Background()
	providerID := uuid.New()
	bk := f.addBooking(t, providerID, nil)

	c, err := f.tracker.RecordCheckin(ctx, bk.ID(), providerID, checkinAt(1, 1, "arrival"))
	require.NoError(t, err)
	assert.False(t, c.IsVerified)
	assert.Nil(t, c.DistanceMeters)

	f.tracker.settings.Checkin.RequireVerification = true
	_, err = f.tracker.RecordCheckin(ctx, bk.ID(), providerID, checkinAt(1, 1, "arrival"))
	assert.True(t, domain.IsKind(err, domain.KindLocationMismatch))
}

func TestRecordCheckin_Rejections(t *testing.T) {
	f := newTrackerFixture(t, config.DefaultGeoSettings())
	ctx := context.Background()
	providerID := uuid.New()
	bk := f.addBooking(t, providerID, nil)

	_, err := f.tracker.RecordCheckin(ctx, bk.ID(), uuid.New(), checkinAt(1, 1, "arrival"))
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	_, err = f.tracker.RecordCheckin(ctx, uuid.New(), providerID, checkinAt(1, 1, "arrival"))
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = f.tracker.RecordCheckin(ctx, bk.ID(), providerID, checkinAt(1, 1, "wave"))
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}

func TestRecordCheckin_ZeroCoordinates(t *testing.T) {
	f := newTrackerFixture(t, config.DefaultGeoSettings())
	ctx := context.Background()
	providerID := uuid.New()
	target := geo.NewPoint(0, 0)
	bk := f.addBooking(t, providerID, &target)

	c, err := f.tracker.RecordCheckin(ctx, bk.ID(), providerID, checkinAt(0, 0, "arrival"))
	require.NoError(t, err, "the equator and prime meridian are valid coordinates")
	assert.True(t, c.IsVerified)

	lat := 0.0
	_, err = f.tracker.RecordCheckin(ctx, bk.ID(), providerID, RecordCheckinRequest{Lat: &lat, Type: "arrival"})
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}

func TestRecordCheckin_RetriesArrivalOnVersionConflict(t *testing.T) {
	f := newTrackerFixture(t, config.DefaultGeoSettings())
	ctx := context.Background()
	providerID := uuid.New()
	target := geo.NewPoint(40.0, -74.0)
	bk := f.addBooking(t, providerID, &target)
	f.bookings.failUpdates = 1

	_, err := f.tracker.RecordCheckin(ctx, bk.ID(), providerID, checkinAt(target.Lat, target.Lng, "arrival"))
	require.NoError(t, err)

	stored, _ := f.bookings.FindByID(ctx, bk.ID())
	assert.NotNil(t, stored.ArrivedAt())
}

func TestSaveLocation_GeocodesAddressOnly(t *testing.T) {
	f := newTrackerFixture(t, config.DefaultGeoSettings())
	f.geocoder.configured = true
	f.geocoder.geocodes = map[string]maps.GeocodeResult{
		"1 Main St, Springfield, IL": {Point: geo.NewPoint(39.8, -89.6), FormattedAddress: "1 Main St, Springfield, IL 62701, USA", PlaceID: "place-1"},
	}

	dto, err := f.tracker.SaveLocation(context.Background(), SaveLocationRequest{
		Role:    "customer",
		OwnerID: uuid.New(),
		Address: location.Address{Line1: "1 Main St", City: "Springfield", State: "IL"},
	})
	require.NoError(t, err)
	require.NotNil(t, dto.Lat)
	assert.Equal(t, 39.8, *dto.Lat)
	assert.True(t, dto.IsVerified)
	assert.Equal(t, "place-1", dto.PlaceRef)
}

func TestSaveLocation_GeocodeFailureKeepsAddress(t *testing.T) {
	f := newTrackerFixture(t, config.DefaultGeoSettings())
	f.geocoder.configured = true

	dto, err := f.tracker.SaveLocation(context.Background(), SaveLocationRequest{
		Role:    "customer",
		OwnerID: uuid.New(),
		Address: location.Address{Line1: "nowhere"},
	})
	require.NoError(t, err)
	assert.Nil(t, dto.Lat)
	assert.False(t, dto.IsVerified)
}

func TestSaveLocation_Validation(t *testing.T) {
	f := newTrackerFixture(t, config.DefaultGeoSettings())
	lat := 10.0

	_, err := f.tracker.SaveLocation(context.Background(), SaveLocationRequest{Role: "customer", OwnerID: uuid.New(), Lat: &lat})
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))

	_, err = f.tracker.SaveLocation(context.Background(), SaveLocationRequest{Role: "courier", OwnerID: uuid.New(), Address: location.Address{Line1: "x"}})
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}

func TestNearbyProviders(t *testing.T) {
	f := newTrackerFixture(t, config.DefaultGeoSettings())
	ctx := context.Background()
	center := geo.NewPoint(40.0, -74.0)

	near, far, stale, offShift, outside := uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()
	ping := func(id uuid.UUID, p geo.Point, at time.Time) {
		pl, err := location.NewProviderLocation(id, location.PositionPing{Lat: p.Lat, Lng: p.Lng}, at)
		require.NoError(t, err)
		require.NoError(t, f.providers.Upsert(ctx, pl))
	}
	ping(far, northOf(center, 4000), f.now)
	ping(near, northOf(center, 1000), f.now)
	ping(stale, northOf(center, 500), f.now.Add(-20*time.Minute))
	ping(offShift, northOf(center, 200), f.now)
	ping(outside, northOf(center, 20000), f.now)
	require.NoError(t, f.tracker.SetAvailability(ctx, offShift, false))

	res, err := f.tracker.NearbyProviders(ctx, NearbyRequest{Lat: center.Lat, Lng: center.Lng, RadiusMiles: 5})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, near, res[0].ProviderID)
	assert.Equal(t, far, res[1].ProviderID)
	assert.LessOrEqual(t, res[0].DistanceMiles, res[1].DistanceMiles)
	// 25 mph: 4 km is about 2.49 miles, so 6 minutes.
	assert.Equal(t, 6, res[1].ETAMinutes)

	serviceID := uuid.New()
	require.NoError(t, f.catalog.ReplaceProviderServices(ctx, far, []uuid.UUID{serviceID}))
	res, err = f.tracker.NearbyProviders(ctx, NearbyRequest{Lat: center.Lat, Lng: center.Lng, RadiusMiles: 5, ServiceID: &serviceID})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, far, res[0].ProviderID)

	_, err = f.tracker.NearbyProviders(ctx, NearbyRequest{Lat: center.Lat, Lng: center.Lng, RadiusMiles: 0})
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}

func TestNearbyProviders_AcrossAntimeridian(t *testing.T) {
	f := newTrackerFixture(t, config.DefaultGeoSettings())
	ctx := context.Background()

	across := uuid.New()
	pl, err := location.NewProviderLocation(across, location.PositionPing{Lat: 0, Lng: -179.98}, f.now)
	require.NoError(t, err)
	require.NoError(t, f.providers.Upsert(ctx, pl))

	res, err := f.tracker.NearbyProviders(ctx, NearbyRequest{Lat: 0, Lng: 179.98, RadiusMiles: 5})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, across, res[0].ProviderID)
	assert.Less(t, res[0].DistanceMiles, 5.0)
}

func TestETA(t *testing.T) {
	f := newTrackerFixture(t, config.DefaultGeoSettings())
	ctx := context.Background()
	providerID := uuid.New()
	target := geo.NewPoint(40.0, -74.0)
	bk := f.addBooking(t, providerID, &target)

	start := northOf(target, 8046.72) // 5 miles
	slow := 1.0                       // about 2.2 mph, below the live-speed minimum
	pl, err := location.NewProviderLocation(providerID, location.PositionPing{Lat: start.Lat, Lng: start.Lng, SpeedMps: &slow}, f.now)
	require.NoError(t, err)
	require.NoError(t, f.providers.Upsert(ctx, pl))

	eta, err := f.tracker.ETA(ctx, providerID, bk.ID())
	require.NoError(t, err)
	assert.False(t, eta.UsedLiveSpeed)
	assert.Equal(t, 12, eta.Minutes)
	assert.False(t, eta.Stale)

	fast := 26.8224 // 60 mph
	pl.SpeedMps = &fast
	f.now = f.now.Add(5 * time.Minute)

	eta, err = f.tracker.ETA(ctx, providerID, bk.ID())
	require.NoError(t, err)
	assert.True(t, eta.UsedLiveSpeed)
	assert.Equal(t, 5, eta.Minutes)
	assert.True(t, eta.Stale)

	_, err = f.tracker.ETA(ctx, providerID, uuid.New())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestBookingETA_UsesAssignedProvider(t *testing.T) {
	f := newTrackerFixture(t, config.DefaultGeoSettings())
	ctx := context.Background()
	providerID := uuid.New()
	target := geo.NewPoint(40.0, -74.0)
	bk := f.addBooking(t, providerID, &target)

	start := northOf(target, 8046.72)
	pl, err := location.NewProviderLocation(providerID, location.PositionPing{Lat: start.Lat, Lng: start.Lng}, f.now)
	require.NoError(t, err)
	require.NoError(t, f.providers.Upsert(ctx, pl))

	eta, err := f.tracker.BookingETA(ctx, bk.ID())
	require.NoError(t, err)
	assert.Equal(t, providerID, eta.ProviderID)
	assert.Equal(t, 12, eta.Minutes)

	_, err = f.tracker.BookingETA(ctx, uuid.New())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}
