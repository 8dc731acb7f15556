package application

import (
	"context"
	"time"

	bookingDomain "github.com/Kilat-Pet-Delivery/service-geo/internal/domain/booking"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/location"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/route"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// stopLoader turns a provider's bookings for a day into stops with coordinates.
type stopLoader struct {
	bookings  bookingDomain.BookingRepository
	locations location.LocationRepository
	logger    *zap.Logger
}

// load returns the routable bookings starting on day, in start order. Bookings
// whose customer location has no coordinates are skipped with a warning.
func (l stopLoader) load(ctx context.Context, providerID uuid.UUID, day time.Time) ([]route.Stop, error) {
	from := route.TruncateDate(day)
	refs, err := l.bookings.FindRoutableByProvider(ctx, providerID, from, from.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(refs))
	for i, b := range refs {
		ids[i] = b.ID()
	}
	locs, err := l.locations.FindLatestForBookings(ctx, ids, location.RoleCustomer)
	if err != nil {
		return nil, err
	}

	stops := make([]route.Stop, 0, len(refs))
	for _, b := range refs {
		loc, ok := locs[b.ID()]
		if !ok || loc == nil || !loc.HasCoordinates() {
			l.logger.Warn("skipping booking without coordinates",
				zap.String("booking_id", b.ID().String()),
				zap.String("provider_id", providerID.String()),
			)
			continue
		}
		stops = append(stops, route.Stop{
			BookingID: b.ID(),
			Point:     *loc.Point(),
			StartsAt:  b.StartsAt(),
			EndsAt:    b.EndsAt(),
		})
	}
	return stops, nil
}

// home returns the provider's home coordinates, or nil when none are registered.
func (l stopLoader) home(ctx context.Context, providerID uuid.UUID) (*geo.Point, error) {
	loc, err := l.locations.FindProviderHome(ctx, providerID)
	if err != nil || loc == nil || !loc.HasCoordinates() {
		return nil, err
	}
	p := *loc.Point()
	return &p, nil
}
