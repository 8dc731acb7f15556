package location

import (
	"context"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/google/uuid"
)

// LocationRepository defines the persistence contract for addresses.
type LocationRepository interface {
	// Save persists a new location row.
	Save(ctx context.Context, loc *Location) error

	// FindByID retrieves a location by its identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Location, error)

	// FindLatestForBooking returns the newest location with the given role for a booking,
	// or nil when none exists.
	FindLatestForBooking(ctx context.Context, bookingID uuid.UUID, role Role) (*Location, error)

	// FindLatestForBookings is the batch form of FindLatestForBooking.
	FindLatestForBookings(ctx context.Context, bookingIDs []uuid.UUID, role Role) (map[uuid.UUID]*Location, error)

	// FindProviderHome returns the newest booking-independent provider location, or nil.
	FindProviderHome(ctx context.Context, providerID uuid.UUID) (*Location, error)
}

// ProviderLocationRepository defines the persistence contract for live positions.
type ProviderLocationRepository interface {
	// Upsert writes the provider's latest position, replacing any previous one.
	Upsert(ctx context.Context, pl *ProviderLocation) error

	// FindByProviderID returns the provider's position or a NotFound error.
	FindByProviderID(ctx context.Context, providerID uuid.UUID) (*ProviderLocation, error)

	// SetAvailability flips the availability flag without touching the position.
	SetAvailability(ctx context.Context, providerID uuid.UUID, available bool) error

	// FindAvailableInBox returns available providers updated since the cutoff whose
	// positions fall inside the bounding box.
	FindAvailableInBox(ctx context.Context, box geo.BoundingBox, updatedSince time.Time) ([]*ProviderLocation, error)
}

// CheckinRepository defines the append-only persistence contract for GPS check-ins.
type CheckinRepository interface {
	// Append stores a new check-in.
	Append(ctx context.Context, c *GpsCheckin) error

	// ListByBooking returns a booking's check-ins, oldest first.
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*GpsCheckin, error)
}

// ServiceCatalog records which providers offer which services.
type ServiceCatalog interface {
	ProviderIDsForService(ctx context.Context, serviceID uuid.UUID) ([]uuid.UUID, error)

	// ReplaceProviderServices overwrites the provider's full service list.
	ReplaceProviderServices(ctx context.Context, providerID uuid.UUID, serviceIDs []uuid.UUID) error
}
