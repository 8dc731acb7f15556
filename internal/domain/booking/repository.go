package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for booking projections.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*BookingRef, error)

	// FindRoutableByProvider returns the provider's non-cancelled, unfinished bookings
	// starting in [from, to), ordered by start time.
	FindRoutableByProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*BookingRef, error)

	// Save persists a new booking projection.
	Save(ctx context.Context, booking *BookingRef) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *BookingRef) error
}
