package route

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RouteRepository defines the persistence contract for daily routes.
type RouteRepository interface {
	// Replace stores the route, overwriting any route for the same provider and date.
	Replace(ctx context.Context, r *Route) error

	// FindByProviderAndDate returns the provider's route for the day or a NotFound error.
	FindByProviderAndDate(ctx context.Context, providerID uuid.UUID, date time.Time) (*Route, error)
}
