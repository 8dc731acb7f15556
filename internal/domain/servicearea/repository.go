package servicearea

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows an area listing.
type ListFilter struct {
	Status    *Status
	ServiceID *uuid.UUID
	Page      int
	Limit     int
}

// Repository defines the persistence contract for service areas.
type Repository interface {
	// Save inserts or updates an area.
	Save(ctx context.Context, area *ServiceArea) error

	// FindByID retrieves an area by its identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*ServiceArea, error)

	// Delete removes an area.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns areas matching the filter with pagination.
	List(ctx context.Context, filter ListFilter) ([]*ServiceArea, int64, error)

	// FindActive returns every active area; scoping is applied by the caller.
	FindActive(ctx context.Context) ([]*ServiceArea, error)
}
