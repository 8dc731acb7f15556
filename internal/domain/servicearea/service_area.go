package servicearea

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/google/uuid"
)

// Status is the operator-controlled lifecycle of an area.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// IsValid returns true if the status is recognized.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// AreaPricing is the travel-fee schedule embedded in an area. Distances are in
// the configured distance unit; MaxDistance of 0 means uncapped.
type AreaPricing struct {
	Enabled     bool    `json:"enabled"`
	BaseFee     float64 `json:"base_fee"`
	PerUnitRate float64 `json:"per_unit_rate"`
	MinDistance float64 `json:"min_distance"`
	MaxDistance float64 `json:"max_distance"`
}

func (p AreaPricing) validate() error {
	if p.BaseFee < 0 || p.PerUnitRate < 0 || p.MinDistance < 0 || p.MaxDistance < 0 {
		return fmt.Errorf("pricing values cannot be negative")
	}
	if p.MaxDistance > 0 && p.MinDistance > p.MaxDistance {
		return fmt.Errorf("minimum distance exceeds maximum distance")
	}
	return nil
}

// ServiceArea is a named coverage region, optionally scoped to a service and/or provider.
type ServiceArea struct {
	id         uuid.UUID
	name       string
	serviceID  *uuid.UUID
	providerID *uuid.UUID
	geometry   Geometry
	status     Status
	pricing    AreaPricing
	createdAt  time.Time
	updatedAt  time.Time
}

// NewServiceArea creates an active service area after checking that the geometry fits its kind.
func NewServiceArea(
	name string,
	serviceID, providerID *uuid.UUID,
	geometry Geometry,
	pricing AreaPricing,
) (*ServiceArea, error) {
	a := &ServiceArea{
		id:         uuid.New(),
		name:       strings.TrimSpace(name),
		serviceID:  serviceID,
		providerID: providerID,
		geometry:   geometry,
		status:     StatusActive,
		pricing:    pricing,
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a.createdAt = now
	a.updatedAt = now
	return a, nil
}

// ReconstructServiceArea rebuilds a ServiceArea from persistence data (no validation).
func ReconstructServiceArea(
	id uuid.UUID,
	name string,
	serviceID, providerID *uuid.UUID,
	geometry Geometry,
	status Status,
	pricing AreaPricing,
	createdAt, updatedAt time.Time,
) *ServiceArea {
	return &ServiceArea{
		id:         id,
		name:       name,
		serviceID:  serviceID,
		providerID: providerID,
		geometry:   geometry,
		status:     status,
		pricing:    pricing,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (a *ServiceArea) validate() error {
	if a.name == "" {
		return domain.NewValidationError("service area name is required")
	}
	if a.geometry == nil {
		return domain.NewValidationError("service area geometry is required")
	}
	if err := a.geometry.validate(); err != nil {
		return domain.NewValidationError(fmt.Sprintf("invalid %s geometry: %v", a.geometry.Kind(), err))
	}
	if err := a.pricing.validate(); err != nil {
		return domain.NewValidationError(err.Error())
	}
	return nil
}

func (a *ServiceArea) ID() uuid.UUID          { return a.id }
func (a *ServiceArea) Name() string           { return a.name }
func (a *ServiceArea) ServiceID() *uuid.UUID  { return a.serviceID }
func (a *ServiceArea) ProviderID() *uuid.UUID { return a.providerID }
func (a *ServiceArea) Kind() Kind             { return a.geometry.Kind() }
func (a *ServiceArea) Geometry() Geometry     { return a.geometry }
func (a *ServiceArea) Status() Status         { return a.status }
func (a *ServiceArea) Pricing() AreaPricing   { return a.pricing }
func (a *ServiceArea) CreatedAt() time.Time   { return a.createdAt }
func (a *ServiceArea) UpdatedAt() time.Time   { return a.updatedAt }

// IsActive returns true when the area takes part in membership checks.
func (a *ServiceArea) IsActive() bool { return a.status == StatusActive }

// Update replaces the editable fields, re-validating the result.
func (a *ServiceArea) Update(name string, serviceID, providerID *uuid.UUID, geometry Geometry, pricing AreaPricing, status Status) error {
	if !status.IsValid() {
		return domain.NewValidationError("invalid service area status: " + string(status))
	}
	next := *a
	next.name = strings.TrimSpace(name)
	next.serviceID = serviceID
	next.providerID = providerID
	next.geometry = geometry
	next.pricing = pricing
	next.status = status
	if err := next.validate(); err != nil {
		return err
	}
	next.updatedAt = time.Now().UTC()
	*a = next
	return nil
}

// InScope reports whether the area applies to the given service/provider. A nil
// scope on the area means it applies to everyone.
func (a *ServiceArea) InScope(serviceID, providerID *uuid.UUID) bool {
	if a.serviceID != nil && (serviceID == nil || *a.serviceID != *serviceID) {
		return false
	}
	if a.providerID != nil && (providerID == nil || *a.providerID != *providerID) {
		return false
	}
	return true
}

// ContainsPoint answers membership for radius and polygon areas.
func (a *ServiceArea) ContainsPoint(p geo.Point) bool {
	return containsPoint(a.geometry, p)
}

// ContainsAddress answers membership for zip, city and state areas.
func (a *ServiceArea) ContainsAddress(addr AdminAddress) bool {
	return containsAddress(a.geometry, addr)
}

// EdgeDistanceMiles returns distance-to-center minus radius for radius areas:
// negative inside, positive outside. ok is false for every other kind.
func (a *ServiceArea) EdgeDistanceMiles(p geo.Point) (float64, bool) {
	r, isRadius := a.geometry.(Radius)
	if !isRadius {
		return 0, false
	}
	return geo.HaversineMiles(p, r.Center) - r.RadiusMiles, true
}
