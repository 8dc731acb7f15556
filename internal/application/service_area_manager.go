package application

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/config"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/servicearea"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/maps"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaveAreaRequest creates an area, or replaces one when ID is set.
type SaveAreaRequest struct {
	ID         *uuid.UUID              `json:"id"`
	Name       string                  `json:"name" binding:"required"`
	Kind       string                  `json:"kind" binding:"required"`
	Geometry   json.RawMessage         `json:"geometry" binding:"required"`
	ServiceID  *uuid.UUID              `json:"service_id"`
	ProviderID *uuid.UUID              `json:"provider_id"`
	Status     string                  `json:"status"`
	Pricing    servicearea.AreaPricing `json:"pricing"`
}

// ServiceAreaDTO is the response representation of a service area.
type ServiceAreaDTO struct {
	ID         uuid.UUID               `json:"id"`
	Name       string                  `json:"name"`
	Kind       string                  `json:"kind"`
	Geometry   servicearea.Geometry    `json:"geometry"`
	ServiceID  *uuid.UUID              `json:"service_id,omitempty"`
	ProviderID *uuid.UUID              `json:"provider_id,omitempty"`
	Status     string                  `json:"status"`
	Pricing    servicearea.AreaPricing `json:"pricing"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

// ContainsResult answers whether a point is serviceable.
type ContainsResult struct {
	Inside       bool             `json:"inside"`
	MatchedAreas []ServiceAreaDTO `json:"matched_areas"`
	Enforced     bool             `json:"enforced"`
	// LookupError is set when administrative areas could not be checked because
	// reverse geocoding failed. Those areas count as non-matching.
	LookupError domain.ErrorKind `json:"lookup_error,omitempty"`
}

// areaMatch is the outcome of checking a point against the in-scope areas.
type areaMatch struct {
	matched   []*servicearea.ServiceArea
	inScope   int
	lookupErr error
}

// NearestAreaDTO is the closest radius area with the signed distance to its edge.
type NearestAreaDTO struct {
	Area              ServiceAreaDTO `json:"area"`
	EdgeDistanceMiles float64        `json:"edge_distance_miles"`
	Inside            bool           `json:"inside"`
}

// ServiceAreaManager is the application service for geofenced service areas.
type ServiceAreaManager struct {
	repo     servicearea.Repository
	geocoder maps.Client
	settings config.GeoSettings
	logger   *zap.Logger
}

// NewServiceAreaManager creates a new ServiceAreaManager.
func NewServiceAreaManager(
	repo servicearea.Repository,
	geocoder maps.Client,
	settings config.GeoSettings,
	logger *zap.Logger,
) *ServiceAreaManager {
	return &ServiceAreaManager{
		repo:     repo,
		geocoder: geocoder,
		settings: settings,
		logger:   logger,
	}
}

// Contains tests p against every active area in scope. With no areas in scope
// every point is inside; otherwise an unmatched point is inside only when
// enforcement is off.
func (m *ServiceAreaManager) Contains(ctx context.Context, p geo.Point, serviceID, providerID *uuid.UUID) (*ContainsResult, error) {
	if err := p.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	match, err := m.matchingAreas(ctx, p, serviceID, providerID)
	if err != nil {
		return nil, err
	}

	result := &ContainsResult{
		MatchedAreas: make([]ServiceAreaDTO, 0, len(match.matched)),
		Enforced:     m.settings.ServiceArea.Enforce,
	}
	for _, a := range match.matched {
		result.MatchedAreas = append(result.MatchedAreas, toServiceAreaDTO(a))
	}
	if match.lookupErr != nil {
		result.LookupError = domain.KindOf(match.lookupErr)
		if result.LookupError == "" {
			result.LookupError = domain.KindUpstreamUnknown
		}
	}
	result.Inside = match.inScope == 0 || len(match.matched) > 0 || !result.Enforced
	return result, nil
}

// PricedAreaFor returns the first matching area with its own pricing enabled, or nil.
func (m *ServiceAreaManager) PricedAreaFor(ctx context.Context, p geo.Point, serviceID, providerID *uuid.UUID) (*servicearea.ServiceArea, error) {
	match, err := m.matchingAreas(ctx, p, serviceID, providerID)
	if err != nil {
		return nil, err
	}
	for _, a := range match.matched {
		if a.Pricing().Enabled {
			return a, nil
		}
	}
	return nil, nil
}

func (m *ServiceAreaManager) matchingAreas(ctx context.Context, p geo.Point, serviceID, providerID *uuid.UUID) (*areaMatch, error) {
	areas, err := m.repo.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	var (
		match    areaMatch
		admin    *servicearea.AdminAddress
		resolved bool
	)
	for _, a := range areas {
		if !a.InScope(serviceID, providerID) {
			continue
		}
		match.inScope++

		if !a.Kind().NeedsReverseGeocode() {
			if a.ContainsPoint(p) {
				match.matched = append(match.matched, a)
			}
			continue
		}

		if !resolved {
			admin, match.lookupErr = m.reverseGeocode(ctx, p)
			resolved = true
		}
		if admin != nil && a.ContainsAddress(*admin) {
			match.matched = append(match.matched, a)
		}
	}
	return &match, nil
}

// reverseGeocode resolves administrative names for p. Failures are logged and
// returned so callers can report that administrative areas went unchecked.
func (m *ServiceAreaManager) reverseGeocode(ctx context.Context, p geo.Point) (*servicearea.AdminAddress, error) {
	if m.geocoder == nil || !m.geocoder.IsConfigured() {
		m.logger.Warn("administrative service areas need reverse geocoding but no map provider is configured")
		return nil, domain.NewNotConfiguredError("map provider")
	}
	res, err := m.geocoder.ReverseGeocode(ctx, p)
	if err != nil {
		m.logger.Warn("reverse geocoding failed, skipping administrative service areas",
			zap.String("point", p.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return &servicearea.AdminAddress{
		PostalCode: res.PostalCode,
		City:       res.City,
		StateLong:  res.StateLong,
		StateShort: res.StateShort,
	}, nil
}

// SaveArea creates a new area or updates the one named by req.ID.
func (m *ServiceAreaManager) SaveArea(ctx context.Context, req SaveAreaRequest) (*ServiceAreaDTO, error) {
	kind := servicearea.Kind(req.Kind)
	if !kind.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown service area kind: %s", req.Kind))
	}
	geometry, err := servicearea.UnmarshalGeometry(kind, req.Geometry)
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("malformed %s geometry: %v", kind, err))
	}

	if req.ID == nil {
		area, err := servicearea.NewServiceArea(req.Name, req.ServiceID, req.ProviderID, geometry, req.Pricing)
		if err != nil {
			return nil, err
		}
		if req.Status != "" && req.Status != string(servicearea.StatusActive) {
			if err := area.Update(area.Name(), area.ServiceID(), area.ProviderID(), geometry, req.Pricing, servicearea.Status(req.Status)); err != nil {
				return nil, err
			}
		}
		if err := m.repo.Save(ctx, area); err != nil {
			return nil, err
		}
		m.logger.Info("service area created",
			zap.String("area_id", area.ID().String()),
			zap.String("kind", string(kind)),
		)
		dto := toServiceAreaDTO(area)
		return &dto, nil
	}

	area, err := m.repo.FindByID(ctx, *req.ID)
	if err != nil {
		return nil, err
	}
	status := area.Status()
	if req.Status != "" {
		status = servicearea.Status(req.Status)
	}
	if err := area.Update(req.Name, req.ServiceID, req.ProviderID, geometry, req.Pricing, status); err != nil {
		return nil, err
	}
	if err := m.repo.Save(ctx, area); err != nil {
		return nil, err
	}
	m.logger.Info("service area updated", zap.String("area_id", area.ID().String()))
	dto := toServiceAreaDTO(area)
	return &dto, nil
}

// DeleteArea removes an area.
func (m *ServiceAreaManager) DeleteArea(ctx context.Context, id uuid.UUID) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info("service area deleted", zap.String("area_id", id.String()))
	return nil
}

// GetArea returns a single area.
func (m *ServiceAreaManager) GetArea(ctx context.Context, id uuid.UUID) (*ServiceAreaDTO, error) {
	area, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toServiceAreaDTO(area)
	return &dto, nil
}

// ListAreas returns a page of areas.
func (m *ServiceAreaManager) ListAreas(ctx context.Context, filter servicearea.ListFilter) (*domain.PaginatedResult[ServiceAreaDTO], error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown status: %s", *filter.Status))
	}

	areas, total, err := m.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	dtos := make([]ServiceAreaDTO, len(areas))
	for i, a := range areas {
		dtos[i] = toServiceAreaDTO(a)
	}
	result := domain.NewPaginatedResult(dtos, total, filter.Page, filter.Limit)
	return &result, nil
}

// NearestArea returns the active radius area whose edge is closest to p.
func (m *ServiceAreaManager) NearestArea(ctx context.Context, p geo.Point) (*NearestAreaDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	areas, err := m.repo.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	var (
		best     *servicearea.ServiceArea
		bestEdge float64
	)
	for _, a := range areas {
		edge, ok := a.EdgeDistanceMiles(p)
		if !ok {
			continue
		}
		if best == nil || math.Abs(edge) < math.Abs(bestEdge) {
			best = a
			bestEdge = edge
		}
	}
	if best == nil {
		return nil, domain.NewError(domain.KindNotFound, "no radius service areas are configured")
	}

	return &NearestAreaDTO{
		Area:              toServiceAreaDTO(best),
		EdgeDistanceMiles: geo.Round2(bestEdge),
		Inside:            bestEdge <= 0,
	}, nil
}

func toServiceAreaDTO(a *servicearea.ServiceArea) ServiceAreaDTO {
	return ServiceAreaDTO{
		ID:         a.ID(),
		Name:       a.Name(),
		Kind:       string(a.Kind()),
		Geometry:   a.Geometry(),
		ServiceID:  a.ServiceID(),
		ProviderID: a.ProviderID(),
		Status:     string(a.Status()),
		Pricing:    a.Pricing(),
		CreatedAt:  a.CreatedAt(),
		UpdatedAt:  a.UpdatedAt(),
	}
}
