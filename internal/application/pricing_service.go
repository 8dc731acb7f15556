package application

import (
	"context"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/config"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/pricing"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/servicearea"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TravelFeeRequest asks for the travel fee of a trip ending at an optional point.
type TravelFeeRequest struct {
	DistanceMiles float64    `json:"distance_miles"`
	Lat           *float64   `json:"lat"`
	Lng           *float64   `json:"lng"`
	ServiceID     *uuid.UUID `json:"service_id"`
	ProviderID    *uuid.UUID `json:"provider_id"`
}

// TravelFeeDTO is a fee breakdown plus the area whose schedule was used, if any.
type TravelFeeDTO struct {
	pricing.Breakdown
	AreaID   *uuid.UUID `json:"area_id,omitempty"`
	AreaName string     `json:"area_name,omitempty"`
}

// AreaPricer finds the service area whose own pricing applies at a point.
type AreaPricer interface {
	PricedAreaFor(ctx context.Context, p geo.Point, serviceID, providerID *uuid.UUID) (*servicearea.ServiceArea, error)
}

// PricingService computes distance-based travel fees.
type PricingService struct {
	areas    AreaPricer
	settings config.GeoSettings
	logger   *zap.Logger
}

// NewPricingService creates a new PricingService. areas may be nil when no
// area-specific pricing should be considered.
func NewPricingService(areas AreaPricer, settings config.GeoSettings, logger *zap.Logger) *PricingService {
	return &PricingService{areas: areas, settings: settings, logger: logger}
}

// Fee returns only the total fee.
func (s *PricingService) Fee(ctx context.Context, req TravelFeeRequest) (float64, error) {
	b, err := s.Breakdown(ctx, req)
	if err != nil {
		return 0, err
	}
	return b.Total, nil
}

// Breakdown decomposes the fee. Area pricing wins when the point lies in an area
// with pricing enabled; otherwise the global schedule applies.
func (s *PricingService) Breakdown(ctx context.Context, req TravelFeeRequest) (*TravelFeeDTO, error) {
	if req.DistanceMiles < 0 {
		return nil, domain.NewValidationError("distance cannot be negative")
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		return nil, domain.NewValidationError("lat and lng must be provided together")
	}

	unit := s.settings.Distance.Unit
	distance := unit.FromMiles(req.DistanceMiles)

	var area *servicearea.ServiceArea
	if req.Lat != nil && s.areas != nil {
		p := geo.NewPoint(*req.Lat, *req.Lng)
		if err := p.Validate(); err != nil {
			return nil, domain.NewValidationError(err.Error())
		}
		var err error
		if area, err = s.areas.PricedAreaFor(ctx, p, req.ServiceID, req.ProviderID); err != nil {
			return nil, err
		}
	}

	strategy := s.strategyFor(area)
	b, err := strategy.Calculate(distance)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	b.Unit = unit

	out := &TravelFeeDTO{Breakdown: b}
	if area != nil {
		id := area.ID()
		out.AreaID = &id
		out.AreaName = area.Name()
	}
	return out, nil
}

func (s *PricingService) strategyFor(area *servicearea.ServiceArea) pricing.PricingStrategy {
	if area != nil {
		return pricing.AreaPricingStrategy{Pricing: area.Pricing()}
	}

	p := s.settings.Pricing
	switch {
	case !p.Enabled:
		return pricing.NoFeeStrategy{}
	case p.TiersEnabled && len(p.Tiers) > 0:
		return pricing.TieredPricingStrategy{
			BaseFee:      p.BaseFee,
			FreeDistance: p.FreeDistance,
			MaxDistance:  p.MaxDistance,
			Tiers:        p.Tiers,
		}
	default:
		return pricing.FlatPricingStrategy{
			BaseFee:      p.BaseFee,
			PerUnitRate:  p.PerUnitRate,
			FreeDistance: p.FreeDistance,
			MaxDistance:  p.MaxDistance,
		}
	}
}
