package location

import (
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/google/uuid"
)

// ProviderLocation is the latest known position of a provider. There is one row
// per provider and every ping overwrites it.
type ProviderLocation struct {
	ProviderID  uuid.UUID `json:"provider_id"`
	Point       geo.Point `json:"point"`
	AccuracyM   *float64  `json:"accuracy_m,omitempty"`
	Heading     *float64  `json:"heading,omitempty"`
	SpeedMps    *float64  `json:"speed_mps,omitempty"`
	IsAvailable bool      `json:"is_available"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PositionPing is a single GPS sample reported by a provider device.
type PositionPing struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	AccuracyM *float64 `json:"accuracy,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	SpeedMps  *float64 `json:"speed,omitempty"`
}

// NewProviderLocation builds the row that a ping upserts. Pinging marks the provider available.
func NewProviderLocation(providerID uuid.UUID, ping PositionPing, now time.Time) (*ProviderLocation, error) {
	if providerID == uuid.Nil {
		return nil, domain.NewValidationError("provider ID is required")
	}
	p := geo.NewPoint(ping.Lat, ping.Lng)
	if err := p.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if ping.AccuracyM != nil && *ping.AccuracyM < 0 {
		return nil, domain.NewValidationError("accuracy cannot be negative")
	}
	if ping.SpeedMps != nil && *ping.SpeedMps < 0 {
		return nil, domain.NewValidationError("speed cannot be negative")
	}
	return &ProviderLocation{
		ProviderID:  providerID,
		Point:       p,
		AccuracyM:   ping.AccuracyM,
		Heading:     ping.Heading,
		SpeedMps:    ping.SpeedMps,
		IsAvailable: true,
		UpdatedAt:   now.UTC(),
	}, nil
}

// IsStale reports whether the position is older than three ping intervals.
func (p *ProviderLocation) IsStale(now time.Time, pingInterval time.Duration) bool {
	if pingInterval <= 0 {
		return false
	}
	return now.Sub(p.UpdatedAt) > 3*pingInterval
}

// SpeedMph returns the reported speed in miles per hour, or 0 when unknown.
func (p *ProviderLocation) SpeedMph() float64 {
	if p.SpeedMps == nil {
		return 0
	}
	return geo.MpsToMph(*p.SpeedMps)
}
