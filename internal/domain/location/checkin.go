package location

import (
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/google/uuid"
)

// CheckinType distinguishes arrival from departure check-ins.
type CheckinType string

const (
	CheckinArrival   CheckinType = "arrival"
	CheckinDeparture CheckinType = "departure"
)

// IsValid returns true if the check-in type is recognized.
func (t CheckinType) IsValid() bool {
	return t == CheckinArrival || t == CheckinDeparture
}

// ParseCheckinType converts a string to a CheckinType.
func ParseCheckinType(s string) (CheckinType, error) {
	t := CheckinType(s)
	if !t.IsValid() {
		return "", domain.NewValidationError(fmt.Sprintf("invalid checkin type: %s", s))
	}
	return t, nil
}

// GpsCheckin is an append-only record of a provider reporting their position
// against a booking. It is immutable once created.
type GpsCheckin struct {
	ID             uuid.UUID         `json:"id"`
	BookingID      uuid.UUID         `json:"booking_id"`
	ProviderID     uuid.UUID         `json:"provider_id"`
	Type           CheckinType       `json:"checkin_type"`
	Point          geo.Point         `json:"point"`
	AccuracyM      *float64          `json:"accuracy_m,omitempty"`
	DistanceMeters *float64          `json:"distance_meters,omitempty"`
	IsVerified     bool              `json:"is_verified"`
	Notes          string            `json:"notes,omitempty"`
	Device         map[string]string `json:"device,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// CheckinInput carries what a provider device submits.
type CheckinInput struct {
	BookingID  uuid.UUID
	ProviderID uuid.UUID
	Lat        float64
	Lng        float64
	AccuracyM  *float64
	Type       CheckinType
	Notes      string
	Device     map[string]string
}

// Verification is the outcome of comparing a check-in to the booking location.
type Verification struct {
	DistanceMeters *float64
	IsVerified     bool
}

// Verify measures the check-in point against the registered booking location.
// A nil target means the booking has no coordinates, which never verifies.
func Verify(at geo.Point, target *geo.Point, radiusMeters float64) Verification {
	if target == nil {
		return Verification{}
	}
	d := geo.HaversineMeters(at, *target)
	return Verification{
		DistanceMeters: &d,
		IsVerified:     d <= radiusMeters,
	}
}

// NewGpsCheckin validates the input and builds the immutable record.
func NewGpsCheckin(in CheckinInput, v Verification, now time.Time) (*GpsCheckin, error) {
	if in.BookingID == uuid.Nil {
		return nil, domain.NewValidationError("booking ID is required")
	}
	if in.ProviderID == uuid.Nil {
		return nil, domain.NewValidationError("provider ID is required")
	}
	if !in.Type.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid checkin type: %s", in.Type))
	}
	p := geo.NewPoint(in.Lat, in.Lng)
	if err := p.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	return &GpsCheckin{
		ID:             uuid.New(),
		BookingID:      in.BookingID,
		ProviderID:     in.ProviderID,
		Type:           in.Type,
		Point:          p,
		AccuracyM:      in.AccuracyM,
		DistanceMeters: v.DistanceMeters,
		IsVerified:     v.IsVerified,
		Notes:          in.Notes,
		Device:         in.Device,
		CreatedAt:      now.UTC(),
	}, nil
}
