package maps

import (
	"context"
	"strings"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
)

// Client is the contract for the external map provider.
type Client interface {
	// IsConfigured reports whether calls can reach the provider at all.
	IsConfigured() bool

	Geocode(ctx context.Context, address string) (*GeocodeResult, error)
	ReverseGeocode(ctx context.Context, p geo.Point) (*AddressComponents, error)
	DistanceMatrix(ctx context.Context, origins, destinations []Place, opts MatrixOptions) (*DistanceMatrix, error)
	Directions(ctx context.Context, origin, destination Place, waypoints []Place, opts DirectionsOptions) (*Directions, error)
}

// Place is either a free-form address or a coordinate. Coordinates win when both are set.
type Place struct {
	Address string     `json:"address,omitempty"`
	Point   *geo.Point `json:"point,omitempty"`
}

// PointPlace wraps a coordinate.
func PointPlace(p geo.Point) Place { return Place{Point: &p} }

// AddressPlace wraps an address.
func AddressPlace(address string) Place { return Place{Address: address} }

// Validate requires a usable address or a valid coordinate.
func (p Place) Validate() error {
	if p.Point != nil {
		if err := p.Point.Validate(); err != nil {
			return domain.NewValidationError(err.Error())
		}
		return nil
	}
	if strings.TrimSpace(p.Address) == "" {
		return domain.NewValidationError("an address or coordinates are required")
	}
	return nil
}

// String renders the place the way the provider expects it in query strings.
func (p Place) String() string {
	if p.Point != nil {
		return p.Point.String()
	}
	return normalizeAddress(p.Address)
}

func joinPlaces(ps []Place) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, "|")
}

func normalizeAddress(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

type GeocodeResult struct {
	Point            geo.Point `json:"point"`
	FormattedAddress string    `json:"formatted_address"`
	PlaceID          string    `json:"place_id"`
}

// AddressComponents is the administrative breakdown of a reverse-geocoded point.
type AddressComponents struct {
	FormattedAddress string `json:"formatted_address"`
	PostalCode       string `json:"postal_code"`
	City             string `json:"city"`
	StateLong        string `json:"state_long"`
	StateShort       string `json:"state_short"`
	Country          string `json:"country"`
}

// TravelMode is the provider's routing profile.
type TravelMode string

const (
	ModeDriving   TravelMode = "driving"
	ModeWalking   TravelMode = "walking"
	ModeBicycling TravelMode = "bicycling"
)

type MatrixOptions struct {
	Mode TravelMode `json:"mode,omitempty"`
	// DepartNow requests traffic-aware durations for a departure at call time.
	DepartNow bool `json:"depart_now,omitempty"`
}

type DirectionsOptions struct {
	Mode              TravelMode `json:"mode,omitempty"`
	DepartNow         bool       `json:"depart_now,omitempty"`
	OptimizeWaypoints bool       `json:"optimize_waypoints,omitempty"`
}

// MatrixElement is one origin/destination cell. Status is the provider's element status.
type MatrixElement struct {
	Status          string `json:"status"`
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	TrafficSeconds  int    `json:"traffic_seconds,omitempty"`
}

// OK reports whether the provider found a route for this cell.
func (e MatrixElement) OK() bool { return e.Status == "OK" }

// DistanceMatrix holds one row per origin, one element per destination.
type DistanceMatrix struct {
	Rows [][]MatrixElement `json:"rows"`
}

// Element returns the cell for origin i and destination j.
func (m *DistanceMatrix) Element(i, j int) (MatrixElement, bool) {
	if i < 0 || i >= len(m.Rows) || j < 0 || j >= len(m.Rows[i]) {
		return MatrixElement{}, false
	}
	return m.Rows[i][j], true
}

type DirectionsLeg struct {
	Start           geo.Point `json:"start"`
	End             geo.Point `json:"end"`
	StartAddress    string    `json:"start_address"`
	EndAddress      string    `json:"end_address"`
	DistanceMeters  int       `json:"distance_meters"`
	DurationSeconds int       `json:"duration_seconds"`
	TrafficSeconds  int       `json:"traffic_seconds,omitempty"`
}

// Directions is the first route returned by the provider.
type Directions struct {
	Legs          []DirectionsLeg `json:"legs"`
	WaypointOrder []int           `json:"waypoint_order,omitempty"`
	Polyline      string          `json:"polyline"`
}

// TotalMeters sums the leg distances.
func (d *Directions) TotalMeters() int {
	total := 0
	for _, l := range d.Legs {
		total += l.DistanceMeters
	}
	return total
}

// TotalSeconds sums the leg durations.
func (d *Directions) TotalSeconds() int {
	total := 0
	for _, l := range d.Legs {
		total += l.DurationSeconds
	}
	return total
}
