package application

import (
	"context"
	"math"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/config"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/maps"
	"go.uber.org/zap"
)

const metersPerMile = 1609.344

// DistanceResult is the measured distance and travel time between two places.
type DistanceResult struct {
	Miles           float64               `json:"miles"`
	Kilometers      float64               `json:"kilometers"`
	Distance        float64               `json:"distance"`
	Unit            geo.Unit              `json:"unit"`
	Display         string                `json:"display"`
	DurationMinutes int                   `json:"duration_minutes"`
	TrafficMinutes  *int                  `json:"traffic_minutes,omitempty"`
	DurationText    string                `json:"duration_text"`
	Method          config.DistanceMethod `json:"method"`

	exactMiles float64
}

// ExactMiles is the unrounded distance in miles.
func (r *DistanceResult) ExactMiles() float64 {
	if r.exactMiles == 0 {
		return r.Miles
	}
	return r.exactMiles
}

// MultiPointResult sums consecutive legs over an ordered list of places.
type MultiPointResult struct {
	Legs            []DistanceResult `json:"legs"`
	TotalMiles      float64          `json:"total_miles"`
	TotalDistance   float64          `json:"total_distance"`
	Unit            geo.Unit         `json:"unit"`
	Display         string           `json:"display"`
	DurationMinutes int              `json:"duration_minutes"`
	DurationText    string           `json:"duration_text"`
}

// DistanceCalculator measures travel between places. Implementations differ only
// in how a single leg is measured.
type DistanceCalculator interface {
	Distance(ctx context.Context, from, to maps.Place) (*DistanceResult, error)
	MultiPoint(ctx context.Context, places []maps.Place) (*MultiPointResult, error)
	// IsWithinMax treats max <= 0 as unlimited.
	IsWithinMax(distance, max float64) bool
	BufferedTravelTime(baseMinutes int) int
	FormatDuration(minutes int) string
}

// NewDistanceCalculator picks the implementation once from the settings. The API
// calculator is only used when the map client is configured.
func NewDistanceCalculator(settings config.GeoSettings, client maps.Client, logger *zap.Logger) DistanceCalculator {
	base := calculatorBase{settings: settings, geocoder: client, logger: logger}
	if settings.Distance.Method == config.MethodAPI {
		if client != nil && client.IsConfigured() {
			return &APIDistanceCalculator{calculatorBase: base, client: client}
		}
		logger.Warn("distance method is api but no map provider is configured, using haversine")
	}
	return &HaversineCalculator{calculatorBase: base}
}

type calculatorBase struct {
	settings config.GeoSettings
	geocoder maps.Client
	logger   *zap.Logger
}

func (b calculatorBase) IsWithinMax(distance, max float64) bool {
	if max <= 0 {
		return true
	}
	return distance <= max
}

// BufferedTravelTime pads a raw estimate: the percentage buffer is clamped to
// [min, max], the result never drops below base, and it is rounded up to the next
// RoundTo-minute step.
func (b calculatorBase) BufferedTravelTime(baseMinutes int) int {
	if baseMinutes <= 0 {
		return 0
	}
	s := b.settings.Buffer

	buffered := float64(baseMinutes) * s.Percent / 100
	buffered = math.Max(float64(s.MinMinutes), math.Min(float64(s.MaxMinutes), buffered))
	buffered = math.Max(float64(baseMinutes), buffered)

	step := s.RoundTo
	if step <= 0 {
		step = 1
	}
	return int(math.Ceil(buffered/float64(step))) * step
}

func (b calculatorBase) FormatDuration(minutes int) string {
	return geo.FormatDuration(minutes)
}

func (b calculatorBase) multiPoint(ctx context.Context, places []maps.Place, leg func(context.Context, maps.Place, maps.Place) (*DistanceResult, error)) (*MultiPointResult, error) {
	if len(places) < 2 {
		return nil, domain.NewError(domain.KindInsufficientPoints, "at least two points are required")
	}

	unit := b.settings.Distance.Unit
	out := &MultiPointResult{Unit: unit}
	var miles float64
	for i := 1; i < len(places); i++ {
		r, err := leg(ctx, places[i-1], places[i])
		if err != nil {
			return nil, err
		}
		out.Legs = append(out.Legs, *r)
		miles += r.ExactMiles()
		out.DurationMinutes += r.DurationMinutes
	}

	out.TotalMiles = geo.Round2(miles)
	out.TotalDistance = geo.Round2(unit.FromMiles(miles))
	out.Display = geo.FormatDistance(miles, unit)
	out.DurationText = geo.FormatDuration(out.DurationMinutes)
	return out, nil
}

func (b calculatorBase) newResult(miles float64, minutes int, method config.DistanceMethod) *DistanceResult {
	unit := b.settings.Distance.Unit
	return &DistanceResult{
		Miles:           geo.Round2(miles),
		Kilometers:      geo.Round2(geo.MilesToKm(miles)),
		Distance:        geo.Round2(unit.FromMiles(miles)),
		Unit:            unit,
		Display:         geo.FormatDistance(miles, unit),
		DurationMinutes: minutes,
		DurationText:    geo.FormatDuration(minutes),
		Method:          method,
		exactMiles:      miles,
	}
}

// resolve returns the coordinates of a place, geocoding addresses when possible.
func (b calculatorBase) resolve(ctx context.Context, p maps.Place) (geo.Point, error) {
	if err := p.Validate(); err != nil {
		return geo.Point{}, err
	}
	if p.Point != nil {
		return *p.Point, nil
	}
	if b.geocoder == nil || !b.geocoder.IsConfigured() {
		return geo.Point{}, domain.NewNotConfiguredError("geocoding for address-only places")
	}
	res, err := b.geocoder.Geocode(ctx, p.Address)
	if err != nil {
		return geo.Point{}, err
	}
	return res.Point, nil
}

// HaversineCalculator measures straight-line distance and estimates duration at
// a flat fallback speed.
type HaversineCalculator struct {
	calculatorBase
}

// NewHaversineCalculator creates a calculator that never calls the routing API.
// geocoder may be nil, in which case only coordinate places are accepted.
func NewHaversineCalculator(settings config.GeoSettings, geocoder maps.Client, logger *zap.Logger) *HaversineCalculator {
	return &HaversineCalculator{calculatorBase{settings: settings, geocoder: geocoder, logger: logger}}
}

func (c *HaversineCalculator) Distance(ctx context.Context, from, to maps.Place) (*DistanceResult, error) {
	a, err := c.resolve(ctx, from)
	if err != nil {
		return nil, err
	}
	b, err := c.resolve(ctx, to)
	if err != nil {
		return nil, err
	}
	return c.between(a, b), nil
}

func (c *HaversineCalculator) between(a, b geo.Point) *DistanceResult {
	miles := geo.HaversineMiles(a, b)
	minutes := geo.RoundMinutes(geo.EstimateDurationMinutes(miles, c.settings.Distance.FallbackSpeedMph))
	return c.newResult(miles, minutes, config.MethodHaversine)
}

func (c *HaversineCalculator) MultiPoint(ctx context.Context, places []maps.Place) (*MultiPointResult, error) {
	return c.multiPoint(ctx, places, c.Distance)
}

// APIDistanceCalculator measures road distance through the map provider's
// distance matrix with traffic-aware durations.
type APIDistanceCalculator struct {
	calculatorBase
	client maps.Client
}

func (c *APIDistanceCalculator) Distance(ctx context.Context, from, to maps.Place) (*DistanceResult, error) {
	if err := from.Validate(); err != nil {
		return nil, err
	}
	if err := to.Validate(); err != nil {
		return nil, err
	}

	matrix, err := c.client.DistanceMatrix(ctx, []maps.Place{from}, []maps.Place{to}, maps.MatrixOptions{
		Mode:      maps.ModeDriving,
		DepartNow: true,
	})
	if err != nil {
		return nil, err
	}
	el, ok := matrix.Element(0, 0)
	if !ok || !el.OK() {
		status := el.Status
		if !ok {
			status = "EMPTY"
		}
		return nil, domain.NewError(domain.KindRouteNotFound, "no route between the given places").
			WithDetail("element_status", status)
	}

	miles := float64(el.DistanceMeters) / metersPerMile
	r := c.newResult(miles, secondsToMinutes(el.DurationSeconds), config.MethodAPI)
	if el.TrafficSeconds > 0 {
		traffic := secondsToMinutes(el.TrafficSeconds)
		r.TrafficMinutes = &traffic
	}
	return r, nil
}

func (c *APIDistanceCalculator) MultiPoint(ctx context.Context, places []maps.Place) (*MultiPointResult, error) {
	return c.multiPoint(ctx, places, c.Distance)
}

func secondsToMinutes(s int) int {
	return geo.RoundMinutes(float64(s) / 60)
}
