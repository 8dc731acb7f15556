package application

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/config"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	bookingDomain "github.com/Kilat-Pet-Delivery/service-geo/internal/domain/booking"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/location"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/maps"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/proto/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const navigationBaseURL = "https://www.google.com/maps/dir/"

// RouteDTO is the response representation of a provider's daily route.
type RouteDTO struct {
	ID            uuid.UUID   `json:"id"`
	ProviderID    uuid.UUID   `json:"provider_id"`
	Date          string      `json:"date"`
	BookingIDs    []uuid.UUID `json:"booking_ids"`
	Legs          []route.Leg `json:"legs"`
	Home          *geo.Point  `json:"home,omitempty"`
	TotalMiles    float64     `json:"total_miles"`
	TotalDistance float64     `json:"total_distance"`
	Unit          geo.Unit    `json:"unit"`
	Display       string      `json:"display"`
	TotalMinutes  int         `json:"total_minutes"`
	DurationText  string      `json:"duration_text"`
	IsOptimized   bool        `json:"is_optimized"`
	Status        string      `json:"status"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NavigationDTO is a turn-by-turn link for the provider's route.
type NavigationDTO struct {
	URL       string `json:"url"`
	StopCount int    `json:"stop_count"`
}

// RouteOptimizer orders a provider's bookings for a day and stores the result.
type RouteOptimizer struct {
	stops      stopLoader
	routes     route.RouteRepository
	calculator DistanceCalculator
	publisher  EventPublisher
	settings   config.GeoSettings
	logger     *zap.Logger
}

// NewRouteOptimizer creates a new RouteOptimizer.
func NewRouteOptimizer(
	bookings bookingDomain.BookingRepository,
	locations location.LocationRepository,
	routes route.RouteRepository,
	calculator DistanceCalculator,
	publisher EventPublisher,
	settings config.GeoSettings,
	logger *zap.Logger,
) *RouteOptimizer {
	return &RouteOptimizer{
		stops:      stopLoader{bookings: bookings, locations: locations, logger: logger},
		routes:     routes,
		calculator: calculator,
		publisher:  publisher,
		settings:   settings,
		logger:     logger,
	}
}

// OptimizeDailyRoute orders the provider's bookings for date and replaces any
// route stored for that day.
func (o *RouteOptimizer) OptimizeDailyRoute(ctx context.Context, providerID uuid.UUID, date time.Time) (*RouteDTO, error) {
	stops, err := o.stops.load(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	if len(stops) == 0 {
		return nil, domain.NewError(domain.KindNoBookingsForDate, "no routable bookings with coordinates on this date").
			WithDetail("date", route.TruncateDate(date).Format(route.DateLayout))
	}

	var home *geo.Point
	if o.settings.Route.UseHomeLocation {
		home, err = o.stops.home(ctx, providerID)
		if err != nil {
			return nil, err
		}
	}

	legs := newLegMeter(o.calculator)
	var ordered []route.Stop
	if o.settings.Route.RespectTimeWindows {
		ordered, err = route.TimeWindowed(home, stops, o.settings.Route.ClusterGap, legs.distanceFunc(ctx))
	} else {
		ordered, err = route.NearestNeighbor(home, stops, legs.distanceFunc(ctx))
	}
	if err != nil {
		return nil, err
	}

	routeLegs, err := o.buildLegs(ctx, legs, home, ordered)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(ordered))
	for i, s := range ordered {
		ids[i] = s.BookingID
	}
	r, err := route.NewOptimizedRoute(providerID, date, ids, routeLegs, home)
	if err != nil {
		return nil, err
	}
	if err := o.routes.Replace(ctx, r); err != nil {
		return nil, err
	}
	// A replaced route keeps the ID it was first stored under.
	if r, err = o.routes.FindByProviderAndDate(ctx, providerID, r.Date()); err != nil {
		return nil, err
	}

	o.logger.Info("daily route optimized",
		zap.String("provider_id", providerID.String()),
		zap.String("date", r.DateString()),
		zap.Int("stops", len(ids)),
		zap.Float64("total_miles", r.TotalMiles()),
	)
	o.publisher.Publish(ctx, events.TopicGeoEvents, events.GeoRouteOptimized, providerID.String(), events.RouteOptimizedEvent{
		RouteID:      r.ID(),
		ProviderID:   providerID,
		Date:         r.DateString(),
		BookingIDs:   ids,
		TotalMiles:   r.TotalMiles(),
		TotalMinutes: r.TotalMinutes(),
		OccurredAt:   time.Now().UTC(),
	})

	dto := o.toRouteDTO(r)
	return &dto, nil
}

func (o *RouteOptimizer) buildLegs(ctx context.Context, meter *legMeter, home *geo.Point, ordered []route.Stop) ([]route.Leg, error) {
	var legs []route.Leg
	add := func(kind route.LegKind, from, to geo.Point, fromID, toID *uuid.UUID) error {
		r, err := meter.measure(ctx, from, to)
		if err != nil {
			return err
		}
		legs = append(legs, route.Leg{
			Kind:          kind,
			FromBookingID: fromID,
			ToBookingID:   toID,
			From:          from,
			To:            to,
			Miles:         r.Miles,
			Minutes:       r.DurationMinutes,
		})
		return nil
	}

	first := ordered[0]
	if home != nil {
		if err := add(route.LegFromHome, *home, first.Point, nil, uuidPtr(first.BookingID)); err != nil {
			return nil, err
		}
	}
	for i := 1; i < len(ordered); i++ {
		prev, next := ordered[i-1], ordered[i]
		if err := add(route.LegBetween, prev.Point, next.Point, uuidPtr(prev.BookingID), uuidPtr(next.BookingID)); err != nil {
			return nil, err
		}
	}
	if home != nil && o.settings.Route.ReturnToHome {
		last := ordered[len(ordered)-1]
		if err := add(route.LegToHome, last.Point, *home, uuidPtr(last.BookingID), nil); err != nil {
			return nil, err
		}
	}
	return legs, nil
}

// GetDailyRoute returns the stored route for the provider and date.
func (o *RouteOptimizer) GetDailyRoute(ctx context.Context, providerID uuid.UUID, date time.Time) (*RouteDTO, error) {
	r, err := o.routes.FindByProviderAndDate(ctx, providerID, route.TruncateDate(date))
	if err != nil {
		return nil, err
	}
	dto := o.toRouteDTO(r)
	return &dto, nil
}

// ExportNavigationURL builds a Google Maps directions link through the stored
// route: origin is home (or the first stop), destination is home when returning
// there (else the last stop), everything in between is a waypoint.
func (o *RouteOptimizer) ExportNavigationURL(ctx context.Context, providerID uuid.UUID, date time.Time) (*NavigationDTO, error) {
	r, err := o.routes.FindByProviderAndDate(ctx, providerID, route.TruncateDate(date))
	if err != nil {
		return nil, err
	}
	points := routePoints(r)
	if len(points) < 2 {
		return nil, domain.NewError(domain.KindInsufficientPoints, "route needs at least two points to navigate")
	}

	waypoints := make([]string, 0, len(points)-2)
	for _, p := range points[1 : len(points)-1] {
		waypoints = append(waypoints, p.String())
	}

	q := url.Values{}
	q.Set("api", "1")
	q.Set("origin", points[0].String())
	q.Set("destination", points[len(points)-1].String())
	if len(waypoints) > 0 {
		q.Set("waypoints", strings.Join(waypoints, "|"))
	}
	q.Set("travelmode", string(maps.ModeDriving))

	return &NavigationDTO{
		URL:       navigationBaseURL + "?" + q.Encode(),
		StopCount: len(r.BookingIDs()),
	}, nil
}

// routePoints lists every point the route passes through, in order.
func routePoints(r *route.Route) []geo.Point {
	legs := r.Legs()
	if len(legs) == 0 {
		return nil
	}
	points := []geo.Point{legs[0].From}
	for _, l := range legs {
		points = append(points, l.To)
	}
	return points
}

func (o *RouteOptimizer) toRouteDTO(r *route.Route) RouteDTO {
	unit := o.settings.Distance.Unit
	return RouteDTO{
		ID:            r.ID(),
		ProviderID:    r.ProviderID(),
		Date:          r.DateString(),
		BookingIDs:    r.BookingIDs(),
		Legs:          r.Legs(),
		Home:          r.Home(),
		TotalMiles:    r.TotalMiles(),
		TotalDistance: geo.Round2(unit.FromMiles(r.TotalMiles())),
		Unit:          unit,
		Display:       geo.FormatDistance(r.TotalMiles(), unit),
		TotalMinutes:  r.TotalMinutes(),
		DurationText:  geo.FormatDuration(r.TotalMinutes()),
		IsOptimized:   r.IsOptimized(),
		Status:        string(r.Status()),
		UpdatedAt:     r.UpdatedAt(),
	}
}

// legMeter memoizes calculator results per ordered point pair so ordering and
// leg aggregation measure each pair once.
type legMeter struct {
	calculator DistanceCalculator
	results    map[[2]geo.Point]*DistanceResult
}

func newLegMeter(calculator DistanceCalculator) *legMeter {
	return &legMeter{calculator: calculator, results: make(map[[2]geo.Point]*DistanceResult)}
}

func (m *legMeter) measure(ctx context.Context, from, to geo.Point) (*DistanceResult, error) {
	key := [2]geo.Point{from, to}
	if r, ok := m.results[key]; ok {
		return r, nil
	}
	r, err := m.calculator.Distance(ctx, maps.PointPlace(from), maps.PointPlace(to))
	if err != nil {
		return nil, err
	}
	m.results[key] = r
	return r, nil
}

func (m *legMeter) distanceFunc(ctx context.Context) route.DistanceFunc {
	return func(from, to geo.Point) (float64, error) {
		r, err := m.measure(ctx, from, to)
		if err != nil {
			return 0, err
		}
		return r.ExactMiles(), nil
	}
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
