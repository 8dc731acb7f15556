package application

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/config"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	bookingDomain "github.com/Kilat-Pet-Delivery/service-geo/internal/domain/booking"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/location"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/servicearea"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/maps"
	"github.com/google/uuid"
)

type fakeBookings struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*bookingDomain.BookingRef
	// failUpdates makes the next n updates fail with a version conflict.
	failUpdates int
}

func newFakeBookings(refs ...*bookingDomain.BookingRef) *fakeBookings {
	f := &fakeBookings{byID: make(map[uuid.UUID]*bookingDomain.BookingRef)}
	for _, r := range refs {
		f.byID[r.ID()] = r
	}
	return f
}

func (f *fakeBookings) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.BookingRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id.String())
	}
	return b, nil
}

func (f *fakeBookings) FindRoutableByProvider(_ context.Context, providerID uuid.UUID, from, to time.Time) ([]*bookingDomain.BookingRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*bookingDomain.BookingRef
	for _, b := range f.byID {
		if b.ProviderID() == nil || *b.ProviderID() != providerID || !b.Status().IsRoutable() {
			continue
		}
		if b.StartsAt().Before(from) || !b.StartsAt().Before(to) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt().Before(out[j].StartsAt()) })
	return out, nil
}

func (f *fakeBookings) Save(_ context.Context, b *bookingDomain.BookingRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[b.ID()]; ok {
		return domain.NewConflictError("booking already exists")
	}
	f.byID[b.ID()] = b
	return nil
}

func (f *fakeBookings) Update(_ context.Context, b *bookingDomain.BookingRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdates > 0 {
		f.failUpdates--
		return domain.NewConflictError("booking was modified by another transaction")
	}
	f.byID[b.ID()] = b
	return nil
}

type fakeLocations struct {
	rows []*location.Location
}

func (f *fakeLocations) Save(_ context.Context, l *location.Location) error {
	f.rows = append(f.rows, l)
	return nil
}

func (f *fakeLocations) FindByID(_ context.Context, id uuid.UUID) (*location.Location, error) {
	for _, l := range f.rows {
		if l.ID() == id {
			return l, nil
		}
	}
	return nil, domain.NewNotFoundError("location", id.String())
}

func (f *fakeLocations) FindLatestForBooking(_ context.Context, bookingID uuid.UUID, role location.Role) (*location.Location, error) {
	var latest *location.Location
	for _, l := range f.rows {
		if l.BookingID() != nil && *l.BookingID() == bookingID && l.Role() == role {
			latest = l
		}
	}
	return latest, nil
}

func (f *fakeLocations) FindLatestForBookings(ctx context.Context, bookingIDs []uuid.UUID, role location.Role) (map[uuid.UUID]*location.Location, error) {
	out := make(map[uuid.UUID]*location.Location)
	for _, id := range bookingIDs {
		if l, _ := f.FindLatestForBooking(ctx, id, role); l != nil {
			out[id] = l
		}
	}
	return out, nil
}

func (f *fakeLocations) FindProviderHome(_ context.Context, providerID uuid.UUID) (*location.Location, error) {
	var latest *location.Location
	for _, l := range f.rows {
		if l.Role() == location.RoleProvider && l.OwnerID() == providerID && l.BookingID() == nil {
			latest = l
		}
	}
	return latest, nil
}

type fakeProviderLocations struct {
	byID map[uuid.UUID]*location.ProviderLocation
}

func newFakeProviderLocations() *fakeProviderLocations {
	return &fakeProviderLocations{byID: make(map[uuid.UUID]*location.ProviderLocation)}
}

func (f *fakeProviderLocations) Upsert(_ context.Context, pl *location.ProviderLocation) error {
	f.byID[pl.ProviderID] = pl
	return nil
}

func (f *fakeProviderLocations) FindByProviderID(_ context.Context, id uuid.UUID) (*location.ProviderLocation, error) {
	pl, ok := f.byID[id]
	if !ok {
		return nil, domain.NewNotFoundError("provider location", id.String())
	}
	return pl, nil
}

func (f *fakeProviderLocations) SetAvailability(_ context.Context, id uuid.UUID, available bool) error {
	pl, ok := f.byID[id]
	if !ok {
		return domain.NewNotFoundError("provider location", id.String())
	}
	pl.IsAvailable = available
	return nil
}

func (f *fakeProviderLocations) FindAvailableInBox(_ context.Context, box geo.BoundingBox, updatedSince time.Time) ([]*location.ProviderLocation, error) {
	var out []*location.ProviderLocation
	for _, pl := range f.byID {
		if pl.IsAvailable && !pl.UpdatedAt.Before(updatedSince) && box.Contains(pl.Point) {
			out = append(out, pl)
		}
	}
	return out, nil
}

type fakeCheckins struct {
	rows []*location.GpsCheckin
}

func (f *fakeCheckins) Append(_ context.Context, c *location.GpsCheckin) error {
	f.rows = append(f.rows, c)
	return nil
}

func (f *fakeCheckins) ListByBooking(_ context.Context, bookingID uuid.UUID) ([]*location.GpsCheckin, error) {
	var out []*location.GpsCheckin
	for _, c := range f.rows {
		if c.BookingID == bookingID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeCatalog struct {
	services map[uuid.UUID][]uuid.UUID
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{services: make(map[uuid.UUID][]uuid.UUID)}
}

func (f *fakeCatalog) ProviderIDsForService(_ context.Context, serviceID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for provider, ids := range f.services {
		for _, id := range ids {
			if id == serviceID {
				out = append(out, provider)
			}
		}
	}
	return out, nil
}

func (f *fakeCatalog) ReplaceProviderServices(_ context.Context, providerID uuid.UUID, serviceIDs []uuid.UUID) error {
	f.services[providerID] = serviceIDs
	return nil
}

type fakeRoutes struct {
	byKey map[string]*route.Route
}

func newFakeRoutes() *fakeRoutes { return &fakeRoutes{byKey: make(map[string]*route.Route)} }

// Replace keeps the ID and creation time of an existing route for the day, like
// the upsert in the GORM repository.
func (f *fakeRoutes) Replace(_ context.Context, r *route.Route) error {
	key := r.ProviderID().String() + r.DateString()
	if prev, ok := f.byKey[key]; ok {
		r = route.ReconstructRoute(prev.ID(), r.ProviderID(), r.Date(), r.BookingIDs(), r.Legs(), r.Home(),
			r.TotalMiles(), r.TotalMinutes(), r.IsOptimized(), r.Status(), prev.CreatedAt(), r.UpdatedAt())
	}
	f.byKey[key] = r
	return nil
}

func (f *fakeRoutes) FindByProviderAndDate(_ context.Context, providerID uuid.UUID, date time.Time) (*route.Route, error) {
	r, ok := f.byKey[providerID.String()+date.Format(route.DateLayout)]
	if !ok {
		return nil, domain.NewNotFoundError("route", providerID.String())
	}
	return r, nil
}

type fakeAreas struct {
	areas map[uuid.UUID]*servicearea.ServiceArea
}

func newFakeAreas(areas ...*servicearea.ServiceArea) *fakeAreas {
	f := &fakeAreas{areas: make(map[uuid.UUID]*servicearea.ServiceArea)}
	for _, a := range areas {
		f.areas[a.ID()] = a
	}
	return f
}

func (f *fakeAreas) Save(_ context.Context, a *servicearea.ServiceArea) error {
	f.areas[a.ID()] = a
	return nil
}

func (f *fakeAreas) FindByID(_ context.Context, id uuid.UUID) (*servicearea.ServiceArea, error) {
	a, ok := f.areas[id]
	if !ok {
		return nil, domain.NewNotFoundError("service area", id.String())
	}
	return a, nil
}

func (f *fakeAreas) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.areas[id]; !ok {
		return domain.NewNotFoundError("service area", id.String())
	}
	delete(f.areas, id)
	return nil
}

func (f *fakeAreas) List(_ context.Context, filter servicearea.ListFilter) ([]*servicearea.ServiceArea, int64, error) {
	var out []*servicearea.ServiceArea
	for _, a := range f.areas {
		if filter.Status != nil && a.Status() != *filter.Status {
			continue
		}
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAreas) FindActive(_ context.Context) ([]*servicearea.ServiceArea, error) {
	var out []*servicearea.ServiceArea
	for _, a := range f.areas {
		if a.IsActive() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// fakeMapClient answers geocodes from a table and reverse geocodes with a fixed address.
type fakeMapClient struct {
	configured     bool
	geocodes       map[string]maps.GeocodeResult
	reverse        *maps.AddressComponents
	reverseErr     error
	reverseCalls   int
	matrixElement  maps.MatrixElement
	matrixRequests int
}

func (f *fakeMapClient) IsConfigured() bool { return f.configured }

func (f *fakeMapClient) Geocode(_ context.Context, address string) (*maps.GeocodeResult, error) {
	if r, ok := f.geocodes[address]; ok {
		return &r, nil
	}
	return nil, domain.NewError(domain.KindUpstreamNoResults, "no results")
}

func (f *fakeMapClient) ReverseGeocode(context.Context, geo.Point) (*maps.AddressComponents, error) {
	f.reverseCalls++
	if f.reverseErr != nil {
		return nil, f.reverseErr
	}
	return f.reverse, nil
}

func (f *fakeMapClient) DistanceMatrix(context.Context, []maps.Place, []maps.Place, maps.MatrixOptions) (*maps.DistanceMatrix, error) {
	f.matrixRequests++
	return &maps.DistanceMatrix{Rows: [][]maps.MatrixElement{{f.matrixElement}}}, nil
}

func (f *fakeMapClient) Directions(context.Context, maps.Place, maps.Place, []maps.Place, maps.DirectionsOptions) (*maps.Directions, error) {
	return nil, domain.NewNotConfiguredError("directions")
}

// fixedCalculator reports a fixed duration between any two distinct points and
// measures distance as planar degrees so tests stay exact.
type fixedCalculator struct {
	HaversineCalculator
	minutes int
	traffic *int
}

func newFixedCalculator(settings config.GeoSettings, minutes int) *fixedCalculator {
	return &fixedCalculator{HaversineCalculator: HaversineCalculator{calculatorBase{settings: settings}}, minutes: minutes}
}

func (c *fixedCalculator) Distance(_ context.Context, from, to maps.Place) (*DistanceResult, error) {
	a, b := *from.Point, *to.Point
	miles := math.Hypot(a.Lat-b.Lat, a.Lng-b.Lng)
	minutes := c.minutes
	if miles == 0 {
		minutes = 0
	}
	r := c.newResult(miles, minutes, config.MethodHaversine)
	r.TrafficMinutes = c.traffic
	return r, nil
}

type recordedEvent struct {
	topic     string
	eventType string
	key       string
	data      interface{}
}

type fakePublisher struct {
	events []recordedEvent
}

func (p *fakePublisher) Publish(_ context.Context, topic, eventType, key string, data interface{}) {
	p.events = append(p.events, recordedEvent{topic: topic, eventType: eventType, key: key, data: data})
}
