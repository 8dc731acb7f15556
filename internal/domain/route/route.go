package route

import (
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/google/uuid"
)

// DateLayout is the calendar-date form used for route days.
const DateLayout = "2006-01-02"

// Status is the lifecycle state of a daily route.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// LegKind says which stops a leg connects.
type LegKind string

const (
	LegFromHome LegKind = "from_home"
	LegBetween  LegKind = "between"
	LegToHome   LegKind = "to_home"
)

// Leg is one hop of a route with its measured distance and duration.
type Leg struct {
	Kind          LegKind    `json:"kind"`
	FromBookingID *uuid.UUID `json:"from_booking_id,omitempty"`
	ToBookingID   *uuid.UUID `json:"to_booking_id,omitempty"`
	From          geo.Point  `json:"from"`
	To            geo.Point  `json:"to"`
	Miles         float64    `json:"miles"`
	Minutes       int        `json:"minutes"`
}

// Route is a provider's ordered visit plan for one day. Re-optimizing replaces it.
type Route struct {
	id           uuid.UUID
	providerID   uuid.UUID
	date         time.Time
	bookingIDs   []uuid.UUID
	legs         []Leg
	home         *geo.Point
	totalMiles   float64
	totalMinutes int
	isOptimized  bool
	status       Status
	createdAt    time.Time
	updatedAt    time.Time
}

// NewOptimizedRoute builds the route produced by an optimization pass.
func NewOptimizedRoute(providerID uuid.UUID, date time.Time, bookingIDs []uuid.UUID, legs []Leg, home *geo.Point) (*Route, error) {
	if providerID == uuid.Nil {
		return nil, domain.NewValidationError("provider ID is required")
	}
	if len(bookingIDs) == 0 {
		return nil, domain.NewError(domain.KindNoBookingsForDate, "a route needs at least one booking")
	}

	var miles float64
	var minutes int
	for _, l := range legs {
		miles += l.Miles
		minutes += l.Minutes
	}

	now := time.Now().UTC()
	return &Route{
		id:           uuid.New(),
		providerID:   providerID,
		date:         TruncateDate(date),
		bookingIDs:   bookingIDs,
		legs:         legs,
		home:         home,
		totalMiles:   geo.Round2(miles),
		totalMinutes: minutes,
		isOptimized:  true,
		status:       StatusPlanned,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructRoute rebuilds a Route from persistence data (no validation).
func ReconstructRoute(
	id, providerID uuid.UUID,
	date time.Time,
	bookingIDs []uuid.UUID,
	legs []Leg,
	home *geo.Point,
	totalMiles float64,
	totalMinutes int,
	isOptimized bool,
	status Status,
	createdAt, updatedAt time.Time,
) *Route {
	return &Route{
		id:           id,
		providerID:   providerID,
		date:         date,
		bookingIDs:   bookingIDs,
		legs:         legs,
		home:         home,
		totalMiles:   totalMiles,
		totalMinutes: totalMinutes,
		isOptimized:  isOptimized,
		status:       status,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (r *Route) ID() uuid.UUID           { return r.id }
func (r *Route) ProviderID() uuid.UUID   { return r.providerID }
func (r *Route) Date() time.Time         { return r.date }
func (r *Route) BookingIDs() []uuid.UUID { return r.bookingIDs }
func (r *Route) Legs() []Leg             { return r.legs }
func (r *Route) Home() *geo.Point        { return r.home }
func (r *Route) TotalMiles() float64     { return r.totalMiles }
func (r *Route) TotalMinutes() int       { return r.totalMinutes }
func (r *Route) IsOptimized() bool       { return r.isOptimized }
func (r *Route) Status() Status          { return r.status }
func (r *Route) CreatedAt() time.Time    { return r.createdAt }
func (r *Route) UpdatedAt() time.Time    { return r.updatedAt }

// DateString returns the route day as YYYY-MM-DD.
func (r *Route) DateString() string { return r.date.Format(DateLayout) }

// TruncateDate drops the clock part of t, keeping its calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD route day.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, domain.NewValidationError("date must be formatted as YYYY-MM-DD")
	}
	return d, nil
}
