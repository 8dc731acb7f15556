package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/config"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	bookingDomain "github.com/Kilat-Pet-Delivery/service-geo/internal/domain/booking"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/location"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/maps"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SlotRequest is a candidate appointment window.
type SlotRequest struct {
	StartsAt time.Time `json:"starts_at" binding:"required"`
	EndsAt   time.Time `json:"ends_at" binding:"required"`
}

// FilterSlotsRequest asks which candidate windows a provider can reach in time.
type FilterSlotsRequest struct {
	Lat   *float64      `json:"lat" binding:"required"`
	Lng   *float64      `json:"lng" binding:"required"`
	Slots []SlotRequest `json:"slots" binding:"required"`
}

// SlotDTO is a candidate window with its feasibility verdict.
type SlotDTO struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Feasible bool      `json:"feasible"`
	Reason   string    `json:"reason,omitempty"`
}

// Feasibility explains whether a candidate fits between existing bookings.
type Feasibility struct {
	Feasible          bool       `json:"feasible"`
	Reason            string     `json:"reason,omitempty"`
	ConflictBookingID *uuid.UUID `json:"conflict_booking_id,omitempty"`
	TravelMinutes     int        `json:"travel_minutes,omitempty"`
	GapMinutes        int        `json:"gap_minutes,omitempty"`
}

// ScheduleEntry is one booking with the travel leading up to it.
type ScheduleEntry struct {
	BookingID         uuid.UUID  `json:"booking_id"`
	StartsAt          time.Time  `json:"starts_at"`
	EndsAt            time.Time  `json:"ends_at"`
	FromBookingID     *uuid.UUID `json:"from_booking_id,omitempty"`
	FromHome          bool       `json:"from_home"`
	DistanceMiles     float64    `json:"distance_miles"`
	TravelMinutes     int        `json:"travel_minutes"`
	RequiredDeparture *time.Time `json:"required_departure,omitempty"`
	HasConflict       bool       `json:"has_conflict"`
}

// ReturnLeg is the drive home after the last booking.
type ReturnLeg struct {
	FromBookingID uuid.UUID `json:"from_booking_id"`
	DistanceMiles float64   `json:"distance_miles"`
	TravelMinutes int       `json:"travel_minutes"`
	ArrivesAt     time.Time `json:"arrives_at"`
}

// ScheduleDTO is a provider's day in start order with travel between bookings.
type ScheduleDTO struct {
	ProviderID         uuid.UUID       `json:"provider_id"`
	Date               string          `json:"date"`
	Entries            []ScheduleEntry `json:"entries"`
	ReturnHome         *ReturnLeg      `json:"return_home,omitempty"`
	TotalTravelMinutes int             `json:"total_travel_minutes"`
	TotalMiles         float64         `json:"total_miles"`
	HasConflicts       bool            `json:"has_conflicts"`
}

// ScheduleIssue is a booking that cannot be reached in time from the previous one.
type ScheduleIssue struct {
	BookingID         uuid.UUID `json:"booking_id"`
	PreviousBookingID uuid.UUID `json:"previous_booking_id"`
	GapMinutes        int       `json:"gap_minutes"`
	TravelMinutes     int       `json:"travel_minutes"`
	Message           string    `json:"message"`
}

// FeasibilityReport is the outcome of validating a day's schedule.
type FeasibilityReport struct {
	ProviderID uuid.UUID       `json:"provider_id"`
	Date       string          `json:"date"`
	Feasible   bool            `json:"feasible"`
	Issues     []ScheduleIssue `json:"issues"`
}

// TravelTimeScheduler checks appointment windows against the travel needed between them.
type TravelTimeScheduler struct {
	stops      stopLoader
	calculator DistanceCalculator
	settings   config.GeoSettings
	logger     *zap.Logger
}

// NewTravelTimeScheduler creates a new TravelTimeScheduler.
func NewTravelTimeScheduler(
	bookings bookingDomain.BookingRepository,
	locations location.LocationRepository,
	calculator DistanceCalculator,
	settings config.GeoSettings,
	logger *zap.Logger,
) *TravelTimeScheduler {
	return &TravelTimeScheduler{
		stops:      stopLoader{bookings: bookings, locations: locations, logger: logger},
		calculator: calculator,
		settings:   settings,
		logger:     logger,
	}
}

// BufferedTravelTime pads a raw travel estimate with the configured buffer.
func (s *TravelTimeScheduler) BufferedTravelTime(baseMinutes int) int {
	return s.calculator.BufferedTravelTime(baseMinutes)
}

// travelMinutes buffers the traffic-adjusted duration when the provider reports
// one, and the plain duration otherwise.
func (s *TravelTimeScheduler) travelMinutes(ctx context.Context, from, to geo.Point) (int, float64, error) {
	r, err := s.calculator.Distance(ctx, maps.PointPlace(from), maps.PointPlace(to))
	if err != nil {
		return 0, 0, err
	}
	base := r.DurationMinutes
	if r.TrafficMinutes != nil {
		base = *r.TrafficMinutes
	}
	return s.calculator.BufferedTravelTime(base), r.Miles, nil
}

// IsSlotFeasible rejects a candidate that overlaps an existing booking, or that
// leaves too little time to drive from the booking right before it or to the
// booking right after it.
func (s *TravelTimeScheduler) IsSlotFeasible(ctx context.Context, candidate route.Stop, existing []route.Stop) (*Feasibility, error) {
	if !candidate.EndsAt.After(candidate.StartsAt) {
		return nil, domain.NewValidationError("slot must end after it starts")
	}

	var prev, next *route.Stop
	for i := range existing {
		e := &existing[i]
		if e.StartsAt.Before(candidate.EndsAt) && candidate.StartsAt.Before(e.EndsAt) {
			id := e.BookingID
			return &Feasibility{Reason: "overlaps an existing booking", ConflictBookingID: &id}, nil
		}
		if !e.EndsAt.After(candidate.StartsAt) && (prev == nil || e.EndsAt.After(prev.EndsAt)) {
			prev = e
		}
		if !e.StartsAt.Before(candidate.EndsAt) && (next == nil || e.StartsAt.Before(next.StartsAt)) {
			next = e
		}
	}

	if prev != nil {
		travel, _, err := s.travelMinutes(ctx, prev.Point, candidate.Point)
		if err != nil {
			return nil, err
		}
		gap := int(candidate.StartsAt.Sub(prev.EndsAt).Minutes())
		if travel > gap {
			id := prev.BookingID
			return &Feasibility{
				Reason:            "not enough time to travel from the previous booking",
				ConflictBookingID: &id,
				TravelMinutes:     travel,
				GapMinutes:        gap,
			}, nil
		}
	}
	if next != nil {
		travel, _, err := s.travelMinutes(ctx, candidate.Point, next.Point)
		if err != nil {
			return nil, err
		}
		gap := int(next.StartsAt.Sub(candidate.EndsAt).Minutes())
		if travel > gap {
			id := next.BookingID
			return &Feasibility{
				Reason:            "not enough time to travel to the next booking",
				ConflictBookingID: &id,
				TravelMinutes:     travel,
				GapMinutes:        gap,
			}, nil
		}
	}
	return &Feasibility{Feasible: true}, nil
}

// FilterSlotsByTravel checks every candidate window at the given location
// against the provider's bookings on the same day as that window.
func (s *TravelTimeScheduler) FilterSlotsByTravel(ctx context.Context, providerID uuid.UUID, req FilterSlotsRequest) ([]SlotDTO, error) {
	at, err := requiredPoint(req.Lat, req.Lng)
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time][]route.Stop)
	out := make([]SlotDTO, 0, len(req.Slots))
	for _, slot := range req.Slots {
		day := route.TruncateDate(slot.StartsAt)
		existing, ok := byDay[day]
		if !ok {
			var err error
			existing, err = s.stops.load(ctx, providerID, day)
			if err != nil {
				return nil, err
			}
			byDay[day] = existing
		}

		f, err := s.IsSlotFeasible(ctx, route.Stop{Point: at, StartsAt: slot.StartsAt, EndsAt: slot.EndsAt}, existing)
		if err != nil {
			return nil, err
		}
		out = append(out, SlotDTO{StartsAt: slot.StartsAt, EndsAt: slot.EndsAt, Feasible: f.Feasible, Reason: f.Reason})
	}
	return out, nil
}

// CalculateScheduleWithTravel loads the provider's day and lays out the travel
// before each booking.
func (s *TravelTimeScheduler) CalculateScheduleWithTravel(ctx context.Context, providerID uuid.UUID, date time.Time) (*ScheduleDTO, error) {
	stops, err := s.stops.load(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	var home *geo.Point
	if s.settings.Route.UseHomeLocation {
		if home, err = s.stops.home(ctx, providerID); err != nil {
			return nil, err
		}
	}

	schedule, err := s.BuildSchedule(ctx, stops, home)
	if err != nil {
		return nil, err
	}
	schedule.ProviderID = providerID
	schedule.Date = route.TruncateDate(date).Format(route.DateLayout)
	return schedule, nil
}

// BuildSchedule walks stops in start order. Each booking's required departure is
// its start minus the travel time; it conflicts when that falls before the
// previous booking ends. With a home point the first leg starts there and, when
// configured, a final leg returns there.
func (s *TravelTimeScheduler) BuildSchedule(ctx context.Context, stops []route.Stop, home *geo.Point) (*ScheduleDTO, error) {
	ordered := make([]route.Stop, len(stops))
	copy(ordered, stops)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StartsAt.Before(ordered[j].StartsAt) })

	out := &ScheduleDTO{Entries: make([]ScheduleEntry, 0, len(ordered))}
	var miles float64
	for i, stop := range ordered {
		entry := ScheduleEntry{BookingID: stop.BookingID, StartsAt: stop.StartsAt, EndsAt: stop.EndsAt}

		var from *geo.Point
		if i > 0 {
			prev := ordered[i-1]
			from = &prev.Point
			entry.FromBookingID = uuidPtr(prev.BookingID)
		} else if home != nil {
			from = home
			entry.FromHome = true
		}

		if from != nil {
			travel, legMiles, err := s.travelMinutes(ctx, *from, stop.Point)
			if err != nil {
				return nil, err
			}
			departure := stop.StartsAt.Add(-time.Duration(travel) * time.Minute)
			entry.TravelMinutes = travel
			entry.DistanceMiles = legMiles
			entry.RequiredDeparture = &departure
			if i > 0 && departure.Before(ordered[i-1].EndsAt) {
				entry.HasConflict = true
				out.HasConflicts = true
			}
			out.TotalTravelMinutes += travel
			miles += legMiles
		}
		out.Entries = append(out.Entries, entry)
	}

	if home != nil && s.settings.Route.ReturnToHome && len(ordered) > 0 {
		last := ordered[len(ordered)-1]
		travel, legMiles, err := s.travelMinutes(ctx, last.Point, *home)
		if err != nil {
			return nil, err
		}
		out.ReturnHome = &ReturnLeg{
			FromBookingID: last.BookingID,
			DistanceMiles: legMiles,
			TravelMinutes: travel,
			ArrivesAt:     last.EndsAt.Add(time.Duration(travel) * time.Minute),
		}
		out.TotalTravelMinutes += travel
		miles += legMiles
	}

	out.TotalMiles = geo.Round2(miles)
	return out, nil
}

// ValidateScheduleFeasibility reports every booking on the provider's day that
// cannot be reached in time from the booking before it.
func (s *TravelTimeScheduler) ValidateScheduleFeasibility(ctx context.Context, providerID uuid.UUID, date time.Time) (*FeasibilityReport, error) {
	stops, err := s.stops.load(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	issues, err := s.FindIssues(ctx, stops)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		s.logger.Info("schedule has travel conflicts",
			zap.String("provider_id", providerID.String()),
			zap.Int("issues", len(issues)),
		)
	}
	return &FeasibilityReport{
		ProviderID: providerID,
		Date:       route.TruncateDate(date).Format(route.DateLayout),
		Feasible:   len(issues) == 0,
		Issues:     issues,
	}, nil
}

// FindIssues lists the conflicting entries of the schedule built from stops.
func (s *TravelTimeScheduler) FindIssues(ctx context.Context, stops []route.Stop) ([]ScheduleIssue, error) {
	schedule, err := s.BuildSchedule(ctx, stops, nil)
	if err != nil {
		return nil, err
	}
	issues := make([]ScheduleIssue, 0)
	for i, e := range schedule.Entries {
		if !e.HasConflict {
			continue
		}
		prev := schedule.Entries[i-1]
		gap := int(e.StartsAt.Sub(prev.EndsAt).Minutes())
		issues = append(issues, ScheduleIssue{
			BookingID:         e.BookingID,
			PreviousBookingID: prev.BookingID,
			GapMinutes:        gap,
			TravelMinutes:     e.TravelMinutes,
			Message:           fmt.Sprintf("needs %s of travel but only %d min between bookings", geo.FormatDuration(e.TravelMinutes), gap),
		})
	}
	return issues, nil
}
