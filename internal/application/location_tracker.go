package application

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/config"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	bookingDomain "github.com/Kilat-Pet-Delivery/service-geo/internal/domain/booking"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/location"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/maps"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/proto/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaveLocationRequest registers an address or coordinate for a customer or provider.
type SaveLocationRequest struct {
	Role      string           `json:"role" binding:"required"`
	OwnerID   uuid.UUID        `json:"owner_id"`
	BookingID *uuid.UUID       `json:"booking_id"`
	Address   location.Address `json:"address"`
	Lat       *float64         `json:"lat"`
	Lng       *float64         `json:"lng"`
	Notes     string           `json:"notes"`
	Verified  bool             `json:"verified"`
}

// LocationDTO is the response representation of a location.
type LocationDTO struct {
	ID               uuid.UUID        `json:"id"`
	Role             string           `json:"role"`
	OwnerID          uuid.UUID        `json:"owner_id"`
	BookingID        *uuid.UUID       `json:"booking_id,omitempty"`
	Address          location.Address `json:"address"`
	Lat              *float64         `json:"lat,omitempty"`
	Lng              *float64         `json:"lng,omitempty"`
	FormattedAddress string           `json:"formatted_address,omitempty"`
	PlaceRef         string           `json:"place_ref,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	IsVerified       bool             `json:"is_verified"`
	CreatedAt        time.Time        `json:"created_at"`
}

// RecordCheckinRequest is what a provider device submits on arrival or departure.
type RecordCheckinRequest struct {
	Lat       *float64          `json:"lat" binding:"required"`
	Lng       *float64          `json:"lng" binding:"required"`
	AccuracyM *float64          `json:"accuracy"`
	Type      string            `json:"checkin_type" binding:"required"`
	Notes     string            `json:"notes"`
	Device    map[string]string `json:"device"`
}

// ProviderLocationDTO is a provider's latest position.
type ProviderLocationDTO struct {
	ProviderID  uuid.UUID `json:"provider_id"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	AccuracyM   *float64  `json:"accuracy_m,omitempty"`
	Heading     *float64  `json:"heading,omitempty"`
	SpeedMph    float64   `json:"speed_mph"`
	IsAvailable bool      `json:"is_available"`
	Stale       bool      `json:"stale"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NearbyRequest searches for available providers around a point.
type NearbyRequest struct {
	Lat         float64
	Lng         float64
	RadiusMiles float64
	ServiceID   *uuid.UUID
}

// NearbyProviderDTO is a provider within the search radius.
type NearbyProviderDTO struct {
	ProviderID    uuid.UUID `json:"provider_id"`
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	DistanceMiles float64   `json:"distance_miles"`
	Display       string    `json:"display"`
	ETAMinutes    int       `json:"eta_minutes"`
	ETAText       string    `json:"eta_text"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ETADTO estimates when a provider reaches a booking's location.
type ETADTO struct {
	ProviderID    uuid.UUID `json:"provider_id"`
	BookingID     uuid.UUID `json:"booking_id"`
	DistanceMiles float64   `json:"distance_miles"`
	Display       string    `json:"display"`
	SpeedMph      float64   `json:"speed_mph"`
	UsedLiveSpeed bool      `json:"used_live_speed"`
	Minutes       int       `json:"minutes"`
	Text          string    `json:"text"`
	ArrivesAt     time.Time `json:"arrives_at"`
	Stale         bool      `json:"stale"`
	UpdatedAt     time.Time `json:"position_updated_at"`
}

// LocationTracker is the application service for addresses, live positions and check-ins.
type LocationTracker struct {
	locations location.LocationRepository
	providers location.ProviderLocationRepository
	checkins  location.CheckinRepository
	bookings  bookingDomain.BookingRepository
	catalog   location.ServiceCatalog
	geocoder  maps.Client
	publisher EventPublisher
	settings  config.GeoSettings
	logger    *zap.Logger
	now       func() time.Time
}

// NewLocationTracker creates a new LocationTracker.
func NewLocationTracker(
	locations location.LocationRepository,
	providers location.ProviderLocationRepository,
	checkins location.CheckinRepository,
	bookings bookingDomain.BookingRepository,
	catalog location.ServiceCatalog,
	geocoder maps.Client,
	publisher EventPublisher,
	settings config.GeoSettings,
	logger *zap.Logger,
) *LocationTracker {
	return &LocationTracker{
		locations: locations,
		providers: providers,
		checkins:  checkins,
		bookings:  bookings,
		catalog:   catalog,
		geocoder:  geocoder,
		publisher: publisher,
		settings:  settings,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SaveLocation stores a location, geocoding address-only input when a map
// provider is configured. Geocoding failures keep the address unverified.
func (t *LocationTracker) SaveLocation(ctx context.Context, req SaveLocationRequest) (*LocationDTO, error) {
	if (req.Lat == nil) != (req.Lng == nil) {
		return nil, domain.NewValidationError("lat and lng must be provided together")
	}
	var point *geo.Point
	if req.Lat != nil {
		p := geo.NewPoint(*req.Lat, *req.Lng)
		point = &p
	}

	loc, err := location.NewLocation(location.Role(req.Role), req.OwnerID, req.BookingID, req.Address, point, req.Notes, req.Verified)
	if err != nil {
		return nil, err
	}

	if !loc.HasCoordinates() && t.geocoder != nil && t.geocoder.IsConfigured() {
		res, err := t.geocoder.Geocode(ctx, req.Address.OneLine())
		if err != nil {
			t.logger.Warn("geocoding failed, storing address without coordinates",
				zap.String("owner_id", req.OwnerID.String()),
				zap.Error(err),
			)
		} else {
			loc.ApplyGeocode(res.Point, res.FormattedAddress, res.PlaceID)
		}
	}

	if err := t.locations.Save(ctx, loc); err != nil {
		return nil, err
	}
	t.logger.Info("location saved",
		zap.String("location_id", loc.ID().String()),
		zap.String("role", string(loc.Role())),
		zap.Bool("verified", loc.IsVerified()),
	)
	dto := toLocationDTO(loc)
	return &dto, nil
}

// RecordCheckin verifies a provider's position against the booking's customer
// location and stores the check-in. With strict verification on, an unverified
// check-in is rejected with LocationMismatch.
func (t *LocationTracker) RecordCheckin(ctx context.Context, bookingID, providerID uuid.UUID, req RecordCheckinRequest) (*location.GpsCheckin, error) {
	checkinType, err := location.ParseCheckinType(req.Type)
	if err != nil {
		return nil, err
	}
	at, err := requiredPoint(req.Lat, req.Lng)
	if err != nil {
		return nil, err
	}

	bk, err := t.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if assigned := bk.ProviderID(); assigned != nil && *assigned != providerID {
		return nil, domain.NewForbiddenError("booking is assigned to another provider")
	}

	target, err := t.locations.FindLatestForBooking(ctx, bookingID, location.RoleCustomer)
	if err != nil {
		return nil, err
	}
	var targetPoint *geo.Point
	if target != nil {
		targetPoint = target.Point()
	}

	radius := t.settings.Checkin.VerificationRadiusMeters
	verification := location.Verify(at, targetPoint, radius)

	checkin, err := location.NewGpsCheckin(location.CheckinInput{
		BookingID:  bookingID,
		ProviderID: providerID,
		Lat:        at.Lat,
		Lng:        at.Lng,
		AccuracyM:  req.AccuracyM,
		Type:       checkinType,
		Notes:      req.Notes,
		Device:     req.Device,
	}, verification, t.now())
	if err != nil {
		return nil, err
	}

	if t.settings.Checkin.RequireVerification && !checkin.IsVerified {
		mismatch := domain.NewError(domain.KindLocationMismatch, "check-in is outside the verification radius").
			WithDetail("verification_radius_meters", radius)
		if checkin.DistanceMeters != nil {
			mismatch = mismatch.WithDetail("distance_meters", math.Round(*checkin.DistanceMeters))
		} else {
			mismatch.Message = "booking has no registered coordinates to verify against"
		}
		return nil, mismatch
	}

	if err := t.checkins.Append(ctx, checkin); err != nil {
		return nil, err
	}

	if checkinType == location.CheckinArrival {
		t.markArrived(ctx, bookingID, checkin.CreatedAt, checkin.IsVerified)
	}

	t.logger.Info("checkin recorded",
		zap.String("booking_id", bookingID.String()),
		zap.String("provider_id", providerID.String()),
		zap.String("type", string(checkinType)),
		zap.Bool("verified", checkin.IsVerified),
	)
	t.publisher.Publish(ctx, events.TopicGeoEvents, events.GeoCheckinRecorded, bookingID.String(), events.CheckinRecordedEvent{
		CheckinID:      checkin.ID,
		BookingID:      bookingID,
		ProviderID:     providerID,
		CheckinType:    string(checkinType),
		IsVerified:     checkin.IsVerified,
		DistanceMeters: checkin.DistanceMeters,
		OccurredAt:     checkin.CreatedAt,
	})
	return checkin, nil
}

// markArrived writes the derived arrival onto the booking projection, retrying
// once on a version conflict. Failures are logged; the check-in is already stored.
func (t *LocationTracker) markArrived(ctx context.Context, bookingID uuid.UUID, at time.Time, verified bool) {
	for attempt := 0; attempt < 2; attempt++ {
		bk, err := t.bookings.FindByID(ctx, bookingID)
		if err != nil {
			t.logger.Error("failed to load booking for arrival", zap.String("booking_id", bookingID.String()), zap.Error(err))
			return
		}
		bk.MarkProviderArrived(at, verified)
		bk.IncrementVersion()
		err = t.bookings.Update(ctx, bk)
		if err == nil {
			return
		}
		if !domain.IsKind(err, domain.KindConflict) {
			t.logger.Error("failed to record provider arrival", zap.String("booking_id", bookingID.String()), zap.Error(err))
			return
		}
	}
	t.logger.Warn("gave up recording provider arrival after version conflicts", zap.String("booking_id", bookingID.String()))
}

// CheckinHistory lists a booking's check-ins, oldest first.
func (t *LocationTracker) CheckinHistory(ctx context.Context, bookingID uuid.UUID) ([]*location.GpsCheckin, error) {
	return t.checkins.ListByBooking(ctx, bookingID)
}

// UpdateProviderLocation stores the provider's latest ping and marks them available.
func (t *LocationTracker) UpdateProviderLocation(ctx context.Context, providerID uuid.UUID, ping location.PositionPing) (*ProviderLocationDTO, error) {
	pl, err := location.NewProviderLocation(providerID, ping, t.now())
	if err != nil {
		return nil, err
	}
	if err := t.providers.Upsert(ctx, pl); err != nil {
		return nil, err
	}
	dto := t.toProviderLocationDTO(pl)
	return &dto, nil
}

// SetAvailability marks a provider as on or off shift.
func (t *LocationTracker) SetAvailability(ctx context.Context, providerID uuid.UUID, available bool) error {
	if err := t.providers.SetAvailability(ctx, providerID, available); err != nil {
		return err
	}
	t.logger.Info("provider availability changed",
		zap.String("provider_id", providerID.String()),
		zap.Bool("available", available),
	)
	return nil
}

// GetProviderLocation returns a provider's latest position with its staleness.
func (t *LocationTracker) GetProviderLocation(ctx context.Context, providerID uuid.UUID) (*ProviderLocationDTO, error) {
	pl, err := t.providers.FindByProviderID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	dto := t.toProviderLocationDTO(pl)
	return &dto, nil
}

// NearbyProviders finds available providers with a recent position inside the
// radius, nearest first. A bounding box narrows the candidates before the
// exact Haversine check.
func (t *LocationTracker) NearbyProviders(ctx context.Context, req NearbyRequest) ([]NearbyProviderDTO, error) {
	center := geo.NewPoint(req.Lat, req.Lng)
	if err := center.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if req.RadiusMiles <= 0 {
		return nil, domain.NewValidationError("radius must be positive")
	}

	now := t.now()
	candidates, err := t.providers.FindAvailableInBox(ctx, geo.BoundingBoxMiles(center, req.RadiusMiles), now.Add(-t.settings.Tracking.NearbyWindow))
	if err != nil {
		return nil, err
	}

	var offering map[uuid.UUID]bool
	if req.ServiceID != nil {
		ids, err := t.catalog.ProviderIDsForService(ctx, *req.ServiceID)
		if err != nil {
			return nil, err
		}
		offering = make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			offering[id] = true
		}
	}

	unit := t.settings.Distance.Unit
	speed := t.settings.Distance.ETASpeedMph
	out := make([]NearbyProviderDTO, 0, len(candidates))
	for _, c := range candidates {
		if offering != nil && !offering[c.ProviderID] {
			continue
		}
		miles := geo.HaversineMiles(center, c.Point)
		if miles > req.RadiusMiles {
			continue
		}
		eta := geo.RoundMinutes(geo.EstimateDurationMinutes(miles, speed))
		out = append(out, NearbyProviderDTO{
			ProviderID:    c.ProviderID,
			Lat:           c.Point.Lat,
			Lng:           c.Point.Lng,
			DistanceMiles: geo.Round2(miles),
			Display:       geo.FormatDistance(miles, unit),
			ETAMinutes:    eta,
			ETAText:       geo.FormatDuration(eta),
			UpdatedAt:     c.UpdatedAt,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceMiles < out[j].DistanceMiles })
	return out, nil
}

// ETA estimates the provider's arrival at the booking's customer location, using
// the live speed when it is at least the configured minimum.
func (t *LocationTracker) ETA(ctx context.Context, providerID, bookingID uuid.UUID) (*ETADTO, error) {
	pl, err := t.providers.FindByProviderID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	target, err := t.locations.FindLatestForBooking(ctx, bookingID, location.RoleCustomer)
	if err != nil {
		return nil, err
	}
	if target == nil || !target.HasCoordinates() {
		return nil, domain.NewNotFoundError("booking location", bookingID.String())
	}

	miles := geo.HaversineMiles(pl.Point, *target.Point())
	speed := t.settings.Distance.ETASpeedMph
	live := pl.SpeedMph()
	usedLive := live >= t.settings.Distance.MinLiveSpeedMph && live > 0
	if usedLive {
		speed = live
	}
	minutes := geo.RoundMinutes(geo.EstimateDurationMinutes(miles, speed))
	now := t.now()

	return &ETADTO{
		ProviderID:    providerID,
		BookingID:     bookingID,
		DistanceMiles: geo.Round2(miles),
		Display:       geo.FormatDistance(miles, t.settings.Distance.Unit),
		SpeedMph:      geo.Round2(speed),
		UsedLiveSpeed: usedLive,
		Minutes:       minutes,
		Text:          geo.FormatDuration(minutes),
		ArrivesAt:     now.Add(time.Duration(minutes) * time.Minute),
		Stale:         pl.IsStale(now, t.settings.Tracking.PingInterval),
		UpdatedAt:     pl.UpdatedAt,
	}, nil
}

func toLocationDTO(l *location.Location) LocationDTO {
	dto := LocationDTO{
		ID:               l.ID(),
		Role:             string(l.Role()),
		OwnerID:          l.OwnerID(),
		BookingID:        l.BookingID(),
		Address:          l.Address(),
		FormattedAddress: l.FormattedAddress(),
		PlaceRef:         l.PlaceRef(),
		Notes:            strings.TrimSpace(l.Notes()),
		IsVerified:       l.IsVerified(),
		CreatedAt:        l.CreatedAt(),
	}
	if p := l.Point(); p != nil {
		lat, lng := p.Lat, p.Lng
		dto.Lat = &lat
		dto.Lng = &lng
	}
	return dto
}

func (t *LocationTracker) toProviderLocationDTO(pl *location.ProviderLocation) ProviderLocationDTO {
	return ProviderLocationDTO{
		ProviderID:  pl.ProviderID,
		Lat:         pl.Point.Lat,
		Lng:         pl.Point.Lng,
		AccuracyM:   pl.AccuracyM,
		Heading:     pl.Heading,
		SpeedMph:    geo.Round2(pl.SpeedMph()),
		IsAvailable: pl.IsAvailable,
		Stale:       pl.IsStale(t.now(), t.settings.Tracking.PingInterval),
		UpdatedAt:   pl.UpdatedAt,
	}
}

// BookingETA estimates arrival for the provider assigned to the booking.
func (t *LocationTracker) BookingETA(ctx context.Context, bookingID uuid.UUID) (*ETADTO, error) {
	bk, err := t.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.ProviderID() == nil {
		return nil, domain.NewValidationError("booking has no assigned provider")
	}
	return t.ETA(ctx, *bk.ProviderID(), bookingID)
}

// requiredPoint builds a validated point from optional JSON coordinates. Zero is
// a valid coordinate, so only a missing value is rejected.
func requiredPoint(lat, lng *float64) (geo.Point, error) {
	if lat == nil || lng == nil {
		return geo.Point{}, domain.NewValidationError("lat and lng are required")
	}
	p := geo.NewPoint(*lat, *lng)
	if err := p.Validate(); err != nil {
		return geo.Point{}, domain.NewValidationError(err.Error())
	}
	return p, nil
}
