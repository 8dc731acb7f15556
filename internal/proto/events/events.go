// Package events holds the topic names, event types and payloads exchanged
// with the rest of the platform over Kafka.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicBookingEvents  = "booking.events"
	TopicProviderEvents = "provider.events"
	TopicGeoEvents      = "geo.events"
)

// Upstream booking event types consumed by the geo service.
const (
	BookingScheduled        = "booking.scheduled"
	BookingRescheduled      = "booking.rescheduled"
	BookingCancelled        = "booking.cancelled"
	BookingProviderAssigned = "booking.provider_assigned"
	BookingStatusChanged    = "booking.status_changed"
)

// Upstream provider event types.
const (
	ProviderServicesUpdated = "provider.services_updated"
)

// Event types published by the geo service.
const (
	GeoCheckinRecorded = "geo.checkin.recorded"
	GeoRouteOptimized  = "geo.route.optimized"
)

// BookingScheduledEvent announces a new booking with its time window.
type BookingScheduledEvent struct {
	BookingID  uuid.UUID  `json:"booking_id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	ProviderID *uuid.UUID `json:"provider_id,omitempty"`
	ServiceID  *uuid.UUID `json:"service_id,omitempty"`
	Status     string     `json:"status,omitempty"`
	StartsAt   time.Time  `json:"starts_at"`
	EndsAt     time.Time  `json:"ends_at"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// BookingRescheduledEvent moves a booking's time window.
type BookingRescheduledEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookingCancelledEvent removes a booking from routing and scheduling.
type BookingCancelledEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookingProviderAssignedEvent sets the provider serving a booking.
type BookingProviderAssignedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	ProviderID uuid.UUID `json:"provider_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookingStatusChangedEvent carries lifecycle transitions made upstream.
type BookingStatusChangedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ProviderServicesUpdatedEvent replaces the list of services a provider offers.
type ProviderServicesUpdatedEvent struct {
	ProviderID uuid.UUID   `json:"provider_id"`
	ServiceIDs []uuid.UUID `json:"service_ids"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// CheckinRecordedEvent is published after a GPS check-in is stored.
type CheckinRecordedEvent struct {
	CheckinID      uuid.UUID `json:"checkin_id"`
	BookingID      uuid.UUID `json:"booking_id"`
	ProviderID     uuid.UUID `json:"provider_id"`
	CheckinType    string    `json:"checkin_type"`
	IsVerified     bool      `json:"is_verified"`
	DistanceMeters *float64  `json:"distance_meters,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// RouteOptimizedEvent is published after a provider's daily route is replaced.
type RouteOptimizedEvent struct {
	RouteID      uuid.UUID   `json:"route_id"`
	ProviderID   uuid.UUID   `json:"provider_id"`
	Date         string      `json:"date"`
	BookingIDs   []uuid.UUID `json:"booking_ids"`
	TotalMiles   float64     `json:"total_miles"`
	TotalMinutes int         `json:"total_minutes"`
	OccurredAt   time.Time   `json:"occurred_at"`
}
