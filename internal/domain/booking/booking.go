package booking

import (
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/google/uuid"
)

// BookingRef is the local projection of an appointment owned by the booking platform.
// It carries only what routing, scheduling and arrival verification need.
type BookingRef struct {
	id              uuid.UUID
	providerID      *uuid.UUID
	customerID      uuid.UUID
	serviceID       *uuid.UUID
	status          BookingStatus
	startsAt        time.Time
	endsAt          time.Time
	arrivedAt       *time.Time
	arrivalVerified bool

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBookingRef creates a projection from an upstream scheduling event.
func NewBookingRef(
	id uuid.UUID,
	providerID *uuid.UUID,
	customerID uuid.UUID,
	serviceID *uuid.UUID,
	status BookingStatus,
	startsAt, endsAt time.Time,
) (*BookingRef, error) {
	if id == uuid.Nil {
		return nil, domain.NewValidationError("booking ID is required")
	}
	if customerID == uuid.Nil {
		return nil, domain.NewValidationError("customer ID is required")
	}
	if !status.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid booking status: %s", status))
	}
	if err := checkWindow(startsAt, endsAt); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &BookingRef{
		id:         id,
		providerID: providerID,
		customerID: customerID,
		serviceID:  serviceID,
		status:     status,
		startsAt:   startsAt.UTC(),
		endsAt:     endsAt.UTC(),
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ReconstructBookingRef rebuilds a BookingRef from persistence data (no validation).
func ReconstructBookingRef(
	id uuid.UUID,
	providerID *uuid.UUID,
	customerID uuid.UUID,
	serviceID *uuid.UUID,
	status BookingStatus,
	startsAt, endsAt time.Time,
	arrivedAt *time.Time,
	arrivalVerified bool,
	version int64,
	createdAt, updatedAt time.Time,
) *BookingRef {
	return &BookingRef{
		id:              id,
		providerID:      providerID,
		customerID:      customerID,
		serviceID:       serviceID,
		status:          status,
		startsAt:        startsAt,
		endsAt:          endsAt,
		arrivedAt:       arrivedAt,
		arrivalVerified: arrivalVerified,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func checkWindow(startsAt, endsAt time.Time) error {
	if startsAt.IsZero() || endsAt.IsZero() {
		return domain.NewValidationError("scheduled start and end are required")
	}
	if !endsAt.After(startsAt) {
		return domain.NewValidationError("scheduled end must be after start")
	}
	return nil
}

// --- Getters ---

// ID returns the booking's identifier in the booking platform.
func (b *BookingRef) ID() uuid.UUID { return b.id }

// ProviderID returns the assigned provider, or nil if unassigned.
func (b *BookingRef) ProviderID() *uuid.UUID { return b.providerID }

// CustomerID returns the customer's identifier.
func (b *BookingRef) CustomerID() uuid.UUID { return b.customerID }

// ServiceID returns the booked service, if known.
func (b *BookingRef) ServiceID() *uuid.UUID { return b.serviceID }

// Status returns the upstream status.
func (b *BookingRef) Status() BookingStatus { return b.status }

// StartsAt returns the scheduled start.
func (b *BookingRef) StartsAt() time.Time { return b.startsAt }

// EndsAt returns the scheduled end.
func (b *BookingRef) EndsAt() time.Time { return b.endsAt }

// ArrivedAt returns when the provider checked in on arrival, if they have.
func (b *BookingRef) ArrivedAt() *time.Time { return b.arrivedAt }

// ArrivalVerified reports whether the arrival check-in was within the verification radius.
func (b *BookingRef) ArrivalVerified() bool { return b.arrivalVerified }

// Version returns the entity version for optimistic locking.
func (b *BookingRef) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *BookingRef) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *BookingRef) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// Reschedule moves the appointment window.
func (b *BookingRef) Reschedule(startsAt, endsAt time.Time) error {
	if b.status.IsTerminal() {
		return domain.NewConflictError(fmt.Sprintf("cannot reschedule a %s booking", b.status))
	}
	if err := checkWindow(startsAt, endsAt); err != nil {
		return err
	}
	b.startsAt = startsAt.UTC()
	b.endsAt = endsAt.UTC()
	b.updatedAt = time.Now().UTC()
	return nil
}

// AssignProvider records which provider will perform the booking.
func (b *BookingRef) AssignProvider(providerID uuid.UUID) error {
	if providerID == uuid.Nil {
		return domain.NewValidationError("provider ID is required")
	}
	if b.status.IsTerminal() {
		return domain.NewConflictError(fmt.Sprintf("cannot assign a provider to a %s booking", b.status))
	}
	b.providerID = &providerID
	b.updatedAt = time.Now().UTC()
	return nil
}

// TransitionTo applies an upstream status change.
func (b *BookingRef) TransitionTo(target BookingStatus) error {
	if !b.status.CanTransitionTo(target) {
		return domain.NewConflictError(fmt.Sprintf("invalid status transition from %s to %s", b.status, target))
	}
	b.status = target
	b.updatedAt = time.Now().UTC()
	return nil
}

// MarkProviderArrived records the derived arrival status from an arrival check-in.
// A verified arrival is never downgraded by a later unverified one.
func (b *BookingRef) MarkProviderArrived(at time.Time, verified bool) {
	if b.arrivedAt == nil || (verified && !b.arrivalVerified) {
		t := at.UTC()
		b.arrivedAt = &t
	}
	b.arrivalVerified = b.arrivalVerified || verified
	b.updatedAt = time.Now().UTC()
}

// IncrementVersion bumps the version for optimistic locking.
func (b *BookingRef) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}
