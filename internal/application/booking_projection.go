package application

import (
	"context"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	bookingDomain "github.com/Kilat-Pet-Delivery/service-geo/internal/domain/booking"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/location"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/proto/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingProjection keeps the local booking and provider-service projections in
// step with upstream events. Events that break the booking lifecycle are logged
// and dropped; storage failures are returned so the consumer retries.
type BookingProjection struct {
	bookings bookingDomain.BookingRepository
	catalog  location.ServiceCatalog
	logger   *zap.Logger
}

// NewBookingProjection creates a new BookingProjection.
func NewBookingProjection(bookings bookingDomain.BookingRepository, catalog location.ServiceCatalog, logger *zap.Logger) *BookingProjection {
	return &BookingProjection{bookings: bookings, catalog: catalog, logger: logger}
}

// ApplyScheduled inserts a new booking. Redelivered events for a known booking are ignored.
func (p *BookingProjection) ApplyScheduled(ctx context.Context, evt events.BookingScheduledEvent) error {
	existing, err := p.bookings.FindByID(ctx, evt.BookingID)
	if err != nil && !domain.IsKind(err, domain.KindNotFound) {
		return err
	}
	if existing != nil {
		p.logger.Debug("booking already projected", zap.String("booking_id", evt.BookingID.String()))
		return nil
	}

	status := bookingDomain.StatusConfirmed
	if evt.Status != "" {
		status = bookingDomain.BookingStatus(evt.Status)
	}
	bk, err := bookingDomain.NewBookingRef(evt.BookingID, evt.ProviderID, evt.CustomerID, evt.ServiceID, status, evt.StartsAt, evt.EndsAt)
	if err != nil {
		p.logger.Warn("dropping invalid booking.scheduled event",
			zap.String("booking_id", evt.BookingID.String()),
			zap.Error(err),
		)
		return nil
	}
	if err := p.bookings.Save(ctx, bk); err != nil {
		if domain.IsKind(err, domain.KindConflict) {
			return nil
		}
		return err
	}

	p.logger.Info("booking projected", zap.String("booking_id", bk.ID().String()))
	return nil
}

// ApplyRescheduled moves a booking's window.
func (p *BookingProjection) ApplyRescheduled(ctx context.Context, evt events.BookingRescheduledEvent) error {
	return p.mutate(ctx, evt.BookingID, "reschedule", func(bk *bookingDomain.BookingRef) error {
		return bk.Reschedule(evt.StartsAt, evt.EndsAt)
	})
}

// ApplyCancelled removes a booking from routing and scheduling.
func (p *BookingProjection) ApplyCancelled(ctx context.Context, evt events.BookingCancelledEvent) error {
	return p.mutate(ctx, evt.BookingID, "cancel", func(bk *bookingDomain.BookingRef) error {
		return bk.TransitionTo(bookingDomain.StatusCancelled)
	})
}

// ApplyProviderAssigned records the booking's provider.
func (p *BookingProjection) ApplyProviderAssigned(ctx context.Context, evt events.BookingProviderAssignedEvent) error {
	return p.mutate(ctx, evt.BookingID, "assign provider", func(bk *bookingDomain.BookingRef) error {
		return bk.AssignProvider(evt.ProviderID)
	})
}

// ApplyStatusChanged follows an upstream lifecycle transition.
func (p *BookingProjection) ApplyStatusChanged(ctx context.Context, evt events.BookingStatusChangedEvent) error {
	status, err := bookingDomain.ParseBookingStatus(evt.Status)
	if err != nil {
		p.logger.Warn("dropping status change with unknown status",
			zap.String("booking_id", evt.BookingID.String()),
			zap.String("status", evt.Status),
		)
		return nil
	}
	return p.mutate(ctx, evt.BookingID, "change status", func(bk *bookingDomain.BookingRef) error {
		return bk.TransitionTo(status)
	})
}

// ApplyProviderServices replaces the provider's offered services.
func (p *BookingProjection) ApplyProviderServices(ctx context.Context, evt events.ProviderServicesUpdatedEvent) error {
	if evt.ProviderID == uuid.Nil {
		p.logger.Warn("dropping provider.services_updated without provider ID")
		return nil
	}
	if err := p.catalog.ReplaceProviderServices(ctx, evt.ProviderID, evt.ServiceIDs); err != nil {
		return err
	}
	p.logger.Info("provider services updated",
		zap.String("provider_id", evt.ProviderID.String()),
		zap.Int("services", len(evt.ServiceIDs)),
	)
	return nil
}

// mutate loads a booking, applies change and saves it with optimistic locking.
// Unknown bookings and rejected lifecycle changes are skipped.
func (p *BookingProjection) mutate(ctx context.Context, bookingID uuid.UUID, action string, change func(*bookingDomain.BookingRef) error) error {
	bk, err := p.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			p.logger.Warn("event for unknown booking",
				zap.String("booking_id", bookingID.String()),
				zap.String("action", action),
			)
			return nil
		}
		return err
	}

	if err := change(bk); err != nil {
		p.logger.Warn("ignoring booking event",
			zap.String("booking_id", bookingID.String()),
			zap.String("action", action),
			zap.Error(err),
		)
		return nil
	}

	bk.IncrementVersion()
	if err := p.bookings.Update(ctx, bk); err != nil {
		return err
	}
	p.logger.Info("booking projection updated",
		zap.String("booking_id", bookingID.String()),
		zap.String("action", action),
	)
	return nil
}
