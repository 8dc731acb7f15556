package repository

import (
	"context"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	bookingDomain "github.com/Kilat-Pet-Delivery/service-geo/internal/domain/booking"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingRefModel is the GORM model for the booking_refs projection table.
type BookingRefModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProviderID      *uuid.UUID `gorm:"type:uuid;index:idx_booking_refs_provider_start,priority:1"`
	CustomerID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	ServiceID       *uuid.UUID `gorm:"type:uuid"`
	Status          string     `gorm:"not null;size:30;index"`
	StartsAt        time.Time  `gorm:"not null;index:idx_booking_refs_provider_start,priority:2"`
	EndsAt          time.Time  `gorm:"not null"`
	ArrivedAt       *time.Time `gorm:""`
	ArrivalVerified bool       `gorm:"not null;default:false"`
	Version         int64      `gorm:"not null;default:1"`
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingRefModel) TableName() string {
	return "booking_refs"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.BookingRef, error) {
	var model BookingRefModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, dbError("find booking", "booking", id.String(), err)
	}
	return toDomainBooking(&model), nil
}

// FindRoutableByProvider returns the provider's open bookings starting in [from, to).
func (r *GormBookingRepository) FindRoutableByProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*bookingDomain.BookingRef, error) {
	var models []BookingRefModel
	if err := r.db.WithContext(ctx).
		Where("provider_id = ? AND starts_at >= ? AND starts_at < ?", providerID, from, to).
		Where("status IN ?", routableStatuses()).
		Order("starts_at ASC").
		Find(&models).Error; err != nil {
		return nil, domain.NewDBError("find provider bookings", err)
	}

	bookings := make([]*bookingDomain.BookingRef, len(models))
	for i := range models {
		bookings[i] = toDomainBooking(&models[i])
	}
	return bookings, nil
}

// Save persists a new booking projection.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.BookingRef) error {
	if err := r.db.WithContext(ctx).Create(toBookingModel(bk)).Error; err != nil {
		return dbError("save booking", "booking", bk.ID().String(), err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.BookingRef) error {
	model := toBookingModel(bk)

	// IncrementVersion has already been called, so the stored row carries the previous version.
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingRefModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"provider_id":      model.ProviderID,
			"service_id":       model.ServiceID,
			"status":           model.Status,
			"starts_at":        model.StartsAt,
			"ends_at":          model.EndsAt,
			"arrived_at":       model.ArrivedAt,
			"arrival_verified": model.ArrivalVerified,
			"version":          model.Version,
			"updated_at":       model.UpdatedAt,
		})

	if result.Error != nil {
		return domain.NewDBError("update booking", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	return nil
}

func routableStatuses() []string {
	return []string{
		string(bookingDomain.StatusPending),
		string(bookingDomain.StatusConfirmed),
		string(bookingDomain.StatusInProgress),
	}
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.BookingRef) *BookingRefModel {
	return &BookingRefModel{
		ID:              bk.ID(),
		ProviderID:      bk.ProviderID(),
		CustomerID:      bk.CustomerID(),
		ServiceID:       bk.ServiceID(),
		Status:          string(bk.Status()),
		StartsAt:        bk.StartsAt(),
		EndsAt:          bk.EndsAt(),
		ArrivedAt:       bk.ArrivedAt(),
		ArrivalVerified: bk.ArrivalVerified(),
		Version:         bk.Version(),
		CreatedAt:       bk.CreatedAt(),
		UpdatedAt:       bk.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingRefModel) *bookingDomain.BookingRef {
	return bookingDomain.ReconstructBookingRef(
		m.ID,
		m.ProviderID,
		m.CustomerID,
		m.ServiceID,
		bookingDomain.BookingStatus(m.Status),
		m.StartsAt.UTC(),
		m.EndsAt.UTC(),
		m.ArrivedAt,
		m.ArrivalVerified,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
