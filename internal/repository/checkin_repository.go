package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/location"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CheckinModel is the GORM model for the append-only gps_checkins table.
type CheckinModel struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey"`
	BookingID      uuid.UUID         `gorm:"type:uuid;not null;index"`
	ProviderID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	CheckinType    string            `gorm:"not null;size:20"`
	Lat            float64           `gorm:"not null"`
	Lng            float64           `gorm:"not null"`
	AccuracyM      *float64          `gorm:""`
	DistanceMeters *float64          `gorm:""`
	IsVerified     bool              `gorm:"not null;default:false"`
	Notes          string            `gorm:"size:1000"`
	Device         datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt      time.Time         `gorm:"not null;index"`
}

// TableName returns the table name for the GORM model.
func (CheckinModel) TableName() string {
	return "gps_checkins"
}

// GormCheckinRepository is the GORM-based implementation of CheckinRepository.
type GormCheckinRepository struct {
	db *gorm.DB
}

// NewGormCheckinRepository creates a new GormCheckinRepository.
func NewGormCheckinRepository(db *gorm.DB) *GormCheckinRepository {
	return &GormCheckinRepository{db: db}
}

// Append stores a new check-in.
func (r *GormCheckinRepository) Append(ctx context.Context, c *location.GpsCheckin) error {
	if err := r.db.WithContext(ctx).Create(toCheckinModel(c)).Error; err != nil {
		return dbError("append checkin", "checkin", c.ID.String(), err)
	}
	return nil
}

// ListByBooking returns a booking's check-ins, oldest first.
func (r *GormCheckinRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*location.GpsCheckin, error) {
	var models []CheckinModel
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, domain.NewDBError("list checkins", err)
	}

	out := make([]*location.GpsCheckin, len(models))
	for i := range models {
		out[i] = toDomainCheckin(&models[i])
	}
	return out, nil
}

func toCheckinModel(c *location.GpsCheckin) *CheckinModel {
	var device datatypes.JSONMap
	if len(c.Device) > 0 {
		device = make(datatypes.JSONMap, len(c.Device))
		for k, v := range c.Device {
			device[k] = v
		}
	}
	return &CheckinModel{
		ID:             c.ID,
		BookingID:      c.BookingID,
		ProviderID:     c.ProviderID,
		CheckinType:    string(c.Type),
		Lat:            c.Point.Lat,
		Lng:            c.Point.Lng,
		AccuracyM:      c.AccuracyM,
		DistanceMeters: c.DistanceMeters,
		IsVerified:     c.IsVerified,
		Notes:          c.Notes,
		Device:         device,
		CreatedAt:      c.CreatedAt,
	}
}

func toDomainCheckin(m *CheckinModel) *location.GpsCheckin {
	var device map[string]string
	if len(m.Device) > 0 {
		device = make(map[string]string, len(m.Device))
		for k, v := range m.Device {
			device[k] = fmt.Sprint(v)
		}
	}
	return &location.GpsCheckin{
		ID:             m.ID,
		BookingID:      m.BookingID,
		ProviderID:     m.ProviderID,
		Type:           location.CheckinType(m.CheckinType),
		Point:          geo.NewPoint(m.Lat, m.Lng),
		AccuracyM:      m.AccuracyM,
		DistanceMeters: m.DistanceMeters,
		IsVerified:     m.IsVerified,
		Notes:          m.Notes,
		Device:         device,
		CreatedAt:      m.CreatedAt.UTC(),
	}
}
