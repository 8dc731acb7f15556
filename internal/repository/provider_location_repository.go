package repository

import (
	"context"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/location"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProviderLocationModel is the GORM model for the provider_locations table.
type ProviderLocationModel struct {
	ProviderID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Lat         float64   `gorm:"not null;index:idx_provider_locations_lat_lng,priority:1"`
	Lng         float64   `gorm:"not null;index:idx_provider_locations_lat_lng,priority:2"`
	AccuracyM   *float64  `gorm:""`
	Heading     *float64  `gorm:""`
	SpeedMps    *float64  `gorm:""`
	IsAvailable bool      `gorm:"not null;default:true;index"`
	UpdatedAt   time.Time `gorm:"not null;index"`
}

// TableName returns the table name for the GORM model.
func (ProviderLocationModel) TableName() string {
	return "provider_locations"
}

// GormProviderLocationRepository is the GORM-based implementation of ProviderLocationRepository.
type GormProviderLocationRepository struct {
	db *gorm.DB
}

// NewGormProviderLocationRepository creates a new GormProviderLocationRepository.
func NewGormProviderLocationRepository(db *gorm.DB) *GormProviderLocationRepository {
	return &GormProviderLocationRepository{db: db}
}

// Upsert writes the latest position; concurrent pings resolve last-write-wins.
func (r *GormProviderLocationRepository) Upsert(ctx context.Context, pl *location.ProviderLocation) error {
	model := toProviderLocationModel(pl)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"lat", "lng", "accuracy_m", "heading", "speed_mps", "is_available", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return domain.NewDBError("upsert provider location", err)
	}
	return nil
}

// FindByProviderID returns the provider's position.
func (r *GormProviderLocationRepository) FindByProviderID(ctx context.Context, providerID uuid.UUID) (*location.ProviderLocation, error) {
	var model ProviderLocationModel
	if err := r.db.WithContext(ctx).Where("provider_id = ?", providerID).First(&model).Error; err != nil {
		return nil, dbError("find provider location", "provider location", providerID.String(), err)
	}
	return toDomainProviderLocation(&model), nil
}

// SetAvailability flips the availability flag without touching the position.
func (r *GormProviderLocationRepository) SetAvailability(ctx context.Context, providerID uuid.UUID, available bool) error {
	result := r.db.WithContext(ctx).
		Model(&ProviderLocationModel{}).
		Where("provider_id = ?", providerID).
		Update("is_available", available)
	if result.Error != nil {
		return domain.NewDBError("set provider availability", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("provider location", providerID.String())
	}
	return nil
}

// FindAvailableInBox returns available providers inside the box updated since the cutoff.
// A box crossing the antimeridian matches either side of it.
func (r *GormProviderLocationRepository) FindAvailableInBox(ctx context.Context, box geo.BoundingBox, updatedSince time.Time) ([]*location.ProviderLocation, error) {
	lng := r.db.Session(&gorm.Session{NewDB: true})
	for i, rng := range box.LngRanges() {
		if i == 0 {
			lng = lng.Where("lng BETWEEN ? AND ?", rng.Min, rng.Max)
		} else {
			lng = lng.Or("lng BETWEEN ? AND ?", rng.Min, rng.Max)
		}
	}

	var models []ProviderLocationModel
	if err := r.db.WithContext(ctx).
		Where("is_available = ? AND updated_at >= ?", true, updatedSince).
		Where("lat BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where(lng).
		Find(&models).Error; err != nil {
		return nil, domain.NewDBError("find nearby providers", err)
	}

	out := make([]*location.ProviderLocation, len(models))
	for i := range models {
		out[i] = toDomainProviderLocation(&models[i])
	}
	return out, nil
}

func toProviderLocationModel(pl *location.ProviderLocation) *ProviderLocationModel {
	return &ProviderLocationModel{
		ProviderID:  pl.ProviderID,
		Lat:         pl.Point.Lat,
		Lng:         pl.Point.Lng,
		AccuracyM:   pl.AccuracyM,
		Heading:     pl.Heading,
		SpeedMps:    pl.SpeedMps,
		IsAvailable: pl.IsAvailable,
		UpdatedAt:   pl.UpdatedAt,
	}
}

func toDomainProviderLocation(m *ProviderLocationModel) *location.ProviderLocation {
	return &location.ProviderLocation{
		ProviderID:  m.ProviderID,
		Point:       geo.NewPoint(m.Lat, m.Lng),
		AccuracyM:   m.AccuracyM,
		Heading:     m.Heading,
		SpeedMps:    m.SpeedMps,
		IsAvailable: m.IsAvailable,
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}
