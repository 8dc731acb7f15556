package repository

import (
	"context"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/location"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LocationModel is the GORM model for the locations table.
type LocationModel struct {
	ID               uuid.UUID                            `gorm:"type:uuid;primaryKey"`
	Role             string                               `gorm:"not null;size:20;index:idx_locations_owner,priority:1"`
	OwnerID          uuid.UUID                            `gorm:"type:uuid;not null;index:idx_locations_owner,priority:2"`
	BookingID        *uuid.UUID                           `gorm:"type:uuid;index"`
	Address          datatypes.JSONType[location.Address] `gorm:"type:jsonb;not null"`
	Lat              *float64                             `gorm:""`
	Lng              *float64                             `gorm:""`
	FormattedAddress string                               `gorm:"size:500"`
	PlaceRef         string                               `gorm:"size:255"`
	Notes            string                               `gorm:"size:1000"`
	IsVerified       bool                                 `gorm:"not null;default:false"`
	CreatedAt        time.Time                            `gorm:"not null;index"`
	UpdatedAt        time.Time                            `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (LocationModel) TableName() string {
	return "locations"
}

// GormLocationRepository is the GORM-based implementation of LocationRepository.
type GormLocationRepository struct {
	db *gorm.DB
}

// NewGormLocationRepository creates a new GormLocationRepository.
func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// Save persists a new location row.
func (r *GormLocationRepository) Save(ctx context.Context, loc *location.Location) error {
	if err := r.db.WithContext(ctx).Create(toLocationModel(loc)).Error; err != nil {
		return dbError("save location", "location", loc.ID().String(), err)
	}
	return nil
}

// FindByID retrieves a location by its identifier.
func (r *GormLocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*location.Location, error) {
	var model LocationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, dbError("find location", "location", id.String(), err)
	}
	return toDomainLocation(&model), nil
}

// FindLatestForBooking returns the newest location with the role for a booking, or nil.
func (r *GormLocationRepository) FindLatestForBooking(ctx context.Context, bookingID uuid.UUID, role location.Role) (*location.Location, error) {
	var models []LocationModel
	if err := r.db.WithContext(ctx).
		Where("booking_id = ? AND role = ?", bookingID, string(role)).
		Order("created_at DESC").
		Limit(1).
		Find(&models).Error; err != nil {
		return nil, domain.NewDBError("find booking location", err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	return toDomainLocation(&models[0]), nil
}

// FindLatestForBookings returns the newest location per booking for the role.
func (r *GormLocationRepository) FindLatestForBookings(ctx context.Context, bookingIDs []uuid.UUID, role location.Role) (map[uuid.UUID]*location.Location, error) {
	out := make(map[uuid.UUID]*location.Location, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return out, nil
	}

	var models []LocationModel
	if err := r.db.WithContext(ctx).
		Where("booking_id IN ? AND role = ?", bookingIDs, string(role)).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, domain.NewDBError("find booking locations", err)
	}
	// Ascending order lets newer rows overwrite older ones.
	for i := range models {
		out[*models[i].BookingID] = toDomainLocation(&models[i])
	}
	return out, nil
}

// FindProviderHome returns the newest booking-independent provider location, or nil.
func (r *GormLocationRepository) FindProviderHome(ctx context.Context, providerID uuid.UUID) (*location.Location, error) {
	var models []LocationModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND role = ? AND booking_id IS NULL", providerID, string(location.RoleProvider)).
		Order("created_at DESC").
		Limit(1).
		Find(&models).Error; err != nil {
		return nil, domain.NewDBError("find provider home", err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	return toDomainLocation(&models[0]), nil
}

// --- Conversion Helpers ---

func toLocationModel(l *location.Location) *LocationModel {
	m := &LocationModel{
		ID:               l.ID(),
		Role:             string(l.Role()),
		OwnerID:          l.OwnerID(),
		BookingID:        l.BookingID(),
		Address:          datatypes.NewJSONType(l.Address()),
		FormattedAddress: l.FormattedAddress(),
		PlaceRef:         l.PlaceRef(),
		Notes:            l.Notes(),
		IsVerified:       l.IsVerified(),
		CreatedAt:        l.CreatedAt(),
		UpdatedAt:        l.UpdatedAt(),
	}
	if p := l.Point(); p != nil {
		lat, lng := p.Lat, p.Lng
		m.Lat = &lat
		m.Lng = &lng
	}
	return m
}

func toDomainLocation(m *LocationModel) *location.Location {
	var point *geo.Point
	if m.Lat != nil && m.Lng != nil {
		p := geo.NewPoint(*m.Lat, *m.Lng)
		point = &p
	}
	return location.ReconstructLocation(
		m.ID,
		location.Role(m.Role),
		m.OwnerID,
		m.BookingID,
		m.Address.Data(),
		point,
		m.FormattedAddress,
		m.PlaceRef,
		m.Notes,
		m.IsVerified,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
