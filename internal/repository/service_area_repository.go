package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/servicearea"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ServiceAreaModel is the GORM model for the service_areas table.
type ServiceAreaModel struct {
	ID         uuid.UUID                                   `gorm:"type:uuid;primaryKey"`
	Name       string                                      `gorm:"not null;size:200"`
	ServiceID  *uuid.UUID                                  `gorm:"type:uuid;index"`
	ProviderID *uuid.UUID                                  `gorm:"type:uuid;index"`
	AreaType   string                                      `gorm:"not null;size:20"`
	Geometry   datatypes.JSON                              `gorm:"type:jsonb;not null"`
	Pricing    datatypes.JSONType[servicearea.AreaPricing] `gorm:"type:jsonb;not null"`
	Status     string                                      `gorm:"not null;size:20;index"`
	CreatedAt  time.Time                                   `gorm:"not null"`
	UpdatedAt  time.Time                                   `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ServiceAreaModel) TableName() string {
	return "service_areas"
}

// GormServiceAreaRepository is the GORM-based implementation of servicearea.Repository.
type GormServiceAreaRepository struct {
	db *gorm.DB
}

// NewGormServiceAreaRepository creates a new GormServiceAreaRepository.
func NewGormServiceAreaRepository(db *gorm.DB) *GormServiceAreaRepository {
	return &GormServiceAreaRepository{db: db}
}

// Save inserts the area or overwrites the stored row with the same ID.
func (r *GormServiceAreaRepository) Save(ctx context.Context, area *servicearea.ServiceArea) error {
	model, err := toServiceAreaModel(area)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "service_id", "provider_id", "area_type", "geometry", "pricing", "status", "updated_at"}),
	}).Create(model).Error; err != nil {
		return dbError("save service area", "service area", area.ID().String(), err)
	}
	return nil
}

// FindByID retrieves an area by its identifier.
func (r *GormServiceAreaRepository) FindByID(ctx context.Context, id uuid.UUID) (*servicearea.ServiceArea, error) {
	var model ServiceAreaModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, dbError("find service area", "service area", id.String(), err)
	}
	return toDomainServiceArea(&model)
}

// Delete removes an area.
func (r *GormServiceAreaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ServiceAreaModel{})
	if result.Error != nil {
		return domain.NewDBError("delete service area", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("service area", id.String())
	}
	return nil
}

// List returns areas matching the filter, newest first.
func (r *GormServiceAreaRepository) List(ctx context.Context, filter servicearea.ListFilter) ([]*servicearea.ServiceArea, int64, error) {
	query := r.db.WithContext(ctx).Model(&ServiceAreaModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.ServiceID != nil {
		query = query.Where("service_id = ?", *filter.ServiceID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, domain.NewDBError("count service areas", err)
	}

	var models []ServiceAreaModel
	offset := (filter.Page - 1) * filter.Limit
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&models).Error; err != nil {
		return nil, 0, domain.NewDBError("list service areas", err)
	}

	areas, err := toDomainServiceAreas(models)
	if err != nil {
		return nil, 0, err
	}
	return areas, total, nil
}

// FindActive returns every active area.
func (r *GormServiceAreaRepository) FindActive(ctx context.Context) ([]*servicearea.ServiceArea, error) {
	var models []ServiceAreaModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(servicearea.StatusActive)).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, domain.NewDBError("find active service areas", err)
	}
	return toDomainServiceAreas(models)
}

// --- Conversion Helpers ---

func toServiceAreaModel(a *servicearea.ServiceArea) (*ServiceAreaModel, error) {
	geometry, err := servicearea.MarshalGeometry(a.Geometry())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s geometry: %w", a.Kind(), err)
	}
	return &ServiceAreaModel{
		ID:         a.ID(),
		Name:       a.Name(),
		ServiceID:  a.ServiceID(),
		ProviderID: a.ProviderID(),
		AreaType:   string(a.Kind()),
		Geometry:   datatypes.JSON(geometry),
		Pricing:    datatypes.NewJSONType(a.Pricing()),
		Status:     string(a.Status()),
		CreatedAt:  a.CreatedAt(),
		UpdatedAt:  a.UpdatedAt(),
	}, nil
}

func toDomainServiceArea(m *ServiceAreaModel) (*servicearea.ServiceArea, error) {
	geometry, err := servicearea.UnmarshalGeometry(servicearea.Kind(m.AreaType), m.Geometry)
	if err != nil {
		return nil, fmt.Errorf("failed to decode geometry of service area %s: %w", m.ID, err)
	}
	return servicearea.ReconstructServiceArea(
		m.ID,
		m.Name,
		m.ServiceID,
		m.ProviderID,
		geometry,
		servicearea.Status(m.Status),
		m.Pricing.Data(),
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainServiceAreas(models []ServiceAreaModel) ([]*servicearea.ServiceArea, error) {
	areas := make([]*servicearea.ServiceArea, len(models))
	for i := range models {
		a, err := toDomainServiceArea(&models[i])
		if err != nil {
			return nil, err
		}
		areas[i] = a
	}
	return areas, nil
}
