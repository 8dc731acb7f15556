package repository

import (
	"context"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderServiceModel links a provider to a service it offers.
type ProviderServiceModel struct {
	ProviderID uuid.UUID `gorm:"type:uuid;primaryKey"`
	ServiceID  uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ProviderServiceModel) TableName() string {
	return "provider_services"
}

// GormServiceCatalog is the GORM-based implementation of ServiceCatalog.
type GormServiceCatalog struct {
	db *gorm.DB
}

// NewGormServiceCatalog creates a new GormServiceCatalog.
func NewGormServiceCatalog(db *gorm.DB) *GormServiceCatalog {
	return &GormServiceCatalog{db: db}
}

// ProviderIDsForService lists the providers offering the service.
func (r *GormServiceCatalog) ProviderIDsForService(ctx context.Context, serviceID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&ProviderServiceModel{}).
		Where("service_id = ?", serviceID).
		Pluck("provider_id", &ids).Error; err != nil {
		return nil, domain.NewDBError("find providers for service", err)
	}
	return ids, nil
}

// ReplaceProviderServices overwrites the provider's service list in one transaction.
func (r *GormServiceCatalog) ReplaceProviderServices(ctx context.Context, providerID uuid.UUID, serviceIDs []uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("provider_id = ?", providerID).Delete(&ProviderServiceModel{}).Error; err != nil {
			return err
		}
		if len(serviceIDs) == 0 {
			return nil
		}

		now := time.Now().UTC()
		seen := make(map[uuid.UUID]bool, len(serviceIDs))
		rows := make([]ProviderServiceModel, 0, len(serviceIDs))
		for _, id := range serviceIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			rows = append(rows, ProviderServiceModel{ProviderID: providerID, ServiceID: id, CreatedAt: now})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return domain.NewDBError("replace provider services", err)
	}
	return nil
}
