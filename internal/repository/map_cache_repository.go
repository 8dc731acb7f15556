package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/maps"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MapCacheModel is the GORM model for the map_cache table.
type MapCacheModel struct {
	CacheKey  string         `gorm:"primaryKey;size:64"`
	Kind      string         `gorm:"not null;size:20"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	ExpiresAt time.Time      `gorm:"not null;index"`
	CreatedAt time.Time      `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (MapCacheModel) TableName() string {
	return "map_cache"
}

// GormMapCache stores map API responses in Postgres so they survive restarts.
type GormMapCache struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormMapCache creates a new GormMapCache.
func NewGormMapCache(db *gorm.DB) *GormMapCache {
	return &GormMapCache{db: db, now: time.Now}
}

// Get returns a live entry. Expired rows are treated as missing.
func (c *GormMapCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var model MapCacheModel
	err := c.db.WithContext(ctx).
		Where("cache_key = ? AND expires_at > ?", key, c.now().UTC()).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.NewDBError("read map cache", err)
	}
	return []byte(model.Payload), true, nil
}

// Set writes or refreshes an entry.
func (c *GormMapCache) Set(ctx context.Context, key string, kind maps.CallKind, payload []byte, ttl time.Duration) error {
	now := c.now().UTC()
	model := &MapCacheModel{
		CacheKey:  key,
		Kind:      string(kind),
		Payload:   datatypes.JSON(payload),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "payload", "expires_at", "created_at"}),
	}).Create(model).Error
	if err != nil {
		return domain.NewDBError("write map cache", err)
	}
	return nil
}

// PurgeExpired deletes expired rows and reports how many were removed.
func (c *GormMapCache) PurgeExpired(ctx context.Context) (int64, error) {
	result := c.db.WithContext(ctx).Where("expires_at <= ?", c.now().UTC()).Delete(&MapCacheModel{})
	if result.Error != nil {
		return 0, domain.NewDBError("purge map cache", result.Error)
	}
	return result.RowsAffected, nil
}
