package repository

import (
	"context"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/route"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RouteModel is the GORM model for the provider_routes table.
type RouteModel struct {
	ID           uuid.UUID                      `gorm:"type:uuid;primaryKey"`
	ProviderID   uuid.UUID                      `gorm:"type:uuid;not null;uniqueIndex:idx_provider_routes_provider_date,priority:1"`
	RouteDate    datatypes.Date                 `gorm:"not null;uniqueIndex:idx_provider_routes_provider_date,priority:2"`
	BookingIDs   datatypes.JSONSlice[uuid.UUID] `gorm:"type:jsonb;not null"`
	Legs         datatypes.JSONSlice[route.Leg] `gorm:"type:jsonb;not null"`
	HomeLat      *float64                       `gorm:""`
	HomeLng      *float64                       `gorm:""`
	TotalMiles   float64                        `gorm:"not null;default:0"`
	TotalMinutes int                            `gorm:"not null;default:0"`
	IsOptimized  bool                           `gorm:"not null;default:false"`
	Status       string                         `gorm:"not null;size:20"`
	CreatedAt    time.Time                      `gorm:"not null"`
	UpdatedAt    time.Time                      `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (RouteModel) TableName() string {
	return "provider_routes"
}

// GormRouteRepository is the GORM-based implementation of RouteRepository.
type GormRouteRepository struct {
	db *gorm.DB
}

// NewGormRouteRepository creates a new GormRouteRepository.
func NewGormRouteRepository(db *gorm.DB) *GormRouteRepository {
	return &GormRouteRepository{db: db}
}

// Replace stores the route, overwriting the provider's route for the same day.
// The original ID and creation time survive a re-optimization.
func (r *GormRouteRepository) Replace(ctx context.Context, rt *route.Route) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_id"}, {Name: "route_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"booking_ids", "legs", "home_lat", "home_lng",
			"total_miles", "total_minutes", "is_optimized", "status", "updated_at",
		}),
	}).Create(toRouteModel(rt)).Error
	if err != nil {
		return domain.NewDBError("replace route", err)
	}
	return nil
}

// FindByProviderAndDate returns the provider's route for the day.
func (r *GormRouteRepository) FindByProviderAndDate(ctx context.Context, providerID uuid.UUID, date time.Time) (*route.Route, error) {
	day := route.TruncateDate(date)
	var model RouteModel
	if err := r.db.WithContext(ctx).
		Where("provider_id = ? AND route_date = ?", providerID, datatypes.Date(day)).
		First(&model).Error; err != nil {
		return nil, dbError("find route", "route", providerID.String()+"/"+day.Format(route.DateLayout), err)
	}
	return toDomainRoute(&model), nil
}

// --- Conversion Helpers ---

func toRouteModel(rt *route.Route) *RouteModel {
	m := &RouteModel{
		ID:           rt.ID(),
		ProviderID:   rt.ProviderID(),
		RouteDate:    datatypes.Date(rt.Date()),
		BookingIDs:   datatypes.NewJSONSlice(rt.BookingIDs()),
		Legs:         datatypes.NewJSONSlice(rt.Legs()),
		TotalMiles:   rt.TotalMiles(),
		TotalMinutes: rt.TotalMinutes(),
		IsOptimized:  rt.IsOptimized(),
		Status:       string(rt.Status()),
		CreatedAt:    rt.CreatedAt(),
		UpdatedAt:    rt.UpdatedAt(),
	}
	if h := rt.Home(); h != nil {
		m.HomeLat = &h.Lat
		m.HomeLng = &h.Lng
	}
	return m
}

func toDomainRoute(m *RouteModel) *route.Route {
	var home *geo.Point
	if m.HomeLat != nil && m.HomeLng != nil {
		p := geo.NewPoint(*m.HomeLat, *m.HomeLng)
		home = &p
	}
	return route.ReconstructRoute(
		m.ID,
		m.ProviderID,
		route.TruncateDate(time.Time(m.RouteDate)),
		[]uuid.UUID(m.BookingIDs),
		[]route.Leg(m.Legs),
		home,
		m.TotalMiles,
		m.TotalMinutes,
		m.IsOptimized,
		route.Status(m.Status),
		m.CreatedAt,
		m.UpdatedAt,
	)
}
