package application

import (
	"context"
	"testing"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/config"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/pricing"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/servicearea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func flatSettings() config.GeoSettings {
	s := config.DefaultGeoSettings()
	s.Pricing = config.PricingSettings{Enabled: true, BaseFee: 5, PerUnitRate: 2, FreeDistance: 3}
	return s
}

func TestPricingService_Disabled(t *testing.T) {
	svc := NewPricingService(nil, config.DefaultGeoSettings(), zap.NewNop())
	fee, err := svc.Fee(context.Background(), TravelFeeRequest{DistanceMiles: 25})
	require.NoError(t, err)
	assert.Zero(t, fee)
}

func TestPricingService_Flat(t *testing.T) {
	svc := NewPricingService(nil, flatSettings(), zap.NewNop())
	ctx := context.Background()

	b, err := svc.Breakdown(ctx, TravelFeeRequest{DistanceMiles: 10})
	require.NoError(t, err)
	assert.Equal(t, pricing.MethodFlat, b.Method)
	assert.Equal(t, 7.0, b.BillableDistance)
	assert.Equal(t, 19.0, b.Total)
	assert.Equal(t, geo.UnitMiles, b.Unit)

	fee, err := svc.Fee(ctx, TravelFeeRequest{DistanceMiles: 2})
	require.NoError(t, err)
	assert.Zero(t, fee, "inside the free allowance")

	_, err = svc.Fee(ctx, TravelFeeRequest{DistanceMiles: -1})
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}

func TestPricingService_TieredIsMonotonic(t *testing.T) {
	s := config.DefaultGeoSettings()
	s.Pricing = config.PricingSettings{
		Enabled:      true,
		BaseFee:      3,
		TiersEnabled: true,
		Tiers: []pricing.Tier{
			{From: 0, To: 5, Rate: 1},
			{From: 5, To: 10, Rate: 0.5},
			{From: 10, To: 0, Rate: 2},
		},
	}
	svc := NewPricingService(nil, s, zap.NewNop())

	prev := -1.0
	for d := 0.0; d <= 20; d += 0.5 {
		fee, err := svc.Fee(context.Background(), TravelFeeRequest{DistanceMiles: d})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, fee, prev, "distance %.1f", d)
		prev = fee
	}

	b, err := svc.Breakdown(context.Background(), TravelFeeRequest{DistanceMiles: 12})
	require.NoError(t, err)
	// 5×1 + 5×0.5 + 2×2
	assert.Equal(t, 11.5, b.DistanceFee)
	assert.Equal(t, 14.5, b.Total)
}

func TestPricingService_Kilometers(t *testing.T) {
	s := flatSettings()
	s.Distance.Unit = geo.UnitKm
	svc := NewPricingService(nil, s, zap.NewNop())

	b, err := svc.Breakdown(context.Background(), TravelFeeRequest{DistanceMiles: 10})
	require.NoError(t, err)
	assert.Equal(t, geo.UnitKm, b.Unit)
	assert.InDelta(t, 16.09, b.Distance, 0.01)
}

func TestPricingService_AreaPricingWins(t *testing.T) {
	area, err := servicearea.NewServiceArea("premium", nil, nil,
		servicearea.Radius{Center: geo.NewPoint(40, -74), RadiusMiles: 10},
		servicearea.AreaPricing{Enabled: true, BaseFee: 4, PerUnitRate: 1, MinDistance: 2, MaxDistance: 10},
	)
	require.NoError(t, err)
	areas := NewServiceAreaManager(newFakeAreas(area), nil, flatSettings(), zap.NewNop())
	svc := NewPricingService(areas, flatSettings(), zap.NewNop())

	lat, lng := 40.01, -74.0
	b, err := svc.Breakdown(context.Background(), TravelFeeRequest{DistanceMiles: 5, Lat: &lat, Lng: &lng})
	require.NoError(t, err)
	assert.Equal(t, pricing.MethodArea, b.Method)
	assert.Equal(t, 9.0, b.Total)
	require.NotNil(t, b.AreaID)
	assert.Equal(t, "premium", b.AreaName)

	outLat := 45.0
	b, err = svc.Breakdown(context.Background(), TravelFeeRequest{DistanceMiles: 5, Lat: &outLat, Lng: &lng})
	require.NoError(t, err)
	assert.Equal(t, pricing.MethodFlat, b.Method)
	assert.Nil(t, b.AreaID)

	_, err = svc.Breakdown(context.Background(), TravelFeeRequest{DistanceMiles: 5, Lat: &lat})
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}
