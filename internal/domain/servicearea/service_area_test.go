package servicearea

import (
	"encoding/json"
	"testing"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceArea_GeometryMustMatchKind(t *testing.T) {
	cases := []struct {
		name string
		geom Geometry
	}{
		{"polygon with two vertices", Polygon{Vertices: []geo.Point{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}}}},
		{"zero radius", Radius{Center: geo.NewPoint(1, 1)}},
		{"empty zip list", ZipCodes{}},
		{"blank city", Cities{Names: []string{"  "}}},
		{"nil geometry", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewServiceArea("Downtown", nil, nil, tc.geom, AreaPricing{})
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
		})
	}
}

func TestServiceArea_RadiusBoundary(t *testing.T) {
	center := geo.NewPoint(40, -74)
	edge := geo.NewPoint(40.1, -74)
	radius := geo.HaversineMiles(edge, center)

	area, err := NewServiceArea("Ring", nil, nil, Radius{Center: center, RadiusMiles: radius}, AreaPricing{})
	require.NoError(t, err)

	assert.True(t, area.ContainsPoint(edge))
	assert.False(t, area.ContainsPoint(geo.NewPoint(40.1000001, -74)))

	d, ok := area.EdgeDistanceMiles(center)
	require.True(t, ok)
	assert.InDelta(t, -radius, d, 1e-9)
}

func TestServiceArea_Polygon(t *testing.T) {
	square := Polygon{Vertices: []geo.Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 0}}}
	area, err := NewServiceArea("Square", nil, nil, square, AreaPricing{})
	require.NoError(t, err)

	assert.True(t, area.ContainsPoint(geo.NewPoint(0.5, 0.5)))
	assert.False(t, area.ContainsPoint(geo.NewPoint(2, 2)))
	_, ok := area.EdgeDistanceMiles(geo.NewPoint(0.5, 0.5))
	assert.False(t, ok)
}

func TestServiceArea_AdministrativeMatching(t *testing.T) {
	addr := AdminAddress{PostalCode: "10001", City: "New York", StateLong: "New York", StateShort: "NY"}

	zip, _ := NewServiceArea("Zips", nil, nil, ZipCodes{Codes: []string{"10001", "10002"}}, AreaPricing{})
	city, _ := NewServiceArea("City", nil, nil, Cities{Names: []string{"new york"}}, AreaPricing{})
	stateShort, _ := NewServiceArea("State", nil, nil, States{Names: []string{"ny"}}, AreaPricing{})
	stateLong, _ := NewServiceArea("State", nil, nil, States{Names: []string{"NEW YORK"}}, AreaPricing{})
	other, _ := NewServiceArea("Other", nil, nil, States{Names: []string{"NJ"}}, AreaPricing{})

	assert.True(t, zip.ContainsAddress(addr))
	assert.True(t, city.ContainsAddress(addr))
	assert.True(t, stateShort.ContainsAddress(addr))
	assert.True(t, stateLong.ContainsAddress(addr))
	assert.False(t, other.ContainsAddress(addr))
	assert.False(t, zip.ContainsAddress(AdminAddress{}))
}

func TestServiceArea_InScope(t *testing.T) {
	svc, prov := uuid.New(), uuid.New()
	global, _ := NewServiceArea("Global", nil, nil, Cities{Names: []string{"X"}}, AreaPricing{})
	scoped, _ := NewServiceArea("Scoped", &svc, &prov, Cities{Names: []string{"X"}}, AreaPricing{})

	assert.True(t, global.InScope(nil, nil))
	assert.True(t, global.InScope(&svc, nil))
	assert.False(t, scoped.InScope(nil, nil))
	assert.False(t, scoped.InScope(&svc, nil))
	assert.True(t, scoped.InScope(&svc, &prov))
}

func TestGeometry_MarshalRoundTripByKind(t *testing.T) {
	in := Polygon{Vertices: []geo.Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}}}
	raw, err := MarshalGeometry(in)
	require.NoError(t, err)

	out, err := UnmarshalGeometry(KindPolygon, raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = UnmarshalGeometry("hexagon", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestServiceArea_UpdateRevalidates(t *testing.T) {
	area, err := NewServiceArea("Ring", nil, nil, Radius{Center: geo.NewPoint(1, 1), RadiusMiles: 5}, AreaPricing{})
	require.NoError(t, err)

	err = area.Update("Ring", nil, nil, Polygon{}, AreaPricing{}, StatusActive)
	require.Error(t, err)
	assert.Equal(t, KindRadius, area.Kind(), "failed update must not change the area")

	require.NoError(t, area.Update("Ring", nil, nil, Radius{Center: geo.NewPoint(1, 1), RadiusMiles: 8}, AreaPricing{}, StatusInactive))
	assert.False(t, area.IsActive())
}
