package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversine_Symmetric(t *testing.T) {
	pairs := [][2]Point{
		{NewPoint(40.7128, -74.0060), NewPoint(34.0522, -118.2437)},
		{NewPoint(3.139, 101.6869), NewPoint(3.15, 101.71)},
		{NewPoint(-33.8688, 151.2093), NewPoint(51.5074, -0.1278)},
		{NewPoint(0, 0), NewPoint(0, 179.9)},
	}
	for _, p := range pairs {
		assert.InDelta(t, HaversineMiles(p[0], p[1]), HaversineMiles(p[1], p[0]), 1e-9)
		assert.InDelta(t, HaversineMeters(p[0], p[1]), HaversineMeters(p[1], p[0]), 1e-6)
	}
}

func TestHaversine_SamePointIsZero(t *testing.T) {
	p := NewPoint(40.0, -74.0)
	assert.Equal(t, 0.0, HaversineMiles(p, p))
	assert.Equal(t, 0.0, HaversineKm(p, p))
}

func TestHaversine_KnownDistance(t *testing.T) {
	// New York to Los Angeles is roughly 2445 miles great-circle.
	d := HaversineMiles(NewPoint(40.7128, -74.0060), NewPoint(34.0522, -118.2437))
	assert.InDelta(t, 2445, d, 10)

	// One degree of latitude along a meridian.
	assert.InDelta(t, 69.09, HaversineMiles(NewPoint(0, 0), NewPoint(1, 0)), 0.01)
}

func TestUnitConversion_RoundTrip(t *testing.T) {
	for _, x := range []float64{0, 0.5, 1, 12.34, 1000, 98765.4321} {
		assert.InDelta(t, x, KmToMiles(MilesToKm(x)), 1e-6)
	}
}

func TestPointInPolygon_UnitSquare(t *testing.T) {
	square := []Point{NewPoint(0, 0), NewPoint(0, 1), NewPoint(1, 1), NewPoint(1, 0)}

	assert.True(t, PointInPolygon(NewPoint(0.5, 0.5), square))
	assert.False(t, PointInPolygon(NewPoint(2, 2), square))
	assert.False(t, PointInPolygon(NewPoint(-0.1, 0.5), square))
}

func TestPointInPolygon_Concave(t *testing.T) {
	// An L shape: the notch at (1.5,1.5) is outside.
	shape := []Point{
		NewPoint(0, 0), NewPoint(0, 2), NewPoint(1, 2),
		NewPoint(1, 1), NewPoint(2, 1), NewPoint(2, 0),
	}
	assert.True(t, PointInPolygon(NewPoint(0.5, 1.5), shape))
	assert.True(t, PointInPolygon(NewPoint(1.5, 0.5), shape))
	assert.False(t, PointInPolygon(NewPoint(1.5, 1.5), shape))
}

func TestPointInPolygon_TooFewVertices(t *testing.T) {
	assert.False(t, PointInPolygon(NewPoint(0, 0), []Point{NewPoint(0, 0), NewPoint(1, 1)}))
}

func TestBoundingBoxMiles(t *testing.T) {
	center := NewPoint(60, 10)
	box := BoundingBoxMiles(center, 69)

	assert.InDelta(t, 59, box.MinLat, 1e-9)
	assert.InDelta(t, 61, box.MaxLat, 1e-9)
	// cos(60°) = 0.5 so the longitude span doubles.
	assert.InDelta(t, 8, box.MinLng, 1e-6)
	assert.InDelta(t, 12, box.MaxLng, 1e-6)
	assert.True(t, box.Contains(center))
	assert.False(t, box.Contains(NewPoint(62, 10)))
}

func TestBoundingBoxMiles_Antimeridian(t *testing.T) {
	box := BoundingBoxMiles(NewPoint(0, 179.9), 69)

	ranges := box.LngRanges()
	require.Len(t, ranges, 2)
	assert.InDelta(t, 178.9, ranges[0].Min, 1e-6)
	assert.InDelta(t, 180, ranges[0].Max, 1e-9)
	assert.InDelta(t, -180, ranges[1].Min, 1e-9)
	assert.InDelta(t, -179.1, ranges[1].Max, 1e-6)

	assert.True(t, box.Contains(NewPoint(0, -179.8)), "points just across the antimeridian are inside")
	assert.True(t, box.Contains(NewPoint(0, 179.5)))
	assert.False(t, box.Contains(NewPoint(0, -170)))

	west := BoundingBoxMiles(NewPoint(0, -179.9), 69)
	assert.True(t, west.Contains(NewPoint(0, 179.8)))
	assert.Len(t, west.LngRanges(), 2)

	assert.Len(t, BoundingBoxMiles(NewPoint(10, 10), 69).LngRanges(), 1)
	assert.Equal(t, []LngRange{{Min: -180, Max: 180}}, BoundingBoxMiles(NewPoint(90, 0), 10).LngRanges())
}

func TestEstimateDurationMinutes(t *testing.T) {
	assert.Equal(t, 60.0, EstimateDurationMinutes(30, 30))
	assert.Equal(t, 0.0, EstimateDurationMinutes(10, 0))
	assert.Equal(t, 24, RoundMinutes(EstimateDurationMinutes(12, 30)))
}

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{
		0:   "0 min",
		45:  "45 min",
		60:  "1 hr",
		90:  "1 hr 30 min",
		120: "2 hrs",
		125: "2 hrs 5 min",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDuration(in), "minutes=%d", in)
	}
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "10.0 mi", FormatDistance(10, UnitMiles))
	assert.Equal(t, "16.1 km", FormatDistance(10, UnitKm))
}

func TestPoint_Validate(t *testing.T) {
	require.NoError(t, NewPoint(45, 120).Validate())
	assert.Error(t, NewPoint(91, 0).Validate())
	assert.Error(t, NewPoint(0, -181).Validate())
}
