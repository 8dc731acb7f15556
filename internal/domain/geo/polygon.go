package geo

import "math"

// PointInPolygon reports whether p lies inside the polygon described by
// vertices, using the even-odd ray-casting rule. The polygon is implicitly
// closed; fewer than three vertices never contain anything.
func PointInPolygon(p Point, vertices []Point) bool {
	n := len(vertices)
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi, vj := vertices[i], vertices[j]
		if (vi.Lng > p.Lng) != (vj.Lng > p.Lng) {
			crossLat := (vj.Lat-vi.Lat)*(p.Lng-vi.Lng)/(vj.Lng-vi.Lng) + vi.Lat
			if p.Lat < crossLat {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// BoundingBox is an axis-aligned lat/lng rectangle.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoundingBoxMiles returns the box that encloses a circle of radiusMiles around
// center. The longitude span is widened by 1/cos(latitude).
func BoundingBoxMiles(center Point, radiusMiles float64) BoundingBox {
	latDelta := radiusMiles / MilesPerDegree

	cosLat := math.Cos(degreesToRadians(center.Lat))
	lngDelta := 180.0
	if cosLat > 1e-9 {
		lngDelta = math.Min(180, radiusMiles/(MilesPerDegree*cosLat))
	}

	return BoundingBox{
		MinLat: center.Lat - latDelta,
		MaxLat: center.Lat + latDelta,
		MinLng: center.Lng - lngDelta,
		MaxLng: center.Lng + lngDelta,
	}
}

// LngRange is an inclusive longitude interval within [-180, 180].
type LngRange struct {
	Min float64
	Max float64
}

// LngRanges returns the box's longitude span as intervals within [-180, 180].
// A box that crosses the antimeridian splits into two.
func (b BoundingBox) LngRanges() []LngRange {
	switch {
	case b.MaxLng-b.MinLng >= 360:
		return []LngRange{{Min: -180, Max: 180}}
	case b.MinLng < -180:
		return []LngRange{{Min: b.MinLng + 360, Max: 180}, {Min: -180, Max: b.MaxLng}}
	case b.MaxLng > 180:
		return []LngRange{{Min: b.MinLng, Max: 180}, {Min: -180, Max: b.MaxLng - 360}}
	default:
		return []LngRange{{Min: b.MinLng, Max: b.MaxLng}}
	}
}

// Contains reports whether p falls inside the box (inclusive).
func (b BoundingBox) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	for _, r := range b.LngRanges() {
		if p.Lng >= r.Min && p.Lng <= r.Max {
			return true
		}
	}
	return false
}
