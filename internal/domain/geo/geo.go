// Package geo holds the pure geometry used across the service: great-circle
// distance, point-in-polygon, bounding boxes and flat-speed duration estimates.
// Nothing in this package performs I/O or keeps state.
package geo

import (
	"fmt"
	"math"
)

const (
	EarthRadiusMiles  = 3958.8
	EarthRadiusKm     = 6371.0
	EarthRadiusMeters = 6371000.0

	KmPerMile      = 1.609344
	MilesPerDegree = 69.0
	MphPerMps      = 2.23694
)

// Point is a WGS-84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewPoint creates a Point.
func NewPoint(lat, lng float64) Point {
	return Point{Lat: lat, Lng: lng}
}

// Validate checks that the point lies within valid latitude/longitude ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return fmt.Errorf("coordinates must be numbers")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %f out of range", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %f out of range", p.Lng)
	}
	return nil
}

// String renders the point as "lat,lng", the form map APIs accept.
func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// centralAngle returns the great-circle central angle between a and b in radians.
func centralAngle(a, b Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	lat1Rad := degreesToRadians(a.Lat)
	lat2Rad := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// HaversineMiles returns the great-circle distance between a and b in miles.
func HaversineMiles(a, b Point) float64 {
	return EarthRadiusMiles * centralAngle(a, b)
}

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b Point) float64 {
	return EarthRadiusKm * centralAngle(a, b)
}

// HaversineMeters returns the great-circle distance between a and b in meters.
func HaversineMeters(a, b Point) float64 {
	return EarthRadiusMeters * centralAngle(a, b)
}

// MilesToKm converts miles to kilometers.
func MilesToKm(miles float64) float64 { return miles * KmPerMile }

// KmToMiles converts kilometers to miles.
func KmToMiles(km float64) float64 { return km / KmPerMile }

// MpsToMph converts meters per second to miles per hour.
func MpsToMph(mps float64) float64 { return mps * MphPerMps }

// EstimateDurationMinutes estimates travel minutes over miles at a flat speed.
// It is a straight-line approximation, not a road-network estimate.
func EstimateDurationMinutes(miles, speedMph float64) float64 {
	if speedMph <= 0 {
		return 0
	}
	return miles / speedMph * 60
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundMinutes rounds a fractional minute count to the nearest whole minute.
func RoundMinutes(minutes float64) int {
	return int(math.Round(minutes))
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
