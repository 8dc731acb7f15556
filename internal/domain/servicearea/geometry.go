package servicearea

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
)

// Kind identifies how a service area describes its coverage.
type Kind string

const (
	KindRadius   Kind = "radius"
	KindPolygon  Kind = "polygon"
	KindZipCodes Kind = "zip_codes"
	KindCities   Kind = "cities"
	KindStates   Kind = "states"
)

// IsValid returns true if the kind is recognized.
func (k Kind) IsValid() bool {
	switch k {
	case KindRadius, KindPolygon, KindZipCodes, KindCities, KindStates:
		return true
	}
	return false
}

// NeedsReverseGeocode is true for kinds matched against administrative names.
func (k Kind) NeedsReverseGeocode() bool {
	return k == KindZipCodes || k == KindCities || k == KindStates
}

// Geometry is the kind-specific coverage payload of a service area.
// The concrete types are Radius, Polygon, ZipCodes, Cities and States.
type Geometry interface {
	Kind() Kind
	validate() error
}

// Radius covers every point within RadiusMiles of Center.
type Radius struct {
	Center      geo.Point `json:"center"`
	RadiusMiles float64   `json:"radius_miles"`
}

// Polygon covers the interior of a closed ring of vertices.
type Polygon struct {
	Vertices []geo.Point `json:"vertices"`
}

// ZipCodes covers points whose postal code is listed.
type ZipCodes struct {
	Codes []string `json:"codes"`
}

// Cities covers points whose locality is listed.
type Cities struct {
	Names []string `json:"names"`
}

// States covers points whose state (long or short form) is listed.
type States struct {
	Names []string `json:"names"`
}

func (Radius) Kind() Kind   { return KindRadius }
func (Polygon) Kind() Kind  { return KindPolygon }
func (ZipCodes) Kind() Kind { return KindZipCodes }
func (Cities) Kind() Kind   { return KindCities }
func (States) Kind() Kind   { return KindStates }

func (g Radius) validate() error {
	if err := g.Center.Validate(); err != nil {
		return fmt.Errorf("radius center: %w", err)
	}
	if g.RadiusMiles <= 0 {
		return fmt.Errorf("radius must be positive")
	}
	return nil
}

func (g Polygon) validate() error {
	if len(g.Vertices) < 3 {
		return fmt.Errorf("polygon needs at least 3 vertices, got %d", len(g.Vertices))
	}
	for i, v := range g.Vertices {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("polygon vertex %d: %w", i, err)
		}
	}
	return nil
}

func (g ZipCodes) validate() error { return nonEmptyList("zip code", g.Codes) }
func (g Cities) validate() error   { return nonEmptyList("city", g.Names) }
func (g States) validate() error   { return nonEmptyList("state", g.Names) }

func nonEmptyList(label string, items []string) error {
	if len(items) == 0 {
		return fmt.Errorf("at least one %s is required", label)
	}
	for _, it := range items {
		if strings.TrimSpace(it) == "" {
			return fmt.Errorf("empty %s in list", label)
		}
	}
	return nil
}

// AdminAddress is the administrative breakdown of a reverse-geocoded point.
type AdminAddress struct {
	PostalCode string
	City       string
	StateLong  string
	StateShort string
}

// containsPoint answers membership for the geometric kinds.
func containsPoint(g Geometry, p geo.Point) bool {
	switch v := g.(type) {
	case Radius:
		return geo.HaversineMiles(p, v.Center) <= v.RadiusMiles
	case Polygon:
		return geo.PointInPolygon(p, v.Vertices)
	}
	return false
}

// containsAddress answers membership for the administrative kinds.
func containsAddress(g Geometry, addr AdminAddress) bool {
	switch v := g.(type) {
	case ZipCodes:
		return listContains(v.Codes, addr.PostalCode)
	case Cities:
		return listContains(v.Names, addr.City)
	case States:
		return listContains(v.Names, addr.StateLong) || listContains(v.Names, addr.StateShort)
	}
	return false
}

func listContains(items []string, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	for _, it := range items {
		if strings.EqualFold(strings.TrimSpace(it), value) {
			return true
		}
	}
	return false
}

// MarshalGeometry encodes a geometry payload for storage.
func MarshalGeometry(g Geometry) (json.RawMessage, error) {
	return json.Marshal(g)
}

// UnmarshalGeometry decodes a stored payload according to kind.
func UnmarshalGeometry(kind Kind, data []byte) (Geometry, error) {
	switch kind {
	case KindRadius:
		var g Radius
		err := json.Unmarshal(data, &g)
		return g, err
	case KindPolygon:
		var g Polygon
		err := json.Unmarshal(data, &g)
		return g, err
	case KindZipCodes:
		var g ZipCodes
		err := json.Unmarshal(data, &g)
		return g, err
	case KindCities:
		var g Cities
		err := json.Unmarshal(data, &g)
		return g, err
	case KindStates:
		var g States
		err := json.Unmarshal(data, &g)
		return g, err
	}
	return nil, fmt.Errorf("unknown service area kind: %s", kind)
}
