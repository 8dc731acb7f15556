package maps

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"go.uber.org/zap"
)

// CallKind labels cached entries by the provider call that produced them.
type CallKind string

const (
	CallGeocode        CallKind = "geocode"
	CallReverseGeocode CallKind = "reverse_geocode"
	CallDistanceMatrix CallKind = "distance_matrix"
	CallDirections     CallKind = "directions"
)

// CacheStore persists serialized provider results until they expire.
type CacheStore interface {
	// Get returns the payload for key, or ok=false when it is missing or expired.
	Get(ctx context.Context, key string) (payload []byte, ok bool, err error)
	Set(ctx context.Context, key string, kind CallKind, payload []byte, ttl time.Duration) error
}

// CacheTTL holds the lifetime of each class of cached result.
type CacheTTL struct {
	Geocode time.Duration
	Route   time.Duration
}

// CachedClient decorates a Client with a result cache. Only successful results
// are stored, so upstream failures are retried on the next call. A matrix with
// any non-OK element counts as a failure.
type CachedClient struct {
	next   Client
	store  CacheStore
	ttl    CacheTTL
	logger *zap.Logger
}

// NewCachedClient wraps next with store.
func NewCachedClient(next Client, store CacheStore, ttl CacheTTL, logger *zap.Logger) *CachedClient {
	return &CachedClient{next: next, store: store, ttl: ttl, logger: logger}
}

func (c *CachedClient) IsConfigured() bool { return c.next.IsConfigured() }

func (c *CachedClient) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	key := CacheKey(CallGeocode, normalizeAddress(address))
	return cached(ctx, c, key, CallGeocode, c.ttl.Geocode, func() (*GeocodeResult, error) {
		return c.next.Geocode(ctx, address)
	}, nil)
}

func (c *CachedClient) ReverseGeocode(ctx context.Context, p geo.Point) (*AddressComponents, error) {
	key := CacheKey(CallReverseGeocode, p.String())
	return cached(ctx, c, key, CallReverseGeocode, c.ttl.Geocode, func() (*AddressComponents, error) {
		return c.next.ReverseGeocode(ctx, p)
	}, nil)
}

func (c *CachedClient) DistanceMatrix(ctx context.Context, origins, destinations []Place, opts MatrixOptions) (*DistanceMatrix, error) {
	key := CacheKey(CallDistanceMatrix, joinPlaces(origins), joinPlaces(destinations), string(opts.Mode), fmt.Sprint(opts.DepartNow))
	return cached(ctx, c, key, CallDistanceMatrix, c.ttl.Route, func() (*DistanceMatrix, error) {
		return c.next.DistanceMatrix(ctx, origins, destinations, opts)
	}, (*DistanceMatrix).complete)
}

func (c *CachedClient) Directions(ctx context.Context, origin, destination Place, waypoints []Place, opts DirectionsOptions) (*Directions, error) {
	key := CacheKey(CallDirections, origin.String(), destination.String(), joinPlaces(waypoints),
		string(opts.Mode), fmt.Sprint(opts.DepartNow), fmt.Sprint(opts.OptimizeWaypoints))
	return cached(ctx, c, key, CallDirections, c.ttl.Route, func() (*Directions, error) {
		return c.next.Directions(ctx, origin, destination, waypoints, opts)
	}, nil)
}

// cached serves key from the store or calls fetch and stores its result when
// storable is nil or accepts it. Store failures degrade to an uncached call.
func cached[T any](ctx context.Context, c *CachedClient, key string, kind CallKind, ttl time.Duration, fetch func() (*T, error), storable func(*T) bool) (*T, error) {
	payload, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("map cache read failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	if ok {
		var hit T
		if err := json.Unmarshal(payload, &hit); err == nil {
			return &hit, nil
		}
		c.logger.Warn("discarding unreadable map cache entry", zap.String("kind", string(kind)))
	}

	result, err := fetch()
	if err != nil {
		return nil, err
	}
	if ttl <= 0 || (storable != nil && !storable(result)) {
		return result, nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return result, nil
	}
	if err := c.store.Set(ctx, key, kind, data, ttl); err != nil {
		c.logger.Warn("map cache write failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	return result, nil
}

// complete reports whether every element of the matrix resolved.
func (m *DistanceMatrix) complete() bool {
	for _, row := range m.Rows {
		for _, el := range row {
			if !el.OK() {
				return false
			}
		}
	}
	return true
}

// CacheKey hashes the call kind and its normalized inputs.
func CacheKey(kind CallKind, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(p)))
	}
	return hex.EncodeToString(h.Sum(nil))
}
