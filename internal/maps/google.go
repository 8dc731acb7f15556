package maps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"go.uber.org/zap"
	gmaps "googlemaps.github.io/maps"
)

// Per-call timeouts by call type.
const (
	GeocodeTimeout    = 10 * time.Second
	MatrixTimeout     = 30 * time.Second
	DirectionsTimeout = 60 * time.Second
)

// GoogleClient talks to the Google Maps web services through the official Go client.
type GoogleClient struct {
	client *gmaps.Client
	logger *zap.Logger
}

// NewGoogleClient creates a client. An empty apiKey yields an unconfigured client
// whose calls fail with NotConfigured without touching the network. baseURL
// overrides the web-service host (scheme and host only) and is mostly for tests.
func NewGoogleClient(apiKey, baseURL string, httpClient *http.Client, logger *zap.Logger) *GoogleClient {
	c := &GoogleClient{logger: logger}
	if apiKey == "" {
		return c
	}

	hc := &http.Client{}
	if httpClient != nil {
		copied := *httpClient
		hc = &copied
	}
	hc.Transport = statusTransport{next: hc.Transport, logger: logger}

	opts := []gmaps.ClientOption{gmaps.WithAPIKey(apiKey), gmaps.WithHTTPClient(hc)}
	if baseURL != "" {
		opts = append(opts, gmaps.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}
	client, err := gmaps.NewClient(opts...)
	if err != nil {
		logger.Error("failed to create map provider client", zap.Error(err))
		return c
	}
	c.client = client
	return c
}

// IsConfigured reports whether an API key is present.
func (c *GoogleClient) IsConfigured() bool { return c.client != nil }

// Geocode resolves an address to coordinates.
func (c *GoogleClient) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	if strings.TrimSpace(address) == "" {
		return nil, domain.NewValidationError("address is required")
	}
	if !c.IsConfigured() {
		return nil, domain.NewNotConfiguredError("map provider")
	}

	ctx, cancel := context.WithTimeout(ctx, GeocodeTimeout)
	defer cancel()

	results, err := c.client.Geocode(ctx, &gmaps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, providerError(err, GeocodeTimeout, false)
	}
	if len(results) == 0 {
		return nil, domain.NewError(domain.KindUpstreamNoResults, "no geocoding results")
	}

	r := results[0]
	return &GeocodeResult{
		Point:            geo.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
		FormattedAddress: r.FormattedAddress,
		PlaceID:          r.PlaceID,
	}, nil
}

// ReverseGeocode resolves coordinates to administrative address parts.
func (c *GoogleClient) ReverseGeocode(ctx context.Context, p geo.Point) (*AddressComponents, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !c.IsConfigured() {
		return nil, domain.NewNotConfiguredError("map provider")
	}

	ctx, cancel := context.WithTimeout(ctx, GeocodeTimeout)
	defer cancel()

	results, err := c.client.ReverseGeocode(ctx, &gmaps.GeocodingRequest{
		LatLng: &gmaps.LatLng{Lat: p.Lat, Lng: p.Lng},
	})
	if err != nil {
		return nil, providerError(err, GeocodeTimeout, false)
	}
	if len(results) == 0 {
		return nil, domain.NewError(domain.KindUpstreamNoResults, "no reverse geocoding results")
	}

	r := results[0]
	out := &AddressComponents{FormattedAddress: r.FormattedAddress}
	for _, comp := range r.AddressComponents {
		switch {
		case hasType(comp.Types, "postal_code"):
			out.PostalCode = comp.LongName
		case hasType(comp.Types, "locality"):
			out.City = comp.LongName
		case hasType(comp.Types, "postal_town") && out.City == "":
			out.City = comp.LongName
		case hasType(comp.Types, "administrative_area_level_1"):
			out.StateLong = comp.LongName
			out.StateShort = comp.ShortName
		case hasType(comp.Types, "country"):
			out.Country = comp.ShortName
		}
	}
	return out, nil
}

// DistanceMatrix returns distances and durations for every origin/destination pair.
func (c *GoogleClient) DistanceMatrix(ctx context.Context, origins, destinations []Place, opts MatrixOptions) (*DistanceMatrix, error) {
	if len(origins) == 0 || len(destinations) == 0 {
		return nil, domain.NewValidationError("origins and destinations are required")
	}
	if !c.IsConfigured() {
		return nil, domain.NewNotConfiguredError("map provider")
	}

	ctx, cancel := context.WithTimeout(ctx, MatrixTimeout)
	defer cancel()

	mode, departure := travelMode(opts.Mode, opts.DepartNow)
	resp, err := c.client.DistanceMatrix(ctx, &gmaps.DistanceMatrixRequest{
		Origins:       placeStrings(origins),
		Destinations:  placeStrings(destinations),
		Mode:          mode,
		DepartureTime: departure,
		Units:         gmaps.UnitsImperial,
	})
	if err != nil {
		return nil, providerError(err, MatrixTimeout, false)
	}

	out := &DistanceMatrix{Rows: make([][]MatrixElement, len(resp.Rows))}
	for i, row := range resp.Rows {
		out.Rows[i] = make([]MatrixElement, len(row.Elements))
		for j, el := range row.Elements {
			if el == nil {
				out.Rows[i][j] = MatrixElement{Status: "NOT_FOUND"}
				continue
			}
			out.Rows[i][j] = MatrixElement{
				Status:          el.Status,
				DistanceMeters:  el.Distance.Meters,
				DurationSeconds: int(el.Duration.Seconds()),
				TrafficSeconds:  int(el.DurationInTraffic.Seconds()),
			}
		}
	}
	return out, nil
}

// Directions returns the driving route through the given waypoints.
func (c *GoogleClient) Directions(ctx context.Context, origin, destination Place, waypoints []Place, opts DirectionsOptions) (*Directions, error) {
	if !c.IsConfigured() {
		return nil, domain.NewNotConfiguredError("map provider")
	}

	ctx, cancel := context.WithTimeout(ctx, DirectionsTimeout)
	defer cancel()

	mode, departure := travelMode(opts.Mode, opts.DepartNow)
	routes, _, err := c.client.Directions(ctx, &gmaps.DirectionsRequest{
		Origin:        origin.String(),
		Destination:   destination.String(),
		Waypoints:     placeStrings(waypoints),
		Optimize:      opts.OptimizeWaypoints,
		Mode:          mode,
		DepartureTime: departure,
	})
	if err != nil {
		return nil, providerError(err, DirectionsTimeout, true)
	}
	if len(routes) == 0 {
		return nil, domain.NewError(domain.KindRouteNotFound, "no route between the given places")
	}

	r := routes[0]
	out := &Directions{WaypointOrder: r.WaypointOrder, Polyline: r.OverviewPolyline.Points}
	for _, l := range r.Legs {
		if l == nil {
			continue
		}
		out.Legs = append(out.Legs, DirectionsLeg{
			Start:           geo.Point{Lat: l.StartLocation.Lat, Lng: l.StartLocation.Lng},
			End:             geo.Point{Lat: l.EndLocation.Lat, Lng: l.EndLocation.Lng},
			StartAddress:    l.StartAddress,
			EndAddress:      l.EndAddress,
			DistanceMeters:  l.Distance.Meters,
			DurationSeconds: int(l.Duration.Seconds()),
			TrafficSeconds:  int(l.DurationInTraffic.Seconds()),
		})
	}
	return out, nil
}

// statusTransport logs each provider call and turns HTTP failures into typed
// errors before the client tries to decode the body.
type statusTransport struct {
	next   http.RoundTripper
	logger *zap.Logger
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}

	start := time.Now()
	resp, err := next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("map provider call",
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if err := httpStatusError(resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// providerStatus matches the "maps: STATUS - message" errors the client returns
// for non-OK answers.
var providerStatus = regexp.MustCompile(`^maps: ([A-Z_]+)(?: - (.*))?$`)

// providerError maps a client error to a typed error. routing selects
// RouteNotFound over NoResults for empty route answers.
func providerError(err error, timeout time.Duration, routing bool) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	if isTimeout(err) {
		return domain.WrapError(domain.KindUpstreamTimeout, fmt.Sprintf("map provider did not answer within %s", timeout), err)
	}
	if m := providerStatus.FindStringSubmatch(err.Error()); m != nil {
		return statusError(m[1], m[2], routing)
	}
	if strings.HasPrefix(err.Error(), "maps: ") {
		return domain.WrapError(domain.KindUpstreamInvalidRequest, "map provider rejected the request", err)
	}
	return domain.WrapError(domain.KindUpstreamUnknown, "map provider request failed", err)
}

// statusError maps a provider status to a typed error.
func statusError(status, message string, routing bool) error {
	if message == "" {
		message = status
	}
	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS", "NOT_FOUND":
		if routing {
			return domain.NewError(domain.KindRouteNotFound, message)
		}
		return domain.NewError(domain.KindUpstreamNoResults, message)
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return domain.NewError(domain.KindUpstreamQuotaExceeded, message)
	case "REQUEST_DENIED":
		return domain.NewError(domain.KindUpstreamRequestDenied, message)
	case "INVALID_REQUEST", "MAX_WAYPOINTS_EXCEEDED", "MAX_ROUTE_LENGTH_EXCEEDED", "MAX_ELEMENTS_EXCEEDED", "MAX_DIMENSIONS_EXCEEDED":
		return domain.NewError(domain.KindUpstreamInvalidRequest, message)
	default:
		return domain.NewError(domain.KindUpstreamUnknown, message)
	}
}

func httpStatusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return domain.NewError(domain.KindUpstreamQuotaExceeded, "map provider rate limit reached")
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.NewError(domain.KindUpstreamRequestDenied, "map provider rejected the credentials")
	case code == http.StatusBadRequest:
		return domain.NewError(domain.KindUpstreamInvalidRequest, "map provider rejected the request")
	case code == http.StatusGatewayTimeout:
		return domain.NewError(domain.KindUpstreamTimeout, "map provider gateway timeout")
	default:
		return domain.NewError(domain.KindUpstreamUnknown, fmt.Sprintf("map provider returned HTTP %d", code))
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func travelMode(mode TravelMode, departNow bool) (gmaps.Mode, string) {
	if mode == "" {
		mode = ModeDriving
	}
	var departure string
	if departNow && mode == ModeDriving {
		departure = "now"
	}
	return gmaps.Mode(mode), departure
}

func placeStrings(places []Place) []string {
	if len(places) == 0 {
		return nil
	}
	out := make([]string, len(places))
	for i, p := range places {
		out[i] = p.String()
	}
	return out
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
