package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/pricing"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/database"
	"github.com/spf13/viper"
)

const envPrefix = "GEO"

// DistanceMethod selects how travel distance is measured.
type DistanceMethod string

const (
	MethodAPI       DistanceMethod = "api"
	MethodHaversine DistanceMethod = "haversine"
)

// ServiceConfig holds all configuration for the geo service.
type ServiceConfig struct {
	Port   string
	AppEnv string
	DB     database.PostgresConfig
	JWT    JWTConfig
	Kafka  KafkaConfig
	Maps   MapsConfig
	Geo    GeoSettings
}

// JWTConfig holds token settings shared with the identity service.
type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// KafkaConfig holds broker and consumer-group settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// MapsConfig holds map-provider credentials. An empty key disables API calls.
type MapsConfig struct {
	APIKey  string
	BaseURL string
}

// GeoSettings is the typed behaviour configuration of every geo component.
type GeoSettings struct {
	Distance    DistanceSettings
	Pricing     PricingSettings
	Buffer      BufferSettings
	Checkin     CheckinSettings
	Tracking    TrackingSettings
	Route       RouteSettings
	ServiceArea ServiceAreaSettings
	Cache       CacheSettings
}

type DistanceSettings struct {
	Method           DistanceMethod
	Unit             geo.Unit
	FallbackSpeedMph float64
	ETASpeedMph      float64
	MinLiveSpeedMph  float64
}

type PricingSettings struct {
	Enabled      bool
	BaseFee      float64
	PerUnitRate  float64
	FreeDistance float64
	MaxDistance  float64
	TiersEnabled bool
	Tiers        []pricing.Tier
}

type BufferSettings struct {
	Percent    float64
	MinMinutes int
	MaxMinutes int
	RoundTo    int
}

type CheckinSettings struct {
	VerificationRadiusMeters float64
	RequireVerification      bool
}

type TrackingSettings struct {
	PingInterval time.Duration
	NearbyWindow time.Duration
}

type RouteSettings struct {
	UseHomeLocation    bool
	ReturnToHome       bool
	RespectTimeWindows bool
	ClusterGap         time.Duration
}

type ServiceAreaSettings struct {
	Enforce bool
}

type CacheSettings struct {
	GeocodeTTL time.Duration
	RouteTTL   time.Duration
}

// DefaultGeoSettings returns the settings used when nothing is configured.
func DefaultGeoSettings() GeoSettings {
	return GeoSettings{
		Distance: DistanceSettings{
			Method:           MethodHaversine,
			Unit:             geo.UnitMiles,
			FallbackSpeedMph: 30,
			ETASpeedMph:      25,
			MinLiveSpeedMph:  5,
		},
		Buffer:   BufferSettings{Percent: 20, MinMinutes: 10, MaxMinutes: 60, RoundTo: 5},
		Checkin:  CheckinSettings{VerificationRadiusMeters: 100},
		Tracking: TrackingSettings{PingInterval: time.Minute, NearbyWindow: 15 * time.Minute},
		Route:    RouteSettings{ClusterGap: 2 * time.Hour},
		Cache:    CacheSettings{GeocodeTTL: 24 * time.Hour, RouteTTL: time.Hour},
	}
}

// Load reads configuration from GEO_* environment variables and an optional config file.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	d := DefaultGeoSettings()

	v.SetDefault("service_port", ":8010")
	v.SetDefault("app_env", "development")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "geo_db")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)

	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.group_prefix", "kilat-")

	v.SetDefault("maps.api_key", "")
	v.SetDefault("maps.base_url", "https://maps.googleapis.com")

	v.SetDefault("distance.method", string(d.Distance.Method))
	v.SetDefault("distance.unit", string(d.Distance.Unit))
	v.SetDefault("distance.fallback_speed_mph", d.Distance.FallbackSpeedMph)
	v.SetDefault("distance.eta_speed_mph", d.Distance.ETASpeedMph)
	v.SetDefault("distance.min_live_speed_mph", d.Distance.MinLiveSpeedMph)

	v.SetDefault("pricing.enabled", false)
	v.SetDefault("pricing.base_fee", 0.0)
	v.SetDefault("pricing.per_unit_rate", 0.0)
	v.SetDefault("pricing.free_distance", 0.0)
	v.SetDefault("pricing.max_distance", 0.0)
	v.SetDefault("pricing.tiers_enabled", false)
	v.SetDefault("pricing.tiers", "")

	v.SetDefault("buffer.percent", d.Buffer.Percent)
	v.SetDefault("buffer.min_minutes", d.Buffer.MinMinutes)
	v.SetDefault("buffer.max_minutes", d.Buffer.MaxMinutes)
	v.SetDefault("buffer.round_to", d.Buffer.RoundTo)

	v.SetDefault("checkin.verification_radius_meters", d.Checkin.VerificationRadiusMeters)
	v.SetDefault("checkin.require_verification", false)

	v.SetDefault("tracking.ping_interval", d.Tracking.PingInterval)
	v.SetDefault("tracking.nearby_window", d.Tracking.NearbyWindow)

	v.SetDefault("route.use_home_location", false)
	v.SetDefault("route.return_to_home", false)
	v.SetDefault("route.respect_time_windows", false)
	v.SetDefault("route.cluster_gap", d.Route.ClusterGap)

	v.SetDefault("service_area.enforce", false)

	v.SetDefault("cache.geocode_ttl", d.Cache.GeocodeTTL)
	v.SetDefault("cache.route_ttl", d.Cache.RouteTTL)
}

func fromViper(v *viper.Viper) (*ServiceConfig, error) {
	geoSettings, err := loadGeoSettings(v)
	if err != nil {
		return nil, err
	}

	return &ServiceConfig{
		Port:   v.GetString("service_port"),
		AppEnv: v.GetString("app_env"),
		DB: database.PostgresConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			DBName:   v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			AccessTTL:  v.GetDuration("jwt.access_ttl"),
			RefreshTTL: v.GetDuration("jwt.refresh_ttl"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(v.GetString("kafka.brokers")),
			GroupPrefix: v.GetString("kafka.group_prefix"),
		},
		Maps: MapsConfig{
			APIKey:  v.GetString("maps.api_key"),
			BaseURL: v.GetString("maps.base_url"),
		},
		Geo: geoSettings,
	}, nil
}

func loadGeoSettings(v *viper.Viper) (GeoSettings, error) {
	s := GeoSettings{
		Distance: DistanceSettings{
			Method:           DistanceMethod(strings.ToLower(v.GetString("distance.method"))),
			Unit:             geo.Unit(strings.ToLower(v.GetString("distance.unit"))),
			FallbackSpeedMph: v.GetFloat64("distance.fallback_speed_mph"),
			ETASpeedMph:      v.GetFloat64("distance.eta_speed_mph"),
			MinLiveSpeedMph:  v.GetFloat64("distance.min_live_speed_mph"),
		},
		Pricing: PricingSettings{
			Enabled:      v.GetBool("pricing.enabled"),
			BaseFee:      v.GetFloat64("pricing.base_fee"),
			PerUnitRate:  v.GetFloat64("pricing.per_unit_rate"),
			FreeDistance: v.GetFloat64("pricing.free_distance"),
			MaxDistance:  v.GetFloat64("pricing.max_distance"),
			TiersEnabled: v.GetBool("pricing.tiers_enabled"),
		},
		Buffer: BufferSettings{
			Percent:    v.GetFloat64("buffer.percent"),
			MinMinutes: v.GetInt("buffer.min_minutes"),
			MaxMinutes: v.GetInt("buffer.max_minutes"),
			RoundTo:    v.GetInt("buffer.round_to"),
		},
		Checkin: CheckinSettings{
			VerificationRadiusMeters: v.GetFloat64("checkin.verification_radius_meters"),
			RequireVerification:      v.GetBool("checkin.require_verification"),
		},
		Tracking: TrackingSettings{
			PingInterval: v.GetDuration("tracking.ping_interval"),
			NearbyWindow: v.GetDuration("tracking.nearby_window"),
		},
		Route: RouteSettings{
			UseHomeLocation:    v.GetBool("route.use_home_location"),
			ReturnToHome:       v.GetBool("route.return_to_home"),
			RespectTimeWindows: v.GetBool("route.respect_time_windows"),
			ClusterGap:         v.GetDuration("route.cluster_gap"),
		},
		ServiceArea: ServiceAreaSettings{Enforce: v.GetBool("service_area.enforce")},
		Cache: CacheSettings{
			GeocodeTTL: v.GetDuration("cache.geocode_ttl"),
			RouteTTL:   v.GetDuration("cache.route_ttl"),
		},
	}

	if raw := v.GetString("pricing.tiers"); raw != "" {
		tiers, err := pricing.ParseTiers(raw)
		if err != nil {
			return GeoSettings{}, fmt.Errorf("invalid GEO_PRICING_TIERS: %w", err)
		}
		s.Pricing.Tiers = tiers
	}

	if err := s.Validate(); err != nil {
		return GeoSettings{}, err
	}
	return s, nil
}

// Validate rejects settings no component can work with.
func (s GeoSettings) Validate() error {
	switch s.Distance.Method {
	case MethodAPI, MethodHaversine:
	default:
		return fmt.Errorf("unknown distance method %q", s.Distance.Method)
	}
	if !s.Distance.Unit.IsValid() {
		return fmt.Errorf("unknown distance unit %q", s.Distance.Unit)
	}
	if s.Distance.FallbackSpeedMph <= 0 || s.Distance.ETASpeedMph <= 0 {
		return fmt.Errorf("speeds must be positive")
	}
	if s.Buffer.Percent < 0 || s.Buffer.MinMinutes < 0 || s.Buffer.MaxMinutes < s.Buffer.MinMinutes {
		return fmt.Errorf("invalid travel buffer settings")
	}
	if s.Buffer.RoundTo <= 0 {
		return fmt.Errorf("buffer rounding must be positive")
	}
	if s.Checkin.VerificationRadiusMeters <= 0 {
		return fmt.Errorf("verification radius must be positive")
	}
	if s.Tracking.PingInterval <= 0 || s.Tracking.NearbyWindow <= 0 {
		return fmt.Errorf("tracking intervals must be positive")
	}
	if s.Pricing.TiersEnabled && len(s.Pricing.Tiers) == 0 {
		return fmt.Errorf("tiered pricing enabled without tiers")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
