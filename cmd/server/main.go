package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/application"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/config"
	geoEvents "github.com/Kilat-Pet-Delivery/service-geo/internal/events"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/handler"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/maps"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/database"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/health"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/kafka"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/logger"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/repository"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/ws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	serviceName        = "service-geo"
	cachePurgeInterval = time.Hour
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-geo",
		zap.String("port", cfg.Port),
		zap.String("distance_method", string(cfg.Geo.Distance.Method)),
		zap.String("distance_unit", string(cfg.Geo.Distance.Unit)),
	)

	// Connect to database
	db, err := database.Connect(cfg.DB, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(repository.Models()...); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DB.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()
	publisher := application.NewKafkaEventPublisher(kafkaProducer, log)

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	locationRepo := repository.NewGormLocationRepository(db)
	providerLocationRepo := repository.NewGormProviderLocationRepository(db)
	checkinRepo := repository.NewGormCheckinRepository(db)
	areaRepo := repository.NewGormServiceAreaRepository(db)
	routeRepo := repository.NewGormRouteRepository(db)
	catalog := repository.NewGormServiceCatalog(db)
	mapCache := repository.NewGormMapCache(db)

	// Map provider behind the persistent result cache
	mapClient := maps.NewCachedClient(
		maps.NewGoogleClient(cfg.Maps.APIKey, cfg.Maps.BaseURL, nil, log),
		mapCache,
		maps.CacheTTL{Geocode: cfg.Geo.Cache.GeocodeTTL, Route: cfg.Geo.Cache.RouteTTL},
		log,
	)
	if !mapClient.IsConfigured() {
		log.Warn("map provider is not configured, geocoding and API distances are disabled")
	}

	// Initialize application services
	calculator := application.NewDistanceCalculator(cfg.Geo, mapClient, log)
	areaManager := application.NewServiceAreaManager(areaRepo, mapClient, cfg.Geo, log)
	pricingService := application.NewPricingService(areaManager, cfg.Geo, log)
	tracker := application.NewLocationTracker(
		locationRepo,
		providerLocationRepo,
		checkinRepo,
		bookingRepo,
		catalog,
		mapClient,
		publisher,
		cfg.Geo,
		log,
	)
	optimizer := application.NewRouteOptimizer(bookingRepo, locationRepo, routeRepo, calculator, publisher, cfg.Geo, log)
	scheduler := application.NewTravelTimeScheduler(bookingRepo, locationRepo, calculator, cfg.Geo, log)
	projection := application.NewBookingProjection(bookingRepo, catalog, log)

	// Start event consumers in goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.Kafka.GroupPrefix + "geo-service"
	bookingConsumer := geoEvents.NewBookingEventConsumer(cfg.Kafka.Brokers, groupID, projection, log)
	defer func() { _ = bookingConsumer.Close() }()
	providerConsumer := geoEvents.NewProviderEventConsumer(cfg.Kafka.Brokers, groupID, projection, log)
	defer func() { _ = providerConsumer.Close() }()

	go func() {
		log.Info("starting booking event consumer")
		if err := bookingConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("booking event consumer error", zap.Error(err))
		}
	}()
	go func() {
		log.Info("starting provider event consumer")
		if err := providerConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("provider event consumer error", zap.Error(err))
		}
	}()
	go purgeMapCache(ctx, mapCache, log)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, serviceName)
	healthHandler.RegisterRoutes(router)

	// Register routes
	api := &router.RouterGroup
	handler.NewGeoHandler(calculator, pricingService).RegisterRoutes(api, jwtManager)
	handler.NewServiceAreaHandler(areaManager).RegisterRoutes(api, jwtManager)
	handler.NewAdminServiceAreaHandler(areaManager).RegisterRoutes(api, jwtManager)
	handler.NewLocationHandler(tracker).RegisterRoutes(api, jwtManager)
	handler.NewBookingHandler(tracker).RegisterRoutes(api, jwtManager)
	handler.NewProviderHandler(tracker, optimizer, scheduler).RegisterRoutes(api, jwtManager)
	ws.NewProviderStream(tracker, jwtManager, log).RegisterRoutes(api)

	// Create HTTP server (no WriteTimeout, websocket streams are long-lived)
	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-geo...")

	// Cancel consumers and background jobs
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-geo stopped")
}

// purgeMapCache drops expired map results until ctx is cancelled.
func purgeMapCache(ctx context.Context, cache *repository.GormMapCache, log *zap.Logger) {
	ticker := time.NewTicker(cachePurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := cache.PurgeExpired(ctx)
			if err != nil {
				log.Warn("map cache purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("map cache purged", zap.Int64("rows", n))
			}
		}
	}
}
