package handler

import (
	"strconv"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/application"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/location"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/response"
	"github.com/gin-gonic/gin"
)

const defaultNearbyRadiusMiles = 10

// ProviderHandler handles provider position, route and schedule requests.
type ProviderHandler struct {
	tracker   *application.LocationTracker
	optimizer *application.RouteOptimizer
	scheduler *application.TravelTimeScheduler
}

// NewProviderHandler creates a new ProviderHandler.
func NewProviderHandler(
	tracker *application.LocationTracker,
	optimizer *application.RouteOptimizer,
	scheduler *application.TravelTimeScheduler,
) *ProviderHandler {
	return &ProviderHandler{tracker: tracker, optimizer: optimizer, scheduler: scheduler}
}

type availabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// RegisterRoutes registers provider routes.
func (h *ProviderHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	providerRole := middleware.RequireRole(auth.RoleProvider)

	providers := r.Group("/api/v1/providers")
	providers.Use(authMW)
	{
		providers.PUT("/me/location", providerRole, h.UpdateLocation)
		providers.PUT("/me/availability", providerRole, h.SetAvailability)
		providers.GET("/nearby", h.Nearby)
		providers.GET("/:id/location", h.GetLocation)

		providers.POST("/:id/routes/:date/optimize", h.OptimizeRoute)
		providers.GET("/:id/routes/:date", h.GetRoute)
		providers.GET("/:id/routes/:date/navigation", h.Navigation)

		providers.POST("/:id/schedule/filter-slots", h.FilterSlots)
		providers.GET("/:id/schedule/:date", h.Schedule)
		providers.GET("/:id/schedule/:date/validate", h.ValidateSchedule)
	}
}

// UpdateLocation handles PUT /api/v1/providers/me/location.
func (h *ProviderHandler) UpdateLocation(c *gin.Context) {
	providerID, ok := currentUser(c)
	if !ok {
		return
	}

	var ping location.PositionPing
	if err := c.ShouldBindJSON(&ping); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.tracker.UpdateProviderLocation(c.Request.Context(), providerID, ping)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// SetAvailability handles PUT /api/v1/providers/me/availability.
func (h *ProviderHandler) SetAvailability(c *gin.Context) {
	providerID, ok := currentUser(c)
	if !ok {
		return
	}

	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.tracker.SetAvailability(c.Request.Context(), providerID, *req.Available); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"provider_id": providerID, "available": *req.Available})
}

// GetLocation handles GET /api/v1/providers/:id/location.
func (h *ProviderHandler) GetLocation(c *gin.Context) {
	providerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.tracker.GetProviderLocation(c.Request.Context(), providerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Nearby handles GET /api/v1/providers/nearby?lat=&lng=&radius=&service_id=.
func (h *ProviderHandler) Nearby(c *gin.Context) {
	p, ok := pointQuery(c)
	if !ok {
		return
	}
	radius := float64(defaultNearbyRadiusMiles)
	if raw := c.Query("radius"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.BadRequest(c, "invalid radius")
			return
		}
		radius = v
	}
	serviceID, ok := optionalUUIDQuery(c, "service_id")
	if !ok {
		return
	}

	result, err := h.tracker.NearbyProviders(c.Request.Context(), application.NearbyRequest{
		Lat:         p.Lat,
		Lng:         p.Lng,
		RadiusMiles: radius,
		ServiceID:   serviceID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// OptimizeRoute handles POST /api/v1/providers/:id/routes/:date/optimize.
func (h *ProviderHandler) OptimizeRoute(c *gin.Context) {
	providerID, ok := uuidParam(c, "id")
	if !ok || !authorizeProvider(c, providerID) {
		return
	}
	date, ok := dateParam(c, "date")
	if !ok {
		return
	}

	result, err := h.optimizer.OptimizeDailyRoute(c.Request.Context(), providerID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetRoute handles GET /api/v1/providers/:id/routes/:date.
func (h *ProviderHandler) GetRoute(c *gin.Context) {
	providerID, ok := uuidParam(c, "id")
	if !ok || !authorizeProvider(c, providerID) {
		return
	}
	date, ok := dateParam(c, "date")
	if !ok {
		return
	}

	result, err := h.optimizer.GetDailyRoute(c.Request.Context(), providerID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Navigation handles GET /api/v1/providers/:id/routes/:date/navigation.
func (h *ProviderHandler) Navigation(c *gin.Context) {
	providerID, ok := uuidParam(c, "id")
	if !ok || !authorizeProvider(c, providerID) {
		return
	}
	date, ok := dateParam(c, "date")
	if !ok {
		return
	}

	result, err := h.optimizer.ExportNavigationURL(c.Request.Context(), providerID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// FilterSlots handles POST /api/v1/providers/:id/schedule/filter-slots. Customers
// use it while picking a slot, so it is open to any authenticated caller.
func (h *ProviderHandler) FilterSlots(c *gin.Context) {
	providerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req application.FilterSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.scheduler.FilterSlotsByTravel(c.Request.Context(), providerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Schedule handles GET /api/v1/providers/:id/schedule/:date.
func (h *ProviderHandler) Schedule(c *gin.Context) {
	providerID, ok := uuidParam(c, "id")
	if !ok || !authorizeProvider(c, providerID) {
		return
	}
	date, ok := dateParam(c, "date")
	if !ok {
		return
	}

	result, err := h.scheduler.CalculateScheduleWithTravel(c.Request.Context(), providerID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ValidateSchedule handles GET /api/v1/providers/:id/schedule/:date/validate.
func (h *ProviderHandler) ValidateSchedule(c *gin.Context) {
	providerID, ok := uuidParam(c, "id")
	if !ok || !authorizeProvider(c, providerID) {
		return
	}
	date, ok := dateParam(c, "date")
	if !ok {
		return
	}

	result, err := h.scheduler.ValidateScheduleFeasibility(c.Request.Context(), providerID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
