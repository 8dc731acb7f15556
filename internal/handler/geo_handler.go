package handler

import (
	"strconv"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/application"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/maps"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/response"
	"github.com/gin-gonic/gin"
)

// GeoHandler handles distance, travel-time and travel-fee requests.
type GeoHandler struct {
	calculator application.DistanceCalculator
	pricing    *application.PricingService
}

// NewGeoHandler creates a new GeoHandler.
func NewGeoHandler(calculator application.DistanceCalculator, pricing *application.PricingService) *GeoHandler {
	return &GeoHandler{calculator: calculator, pricing: pricing}
}

type distanceRequest struct {
	From maps.Place `json:"from"`
	To   maps.Place `json:"to"`
}

type multiDistanceRequest struct {
	Places []maps.Place `json:"places" binding:"required"`
}

// RegisterRoutes registers geo and pricing routes.
func (h *GeoHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	geo := r.Group("/api/v1/geo")
	geo.Use(authMW)
	{
		geo.POST("/distance", h.Distance)
		geo.POST("/distance/multi", h.MultiDistance)
		geo.GET("/travel-time/buffered", h.BufferedTravelTime)
	}

	pricing := r.Group("/api/v1/pricing")
	pricing.Use(authMW)
	{
		pricing.POST("/travel-fee", h.TravelFee)
	}
}

// Distance handles POST /api/v1/geo/distance.
func (h *GeoHandler) Distance(c *gin.Context) {
	var req distanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.calculator.Distance(c.Request.Context(), req.From, req.To)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// MultiDistance handles POST /api/v1/geo/distance/multi.
func (h *GeoHandler) MultiDistance(c *gin.Context) {
	var req multiDistanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.calculator.MultiPoint(c.Request.Context(), req.Places)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// BufferedTravelTime handles GET /api/v1/geo/travel-time/buffered?minutes=N.
func (h *GeoHandler) BufferedTravelTime(c *gin.Context) {
	base, err := strconv.Atoi(c.Query("minutes"))
	if err != nil {
		response.BadRequest(c, "minutes must be an integer")
		return
	}

	buffered := h.calculator.BufferedTravelTime(base)
	response.Success(c, gin.H{
		"base_minutes":     base,
		"buffered_minutes": buffered,
		"text":             h.calculator.FormatDuration(buffered),
	})
}

// TravelFee handles POST /api/v1/pricing/travel-fee.
func (h *GeoHandler) TravelFee(c *gin.Context) {
	var req application.TravelFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.pricing.Breakdown(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
