package handler

import (
	"github.com/Kilat-Pet-Delivery/service-geo/internal/application"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/response"
	"github.com/gin-gonic/gin"
)

// ServiceAreaHandler answers coverage questions for any authenticated caller.
type ServiceAreaHandler struct {
	manager *application.ServiceAreaManager
}

// NewServiceAreaHandler creates a new ServiceAreaHandler.
func NewServiceAreaHandler(manager *application.ServiceAreaManager) *ServiceAreaHandler {
	return &ServiceAreaHandler{manager: manager}
}

// RegisterRoutes registers service area lookup routes.
func (h *ServiceAreaHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	areas := r.Group("/api/v1/service-areas")
	areas.Use(middleware.AuthMiddleware(jwtManager))
	{
		areas.GET("/check", h.Check)
		areas.GET("/nearest", h.Nearest)
	}
}

// Check handles GET /api/v1/service-areas/check?lat=&lng=&service_id=&provider_id=.
func (h *ServiceAreaHandler) Check(c *gin.Context) {
	p, ok := pointQuery(c)
	if !ok {
		return
	}
	serviceID, ok := optionalUUIDQuery(c, "service_id")
	if !ok {
		return
	}
	providerID, ok := optionalUUIDQuery(c, "provider_id")
	if !ok {
		return
	}

	result, err := h.manager.Contains(c.Request.Context(), p, serviceID, providerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Nearest handles GET /api/v1/service-areas/nearest?lat=&lng=.
func (h *ServiceAreaHandler) Nearest(c *gin.Context) {
	p, ok := pointQuery(c)
	if !ok {
		return
	}

	result, err := h.manager.NearestArea(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

func pointQuery(c *gin.Context) (geo.Point, bool) {
	lat, ok := floatQuery(c, "lat")
	if !ok {
		return geo.Point{}, false
	}
	lng, ok := floatQuery(c, "lng")
	if !ok {
		return geo.Point{}, false
	}
	return geo.NewPoint(lat, lng), true
}
