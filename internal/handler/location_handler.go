package handler

import (
	"github.com/Kilat-Pet-Delivery/service-geo/internal/application"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LocationHandler registers customer and provider addresses.
type LocationHandler struct {
	tracker *application.LocationTracker
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(tracker *application.LocationTracker) *LocationHandler {
	return &LocationHandler{tracker: tracker}
}

// RegisterRoutes registers location routes.
func (h *LocationHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	locations := r.Group("/api/v1/locations")
	locations.Use(middleware.AuthMiddleware(jwtManager))
	{
		locations.POST("", h.SaveLocation)
	}
}

// SaveLocation handles POST /api/v1/locations. Only admins may save a location
// owned by someone else.
func (h *LocationHandler) SaveLocation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req application.SaveLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	role, _ := middleware.GetUserRole(c)
	if role != auth.RoleAdmin || req.OwnerID == uuid.Nil {
		req.OwnerID = userID
	}

	result, err := h.tracker.SaveLocation(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}
