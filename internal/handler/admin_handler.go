package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/application"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/servicearea"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/response"
)

// AdminServiceAreaHandler handles admin HTTP requests for service area management.
type AdminServiceAreaHandler struct {
	manager *application.ServiceAreaManager
}

// NewAdminServiceAreaHandler creates a new AdminServiceAreaHandler.
func NewAdminServiceAreaHandler(manager *application.ServiceAreaManager) *AdminServiceAreaHandler {
	return &AdminServiceAreaHandler{manager: manager}
}

// RegisterRoutes registers admin service area routes.
func (h *AdminServiceAreaHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin/service-areas")
	admin.Use(authMW, adminRole)
	{
		admin.GET("", h.ListAreas)
		admin.POST("", h.SaveArea)
		admin.GET("/:id", h.GetArea)
		admin.PUT("/:id", h.UpdateArea)
		admin.DELETE("/:id", h.DeleteArea)
	}
}

// ListAreas handles GET /api/v1/admin/service-areas.
func (h *AdminServiceAreaHandler) ListAreas(c *gin.Context) {
	page, limit := parsePagination(c)
	filter := servicearea.ListFilter{Page: page, Limit: limit}

	if s := c.Query("status"); s != "" {
		status := servicearea.Status(s)
		filter.Status = &status
	}
	serviceID, ok := optionalUUIDQuery(c, "service_id")
	if !ok {
		return
	}
	filter.ServiceID = serviceID

	result, err := h.manager.ListAreas(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// SaveArea handles POST /api/v1/admin/service-areas. A body carrying an id updates that area.
func (h *AdminServiceAreaHandler) SaveArea(c *gin.Context) {
	var req application.SaveAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.manager.SaveArea(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if req.ID != nil {
		response.Success(c, result)
		return
	}
	response.Created(c, result)
}

// GetArea handles GET /api/v1/admin/service-areas/:id.
func (h *AdminServiceAreaHandler) GetArea(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.manager.GetArea(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateArea handles PUT /api/v1/admin/service-areas/:id.
func (h *AdminServiceAreaHandler) UpdateArea(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req application.SaveAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.ID = &id

	result, err := h.manager.SaveArea(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteArea handles DELETE /api/v1/admin/service-areas/:id.
func (h *AdminServiceAreaHandler) DeleteArea(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.manager.DeleteArea(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}
