package handler

import (
	"strconv"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}

// uuidParam parses a path parameter, writing a 400 on failure.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// dateParam parses a YYYY-MM-DD path parameter, writing a 400 on failure.
func dateParam(c *gin.Context, name string) (time.Time, bool) {
	d, err := route.ParseDate(c.Param(name))
	if err != nil {
		response.Error(c, err)
		return time.Time{}, false
	}
	return d, true
}

// floatQuery parses a required numeric query parameter.
func floatQuery(c *gin.Context, name string) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		response.BadRequest(c, name+" is required")
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

// optionalUUIDQuery parses an optional UUID query parameter.
func optionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return nil, false
	}
	return &id, true
}

// currentUser returns the authenticated user ID, writing a 401 when absent.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

// authorizeProvider lets admins act on any provider and providers only on themselves.
func authorizeProvider(c *gin.Context, providerID uuid.UUID) bool {
	userID, ok := currentUser(c)
	if !ok {
		return false
	}
	role, _ := middleware.GetUserRole(c)
	if role == auth.RoleAdmin || userID == providerID {
		return true
	}
	response.Forbidden(c, "cannot access another provider's data")
	return false
}
