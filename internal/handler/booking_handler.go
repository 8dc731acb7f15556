package handler

import (
	"github.com/Kilat-Pet-Delivery/service-geo/internal/application"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/response"
	"github.com/gin-gonic/gin"
)

// BookingHandler handles booking-scoped location requests: check-ins and ETA.
type BookingHandler struct {
	tracker *application.LocationTracker
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(tracker *application.LocationTracker) *BookingHandler {
	return &BookingHandler{tracker: tracker}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.POST("/:id/checkins", middleware.RequireRole(auth.RoleProvider), h.RecordCheckin)
		bookings.GET("/:id/checkins", h.CheckinHistory)
		bookings.GET("/:id/eta", h.ETA)
	}
}

// RecordCheckin handles POST /api/v1/bookings/:id/checkins.
func (h *BookingHandler) RecordCheckin(c *gin.Context) {
	bookingID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	providerID, ok := currentUser(c)
	if !ok {
		return
	}

	var req application.RecordCheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.tracker.RecordCheckin(c.Request.Context(), bookingID, providerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// CheckinHistory handles GET /api/v1/bookings/:id/checkins.
func (h *BookingHandler) CheckinHistory(c *gin.Context) {
	bookingID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.tracker.CheckinHistory(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ETA handles GET /api/v1/bookings/:id/eta. Without provider_id the booking's
// assigned provider is used.
func (h *BookingHandler) ETA(c *gin.Context) {
	bookingID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	providerID, ok := optionalUUIDQuery(c, "provider_id")
	if !ok {
		return
	}

	var (
		result *application.ETADTO
		err    error
	)
	if providerID != nil {
		result, err = h.tracker.ETA(c.Request.Context(), *providerID, bookingID)
	} else {
		result, err = h.tracker.BookingETA(c.Request.Context(), bookingID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
