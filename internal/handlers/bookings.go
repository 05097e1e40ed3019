package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"slotline/internal/models"
)

// Bookings handlers

// CreateBooking - POST /api/bookings
func (h *Handlers) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.services.Bookings.Create(c.Request.Context(), &req, c.GetHeader("Authorization"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// ListBookings - GET /api/bookings
func (h *Handlers) ListBookings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	role := c.Query("role")
	status := c.Query("status")

	if role != "" && role != "client" && role != "worker" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be client or worker"})
		return
	}

	query := models.ListQuery{Limit: limit, Offset: offset, Role: role, Status: status}
	result, err := h.services.Bookings.List(c.Request.Context(), actor(c).ID, query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBooking - GET /api/bookings/:bookingId
func (h *Handlers) GetBooking(c *gin.Context) {
	booking, err := h.services.Bookings.Get(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// UpdateBookingStatus - PATCH /api/bookings/:bookingId/status
func (h *Handlers) UpdateBookingStatus(c *gin.Context) {
	var req models.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Bookings.UpdateStatus(c.Request.Context(), c.Param("bookingId"), &req, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListBookingEvents - GET /api/bookings/:bookingId/events
func (h *Handlers) ListBookingEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	events, err := h.services.Bookings.ListEvents(c.Request.Context(), c.Param("bookingId"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	if events == nil {
		events = []models.BookingEvent{}
	}
	c.JSON(http.StatusOK, events)
}

// ValidateBooking - POST /api/bookings/validate
func (h *Handlers) ValidateBooking(c *gin.Context) {
	var req models.ValidateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Bookings.ValidateAvailability(c.Request.Context(), &req, c.GetHeader("Authorization"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
