package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridelink/database/repository"
	"ridelink/middleware"
	"ridelink/models"
	"ridelink/services/booking"
	"ridelink/utils"
)

// CreateBooking handles POST /api/bookings.
func (hb *HandlerBundle) CreateBooking(c *gin.Context) {
	actorID, role := middleware.Actor(c)
	if role != models.RoleCustomer {
		utils.JSONError(c, http.StatusForbidden, "only customers create bookings", "")
		return
	}

	var req booking.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	b, err := hb.Lifecycle.Create(c.Request.Context(), actorID, req)
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GetBooking handles GET /api/bookings/:id.
func (hb *HandlerBundle) GetBooking(c *gin.Context) {
	b, err := hb.Lifecycle.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}

	actorID, role := middleware.Actor(c)
	visible := role == models.RoleSystem ||
		(role == models.RoleCustomer && b.CustomerID == actorID) ||
		(role == models.RoleProvider && b.ProviderID != nil && *b.ProviderID == actorID)
	if !visible {
		utils.JSONError(c, http.StatusForbidden, "booking belongs to another actor", "")
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListBookings handles GET /api/bookings, scoped to the calling actor.
func (hb *HandlerBundle) ListBookings(c *gin.Context) {
	actorID, role := middleware.Actor(c)

	f := repository.BookingListFilter{
		Status: models.BookingStatus(c.Query("status")),
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			f.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			f.To = &t
		}
	}

	out, err := hb.Lifecycle.List(c.Request.Context(), actorID, role, f)
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

// MarkArrived handles POST /api/bookings/:id/arrive.
func (hb *HandlerBundle) MarkArrived(c *gin.Context) {
	actorID, _ := middleware.Actor(c)
	b, err := hb.Lifecycle.MarkArrived(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// StartTrip handles POST /api/bookings/:id/start.
func (hb *HandlerBundle) StartTrip(c *gin.Context) {
	actorID, _ := middleware.Actor(c)
	b, err := hb.Lifecycle.Start(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CompleteTrip handles POST /api/bookings/:id/complete.
func (hb *HandlerBundle) CompleteTrip(c *gin.Context) {
	actorID, _ := middleware.Actor(c)

	var actuals models.CompletionActuals
	if err := c.ShouldBindJSON(&actuals); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	b, err := hb.Lifecycle.Complete(c.Request.Context(), c.Param("id"), actorID, actuals)
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CancelBooking handles POST /api/bookings/:id/cancel.
func (hb *HandlerBundle) CancelBooking(c *gin.Context) {
	actorID, role := middleware.Actor(c)

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	b, err := hb.Lifecycle.Cancel(c.Request.Context(), c.Param("id"), actorID, role, req.Reason)
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// BookingTracking handles GET /api/bookings/:id/tracking.
func (hb *HandlerBundle) BookingTracking(c *gin.Context) {
	actorID, role := middleware.Actor(c)
	events, err := hb.Lifecycle.Tracking(c.Request.Context(), c.Param("id"), actorID, role)
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
