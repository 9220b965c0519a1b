package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridelink/middleware"
	"ridelink/utils"
)

// ListOffers handles GET /api/bookings/:id/offers.
func (hb *HandlerBundle) ListOffers(c *gin.Context) {
	offers, err := hb.Dispatcher.OffersForBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

// AcceptOffer handles POST /api/offers/:id/accept.
func (hb *HandlerBundle) AcceptOffer(c *gin.Context) {
	actorID, _ := middleware.Actor(c)
	b, err := hb.Dispatcher.Accept(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// RejectOffer handles POST /api/offers/:id/reject.
func (hb *HandlerBundle) RejectOffer(c *gin.Context) {
	actorID, _ := middleware.Actor(c)

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	if err := hb.Dispatcher.Reject(c.Request.Context(), c.Param("id"), actorID, req.Reason); err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}
