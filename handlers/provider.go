package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridelink/middleware"
	"ridelink/services/provider"
	"ridelink/utils"
)

// ProviderPing handles POST /api/providers/location.
func (hb *HandlerBundle) ProviderPing(c *gin.Context) {
	actorID, _ := middleware.Actor(c)

	var ping provider.Ping
	if err := c.ShouldBindJSON(&ping); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	if err := hb.Location.RecordPing(c.Request.Context(), actorID, ping); err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// ProviderEarnings handles GET /api/providers/earnings?bucket=2026-W36.
func (hb *HandlerBundle) ProviderEarnings(c *gin.Context) {
	actorID, _ := middleware.Actor(c)
	records, err := hb.Location.Earnings(c.Request.Context(), actorID, c.Query("bucket"))
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"earnings": records})
}
