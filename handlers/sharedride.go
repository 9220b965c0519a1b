package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridelink/utils"
)

// FindGroups handles GET /api/bookings/:id/groups, listing compatible open
// pools for a shared-ride booking.
func (hb *HandlerBundle) FindGroups(c *gin.Context) {
	matches, err := hb.Pool.FindCompatible(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": matches})
}

// JoinGroup handles POST /api/bookings/:id/groups/:groupID/join.
func (hb *HandlerBundle) JoinGroup(c *gin.Context) {
	g, err := hb.Pool.Join(c.Request.Context(), c.Param("id"), c.Param("groupID"))
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// CreateGroup handles POST /api/bookings/:id/groups.
func (hb *HandlerBundle) CreateGroup(c *gin.Context) {
	g, err := hb.Pool.CreateGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}
