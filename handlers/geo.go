package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridelink/models"
	"ridelink/utils"
)

func parsePoint(c *gin.Context, latKey, lngKey string) (models.GeoPoint, bool) {
	lat, errLat := strconv.ParseFloat(c.Query(latKey), 64)
	lng, errLng := strconv.ParseFloat(c.Query(lngKey), 64)
	if errLat != nil || errLng != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid coordinates", latKey+"/"+lngKey+" must be decimal degrees")
		return models.GeoPoint{}, false
	}
	return models.GeoPoint{Lat: lat, Lng: lng}, true
}

// ResolveZone handles GET /api/zones/resolve?lat=..&lng=..
func (hb *HandlerBundle) ResolveZone(c *gin.Context) {
	p, ok := parsePoint(c, "lat", "lng")
	if !ok {
		return
	}
	zone, err := hb.Zones.ResolveZone(c.Request.Context(), p)
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	if zone == nil {
		c.JSON(http.StatusOK, gin.H{"zone": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"zone": zone})
}

// CheckInterRegional handles GET /api/zones/inter-regional, answering whether
// a pickup/dropoff pair may book a cross-zone trip and at what surcharge.
func (hb *HandlerBundle) CheckInterRegional(c *gin.Context) {
	pickup, ok := parsePoint(c, "pickup_lat", "pickup_lng")
	if !ok {
		return
	}
	dropoff, ok := parsePoint(c, "dropoff_lat", "dropoff_lng")
	if !ok {
		return
	}
	elig, err := hb.Zones.CanCreateInterRegional(c.Request.Context(), pickup, dropoff)
	if err != nil {
		utils.JSONServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, elig)
}
