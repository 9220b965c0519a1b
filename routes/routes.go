package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ridelink/handlers"
	"ridelink/middleware"
	"ridelink/models"
)

// RegisterBookingRoutes sets up the booking lifecycle endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	api.Use(middleware.ActorMiddleware())
	{
		api.POST("", hb.CreateBooking)
		api.GET("", hb.ListBookings)
		api.GET("/:id", hb.GetBooking)
		api.POST("/:id/cancel", hb.CancelBooking)
		api.GET("/:id/tracking", hb.BookingTracking)
		api.GET("/:id/offers", hb.ListOffers)

		// Trip progression is provider-only.
		trip := api.Group("")
		trip.Use(middleware.RequireRole(models.RoleProvider))
		trip.POST("/:id/arrive", hb.MarkArrived)
		trip.POST("/:id/start", hb.StartTrip)
		trip.POST("/:id/complete", hb.CompleteTrip)

		// Shared-ride pooling is driven by the booking's customer.
		pool := api.Group("")
		pool.Use(middleware.RequireRole(models.RoleCustomer, models.RoleSystem))
		pool.GET("/:id/groups", hb.FindGroups)
		pool.POST("/:id/groups", hb.CreateGroup)
		pool.POST("/:id/groups/:groupID/join", hb.JoinGroup)
	}
}

// RegisterOfferRoutes sets up dispatch offer endpoints for providers.
func RegisterOfferRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/offers")
	api.Use(middleware.ActorMiddleware(), middleware.RequireRole(models.RoleProvider))
	{
		api.POST("/:id/accept", hb.AcceptOffer)
		api.POST("/:id/reject", hb.RejectOffer)
	}
}

// RegisterProviderRoutes sets up provider-facing endpoints.
func RegisterProviderRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/providers")
	api.Use(middleware.ActorMiddleware(), middleware.RequireRole(models.RoleProvider))
	{
		api.POST("/location", hb.ProviderPing)
		api.GET("/earnings", hb.ProviderEarnings)
	}
}

// RegisterZoneRoutes sets up the zone lookup endpoints.
func RegisterZoneRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/zones")
	api.Use(middleware.ActorMiddleware())
	{
		api.GET("/resolve", hb.ResolveZone)
		api.GET("/inter-regional", hb.CheckInterRegional)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Actor-ID", "X-Actor-Role"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())

	RegisterHealthRoute(r)
	RegisterBookingRoutes(r, hb)
	RegisterOfferRoutes(r, hb)
	RegisterProviderRoutes(r, hb)
	RegisterZoneRoutes(r, hb)
}
