package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"ridelink/config"
	"ridelink/cron"
	"ridelink/database"
	"ridelink/database/repository"
	"ridelink/handlers"
	"ridelink/routes"
	"ridelink/services/booking"
	"ridelink/services/dispatch"
	"ridelink/services/geo"
	"ridelink/services/matching"
	"ridelink/services/notification"
	"ridelink/services/provider"
	"ridelink/services/realtime"
	"ridelink/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitOfferCache()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// repositories.
	bookingRepo := repository.NewMongoBookingRepo()
	providerRepo := repository.NewMongoProviderRepo()
	zoneRepo := repository.NewMongoZoneRepo()
	groupRepo := repository.NewMongoGroupRepo()
	earningsRepo := repository.NewMongoEarningsRepo()
	trackingRepo := repository.NewMongoTrackingRepo()
	offerRepo := repository.NewRedisOfferRepo(utils.GetOfferClient())

	// services.
	zoneResolver := geo.NewZoneResolver(zoneRepo)
	matcher := matching.NewMatchingService(providerRepo)
	notifier := notification.NewFCMNotifier(providerRepo)
	broadcaster := realtime.NewRedisBroadcaster(utils.GetCacheClient())
	dispatchQueue := cron.NewDispatchQueue()

	lifecycle := &booking.DefaultLifecycleService{
		Bookings:  bookingRepo,
		Providers: providerRepo,
		Earnings:  earningsRepo,
		TrackRepo: trackingRepo,
		Resolver:  zoneResolver,
		Pricing:   booking.NewLocalPricingEngine(config.AppConfig.AvgCitySpeedKmh),
		Notifier:  notifier,
		Broadcast: broadcaster,
		Dispatch:  dispatchQueue,
	}

	pool := booking.NewSharedRidePool(bookingRepo, groupRepo, utils.NewRedisLocker(utils.GetCacheClient()))
	lifecycle.Pool = pool

	dispatcher := &dispatch.DefaultDispatchService{
		Bookings:  bookingRepo,
		Offers:    offerRepo,
		Matcher:   matcher,
		Lifecycle: lifecycle,
		Resolver:  dispatch.NewZoneContextResolver(zoneResolver),
		Notifier:  notifier,
	}

	locationService := &provider.DefaultLocationService{
		Providers: providerRepo,
		Bookings:  bookingRepo,
		Tracking:  trackingRepo,
		Earn:      earningsRepo,
		Resolver:  zoneResolver,
		Broadcast: broadcaster,
	}

	// Background dispatch worker and re-dispatch sweep.
	cron.InitDispatchWorker(dispatcher, bookingRepo, dispatchQueue)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		Lifecycle:  lifecycle,
		Pool:       pool,
		Dispatcher: dispatcher,
		Zones:      zoneResolver,
		Location:   locationService,
	}

	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}
	if err := dispatchQueue.Close(); err != nil {
		logger.Sugar().Warnf("main: failed to close dispatch queue: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
