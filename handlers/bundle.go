package handlers

import (
	"ridelink/services/booking"
	"ridelink/services/dispatch"
	"ridelink/services/geo"
	"ridelink/services/provider"
)

// HandlerBundle aggregates the services the HTTP layer fronts. Wired once in
// main and passed to route registration.
type HandlerBundle struct {
	Lifecycle  booking.LifecycleService
	Pool       booking.SharedRidePool
	Dispatcher dispatch.DispatchService
	Zones      geo.ZoneResolver
	Location   provider.LocationService
}
