package dispatch

import (
	"context"

	"ridelink/models"
	"ridelink/services/geo"
	"ridelink/services/matching"
	"ridelink/utils"
)

// GeoZoneContextResolver derives the dispatch zone context from the zone
// catalogue.
type GeoZoneContextResolver struct {
	Resolver geo.ZoneResolver
}

func NewZoneContextResolver(resolver geo.ZoneResolver) *GeoZoneContextResolver {
	return &GeoZoneContextResolver{Resolver: resolver}
}

// ZoneContextFor resolves the pickup zone. Inter-regional status comes from
// the booking itself, stamped at creation; an unzoned pickup leaves the zone
// filter off.
func (r *GeoZoneContextResolver) ZoneContextFor(ctx context.Context, b *models.Booking) (matching.ZoneContext, error) {
	zone, err := r.Resolver.ResolveZone(ctx, b.Pickup)
	if err != nil {
		return matching.ZoneContext{}, utils.UpstreamError("zone resolution failed: %v", err)
	}
	zc := matching.ZoneContext{InterRegional: b.InterRegional()}
	if zone != nil {
		zc.PickupZoneID = zone.ID
	}
	return zc, nil
}
