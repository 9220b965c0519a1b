package geo

import (
	"context"
	"math"
	"sort"

	"ridelink/config"
	"ridelink/database/repository"
	"ridelink/models"
)

// ZoneResolver maps coordinates to service zones and answers inter-regional
// eligibility questions.
type ZoneResolver interface {
	ResolveZone(ctx context.Context, p models.GeoPoint) (*models.ServiceZone, error)
	ZoneChanged(prev, cur models.GeoPoint) bool
	CanCreateInterRegional(ctx context.Context, pickup, dropoff models.GeoPoint) (*models.InterRegionalEligibility, error)
}

// DefaultZoneResolver implements ZoneResolver over the zone catalogue.
type DefaultZoneResolver struct {
	ZoneRepo repository.ZoneRepository
}

func NewZoneResolver(zones repository.ZoneRepository) *DefaultZoneResolver {
	return &DefaultZoneResolver{ZoneRepo: zones}
}

// ResolveZone returns the active zone whose center is within its radius of
// the point, preferring the highest-priority zone on overlap. Nil means the
// point is unzoned and the operation proceeds unrestricted.
func (r *DefaultZoneResolver) ResolveZone(ctx context.Context, p models.GeoPoint) (*models.ServiceZone, error) {
	zones, err := r.ZoneRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	var hits []models.ServiceZone
	for _, z := range zones {
		if HaversineKm(z.Center, p) <= z.RadiusKm {
			hits = append(hits, z)
		}
	}
	if len(hits) == 0 {
		return nil, nil
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Priority != hits[j].Priority {
			return hits[i].Priority > hits[j].Priority
		}
		return hits[i].ID < hits[j].ID
	})
	zone := hits[0]
	return &zone, nil
}

// ZoneChanged is a coarse movement check: either coordinate delta past the
// configured threshold (default 0.1°, roughly 11 km). Deliberately cheap so
// location pings avoid a zone lookup; a real re-resolution only happens when
// this trips.
func (r *DefaultZoneResolver) ZoneChanged(prev, cur models.GeoPoint) bool {
	threshold := config.AppConfig.ZoneChangeThresholdDeg
	if threshold == 0 {
		threshold = 0.1
	}
	return math.Abs(cur.Lat-prev.Lat) > threshold || math.Abs(cur.Lng-prev.Lng) > threshold
}

// CanCreateInterRegional allows a cross-zone booking when pickup and dropoff
// resolve to two different active zones joined by a configured corridor.
func (r *DefaultZoneResolver) CanCreateInterRegional(ctx context.Context, pickup, dropoff models.GeoPoint) (*models.InterRegionalEligibility, error) {
	origin, err := r.ResolveZone(ctx, pickup)
	if err != nil {
		return nil, err
	}
	dest, err := r.ResolveZone(ctx, dropoff)
	if err != nil {
		return nil, err
	}
	if origin == nil || dest == nil {
		return &models.InterRegionalEligibility{Allowed: false, Reason: "pickup or dropoff outside any service zone"}, nil
	}
	if origin.ID == dest.ID {
		return &models.InterRegionalEligibility{
			Allowed:    false,
			OriginZone: origin,
			Reason:     "pickup and dropoff resolve to the same zone",
		}, nil
	}
	route, err := r.ZoneRepo.FindRoute(ctx, origin.ID, dest.ID)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return &models.InterRegionalEligibility{
			Allowed:         false,
			OriginZone:      origin,
			DestinationZone: dest,
			Reason:          "no inter-regional route configured between zones",
		}, nil
	}
	return &models.InterRegionalEligibility{
		Allowed:          true,
		OriginZone:       origin,
		DestinationZone:  dest,
		Fee:              route.Fee,
		ApprovalRequired: route.ApprovalRequired,
	}, nil
}
