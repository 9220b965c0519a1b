package matching

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"ridelink/config"
	"ridelink/database/repository"
	"ridelink/models"
	"ridelink/services/geo"
	"ridelink/utils"
)

// ZoneContext is the resolved zone situation of a booking being dispatched.
type ZoneContext struct {
	PickupZoneID  string // empty when the pickup is unzoned (no restriction)
	InterRegional bool
}

// Candidate is one ranked provider for a booking offer.
type Candidate struct {
	Provider   models.Provider `json:"provider"`
	DistanceKm float64         `json:"distance_km"`
	EtaMin     float64         `json:"eta_min"`
	Rank       int             `json:"rank"`
}

// MatchingService finds and ranks eligible providers near a pickup point.
type MatchingService interface {
	FindCandidates(ctx context.Context, pickup models.GeoPoint, kind models.ServiceKind, zoneCtx ZoneContext) ([]Candidate, error)
}

// DefaultMatchingService implements MatchingService. It is a pure read+rank
// over current provider snapshots; freshness is bounded by the provider
// location ping interval and that staleness is accepted.
type DefaultMatchingService struct {
	ProviderRepo repository.ProviderRepository
}

func NewMatchingService(providers repository.ProviderRepository) *DefaultMatchingService {
	return &DefaultMatchingService{ProviderRepo: providers}
}

// FindCandidates scans online-and-available providers of the service kind,
// filters on zone authorization and inter-regional eligibility, and returns
// the closest N sorted by ascending distance. Ties break by rating
// descending, then provider id for determinism.
func (s *DefaultMatchingService) FindCandidates(ctx context.Context, pickup models.GeoPoint, kind models.ServiceKind, zoneCtx ZoneContext) ([]Candidate, error) {
	providers, err := s.ProviderRepo.FindAvailable(ctx, kind)
	if err != nil {
		return nil, utils.UpstreamError("provider search failed: %v", err)
	}

	eligible := providers[:0:0]
	for _, p := range providers {
		if !p.ServesKind(kind) {
			continue
		}
		if zoneCtx.PickupZoneID != "" && !p.CoversZone(zoneCtx.PickupZoneID) {
			continue
		}
		if zoneCtx.InterRegional && !p.InterRegional {
			continue
		}
		eligible = append(eligible, p)
	}
	if len(eligible) == 0 {
		zap.L().Info("no eligible providers", zap.String("kind", string(kind)), zap.String("zone", zoneCtx.PickupZoneID))
		return []Candidate{}, nil
	}

	maxDistance := float64(config.AppConfig.MaxDispatchDistanceKm)
	if maxDistance == 0 {
		maxDistance = 10
	}
	avgSpeed := config.AppConfig.AvgCitySpeedKmh

	resultsCh := make(chan Candidate, len(eligible))
	var wg sync.WaitGroup
	for _, p := range eligible {
		wg.Add(1)
		go func(p models.Provider) {
			defer wg.Done()
			d := geo.HaversineKm(p.LastLocation, pickup)
			if d > maxDistance {
				return
			}
			resultsCh <- Candidate{
				Provider:   p,
				DistanceKm: d,
				EtaMin:     geo.EtaMinutes(p.LastLocation, pickup, avgSpeed),
			}
		}(p)
	}
	wg.Wait()
	close(resultsCh)

	var candidates []Candidate
	for c := range resultsCh {
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceKm != candidates[j].DistanceKm {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		}
		if candidates[i].Provider.Rating != candidates[j].Provider.Rating {
			return candidates[i].Provider.Rating > candidates[j].Provider.Rating
		}
		return candidates[i].Provider.ID < candidates[j].Provider.ID
	})

	limit := candidateLimit(zoneCtx.InterRegional)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates, nil
}

// candidateLimit is 5 for standard dispatch and 3 for inter-regional, where
// fewer eligible providers are expected.
func candidateLimit(interRegional bool) int {
	if interRegional {
		if n := config.AppConfig.InterRegionalLimit; n > 0 {
			return n
		}
		return 3
	}
	if n := config.AppConfig.CandidateLimit; n > 0 {
		return n
	}
	return 5
}
