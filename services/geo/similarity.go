package geo

import (
	"math"

	"ridelink/models"
)

// Similarity weights. Proximity of the two pickups matters as much as the
// dropoffs; direction and trip length are secondary signals.
const (
	pickupWeight  = 0.30
	dropoffWeight = 0.30
	bearingWeight = 0.25
	lengthWeight  = 0.15

	maxPickupGapM  = 2000.0
	maxDropoffGapM = 3000.0
	maxBearingDiff = 45.0
)

// Route is a pickup/dropoff pair being compared for pooling.
type Route struct {
	Pickup  models.GeoPoint
	Dropoff models.GeoPoint
}

// RouteSimilarity scores how closely two routes represent the same trip,
// in [0, 1]. Identical routes score 1; a reversed route scores near 0 on
// the bearing signal.
func RouteSimilarity(a, b Route) float64 {
	pickupGapM := HaversineKm(a.Pickup, b.Pickup) * 1000
	dropoffGapM := HaversineKm(a.Dropoff, b.Dropoff) * 1000

	pickupScore := linearFalloff(pickupGapM, maxPickupGapM)
	dropoffScore := linearFalloff(dropoffGapM, maxDropoffGapM)

	bearingGap := BearingDiffDeg(BearingDeg(a.Pickup, a.Dropoff), BearingDeg(b.Pickup, b.Dropoff))
	bearingScore := linearFalloff(bearingGap, maxBearingDiff)

	lenA := HaversineKm(a.Pickup, a.Dropoff)
	lenB := HaversineKm(b.Pickup, b.Dropoff)
	lengthScore := lengthRatioScore(lenA, lenB)

	return pickupWeight*pickupScore +
		dropoffWeight*dropoffScore +
		bearingWeight*bearingScore +
		lengthWeight*lengthScore
}

// linearFalloff maps 0 → 1 and limit (or beyond) → 0.
func linearFalloff(value, limit float64) float64 {
	if value >= limit {
		return 0
	}
	return 1 - value/limit
}

// lengthRatioScore is the shorter/longer ratio doubled and capped at 1, so
// routes within 2x of each other's length score full marks at ratio 0.5+.
func lengthRatioScore(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 1
	}
	if a == 0 || b == 0 {
		return 0
	}
	ratio := math.Min(a, b) / math.Max(a, b)
	return math.Min(ratio*2, 1)
}
