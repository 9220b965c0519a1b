package booking

import (
	"context"
	"math"
	"time"

	"ridelink/models"
	"ridelink/services/geo"
)

// Quote is the pricing oracle's answer for a prospective trip.
type Quote struct {
	Price           float64 `json:"price"`
	DistanceKm      float64 `json:"distance_km"`
	DurationMin     float64 `json:"duration_min"`
	SurgeMultiplier float64 `json:"surge_multiplier"`
}

// PricingOracle estimates a price for a trip. The production deployment may
// point this at the remote pricing service; an unreachable oracle fails
// booking creation outright.
type PricingOracle interface {
	Estimate(ctx context.Context, pickup, dropoff models.GeoPoint, kind models.ServiceKind, scheduledAt *time.Time) (Quote, error)
}

// kindRates is the local fare table: base + per-km + per-minute, with a
// minimum fare floor.
type kindRates struct {
	Base        float64
	PerKm       float64
	PerMin      float64
	MinimumFare float64
}

var rateTable = map[models.ServiceKind]kindRates{
	models.KindRide:        {Base: 5, PerKm: 2.2, PerMin: 0.4, MinimumFare: 10},
	models.KindTaxi:        {Base: 6, PerKm: 2.5, PerMin: 0.5, MinimumFare: 12},
	models.KindDelivery:    {Base: 8, PerKm: 2.0, PerMin: 0.3, MinimumFare: 15},
	models.KindSharedRide:  {Base: 4, PerKm: 1.6, PerMin: 0.3, MinimumFare: 8},
	models.KindDayBooking:  {Base: 150, PerKm: 0, PerMin: 0, MinimumFare: 150},
	models.KindHouseMoving: {Base: 80, PerKm: 3.5, PerMin: 0, MinimumFare: 120},
}

// LocalPricingEngine is the default PricingOracle: a straight-line fare
// formula over the configured rate table. Duration is estimated at city
// average speed.
type LocalPricingEngine struct {
	AvgSpeedKmh float64
	// Surge resolves the current multiplier for a pickup area. Nil means
	// no surge (1.0).
	Surge func(pickup models.GeoPoint, at time.Time) float64
}

func NewLocalPricingEngine(avgSpeedKmh float64) *LocalPricingEngine {
	return &LocalPricingEngine{AvgSpeedKmh: avgSpeedKmh}
}

func (e *LocalPricingEngine) Estimate(ctx context.Context, pickup, dropoff models.GeoPoint, kind models.ServiceKind, scheduledAt *time.Time) (Quote, error) {
	rates, ok := rateTable[kind]
	if !ok {
		rates = rateTable[models.KindRide]
	}

	distanceKm := geo.HaversineKm(pickup, dropoff)
	durationMin := geo.EtaMinutes(pickup, dropoff, e.AvgSpeedKmh)

	at := time.Now()
	if scheduledAt != nil {
		at = *scheduledAt
	}
	surge := 1.0
	if e.Surge != nil {
		if m := e.Surge(pickup, at); m > 1 {
			surge = m
		}
	}

	price := (rates.Base + distanceKm*rates.PerKm + durationMin*rates.PerMin) * surge
	if price < rates.MinimumFare {
		price = rates.MinimumFare
	}

	return Quote{
		Price:           math.Round(price*100) / 100,
		DistanceKm:      math.Round(distanceKm*100) / 100,
		DurationMin:     math.Round(durationMin*100) / 100,
		SurgeMultiplier: surge,
	}, nil
}
