package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridelink/models"
)

func TestLocalPricingEngine(t *testing.T) {
	engine := NewLocalPricingEngine(40)
	ctx := context.Background()

	pickup := models.GeoPoint{Lat: 5.6037, Lng: -0.1870}
	dropoff := models.GeoPoint{Lat: 5.6500, Lng: -0.1000}

	t.Run("ride fare grows with distance", func(t *testing.T) {
		short, err := engine.Estimate(ctx, pickup, models.GeoPoint{Lat: 5.62, Lng: -0.17}, models.KindRide, nil)
		require.NoError(t, err)
		long, err := engine.Estimate(ctx, pickup, dropoff, models.KindRide, nil)
		require.NoError(t, err)
		assert.Greater(t, long.Price, short.Price)
		assert.Greater(t, long.DistanceKm, short.DistanceKm)
		assert.Greater(t, long.DurationMin, 0.0)
	})

	t.Run("minimum fare floors short trips", func(t *testing.T) {
		nearby := models.GeoPoint{Lat: 5.6040, Lng: -0.1872}
		q, err := engine.Estimate(ctx, pickup, nearby, models.KindRide, nil)
		require.NoError(t, err)
		assert.Equal(t, 10.0, q.Price, "ride minimum fare")
	})

	t.Run("day booking is a flat rate", func(t *testing.T) {
		q, err := engine.Estimate(ctx, pickup, dropoff, models.KindDayBooking, nil)
		require.NoError(t, err)
		assert.Equal(t, 150.0, q.Price)
	})

	t.Run("surge multiplies the fare", func(t *testing.T) {
		surged := NewLocalPricingEngine(40)
		surged.Surge = func(p models.GeoPoint, at time.Time) float64 { return 1.5 }

		base, err := engine.Estimate(ctx, pickup, dropoff, models.KindRide, nil)
		require.NoError(t, err)
		q, err := surged.Estimate(ctx, pickup, dropoff, models.KindRide, nil)
		require.NoError(t, err)
		assert.InDelta(t, base.Price*1.5, q.Price, 0.02)
		assert.Equal(t, 1.5, q.SurgeMultiplier)
	})

	t.Run("sub-unit surge is ignored", func(t *testing.T) {
		discounted := NewLocalPricingEngine(40)
		discounted.Surge = func(p models.GeoPoint, at time.Time) float64 { return 0.5 }
		base, err := engine.Estimate(ctx, pickup, dropoff, models.KindRide, nil)
		require.NoError(t, err)
		q, err := discounted.Estimate(ctx, pickup, dropoff, models.KindRide, nil)
		require.NoError(t, err)
		assert.Equal(t, base.Price, q.Price)
		assert.Equal(t, 1.0, q.SurgeMultiplier)
	})

	t.Run("unknown kind falls back to ride rates", func(t *testing.T) {
		base, err := engine.Estimate(ctx, pickup, dropoff, models.KindRide, nil)
		require.NoError(t, err)
		q, err := engine.Estimate(ctx, pickup, dropoff, models.ServiceKind("mystery"), nil)
		require.NoError(t, err)
		assert.Equal(t, base.Price, q.Price)
	})
}
