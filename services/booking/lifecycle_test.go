package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridelink/config"
	"ridelink/database/repository"
	"ridelink/models"
	"ridelink/utils"
)

func newTestLifecycle(t *testing.T, providers ...models.Provider) (*DefaultLifecycleService, *memBookingRepo, *memProviderRepo, *recordingQueue) {
	t.Helper()
	config.AppConfig.CustomerCancelFeeRate = 0.10

	bookings := newMemBookingRepo()
	provRepo := newMemProviderRepo(providers...)
	queue := &recordingQueue{}
	svc := &DefaultLifecycleService{
		Bookings:  bookings,
		Providers: provRepo,
		Earnings:  &memEarningsRepo{},
		TrackRepo: &memTrackingRepo{},
		Resolver:  &staticResolver{},
		Pricing:   NewLocalPricingEngine(40),
		Dispatch:  queue,
	}
	return svc, bookings, provRepo, queue
}

func availableDriver(id string) models.Provider {
	return models.Provider{
		ID:           id,
		ServiceKinds: []models.ServiceKind{models.KindRide},
		Online:       true,
		Available:    true,
		LastLocation: models.GeoPoint{Lat: 5.60, Lng: -0.19},
	}
}

func rideRequest() CreateRequest {
	return CreateRequest{
		Kind:    models.KindRide,
		Pickup:  models.GeoPoint{Lat: 5.6037, Lng: -0.1870},
		Dropoff: models.GeoPoint{Lat: 5.6500, Lng: -0.1000},
	}
}

func TestCreateBooking(t *testing.T) {
	svc, _, _, queue := newTestLifecycle(t)

	b, err := svc.Create(context.Background(), "cust-1", rideRequest())
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, b.Status)
	assert.Equal(t, "cust-1", b.CustomerID)
	assert.Nil(t, b.ProviderID)
	assert.Greater(t, b.EstimatedPrice, 0.0)
	require.NotNil(t, b.ServiceData.Ride)
	assert.Greater(t, b.ServiceData.Ride.DistanceKm, 0.0)
	assert.Equal(t, []string{b.ID}, queue.enqueued, "immediate booking triggers dispatch")
}

func TestCreateBookingScheduled(t *testing.T) {
	svc, _, _, queue := newTestLifecycle(t)

	later := time.Now().Add(2 * time.Hour)
	req := rideRequest()
	req.ScheduledAt = &later

	b, err := svc.Create(context.Background(), "cust-1", req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, b.Status)
	assert.Empty(t, queue.enqueued, "scheduled bookings wait for the sweep")
}

func TestCreateBookingValidation(t *testing.T) {
	svc, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*CreateRequest)
		custID  string
	}{
		{"missing customer", func(r *CreateRequest) {}, ""},
		{"unknown kind", func(r *CreateRequest) { r.Kind = "jetski" }, "cust-1"},
		{"latitude out of range", func(r *CreateRequest) { r.Pickup.Lat = 123 }, "cust-1"},
		{"shared payload on plain ride", func(r *CreateRequest) {
			r.ServiceData.SharedRide = &models.SharedRideData{}
		}, "cust-1"},
		{"client-supplied inter-regional data", func(r *CreateRequest) {
			r.ServiceData.InterRegional = &models.InterRegionalData{}
		}, "cust-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := rideRequest()
			tt.mutate(&req)
			_, err := svc.Create(ctx, tt.custID, req)
			require.Error(t, err)
			assert.Equal(t, utils.ErrValidation, utils.KindOf(err))
		})
	}
}

func TestCreateInterRegionalBooking(t *testing.T) {
	svc, _, _, _ := newTestLifecycle(t)
	accra := &models.ServiceZone{ID: "accra", Center: models.GeoPoint{Lat: 5.6, Lng: -0.19}}
	kumasi := &models.ServiceZone{ID: "kumasi", Center: models.GeoPoint{Lat: 6.69, Lng: -1.62}}
	svc.Resolver = &staticResolver{
		zones: map[string]*models.ServiceZone{"accra": accra, "kumasi": kumasi},
		elig: &models.InterRegionalEligibility{
			Allowed:         true,
			OriginZone:      accra,
			DestinationZone: kumasi,
			Fee:             25,
		},
	}

	req := CreateRequest{
		Kind:    models.KindRide,
		Pickup:  models.GeoPoint{Lat: 5.6037, Lng: -0.1870},
		Dropoff: models.GeoPoint{Lat: 6.6885, Lng: -1.6244},
	}
	b, err := svc.Create(context.Background(), "cust-1", req)
	require.NoError(t, err)

	require.NotNil(t, b.ServiceData.InterRegional)
	assert.Equal(t, "accra", b.ServiceData.InterRegional.OriginZoneID)
	assert.Equal(t, "kumasi", b.ServiceData.InterRegional.DestinationZoneID)
	assert.Equal(t, 25.0, b.ServiceData.InterRegional.Surcharge)
	assert.True(t, b.InterRegional())
}

func TestCreateInterRegionalRejected(t *testing.T) {
	svc, _, _, _ := newTestLifecycle(t)
	accra := &models.ServiceZone{ID: "accra", Center: models.GeoPoint{Lat: 5.6, Lng: -0.19}}
	kumasi := &models.ServiceZone{ID: "kumasi", Center: models.GeoPoint{Lat: 6.69, Lng: -1.62}}
	svc.Resolver = &staticResolver{
		zones: map[string]*models.ServiceZone{"accra": accra, "kumasi": kumasi},
	}

	req := CreateRequest{
		Kind:    models.KindRide,
		Pickup:  models.GeoPoint{Lat: 5.6037, Lng: -0.1870},
		Dropoff: models.GeoPoint{Lat: 6.6885, Lng: -1.6244},
	}
	_, err := svc.Create(context.Background(), "cust-1", req)
	require.Error(t, err)
	assert.Equal(t, utils.ErrValidation, utils.KindOf(err))
}

func TestAssign(t *testing.T) {
	svc, _, provRepo, _ := newTestLifecycle(t, availableDriver("drv-1"))
	ctx := context.Background()

	b, err := svc.Create(ctx, "cust-1", rideRequest())
	require.NoError(t, err)

	assigned, err := svc.Assign(ctx, b.ID, "drv-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, assigned.Status)
	require.NotNil(t, assigned.ProviderID)
	assert.Equal(t, "drv-1", *assigned.ProviderID)
	assert.NotNil(t, assigned.AcceptedAt)

	p, err := provRepo.GetByID(ctx, "drv-1")
	require.NoError(t, err)
	assert.False(t, p.Available, "assigned provider is no longer available")
}

func TestAssignBusyProvider(t *testing.T) {
	svc, _, _, _ := newTestLifecycle(t, availableDriver("drv-1"))
	ctx := context.Background()

	first, err := svc.Create(ctx, "cust-1", rideRequest())
	require.NoError(t, err)
	second, err := svc.Create(ctx, "cust-2", rideRequest())
	require.NoError(t, err)

	_, err = svc.Assign(ctx, first.ID, "drv-1")
	require.NoError(t, err)

	// The provider already holds an active booking.
	_, err = svc.Assign(ctx, second.ID, "drv-1")
	require.Error(t, err)
	assert.Equal(t, utils.ErrConflict, utils.KindOf(err))
}

func TestAssignRace(t *testing.T) {
	drivers := []models.Provider{availableDriver("drv-1"), availableDriver("drv-2"), availableDriver("drv-3")}
	svc, _, provRepo, _ := newTestLifecycle(t, drivers...)
	ctx := context.Background()

	b, err := svc.Create(ctx, "cust-1", rideRequest())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, len(drivers))
	for _, d := range drivers {
		wg.Add(1)
		go func(providerID string) {
			defer wg.Done()
			_, err := svc.Assign(ctx, b.ID, providerID)
			results <- err
		}(d.ID)
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		if err == nil {
			wins++
		} else {
			require.Equal(t, utils.ErrConflict, utils.KindOf(err))
			conflicts++
		}
	}
	assert.Equal(t, 1, wins, "exactly one provider claims the booking")
	assert.Equal(t, len(drivers)-1, conflicts)

	// Losers must get their availability back.
	final, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	for _, d := range drivers {
		p, err := provRepo.GetByID(ctx, d.ID)
		require.NoError(t, err)
		if *final.ProviderID == d.ID {
			assert.False(t, p.Available)
		} else {
			assert.True(t, p.Available, "losing provider %s must be released", d.ID)
		}
	}
}

func TestTripProgression(t *testing.T) {
	svc, _, provRepo, _ := newTestLifecycle(t, availableDriver("drv-1"))
	ctx := context.Background()

	b, err := svc.Create(ctx, "cust-1", rideRequest())
	require.NoError(t, err)
	_, err = svc.Assign(ctx, b.ID, "drv-1")
	require.NoError(t, err)

	arrived, err := svc.MarkArrived(ctx, b.ID, "drv-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusArrived, arrived.Status)

	started, err := svc.Start(ctx, b.ID, "drv-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, started.Status)
	assert.NotNil(t, started.StartedAt)

	done, err := svc.Complete(ctx, b.ID, "drv-1", models.CompletionActuals{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.FinalPrice)
	assert.Equal(t, b.EstimatedPrice, *done.FinalPrice, "no actuals means the estimate stands")

	p, err := provRepo.GetByID(ctx, "drv-1")
	require.NoError(t, err)
	assert.True(t, p.Available, "provider is released on completion")
}

func TestStartSkipsArrived(t *testing.T) {
	svc, _, _, _ := newTestLifecycle(t, availableDriver("drv-1"))
	ctx := context.Background()

	b, err := svc.Create(ctx, "cust-1", rideRequest())
	require.NoError(t, err)
	_, err = svc.Assign(ctx, b.ID, "drv-1")
	require.NoError(t, err)

	// Going straight from assigned to in_progress is legal.
	started, err := svc.Start(ctx, b.ID, "drv-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, started.Status)
}

func TestProviderAuthorization(t *testing.T) {
	svc, _, _, _ := newTestLifecycle(t, availableDriver("drv-1"), availableDriver("drv-2"))
	ctx := context.Background()

	b, err := svc.Create(ctx, "cust-1", rideRequest())
	require.NoError(t, err)
	_, err = svc.Assign(ctx, b.ID, "drv-1")
	require.NoError(t, err)

	_, err = svc.Start(ctx, b.ID, "drv-2")
	require.Error(t, err)
	assert.Equal(t, utils.ErrUnauthorized, utils.KindOf(err))

	_, err = svc.Complete(ctx, b.ID, "drv-2", models.CompletionActuals{})
	require.Error(t, err)
	assert.Equal(t, utils.ErrUnauthorized, utils.KindOf(err))
}

func TestCompleteCommission(t *testing.T) {
	svc, _, _, _ := newTestLifecycle(t, availableDriver("drv-1"))
	earnings := &memEarningsRepo{}
	svc.Earnings = earnings
	ctx := context.Background()

	b, err := svc.Create(ctx, "cust-1", rideRequest())
	require.NoError(t, err)
	_, err = svc.Assign(ctx, b.ID, "drv-1")
	require.NoError(t, err)
	_, err = svc.Start(ctx, b.ID, "drv-1")
	require.NoError(t, err)

	done, err := svc.Complete(ctx, b.ID, "drv-1", models.CompletionActuals{FinalPrice: 100})
	require.NoError(t, err)

	assert.Equal(t, 100.0, *done.FinalPrice)
	assert.Equal(t, 18.0, done.Commission, "ride commission is 18%")
	assert.Equal(t, 82.0, done.ProviderEarning)

	recs, err := earnings.ListByProvider(ctx, "drv-1", "")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 82.0, recs[0].Net)
	assert.NotEmpty(t, recs[0].WeekBucket)
	assert.NotEmpty(t, recs[0].MonthBucket)
}

func TestCancelFees(t *testing.T) {
	ctx := context.Background()

	t.Run("pending cancel is free", func(t *testing.T) {
		svc, _, _, _ := newTestLifecycle(t)
		b, err := svc.Create(ctx, "cust-1", rideRequest())
		require.NoError(t, err)

		cancelled, err := svc.Cancel(ctx, b.ID, "cust-1", models.RoleCustomer, "changed my mind")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, cancelled.Status)
		assert.Equal(t, 0.0, cancelled.CancellationFee)
		assert.Equal(t, models.RoleCustomer, cancelled.CancelledBy)
	})

	t.Run("customer cancel after assignment pays the fee", func(t *testing.T) {
		svc, _, provRepo, _ := newTestLifecycle(t, availableDriver("drv-1"))
		b, err := svc.Create(ctx, "cust-1", rideRequest())
		require.NoError(t, err)
		_, err = svc.Assign(ctx, b.ID, "drv-1")
		require.NoError(t, err)

		cancelled, err := svc.Cancel(ctx, b.ID, "cust-1", models.RoleCustomer, "")
		require.NoError(t, err)
		assert.InDelta(t, b.EstimatedPrice*0.10, cancelled.CancellationFee, 0.01)

		p, err := provRepo.GetByID(ctx, "drv-1")
		require.NoError(t, err)
		assert.True(t, p.Available, "provider is released on cancellation")
	})

	t.Run("provider cancel is free for the customer", func(t *testing.T) {
		svc, _, _, _ := newTestLifecycle(t, availableDriver("drv-1"))
		b, err := svc.Create(ctx, "cust-1", rideRequest())
		require.NoError(t, err)
		_, err = svc.Assign(ctx, b.ID, "drv-1")
		require.NoError(t, err)

		cancelled, err := svc.Cancel(ctx, b.ID, "drv-1", models.RoleProvider, "vehicle trouble")
		require.NoError(t, err)
		assert.Equal(t, 0.0, cancelled.CancellationFee)
		assert.Equal(t, models.RoleProvider, cancelled.CancelledBy)
	})

	t.Run("in-progress trips cannot be cancelled", func(t *testing.T) {
		svc, _, _, _ := newTestLifecycle(t, availableDriver("drv-1"))
		b, err := svc.Create(ctx, "cust-1", rideRequest())
		require.NoError(t, err)
		_, err = svc.Assign(ctx, b.ID, "drv-1")
		require.NoError(t, err)
		_, err = svc.Start(ctx, b.ID, "drv-1")
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, b.ID, "cust-1", models.RoleCustomer, "")
		require.Error(t, err)
		assert.Equal(t, utils.ErrInvalidState, utils.KindOf(err))
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		svc, _, _, _ := newTestLifecycle(t)
		b, err := svc.Create(ctx, "cust-1", rideRequest())
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, b.ID, "cust-2", models.RoleCustomer, "")
		require.Error(t, err)
		assert.Equal(t, utils.ErrUnauthorized, utils.KindOf(err))
	})
}

func TestListScopedByActor(t *testing.T) {
	svc, _, _, _ := newTestLifecycle(t, availableDriver("drv-1"))
	ctx := context.Background()

	b1, err := svc.Create(ctx, "cust-1", rideRequest())
	require.NoError(t, err)
	_, err = svc.Create(ctx, "cust-2", rideRequest())
	require.NoError(t, err)
	_, err = svc.Assign(ctx, b1.ID, "drv-1")
	require.NoError(t, err)

	mine, err := svc.List(ctx, "cust-1", models.RoleCustomer, repository.BookingListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, b1.ID, mine[0].ID)

	trips, err := svc.List(ctx, "drv-1", models.RoleProvider, repository.BookingListFilter{})
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, b1.ID, trips[0].ID)
}
