package geo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridelink/models"
)

type fakeZoneRepo struct {
	zones  []models.ServiceZone
	routes []models.InterRegionalRoute
}

func (f *fakeZoneRepo) ListActive(ctx context.Context) ([]models.ServiceZone, error) {
	return f.zones, nil
}

func (f *fakeZoneRepo) FindRoute(ctx context.Context, originZoneID, destZoneID string) (*models.InterRegionalRoute, error) {
	for _, r := range f.routes {
		if r.OriginZoneID == originZoneID && r.DestZoneID == destZoneID && r.Active {
			route := r
			return &route, nil
		}
	}
	return nil, nil
}

func testZones() []models.ServiceZone {
	return []models.ServiceZone{
		{ID: "accra", Name: "Greater Accra", Center: models.GeoPoint{Lat: 5.6037, Lng: -0.1870}, RadiusKm: 30, Type: models.ZoneLocal, Priority: 10, Active: true},
		{ID: "tema", Name: "Tema", Center: models.GeoPoint{Lat: 5.6698, Lng: -0.0166}, RadiusKm: 15, Type: models.ZoneLocal, Priority: 20, Active: true},
		{ID: "kumasi", Name: "Kumasi", Center: models.GeoPoint{Lat: 6.6885, Lng: -1.6244}, RadiusKm: 25, Type: models.ZoneLocal, Priority: 10, Active: true},
	}
}

func TestResolveZone(t *testing.T) {
	r := NewZoneResolver(&fakeZoneRepo{zones: testZones()})

	t.Run("inside a single zone", func(t *testing.T) {
		z, err := r.ResolveZone(context.Background(), models.GeoPoint{Lat: 6.70, Lng: -1.62})
		require.NoError(t, err)
		require.NotNil(t, z)
		assert.Equal(t, "kumasi", z.ID)
	})

	t.Run("overlap prefers higher priority", func(t *testing.T) {
		// Tema center sits inside the Accra radius too.
		z, err := r.ResolveZone(context.Background(), models.GeoPoint{Lat: 5.6698, Lng: -0.0166})
		require.NoError(t, err)
		require.NotNil(t, z)
		assert.Equal(t, "tema", z.ID)
	})

	t.Run("unzoned point returns nil", func(t *testing.T) {
		z, err := r.ResolveZone(context.Background(), models.GeoPoint{Lat: 9.0, Lng: -2.0})
		require.NoError(t, err)
		assert.Nil(t, z)
	})
}

func TestZoneChanged(t *testing.T) {
	r := NewZoneResolver(&fakeZoneRepo{})
	prev := models.GeoPoint{Lat: 5.60, Lng: -0.18}

	assert.False(t, r.ZoneChanged(prev, models.GeoPoint{Lat: 5.65, Lng: -0.20}), "small drift stays put")
	assert.True(t, r.ZoneChanged(prev, models.GeoPoint{Lat: 5.75, Lng: -0.18}), "latitude jump past threshold")
	assert.True(t, r.ZoneChanged(prev, models.GeoPoint{Lat: 5.60, Lng: -0.35}), "longitude jump past threshold")
}

func TestCanCreateInterRegional(t *testing.T) {
	repo := &fakeZoneRepo{
		zones: testZones(),
		routes: []models.InterRegionalRoute{
			{ID: "r1", OriginZoneID: "accra", DestZoneID: "kumasi", Fee: 25, ApprovalRequired: true, Active: true},
		},
	}
	r := NewZoneResolver(repo)

	accraPoint := models.GeoPoint{Lat: 5.6037, Lng: -0.1870}
	kumasiPoint := models.GeoPoint{Lat: 6.6885, Lng: -1.6244}

	t.Run("allowed with configured corridor", func(t *testing.T) {
		elig, err := r.CanCreateInterRegional(context.Background(), accraPoint, kumasiPoint)
		require.NoError(t, err)
		assert.True(t, elig.Allowed)
		assert.Equal(t, "accra", elig.OriginZone.ID)
		assert.Equal(t, "kumasi", elig.DestinationZone.ID)
		assert.Equal(t, 25.0, elig.Fee)
		assert.True(t, elig.ApprovalRequired)
	})

	t.Run("rejected without a corridor", func(t *testing.T) {
		elig, err := r.CanCreateInterRegional(context.Background(), kumasiPoint, accraPoint)
		require.NoError(t, err)
		assert.False(t, elig.Allowed)
		assert.Contains(t, elig.Reason, "no inter-regional route")
	})

	t.Run("rejected when same zone", func(t *testing.T) {
		nearby := models.GeoPoint{Lat: 5.62, Lng: -0.17}
		elig, err := r.CanCreateInterRegional(context.Background(), accraPoint, nearby)
		require.NoError(t, err)
		assert.False(t, elig.Allowed)
		assert.Contains(t, elig.Reason, "same zone")
	})

	t.Run("rejected when outside all zones", func(t *testing.T) {
		elig, err := r.CanCreateInterRegional(context.Background(), accraPoint, models.GeoPoint{Lat: 9.0, Lng: -2.0})
		require.NoError(t, err)
		assert.False(t, elig.Allowed)
		assert.Contains(t, elig.Reason, "outside any service zone")
	})
}
