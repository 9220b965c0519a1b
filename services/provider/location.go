package provider

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridelink/config"
	"ridelink/database/repository"
	"ridelink/models"
	"ridelink/services/geo"
	"ridelink/services/realtime"
	"ridelink/utils"
)

// Ping is one location report from a provider's device. BookingID is set
// while the provider is serving a trip so the sample lands on the trip's
// tracking trail.
type Ping struct {
	Location  models.GeoPoint `json:"location"`
	BookingID string          `json:"booking_id,omitempty"`
}

// LocationService ingests provider position pings.
type LocationService interface {
	RecordPing(ctx context.Context, providerID string, ping Ping) error
	Earnings(ctx context.Context, providerID, bucket string) ([]models.EarningRecord, error)
}

// DefaultLocationService implements LocationService. Pings are last-write-
// wins on the provider snapshot; on-trip pings additionally append to the
// booking trail and fan out to subscribers.
type DefaultLocationService struct {
	Providers repository.ProviderRepository
	Bookings  repository.BookingRepository
	Tracking  repository.TrackingRepository
	Earn      repository.EarningsRepository
	Resolver  geo.ZoneResolver
	Broadcast realtime.Broadcaster
}

func (s *DefaultLocationService) RecordPing(ctx context.Context, providerID string, ping Ping) error {
	if ping.Location.Lat < -90 || ping.Location.Lat > 90 || ping.Location.Lng < -180 || ping.Location.Lng > 180 {
		return utils.ValidationError("coordinate out of range: %.4f,%.4f", ping.Location.Lat, ping.Location.Lng)
	}

	prev, err := s.Providers.GetByID(ctx, providerID)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := s.Providers.UpdateLocation(ctx, providerID, ping.Location, now); err != nil {
		return utils.UpstreamError("location update failed: %v", err)
	}

	// Crossing roughly a zone width re-resolves eligibility lazily at the
	// next dispatch; here it only surfaces as an advisory event.
	if s.Resolver != nil && s.Resolver.ZoneChanged(prev.LastLocation, ping.Location) {
		zap.L().Info("provider moved across zone threshold",
			zap.String("provider_id", providerID),
			zap.Float64("lat", ping.Location.Lat),
			zap.Float64("lng", ping.Location.Lng))
	}

	if ping.BookingID == "" {
		return nil
	}

	b, err := s.Bookings.GetByID(ctx, ping.BookingID)
	if err != nil {
		return err
	}
	if b.ProviderID == nil || *b.ProviderID != providerID {
		return utils.UnauthorizedError("provider %s is not assigned to booking %s", providerID, ping.BookingID)
	}
	if b.Status.Terminal() {
		return utils.InvalidStateError("booking %s is %s; tracking closed", b.ID, b.Status)
	}

	eta := geo.EtaMinutes(ping.Location, b.Dropoff, config.AppConfig.AvgCitySpeedKmh)
	if b.Status == models.StatusAssigned {
		eta = geo.EtaMinutes(ping.Location, b.Pickup, config.AppConfig.AvgCitySpeedKmh)
	}

	ev := &models.TrackingEvent{
		ID:         uuid.New().String(),
		BookingID:  b.ID,
		ProviderID: providerID,
		Location:   ping.Location,
		EtaMin:     eta,
		RecordedAt: now,
	}
	if err := s.Tracking.Append(ctx, ev); err != nil {
		zap.L().Warn("failed to append tracking event", zap.String("booking_id", b.ID), zap.Error(err))
	}

	if s.Broadcast != nil {
		if err := s.Broadcast.Publish(ctx, realtime.BookingTopic(b.ID), "position_update", ev); err != nil {
			zap.L().Debug("position broadcast failed", zap.String("booking_id", b.ID), zap.Error(err))
		}
	}
	return nil
}

// Earnings lists the provider's ledger rows, optionally narrowed to a week
// ("2026-W36") or month ("2026-09") bucket.
func (s *DefaultLocationService) Earnings(ctx context.Context, providerID, bucket string) ([]models.EarningRecord, error) {
	if providerID == "" {
		return nil, utils.ValidationError("provider id is required")
	}
	return s.Earn.ListByProvider(ctx, providerID, bucket)
}
