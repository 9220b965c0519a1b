package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridelink/config"
	"ridelink/database/repository"
	"ridelink/models"
	"ridelink/services/booking"
	"ridelink/services/matching"
	"ridelink/services/notification"
	"ridelink/utils"
)

// DispatchService runs the offer fan-out for a booking and turns provider
// responses into assignments.
type DispatchService interface {
	// Dispatch finds candidates for a matchable booking and issues one offer
	// per candidate. Returns the offers issued; zero offers is not an error.
	Dispatch(ctx context.Context, bookingID string) ([]models.DriverOffer, error)
	Accept(ctx context.Context, offerID, providerID string) (*models.Booking, error)
	Reject(ctx context.Context, offerID, providerID string, reason string) error
	OffersForBooking(ctx context.Context, bookingID string) ([]models.DriverOffer, error)
}

// DefaultDispatchService implements DispatchService.
type DefaultDispatchService struct {
	Bookings  repository.BookingRepository
	Offers    repository.OfferRepository
	Matcher   matching.MatchingService
	Lifecycle booking.LifecycleService
	Resolver  ZoneContextResolver
	Notifier  notification.Notifier
}

// ZoneContextResolver produces the zone situation for a booking being
// dispatched. Split out so tests can stub zone resolution.
type ZoneContextResolver interface {
	ZoneContextFor(ctx context.Context, b *models.Booking) (matching.ZoneContext, error)
}

func (s *DefaultDispatchService) Dispatch(ctx context.Context, bookingID string) ([]models.DriverOffer, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.Status.Matchable() {
		return nil, utils.InvalidStateError("booking %s is %s and cannot be dispatched", bookingID, b.Status)
	}
	// Shared rides still waiting on partners hold off dispatch until the
	// group fills or the re-dispatch sweep picks them up.
	if sd := b.ServiceData.SharedRide; sd != nil && sd.AwaitingPartners && sd.GroupID != "" {
		zap.L().Debug("deferring dispatch for pooling booking", zap.String("booking_id", bookingID))
		return []models.DriverOffer{}, nil
	}

	zoneCtx := matching.ZoneContext{InterRegional: b.InterRegional()}
	if s.Resolver != nil {
		zoneCtx, err = s.Resolver.ZoneContextFor(ctx, b)
		if err != nil {
			return nil, err
		}
	}

	candidates, err := s.Matcher.FindCandidates(ctx, b.Pickup, b.Kind, zoneCtx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		zap.L().Info("no candidates for booking", zap.String("booking_id", bookingID))
		return []models.DriverOffer{}, nil
	}

	window := time.Duration(config.AppConfig.OfferWindowSec) * time.Second
	if window == 0 {
		window = 60 * time.Second
	}
	now := time.Now()

	offers := make([]models.DriverOffer, 0, len(candidates))
	for _, c := range candidates {
		offer := models.DriverOffer{
			ID:         uuid.New().String(),
			BookingID:  bookingID,
			ProviderID: c.Provider.ID,
			Rank:       c.Rank,
			DistanceKm: c.DistanceKm,
			Status:     models.OfferOffered,
			IssuedAt:   now,
			ExpiresAt:  now.Add(window),
		}
		if err := s.Offers.Put(ctx, &offer); err != nil {
			zap.L().Error("failed to store offer",
				zap.String("booking_id", bookingID),
				zap.String("provider_id", c.Provider.ID),
				zap.Error(err))
			continue
		}
		offers = append(offers, offer)
		go s.notifyOffer(offer)
	}
	zap.L().Info("offers issued",
		zap.String("booking_id", bookingID),
		zap.Int("count", len(offers)))
	return offers, nil
}

// Accept claims the booking for the offer's provider. The expiry check here
// is authoritative; the redis TTL only garbage-collects. First accepted offer
// wins, losers get Conflict from the assignment write.
func (s *DefaultDispatchService) Accept(ctx context.Context, offerID, providerID string) (*models.Booking, error) {
	offer, err := s.Offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.ProviderID != providerID {
		return nil, utils.UnauthorizedError("offer %s belongs to another provider", offerID)
	}
	if offer.Status != models.OfferOffered {
		return nil, utils.ConflictError("offer %s is already %s", offerID, offer.Status)
	}
	if offer.Lapsed(time.Now()) {
		if err := s.Offers.SetStatus(ctx, offerID, models.OfferExpired, "window elapsed"); err != nil {
			zap.L().Warn("failed to mark offer expired", zap.String("offer_id", offerID), zap.Error(err))
		}
		return nil, utils.ConflictError("offer %s has expired", offerID)
	}

	b, err := s.Lifecycle.Assign(ctx, offer.BookingID, providerID)
	if err != nil {
		return nil, err
	}

	if err := s.Offers.SetStatus(ctx, offerID, models.OfferAccepted, ""); err != nil {
		zap.L().Warn("failed to mark offer accepted", zap.String("offer_id", offerID), zap.Error(err))
	}
	go s.expireSiblings(offer.BookingID, offerID)
	return b, nil
}

// Reject declines an offer. The booking stays matchable; other outstanding
// offers are untouched.
func (s *DefaultDispatchService) Reject(ctx context.Context, offerID, providerID, reason string) error {
	offer, err := s.Offers.GetByID(ctx, offerID)
	if err != nil {
		return err
	}
	if offer.ProviderID != providerID {
		return utils.UnauthorizedError("offer %s belongs to another provider", offerID)
	}
	if offer.Status != models.OfferOffered {
		return utils.ConflictError("offer %s is already %s", offerID, offer.Status)
	}
	return s.Offers.SetStatus(ctx, offerID, models.OfferRejected, reason)
}

func (s *DefaultDispatchService) OffersForBooking(ctx context.Context, bookingID string) ([]models.DriverOffer, error) {
	return s.Offers.ListByBooking(ctx, bookingID)
}

// expireSiblings closes out the losing offers after one is accepted and
// tells those providers the booking is gone. Best effort.
func (s *DefaultDispatchService) expireSiblings(bookingID, winnerOfferID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	offers, err := s.Offers.ListByBooking(ctx, bookingID)
	if err != nil {
		zap.L().Warn("failed to list sibling offers", zap.String("booking_id", bookingID), zap.Error(err))
		return
	}
	for _, o := range offers {
		if o.ID == winnerOfferID || o.Status != models.OfferOffered {
			continue
		}
		if err := s.Offers.SetStatus(ctx, o.ID, models.OfferExpired, "booking claimed by another provider"); err != nil {
			zap.L().Warn("failed to expire sibling offer", zap.String("offer_id", o.ID), zap.Error(err))
			continue
		}
		if s.Notifier != nil {
			if err := s.Notifier.NotifyProvider(ctx, o.ProviderID, "offer_closed", map[string]string{
				"offer_id":   o.ID,
				"booking_id": bookingID,
			}); err != nil {
				zap.L().Debug("sibling close notification failed", zap.String("provider_id", o.ProviderID), zap.Error(err))
			}
		}
	}
}

func (s *DefaultDispatchService) notifyOffer(offer models.DriverOffer) {
	if s.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Notifier.NotifyProvider(ctx, offer.ProviderID, "new_offer", map[string]string{
		"offer_id":   offer.ID,
		"booking_id": offer.BookingID,
		"expires_at": offer.ExpiresAt.Format(time.RFC3339),
	})
	if err != nil {
		zap.L().Debug("offer notification failed", zap.String("provider_id", offer.ProviderID), zap.Error(err))
	}
}
