package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ridelink/models"
	"ridelink/utils"
)

// OfferRepository holds ephemeral dispatch offers. Offers live in redis with
// a TTL slightly past the acceptance window; the window itself is enforced
// by the dispatcher, the TTL is just cleanup.
type OfferRepository interface {
	Put(ctx context.Context, offer *models.DriverOffer) error
	GetByID(ctx context.Context, offerID string) (*models.DriverOffer, error)
	ListByBooking(ctx context.Context, bookingID string) ([]models.DriverOffer, error)
	SetStatus(ctx context.Context, offerID string, status models.OfferStatus, reason string) error
}

const offerGrace = 30 * time.Second

// RedisOfferRepo implements OfferRepository on redis.
type RedisOfferRepo struct {
	client *redis.Client
}

func NewRedisOfferRepo(client *redis.Client) OfferRepository {
	return &RedisOfferRepo{client: client}
}

func offerKey(id string) string      { return "offer:" + id }
func bookingSetKey(id string) string { return "offers:booking:" + id }

func (r *RedisOfferRepo) Put(ctx context.Context, offer *models.DriverOffer) error {
	data, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("failed to marshal offer: %w", err)
	}
	ttl := time.Until(offer.ExpiresAt) + offerGrace
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, offerKey(offer.ID), data, ttl)
	pipe.SAdd(ctx, bookingSetKey(offer.BookingID), offer.ID)
	pipe.Expire(ctx, bookingSetKey(offer.BookingID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store offer: %w", err)
	}
	return nil
}

func (r *RedisOfferRepo) GetByID(ctx context.Context, offerID string) (*models.DriverOffer, error) {
	data, err := r.client.Get(ctx, offerKey(offerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, utils.NotFoundError("offer %s not found or expired", offerID)
		}
		return nil, fmt.Errorf("failed to fetch offer %s: %w", offerID, err)
	}
	var offer models.DriverOffer
	if err := json.Unmarshal([]byte(data), &offer); err != nil {
		return nil, fmt.Errorf("failed to parse offer %s: %w", offerID, err)
	}
	return &offer, nil
}

func (r *RedisOfferRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.DriverOffer, error) {
	ids, err := r.client.SMembers(ctx, bookingSetKey(bookingID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list offers for booking %s: %w", bookingID, err)
	}
	var offers []models.DriverOffer
	for _, id := range ids {
		offer, err := r.GetByID(ctx, id)
		if err != nil {
			// Expired siblings drop out of the set naturally.
			if utils.IsKind(err, utils.ErrNotFound) {
				continue
			}
			return nil, err
		}
		offers = append(offers, *offer)
	}
	return offers, nil
}

func (r *RedisOfferRepo) SetStatus(ctx context.Context, offerID string, status models.OfferStatus, reason string) error {
	offer, err := r.GetByID(ctx, offerID)
	if err != nil {
		return err
	}
	offer.Status = status
	offer.Reason = reason
	data, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("failed to marshal offer: %w", err)
	}
	ttl := time.Until(offer.ExpiresAt) + offerGrace
	if ttl <= 0 {
		ttl = offerGrace
	}
	if err := r.client.Set(ctx, offerKey(offerID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to update offer %s: %w", offerID, err)
	}
	return nil
}
