package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"ridelink/database"
	"ridelink/models"
	"ridelink/utils"
)

// ProviderRepository exposes the provider snapshots the dispatch core reads
// and the two fields it writes: availability and last location.
type ProviderRepository interface {
	GetByID(ctx context.Context, id string) (*models.Provider, error)
	// FindAvailable returns online, available providers serving the kind.
	FindAvailable(ctx context.Context, kind models.ServiceKind) ([]models.Provider, error)
	// ClaimAvailability flips available true→false in one conditional write.
	// Returns false when the provider is already busy or offline, which is
	// what keeps a provider on at most one active booking.
	ClaimAvailability(ctx context.Context, providerID string) (bool, error)
	// ReleaseAvailability flips the provider back to available.
	ReleaseAvailability(ctx context.Context, providerID string) error
	// UpdateLocation overwrites the last reported position (last write wins).
	UpdateLocation(ctx context.Context, providerID string, loc models.GeoPoint, seenAt time.Time) error
}

// MongoProviderRepo implements ProviderRepository using MongoDB.
type MongoProviderRepo struct {
	coll *mongo.Collection
}

func NewMongoProviderRepo() ProviderRepository {
	return &MongoProviderRepo{coll: database.Collection("providers")}
}

func (r *MongoProviderRepo) GetByID(ctx context.Context, id string) (*models.Provider, error) {
	var p models.Provider
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NotFoundError("provider %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch provider %s: %w", id, err)
	}
	return &p, nil
}

func (r *MongoProviderRepo) FindAvailable(ctx context.Context, kind models.ServiceKind) ([]models.Provider, error) {
	filter := bson.M{
		"online":        true,
		"available":     true,
		"service_kinds": kind,
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find available providers: %w", err)
	}
	defer cursor.Close(ctx)
	var providers []models.Provider
	for cursor.Next(ctx) {
		var p models.Provider
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode provider: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func (r *MongoProviderRepo) ClaimAvailability(ctx context.Context, providerID string) (bool, error) {
	filter := bson.M{"id": providerID, "online": true, "available": true}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"available": false}})
	if err != nil {
		return false, fmt.Errorf("failed to claim provider %s: %w", providerID, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoProviderRepo) ReleaseAvailability(ctx context.Context, providerID string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": providerID}, bson.M{"$set": bson.M{"available": true}})
	if err != nil {
		return fmt.Errorf("failed to release provider %s: %w", providerID, err)
	}
	if res.MatchedCount == 0 {
		return utils.NotFoundError("provider %s not found", providerID)
	}
	return nil
}

func (r *MongoProviderRepo) UpdateLocation(ctx context.Context, providerID string, loc models.GeoPoint, seenAt time.Time) error {
	update := bson.M{"$set": bson.M{"last_location": loc, "location_seen_at": seenAt}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": providerID}, update)
	if err != nil {
		return fmt.Errorf("failed to update provider %s location: %w", providerID, err)
	}
	if res.MatchedCount == 0 {
		return utils.NotFoundError("provider %s not found", providerID)
	}
	return nil
}
