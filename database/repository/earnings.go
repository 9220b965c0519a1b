package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ridelink/database"
	"ridelink/models"
)

// EarningsRepository is the append-only provider earnings ledger.
type EarningsRepository interface {
	Append(ctx context.Context, rec *models.EarningRecord) error
	ListByProvider(ctx context.Context, providerID string, bucket string) ([]models.EarningRecord, error)
}

// MongoEarningsRepo implements EarningsRepository using MongoDB.
type MongoEarningsRepo struct {
	coll *mongo.Collection
}

func NewMongoEarningsRepo() EarningsRepository {
	return &MongoEarningsRepo{coll: database.Collection("earnings")}
}

func (r *MongoEarningsRepo) Append(ctx context.Context, rec *models.EarningRecord) error {
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to append earning record: %w", err)
	}
	return nil
}

// ListByProvider filters by week bucket ("2026-W36"), month bucket
// ("2026-09"), or returns everything when bucket is empty.
func (r *MongoEarningsRepo) ListByProvider(ctx context.Context, providerID string, bucket string) ([]models.EarningRecord, error) {
	filter := bson.M{"provider_id": providerID}
	if bucket != "" {
		filter["$or"] = bson.A{
			bson.M{"week_bucket": bucket},
			bson.M{"month_bucket": bucket},
		}
	}
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list earnings for provider %s: %w", providerID, err)
	}
	defer cursor.Close(ctx)
	var out []models.EarningRecord
	for cursor.Next(ctx) {
		var rec models.EarningRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode earning record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
