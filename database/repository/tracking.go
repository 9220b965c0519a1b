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

// TrackingRepository stores provider position samples per booking.
type TrackingRepository interface {
	Append(ctx context.Context, ev *models.TrackingEvent) error
	ListByBooking(ctx context.Context, bookingID string, limit int64) ([]models.TrackingEvent, error)
}

// MongoTrackingRepo implements TrackingRepository using MongoDB.
type MongoTrackingRepo struct {
	coll *mongo.Collection
}

func NewMongoTrackingRepo() TrackingRepository {
	return &MongoTrackingRepo{coll: database.Collection("tracking_events")}
}

func (r *MongoTrackingRepo) Append(ctx context.Context, ev *models.TrackingEvent) error {
	if _, err := r.coll.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("failed to append tracking event: %w", err)
	}
	return nil
}

func (r *MongoTrackingRepo) ListByBooking(ctx context.Context, bookingID string, limit int64) ([]models.TrackingEvent, error) {
	if limit == 0 {
		limit = 200
	}
	opts := options.Find().SetSort(bson.M{"recorded_at": 1}).SetLimit(limit)
	cursor, err := r.coll.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracking events for booking %s: %w", bookingID, err)
	}
	defer cursor.Close(ctx)
	var out []models.TrackingEvent
	for cursor.Next(ctx) {
		var ev models.TrackingEvent
		if err := cursor.Decode(&ev); err != nil {
			return nil, fmt.Errorf("failed to decode tracking event: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}
