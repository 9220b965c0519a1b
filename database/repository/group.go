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

// GroupRepository persists shared-ride groups.
type GroupRepository interface {
	Create(ctx context.Context, g *models.SharedRideGroup) error
	GetByID(ctx context.Context, id string) (*models.SharedRideGroup, error)
	// FindOpenSince returns open groups created after the cutoff.
	FindOpenSince(ctx context.Context, cutoff time.Time) ([]models.SharedRideGroup, error)
	// AppendMember adds a booking to a group that is still open and below
	// capacity, updating the total price in the same conditional write.
	AppendMember(ctx context.Context, groupID, bookingID string, newTotal float64, capacity int) (bool, error)
	// RemoveMember drops a booking from a group it belongs to, updating the
	// total price in the same conditional write. Returns false when the
	// booking was not a member.
	RemoveMember(ctx context.Context, groupID, bookingID string, newTotal float64) (bool, error)
	Close(ctx context.Context, groupID string) error
}

// MongoGroupRepo implements GroupRepository using MongoDB.
type MongoGroupRepo struct {
	coll *mongo.Collection
}

func NewMongoGroupRepo() GroupRepository {
	return &MongoGroupRepo{coll: database.Collection("shared_ride_groups")}
}

func (r *MongoGroupRepo) Create(ctx context.Context, g *models.SharedRideGroup) error {
	if _, err := r.coll.InsertOne(ctx, g); err != nil {
		return fmt.Errorf("failed to create shared-ride group: %w", err)
	}
	return nil
}

func (r *MongoGroupRepo) GetByID(ctx context.Context, id string) (*models.SharedRideGroup, error) {
	var g models.SharedRideGroup
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NotFoundError("shared-ride group %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch group %s: %w", id, err)
	}
	return &g, nil
}

func (r *MongoGroupRepo) FindOpenSince(ctx context.Context, cutoff time.Time) ([]models.SharedRideGroup, error) {
	filter := bson.M{"open": true, "created_at": bson.M{"$gte": cutoff}}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query open groups: %w", err)
	}
	defer cursor.Close(ctx)
	var groups []models.SharedRideGroup
	for cursor.Next(ctx) {
		var g models.SharedRideGroup
		if err := cursor.Decode(&g); err != nil {
			return nil, fmt.Errorf("failed to decode group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (r *MongoGroupRepo) AppendMember(ctx context.Context, groupID, bookingID string, newTotal float64, capacity int) (bool, error) {
	filter := bson.M{
		"id":   groupID,
		"open": true,
		fmt.Sprintf("member_bookings.%d", capacity-1): bson.M{"$exists": false},
	}
	update := bson.M{
		"$addToSet": bson.M{"member_bookings": bookingID},
		"$set":      bson.M{"total_price": newTotal},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to append member to group %s: %w", groupID, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoGroupRepo) RemoveMember(ctx context.Context, groupID, bookingID string, newTotal float64) (bool, error) {
	filter := bson.M{"id": groupID, "member_bookings": bookingID}
	update := bson.M{
		"$pull": bson.M{"member_bookings": bookingID},
		"$set":  bson.M{"total_price": newTotal},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to remove member from group %s: %w", groupID, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoGroupRepo) Close(ctx context.Context, groupID string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": groupID}, bson.M{"$set": bson.M{"open": false}})
	if err != nil {
		return fmt.Errorf("failed to close group %s: %w", groupID, err)
	}
	if res.MatchedCount == 0 {
		return utils.NotFoundError("shared-ride group %s not found", groupID)
	}
	return nil
}
