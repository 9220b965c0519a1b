package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ridelink/database"
	"ridelink/models"
	"ridelink/utils"
)

// BookingListFilter narrows booking queries by actor, status and date range.
type BookingListFilter struct {
	CustomerID string
	ProviderID string
	Status     models.BookingStatus
	From       *time.Time
	To         *time.Time
	Limit      int64
}

// StatusPatch carries the fields a transition stamps alongside the status.
type StatusPatch struct {
	ProviderID         *string
	AcceptedAt         *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	FinalPrice         *float64
	Commission         *float64
	ProviderEarning    *float64
	CancelledBy        models.ActorRole
	CancellationReason string
	CancellationFee    *float64
	SharePrice         *float64
	GroupID            string
	AwaitingPartners   *bool
}

// BookingRepository defines the interface for booking data access.
type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, f BookingListFilter) ([]models.Booking, error)
	// UpdateStatus performs the single conditional write every transition
	// rides on: the booking moves from exactly `from` to `to`, or nothing
	// happens and claimed is false. Never read-then-write around this.
	UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus, patch StatusPatch) (claimed bool, err error)
	// UpdateStatusFromAny is UpdateStatus over a set of legal prior states.
	UpdateStatusFromAny(ctx context.Context, id string, from []models.BookingStatus, to models.BookingStatus, patch StatusPatch) (bool, error)
	// SetSharePrice retroactively updates a shared-ride member's price.
	SetSharePrice(ctx context.Context, bookingID string, price float64) error
	// SetPoolingState links a booking to a group and records whether it is
	// still waiting on partners before dispatch.
	SetPoolingState(ctx context.Context, bookingID, groupID string, awaiting bool) error
	// FindStalePending returns matchable bookings created before cutoff that
	// still have no provider, for the re-dispatch sweep.
	FindStalePending(ctx context.Context, cutoff time.Time, limit int64) ([]models.Booking, error)
}

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

func NewMongoBookingRepo() BookingRepository {
	return &MongoBookingRepo{coll: database.Collection("bookings")}
}

func (r *MongoBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	if _, err := r.coll.InsertOne(ctx, b); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NotFoundError("booking %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch booking %s: %w", id, err)
	}
	return &b, nil
}

func (r *MongoBookingRepo) List(ctx context.Context, f BookingListFilter) ([]models.Booking, error) {
	filter := bson.M{}
	if f.CustomerID != "" {
		filter["customer_id"] = f.CustomerID
	}
	if f.ProviderID != "" {
		filter["provider_id"] = f.ProviderID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.From != nil || f.To != nil {
		rng := bson.M{}
		if f.From != nil {
			rng["$gte"] = *f.From
		}
		if f.To != nil {
			rng["$lte"] = *f.To
		}
		filter["created_at"] = rng
	}
	limit := f.Limit
	if limit == 0 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer cursor.Close(ctx)
	var out []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *MongoBookingRepo) UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus, patch StatusPatch) (bool, error) {
	return r.UpdateStatusFromAny(ctx, id, []models.BookingStatus{from}, to, patch)
}

func (r *MongoBookingRepo) UpdateStatusFromAny(ctx context.Context, id string, from []models.BookingStatus, to models.BookingStatus, patch StatusPatch) (bool, error) {
	filter := bson.M{"id": id, "status": bson.M{"$in": from}}
	set := bson.M{"status": to}
	if patch.ProviderID != nil {
		set["provider_id"] = *patch.ProviderID
	}
	if patch.AcceptedAt != nil {
		set["accepted_at"] = *patch.AcceptedAt
	}
	if patch.StartedAt != nil {
		set["started_at"] = *patch.StartedAt
	}
	if patch.CompletedAt != nil {
		set["completed_at"] = *patch.CompletedAt
	}
	if patch.CancelledAt != nil {
		set["cancelled_at"] = *patch.CancelledAt
	}
	if patch.FinalPrice != nil {
		set["final_price"] = *patch.FinalPrice
	}
	if patch.Commission != nil {
		set["commission"] = *patch.Commission
	}
	if patch.ProviderEarning != nil {
		set["provider_earning"] = *patch.ProviderEarning
	}
	if patch.CancelledBy != "" {
		set["cancelled_by"] = patch.CancelledBy
	}
	if patch.CancellationReason != "" {
		set["cancellation_reason"] = patch.CancellationReason
	}
	if patch.CancellationFee != nil {
		set["cancellation_fee"] = *patch.CancellationFee
	}
	if patch.SharePrice != nil {
		set["service_data.shared_ride.share_price"] = *patch.SharePrice
	}
	if patch.GroupID != "" {
		set["service_data.shared_ride.group_id"] = patch.GroupID
	}
	if patch.AwaitingPartners != nil {
		set["service_data.shared_ride.awaiting_partners"] = *patch.AwaitingPartners
	}

	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to update booking %s status: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoBookingRepo) SetSharePrice(ctx context.Context, bookingID string, price float64) error {
	update := bson.M{"$set": bson.M{
		"estimated_price":                      price,
		"service_data.shared_ride.share_price": price,
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": bookingID}, update)
	if err != nil {
		return fmt.Errorf("failed to reprice booking %s: %w", bookingID, err)
	}
	if res.MatchedCount == 0 {
		return utils.NotFoundError("booking %s not found", bookingID)
	}
	return nil
}

func (r *MongoBookingRepo) SetPoolingState(ctx context.Context, bookingID, groupID string, awaiting bool) error {
	update := bson.M{"$set": bson.M{
		"service_data.shared_ride.group_id":          groupID,
		"service_data.shared_ride.awaiting_partners": awaiting,
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": bookingID}, update)
	if err != nil {
		return fmt.Errorf("failed to update pooling state for booking %s: %w", bookingID, err)
	}
	if res.MatchedCount == 0 {
		return utils.NotFoundError("booking %s not found", bookingID)
	}
	return nil
}

func (r *MongoBookingRepo) FindStalePending(ctx context.Context, cutoff time.Time, limit int64) ([]models.Booking, error) {
	filter := bson.M{
		"status":      bson.M{"$in": []models.BookingStatus{models.StatusPending, models.StatusConfirmed}},
		"created_at":  bson.M{"$lte": cutoff},
		"provider_id": bson.M{"$exists": false},
	}
	opts := options.Find().SetSort(bson.M{"created_at": 1}).SetLimit(limit)
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale pending bookings: %w", err)
	}
	defer cursor.Close(ctx)
	var out []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}
