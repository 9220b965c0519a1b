package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"ridelink/database"
	"ridelink/models"
)

// ZoneRepository reads the zone catalogue and inter-regional corridors.
// Zones are configuration data: seeded out of band, read-only here.
type ZoneRepository interface {
	ListActive(ctx context.Context) ([]models.ServiceZone, error)
	FindRoute(ctx context.Context, originZoneID, destZoneID string) (*models.InterRegionalRoute, error)
}

// MongoZoneRepo implements ZoneRepository using MongoDB.
type MongoZoneRepo struct {
	zones  *mongo.Collection
	routes *mongo.Collection
}

func NewMongoZoneRepo() ZoneRepository {
	return &MongoZoneRepo{
		zones:  database.Collection("service_zones"),
		routes: database.Collection("inter_regional_routes"),
	}
}

func (r *MongoZoneRepo) ListActive(ctx context.Context) ([]models.ServiceZone, error) {
	cursor, err := r.zones.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list active zones: %w", err)
	}
	defer cursor.Close(ctx)
	var zones []models.ServiceZone
	for cursor.Next(ctx) {
		var z models.ServiceZone
		if err := cursor.Decode(&z); err != nil {
			return nil, fmt.Errorf("failed to decode zone: %w", err)
		}
		zones = append(zones, z)
	}
	return zones, nil
}

// FindRoute returns nil without error when no corridor is configured.
func (r *MongoZoneRepo) FindRoute(ctx context.Context, originZoneID, destZoneID string) (*models.InterRegionalRoute, error) {
	filter := bson.M{
		"origin_zone_id": originZoneID,
		"dest_zone_id":   destZoneID,
		"active":         true,
	}
	var route models.InterRegionalRoute
	if err := r.routes.FindOne(ctx, filter).Decode(&route); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch inter-regional route: %w", err)
	}
	return &route, nil
}
