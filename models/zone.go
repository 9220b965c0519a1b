package models

// ZoneType distinguishes city-level zones from wider regional ones.
type ZoneType string

const (
	ZoneLocal    ZoneType = "local"
	ZoneRegional ZoneType = "regional"
)

// ServiceZone is a named circular geographic region used for provider
// authorization and inter-regional pricing. Seeded by configuration;
// read-only at runtime.
type ServiceZone struct {
	ID       string   `bson:"id" json:"id"`
	Name     string   `bson:"name" json:"name"`
	Center   GeoPoint `bson:"center" json:"center"`
	RadiusKm float64  `bson:"radius_km" json:"radius_km"`
	Type     ZoneType `bson:"type" json:"type"`
	Priority int      `bson:"priority" json:"priority"`
	Active   bool     `bson:"active" json:"active"`
}

// InterRegionalRoute is an admin-configured corridor between two zones.
// A booking crossing zones is only allowed when a route exists.
type InterRegionalRoute struct {
	ID               string  `bson:"id" json:"id"`
	OriginZoneID     string  `bson:"origin_zone_id" json:"origin_zone_id"`
	DestZoneID       string  `bson:"dest_zone_id" json:"dest_zone_id"`
	Fee              float64 `bson:"fee" json:"fee"`
	ApprovalRequired bool    `bson:"approval_required" json:"approval_required"`
	Active           bool    `bson:"active" json:"active"`
}

// InterRegionalEligibility is the resolver's answer for a pickup/dropoff pair.
type InterRegionalEligibility struct {
	Allowed          bool         `json:"allowed"`
	OriginZone       *ServiceZone `json:"origin_zone,omitempty"`
	DestinationZone  *ServiceZone `json:"destination_zone,omitempty"`
	Fee              float64      `json:"fee"`
	ApprovalRequired bool         `json:"approval_required"`
	Reason           string       `json:"reason,omitempty"`
}
