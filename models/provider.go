package models

import "time"

// Provider is the matching-relevant snapshot of a mobile service provider.
// Account, vehicle and document management live in the accounts system; the
// dispatch core only reads these fields and flips availability.
type Provider struct {
	ID     string `bson:"id" json:"id"`
	Name   string `bson:"name" json:"name"`
	Rating float64 `bson:"rating" json:"rating"`

	ServiceKinds []ServiceKind `bson:"service_kinds" json:"service_kinds"`

	Online    bool `bson:"online" json:"online"`
	Available bool `bson:"available" json:"available"`

	// OperatingZoneIDs is the declared zone set. Empty means unrestricted.
	OperatingZoneIDs []string `bson:"operating_zone_ids,omitempty" json:"operating_zone_ids,omitempty"`
	InterRegional    bool     `bson:"inter_regional" json:"inter_regional"`

	LastLocation   GeoPoint  `bson:"last_location" json:"last_location"`
	LocationSeenAt time.Time `bson:"location_seen_at" json:"location_seen_at"`

	FCMToken string `bson:"fcm_token,omitempty" json:"-"`
}

// ServesKind reports whether the provider operates the given vertical.
func (p *Provider) ServesKind(k ServiceKind) bool {
	for _, sk := range p.ServiceKinds {
		if sk == k {
			return true
		}
	}
	return false
}

// CoversZone reports whether the provider may pick up in the given zone.
// An empty operating set means the provider is unrestricted.
func (p *Provider) CoversZone(zoneID string) bool {
	if len(p.OperatingZoneIDs) == 0 {
		return true
	}
	for _, id := range p.OperatingZoneIDs {
		if id == zoneID {
			return true
		}
	}
	return false
}
