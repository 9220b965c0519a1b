package models

import "time"

// TrackingEvent is one provider position sample recorded against an active
// booking. Pings are advisory: last-write-wins, out-of-order accepted.
type TrackingEvent struct {
	ID         string   `bson:"id" json:"id"`
	BookingID  string   `bson:"booking_id" json:"booking_id"`
	ProviderID string   `bson:"provider_id" json:"provider_id"`
	Location   GeoPoint `bson:"location" json:"location"`
	EtaMin     float64  `bson:"eta_min" json:"eta_min"`
	RecordedAt time.Time `bson:"recorded_at" json:"recorded_at"`
}
