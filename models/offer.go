package models

import "time"

// OfferStatus is the state of one dispatch invitation.
type OfferStatus string

const (
	OfferOffered  OfferStatus = "offered"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
	OfferExpired  OfferStatus = "expired"
)

// DriverOffer is a time-boxed invitation for one candidate provider to claim
// a booking. Offers are ephemeral: they live in redis for the acceptance
// window plus a short grace period.
type DriverOffer struct {
	ID         string      `json:"id"`
	BookingID  string      `json:"booking_id"`
	ProviderID string      `json:"provider_id"`
	Rank       int         `json:"rank"`
	DistanceKm float64     `json:"distance_km"`
	Status     OfferStatus `json:"status"`
	IssuedAt   time.Time   `json:"issued_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
	Reason     string      `json:"reason,omitempty"`
}

// Lapsed reports whether the acceptance window has passed.
func (o *DriverOffer) Lapsed(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
