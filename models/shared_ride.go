package models

import "time"

// SharedRideGroup pools compatible shared-ride bookings onto one trip and
// splits the total price among members. The leader's route anchors the
// similarity comparison for late joiners.
type SharedRideGroup struct {
	ID              string    `bson:"id" json:"id"`
	LeaderBookingID string    `bson:"leader_booking_id" json:"leader_booking_id"`
	MemberBookings  []string  `bson:"member_bookings" json:"member_bookings"`
	Pickup          GeoPoint  `bson:"pickup" json:"pickup"`
	Dropoff         GeoPoint  `bson:"dropoff" json:"dropoff"`
	TotalPrice      float64   `bson:"total_price" json:"total_price"`
	MaxCapacity     int       `bson:"max_capacity" json:"max_capacity"`
	Open            bool      `bson:"open" json:"open"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}

// Occupancy is the current member count.
func (g *SharedRideGroup) Occupancy() int {
	return len(g.MemberBookings)
}

// Full reports whether the group reached capacity.
func (g *SharedRideGroup) Full() bool {
	return len(g.MemberBookings) >= g.MaxCapacity
}

// GroupMatch annotates a candidate group with its similarity score.
type GroupMatch struct {
	Group     SharedRideGroup `json:"group"`
	Score     float64         `json:"score"`
	Occupancy int             `json:"occupancy"`
	Capacity  int             `json:"capacity"`
}
