package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed" // scheduled booking awaiting its window; pending-equivalent for matching
	StatusAssigned   BookingStatus = "assigned"
	StatusArrived    BookingStatus = "arrived"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
)

// Terminal reports whether the status ends the lifecycle.
func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Matchable reports whether the booking may still be offered to providers.
func (s BookingStatus) Matchable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Booking is a single service request moving from creation to completion
// or cancellation. Mutated only through the lifecycle service; never deleted.
type Booking struct {
	ID         string  `bson:"id" json:"id"`
	CustomerID string  `bson:"customer_id" json:"customer_id"`
	ProviderID *string `bson:"provider_id,omitempty" json:"provider_id,omitempty"`

	Kind   ServiceKind   `bson:"kind" json:"kind"`
	Status BookingStatus `bson:"status" json:"status"`

	Pickup  GeoPoint `bson:"pickup" json:"pickup"`
	Dropoff GeoPoint `bson:"dropoff" json:"dropoff"`

	ScheduledAt *time.Time `bson:"scheduled_at,omitempty" json:"scheduled_at,omitempty"`

	EstimatedPrice  float64  `bson:"estimated_price" json:"estimated_price"`
	FinalPrice      *float64 `bson:"final_price,omitempty" json:"final_price,omitempty"`
	Commission      float64  `bson:"commission" json:"commission"`
	ProviderEarning float64  `bson:"provider_earning" json:"provider_earning"`

	ServiceData ServiceData `bson:"service_data" json:"service_data"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	AcceptedAt  *time.Time `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	StartedAt   *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`

	CancelledBy        ActorRole `bson:"cancelled_by,omitempty" json:"cancelled_by,omitempty"`
	CancellationReason string    `bson:"cancellation_reason,omitempty" json:"cancellation_reason,omitempty"`
	CancellationFee    float64   `bson:"cancellation_fee,omitempty" json:"cancellation_fee,omitempty"`
}

// ServiceData carries kind-specific attributes as a typed union: exactly the
// field matching Booking.Kind is set. Replaces the untyped blob the clients
// used to send.
type ServiceData struct {
	Ride          *RideData          `bson:"ride,omitempty" json:"ride,omitempty"`
	SharedRide    *SharedRideData    `bson:"shared_ride,omitempty" json:"shared_ride,omitempty"`
	InterRegional *InterRegionalData `bson:"inter_regional,omitempty" json:"inter_regional,omitempty"`
	Moving        *MovingData        `bson:"moving,omitempty" json:"moving,omitempty"`
}

// RideData covers ride, taxi and dispatch-delivery requests.
type RideData struct {
	VehicleClass   string  `bson:"vehicle_class,omitempty" json:"vehicle_class,omitempty"`
	PassengerCount int     `bson:"passenger_count,omitempty" json:"passenger_count,omitempty"`
	ParcelNote     string  `bson:"parcel_note,omitempty" json:"parcel_note,omitempty"`
	DistanceKm     float64 `bson:"distance_km" json:"distance_km"`
	DurationMin    float64 `bson:"duration_min" json:"duration_min"`
}

// SharedRideData links a booking to its pool group.
type SharedRideData struct {
	GroupID          string  `bson:"group_id,omitempty" json:"group_id,omitempty"`
	AwaitingPartners bool    `bson:"awaiting_partners" json:"awaiting_partners"`
	SharePrice       float64 `bson:"share_price" json:"share_price"`
}

// InterRegionalData records the zone pair and surcharge for cross-zone trips.
type InterRegionalData struct {
	OriginZoneID      string  `bson:"origin_zone_id" json:"origin_zone_id"`
	DestinationZoneID string  `bson:"destination_zone_id" json:"destination_zone_id"`
	Surcharge         float64 `bson:"surcharge" json:"surcharge"`
	ApprovalRequired  bool    `bson:"approval_required" json:"approval_required"`
}

// MovingData is the inventory payload for house-moving bookings.
type MovingData struct {
	Rooms     int      `bson:"rooms,omitempty" json:"rooms,omitempty"`
	Inventory []string `bson:"inventory,omitempty" json:"inventory,omitempty"`
	Helpers   int      `bson:"helpers,omitempty" json:"helpers,omitempty"`
}

// InterRegional reports whether the booking crosses zones.
func (b *Booking) InterRegional() bool {
	return b.ServiceData.InterRegional != nil
}

// CompletionActuals are the measured figures a provider reports at drop-off.
// Zero values fall back to the estimate.
type CompletionActuals struct {
	FinalPrice  float64 `json:"final_price,omitempty"`
	DistanceKm  float64 `json:"distance_km,omitempty"`
	DurationMin float64 `json:"duration_min,omitempty"`
}
