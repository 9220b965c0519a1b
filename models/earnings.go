package models

import "time"

// EarningRecord is one ledger row appended when a booking completes.
// Week and month buckets back the provider earnings summaries.
type EarningRecord struct {
	ID          string      `bson:"id" json:"id"`
	ProviderID  string      `bson:"provider_id" json:"provider_id"`
	BookingID   string      `bson:"booking_id" json:"booking_id"`
	Kind        ServiceKind `bson:"kind" json:"kind"`
	Amount      float64     `bson:"amount" json:"amount"`
	Commission  float64     `bson:"commission" json:"commission"`
	Net         float64     `bson:"net" json:"net"`
	WeekBucket  string      `bson:"week_bucket" json:"week_bucket"`   // ISO year-week, e.g. "2026-W36"
	MonthBucket string      `bson:"month_bucket" json:"month_bucket"` // e.g. "2026-09"
	CreatedAt   time.Time   `bson:"created_at" json:"created_at"`
}
