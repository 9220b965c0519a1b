package models

// ServiceKind distinguishes the marketplace verticals.
type ServiceKind string

const (
	KindRide        ServiceKind = "ride"
	KindTaxi        ServiceKind = "taxi"
	KindDelivery    ServiceKind = "dispatch_delivery"
	KindSharedRide  ServiceKind = "shared_ride"
	KindDayBooking  ServiceKind = "day_booking"
	KindHouseMoving ServiceKind = "house_moving"
)

// ValidServiceKind reports whether k is one of the supported verticals.
func ValidServiceKind(k ServiceKind) bool {
	switch k {
	case KindRide, KindTaxi, KindDelivery, KindSharedRide, KindDayBooking, KindHouseMoving:
		return true
	}
	return false
}
