package geo

import (
	"math"

	"ridelink/models"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(a, b models.GeoPoint) float64 {
	dLat := (b.Lat - a.Lat) * (math.Pi / 180)
	dLng := (b.Lng - a.Lng) * (math.Pi / 180)
	lat1 := a.Lat * (math.Pi / 180)
	lat2 := b.Lat * (math.Pi / 180)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// EtaMinutes is a straight-line travel-time estimate at the given average
// speed. Road routing is out of scope; this is the same approximation the
// mobile clients display.
func EtaMinutes(a, b models.GeoPoint, avgSpeedKmh float64) float64 {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = 40
	}
	return HaversineKm(a, b) / avgSpeedKmh * 60
}

// BearingDeg returns the initial bearing from a to b in degrees [0, 360).
func BearingDeg(a, b models.GeoPoint) float64 {
	lat1 := a.Lat * (math.Pi / 180)
	lat2 := b.Lat * (math.Pi / 180)
	dLng := (b.Lng - a.Lng) * (math.Pi / 180)
	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	deg := math.Atan2(y, x) * (180 / math.Pi)
	return math.Mod(deg+360, 360)
}

// BearingDiffDeg returns the shorter-arc angular difference between two
// bearings, in [0, 180].
func BearingDiffDeg(b1, b2 float64) float64 {
	d := math.Abs(b1 - b2)
	if d > 180 {
		d = 360 - d
	}
	return d
}
