// Package geo provides the great-circle math used by trip progress and
// analytics. All functions are pure and safe for concurrent use.
package geo

import "math"

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between two
// latitude/longitude points.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// ETAMinutes estimates travel time for distanceKm at speedKmh, with
// bufferPct percent added on top for traffic. A zero or negative speed
// falls back to fallbackSpeedKmh so the result is always finite.
func ETAMinutes(distanceKm, speedKmh, fallbackSpeedKmh, bufferPct float64) int {
	if speedKmh <= 0 {
		speedKmh = fallbackSpeedKmh
	}
	if speedKmh <= 0 {
		return 0
	}

	minutes := distanceKm / speedKmh * 60
	minutes *= 1 + bufferPct/100

	return int(math.Round(minutes))
}

// Bearing returns the initial compass bearing in degrees [0,360) from the
// first point toward the second.
func Bearing(lat1, lng1, lat2, lng2 float64) float64 {
	dLng := toRad(lng2 - lng1)
	y := math.Sin(dLng) * math.Cos(toRad(lat2))
	x := math.Cos(toRad(lat1))*math.Sin(toRad(lat2)) -
		math.Sin(toRad(lat1))*math.Cos(toRad(lat2))*math.Cos(dLng)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// IsValidLatitude reports whether lat is a usable latitude.
func IsValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

// IsValidLongitude reports whether lng is a usable longitude.
func IsValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
