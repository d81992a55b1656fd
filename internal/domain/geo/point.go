package geo

import (
	"errors"
	"math"
)

// Point is a WGS84 coordinate pair resolved by the geocoding service.
type Point struct {
	Latitude  float64
	Longitude float64
}

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// MinRouteSeparationMeters guards against degenerate routes: two addresses
// that geocode closer than this are treated as the same place.
const MinRouteSeparationMeters = 50.0

// NewPoint validates the coordinate ranges and returns a Point.
func NewPoint(latitude, longitude float64) (Point, error) {
	if latitude < -90 || latitude > 90 {
		return Point{}, ErrInvalidLatitude
	}
	if longitude < -180 || longitude > 180 {
		return Point{}, ErrInvalidLongitude
	}
	return Point{Latitude: latitude, Longitude: longitude}, nil
}

// HaversineKM returns the great-circle distance between two points in kilometers.
func HaversineKM(a, b Point) float64 {
	const R = 6371.0 // Earth radius in km
	a1 := a.Latitude * math.Pi / 180
	a2 := b.Latitude * math.Pi / 180
	da := (b.Latitude - a.Latitude) * math.Pi / 180
	db := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(da/2)*math.Sin(da/2) +
		math.Cos(a1)*math.Cos(a2)*math.Sin(db/2)*math.Sin(db/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return R * c
}

// TooClose reports whether two points are within MinRouteSeparationMeters.
func TooClose(a, b Point) bool {
	return HaversineKM(a, b)*1000.0 < MinRouteSeparationMeters
}
