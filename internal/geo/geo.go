// Package geo holds the geodesy helpers and the geofence verification rule
// shared by check-ins, business check-ins and quest steps.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by DistanceMeters.
const EarthRadiusMeters = 6371000.0

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate lies within [-90,90] / [-180,180].
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Geofence is a circular region around Center.
type Geofence struct {
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius_meters"`
}

// Valid reports whether the fence has a valid center and a positive radius.
func (g Geofence) Valid() bool {
	return g.Center.Valid() && g.RadiusMeters > 0 && !math.IsInf(g.RadiusMeters, 0)
}

// DistanceMeters returns the great-circle distance between a and b using the
// haversine formula. Inputs are not range checked.
func DistanceMeters(a, b Coordinate) float64 {
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(radians(a.Latitude))*math.Cos(radians(b.Latitude))*sinLon*sinLon

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Verification is the outcome of checking a claimed position against a fence.
// DistanceMeters is nil when no fence was required.
type Verification struct {
	Verified       bool     `json:"verified"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

// Verify decides whether claimed lies inside fence. A nil fence means presence
// is not required and the claim is always accepted. The boundary is inclusive.
func Verify(claimed Coordinate, fence *Geofence) Verification {
	if fence == nil {
		return Verification{Verified: true}
	}

	d := DistanceMeters(claimed, fence.Center)
	return Verification{
		Verified:       d <= fence.RadiusMeters,
		DistanceMeters: &d,
	}
}
