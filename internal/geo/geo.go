// Package geo implements the proximity policy shared by customer
// check-in and staff clock-in: haversine distance, coordinate
// validation and the accuracy-aware radius decision.
package geo

import (
	"fmt"
	"math"
	"time"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// Coordinate is an immutable WGS84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Fix is a single device location reading. Accuracy is the sensor's own
// uncertainty radius in meters.
type Fix struct {
	Coordinate
	AccuracyMeters float64   `json:"accuracy_meters"`
	CapturedAt     time.Time `json:"captured_at"`
}

// Valid reports whether the coordinate is inside WGS84 ranges and not NaN.
func (c Coordinate) Valid() bool {
	return IsValidCoordinate(c.Latitude, c.Longitude)
}

// IsValidCoordinate rejects NaN and out-of-range values. Callers must run
// this before any distance or radius check; a glitching sensor reporting
// (0,0) is a valid coordinate, but NaN or 91 degrees latitude is not.
func IsValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// DistanceMeters returns the great-circle distance between two points.
// Inputs are not validated here; NaN propagates.
func DistanceMeters(a, b Coordinate) float64 {
	latA := radians(a.Latitude)
	latB := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLng := radians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLng*sinLng

	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadiusDecision is the outcome of one proximity check.
type RadiusDecision struct {
	Within bool `json:"within"`
	// DistanceMeters is set whenever both coordinates were valid.
	DistanceMeters float64 `json:"distance_meters,omitempty"`
	// LowConfidence is a usability hint, not a rejection: the sensor's
	// accuracy exceeded the acceptance radius and the user should move
	// to better signal, but the accept decision stays geometric.
	LowConfidence bool   `json:"low_confidence,omitempty"`
	Message       string `json:"message,omitempty"`
}

// CheckWithinRadius decides whether a fix is acceptable against a site
// coordinate and radius. A nil fix (sensor denied, unavailable or timed
// out) and invalid coordinates are non-within outcomes with user-facing
// messages; they carry no distance.
func CheckWithinRadius(fix *Fix, site Coordinate, radiusMeters float64) RadiusDecision {
	if fix == nil {
		return RadiusDecision{
			Within:  false,
			Message: "location unavailable, enable location services and try again",
		}
	}
	if !fix.Valid() || !site.Valid() {
		return RadiusDecision{
			Within:  false,
			Message: "invalid coordinates",
		}
	}

	distance := DistanceMeters(fix.Coordinate, site)
	decision := RadiusDecision{
		Within:         distance <= radiusMeters,
		DistanceMeters: distance,
	}

	if fix.AccuracyMeters > radiusMeters {
		decision.LowConfidence = true
		decision.Message = "GPS accuracy is low here, move to an area with better signal"
		return decision
	}

	if !decision.Within {
		decision.Message = fmt.Sprintf(
			"you are about %.0fm away, check-ins must be within %.0fm",
			distance, radiusMeters,
		)
	}
	return decision
}
