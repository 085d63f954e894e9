package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var manchesterShop = Coordinate{Latitude: 53.4808, Longitude: -2.2426}

func TestDistanceMeters_Symmetric(t *testing.T) {
	a := Coordinate{Latitude: 53.4808, Longitude: -2.2426}
	b := Coordinate{Latitude: 51.5074, Longitude: -0.1278}

	assert.InDelta(t, DistanceMeters(a, b), DistanceMeters(b, a), 1e-6)
	assert.Zero(t, DistanceMeters(a, a))
	assert.Zero(t, DistanceMeters(b, b))
}

func TestDistanceMeters_KnownDistances(t *testing.T) {
	// ~20m east of the shop.
	near := Coordinate{Latitude: 53.4808, Longitude: -2.2429}
	assert.InDelta(t, 20, DistanceMeters(manchesterShop, near), 3)

	// ~222m north of the shop.
	far := Coordinate{Latitude: 53.4828, Longitude: -2.2426}
	assert.InDelta(t, 222, DistanceMeters(manchesterShop, far), 3)

	// Manchester to London, ~262km.
	london := Coordinate{Latitude: 51.5074, Longitude: -0.1278}
	assert.InDelta(t, 262000, DistanceMeters(manchesterShop, london), 5000)
}

func TestDistanceMeters_NaNPropagates(t *testing.T) {
	nan := Coordinate{Latitude: math.NaN(), Longitude: 0}
	assert.True(t, math.IsNaN(DistanceMeters(nan, manchesterShop)))
}

func TestIsValidCoordinate(t *testing.T) {
	assert.True(t, IsValidCoordinate(53.4808, -2.2426))
	assert.True(t, IsValidCoordinate(0, 0))
	assert.True(t, IsValidCoordinate(-90, 180))

	assert.False(t, IsValidCoordinate(90.0001, 0))
	assert.False(t, IsValidCoordinate(0, -180.0001))
	assert.False(t, IsValidCoordinate(math.NaN(), 0))
	assert.False(t, IsValidCoordinate(0, math.NaN()))
}

func TestCheckWithinRadius_NilFix(t *testing.T) {
	decision := CheckWithinRadius(nil, manchesterShop, 50)
	assert.False(t, decision.Within)
	assert.Contains(t, decision.Message, "location unavailable")
}

func TestCheckWithinRadius_InvalidCoordinates(t *testing.T) {
	fix := &Fix{Coordinate: Coordinate{Latitude: math.NaN(), Longitude: -2.2426}}
	decision := CheckWithinRadius(fix, manchesterShop, 50)
	assert.False(t, decision.Within)
	assert.Equal(t, "invalid coordinates", decision.Message)

	decision = CheckWithinRadius(&Fix{Coordinate: manchesterShop}, Coordinate{Latitude: 120, Longitude: 0}, 50)
	assert.False(t, decision.Within)
	assert.Equal(t, "invalid coordinates", decision.Message)
}

func TestCheckWithinRadius_NearFix(t *testing.T) {
	fix := &Fix{
		Coordinate:     Coordinate{Latitude: 53.4808, Longitude: -2.2429},
		AccuracyMeters: 15,
	}
	decision := CheckWithinRadius(fix, manchesterShop, 50)
	assert.True(t, decision.Within)
	assert.False(t, decision.LowConfidence)
	assert.Empty(t, decision.Message)
	assert.InDelta(t, 20, decision.DistanceMeters, 3)
}

func TestCheckWithinRadius_OutsideReportsDistanceAndLimit(t *testing.T) {
	fix := &Fix{
		Coordinate:     Coordinate{Latitude: 53.4828, Longitude: -2.2426},
		AccuracyMeters: 15,
	}
	decision := CheckWithinRadius(fix, manchesterShop, 50)
	assert.False(t, decision.Within)
	assert.Contains(t, decision.Message, "222m away")
	assert.Contains(t, decision.Message, "within 50m")
}

func TestCheckWithinRadius_AtSiteAlwaysWithin(t *testing.T) {
	for _, radius := range []float64{30, 50, 100, 200} {
		for _, accuracy := range []float64{5, 50, 500} {
			fix := &Fix{Coordinate: manchesterShop, AccuracyMeters: accuracy}
			decision := CheckWithinRadius(fix, manchesterShop, radius)
			assert.True(t, decision.Within, "radius=%v accuracy=%v", radius, accuracy)
		}
	}
}

func TestCheckWithinRadius_LowAccuracyIsHintNotRejection(t *testing.T) {
	// Accuracy worse than the radius: still accepted geometrically,
	// but flagged low confidence.
	near := &Fix{
		Coordinate:     Coordinate{Latitude: 53.4808, Longitude: -2.2429},
		AccuracyMeters: 80,
	}
	decision := CheckWithinRadius(near, manchesterShop, 50)
	assert.True(t, decision.Within)
	assert.True(t, decision.LowConfidence)
	assert.Contains(t, decision.Message, "better signal")

	// And an out-of-radius fix stays rejected even with poor accuracy.
	far := &Fix{
		Coordinate:     Coordinate{Latitude: 53.4828, Longitude: -2.2426},
		AccuracyMeters: 80,
	}
	decision = CheckWithinRadius(far, manchesterShop, 50)
	assert.False(t, decision.Within)
	assert.True(t, decision.LowConfidence)
}
