package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	meredith = Coordinate{Latitude: 43.6578, Longitude: -71.5003}
	boston   = Coordinate{Latitude: 42.3601, Longitude: -71.0589}
	sydney   = Coordinate{Latitude: -33.8688, Longitude: 151.2093}
	nullIsle = Coordinate{}
)

func TestDistanceMeters_Symmetric(t *testing.T) {
	pairs := [][2]Coordinate{
		{meredith, boston},
		{boston, sydney},
		{nullIsle, sydney},
		{{Latitude: 89.9, Longitude: 179.9}, {Latitude: -89.9, Longitude: -179.9}},
	}

	for _, p := range pairs {
		require.Equal(t, DistanceMeters(p[0], p[1]), DistanceMeters(p[1], p[0]))
	}
}

func TestDistanceMeters_ZeroForSamePoint(t *testing.T) {
	for _, c := range []Coordinate{meredith, boston, sydney, nullIsle} {
		require.Zero(t, DistanceMeters(c, c))
	}
}

func TestDistanceMeters_KnownValues(t *testing.T) {
	// One degree of latitude along a meridian is R*pi/180.
	got := DistanceMeters(nullIsle, Coordinate{Latitude: 1})
	require.InDelta(t, EarthRadiusMeters*math.Pi/180, got, 1e-6)

	// Meredith, NH to Boston, MA is roughly 148 km.
	require.InDelta(t, 148000, DistanceMeters(meredith, boston), 2000)
}

func TestDistanceMeters_MonotonicAlongMeridian(t *testing.T) {
	prev := 0.0
	for lat := 0.5; lat < 90; lat += 0.5 {
		d := DistanceMeters(nullIsle, Coordinate{Latitude: lat})
		require.Greater(t, d, prev)
		prev = d
	}
}

func TestVerify_NilFence(t *testing.T) {
	v := Verify(meredith, nil)
	require.True(t, v.Verified)
	require.Nil(t, v.DistanceMeters)
}

func TestVerify_InsideAndOutside(t *testing.T) {
	fence := &Geofence{Center: meredith, RadiusMeters: 50}

	v := Verify(meredith, fence)
	require.True(t, v.Verified)
	require.NotNil(t, v.DistanceMeters)
	require.Zero(t, *v.DistanceMeters)

	v = Verify(boston, fence)
	require.False(t, v.Verified)
	require.Greater(t, *v.DistanceMeters, 50.0)
}

func TestVerify_BoundaryIsInclusive(t *testing.T) {
	claimed := Coordinate{Latitude: 43.6582, Longitude: -71.5003}
	d := DistanceMeters(claimed, meredith)

	v := Verify(claimed, &Geofence{Center: meredith, RadiusMeters: d})
	require.True(t, v.Verified)
	require.Equal(t, d, *v.DistanceMeters)
}

func TestVerify_MonotonicInRadius(t *testing.T) {
	claimed := Coordinate{Latitude: 43.6600, Longitude: -71.5003}
	d := DistanceMeters(claimed, meredith)

	for _, radius := range []float64{1, d / 2, d - 0.001, d, d + 0.001, 2 * d, 10000} {
		small := Verify(claimed, &Geofence{Center: meredith, RadiusMeters: radius})
		large := Verify(claimed, &Geofence{Center: meredith, RadiusMeters: radius * 2})

		// Growing the radius never turns an accepted claim into a rejected one.
		if small.Verified {
			require.True(t, large.Verified, "radius %f", radius)
		}
		// Shrinking never turns a rejection into an acceptance.
		if !large.Verified {
			require.False(t, small.Verified, "radius %f", radius)
		}
	}
}

func TestCoordinateValid(t *testing.T) {
	tests := []struct {
		name string
		c    Coordinate
		want bool
	}{
		{"origin", nullIsle, true},
		{"poles", Coordinate{Latitude: 90, Longitude: 180}, true},
		{"lat too high", Coordinate{Latitude: 90.0001}, false},
		{"lon too low", Coordinate{Longitude: -180.0001}, false},
		{"nan", Coordinate{Latitude: math.NaN()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.c.Valid())
		})
	}
}

func TestGeofenceValid(t *testing.T) {
	require.True(t, Geofence{Center: meredith, RadiusMeters: 50}.Valid())
	require.False(t, Geofence{Center: meredith}.Valid())
	require.False(t, Geofence{Center: meredith, RadiusMeters: -1}.Valid())
	require.False(t, Geofence{Center: Coordinate{Latitude: 100}, RadiusMeters: 50}.Valid())
}
