package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHaversine_Symmetric(t *testing.T) {
	cps := DefaultCheckpoints()
	for i, a := range cps {
		for j, b := range cps {
			if i == j {
				continue
			}
			d1 := Haversine(a.Coordinate, b.Coordinate)
			d2 := Haversine(b.Coordinate, a.Coordinate)
			require.InDelta(t, d1, d2, 1e-9, "%s vs %s", a.Label, b.Label)
		}
	}
}

func TestHaversine_SelfDistanceIsZero(t *testing.T) {
	for _, cp := range DefaultCheckpoints() {
		require.InDelta(t, 0, Haversine(cp.Coordinate, cp.Coordinate), 1e-9, cp.Label)
	}
}

func TestHaversine_SergelsTorgToNorrmalmskyrkan(t *testing.T) {
	// Regression baseline for the city-centre checkpoint pair.
	sergels := Coordinate{Latitude: 59.332085, Longitude: 18.064205}
	norrmalm := Coordinate{Latitude: 59.345013, Longitude: 18.048704}
	require.InDelta(t, 1.6849664730296692, Haversine(sergels, norrmalm), 1e-9)
}

func TestDefaultCheckpoints(t *testing.T) {
	cps := DefaultCheckpoints()
	require.Len(t, cps, 4)
	require.Equal(t, "Hässelby strand", cps[0].Label)
	require.Equal(t, "Sergels torg", cps[3].Label)
	for _, cp := range cps {
		require.NotZero(t, cp.Latitude)
		require.NotZero(t, cp.Longitude)
	}
}

func TestDistancesFrom(t *testing.T) {
	cps := DefaultCheckpoints()
	pos := cps[3].Coordinate // Sergels torg

	dists := DistancesFrom(pos, cps)
	require.Len(t, dists, 4)
	require.Equal(t, "Sergels torg", dists[3].Label)
	require.InDelta(t, 0, dists[3].Kilometers, 1e-9)
	require.Equal(t, "0.00 km", dists[3].Display)
	require.Equal(t, "1.68 km", dists[2].Display) // Norrmalmskyrkan

	require.Nil(t, DistancesFrom(pos, nil))
}
