package geo

import (
	"fmt"
	"math"
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Checkpoint is a fixed, read-only reference location.
type Checkpoint struct {
	Label      string `json:"label" yaml:"label"`
	Coordinate `yaml:",inline"`
}

// DefaultCheckpoints returns the built-in reference locations used when the
// configuration does not define its own.
func DefaultCheckpoints() []Checkpoint {
	return []Checkpoint{
		{Label: "Hässelby strand", Coordinate: Coordinate{Latitude: 59.361081, Longitude: 17.832173}},
		{Label: "Equmenia Hässelby", Coordinate: Coordinate{Latitude: 59.377278, Longitude: 17.821176}},
		{Label: "Norrmalmskyrkan", Coordinate: Coordinate{Latitude: 59.345013, Longitude: 18.048704}},
		{Label: "Sergels torg", Coordinate: Coordinate{Latitude: 59.332085, Longitude: 18.064205}},
	}
}

// earthRadiusKm is the mean Earth radius used by the haversine formula.
// The spherical-Earth assumption is good to roughly 0.5%.
const earthRadiusKm = 6371

// Haversine returns the great-circle distance between two coordinates in
// kilometres.
func Haversine(a, b Coordinate) float64 {
	dLat := deg2rad(b.Latitude - a.Latitude)
	dLon := deg2rad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(a.Latitude))*math.Cos(deg2rad(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

func deg2rad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

// CheckpointDistance pairs a checkpoint with the distance to it. Kilometers
// keeps full precision; Display is rounded to two decimals.
type CheckpointDistance struct {
	Label      string  `json:"label"`
	Kilometers float64 `json:"kilometers"`
	Display    string  `json:"display"`
}

// DistancesFrom computes the distance from pos to each checkpoint, in
// checkpoint order.
func DistancesFrom(pos Coordinate, checkpoints []Checkpoint) []CheckpointDistance {
	if len(checkpoints) == 0 {
		return nil
	}
	out := make([]CheckpointDistance, 0, len(checkpoints))
	for _, cp := range checkpoints {
		km := Haversine(pos, cp.Coordinate)
		out = append(out, CheckpointDistance{
			Label:      cp.Label,
			Kilometers: km,
			Display:    fmt.Sprintf("%.2f km", km),
		})
	}
	return out
}
