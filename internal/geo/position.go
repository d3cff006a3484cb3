package geo

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for all distance math.
const EarthRadiusMeters = 6371000.0

// Position is a point on the Earth's surface in signed decimal degrees.
// It is encoded on the wire as a two-element [lat, lng] array.
type Position struct {
	Lat float64
	Lng float64
}

// Valid reports whether the coordinates are within the WGS84 domain.
func (p Position) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// MarshalJSON encodes the position as [lat, lng].
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lng})
}

// UnmarshalJSON decodes a two-element numeric [lat, lng] array. Anything
// else is rejected so malformed remote records can be filtered out.
func (p *Position) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("position must be a numeric pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("position must have exactly 2 elements, got %d", len(pair))
	}
	p.Lat, p.Lng = pair[0], pair[1]
	return nil
}

// Distance returns the great-circle distance between two positions in
// meters. Every containment check in the engine goes through this single
// function so the boundary is computed identically for all callers.
func Distance(a, b Position) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}
