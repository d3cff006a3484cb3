package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Position
		expected float64
		delta    float64
	}{
		{"same point", Position{42.0, 23.0}, Position{42.0, 23.0}, 0, 0.001},
		{"one degree of latitude", Position{42.0, 23.0}, Position{43.0, 23.0}, 111195, 50},
		{"small northward step", Position{42.0, 23.0}, Position{42.001, 23.0}, 111.2, 1},
		{"equatorial degree of longitude", Position{0, 0}, Position{0, 1}, 111195, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Distance(tt.a, tt.b), tt.delta)
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := Position{42.6977, 23.3219}
	b := Position{42.1354, 24.7453}
	assert.Equal(t, Distance(a, b), Distance(b, a))
}

func TestPosition_Valid(t *testing.T) {
	tests := []struct {
		name string
		pos  Position
		want bool
	}{
		{"origin", Position{0, 0}, true},
		{"poles", Position{90, 0}, true},
		{"latitude overflow", Position{90.1, 0}, false},
		{"longitude overflow", Position{0, 180.5}, false},
		{"both negative bounds", Position{-90, -180}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pos.Valid())
		})
	}
}

func TestPosition_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Position{42.0, 23.0})
	require.NoError(t, err)
	assert.JSONEq(t, `[42.0, 23.0]`, string(data))

	var p Position
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, Position{42.0, 23.0}, p)
}

func TestPosition_UnmarshalRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"object", `{"lat": 42, "lng": 23}`},
		{"single element", `[42.0]`},
		{"three elements", `[42.0, 23.0, 7.0]`},
		{"strings", `["42", "23"]`},
		{"bare number", `1`},
		{"null", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Position
			assert.Error(t, json.Unmarshal([]byte(tt.data), &p))
		})
	}
}
