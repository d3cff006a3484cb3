package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonehunt/zonehunt-server/internal/geo"
)

func TestRole_String(t *testing.T) {
	assert.Equal(t, "hider", RoleHider.String())
	assert.Equal(t, "seeker", RoleSeeker.String())
	assert.Equal(t, "spectator", RoleSpectator.String())
	assert.Equal(t, "hider", Role(99).String())
}

func TestRole_JSON(t *testing.T) {
	tests := []struct {
		name string
		wire string
		want Role
	}{
		{"hider", `"hider"`, RoleHider},
		{"seeker", `"seeker"`, RoleSeeker},
		{"spectator", `"spectator"`, RoleSpectator},
		{"unknown falls back to hider", `"referee"`, RoleHider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Role
			require.NoError(t, json.Unmarshal([]byte(tt.wire), &r))
			assert.Equal(t, tt.want, r)
		})
	}

	data, err := json.Marshal(RoleSeeker)
	require.NoError(t, err)
	assert.Equal(t, `"seeker"`, string(data))
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("spectator")
	assert.True(t, ok)
	assert.Equal(t, RoleSpectator, r)

	_, ok = ParseRole("referee")
	assert.False(t, ok)
}

func TestPlayer_JSONShape(t *testing.T) {
	p := &Player{
		ID:          "p1",
		DisplayName: "Ana",
		Position:    &geo.Position{Lat: 42, Lng: 23},
		Role:        RoleSeeker,
		Timestamp:   1700000000000,
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	assert.JSONEq(t, `[42,23]`, string(m["position"]))
	assert.JSONEq(t, `"seeker"`, string(m["role"]))
	assert.NotContains(t, m, "id")
	assert.NotContains(t, m, "photoURL")
	assert.NotContains(t, m, "isOutsideZone")
}

func TestPlayer_UnmarshalWithoutPosition(t *testing.T) {
	var p Player
	require.NoError(t, json.Unmarshal([]byte(`{"displayName":"Ana","role":"hider","timestamp":1}`), &p))
	assert.Nil(t, p.Position)
	assert.Equal(t, RoleHider, p.Role)
}

func TestPlayer_Clone(t *testing.T) {
	p := &Player{Position: &geo.Position{Lat: 1, Lng: 2}, Role: RoleSeeker}
	c := p.Clone()
	c.Position.Lat = 9
	c.Role = RoleHider
	assert.Equal(t, 1.0, p.Position.Lat)
	assert.Equal(t, RoleSeeker, p.Role)
}
