package game

import (
	"encoding/json"

	"github.com/zonehunt/zonehunt-server/internal/geo"
)

// Role is a player's game role. Roles control marker visibility on the
// client; the server only stores and guards them.
type Role int

const (
	RoleHider Role = iota
	RoleSeeker
	RoleSpectator
)

func (r Role) String() string {
	switch r {
	case RoleSeeker:
		return "seeker"
	case RoleSpectator:
		return "spectator"
	default:
		return "hider"
	}
}

// MarshalJSON serializes Role as a string.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON deserializes Role from a string. Unknown values fall back
// to hider, the default role.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "seeker":
		*r = RoleSeeker
	case "spectator":
		*r = RoleSpectator
	default:
		*r = RoleHider
	}
	return nil
}

// ParseRole maps a wire string to a Role, reporting whether it named a
// known role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "hider":
		return RoleHider, true
	case "seeker":
		return RoleSeeker, true
	case "spectator":
		return RoleSpectator, true
	default:
		return RoleHider, false
	}
}

// Player is the remote record for one player, keyed by the stable player
// ID in the store's players collection. Position is absent until the
// first successful sample. The record is written only by its owning
// session, except Role which an admin may also set. IsOutsideZone is a
// cached derivation; it reflects "no zone contained Position" as of the
// last membership recompute, not necessarily right now.
type Player struct {
	ID               string        `json:"-"`
	DisplayName      string        `json:"displayName"`
	PhotoURL         string        `json:"photoURL,omitempty"`
	Position         *geo.Position `json:"position,omitempty"`
	Role             Role          `json:"role"`
	Timestamp        int64         `json:"timestamp"` // ms since epoch of last update
	IsOutsideZone    bool          `json:"isOutsideZone,omitempty"`
	LastOutsideAlert int64         `json:"lastOutsideAlert,omitempty"` // ms since epoch
	RoleUpdatedAt    int64         `json:"roleUpdatedAt,omitempty"`    // ms since epoch
}

// Clone returns a deep copy of the record.
func (p *Player) Clone() *Player {
	c := *p
	if p.Position != nil {
		pos := *p.Position
		c.Position = &pos
	}
	return &c
}
