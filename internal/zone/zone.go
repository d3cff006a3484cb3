package zone

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zonehunt/zonehunt-server/internal/geo"
)

// Kind discriminates the zone shape variants.
type Kind int

const (
	KindCircle Kind = iota
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPolygon:
		return "polygon"
	default:
		return "circle"
	}
}

// MarshalJSON serializes Kind as a string.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON deserializes Kind from a string.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "polygon":
		*k = KindPolygon
	default:
		*k = KindCircle
	}
	return nil
}

// Zone is a geofenced region players must stay within. Circular zones
// carry a center and radius; polygonal zones an ordered vertex ring,
// implicitly closed (producers may repeat the first vertex, which is
// tolerated). Any authenticated player may create or delete zones; no
// ownership restriction is enforced on deletion.
type Zone struct {
	ID        string         `json:"id,omitempty"`
	Kind      Kind           `json:"type"`
	Name      string         `json:"name"`
	Center    *geo.Position  `json:"center,omitempty"`
	Radius    float64        `json:"radius,omitempty"`
	Vertices  []geo.Position `json:"vertices,omitempty"`
	CreatedBy string         `json:"createdBy,omitempty"`
	CreatedAt int64          `json:"createdAt,omitempty"` // ms since epoch
}

// Validate checks the shape constraints for the zone's kind.
func (z *Zone) Validate() error {
	switch z.Kind {
	case KindCircle:
		if z.Radius <= 0 {
			return fmt.Errorf("circle zone radius must be positive, got %v", z.Radius)
		}
		if z.Center == nil || !z.Center.Valid() {
			return errors.New("circle zone center out of range")
		}
	case KindPolygon:
		if len(z.Vertices) < 3 {
			return fmt.Errorf("polygon zone needs at least 3 vertices, got %d", len(z.Vertices))
		}
		for _, v := range z.Vertices {
			if !v.Valid() {
				return errors.New("polygon zone vertex out of range")
			}
		}
	default:
		return fmt.Errorf("unknown zone kind %d", z.Kind)
	}
	return nil
}

// Contains reports whether p lies inside the zone. Circles compare the
// great-circle distance against the radius, boundary inclusive. Polygons
// use true point-in-polygon ray casting; geo.Bounds remains available for
// callers that want the envelope only.
func (z *Zone) Contains(p geo.Position) bool {
	switch z.Kind {
	case KindCircle:
		return geo.Distance(p, *z.Center) <= z.Radius
	case KindPolygon:
		return geo.PointInPolygon(p, z.Vertices)
	default:
		return false
	}
}

// ContainsAny reports whether any zone in the set contains p. An empty
// set returns false; callers treat that case as "not gated" and must not
// force an outside status from it.
func ContainsAny(p geo.Position, zones []*Zone) bool {
	for _, z := range zones {
		if z.Contains(p) {
			return true
		}
	}
	return false
}
