package geo

// BoundingBox is the axis-aligned envelope of a set of vertices.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Bounds computes the bounding box of the given vertices.
func Bounds(vertices []Position) BoundingBox {
	if len(vertices) == 0 {
		return BoundingBox{}
	}
	b := BoundingBox{
		MinLat: vertices[0].Lat, MaxLat: vertices[0].Lat,
		MinLng: vertices[0].Lng, MaxLng: vertices[0].Lng,
	}
	for _, v := range vertices[1:] {
		if v.Lat < b.MinLat {
			b.MinLat = v.Lat
		}
		if v.Lat > b.MaxLat {
			b.MaxLat = v.Lat
		}
		if v.Lng < b.MinLng {
			b.MinLng = v.Lng
		}
		if v.Lng > b.MaxLng {
			b.MaxLng = v.Lng
		}
	}
	return b
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(p Position) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// PointInPolygon reports whether p lies inside the polygon described by
// vertices, using even-odd ray casting on the lat/lng plane. The polygon
// is treated as implicitly closed; a duplicated closing vertex is
// harmless. Fewer than 3 vertices never contain anything.
//
// Zones are game-scale (hundreds of meters), so planar ray casting is
// accurate enough; spherical edge cases near the poles or the antimeridian
// are out of play.
func PointInPolygon(p Position, vertices []Position) bool {
	if len(vertices) < 3 {
		return false
	}
	// Cheap reject before walking the edges.
	if !Bounds(vertices).Contains(p) {
		return false
	}

	inside := false
	j := len(vertices) - 1
	for i := 0; i < len(vertices); i++ {
		vi, vj := vertices[i], vertices[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) {
			crossLng := (vj.Lng-vi.Lng)*(p.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lng
			if p.Lng < crossLng {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
