package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// A rough square around Sofia city center, counter-clockwise.
var square = []Position{
	{42.68, 23.30},
	{42.68, 23.34},
	{42.71, 23.34},
	{42.71, 23.30},
}

func TestPointInPolygon(t *testing.T) {
	tests := []struct {
		name     string
		point    Position
		vertices []Position
		want     bool
	}{
		{"center of square", Position{42.695, 23.32}, square, true},
		{"north of square", Position{42.72, 23.32}, square, false},
		{"west of square", Position{42.695, 23.29}, square, false},
		{"inside near corner", Position{42.681, 23.301}, square, true},
		{"closed polygon with duplicated vertex", Position{42.695, 23.32},
			append(append([]Position{}, square...), square[0]), true},
		{"two vertices never contain", Position{42.695, 23.32}, square[:2], false},
		{"empty polygon", Position{0, 0}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PointInPolygon(tt.point, tt.vertices))
		})
	}
}

// A concave L-shape distinguishes ray casting from the bounding-box test:
// the notch is inside the box but outside the polygon.
func TestPointInPolygon_Concave(t *testing.T) {
	lShape := []Position{
		{0, 0},
		{0, 4},
		{2, 4},
		{2, 2},
		{4, 2},
		{4, 0},
	}

	notch := Position{3, 3}
	assert.True(t, Bounds(lShape).Contains(notch), "notch is inside the envelope")
	assert.False(t, PointInPolygon(notch, lShape), "notch is outside the polygon")

	assert.True(t, PointInPolygon(Position{1, 1}, lShape))
	assert.True(t, PointInPolygon(Position{3, 1}, lShape))
	assert.True(t, PointInPolygon(Position{1, 3}, lShape))
}

func TestBounds(t *testing.T) {
	b := Bounds(square)
	assert.Equal(t, 42.68, b.MinLat)
	assert.Equal(t, 42.71, b.MaxLat)
	assert.Equal(t, 23.30, b.MinLng)
	assert.Equal(t, 23.34, b.MaxLng)

	assert.True(t, b.Contains(Position{42.68, 23.30}), "edges are inclusive")
	assert.False(t, b.Contains(Position{42.67, 23.32}))
}

func TestBounds_Empty(t *testing.T) {
	b := Bounds(nil)
	assert.Equal(t, BoundingBox{}, b)
}
