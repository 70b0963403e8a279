// Package geo holds the degree-space geometry used to place vehicles on a
// strip: rectangular areas around stops and polygon zones between them.
//
// No projection is applied. Distances are measured in raw degrees, which is
// accurate enough for comparing positions a few kilometers apart.
package geo

import (
	"errors"
	"math"
)

// ErrNonFinite is returned when a coordinate or length is NaN or infinite.
var ErrNonFinite = errors.New("non-finite coordinate")

// Area is an axis-aligned rectangle with X along latitude and Y along
// longitude. X1 <= X2 and Y1 <= Y2 always hold.
type Area struct {
	X1, Y1, X2, Y2 float64
}

// AreaFromPoint builds a square of total width sideLength centered on center.
func AreaFromPoint(center Coordinate, sideLength float64) (Area, error) {
	if !center.IsFinite() || !isFinite(sideLength) {
		return Area{}, ErrNonFinite
	}
	half := math.Abs(sideLength) / 2
	return Area{
		X1: center.Lat - half,
		Y1: center.Lon - half,
		X2: center.Lat + half,
		Y2: center.Lon + half,
	}, nil
}

// Contains reports whether p lies inside the closed rectangle.
func (a Area) Contains(p Coordinate) bool {
	return p.Lat >= a.X1 && p.Lat <= a.X2 && p.Lon >= a.Y1 && p.Lon <= a.Y2
}

// Center returns the midpoint of the rectangle.
func (a Area) Center() Coordinate {
	return Coordinate{Lat: (a.X1 + a.X2) / 2, Lon: (a.Y1 + a.Y2) / 2}
}

// exit returns the point where a ray from the center along (dx, dy) leaves
// the rectangle.
func (a Area) exit(dx, dy float64) Coordinate {
	c := a.Center()
	hx := (a.X2 - a.X1) / 2
	hy := (a.Y2 - a.Y1) / 2

	t := math.Inf(1)
	if dx != 0 {
		t = math.Min(t, hx/math.Abs(dx))
	}
	if dy != 0 {
		t = math.Min(t, hy/math.Abs(dy))
	}
	if math.IsInf(t, 1) {
		return c
	}
	return Coordinate{Lat: c.Lat + dx*t, Lon: c.Lon + dy*t}
}

// FractionAlong measures how far p has travelled from the far edge of from to
// the near edge of to, as distance(fromEdge, p) / distance(fromEdge, toEdge).
//
// Edges are where the line between the two centers crosses each rectangle.
// The result saturates to [0, 1]: points behind the from edge report 0 and
// points past the to edge report 1. When the edges coincide, or the areas
// overlap so far that the to edge lies behind the from edge, the result is 0.
func FractionAlong(from, to Area, p Coordinate) float64 {
	cf, ct := from.Center(), to.Center()
	dx, dy := ct.Lat-cf.Lat, ct.Lon-cf.Lon
	if dx == 0 && dy == 0 {
		return 0
	}

	fromEdge := from.exit(dx, dy)
	toEdge := to.exit(-dx, -dy)

	sx, sy := toEdge.Lat-fromEdge.Lat, toEdge.Lon-fromEdge.Lon
	length := math.Hypot(sx, sy)
	if length == 0 || sx*dx+sy*dy <= 0 {
		return 0
	}

	vx, vy := p.Lat-fromEdge.Lat, p.Lon-fromEdge.Lon
	if vx*sx+vy*sy <= 0 {
		return 0
	}

	return Clamp(math.Hypot(vx, vy)/length, 0, 1)
}
