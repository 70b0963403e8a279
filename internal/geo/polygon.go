package geo

import (
	"errors"
	"math"
)

var (
	ErrTooFewPoints     = errors.New("polygon needs at least 3 distinct points")
	ErrSelfIntersecting = errors.New("polygon ring intersects itself")
	ErrZeroArea         = errors.New("polygon ring has zero area")
)

// Polygon is a simple closed ring. The closing vertex is implicit.
type Polygon struct {
	ring []Coordinate
	box  Area
}

// NewPolygon validates ring and returns a Polygon. A trailing vertex equal to
// the first one is accepted and dropped; rings are not otherwise repaired.
func NewPolygon(ring []Coordinate) (Polygon, error) {
	pts := make([]Coordinate, 0, len(ring))
	for _, c := range ring {
		if !c.IsFinite() {
			return Polygon{}, ErrNonFinite
		}
		if n := len(pts); n > 0 && pts[n-1] == c {
			continue
		}
		pts = append(pts, c)
	}
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return Polygon{}, ErrTooFewPoints
	}
	if selfIntersects(pts) {
		return Polygon{}, ErrSelfIntersecting
	}
	if signedArea(pts) == 0 {
		return Polygon{}, ErrZeroArea
	}

	box := Area{X1: math.Inf(1), Y1: math.Inf(1), X2: math.Inf(-1), Y2: math.Inf(-1)}
	for _, c := range pts {
		box.X1 = math.Min(box.X1, c.Lat)
		box.X2 = math.Max(box.X2, c.Lat)
		box.Y1 = math.Min(box.Y1, c.Lon)
		box.Y2 = math.Max(box.Y2, c.Lon)
	}

	return Polygon{ring: pts, box: box}, nil
}

// Ring returns a copy of the polygon vertices.
func (p Polygon) Ring() []Coordinate {
	out := make([]Coordinate, len(p.ring))
	copy(out, p.ring)
	return out
}

// ContainsPoint is an even-odd ray casting test. Points exactly on an edge
// may fall either way.
func (p Polygon) ContainsPoint(pt Coordinate) bool {
	if len(p.ring) < 3 || !p.box.Contains(pt) {
		return false
	}

	inside := false
	x, y := pt.Lon, pt.Lat
	n := len(p.ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := p.ring[i].Lon, p.ring[i].Lat
		xj, yj := p.ring[j].Lon, p.ring[j].Lat
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func signedArea(pts []Coordinate) float64 {
	var sum float64
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		sum += a.Lon*b.Lat - b.Lon*a.Lat
	}
	return sum / 2
}

// selfIntersects checks every pair of non-adjacent edges.
func selfIntersects(pts []Coordinate) bool {
	n := len(pts)
	for i := 0; i < n; i++ {
		a1, a2 := pts[i], pts[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			b1, b2 := pts[j], pts[(j+1)%n]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

func orientation(a, b, c Coordinate) float64 {
	return (b.Lon-a.Lon)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lon-a.Lon)
}

func onSegment(a, b, p Coordinate) bool {
	return math.Min(a.Lon, b.Lon) <= p.Lon && p.Lon <= math.Max(a.Lon, b.Lon) &&
		math.Min(a.Lat, b.Lat) <= p.Lat && p.Lat <= math.Max(a.Lat, b.Lat)
}

func segmentsIntersect(p1, p2, q1, q2 Coordinate) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}
	return false
}
