package geo

import (
	"errors"
	"math"
	"testing"
)

func mustArea(t *testing.T, lat, lon, side float64) Area {
	t.Helper()
	a, err := AreaFromPoint(Coordinate{Lat: lat, Lon: lon}, side)
	if err != nil {
		t.Fatalf("AreaFromPoint(%v, %v, %v) failed: %v", lat, lon, side, err)
	}
	return a
}

func TestAreaFromPoint(t *testing.T) {
	a := mustArea(t, 10, 20, 2)
	want := Area{X1: 9, Y1: 19, X2: 11, Y2: 21}
	if a != want {
		t.Errorf("AreaFromPoint = %+v, expected %+v", a, want)
	}
	if a.Center() != (Coordinate{Lat: 10, Lon: 20}) {
		t.Errorf("Center = %+v", a.Center())
	}
}

func TestAreaFromPoint_NonFinite(t *testing.T) {
	cases := []struct {
		name   string
		center Coordinate
		side   float64
	}{
		{"nan lat", Coordinate{Lat: math.NaN(), Lon: 0}, 1},
		{"inf lon", Coordinate{Lat: 0, Lon: math.Inf(1)}, 1},
		{"nan side", Coordinate{}, math.NaN()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := AreaFromPoint(tc.center, tc.side); !errors.Is(err, ErrNonFinite) {
				t.Errorf("expected ErrNonFinite, got %v", err)
			}
		})
	}
}

func TestAreaContains(t *testing.T) {
	a := mustArea(t, 0, 0, 0.01)

	tests := []struct {
		name string
		p    Coordinate
		want bool
	}{
		{"center", Coordinate{0, 0}, true},
		{"inside", Coordinate{0.004, -0.004}, true},
		{"corner", Coordinate{0.005, 0.005}, true},
		{"edge", Coordinate{-0.005, 0}, true},
		{"north", Coordinate{0.0051, 0}, false},
		{"west", Coordinate{0, -0.006}, false},
		{"far", Coordinate{1, 1}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.Contains(tc.p); got != tc.want {
				t.Errorf("Contains(%+v) = %v, expected %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestFractionAlong_Midpoint(t *testing.T) {
	from := mustArea(t, 0, 0, 0.01)
	to := mustArea(t, 1, 1, 0.01)

	got := FractionAlong(from, to, Coordinate{Lat: 0.5, Lon: 0.5})
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("FractionAlong at midpoint = %v, expected 0.5", got)
	}
}

func TestFractionAlong_Monotonic(t *testing.T) {
	from := mustArea(t, 47.60, -122.33, 0.01)
	to := mustArea(t, 47.65, -122.30, 0.01)

	fromEdge := from.exit(0.05, 0.03)
	toEdge := to.exit(-0.05, -0.03)

	prev := -1.0
	for i := 0; i <= 20; i++ {
		f := float64(i) / 20
		p := Coordinate{
			Lat: fromEdge.Lat + (toEdge.Lat-fromEdge.Lat)*f,
			Lon: fromEdge.Lon + (toEdge.Lon-fromEdge.Lon)*f,
		}
		got := FractionAlong(from, to, p)
		if got < prev {
			t.Fatalf("step %d: fraction decreased from %v to %v", i, prev, got)
		}
		if math.Abs(got-f) > 1e-6 {
			t.Errorf("step %d: fraction = %v, expected %v", i, got, f)
		}
		prev = got
	}
}

func TestFractionAlong_Saturates(t *testing.T) {
	from := mustArea(t, 0, 0, 0.01)
	to := mustArea(t, 1, 0, 0.01)

	tests := []struct {
		name string
		p    Coordinate
		want float64
	}{
		{"at from edge", Coordinate{0.005, 0}, 0},
		{"behind from", Coordinate{-0.5, 0}, 0},
		{"inside from", Coordinate{0, 0}, 0},
		{"at to edge", Coordinate{0.995, 0}, 1},
		{"past to", Coordinate{3, 0}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FractionAlong(from, to, tc.p); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("FractionAlong(%+v) = %v, expected %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestFractionAlong_Degenerate(t *testing.T) {
	same := mustArea(t, 1, 1, 0.01)
	if got := FractionAlong(same, same, Coordinate{Lat: 2, Lon: 2}); got != 0 {
		t.Errorf("coincident areas: got %v, expected 0", got)
	}

	// Touching squares share an edge, so the reference segment has no length.
	a := mustArea(t, 0, 0, 1)
	b := mustArea(t, 1, 0, 1)
	if got := FractionAlong(a, b, Coordinate{Lat: 0.7, Lon: 0}); got != 0 {
		t.Errorf("touching areas: got %v, expected 0", got)
	}

	// Overlapping areas put the to edge behind the from edge.
	c := mustArea(t, 0.5, 0, 1)
	if got := FractionAlong(a, c, Coordinate{Lat: 0.2, Lon: 0}); got != 0 {
		t.Errorf("overlapping areas: got %v, expected 0", got)
	}
}

func TestHaversine(t *testing.T) {
	// One degree of latitude is roughly 111 km.
	d := Haversine(Coordinate{Lat: 0, Lon: 0}, Coordinate{Lat: 1, Lon: 0})
	if d < 111000 || d > 111400 {
		t.Errorf("Haversine = %v, expected about 111 km", d)
	}
}
