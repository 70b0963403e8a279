package resolver

import (
	"context"
	"fmt"
	"testing"

	"github.com/transit-strips/poller/internal/geo"
	"github.com/transit-strips/poller/internal/strip"
	"github.com/transit-strips/poller/internal/topology"
)

func f(v float64) *float64 { return &v }

func buildTopology(t *testing.T) *topology.Topology {
	t.Helper()
	cfg := &topology.Config{
		Devices: []strip.Device{{ID: 1, Length: 16}},
		Routes: map[string][]topology.DirectionConfig{
			"E": {{
				Direction: 0,
				Stops: []topology.StopConfig{
					{
						Code: "A", Lat: f(0), Lon: f(0), LED: "1:0",
						Intermediaries: []topology.ThresholdConfig{{LED: "1:2", Percent: 0.5}},
					},
					{
						Code: "B", Lat: f(1), Lon: f(1), LED: "1:5",
						Zones: &topology.ZoneCollection{Features: []topology.ZoneFeature{
							{LED: "1:6", Geometry: topology.ZoneGeometry{Coordinates: topology.Ring{{1.1, 1.1}, {1.1, 1.5}, {1.5, 1.5}, {1.5, 1.1}}}},
							{LED: "1:7", Geometry: topology.ZoneGeometry{Coordinates: topology.Ring{{1.6, 1.6}, {1.6, 1.9}, {1.9, 1.9}, {1.9, 1.6}}}},
						}},
					},
					{Code: "C", Lat: f(2), Lon: f(2), LED: "1:9"},
				},
			}},
			"R": {{
				Direction: 1,
				Color:     "0000FF",
				Stops: []topology.StopConfig{
					{Code: "X", Lat: f(5), Lon: f(5), LED: "1:12"},
				},
			}},
		},
	}
	topo, err := topology.Build(cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return topo
}

func TestResolve(t *testing.T) {
	topo := buildTopology(t)

	tests := []struct {
		name    string
		obs     Observation
		outcome Outcome
		slot    strip.Slot
	}{
		{"halfway to B", Observation{RouteID: "E", TargetStop: "B", Position: geo.Coordinate{Lat: 0.5, Lon: 0.5}}, BetweenStops, strip.Slot{Device: 1, Index: 2}},
		{"just left A", Observation{RouteID: "E", TargetStop: "B", Position: geo.Coordinate{Lat: 0.1, Lon: 0.1}}, BetweenStops, strip.Slot{Device: 1, Index: 2}},
		{"at B", Observation{RouteID: "E", TargetStop: "B", Position: geo.Coordinate{Lat: 1, Lon: 1}}, AtStop, strip.Slot{Device: 1, Index: 5}},
		{"at A", Observation{RouteID: "E", TargetStop: "A", Position: geo.Coordinate{Lat: 0.001, Lon: -0.002}}, AtStop, strip.Slot{Device: 1, Index: 0}},
		{"unknown stop", Observation{RouteID: "E", TargetStop: "Z", Position: geo.Coordinate{Lat: 0.5, Lon: 0.5}}, UnknownStop, strip.Slot{}},
		{"unknown route", Observation{RouteID: "Q", TargetStop: "B"}, UnknownStop, strip.Slot{}},
		{"wrong direction", Observation{RouteID: "E", Direction: 1, TargetStop: "B"}, UnknownStop, strip.Slot{}},
		{"approaching first stop", Observation{RouteID: "E", TargetStop: "A", Position: geo.Coordinate{Lat: -1, Lon: -1}}, NoPredecessor, strip.Slot{}},
		{"in first zone", Observation{RouteID: "E", TargetStop: "C", Position: geo.Coordinate{Lat: 1.3, Lon: 1.3}}, BetweenStops, strip.Slot{Device: 1, Index: 6}},
		{"in second zone", Observation{RouteID: "E", TargetStop: "C", Position: geo.Coordinate{Lat: 1.7, Lon: 1.8}}, BetweenStops, strip.Slot{Device: 1, Index: 7}},
		{"between zones", Observation{RouteID: "E", TargetStop: "C", Position: geo.Coordinate{Lat: 1.55, Lon: 1.55}}, UnknownLocation, strip.Slot{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.obs, topo)
			if got.Outcome != tc.outcome {
				t.Fatalf("outcome = %v, expected %v", got.Outcome, tc.outcome)
			}
			if got.Resolved() && got.Slot != tc.slot {
				t.Errorf("slot = %v, expected %v", got.Slot, tc.slot)
			}
			if !got.Resolved() && got.Slot != (strip.Slot{}) {
				t.Errorf("unresolved vehicle carries slot %v", got.Slot)
			}
		})
	}
}

func TestResolve_DoesNotFallBackToStop(t *testing.T) {
	topo := buildTopology(t)
	got := Resolve(Observation{RouteID: "E", TargetStop: "C", Position: geo.Coordinate{Lat: 3, Lon: 0}}, topo)
	if got.Resolved() {
		t.Errorf("expected no resolution, got %v on %v", got.Outcome, got.Slot)
	}
}

func TestResolve_Paint(t *testing.T) {
	topo := buildTopology(t)
	pal := strip.DefaultPalette()

	e := Resolve(Observation{RouteID: "E", TargetStop: "B", Position: geo.Coordinate{Lat: 1, Lon: 1}}, topo)
	if got := pal.Resolve(e.Paint); got != pal[strip.Occupied] {
		t.Errorf("route without color painted %v", got)
	}

	r := Resolve(Observation{RouteID: "R", Direction: 1, TargetStop: "X", Position: geo.Coordinate{Lat: 5, Lon: 5}}, topo)
	if got := pal.Resolve(r.Paint); got != 0x0000FF {
		t.Errorf("route with color painted %v", got)
	}
}

func TestResolveAll(t *testing.T) {
	topo := buildTopology(t)

	var observations []Observation
	for i := 0; i < 200; i++ {
		obs := Observation{VehicleID: fmt.Sprintf("v%d", i), RouteID: "E", TargetStop: "B", Position: geo.Coordinate{Lat: 1, Lon: 1}}
		if i%2 == 1 {
			obs.TargetStop = "Z"
		}
		observations = append(observations, obs)
	}

	results, err := ResolveAll(context.Background(), topo, observations, 4)
	if err != nil {
		t.Fatalf("ResolveAll failed: %v", err)
	}
	if len(results) != len(observations) {
		t.Fatalf("got %d results, expected %d", len(results), len(observations))
	}
	for i, r := range results {
		if r.Observation.VehicleID != observations[i].VehicleID {
			t.Fatalf("result %d is for %s, expected %s", i, r.Observation.VehicleID, observations[i].VehicleID)
		}
		if want := i%2 == 0; r.Resolved() != want {
			t.Errorf("result %d resolved = %v, expected %v", i, r.Resolved(), want)
		}
	}
}

func TestResolveAll_Cancelled(t *testing.T) {
	topo := buildTopology(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ResolveAll(ctx, topo, []Observation{{RouteID: "E", TargetStop: "B"}}, 1)
	if err == nil {
		t.Error("expected cancelled context to fail")
	}
}

func TestLit(t *testing.T) {
	blue := strip.Raw(0x0000FF)
	resolutions := []Resolution{
		{Outcome: AtStop, Slot: strip.Slot{Device: 1, Index: 5}, Paint: blue},
		{Outcome: BetweenStops, Slot: strip.Slot{Device: 1, Index: 5}, Paint: strip.Semantic(strip.Occupied)},
		{Outcome: BetweenStops, Slot: strip.Slot{Device: 1, Index: 2}, Paint: strip.Semantic(strip.Occupied)},
		{Outcome: UnknownStop},
	}

	lit := Lit(resolutions)
	if len(lit) != 2 {
		t.Fatalf("Lit returned %d slots, expected 2", len(lit))
	}
	if lit[strip.Slot{Device: 1, Index: 5}] != blue {
		t.Error("first vehicle on a slot should keep its paint")
	}
}
