// Package resolver decides which LED, if any, represents a vehicle.
package resolver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/transit-strips/poller/internal/geo"
	"github.com/transit-strips/poller/internal/strip"
	"github.com/transit-strips/poller/internal/topology"
)

// Observation is one vehicle in the current feed snapshot.
type Observation struct {
	VehicleID  string
	RouteID    string
	Direction  int
	TargetStop string
	Position   geo.Coordinate
}

// Outcome says how a resolution ended.
type Outcome int

const (
	// AtStop means the vehicle is inside its target stop's area.
	AtStop Outcome = iota
	// BetweenStops means an intermediary LED was chosen.
	BetweenStops
	// UnknownStop means the target stop has no LED on this route and direction.
	UnknownStop
	// NoPredecessor means the vehicle is approaching the first stop.
	NoPredecessor
	// UnknownLocation means no intermediary matched the position.
	UnknownLocation
)

var outcomeNames = map[Outcome]string{
	AtStop:          "at_stop",
	BetweenStops:    "between_stops",
	UnknownStop:     "unknown_stop",
	NoPredecessor:   "no_predecessor",
	UnknownLocation: "unknown_location",
}

func (o Outcome) String() string {
	return outcomeNames[o]
}

// Resolution is the result of placing one observation.
type Resolution struct {
	Observation Observation
	Outcome     Outcome
	Slot        strip.Slot
	Paint       strip.Paint
	Stop        *topology.StopNode
}

// Resolved reports whether the vehicle lights an LED.
func (r Resolution) Resolved() bool {
	return r.Outcome == AtStop || r.Outcome == BetweenStops
}

// Resolve places obs on topo. It never mutates topo and is safe to call
// concurrently.
func Resolve(obs Observation, topo *topology.Topology) Resolution {
	res := Resolution{Observation: obs}

	stop, ok := topo.StopFor(obs.RouteID, obs.Direction, obs.TargetStop)
	if !ok {
		res.Outcome = UnknownStop
		return res
	}
	res.Stop = stop
	if d, ok := topo.Direction(obs.RouteID, obs.Direction); ok {
		res.Paint = d.Paint()
	}

	if stop.Area.Contains(obs.Position) {
		res.Outcome = AtStop
		res.Slot = stop.Slot
		return res
	}

	prev, ok := topo.PredecessorOf(obs.RouteID, obs.Direction, obs.TargetStop)
	if !ok {
		res.Outcome = NoPredecessor
		return res
	}

	slot, ok := prev.Intermediary(stop, obs.Position)
	if !ok {
		res.Outcome = UnknownLocation
		return res
	}
	res.Outcome = BetweenStops
	res.Slot = slot
	return res
}

// ResolveAll resolves every observation using up to workers goroutines.
// Results keep the order of observations. workers <= 0 uses one per CPU.
func ResolveAll(ctx context.Context, topo *topology.Topology, observations []Observation, workers int) ([]Resolution, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]Resolution, len(observations))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range observations {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Resolve(observations[i], topo)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Lit merges resolutions into the set of LEDs to light. When two vehicles
// land on one LED, the first in order keeps it.
func Lit(resolutions []Resolution) map[strip.Slot]strip.Paint {
	lit := make(map[strip.Slot]strip.Paint, len(resolutions))
	for _, r := range resolutions {
		if !r.Resolved() {
			continue
		}
		if _, taken := lit[r.Slot]; taken {
			continue
		}
		lit[r.Slot] = r.Paint
	}
	return lit
}
