// Package frame computes the full color of every LED for one iteration and
// the minimal set of writes needed to get there from the previous one.
package frame

import (
	"sync"

	"github.com/transit-strips/poller/internal/strip"
	"github.com/transit-strips/poller/internal/topology"
)

// Cell is the target state of one LED.
type Cell struct {
	Slot   strip.Slot   `json:"slot"`
	Status strip.Status `json:"status"`
	Color  strip.Color  `json:"color"`
}

// Write is a single LED update for the renderer.
type Write = Cell

// Frame maps every addressable LED to its cell. A Frame is never modified
// once built.
type Frame map[strip.Slot]Cell

// Cells returns the frame sorted by slot.
func (f Frame) Cells() []Cell {
	slots := make([]strip.Slot, 0, len(f))
	for s := range f {
		slots = append(slots, s)
	}
	strip.SortSlots(slots)

	cells := make([]Cell, len(slots))
	for i, s := range slots {
		cells[i] = f[s]
	}
	return cells
}

// Input is everything that varies between iterations.
type Input struct {
	// Lit holds LEDs with a vehicle on them.
	Lit map[strip.Slot]strip.Paint
	// Disabled holds stop LEDs disabled at runtime, e.g. by a service alert.
	Disabled map[strip.Slot]bool
}

// Reconcile builds the frame for in and diffs it against previous. Writes are
// sorted by slot and only include LEDs whose color changed; LEDs missing from
// previous are always written.
func Reconcile(in Input, topo *topology.Topology, pal strip.Palette, previous Frame) (Frame, []Write) {
	universe := topo.Universe()
	next := make(Frame, len(universe))
	var writes []Write

	for _, slot := range universe {
		cell := target(slot, in, topo, pal)
		next[slot] = cell

		if old, ok := previous[slot]; ok && old.Color == cell.Color {
			continue
		}
		writes = append(writes, cell)
	}

	return next, writes
}

// target applies, in order: occupied, disabled stop, configured LED, off.
func target(slot strip.Slot, in Input, topo *topology.Topology, pal strip.Palette) Cell {
	if paint, ok := in.Lit[slot]; ok {
		return Cell{Slot: slot, Status: strip.Occupied, Color: pal.Resolve(paint)}
	}

	info, configured := topo.SlotInfo(slot)
	if !configured {
		return Cell{Slot: slot, Status: strip.Empty, Color: pal.Resolve(strip.Semantic(strip.Empty))}
	}
	if info.Kind == topology.StopSlot && (info.Disabled || in.Disabled[slot]) {
		return Cell{Slot: slot, Status: strip.DisabledStation, Color: pal.Resolve(strip.Semantic(strip.DisabledStation))}
	}
	return Cell{Slot: slot, Status: strip.Station, Color: pal.Resolve(strip.Semantic(strip.Station))}
}

// Reconciler owns the previously written frame. It is the only writer of
// that state; each Reconcile replaces it as a whole.
type Reconciler struct {
	topo    *topology.Topology
	palette strip.Palette

	mu       sync.RWMutex
	previous Frame
}

// NewReconciler starts with no previous frame, so the first Reconcile
// writes every LED.
func NewReconciler(topo *topology.Topology, pal strip.Palette) *Reconciler {
	return &Reconciler{topo: topo, palette: pal}
}

// Reconcile computes the next frame, stores it and returns the writes.
func (r *Reconciler) Reconcile(in Input) []Write {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, writes := Reconcile(in, r.topo, r.palette, r.previous)
	r.previous = next
	return writes
}

// Current returns the last reconciled frame, or nil before the first one.
func (r *Reconciler) Current() Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.previous
}

// Reset forgets the previous frame. Use it when the strips may no longer
// show what was last written, for example after a failed write.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.previous = nil
}
