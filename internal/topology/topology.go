// Package topology is the static map from route stops to LEDs.
//
// A Topology is built once from a Config and never modified afterwards, so
// it can be shared by any number of goroutines resolving vehicles.
package topology

import (
	"github.com/transit-strips/poller/internal/geo"
	"github.com/transit-strips/poller/internal/strip"
)

// SlotKind classifies a configured LED.
type SlotKind int

const (
	StopSlot SlotKind = iota
	IntermediarySlot
)

func (k SlotKind) String() string {
	if k == StopSlot {
		return "stop"
	}
	return "intermediary"
}

// Strategy selects how the LEDs between a stop and the next one are picked.
type Strategy int

const (
	NoIntermediaries Strategy = iota
	ThresholdStrategy
	PolygonStrategy
)

func (s Strategy) String() string {
	switch s {
	case ThresholdStrategy:
		return "threshold"
	case PolygonStrategy:
		return "polygon"
	default:
		return "none"
	}
}

// Threshold is an LED lit once a vehicle has covered Fraction of a segment.
type Threshold struct {
	Slot     strip.Slot
	Fraction float64
}

// Zone is an LED lit while a vehicle is inside Polygon.
type Zone struct {
	Slot    strip.Slot
	Polygon geo.Polygon
}

// StopNode is one stop along a direction. Thresholds and Zones lead to the
// next stop in sequence.
type StopNode struct {
	Code       string
	Name       string
	Location   geo.Coordinate
	Area       geo.Area
	Slot       strip.Slot
	Disabled   bool
	Strategy   Strategy
	Thresholds []Threshold
	Zones      []Zone
}

// Direction is one travel direction of a route.
type Direction struct {
	ID       int
	Color    strip.Color
	HasColor bool
	Stops    []*StopNode
}

// Paint is what a vehicle on this direction lights its LED with.
func (d *Direction) Paint() strip.Paint {
	if d.HasColor {
		return strip.Raw(d.Color)
	}
	return strip.Semantic(strip.Occupied)
}

// Route groups the directions configured under one route id.
type Route struct {
	ID         string
	Directions []*Direction
}

// SlotInfo describes a configured LED.
type SlotInfo struct {
	Kind     SlotKind
	Disabled bool
}

// Topology is the immutable set of routes, devices and configured LEDs.
type Topology struct {
	routes   []*Route
	devices  []strip.Device
	slots    map[strip.Slot]SlotInfo
	declared []strip.Slot
	universe []strip.Slot
}

// Routes returns routes sorted by id.
func (t *Topology) Routes() []*Route {
	return t.routes
}

// Devices returns the physical strips.
func (t *Topology) Devices() []strip.Device {
	return t.devices
}

// Route returns the route with id, if configured.
func (t *Topology) Route(id string) (*Route, bool) {
	for _, r := range t.routes {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// Direction returns the first direction of route matching id. Directions are
// scanned in declaration order.
func (t *Topology) Direction(route string, id int) (*Direction, bool) {
	r, ok := t.Route(route)
	if !ok {
		return nil, false
	}
	for _, d := range r.Directions {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// indexOf returns the position of the first stop with code in dir.
func (d *Direction) indexOf(code string) int {
	code = normalizeCode(code)
	for i, s := range d.Stops {
		if s.Code == code {
			return i
		}
	}
	return -1
}

// StopFor looks up a stop. A miss is normal: vehicles report stops that
// have no LED.
func (t *Topology) StopFor(route string, direction int, code string) (*StopNode, bool) {
	d, ok := t.Direction(route, direction)
	if !ok {
		return nil, false
	}
	i := d.indexOf(code)
	if i < 0 {
		return nil, false
	}
	return d.Stops[i], true
}

// PredecessorOf returns the stop before code, or false if code is first or unknown.
func (t *Topology) PredecessorOf(route string, direction int, code string) (*StopNode, bool) {
	d, ok := t.Direction(route, direction)
	if !ok {
		return nil, false
	}
	i := d.indexOf(code)
	if i <= 0 {
		return nil, false
	}
	return d.Stops[i-1], true
}

// AllOutputSlots lists every LED referenced by a stop or intermediary, sorted.
func (t *Topology) AllOutputSlots() []strip.Slot {
	return t.declared
}

// Universe lists every addressable LED on every device, sorted.
func (t *Topology) Universe() []strip.Slot {
	return t.universe
}

// SlotInfo reports how slot is configured.
func (t *Topology) SlotInfo(slot strip.Slot) (SlotInfo, bool) {
	info, ok := t.slots[slot]
	return info, ok
}

// SlotsForStops maps stop codes (on any route) to their stop LEDs.
func (t *Topology) SlotsForStops(codes map[string]bool) map[strip.Slot]bool {
	if len(codes) == 0 {
		return nil
	}
	normalized := make(map[string]bool, len(codes))
	for c, ok := range codes {
		if ok {
			normalized[normalizeCode(c)] = true
		}
	}

	out := make(map[strip.Slot]bool)
	for _, r := range t.routes {
		for _, d := range r.Directions {
			for _, s := range d.Stops {
				if normalized[s.Code] {
					out[s.Slot] = true
				}
			}
		}
	}
	return out
}

// Intermediary picks the LED between n and next for a vehicle at p.
func (n *StopNode) Intermediary(next *StopNode, p geo.Coordinate) (strip.Slot, bool) {
	switch n.Strategy {
	case ThresholdStrategy:
		return selectThreshold(n.Thresholds, geo.FractionAlong(n.Area, next.Area, p))
	case PolygonStrategy:
		return selectZone(n.Zones, p)
	default:
		return strip.Slot{}, false
	}
}

// selectThreshold returns the slot with the largest threshold not above
// fraction. If fraction is below every threshold, the smallest one wins.
// Equal thresholds resolve to the first declared.
func selectThreshold(thresholds []Threshold, fraction float64) (strip.Slot, bool) {
	if len(thresholds) == 0 {
		return strip.Slot{}, false
	}

	best, lowest := -1, 0
	for i, th := range thresholds {
		if th.Fraction < thresholds[lowest].Fraction {
			lowest = i
		}
		if th.Fraction <= fraction && (best < 0 || th.Fraction > thresholds[best].Fraction) {
			best = i
		}
	}
	if best < 0 {
		best = lowest
	}
	return thresholds[best].Slot, true
}

// selectZone returns the first zone containing p.
func selectZone(zones []Zone, p geo.Coordinate) (strip.Slot, bool) {
	for _, z := range zones {
		if z.Polygon.ContainsPoint(p) {
			return z.Slot, true
		}
	}
	return strip.Slot{}, false
}
