package topology

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/transit-strips/poller/internal/geo"
	"github.com/transit-strips/poller/internal/strip"
)

// ErrMissingLocation is reported for a stop with no coordinates that no
// StopLocator could fill in.
var ErrMissingLocation = errors.New("stop has no coordinates")

// ErrDuplicateDevice is reported when two devices share an id.
var ErrDuplicateDevice = errors.New("device declared twice")

// Problem is one reason a configuration was rejected.
type Problem struct {
	Route     string
	Direction int
	Stop      string
	Err       error
}

func (p Problem) Error() string {
	var b strings.Builder
	if p.Route != "" {
		fmt.Fprintf(&b, "route %s direction %d", p.Route, p.Direction)
	}
	if p.Stop != "" {
		fmt.Fprintf(&b, " stop %s", p.Stop)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	b.WriteString(p.Err.Error())
	return b.String()
}

func (p Problem) Unwrap() error {
	return p.Err
}

// BuildError lists every problem found in a configuration.
type BuildError struct {
	Problems []Problem
}

func (e *BuildError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("invalid topology (%d problems): %s", len(e.Problems), strings.Join(msgs, "; "))
}

func (e *BuildError) Unwrap() []error {
	errs := make([]error, len(e.Problems))
	for i, p := range e.Problems {
		errs[i] = p
	}
	return errs
}

// StopLocator supplies coordinates for stops configured without them,
// usually from static GTFS stops.
type StopLocator interface {
	StopLocation(code string) (geo.Coordinate, bool)
}

type buildOptions struct {
	locator StopLocator
}

// BuildOption customizes Build.
type BuildOption func(*buildOptions)

// WithStopLocator fills missing stop coordinates from l.
func WithStopLocator(l StopLocator) BuildOption {
	return func(o *buildOptions) {
		o.locator = l
	}
}

type builder struct {
	cfg      *Config
	opts     buildOptions
	side     float64
	slots    map[strip.Slot]SlotInfo
	problems []Problem
}

// Build turns a configuration into a Topology, refusing anything it cannot
// reason about: malformed LED ids, LEDs outside every device, bad polygons,
// out-of-range thresholds, stops declaring both intermediary kinds, and
// stops without coordinates.
func Build(cfg *Config, opts ...BuildOption) (*Topology, error) {
	b := &builder{
		cfg:   cfg,
		side:  cfg.StopSideLength,
		slots: make(map[strip.Slot]SlotInfo),
	}
	for _, opt := range opts {
		opt(&b.opts)
	}
	if b.side == 0 {
		b.side = DefaultStopSideLength
	}

	if len(cfg.Devices) == 0 {
		b.fail(Problem{Err: errors.New("no devices configured")})
	}
	seen := make(map[int]bool, len(cfg.Devices))
	for _, d := range cfg.Devices {
		if seen[d.ID] {
			b.fail(Problem{Err: fmt.Errorf("device %d: %w", d.ID, ErrDuplicateDevice)})
		}
		seen[d.ID] = true
	}

	routeIDs := make([]string, 0, len(cfg.Routes))
	for id := range cfg.Routes {
		routeIDs = append(routeIDs, id)
	}
	sort.Strings(routeIDs)

	t := &Topology{devices: cfg.Devices}
	for _, id := range routeIDs {
		route := &Route{ID: id}
		for _, dc := range cfg.Routes[id] {
			route.Directions = append(route.Directions, b.direction(id, dc))
		}
		t.routes = append(t.routes, route)
	}

	if len(b.problems) > 0 {
		return nil, &BuildError{Problems: b.problems}
	}

	t.slots = b.slots
	t.declared = make([]strip.Slot, 0, len(b.slots))
	for s := range b.slots {
		t.declared = append(t.declared, s)
	}
	strip.SortSlots(t.declared)
	t.universe = strip.Universe(cfg.Devices)

	return t, nil
}

func (b *builder) fail(p Problem) {
	b.problems = append(b.problems, p)
}

func (b *builder) direction(route string, dc DirectionConfig) *Direction {
	dir := &Direction{ID: dc.Direction}
	if dc.Color != "" {
		c, err := strip.ParseHexColor(dc.Color)
		if err != nil {
			b.fail(Problem{Route: route, Direction: dc.Direction, Err: err})
		} else {
			dir.Color, dir.HasColor = c, true
		}
	}

	for _, sc := range dc.Stops {
		if node := b.stop(route, dc.Direction, sc); node != nil {
			dir.Stops = append(dir.Stops, node)
		}
	}
	return dir
}

func (b *builder) stop(route string, direction int, sc StopConfig) *StopNode {
	code := normalizeCode(string(sc.Code))
	problem := func(err error) {
		b.fail(Problem{Route: route, Direction: direction, Stop: code, Err: err})
	}
	before := len(b.problems)

	node := &StopNode{Code: code, Name: sc.Name, Disabled: sc.Disabled}

	switch {
	case sc.Lat != nil && sc.Lon != nil:
		node.Location = geo.Coordinate{Lat: *sc.Lat, Lon: *sc.Lon}
	case b.opts.locator != nil:
		loc, ok := b.opts.locator.StopLocation(code)
		if !ok {
			problem(ErrMissingLocation)
		}
		node.Location = loc
	default:
		problem(ErrMissingLocation)
	}

	side := b.side
	if sc.SideLength != nil {
		side = *sc.SideLength
	}
	area, err := geo.AreaFromPoint(node.Location, side)
	if err != nil {
		problem(err)
	}
	node.Area = area

	if slot, ok := b.slot(sc.LED, problem); ok {
		node.Slot = slot
		b.claim(slot, SlotInfo{Kind: StopSlot, Disabled: sc.Disabled})
	}

	hasZones := sc.Zones != nil && len(sc.Zones.Features) > 0
	switch {
	case len(sc.Intermediaries) > 0 && hasZones:
		problem(errors.New("declares both intermediaries and zones"))
	case len(sc.Intermediaries) > 0:
		node.Strategy = ThresholdStrategy
		for _, ic := range sc.Intermediaries {
			if ic.Percent < 0 || ic.Percent > 1 {
				problem(fmt.Errorf("intermediary %s: percent %v outside [0,1]", ic.LED, ic.Percent))
				continue
			}
			if slot, ok := b.slot(ic.LED, problem); ok {
				node.Thresholds = append(node.Thresholds, Threshold{Slot: slot, Fraction: ic.Percent})
				b.claim(slot, SlotInfo{Kind: IntermediarySlot})
			}
		}
	case hasZones:
		node.Strategy = PolygonStrategy
		for _, f := range sc.Zones.Features {
			poly, err := zonePolygon(f.Geometry)
			if err != nil {
				problem(fmt.Errorf("zone %s: %w", f.LED, err))
				continue
			}
			if slot, ok := b.slot(f.LED, problem); ok {
				node.Zones = append(node.Zones, Zone{Slot: slot, Polygon: poly})
				b.claim(slot, SlotInfo{Kind: IntermediarySlot})
			}
		}
	}

	if len(b.problems) > before {
		return nil
	}
	return node
}

// slot parses an LED id and checks it addresses a configured device.
func (b *builder) slot(led string, problem func(error)) (strip.Slot, bool) {
	s, err := strip.ParseSlot(led)
	if err != nil {
		problem(err)
		return strip.Slot{}, false
	}
	for _, d := range b.cfg.Devices {
		if d.Has(s) {
			return s, true
		}
	}
	problem(fmt.Errorf("led %s is outside every configured device", s))
	return strip.Slot{}, false
}

// claim records a configured slot. A slot used as a stop anywhere stays a
// stop, and is disabled if any stop using it is.
func (b *builder) claim(s strip.Slot, info SlotInfo) {
	prev, ok := b.slots[s]
	if !ok {
		b.slots[s] = info
		return
	}
	if prev.Kind == StopSlot || info.Kind == StopSlot {
		prev.Kind = StopSlot
	}
	prev.Disabled = prev.Disabled || info.Disabled
	b.slots[s] = prev
}

func zonePolygon(g ZoneGeometry) (geo.Polygon, error) {
	if g.Type != "" && !strings.EqualFold(g.Type, "Polygon") && !strings.EqualFold(g.Type, "LinearRing") {
		return geo.Polygon{}, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
	ring := make([]geo.Coordinate, 0, len(g.Coordinates))
	for _, pos := range g.Coordinates {
		if len(pos) < 2 {
			return geo.Polygon{}, fmt.Errorf("position %v needs [lon, lat]", pos)
		}
		ring = append(ring, geo.Coordinate{Lat: pos[1], Lon: pos[0]})
	}
	return geo.NewPolygon(ring)
}
