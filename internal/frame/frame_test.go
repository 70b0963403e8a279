package frame

import (
	"sync"
	"testing"

	"github.com/transit-strips/poller/internal/strip"
	"github.com/transit-strips/poller/internal/topology"
)

func f(v float64) *float64 { return &v }

// sixSlotTopology declares 1:0-1:4 and 1:6 on a ten LED strip. Stop B on 1:3
// is disabled.
func sixSlotTopology(t *testing.T) *topology.Topology {
	t.Helper()
	cfg := &topology.Config{
		Devices: []strip.Device{{ID: 1, Length: 10}},
		Routes: map[string][]topology.DirectionConfig{
			"E": {{
				Stops: []topology.StopConfig{
					{Code: "A", Lat: f(0), Lon: f(0), LED: "1:0", Intermediaries: []topology.ThresholdConfig{
						{LED: "1:1", Percent: 0}, {LED: "1:2", Percent: 0.5},
					}},
					{Code: "B", Lat: f(1), Lon: f(0), LED: "1:3", Disabled: true, Intermediaries: []topology.ThresholdConfig{
						{LED: "1:4", Percent: 0},
					}},
					{Code: "C", Lat: f(2), Lon: f(0), LED: "1:6"},
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

func slot(i int) strip.Slot { return strip.Slot{Device: 1, Index: i} }

func TestReconcile_FullFrame(t *testing.T) {
	topo := sixSlotTopology(t)
	pal := strip.DefaultPalette()

	next, writes := Reconcile(Input{}, topo, pal, nil)
	if len(next) != 10 {
		t.Fatalf("frame has %d cells, expected 10", len(next))
	}
	if len(writes) != 10 {
		t.Fatalf("first frame should write every LED, got %d writes", len(writes))
	}

	want := map[int]strip.Status{
		0: strip.Station, 1: strip.Station, 2: strip.Station,
		3: strip.DisabledStation, 4: strip.Station, 5: strip.Empty,
		6: strip.Station, 7: strip.Empty, 8: strip.Empty, 9: strip.Empty,
	}
	for i, status := range want {
		cell := next[slot(i)]
		if cell.Status != status {
			t.Errorf("1:%d status = %v, expected %v", i, cell.Status, status)
		}
		if cell.Color != pal[status] {
			t.Errorf("1:%d color = %v, expected %v", i, cell.Color, pal[status])
		}
	}

	for i := 1; i < len(writes); i++ {
		if !writes[i-1].Slot.Less(writes[i].Slot) {
			t.Fatalf("writes not sorted: %v before %v", writes[i-1].Slot, writes[i].Slot)
		}
	}
}

func TestReconcile_OnlyChangedSlotsWritten(t *testing.T) {
	topo := sixSlotTopology(t)
	pal := strip.DefaultPalette()

	// Previously everything was off, as after clearing the strips.
	previous := make(Frame)
	for _, s := range topo.Universe() {
		previous[s] = Cell{Slot: s, Status: strip.Empty, Color: 0}
	}

	_, writes := Reconcile(Input{}, topo, pal, previous)
	if len(writes) != 6 {
		t.Fatalf("expected the 6 configured LEDs to change, got %d writes: %v", len(writes), writes)
	}
	for _, w := range writes {
		if _, ok := topo.SlotInfo(w.Slot); !ok {
			t.Errorf("unconfigured LED %v should not be rewritten", w.Slot)
		}
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	topo := sixSlotTopology(t)
	pal := strip.DefaultPalette()
	in := Input{Lit: map[strip.Slot]strip.Paint{slot(2): strip.Semantic(strip.Occupied)}}

	first, _ := Reconcile(in, topo, pal, nil)
	_, writes := Reconcile(in, topo, pal, first)
	if len(writes) != 0 {
		t.Errorf("second identical reconcile wrote %v", writes)
	}
}

func TestReconcile_Priority(t *testing.T) {
	topo := sixSlotTopology(t)
	pal := strip.DefaultPalette()

	in := Input{
		Lit: map[strip.Slot]strip.Paint{
			slot(3): strip.Raw(0x0000FF),
			slot(1): strip.Semantic(strip.Occupied),
		},
		Disabled: map[strip.Slot]bool{slot(6): true, slot(4): true},
	}
	next, _ := Reconcile(in, topo, pal, nil)

	tests := []struct {
		index  int
		status strip.Status
		color  strip.Color
	}{
		{3, strip.Occupied, 0x0000FF},
		{1, strip.Occupied, pal[strip.Occupied]},
		{6, strip.DisabledStation, pal[strip.DisabledStation]},
		{4, strip.Station, pal[strip.Station]},
	}
	for _, tc := range tests {
		cell := next[slot(tc.index)]
		if cell.Status != tc.status || cell.Color != tc.color {
			t.Errorf("1:%d = %v %v, expected %v %v", tc.index, cell.Status, cell.Color, tc.status, tc.color)
		}
	}
}

func TestReconciler(t *testing.T) {
	topo := sixSlotTopology(t)
	r := NewReconciler(topo, strip.DefaultPalette())

	if r.Current() != nil {
		t.Fatal("expected no frame before the first reconcile")
	}
	if got := len(r.Reconcile(Input{})); got != 10 {
		t.Fatalf("first reconcile wrote %d, expected 10", got)
	}
	if got := len(r.Reconcile(Input{})); got != 0 {
		t.Fatalf("repeat reconcile wrote %d, expected 0", got)
	}

	lit := Input{Lit: map[strip.Slot]strip.Paint{slot(1): strip.Semantic(strip.Occupied)}}
	writes := r.Reconcile(lit)
	if len(writes) != 1 || writes[0].Slot != slot(1) || writes[0].Status != strip.Occupied {
		t.Fatalf("lighting 1:1 wrote %v", writes)
	}

	writes = r.Reconcile(Input{})
	if len(writes) != 1 || writes[0].Status != strip.Station {
		t.Fatalf("clearing 1:1 wrote %v", writes)
	}

	r.Reset()
	if got := len(r.Reconcile(Input{})); got != 10 {
		t.Errorf("after Reset, reconcile wrote %d, expected 10", got)
	}
	if cells := r.Current().Cells(); len(cells) != 10 || cells[0].Slot != slot(0) {
		t.Errorf("Cells() = %v", cells)
	}
}

func TestReconciler_ConcurrentReaders(t *testing.T) {
	topo := sixSlotTopology(t)
	r := NewReconciler(topo, strip.DefaultPalette())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if f := r.Current(); f != nil && len(f) != 10 {
					t.Errorf("observed partial frame with %d cells", len(f))
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		r.Reconcile(Input{Lit: map[strip.Slot]strip.Paint{slot(i % 7): strip.Semantic(strip.Occupied)}})
	}
	wg.Wait()
}
