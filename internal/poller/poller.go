// Package poller runs one feed-to-strip iteration at a time.
package poller

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/transit-strips/poller/internal/frame"
	"github.com/transit-strips/poller/internal/metrics"
	"github.com/transit-strips/poller/internal/render"
	"github.com/transit-strips/poller/internal/resolver"
	"github.com/transit-strips/poller/internal/strip"
	"github.com/transit-strips/poller/internal/topology"
)

// Feed supplies vehicle observations and service alerts.
type Feed interface {
	FetchObservations(ctx context.Context) ([]resolver.Observation, error)
	FetchDisabledStops(ctx context.Context) (map[string]bool, error)
}

// Options tunes a Poller
type Options struct {
	// Workers bounds parallel resolution. Zero uses one per CPU.
	Workers int
	Palette strip.Palette
}

// Poller turns feed snapshots into strip writes
type Poller struct {
	topo       *topology.Topology
	feed       Feed
	renderer   render.Renderer
	reconciler *frame.Reconciler
	stats      *metrics.Stats
	workers    int
	now        func() time.Time

	// disabled is the last alert overlay fetched successfully. Only Poll
	// touches it and Poll is not called concurrently.
	disabled map[string]bool
}

// NewPoller creates a poller. stats may be nil.
func NewPoller(topo *topology.Topology, feed Feed, renderer render.Renderer, stats *metrics.Stats, opts Options) *Poller {
	if opts.Palette == nil {
		opts.Palette = strip.DefaultPalette()
	}
	if stats == nil {
		stats = metrics.NewStats()
	}
	return &Poller{
		topo:       topo,
		feed:       feed,
		renderer:   renderer,
		reconciler: frame.NewReconciler(topo, opts.Palette),
		stats:      stats,
		workers:    opts.Workers,
		now:        time.Now,
	}
}

// Reconciler exposes the frame state for readers such as the status API
func (p *Poller) Reconciler() *frame.Reconciler {
	return p.reconciler
}

// Stats returns the iteration statistics
func (p *Poller) Stats() *metrics.Stats {
	return p.stats
}

// Clear blanks every LED and forgets the previous frame, so the next
// iteration writes the full frame.
func (p *Poller) Clear(ctx context.Context) error {
	p.reconciler.Reset()
	if err := render.Fill(ctx, p.renderer, p.topo.Universe(), 0); err != nil {
		return fmt.Errorf("failed to clear strips: %w", err)
	}
	return nil
}

// Poll fetches one snapshot, resolves every vehicle and writes the changed
// LEDs. A failed fetch skips the iteration without touching the strips.
func (p *Poller) Poll(ctx context.Context) error {
	start := p.now()

	observations, err := p.feed.FetchObservations(ctx)
	if err != nil {
		p.stats.RecordFailure(start, err)
		return err
	}

	if disabled, err := p.feed.FetchDisabledStops(ctx); err != nil {
		log.Printf("Warning: keeping previous alert overlay: %v", err)
	} else {
		p.disabled = disabled
	}

	resolutions, err := resolver.ResolveAll(ctx, p.topo, observations, p.workers)
	if err != nil {
		p.stats.RecordFailure(start, err)
		return fmt.Errorf("failed to resolve vehicles: %w", err)
	}

	outcomes := make(map[string]int)
	unresolved := 0
	for _, r := range resolutions {
		outcomes[r.Outcome.String()]++
		if !r.Resolved() {
			unresolved++
			obs := r.Observation
			log.Printf("WARN Resolver: vehicle %s on route %s direction %d toward %s: %s",
				obs.VehicleID, obs.RouteID, obs.Direction, obs.TargetStop, r.Outcome)
		}
	}

	lit := resolver.Lit(resolutions)
	writes := p.reconciler.Reconcile(frame.Input{
		Lit:      lit,
		Disabled: p.topo.SlotsForStops(p.disabled),
	})

	if err := p.renderer.Write(ctx, writes); err != nil {
		// The strips may now show a mix of old and new frames.
		p.reconciler.Reset()
		p.stats.RecordFailure(start, err)
		return fmt.Errorf("failed to write frame: %w", err)
	}

	elapsed := p.now().Sub(start)
	p.stats.Record(metrics.Iteration{
		At:           start,
		Duration:     elapsed,
		Observations: len(observations),
		Unresolved:   unresolved,
		Lit:          len(lit),
		Writes:       len(writes),
		Outcomes:     outcomes,
	})

	log.Printf("Poller: %d vehicles, %d lit, %d unresolved, %d writes in %v",
		len(observations), len(lit), unresolved, len(writes), elapsed.Round(time.Millisecond))
	return nil
}

// Run polls immediately and then every interval until ctx is done. Errors
// are logged and the loop continues.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	p.pollOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.pollOnce(ctx)
		case <-ctx.Done():
			log.Println("Polling loop stopped")
			return
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
		log.Printf("Poll error: %v", err)
	}
}
