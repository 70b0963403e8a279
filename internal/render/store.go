package render

import (
	"context"
	"fmt"
	"time"

	"github.com/transit-strips/poller/internal/db"
	"github.com/transit-strips/poller/internal/frame"
)

// PixelStore is the part of the database the store renderer needs.
type PixelStore interface {
	UpsertPixels(ctx context.Context, iterationID string, pixels []db.PixelWrite) error
}

// Store writes pixels into the sqlite virtual strip. Each Write call is
// tagged with a new iteration id.
type Store struct {
	store PixelStore
}

// NewStore creates a store renderer
func NewStore(store PixelStore) *Store {
	return &Store{store: store}
}

// Write stores writes in one transaction.
func (s *Store) Write(ctx context.Context, writes []frame.Write) error {
	pixels := make([]db.PixelWrite, len(writes))
	for i, w := range writes {
		pixels[i] = db.PixelWrite{Slot: w.Slot, Color: w.Color, Status: w.Status.String()}
	}
	if err := s.store.UpsertPixels(ctx, db.NewIterationID(), pixels); err != nil {
		return fmt.Errorf("failed to store pixels: %w", err)
	}
	return nil
}

// Paced forwards writes one LED at a time with a pause between them, the way
// the physical strips are driven.
type Paced struct {
	next  Renderer
	delay time.Duration
}

// NewPaced wraps next. A zero delay forwards writes in one call.
func NewPaced(next Renderer, delay time.Duration) *Paced {
	return &Paced{next: next, delay: delay}
}

// Write forwards each write and waits delay before the next. It stops early
// when ctx is cancelled.
func (p *Paced) Write(ctx context.Context, writes []frame.Write) error {
	if p.delay <= 0 {
		return p.next.Write(ctx, writes)
	}

	for i := range writes {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.delay):
			}
		}
		if err := p.next.Write(ctx, writes[i:i+1]); err != nil {
			return err
		}
	}
	return nil
}
