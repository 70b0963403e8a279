package render

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/transit-strips/poller/internal/frame"
	"github.com/transit-strips/poller/internal/strip"
)

// Console draws each device as a row of colored blocks using 24-bit ANSI
// escapes. It keeps its own copy of the strip so every redraw is complete.
type Console struct {
	out     io.Writer
	gamma   float64
	devices []strip.Device

	mu    sync.Mutex
	state map[strip.Slot]strip.Color
}

// NewConsole creates a console renderer for the given devices
func NewConsole(out io.Writer, devices []strip.Device, gamma float64) *Console {
	return &Console{
		out:     out,
		gamma:   gamma,
		devices: devices,
		state:   make(map[strip.Slot]strip.Color),
	}
}

// Write applies writes and redraws every device.
func (c *Console) Write(ctx context.Context, writes []frame.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, w := range writes {
		c.state[w.Slot] = CorrectColor(w.Color, c.gamma)
	}

	bw := bufio.NewWriter(c.out)
	for _, d := range c.devices {
		fmt.Fprintf(bw, "%3d ", d.ID)
		for i := 0; i < d.Length; i++ {
			col := c.state[strip.Slot{Device: d.ID, Index: i}]
			fmt.Fprintf(bw, "\x1b[38;2;%d;%d;%dm█", col.R(), col.G(), col.B())
		}
		bw.WriteString("\x1b[0m\n")
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to draw strips: %w", err)
	}
	return nil
}

// Log reports each write through the standard logger.
type Log struct{}

// Write logs every write.
func (Log) Write(ctx context.Context, writes []frame.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, w := range writes {
		log.Printf("Strip: %s -> %s (%s)", w.Slot, w.Color, w.Status)
	}
	return nil
}
