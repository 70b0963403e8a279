// Package render pushes frame writes to LED strips or their stand-ins.
package render

import (
	"context"
	"math"

	"github.com/transit-strips/poller/internal/frame"
	"github.com/transit-strips/poller/internal/strip"
)

// DefaultGamma matches the WS281x strips the poller drives.
const DefaultGamma = 2.5

// Renderer applies LED writes. Write either applies every write or returns
// an error; after an error the caller must assume the strip state is unknown.
type Renderer interface {
	Write(ctx context.Context, writes []frame.Write) error
}

// Fill sets every slot to c, for example to clear the strips at startup.
func Fill(ctx context.Context, r Renderer, slots []strip.Slot, c strip.Color) error {
	writes := make([]frame.Write, len(slots))
	for i, s := range slots {
		writes[i] = frame.Write{Slot: s, Status: strip.Empty, Color: c}
	}
	return r.Write(ctx, writes)
}

// GammaCorrect maps a channel value through the strip's gamma curve.
func GammaCorrect(v uint8, gamma float64) uint8 {
	if gamma <= 0 {
		gamma = DefaultGamma
	}
	return uint8(math.Pow(float64(v)/255, 1/gamma) * 255)
}

// CorrectColor applies GammaCorrect to every channel of c.
func CorrectColor(c strip.Color, gamma float64) strip.Color {
	return strip.RGB(GammaCorrect(c.R(), gamma), GammaCorrect(c.G(), gamma), GammaCorrect(c.B(), gamma))
}
