package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/transit-strips/poller/internal/frame"
	"github.com/transit-strips/poller/internal/render"
	"github.com/transit-strips/poller/internal/strip"
)

// Draws a brightness ramp along one strip so the gamma setting can be
// checked by eye.
func main() {
	device := flag.Int("device", 1, "Device id")
	length := flag.Int("length", 68, "Number of LEDs on the device")
	color := flag.String("color", "3DAE2B", "Base color (hex)")
	gamma := flag.Float64("gamma", render.DefaultGamma, "Gamma")
	delay := flag.Duration("delay", 10*time.Millisecond, "Delay between LEDs")
	flag.Parse()

	if *length <= 0 {
		log.Fatalf("length must be positive, got %d", *length)
	}
	base, err := strip.ParseHexColor(*color)
	if err != nil {
		log.Fatalf("Invalid color: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	writes := ramp(*device, *length, base)
	console := render.NewConsole(os.Stdout, []strip.Device{{ID: *device, Length: *length}}, *gamma)
	if err := render.NewPaced(console, *delay).Write(ctx, writes); err != nil {
		log.Fatalf("Color test stopped: %v", err)
	}
}

// ramp scales base from dark at index 0 to full brightness at the last LED.
func ramp(device, length int, base strip.Color) []frame.Write {
	writes := make([]frame.Write, length)
	for i := range writes {
		level := float64(i+1) / float64(length)
		writes[i] = frame.Write{
			Slot: strip.Slot{Device: device, Index: i},
			Color: strip.RGB(
				uint8(float64(base.R())*level),
				uint8(float64(base.G())*level),
				uint8(float64(base.B())*level),
			),
		}
	}
	return writes
}
