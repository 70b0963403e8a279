// Package strip identifies addressable LEDs and the colors written to them.
package strip

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidSlot is returned for slot identifiers not of the form "<device>:<index>".
var ErrInvalidSlot = errors.New("invalid slot")

// Slot is one LED, addressed by device and index within the device.
type Slot struct {
	Device int
	Index  int
}

// ParseSlot parses "<device>:<index>", e.g. "1:42".
func ParseSlot(s string) (Slot, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Slot{}, fmt.Errorf("%w %q", ErrInvalidSlot, s)
	}
	device, err := strconv.Atoi(parts[0])
	if err != nil || device < 0 {
		return Slot{}, fmt.Errorf("%w %q: bad device", ErrInvalidSlot, s)
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil || index < 0 {
		return Slot{}, fmt.Errorf("%w %q: bad index", ErrInvalidSlot, s)
	}
	return Slot{Device: device, Index: index}, nil
}

func (s Slot) String() string {
	return fmt.Sprintf("%d:%d", s.Device, s.Index)
}

// Less orders slots by device, then index.
func (s Slot) Less(o Slot) bool {
	if s.Device != o.Device {
		return s.Device < o.Device
	}
	return s.Index < o.Index
}

// MarshalText lets slots be used as JSON map keys.
func (s Slot) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Slot) UnmarshalText(b []byte) error {
	parsed, err := ParseSlot(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SortSlots sorts in place by device, then index.
func SortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Less(slots[j]) })
}

// Device is a physical strip with Length LEDs.
type Device struct {
	ID     int `json:"id" yaml:"id" validate:"gte=0"`
	Length int `json:"length" yaml:"length" validate:"gt=0"`
}

// Has reports whether slot addresses an LED on this device.
func (d Device) Has(s Slot) bool {
	return s.Device == d.ID && s.Index >= 0 && s.Index < d.Length
}

// Universe lists every addressable slot of devices, sorted.
func Universe(devices []Device) []Slot {
	var total int
	for _, d := range devices {
		total += d.Length
	}
	slots := make([]Slot, 0, total)
	seen := make(map[int]bool, len(devices))
	for _, d := range devices {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		for i := 0; i < d.Length; i++ {
			slots = append(slots, Slot{Device: d.ID, Index: i})
		}
	}
	SortSlots(slots)
	return slots
}
