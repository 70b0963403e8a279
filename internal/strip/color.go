package strip

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a 24-bit RGB value, 0xRRGGBB.
type Color uint32

func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

func (c Color) R() uint8 { return uint8(c >> 16) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c) }

// Hex renders the color as six lowercase hex digits.
func (c Color) Hex() string {
	return fmt.Sprintf("%06x", uint32(c)&0xFFFFFF)
}

func (c Color) String() string {
	return "#" + c.Hex()
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseHexColor accepts "7F1200", "#7F1200" or "0x7F1200".
func ParseHexColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 6 {
		return 0, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color(v), nil
}

// Status is the semantic state of an LED.
type Status int

const (
	Empty Status = iota
	Station
	Occupied
	DisabledStation
)

var statusNames = map[Status]string{
	Empty:           "empty",
	Station:         "station",
	Occupied:        "occupied",
	DisabledStation: "disabled_station",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type paintKind uint8

const (
	paintSemantic paintKind = iota
	paintRaw
)

// Paint is either a raw color or a semantic status resolved by a Palette.
type Paint struct {
	kind   paintKind
	color  Color
	status Status
}

// Raw paints an explicit color.
func Raw(c Color) Paint {
	return Paint{kind: paintRaw, color: c}
}

// Semantic paints whatever the palette assigns to s.
func Semantic(s Status) Paint {
	return Paint{kind: paintSemantic, status: s}
}

// IsRaw reports whether the paint carries an explicit color.
func (p Paint) IsRaw() bool {
	return p.kind == paintRaw
}

func (p Paint) String() string {
	if p.IsRaw() {
		return p.color.String()
	}
	return p.status.String()
}

// Palette maps each Status to a color.
type Palette map[Status]Color

// DefaultPalette matches the colors the strips were tuned with.
func DefaultPalette() Palette {
	return Palette{
		Empty:           0x000000,
		Station:         0x7F1200,
		Occupied:        0x3DAE2B,
		DisabledStation: 0xFF0000,
	}
}

// Resolve turns p into a concrete color. Unknown statuses resolve to black.
func (pal Palette) Resolve(p Paint) Color {
	if p.IsRaw() {
		return p.color
	}
	return pal[p.status]
}
