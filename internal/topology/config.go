package topology

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/transit-strips/poller/internal/strip"
)

// DefaultStopSideLength is the side of the square drawn around each stop, in degrees.
const DefaultStopSideLength = 0.01

// Config is the on-disk description of every strip and route.
type Config struct {
	Devices        []strip.Device               `json:"devices" yaml:"devices" validate:"required,min=1,unique=ID,dive"`
	StopSideLength float64                      `json:"stop_side_length" yaml:"stop_side_length" validate:"gte=0"`
	Routes         map[string][]DirectionConfig `json:"routes" yaml:"routes" validate:"required,min=1,dive,min=1,dive"`
}

// DirectionConfig lists the stops of one route direction in travel order.
type DirectionConfig struct {
	Direction int          `json:"direction" yaml:"direction" validate:"gte=0"`
	Color     string       `json:"color" yaml:"color"`
	Stops     []StopConfig `json:"stops" yaml:"stops" validate:"required,min=1,dive"`
}

// StopConfig is one stop. Intermediaries or Zones describe the LEDs between
// this stop and the next one; a stop may declare one kind, not both.
type StopConfig struct {
	Code           Code              `json:"code" yaml:"code" validate:"required"`
	Name           string            `json:"name" yaml:"name"`
	Lat            *float64          `json:"lat" yaml:"lat"`
	Lon            *float64          `json:"lon" yaml:"lon"`
	LED            string            `json:"led" yaml:"led" validate:"required"`
	Disabled       bool              `json:"disabled" yaml:"disabled"`
	SideLength     *float64          `json:"side_length" yaml:"side_length" validate:"omitempty,gt=0"`
	Intermediaries []ThresholdConfig `json:"intermediaries" yaml:"intermediaries" validate:"dive"`
	Zones          *ZoneCollection   `json:"zones" yaml:"zones"`
}

// ThresholdConfig lights LED once the vehicle is at least Percent (0-1) of the way.
type ThresholdConfig struct {
	LED     string  `json:"led" yaml:"led" validate:"required"`
	Percent float64 `json:"percent" yaml:"percent" validate:"gte=0,lte=1"`
}

// ZoneCollection is a GeoJSON-like feature collection of polygon zones.
type ZoneCollection struct {
	Features []ZoneFeature `json:"features" yaml:"features" validate:"dive"`
}

type ZoneFeature struct {
	LED      string       `json:"led" yaml:"led" validate:"required"`
	Geometry ZoneGeometry `json:"geometry" yaml:"geometry"`
}

// ZoneGeometry holds one ring of [lon, lat] pairs. Standard GeoJSON polygons
// (a list of rings) are accepted too; only the outer ring is used.
type ZoneGeometry struct {
	Type        string `json:"type" yaml:"type"`
	Coordinates Ring   `json:"coordinates" yaml:"coordinates"`
}

// Ring is a list of [lon, lat] positions.
type Ring [][]float64

func (r *Ring) UnmarshalJSON(b []byte) error {
	var flat [][]float64
	if err := json.Unmarshal(b, &flat); err == nil {
		*r = flat
		return nil
	}
	var nested [][][]float64
	if err := json.Unmarshal(b, &nested); err != nil {
		return fmt.Errorf("coordinates must be a ring or a list of rings: %w", err)
	}
	if len(nested) > 0 {
		*r = nested[0]
	}
	return nil
}

func (r *Ring) UnmarshalYAML(node *yaml.Node) error {
	var flat [][]float64
	if err := node.Decode(&flat); err == nil {
		*r = flat
		return nil
	}
	var nested [][][]float64
	if err := node.Decode(&nested); err != nil {
		return fmt.Errorf("coordinates must be a ring or a list of rings: %w", err)
	}
	if len(nested) > 0 {
		*r = nested[0]
	}
	return nil
}

// Code is a stop code. Configuration files write it as a number or a string.
type Code string

func (c *Code) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = Code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("stop code must be a string or number: %w", err)
	}
	*c = Code(n.String())
	return nil
}

func (c *Code) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: stop code must be a scalar", node.Line)
	}
	*c = Code(node.Value)
	return nil
}

// LoadFile reads a JSON or YAML (.yml/.yaml) topology file and validates its shape.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse topology %s: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural rules expressed in struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid topology: %w", err)
	}
	return nil
}

func (c Code) String() string {
	return string(c)
}

// normalizeCode makes numeric codes compare by value, so "0042" matches 42.
func normalizeCode(s string) string {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return s
}
