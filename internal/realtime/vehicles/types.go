package vehicles

import gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

// TripIndex fills in route and direction for feeds that omit them from the
// trip descriptor.
type TripIndex interface {
	Trip(tripID string) (routeID string, direction int, ok bool)
}

// Options configures the feed client.
type Options struct {
	VehiclePositionsURL string
	AlertsURL           string
	// APIKey is sent as the "key" query parameter when set.
	APIKey string
}

// disablingEffects are alert effects that take a stop out of service.
var disablingEffects = map[gtfs.Alert_Effect]bool{
	gtfs.Alert_NO_SERVICE: true,
	gtfs.Alert_DETOUR:     true,
	gtfs.Alert_STOP_MOVED: true,
}

// Skipped counts vehicles dropped from one snapshot and why.
type Skipped struct {
	NoPosition  int
	NoRoute     int
	NoDirection int
	NoStop      int
}

// Total is the number of vehicles dropped.
func (s Skipped) Total() int {
	return s.NoPosition + s.NoRoute + s.NoDirection + s.NoStop
}
