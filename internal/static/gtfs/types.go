package gtfs

import (
	"strconv"
	"strings"

	"github.com/transit-strips/poller/internal/geo"
)

// Data represents the parsed static GTFS tables the poller uses
type Data struct {
	Routes []Route
	Stops  []Stop
	Trips  []Trip
}

// Route represents a route from routes.txt
type Route struct {
	RouteID        string
	RouteShortName string
	RouteLongName  string
	RouteColor     string
}

// Stop represents a stop from stops.txt
type Stop struct {
	StopID   string
	StopCode string
	StopName string
	StopLat  float64
	StopLon  float64
}

// Trip represents a trip from trips.txt
type Trip struct {
	RouteID     string
	TripID      string
	DirectionID int
}

// StopIndex looks up stop coordinates by stop id.
type StopIndex struct {
	byID map[string]geo.Coordinate
}

// StopLocation returns the coordinates of a stop. Numeric ids also match
// by value, so "0042" and "42" are the same stop.
func (s *StopIndex) StopLocation(code string) (geo.Coordinate, bool) {
	if c, ok := s.byID[code]; ok {
		return c, true
	}
	c, ok := s.byID[numericKey(code)]
	return c, ok
}

// TripIndex looks up route and direction by trip id.
type TripIndex struct {
	byID map[string]Trip
}

// Trip returns the route id and direction id of a trip.
func (t *TripIndex) Trip(tripID string) (string, int, bool) {
	trip, ok := t.byID[tripID]
	return trip.RouteID, trip.DirectionID, ok
}

// StopLocator indexes the stops table. Stops without finite coordinates are
// left out.
func (d *Data) StopLocator() *StopIndex {
	idx := &StopIndex{byID: make(map[string]geo.Coordinate, len(d.Stops))}
	for _, s := range d.Stops {
		c := geo.Coordinate{Lat: s.StopLat, Lon: s.StopLon}
		if s.StopID == "" || !c.IsFinite() || (c.Lat == 0 && c.Lon == 0) {
			continue
		}
		idx.byID[s.StopID] = c
		if key := numericKey(s.StopID); key != s.StopID {
			if _, taken := idx.byID[key]; !taken {
				idx.byID[key] = c
			}
		}
	}
	return idx
}

// TripIndex indexes the trips table.
func (d *Data) TripIndex() *TripIndex {
	idx := &TripIndex{byID: make(map[string]Trip, len(d.Trips))}
	for _, t := range d.Trips {
		if t.TripID != "" {
			idx.byID[t.TripID] = t
		}
	}
	return idx
}

// Route returns the route with the given id.
func (d *Data) Route(id string) (Route, bool) {
	for _, r := range d.Routes {
		if r.RouteID == id {
			return r, true
		}
	}
	return Route{}, false
}

func numericKey(s string) string {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return s
}
