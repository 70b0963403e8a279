// Package gtfs reads the parts of a static GTFS feed the poller needs: stop
// coordinates and trip directions.
package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
)

// Parse reads a GTFS feed from a zip file or an unpacked directory
func Parse(path string) (*Data, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gtfs: %w", err)
	}

	var fsys fs.FS
	if info.IsDir() {
		fsys = os.DirFS(path)
	} else {
		r, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open zip: %w", err)
		}
		defer r.Close()
		fsys = r
	}

	return ParseFS(fsys)
}

// ParseFS reads a GTFS feed whose tables sit at the root of fsys
func ParseFS(fsys fs.FS) (*Data, error) {
	data := &Data{}

	stops, err := readTable(fsys, "stops.txt", parseStop)
	if err != nil {
		return nil, err
	}
	data.Stops = stops

	// trips.txt and routes.txt are optional for the poller
	if trips, err := readTable(fsys, "trips.txt", parseTrip); err != nil {
		log.Printf("Warning: failed to parse trips.txt: %v", err)
	} else {
		data.Trips = trips
	}

	if routes, err := readTable(fsys, "routes.txt", parseRoute); err != nil {
		log.Printf("Warning: failed to parse routes.txt: %v", err)
	} else {
		data.Routes = routes
	}

	log.Printf("GTFS parsed: %d routes, %d stops, %d trips",
		len(data.Routes), len(data.Stops), len(data.Trips))

	return data, nil
}

func parseStop(record []string, idx map[string]int) Stop {
	lat, _ := strconv.ParseFloat(getField(record, idx, "stop_lat"), 64)
	lon, _ := strconv.ParseFloat(getField(record, idx, "stop_lon"), 64)

	return Stop{
		StopID:   getField(record, idx, "stop_id"),
		StopCode: getField(record, idx, "stop_code"),
		StopName: getField(record, idx, "stop_name"),
		StopLat:  lat,
		StopLon:  lon,
	}
}

func parseTrip(record []string, idx map[string]int) Trip {
	directionID, _ := strconv.Atoi(getField(record, idx, "direction_id"))

	return Trip{
		RouteID:     getField(record, idx, "route_id"),
		TripID:      getField(record, idx, "trip_id"),
		DirectionID: directionID,
	}
}

func parseRoute(record []string, idx map[string]int) Route {
	return Route{
		RouteID:        getField(record, idx, "route_id"),
		RouteShortName: getField(record, idx, "route_short_name"),
		RouteLongName:  getField(record, idx, "route_long_name"),
		RouteColor:     getField(record, idx, "route_color"),
	}
}

// readTable parses every row of name with parse. Malformed rows are skipped.
func readTable[T any](fsys fs.FS, name string, parse func([]string, map[string]int) T) ([]T, error) {
	f, err := fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s not found in feed", name)
		}
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idx := makeIndex(header)
	var rows []T

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, parse(record, idx))
	}

	return rows, nil
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}
