package gtfs

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

var feedFiles = map[string]string{
	"stops.txt": "\ufeffstop_id,stop_code,stop_name,stop_lat,stop_lon\n" +
		"0100,100,Pine St,47.6101,-122.3331\n" +
		"B,B,Broadway,47.62, -122.32\n" +
		"nowhere,,No Location,,\n",
	"trips.txt": "route_id,service_id,trip_id,direction_id\n" +
		"E,wk,t1,0\n" +
		"E,wk,t2,1\n",
	"routes.txt": "route_id,route_short_name,route_long_name,route_color\n" +
		"E,E Line,Rapid Ride E,C41230\n",
}

func testFS() fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, body := range feedFiles {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

func checkData(t *testing.T, data *Data) {
	t.Helper()

	if len(data.Stops) != 3 || len(data.Trips) != 2 || len(data.Routes) != 1 {
		t.Fatalf("parsed %d stops, %d trips, %d routes", len(data.Stops), len(data.Trips), len(data.Routes))
	}

	stops := data.StopLocator()
	tests := []struct {
		code string
		lat  float64
		ok   bool
	}{
		{"0100", 47.6101, true},
		{"100", 47.6101, true},
		{"B", 47.62, true},
		{"nowhere", 0, false},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		c, ok := stops.StopLocation(tt.code)
		if ok != tt.ok || (ok && c.Lat != tt.lat) {
			t.Errorf("StopLocation(%q) = %v, %v; expected lat %v, %v", tt.code, c, ok, tt.lat, tt.ok)
		}
	}

	trips := data.TripIndex()
	if route, dir, ok := trips.Trip("t2"); !ok || route != "E" || dir != 1 {
		t.Errorf("Trip(t2) = %q, %d, %v", route, dir, ok)
	}
	if _, _, ok := trips.Trip("t9"); ok {
		t.Error("unknown trip found")
	}

	if r, ok := data.Route("E"); !ok || r.RouteLongName != "Rapid Ride E" {
		t.Errorf("Route(E) = %+v, %v", r, ok)
	}
}

func TestParseFS(t *testing.T) {
	data, err := ParseFS(testFS())
	if err != nil {
		t.Fatalf("ParseFS failed: %v", err)
	}
	checkData(t, data)
}

func TestParseDirectory(t *testing.T) {
	dir := t.TempDir()
	for name, body := range feedFiles {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	data, err := Parse(dir)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	checkData(t, data)
}

func TestParseZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gtfs.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range feedFiles {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	data, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	checkData(t, data)
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(filepath.Join(t.TempDir(), "missing.zip")); err == nil {
		t.Error("expected error for missing path")
	}

	noStops := testFS()
	delete(noStops, "stops.txt")
	if _, err := ParseFS(noStops); err == nil {
		t.Error("expected error without stops.txt")
	}

	noTrips := testFS()
	delete(noTrips, "trips.txt")
	data, err := ParseFS(noTrips)
	if err != nil {
		t.Fatalf("trips.txt should be optional: %v", err)
	}
	if _, _, ok := data.TripIndex().Trip("t1"); ok {
		t.Error("trip index should be empty")
	}
}
