package gtfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTestGTFS(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"trips.txt": "route_id,service_id,trip_id\n" +
			"R1,everyday,block_1_trip_42\n" +
			"R2,everyday,block_2_trip_77\n",
		"routes.txt": "route_id,route_short_name,route_long_name\n" +
			"R1,52,Czerwone Maki - Os. Piastow\n" +
			"R2,144,Dworzec Glowny - Mistrzejowice\n",
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"S1,Teatr Bagatela,50.0643,19.9321\n" +
			"S2,Rondo Mogilskie,50.0655,19.9604\n" +
			"bad,No Coordinates,,\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return dir
}

func TestNewIndexFromPath_EmptyPath(t *testing.T) {
	g, err := NewIndexFromPath("")
	if err != nil {
		t.Fatalf("empty path should build an empty index, got %v", err)
	}
	if g.TripCount() != 0 || g.RouteCount() != 0 || g.StationCount() != 0 {
		t.Errorf("empty index should hold nothing: %d/%d/%d", g.TripCount(), g.RouteCount(), g.StationCount())
	}
	if line := g.LineForTrip("anything", "R1"); line != UnknownLine {
		t.Errorf("empty index should resolve to %q, got %q", UnknownLine, line)
	}
}

func TestNewIndexFromPath_MissingPath(t *testing.T) {
	if _, err := NewIndexFromPath("/nonexistent/gtfs"); err == nil {
		t.Error("a missing path should fail")
	}
}

func TestIndex_LoadFromDir(t *testing.T) {
	g, err := NewIndexFromPath(writeTestGTFS(t))
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	if g.TripCount() != 2 {
		t.Errorf("expected 2 trips, got %d", g.TripCount())
	}
	if got := g.RouteIDForTrip("block_1_trip_42"); got != "R1" {
		t.Errorf("expected route R1, got %q", got)
	}
	if got := g.LineForRoute("R2"); got != "144" {
		t.Errorf("expected line 144, got %q", got)
	}

	stations, err := g.ListStations(context.Background())
	if err != nil {
		t.Fatalf("ListStations failed: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("rows without coordinates should be dropped, expected 2 stations, got %d", len(stations))
	}
	for _, st := range stations {
		if st.ID == "bad" {
			t.Error("station without coordinates should not be loaded")
		}
	}
}

func TestLineForTrip(t *testing.T) {
	g, err := NewIndexFromPath(writeTestGTFS(t))
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	tests := []struct {
		name     string
		tripID   string
		routeID  string
		expected string
	}{
		{
			name:     "direct route lookup",
			tripID:   "whatever",
			routeID:  "R1",
			expected: "52",
		},
		{
			name:     "number extracted from trip id",
			tripID:   "line 86 morning run",
			routeID:  "",
			expected: "86",
		},
		{
			name:     "three digit number extracted",
			tripID:   "service 139 loop",
			routeID:  "",
			expected: "139",
		},
		{
			name:     "partial trip id containment",
			tripID:   "prefix_block_1_trip_42_suffix",
			routeID:  "",
			expected: "52",
		},
		{
			name:     "unknown everywhere",
			tripID:   "no-line-here",
			routeID:  "missing-route",
			expected: UnknownLine,
		},
		{
			name:     "empty inputs",
			tripID:   "",
			routeID:  "",
			expected: UnknownLine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.LineForTrip(tt.tripID, tt.routeID); got != tt.expected {
				t.Errorf("LineForTrip(%q, %q) = %q, expected %q", tt.tripID, tt.routeID, got, tt.expected)
			}
		})
	}
}
