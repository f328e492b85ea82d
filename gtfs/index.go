package gtfs

import (
	"context"

	"github.com/krk-transit/delay-tracker/station"
)

// Index holds static GTFS reference data. It is built once at process
// initialization and never mutated afterwards; callers share it by
// reference.
type Index struct {
	tripToRoute map[string]string
	routeToLine map[string]string // route_id -> route_short_name
	stations    []station.Station
}

func newIndex() *Index {
	return &Index{
		tripToRoute: map[string]string{},
		routeToLine: map[string]string{},
	}
}

// NewIndexFromPath builds an Index from a GTFS zip archive or a
// directory containing trips.txt, routes.txt and stops.txt. An empty
// path yields an empty index: every line lookup resolves to "Unknown"
// and the station list is empty.
func NewIndexFromPath(path string) (*Index, error) {
	g := newIndex()
	if path == "" {
		return g, nil
	}
	if err := g.load(path); err != nil {
		return nil, err
	}
	return g, nil
}

// RouteIDForTrip returns the static route id for a trip, or ""
func (g *Index) RouteIDForTrip(tripID string) string { return g.tripToRoute[tripID] }

// LineForRoute returns the route short name, or ""
func (g *Index) LineForRoute(routeID string) string { return g.routeToLine[routeID] }

// TripCount reports how many trips were indexed
func (g *Index) TripCount() int { return len(g.tripToRoute) }

// RouteCount reports how many routes carry a short name
func (g *Index) RouteCount() int { return len(g.routeToLine) }

// StationCount reports how many stations were loaded from stops.txt
func (g *Index) StationCount() int { return len(g.stations) }

// ListStations returns the stations parsed from stops.txt. Satisfies
// station.Source so the index can stand in for the database store.
func (g *Index) ListStations(ctx context.Context) ([]station.Station, error) {
	out := make([]station.Station, len(g.stations))
	copy(out, g.stations)
	return out, nil
}
