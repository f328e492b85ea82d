package station

import "context"

// Station is a transit station record. Read-only to the enrichment
// core; supplied as a snapshot list per request.
type Station struct {
	ID            string  `json:"station_id"`
	Name          string  `json:"station_name"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	TransportType string  `json:"transport_type"`
}

// Source supplies a station snapshot. Implemented by the Postgres store
// and by the static GTFS index.
type Source interface {
	ListStations(ctx context.Context) ([]Station, error)
}
