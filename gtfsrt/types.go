package gtfsrt

import "fmt"

// Position is a vehicle's reported location
type Position struct {
	Latitude  float64
	Longitude float64
	Bearing   *float64
	Speed     *float64
}

// VehiclePosition is the normalized vehicle sub-record of a feed entity.
// Position is nil when the upstream entity carried no usable location.
type VehiclePosition struct {
	VehicleID string
	TripID    string
	RouteID   string
	Position  *Position
	Occupancy *int32 // 0=empty .. 6=not accepting passengers
	Timestamp int64  // epoch seconds
}

// StopTimeEvent holds the predicted arrival or departure at a stop
type StopTimeEvent struct {
	Time        *int64
	Delay       *int32 // signed seconds
	Uncertainty *int32
}

// StopTimeUpdate is one stop's prediction within a trip update
type StopTimeUpdate struct {
	StopID    string
	Arrival   *StopTimeEvent
	Departure *StopTimeEvent
}

// TripUpdate is the normalized trip-update sub-record of a feed entity
type TripUpdate struct {
	TripID          string
	RouteID         string
	Delay           *int32 // signed seconds, trip-level
	StopTimeUpdates []StopTimeUpdate
}

// Entity is one record of a decoded feed. At most one of Vehicle and
// TripUpdate is set; entities carrying neither are kept so callers can
// count them, but they never survive enrichment.
type Entity struct {
	ID         string
	Vehicle    *VehiclePosition
	TripUpdate *TripUpdate
}

// Feed is the normalized in-memory representation of one feed message
type Feed struct {
	HeaderTimestamp int64
	Entities        []Entity
}

// TripUpdatesByTripID builds the join map for enrichment. Later entities
// with the same trip id win, matching upstream ordering.
func (f *Feed) TripUpdatesByTripID() map[string]*TripUpdate {
	m := make(map[string]*TripUpdate, len(f.Entities))
	for i := range f.Entities {
		if tu := f.Entities[i].TripUpdate; tu != nil && tu.TripID != "" {
			m[tu.TripID] = tu
		}
	}
	return m
}

// FetchError reports a failed feed fetch. Status is non-zero for HTTP
// status failures; Err is set for transport failures.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("HTTP %d from %s", e.Status, e.URL)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError reports a malformed feed payload
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode feed: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }
