package enrich

import (
	"time"

	"github.com/krk-transit/delay-tracker/gtfsrt"
	"github.com/krk-transit/delay-tracker/station"
	"github.com/krk-transit/delay-tracker/utils"
)

// LineResolver approximates a human-readable line number for a vehicle.
// Implemented by the static GTFS index; may be nil.
type LineResolver interface {
	LineForTrip(tripID, routeID string) string
}

// StopTimeEvent mirrors the feed prediction for serialization; absent
// fields stay null.
type StopTimeEvent struct {
	Time        *int64 `json:"time"`
	Delay       *int32 `json:"delay"`
	Uncertainty *int32 `json:"uncertainty"`
}

// StopTime is a stop-time update resolved against the station list.
// Station is null when the stop id has no match; the entry itself is
// never dropped.
type StopTime struct {
	StopID    string           `json:"stop_id"`
	Station   *station.Station `json:"station"`
	Arrival   *StopTimeEvent   `json:"arrival"`
	Departure *StopTimeEvent   `json:"departure"`
}

// TripUpdate is the embedded trip update of an enriched vehicle
type TripUpdate struct {
	TripID    string     `json:"trip_id"`
	Delay     *int32     `json:"delay"`
	StopTimes []StopTime `json:"stop_time_updates"`
}

// NearestStation is the closest station to a vehicle's position
type NearestStation struct {
	StationID     string  `json:"station_id"`
	Name          string  `json:"station_name"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	TransportType string  `json:"transport_type,omitempty"`
	DistanceM     float64 `json:"distance"`
	DistanceKM    float64 `json:"distance_km"`
}

// Vehicle is one enriched vehicle record. TripUpdate and NearestStation
// are best-effort: null means no match, never an error.
type Vehicle struct {
	EntityID       string          `json:"entity_id"`
	VehicleID      string          `json:"vehicle_id,omitempty"`
	TripID         string          `json:"trip_id,omitempty"`
	RouteID        string          `json:"route_id"`
	Line           string          `json:"line"`
	Latitude       float64         `json:"lat"`
	Longitude      float64         `json:"lon"`
	Bearing        *float64        `json:"bearing,omitempty"`
	Speed          *float64        `json:"speed,omitempty"`
	Occupancy      *int32          `json:"occupancy,omitempty"`
	Timestamp      int64           `json:"timestamp"`
	TripUpdate     *TripUpdate     `json:"tripUpdate"`
	NearestStation *NearestStation `json:"nearestStation"`
	ServerTime     int64           `json:"serverTime"`
}

// Enrich joins decoded vehicle entities with trip updates and the
// station snapshot. Pure function of its inputs: entities without a
// position are silently excluded, lookup misses yield null fields, and
// no input combination panics.
func Enrich(entities []gtfsrt.Entity, updates map[string]*gtfsrt.TripUpdate, stations []station.Station, lines LineResolver, now time.Time) []Vehicle {
	byStopID := make(map[string]*station.Station, len(stations))
	for i := range stations {
		if _, exists := byStopID[stations[i].ID]; !exists {
			byStopID[stations[i].ID] = &stations[i]
		}
	}

	serverTime := now.Unix()
	out := make([]Vehicle, 0, len(entities))
	for _, e := range entities {
		if e.Vehicle == nil || e.Vehicle.Position == nil {
			continue
		}
		vp := e.Vehicle
		v := Vehicle{
			EntityID:   e.ID,
			VehicleID:  vp.VehicleID,
			TripID:     vp.TripID,
			RouteID:    vp.RouteID,
			Line:       gtfsUnknown,
			Latitude:   vp.Position.Latitude,
			Longitude:  vp.Position.Longitude,
			Bearing:    vp.Position.Bearing,
			Speed:      vp.Position.Speed,
			Occupancy:  vp.Occupancy,
			Timestamp:  vp.Timestamp,
			ServerTime: serverTime,
		}
		if v.RouteID == "" {
			v.RouteID = "unknown"
		}
		if lines != nil {
			v.Line = lines.LineForTrip(vp.TripID, vp.RouteID)
		}
		if tu, ok := updates[vp.TripID]; ok && vp.TripID != "" {
			v.TripUpdate = embedTripUpdate(tu, byStopID)
		}
		v.NearestStation = Nearest(v.Latitude, v.Longitude, stations)
		out = append(out, v)
	}
	return out
}

const gtfsUnknown = "Unknown"

func embedTripUpdate(tu *gtfsrt.TripUpdate, byStopID map[string]*station.Station) *TripUpdate {
	out := &TripUpdate{TripID: tu.TripID, Delay: tu.Delay}
	for _, stu := range tu.StopTimeUpdates {
		st := StopTime{
			StopID:    stu.StopID,
			Station:   byStopID[stu.StopID],
			Arrival:   convertEvent(stu.Arrival),
			Departure: convertEvent(stu.Departure),
		}
		out.StopTimes = append(out.StopTimes, st)
	}
	return out
}

func convertEvent(ev *gtfsrt.StopTimeEvent) *StopTimeEvent {
	if ev == nil {
		return nil
	}
	return &StopTimeEvent{Time: ev.Time, Delay: ev.Delay, Uncertainty: ev.Uncertainty}
}

// Nearest returns the closest station to a coordinate, or nil for an
// empty station list. Ties at the minimum distance keep the first
// station encountered, so the result is stable under input order.
func Nearest(lat, lon float64, stations []station.Station) *NearestStation {
	if len(stations) == 0 {
		return nil
	}
	best := 0
	bestKM := utils.HaversineKM(lat, lon, stations[0].Latitude, stations[0].Longitude)
	for i := 1; i < len(stations); i++ {
		if km := utils.HaversineKM(lat, lon, stations[i].Latitude, stations[i].Longitude); km < bestKM {
			best = i
			bestKM = km
		}
	}
	s := stations[best]
	return &NearestStation{
		StationID:     s.ID,
		Name:          s.Name,
		Latitude:      s.Latitude,
		Longitude:     s.Longitude,
		TransportType: s.TransportType,
		DistanceM:     bestKM * 1000,
		DistanceKM:    bestKM,
	}
}
