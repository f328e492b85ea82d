package gtfsrt

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// Candidate field names for identifiers in JSON feed variants. Upstream
// producers are inconsistent between snake_case and lowerCamel; each
// list is tried in order and the first present key wins.
var (
	tripIDKeys         = []string{"trip_id", "tripId"}
	routeIDKeys        = []string{"route_id", "routeId"}
	tripUpdateKeys     = []string{"trip_update", "tripUpdate"}
	stopTimeUpdateKeys = []string{"stop_time_update", "stopTimeUpdate"}
	stopIDKeys         = []string{"stop_id", "stopId"}
	occupancyKeys      = []string{"occupancy_status", "occupancyStatus"}
)

// Decode parses a GTFS-Realtime payload into the normalized Feed.
// Binary protobuf is the common case; feeds republished as JSON are
// recognized by a leading '{'. Malformed or truncated input yields a
// DecodeError with no partial recovery.
func Decode(b []byte) (*Feed, error) {
	trimmed := bytes.TrimLeft(b, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return decodeJSON(trimmed)
	}

	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(b, &fm); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return fromProto(&fm), nil
}

func fromProto(fm *gtfsrtpb.FeedMessage) *Feed {
	feed := &Feed{}
	if fm.Header != nil && fm.Header.Timestamp != nil {
		feed.HeaderTimestamp = int64(*fm.Header.Timestamp)
	}
	for _, e := range fm.Entity {
		ent := Entity{}
		if e.Id != nil {
			ent.ID = *e.Id
		}
		if e.Vehicle != nil {
			ent.Vehicle = vehicleFromProto(e.Vehicle)
		}
		if e.TripUpdate != nil {
			ent.TripUpdate = tripUpdateFromProto(e.TripUpdate)
		}
		feed.Entities = append(feed.Entities, ent)
	}
	return feed
}

func vehicleFromProto(v *gtfsrtpb.VehiclePosition) *VehiclePosition {
	vp := &VehiclePosition{}
	if v.Vehicle != nil && v.Vehicle.Id != nil {
		vp.VehicleID = *v.Vehicle.Id
	}
	if v.Trip != nil {
		if v.Trip.TripId != nil {
			vp.TripID = *v.Trip.TripId
		}
		if v.Trip.RouteId != nil {
			vp.RouteID = *v.Trip.RouteId
		}
	}
	if v.Position != nil && v.Position.Latitude != nil && v.Position.Longitude != nil {
		pos := &Position{
			Latitude:  float64(*v.Position.Latitude),
			Longitude: float64(*v.Position.Longitude),
		}
		if v.Position.Bearing != nil {
			b := float64(*v.Position.Bearing)
			pos.Bearing = &b
		}
		if v.Position.Speed != nil {
			s := float64(*v.Position.Speed)
			pos.Speed = &s
		}
		vp.Position = pos
	}
	if v.OccupancyStatus != nil {
		occ := int32(*v.OccupancyStatus)
		vp.Occupancy = &occ
	}
	if v.Timestamp != nil {
		vp.Timestamp = int64(*v.Timestamp)
	}
	return vp
}

func tripUpdateFromProto(tu *gtfsrtpb.TripUpdate) *TripUpdate {
	out := &TripUpdate{}
	if tu.Trip != nil {
		if tu.Trip.TripId != nil {
			out.TripID = *tu.Trip.TripId
		}
		if tu.Trip.RouteId != nil {
			out.RouteID = *tu.Trip.RouteId
		}
	}
	if tu.Delay != nil {
		d := *tu.Delay
		out.Delay = &d
	}
	for _, stu := range tu.StopTimeUpdate {
		if stu.StopId == nil {
			continue
		}
		upd := StopTimeUpdate{StopID: *stu.StopId}
		upd.Arrival = eventFromProto(stu.Arrival)
		upd.Departure = eventFromProto(stu.Departure)
		out.StopTimeUpdates = append(out.StopTimeUpdates, upd)
	}
	return out
}

func eventFromProto(ev *gtfsrtpb.TripUpdate_StopTimeEvent) *StopTimeEvent {
	if ev == nil {
		return nil
	}
	out := &StopTimeEvent{}
	if ev.Time != nil {
		t := *ev.Time
		out.Time = &t
	}
	if ev.Delay != nil {
		d := *ev.Delay
		out.Delay = &d
	}
	if ev.Uncertainty != nil {
		u := *ev.Uncertainty
		out.Uncertainty = &u
	}
	return out
}

// JSON feed variant

func decodeJSON(b []byte) (*Feed, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil, &DecodeError{Err: err}
	}

	feed := &Feed{}
	if header, ok := root["header"].(map[string]any); ok {
		if ts, err := toInt64(header["timestamp"]); err == nil {
			feed.HeaderTimestamp = ts
		}
	}
	rawEntities, ok := root["entity"].([]any)
	if !ok {
		return nil, &DecodeError{Err: errors.New("missing entity list")}
	}
	for _, raw := range rawEntities {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		ent := Entity{ID: toStringFallback(m["id"], "")}
		if v, ok := m["vehicle"].(map[string]any); ok {
			ent.Vehicle = vehicleFromJSON(v)
		}
		if tu, ok := firstMap(m, tripUpdateKeys); ok {
			ent.TripUpdate = tripUpdateFromJSON(tu)
		}
		feed.Entities = append(feed.Entities, ent)
	}
	return feed, nil
}

func vehicleFromJSON(v map[string]any) *VehiclePosition {
	vp := &VehiclePosition{}
	if desc, ok := v["vehicle"].(map[string]any); ok {
		vp.VehicleID = toStringFallback(desc["id"], "")
	}
	if trip, ok := v["trip"].(map[string]any); ok {
		vp.TripID = firstString(trip, tripIDKeys)
		vp.RouteID = firstString(trip, routeIDKeys)
	}
	if pos, ok := v["position"].(map[string]any); ok {
		lat, errLat := toFloat(pos["latitude"])
		lon, errLon := toFloat(pos["longitude"])
		if errLat == nil && errLon == nil {
			p := &Position{Latitude: lat, Longitude: lon}
			if b, err := toFloat(pos["bearing"]); err == nil {
				p.Bearing = &b
			}
			if s, err := toFloat(pos["speed"]); err == nil {
				p.Speed = &s
			}
			vp.Position = p
		}
	}
	if occ, err := toInt64(firstValue(v, occupancyKeys)); err == nil {
		o := int32(occ)
		vp.Occupancy = &o
	}
	if ts, err := toInt64(v["timestamp"]); err == nil {
		vp.Timestamp = ts
	}
	return vp
}

func tripUpdateFromJSON(tu map[string]any) *TripUpdate {
	out := &TripUpdate{}
	if trip, ok := tu["trip"].(map[string]any); ok {
		out.TripID = firstString(trip, tripIDKeys)
		out.RouteID = firstString(trip, routeIDKeys)
	}
	if d, err := toInt64(tu["delay"]); err == nil {
		delay := int32(d)
		out.Delay = &delay
	}
	raw, ok := firstValue(tu, stopTimeUpdateKeys).([]any)
	if !ok {
		return out
	}
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		stopID := firstString(m, stopIDKeys)
		if stopID == "" {
			continue
		}
		upd := StopTimeUpdate{StopID: stopID}
		if arr, ok := m["arrival"].(map[string]any); ok {
			upd.Arrival = eventFromJSON(arr)
		}
		if dep, ok := m["departure"].(map[string]any); ok {
			upd.Departure = eventFromJSON(dep)
		}
		out.StopTimeUpdates = append(out.StopTimeUpdates, upd)
	}
	return out
}

func eventFromJSON(ev map[string]any) *StopTimeEvent {
	out := &StopTimeEvent{}
	if t, err := toInt64(ev["time"]); err == nil {
		out.Time = &t
	}
	if d, err := toInt64(ev["delay"]); err == nil {
		delay := int32(d)
		out.Delay = &delay
	}
	if u, err := toInt64(ev["uncertainty"]); err == nil {
		unc := int32(u)
		out.Uncertainty = &unc
	}
	return out
}

// Lookup helpers for the candidate key lists

func firstValue(m map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func firstMap(m map[string]any, keys []string) (map[string]any, bool) {
	for _, k := range keys {
		if v, ok := m[k].(map[string]any); ok {
			return v, true
		}
	}
	return nil, false
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s := toStringFallback(v, ""); s != "" {
				return s
			}
		}
	}
	return ""
}

// Flexible JSON value converters

func toStringFallback(v any, fallback string) string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case json.Number:
		return t.String()
	case float64:
		return strconv.Itoa(int(t))
	}
	return fallback
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(t, 64)
	case json.Number:
		return t.Float64()
	default:
		return 0, errors.New("not a float")
	}
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	case json.Number:
		return t.Int64()
	default:
		return 0, errors.New("not an int")
	}
}
