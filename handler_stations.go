package tracker

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/krk-transit/delay-tracker/station"
)

// handleStations serves the station list and, when a Postgres store is
// configured, accepts new station records.
func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listStations(w, r)
	case http.MethodPost:
		s.addStation(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listStations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	bounds, ok, err := parseBounds(r.URL.Query())
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(buildErrorPayload("Invalid bounds", err))
		return
	}

	var stations []station.Station
	if ok && s.store != nil {
		stations, err = s.store.ListStationsInBounds(r.Context(), bounds[0], bounds[1], bounds[2], bounds[3])
	} else {
		stations, err = s.stations.ListStations(r.Context())
	}
	if err != nil {
		s.log.Error("station query failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(buildErrorPayload("Failed to fetch stations", err))
		return
	}
	if stations == nil {
		stations = []station.Station{}
	}
	_ = json.NewEncoder(w).Encode(stations)
}

func (s *Server) addStation(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write(buildErrorPayload("Station store not configured", nil))
		return
	}

	var rec station.Station
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(buildErrorPayload("Invalid station payload", err))
		return
	}
	if rec.ID == "" || rec.Name == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(buildErrorPayload("station_id and station_name are required", nil))
		return
	}
	if err := s.store.AddStation(r.Context(), rec); err != nil {
		s.log.Error("station insert failed", "error", err, "station_id", rec.ID)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(buildErrorPayload("Failed to add station", err))
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rec)
}

// handleStationByID serves a single station. Without a store it scans
// the configured source list.
func (s *Server) handleStationByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	id := strings.TrimPrefix(r.URL.Path, "/api/station/")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(buildErrorPayload("Missing station id", nil))
		return
	}

	if s.store != nil {
		st, err := s.store.GetStation(r.Context(), id)
		if errors.Is(err, sql.ErrNoRows) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write(buildErrorPayload("Station not found", nil))
			return
		}
		if err != nil {
			s.log.Error("station query failed", "error", err, "station_id", id)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write(buildErrorPayload("Failed to fetch station", err))
			return
		}
		_ = json.NewEncoder(w).Encode(st)
		return
	}

	list, err := s.stations.ListStations(r.Context())
	if err != nil {
		s.log.Error("station query failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(buildErrorPayload("Failed to fetch station", err))
		return
	}
	for _, st := range list {
		if st.ID == id {
			_ = json.NewEncoder(w).Encode(st)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(buildErrorPayload("Station not found", nil))
}

func parseBounds(q map[string][]string) ([4]float64, bool, error) {
	keys := [4]string{"minLat", "minLon", "maxLat", "maxLon"}
	var out [4]float64
	present := 0
	for i, k := range keys {
		vals, ok := q[k]
		if !ok || len(vals) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(vals[0], 64)
		if err != nil {
			return out, false, err
		}
		out[i] = v
		present++
	}
	if present == 0 {
		return out, false, nil
	}
	if present != len(keys) {
		return out, false, errors.New("minLat, minLon, maxLat and maxLon must all be set")
	}
	return out, true, nil
}
