package tracker

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/krk-transit/delay-tracker/gtfsrt"
	"github.com/krk-transit/delay-tracker/internal/logger"
	"github.com/krk-transit/delay-tracker/internal/metrics"
	"github.com/krk-transit/delay-tracker/station"
)

func newTestServer(t *testing.T, positionsURL string, stations station.Source) *httptest.Server {
	t.Helper()
	svc := NewService(gtfsrt.NewClient(time.Second), positionsURL, "", stations, nil, logger.Nop(), metrics.NewCollector())
	cache := NewSnapshotCache(svc, 0)
	srv := NewServer(0, svc, cache, stations, nil, metrics.NewCollector(), logger.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHandleVehiclePositions(t *testing.T) {
	positions := feedServer(testPositionsFeed(t), nil)
	defer positions.Close()
	stations := &stubStations{stations: []station.Station{
		{ID: "S1", Name: "Rynek", Latitude: 50.0622, Longitude: 19.9375},
	}}
	ts := newTestServer(t, positions.URL, stations)

	resp, err := http.Get(ts.URL + "/api/vehiclepos")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache, no-store, must-revalidate" {
		t.Errorf("expected no-cache response headers, got %q", cc)
	}

	var body EnrichedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(body.Vehicles) != 1 {
		t.Fatalf("expected 1 vehicle, got %d", len(body.Vehicles))
	}
	if body.Vehicles[0].NearestStation == nil {
		t.Error("served vehicle should carry its nearest station")
	}
	if body.Metadata.TotalVehicles != 1 {
		t.Errorf("unexpected metadata: %+v", body.Metadata)
	}
}

func TestHandleVehiclePositions_PrimaryFailure(t *testing.T) {
	positions := failingServer()
	defer positions.Close()
	ts := newTestServer(t, positions.URL, &stubStations{})

	resp, err := http.Get(ts.URL + "/api/vehiclepos")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var payload struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Failed to decode error payload: %v", err)
	}
	if payload.Error != "Failed to fetch vehicle positions" {
		t.Errorf("unexpected error message %q", payload.Error)
	}
	if payload.Details == "" {
		t.Error("error payload should carry details")
	}
}

func TestHandleVehiclePositions_MethodNotAllowed(t *testing.T) {
	positions := feedServer(testPositionsFeed(t), nil)
	defer positions.Close()
	ts := newTestServer(t, positions.URL, &stubStations{})

	resp, err := http.Post(ts.URL+"/api/vehiclepos", "application/json", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestHandleStations_List(t *testing.T) {
	positions := feedServer(testPositionsFeed(t), nil)
	defer positions.Close()
	stations := &stubStations{stations: []station.Station{
		{ID: "S1", Name: "Rynek", Latitude: 50.0622, Longitude: 19.9375, TransportType: "tram"},
		{ID: "S2", Name: "Wawel", Latitude: 50.0541, Longitude: 19.9352},
	}}
	ts := newTestServer(t, positions.URL, stations)

	resp, err := http.Get(ts.URL + "/api/station")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var list []station.Station
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(list))
	}
	if list[0].ID != "S1" || list[0].TransportType != "tram" {
		t.Errorf("unexpected first station: %+v", list[0])
	}
}

func TestHandleStationByID(t *testing.T) {
	positions := feedServer(testPositionsFeed(t), nil)
	defer positions.Close()
	stations := &stubStations{stations: []station.Station{
		{ID: "S1", Name: "Rynek", Latitude: 50.0622, Longitude: 19.9375},
	}}
	ts := newTestServer(t, positions.URL, stations)

	resp, err := http.Get(ts.URL + "/api/station/S1")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var st station.Station
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if st.Name != "Rynek" {
		t.Errorf("unexpected station %+v", st)
	}

	resp, err = http.Get(ts.URL + "/api/station/missing")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown station, got %d", resp.StatusCode)
	}
}

func TestHandleStations_PostWithoutStore(t *testing.T) {
	positions := feedServer(testPositionsFeed(t), nil)
	defer positions.Close()
	ts := newTestServer(t, positions.URL, &stubStations{})

	resp, err := http.Post(ts.URL+"/api/station", "application/json", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a station store, got %d", resp.StatusCode)
	}
}

func TestHandleHealth(t *testing.T) {
	positions := feedServer(testPositionsFeed(t), nil)
	defer positions.Close()
	ts := newTestServer(t, positions.URL, &stubStations{})

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var hr healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if hr.Status != "ok" {
		t.Errorf("expected status ok, got %q", hr.Status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	positions := feedServer(testPositionsFeed(t), nil)
	defer positions.Close()
	ts := newTestServer(t, positions.URL, &stubStations{})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Error("metrics body should not be empty")
	}
}
