package tracker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/krk-transit/delay-tracker/gtfsrt"
	"github.com/krk-transit/delay-tracker/internal/logger"
	"github.com/krk-transit/delay-tracker/station"
)

type stubStations struct {
	stations []station.Station
	err      error
}

func (s *stubStations) ListStations(ctx context.Context) ([]station.Station, error) {
	return s.stations, s.err
}

func testPositionsFeed(t *testing.T) []byte {
	t.Helper()
	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(1700000000),
		},
		Entity: []*gtfsrtpb.FeedEntity{
			{
				Id: proto.String("e1"),
				Vehicle: &gtfsrtpb.VehiclePosition{
					Trip: &gtfsrtpb.TripDescriptor{
						TripId:  proto.String("T1"),
						RouteId: proto.String("R1"),
					},
					Vehicle: &gtfsrtpb.VehicleDescriptor{Id: proto.String("bus-1")},
					Position: &gtfsrtpb.Position{
						Latitude:  proto.Float32(50.0619),
						Longitude: proto.Float32(19.9373),
					},
					Timestamp: proto.Uint64(1700000050),
				},
			},
		},
	}
	b, err := proto.Marshal(fm)
	if err != nil {
		t.Fatalf("Failed to marshal positions feed: %v", err)
	}
	return b
}

func testUpdatesFeed(t *testing.T) []byte {
	t.Helper()
	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfsrtpb.FeedEntity{
			{
				Id: proto.String("u1"),
				TripUpdate: &gtfsrtpb.TripUpdate{
					Trip:  &gtfsrtpb.TripDescriptor{TripId: proto.String("T1")},
					Delay: proto.Int32(120),
				},
			},
		},
	}
	b, err := proto.Marshal(fm)
	if err != nil {
		t.Fatalf("Failed to marshal updates feed: %v", err)
	}
	return b
}

func feedServer(payload []byte, hits *atomic.Int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		_, _ = w.Write(payload)
	}))
}

func failingServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
}

func TestSnapshot_Success(t *testing.T) {
	positions := feedServer(testPositionsFeed(t), nil)
	defer positions.Close()
	updates := feedServer(testUpdatesFeed(t), nil)
	defer updates.Close()

	stations := &stubStations{stations: []station.Station{
		{ID: "S1", Name: "Rynek", Latitude: 50.0622, Longitude: 19.9375},
	}}

	svc := NewService(gtfsrt.NewClient(time.Second), positions.URL, updates.URL, stations, nil, logger.Nop(), nil)
	resp, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if len(resp.Vehicles) != 1 {
		t.Fatalf("expected 1 vehicle, got %d", len(resp.Vehicles))
	}
	v := resp.Vehicles[0]
	if v.TripID != "T1" || v.VehicleID != "bus-1" {
		t.Errorf("unexpected vehicle identifiers: %+v", v)
	}
	if v.TripUpdate == nil || v.TripUpdate.Delay == nil || *v.TripUpdate.Delay != 120 {
		t.Errorf("vehicle should carry the joined trip update, got %+v", v.TripUpdate)
	}
	if v.NearestStation == nil || v.NearestStation.StationID != "S1" {
		t.Errorf("vehicle should carry the nearest station, got %+v", v.NearestStation)
	}

	md := resp.Metadata
	if md.TotalVehicles != 1 || md.TotalStations != 1 || md.TripUpdatesCount != 1 {
		t.Errorf("unexpected metadata: %+v", md)
	}
	if !md.TripUpdatesAvailable {
		t.Error("trip updates should be marked available")
	}
	if svc.LatestFeedEpoch() != 1700000000 {
		t.Errorf("expected feed epoch 1700000000, got %d", svc.LatestFeedEpoch())
	}
}

func TestSnapshot_PrimaryFailureIsFatal(t *testing.T) {
	positions := failingServer()
	defer positions.Close()
	updates := feedServer(testUpdatesFeed(t), nil)
	defer updates.Close()

	svc := NewService(gtfsrt.NewClient(time.Second), positions.URL, updates.URL, &stubStations{}, nil, logger.Nop(), nil)
	_, err := svc.Snapshot(context.Background())
	if err == nil {
		t.Fatal("a failing positions feed should fail the snapshot")
	}
	var se *SnapshotError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SnapshotError, got %T", err)
	}
	var fe *gtfsrt.FetchError
	if !errors.As(err, &fe) {
		t.Error("the snapshot error should wrap the fetch error")
	}
}

func TestSnapshot_TripUpdatesDegradation(t *testing.T) {
	positions := feedServer(testPositionsFeed(t), nil)
	defer positions.Close()
	updates := failingServer()
	defer updates.Close()

	svc := NewService(gtfsrt.NewClient(time.Second), positions.URL, updates.URL, &stubStations{}, nil, logger.Nop(), nil)
	resp, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("a failing updates feed must not fail the snapshot: %v", err)
	}
	if resp.Metadata.TripUpdatesAvailable {
		t.Error("trip updates should be marked unavailable")
	}
	if resp.Metadata.TripUpdatesCount != 0 {
		t.Errorf("expected 0 trip updates, got %d", resp.Metadata.TripUpdatesCount)
	}
	if len(resp.Vehicles) != 1 {
		t.Fatalf("vehicles should still be served, got %d", len(resp.Vehicles))
	}
	if resp.Vehicles[0].TripUpdate != nil {
		t.Error("vehicles should carry null trip updates after degradation")
	}
}

func TestSnapshot_StationsDegradation(t *testing.T) {
	positions := feedServer(testPositionsFeed(t), nil)
	defer positions.Close()

	stations := &stubStations{err: errors.New("connection refused")}
	svc := NewService(gtfsrt.NewClient(time.Second), positions.URL, "", stations, nil, logger.Nop(), nil)
	resp, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("a failing station source must not fail the snapshot: %v", err)
	}
	if resp.Metadata.TotalStations != 0 {
		t.Errorf("expected 0 stations, got %d", resp.Metadata.TotalStations)
	}
	if resp.Vehicles[0].NearestStation != nil {
		t.Error("vehicles should carry a null nearest station after degradation")
	}
}

func TestSnapshot_NoPositionsURL(t *testing.T) {
	svc := NewService(gtfsrt.NewClient(time.Second), "", "", &stubStations{}, nil, logger.Nop(), nil)
	resp, err := svc.Snapshot(context.Background())
	if err == nil {
		t.Fatalf("an unconfigured positions feed should fail the snapshot, got %+v", resp)
	}
	var se *SnapshotError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SnapshotError, got %T (%v)", err, err)
	}
	if se.Reason != "positions unavailable" {
		t.Errorf("unexpected reason %q", se.Reason)
	}
}

func TestSnapshot_NoUpdatesURL(t *testing.T) {
	positions := feedServer(testPositionsFeed(t), nil)
	defer positions.Close()

	svc := NewService(gtfsrt.NewClient(time.Second), positions.URL, "", &stubStations{}, nil, logger.Nop(), nil)
	resp, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if resp.Metadata.TripUpdatesCount != 0 {
		t.Errorf("expected 0 trip updates without a feed URL, got %d", resp.Metadata.TripUpdatesCount)
	}
}
