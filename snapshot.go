package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/krk-transit/delay-tracker/enrich"
	"github.com/krk-transit/delay-tracker/gtfsrt"
	"github.com/krk-transit/delay-tracker/internal/logger"
	"github.com/krk-transit/delay-tracker/internal/metrics"
	"github.com/krk-transit/delay-tracker/station"
)

// Metadata describes one enriched snapshot
type Metadata struct {
	Timestamp            int64 `json:"timestamp"`
	TotalVehicles        int   `json:"totalVehicles"`
	TotalStations        int   `json:"totalStations"`
	TripUpdatesAvailable bool  `json:"tripUpdatesAvailable"`
	TripUpdatesCount     int   `json:"tripUpdatesCount"`
}

// EnrichedResponse is the JSON body served to polling clients
type EnrichedResponse struct {
	Vehicles []enrich.Vehicle `json:"vehicles"`
	Metadata Metadata         `json:"metadata"`
}

// SnapshotError is the externally visible failure when the primary
// vehicle positions feed is unusable.
type SnapshotError struct {
	Reason string
	Cause  error
}

func (e *SnapshotError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	}
	return e.Reason
}

func (e *SnapshotError) Unwrap() error { return e.Cause }

// Service aggregates the three upstream sources into enriched
// snapshots. It holds no per-request state; each snapshot builds its
// own lookup maps from scratch.
type Service struct {
	client       *gtfsrt.Client
	positionsURL string
	updatesURL   string
	stations     station.Source
	lines        enrich.LineResolver
	log          logger.Logger
	collector    *metrics.Collector
	now          func() time.Time
	lastEpoch    atomic.Int64
}

// NewService wires the aggregator. stations and lines may be nil;
// collector may be nil when metrics are not wanted (tests).
func NewService(client *gtfsrt.Client, positionsURL, updatesURL string, stations station.Source, lines enrich.LineResolver, log logger.Logger, collector *metrics.Collector) *Service {
	return &Service{
		client:       client,
		positionsURL: positionsURL,
		updatesURL:   updatesURL,
		stations:     stations,
		lines:        lines,
		log:          log,
		collector:    collector,
		now:          time.Now,
	}
}

// Snapshot fetches vehicle positions, trip updates and the station
// list concurrently, waits for all three to settle, and enriches.
// Only a primary (vehicle positions) failure fails the whole call;
// secondary failures degrade to empty substitutes with a warning.
func (s *Service) Snapshot(ctx context.Context) (*EnrichedResponse, error) {
	start := s.now()

	var (
		positions    *gtfsrt.Feed
		positionsErr error
		updates      *gtfsrt.Feed
		updatesErr   error
		stations     []station.Station
		stationsErr  error
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		positions, positionsErr = s.client.FetchAndDecode(ctx, s.positionsURL)
	}()
	go func() {
		defer wg.Done()
		updates, updatesErr = s.client.FetchAndDecode(ctx, s.updatesURL)
	}()
	go func() {
		defer wg.Done()
		if s.stations == nil {
			return
		}
		stations, stationsErr = s.stations.ListStations(ctx)
	}()
	wg.Wait()

	if positionsErr != nil {
		if s.collector != nil {
			s.collector.SnapshotFailures.Inc()
		}
		return nil, &SnapshotError{Reason: "positions unavailable", Cause: positionsErr}
	}
	if positions == nil {
		// empty positions URL; an unconfigured primary is still a
		// primary failure
		if s.collector != nil {
			s.collector.SnapshotFailures.Inc()
		}
		return nil, &SnapshotError{Reason: "positions unavailable", Cause: errors.New("no vehicle positions URL configured")}
	}
	if positions.HeaderTimestamp != 0 {
		s.lastEpoch.Store(positions.HeaderTimestamp)
	} else {
		s.lastEpoch.Store(s.now().Unix())
	}

	updatesByTrip := map[string]*gtfsrt.TripUpdate{}
	tripUpdatesAvailable := false
	if updatesErr != nil {
		s.log.Warn("trip updates feed unavailable, continuing without predictions", "error", updatesErr)
		if s.collector != nil {
			s.collector.FeedDegradations.WithLabelValues("trip_updates").Inc()
		}
	} else if updates != nil {
		updatesByTrip = updates.TripUpdatesByTripID()
		tripUpdatesAvailable = true
	}

	if stationsErr != nil {
		s.log.Warn("station list unavailable, continuing without station matching", "error", stationsErr)
		if s.collector != nil {
			s.collector.FeedDegradations.WithLabelValues("stations").Inc()
		}
		stations = nil
	}

	vehicles := enrich.Enrich(positions.Entities, updatesByTrip, stations, s.lines, s.now())
	resp := &EnrichedResponse{
		Vehicles: vehicles,
		Metadata: Metadata{
			Timestamp:            s.now().Unix(),
			TotalVehicles:        len(vehicles),
			TotalStations:        len(stations),
			TripUpdatesAvailable: tripUpdatesAvailable,
			TripUpdatesCount:     len(updatesByTrip),
		},
	}

	if s.collector != nil {
		s.collector.VehiclesServed.Set(float64(len(vehicles)))
		s.collector.StationsLoaded.Set(float64(len(stations)))
		s.collector.SnapshotDuration.Observe(s.now().Sub(start).Seconds())
	}
	s.log.Info("snapshot built",
		"vehicles", len(vehicles),
		"stations", len(stations),
		"tripUpdates", len(updatesByTrip),
		"tripUpdatesAvailable", tripUpdatesAvailable)
	return resp, nil
}

// LatestFeedEpoch reports the header timestamp of the most recent
// positions fetch for the health endpoint. Zero when never fetched.
func (s *Service) LatestFeedEpoch() int64 {
	return s.lastEpoch.Load()
}
