package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krk-transit/delay-tracker/internal/logger"
	"github.com/krk-transit/delay-tracker/internal/metrics"
	"github.com/krk-transit/delay-tracker/station"
)

// Server exposes the enriched vehicle snapshot and the station list
// over HTTP.
type Server struct {
	httpServer *http.Server
	service    *Service
	cache      *SnapshotCache
	stations   station.Source
	store      *station.Store
	collector  *metrics.Collector
	log        logger.Logger
}

// NewServer wires the HTTP mux. store may be nil when stations come
// from static GTFS data; station writes are then unavailable.
func NewServer(port int, service *Service, cache *SnapshotCache, stations station.Source, store *station.Store, collector *metrics.Collector, log logger.Logger) *Server {
	s := &Server{
		service:   service,
		cache:     cache,
		stations:  stations,
		store:     store,
		collector: collector,
		log:       log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/vehiclepos", s.handleVehiclePositions)
	mux.HandleFunc("/api/station", s.handleStations)
	mux.HandleFunc("/api/station/", s.handleStationByID)
	if collector != nil {
		mux.Handle("/metrics", collector.Handler())
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Fatal("server error", "error", err)
		}
	}()
	s.log.Info("server listening", "addr", s.httpServer.Addr)
}

// HandleGracefulShutdown blocks until SIGINT or SIGTERM, then drains
// the HTTP server.
func (s *Server) HandleGracefulShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	s.log.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("server shutdown error", "error", err)
	} else {
		s.log.Info("server shut down successfully")
	}
}

type errorPayload struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func buildErrorPayload(msg string, err error) []byte {
	p := errorPayload{Error: msg}
	if err != nil {
		p.Details = err.Error()
	}
	b, _ := json.Marshal(p)
	return b
}
