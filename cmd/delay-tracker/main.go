package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tracker "github.com/krk-transit/delay-tracker"
	"github.com/krk-transit/delay-tracker/config"
	"github.com/krk-transit/delay-tracker/gtfs"
	"github.com/krk-transit/delay-tracker/gtfsrt"
	"github.com/krk-transit/delay-tracker/internal/logger"
	"github.com/krk-transit/delay-tracker/internal/metrics"
	"github.com/krk-transit/delay-tracker/publisher"
	"github.com/krk-transit/delay-tracker/station"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml (defaults to config.yml, ./config/config.yml)")
	flag.Parse()

	var paths []string
	if *configPath != "" {
		paths = append(paths, *configPath)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	writers := []io.Writer{logger.ConsoleWriter()}
	if cfg.Logging.FilePath != "" {
		writers = append(writers, logger.FileWriter(cfg.Logging.FilePath))
	}
	log := logger.New(cfg.Logging.Level, writers...)

	index, err := gtfs.NewIndexFromPath(cfg.GTFS.StaticPath)
	if err != nil {
		log.Fatal("failed to load static GTFS data", "error", err, "path", cfg.GTFS.StaticPath)
	}
	log.Info("static GTFS data loaded",
		"trips", index.TripCount(), "routes", index.RouteCount(), "stations", index.StationCount())

	var (
		stations station.Source = index
		store    *station.Store
	)
	if cfg.Stations.DatabaseURL != "" {
		store, err = station.Open(cfg.Stations.DatabaseURL)
		if err != nil {
			log.Fatal("failed to open station database", "error", err)
		}
		defer store.Close()
		if err := store.Ping(context.Background()); err != nil {
			log.Fatal("station database unreachable", "error", err)
		}
		stations = store
		log.Info("station source: postgres")
	} else {
		log.Info("station source: static GTFS stops")
	}

	collector := metrics.NewCollector()
	client := gtfsrt.NewClient(time.Duration(cfg.GTFSRT.TimeoutMS) * time.Millisecond)
	service := tracker.NewService(
		client,
		cfg.GTFSRT.VehiclePositionsURL,
		cfg.GTFSRT.TripUpdatesURL,
		stations,
		index,
		log,
		collector,
	)
	cache := tracker.NewSnapshotCache(service, time.Duration(cfg.GTFSRT.SnapshotTTLMS)*time.Millisecond)

	if cfg.Publisher.NATSURL != "" {
		interval := time.Duration(cfg.Publisher.IntervalMS) * time.Millisecond
		if interval <= 0 {
			interval = 5 * time.Second
		}
		pub, err := publisher.New(cfg.Publisher.NATSURL, cfg.Publisher.Subject, interval, cache, log, collector)
		if err != nil {
			log.Fatal("failed to connect to nats", "error", err)
		}
		defer pub.Close()
		pubCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go pub.Run(pubCtx)
		log.Info("nats publisher started", "subject", cfg.Publisher.Subject, "interval", interval.String())
	}

	server := tracker.NewServer(cfg.Server.Port, service, cache, stations, store, collector, log)
	server.Start()
	server.HandleGracefulShutdown()
}
