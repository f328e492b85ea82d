package config

import (
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads and validates the application configuration. The YAML file
// provides the base; a .env file and process environment override the
// deployment-specific values (PORT, DATABASE_URL, NATS_URL, feed URLs).
func Load(paths ...string) (*AppConfig, error) {
	_ = godotenv.Load()

	if len(paths) == 0 {
		paths = []string{"config.yml", "./config/config.yml"}
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3003
	}
	if cfg.Publisher.Subject == "" {
		cfg.Publisher.Subject = "vehicles.snapshot"
	}

	v := validator.New()
	if err := v.Struct(cfg.Server); err != nil {
		return nil, err
	}
	if err := v.Struct(cfg.GTFSRT); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Stations.DatabaseURL = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.Publisher.NATSURL = v
	}
	if v := os.Getenv("VEHICLE_POSITIONS_URL"); v != "" {
		cfg.GTFSRT.VehiclePositionsURL = v
	}
	if v := os.Getenv("TRIP_UPDATES_URL"); v != "" {
		cfg.GTFSRT.TripUpdatesURL = v
	}
	if v := os.Getenv("GTFS_STATIC_PATH"); v != "" {
		cfg.GTFS.StaticPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
