package config

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0"`
}

// GTFSRTConfig contains GTFS-Realtime feed configuration.
// VehiclePositionsURL is the primary feed; the snapshot fails without it.
// TripUpdatesURL is secondary and may be empty.
type GTFSRTConfig struct {
	VehiclePositionsURL string `yaml:"vehiclePositionsURL" validate:"required,url"`
	TripUpdatesURL      string `yaml:"tripUpdatesURL" validate:"omitempty,url"`
	TimeoutMS           int    `yaml:"timeoutMS" validate:"gte=0"`
	SnapshotTTLMS       int    `yaml:"snapshotTTLMS" validate:"gte=0"`
}

// GTFSConfig contains static GTFS reference data configuration.
// StaticPath points at either a directory holding trips.txt, routes.txt
// and stops.txt, or a GTFS zip archive.
type GTFSConfig struct {
	StaticPath string `yaml:"staticPath" validate:"omitempty"`
}

// StationsConfig selects the station source. When DatabaseURL is set the
// station list comes from Postgres; otherwise stops.txt from the static
// GTFS data is used.
type StationsConfig struct {
	DatabaseURL string `yaml:"databaseURL" validate:"omitempty"`
}

// PublisherConfig configures the optional NATS snapshot publisher.
// An empty URL disables it.
type PublisherConfig struct {
	NATSURL    string `yaml:"natsURL" validate:"omitempty"`
	Subject    string `yaml:"subject" validate:"omitempty"`
	IntervalMS int    `yaml:"intervalMS" validate:"gte=0"`
}

// LoggingConfig configures log output
type LoggingConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"filePath"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server    ServerConfig    `yaml:"server" validate:"required"`
	GTFSRT    GTFSRTConfig    `yaml:"gtfsrt" validate:"required"`
	GTFS      GTFSConfig      `yaml:"gtfs"`
	Stations  StationsConfig  `yaml:"stations"`
	Publisher PublisherConfig `yaml:"publisher"`
	Logging   LoggingConfig   `yaml:"logging"`
}
