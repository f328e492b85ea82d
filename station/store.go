package station

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store reads and writes station records in Postgres. It assumes an
// existing stations table; schema management is out of scope.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres using the pgx stdlib driver
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

// Ping verifies database connectivity with a bounded timeout
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close releases the connection pool
func (s *Store) Close() error { return s.db.Close() }

// ListStations returns the full station snapshot
func (s *Store) ListStations(ctx context.Context) ([]Station, error) {
	const q = `SELECT station_id, station_name, latitude, longitude, COALESCE(transport_type, '')
	           FROM stations ORDER BY station_id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()

	var out []Station
	for rows.Next() {
		var st Station
		if err := rows.Scan(&st.ID, &st.Name, &st.Latitude, &st.Longitude, &st.TransportType); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListStationsInBounds returns stations within a bounding box. The full
// snapshot contract does not scale to dense networks; viewport callers
// pass the visible bounds instead.
func (s *Store) ListStationsInBounds(ctx context.Context, minLat, minLon, maxLat, maxLon float64) ([]Station, error) {
	const q = `SELECT station_id, station_name, latitude, longitude, COALESCE(transport_type, '')
	           FROM stations
	           WHERE latitude BETWEEN $1 AND $3 AND longitude BETWEEN $2 AND $4
	           ORDER BY station_id`
	rows, err := s.db.QueryContext(ctx, q, minLat, minLon, maxLat, maxLon)
	if err != nil {
		return nil, fmt.Errorf("query stations in bounds: %w", err)
	}
	defer rows.Close()

	var out []Station
	for rows.Next() {
		var st Station
		if err := rows.Scan(&st.ID, &st.Name, &st.Latitude, &st.Longitude, &st.TransportType); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// GetStation returns one station by id, or sql.ErrNoRows
func (s *Store) GetStation(ctx context.Context, id string) (Station, error) {
	const q = `SELECT station_id, station_name, latitude, longitude, COALESCE(transport_type, '')
	           FROM stations WHERE station_id = $1`
	var st Station
	err := s.db.QueryRowContext(ctx, q, id).Scan(&st.ID, &st.Name, &st.Latitude, &st.Longitude, &st.TransportType)
	if err != nil {
		return Station{}, err
	}
	return st, nil
}

// AddStation inserts a station record
func (s *Store) AddStation(ctx context.Context, st Station) error {
	const q = `INSERT INTO stations (station_id, station_name, latitude, longitude, transport_type)
	           VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.ExecContext(ctx, q, st.ID, st.Name, st.Latitude, st.Longitude, st.TransportType); err != nil {
		return fmt.Errorf("insert station: %w", err)
	}
	return nil
}
