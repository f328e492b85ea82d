// Package station defines transit station records and their sources:
// a Postgres-backed store and, via the gtfs package, a static fallback.
package station
