// Package gtfs loads static GTFS reference data (trips, routes, stops)
// from a local directory or zip archive into an immutable in-memory
// index used for line-number lookups and as a station source.
package gtfs
