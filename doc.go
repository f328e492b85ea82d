// Package tracker aggregates live GTFS-Realtime vehicle positions,
// trip updates and a station list into enriched snapshots and serves
// them over HTTP. Vehicle positions are the primary source; trip
// updates and stations degrade to empty substitutes when unavailable.
package tracker
