// Package enrich joins decoded GTFS-RT vehicle entities with trip
// updates (by trip id) and a station snapshot (by stop id and by
// nearest great-circle distance), producing one composite record per
// vehicle.
package enrich
