// Package gtfsrt handles fetching and decoding GTFS-Realtime feeds.
//
// It supports the two feed types the tracker consumes:
//   - Vehicle Positions: current vehicle locations (primary)
//   - Trip Updates: real-time arrival/departure predictions (secondary)
//
// Decoding accepts binary protobuf payloads and the JSON feed variant
// some producers publish, normalizing both into the same Feed type.
package gtfsrt
