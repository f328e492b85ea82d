package gtfs

import (
	"regexp"
	"strings"
)

// UnknownLine is returned when no line number can be resolved
const UnknownLine = "Unknown"

// Matches plausible line numbers embedded in trip ids (2-199, as used
// by the Kraków bus network naming scheme).
var lineNumberRe = regexp.MustCompile(`\b(1[0-9]{2}|[2-9][0-9]|[2-9])\b`)

// LineForTrip approximates a human-readable line number for a vehicle
// when the live feed omits route metadata. Resolution order: direct
// route lookup, numeric extraction from the trip id, partial trip-id
// containment against the static trips table.
func (g *Index) LineForTrip(tripID, routeID string) string {
	if routeID != "" {
		if line, ok := g.routeToLine[routeID]; ok {
			return line
		}
	}

	if tripID != "" {
		if m := lineNumberRe.FindString(tripID); m != "" {
			return m
		}

		for staticTrip, rid := range g.tripToRoute {
			if strings.Contains(tripID, staticTrip) || strings.Contains(staticTrip, tripID) {
				if line, ok := g.routeToLine[rid]; ok {
					return line
				}
			}
		}
	}

	return UnknownLine
}
