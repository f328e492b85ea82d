package tracker

import (
	"net/http"
)

// handleVehiclePositions serves the enriched snapshot. Responses carry
// no-cache headers so polling clients always observe fresh data.
func (s *Server) handleVehiclePositions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	if s.collector != nil {
		s.collector.SnapshotRequests.Inc()
	}
	buf, err := s.cache.GetJSON(r.Context())
	if err != nil {
		s.log.Error("snapshot failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(buildErrorPayload("Failed to fetch vehicle positions", err))
		return
	}
	_, _ = w.Write(buf)
}
