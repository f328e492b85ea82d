package tracker

import (
	"encoding/json"
	"net/http"
)

type healthResponse struct {
	Status          string `json:"status"`
	LatestFeedEpoch int64  `json:"latest_feed_epoch"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := healthResponse{
		Status:          "ok",
		LatestFeedEpoch: s.service.LatestFeedEpoch(),
	}
	_ = json.NewEncoder(w).Encode(resp)
}
