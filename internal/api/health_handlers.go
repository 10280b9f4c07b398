package api

import "net/http"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{"status": "ok"}
	if s.ArchivePool != nil {
		payload["archive_queue"] = s.ArchivePool.QueueSize()
	}
	if s.StatsPool != nil {
		payload["stats_queue"] = s.StatsPool.QueueSize()
	}
	respondJSON(w, http.StatusOK, payload)
}
