package api

import (
	"net/http"
)

func (s *Server) handleEmbeddingStats(w http.ResponseWriter, r *http.Request) {
	if s.embedding == nil {
		jsonError(w, "embedding stats unavailable", http.StatusServiceUnavailable)
		return
	}

	hits, misses := s.embedding.HitsMisses()
	status := "ok"
	if err := s.embedding.Ping(r.Context()); err != nil {
		status = "unreachable: " + err.Error()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model":        s.embedding.ModelName(),
		"provider":     status,
		"stats":        s.embedding.Stats(),
		"cache_hits":   hits,
		"cache_misses": misses,
		"queue_depth":  s.orchestrator.QueueDepth(),
	})
}
