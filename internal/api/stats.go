package api

import (
	"net/http"

	"github.com/seantiz/sceneloader/internal/model"
)

// statsResponse is the JSON response for GET /v1/stats.
type statsResponse struct {
	TotalBatches       int              `json:"total_batches"`
	TotalEvents        int              `json:"total_events"`
	ByKind             map[string]int   `json:"by_kind"`
	ByMode             map[string]int   `json:"by_mode"`
	AvgBatchDurationMS float64          `json:"avg_batch_duration_ms"`
	LoadedScenes       int              `json:"loaded_scenes"`
	State              model.BatchState `json:"state"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.logger.Error("get scene stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, statsResponse{
		TotalBatches:       stats.TotalBatches,
		TotalEvents:        stats.TotalEvents,
		ByKind:             stats.CountByKind,
		ByMode:             stats.CountByMode,
		AvgBatchDurationMS: stats.AvgBatchDurationMS,
		LoadedScenes:       s.coord.LoadedCount(),
		State:              s.coord.State(),
	})
}
