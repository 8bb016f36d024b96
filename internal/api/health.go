package api

import (
	"net/http"

	"github.com/seantiz/sceneloader/internal/model"
)

type healthResponse struct {
	Status       string           `json:"status"`
	BatchState   model.BatchState `json:"batch_state"`
	LoadedScenes int              `json:"loaded_scenes"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		BatchState:   s.coord.State(),
		LoadedScenes: s.coord.LoadedCount(),
	})
}
