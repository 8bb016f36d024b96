package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/sceneloader/internal/content"
	"github.com/seantiz/sceneloader/internal/coordinator"
	"github.com/seantiz/sceneloader/internal/model"
)

// recordSceneRequest is the JSON body for POST /v1/scenes.
type recordSceneRequest struct {
	OperationID string            `json:"operation_id"`
	Handle      model.SceneHandle `json:"handle"`
}

type listScenesResponse struct {
	Scenes []*model.Scene `json:"scenes"`
	Count  int            `json:"count"`
}

type unloadResponse struct {
	Handle    model.SceneHandle  `json:"handle"`
	Issued    bool               `json:"issued"`
	Operation *operationResponse `json:"operation,omitempty"`
}

type progressResponse struct {
	PercentComplete       float64          `json:"percent_complete"`
	SubstantiallyComplete bool             `json:"substantially_complete"`
	State                 model.BatchState `json:"state"`
}

func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	scenes := s.coord.SnapshotScenes()
	if scenes == nil {
		scenes = []*model.Scene{}
	}
	s.writeJSON(w, http.StatusOK, listScenesResponse{Scenes: scenes, Count: len(scenes)})
}

func (s *Server) handleRecordScene(w http.ResponseWriter, r *http.Request) {
	var req recordSceneRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.OperationID == "" {
		err := s.coord.RecordLoadedScene(&model.Scene{Handle: req.Handle}, nil)
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	op, ok := s.coord.Operation(req.OperationID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "operation not found")
		return
	}
	inst, err := op.Result()
	if errors.Is(err, content.ErrNotDone) {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	scene := inst.Scene()
	if req.Handle != 0 && req.Handle != scene.Handle {
		scene = &model.Scene{Handle: req.Handle, Name: scene.Name, Address: scene.Address, Mode: scene.Mode}
	}

	err = s.coord.RecordLoadedScene(scene, op)
	switch {
	case err == nil:
	case errors.Is(err, coordinator.ErrHandleMismatch):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, coordinator.ErrUnsupportedOperation):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	default:
		s.logger.Error("record loaded scene", "operation_id", req.OperationID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to record scene")
		return
	}

	s.writeJSON(w, http.StatusOK, scene)
}

// handleUnloadScene always answers 202: an untracked handle is logged by the
// coordinator and reported with issued=false.
func (s *Server) handleUnloadScene(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "handle"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "handle must be an integer")
		return
	}
	handle := model.SceneHandle(n)

	resp := unloadResponse{Handle: handle}
	if op, ok := s.coord.BeginUnload(handle); ok {
		d := describe(op)
		resp.Issued = true
		resp.Operation = &d
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	pct := s.coord.PercentComplete()
	s.writeJSON(w, http.StatusOK, progressResponse{
		PercentComplete:       pct,
		SubstantiallyComplete: pct >= coordinator.SubstantiallyCompleteThreshold,
		State:                 s.coord.State(),
	})
}
