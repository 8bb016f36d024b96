package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/sceneloader/internal/catalog"
	"github.com/seantiz/sceneloader/internal/content"
	"github.com/seantiz/sceneloader/internal/coordinator"
	"github.com/seantiz/sceneloader/internal/model"
	"github.com/seantiz/sceneloader/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodySize      = 1 << 20 // 1 MB
)

// beginLoadRequest is the JSON body for POST /v1/batches/current/loads.
type beginLoadRequest struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

// operationResponse describes one asset system operation.
type operationResponse struct {
	ID              string  `json:"id"`
	PercentComplete float64 `json:"percent_complete"`
	Done            bool    `json:"done"`
	Error           string  `json:"error,omitempty"`
}

type beginLoadResponse struct {
	BatchID   string            `json:"batch_id"`
	Name      string            `json:"name"`
	Mode      model.LoadMode    `json:"mode"`
	Operation operationResponse `json:"operation"`
}

// currentBatchResponse is the JSON response for GET /v1/batches/current.
type currentBatchResponse struct {
	Batch    model.Batch         `json:"batch"`
	InFlight []operationResponse `json:"in_flight"`
}

// listBatchesResponse wraps the paginated list response.
type listBatchesResponse struct {
	Batches []*model.Batch `json:"batches"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

type batchEventsResponse struct {
	BatchID string             `json:"batch_id"`
	Events  []model.SceneEvent `json:"events"`
}

type awaitResponse struct {
	Batch       model.Batch `json:"batch"`
	LoadedCount int         `json:"loaded_count"`
}

type loadFailureResponse struct {
	Error string      `json:"error"`
	Batch model.Batch `json:"batch"`
}

func describe(op content.Operation) operationResponse {
	resp := operationResponse{
		ID:              op.ID(),
		PercentComplete: op.PercentComplete(),
		Done:            op.IsDone(),
	}
	if err := op.Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	s.coord.StartBatch()
	s.writeJSON(w, http.StatusCreated, s.coord.Batch())
}

func (s *Server) handleEndBatch(w http.ResponseWriter, r *http.Request) {
	s.coord.EndBatch()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetCurrentBatch(w http.ResponseWriter, r *http.Request) {
	ops := s.coord.InFlight()
	inFlight := make([]operationResponse, len(ops))
	for i, op := range ops {
		inFlight[i] = describe(op)
	}
	s.writeJSON(w, http.StatusOK, currentBatchResponse{
		Batch:    s.coord.Batch(),
		InFlight: inFlight,
	})
}

func (s *Server) handleBeginLoad(w http.ResponseWriter, r *http.Request) {
	var req beginLoadRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	mode, err := model.ParseLoadMode(req.Mode)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	op, err := s.coord.BeginLoad(req.Name, mode)
	switch {
	case errors.Is(err, catalog.ErrSceneNotRegistered):
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, coordinator.ErrBatchBusy), errors.Is(err, model.ErrInvalidTransition):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.logger.Error("begin load", "scene", req.Name, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to begin load")
		return
	}

	s.writeJSON(w, http.StatusAccepted, beginLoadResponse{
		BatchID:   s.coord.Batch().ID,
		Name:      req.Name,
		Mode:      mode,
		Operation: describe(op),
	})
}

func (s *Server) handleAwaitBatch(w http.ResponseWriter, r *http.Request) {
	err := s.coord.AwaitAllComplete(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, coordinator.ErrBatchBusy), errors.Is(err, model.ErrInvalidTransition):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, "await cancelled")
		return
	default:
		s.writeJSON(w, http.StatusBadGateway, loadFailureResponse{
			Error: err.Error(),
			Batch: s.coord.Batch(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, awaitResponse{
		Batch:       s.coord.Batch(),
		LoadedCount: s.coord.LoadedCount(),
	})
}

func (s *Server) handleActivateBatch(w http.ResponseWriter, r *http.Request) {
	err := s.coord.ActivateLoaded(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, "activation cancelled")
		return
	default:
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, s.coord.Batch())
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	b, err := s.store.GetBatch(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	if err != nil {
		s.logger.Error("get batch", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get batch")
		return
	}

	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	batches, total, err := s.store.ListBatches(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list batches", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list batches")
		return
	}

	if batches == nil {
		batches = []*model.Batch{}
	}

	s.writeJSON(w, http.StatusOK, listBatchesResponse{
		Batches: batches,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

func (s *Server) handleListBatchEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.store.GetBatch(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "batch not found")
			return
		}
		s.logger.Error("get batch for events", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get batch")
		return
	}

	events, err := s.store.ListSceneEvents(r.Context(), id)
	if err != nil {
		s.logger.Error("list scene events", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.SceneEvent{}
	}

	s.writeJSON(w, http.StatusOK, batchEventsResponse{BatchID: id, Events: events})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
