package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/sceneloader/internal/model"
	"github.com/seantiz/sceneloader/internal/store"
)

// handleStreamBatch streams a batch's lifecycle events as server-sent events.
// Events already recorded for the batch are sent first: from the in-memory
// feed while the batch is open, from the journal once it has ended. Each
// event is JSON encoded; a final "done" event marks the end of the batch.
func (s *Server) handleStreamBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	b, err := s.store.GetBatch(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	if err != nil {
		s.logger.Error("get batch for stream", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get batch")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, canFlush := w.(http.Flusher)
	flush := func() {
		if canFlush {
			flusher.Flush()
		}
	}

	if b.FinishedAt != nil {
		w.WriteHeader(http.StatusOK)
		s.replayJournal(w, r, id)
		flush()
		return
	}

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	sub := s.coord.Events().Subscribe(id)
	defer sub.Cancel()

	w.WriteHeader(http.StatusOK)
	// The batch ended between the lookup and the subscription.
	if sub.Ended() {
		s.replayJournal(w, r, id)
		flush()
		return
	}

	eventStreams.Inc()
	defer eventStreams.Dec()

	for _, ev := range sub.Backlog {
		if err := s.writeSceneEvent(w, ev); err != nil {
			return
		}
	}
	flush()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				_ = writeSSEEvent(w, "done", "batch ended")
				flush()
				return
			}
			if err := s.writeSceneEvent(w, ev); err != nil {
				return
			}
			flush()
		case <-r.Context().Done():
			return
		}
	}
}

// replayJournal writes every journaled event of an ended batch followed by
// the "done" event.
func (s *Server) replayJournal(w http.ResponseWriter, r *http.Request, id string) {
	events, err := s.store.ListSceneEvents(r.Context(), id)
	if err != nil {
		s.logger.Error("list scene events for stream", "batch_id", id, "error", err)
		_ = writeSSEEvent(w, "error", "failed to read batch journal")
		return
	}
	for _, ev := range events {
		if err := s.writeSceneEvent(w, ev); err != nil {
			return
		}
	}
	_ = writeSSEEvent(w, "done", "batch ended")
}

func (s *Server) writeSceneEvent(w http.ResponseWriter, ev model.SceneEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("encode scene event", "error", err)
		return nil
	}
	return writeSSEData(w, string(data))
}

// writeSSEData writes a data event. Multi-line strings are split so that each
// segment gets its own "data:" prefix.
func writeSSEData(w http.ResponseWriter, line string) error {
	for seg := range strings.SplitSeq(line, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", seg); err != nil {
			return err
		}
	}
	// Blank line terminates the event.
	_, err := fmt.Fprint(w, "\n")
	return err
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}
