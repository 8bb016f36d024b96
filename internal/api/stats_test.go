package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seantiz/sceneloader/internal/model"
)

func TestGetStatsEmpty(t *testing.T) {
	srv := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if stats.TotalBatches != 0 || stats.TotalEvents != 0 {
		t.Errorf("totals = %d batches, %d events, want 0", stats.TotalBatches, stats.TotalEvents)
	}
	if stats.LoadedScenes != 0 {
		t.Errorf("loaded_scenes = %d, want 0", stats.LoadedScenes)
	}
	if stats.State != model.BatchIdle {
		t.Errorf("state = %q, want %q", stats.State, model.BatchIdle)
	}
}

func TestGetStatsPopulated(t *testing.T) {
	srv, p := newTestServerWithProvider(t)
	ctx := context.Background()

	p.FailAddress("arena.yaml", errors.New("bundle missing"))

	srv.coord.StartBatch()
	if _, err := srv.coord.BeginLoad("Lobby", model.LoadModeSingle); err != nil {
		t.Fatalf("BeginLoad(Lobby): %v", err)
	}
	if _, err := srv.coord.BeginLoad("Arena", model.LoadModeAdditive); err != nil {
		t.Fatalf("BeginLoad(Arena): %v", err)
	}
	p.Loads()[0].Complete()
	if err := srv.coord.AwaitAllComplete(ctx); err == nil {
		t.Fatal("AwaitAllComplete should report the failed load")
	}
	srv.coord.EndBatch()

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if stats.TotalBatches != 1 {
		t.Errorf("total_batches = %d, want 1", stats.TotalBatches)
	}
	if stats.ByKind[model.EventLoadRequested] != 2 {
		t.Errorf("by_kind[load_requested] = %d, want 2", stats.ByKind[model.EventLoadRequested])
	}
	if stats.ByKind[model.EventCommitted] != 1 {
		t.Errorf("by_kind[committed] = %d, want 1", stats.ByKind[model.EventCommitted])
	}
	if stats.ByKind[model.EventFailed] != 1 {
		t.Errorf("by_kind[failed] = %d, want 1", stats.ByKind[model.EventFailed])
	}
	if stats.ByMode[string(model.LoadModeAdditive)] != 2 {
		t.Errorf("by_mode[additive] = %d, want 2", stats.ByMode[string(model.LoadModeAdditive)])
	}
	if stats.LoadedScenes != 1 {
		t.Errorf("loaded_scenes = %d, want 1", stats.LoadedScenes)
	}
}
