package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/seantiz/sceneloader/internal/model"
)

func TestStartBatch(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var b model.Batch
	resp := doJSON(t, "POST", ts.URL+"/v1/batches", "", &b)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if len(b.ID) != 26 {
		t.Errorf("ID length = %d, want 26", len(b.ID))
	}
	if b.State != model.BatchLoading {
		t.Errorf("State = %q, want %q", b.State, model.BatchLoading)
	}

	var stored model.Batch
	resp = doJSON(t, "GET", ts.URL+"/v1/batches/"+b.ID, "", &stored)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET batch status = %d, want 200", resp.StatusCode)
	}
	if stored.ID != b.ID {
		t.Errorf("stored ID = %q, want %q", stored.ID, b.ID)
	}
}

func TestGetBatchNotFound(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for _, path := range []string{"/v1/batches/nonexistent", "/v1/batches/nonexistent/events"} {
		resp := doJSON(t, "GET", ts.URL+path, "", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestBeginLoadValidation(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing name", `{"mode":"single"}`, http.StatusBadRequest},
		{"bad mode", `{"name":"Lobby","mode":"stacked"}`, http.StatusBadRequest},
		{"unregistered", `{"name":"Credits"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, "POST", ts.URL+"/v1/batches/current/loads", tt.body, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	if got := len(srv.coord.InFlight()); got != 0 {
		t.Errorf("rejected loads left %d in-flight operations", got)
	}
}

func TestBatchLifecycle(t *testing.T) {
	srv, p := newTestServerWithProvider(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var b model.Batch
	doJSON(t, "POST", ts.URL+"/v1/batches", "", &b)

	var lobby beginLoadResponse
	resp := doJSON(t, "POST", ts.URL+"/v1/batches/current/loads", `{"name":"Lobby","mode":"single"}`, &lobby)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("load Lobby status = %d, want 202", resp.StatusCode)
	}
	if lobby.BatchID != b.ID || lobby.Mode != model.LoadModeSingle || lobby.Operation.Done {
		t.Errorf("load response = %+v", lobby)
	}

	var arena beginLoadResponse
	doJSON(t, "POST", ts.URL+"/v1/batches/current/loads", `{"name":"Arena","mode":"additive"}`, &arena)

	var current currentBatchResponse
	doJSON(t, "GET", ts.URL+"/v1/batches/current", "", &current)
	if len(current.InFlight) != 2 || current.InFlight[0].ID != lobby.Operation.ID {
		t.Fatalf("in_flight = %+v", current.InFlight)
	}

	loads := p.Loads()
	loads[1].Complete()
	loads[0].Complete()

	var awaited awaitResponse
	resp = doJSON(t, "POST", ts.URL+"/v1/batches/current/await", "", &awaited)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("await status = %d, want 200", resp.StatusCode)
	}
	if awaited.LoadedCount != 2 || awaited.Batch.State != model.BatchReady || awaited.Batch.Committed != 2 {
		t.Errorf("await response = %+v", awaited)
	}

	resp = doJSON(t, "POST", ts.URL+"/v1/batches/current/activate", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate status = %d, want 200", resp.StatusCode)
	}
	if got := p.Activations(); len(got) != 2 {
		t.Errorf("activations = %v, want 2", got)
	}

	resp = doJSON(t, "DELETE", ts.URL+"/v1/batches/current", "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("end batch status = %d, want 204", resp.StatusCode)
	}
	if srv.coord.State() != model.BatchIdle {
		t.Errorf("State() = %q, want idle", srv.coord.State())
	}

	var events batchEventsResponse
	doJSON(t, "GET", ts.URL+"/v1/batches/"+b.ID+"/events", "", &events)
	kinds := make([]string, len(events.Events))
	for i, ev := range events.Events {
		kinds[i] = ev.Kind
	}
	want := "load_requested,load_requested,committed,committed,activated,activated"
	if got := strings.Join(kinds, ","); got != want {
		t.Errorf("event kinds = %s, want %s", got, want)
	}
}

func TestAwaitBatchReportsLoadFailures(t *testing.T) {
	srv, p := newTestServerWithProvider(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	p.FailAddress("level1.yaml", errors.New("bundle checksum mismatch"))

	doJSON(t, "POST", ts.URL+"/v1/batches", "", nil)
	doJSON(t, "POST", ts.URL+"/v1/batches/current/loads", `{"name":"Lobby"}`, nil)
	doJSON(t, "POST", ts.URL+"/v1/batches/current/loads", `{"name":"Level1","mode":"additive"}`, nil)
	p.Loads()[0].Complete()

	var failure loadFailureResponse
	resp := doJSON(t, "POST", ts.URL+"/v1/batches/current/await", "", &failure)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if !strings.Contains(failure.Error, "bundle checksum mismatch") {
		t.Errorf("error = %q, want the asset system failure", failure.Error)
	}
	if failure.Batch.Committed != 1 || failure.Batch.Failed != 1 {
		t.Errorf("batch = %+v, want 1 committed and 1 failed", failure.Batch)
	}
}

func TestListBatches(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	// Each StartBatch after a load opens a new batch.
	for range 3 {
		doJSON(t, "POST", ts.URL+"/v1/batches", "", nil)
		doJSON(t, "POST", ts.URL+"/v1/batches/current/loads", `{"name":"Lobby"}`, nil)
	}

	var list listBatchesResponse
	resp := doJSON(t, "GET", ts.URL+"/v1/batches?limit=2", "", &list)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if list.Total != 3 {
		t.Errorf("total = %d, want 3", list.Total)
	}
	if len(list.Batches) != 2 || list.Limit != 2 {
		t.Errorf("got %d batches with limit %d, want 2", len(list.Batches), list.Limit)
	}

	doJSON(t, "GET", ts.URL+fmt.Sprintf("/v1/batches?limit=%d&offset=-4", maxListLimit+1), "", &list)
	if list.Limit != defaultListLimit || list.Offset != 0 {
		t.Errorf("limit/offset = %d/%d, want %d/0", list.Limit, list.Offset, defaultListLimit)
	}
}
