package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/seantiz/sceneloader/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeTestBatch() *model.Batch {
	return &model.Batch{
		ID:        model.NewID(),
		State:     model.BatchLoading,
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestCreateAndGetBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := makeTestBatch()
	b.Requested = 2

	if err := s.CreateBatch(ctx, b); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	got, err := s.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if got.ID != b.ID {
		t.Errorf("ID = %q, want %q", got.ID, b.ID)
	}
	if got.State != model.BatchLoading {
		t.Errorf("State = %q, want %q", got.State, model.BatchLoading)
	}
	if got.Requested != 2 {
		t.Errorf("Requested = %d, want 2", got.Requested)
	}
	if !got.StartedAt.Equal(b.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, b.StartedAt)
	}
	if got.FinishedAt != nil {
		t.Errorf("FinishedAt = %v, want nil", got.FinishedAt)
	}
}

func TestGetBatchNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetBatch(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBatch error = %v, want ErrNotFound", err)
	}
}

func TestUpdateBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := makeTestBatch()
	if err := s.CreateBatch(ctx, b); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	finished := b.StartedAt.Add(1500 * time.Millisecond)
	b.State = model.BatchIdle
	b.Requested = 3
	b.Committed = 2
	b.Failed = 1
	b.FinishedAt = &finished
	if err := s.UpdateBatch(ctx, b); err != nil {
		t.Fatalf("UpdateBatch: %v", err)
	}

	got, err := s.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if got.State != model.BatchIdle || got.Committed != 2 || got.Failed != 1 {
		t.Errorf("got state=%q committed=%d failed=%d", got.State, got.Committed, got.Failed)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, finished)
	}
}

func TestUpdateBatchNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateBatch(context.Background(), makeTestBatch())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateBatch error = %v, want ErrNotFound", err)
	}
}

func TestListBatchesPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		b := makeTestBatch()
		b.StartedAt = time.Now().UTC().Add(time.Duration(i) * time.Second).Truncate(time.Second)
		if err := s.CreateBatch(ctx, b); err != nil {
			t.Fatalf("CreateBatch[%d]: %v", i, err)
		}
	}

	batches, total, err := s.ListBatches(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(batches) != 2 {
		t.Fatalf("len(batches) = %d, want 2", len(batches))
	}
	if batches[0].StartedAt.Before(batches[1].StartedAt) {
		t.Error("batches should be ordered newest first")
	}

	rest, _, err := s.ListBatches(ctx, 10, 4)
	if err != nil {
		t.Fatalf("ListBatches offset: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("len(rest) = %d, want 1", len(rest))
	}
}

func TestInsertAndListSceneEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	events := []model.SceneEvent{
		{BatchID: "b1", Name: "Lobby", Kind: model.EventLoadRequested, Mode: model.LoadModeSingle},
		{BatchID: "b1", Handle: 1, Name: "Lobby", Kind: model.EventCommitted, Mode: model.LoadModeSingle},
		{BatchID: "b2", Handle: 2, Name: "Arena", Kind: model.EventCommitted, Mode: model.LoadModeAdditive},
		{BatchID: "b1", Handle: 1, Name: "Lobby", Kind: model.EventActivated, Detail: "first"},
	}
	for i := range events {
		if err := s.InsertSceneEvent(ctx, &events[i]); err != nil {
			t.Fatalf("InsertSceneEvent[%d]: %v", i, err)
		}
		if events[i].ID == 0 {
			t.Errorf("event %d ID not set", i)
		}
	}

	got, err := s.ListSceneEvents(ctx, "b1")
	if err != nil {
		t.Fatalf("ListSceneEvents: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(got))
	}
	wantKinds := []string{model.EventLoadRequested, model.EventCommitted, model.EventActivated}
	for i, k := range wantKinds {
		if got[i].Kind != k {
			t.Errorf("events[%d].Kind = %q, want %q", i, got[i].Kind, k)
		}
	}
	if got[1].Handle != 1 || got[1].Mode != model.LoadModeSingle {
		t.Errorf("events[1] = %+v", got[1])
	}
	if got[2].Detail != "first" {
		t.Errorf("events[2].Detail = %q, want %q", got[2].Detail, "first")
	}
}

func TestListSceneEventsEmpty(t *testing.T) {
	s := newTestStore(t)

	got, err := s.ListSceneEvents(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ListSceneEvents: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(events) = %d, want 0", len(got))
	}
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := makeTestBatch()
	if err := s.CreateBatch(ctx, b); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	finished := b.StartedAt.Add(2 * time.Second)
	b.FinishedAt = &finished
	if err := s.UpdateBatch(ctx, b); err != nil {
		t.Fatalf("UpdateBatch: %v", err)
	}
	if err := s.CreateBatch(ctx, makeTestBatch()); err != nil {
		t.Fatalf("CreateBatch open: %v", err)
	}

	for _, ev := range []model.SceneEvent{
		{BatchID: b.ID, Name: "Lobby", Kind: model.EventCommitted, Mode: model.LoadModeSingle},
		{BatchID: b.ID, Name: "Arena", Kind: model.EventCommitted, Mode: model.LoadModeAdditive},
		{BatchID: b.ID, Name: "Arena", Kind: model.EventUnloaded},
	} {
		if err := s.InsertSceneEvent(ctx, &ev); err != nil {
			t.Fatalf("InsertSceneEvent: %v", err)
		}
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalBatches != 2 {
		t.Errorf("TotalBatches = %d, want 2", stats.TotalBatches)
	}
	if stats.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", stats.TotalEvents)
	}
	if stats.CountByKind[model.EventCommitted] != 2 {
		t.Errorf("CountByKind[committed] = %d, want 2", stats.CountByKind[model.EventCommitted])
	}
	if stats.CountByMode["single"] != 1 || stats.CountByMode["additive"] != 1 {
		t.Errorf("CountByMode = %v", stats.CountByMode)
	}
	if _, ok := stats.CountByMode[""]; ok {
		t.Error("CountByMode should not report events without a mode")
	}
	if stats.AvgBatchDurationMS != 2000 {
		t.Errorf("AvgBatchDurationMS = %v, want 2000", stats.AvgBatchDurationMS)
	}
}

func TestGetStatsEmpty(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalBatches != 0 || stats.TotalEvents != 0 || stats.AvgBatchDurationMS != 0 {
		t.Errorf("stats = %+v, want zeros", stats)
	}
}
