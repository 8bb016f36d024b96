package store

import (
	"context"

	"github.com/seantiz/sceneloader/internal/model"
)

// SceneStats holds aggregate statistics over the journal.
type SceneStats struct {
	TotalBatches       int            `json:"total_batches"`
	TotalEvents        int            `json:"total_events"`
	CountByKind        map[string]int `json:"count_by_kind"`
	CountByMode        map[string]int `json:"count_by_mode"`
	AvgBatchDurationMS float64        `json:"avg_batch_duration_ms"`
}

// Store defines the persistence operations for the batch and scene event journal.
type Store interface {
	CreateBatch(ctx context.Context, b *model.Batch) error
	UpdateBatch(ctx context.Context, b *model.Batch) error
	GetBatch(ctx context.Context, id string) (*model.Batch, error)
	ListBatches(ctx context.Context, limit, offset int) ([]*model.Batch, int, error)
	InsertSceneEvent(ctx context.Context, ev *model.SceneEvent) error
	ListSceneEvents(ctx context.Context, batchID string) ([]model.SceneEvent, error)
	GetStats(ctx context.Context) (*SceneStats, error)
	Close() error
}
