package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/seantiz/sceneloader/internal/model"

	_ "modernc.org/sqlite"
)

const createBatchesTable = `
CREATE TABLE IF NOT EXISTS batches (
    id          TEXT PRIMARY KEY,
    state       TEXT NOT NULL,
    requested   INTEGER NOT NULL DEFAULT 0,
    committed   INTEGER NOT NULL DEFAULT 0,
    failed      INTEGER NOT NULL DEFAULT 0,
    started_at  DATETIME NOT NULL,
    finished_at DATETIME
)`

const createSceneEventsTable = `
CREATE TABLE IF NOT EXISTS scene_events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id   TEXT NOT NULL,
    handle     INTEGER NOT NULL,
    name       TEXT NOT NULL,
    kind       TEXT NOT NULL,
    mode       TEXT NOT NULL,
    detail     TEXT NOT NULL,
    created_at DATETIME NOT NULL
)`

const createSceneEventsIndex = `
CREATE INDEX IF NOT EXISTS idx_scene_events_batch ON scene_events(batch_id, id)`

// ErrNotFound is returned when a batch is not found.
var ErrNotFound = errors.New("batch not found")

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range []string{createBatchesTable, createSceneEventsTable, createSceneEventsIndex} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateBatch inserts a new batch record.
func (s *SQLiteStore) CreateBatch(ctx context.Context, b *model.Batch) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (id, state, requested, committed, failed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, string(b.State), b.Requested, b.Committed, b.Failed, b.StartedAt, b.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// UpdateBatch overwrites the mutable fields of an existing batch.
func (s *SQLiteStore) UpdateBatch(ctx context.Context, b *model.Batch) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE batches SET state = ?, requested = ?, committed = ?, failed = ?, finished_at = ?
		WHERE id = ?`,
		string(b.State), b.Requested, b.Committed, b.Failed, b.FinishedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBatch retrieves a batch by ID.
func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	b := &model.Batch{}
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, state, requested, committed, failed, started_at, finished_at
		FROM batches WHERE id = ?`, id,
	).Scan(&b.ID, &state, &b.Requested, &b.Committed, &b.Failed, &b.StartedAt, &b.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	b.State = model.BatchState(state)
	return b, nil
}

// ListBatches returns a paginated list of batches, newest first, along with
// the total count of all batches.
func (s *SQLiteStore) ListBatches(ctx context.Context, limit, offset int) ([]*model.Batch, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM batches").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, state, requested, committed, failed, started_at, finished_at
		FROM batches ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []*model.Batch
	for rows.Next() {
		b := &model.Batch{}
		var state string
		if err := rows.Scan(&b.ID, &state, &b.Requested, &b.Committed, &b.Failed, &b.StartedAt, &b.FinishedAt); err != nil {
			return nil, 0, fmt.Errorf("scan batch: %w", err)
		}
		b.State = model.BatchState(state)
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate batches: %w", err)
	}

	return batches, total, nil
}

// InsertSceneEvent appends a scene event and sets its ID.
func (s *SQLiteStore) InsertSceneEvent(ctx context.Context, ev *model.SceneEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO scene_events (batch_id, handle, name, kind, mode, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.BatchID, int(ev.Handle), ev.Name, ev.Kind, string(ev.Mode), ev.Detail, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scene event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("scene event id: %w", err)
	}
	ev.ID = id
	return nil
}

// ListSceneEvents returns the events of a batch in insertion order.
func (s *SQLiteStore) ListSceneEvents(ctx context.Context, batchID string) ([]model.SceneEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, handle, name, kind, mode, detail, created_at
		FROM scene_events WHERE batch_id = ? ORDER BY id ASC`, batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list scene events: %w", err)
	}
	defer rows.Close()

	var events []model.SceneEvent
	for rows.Next() {
		var ev model.SceneEvent
		var handle int
		var mode string
		if err := rows.Scan(&ev.ID, &ev.BatchID, &handle, &ev.Name, &ev.Kind, &mode, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scene event: %w", err)
		}
		ev.Handle = model.SceneHandle(handle)
		ev.Mode = model.LoadMode(mode)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scene events: %w", err)
	}
	return events, nil
}

// GetStats aggregates batch and event counts. The average batch duration only
// covers finished batches.
func (s *SQLiteStore) GetStats(ctx context.Context) (*SceneStats, error) {
	stats := &SceneStats{
		CountByKind: make(map[string]int),
		CountByMode: make(map[string]int),
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM batches").Scan(&stats.TotalBatches); err != nil {
		return nil, fmt.Errorf("count batches: %w", err)
	}

	if err := s.countBy(ctx, "kind", stats.CountByKind); err != nil {
		return nil, err
	}
	for _, n := range stats.CountByKind {
		stats.TotalEvents += n
	}

	if err := s.countBy(ctx, "mode", stats.CountByMode); err != nil {
		return nil, err
	}
	delete(stats.CountByMode, "")

	rows, err := s.db.QueryContext(ctx,
		"SELECT started_at, finished_at FROM batches WHERE finished_at IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("query batch durations: %w", err)
	}
	defer rows.Close()

	var sum float64
	var n int
	for rows.Next() {
		var started, finished time.Time
		if err := rows.Scan(&started, &finished); err != nil {
			return nil, fmt.Errorf("scan batch duration: %w", err)
		}
		sum += float64(finished.Sub(started).Milliseconds())
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch durations: %w", err)
	}
	if n > 0 {
		stats.AvgBatchDurationMS = sum / float64(n)
	}

	return stats, nil
}

// countBy fills dst with scene event counts grouped by column.
func (s *SQLiteStore) countBy(ctx context.Context, column string, dst map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM scene_events GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("count events by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		dst[key] = count
	}
	return rows.Err()
}
