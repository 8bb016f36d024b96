package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/seantiz/sceneloader/internal/catalog"
	"github.com/seantiz/sceneloader/internal/content"
	"github.com/seantiz/sceneloader/internal/model"
	"github.com/seantiz/sceneloader/internal/store"
)

// SubstantiallyCompleteThreshold is the progress at which a load is reported
// as substantially complete. Asset system progress flattens near the end while
// activation work remains, so hosts may start preparing dependent systems here.
const SubstantiallyCompleteThreshold = 0.9

// request is one load issued during a batch.
type request struct {
	name      string
	mode      model.LoadMode
	op        content.LoadOperation
	settled   bool // result observed by a completion wait
	activated bool
}

// Coordinator tracks scene loads and unloads against an asset system.
//
// The in-flight set, loaded index and loaded scene list are owned by the
// coordinator and only exposed through read-oriented queries. The mutex is
// never held across a suspension point.
type Coordinator struct {
	table    *catalog.Table
	provider content.Provider
	store    store.Store
	logger   *slog.Logger
	feed     *EventFeed
	wg       sync.WaitGroup

	mu        sync.Mutex
	batch     model.Batch
	inFlight  []*request
	current   content.Operation
	index     map[model.SceneHandle]content.LoadOperation
	scenes    []*model.Scene
	unloading map[model.SceneHandle]content.Operation
}

// New creates a coordinator over the given catalog and asset system. The
// coordinator starts idle with an empty loaded index.
func New(table *catalog.Table, p content.Provider, s store.Store, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		table:     table,
		provider:  p,
		store:     s,
		logger:    logger,
		feed:      NewEventFeed(),
		batch:     model.Batch{State: model.BatchIdle},
		index:     make(map[model.SceneHandle]content.LoadOperation),
		unloading: make(map[model.SceneHandle]content.Operation),
	}
}

// Events returns the feed of lifecycle events per batch.
func (c *Coordinator) Events() *EventFeed {
	return c.feed
}

// Catalog returns the scene reference table.
func (c *Coordinator) Catalog() *catalog.Table {
	return c.table
}

// Wait blocks until every background unload waiter has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// StartBatch begins a new batch: the in-flight set and the current operation
// are cleared and the coordinator enters the loading state. Calling it again
// before anything was requested keeps the same batch. It returns the batch ID.
func (c *Coordinator) StartBatch() string {
	c.mu.Lock()
	if c.batch.State == model.BatchLoading && len(c.inFlight) == 0 && c.batch.ID != "" {
		c.current = nil
		id := c.batch.ID
		c.mu.Unlock()
		return id
	}
	prev, hadOpen := c.closeBatchLocked()
	next := c.openBatchLocked()
	c.mu.Unlock()

	if hadOpen {
		c.finishBatch(prev)
	}
	c.createBatch(next)
	c.logger.Info("batch started", "batch_id", next.ID)
	return next.ID
}

// EndBatch closes the current batch and returns to idle. The in-flight set is
// cleared so no stale operation bleeds into the next request cycle. It is safe
// to call repeatedly.
func (c *Coordinator) EndBatch() {
	c.mu.Lock()
	prev, hadOpen := c.closeBatchLocked()
	c.batch = model.Batch{State: model.BatchIdle}
	c.mu.Unlock()

	if hadOpen {
		c.finishBatch(prev)
		c.logger.Info("batch ended",
			"batch_id", prev.ID,
			"requested", prev.Requested,
			"committed", prev.Committed,
			"failed", prev.Failed,
		)
	}
}

// closeBatchLocked clears per-batch bookkeeping and returns the batch that was
// open, if any. The caller must hold c.mu.
func (c *Coordinator) closeBatchLocked() (model.Batch, bool) {
	prev := c.batch
	c.inFlight = nil
	c.current = nil
	if prev.ID == "" {
		return prev, false
	}
	now := time.Now().UTC()
	prev.State = model.BatchIdle
	prev.FinishedAt = &now
	return prev, true
}

// openBatchLocked starts a fresh batch in the loading state. The caller must
// hold c.mu.
func (c *Coordinator) openBatchLocked() model.Batch {
	c.inFlight = nil
	c.current = nil
	c.batch = model.Batch{
		ID:        model.NewID(),
		State:     model.BatchLoading,
		StartedAt: time.Now().UTC(),
	}
	return c.batch
}

// BeginLoad resolves name through the catalog and issues a non-blocking load
// with the given mode. The load joins the in-flight set and becomes the
// current operation. An unknown name fails with *catalog.UnregisteredSceneError
// and leaves every piece of state untouched.
func (c *Coordinator) BeginLoad(name string, mode model.LoadMode) (content.LoadOperation, error) {
	ref, err := c.table.Lookup(name)
	if err != nil {
		unregisteredScenesTotal.Inc()
		return nil, err
	}

	c.mu.Lock()
	if c.batch.State == model.BatchAwaiting {
		c.mu.Unlock()
		return nil, ErrBatchBusy
	}
	if !model.ValidTransition(c.batch.State, model.BatchLoading) {
		state := c.batch.State
		c.mu.Unlock()
		return nil, fmt.Errorf("begin load: %w: %s -> %s", model.ErrInvalidTransition, state, model.BatchLoading)
	}

	var opened *model.Batch
	if c.batch.ID == "" {
		b := c.openBatchLocked()
		opened = &b
	}

	op := c.provider.LoadAsync(ref, mode, false)
	c.inFlight = append(c.inFlight, &request{name: name, mode: mode, op: op})
	c.current = op
	c.batch.State = model.BatchLoading
	c.batch.Requested++
	batch := c.batch
	c.mu.Unlock()

	loadRequestsTotal.WithLabelValues(string(mode)).Inc()
	if opened != nil {
		c.createBatch(*opened)
	} else {
		c.saveBatch(batch)
	}
	c.record(model.SceneEvent{
		BatchID: batch.ID,
		Name:    name,
		Kind:    model.EventLoadRequested,
		Mode:    mode,
		Detail:  ref.String(),
	})
	c.logger.Debug("scene load issued",
		"batch_id", batch.ID,
		"scene", name,
		"mode", mode,
		"operation_id", op.ID(),
	)
	return op, nil
}

// AwaitAllComplete suspends until every in-flight load reports completion, in
// whatever order they finish, then commits each successful result into the
// loaded index in issuance order. Nothing is committed before all loads are
// done. Handles already present are skipped, so repeated waits on a finished
// batch are harmless.
//
// Failed loads are not committed; their errors are returned joined and
// unchanged. Cancelling ctx returns ctx.Err() with no commit.
func (c *Coordinator) AwaitAllComplete(ctx context.Context) error {
	c.mu.Lock()
	if c.batch.State == model.BatchAwaiting {
		c.mu.Unlock()
		return ErrBatchBusy
	}
	if c.batch.ID == "" {
		c.mu.Unlock()
		return nil
	}
	if !model.ValidTransition(c.batch.State, model.BatchAwaiting) {
		state := c.batch.State
		c.mu.Unlock()
		return fmt.Errorf("await: %w: %s -> %s", model.ErrInvalidTransition, state, model.BatchAwaiting)
	}
	batchID := c.batch.ID
	prevState := c.batch.State
	reqs := slices.Clone(c.inFlight)
	c.batch.State = model.BatchAwaiting
	c.mu.Unlock()

	ops := make([]content.LoadOperation, len(reqs))
	for i, r := range reqs {
		ops[i] = r.op
	}

	start := time.Now()
	if err := content.WaitAll(ctx, ops...); err != nil {
		c.mu.Lock()
		if c.batch.ID == batchID && c.batch.State == model.BatchAwaiting {
			c.batch.State = prevState
		}
		c.mu.Unlock()
		return err
	}
	batchAwaitDuration.Observe(time.Since(start).Seconds())

	var (
		errs      []error
		events    []model.SceneEvent
		committed int
		failed    int
	)

	c.mu.Lock()
	for _, r := range reqs {
		inst, err := r.op.Result()
		if err != nil {
			errs = append(errs, err)
			if !r.settled {
				r.settled = true
				failed++
				events = append(events, model.SceneEvent{
					BatchID: batchID,
					Name:    r.name,
					Kind:    model.EventFailed,
					Mode:    r.mode,
					Detail:  err.Error(),
				})
			}
			continue
		}
		r.settled = true
		if c.commitLocked(inst.Scene(), inst.Handle(), r.op) {
			committed++
			events = append(events, model.SceneEvent{
				BatchID: batchID,
				Handle:  inst.Handle(),
				Name:    r.name,
				Kind:    model.EventCommitted,
				Mode:    r.mode,
			})
		}
	}
	sameBatch := c.batch.ID == batchID
	if sameBatch {
		c.batch.State = model.BatchReady
		c.batch.Committed += committed
		c.batch.Failed += failed
	}
	batch := c.batch
	c.mu.Unlock()

	loadResultsTotal.WithLabelValues(resultCommitted).Add(float64(committed))
	loadResultsTotal.WithLabelValues(resultFailed).Add(float64(failed))
	if sameBatch && batch.ID != "" {
		c.saveBatch(batch)
	}
	for _, ev := range events {
		c.record(ev)
	}
	if failed > 0 {
		c.logger.Warn("batch completed with failed loads",
			"batch_id", batchID,
			"committed", committed,
			"failed", failed,
		)
	}

	return errors.Join(errs...)
}

// commitLocked inserts a scene into the loaded index and list unless its
// handle is already tracked. The caller must hold c.mu.
func (c *Coordinator) commitLocked(scene *model.Scene, handle model.SceneHandle, op content.LoadOperation) bool {
	if _, ok := c.index[handle]; ok {
		return false
	}
	c.index[handle] = op
	c.scenes = append(c.scenes, scene)
	loadedScenes.Set(float64(len(c.index)))
	return true
}

// RecordLoadedScene commits a scene the host has independently confirmed as
// ready, together with the load operation that produced it. The operation is
// required: recording a scene without it is an unsupported call shape and
// always fails.
func (c *Coordinator) RecordLoadedScene(scene *model.Scene, op content.LoadOperation) error {
	if op == nil {
		return &UnsupportedOperationError{
			Operation: "RecordLoadedScene",
			Reason:    "a scene can only be recorded with the load operation that produced it",
		}
	}
	if scene == nil {
		return errors.New("record loaded scene: scene is nil")
	}

	inst, err := op.Result()
	if err != nil {
		return fmt.Errorf("record loaded scene: %w", err)
	}
	if inst.Handle() != scene.Handle {
		return fmt.Errorf("record loaded scene: %w: scene %d, operation %d", ErrHandleMismatch, scene.Handle, inst.Handle())
	}

	c.mu.Lock()
	added := c.commitLocked(scene, scene.Handle, op)
	batchID := c.batch.ID
	c.mu.Unlock()

	if added {
		c.record(model.SceneEvent{
			BatchID: batchID,
			Handle:  scene.Handle,
			Name:    scene.Name,
			Kind:    model.EventCommitted,
			Mode:    scene.Mode,
			Detail:  "recorded by host",
		})
	}
	return nil
}

// BeginUnload issues a non-blocking unload of a tracked scene. The handle stays
// in the loaded index until the unload completes; a background waiter then
// removes it. An untracked handle is a caller error: it is logged as a warning
// and nothing else happens. The returned flag reports whether an unload was
// issued.
func (c *Coordinator) BeginUnload(handle model.SceneHandle) (content.Operation, bool) {
	c.mu.Lock()
	batchID := c.batch.ID
	loadOp, ok := c.index[handle]
	if !ok {
		c.mu.Unlock()
		unloadsTotal.WithLabelValues(resultUntracked).Inc()
		c.logger.Warn("unload requested for untracked scene handle", "handle", handle)
		c.record(model.SceneEvent{
			BatchID: batchID,
			Handle:  handle,
			Kind:    model.EventUnloadIgnored,
			Detail:  "handle not tracked",
		})
		return nil, false
	}
	if _, busy := c.unloading[handle]; busy {
		c.mu.Unlock()
		c.logger.Warn("unload already in progress for scene handle", "handle", handle)
		return nil, false
	}

	op := c.provider.UnloadAsync(loadOp)
	c.current = op
	c.unloading[handle] = op
	c.mu.Unlock()

	c.record(model.SceneEvent{
		BatchID: batchID,
		Handle:  handle,
		Kind:    model.EventUnloadRequested,
	})

	c.wg.Go(func() {
		c.finishUnload(batchID, handle, op)
	})
	return op, true
}

// finishUnload waits for an unload to complete and drops the handle from the
// loaded index. A failed unload leaves the scene tracked, since it is still
// loaded.
func (c *Coordinator) finishUnload(batchID string, handle model.SceneHandle, op content.Operation) {
	<-op.Done()

	c.mu.Lock()
	delete(c.unloading, handle)
	err := op.Err()
	var name string
	if err == nil {
		delete(c.index, handle)
		c.scenes = slices.DeleteFunc(c.scenes, func(s *model.Scene) bool {
			if s.Handle == handle {
				name = s.Name
				return true
			}
			return false
		})
		loadedScenes.Set(float64(len(c.index)))
	}
	c.mu.Unlock()

	if err != nil {
		unloadsTotal.WithLabelValues(resultFailed).Inc()
		c.logger.Error("scene unload failed", "handle", handle, "error", err)
		c.record(model.SceneEvent{
			BatchID: batchID,
			Handle:  handle,
			Kind:    model.EventFailed,
			Detail:  fmt.Sprintf("unload: %v", err),
		})
		return
	}

	unloadsTotal.WithLabelValues(resultCompleted).Inc()
	c.logger.Debug("scene unloaded", "handle", handle, "scene", name)
	c.record(model.SceneEvent{
		BatchID: batchID,
		Handle:  handle,
		Name:    name,
		Kind:    model.EventUnloaded,
	})
}

// PercentComplete reports the progress of the current operation only, not the
// aggregate of the batch. With no current operation it returns 1.
func (c *Coordinator) PercentComplete() float64 {
	c.mu.Lock()
	op := c.current
	c.mu.Unlock()

	if op == nil {
		return 1
	}
	return op.PercentComplete()
}

// IsSubstantiallyComplete reports whether PercentComplete has reached
// SubstantiallyCompleteThreshold.
func (c *Coordinator) IsSubstantiallyComplete() bool {
	return c.PercentComplete() >= SubstantiallyCompleteThreshold
}

// ActivateLoaded activates every in-flight scene one at a time in issuance
// order, waiting for each activation before starting the next. Each load is
// activated at most once; loads that failed are skipped. An activation failure
// stops the pass and is returned.
func (c *Coordinator) ActivateLoaded(ctx context.Context) error {
	c.mu.Lock()
	batchID := c.batch.ID
	reqs := slices.Clone(c.inFlight)
	c.mu.Unlock()

	for _, r := range reqs {
		if err := content.Wait(ctx, r.op); err != nil {
			return err
		}

		inst, err := r.op.Result()
		if err != nil {
			c.logger.Warn("skipping activation of failed load", "batch_id", batchID, "scene", r.name, "error", err)
			continue
		}

		c.mu.Lock()
		claimed := !r.activated
		r.activated = true
		c.mu.Unlock()
		if !claimed {
			continue
		}

		act := inst.ActivateAsync()
		if err := content.Wait(ctx, act); err != nil {
			return err
		}

		if err := act.Err(); err != nil {
			activationsTotal.WithLabelValues(resultFailed).Inc()
			c.record(model.SceneEvent{
				BatchID: batchID,
				Handle:  inst.Handle(),
				Name:    r.name,
				Kind:    model.EventFailed,
				Mode:    r.mode,
				Detail:  fmt.Sprintf("activate: %v", err),
			})
			return fmt.Errorf("activate scene %q (handle %d): %w", r.name, inst.Handle(), err)
		}

		activationsTotal.WithLabelValues(resultOK).Inc()
		c.record(model.SceneEvent{
			BatchID: batchID,
			Handle:  inst.Handle(),
			Name:    r.name,
			Kind:    model.EventActivated,
			Mode:    r.mode,
		})
	}
	return nil
}

// LoadedScenes returns the loaded scene list itself, not a copy. Callers must
// not modify it and must not hold it across calls that load or unload scenes.
func (c *Coordinator) LoadedScenes() []*model.Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scenes
}

// SnapshotScenes returns a copy of the loaded scene list for callers on other
// goroutines.
func (c *Coordinator) SnapshotScenes() []*model.Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.scenes)
}

// IsLoaded reports whether handle is tracked in the loaded index.
func (c *Coordinator) IsLoaded(handle model.SceneHandle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[handle]
	return ok
}

// LoadedCount returns the number of tracked scenes.
func (c *Coordinator) LoadedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Operation finds a load operation by ID among the in-flight set and the
// loaded index.
func (c *Coordinator) Operation(id string) (content.LoadOperation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.inFlight {
		if r.op.ID() == id {
			return r.op, true
		}
	}
	for _, op := range c.index {
		if op.ID() == id {
			return op, true
		}
	}
	return nil, false
}

// InFlight returns a copy of the current batch's load operations in issuance
// order.
func (c *Coordinator) InFlight() []content.LoadOperation {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := make([]content.LoadOperation, len(c.inFlight))
	for i, r := range c.inFlight {
		ops[i] = r.op
	}
	return ops
}

// State returns the current batch state.
func (c *Coordinator) State() model.BatchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batch.State
}

// Batch returns a copy of the current batch. The ID is empty when idle.
func (c *Coordinator) Batch() model.Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batch
}

// record journals an event and publishes it to subscribers. Journal failures
// are logged and never affect coordinator state.
func (c *Coordinator) record(ev model.SceneEvent) {
	ev.CreatedAt = time.Now().UTC()
	if ev.BatchID != "" {
		if err := c.store.InsertSceneEvent(context.Background(), &ev); err != nil {
			c.logger.Error("failed to journal scene event", "batch_id", ev.BatchID, "kind", ev.Kind, "error", err)
		}
	}
	c.feed.Publish(ev)
}

func (c *Coordinator) createBatch(b model.Batch) {
	if err := c.store.CreateBatch(context.Background(), &b); err != nil {
		c.logger.Error("failed to journal batch", "batch_id", b.ID, "error", err)
	}
}

func (c *Coordinator) saveBatch(b model.Batch) {
	if err := c.store.UpdateBatch(context.Background(), &b); err != nil {
		c.logger.Error("failed to update batch journal", "batch_id", b.ID, "error", err)
	}
}

// finishBatch journals a closed batch and ends its event stream.
func (c *Coordinator) finishBatch(b model.Batch) {
	c.saveBatch(b)
	c.feed.End(b.ID)
}
