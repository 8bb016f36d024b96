package content_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/seantiz/sceneloader/internal/content"
	"github.com/seantiz/sceneloader/internal/model"
)

type fakeInstance struct {
	handle model.SceneHandle
}

func (f *fakeInstance) Handle() model.SceneHandle { return f.handle }
func (f *fakeInstance) Scene() *model.Scene       { return &model.Scene{Handle: f.handle} }
func (f *fakeInstance) ActivateAsync() content.Operation {
	return content.Resolved(nil)
}

// Compile-time interface satisfaction checks.
var (
	_ content.Operation     = (*content.Future)(nil)
	_ content.LoadOperation = (*content.LoadFuture)(nil)
	_ content.Instance      = (*fakeInstance)(nil)
)

func TestFutureProgressAndResolve(t *testing.T) {
	f := content.NewFuture()
	if f.IsDone() {
		t.Fatal("new future should not be done")
	}
	if got := f.PercentComplete(); got != 0 {
		t.Errorf("initial progress = %v, want 0", got)
	}

	f.SetProgress(0.4)
	if got := f.PercentComplete(); got != 0.4 {
		t.Errorf("progress = %v, want 0.4", got)
	}
	f.SetProgress(7)
	if got := f.PercentComplete(); got != 1 {
		t.Errorf("clamped progress = %v, want 1", got)
	}
	f.SetProgress(-1)
	if got := f.PercentComplete(); got != 0 {
		t.Errorf("clamped progress = %v, want 0", got)
	}

	if !f.Resolve(nil) {
		t.Fatal("first Resolve should report true")
	}
	if f.Resolve(errors.New("late")) {
		t.Error("second Resolve should report false")
	}
	if !f.IsDone() {
		t.Error("future should be done after Resolve")
	}
	if f.Err() != nil {
		t.Errorf("Err() = %v, want nil", f.Err())
	}
	if got := f.PercentComplete(); got != 1 {
		t.Errorf("progress after resolve = %v, want 1", got)
	}

	f.SetProgress(0.2)
	if got := f.PercentComplete(); got != 1 {
		t.Errorf("progress changed after resolve: %v", got)
	}
}

func TestLoadFutureResultBeforeDone(t *testing.T) {
	f := content.NewLoadFuture()
	if _, err := f.Result(); !errors.Is(err, content.ErrNotDone) {
		t.Errorf("Result() error = %v, want ErrNotDone", err)
	}
}

func TestLoadFutureComplete(t *testing.T) {
	f := content.NewLoadFuture()
	if !f.Complete(&fakeInstance{handle: 7}) {
		t.Fatal("Complete should report true")
	}
	if f.Complete(&fakeInstance{handle: 8}) {
		t.Error("second Complete should report false")
	}

	inst, err := f.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if inst.Handle() != 7 {
		t.Errorf("Handle() = %d, want 7", inst.Handle())
	}
}

func TestFailedLoad(t *testing.T) {
	boom := errors.New("bundle missing")
	f := content.FailedLoad(boom)

	if !f.IsDone() {
		t.Fatal("failed load should be done")
	}
	if _, err := f.Result(); !errors.Is(err, boom) {
		t.Errorf("Result() error = %v, want %v", err, boom)
	}
	if !errors.Is(f.Err(), boom) {
		t.Errorf("Err() = %v, want %v", f.Err(), boom)
	}
}

func TestWaitCancelled(t *testing.T) {
	f := content.NewFuture()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := content.Wait(ctx, f); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait error = %v, want DeadlineExceeded", err)
	}
}

func TestWaitAllAnyOrder(t *testing.T) {
	ops := []*content.Future{content.NewFuture(), content.NewFuture(), content.NewFuture()}

	// Resolve in reverse issuance order.
	go func() {
		for i := len(ops) - 1; i >= 0; i-- {
			time.Sleep(5 * time.Millisecond)
			ops[i].Resolve(nil)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := content.WaitAll(ctx, ops...); err != nil {
		t.Fatalf("WaitAll: %v", err)
	}
	for i, op := range ops {
		if !op.IsDone() {
			t.Errorf("op[%d] not done after WaitAll", i)
		}
	}
}

func TestWaitAllIgnoresOperationFailure(t *testing.T) {
	a := content.Resolved(errors.New("failed load"))
	b := content.Resolved(nil)

	if err := content.WaitAll(context.Background(), a, b); err != nil {
		t.Errorf("WaitAll error = %v, want nil (failures stay on the operation)", err)
	}
}

func TestWaitAllEmpty(t *testing.T) {
	if err := content.WaitAll[content.Operation](context.Background()); err != nil {
		t.Errorf("WaitAll() = %v, want nil", err)
	}
}

func TestFutureConcurrentResolve(t *testing.T) {
	f := content.NewFuture()
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 16; i++ {
		wg.Go(func() {
			if f.Resolve(nil) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}
