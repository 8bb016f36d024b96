package content

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/seantiz/sceneloader/internal/model"
)

// Future is a completion primitive for asset system operations. The zero value
// is not usable; create one with NewFuture. It is safe for concurrent use.
type Future struct {
	id       string
	done     chan struct{}
	progress atomic.Uint64

	mu       sync.Mutex
	err      error
	resolved bool
}

// NewFuture creates a pending operation with a fresh ID.
func NewFuture() *Future {
	return &Future{
		id:   model.NewID(),
		done: make(chan struct{}),
	}
}

// ID returns the operation identifier.
func (f *Future) ID() string { return f.id }

// Done returns a channel closed when the operation completes.
func (f *Future) Done() <-chan struct{} { return f.done }

// IsDone reports whether the operation has completed.
func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// PercentComplete reports progress in [0,1].
func (f *Future) PercentComplete() float64 {
	return math.Float64frombits(f.progress.Load())
}

// SetProgress records progress, clamped to [0,1]. Updates after completion
// are ignored.
func (f *Future) SetProgress(p float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolved {
		return
	}
	p = math.Max(0, math.Min(1, p))
	f.progress.Store(math.Float64bits(p))
}

// Err returns the failure of a completed operation, or nil.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Resolve completes the operation with err (nil for success) and reports
// whether this call was the one that completed it.
func (f *Future) Resolve(err error) bool {
	return f.resolve(err, nil)
}

func (f *Future) resolve(err error, apply func()) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolved {
		return false
	}
	f.resolved = true
	if apply != nil {
		apply()
	}
	f.err = err
	f.progress.Store(math.Float64bits(1))
	close(f.done)
	return true
}

// LoadFuture is a Future that carries a scene instance once resolved.
type LoadFuture struct {
	*Future
	inst Instance
}

// NewLoadFuture creates a pending load operation.
func NewLoadFuture() *LoadFuture {
	return &LoadFuture{Future: NewFuture()}
}

// Complete resolves the load successfully with inst.
func (f *LoadFuture) Complete(inst Instance) bool {
	return f.resolve(nil, func() { f.inst = inst })
}

// Fail resolves the load with err.
func (f *LoadFuture) Fail(err error) bool {
	return f.Resolve(err)
}

// Result implements LoadOperation.
func (f *LoadFuture) Result() (Instance, error) {
	if !f.IsDone() {
		return nil, ErrNotDone
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.inst, nil
}

// Resolved returns an operation that has already completed with err.
func Resolved(err error) *Future {
	f := NewFuture()
	f.Resolve(err)
	return f
}

// FailedLoad returns a load operation that has already failed with err.
func FailedLoad(err error) *LoadFuture {
	f := NewLoadFuture()
	f.Fail(err)
	return f
}
