package content

import (
	"errors"

	"github.com/seantiz/sceneloader/internal/catalog"
	"github.com/seantiz/sceneloader/internal/model"
)

// ErrNotDone is returned when a result is read before its operation completes.
var ErrNotDone = errors.New("operation not done")

// Provider is the interface every asset system must implement. Requests never
// block: each call returns an operation immediately and failures are reported
// only through that operation's state.
type Provider interface {
	// Name identifies the asset system in logs and metrics.
	Name() string

	// LoadAsync starts loading the referenced scene with the given stacking
	// semantics. With activateOnLoad false the scene stays dormant until its
	// instance is activated.
	LoadAsync(ref catalog.ContentReference, mode model.LoadMode, activateOnLoad bool) LoadOperation

	// UnloadAsync releases the scene produced by a completed load operation.
	UnloadAsync(op LoadOperation) Operation
}

// Operation is one outstanding or completed asynchronous request.
type Operation interface {
	ID() string
	Done() <-chan struct{}
	IsDone() bool
	// PercentComplete reports progress in [0,1].
	PercentComplete() float64
	// Err returns the failure of a completed operation, or nil.
	Err() error
}

// LoadOperation is an Operation that produces a scene instance.
type LoadOperation interface {
	Operation
	// Result returns the loaded instance. It fails with ErrNotDone until the
	// operation completes, and with the operation's error if it failed.
	Result() (Instance, error)
}

// Instance is a scene loaded by an asset system.
type Instance interface {
	Handle() model.SceneHandle
	Scene() *model.Scene
	// ActivateAsync makes a dormant scene live.
	ActivateAsync() Operation
}
