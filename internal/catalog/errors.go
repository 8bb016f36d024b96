package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrSceneNotRegistered is matched by every lookup of an unknown scene name.
	ErrSceneNotRegistered = errors.New("scene not registered")

	// ErrDuplicateScene is returned by Build in strict mode when a name repeats.
	ErrDuplicateScene = errors.New("duplicate scene name")
)

// UnregisteredSceneError reports a lookup of a name missing from the table.
// It signals an authoring mistake, not a runtime condition, and is never retried.
type UnregisteredSceneError struct {
	Name string
}

func (e *UnregisteredSceneError) Error() string {
	return fmt.Sprintf("scene %q is not registered in the scene catalog", e.Name)
}

// Is makes errors.Is(err, ErrSceneNotRegistered) true.
func (e *UnregisteredSceneError) Is(target error) bool {
	return target == ErrSceneNotRegistered
}
