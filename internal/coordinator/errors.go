package coordinator

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedOperation is matched by every *UnsupportedOperationError.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrBatchBusy is returned when a call would change the in-flight set while
	// a batch completion wait is in progress.
	ErrBatchBusy = errors.New("batch is awaiting completion")

	// ErrHandleMismatch is returned when a recorded scene does not belong to
	// the load operation it is recorded with.
	ErrHandleMismatch = errors.New("scene handle does not match load operation")
)

// UnsupportedOperationError reports a call shape the coordinator refuses, such
// as recording a loaded scene without the load operation that produced it.
type UnsupportedOperationError struct {
	Operation string
	Reason    string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s is unsupported: %s", e.Operation, e.Reason)
}

// Is makes errors.Is(err, ErrUnsupportedOperation) true.
func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}
