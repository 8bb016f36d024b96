package model

import (
	"errors"
	"time"
)

// ErrInvalidTransition is returned when a batch state change is not allowed.
var ErrInvalidTransition = errors.New("invalid batch state transition")

// BatchState is the lifecycle state of the coordinator's current batch.
type BatchState string

// Batch state constants.
const (
	BatchIdle     BatchState = "idle"
	BatchLoading  BatchState = "loading"
	BatchAwaiting BatchState = "awaiting"
	BatchReady    BatchState = "ready"
)

// validTransitions maps each state to the states reachable by load, await and
// activation calls. Batch start and end are resets and bypass this table.
var validTransitions = map[BatchState]map[BatchState]bool{
	BatchIdle: {
		BatchLoading:  true,
		BatchAwaiting: true,
	},
	BatchLoading: {
		BatchLoading:  true,
		BatchAwaiting: true,
		BatchIdle:     true,
	},
	BatchAwaiting: {
		BatchReady:   true,
		BatchLoading: true,
		BatchIdle:    true,
	},
	BatchReady: {
		BatchLoading:  true,
		BatchAwaiting: true,
		BatchIdle:     true,
	},
}

// ValidTransition reports whether moving from one batch state to another is allowed.
func ValidTransition(from, to BatchState) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Batch is one host-initiated request cycle.
type Batch struct {
	ID         string     `json:"id"`
	State      BatchState `json:"state"`
	Requested  int        `json:"requested"`
	Committed  int        `json:"committed"`
	Failed     int        `json:"failed"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
