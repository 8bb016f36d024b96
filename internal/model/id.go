package model

import "github.com/oklog/ulid/v2"

// NewID returns a ULID string identifying a batch or an asset operation.
// ULIDs sort by creation time, so batch listings order naturally.
func NewID() string {
	return ulid.Make().String()
}
