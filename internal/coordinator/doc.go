// Package coordinator provides the scene load coordinator: a small state
// machine layered over an asynchronous asset system. It resolves scene names
// through the catalog, issues non-blocking loads, waits for a whole batch to
// finish before committing the resulting scene handles, activates loaded scenes
// in request order and drives symmetric unloads by runtime handle.
package coordinator
