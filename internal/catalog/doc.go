// Package catalog holds the scene reference table: the immutable mapping from a
// symbolic scene name to the addressable content reference the asset system
// loads. The table is built once at startup, usually from a YAML file, and is
// safe to share across goroutines without synchronization afterwards.
package catalog
