package catalog

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
)

// Table resolves scene names to content references. It is read-only after
// Build returns.
type Table struct {
	refs map[string]ContentReference
}

type buildOptions struct {
	strict bool
	logger *slog.Logger
}

// Option configures Build.
type Option func(*buildOptions)

// WithStrictDuplicates makes Build fail on a repeated scene name instead of
// letting the later entry win.
func WithStrictDuplicates() Option {
	return func(o *buildOptions) { o.strict = true }
}

// WithLogger reports overwritten duplicate names through logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *buildOptions) { o.logger = logger }
}

// Build creates a table from entries. Later entries win over earlier ones with
// the same name unless WithStrictDuplicates is given. Entries with an empty name
// or an invalid reference are rejected.
func Build(entries []Entry, opts ...Option) (*Table, error) {
	o := buildOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	refs := make(map[string]ContentReference, len(entries))
	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("entry %d: scene name is empty", i)
		}
		if !e.Reference.IsValid() {
			return nil, fmt.Errorf("entry %d (%s): content reference is empty", i, e.Name)
		}
		if prev, ok := refs[e.Name]; ok {
			if o.strict {
				return nil, fmt.Errorf("entry %d: %w: %q", i, ErrDuplicateScene, e.Name)
			}
			o.logger.Warn("duplicate scene name in catalog, later entry wins",
				"scene", e.Name,
				"previous", prev.String(),
				"current", e.Reference.String(),
			)
		}
		refs[e.Name] = e.Reference
	}

	return &Table{refs: refs}, nil
}

// Lookup returns the reference registered under name. Unknown names yield an
// *UnregisteredSceneError.
func (t *Table) Lookup(name string) (ContentReference, error) {
	ref, ok := t.refs[name]
	if !ok {
		return ContentReference{}, &UnregisteredSceneError{Name: name}
	}
	return ref, nil
}

// Has reports whether name is registered.
func (t *Table) Has(name string) bool {
	_, ok := t.refs[name]
	return ok
}

// Len returns the number of registered scenes.
func (t *Table) Len() int {
	return len(t.refs)
}

// Names returns the registered scene names sorted for a stable listing.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.refs))
	for name := range t.refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
