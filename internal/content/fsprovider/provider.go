// Package fsprovider implements the asset system over scene documents stored
// as YAML files under a root directory.
package fsprovider

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/seantiz/sceneloader/internal/catalog"
	"github.com/seantiz/sceneloader/internal/content"
	"github.com/seantiz/sceneloader/internal/model"
)

// Progress reported after each load stage.
const (
	progressRead    = 0.3
	progressDecoded = 0.6
	progressBuilt   = 0.9
)

var (
	// ErrNotLoaded is reported when unloading or activating a scene the
	// provider no longer holds.
	ErrNotLoaded = errors.New("scene not loaded")

	// ErrForeignInstance is reported when unloading an operation produced by
	// another asset system.
	ErrForeignInstance = errors.New("scene instance not owned by this provider")
)

// Compile-time interface satisfaction check.
var _ content.Provider = (*Provider)(nil)

// Provider loads scene documents from disk. Decoded documents are cached by
// path; with Config.Watch the cache is invalidated as files change.
type Provider struct {
	root      string
	stepDelay time.Duration
	logger    *slog.Logger
	watcher   *Watcher
	wg        sync.WaitGroup

	mu         sync.Mutex
	nextHandle model.SceneHandle
	loaded     map[model.SceneHandle]*Instance
	cache      map[string]*Document
	// gens counts invalidations per path. A decoded document is only cached
	// if no invalidation arrived while it was being read.
	gens map[string]uint64
}

// New creates a provider rooted at cfg.Root. The root must be an existing
// directory.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("content root: %w", err)
	}
	if !isDir(root) {
		return nil, fmt.Errorf("content root %s: not a directory", root)
	}

	p := &Provider{
		root:       root,
		stepDelay:  cfg.StepDelay,
		logger:     logger,
		nextHandle: 1,
		loaded:     make(map[model.SceneHandle]*Instance),
		cache:      make(map[string]*Document),
		gens:       make(map[string]uint64),
	}

	if cfg.Watch {
		w, err := NewWatcher(root)
		if err != nil {
			return nil, fmt.Errorf("watch content root: %w", err)
		}
		p.watcher = w
		p.wg.Go(p.invalidateLoop)
	}

	logger.Info("filesystem asset system ready", "root", root, "watch", cfg.Watch)
	return p, nil
}

// Name implements content.Provider.
func (p *Provider) Name() string { return "fs" }

// Root returns the absolute content root.
func (p *Provider) Root() string { return p.root }

// Close stops the file watcher, if any.
func (p *Provider) Close() error {
	if p.watcher == nil {
		return nil
	}
	err := p.watcher.Close()
	p.wg.Wait()
	return err
}

// Resident returns the number of scenes the provider currently holds.
func (p *Provider) Resident() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.loaded)
}

// LoadAsync implements content.Provider. The document is read, decoded and
// built into a scene on a separate goroutine. The load mode is recorded on the
// scene; other resident scenes are never unloaded implicitly.
func (p *Provider) LoadAsync(ref catalog.ContentReference, mode model.LoadMode, activateOnLoad bool) content.LoadOperation {
	op := content.NewLoadFuture()
	go p.load(op, ref, mode, activateOnLoad)
	return op
}

func (p *Provider) load(op *content.LoadFuture, ref catalog.ContentReference, mode model.LoadMode, activateOnLoad bool) {
	start := time.Now()
	inst, err := p.build(op, ref, mode, activateOnLoad)
	if err != nil {
		operationsTotal.WithLabelValues(kindLoad, resultFailed).Inc()
		p.logger.Warn("scene load failed", "address", ref.Address, "operation_id", op.ID(), "error", err)
		op.Fail(err)
		return
	}

	p.mu.Lock()
	inst.handle = p.nextHandle
	inst.scene.Handle = inst.handle
	p.nextHandle++
	p.loaded[inst.handle] = inst
	residentScenes.Set(float64(len(p.loaded)))
	p.mu.Unlock()

	loadDuration.Observe(time.Since(start).Seconds())
	operationsTotal.WithLabelValues(kindLoad, resultOK).Inc()
	p.logger.Debug("scene loaded", "address", ref.Address, "handle", inst.handle, "mode", mode)
	op.Complete(inst)
}

func (p *Provider) build(op *content.LoadFuture, ref catalog.ContentReference, mode model.LoadMode, activateOnLoad bool) (*Instance, error) {
	path, err := resolvePath(p.root, ref.Address)
	if err != nil {
		return nil, err
	}

	doc, gen, ok := p.cached(path)
	if !ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scene %s: %w", ref.Address, err)
		}
		p.step(op, progressRead)

		doc, err = DecodeDocument(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", ref.Address, err)
		}
		p.store(path, gen, doc)
	} else {
		p.step(op, progressRead)
	}
	p.step(op, progressDecoded)

	name := doc.Name
	if name == "" {
		name = filepath.Base(ref.Address)
	}
	scene := &model.Scene{
		Name:     name,
		Address:  ref.Address,
		Mode:     mode,
		LoadedAt: time.Now().UTC(),
		Objects:  slices.Clone(doc.Objects),
		Props:    maps.Clone(doc.Props),
	}
	p.step(op, progressBuilt)

	return &Instance{scene: scene, provider: p, active: activateOnLoad}, nil
}

func (p *Provider) step(op *content.LoadFuture, progress float64) {
	if p.stepDelay > 0 {
		time.Sleep(p.stepDelay)
	}
	op.SetProgress(progress)
}

// cached returns the cached document for path along with the path's current
// generation, to be handed back to store after a miss.
func (p *Provider) cached(path string) (*Document, uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, ok := p.cache[path]
	return doc, p.gens[path], ok
}

// store caches doc unless path was invalidated since gen was read.
func (p *Provider) store(path string, gen uint64, doc *Document) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gens[path] != gen {
		p.logger.Debug("scene document changed during load, not cached", "path", path)
		return
	}
	p.cache[path] = doc
}

// invalidate drops the cached document for path and bumps its generation so
// reads already in progress are not cached. It reports whether an entry was
// removed.
func (p *Provider) invalidate(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gens[path]++
	if _, ok := p.cache[path]; !ok {
		return false
	}
	delete(p.cache, path)
	return true
}

func (p *Provider) invalidateLoop() {
	events, errs := p.watcher.Events, p.watcher.Errors
	for events != nil || errs != nil {
		select {
		case path, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if p.invalidate(path) {
				cacheInvalidationsTotal.Inc()
				p.logger.Debug("scene document changed, cache entry dropped", "path", path)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			p.logger.Warn("content watcher error", "error", err)
		}
	}
}

// UnloadAsync implements content.Provider. The scene produced by op is
// released once op has completed. Unloading a failed load, or a scene that is
// no longer held, fails the returned operation.
func (p *Provider) UnloadAsync(op content.LoadOperation) content.Operation {
	f := content.NewFuture()
	go func() {
		<-op.Done()
		err := p.unload(op)
		if err != nil {
			operationsTotal.WithLabelValues(kindUnload, resultFailed).Inc()
		} else {
			operationsTotal.WithLabelValues(kindUnload, resultOK).Inc()
		}
		f.Resolve(err)
	}()
	return f
}

func (p *Provider) unload(op content.LoadOperation) error {
	res, err := op.Result()
	if err != nil {
		return fmt.Errorf("unload: %w", err)
	}
	inst, ok := res.(*Instance)
	if !ok || inst.provider != p {
		return fmt.Errorf("unload handle %d: %w", res.Handle(), ErrForeignInstance)
	}

	if p.stepDelay > 0 {
		time.Sleep(p.stepDelay)
	}

	p.mu.Lock()
	_, held := p.loaded[inst.handle]
	delete(p.loaded, inst.handle)
	residentScenes.Set(float64(len(p.loaded)))
	p.mu.Unlock()

	if !held {
		return fmt.Errorf("unload handle %d: %w", inst.handle, ErrNotLoaded)
	}
	inst.setActive(false)
	p.logger.Debug("scene unloaded", "handle", inst.handle, "address", inst.scene.Address)
	return nil
}

func (p *Provider) holds(h model.SceneHandle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.loaded[h]
	return ok
}

// Instance is a scene held by the filesystem provider.
type Instance struct {
	handle   model.SceneHandle
	scene    *model.Scene
	provider *Provider

	mu     sync.Mutex
	active bool
}

// Handle implements content.Instance.
func (i *Instance) Handle() model.SceneHandle { return i.handle }

// Scene implements content.Instance.
func (i *Instance) Scene() *model.Scene { return i.scene }

// Active reports whether the scene has been activated.
func (i *Instance) Active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

func (i *Instance) setActive(v bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.active = v
}

// ActivateAsync implements content.Instance. Activating a scene that was
// unloaded fails with ErrNotLoaded.
func (i *Instance) ActivateAsync() content.Operation {
	f := content.NewFuture()
	go func() {
		if i.provider.stepDelay > 0 {
			time.Sleep(i.provider.stepDelay)
		}
		if !i.provider.holds(i.handle) {
			operationsTotal.WithLabelValues(kindActivate, resultFailed).Inc()
			f.Resolve(fmt.Errorf("activate handle %d: %w", i.handle, ErrNotLoaded))
			return
		}
		i.setActive(true)
		operationsTotal.WithLabelValues(kindActivate, resultOK).Inc()
		f.Resolve(nil)
	}()
	return f
}
