// Package contenttest provides a scripted asset system for tests and the test
// server. Operations stay pending until the caller completes them, or complete
// on their own after a fixed delay when the provider is created with NewAuto.
package contenttest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/seantiz/sceneloader/internal/catalog"
	"github.com/seantiz/sceneloader/internal/content"
	"github.com/seantiz/sceneloader/internal/model"
)

// ErrNotLoaded is reported by unload operations for scenes the provider does
// not hold.
var ErrNotLoaded = errors.New("scene not loaded")

// Compile-time interface satisfaction check.
var _ content.Provider = (*Provider)(nil)

// Provider is a content.Provider whose operations are driven by the test.
type Provider struct {
	delay time.Duration

	mu             sync.Mutex
	nextHandle     model.SceneHandle
	loads          []*Load
	unloads        []*Unload
	loaded         map[model.SceneHandle]*Instance
	activations    []model.SceneHandle
	failLoads      map[string]error
	failActivation map[model.SceneHandle]error
}

// New creates a provider whose loads and unloads complete only when the test
// calls Complete or Fail on them.
func New() *Provider {
	return &Provider{
		nextHandle:     1,
		loaded:         make(map[model.SceneHandle]*Instance),
		failLoads:      make(map[string]error),
		failActivation: make(map[model.SceneHandle]error),
	}
}

// NewAuto creates a provider whose loads and unloads complete by themselves
// after delay, reporting intermediate progress on the way.
func NewAuto(delay time.Duration) *Provider {
	p := New()
	p.delay = delay
	return p
}

// Name implements content.Provider.
func (p *Provider) Name() string { return "contenttest" }

// FailAddress makes every later load of address fail with err.
func (p *Provider) FailAddress(address string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failLoads[address] = err
}

// FailActivation makes activation of handle fail with err.
func (p *Provider) FailActivation(handle model.SceneHandle, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failActivation[handle] = err
}

// LoadAsync implements content.Provider.
func (p *Provider) LoadAsync(ref catalog.ContentReference, mode model.LoadMode, activateOnLoad bool) content.LoadOperation {
	l := &Load{
		LoadFuture:     content.NewLoadFuture(),
		Ref:            ref,
		Mode:           mode,
		ActivateOnLoad: activateOnLoad,
		provider:       p,
	}

	p.mu.Lock()
	p.loads = append(p.loads, l)
	failErr, fail := p.failLoads[ref.Address]
	p.mu.Unlock()

	if p.delay > 0 {
		go func() {
			l.SetProgress(0.5)
			time.Sleep(p.delay)
			if fail {
				l.Fail(failErr)
				return
			}
			l.Complete()
		}()
	} else if fail {
		l.Fail(failErr)
	}
	return l
}

// UnloadAsync implements content.Provider.
func (p *Provider) UnloadAsync(op content.LoadOperation) content.Operation {
	u := &Unload{Future: content.NewFuture(), provider: p}

	inst, err := op.Result()
	if err != nil {
		u.Resolve(fmt.Errorf("unload: %w", err))
		p.record(u)
		return u
	}
	u.Handle = inst.Handle()
	p.record(u)

	if p.delay > 0 {
		go func() {
			time.Sleep(p.delay)
			u.Complete()
		}()
	}
	return u
}

func (p *Provider) record(u *Unload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unloads = append(p.unloads, u)
}

// Loads returns the load operations issued so far, in issuance order.
func (p *Provider) Loads() []*Load {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Load(nil), p.loads...)
}

// Unloads returns the unload operations issued so far, in issuance order.
func (p *Provider) Unloads() []*Unload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Unload(nil), p.unloads...)
}

// Activations returns the handles activated so far, in activation order.
func (p *Provider) Activations() []model.SceneHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.SceneHandle(nil), p.activations...)
}

// Resident returns the number of scenes the provider currently holds.
func (p *Provider) Resident() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.loaded)
}

// Load is a scripted load operation.
type Load struct {
	*content.LoadFuture
	Ref            catalog.ContentReference
	Mode           model.LoadMode
	ActivateOnLoad bool

	provider *Provider
}

// Complete finishes the load, assigning the next scene handle. It returns 0
// if the load had already finished.
func (l *Load) Complete() model.SceneHandle {
	p := l.provider
	p.mu.Lock()
	h := p.nextHandle
	p.nextHandle++
	inst := &Instance{
		handle:   h,
		active:   l.ActivateOnLoad,
		provider: p,
		scene: &model.Scene{
			Handle:   h,
			Name:     l.Ref.Address,
			Address:  l.Ref.Address,
			Mode:     l.Mode,
			LoadedAt: time.Now().UTC(),
		},
	}
	p.loaded[h] = inst
	p.mu.Unlock()

	if !l.LoadFuture.Complete(inst) {
		p.mu.Lock()
		delete(p.loaded, h)
		p.mu.Unlock()
		return 0
	}
	return h
}

// Unload is a scripted unload operation.
type Unload struct {
	*content.Future
	Handle model.SceneHandle

	provider *Provider
}

// Complete finishes the unload and releases the scene.
func (u *Unload) Complete() {
	p := u.provider
	p.mu.Lock()
	_, ok := p.loaded[u.Handle]
	delete(p.loaded, u.Handle)
	p.mu.Unlock()

	if !ok {
		u.Resolve(fmt.Errorf("unload handle %d: %w", u.Handle, ErrNotLoaded))
		return
	}
	u.Resolve(nil)
}

// Fail finishes the unload with err; the scene stays loaded.
func (u *Unload) Fail(err error) {
	u.Resolve(err)
}

// Instance is a scene held by the scripted provider.
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

// ActivateAsync implements content.Instance. Activation completes immediately
// and is recorded in order.
func (i *Instance) ActivateAsync() content.Operation {
	p := i.provider
	p.mu.Lock()
	p.activations = append(p.activations, i.handle)
	err := p.failActivation[i.handle]
	p.mu.Unlock()

	if err == nil {
		i.mu.Lock()
		i.active = true
		i.mu.Unlock()
	}
	return content.Resolved(err)
}
