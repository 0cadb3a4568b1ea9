package loader

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/mod-host/engine"
	"github.com/wippyai/mod-host/mod"
)

// Analyzer-support units are host-owned but not part of the default host
// unit enumeration, so the blacklist names them explicitly.
const (
	analyzerUnitName    = "mod-analyzer"
	analyzerAPIUnitName = "mod-analyzer-api"
)

// Registry is the process-wide context registry: mod identifier to load
// context, loaded unit back to owning context, and the blacklist of
// host-protected unit names.
//
// Construct one at host startup, pass it to every context, and Close it at
// shutdown. Reads may proceed concurrently; registration and removal are
// exclusive.
type Registry struct {
	engine *engine.Engine

	mu     sync.RWMutex
	byID   map[string]*Context
	byUnit map[*engine.Unit]*Context
	order  []string

	blacklistOnce sync.Once
	blacklist     map[string]struct{}
}

// NewRegistry creates an empty registry backed by the given engine.
func NewRegistry(eng *engine.Engine) *Registry {
	return &Registry{
		engine: eng,
		byID:   make(map[string]*Context),
		byUnit: make(map[*engine.Unit]*Context),
	}
}

// Engine returns the loading capability this registry was built on.
func (r *Registry) Engine() *engine.Engine {
	return r.engine
}

// Context returns the live context registered for a mod identifier, or nil.
func (r *Registry) Context(id string) *Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// Contexts returns all live contexts in registration order.
func (r *Registry) Contexts() []*Context {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Context, 0, len(r.order))
	for _, id := range r.order {
		if c, ok := r.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// register adds a context under its mod identifier. If the identifier is
// already taken the existing registration wins and register reports false.
func (r *Registry) register(c *Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.desc.ID
	if _, ok := r.byID[id]; ok {
		return false
	}
	r.byID[id] = c
	r.order = append(r.order, id)
	return true
}

// registerUnit records the owning context for a loaded unit. A unit maps to
// exactly one context for its entire lifetime; it is never reassigned.
func (r *Registry) registerUnit(u *engine.Unit, c *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUnit[u]; !ok {
		r.byUnit[u] = c
	}
}

// unregister removes a context and every unit entry pointing at it.
func (r *Registry) unregister(c *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byID[c.desc.ID] == c {
		delete(r.byID, c.desc.ID)
	}
	for u, owner := range r.byUnit {
		if owner == c {
			delete(r.byUnit, u)
		}
	}
}

// InfoForUnit returns the descriptor of the mod owning a loaded unit, or
// nil if the unit is host-owned or unknown.
func (r *Registry) InfoForUnit(u *engine.Unit) *mod.Descriptor {
	if u == nil || u.Host() {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.byUnit[u]; ok {
		return c.desc
	}
	return nil
}

// InfoForCaller returns the descriptor of the mod whose unit is executing
// on this call path, or nil when the caller is host code. The engine
// records the calling unit in the context on every unit invocation.
func (r *Registry) InfoForCaller(ctx context.Context) *mod.Descriptor {
	return r.InfoForUnit(engine.CallerUnit(ctx))
}

// Blacklisted reports whether a unit name is reserved by the host. The set
// is computed once on first use: every host-provided unit name plus the
// analyzer-support pair. Matching is case-insensitive.
func (r *Registry) Blacklisted(name string) bool {
	r.blacklistOnce.Do(func() {
		set := make(map[string]struct{})
		for _, n := range r.engine.HostUnitNames() {
			set[strings.ToLower(n)] = struct{}{}
		}
		set[analyzerUnitName] = struct{}{}
		set[analyzerAPIUnitName] = struct{}{}
		r.blacklist = set
	})

	_, ok := r.blacklist[strings.ToLower(name)]
	return ok
}

// Close disposes every live context in reverse registration order, so
// dependents go down before their dependencies.
func (r *Registry) Close(ctx context.Context) error {
	contexts := r.Contexts()

	var firstErr error
	for i := len(contexts) - 1; i >= 0; i-- {
		if err := contexts[i].Dispose(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		Logger().Warn("registry shutdown finished with errors", zap.Error(firstErr))
	}
	return firstErr
}
