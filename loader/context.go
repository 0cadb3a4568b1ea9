package loader

import (
	"context"
	"io"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/mod-host/engine"
	"github.com/wippyai/mod-host/errors"
	"github.com/wippyai/mod-host/internal/wasmbin"
	"github.com/wippyai/mod-host/mod"
	"github.com/wippyai/mod-host/modfs"
	"github.com/wippyai/mod-host/native"
)

// File layout contract inside a mod.
const (
	// LibDir is the library folder holding the mod's units and, under
	// platform subfolders, its native libraries.
	LibDir = "lib"

	// UnitExt is the managed unit file extension.
	UnitExt = ".wasm"

	// SymbolExt is the paired debug-symbol file extension.
	SymbolExt = ".map"
)

// Context is the isolated loading scope of exactly one mod. It owns the
// mod's loaded units, its native handles, and its resolution caches;
// dependency contexts are referenced, never owned.
//
// All loads for one context are serialized by a single per-context lock;
// different contexts load concurrently.
type Context struct {
	desc     *mod.Descriptor
	fsys     modfs.FS
	registry *Registry
	store    *engine.Store
	nld      *native.Loader
	deps     []*Context

	mu       sync.Mutex
	disposed bool
	units    map[string]*engine.Unit
	loading  map[string]bool

	// Own scope: this mod's content only. Combined scope: plus
	// dependencies (and, managed only, host units). Lock-free reads,
	// first-writer-wins inserts.
	ownManaged      sync.Map
	combinedManaged sync.Map
	ownNative       sync.Map
	combinedNative  sync.Map
}

// NewContext creates, registers, and eagerly loads the load context for
// one mod.
//
// Declared dependencies are looked up in the registry; dependencies not
// yet registered, or registered at an incompatible version, are skipped
// (load order matters). Every unit file in the mod's library folder is
// then loaded eagerly; individual file failures are logged and do not
// abort the rest.
func NewContext(ctx context.Context, reg *Registry, desc *mod.Descriptor, fsys modfs.FS) (*Context, error) {
	store, err := reg.engine.NewStore(ctx)
	if err != nil {
		return nil, err
	}

	c := &Context{
		desc:     desc,
		fsys:     fsys,
		registry: reg,
		store:    store,
		nld:      native.NewLoader(),
		units:    make(map[string]*engine.Unit),
		loading:  make(map[string]bool),
	}

	for _, dep := range desc.Dependencies {
		dc := reg.Context(dep.ID)
		if dc == nil {
			Logger().Warn("dependency not registered, skipping",
				zap.String("mod", desc.ID),
				zap.String("dependency", dep.ID))
			continue
		}
		if !dep.Satisfies(dc.desc.Version) {
			Logger().Warn("dependency version incompatible, skipping",
				zap.String("mod", desc.ID),
				zap.String("dependency", dep.ID))
			continue
		}
		c.deps = append(c.deps, dc)
	}

	if !reg.register(c) {
		Logger().Warn("mod identifier already registered, keeping existing context",
			zap.String("mod", desc.ID))
	}

	for _, p := range fsys.FindFilesInDirectory(LibDir, UnitExt) {
		if _, err := c.LoadFromPath(ctx, p); err != nil {
			Logger().Warn("failed to load unit file",
				zap.String("mod", desc.ID),
				zap.String("path", p),
				zap.Error(err))
		}
	}

	return c, nil
}

// Descriptor returns the owning mod's descriptor.
func (c *Context) Descriptor() *mod.Descriptor {
	return c.desc
}

// Units returns the logical names of the units this context tracks.
func (c *Context) Units() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.units))
	for name := range c.units {
		names = append(names, name)
	}
	return names
}

// Load resolves a logical unit name for this mod: combined cache, then the
// mod's own library folder, then dependency contexts in declaration order
// (one hop only), then the host-provided unit set.
//
// Ordinary misses return a not-found error, never a panic; only use after
// disposal is a hard failure.
func (c *Context) Load(ctx context.Context, name string) (*engine.Unit, error) {
	if u, ok := c.combinedManaged.Load(name); ok {
		return u.(*engine.Unit), nil
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, errors.Disposed(c.desc.ID)
	}
	u := c.loadLocalLocked(ctx, name)
	deps := c.deps
	c.mu.Unlock()

	if u == nil {
		for _, dep := range deps {
			if u = dep.LoadLocal(ctx, name); u != nil {
				break
			}
		}
	}

	if u == nil {
		// Host fallback applies to managed units only; any failure here
		// is swallowed.
		u = c.store.Host(name)
	}

	if u != nil {
		actual, _ := c.combinedManaged.LoadOrStore(name, u)
		return actual.(*engine.Unit), nil
	}

	Logger().Warn("unit not found",
		zap.String("mod", c.desc.ID),
		zap.String("unit", name))
	return nil, errors.NotFound(errors.PhaseResolve, c.desc.ID, name)
}

// LoadLocal resolves a name against this context's own scope only: cache
// hit or the mod's own library folder. Dependency contexts call this for
// one-hop resolution; it never consults this context's own dependencies.
// A disposed context reports every name as a miss.
func (c *Context) LoadLocal(ctx context.Context, name string) *engine.Unit {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil
	}
	return c.loadLocalLocked(ctx, name)
}

func (c *Context) loadLocalLocked(ctx context.Context, name string) *engine.Unit {
	if u, ok := c.ownManaged.Load(name); ok {
		return u.(*engine.Unit)
	}

	p := modfs.Join(LibDir, name+UnitExt)
	if !c.fsys.FileExists(p) {
		return nil
	}

	u, err := c.loadFromPathLocked(ctx, p)
	if err != nil {
		return nil
	}
	return u
}

// LoadFromPath loads one managed unit file from the mod's virtual
// filesystem. Failures are absorbed at this file's granularity: the error
// describes what went wrong and no partially registered state remains.
func (c *Context) LoadFromPath(ctx context.Context, p string) (*engine.Unit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadFromPathLocked(ctx, p)
}

func (c *Context) loadFromPathLocked(ctx context.Context, p string) (*engine.Unit, error) {
	if c.disposed {
		return nil, errors.Disposed(c.desc.ID)
	}

	// Streams may be non-seekable (archive-backed mods); activation needs
	// random access, so buffer fully.
	data, err := c.readFile(p)
	if err != nil {
		return nil, errors.IO(errors.PhaseLoad, c.desc.ID, p, err)
	}

	name := wasmbin.ModuleName(data)
	if name == "" {
		name = strings.TrimSuffix(path.Base(p), UnitExt)
	}

	if c.registry.Blacklisted(name) {
		Logger().Warn("unit name is reserved by the host, refusing to load",
			zap.String("mod", c.desc.ID),
			zap.String("unit", name),
			zap.String("path", p))
		return nil, errors.Blacklisted(c.desc.ID, name)
	}

	if existing, ok := c.units[name]; ok {
		Logger().Warn("unit name already tracked by this context",
			zap.String("mod", c.desc.ID),
			zap.String("unit", name),
			zap.String("path", p))
		return existing, nil
	}

	var symbols []byte
	symPath := strings.TrimSuffix(p, UnitExt) + SymbolExt
	if c.fsys.FileExists(symPath) {
		if symbols, err = c.readFile(symPath); err != nil {
			Logger().Warn("failed to read debug symbols",
				zap.String("mod", c.desc.ID),
				zap.String("path", symPath),
				zap.Error(err))
			symbols = nil
		}
	}

	// Guard against unit import cycles within this mod re-entering the
	// same file load.
	if c.loading[name] {
		return nil, errors.Collision(c.desc.ID, name)
	}
	c.loading[name] = true
	defer delete(c.loading, name)

	u, err := c.store.Load(ctx, name, data, symbols, func(imp string) *engine.Unit {
		return c.resolveImportLocked(ctx, imp)
	})
	if err != nil {
		Logger().Warn("failed to activate unit",
			zap.String("mod", c.desc.ID),
			zap.String("unit", name),
			zap.Error(err))
		return nil, err
	}

	// Registration is the last step, atomic with respect to the context
	// lock: concurrent resolvers never observe a partially registered
	// unit.
	c.units[name] = u
	c.ownManaged.Store(name, u)
	c.combinedManaged.Store(name, u)
	c.registry.registerUnit(u, c)

	return u, nil
}

// resolveImportLocked supplies units for import names during activation,
// walking the same chain as Load: own scope, dependencies (one hop), host.
// Called with the context lock held.
func (c *Context) resolveImportLocked(ctx context.Context, name string) *engine.Unit {
	if u := c.loadLocalLocked(ctx, name); u != nil {
		return u
	}
	for _, dep := range c.deps {
		if u := dep.LoadLocal(ctx, name); u != nil {
			return u
		}
	}
	return c.store.Host(name)
}

// LoadNative resolves a logical native library name: combined cache, then
// the mod's own library folder, then dependency contexts in declaration
// order (one hop only). There is no host fallback for native libraries.
//
// An unsupported host platform is a hard failure; an ordinary miss returns
// a not-found error.
func (c *Context) LoadNative(name string) (*native.Handle, error) {
	if h, ok := c.combinedNative.Load(name); ok {
		return h.(*native.Handle), nil
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, errors.Disposed(c.desc.ID)
	}
	h, err := c.loadNativeLocalLocked(name)
	deps := c.deps
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if h == nil {
		for _, dep := range deps {
			if h = dep.LoadNativeLocal(name); h != nil {
				break
			}
		}
	}

	if h != nil {
		actual, _ := c.combinedNative.LoadOrStore(name, h)
		return actual.(*native.Handle), nil
	}

	Logger().Warn("native library not found",
		zap.String("mod", c.desc.ID),
		zap.String("library", name))
	return nil, errors.NotFound(errors.PhaseNative, c.desc.ID, name)
}

// LoadNativeLocal resolves a native library against this context's own
// scope only. Dependency contexts call this for one-hop resolution. A
// disposed context reports every name as a miss.
func (c *Context) LoadNativeLocal(name string) *native.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil
	}
	h, err := c.loadNativeLocalLocked(name)
	if err != nil {
		return nil
	}
	return h
}

// loadNativeLocalLocked returns (nil, nil) on an ordinary miss and a
// non-nil error only for the unsupported-platform hard failure.
func (c *Context) loadNativeLocalLocked(name string) (*native.Handle, error) {
	if h, ok := c.ownNative.Load(name); ok {
		return h.(*native.Handle), nil
	}

	h, err := c.nld.Load(c.fsys, LibDir, name)
	if err != nil {
		if errors.IsUnsupported(err) {
			return nil, err
		}
		return nil, nil
	}

	c.ownNative.Store(name, h)
	return h, nil
}

// Dispose tears the context down: it leaves the registry, closes every
// unit it activated, releases its store, and frees every native handle it
// owns exactly once. Dispose is idempotent; handles loaded from
// dependency contexts are left for their owners.
func (c *Context) Dispose(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil
	}
	c.disposed = true

	c.registry.unregister(c)

	var firstErr error
	for _, u := range c.units {
		if err := u.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.store.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	c.ownNative.Range(func(_, v any) bool {
		if err := v.(*native.Handle).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})

	c.units = make(map[string]*engine.Unit)
	clearCache(&c.ownManaged)
	clearCache(&c.combinedManaged)
	clearCache(&c.ownNative)
	clearCache(&c.combinedNative)

	if firstErr != nil {
		Logger().Warn("context disposal finished with errors",
			zap.String("mod", c.desc.ID),
			zap.Error(firstErr))
	}
	return firstErr
}

func clearCache(m *sync.Map) {
	m.Range(func(k, _ any) bool {
		m.Delete(k)
		return true
	})
}

func (c *Context) readFile(p string) ([]byte, error) {
	rc, err := c.fsys.OpenFile(p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
