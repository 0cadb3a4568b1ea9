package engine

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/mod-host/errors"
	"github.com/wippyai/mod-host/internal/wasmbin"
)

// DependencyResolver supplies units for import module names the store
// cannot satisfy itself. Returning nil means "not found"; the store then
// leaves the import to fail at activation.
type DependencyResolver func(name string) *Unit

// Store is one isolated wazero runtime. Exactly one load context owns it;
// closing it releases every unit activated into it.
type Store struct {
	engine  *Engine
	runtime wazero.Runtime

	mu     sync.Mutex
	hosts  map[string]*Unit
	closed bool
}

// NewStore creates an isolated store with the engine's host modules
// instantiated into it.
func (e *Engine) NewStore(ctx context.Context) (*Store, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCompilationCache(e.cache)
	if e.cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(e.cfg.MemoryLimitPages)
	}

	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	s := &Store{
		engine:  e,
		runtime: r,
		hosts:   make(map[string]*Unit),
	}

	if !e.cfg.DisableWASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
			r.Close(ctx)
			return nil, errors.Wrap(errors.PhaseLoad, errors.KindIO, err, "instantiate WASI")
		}
		s.hosts[WASIModuleName] = &Unit{
			name:   WASIModuleName,
			module: r.Module(WASIModuleName),
			host:   true,
		}
	}

	e.mu.RLock()
	defs := make([]*HostModuleDef, 0, len(e.hostIDs))
	for _, id := range e.hostIDs {
		defs = append(defs, e.hostDefs[id])
	}
	e.mu.RUnlock()

	for _, def := range defs {
		mod, err := s.instantiateHost(ctx, def)
		if err != nil {
			r.Close(ctx)
			return nil, err
		}
		s.hosts[def.name] = &Unit{name: def.name, module: mod, host: true}
	}

	return s, nil
}

func (s *Store) instantiateHost(ctx context.Context, def *HostModuleDef) (api.Module, error) {
	builder := s.runtime.NewHostModuleBuilder(def.name)

	def.mu.Lock()
	funcs := append([]hostFuncDef(nil), def.funcs...)
	def.mu.Unlock()

	for _, f := range funcs {
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(f.fn, f.params, f.results).
			Export(f.name)
	}

	m, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindIO, err, "instantiate host module "+def.name)
	}
	return m, nil
}

// Load compiles and activates one unit into this store.
//
// name is the logical unit name to activate under; resolve, if non-nil, is
// consulted for import module names not already present in the store (host
// modules and previously activated units are always tried first). Imports
// resolved from another context's unit are re-linked here from that unit's
// raw bytes; the returned unit is still the only one registered for name.
// Load is not itself serialized: the owning load context's lock is the
// serialization point, and resolve may recurse into this store.
func (s *Store) Load(ctx context.Context, name string, wasm, srcmap []byte, resolve DependencyResolver) (*Unit, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errors.Disposed("")
	}

	compiled, err := s.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "compile unit "+name)
	}

	s.linkImports(ctx, name, wasm, resolve)

	modConfig := wazero.NewModuleConfig().WithName(name).WithStartFunctions()
	module, err := s.runtime.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		compiled.Close(ctx)
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "activate unit "+name)
	}

	return &Unit{
		name:     name,
		compiled: compiled,
		module:   module,
		raw:      wasm,
		srcmap:   srcmap,
	}, nil
}

// linkImports walks the unit's import module names and links what the
// resolver can supply. Misses are left for activation to report.
func (s *Store) linkImports(ctx context.Context, unit string, wasm []byte, resolve DependencyResolver) {
	for _, imp := range wasmbin.ImportedModules(wasm) {
		if imp == unit {
			continue
		}
		if s.runtime.Module(imp) != nil {
			continue
		}
		if resolve == nil {
			continue
		}

		dep := resolve(imp)
		if dep == nil || dep.raw == nil {
			continue
		}

		depCompiled, err := s.runtime.CompileModule(ctx, dep.raw)
		if err != nil {
			Logger().Warn("failed to recompile dependency unit",
				zap.String("unit", unit),
				zap.String("import", imp),
				zap.Error(err))
			continue
		}

		cfg := wazero.NewModuleConfig().WithName(imp).WithStartFunctions()
		if _, err := s.runtime.InstantiateModule(ctx, depCompiled, cfg); err != nil {
			depCompiled.Close(ctx)
			Logger().Warn("failed to link dependency unit",
				zap.String("unit", unit),
				zap.String("import", imp),
				zap.Error(err))
		}
	}
}

// Host returns the host-provided unit for name, or nil.
func (s *Store) Host(name string) *Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hosts[name]
}

// HostNames returns this store's host unit names.
func (s *Store) HostNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.hosts))
	for name := range s.hosts {
		names = append(names, name)
	}
	return names
}

// Close releases the store's runtime and everything activated into it.
// Close is idempotent.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.hosts = nil
	return s.runtime.Close(ctx)
}
