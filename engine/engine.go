package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// WASIModuleName is the host unit every store provides unless WASI is
// disabled in the engine config.
const WASIModuleName = "wasi_snapshot_preview1"

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB
	// each). 0 means the wazero default.
	MemoryLimitPages uint32

	// DisableWASI skips instantiating the WASI host unit in new stores.
	DisableWASI bool
}

// Engine is the process-wide loading capability: a shared compilation cache
// plus the host module definitions offered to every mod.
type Engine struct {
	cache wazero.CompilationCache
	cfg   Config

	mu       sync.RWMutex
	hostDefs map[string]*HostModuleDef
	hostIDs  []string
}

// New creates an engine. cfg may be nil for defaults.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	e := &Engine{
		cache:    wazero.NewCompilationCache(),
		hostDefs: make(map[string]*HostModuleDef),
	}
	if cfg != nil {
		e.cfg = *cfg
	}
	return e, nil
}

// Close releases the shared compilation cache.
// All stores must be closed before calling this.
func (e *Engine) Close(ctx context.Context) error {
	return e.cache.Close(ctx)
}

// HostModuleDef collects host functions exported under one module name.
type HostModuleDef struct {
	name  string
	mu    sync.Mutex
	funcs []hostFuncDef
}

type hostFuncDef struct {
	name    string
	fn      api.GoModuleFunc
	params  []api.ValueType
	results []api.ValueType
}

// HostModule returns the definition for a host module name, creating it if
// needed. Host modules must be fully defined BEFORE stores are created;
// later additions are not seen by existing stores.
func (e *Engine) HostModule(name string) *HostModuleDef {
	e.mu.Lock()
	defer e.mu.Unlock()

	if def, ok := e.hostDefs[name]; ok {
		return def
	}
	def := &HostModuleDef{name: name}
	e.hostDefs[name] = def
	e.hostIDs = append(e.hostIDs, name)
	return def
}

// DefineFunc registers a host function in this module.
func (d *HostModuleDef) DefineFunc(name string, fn api.GoModuleFunc, params, results []api.ValueType) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.funcs = append(d.funcs, hostFuncDef{
		name:    name,
		fn:      fn,
		params:  params,
		results: results,
	})
}

// HostUnitNames returns every host-provided unit name a store will carry.
// The loader's blacklist is derived from this set.
func (e *Engine) HostUnitNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.hostIDs)+1)
	if !e.cfg.DisableWASI {
		names = append(names, WASIModuleName)
	}
	names = append(names, e.hostIDs...)
	sort.Strings(names)
	return names
}
