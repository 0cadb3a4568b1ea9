package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/mod-host/errors"
)

// Unit is one loaded piece of code: a compiled wasm module activated into
// its owning store. Host-provided units have no compiled form or raw bytes.
type Unit struct {
	name     string
	compiled wazero.CompiledModule
	module   api.Module
	raw      []byte
	srcmap   []byte
	host     bool

	closeOnce sync.Once
	closeErr  error
}

// Name returns the unit's logical name.
func (u *Unit) Name() string {
	return u.name
}

// Host reports whether the unit is host-provided rather than mod-provided.
func (u *Unit) Host() bool {
	return u.host
}

// SourceMap returns the paired debug-symbol bytes loaded with the unit, or
// nil. The loader carries them; it does not interpret them.
func (u *Unit) SourceMap() []byte {
	return u.srcmap
}

// Exports returns the unit's exported function names, sorted.
func (u *Unit) Exports() []string {
	if u.module == nil {
		return nil
	}
	defs := u.module.ExportedFunctionDefinitions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Func returns an exported function by name, or nil.
func (u *Unit) Func(name string) api.Function {
	if u.module == nil {
		return nil
	}
	return u.module.ExportedFunction(name)
}

// Call invokes an exported function. The unit is recorded in the call
// context so host functions can identify their caller (see CallerUnit).
func (u *Unit) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := u.Func(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseResolve, "", u.name+"."+name)
	}
	return fn.Call(WithUnit(ctx, u), params...)
}

// Close releases the unit's in-memory representation exactly once.
// Host units are owned by their store and are not closed here.
func (u *Unit) Close(ctx context.Context) error {
	u.closeOnce.Do(func() {
		if u.host {
			return
		}
		if u.module != nil {
			u.closeErr = u.module.Close(ctx)
		}
		if u.compiled != nil {
			if err := u.compiled.Close(ctx); err != nil && u.closeErr == nil {
				u.closeErr = err
			}
		}
	})
	return u.closeErr
}

type unitCtxKey struct{}

// WithUnit records the unit executing on this call path.
func WithUnit(ctx context.Context, u *Unit) context.Context {
	return context.WithValue(ctx, unitCtxKey{}, u)
}

// CallerUnit returns the unit recorded on the call path, or nil when the
// caller is host code.
func CallerUnit(ctx context.Context) *Unit {
	u, _ := ctx.Value(unitCtxKey{}).(*Unit)
	return u
}
