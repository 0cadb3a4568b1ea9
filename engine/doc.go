// Package engine is the concrete "given bytes, produce a loaded unit"
// capability behind the mod loading core.
//
// An Engine holds process-wide state: the shared compilation cache and the
// host-provided module definitions every mod may link against. A Store is one
// isolated wazero runtime, owned by exactly one mod's load context; closing
// the store releases every unit activated into it. A Unit is one loaded
// module: compiled (name and export table readable) and activated
// (instantiated) into its owning store.
//
// The resolution algorithm in package loader is independent of wazero; only
// this package touches it.
package engine
