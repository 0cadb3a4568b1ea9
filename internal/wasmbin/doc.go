// Package wasmbin scans just enough of a WebAssembly binary to answer
// loader questions without compiling it: the module's self-declared name,
// the module names it imports from, and its export names.
//
// It also builds minimal valid modules, used as fixtures by tests across
// the repository.
package wasmbin
