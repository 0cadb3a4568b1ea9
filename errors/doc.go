// Package errors provides structured error types for the mod-host loader.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the mod identifier and logical unit name
// involved, plus a cause chain.
//
// Convenience constructors cover the common cases:
//
//	err := errors.NotFound(errors.PhaseResolve, "addon", "Util")
//	err := errors.Disposed("addon")
//	err := errors.Blacklisted("addon", "wasi_snapshot_preview1")
//
// All errors implement the standard error interface and support errors.Is/As.
// Callers branch on categories with the Is* predicates rather than string
// matching.
package errors
