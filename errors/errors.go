package errors

import (
	stderrors "errors"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseResolve  Phase = "resolve"  // symbol resolution
	PhaseLoad     Phase = "load"     // loading one managed unit
	PhaseNative   Phase = "native"   // native library loading
	PhaseDispose  Phase = "dispose"  // context teardown
	PhaseRegistry Phase = "registry" // registry bookkeeping
	PhasePlatform Phase = "platform" // host platform detection
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindBlacklisted Kind = "blacklisted"
	KindDisposed    Kind = "disposed"
	KindCollision   Kind = "collision"
	KindInvalidData Kind = "invalid_data"
	KindIO          Kind = "io"
	KindUnsupported Kind = "unsupported"
)

// Error is the structured error type used throughout the loader
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Mod    string
	Unit   string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Mod != "" {
		b.WriteString(" mod ")
		b.WriteString(e.Mod)
	}

	if e.Unit != "" {
		b.WriteString(" unit ")
		b.WriteString(e.Unit)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports kind equality so errors.Is works against constructor templates.
func (e *Error) Is(target error) bool {
	var t *Error
	if !stderrors.As(target, &t) {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return true
}

// New creates an Error with the given phase and kind
func New(phase Phase, kind Kind) *Error {
	return &Error{Phase: phase, Kind: kind}
}

// NotFound reports a logical name that no resolution scope could satisfy.
func NotFound(phase Phase, mod, unit string) *Error {
	return &Error{Phase: phase, Kind: KindNotFound, Mod: mod, Unit: unit}
}

// Blacklisted reports a mod-supplied unit whose name collides with a
// protected host identifier.
func Blacklisted(mod, unit string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindBlacklisted,
		Mod:    mod,
		Unit:   unit,
		Detail: "name is reserved by the host",
	}
}

// Disposed reports an operation attempted on a disposed load context.
func Disposed(mod string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindDisposed,
		Mod:    mod,
		Detail: "load context is disposed",
	}
}

// Collision reports a second unit declaring a name already tracked by the
// same context.
func Collision(mod, unit string) *Error {
	return &Error{Phase: PhaseLoad, Kind: KindCollision, Mod: mod, Unit: unit}
}

// InvalidData reports a malformed binary.
func InvalidData(phase Phase, mod, unit, detail string) *Error {
	return &Error{Phase: phase, Kind: KindInvalidData, Mod: mod, Unit: unit, Detail: detail}
}

// IO wraps a read or extraction failure.
func IO(phase Phase, mod, unit string, cause error) *Error {
	return &Error{Phase: phase, Kind: KindIO, Mod: mod, Unit: unit, Cause: cause}
}

// Unsupported reports a host OS/architecture combination with no native
// library subfolder mapping.
func Unsupported(detail string) *Error {
	return &Error{Phase: PhasePlatform, Kind: KindUnsupported, Detail: detail}
}

// Wrap attaches phase/kind context to an underlying error.
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{Phase: phase, Kind: kind, Cause: cause, Detail: detail}
}

// IsNotFound reports whether err is a not-found resolution miss.
func IsNotFound(err error) bool {
	return hasKind(err, KindNotFound)
}

// IsDisposed reports whether err is a use-after-disposal failure.
func IsDisposed(err error) bool {
	return hasKind(err, KindDisposed)
}

// IsBlacklisted reports whether err is a blacklist violation.
func IsBlacklisted(err error) bool {
	return hasKind(err, KindBlacklisted)
}

// IsUnsupported reports whether err is a platform-unsupported failure.
func IsUnsupported(err error) bool {
	return hasKind(err, KindUnsupported)
}

func hasKind(err error, kind Kind) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
