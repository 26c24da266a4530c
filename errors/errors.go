package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates which layer reported the error
type Phase string

const (
	PhaseBoard     Phase = "board"     // capability and identifier construction
	PhaseSchedule  Phase = "schedule"  // event dispatch and handler registry
	PhaseApplet    Phase = "applet"    // applet-facing API calls
	PhaseExecute   Phase = "execute"   // instance executor
	PhaseLoad      Phase = "load"      // applet loading
	PhaseCrypto    Phase = "crypto"    // AEAD backends
	PhaseStorage   Phase = "storage"   // persistent storage
	PhaseConfig    Phase = "config"    // configuration
	PhaseInterrupt Phase = "interrupt" // interrupt bridge
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidID      Kind = "invalid_id"
	KindInvalidInput   Kind = "invalid_input"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindUnsupported    Kind = "unsupported"
	KindNotFound       Kind = "not_found"
	KindBusy           Kind = "busy"
	KindTrap           Kind = "trap"
	KindCrypto         Kind = "crypto"
	KindInvalidData    Kind = "invalid_data"
	KindMissingExport  Kind = "missing_export"
	KindInstantiation  Kind = "instantiation"
	KindNotInitialized Kind = "not_initialized"
	KindIO             Kind = "io"
)

// Error is the structured error type used throughout firmlet
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	Capability string
	Detail     string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Capability != "" {
		b.WriteString(" (")
		b.WriteString(e.Capability)
		b.WriteByte(')')
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

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Capability sets the capability name the error relates to
func (b *Builder) Capability(name string) *Builder {
	b.err.Capability = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// ErrCrypto is the single opaque failure reported by AEAD operations.
// Authentication failures and backend failures are deliberately
// indistinguishable to callers.
var ErrCrypto = &Error{Phase: PhaseCrypto, Kind: KindCrypto, Detail: "aead operation failed"}

// Convenience constructors for common error patterns

// InvalidID creates an identifier construction error
func InvalidID(capability string, index, count int) *Error {
	return &Error{
		Phase:      PhaseBoard,
		Kind:       KindInvalidID,
		Capability: capability,
		Detail:     fmt.Sprintf("index %d out of range (count %d)", index, count),
		Value:      index,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, %d+%d) outside memory", offset, offset, length),
		Value:  offset,
	}
}

// Unsupported creates an unsupported capability error
func Unsupported(phase Phase, capability string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindUnsupported,
		Capability: capability,
		Detail:     "not supported by this board",
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Busy creates an error for a resource already in use
func Busy(phase Phase, capability string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindBusy,
		Capability: capability,
		Detail:     "all instances in use",
	}
}

// Trap creates an error for an applet invocation that trapped
func Trap(inst uint32, export string, cause error) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindTrap,
		Detail: fmt.Sprintf("applet %d trapped in %s", inst, export),
		Value:  inst,
		Cause:  cause,
	}
}

// MissingExport creates an error for an export the applet does not provide
func MissingExport(inst uint32, export string) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindMissingExport,
		Detail: fmt.Sprintf("applet %d does not export %s", inst, export),
		Value:  inst,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate applet",
		Cause:  cause,
	}
}

// Load creates an applet loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Config creates a configuration error
func Config(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// Storage creates a storage error
func Storage(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseStorage,
		Kind:   KindIO,
		Detail: detail,
		Cause:  cause,
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}
