// Package errs defines the error kinds used throughout the assembly,
// solve and sensitivity pipeline. Each kind wraps a gosl/chk-style
// formatted message so callers get both a stable kind (via errors.As)
// and a readable rank-0 message.
package errs

import (
	"fmt"

	"github.com/cpmech/gosl/chk"
)

// Kind identifies which stage of the pipeline raised the error.
type Kind int

const (
	// Config is a missing required setting, unknown physics name, or
	// unparseable function expression. Fatal at startup.
	Config Kind = iota
	// Consistency is a declared-but-unused variable, a Dirichlet set on
	// an unknown side, or inconsistent parameter bounds. Fatal at startup.
	Consistency
	// Assembly is an AD derivative count overflow or a size mismatch
	// between local and global index tables. Aborts the current
	// simulation but releases resources cleanly.
	Assembly
	// LinearSolve is a preconditioner failure cascade exhausted.
	LinearSolve
	// NonlinearNonConvergence is an iteration cap hit without tolerance.
	NonlinearNonConvergence
	// Subgrid is a subgrid nonlinear or linear failure; it is always
	// re-wrapped as Assembly at the macro level per spec.
	Subgrid
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "ConfigError"
	case Consistency:
		return "ConsistencyError"
	case Assembly:
		return "AssemblyError"
	case LinearSolve:
		return "LinearSolveError"
	case NonlinearNonConvergence:
		return "NonlinearNonConvergence"
	case Subgrid:
		return "SubgridError"
	default:
		return "UnknownError"
	}
}

// E is a typed pipeline error.
type E struct {
	Kind Kind
	Msg  string
}

func (e *E) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

func newf(k Kind, format string, args ...interface{}) *E {
	return &E{Kind: k, Msg: chk.Err(format, args...).Error()}
}

// ConfigError builds a Config-kind error.
func ConfigError(format string, args ...interface{}) error { return newf(Config, format, args...) }

// ConsistencyError builds a Consistency-kind error.
func ConsistencyError(format string, args ...interface{}) error {
	return newf(Consistency, format, args...)
}

// AssemblyError builds an Assembly-kind error.
func AssemblyError(format string, args ...interface{}) error { return newf(Assembly, format, args...) }

// LinearSolveError builds a LinearSolve-kind error.
func LinearSolveError(format string, args ...interface{}) error {
	return newf(LinearSolve, format, args...)
}

// NonConvergenceError builds a NonlinearNonConvergence-kind error.
func NonConvergenceError(format string, args ...interface{}) error {
	return newf(NonlinearNonConvergence, format, args...)
}

// SubgridError builds a Subgrid-kind error, then re-wraps it as an
// Assembly-kind error for propagation to the macro assembler, per
// spec.md §7 ("Subgrid failures propagate as macro assembly errors").
func SubgridError(format string, args ...interface{}) error {
	inner := newf(Subgrid, format, args...)
	return &E{Kind: Assembly, Msg: inner.Error()}
}

// Is reports whether err is an *E of the given kind.
func Is(err error, k Kind) bool {
	e, ok := err.(*E)
	return ok && e.Kind == k
}
