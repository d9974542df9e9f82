// Package constraints implements the constraint manager and solver
// façade: an append-only, implicitly-conjoined set of width-1
// expressions, a pluggable Solver behind a plain interface, a bounded
// in-package reference Solver, and the floating-point query rewriter
// that runs ahead of every back-end call.
//
// Solver is a plain interface so a real SMT binding can be wired in
// behind it without touching Manager; naiveSolver is the in-package
// reference implementation.
package constraints

import (
	"errors"

	"github.com/dslab-symex/symexec/arrays"
	"github.com/dslab-symex/symexec/expr"
)

// Validity is the three-valued result of ComputeValidity.
type Validity int

const (
	Unknown Validity = iota
	True
	False
)

func (v Validity) String() string {
	switch v {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// ErrSolverFailure is returned when a Solver cannot decide a query —
// timeout, internal error, or a genuine "unknown" result. It is
// recoverable: the interpreter abandons the state rather than
// branching blindly.
var ErrSolverFailure = errors.New("constraints: solver failure")

// Solver is the back-end façade: given a
// constraint set (already conjoined) and a query expression, decide
// its validity, truth, a satisfying value, or an initial-values model
// for a set of arrays.
type Solver interface {
	// ComputeValidity reports whether query is valid (true under every
	// model satisfying constraints), invalid (false under every such
	// model), or unknown given constraints.
	ComputeValidity(constraints []*expr.Expr, query *expr.Expr) (Validity, error)
	// ComputeTruth reports whether constraints imply query (a
	// convenience over ComputeValidity for the common case).
	ComputeTruth(constraints []*expr.Expr, query *expr.Expr) (bool, error)
	// ComputeValue returns a concrete Expr that query may evaluate to
	// under some model satisfying constraints.
	ComputeValue(constraints []*expr.Expr, query *expr.Expr) (*expr.Expr, error)
	// ComputeInitialValues returns, for each of objects, a byte slice
	// giving a model satisfying constraints, or hasSolution=false if
	// constraints are unsatisfiable.
	ComputeInitialValues(constraints []*expr.Expr, objects []*arrays.Array) (values [][]byte, hasSolution bool, err error)
}
