package glean

import (
	"time"
)

// SolverStatus is the result of a satisfiability check.
type SolverStatus int

// Solver statuses.
const (
	Unsat = SolverStatus(iota)
	Sat
	Unknown
)

// String returns the string representation of the status.
func (s SolverStatus) String() string {
	switch s {
	case Unsat:
		return "unsat"
	case Sat:
		return "sat"
	case Unknown:
		return "unknown"
	default:
		return "SolverStatus<?>"
	}
}

// Solver represents an incremental constraint solver session.
//
// Assertions are grouped into scopes. Push opens a new scope and Pop discards
// the n most recent scopes along with every assertion made within them.
type Solver interface {
	Push() error
	Pop(n int) error
	Assert(expr Expr) error

	// Check returns the satisfiability of the current assertions. An Unknown
	// status is returned with one of the ErrSolver* errors describing why.
	Check() (SolverStatus, error)

	// Model returns a model of the last satisfiable check. The model is
	// invalidated by any subsequent call that modifies the solver.
	Model() (Model, error)

	// SetTimeout sets the per-check timeout. Zero disables the timeout.
	SetTimeout(d time.Duration) error

	Close() error
}

// Model represents a satisfying assignment returned by a Solver.
type Model interface {
	// Eval returns the value of expr under the model. Unconstrained parts of
	// the expression are completed with arbitrary values.
	Eval(expr Expr) (*ConstantExpr, error)
}

// Interrupter is implemented by solvers that can abort a running check from
// another goroutine.
type Interrupter interface {
	Interrupt()
}

// MapModel is a Model backed by a fixed assignment of variables and arrays.
// Variables missing from the assignment evaluate to the zero value of their sort.
type MapModel struct {
	Vars   map[string]*ConstantExpr
	Arrays map[uint64]ArrayValue
}

// Eval evaluates expr under the assignment.
func (m *MapModel) Eval(expr Expr) (*ConstantExpr, error) {
	vars := make(map[string]*ConstantExpr, len(m.Vars))
	for k, v := range m.Vars {
		vars[k] = v
	}
	for _, v := range FindVars(expr) {
		if _, ok := vars[v.Name]; !ok {
			vars[v.Name] = zeroOf(v.Sort)
		}
	}

	arrays := make(map[uint64]ArrayValue, len(m.Arrays))
	for k, v := range m.Arrays {
		arrays[k] = v
	}
	for _, a := range FindArrays(expr) {
		if _, ok := arrays[a.ID]; !ok {
			arrays[a.ID] = ArrayValue{Default: zeroOf(a.Range)}
		}
	}
	return NewExprEvaluator(vars, arrays).Evaluate(expr)
}
