package glean

import (
	"errors"
	"fmt"
)

// Solver errors. A check that returns one of these is unknown, not unsat.
var (
	ErrSolverTimeout       = errors.New("Solver timeout")
	ErrSolverCanceled      = errors.New("Solver canceled")
	ErrSolverResourceLimit = errors.New("Solver resource limit")
	ErrSolverUnknown       = errors.New("Solver unknown error")
)

// Path control errors. These are returned through a target's error return
// and must be passed through unchanged by the target.
var (
	ErrPathTimeout           = errors.New("path timeout")
	ErrBudgetExhausted       = errors.New("budget exhausted")
	ErrIgnoreAttempt         = errors.New("ignore attempt")
	ErrUnknownSatisfiability = errors.New("unknown satisfiability")
	ErrNotDeterministic      = errors.New("not deterministic")
	ErrInternal              = errors.New("internal error")
)

// IsSolverUnknown returns true if err reports an unknown solver result.
func IsSolverUnknown(err error) bool {
	return errors.Is(err, ErrSolverTimeout) ||
		errors.Is(err, ErrSolverCanceled) ||
		errors.Is(err, ErrSolverResourceLimit) ||
		errors.Is(err, ErrSolverUnknown) ||
		errors.Is(err, ErrUnknownSatisfiability)
}

// isPathControl returns true if err aborts the current path rather than
// describing the behavior of the target.
func isPathControl(err error) bool {
	return errors.Is(err, ErrPathTimeout) ||
		errors.Is(err, ErrBudgetExhausted) ||
		errors.Is(err, ErrIgnoreAttempt) ||
		errors.Is(err, ErrNotDeterministic) ||
		errors.Is(err, ErrInternal) ||
		IsSolverUnknown(err)
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
