package glean

import (
	"errors"
	"fmt"
)

// Bridge owns a solver session and keeps the solver's scope stack in sync with
// the path condition of the path currently being explored.
//
// Every asserted constraint lives in its own solver scope. Paths are replayed
// from the start so sibling paths share a prefix of constraints. When a path
// asserts the same constraint at the same depth as the previous path, the
// existing scope is reused and no solver call is made. The stack is only popped
// at the first divergence.
type Bridge struct {
	solver Solver

	scopes []Expr // constraint per solver scope; nil for an empty scope
	depth  int    // number of scopes belonging to the current path

	stats BridgeStats
}

// BridgeStats represents statistics about solver usage.
type BridgeStats struct {
	Checks  int // satisfiability checks issued
	Asserts int // constraints sent to the solver
	Reused  int // constraints satisfied by an existing scope
	Pops    int // scopes popped on divergence
}

// NewBridge returns a new instance of Bridge.
func NewBridge(solver Solver) *Bridge {
	return &Bridge{solver: solver}
}

// Solver returns the underlying solver.
func (b *Bridge) Solver() Solver { return b.solver }

// Stats returns usage statistics.
func (b *Bridge) Stats() BridgeStats { return b.stats }

// Depth returns the number of scopes on the current path.
func (b *Bridge) Depth() int { return b.depth }

// Rewind starts a new path. Scopes are kept so a replayed prefix can reuse them.
func (b *Bridge) Rewind() {
	b.depth = 0
}

// Reset pops every scope off of the solver.
func (b *Bridge) Reset() error {
	b.depth = 0
	return b.sync()
}

// PathCondition returns a copy of the constraints asserted on the current path.
func (b *Bridge) PathCondition() []Expr {
	other := make([]Expr, 0, b.depth)
	for _, expr := range b.scopes[:b.depth] {
		if expr != nil {
			other = append(other, expr)
		}
	}
	return other
}

// Push opens an empty scope on the current path.
func (b *Bridge) Push() error {
	if b.depth < len(b.scopes) && b.scopes[b.depth] == nil {
		b.depth++
		b.stats.Reused++
		return nil
	} else if err := b.sync(); err != nil {
		return err
	}

	if err := b.solver.Push(); err != nil {
		return err
	}
	b.scopes = append(b.scopes, nil)
	b.depth++
	return nil
}

// Pop discards the most recent scope on the current path.
func (b *Bridge) Pop() error {
	if b.depth == 0 {
		return fmt.Errorf("bridge: no scope to pop")
	}
	b.depth--
	return b.sync()
}

// Assert adds a constraint to the current path under a new scope.
func (b *Bridge) Assert(expr Expr) error {
	assert(ExprSort(expr) == SortBool, "bridge: cannot assert %s expression", ExprSort(expr))

	if IsConstantTrue(expr) {
		return nil
	}

	// Reuse the scope from the previous path if it holds the same constraint.
	if b.depth < len(b.scopes) && b.scopes[b.depth] != nil && CompareExpr(b.scopes[b.depth], expr) == 0 {
		b.depth++
		b.stats.Reused++
		return nil
	} else if err := b.sync(); err != nil {
		return err
	}

	if err := b.solver.Push(); err != nil {
		return err
	} else if err := b.solver.Assert(expr); err != nil {
		return errors.Join(err, b.solver.Pop(1))
	}
	b.scopes = append(b.scopes, expr)
	b.depth++
	b.stats.Asserts++
	return nil
}

// CheckSat returns the satisfiability of the current path condition.
func (b *Bridge) CheckSat() (SolverStatus, error) {
	if err := b.sync(); err != nil {
		return Unknown, err
	}
	b.stats.Checks++
	return b.solver.Check()
}

// CheckWith returns the satisfiability of the current path condition
// conjoined with expr. The path condition is left unchanged.
func (b *Bridge) CheckWith(expr Expr) (_ SolverStatus, err error) {
	if IsConstantFalse(expr) {
		return Unsat, nil
	} else if err := b.sync(); err != nil {
		return Unknown, err
	}

	if err := b.solver.Push(); err != nil {
		return Unknown, err
	}
	defer func() {
		if e := b.solver.Pop(1); e != nil {
			err = errors.Join(err, e)
		}
	}()

	if err := b.solver.Assert(expr); err != nil {
		return Unknown, err
	}
	b.stats.Checks++
	return b.solver.Check()
}

// Model returns a model of the current path condition.
func (b *Bridge) Model() (Model, error) {
	if status, err := b.CheckSat(); err != nil {
		return nil, err
	} else if status != Sat {
		return nil, fmt.Errorf("bridge: path condition unexpectedly %s: %w", status, ErrInternal)
	}
	return b.solver.Model()
}

// sync pops solver scopes that are not part of the current path.
func (b *Bridge) sync() error {
	if n := len(b.scopes) - b.depth; n > 0 {
		if err := b.solver.Pop(n); err != nil {
			return err
		}
		b.scopes = b.scopes[:b.depth]
		b.stats.Pops += n
	}
	return nil
}
