package glean

import (
	"bytes"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"
)

// detachExtension is the extra time given to a path after it detaches so
// deferred assumptions & counterexample realization can complete.
const detachExtension = 2 * time.Second

// StepBudget limits the number of branch decisions across all paths of an analysis.
type StepBudget struct {
	Max  int // zero is unlimited
	used int
}

// Used returns the number of decisions taken so far.
func (b *StepBudget) Used() int { return b.used }

// take consumes a single decision. Returns ErrBudgetExhausted if none remain.
func (b *StepBudget) take() error {
	if b == nil {
		return nil
	} else if b.Max > 0 && b.used >= b.Max {
		return ErrBudgetExhausted
	}
	b.used++
	return nil
}

type deferredAssumption struct {
	desc    string
	checker func() (bool, error)
}

// StateSpace represents the exploration state of a single path attempt.
//
// Each attempt replays the choices recorded in the search tree from the start
// of the callable. A branch on a symbolic boolean either replays the recorded
// decision or grows a new node at the frontier of the tree.
type StateSpace struct {
	tree     *SearchTree
	bridge   *Bridge
	position *stem
	choices  []decisionNode

	deadline time.Time
	steps    *StepBudget

	nextUniq    int
	detached    bool
	deferred    []deferredAssumption
	realized    map[string]*ConstantExpr
	unsupported []string
	aborted     error

	logger zerolog.Logger
}

// StateSpaceConfig holds the per-path settings of a StateSpace.
type StateSpaceConfig struct {
	Deadline time.Time // zero means no path timeout
	Steps    *StepBudget
	Logger   zerolog.Logger
}

// NewStateSpace returns a new StateSpace positioned at the root of tree.
func NewStateSpace(tree *SearchTree, bridge *Bridge, config StateSpaceConfig) *StateSpace {
	bridge.Rewind()

	s := &StateSpace{
		tree:     tree,
		bridge:   bridge,
		deadline: config.Deadline,
		steps:    config.Steps,
		nextUniq: 1,
		realized: make(map[string]*ConstantExpr),
		logger:   config.Logger,
	}
	_, s.position = tree.root.choose(false)
	return s
}

// Bridge returns the solver bridge used by the path.
func (s *StateSpace) Bridge() *Bridge { return s.bridge }

// Choices returns the number of decisions made on the path.
func (s *StateSpace) Choices() int { return len(s.choices) }

// PathCondition returns the constraints asserted on the path.
func (s *StateSpace) PathCondition() []Expr { return s.bridge.PathCondition() }

// IsDetached returns true once the path has stopped exploring.
func (s *StateSpace) IsDetached() bool { return s.detached }

// Aborted returns the first path-control error raised on this path, if any.
// A callable that swallows an engine error cannot hide it from the analyzer.
func (s *StateSpace) Aborted() error { return s.aborted }

// Unsupported returns the operations that fell back to concrete execution.
func (s *StateSpace) Unsupported() []string { return s.unsupported }

// RecordUnsupported records an operation that was realized and run concretely
// because it has no symbolic encoding.
func (s *StateSpace) RecordUnsupported(op string) {
	s.unsupported = append(s.unsupported, op)
	s.logger.Debug().Str("component", "realize").Str("op", op).Msg("unsupported operation")
}

// abort records err as the reason the path stopped and returns it.
func (s *StateSpace) abort(err error) error {
	if s.aborted == nil {
		s.aborted = err
	}
	return err
}

// Uniq returns a name suffix that is unique within the path. Replays generate
// the same sequence of suffixes.
func (s *StateSpace) Uniq() string {
	s.nextUniq++
	return fmt.Sprintf("_%x", s.nextUniq)
}

// NewVar returns a fresh solver variable with a path-unique name.
func (s *StateSpace) NewVar(prefix string, sort Sort) *VarExpr {
	return NewVarExpr(prefix+s.Uniq(), sort)
}

// NewArray returns a fresh solver array with a path-unique id.
func (s *StateSpace) NewArray(rng Sort) *Array {
	s.nextUniq++
	return NewArray(uint64(s.nextUniq), rng)
}

// Assume asserts expr on the path without branching. If expr is infeasible the
// path is ignored.
func (s *StateSpace) Assume(expr Expr) error {
	if IsConstantTrue(expr) {
		return nil
	} else if IsConstantFalse(expr) {
		return s.abort(fmt.Errorf("%w: assumption is false", ErrIgnoreAttempt))
	}
	return s.bridge.Assert(expr)
}

// IsPossible returns true if expr is feasible on the current path.
func (s *StateSpace) IsPossible(expr Expr) (bool, error) {
	if c, ok := expr.(*ConstantExpr); ok {
		return c.IsTrue(), nil
	}
	ok, err := isPossible(s.bridge, expr)
	if err != nil {
		return false, s.abort(err)
	}
	return ok, nil
}

// Choose branches on a symbolic boolean. Returns the chosen value after
// asserting the corresponding constraint on the path.
func (s *StateSpace) Choose(expr Expr) (bool, error) {
	return s.choose(expr, false)
}

// PreferTrue is like Choose but takes the true branch whenever it is feasible.
func (s *StateSpace) PreferTrue(expr Expr) (bool, error) {
	return s.choose(expr, true)
}

func (s *StateSpace) choose(expr Expr, favorTrue bool) (bool, error) {
	assert(ExprSort(expr) == SortBool, "choose: invalid sort: %s", ExprSort(expr))

	// Constant decisions never branch.
	if c, ok := expr.(*ConstantExpr); ok {
		return c.IsTrue(), nil
	}

	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		s.logger.Debug().Str("component", "path").Int("choices", len(s.choices)).Msg("path execution timeout")
		return false, s.abort(ErrPathTimeout)
	} else if err := s.steps.take(); err != nil {
		return false, s.abort(err)
	}

	var node *worstResultNode
	if s.position.isStem() {
		n, err := newWorstResultNode(s.tree.rand, expr, s.bridge)
		if err != nil {
			return false, s.abort(err)
		}
		s.position.grow(n)
		node = n
	} else if n, ok := s.position.evolution.(*worstResultNode); !ok {
		s.logger.Debug().Str("component", "fork").Str("expr", expr.String()).Msgf("decision node expected; found %T", s.position.evolution)
		return false, s.abort(ErrNotDeterministic)
	} else if CompareExpr(n.expr, expr) != 0 {
		s.logger.Debug().Str("component", "fork").Str("from", n.expr.String()).Str("to", expr.String()).Msg("decision expression changed")
		return false, s.abort(ErrNotDeterministic)
	} else {
		node = n
	}

	choice, next := node.choose(favorTrue)
	s.choices = append(s.choices, node)
	s.position = next

	chosen := expr
	if !choice {
		chosen = NewNotExpr(expr)
	}
	if err := s.bridge.Assert(chosen); err != nil {
		return false, s.abort(err)
	}
	s.logger.Debug().Str("component", "fork").Str("expr", chosen.String()).Msg("chose")
	return choice, nil
}

// Fork branches on a fresh, unconstrained boolean. Both outcomes are explored.
func (s *StateSpace) Fork(desc string) (bool, error) {
	return s.Choose(s.NewVar(desc, SortBool))
}

// ForkParallel splits the path into two alternatives where either can supply
// the result. The false edge is taken with probability p.
func (s *StateSpace) ForkParallel(p float64, desc string) (bool, error) {
	var node *parallelNode
	if s.position.isStem() {
		node = &parallelNode{binaryPathNode: newBinaryPathNode(s.tree.rand), falseProbability: p, desc: desc}
		s.position.grow(node)
	} else if n, ok := s.position.evolution.(*parallelNode); !ok {
		return false, s.abort(ErrNotDeterministic)
	} else {
		node = n
		node.falseProbability = p
	}

	choice, next := node.choose(false)
	s.choices = append(s.choices, node)
	s.position = next
	return choice, nil
}

// Realize returns a concrete value for expr and commits the path to it.
// Realizing the same expression twice on a path returns the same value.
func (s *StateSpace) Realize(expr Expr) (*ConstantExpr, error) {
	if c, ok := expr.(*ConstantExpr); ok {
		return c, nil
	}

	key := expr.String()
	if value, ok := s.realized[key]; ok {
		return value, nil
	}

	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		return nil, s.abort(ErrPathTimeout)
	}

	for {
		var node *modelValueNode
		if s.position.isStem() {
			n, err := newModelValueNode(s.tree.rand, expr, s.bridge)
			if err != nil {
				return nil, s.abort(err)
			}
			s.position.grow(n)
			node = n
		} else if n, ok := s.position.evolution.(*modelValueNode); !ok || CompareExpr(n.target, expr) != 0 {
			s.logger.Debug().Str("component", "realize").Str("expr", key).Msgf("model value node expected; found %T", s.position.evolution)
			return nil, s.abort(ErrNotDeterministic)
		} else {
			node = n
		}

		chosen, next := node.choose(true)
		s.choices = append(s.choices, node)
		s.position = next

		if chosen {
			if err := s.bridge.Assert(node.expr); err != nil {
				return nil, s.abort(err)
			}
			s.realized[key] = node.value
			if !s.detached {
				s.logger.Debug().Str("component", "realize").Str("expr", key).Str("value", node.value.String()).Msg("realized")
			}
			return node.value, nil
		}
		if err := s.bridge.Assert(NewNotExpr(node.expr)); err != nil {
			return nil, s.abort(err)
		}
	}
}

// DeferAssumption registers a condition that must hold for the path to count.
// It is checked when the path detaches; a false result ignores the attempt.
func (s *StateSpace) DeferAssumption(desc string, checker func() (bool, error)) {
	s.deferred = append(s.deferred, deferredAssumption{desc: desc, checker: checker})
}

// Detach marks the end of exploration for the path and verifies deferred
// assumptions. The space can still be used afterward, such as to realize a
// counterexample, without growing the tree.
func (s *StateSpace) Detach() error {
	if s.detached {
		s.logger.Debug().Str("component", "path").Msg("path is already detached")
		return nil
	}
	if !s.deadline.IsZero() {
		s.deadline = s.deadline.Add(detachExtension)
	}

	for _, a := range s.deferred {
		if ok, err := a.checker(); err != nil {
			return err
		} else if !ok {
			return s.abort(fmt.Errorf("%w: deferred assumption failed: %s", ErrIgnoreAttempt, a.desc))
		}
	}

	s.detached = true
	assert(s.position.isStem(), "detach: path is not at the frontier of the search tree")
	node := newDetachedPathNode()
	s.position.grow(node)
	s.choices = append(s.choices, node)
	s.position = node.child
	s.logger.Debug().Str("component", "path").Msg("detached from search tree")
	return nil
}

// Bubble records the result of the path at its current position and merges it
// up through every recorded choice. Returns the result of the whole tree and
// whether the tree is exhausted.
func (s *StateSpace) Bubble(result PathResult) (PathResult, bool) {
	// The path may be ignored while not at a leaf. A path that stopped early
	// during replay leaves the subtree below it open.
	if s.position.isStem() {
		s.position.grow(newSearchLeaf(result))
	} else if b := s.position.evolution.base(); result.Status == StatusUnknown {
		if b.result.Status == StatusIgnored {
			b.result = result
		}
	} else {
		b.exhausted, b.result = true, result
	}

	if len(s.choices) == 0 {
		return result, s.position.isExhausted()
	}
	for i := len(s.choices) - 1; i >= 0; i-- {
		updateResult(s.choices[i], result)
	}
	first := s.choices[0].base()
	return first.result, first.exhausted
}

// Dump returns a human readable description of the path.
func (s *StateSpace) Dump() string {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "STATE SPACE")
	fmt.Fprintln(&buf, "===========")
	fmt.Fprintf(&buf, "choices=%d detached=%v\n", len(s.choices), s.detached)
	if s.aborted != nil {
		fmt.Fprintf(&buf, "aborted=%s\n", s.aborted)
	}
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== CHOICES")
	for i, node := range s.choices {
		fmt.Fprintf(&buf, "%d. %v\n", i, node)
	}
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== CONSTRAINTS")
	for i, expr := range s.PathCondition() {
		fmt.Fprintf(&buf, "%d. %s\n", i, expr.String())
	}
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== REALIZED")
	fmt.Fprint(&buf, dumpConfig.Sdump(s.realized))
	if len(s.unsupported) > 0 {
		fmt.Fprintln(&buf, "")
		fmt.Fprintln(&buf, "== UNSUPPORTED")
		fmt.Fprint(&buf, dumpConfig.Sdump(s.unsupported))
	}
	return buf.String()
}

var dumpConfig = spew.ConfigState{Indent: "  ", SortKeys: true, DisableMethods: false, DisablePointerAddresses: true}
