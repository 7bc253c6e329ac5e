package z3_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/glean"
	"github.com/benbjohnson/glean/z3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzer_Analyze(t *testing.T) {
	t.Run("ExecutionError", func(t *testing.T) {
		res := MustAnalyze(t, glean.Target{
			Name: "floordiv_zero",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				return c.FloorDiv(args[0], glean.NewInt(0))
			},
			Contract: glean.Contract{Params: []glean.Param{{Name: "x", Type: glean.IntSpec}}},
		}, nil)

		assert.Equal(t, glean.Violation, res.Outcome)
		require.NotNil(t, res.Counterexample)
		assert.Equal(t, glean.MessageExecutionError, res.Counterexample.Kind)
		assert.Same(t, glean.ZeroDivisionError, res.Counterexample.Exception.Kind)
		assert.Equal(t, "x", res.Counterexample.Args[0].Name)
		assert.True(t, strings.HasPrefix(res.Counterexample.String(), "ZeroDivisionError: "))
	})

	t.Run("TargetRaises", func(t *testing.T) {
		res := MustAnalyze(t, glean.Target{
			Name: "always_raise",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				return nil, c.Raise(glean.ValueError, "bad input")
			},
			Contract: glean.Contract{Params: []glean.Param{{Name: "x", Type: glean.IntSpec}}},
		}, nil)

		require.Equal(t, glean.Violation, res.Outcome, res.Reason)
		ce := res.Counterexample
		assert.Equal(t, glean.MessageExecutionError, ce.Kind)
		assert.Same(t, glean.ValueError, ce.Exception.Kind)
		assert.Equal(t, "bad input", ce.Exception.Msg)
	})

	t.Run("AllowedRaise", func(t *testing.T) {
		res := MustAnalyze(t, glean.Target{
			Name: "floordiv_zero",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				return c.FloorDiv(args[0], glean.NewInt(0))
			},
			Contract: glean.Contract{
				Params: []glean.Param{{Name: "x", Type: glean.IntSpec}},
				Raises: []*glean.ExceptionType{glean.ArithmeticError},
			},
		}, nil)
		assert.Equal(t, glean.Safe, res.Outcome, res.Reason)
		assert.Nil(t, res.Counterexample)
	})

	t.Run("Safe", func(t *testing.T) {
		res := MustAnalyze(t, glean.Target{
			Name: "abs_nonneg",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				return c.Abs(args[0])
			},
			Contract: glean.Contract{
				Params: []glean.Param{{Name: "x", Type: glean.IntSpec}},
				Post:   []glean.Condition{{Desc: "__return__ >= 0", Fn: returnCmp(glean.OpGe, 0)}},
			},
		}, nil)
		assert.Equal(t, glean.Safe, res.Outcome, res.Reason)
		assert.Zero(t, res.Stats.Refuted)
		assert.Positive(t, res.Stats.Confirmed)
	})

	t.Run("Clamp", func(t *testing.T) {
		res := MustAnalyze(t, glean.Target{
			Name: "clamp",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				upper, err := c.Min(glean.NewList(args[0], args[2]))
				if err != nil {
					return nil, err
				}
				return c.Max(glean.NewList(args[1], upper))
			},
			Contract: glean.Contract{
				Params: []glean.Param{
					{Name: "x", Type: glean.IntSpec},
					{Name: "lo", Type: glean.IntSpec},
					{Name: "hi", Type: glean.IntSpec},
				},
				Pre: []glean.Condition{{
					Desc: "lo <= hi",
					Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
						return c.Le(call.Arg("lo"), call.Arg("hi"))
					},
				}},
				Post: []glean.Condition{{
					Desc: "lo <= __return__ <= hi",
					Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
						if ok, err := c.Cond(c.Le(call.Arg("lo"), call.Return)); err != nil || !ok {
							return glean.Bool(false), err
						}
						return c.Le(call.Return, call.Arg("hi"))
					},
				}},
			},
		}, nil)
		assert.Equal(t, glean.Safe, res.Outcome, res.Reason)
	})

	t.Run("PostconditionFailed", func(t *testing.T) {
		res := MustAnalyze(t, glean.Target{
			Name: "double",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				return c.Mul(args[0], glean.NewInt(2))
			},
			Contract: glean.Contract{
				Params: []glean.Param{{Name: "x", Type: glean.IntSpec}},
				Post: []glean.Condition{{
					Desc: "__return__ > x",
					Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
						return c.Gt(call.Return, call.Arg("x"))
					},
				}},
			},
		}, nil)

		require.Equal(t, glean.Violation, res.Outcome)
		ce := res.Counterexample
		assert.Equal(t, glean.MessagePostconditionFailed, ce.Kind)
		assert.Equal(t, "__return__ > x", ce.Condition)

		c := glean.NewConcreteCtx()
		ok, err := c.Cond(c.Le(ce.Args[0].Value, glean.NewInt(0)))
		require.NoError(t, err)
		assert.True(t, ok, "x=%s", ce.Args[0].Value)
	})

	t.Run("PostconditionError", func(t *testing.T) {
		res := MustAnalyze(t, glean.Target{
			Name: "identity",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				return args[0], nil
			},
			Contract: glean.Contract{
				Params: []glean.Param{{Name: "xs", Type: glean.ListOf(glean.IntSpec)}},
				Post: []glean.Condition{{
					Desc: "__return__[0] == xs[0]",
					Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
						v, err := c.GetItem(call.Return, glean.NewInt(0))
						if err != nil {
							return nil, err
						}
						return c.Eq(v, v)
					},
				}},
			},
		}, nil)

		require.Equal(t, glean.Violation, res.Outcome)
		assert.Equal(t, glean.MessagePostconditionError, res.Counterexample.Kind)
		assert.Same(t, glean.IndexError, res.Counterexample.Exception.Kind)
		assert.Equal(t, "identity(xs=[])", res.Counterexample.Call())
	})

	t.Run("PostconditionRaises", func(t *testing.T) {
		res := MustAnalyze(t, glean.Target{
			Name: "identity",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				return args[0], nil
			},
			Contract: glean.Contract{
				Params: []glean.Param{{Name: "x", Type: glean.IntSpec}},
				Post: []glean.Condition{{
					Desc: "lookup(__return__)",
					Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
						return nil, c.Raise(glean.KeyError, "missing")
					},
				}},
			},
		}, nil)

		require.Equal(t, glean.Violation, res.Outcome, res.Reason)
		ce := res.Counterexample
		assert.Equal(t, glean.MessagePostconditionError, ce.Kind)
		assert.Equal(t, "lookup(__return__)", ce.Condition)
		require.NotNil(t, ce.Exception)
		assert.Same(t, glean.KeyError, ce.Exception.Kind)
	})

	t.Run("IndexError", func(t *testing.T) {
		res := MustAnalyze(t, glean.Target{
			Name: "middle",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				n, err := c.Len(args[0])
				if err != nil {
					return nil, err
				}
				i, err := c.FloorDiv(n, glean.NewInt(2))
				if err != nil {
					return nil, err
				}
				return c.GetItem(args[0], i)
			},
			Contract: glean.Contract{Params: []glean.Param{{Name: "xs", Type: glean.ListOf(glean.IntSpec)}}},
		}, nil)

		require.Equal(t, glean.Violation, res.Outcome)
		assert.Same(t, glean.IndexError, res.Counterexample.Exception.Kind)
		assert.Equal(t, "middle(xs=[])", res.Counterexample.Call())
	})

	t.Run("Vacuous", func(t *testing.T) {
		res := MustAnalyze(t, glean.Target{
			Name: "impossible",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				return args[0], nil
			},
			Contract: glean.Contract{
				Params: []glean.Param{{Name: "x", Type: glean.IntSpec}},
				Pre: []glean.Condition{
					{Desc: "x > 0", Fn: argCmp("x", glean.OpGt, 0)},
					{Desc: "x < 0", Fn: argCmp("x", glean.OpLt, 0)},
				},
			},
		}, nil)
		assert.Equal(t, glean.Vacuous, res.Outcome)
		assert.Equal(t, "no input satisfies the preconditions", res.Reason)
		assert.Equal(t, res.Stats.Paths(), res.Stats.Ignored)
	})

	t.Run("StepBudget", func(t *testing.T) {
		res := MustAnalyze(t, glean.Target{
			Name: "ladder",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				n := 0
				for i := 0; i < 40; i++ {
					if ok, err := c.Cond(c.Gt(args[0], glean.NewInt(int64(i)))); err != nil {
						return nil, err
					} else if ok {
						n++
					}
				}
				return glean.NewInt(int64(n)), nil
			},
			Contract: glean.Contract{Params: []glean.Param{{Name: "x", Type: glean.IntSpec}}},
		}, func(a *glean.Analyzer) { a.Budget.MaxSteps = 10 })

		assert.Equal(t, glean.Inconclusive, res.Outcome)
		assert.Equal(t, "step budget exhausted", res.Reason)
		assert.Equal(t, 10, res.Steps)
	})

	t.Run("MaxIterations", func(t *testing.T) {
		res := MustAnalyze(t, branchTarget(), func(a *glean.Analyzer) { a.Budget.MaxIterations = 1 })
		assert.Equal(t, glean.Inconclusive, res.Outcome)
		assert.Equal(t, "iteration limit reached", res.Reason)
		assert.Equal(t, 1, res.Stats.Paths())
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		a := glean.NewAnalyzer(MustOpenSolver(t))
		res, err := a.Analyze(ctx, branchTarget())
		require.NoError(t, err)
		assert.Equal(t, glean.Inconclusive, res.Outcome)
		assert.Equal(t, context.Canceled.Error(), res.Reason)
	})

	// An interrupt issued on cancelation must complete before Analyze
	// returns so the caller can close the solver right away.
	t.Run("CanceledThenClosed", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			ctx, cancel := context.WithCancel(context.Background())
			s := z3.NewSolver()
			go cancel()
			_, err := glean.NewAnalyzer(s).Analyze(ctx, branchTarget())
			require.NoError(t, err)
			require.NoError(t, s.Close())
			cancel()
		}

		res := MustAnalyze(t, branchTarget(), nil)
		assert.Equal(t, glean.Safe, res.Outcome, res.Reason)
		assert.Zero(t, res.Stats.Unknown)
	})

	t.Run("Nondeterministic", func(t *testing.T) {
		var calls int64
		res := MustAnalyze(t, glean.Target{
			Name: "counter",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				return glean.None, nil
			},
			Contract: glean.Contract{
				Params: []glean.Param{{Name: "x", Type: glean.IntSpec}},
				Pre: []glean.Condition{{
					Desc: "x > calls",
					Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
						calls++
						return c.Gt(call.Arg("x"), glean.NewInt(calls))
					},
				}},
			},
		}, nil)
		assert.Equal(t, glean.Nondeterministic, res.Outcome)
		assert.Equal(t, "decisions changed on replay", res.Reason)
	})

	t.Run("ReportAllViolations", func(t *testing.T) {
		target := glean.Target{
			Name: "sign",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				if ok, err := c.Cond(c.Lt(args[0], glean.NewInt(0))); err != nil {
					return nil, err
				} else if ok {
					return nil, c.Raise(glean.ValueError, "negative")
				}
				if ok, err := c.Cond(c.Eq(args[0], glean.NewInt(0))); err != nil {
					return nil, err
				} else if ok {
					return nil, c.Raise(glean.KeyError, "zero")
				}
				return glean.NewInt(1), nil
			},
			Contract: glean.Contract{Params: []glean.Param{{Name: "x", Type: glean.IntSpec}}},
		}

		res := MustAnalyze(t, target, func(a *glean.Analyzer) { a.ReportAllViolations = true })
		assert.Equal(t, glean.Violation, res.Outcome)
		require.Len(t, res.Messages, 2)
		assert.Same(t, res.Messages[0].Counterexample, res.Counterexample)

		// Every feasible branch is counted exactly once.
		assert.Equal(t, 2, res.Stats.Refuted)
		assert.Equal(t, 1, res.Stats.Confirmed)
		assert.Equal(t, 3, res.Stats.Paths())

		res = MustAnalyze(t, target, nil)
		assert.Len(t, res.Messages, 1)
	})

	t.Run("InvalidContract", func(t *testing.T) {
		a := glean.NewAnalyzer(MustOpenSolver(t))
		_, err := a.Analyze(context.Background(), glean.Target{
			Name:     "dup",
			Fn:       func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) { return glean.None, nil },
			Contract: glean.Contract{Params: []glean.Param{{Name: "x", Type: glean.IntSpec}, {Name: "x", Type: glean.IntSpec}}},
		})
		assert.ErrorIs(t, err, glean.ErrInternal)

		_, err = a.Analyze(context.Background(), glean.Target{Name: "nil"})
		assert.ErrorIs(t, err, glean.ErrInternal)
	})
}

// Symbolic regex search must agree with substring containment on short
// strings; a wrong claim must be refuted with a replayable input.
func TestAnalyzer_Search(t *testing.T) {
	target := func(claim string) glean.Target {
		return glean.Target{
			Name: "search_ab",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				m, err := c.Search(glean.Str("a+b"), args[0], 0)
				if err != nil {
					return nil, err
				}
				return glean.Bool(!c.Is(m, glean.None)), nil
			},
			Contract: glean.Contract{
				Params: []glean.Param{{Name: "s", Type: glean.StrSpec}},
				Pre: []glean.Condition{{
					Desc: "len(s) <= 4",
					Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
						n, err := c.Len(call.Arg("s"))
						if err != nil {
							return nil, err
						}
						return c.Le(n, glean.NewInt(4))
					},
				}},
				Post: []glean.Condition{{
					Desc: "not __return__ or " + claim + " in s",
					Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
						if ok, err := c.Truth(call.Return); err != nil || !ok {
							return glean.Bool(true), err
						}
						return c.Contains(call.Arg("s"), glean.Str(claim))
					},
				}},
			},
		}
	}

	t.Run("Agree", func(t *testing.T) {
		res := MustAnalyze(t, target("ab"), nil)
		assert.NotEqual(t, glean.Violation, res.Outcome, "counterexample: %s", res.Counterexample)
		assert.NotEqual(t, glean.Nondeterministic, res.Outcome, res.Reason)
	})

	t.Run("Refuted", func(t *testing.T) {
		res := MustAnalyze(t, target("aab"), nil)
		require.Equal(t, glean.Violation, res.Outcome, res.Reason)

		s, ok := res.Counterexample.Args[0].Value.(glean.Str)
		require.True(t, ok, "%T", res.Counterexample.Args[0].Value)
		assert.Contains(t, string(s), "ab")
		assert.NotContains(t, string(s), "aab")
		assert.LessOrEqual(t, len([]rune(string(s))), 4)
	})

	// Over {a,b,c}, a+b matches exactly when "ab" occurs in s.
	t.Run("Alphabet", func(t *testing.T) {
		res := MustAnalyze(t, glean.Target{
			Name: "search_ab_abc",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				m, err := c.Search(glean.Str("a+b"), args[0], 0)
				if err != nil {
					return nil, err
				}
				return glean.Bool(!c.Is(m, glean.None)), nil
			},
			Contract: glean.Contract{
				Params: []glean.Param{{Name: "s", Type: glean.StrSpec}},
				Pre:    []glean.Condition{alphabetCondition("abc", 6)},
				Post: []glean.Condition{{
					Desc: `__return__ == ("ab" in s)`,
					Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
						found, err := c.Truth(call.Return)
						if err != nil {
							return nil, err
						}
						in, err := c.Cond(c.Contains(call.Arg("s"), glean.Str("ab")))
						return glean.Bool(found == in), err
					},
				}},
			},
		}, func(a *glean.Analyzer) { a.Budget.MaxDuration = 60 * time.Second })
		assert.NotEqual(t, glean.Violation, res.Outcome, "counterexample: %s", res.Counterexample)
		assert.NotEqual(t, glean.Nondeterministic, res.Outcome, res.Reason)
		assert.Positive(t, res.Stats.Confirmed)
	})
}

// alphabetCondition returns a precondition limiting s to at most maxLen
// characters taken from alphabet.
func alphabetCondition(alphabet string, maxLen int64) glean.Condition {
	return glean.Condition{
		Desc: fmt.Sprintf("len(s) <= %d and set(s) <= set(%q)", maxLen, alphabet),
		Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
			s := call.Arg("s")
			n, err := c.Len(s)
			if err != nil {
				return nil, err
			} else if ok, err := c.Cond(c.Le(n, glean.NewInt(maxLen))); err != nil || !ok {
				return glean.Bool(false), err
			}

			it, err := c.Iter(s)
			if err != nil {
				return nil, err
			}
			for {
				ch, ok, err := it.Next(c)
				if err != nil {
					return nil, err
				} else if !ok {
					return glean.Bool(true), nil
				}
				if ok, err := c.Cond(c.Contains(glean.Str(alphabet), ch)); err != nil || !ok {
					return glean.Bool(false), err
				}
			}
		},
	}
}

func TestBridge(t *testing.T) {
	s := MustOpenSolver(t)
	b := glean.NewBridge(s)
	x := glean.NewVarExpr("x", glean.SortInt)

	require.NoError(t, b.Assert(glean.NewBinaryExpr(glean.GT, x, intc(0))))
	require.NoError(t, b.Assert(glean.NewBinaryExpr(glean.LT, x, intc(10))))
	status, err := b.CheckSat()
	require.NoError(t, err)
	assert.Equal(t, glean.Sat, status)
	assert.Equal(t, 2, s.Scopes())

	// A second path sharing the first constraint reuses its scope.
	b.Rewind()
	require.NoError(t, b.Assert(glean.NewBinaryExpr(glean.GT, x, intc(0))))
	require.NoError(t, b.Assert(glean.NewBinaryExpr(glean.GT, x, intc(20))))
	status, err = b.CheckWith(glean.NewBinaryExpr(glean.LT, x, intc(15)))
	require.NoError(t, err)
	assert.Equal(t, glean.Unsat, status)
	assert.Equal(t, 2, s.Scopes())
	assert.Len(t, b.PathCondition(), 2)

	assert.Equal(t, glean.BridgeStats{Checks: 2, Asserts: 3, Reused: 1, Pops: 1}, b.Stats())

	require.NoError(t, b.Reset())
	assert.Equal(t, 0, s.Scopes())
}

func TestBridge_Rewind(t *testing.T) {
	s := MustOpenSolver(t)
	b := glean.NewBridge(s)
	x := glean.NewVarExpr("x", glean.SortInt)

	require.NoError(t, b.Assert(glean.NewBinaryExpr(glean.LT, x, intc(0))))
	status, err := b.CheckWith(glean.NewBinaryExpr(glean.GT, x, intc(5)))
	require.NoError(t, err)
	assert.Equal(t, glean.Unsat, status)

	// A sibling path drops the first constraint. Its scope is popped and the
	// follow-up check sees only the new path condition.
	b.Rewind()
	require.NoError(t, b.Assert(glean.NewBinaryExpr(glean.GT, x, intc(5))))
	status, err = b.CheckSat()
	require.NoError(t, err)
	assert.Equal(t, glean.Sat, status)
	assert.Equal(t, 1, s.Scopes())
	assert.Equal(t, 1, b.Stats().Pops)

	// CheckWith leaves no trace on the solver.
	status, err = b.CheckWith(glean.NewBinaryExpr(glean.LT, x, intc(0)))
	require.NoError(t, err)
	assert.Equal(t, glean.Unsat, status)
	status, err = b.CheckSat()
	require.NoError(t, err)
	assert.Equal(t, glean.Sat, status)
	assert.Equal(t, 1, s.Scopes())
}

func TestBridge_SolverError(t *testing.T) {
	x := glean.NewVarExpr("x", glean.SortInt)

	t.Run("Assert", func(t *testing.T) {
		b := glean.NewBridge(&brokenSolver{Solver: MustOpenSolver(t)})
		err := b.Assert(glean.NewBinaryExpr(glean.GT, x, intc(0)))
		assert.ErrorIs(t, err, errBrokenAssert)
		assert.ErrorIs(t, err, errBrokenPop)
		assert.Empty(t, b.PathCondition())
	})

	t.Run("CheckWith", func(t *testing.T) {
		b := glean.NewBridge(&brokenSolver{Solver: MustOpenSolver(t)})
		status, err := b.CheckWith(glean.NewBinaryExpr(glean.GT, x, intc(0)))
		assert.Equal(t, glean.Unknown, status)
		assert.ErrorIs(t, err, errBrokenAssert)
		assert.ErrorIs(t, err, errBrokenPop)
	})
}

var (
	errBrokenAssert = errors.New("assert failed")
	errBrokenPop    = errors.New("pop failed")
)

// brokenSolver fails every assertion & every pop.
type brokenSolver struct {
	*z3.Solver
}

func (s *brokenSolver) Assert(glean.Expr) error { return errBrokenAssert }
func (s *brokenSolver) Pop(int) error           { return errBrokenPop }

func TestStateSpace_Bubble(t *testing.T) {
	t.Run("ReplayAbort", func(t *testing.T) {
		tree, b := glean.NewSearchTree(), glean.NewBridge(MustOpenSolver(t))
		config := glean.StateSpaceConfig{Logger: zerolog.Nop()}

		space := glean.NewStateSpace(tree, b, config)
		x := space.NewVar("x", glean.SortInt)
		_, err := space.Choose(glean.NewBinaryExpr(glean.GT, x, intc(0)))
		require.NoError(t, err)
		_, exhausted := space.Bubble(glean.PathResult{Status: glean.StatusConfirmed})
		require.False(t, exhausted)

		// The replay diverges at the recorded decision. The unexplored side
		// of that decision must stay open.
		space = glean.NewStateSpace(tree, b, config)
		x = space.NewVar("x", glean.SortInt)
		_, err = space.Choose(glean.NewBinaryExpr(glean.GT, x, intc(5)))
		require.ErrorIs(t, err, glean.ErrNotDeterministic)
		_, exhausted = space.Bubble(glean.PathResult{Status: glean.StatusUnknown})
		assert.False(t, exhausted)
		assert.False(t, tree.Exhausted())

		space = glean.NewStateSpace(tree, b, config)
		x = space.NewVar("x", glean.SortInt)
		_, err = space.Choose(glean.NewBinaryExpr(glean.GT, x, intc(0)))
		require.NoError(t, err)
		_, exhausted = space.Bubble(glean.PathResult{Status: glean.StatusConfirmed})
		assert.True(t, exhausted)
		assert.True(t, tree.Exhausted())
		assert.Equal(t, glean.PathStats{Confirmed: 2}, tree.Stats())
	})

	t.Run("Realizations", func(t *testing.T) {
		tree, b := glean.NewSearchTree(), glean.NewBridge(MustOpenSolver(t))
		config := glean.StateSpaceConfig{Logger: zerolog.Nop()}

		// x has a single value so both paths share one realization.
		for i := 0; i < 2; i++ {
			space := glean.NewStateSpace(tree, b, config)
			x := space.NewVar("x", glean.SortInt)
			require.NoError(t, space.Assume(glean.NewBinaryExpr(glean.EQ, x, intc(4))))
			v, err := space.Realize(x)
			require.NoError(t, err)
			require.Equal(t, "4", v.String())
			_, err = space.Fork("b")
			require.NoError(t, err)
			space.Bubble(glean.PathResult{Status: glean.StatusConfirmed})
		}

		require.True(t, tree.Exhausted())
		assert.Equal(t, glean.PathStats{Confirmed: 2, Realizations: 1}, tree.Stats())
	})
}

func TestStateSpace_Realize(t *testing.T) {
	b := glean.NewBridge(MustOpenSolver(t))
	space := glean.NewStateSpace(glean.NewSearchTree(), b, glean.StateSpaceConfig{Logger: zerolog.Nop()})

	x := space.NewVar("x", glean.SortInt)
	require.NoError(t, space.Assume(glean.NewAndExpr(
		glean.NewBinaryExpr(glean.GT, x, intc(3)),
		glean.NewBinaryExpr(glean.LT, x, intc(5)),
	)))

	v, err := space.Realize(x)
	require.NoError(t, err)
	assert.Equal(t, "4", v.String())

	n := space.Choices()
	other, err := space.Realize(x)
	require.NoError(t, err)
	assert.Same(t, v, other)
	assert.Equal(t, n, space.Choices())
	assert.Nil(t, space.Aborted())
}

func TestPool_Run(t *testing.T) {
	opt := glean.DefaultOptions()
	opt.Workers = 2

	newTarget := func(name string) glean.Target {
		t := branchTarget()
		t.Name = name
		return t
	}

	t.Run("OK", func(t *testing.T) {
		p := glean.NewPool(func() (glean.Solver, error) { return z3.NewSolver(), nil }, opt)
		results, err := p.Run(context.Background(), []glean.Target{newTarget("t10"), newTarget("t2"), newTarget("t1")})
		require.NoError(t, err)
		require.Len(t, results, 3)

		var names []string
		for _, r := range results {
			require.NoError(t, r.Err)
			assert.Equal(t, glean.Safe, r.Result.Outcome, r.Result.Reason)
			names = append(names, r.Target)
		}
		assert.Equal(t, []string{"t1", "t2", "t10"}, names)

		r, ok := p.Result("t2")
		require.True(t, ok)
		assert.Equal(t, "t2", r.Result.Target)
		assert.Equal(t, 3, p.Len())
	})

	t.Run("DuplicateName", func(t *testing.T) {
		p := glean.NewPool(func() (glean.Solver, error) { return z3.NewSolver(), nil }, opt)
		_, err := p.Run(context.Background(), []glean.Target{newTarget("a"), newTarget("a")})
		assert.EqualError(t, err, `duplicate target name: "a"`)
	})
}

// MustAnalyze analyzes t with a fresh solver. fn may adjust the analyzer.
func MustAnalyze(tb testing.TB, t glean.Target, fn func(*glean.Analyzer)) *glean.Result {
	tb.Helper()
	a := glean.NewAnalyzer(MustOpenSolver(tb))
	a.Budget.MaxDuration = 20 * time.Second
	if fn != nil {
		fn(a)
	}
	res, err := a.Analyze(context.Background(), t)
	if err != nil {
		tb.Fatal(err)
	}
	return res
}

// branchTarget returns a target with exactly two paths.
func branchTarget() glean.Target {
	return glean.Target{
		Name: "positive",
		Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
			if ok, err := c.Cond(c.Gt(args[0], glean.NewInt(0))); err != nil {
				return nil, err
			} else if ok {
				return glean.NewInt(1), nil
			}
			return glean.NewInt(0), nil
		},
		Contract: glean.Contract{Params: []glean.Param{{Name: "x", Type: glean.IntSpec}}},
	}
}

func returnCmp(op glean.Op, v int64) func(*glean.Ctx, *glean.Call) (glean.Value, error) {
	return func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
		return c.Binary(op, call.Return, glean.NewInt(v))
	}
}

func argCmp(name string, op glean.Op, v int64) func(*glean.Ctx, *glean.Call) (glean.Value, error) {
	return func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
		return c.Binary(op, call.Arg(name), glean.NewInt(v))
	}
}
