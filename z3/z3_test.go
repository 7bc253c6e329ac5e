package z3_test

import (
	"math"
	"math/big"
	"testing"

	"github.com/benbjohnson/glean"
	"github.com/benbjohnson/glean/z3"
)

func intc(v int64) *glean.ConstantExpr     { return glean.NewIntConstantExpr(v) }
func floatc(v float64) *glean.ConstantExpr { return glean.NewFloatConstantExpr(v) }

func TestSolver_Check(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		t.Run("True", func(t *testing.T) {
			s := MustOpenSolver(t)
			MustAssert(t, s, glean.NewBoolConstantExpr(true))
			if status, err := s.Check(); err != nil {
				t.Fatal(err)
			} else if status != glean.Sat {
				t.Fatalf("unexpected status: %s", status)
			}
		})
		t.Run("False", func(t *testing.T) {
			s := MustOpenSolver(t)
			MustAssert(t, s, glean.NewBoolConstantExpr(false))
			if status, err := s.Check(); err != nil {
				t.Fatal(err)
			} else if status != glean.Unsat {
				t.Fatalf("unexpected status: %s", status)
			}
		})
	})

	t.Run("NonBool", func(t *testing.T) {
		s := MustOpenSolver(t)
		if err := s.Assert(intc(1)); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("Stats", func(t *testing.T) {
		s := MustOpenSolver(t)
		for i := 0; i < 3; i++ {
			if _, err := s.Check(); err != nil {
				t.Fatal(err)
			}
		}
		if got, exp := s.Stats().SolveN, 3; got != exp {
			t.Fatalf("SolveN=%d, expected %d", got, exp)
		}
	})
}

func TestSolver_Scopes(t *testing.T) {
	s := MustOpenSolver(t)
	x := glean.NewVarExpr("x", glean.SortInt)

	MustPush(t, s)
	MustAssert(t, s, glean.NewBinaryExpr(glean.GT, x, intc(0)))
	MustPush(t, s)
	MustAssert(t, s, glean.NewBinaryExpr(glean.LT, x, intc(0)))

	if status, err := s.Check(); err != nil {
		t.Fatal(err)
	} else if status != glean.Unsat {
		t.Fatalf("unexpected status: %s", status)
	} else if got, exp := s.Scopes(), 2; got != exp {
		t.Fatalf("Scopes()=%d, expected %d", got, exp)
	}

	if err := s.Pop(1); err != nil {
		t.Fatal(err)
	} else if status, err := s.Check(); err != nil {
		t.Fatal(err)
	} else if status != glean.Sat {
		t.Fatalf("unexpected status: %s", status)
	}

	if err := s.Pop(2); err == nil {
		t.Fatal("expected error popping more scopes than are open")
	} else if err := s.Pop(1); err != nil {
		t.Fatal(err)
	} else if got, exp := s.Scopes(), 0; got != exp {
		t.Fatalf("Scopes()=%d, expected %d", got, exp)
	}
}

func TestSolver_Interrupt(t *testing.T) {
	t.Run("Idle", func(t *testing.T) {
		s := MustOpenSolver(t)
		s.Interrupt()
	})

	t.Run("AfterClose", func(t *testing.T) {
		s := z3.NewSolver()
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
		s.Interrupt()
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
	})
}

func TestModel_Eval(t *testing.T) {
	t.Run("Int", func(t *testing.T) {
		s := MustOpenSolver(t)
		x := glean.NewVarExpr("x", glean.SortInt)
		MustAssert(t, s, glean.NewBinaryExpr(glean.EQ, glean.NewBinaryExpr(glean.ADD, x, intc(1)), intc(5)))
		MustEvalString(t, s, x, "4")
	})

	t.Run("BigInt", func(t *testing.T) {
		s := MustOpenSolver(t)
		x := glean.NewVarExpr("x", glean.SortInt)
		n, _ := new(big.Int).SetString("100000000000000000000000", 10)
		MustAssert(t, s, glean.NewBinaryExpr(glean.GT, x, glean.NewBigIntConstantExpr(n)))
		MustAssert(t, s, glean.NewBinaryExpr(glean.LT, x, glean.NewBinaryExpr(glean.ADD, glean.NewBigIntConstantExpr(n), intc(2))))
		MustEvalString(t, s, x, "100000000000000000000001")
	})

	// Division rounds toward negative infinity & the remainder takes the
	// sign of the divisor.
	t.Run("FloorDiv", func(t *testing.T) {
		for _, tt := range []struct {
			x, y     int64
			div, mod string
		}{
			{7, 2, "3", "1"},
			{7, -2, "-4", "-1"},
			{-7, 2, "-4", "1"},
			{-7, -2, "3", "-1"},
			{-6, 3, "-2", "0"},
		} {
			s := MustOpenSolver(t)
			x := glean.NewVarExpr("x", glean.SortInt)
			y := glean.NewVarExpr("y", glean.SortInt)
			MustAssert(t, s, glean.NewBinaryExpr(glean.EQ, x, intc(tt.x)))
			MustAssert(t, s, glean.NewBinaryExpr(glean.EQ, y, intc(tt.y)))
			MustEvalString(t, s, glean.NewBinaryExpr(glean.FLOORDIV, x, y), tt.div)
			MustEvalString(t, s, glean.NewBinaryExpr(glean.MOD, x, y), tt.mod)
		}
	})

	t.Run("Real", func(t *testing.T) {
		s := MustOpenSolver(t)
		x := glean.NewVarExpr("x", glean.SortInt)
		half := glean.NewRealConstantExpr(big.NewRat(1, 2))
		MustAssert(t, s, glean.NewBinaryExpr(glean.EQ, glean.NewCastExpr(x, glean.SortReal), half))
		if status, err := s.Check(); err != nil {
			t.Fatal(err)
		} else if status != glean.Unsat {
			t.Fatalf("unexpected status: %s", status)
		}
	})

	t.Run("Float", func(t *testing.T) {
		t.Run("Mul", func(t *testing.T) {
			s := MustOpenSolver(t)
			f := glean.NewVarExpr("f", glean.SortFloat)
			MustAssert(t, s, glean.NewBinaryExpr(glean.EQ, glean.NewBinaryExpr(glean.MUL, f, floatc(2)), floatc(6)))
			MustEvalString(t, s, f, "3.0")
		})
		t.Run("NaN", func(t *testing.T) {
			s := MustOpenSolver(t)
			f := glean.NewVarExpr("f", glean.SortFloat)
			MustAssert(t, s, glean.NewUnaryExpr(glean.ISNAN, f))
			if v := MustEval(t, s, f); !math.IsNaN(v.Float) {
				t.Fatalf("expected NaN, got %s", v)
			}
		})
		t.Run("NaNNotEqual", func(t *testing.T) {
			s := MustOpenSolver(t)
			f := glean.NewVarExpr("f", glean.SortFloat)
			MustAssert(t, s, glean.NewUnaryExpr(glean.ISNAN, f))
			MustAssert(t, s, glean.NewBinaryExpr(glean.EQ, f, f))
			if status, err := s.Check(); err != nil {
				t.Fatal(err)
			} else if status != glean.Unsat {
				t.Fatalf("unexpected status: %s", status)
			}
		})
		t.Run("Inf", func(t *testing.T) {
			s := MustOpenSolver(t)
			f := glean.NewVarExpr("f", glean.SortFloat)
			MustAssert(t, s, glean.NewUnaryExpr(glean.ISINF, f))
			MustAssert(t, s, glean.NewBinaryExpr(glean.LT, f, floatc(0)))
			if v := MustEval(t, s, f); !math.IsInf(v.Float, -1) {
				t.Fatalf("expected -inf, got %s", v)
			}
		})
	})

	t.Run("Array", func(t *testing.T) {
		s := MustOpenSolver(t)
		x := glean.NewVarExpr("x", glean.SortInt)
		a := glean.NewArray(1, glean.SortInt).Store(intc(0), intc(7))
		MustAssert(t, s, glean.NewBinaryExpr(glean.EQ, a.Select(x), intc(9)))
		MustAssert(t, s, glean.NewBinaryExpr(glean.GT, x, intc(3)))
		MustAssert(t, s, glean.NewBinaryExpr(glean.LT, x, intc(5)))
		MustEvalString(t, s, x, "4")
		MustEvalString(t, s, a.Select(intc(0)), "7")
		MustEvalString(t, s, a.Select(intc(4)), "9")
	})

	t.Run("Ite", func(t *testing.T) {
		s := MustOpenSolver(t)
		b := glean.NewVarExpr("b", glean.SortBool)
		MustAssert(t, s, glean.NewBinaryExpr(glean.EQ, glean.NewIteExpr(b, intc(1), intc(2)), intc(2)))
		MustEvalString(t, s, b, "false")
	})

	t.Run("Released", func(t *testing.T) {
		s := MustOpenSolver(t)
		MustCheckSat(t, s)
		m, err := s.Model()
		if err != nil {
			t.Fatal(err)
		}
		MustPush(t, s)
		if _, err := m.Eval(intc(1)); err == nil {
			t.Fatal("expected error from released model")
		}
	})
}

// MustOpenSolver returns a new solver that is closed when tb completes.
func MustOpenSolver(tb testing.TB) *z3.Solver {
	tb.Helper()
	s := z3.NewSolver()
	tb.Cleanup(func() {
		if err := s.Close(); err != nil {
			tb.Fatal(err)
		}
	})
	return s
}

func MustAssert(tb testing.TB, s *z3.Solver, expr glean.Expr) {
	tb.Helper()
	if err := s.Assert(expr); err != nil {
		tb.Fatal(err)
	}
}

func MustPush(tb testing.TB, s *z3.Solver) {
	tb.Helper()
	if err := s.Push(); err != nil {
		tb.Fatal(err)
	}
}

func MustCheckSat(tb testing.TB, s *z3.Solver) {
	tb.Helper()
	if status, err := s.Check(); err != nil {
		tb.Fatal(err)
	} else if status != glean.Sat {
		tb.Fatalf("unexpected status: %s", status)
	}
}

// MustEval checks the solver & evaluates expr under the resulting model.
func MustEval(tb testing.TB, s *z3.Solver, expr glean.Expr) *glean.ConstantExpr {
	tb.Helper()
	MustCheckSat(tb, s)
	m, err := s.Model()
	if err != nil {
		tb.Fatal(err)
	}
	v, err := m.Eval(expr)
	if err != nil {
		tb.Fatal(err)
	}
	return v
}

func MustEvalString(tb testing.TB, s *z3.Solver, expr glean.Expr, exp string) {
	tb.Helper()
	if got := MustEval(tb, s, expr).String(); got != exp {
		tb.Fatalf("eval %s=%s, expected %s", expr, got, exp)
	}
}
