package glean_test

import (
	"math"
	"math/big"
	"testing"

	"github.com/benbjohnson/glean"
	"github.com/google/go-cmp/cmp"
)

// exprComparer compares expressions structurally.
var exprComparer = cmp.Comparer(func(a, b glean.Expr) bool {
	return glean.CompareExpr(a, b) == 0
})

func intc(v int64) *glean.ConstantExpr     { return glean.NewIntConstantExpr(v) }
func floatc(v float64) *glean.ConstantExpr { return glean.NewFloatConstantExpr(v) }
func boolc(v bool) *glean.ConstantExpr     { return glean.NewBoolConstantExpr(v) }

// MustExprString fails if the string form of expr is not exp.
func MustExprString(tb testing.TB, expr glean.Expr, exp string) {
	tb.Helper()
	if got := expr.String(); got != exp {
		tb.Fatalf("unexpected expr: got %s, expected %s", got, exp)
	}
}

func TestExprSort(t *testing.T) {
	x := glean.NewVarExpr("x", glean.SortInt)
	f := glean.NewVarExpr("f", glean.SortFloat)

	t.Run("ConstantExpr", func(t *testing.T) {
		if s := glean.ExprSort(floatc(1)); s != glean.SortFloat {
			t.Fatalf("unexpected sort: %s", s)
		}
	})
	t.Run("SelectExpr", func(t *testing.T) {
		if s := glean.ExprSort(glean.NewSelectExpr(glean.NewArray(0, glean.SortBool), intc(1))); s != glean.SortBool {
			t.Fatalf("unexpected sort: %s", s)
		}
	})
	t.Run("Arithmetic", func(t *testing.T) {
		if s := glean.ExprSort(&glean.BinaryExpr{Op: glean.ADD, LHS: intc(1), RHS: x}); s != glean.SortInt {
			t.Fatalf("unexpected sort: %s", s)
		}
	})
	t.Run("Compare", func(t *testing.T) {
		if s := glean.ExprSort(&glean.BinaryExpr{Op: glean.LT, LHS: intc(1), RHS: x}); s != glean.SortBool {
			t.Fatalf("unexpected sort: %s", s)
		}
	})
	t.Run("Predicate", func(t *testing.T) {
		if s := glean.ExprSort(&glean.UnaryExpr{Op: glean.ISNAN, Expr: f}); s != glean.SortBool {
			t.Fatalf("unexpected sort: %s", s)
		}
	})
	t.Run("CastExpr", func(t *testing.T) {
		if s := glean.ExprSort(glean.NewCastExpr(x, glean.SortReal)); s != glean.SortReal {
			t.Fatalf("unexpected sort: %s", s)
		}
	})
	t.Run("IteExpr", func(t *testing.T) {
		b := glean.NewVarExpr("b", glean.SortBool)
		if s := glean.ExprSort(glean.NewIteExpr(b, f, floatc(0))); s != glean.SortFloat {
			t.Fatalf("unexpected sort: %s", s)
		}
	})
}

func TestSort_String(t *testing.T) {
	if s := glean.SortReal.String(); s != "real" {
		t.Fatalf("unexpected string: %s", s)
	} else if s := glean.Sort(100).String(); s != "Sort<100>" {
		t.Fatalf("unexpected string: %s", s)
	}
}

func TestBinaryOp_String(t *testing.T) {
	t.Run("Known", func(t *testing.T) {
		if s := glean.FLOORDIV.String(); s != "floordiv" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("Unknown", func(t *testing.T) {
		if s := glean.BinaryOp(1000).String(); s != "BinaryOp<1000>" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

func TestBinaryOp_IsArithmetic(t *testing.T) {
	if !glean.MOD.IsArithmetic() {
		t.Fatal("expected true")
	} else if glean.AND.IsArithmetic() {
		t.Fatal("expected false")
	}
}

func TestBinaryOp_IsLogical(t *testing.T) {
	if !glean.XOR.IsLogical() {
		t.Fatal("expected true")
	} else if glean.EQ.IsLogical() {
		t.Fatal("expected false")
	}
}

func TestBinaryOp_IsCompare(t *testing.T) {
	if !glean.GE.IsCompare() {
		t.Fatal("expected true")
	} else if glean.ADD.IsCompare() {
		t.Fatal("expected false")
	}
}

func TestBinaryExpr_String(t *testing.T) {
	expr := &glean.BinaryExpr{Op: glean.ADD, LHS: intc(1), RHS: glean.NewVarExpr("x", glean.SortInt)}
	MustExprString(t, expr, "(add 1 x)")
}

func TestNewBinaryExpr_ADD(t *testing.T) {
	x := glean.NewVarExpr("x", glean.SortInt)

	t.Run("Constant", func(t *testing.T) {
		if diff := cmp.Diff(intc(10), glean.NewBinaryExpr(glean.ADD, intc(6), intc(4)), exprComparer); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("ConstantLHSZero", func(t *testing.T) {
		if diff := cmp.Diff(glean.Expr(x), glean.NewBinaryExpr(glean.ADD, intc(0), x), exprComparer); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("ConstantRHS", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.ADD, x, intc(5)), "(add 5 x)")
	})
	t.Run("FloatZero", func(t *testing.T) {
		f := glean.NewVarExpr("f", glean.SortFloat)
		MustExprString(t, glean.NewBinaryExpr(glean.ADD, floatc(0), f), "(add 0.0 f)")
	})
	t.Run("Associative", func(t *testing.T) {
		t.Run("ConstantLHS", func(t *testing.T) {
			inner := glean.NewBinaryExpr(glean.ADD, intc(3), x)
			MustExprString(t, glean.NewBinaryExpr(glean.ADD, intc(4), inner), "(add 7 x)")
		})
		t.Run("ConstantLHSSub", func(t *testing.T) {
			inner := glean.NewBinaryExpr(glean.SUB, intc(3), x)
			MustExprString(t, glean.NewBinaryExpr(glean.ADD, intc(4), inner), "(sub 7 x)")
		})
		t.Run("FloatUnchanged", func(t *testing.T) {
			f := glean.NewVarExpr("f", glean.SortFloat)
			inner := glean.NewBinaryExpr(glean.ADD, floatc(3), f)
			MustExprString(t, glean.NewBinaryExpr(glean.ADD, floatc(4), inner), "(add 4.0 (add 3.0 f))")
		})
	})
}

func TestNewBinaryExpr_SUB(t *testing.T) {
	x := glean.NewVarExpr("x", glean.SortInt)

	t.Run("Constant", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.SUB, intc(4), intc(10)), "-6")
	})
	t.Run("Self", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.SUB, x, x), "0")
	})
	t.Run("FloatSelf", func(t *testing.T) {
		f := glean.NewVarExpr("f", glean.SortFloat)
		MustExprString(t, glean.NewBinaryExpr(glean.SUB, f, f), "(sub f f)")
	})
	t.Run("ConstantRHS", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.SUB, x, intc(3)), "(add -3 x)")
	})
}

func TestNewBinaryExpr_MUL(t *testing.T) {
	x := glean.NewVarExpr("x", glean.SortInt)

	t.Run("One", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.MUL, x, intc(1)), "x")
	})
	t.Run("Zero", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.MUL, intc(0), x), "0")
	})
	t.Run("FloatZero", func(t *testing.T) {
		f := glean.NewVarExpr("f", glean.SortFloat)
		MustExprString(t, glean.NewBinaryExpr(glean.MUL, floatc(0), f), "(mul 0.0 f)")
	})
	t.Run("ConstantRHS", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.MUL, x, intc(3)), "(mul 3 x)")
	})
}

func TestNewBinaryExpr_FLOORDIV(t *testing.T) {
	x := glean.NewVarExpr("x", glean.SortInt)

	for _, tt := range []struct {
		x, y, q, m int64
	}{
		{7, 2, 3, 1},
		{-7, 2, -4, 1},
		{7, -2, -4, -1},
		{-7, -2, 3, -1},
		{6, 3, 2, 0},
	} {
		if q := glean.NewBinaryExpr(glean.FLOORDIV, intc(tt.x), intc(tt.y)); q.String() != intc(tt.q).String() {
			t.Fatalf("%d // %d: unexpected quotient: %s", tt.x, tt.y, q)
		} else if m := glean.NewBinaryExpr(glean.MOD, intc(tt.x), intc(tt.y)); m.String() != intc(tt.m).String() {
			t.Fatalf("%d %% %d: unexpected modulo: %s", tt.x, tt.y, m)
		}
	}

	t.Run("ByZero", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.FLOORDIV, intc(7), intc(0)), "(floordiv 7 0)")
	})
	t.Run("ByOne", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.FLOORDIV, x, intc(1)), "x")
		MustExprString(t, glean.NewBinaryExpr(glean.MOD, x, intc(1)), "0")
	})
}

func TestNewBinaryExpr_DIV(t *testing.T) {
	r := glean.NewVarExpr("r", glean.SortReal)
	one := glean.NewRealConstantExpr(big.NewRat(1, 1))

	t.Run("Constant", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.DIV, glean.NewRealConstantExpr(big.NewRat(1, 1)), glean.NewRealConstantExpr(big.NewRat(3, 1))), "1/3")
	})
	t.Run("ByOne", func(t *testing.T) {
		if diff := cmp.Diff(glean.Expr(r), glean.NewBinaryExpr(glean.DIV, r, one), exprComparer); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("ByZero", func(t *testing.T) {
		zero := glean.NewRealConstantExpr(new(big.Rat))
		if _, ok := glean.NewBinaryExpr(glean.DIV, one, zero).(*glean.BinaryExpr); !ok {
			t.Fatal("expected division by zero to stay symbolic")
		}
	})
}

func TestNewBinaryExpr_Logical(t *testing.T) {
	b := glean.NewVarExpr("b", glean.SortBool)
	c := glean.NewVarExpr("c", glean.SortBool)

	t.Run("AND", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.AND, boolc(true), b), "b")
		MustExprString(t, glean.NewBinaryExpr(glean.AND, b, boolc(false)), "false")
		MustExprString(t, glean.NewBinaryExpr(glean.AND, b, b), "b")
		MustExprString(t, glean.NewBinaryExpr(glean.AND, b, c), "(and b c)")
	})
	t.Run("OR", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.OR, b, boolc(true)), "true")
		MustExprString(t, glean.NewBinaryExpr(glean.OR, boolc(false), b), "b")
	})
	t.Run("XOR", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.XOR, b, b), "false")
		MustExprString(t, glean.NewBinaryExpr(glean.XOR, boolc(true), b), "(not b)")
		MustExprString(t, glean.NewBinaryExpr(glean.XOR, boolc(false), b), "b")
	})
	t.Run("NewAndExpr", func(t *testing.T) {
		MustExprString(t, glean.NewAndExpr(), "true")
		MustExprString(t, glean.NewAndExpr(b, c), "(and b c)")
	})
	t.Run("NewOrExpr", func(t *testing.T) {
		MustExprString(t, glean.NewOrExpr(), "false")
		MustExprString(t, glean.NewOrExpr(b, boolc(true)), "true")
	})
}

func TestNewBinaryExpr_Compare(t *testing.T) {
	x := glean.NewVarExpr("x", glean.SortInt)
	f := glean.NewVarExpr("f", glean.SortFloat)
	b := glean.NewVarExpr("b", glean.SortBool)

	t.Run("EQ", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.EQ, intc(3), intc(3)), "true")
		MustExprString(t, glean.NewBinaryExpr(glean.EQ, x, x), "true")
		MustExprString(t, glean.NewBinaryExpr(glean.EQ, x, intc(3)), "(eq 3 x)")
	})
	t.Run("FloatSelf", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.EQ, f, f), "(eq f f)")
	})
	t.Run("NaN", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.EQ, floatc(math.NaN()), floatc(math.NaN())), "false")
	})
	t.Run("Bool", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.EQ, b, boolc(true)), "b")
		MustExprString(t, glean.NewBinaryExpr(glean.EQ, boolc(false), b), "(not b)")
	})
	t.Run("NE", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.NE, x, intc(1)), "(not (eq 1 x))")
	})
	t.Run("LT", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.LT, intc(2), intc(3)), "true")
		MustExprString(t, glean.NewBinaryExpr(glean.LT, x, x), "false")
		MustExprString(t, glean.NewBinaryExpr(glean.LT, f, f), "(lt f f)")
	})
	t.Run("GT", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.GT, x, intc(3)), "(lt 3 x)")
	})
	t.Run("LE", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.LE, x, x), "true")
	})
	t.Run("GE", func(t *testing.T) {
		MustExprString(t, glean.NewBinaryExpr(glean.GE, x, intc(0)), "(le 0 x)")
	})
}

func TestNewUnaryExpr(t *testing.T) {
	x := glean.NewVarExpr("x", glean.SortInt)
	f := glean.NewVarExpr("f", glean.SortFloat)

	t.Run("Constant", func(t *testing.T) {
		MustExprString(t, glean.NewUnaryExpr(glean.NEG, intc(5)), "-5")
		MustExprString(t, glean.NewUnaryExpr(glean.ABS, intc(-5)), "5")
		MustExprString(t, glean.NewUnaryExpr(glean.ISNAN, floatc(math.NaN())), "true")
		MustExprString(t, glean.NewUnaryExpr(glean.ISINF, floatc(1)), "false")
	})
	t.Run("DoubleNegation", func(t *testing.T) {
		MustExprString(t, glean.NewUnaryExpr(glean.NEG, glean.NewUnaryExpr(glean.NEG, f)), "f")
	})
	t.Run("IntPredicate", func(t *testing.T) {
		MustExprString(t, glean.NewUnaryExpr(glean.ISNAN, x), "false")
	})
	t.Run("Symbolic", func(t *testing.T) {
		MustExprString(t, glean.NewUnaryExpr(glean.ABS, x), "(abs x)")
	})
}

func TestNewNotExpr(t *testing.T) {
	b := glean.NewVarExpr("b", glean.SortBool)
	MustExprString(t, glean.NewNotExpr(boolc(true)), "false")
	MustExprString(t, glean.NewNotExpr(glean.NewNotExpr(b)), "b")
	MustExprString(t, glean.NewNotExpr(b), "(not b)")
}

func TestNewIteExpr(t *testing.T) {
	b := glean.NewVarExpr("b", glean.SortBool)
	x := glean.NewVarExpr("x", glean.SortInt)

	t.Run("ConstantCond", func(t *testing.T) {
		MustExprString(t, glean.NewIteExpr(boolc(false), x, intc(1)), "1")
	})
	t.Run("SameBranches", func(t *testing.T) {
		MustExprString(t, glean.NewIteExpr(b, x, x), "x")
	})
	t.Run("BoolBranches", func(t *testing.T) {
		MustExprString(t, glean.NewIteExpr(b, boolc(true), boolc(false)), "b")
		MustExprString(t, glean.NewIteExpr(b, boolc(false), boolc(true)), "(not b)")
	})
	t.Run("NegatedCond", func(t *testing.T) {
		MustExprString(t, glean.NewIteExpr(glean.NewNotExpr(b), x, intc(1)), "(ite b 1 x)")
	})
}

func TestNewCastExpr(t *testing.T) {
	x := glean.NewVarExpr("x", glean.SortInt)
	b := glean.NewVarExpr("b", glean.SortBool)

	t.Run("SameSort", func(t *testing.T) {
		MustExprString(t, glean.NewCastExpr(x, glean.SortInt), "x")
	})
	t.Run("Constant", func(t *testing.T) {
		MustExprString(t, glean.NewCastExpr(intc(3), glean.SortFloat), "3.0")
		MustExprString(t, glean.NewCastExpr(boolc(true), glean.SortInt), "1")
		MustExprString(t, glean.NewCastExpr(floatc(-2.5), glean.SortInt), "-2")
		MustExprString(t, glean.NewCastExpr(glean.NewRealConstantExpr(big.NewRat(-5, 2)), glean.SortInt), "-3")
	})
	t.Run("Symbolic", func(t *testing.T) {
		MustExprString(t, glean.NewCastExpr(b, glean.SortInt), "(to_int b)")
	})
	t.Run("NonFinite", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic")
			}
		}()
		glean.NewCastExpr(floatc(math.Inf(1)), glean.SortInt)
	})
}

func TestConstantExpr_String(t *testing.T) {
	MustExprString(t, floatc(math.Inf(-1)), "-inf")
	MustExprString(t, floatc(1e300), "1e+300")
	MustExprString(t, glean.NewRealConstantExpr(big.NewRat(1, 3)), "1/3")
	MustExprString(t, glean.NewBigIntConstantExpr(new(big.Int).Lsh(big.NewInt(1), 70)), "1180591620717411303424")
}

func TestConstantExpr_IsZero(t *testing.T) {
	if !floatc(math.Copysign(0, -1)).IsZero() {
		t.Fatal("expected negative zero to be zero")
	} else if intc(1).IsZero() {
		t.Fatal("expected false")
	} else if !boolc(false).IsZero() {
		t.Fatal("expected false to be zero")
	}
}

func TestIsConstantTrue(t *testing.T) {
	if !glean.IsConstantTrue(boolc(true)) {
		t.Fatal("expected true")
	} else if glean.IsConstantTrue(glean.NewVarExpr("b", glean.SortBool)) {
		t.Fatal("expected false")
	}
}

func TestIsConstantFalse(t *testing.T) {
	if !glean.IsConstantFalse(boolc(false)) {
		t.Fatal("expected true")
	} else if glean.IsConstantFalse(intc(0)) {
		t.Fatal("expected false")
	}
}

func TestCompareExpr(t *testing.T) {
	x := glean.NewVarExpr("x", glean.SortInt)
	y := glean.NewVarExpr("y", glean.SortInt)

	if glean.CompareExpr(x, glean.NewVarExpr("x", glean.SortInt)) != 0 {
		t.Fatal("expected equal vars")
	} else if glean.CompareExpr(x, y) != -1 || glean.CompareExpr(y, x) != 1 {
		t.Fatal("expected vars ordered by name")
	} else if glean.CompareExpr(intc(1), intc(2)) != -1 {
		t.Fatal("expected constants ordered by value")
	}
}

func TestFindVars(t *testing.T) {
	x := glean.NewVarExpr("x", glean.SortInt)
	y := glean.NewVarExpr("y", glean.SortInt)
	a := glean.NewArray(1, glean.SortInt)

	expr := glean.NewBinaryExpr(glean.LT, glean.NewBinaryExpr(glean.ADD, y, x), glean.NewSelectExpr(a, x))
	if diff := cmp.Diff([]*glean.VarExpr{x, y}, glean.FindVars(expr)); diff != "" {
		t.Fatal(diff)
	} else if arrays := glean.FindArrays(expr); len(arrays) != 1 || arrays[0].ID != 1 {
		t.Fatalf("unexpected arrays: %v", arrays)
	}
}

func TestExprEvaluator_Evaluate(t *testing.T) {
	x := glean.NewVarExpr("x", glean.SortInt)
	a := glean.NewArray(1, glean.SortInt)

	ee := glean.NewExprEvaluator(
		map[string]*glean.ConstantExpr{"x": intc(-7)},
		map[uint64]glean.ArrayValue{1: {Default: intc(0), Entries: map[string]*glean.ConstantExpr{"2": intc(9)}}},
	)

	t.Run("Arithmetic", func(t *testing.T) {
		if v, err := ee.Evaluate(glean.NewBinaryExpr(glean.FLOORDIV, x, intc(2))); err != nil {
			t.Fatal(err)
		} else if got, exp := v.String(), "-4"; got != exp {
			t.Fatalf("got %s, expected %s", got, exp)
		}
	})
	t.Run("Select", func(t *testing.T) {
		if v, err := ee.Evaluate(glean.NewSelectExpr(a, intc(2))); err != nil {
			t.Fatal(err)
		} else if got, exp := v.String(), "9"; got != exp {
			t.Fatalf("got %s, expected %s", got, exp)
		} else if v, err := ee.Evaluate(glean.NewSelectExpr(a, intc(3))); err != nil {
			t.Fatal(err)
		} else if got, exp := v.String(), "0"; got != exp {
			t.Fatalf("got %s, expected %s", got, exp)
		}
	})
	t.Run("Store", func(t *testing.T) {
		b := a.Store(x, intc(5))
		if v, err := ee.Evaluate(glean.NewSelectExpr(b, intc(-7))); err != nil {
			t.Fatal(err)
		} else if got, exp := v.String(), "5"; got != exp {
			t.Fatalf("got %s, expected %s", got, exp)
		}
	})
	t.Run("DivisionByZero", func(t *testing.T) {
		if _, err := ee.Evaluate(&glean.BinaryExpr{Op: glean.MOD, LHS: x, RHS: intc(0)}); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("Unbound", func(t *testing.T) {
		if _, err := ee.Evaluate(glean.NewVarExpr("y", glean.SortInt)); err == nil || err.Error() != "variable not bound: y" {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestNewSameValueExpr(t *testing.T) {
	f := glean.NewVarExpr("f", glean.SortFloat)

	t.Run("NaN", func(t *testing.T) {
		MustExprString(t, glean.NewSameValueExpr(f, floatc(math.NaN())), "(isnan f)")
	})
	t.Run("NegativeZero", func(t *testing.T) {
		MustExprString(t, glean.NewSameValueExpr(f, floatc(math.Copysign(0, -1))), "(and (eq -0.0 f) (lt (div 1.0 f) 0.0))")
	})
	t.Run("Int", func(t *testing.T) {
		MustExprString(t, glean.NewSameValueExpr(glean.NewVarExpr("x", glean.SortInt), intc(4)), "(eq 4 x)")
	})
}
