package glean_test

import (
	"testing"

	"github.com/benbjohnson/glean"
)

func TestArray(t *testing.T) {
	t.Run("Concrete", func(t *testing.T) {
		t.Run("Int", func(t *testing.T) {
			a := glean.NewArray(0, glean.SortInt)
			a = a.Store(intc(3), intc(100))
			if expr, ok := a.Select(intc(3)).(*glean.ConstantExpr); !ok {
				t.Fatal("expected constant expr")
			} else if expr.Int.Int64() != 100 {
				t.Fatal("unexpected value")
			}
		})

		t.Run("Overwrite", func(t *testing.T) {
			a := glean.NewArray(0, glean.SortBool)
			a = a.Store(intc(0), boolc(true))
			a = a.Store(intc(0), boolc(false))
			if !glean.IsConstantFalse(a.Select(intc(0))) {
				t.Fatal("expected false")
			} else if a.Updates.Next != nil {
				t.Fatal("expected earlier write to be dropped")
			}
		})

		t.Run("Immutable", func(t *testing.T) {
			a := glean.NewArray(0, glean.SortInt)
			b := a.Store(intc(1), intc(2))
			if a.Updates != nil {
				t.Fatal("expected original array to be unchanged")
			}
			if got, exp := b.String(), "(store arr0 1 2)"; got != exp {
				t.Fatalf("got %s, expected %s", got, exp)
			}
		})

		t.Run("Unwritten", func(t *testing.T) {
			a := glean.NewArray(2, glean.SortFloat).Store(intc(1), floatc(0.5))
			MustExprString(t, a.Select(intc(0)), "(select (store arr2 1 0.5) 0)")
		})
	})

	t.Run("Symbolic", func(t *testing.T) {
		x := glean.NewVarExpr("x", glean.SortInt)

		t.Run("Empty", func(t *testing.T) {
			a := glean.NewArray(0, glean.SortInt)
			MustExprString(t, a.Select(x), "(select arr0 x)")
		})

		t.Run("SymbolicIndex", func(t *testing.T) {
			a := glean.NewArray(0, glean.SortInt).Store(intc(1), intc(2))
			MustExprString(t, a.Select(x), "(select (store arr0 1 2) x)")
		})

		t.Run("SameSymbolicIndex", func(t *testing.T) {
			a := glean.NewArray(0, glean.SortInt).Store(x, intc(2))
			MustExprString(t, a.Select(x), "2")
		})

		t.Run("SymbolicUpdate", func(t *testing.T) {
			a := glean.NewArray(0, glean.SortInt)
			a = a.Store(intc(0), intc(7))
			a = a.Store(x, intc(8))
			MustExprString(t, a.Select(intc(0)), "(select (store (store arr0 x 8) 0 7) 0)")
		})
	})

	t.Run("SortMismatch", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic")
			}
		}()
		glean.NewArray(0, glean.SortInt).Store(intc(0), boolc(true))
	})
}

func TestCompareArray(t *testing.T) {
	a := glean.NewArray(0, glean.SortInt)
	b := glean.NewArray(1, glean.SortInt)

	if glean.CompareArray(a, a.Clone()) != 0 {
		t.Fatal("expected clone to be equal")
	} else if glean.CompareArray(a, b) != -1 {
		t.Fatal("expected lower id first")
	} else if glean.CompareArray(nil, a) != -1 {
		t.Fatal("expected nil first")
	} else if glean.CompareArray(a.Store(intc(0), intc(1)), a.Store(intc(0), intc(2))) != -1 {
		t.Fatal("expected updates to be compared")
	}
}
