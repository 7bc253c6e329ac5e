package glean_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/benbjohnson/glean"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reprOf returns a function that formats the result of an operation with
// repr(). The operation must not fail.
func reprOf(tb testing.TB, c *glean.Ctx) func(glean.Value, error) string {
	return func(v glean.Value, err error) string {
		tb.Helper()
		require.NoError(tb, err)
		r, err := c.Repr(v)
		require.NoError(tb, err)
		return string(r.(glean.Str))
	}
}

// MustRaise fails if err is not an exception of kind with the message msg.
func MustRaise(tb testing.TB, kind *glean.ExceptionType, msg string, err error) {
	tb.Helper()
	e, ok := glean.AsException(err)
	require.True(tb, ok, "expected %s, got %v", kind, err)
	assert.Equal(tb, kind.Name, e.Kind.Name)
	assert.Equal(tb, msg, e.Msg)
}

func TestCtx_Arithmetic(t *testing.T) {
	c := glean.NewConcreteCtx()
	repr := reprOf(t, c)

	t.Run("Int", func(t *testing.T) {
		assert.Equal(t, "5", repr(c.Add(glean.NewInt(2), glean.NewInt(3))))
		assert.Equal(t, "-1", repr(c.Sub(glean.NewInt(2), glean.NewInt(3))))
		assert.Equal(t, "-4", repr(c.FloorDiv(glean.NewInt(7), glean.NewInt(-2))))
		assert.Equal(t, "-4", repr(c.FloorDiv(glean.NewInt(-7), glean.NewInt(2))))
		assert.Equal(t, "2", repr(c.Mod(glean.NewInt(-7), glean.NewInt(3))))
		assert.Equal(t, "-2", repr(c.Mod(glean.NewInt(7), glean.NewInt(-3))))
		assert.Equal(t, "3.5", repr(c.TrueDiv(glean.NewInt(7), glean.NewInt(2))))
		assert.Equal(t, "1024", repr(c.Pow(glean.NewInt(2), glean.NewInt(10))))
	})

	t.Run("BigInt", func(t *testing.T) {
		x := glean.MustParseInt("9223372036854775807")
		assert.Equal(t, "9223372036854775808", repr(c.Add(x, glean.NewInt(1))))
		assert.Equal(t, "85070591730234615847396907784232501249", repr(c.Mul(x, x)))
	})

	t.Run("Bool", func(t *testing.T) {
		assert.Equal(t, "2", repr(c.Add(glean.Bool(true), glean.Bool(true))))
	})

	t.Run("Float", func(t *testing.T) {
		assert.Equal(t, "0.30000000000000004", repr(c.Add(glean.Float(0.1), glean.Float(0.2))))
		assert.Equal(t, "3.0", repr(c.Add(glean.NewInt(1), glean.Float(2))))
		assert.Equal(t, "1e+16", repr(c.Mul(glean.Float(1e8), glean.Float(1e8))))
		assert.Equal(t, "1e-05", repr(c.TrueDiv(glean.Float(1), glean.NewInt(100000))))
		assert.Equal(t, "-3.0", repr(c.FloorDiv(glean.Float(-5), glean.NewInt(2))))
		assert.Equal(t, "inf", repr(c.Mul(glean.Float(math.Inf(1)), glean.NewInt(2))))
	})

	t.Run("ZeroDivision", func(t *testing.T) {
		_, err := c.FloorDiv(glean.NewInt(1), glean.NewInt(0))
		MustRaise(t, glean.ZeroDivisionError, "integer division or modulo by zero", err)

		_, err = c.Mod(glean.NewInt(1), glean.NewInt(0))
		MustRaise(t, glean.ZeroDivisionError, "integer modulo by zero", err)

		_, err = c.TrueDiv(glean.NewInt(1), glean.NewInt(0))
		MustRaise(t, glean.ZeroDivisionError, "division by zero", err)

		_, err = c.TrueDiv(glean.Float(1), glean.Float(0))
		MustRaise(t, glean.ZeroDivisionError, "float division by zero", err)
	})

	t.Run("Unary", func(t *testing.T) {
		assert.Equal(t, "-3", repr(c.Neg(glean.NewInt(3))))
		assert.Equal(t, "3", repr(c.Abs(glean.NewInt(-3))))
		assert.Equal(t, "2.5", repr(c.Abs(glean.Float(-2.5))))
	})

	t.Run("TypeError", func(t *testing.T) {
		_, err := c.Add(glean.Str("a"), glean.NewInt(1))
		MustRaise(t, glean.TypeError, `can only concatenate str (not "int") to str`, err)

		_, err = c.Add(glean.NewList(), glean.Str("a"))
		MustRaise(t, glean.TypeError, `can only concatenate list (not "str") to list`, err)
	})
}

func TestCtx_Compare(t *testing.T) {
	c := glean.NewConcreteCtx()
	repr := reprOf(t, c)
	nan := glean.Float(math.NaN())

	t.Run("NaN", func(t *testing.T) {
		for _, op := range []func(a, b glean.Value) (glean.Value, error){c.Eq, c.Lt, c.Le, c.Gt, c.Ge} {
			assert.Equal(t, "False", repr(op(nan, nan)))
			assert.Equal(t, "False", repr(op(nan, glean.NewInt(1))))
		}
		assert.Equal(t, "True", repr(c.Ne(nan, nan)))
	})

	t.Run("MixedNumeric", func(t *testing.T) {
		assert.Equal(t, "True", repr(c.Eq(glean.NewInt(1), glean.Float(1))))
		assert.Equal(t, "True", repr(c.Eq(glean.Bool(true), glean.NewInt(1))))
		assert.Equal(t, "True", repr(c.Lt(glean.NewInt(1), glean.Float(1.5))))
	})

	t.Run("DifferentTypes", func(t *testing.T) {
		assert.Equal(t, "False", repr(c.Eq(glean.Str("1"), glean.NewInt(1))))
		assert.Equal(t, "True", repr(c.Ne(glean.None, glean.NewInt(0))))
	})

	t.Run("Str", func(t *testing.T) {
		assert.Equal(t, "True", repr(c.Lt(glean.Str("ab"), glean.Str("b"))))
		assert.Equal(t, "False", repr(c.Ge(glean.Str(""), glean.Str("a"))))
	})

	t.Run("List", func(t *testing.T) {
		a := glean.NewList(glean.NewInt(1), glean.NewInt(2))
		b := glean.NewList(glean.NewInt(1), glean.NewInt(2))
		assert.Equal(t, "True", repr(c.Eq(a, b)))
		assert.False(t, c.Is(a, b))
		assert.True(t, c.Is(a, a))
	})
}

func TestCtx_Str(t *testing.T) {
	c := glean.NewConcreteCtx()
	repr := reprOf(t, c)

	t.Run("Repeat", func(t *testing.T) {
		assert.Equal(t, "'ababab'", repr(c.Mul(glean.Str("ab"), glean.NewInt(3))))
		assert.Equal(t, "''", repr(c.Mul(glean.Str("ab"), glean.NewInt(-1))))
	})

	t.Run("Repr", func(t *testing.T) {
		assert.Equal(t, `"it's"`, repr(glean.Str("it's"), nil))
		assert.Equal(t, `'a\nb'`, repr(glean.Str("a\nb"), nil))
		assert.Equal(t, `'\x00'`, repr(glean.Str("\x00"), nil))
	})

	t.Run("GetItem", func(t *testing.T) {
		s := glean.Str("héllo")
		assert.Equal(t, "'é'", repr(c.GetItem(s, glean.NewInt(1))))
		assert.Equal(t, "'o'", repr(c.GetItem(s, glean.NewInt(-1))))

		_, err := c.GetItem(s, glean.NewInt(5))
		MustRaise(t, glean.IndexError, "string index out of range", err)
	})

	t.Run("Slice", func(t *testing.T) {
		s := glean.Str("abcdef")
		assert.Equal(t, "'bcd'", repr(c.Slice(s, glean.NewInt(1), glean.NewInt(4), nil)))
		assert.Equal(t, "'fedcba'", repr(c.Slice(s, nil, nil, glean.NewInt(-1))))
		assert.Equal(t, "'ace'", repr(c.Slice(s, nil, nil, glean.NewInt(2))))
		assert.Equal(t, "''", repr(c.Slice(s, glean.NewInt(10), nil, nil)))
	})

	t.Run("Contains", func(t *testing.T) {
		assert.Equal(t, "True", repr(c.Contains(glean.Str("abc"), glean.Str("bc"))))
		assert.Equal(t, "True", repr(c.Contains(glean.Str("abc"), glean.Str(""))))

		_, err := c.Contains(glean.Str("abc"), glean.NewInt(1))
		MustRaise(t, glean.TypeError, "'in <string>' requires string as left operand, not int", err)
	})

	t.Run("Methods", func(t *testing.T) {
		s := glean.Str("  Hello World  ")
		assert.Equal(t, "'Hello World'", repr(c.CallMethod(s, "strip")))
		assert.Equal(t, "'  hello world  '", repr(c.CallMethod(s, "lower")))
		assert.Equal(t, "['a', 'b', '', 'c']", repr(c.CallMethod(glean.Str("a,b,,c"), "split", glean.Str(","))))
		assert.Equal(t, "['a', 'b']", repr(c.CallMethod(glean.Str(" a  b "), "split")))
		assert.Equal(t, "'a-b'", repr(c.CallMethod(glean.Str("-"), "join", glean.NewList(glean.Str("a"), glean.Str("b")))))
		assert.Equal(t, "2", repr(c.CallMethod(glean.Str("hello"), "find", glean.Str("l"))))
		assert.Equal(t, "-1", repr(c.CallMethod(glean.Str("hello"), "find", glean.Str("z"))))
		assert.Equal(t, "True", repr(c.CallMethod(glean.Str("hello"), "startswith", glean.Str("he"))))
		assert.Equal(t, "'hexxo'", repr(c.CallMethod(glean.Str("hello"), "replace", glean.Str("l"), glean.Str("x"))))
		assert.Equal(t, "True", repr(c.CallMethod(glean.Str("123"), "isdigit")))
		assert.Equal(t, "False", repr(c.CallMethod(glean.Str(""), "isdigit")))
		assert.Equal(t, "'007'", repr(c.CallMethod(glean.Str("7"), "zfill", glean.NewInt(3))))

		_, err := c.CallMethod(glean.Str("hello"), "index", glean.Str("z"))
		MustRaise(t, glean.ValueError, "substring not found", err)

		_, err = c.CallMethod(glean.Str("hello"), "frobnicate")
		MustRaise(t, glean.AttributeError, "'str' object has no attribute 'frobnicate'", err)
	})

	t.Run("Format", func(t *testing.T) {
		assert.Equal(t, "'x=1 y=2.50'", repr(c.Format("x={} y={:.2f}", glean.NewInt(1), glean.Float(2.5))))
		assert.Equal(t, "'a=5'", repr(c.Mod(glean.Str("a=%d"), glean.NewInt(5))))
	})
}

func TestCtx_List(t *testing.T) {
	c := glean.NewConcreteCtx()
	repr := reprOf(t, c)

	ints := func(vs ...int64) *glean.List {
		items := make([]glean.Value, len(vs))
		for i, v := range vs {
			items[i] = glean.NewInt(v)
		}
		return glean.NewList(items...)
	}

	t.Run("Add", func(t *testing.T) {
		assert.Equal(t, "[1, 2, 3]", repr(c.Add(ints(1), ints(2, 3))))
		assert.Equal(t, "[1, 1]", repr(c.Mul(ints(1), glean.NewInt(2))))
	})

	t.Run("GetItem", func(t *testing.T) {
		l := ints(10, 20, 30)
		assert.Equal(t, "30", repr(c.GetItem(l, glean.NewInt(-1))))

		_, err := c.GetItem(l, glean.NewInt(3))
		MustRaise(t, glean.IndexError, "list index out of range", err)

		_, err = c.GetItem(l, glean.Str("a"))
		MustRaise(t, glean.TypeError, "list indices must be integers or slices, not str", err)
	})

	t.Run("Slice", func(t *testing.T) {
		l := ints(1, 2, 3, 4)
		assert.Equal(t, "[2, 3]", repr(c.Slice(l, glean.NewInt(1), glean.NewInt(-1), nil)))
		assert.Equal(t, "[4, 2]", repr(c.Slice(l, nil, nil, glean.NewInt(-2))))

		_, err := c.Slice(l, nil, nil, glean.NewInt(0))
		MustRaise(t, glean.ValueError, "slice step cannot be zero", err)
	})

	t.Run("SetItem", func(t *testing.T) {
		l := ints(1, 2)
		require.NoError(t, c.SetItem(l, glean.NewInt(0), glean.NewInt(5)))
		assert.Equal(t, "[5, 2]", repr(l, nil))

		err := c.SetItem(l, glean.NewInt(2), glean.NewInt(0))
		MustRaise(t, glean.IndexError, "list assignment index out of range", err)

		require.NoError(t, c.DelItem(l, glean.NewInt(0)))
		assert.Equal(t, "[2]", repr(l, nil))
	})

	t.Run("Methods", func(t *testing.T) {
		l := ints(3, 1, 2)
		_, err := c.CallMethod(l, "append", glean.NewInt(0))
		require.NoError(t, err)
		assert.Equal(t, "[3, 1, 2, 0]", repr(l, nil))

		assert.Equal(t, "0", repr(c.CallMethod(l, "pop")))
		assert.Equal(t, "3", repr(c.CallMethod(l, "pop", glean.NewInt(0))))
		assert.Equal(t, "[1, 2]", repr(l, nil))

		_, err = c.CallMethod(l, "insert", glean.NewInt(0), glean.NewInt(9))
		require.NoError(t, err)
		_, err = c.CallMethod(l, "sort")
		require.NoError(t, err)
		assert.Equal(t, "[1, 2, 9]", repr(l, nil))

		_, err = c.CallMethod(l, "sort", glean.Bool(true))
		require.NoError(t, err)
		assert.Equal(t, "[9, 2, 1]", repr(l, nil))

		assert.Equal(t, "1", repr(c.CallMethod(l, "index", glean.NewInt(2))))

		_, err = c.CallMethod(glean.NewList(), "pop")
		MustRaise(t, glean.IndexError, "pop from empty list", err)
	})

	t.Run("Len", func(t *testing.T) {
		assert.Equal(t, "3", repr(c.Len(ints(1, 2, 3))))
		_, err := c.Len(glean.NewInt(1))
		MustRaise(t, glean.TypeError, "object of type 'int' has no len()", err)
	})

	t.Run("Truth", func(t *testing.T) {
		ok, err := c.Truth(glean.NewList())
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = c.Truth(ints(0))
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestCtx_Dict(t *testing.T) {
	c := glean.NewConcreteCtx()
	repr := reprOf(t, c)

	newDict := func() glean.Value {
		return glean.MustDict(glean.Str("a"), glean.NewInt(1), glean.Str("b"), glean.NewInt(2))
	}

	t.Run("Repr", func(t *testing.T) {
		assert.Equal(t, "{'a': 1, 'b': 2}", repr(newDict(), nil))
		assert.Equal(t, "{}", repr(c.NewDict(), nil))
	})

	t.Run("GetItem", func(t *testing.T) {
		d := newDict()
		assert.Equal(t, "2", repr(c.GetItem(d, glean.Str("b"))))

		_, err := c.GetItem(d, glean.Str("z"))
		MustRaise(t, glean.KeyError, "'z'", err)

		_, err = c.GetItem(d, glean.NewList())
		MustRaise(t, glean.TypeError, "unhashable type: 'list'", err)
	})

	t.Run("NumericKeys", func(t *testing.T) {
		d := c.NewDict()
		require.NoError(t, c.SetItem(d, glean.NewInt(1), glean.Str("int")))
		require.NoError(t, c.SetItem(d, glean.Float(1), glean.Str("float")))
		require.NoError(t, c.SetItem(d, glean.Bool(true), glean.Str("bool")))
		assert.Equal(t, "{1: 'bool'}", repr(d, nil))
	})

	t.Run("Methods", func(t *testing.T) {
		d := newDict()
		assert.Equal(t, "1", repr(c.CallMethod(d, "get", glean.Str("a"))))
		assert.Equal(t, "None", repr(c.CallMethod(d, "get", glean.Str("z"))))
		assert.Equal(t, "0", repr(c.CallMethod(d, "get", glean.Str("z"), glean.NewInt(0))))
		assert.Equal(t, "['a', 'b']", repr(c.CallMethod(d, "keys")))
		assert.Equal(t, "[['a', 1], ['b', 2]]", repr(c.CallMethod(d, "items")))

		assert.Equal(t, "1", repr(c.CallMethod(d, "pop", glean.Str("a"))))
		assert.Equal(t, "{'b': 2}", repr(d, nil))

		_, err := c.CallMethod(d, "pop", glean.Str("a"))
		MustRaise(t, glean.KeyError, "'a'", err)
	})

	t.Run("Contains", func(t *testing.T) {
		assert.Equal(t, "True", repr(c.Contains(newDict(), glean.Str("a"))))
		assert.Equal(t, "False", repr(c.Contains(newDict(), glean.NewInt(1))))
	})

	t.Run("Eq", func(t *testing.T) {
		a := glean.MustDict(glean.Str("a"), glean.NewInt(1), glean.Str("b"), glean.NewInt(2))
		b := glean.MustDict(glean.Str("b"), glean.NewInt(2), glean.Str("a"), glean.NewInt(1))
		assert.Equal(t, "True", repr(c.Eq(a, b)))
	})
}

func TestCtx_Set(t *testing.T) {
	c := glean.NewConcreteCtx()
	repr := reprOf(t, c)

	s, err := c.NewSet(glean.NewInt(2), glean.NewInt(1), glean.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, "{2, 1}", repr(s, nil))
	assert.Equal(t, "2", repr(c.Len(s)))
	assert.Equal(t, "True", repr(c.Contains(s, glean.Float(1))))

	_, err = c.CallMethod(s, "add", glean.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, "{2, 1, 3}", repr(s, nil))

	empty, err := c.NewSet()
	require.NoError(t, err)
	assert.Equal(t, "set()", repr(empty, nil))

	_, err = c.NewSet(glean.NewList())
	MustRaise(t, glean.TypeError, "unhashable type: 'list'", err)
}

func TestCtx_Builtins(t *testing.T) {
	c := glean.NewConcreteCtx()
	repr := reprOf(t, c)
	list := glean.NewList(glean.NewInt(3), glean.NewInt(1), glean.NewInt(2))

	t.Run("Sorted", func(t *testing.T) {
		assert.Equal(t, "[1, 2, 3]", repr(c.Sorted(list, nil, false)))
		assert.Equal(t, "[3, 2, 1]", repr(c.Sorted(list, nil, true)))
		assert.Equal(t, "[3, 1, 2]", repr(list, nil), "input must be unchanged")

		neg := func(c *glean.Ctx, item glean.Value) (glean.Value, error) { return c.Neg(item) }
		assert.Equal(t, "[3, 2, 1]", repr(c.Sorted(list, neg, false)))

		words := glean.NewList(glean.Str("bb"), glean.Str("a"), glean.Str("cc"))
		length := func(c *glean.Ctx, item glean.Value) (glean.Value, error) { return c.Len(item) }
		assert.Equal(t, "['a', 'bb', 'cc']", repr(c.Sorted(words, length, false)), "sort must be stable")
	})

	t.Run("MinMax", func(t *testing.T) {
		assert.Equal(t, "1", repr(c.Min(list)))
		assert.Equal(t, "3", repr(c.Max(list)))

		_, err := c.Min(glean.NewList())
		MustRaise(t, glean.ValueError, "min() arg is an empty sequence", err)
	})

	t.Run("Sum", func(t *testing.T) {
		assert.Equal(t, "6", repr(c.Sum(list, nil)))
		assert.Equal(t, "16", repr(c.Sum(list, glean.NewInt(10))))
		assert.Equal(t, "6.5", repr(c.Sum(list, glean.Float(0.5))))

		_, err := c.Sum(list, glean.Str(""))
		MustRaise(t, glean.TypeError, "sum() can't sum strings [use ''.join(seq) instead]", err)
	})

	t.Run("OrdChr", func(t *testing.T) {
		assert.Equal(t, "97", repr(c.Ord(glean.Str("a"))))
		assert.Equal(t, "'é'", repr(c.Chr(glean.NewInt(233))))

		_, err := c.Ord(glean.Str("ab"))
		MustRaise(t, glean.TypeError, "ord() expected a character, but string of length 2 found", err)

		_, err = c.Chr(glean.NewInt(-1))
		MustRaise(t, glean.ValueError, "chr() arg not in range(0x110000)", err)
	})

	t.Run("Int", func(t *testing.T) {
		assert.Equal(t, "42", repr(c.Int(glean.Str(" 42 "), nil)))
		assert.Equal(t, "-1000", repr(c.Int(glean.Str("-1_000"), nil)))
		assert.Equal(t, "255", repr(c.Int(glean.Str("ff"), glean.NewInt(16))))
		assert.Equal(t, "8", repr(c.Int(glean.Str("0o10"), glean.NewInt(0))))
		assert.Equal(t, "-2", repr(c.Int(glean.Float(-2.7), nil)))
		assert.Equal(t, "1", repr(c.Int(glean.Bool(true), nil)))

		_, err := c.Int(glean.Str("12a"), nil)
		MustRaise(t, glean.ValueError, "invalid literal for int() with base 10: '12a'", err)

		_, err = c.Int(glean.Str("010"), glean.NewInt(0))
		MustRaise(t, glean.ValueError, "invalid literal for int() with base 0: '010'", err)

		_, err = c.Int(glean.Float(math.NaN()), nil)
		MustRaise(t, glean.ValueError, "cannot convert float NaN to integer", err)
	})

	t.Run("Float", func(t *testing.T) {
		assert.Equal(t, "1.5", repr(c.Float(glean.Str("1.5"))))
		assert.Equal(t, "2.0", repr(c.Float(glean.NewInt(2))))
	})

	t.Run("Range", func(t *testing.T) {
		it, err := c.Range(glean.NewInt(5), glean.NewInt(0), glean.NewInt(-2))
		require.NoError(t, err)
		items, err := c.Items(it)
		require.NoError(t, err)
		assert.Equal(t, "[5, 3, 1]", repr(glean.NewList(items...), nil))

		_, err = c.Range(nil, glean.NewInt(3), glean.NewInt(0))
		MustRaise(t, glean.ValueError, "range() arg 3 must not be zero", err)
	})

	t.Run("Hash", func(t *testing.T) {
		assert.Equal(t, "7", repr(c.Hash(glean.NewInt(7))))
		assert.Equal(t, "-2", repr(c.Hash(glean.NewInt(-1))))
		assert.Equal(t, "1", repr(c.Hash(glean.Float(1))))

		_, err := c.Hash(glean.NewList())
		MustRaise(t, glean.TypeError, "unhashable type: 'list'", err)
	})
}

func TestException(t *testing.T) {
	err := glean.NewException(glean.ZeroDivisionError, "division by zero")
	if got, exp := err.Error(), "ZeroDivisionError: division by zero"; got != exp {
		t.Fatalf("Error()=%q, expected %q", got, exp)
	}

	if !err.IsInstance(glean.ArithmeticError) {
		t.Fatal("expected ArithmeticError subtype")
	} else if err.IsInstance(glean.LookupError) {
		t.Fatal("unexpected LookupError subtype")
	}

	// Wrapped exceptions still match with the standard errors package.
	if wrapped := fmt.Errorf("call: %w", err); !errors.Is(wrapped, err) {
		t.Fatal("expected wrapped exception to match")
	} else if errors.Is(wrapped, glean.NewException(glean.ZeroDivisionError, "division by zero")) {
		t.Fatal("unexpected match against a distinct exception")
	}

	if e, rest := glean.Catch(err, glean.KeyError, glean.ArithmeticError); e == nil || rest != nil {
		t.Fatal("expected exception to be caught")
	}
	if e, rest := glean.Catch(err, glean.KeyError); e != nil || rest != err {
		t.Fatal("expected exception to pass through")
	}
	if _, ok := glean.AsException(glean.ErrInternal); ok {
		t.Fatal("engine errors must not be exceptions")
	}
}
