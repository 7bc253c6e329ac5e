package glean

import (
	"math"
	"math/big"
	"strings"
)

// Int returns int(v). Strings are parsed in the given base, which is 10 when
// base is nil.
func (c *Ctx) Int(v Value, base Value) (Value, error) {
	if base != nil && base.Type() != TypeNone {
		if v.Type() != TypeStr && v.Type() != TypeBytes {
			return nil, NewException(TypeError, "int() can't convert non-string with explicit base")
		}
		vals, err := c.realizeMaybe("int()", v, base)
		if err != nil {
			return nil, err
		}
		b, err := argInt(vals[1], "base")
		if err != nil {
			return nil, err
		}
		return parseInt(text(vals[0]), b)
	}

	if c.symbolic(v) {
		switch v := v.(type) {
		case *SymbolicBool:
			e, _ := intExpr(v)
			return newInt(e), nil
		case *SymbolicInt:
			return v, nil
		case *SymbolicFloat:
			return c.floatToInt(v.expr)
		case *SymbolicStr:
			r, err := c.strToInt(v.seq)
			if err != errNoEncoding {
				return r, err
			}
		}
	}

	vals, err := c.realizeMaybe("int()", v)
	if err != nil {
		return nil, err
	}
	switch v := vals[0].(type) {
	case Bool, Int:
		i, _ := toBig(v)
		return NewBigInt(i), nil
	case Float:
		f := float64(v)
		if math.IsNaN(f) {
			return nil, NewException(ValueError, "cannot convert float NaN to integer")
		} else if math.IsInf(f, 0) {
			return nil, NewException(OverflowError, "cannot convert float infinity to integer")
		}
		i, _ := big.NewFloat(math.Trunc(f)).Int(nil)
		return NewBigInt(i), nil
	case Str:
		return parseInt(string(v), 10)
	case Bytes:
		return parseInt(string(v), 10)
	default:
		return nil, NewException(TypeError, "int() argument must be a string, a bytes-like object or a real number, not '%s'", v.Type())
	}
}

// parseInt parses an integer literal the way int() does: surrounding
// whitespace, a sign & underscores between digits are allowed. Base 0 reads
// the base from the prefix.
func parseInt(s string, base int) (Value, error) {
	origBase := base
	invalid := func() error {
		return NewException(ValueError, "invalid literal for int() with base %d: %s", origBase, quoteStr(s))
	}
	if base != 0 && (base < 2 || base > 36) {
		return nil, NewException(ValueError, "int() base must be >= 2 and <= 36, or 0")
	}

	t := strings.TrimFunc(s, isSpaceRune)
	neg := false
	if strings.HasPrefix(t, "-") || strings.HasPrefix(t, "+") {
		neg, t = t[0] == '-', t[1:]
	}
	lower := strings.ToLower(t)
	for prefix, b := range map[string]int{"0x": 16, "0o": 8, "0b": 2} {
		if strings.HasPrefix(lower, prefix) && (base == 0 || base == b) {
			base, t = b, strings.TrimPrefix(t[2:], "_")
			break
		}
	}
	if base == 0 {
		// Base 0 rejects leading zeros except in zero itself.
		if len(t) > 1 && t[0] == '0' && strings.Trim(t, "0_") != "" {
			return nil, invalid()
		}
		base = 10
	}
	if t == "" || strings.HasPrefix(t, "_") || strings.HasSuffix(t, "_") || strings.Contains(t, "__") {
		return nil, invalid()
	}

	i, ok := new(big.Int).SetString(strings.ReplaceAll(t, "_", ""), base)
	if !ok {
		return nil, invalid()
	}
	if neg {
		i.Neg(i)
	}
	return NewBigInt(i), nil
}

// Float returns float(v).
func (c *Ctx) Float(v Value) (Value, error) {
	if c.symbolic(v) && v.Type().IsNumeric() {
		e, err := c.floatExpr(v)
		if err != nil {
			return nil, err
		}
		return newFloat(e), nil
	}

	vals, err := c.realizeMaybe("float()", v)
	if err != nil {
		return nil, err
	}
	switch v := vals[0].(type) {
	case Bool, Int:
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case Float:
		return v, nil
	case Str, Bytes:
		return parseFloat(text(v))
	default:
		return nil, NewException(TypeError, "float() argument must be a string or a real number, not '%s'", v.Type())
	}
}

func parseFloat(s string) (Value, error) {
	t := strings.ToLower(strings.ReplaceAll(strings.TrimFunc(s, isSpaceRune), "_", ""))
	sign := 1.0
	body := strings.TrimLeft(t, "+-")
	if strings.HasPrefix(t, "-") {
		sign = -1
	}
	switch body {
	case "inf", "infinity":
		return Float(math.Inf(int(sign))), nil
	case "nan":
		return Float(math.NaN()), nil
	}
	f, ok := new(big.Float).SetString(t)
	if !ok || strings.ContainsAny(t, "px") {
		return nil, NewException(ValueError, "could not convert string to float: %s", quoteStr(s))
	}
	v, _ := f.Float64()
	return Float(v), nil
}

// Bool returns bool(v).
func (c *Ctx) Bool(v Value) (Value, error) {
	if c.symbolic(v) && v.Type().IsNumeric() {
		return newBool(truthExpr(v)), nil
	}
	ok, err := c.Truth(v)
	return Bool(ok), err
}

// KeyFunc maps an item to its sort key.
type KeyFunc func(c *Ctx, item Value) (Value, error)

// Sorted returns a new sorted list of the items of v. A nil key sorts by the
// items themselves. The sort is stable.
func (c *Ctx) Sorted(v Value, key KeyFunc, reverse bool) (Value, error) {
	items, err := c.Items(v)
	if err != nil {
		return nil, err
	}
	sorted, err := c.sortItems(items, key, reverse)
	if err != nil {
		return nil, err
	}
	return c.newListValue(listElem(v), sorted), nil
}

// sortItems sorts items by insertion sort, branching on each comparison.
// Comparisons involving NaN are not a total order, so paths on which a
// symbolic float key is NaN are ignored.
func (c *Ctx) sortItems(items []Value, key KeyFunc, reverse bool) ([]Value, error) {
	keys := make([]Value, len(items))
	for i, item := range items {
		keys[i] = item
		if key != nil {
			k, err := key(c, item)
			if err != nil {
				return nil, err
			}
			keys[i] = k
		}
	}

	var nans []Expr
	for _, k := range keys {
		if f, ok := k.(*SymbolicFloat); ok {
			nans = append(nans, NewNotExpr(NewUnaryExpr(ISNAN, f.expr)))
		}
	}
	if len(nans) > 0 {
		notNaN := NewAndExpr(nans...)
		c.space.DeferAssumption("sort keys are not NaN", func() (bool, error) {
			v, err := c.space.Realize(notNaN)
			if err != nil {
				return false, err
			}
			return v.Bool, nil
		})
	}

	out := append([]Value{}, items...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := keys[j], keys[j-1]
			if reverse {
				a, b = b, a
			}
			if less, err := c.Cond(c.Lt(a, b)); err != nil {
				return nil, err
			} else if !less {
				break
			}
			out[j], out[j-1] = out[j-1], out[j]
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return out, nil
}

// Min returns the smallest item of v.
func (c *Ctx) Min(v Value) (Value, error) {
	return c.extreme(v, OpLt, "min")
}

// Max returns the largest item of v.
func (c *Ctx) Max(v Value) (Value, error) {
	return c.extreme(v, OpGt, "max")
}

func (c *Ctx) extreme(v Value, op Op, name string) (Value, error) {
	var best Value
	err := c.ForEach(v, func(item Value) error {
		if best == nil {
			best = item
			return nil
		}
		if better, err := c.Cond(c.Binary(op, item, best)); err != nil {
			return err
		} else if better {
			best = item
		}
		return nil
	})
	if err != nil {
		return nil, err
	} else if best == nil {
		return nil, NewException(ValueError, "%s() arg is an empty sequence", name)
	}
	return best, nil
}

// Sum returns start plus the sum of the items of v. A nil start is 0.
func (c *Ctx) Sum(v Value, start Value) (Value, error) {
	if start == nil {
		start = NewInt(0)
	}
	switch start.Type() {
	case TypeStr:
		return nil, NewException(TypeError, "sum() can't sum strings [use ''.join(seq) instead]")
	case TypeBytes:
		return nil, NewException(TypeError, "sum() can't sum bytes [use b''.join(seq) instead]")
	}
	total := start
	err := c.ForEach(v, func(item Value) error {
		t, err := c.Add(total, item)
		total = t
		return err
	})
	return total, err
}

// Ord returns the code point of a single character string, or the value of
// a single byte.
func (c *Ctx) Ord(v Value) (Value, error) {
	q, ok := seqOf(v)
	if !ok {
		return nil, NewException(TypeError, "ord() expected string of length 1, but %s found", v.Type())
	}
	if c.symbolic(v) {
		if one, err := c.space.Choose(NewBinaryExpr(EQ, q.Len(), NewIntConstantExpr(1))); err != nil {
			return nil, err
		} else if !one {
			n, err := q.RealizeLen(c.space)
			if err != nil {
				return nil, err
			}
			return nil, NewException(TypeError, "ord() expected a character, but string of length %d found", n)
		}
		e, err := q.At(c.space, NewIntConstantExpr(0))
		if err != nil {
			return nil, err
		}
		return newInt(e), nil
	}

	vals, err := c.realizeMaybe("ord()", v)
	if err != nil {
		return nil, err
	}
	u := units(vals[0])
	if len(u) != 1 {
		return nil, NewException(TypeError, "ord() expected a character, but string of length %d found", len(u))
	}
	return NewInt(int64(u[0])), nil
}

// Chr returns the string of one character with code point v.
func (c *Ctx) Chr(v Value) (Value, error) {
	e, ok := intExpr(v)
	if !ok {
		return nil, NewException(TypeError, "'%s' object cannot be interpreted as an integer", v.Type())
	}
	if c.symbolic(v) {
		valid := inRangeExpr(e, 0, 0x10FFFF)
		if ok, err := c.space.Choose(valid); err != nil {
			return nil, err
		} else if !ok {
			return nil, NewException(ValueError, "chr() arg not in range(0x110000)")
		}
		return newStr(newLiteralSeq(SortInt, elemCodePoint, []Expr{e})), nil
	}

	vals, err := c.realizeMaybe("chr()", v)
	if err != nil {
		return nil, err
	}
	i, _ := toBig(vals[0])
	if !i.IsInt64() || i.Int64() < 0 || i.Int64() > 0x10FFFF {
		return nil, NewException(ValueError, "chr() arg not in range(0x110000)")
	}
	return Str(rune(i.Int64())), nil
}

// rangeIterator yields integers from start up to stop by step. A symbolic
// bound makes each step a branch.
type rangeIterator struct {
	i, stop Value
	step    Value
	neg     bool
}

func (*rangeIterator) Type() Type { return TypeIterator }

func (it *rangeIterator) Next(c *Ctx) (Value, bool, error) {
	op := OpLt
	if it.neg {
		op = OpGt
	}
	if more, err := c.Cond(c.Binary(op, it.i, it.stop)); err != nil || !more {
		return nil, false, err
	}
	v := it.i
	next, err := c.Add(it.i, it.step)
	if err != nil {
		return nil, false, err
	}
	it.i = next
	return v, true, nil
}

// Range returns an iterator over range(start, stop, step). Nil start & step
// default to 0 & 1.
func (c *Ctx) Range(start, stop, step Value) (Iterator, error) {
	if start == nil {
		start = NewInt(0)
	}
	if step == nil {
		step = NewInt(1)
	}
	for _, v := range []Value{start, stop, step} {
		if _, ok := intExpr(v); !ok {
			return nil, NewException(TypeError, "'%s' object cannot be interpreted as an integer", v.Type())
		}
	}

	zero, err := c.Cond(c.Eq(step, NewInt(0)))
	if err != nil {
		return nil, err
	} else if zero {
		return nil, NewException(ValueError, "range() arg 3 must not be zero")
	}
	neg, err := c.Cond(c.Lt(step, NewInt(0)))
	if err != nil {
		return nil, err
	}
	return &rangeIterator{i: start, stop: stop, step: step, neg: neg}, nil
}
