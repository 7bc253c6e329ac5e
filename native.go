package glean

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxRepeatLen limits the length of a repeated sequence.
const maxRepeatLen = 1 << 28

// nativeBinary applies op to operands that are not themselves symbolic.
// Containers may still hold symbolic elements, which are compared through c.
func nativeBinary(c *Ctx, op Op, a, b Value) (Value, error) {
	ta, tb := a.Type(), b.Type()
	if ta.IsNumeric() && tb.IsNumeric() {
		return nativeNum(op, a, b)
	}

	switch op {
	case OpEq:
		return nativeEq(c, a, b)
	case OpNe:
		eq, err := nativeEq(c, a, b)
		if err != nil {
			return nil, err
		}
		return c.Not(eq)
	}

	switch a := a.(type) {
	case Str:
		switch b := b.(type) {
		case Str:
			switch op {
			case OpAdd:
				return a + b, nil
			case OpMod:
				return pyFormat(c, string(a), b)
			case OpLt, OpLe, OpGt, OpGe:
				return Bool(cmpResult(op, strings.Compare(string(a), string(b)))), nil
			}
		case Int, Bool:
			if op == OpMul {
				return repeatStr(string(a), b)
			}
		}
		if op == OpMod {
			return pyFormat(c, string(a), b)
		} else if op == OpAdd {
			return nil, NewException(TypeError, "can only concatenate str (not \"%s\") to str", b.Type())
		}

	case Bytes:
		switch b := b.(type) {
		case Bytes:
			switch op {
			case OpAdd:
				return a + b, nil
			case OpLt, OpLe, OpGt, OpGe:
				return Bool(cmpResult(op, strings.Compare(string(a), string(b)))), nil
			}
		case Int, Bool:
			if op == OpMul {
				s, err := repeatStr(string(a), b)
				if err != nil {
					return nil, err
				}
				return Bytes(s.(Str)), nil
			}
		}
		if op == OpAdd {
			return nil, NewException(TypeError, "can't concat %s to bytes", b.Type())
		}

	case *List:
		switch b := b.(type) {
		case *List:
			switch op {
			case OpAdd:
				items := make([]Value, 0, len(a.Items)+len(b.Items))
				items = append(items, a.Items...)
				return NewList(append(items, b.Items...)...), nil
			case OpLt, OpLe, OpGt, OpGe:
				return compareItems(c, op, a.Items, b.Items)
			}
		case Int, Bool:
			if op == OpMul {
				return repeatList(a.Items, b)
			}
		}
		if op == OpAdd {
			return nil, NewException(TypeError, "can only concatenate list (not \"%s\") to list", b.Type())
		}

	case *Set:
		if b, ok := b.(*Set); ok {
			return nativeSetBinary(c, op, a, b)
		}

	case *Dict:
		if b, ok := b.(*Dict); ok && op == OpBitOr {
			d := NewDict()
			for _, src := range []*Dict{a, b} {
				for i, k := range src.Keys() {
					if err := d.Set(k, src.Values()[i]); err != nil {
						return nil, err
					}
				}
			}
			return d, nil
		}

	case Int, Bool:
		if op == OpMul {
			switch b := b.(type) {
			case Str, Bytes, *List:
				return nativeBinary(c, op, b, a)
			}
		}
	}

	if op == OpMul && (tb == TypeInt || tb == TypeBool) && (ta == TypeStr || ta == TypeBytes || ta == TypeList) {
		return nil, NewException(TypeError, "can't multiply sequence by non-int of type '%s'", tb)
	}
	return nil, binaryTypeError(op, a, b)
}

// cmpResult applies a comparison to the result of a three-way compare. A
// result of 2 marks unordered operands.
func cmpResult(op Op, cmp int) bool {
	if cmp == 2 {
		return op == OpNe
	}
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	default:
		panic("unreachable")
	}
}

func repeatCount(n Value) int64 {
	i, _ := toBig(n)
	if i.Sign() <= 0 {
		return 0
	} else if !i.IsInt64() {
		return math.MaxInt64
	}
	return i.Int64()
}

func repeatStr(s string, n Value) (Value, error) {
	count := repeatCount(n)
	if count == 0 || s == "" {
		return Str(""), nil
	} else if count > maxRepeatLen/int64(len(s)) {
		return nil, NewException(OverflowError, "repeated string is too long")
	}
	return Str(strings.Repeat(s, int(count))), nil
}

func repeatList(items []Value, n Value) (Value, error) {
	count := repeatCount(n)
	if count == 0 || len(items) == 0 {
		return NewList(), nil
	} else if count > maxRepeatLen/int64(len(items)) {
		return nil, NewException(OverflowError, "repeated list is too long")
	}
	out := make([]Value, 0, int(count)*len(items))
	for i := int64(0); i < count; i++ {
		out = append(out, items...)
	}
	return NewList(out...), nil
}

// toBig returns the integer value of a concrete bool or int.
func toBig(v Value) (*big.Int, bool) {
	switch v := v.(type) {
	case Bool:
		if v {
			return big.NewInt(1), true
		}
		return big.NewInt(0), true
	case Int:
		return v.Big(), true
	}
	return nil, false
}

// toFloat64 converts a concrete number to a float.
func toFloat64(v Value) (float64, error) {
	if f, ok := v.(Float); ok {
		return float64(f), nil
	}
	i, _ := toBig(v)
	f, _ := new(big.Float).SetInt(i).Float64()
	if math.IsInf(f, 0) {
		return 0, NewException(OverflowError, "int too large to convert to float")
	}
	return f, nil
}

func nativeNum(op Op, a, b Value) (Value, error) {
	if op.IsCompare() {
		return Bool(cmpResult(op, compareNum(a, b))), nil
	}

	t := max(a.Type(), b.Type())
	if t == TypeBool {
		x, y := bool(a.(Bool)), bool(b.(Bool))
		switch op {
		case OpBitAnd:
			return Bool(x && y), nil
		case OpBitOr:
			return Bool(x || y), nil
		case OpBitXor:
			return Bool(x != y), nil
		}
	}

	if t != TypeFloat {
		x, _ := toBig(a)
		y, _ := toBig(b)
		return intOp(op, x, y)
	}

	switch op {
	case OpBitAnd, OpBitOr, OpBitXor:
		return nil, binaryTypeError(op, a, b)
	}
	x, err := toFloat64(a)
	if err != nil {
		return nil, err
	}
	y, err := toFloat64(b)
	if err != nil {
		return nil, err
	}
	return floatOp(op, x, y)
}

// compareNum compares two concrete numbers exactly. NaN compares as unordered,
// which is reported as 2 so that every ordering & equality test fails.
func compareNum(a, b Value) int {
	fa, aok := a.(Float)
	fb, bok := b.(Float)
	switch {
	case aok && bok:
		x, y := float64(fa), float64(fb)
		switch {
		case math.IsNaN(x) || math.IsNaN(y):
			return 2
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case !aok && !bok:
		x, _ := toBig(a)
		y, _ := toBig(b)
		return x.Cmp(y)
	case aok:
		return compareFloatInt(float64(fa), b)
	default:
		if cmp := compareFloatInt(float64(fb), a); cmp != 2 {
			return -cmp
		}
		return 2
	}
}

func compareFloatInt(f float64, i Value) int {
	switch {
	case math.IsNaN(f):
		return 2
	case math.IsInf(f, 1):
		return 1
	case math.IsInf(f, -1):
		return -1
	}
	x, _ := toBig(i)
	return new(big.Rat).SetFloat64(f).Cmp(new(big.Rat).SetInt(x))
}

func intOp(op Op, x, y *big.Int) (Value, error) {
	switch op {
	case OpAdd:
		return Int{x: new(big.Int).Add(x, y)}, nil
	case OpSub:
		return Int{x: new(big.Int).Sub(x, y)}, nil
	case OpMul:
		return Int{x: new(big.Int).Mul(x, y)}, nil

	case OpTrueDiv:
		if y.Sign() == 0 {
			return nil, NewException(ZeroDivisionError, "division by zero")
		}
		f, _ := new(big.Rat).SetFrac(x, y).Float64()
		if math.IsInf(f, 0) {
			return nil, NewException(OverflowError, "integer division result too large for a float")
		}
		return Float(f), nil

	case OpFloorDiv:
		if y.Sign() == 0 {
			return nil, NewException(ZeroDivisionError, "integer division or modulo by zero")
		}
		q, _ := floorDivMod(x, y)
		return Int{x: q}, nil

	case OpMod:
		if y.Sign() == 0 {
			return nil, NewException(ZeroDivisionError, "integer modulo by zero")
		}
		_, m := floorDivMod(x, y)
		return Int{x: m}, nil

	case OpPow:
		if y.Sign() < 0 {
			if x.Sign() == 0 {
				return nil, NewException(ZeroDivisionError, "0.0 cannot be raised to a negative power")
			}
			fx, err := toFloat64(Int{x: x})
			if err != nil {
				return nil, err
			}
			fy, _ := new(big.Float).SetInt(y).Float64()
			return floatOp(OpPow, fx, fy)
		}
		if x.CmpAbs(big.NewInt(1)) > 0 && y.BitLen() > 24 {
			return nil, NewException(OverflowError, "exponent too large")
		}
		return Int{x: new(big.Int).Exp(x, y, nil)}, nil

	case OpBitAnd:
		return Int{x: new(big.Int).And(x, y)}, nil
	case OpBitOr:
		return Int{x: new(big.Int).Or(x, y)}, nil
	case OpBitXor:
		return Int{x: new(big.Int).Xor(x, y)}, nil

	default:
		return nil, NewException(TypeError, "unsupported operand type(s) for %s: 'int' and 'int'", op)
	}
}

func floatOp(op Op, x, y float64) (Value, error) {
	switch op {
	case OpAdd:
		return Float(x + y), nil
	case OpSub:
		return Float(x - y), nil
	case OpMul:
		return Float(x * y), nil

	case OpTrueDiv:
		if y == 0 {
			return nil, NewException(ZeroDivisionError, "float division by zero")
		}
		return Float(x / y), nil

	case OpFloorDiv:
		if y == 0 {
			return nil, NewException(ZeroDivisionError, "float floor division by zero")
		}
		q, _ := floatDivmod(x, y)
		return Float(q), nil

	case OpMod:
		if y == 0 {
			return nil, NewException(ZeroDivisionError, "float modulo by zero")
		}
		_, m := floatDivmod(x, y)
		return Float(m), nil

	case OpPow:
		if x == 0 && y < 0 {
			return nil, NewException(ZeroDivisionError, "0.0 cannot be raised to a negative power")
		} else if x < 0 && !math.IsInf(x, 0) && !math.IsInf(y, 0) && y != math.Trunc(y) {
			return nil, NewException(NotImplementedError, "complex result of float power")
		}
		r := math.Pow(x, y)
		if math.IsInf(r, 0) && !math.IsInf(x, 0) && !math.IsInf(y, 0) {
			return nil, NewException(OverflowError, "(34, 'Numerical result out of range')")
		}
		return Float(r), nil

	default:
		return nil, NewException(TypeError, "unsupported operand type(s) for %s: 'float' and 'float'", op)
	}
}

// floatDivmod returns the floored quotient & remainder of x / y. The
// remainder takes the sign of y.
func floatDivmod(x, y float64) (float64, float64) {
	mod := math.Mod(x, y)
	div := (x - mod) / y
	if mod != 0 {
		if (y < 0) != (mod < 0) {
			mod += y
			div -= 1
		}
	} else {
		mod = math.Copysign(0, y)
	}

	var floordiv float64
	if div != 0 {
		floordiv = math.Floor(div)
		if div-floordiv > 0.5 {
			floordiv += 1
		}
	} else {
		floordiv = math.Copysign(0, x/y)
	}
	return floordiv, mod
}

// nativeEq compares two non-symbolic values. The result may be symbolic when
// containers hold symbolic elements.
func nativeEq(c *Ctx, a, b Value) (Value, error) {
	if a.Type().IsNumeric() && b.Type().IsNumeric() {
		return Bool(compareNum(a, b) == 0), nil
	}

	switch a := a.(type) {
	case NoneType:
		_, ok := b.(NoneType)
		return Bool(ok), nil
	case Str:
		other, ok := b.(Str)
		return Bool(ok && a == other), nil
	case Bytes:
		other, ok := b.(Bytes)
		return Bool(ok && a == other), nil

	case *List:
		other, ok := b.(*List)
		if !ok || len(a.Items) != len(other.Items) {
			return Bool(false), nil
		}
		eqs := make([]Value, len(a.Items))
		for i := range a.Items {
			eq, err := c.Eq(a.Items[i], other.Items[i])
			if err != nil {
				return nil, err
			}
			eqs[i] = eq
		}
		return andValues(eqs), nil

	case *Dict:
		other, ok := b.(*Dict)
		if !ok || a.Len() != other.Len() {
			return Bool(false), nil
		}
		var eqs []Value
		for i, k := range a.Keys() {
			v, found, err := other.Get(k)
			if err != nil {
				return nil, err
			} else if !found {
				return Bool(false), nil
			}
			eq, err := c.Eq(a.Values()[i], v)
			if err != nil {
				return nil, err
			}
			eqs = append(eqs, eq)
		}
		return andValues(eqs), nil

	case *Set:
		other, ok := b.(*Set)
		if !ok || a.Len() != other.Len() {
			return Bool(false), nil
		}
		for _, item := range a.Items() {
			if found, err := other.Has(item); err != nil || !found {
				return Bool(false), err
			}
		}
		return Bool(true), nil

	default:
		return Bool(c.Is(a, b)), nil
	}
}

// andValues returns the conjunction of boolean values.
func andValues(vals []Value) Value {
	exprs := make([]Expr, len(vals))
	for i, v := range vals {
		exprs[i] = boolExpr(v)
	}
	return newBool(NewAndExpr(exprs...))
}

// orValues returns the disjunction of boolean values.
func orValues(vals []Value) Value {
	exprs := make([]Expr, len(vals))
	for i, v := range vals {
		exprs[i] = boolExpr(v)
	}
	return newBool(NewOrExpr(exprs...))
}

// compareItems orders two item lists lexicographically.
func compareItems(c *Ctx, op Op, a, b []Value) (Value, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		if eq, err := c.Cond(c.Eq(a[i], b[i])); err != nil {
			return nil, err
		} else if !eq {
			return c.Binary(op, a[i], b[i])
		}
	}
	return Bool(cmpResult(op, compareInt(len(a), len(b)))), nil
}

func nativeSetBinary(c *Ctx, op Op, a, b *Set) (Value, error) {
	switch op {
	case OpBitOr, OpBitAnd, OpSub, OpBitXor:
		out, _ := NewSet()
		for _, item := range a.Items() {
			inB, err := b.Has(item)
			if err != nil {
				return nil, err
			}
			if op == OpBitOr || (op == OpBitAnd && inB) || ((op == OpSub || op == OpBitXor) && !inB) {
				if err := out.Add(item); err != nil {
					return nil, err
				}
			}
		}
		if op == OpBitOr || op == OpBitXor {
			for _, item := range b.Items() {
				inA, err := a.Has(item)
				if err != nil {
					return nil, err
				}
				if op == OpBitOr || !inA {
					if err := out.Add(item); err != nil {
						return nil, err
					}
				}
			}
		}
		return out, nil

	case OpLe, OpLt, OpGe, OpGt:
		sub, sup := a, b
		if op == OpGe || op == OpGt {
			sub, sup = b, a
		}
		for _, item := range sub.Items() {
			if found, err := sup.Has(item); err != nil || !found {
				return Bool(false), err
			}
		}
		if op == OpLt || op == OpGt {
			return Bool(sub.Len() < sup.Len()), nil
		}
		return Bool(true), nil
	}
	return nil, binaryTypeError(op, a, b)
}

func nativeUnary(op Op, a Value) (Value, error) {
	switch a := a.(type) {
	case Bool:
		i, _ := toBig(a)
		return nativeUnary(op, Int{x: i})
	case Int:
		switch op {
		case OpNeg:
			return Int{x: new(big.Int).Neg(a.Big())}, nil
		case OpAbs:
			return Int{x: new(big.Int).Abs(a.Big())}, nil
		}
	case Float:
		switch op {
		case OpNeg:
			return -a, nil
		case OpAbs:
			return Float(math.Abs(float64(a))), nil
		}
	}
	return nil, NewException(TypeError, "bad operand type for %s: '%s'", op, a.Type())
}

func nativeTruth(v Value) bool {
	switch v := v.(type) {
	case NoneType:
		return false
	case Bool:
		return bool(v)
	case Int:
		return v.Big().Sign() != 0
	case Float:
		return v != 0
	case Str:
		return v != ""
	case Bytes:
		return v != ""
	case *List:
		return len(v.Items) > 0
	case *Dict:
		return v.Len() > 0
	case *Set:
		return v.Len() > 0
	default:
		return true
	}
}

func nativeLen(v Value) (Value, error) {
	switch v := v.(type) {
	case Str:
		return NewInt(int64(utf8.RuneCountInString(string(v)))), nil
	case Bytes:
		return NewInt(int64(len(v))), nil
	case *List:
		return NewInt(int64(len(v.Items))), nil
	case *Dict:
		return NewInt(int64(v.Len())), nil
	case *Set:
		return NewInt(int64(v.Len())), nil
	default:
		return nil, NewException(TypeError, "object of type '%s' has no len()", v.Type())
	}
}

// indexValue converts a concrete index to an int.
func indexValue(v Value, what string) (int, error) {
	i, ok := toBig(v)
	if !ok {
		return 0, NewException(TypeError, "%s indices must be integers or slices, not %s", what, v.Type())
	} else if !i.IsInt64() || i.Int64() > math.MaxInt32 || i.Int64() < math.MinInt32 {
		return 0, NewException(IndexError, "cannot fit 'int' into an index-sized integer")
	}
	return int(i.Int64()), nil
}

// normalize returns i adjusted for negative indexing, or false if out of range.
func normalize(i, n int) (int, bool) {
	if i < 0 {
		i += n
	}
	return i, i >= 0 && i < n
}

func nativeGetItem(c *Ctx, v, key Value) (Value, error) {
	if IsSymbolic(key) {
		switch v.Type() {
		case TypeStr, TypeBytes:
			return seqGetItem(c, v, key)
		case TypeList:
			return listGetItemSymbolic(c, v.(*List), key)
		case TypeDict:
			return dictScanGet(c, v.(*Dict), key)
		}
		vals, err := c.unsupported("getitem", key)
		if err != nil {
			return nil, err
		}
		key = vals[0]
	}

	switch v := v.(type) {
	case Str:
		i, err := indexValue(key, "string")
		if err != nil {
			return nil, err
		}
		runes := []rune(string(v))
		if i, ok := normalize(i, len(runes)); ok {
			return Str(runes[i]), nil
		}
		return nil, NewException(IndexError, "string index out of range")

	case Bytes:
		i, err := indexValue(key, "byte")
		if err != nil {
			return nil, err
		}
		if i, ok := normalize(i, len(v)); ok {
			return NewInt(int64(v[i])), nil
		}
		return nil, NewException(IndexError, "index out of range")

	case *List:
		i, err := indexValue(key, "list")
		if err != nil {
			return nil, err
		}
		if i, ok := normalize(i, len(v.Items)); ok {
			return v.Items[i], nil
		}
		return nil, NewException(IndexError, "list index out of range")

	case *Dict:
		if containsSymbolic(key) {
			return dictScanGet(c, v, key)
		}
		value, ok, err := v.Get(key)
		if err != nil {
			return nil, err
		} else if !ok {
			return nil, keyError(key)
		}
		return value, nil

	case *Match:
		return v.group(c, key)

	default:
		return nil, NewException(TypeError, "'%s' object is not subscriptable", v.Type())
	}
}

// keyError returns a KeyError whose message is the repr of key.
func keyError(key Value) error {
	s, err := nativeRepr(key)
	if err != nil {
		s = key.Type().String()
	}
	return NewException(KeyError, "%s", s)
}

// dictScanGet looks up a key that may be symbolic by comparing it against
// each present key in order.
func dictScanGet(c *Ctx, d *Dict, key Value) (Value, error) {
	for i, k := range d.Keys() {
		if eq, err := c.Cond(c.Eq(k, key)); err != nil {
			return nil, err
		} else if eq {
			return d.Values()[i], nil
		}
	}
	r, err := c.Realize(key)
	if err != nil {
		return nil, err
	}
	return nil, keyError(r)
}

// listGetItemSymbolic indexes a concrete list with a symbolic index.
func listGetItemSymbolic(c *Ctx, l *List, key Value) (Value, error) {
	i, ok := intExpr(key)
	if !ok {
		return nil, NewException(TypeError, "list indices must be integers or slices, not %s", key.Type())
	}
	idx, err := c.normalizeIndex(i, NewIntConstantExpr(int64(len(l.Items))), "list index out of range")
	if err != nil {
		return nil, err
	}
	k, err := c.space.Realize(idx)
	if err != nil {
		return nil, err
	}
	return l.Items[k.Int.Int64()], nil
}

// sliceIndices returns the indices selected by a slice over a sequence of
// length n. Nil bounds are omitted.
func sliceIndices(n int, start, stop, step *int) ([]int, error) {
	st := 1
	if step != nil {
		if *step == 0 {
			return nil, NewException(ValueError, "slice step cannot be zero")
		}
		st = *step
	}

	adjust := func(p *int, def int) int {
		if p == nil {
			return def
		}
		i := *p
		if i < 0 {
			i += n
			if i < 0 {
				if st < 0 {
					return -1
				}
				return 0
			}
		} else if i >= n {
			if st < 0 {
				return n - 1
			}
			return n
		}
		return i
	}

	var lo, hi int
	if st > 0 {
		lo, hi = adjust(start, 0), adjust(stop, n)
	} else {
		lo, hi = adjust(start, n-1), adjust(stop, -1)
	}

	var out []int
	for i := lo; (st > 0 && i < hi) || (st < 0 && i > hi); i += st {
		out = append(out, i)
	}
	return out, nil
}

func optIndex(v Value) (*int, error) {
	if v == nil || v.Type() == TypeNone {
		return nil, nil
	}
	i, ok := toBig(v)
	if !ok {
		return nil, NewException(TypeError, "slice indices must be integers or None")
	}
	n := math.MaxInt32
	if i.IsInt64() && i.Int64() < math.MaxInt32 && i.Int64() > math.MinInt32 {
		n = int(i.Int64())
	} else if i.Sign() < 0 {
		n = math.MinInt32
	}
	return &n, nil
}

func nativeSlice(c *Ctx, v, start, stop, step Value) (Value, error) {
	lo, err := optIndex(start)
	if err != nil {
		return nil, err
	}
	hi, err := optIndex(stop)
	if err != nil {
		return nil, err
	}
	st, err := optIndex(step)
	if err != nil {
		return nil, err
	}

	switch v := v.(type) {
	case Str:
		runes := []rune(string(v))
		idx, err := sliceIndices(len(runes), lo, hi, st)
		if err != nil {
			return nil, err
		}
		out := make([]rune, len(idx))
		for j, i := range idx {
			out[j] = runes[i]
		}
		return Str(out), nil

	case Bytes:
		idx, err := sliceIndices(len(v), lo, hi, st)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(idx))
		for j, i := range idx {
			out[j] = v[i]
		}
		return Bytes(out), nil

	case *List:
		idx, err := sliceIndices(len(v.Items), lo, hi, st)
		if err != nil {
			return nil, err
		}
		out := make([]Value, len(idx))
		for j, i := range idx {
			out[j] = v.Items[i]
		}
		return NewList(out...), nil

	default:
		return nil, NewException(TypeError, "'%s' object is not subscriptable", v.Type())
	}
}

func nativeSetItem(c *Ctx, v, key, value Value) error {
	switch v := v.(type) {
	case *List:
		if IsSymbolic(key) {
			vals, err := c.realizeMaybe("setitem", key)
			if err != nil {
				return err
			}
			key = vals[0]
		}
		i, err := indexValue(key, "list")
		if err != nil {
			return err
		}
		i, ok := normalize(i, len(v.Items))
		if !ok {
			return NewException(IndexError, "list assignment index out of range")
		}
		v.Items[i] = value
		return nil

	case *Dict:
		vals, err := c.realizeMaybe("dict key", key)
		if err != nil {
			return err
		}
		return v.Set(vals[0], value)

	default:
		return NewException(TypeError, "'%s' object does not support item assignment", v.Type())
	}
}

func nativeDelItem(c *Ctx, v, key Value) error {
	vals, err := c.realizeMaybe("delitem", key)
	if err != nil {
		return err
	}
	key = vals[0]

	switch v := v.(type) {
	case *List:
		i, err := indexValue(key, "list")
		if err != nil {
			return err
		}
		i, ok := normalize(i, len(v.Items))
		if !ok {
			return NewException(IndexError, "list assignment index out of range")
		}
		v.Items = append(v.Items[:i:i], v.Items[i+1:]...)
		return nil

	case *Dict:
		if ok, err := v.Delete(key); err != nil {
			return err
		} else if !ok {
			return keyError(key)
		}
		return nil

	default:
		return NewException(TypeError, "'%s' object does not support item deletion", v.Type())
	}
}

func nativeContains(c *Ctx, v, item Value) (Value, error) {
	switch v := v.(type) {
	case Str:
		s, ok := item.(Str)
		if !ok {
			return nil, NewException(TypeError, "'in <string>' requires string as left operand, not %s", item.Type())
		}
		return Bool(strings.Contains(string(v), string(s))), nil

	case Bytes:
		switch item := item.(type) {
		case Bytes:
			return Bool(strings.Contains(string(v), string(item))), nil
		case Int, Bool:
			i, _ := toBig(item)
			if !i.IsInt64() || i.Int64() < 0 || i.Int64() > 255 {
				return nil, NewException(ValueError, "byte must be in range(0, 256)")
			}
			return Bool(strings.IndexByte(string(v), byte(i.Int64())) >= 0), nil
		}
		return nil, NewException(TypeError, "a bytes-like object is required, not '%s'", item.Type())

	case *List:
		return containsScan(c, v.Items, item)

	case *Dict:
		if containsSymbolic(item) {
			return containsScan(c, v.Keys(), item)
		}
		_, ok, err := v.Get(item)
		return Bool(ok), err

	case *Set:
		if containsSymbolic(item) {
			return containsScan(c, v.Items(), item)
		}
		ok, err := v.Has(item)
		return Bool(ok), err

	default:
		return nil, NewException(TypeError, "argument of type '%s' is not iterable", v.Type())
	}
}

// containsScan returns the disjunction of equality against each item.
func containsScan(c *Ctx, items []Value, item Value) (Value, error) {
	eqs := make([]Value, len(items))
	for i, x := range items {
		eq, err := c.Eq(x, item)
		if err != nil {
			return nil, err
		}
		eqs[i] = eq
	}
	return orValues(eqs), nil
}

// listIterator iterates over a concrete list, observing appends made during
// iteration.
type listIterator struct {
	list *List
	i    int
}

func (*listIterator) Type() Type { return TypeIterator }

func (it *listIterator) Next(c *Ctx) (Value, bool, error) {
	if it.i >= len(it.list.Items) {
		return nil, false, nil
	}
	it.i++
	return it.list.Items[it.i-1], true, nil
}

// dictIterator iterates over the keys of a concrete dict.
type dictIterator struct {
	dict *Dict
	n    int
	i    int
}

func (*dictIterator) Type() Type { return TypeIterator }

func (it *dictIterator) Next(c *Ctx) (Value, bool, error) {
	if it.dict.Len() != it.n {
		return nil, false, NewException(RuntimeError, "dictionary changed size during iteration")
	} else if it.i >= it.n {
		return nil, false, nil
	}
	it.i++
	return it.dict.Keys()[it.i-1], true, nil
}

func nativeIter(v Value) (Iterator, error) {
	switch v := v.(type) {
	case Iterator:
		return v, nil
	case Str:
		var items []Value
		for _, r := range string(v) {
			items = append(items, Str(r))
		}
		return &sliceIterator{items: items}, nil
	case Bytes:
		items := make([]Value, len(v))
		for i := 0; i < len(v); i++ {
			items[i] = NewInt(int64(v[i]))
		}
		return &sliceIterator{items: items}, nil
	case *List:
		return &listIterator{list: v}, nil
	case *Dict:
		return &dictIterator{dict: v, n: v.Len()}, nil
	case *Set:
		items := make([]Value, v.Len())
		copy(items, v.Items())
		return &sliceIterator{items: items}, nil
	default:
		return nil, NewException(TypeError, "'%s' object is not iterable", v.Type())
	}
}

func isHashable(t Type) bool {
	switch t {
	case TypeList, TypeDict, TypeSet:
		return false
	}
	return true
}

func nativeHash(v Value) (Value, error) {
	switch v := v.(type) {
	case NoneType:
		return NewInt(-9223372036581563745), nil
	case Bool, Int:
		i, _ := toBig(v)
		return NewInt(hashInt(i)), nil
	case Float:
		return NewInt(hashFloat(float64(v))), nil
	case Str:
		return NewInt(hashString(string(v))), nil
	case Bytes:
		return NewInt(hashString(string(v))), nil
	case *Pattern, *Match:
		return NewInt(int64(fnvString(fmt.Sprintf("%p", v)))), nil
	default:
		return nil, NewException(TypeError, "unhashable type: '%s'", v.Type())
	}
}

func hashInt(i *big.Int) int64 {
	m := new(big.Int).Mod(new(big.Int).Abs(i), hashModulus).Int64()
	if i.Sign() < 0 {
		m = -m
	}
	if m == -1 {
		m = -2
	}
	return m
}

// hashFloat hashes a float so that integral floats hash like the equal int.
func hashFloat(f float64) int64 {
	switch {
	case math.IsInf(f, 1):
		return 314159
	case math.IsInf(f, -1):
		return -314159
	case math.IsNaN(f):
		return 0
	}

	const bits = 61
	p := uint64(1)<<bits - 1
	m, e := math.Frexp(f)
	sign := int64(1)
	if m < 0 {
		sign, m = -1, -m
	}

	var x uint64
	for m != 0 {
		x = ((x << 28) & p) | x>>(bits-28)
		m *= 268435456.0
		e -= 28
		y := uint64(m)
		m -= float64(y)
		x += y
		if x >= p {
			x -= p
		}
	}

	if e >= 0 {
		e = e % bits
	} else {
		e = bits - 1 - ((-1 - e) % bits)
	}
	x = ((x << uint(e)) & p) | x>>uint(bits-e)

	h := int64(x) * sign
	if h == -1 {
		h = -2
	}
	return h
}

func fnvString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func hashString(s string) int64 {
	h := int64(fnvString(s))
	if h == -1 {
		h = -2
	}
	return h
}

// nativeStr returns str(v) for a value containing no symbolic parts.
func nativeStr(v Value) (string, error) {
	switch v := v.(type) {
	case Str:
		return string(v), nil
	default:
		return nativeRepr(v)
	}
}

// nativeRepr returns repr(v) for a value containing no symbolic parts.
func nativeRepr(v Value) (string, error) {
	switch v := v.(type) {
	case NoneType:
		return "None", nil
	case Bool:
		return v.String(), nil
	case Int:
		return v.String(), nil
	case Float:
		return v.String(), nil
	case Str:
		return quoteStr(string(v)), nil
	case Bytes:
		return quoteBytes(string(v)), nil

	case *List:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			s, err := nativeRepr(item)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil

	case *Dict:
		parts := make([]string, v.Len())
		for i, k := range v.Keys() {
			ks, err := nativeRepr(k)
			if err != nil {
				return "", err
			}
			vs, err := nativeRepr(v.Values()[i])
			if err != nil {
				return "", err
			}
			parts[i] = ks + ": " + vs
		}
		return "{" + strings.Join(parts, ", ") + "}", nil

	case *Set:
		if v.Len() == 0 {
			return "set()", nil
		}
		parts := make([]string, v.Len())
		for i, item := range v.Items() {
			s, err := nativeRepr(item)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "{" + strings.Join(parts, ", ") + "}", nil

	case *Pattern:
		return "re.compile(" + quoteStr(v.source) + ")", nil
	case *Match:
		return v.repr(), nil
	case Iterator:
		return "<iterator>", nil
	default:
		return "", NewException(TypeError, "cannot represent value of type '%s'", v.Type())
	}
}

// quoteStr quotes s the way repr() quotes strings.
func quoteStr(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var buf strings.Builder
	buf.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&buf, `\x%02x`, r)
		case r < 0x7f || unicode.IsPrint(r):
			buf.WriteRune(r)
		case r <= 0xff:
			fmt.Fprintf(&buf, `\x%02x`, r)
		case r <= 0xffff:
			fmt.Fprintf(&buf, `\u%04x`, r)
		default:
			fmt.Fprintf(&buf, `\U%08x`, r)
		}
	}
	buf.WriteByte(quote)
	return buf.String()
}

// quoteBytes quotes b the way repr() quotes bytes.
func quoteBytes(b string) string {
	quote := byte('\'')
	if strings.IndexByte(b, '\'') >= 0 && strings.IndexByte(b, '"') < 0 {
		quote = '"'
	}

	var buf strings.Builder
	buf.WriteString("b")
	buf.WriteByte(quote)
	for i := 0; i < len(b); i++ {
		ch := b[i]
		switch {
		case ch == quote || ch == '\\':
			buf.WriteByte('\\')
			buf.WriteByte(ch)
		case ch == '\n':
			buf.WriteString(`\n`)
		case ch == '\r':
			buf.WriteString(`\r`)
		case ch == '\t':
			buf.WriteString(`\t`)
		case ch < 0x20 || ch >= 0x7f:
			fmt.Fprintf(&buf, `\x%02x`, ch)
		default:
			buf.WriteByte(ch)
		}
	}
	buf.WriteByte(quote)
	return buf.String()
}

// pyFormat implements printf-style formatting with the %s, %r, %d, %i, %f, %x
// & %% conversions. A list supplies multiple arguments.
func pyFormat(c *Ctx, format string, arg Value) (Value, error) {
	vals, err := c.realizeMaybe("%", arg)
	if err != nil {
		return nil, err
	}
	args := []Value{vals[0]}
	if l, ok := vals[0].(*List); ok {
		args = l.Items
	}

	var buf strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' {
			buf.WriteByte(ch)
			continue
		} else if i+1 >= len(format) {
			return nil, NewException(ValueError, "incomplete format")
		}
		i++
		verb := format[i]
		if verb == '%' {
			buf.WriteByte('%')
			continue
		}
		if next >= len(args) {
			return nil, NewException(TypeError, "not enough arguments for format string")
		}
		a := args[next]
		next++

		switch verb {
		case 's':
			s, err := nativeStr(a)
			if err != nil {
				return nil, err
			}
			buf.WriteString(s)
		case 'r':
			s, err := nativeRepr(a)
			if err != nil {
				return nil, err
			}
			buf.WriteString(s)
		case 'd', 'i', 'x':
			var i *big.Int
			if f, ok := a.(Float); ok {
				if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
					return nil, NewException(ValueError, "cannot convert float %s to integer", f)
				}
				i, _ = new(big.Float).SetFloat64(float64(f)).Int(nil)
			} else if i, ok = toBig(a); !ok {
				return nil, NewException(TypeError, "%%%c format: a real number is required, not %s", verb, a.Type())
			}
			if verb == 'x' {
				buf.WriteString(i.Text(16))
			} else {
				buf.WriteString(i.String())
			}
		case 'f':
			if !a.Type().IsNumeric() {
				return nil, NewException(TypeError, "must be real number, not %s", a.Type())
			}
			f, err := toFloat64(a)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&buf, "%.6f", f)
		default:
			return nil, NewException(ValueError, "unsupported format character '%c'", verb)
		}
	}
	if next < len(args) {
		return nil, NewException(TypeError, "not all arguments converted during string formatting")
	}
	return Str(buf.String()), nil
}
