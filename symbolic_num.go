package glean

import (
	"math"
	"math/big"
)

// maxPowExponent is the largest concrete exponent expanded into repeated
// multiplication. Larger powers are realized.
const maxPowExponent = 64

// hashModulus is the modulus of numeric hashes, 2**61 - 1.
var hashModulus = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 61), big.NewInt(1))

// SymbolicBool is a boolean described by a solver expression.
type SymbolicBool struct {
	expr Expr
}

// newBool returns a boolean value for expr. Constant expressions produce a
// concrete Bool.
func newBool(expr Expr) Value {
	if c, ok := expr.(*ConstantExpr); ok {
		return Bool(c.Bool)
	}
	return &SymbolicBool{expr: expr}
}

func (*SymbolicBool) Type() Type { return TypeBool }

// Expr returns the underlying expression.
func (b *SymbolicBool) Expr() Expr { return b.expr }

func (b *SymbolicBool) String() string { return b.expr.String() }

// Realize returns the concrete value of b on the current path.
func (b *SymbolicBool) Realize(c *Ctx) (Value, error) {
	v, err := c.space.Realize(b.expr)
	if err != nil {
		return nil, err
	}
	return Bool(v.Bool), nil
}

// SymbolicInt is an arbitrary precision integer described by a solver expression.
type SymbolicInt struct {
	expr Expr
}

// newInt returns an integer value for expr.
func newInt(expr Expr) Value {
	if c, ok := expr.(*ConstantExpr); ok {
		return NewBigInt(c.Int)
	}
	return &SymbolicInt{expr: expr}
}

func (*SymbolicInt) Type() Type { return TypeInt }

// Expr returns the underlying expression.
func (i *SymbolicInt) Expr() Expr { return i.expr }

func (i *SymbolicInt) String() string { return i.expr.String() }

// Realize returns the concrete value of i on the current path.
func (i *SymbolicInt) Realize(c *Ctx) (Value, error) {
	v, err := c.space.Realize(i.expr)
	if err != nil {
		return nil, err
	}
	return NewBigInt(v.Int), nil
}

// SymbolicFloat is an IEEE binary64 float described by a solver expression.
type SymbolicFloat struct {
	expr Expr
}

// newFloat returns a float value for expr.
func newFloat(expr Expr) Value {
	if c, ok := expr.(*ConstantExpr); ok {
		return Float(c.Float)
	}
	return &SymbolicFloat{expr: expr}
}

func (*SymbolicFloat) Type() Type { return TypeFloat }

// Expr returns the underlying expression.
func (f *SymbolicFloat) Expr() Expr { return f.expr }

func (f *SymbolicFloat) String() string { return f.expr.String() }

// Realize returns the concrete value of f on the current path.
func (f *SymbolicFloat) Realize(c *Ctx) (Value, error) {
	v, err := c.space.Realize(f.expr)
	if err != nil {
		return nil, err
	}
	return Float(v.Float), nil
}

// numExpr returns the expression of a numeric value in its own sort.
func numExpr(v Value) (Expr, bool) {
	switch v := v.(type) {
	case Bool:
		return NewBoolConstantExpr(bool(v)), true
	case Int:
		return NewBigIntConstantExpr(v.Big()), true
	case Float:
		return NewFloatConstantExpr(float64(v)), true
	case *SymbolicBool:
		return v.expr, true
	case *SymbolicInt:
		return v.expr, true
	case *SymbolicFloat:
		return v.expr, true
	}
	return nil, false
}

// intExpr returns the integer expression of a bool or int value.
func intExpr(v Value) (Expr, bool) {
	switch v.Type() {
	case TypeBool, TypeInt:
		e, _ := numExpr(v)
		return NewCastExpr(e, SortInt), true
	}
	return nil, false
}

// boolExpr returns the expression of a bool value.
func boolExpr(v Value) Expr {
	e, ok := numExpr(v)
	assert(ok && ExprSort(e) == SortBool, "bool expr: not a bool: %T", v)
	return e
}

// numValue wraps expr as a value of its sort.
func numValue(expr Expr) Value {
	switch ExprSort(expr) {
	case SortBool:
		return newBool(expr)
	case SortInt:
		return newInt(expr)
	case SortFloat:
		return newFloat(expr)
	default:
		panic("num value: invalid sort")
	}
}

// floatExpr converts a numeric value to a float expression. Integers too
// large for a float raise OverflowError.
func (c *Ctx) floatExpr(v Value) (Expr, error) {
	switch v.Type() {
	case TypeFloat:
		e, _ := numExpr(v)
		return e, nil
	case TypeBool:
		e, _ := numExpr(v)
		return NewIteExpr(e, NewFloatConstantExpr(1), NewFloatConstantExpr(0)), nil
	}
	e, _ := intExpr(v)
	return c.intToFloat(e)
}

func (c *Ctx) intToFloat(e Expr) (Expr, error) {
	f := NewCastExpr(e, SortFloat)
	if inf, err := c.space.Choose(NewUnaryExpr(ISINF, f)); err != nil {
		return nil, err
	} else if inf {
		return nil, NewException(OverflowError, "int too large to convert to float")
	}
	return f, nil
}

// checkNonZero raises ZeroDivisionError with msg on the branch where e is zero.
func (c *Ctx) checkNonZero(e Expr, msg string) error {
	zero, err := c.space.Choose(NewBinaryExpr(EQ, e, zeroOf(ExprSort(e))))
	if err != nil {
		return err
	} else if zero {
		return NewException(ZeroDivisionError, msg)
	}
	return nil
}

var numHandlers = &handlers{
	binary: numBinary,
	unary:  numUnary,
	truth:  numTruth,
	hash:   numHash,
	str:    numStr,
}

func binaryTypeError(op Op, a, b Value) error {
	if op.IsCompare() {
		return NewException(TypeError, "'%s' not supported between instances of '%s' and '%s'", op, a.Type(), b.Type())
	}
	return NewException(TypeError, "unsupported operand type(s) for %s: '%s' and '%s'", op, a.Type(), b.Type())
}

func numBinary(c *Ctx, op Op, a, b Value) (Value, error) {
	if !a.Type().IsNumeric() || !b.Type().IsNumeric() {
		return nil, binaryTypeError(op, a, b)
	} else if op.IsCompare() {
		return numCompare(c, op, a, b)
	}

	t := max(a.Type(), b.Type())
	if t == TypeBool {
		x, y := boolExpr(a), boolExpr(b)
		switch op {
		case OpBitAnd:
			return newBool(NewBinaryExpr(AND, x, y)), nil
		case OpBitOr:
			return newBool(NewBinaryExpr(OR, x, y)), nil
		case OpBitXor:
			return newBool(NewBinaryExpr(XOR, x, y)), nil
		}
		t = TypeInt
	}

	if t == TypeInt {
		x, _ := intExpr(a)
		y, _ := intExpr(b)
		return intBinary(c, op, x, y)
	}

	switch op {
	case OpBitAnd, OpBitOr, OpBitXor:
		return nil, binaryTypeError(op, a, b)
	}
	x, err := c.floatExpr(a)
	if err != nil {
		return nil, err
	}
	y, err := c.floatExpr(b)
	if err != nil {
		return nil, err
	}
	return floatBinary(c, op, x, y)
}

func intBinary(c *Ctx, op Op, x, y Expr) (Value, error) {
	switch op {
	case OpAdd:
		return newInt(NewBinaryExpr(ADD, x, y)), nil
	case OpSub:
		return newInt(NewBinaryExpr(SUB, x, y)), nil
	case OpMul:
		return newInt(NewBinaryExpr(MUL, x, y)), nil

	case OpTrueDiv:
		if err := c.checkNonZero(y, "division by zero"); err != nil {
			return nil, err
		}
		q := NewCastExpr(NewBinaryExpr(DIV, NewCastExpr(x, SortReal), NewCastExpr(y, SortReal)), SortFloat)
		if inf, err := c.space.Choose(NewUnaryExpr(ISINF, q)); err != nil {
			return nil, err
		} else if inf {
			return nil, NewException(OverflowError, "integer division result too large for a float")
		}
		return newFloat(q), nil

	case OpFloorDiv:
		if err := c.checkNonZero(y, "integer division or modulo by zero"); err != nil {
			return nil, err
		}
		return newInt(NewBinaryExpr(FLOORDIV, x, y)), nil

	case OpMod:
		if err := c.checkNonZero(y, "integer modulo by zero"); err != nil {
			return nil, err
		}
		return newInt(NewBinaryExpr(MOD, x, y)), nil

	case OpPow:
		n, ok := y.(*ConstantExpr)
		if !ok || n.Int.Sign() < 0 || n.Int.Cmp(big.NewInt(maxPowExponent)) > 0 {
			return nil, errNoEncoding
		}
		var result Expr = NewIntConstantExpr(1)
		for i := int64(0); i < n.Int.Int64(); i++ {
			result = NewBinaryExpr(MUL, result, x)
		}
		return newInt(result), nil

	default:
		return nil, errNoEncoding
	}
}

func floatBinary(c *Ctx, op Op, x, y Expr) (Value, error) {
	switch op {
	case OpAdd:
		return newFloat(NewBinaryExpr(ADD, x, y)), nil
	case OpSub:
		return newFloat(NewBinaryExpr(SUB, x, y)), nil
	case OpMul:
		return newFloat(NewBinaryExpr(MUL, x, y)), nil
	case OpTrueDiv:
		if err := c.checkNonZero(y, "float division by zero"); err != nil {
			return nil, err
		}
		return newFloat(NewBinaryExpr(DIV, x, y)), nil
	case OpFloorDiv:
		if err := c.checkNonZero(y, "float floor division by zero"); err != nil {
			return nil, err
		}
		return nil, errNoEncoding
	case OpMod:
		if err := c.checkNonZero(y, "float modulo by zero"); err != nil {
			return nil, err
		}
		return nil, errNoEncoding
	default:
		return nil, errNoEncoding
	}
}

func numCompare(c *Ctx, op Op, a, b Value) (Value, error) {
	fa, fb := a.Type() == TypeFloat, b.Type() == TypeFloat
	switch {
	case fa && fb:
		x, _ := numExpr(a)
		y, _ := numExpr(b)
		return newBool(NewBinaryExpr(op.binaryOp(), x, y)), nil
	case !fa && !fb:
		x, _ := intExpr(a)
		y, _ := intExpr(b)
		return newBool(NewBinaryExpr(op.binaryOp(), x, y)), nil
	case fa:
		f, _ := numExpr(a)
		i, _ := intExpr(b)
		return newBool(mixedCompare(op, f, i)), nil
	default:
		f, _ := numExpr(b)
		i, _ := intExpr(a)
		return newBool(mixedCompare(op.swap(), f, i)), nil
	}
}

// mixedCompare returns the exact comparison "f op i" of a float & an int.
// NaN compares false except for inequality. Infinities compare by sign.
// Finite floats are compared exactly as reals.
func mixedCompare(op Op, f, i Expr) Expr {
	bop := op.binaryOp()
	nan := NewBoolConstantExpr(op == OpNe)
	zero := NewIntConstantExpr(0)

	if fc, ok := f.(*ConstantExpr); ok {
		switch {
		case math.IsNaN(fc.Float):
			return nan
		case math.IsInf(fc.Float, 1):
			return NewBinaryExpr(bop, NewIntConstantExpr(1), zero)
		case math.IsInf(fc.Float, -1):
			return NewBinaryExpr(bop, NewIntConstantExpr(-1), zero)
		}
		return NewBinaryExpr(bop, NewCastExpr(f, SortReal), NewCastExpr(i, SortReal))
	}

	sign := NewIteExpr(NewBinaryExpr(GT, f, NewFloatConstantExpr(0)), NewIntConstantExpr(1), NewIntConstantExpr(-1))
	exact := NewBinaryExpr(bop, NewCastExpr(f, SortReal), NewCastExpr(i, SortReal))
	return NewIteExpr(NewUnaryExpr(ISNAN, f), nan,
		NewIteExpr(NewUnaryExpr(ISINF, f), NewBinaryExpr(bop, sign, zero), exact))
}

func numUnary(c *Ctx, op Op, a Value) (Value, error) {
	var x Expr
	if a.Type() == TypeFloat {
		x, _ = numExpr(a)
	} else {
		x, _ = intExpr(a)
	}

	switch op {
	case OpNeg:
		return numValue(NewUnaryExpr(NEG, x)), nil
	case OpAbs:
		return numValue(NewUnaryExpr(ABS, x)), nil
	default:
		return nil, NewException(TypeError, "bad operand type for %s: '%s'", op, a.Type())
	}
}

// truthExpr returns the truthiness of a numeric value as a boolean expression.
func truthExpr(v Value) Expr {
	e, _ := numExpr(v)
	switch ExprSort(e) {
	case SortBool:
		return e
	default:
		return NewBinaryExpr(NE, e, zeroOf(ExprSort(e)))
	}
}

func numTruth(c *Ctx, a Value) (bool, error) {
	return c.space.Choose(truthExpr(a))
}

// numHash implements the numeric hash: the value modulo 2**61-1 carrying the
// sign of the value, with -1 replaced by -2.
func numHash(c *Ctx, a Value) (Value, error) {
	x, ok := intExpr(a)
	if !ok {
		return nil, errNoEncoding
	}
	p := NewBigIntConstantExpr(hashModulus)
	zero := NewIntConstantExpr(0)
	pos := NewBinaryExpr(MOD, x, p)
	neg := NewUnaryExpr(NEG, NewBinaryExpr(MOD, NewUnaryExpr(NEG, x), p))
	h := NewIteExpr(NewBinaryExpr(GE, x, zero), pos, neg)
	h = NewIteExpr(NewBinaryExpr(EQ, h, NewIntConstantExpr(-1)), NewIntConstantExpr(-2), h)
	return newInt(h), nil
}

func numStr(c *Ctx, a Value) (Value, error) {
	switch a.Type() {
	case TypeBool:
		ok, err := c.space.Choose(boolExpr(a))
		if err != nil {
			return nil, err
		}
		return Str(Bool(ok).String()), nil
	case TypeInt:
		x, _ := intExpr(a)
		q, err := c.intToStr(x)
		if err != nil {
			return nil, err
		}
		return newStr(q), nil
	default:
		return nil, errNoEncoding
	}
}

// intToStr returns the decimal digits of x. The number of digits is decided
// by a branch per magnitude; the digits themselves stay symbolic.
func (c *Ctx) intToStr(x Expr) (*Seq, error) {
	neg, err := c.space.Choose(NewBinaryExpr(LT, x, NewIntConstantExpr(0)))
	if err != nil {
		return nil, err
	}
	m := x
	if neg {
		m = NewUnaryExpr(NEG, x)
	}

	n := 1
	bound := big.NewInt(10)
	for {
		if ok, err := c.space.Choose(NewBinaryExpr(LT, m, NewBigIntConstantExpr(bound))); err != nil {
			return nil, err
		} else if ok {
			break
		}
		n++
		bound.Mul(bound, big.NewInt(10))
	}

	var elems []Expr
	if neg {
		elems = append(elems, NewIntConstantExpr('-'))
	}
	ten := NewIntConstantExpr(10)
	div := new(big.Int).Div(bound, big.NewInt(10))
	for i := 0; i < n; i++ {
		d := NewBinaryExpr(MOD, NewBinaryExpr(FLOORDIV, m, NewBigIntConstantExpr(div)), ten)
		elems = append(elems, NewBinaryExpr(ADD, d, NewIntConstantExpr('0')))
		div.Div(div, big.NewInt(10))
	}
	return newLiteralSeq(SortInt, elemCodePoint, elems), nil
}

// strToInt parses a string of decimal digits. Strings with any other
// characters are realized & parsed natively.
func (c *Ctx) strToInt(q *Seq) (Value, error) {
	elems, err := q.Elems(c.space)
	if err != nil {
		return nil, err
	} else if len(elems) == 0 {
		return nil, errNoEncoding
	}

	conds := make([]Expr, len(elems))
	for i, e := range elems {
		conds[i] = NewAndExpr(
			NewBinaryExpr(GE, e, NewIntConstantExpr('0')),
			NewBinaryExpr(LE, e, NewIntConstantExpr('9')),
		)
	}
	if ok, err := c.space.Choose(NewAndExpr(conds...)); err != nil {
		return nil, err
	} else if !ok {
		return nil, errNoEncoding
	}

	var result Expr = NewIntConstantExpr(0)
	ten := NewIntConstantExpr(10)
	for _, e := range elems {
		d := NewBinaryExpr(SUB, e, NewIntConstantExpr('0'))
		result = NewBinaryExpr(ADD, NewBinaryExpr(MUL, result, ten), d)
	}
	return newInt(result), nil
}

// floatToInt truncates a float toward zero.
func (c *Ctx) floatToInt(f Expr) (Value, error) {
	if nan, err := c.space.Choose(NewUnaryExpr(ISNAN, f)); err != nil {
		return nil, err
	} else if nan {
		return nil, NewException(ValueError, "cannot convert float NaN to integer")
	}
	if inf, err := c.space.Choose(NewUnaryExpr(ISINF, f)); err != nil {
		return nil, err
	} else if inf {
		return nil, NewException(OverflowError, "cannot convert float infinity to integer")
	}
	return newInt(NewCastExpr(f, SortInt)), nil
}
