package glean

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
)

// Sort represents the solver-level type of an expression.
type Sort int

// Expression sorts.
const (
	SortBool = Sort(iota + 1)
	SortInt
	SortReal
	SortFloat
)

var sorts = [...]string{
	SortBool:  "bool",
	SortInt:   "int",
	SortReal:  "real",
	SortFloat: "float",
}

// String returns the string representation of the sort.
func (s Sort) String() string {
	if s >= 0 && s < Sort(len(sorts)) && sorts[s] != "" {
		return sorts[s]
	}
	return fmt.Sprintf("Sort<%d>", s)
}

// IsNumeric returns true for the int, real & float sorts.
func (s Sort) IsNumeric() bool {
	return s == SortInt || s == SortReal || s == SortFloat
}

// Expr represents a symbolic expression.
type Expr interface {
	String() string
	expr()
}

func (*BinaryExpr) expr()   {}
func (*CastExpr) expr()     {}
func (*ConstantExpr) expr() {}
func (*IteExpr) expr()      {}
func (*NotExpr) expr()      {}
func (*SelectExpr) expr()   {}
func (*UnaryExpr) expr()    {}
func (*VarExpr) expr()      {}

// ExprSort returns the sort of the expression.
func ExprSort(expr Expr) Sort {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr.Sort
	case *VarExpr:
		return expr.Sort
	case *SelectExpr:
		return expr.Array.Range
	case *NotExpr:
		return SortBool
	case *UnaryExpr:
		if expr.Op.IsPredicate() {
			return SortBool
		}
		return ExprSort(expr.Expr)
	case *IteExpr:
		return ExprSort(expr.Then)
	case *CastExpr:
		return expr.Sort
	case *BinaryExpr:
		if expr.Op.IsCompare() || expr.Op.IsLogical() {
			return SortBool
		}
		return ExprSort(expr.LHS)
	default:
		panic("unreachable")
	}
}

// BinaryOp represents a binary expression operation.
type BinaryOp int

// BinaryExpr operations.
const (
	arithmetic_op_begin = BinaryOp(iota)
	ADD
	SUB
	MUL
	DIV      // true division; real & float only
	FLOORDIV // floor division; int only
	MOD      // floor modulo; int only
	arithmetic_op_end

	logical_op_begin
	AND
	OR
	XOR
	logical_op_end

	compare_op_begin
	EQ
	NE
	LT
	LE
	GT
	GE
	compare_op_end
)

var binaryOps = [...]string{
	ADD:      "add",
	SUB:      "sub",
	MUL:      "mul",
	DIV:      "div",
	FLOORDIV: "floordiv",
	MOD:      "mod",
	AND:      "and",
	OR:       "or",
	XOR:      "xor",
	EQ:       "eq",
	NE:       "ne",
	LT:       "lt",
	LE:       "le",
	GT:       "gt",
	GE:       "ge",
}

// String returns the string representation of the operation.
func (op BinaryOp) String() string {
	if op >= 0 && op < BinaryOp(len(binaryOps)) && binaryOps[op] != "" {
		return binaryOps[op]
	}
	return fmt.Sprintf("BinaryOp<%d>", op)
}

// IsArithmetic returns true if op is an arithmetic operator.
func (op BinaryOp) IsArithmetic() bool {
	return op > arithmetic_op_begin && op < arithmetic_op_end
}

// IsLogical returns true if op is a boolean connective.
func (op BinaryOp) IsLogical() bool {
	return op > logical_op_begin && op < logical_op_end
}

// IsCompare returns true if op is a comparison operator.
func (op BinaryOp) IsCompare() bool {
	return op > compare_op_begin && op < compare_op_end
}

// BinaryExpr represents an operation on two expressions.
type BinaryExpr struct {
	Op  BinaryOp
	LHS Expr
	RHS Expr
}

// NewBinaryExpr returns a new binary expression, folding constants where possible.
func NewBinaryExpr(op BinaryOp, lhs, rhs Expr) Expr {
	assert(ExprSort(lhs) == ExprSort(rhs), "binary expr sort mismatch: op=%s %s != %s", op, ExprSort(lhs), ExprSort(rhs))

	switch op {
	case ADD:
		return newAddExpr(lhs, rhs)
	case SUB:
		return newSubExpr(lhs, rhs)
	case MUL:
		return newMulExpr(lhs, rhs)
	case DIV:
		return newDivExpr(lhs, rhs)
	case FLOORDIV:
		return newFloorDivExpr(lhs, rhs)
	case MOD:
		return newModExpr(lhs, rhs)

	case AND:
		return newAndExpr(lhs, rhs)
	case OR:
		return newOrExpr(lhs, rhs)
	case XOR:
		return newXorExpr(lhs, rhs)

	case EQ:
		return newEqExpr(lhs, rhs)
	case NE:
		return NewNotExpr(newEqExpr(lhs, rhs))
	case LT:
		return newLtExpr(lhs, rhs)
	case GT:
		return newLtExpr(rhs, lhs) // reverse
	case LE:
		return newLeExpr(lhs, rhs)
	case GE:
		return newLeExpr(rhs, lhs) // reverse

	default:
		panic("unreachable")
	}
}

// String returns the string representation of the expression.
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Op, e.LHS, e.RHS)
}

// isExact returns true if the sort obeys the usual algebraic identities.
// Float arithmetic rounds so only constant folding is safe.
func isExact(s Sort) bool {
	return s == SortInt || s == SortReal
}

// newAddExpr returns the expression representing the sum of lhs & rhs.
func newAddExpr(lhs, rhs Expr) Expr {
	// Move constant expression to left hand side.
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if lc, ok := lhs.(*ConstantExpr); ok {
		if rc, ok := rhs.(*ConstantExpr); ok {
			return lc.Add(rc)
		} else if isExact(lc.Sort) && lc.IsZero() {
			return rhs
		}
	}
	if !isExact(ExprSort(lhs)) {
		return &BinaryExpr{Op: ADD, LHS: lhs, RHS: rhs}
	}

	// Merge constant LHS with constant in RHS binary expression.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*BinaryExpr); ok && IsConstantExpr(rhs.LHS) {
			if rhs.Op == ADD { // X + (Y+z) == (X+Y) + z
				return NewBinaryExpr(ADD, NewBinaryExpr(ADD, lhs, rhs.LHS), rhs.RHS)
			} else if rhs.Op == SUB { // X + (Y-z) == (X+Y) - z
				return NewBinaryExpr(SUB, NewBinaryExpr(ADD, lhs, rhs.LHS), rhs.RHS)
			}
		}
	}

	// Refactor constant LHS.LHS to a standalone value on LHS.
	if lhs, ok := lhs.(*BinaryExpr); ok && IsConstantExpr(lhs.LHS) {
		if lhs.Op == ADD { // (X+y) + z = X + (y+z)
			return NewBinaryExpr(ADD, lhs.LHS, NewBinaryExpr(ADD, lhs.RHS, rhs))
		} else if lhs.Op == SUB { // (X-y) + z = X + (z-y)
			return NewBinaryExpr(ADD, lhs.LHS, NewBinaryExpr(SUB, rhs, lhs.RHS))
		}
	}

	// Refactor constant RHS.LHS to a standalone value on LHS.
	if rhs, ok := rhs.(*BinaryExpr); ok && IsConstantExpr(rhs.LHS) {
		if rhs.Op == ADD { // a + (K+b) = K + (a+b)
			return NewBinaryExpr(ADD, rhs.LHS, NewBinaryExpr(ADD, lhs, rhs.RHS))
		} else if rhs.Op == SUB { // a + (K-b) = K + (a-b)
			return NewBinaryExpr(ADD, rhs.LHS, NewBinaryExpr(SUB, lhs, rhs.RHS))
		}
	}

	return &BinaryExpr{Op: ADD, LHS: lhs, RHS: rhs}
}

// newSubExpr returns an expression representing the difference of lhs & rhs.
func newSubExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Sub(rhs)
		}
	}
	if !isExact(ExprSort(lhs)) {
		return &BinaryExpr{Op: SUB, LHS: lhs, RHS: rhs}
	}

	// Subtracting a value from itself is zero.
	if CompareExpr(lhs, rhs) == 0 {
		return zeroOf(ExprSort(lhs))
	}

	// If constant is on right side, refactor to addition of the negation.
	if rhs, ok := rhs.(*ConstantExpr); ok {
		return NewBinaryExpr(ADD, rhs.Neg(), lhs)
	}

	// Combine with children of RHS binary expression, if possible.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*BinaryExpr); ok && IsConstantExpr(rhs.LHS) {
			if rhs.Op == ADD { // X - (Y+z) == (X-Y) - z
				return NewBinaryExpr(SUB, NewBinaryExpr(SUB, lhs, rhs.LHS), rhs.RHS)
			} else if rhs.Op == SUB { // X - (Y-z) == (X-Y) + z
				return NewBinaryExpr(ADD, NewBinaryExpr(SUB, lhs, rhs.LHS), rhs.RHS)
			}
		}
	}

	// Refactor constant LHS.LHS to a standalone value on LHS.
	if lhs, ok := lhs.(*BinaryExpr); ok && IsConstantExpr(lhs.LHS) {
		if lhs.Op == ADD { // (X+y) - z = X + (y-z)
			return NewBinaryExpr(ADD, lhs.LHS, NewBinaryExpr(SUB, lhs.RHS, rhs))
		} else if lhs.Op == SUB { // (X-y) - z = X - (y+z)
			return NewBinaryExpr(SUB, lhs.LHS, NewBinaryExpr(ADD, lhs.RHS, rhs))
		}
	}

	return &BinaryExpr{Op: SUB, LHS: lhs, RHS: rhs}
}

// newMulExpr returns an expression that represents the product of lhs & rhs.
func newMulExpr(lhs, rhs Expr) Expr {
	// If constant is on right side, swap to left side.
	if IsConstantExpr(rhs) && !IsConstantExpr(lhs) {
		lhs, rhs = rhs, lhs
	}

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Mul(rhs)
		}

		// Optimize for multiplication with a constant 1 or 0.
		if isExact(lhs.Sort) {
			if lhs.IsOne() {
				return rhs
			} else if lhs.IsZero() {
				return lhs
			}
		}
	}
	return &BinaryExpr{Op: MUL, LHS: lhs, RHS: rhs}
}

// newDivExpr returns an expression that represents the true division of lhs & rhs.
func newDivExpr(lhs, rhs Expr) Expr {
	assert(ExprSort(lhs) == SortReal || ExprSort(lhs) == SortFloat, "div: invalid sort: %s", ExprSort(lhs))

	if rc, ok := rhs.(*ConstantExpr); ok {
		if lc, ok := lhs.(*ConstantExpr); ok && !(rc.Sort == SortReal && rc.IsZero()) {
			return lc.Div(rc)
		} else if rc.Sort == SortReal && rc.IsOne() {
			return lhs
		}
	}
	return &BinaryExpr{Op: DIV, LHS: lhs, RHS: rhs}
}

// newFloorDivExpr returns an expression that represents the floor division of lhs & rhs.
func newFloorDivExpr(lhs, rhs Expr) Expr {
	assert(ExprSort(lhs) == SortInt, "floordiv: invalid sort: %s", ExprSort(lhs))

	if rc, ok := rhs.(*ConstantExpr); ok {
		if lc, ok := lhs.(*ConstantExpr); ok && !rc.IsZero() {
			return lc.FloorDiv(rc)
		} else if rc.IsOne() {
			return lhs
		}
	}
	return &BinaryExpr{Op: FLOORDIV, LHS: lhs, RHS: rhs}
}

// newModExpr returns an expression that represents the floor modulo of lhs by rhs.
func newModExpr(lhs, rhs Expr) Expr {
	assert(ExprSort(lhs) == SortInt, "mod: invalid sort: %s", ExprSort(lhs))

	if rc, ok := rhs.(*ConstantExpr); ok {
		if lc, ok := lhs.(*ConstantExpr); ok && !rc.IsZero() {
			return lc.Mod(rc)
		} else if rc.IsOne() {
			return NewIntConstantExpr(0)
		}
	}
	return &BinaryExpr{Op: MOD, LHS: lhs, RHS: rhs}
}

// newAndExpr returns an expression that represents the conjunction of lhs & rhs.
func newAndExpr(lhs, rhs Expr) Expr {
	assert(ExprSort(lhs) == SortBool, "and: invalid sort: %s", ExprSort(lhs))

	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.IsFalse() {
			return lhs
		}
		return rhs
	}
	if CompareExpr(lhs, rhs) == 0 {
		return lhs
	}
	return &BinaryExpr{Op: AND, LHS: lhs, RHS: rhs}
}

// newOrExpr returns an expression that represents the disjunction of lhs & rhs.
func newOrExpr(lhs, rhs Expr) Expr {
	assert(ExprSort(lhs) == SortBool, "or: invalid sort: %s", ExprSort(lhs))

	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.IsTrue() {
			return lhs
		}
		return rhs
	}
	if CompareExpr(lhs, rhs) == 0 {
		return lhs
	}
	return &BinaryExpr{Op: OR, LHS: lhs, RHS: rhs}
}

// newXorExpr returns an expression that represents the exclusive-or of lhs & rhs.
func newXorExpr(lhs, rhs Expr) Expr {
	assert(ExprSort(lhs) == SortBool, "xor: invalid sort: %s", ExprSort(lhs))

	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if lc, ok := lhs.(*ConstantExpr); ok {
		if rc, ok := rhs.(*ConstantExpr); ok {
			return NewBoolConstantExpr(lc.Bool != rc.Bool)
		} else if lc.IsTrue() {
			return NewNotExpr(rhs)
		}
		return rhs
	}
	if CompareExpr(lhs, rhs) == 0 {
		return NewBoolConstantExpr(false)
	}
	return &BinaryExpr{Op: XOR, LHS: lhs, RHS: rhs}
}

// newEqExpr returns an expression that represents the equality of lhs and rhs.
// Float equality follows IEEE semantics so NaN is never equal to itself.
func newEqExpr(lhs, rhs Expr) Expr {
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Eq(rhs)
		}

		// Simplify boolean equality to the expression or its negation.
		if lhs.Sort == SortBool {
			if lhs.IsTrue() {
				return rhs
			}
			return NewNotExpr(rhs)
		}
	}

	if ExprSort(lhs) != SortFloat && CompareExpr(lhs, rhs) == 0 {
		return NewBoolConstantExpr(true)
	}
	return &BinaryExpr{Op: EQ, LHS: lhs, RHS: rhs}
}

// newLtExpr returns an expression that represents if lhs is less than rhs.
func newLtExpr(lhs, rhs Expr) Expr {
	assert(ExprSort(lhs).IsNumeric(), "lt: invalid sort: %s", ExprSort(lhs))

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Lt(rhs)
		}
	}
	if isExact(ExprSort(lhs)) && CompareExpr(lhs, rhs) == 0 {
		return NewBoolConstantExpr(false)
	}
	return &BinaryExpr{Op: LT, LHS: lhs, RHS: rhs}
}

// newLeExpr returns an expression that represents if lhs is less than or equal to rhs.
func newLeExpr(lhs, rhs Expr) Expr {
	assert(ExprSort(lhs).IsNumeric(), "le: invalid sort: %s", ExprSort(lhs))

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Le(rhs)
		}
	}
	if isExact(ExprSort(lhs)) && CompareExpr(lhs, rhs) == 0 {
		return NewBoolConstantExpr(true)
	}
	return &BinaryExpr{Op: LE, LHS: lhs, RHS: rhs}
}

// NewAndExpr returns the conjunction of all exprs. Returns true if empty.
func NewAndExpr(exprs ...Expr) Expr {
	var cond Expr = NewBoolConstantExpr(true)
	for _, expr := range exprs {
		cond = NewBinaryExpr(AND, cond, expr)
	}
	return cond
}

// NewOrExpr returns the disjunction of all exprs. Returns false if empty.
func NewOrExpr(exprs ...Expr) Expr {
	var cond Expr = NewBoolConstantExpr(false)
	for _, expr := range exprs {
		cond = NewBinaryExpr(OR, cond, expr)
	}
	return cond
}

// UnaryOp represents a unary expression operation.
type UnaryOp int

// UnaryExpr operations.
const (
	NEG = UnaryOp(iota + 1)
	ABS
	ISNAN
	ISINF
)

var unaryOps = [...]string{
	NEG:   "neg",
	ABS:   "abs",
	ISNAN: "isnan",
	ISINF: "isinf",
}

// String returns the string representation of the operation.
func (op UnaryOp) String() string {
	if op >= 0 && op < UnaryOp(len(unaryOps)) && unaryOps[op] != "" {
		return unaryOps[op]
	}
	return fmt.Sprintf("UnaryOp<%d>", op)
}

// IsPredicate returns true if the operation produces a boolean.
func (op UnaryOp) IsPredicate() bool {
	return op == ISNAN || op == ISINF
}

// UnaryExpr represents a numeric operation on a single expression.
type UnaryExpr struct {
	Op   UnaryOp
	Expr Expr
}

// NewUnaryExpr returns a new instance of UnaryExpr, folding constants where possible.
func NewUnaryExpr(op UnaryOp, expr Expr) Expr {
	sort := ExprSort(expr)
	assert(sort.IsNumeric(), "unary expr: invalid sort: %s", sort)

	// Only floats can be NaN or infinite.
	if op.IsPredicate() && sort != SortFloat {
		return NewBoolConstantExpr(false)
	}

	if x, ok := expr.(*ConstantExpr); ok {
		switch op {
		case NEG:
			return x.Neg()
		case ABS:
			return x.Abs()
		case ISNAN:
			return NewBoolConstantExpr(math.IsNaN(x.Float))
		case ISINF:
			return NewBoolConstantExpr(math.IsInf(x.Float, 0))
		}
	}

	// Double negation cancels out, even for IEEE floats.
	if x, ok := expr.(*UnaryExpr); ok && op == NEG && x.Op == NEG {
		return x.Expr
	}
	return &UnaryExpr{Op: op, Expr: expr}
}

// String returns the string representation of the expression.
func (e *UnaryExpr) String() string {
	return fmt.Sprintf("(%s %s)", e.Op, e.Expr)
}

// NotExpr represents a boolean negation of an expression.
type NotExpr struct {
	Expr Expr
}

// NewNotExpr returns a new instance of NotExpr.
func NewNotExpr(expr Expr) Expr {
	assert(ExprSort(expr) == SortBool, "not: invalid sort: %s", ExprSort(expr))

	switch expr := expr.(type) {
	case *ConstantExpr:
		return NewBoolConstantExpr(!expr.Bool)
	case *NotExpr:
		return expr.Expr
	}
	return &NotExpr{Expr: expr}
}

// String returns the string representation of the expression.
func (e *NotExpr) String() string {
	return fmt.Sprintf("(not %s)", e.Expr)
}

// IteExpr represents an if-then-else expression.
type IteExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

// NewIteExpr returns a new instance of IteExpr.
func NewIteExpr(cond, then, els Expr) Expr {
	assert(ExprSort(cond) == SortBool, "ite: invalid condition sort: %s", ExprSort(cond))
	assert(ExprSort(then) == ExprSort(els), "ite: branch sort mismatch: %s != %s", ExprSort(then), ExprSort(els))

	if cond, ok := cond.(*ConstantExpr); ok {
		if cond.IsTrue() {
			return then
		}
		return els
	}
	if CompareExpr(then, els) == 0 {
		return then
	}

	// Boolean branches with constant values reduce to the condition itself.
	if then, ok := then.(*ConstantExpr); ok && then.Sort == SortBool {
		if els, ok := els.(*ConstantExpr); ok {
			if then.IsTrue() && els.IsFalse() {
				return cond
			}
			return NewNotExpr(cond)
		}
	}

	// Push negated conditions into the branch order.
	if not, ok := cond.(*NotExpr); ok {
		return &IteExpr{Cond: not.Expr, Then: els, Else: then}
	}
	return &IteExpr{Cond: cond, Then: then, Else: els}
}

// String returns the string representation of the expression.
func (e *IteExpr) String() string {
	return fmt.Sprintf("(ite %s %s %s)", e.Cond, e.Then, e.Else)
}

// CastExpr represents the conversion of an expression to another sort.
//
// Int to float & real to float round to nearest, ties to even. Float to int
// truncates toward zero and real to int takes the floor. The source of a float
// to int or float to real conversion must be finite.
type CastExpr struct {
	Src  Expr
	Sort Sort
}

// NewCastExpr returns a new instance of CastExpr.
func NewCastExpr(src Expr, sort Sort) Expr {
	from := ExprSort(src)
	if from == sort {
		return src
	}
	assert(from.IsNumeric() || (from == SortBool && sort == SortInt), "cast: invalid conversion: %s to %s", from, sort)

	if src, ok := src.(*ConstantExpr); ok {
		return src.Cast(sort)
	}
	return &CastExpr{Src: src, Sort: sort}
}

// String returns the string representation of the expression.
func (e *CastExpr) String() string {
	return fmt.Sprintf("(to_%s %s)", e.Sort, e.Src)
}

// VarExpr represents a free symbolic variable.
type VarExpr struct {
	Name string
	Sort Sort
}

// NewVarExpr returns a new instance of VarExpr.
func NewVarExpr(name string, sort Sort) *VarExpr {
	return &VarExpr{Name: name, Sort: sort}
}

// String returns the string representation of the expression.
func (e *VarExpr) String() string {
	return e.Name
}

// SelectExpr represents a read from an array at a symbolic index.
type SelectExpr struct {
	Array *Array
	Index Expr
}

// NewSelectExpr returns a new instance of SelectExpr based on a given array.
func NewSelectExpr(a *Array, index Expr) Expr {
	assert(ExprSort(index) == SortInt, "select: invalid index sort: %s", ExprSort(index))
	return &SelectExpr{Array: a, Index: index}
}

// String returns the string representation of the expression.
func (e *SelectExpr) String() string {
	return fmt.Sprintf("(select %s %s)", e.Array, e.Index)
}

// ConstantExpr represents a concrete value of any sort.
// Only the field matching Sort is set.
type ConstantExpr struct {
	Sort  Sort
	Bool  bool
	Int   *big.Int
	Real  *big.Rat
	Float float64
}

// NewBoolConstantExpr returns a constant boolean expression.
func NewBoolConstantExpr(value bool) *ConstantExpr {
	return &ConstantExpr{Sort: SortBool, Bool: value}
}

// NewIntConstantExpr returns a constant integer expression.
func NewIntConstantExpr(value int64) *ConstantExpr {
	return &ConstantExpr{Sort: SortInt, Int: big.NewInt(value)}
}

// NewBigIntConstantExpr returns a constant integer expression. The value is copied.
func NewBigIntConstantExpr(value *big.Int) *ConstantExpr {
	return &ConstantExpr{Sort: SortInt, Int: new(big.Int).Set(value)}
}

// NewRealConstantExpr returns a constant rational expression. The value is copied.
func NewRealConstantExpr(value *big.Rat) *ConstantExpr {
	return &ConstantExpr{Sort: SortReal, Real: new(big.Rat).Set(value)}
}

// NewFloatConstantExpr returns a constant float expression.
func NewFloatConstantExpr(value float64) *ConstantExpr {
	return &ConstantExpr{Sort: SortFloat, Float: value}
}

// zeroOf returns the zero constant for a numeric sort.
func zeroOf(sort Sort) *ConstantExpr {
	switch sort {
	case SortInt:
		return NewIntConstantExpr(0)
	case SortReal:
		return NewRealConstantExpr(new(big.Rat))
	case SortFloat:
		return NewFloatConstantExpr(0)
	case SortBool:
		return NewBoolConstantExpr(false)
	default:
		panic("unreachable")
	}
}

// String returns the string representation of the expression.
func (e *ConstantExpr) String() string {
	switch e.Sort {
	case SortBool:
		return strconv.FormatBool(e.Bool)
	case SortInt:
		return e.Int.String()
	case SortReal:
		return e.Real.RatString()
	case SortFloat:
		return formatFloat(e.Float)
	default:
		return fmt.Sprintf("(const %s)", e.Sort)
	}
}

// IsTrue returns true if this is a boolean true expression.
func (e *ConstantExpr) IsTrue() bool {
	return e.Sort == SortBool && e.Bool
}

// IsFalse returns true if this is a boolean false expression.
func (e *ConstantExpr) IsFalse() bool {
	return e.Sort == SortBool && !e.Bool
}

// IsZero returns true if the numeric value is zero. Negative zero is zero.
func (e *ConstantExpr) IsZero() bool {
	switch e.Sort {
	case SortInt:
		return e.Int.Sign() == 0
	case SortReal:
		return e.Real.Sign() == 0
	case SortFloat:
		return e.Float == 0
	default:
		return e.IsFalse()
	}
}

// IsOne returns true if the numeric value is one.
func (e *ConstantExpr) IsOne() bool {
	switch e.Sort {
	case SortInt:
		return e.Int.IsInt64() && e.Int.Int64() == 1
	case SortReal:
		return e.Real.IsInt() && e.Real.Num().IsInt64() && e.Real.Num().Int64() == 1
	case SortFloat:
		return e.Float == 1
	default:
		return e.IsTrue()
	}
}

// Add returns the sum of e and other.
func (e *ConstantExpr) Add(other *ConstantExpr) *ConstantExpr {
	switch e.Sort {
	case SortInt:
		return &ConstantExpr{Sort: SortInt, Int: new(big.Int).Add(e.Int, other.Int)}
	case SortReal:
		return &ConstantExpr{Sort: SortReal, Real: new(big.Rat).Add(e.Real, other.Real)}
	case SortFloat:
		return NewFloatConstantExpr(e.Float + other.Float)
	default:
		panic("unreachable")
	}
}

// Sub returns the difference of e and other.
func (e *ConstantExpr) Sub(other *ConstantExpr) *ConstantExpr {
	switch e.Sort {
	case SortInt:
		return &ConstantExpr{Sort: SortInt, Int: new(big.Int).Sub(e.Int, other.Int)}
	case SortReal:
		return &ConstantExpr{Sort: SortReal, Real: new(big.Rat).Sub(e.Real, other.Real)}
	case SortFloat:
		return NewFloatConstantExpr(e.Float - other.Float)
	default:
		panic("unreachable")
	}
}

// Mul returns the product of e and other.
func (e *ConstantExpr) Mul(other *ConstantExpr) *ConstantExpr {
	switch e.Sort {
	case SortInt:
		return &ConstantExpr{Sort: SortInt, Int: new(big.Int).Mul(e.Int, other.Int)}
	case SortReal:
		return &ConstantExpr{Sort: SortReal, Real: new(big.Rat).Mul(e.Real, other.Real)}
	case SortFloat:
		return NewFloatConstantExpr(e.Float * other.Float)
	default:
		panic("unreachable")
	}
}

// Div returns the true quotient of e and other. Real division by zero panics.
func (e *ConstantExpr) Div(other *ConstantExpr) *ConstantExpr {
	switch e.Sort {
	case SortReal:
		assert(other.Real.Sign() != 0, "div: real division by zero")
		return &ConstantExpr{Sort: SortReal, Real: new(big.Rat).Quo(e.Real, other.Real)}
	case SortFloat:
		return NewFloatConstantExpr(e.Float / other.Float)
	default:
		panic("unreachable")
	}
}

// FloorDiv returns the quotient of e and other, rounded toward negative infinity.
func (e *ConstantExpr) FloorDiv(other *ConstantExpr) *ConstantExpr {
	q, _ := floorDivMod(e.Int, other.Int)
	return &ConstantExpr{Sort: SortInt, Int: q}
}

// Mod returns the remainder of e and other, taking the sign of other.
func (e *ConstantExpr) Mod(other *ConstantExpr) *ConstantExpr {
	_, m := floorDivMod(e.Int, other.Int)
	return &ConstantExpr{Sort: SortInt, Int: m}
}

// floorDivMod returns the floored quotient & modulo of x and y. Panic if y is zero.
func floorDivMod(x, y *big.Int) (q, m *big.Int) {
	assert(y.Sign() != 0, "floordiv: integer division by zero")
	q, m = new(big.Int).QuoRem(x, y, new(big.Int))
	if m.Sign() != 0 && (m.Sign() < 0) != (y.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
		m.Add(m, y)
	}
	return q, m
}

// Neg returns the negation of e.
func (e *ConstantExpr) Neg() *ConstantExpr {
	switch e.Sort {
	case SortInt:
		return &ConstantExpr{Sort: SortInt, Int: new(big.Int).Neg(e.Int)}
	case SortReal:
		return &ConstantExpr{Sort: SortReal, Real: new(big.Rat).Neg(e.Real)}
	case SortFloat:
		return NewFloatConstantExpr(-e.Float)
	default:
		panic("unreachable")
	}
}

// Abs returns the absolute value of e.
func (e *ConstantExpr) Abs() *ConstantExpr {
	switch e.Sort {
	case SortInt:
		return &ConstantExpr{Sort: SortInt, Int: new(big.Int).Abs(e.Int)}
	case SortReal:
		return &ConstantExpr{Sort: SortReal, Real: new(big.Rat).Abs(e.Real)}
	case SortFloat:
		return NewFloatConstantExpr(math.Abs(e.Float))
	default:
		panic("unreachable")
	}
}

// Eq returns the equality of e and other.
func (e *ConstantExpr) Eq(other *ConstantExpr) *ConstantExpr {
	switch e.Sort {
	case SortBool:
		return NewBoolConstantExpr(e.Bool == other.Bool)
	case SortInt:
		return NewBoolConstantExpr(e.Int.Cmp(other.Int) == 0)
	case SortReal:
		return NewBoolConstantExpr(e.Real.Cmp(other.Real) == 0)
	case SortFloat:
		return NewBoolConstantExpr(e.Float == other.Float)
	default:
		panic("unreachable")
	}
}

// Lt returns the less than comparison of e to other.
func (e *ConstantExpr) Lt(other *ConstantExpr) *ConstantExpr {
	switch e.Sort {
	case SortInt:
		return NewBoolConstantExpr(e.Int.Cmp(other.Int) < 0)
	case SortReal:
		return NewBoolConstantExpr(e.Real.Cmp(other.Real) < 0)
	case SortFloat:
		return NewBoolConstantExpr(e.Float < other.Float)
	default:
		panic("unreachable")
	}
}

// Le returns the less than or equal to comparison of e to other.
func (e *ConstantExpr) Le(other *ConstantExpr) *ConstantExpr {
	switch e.Sort {
	case SortInt:
		return NewBoolConstantExpr(e.Int.Cmp(other.Int) <= 0)
	case SortReal:
		return NewBoolConstantExpr(e.Real.Cmp(other.Real) <= 0)
	case SortFloat:
		return NewBoolConstantExpr(e.Float <= other.Float)
	default:
		panic("unreachable")
	}
}

// Cast returns e converted to another sort.
func (e *ConstantExpr) Cast(sort Sort) *ConstantExpr {
	switch e.Sort {
	case SortBool:
		assert(sort == SortInt, "cast: invalid conversion: bool to %s", sort)
		if e.Bool {
			return NewIntConstantExpr(1)
		}
		return NewIntConstantExpr(0)

	case SortInt:
		switch sort {
		case SortReal:
			return &ConstantExpr{Sort: SortReal, Real: new(big.Rat).SetInt(e.Int)}
		case SortFloat:
			f, _ := new(big.Float).SetInt(e.Int).Float64()
			return NewFloatConstantExpr(f)
		}

	case SortReal:
		switch sort {
		case SortInt:
			q, _ := floorDivMod(e.Real.Num(), e.Real.Denom())
			return &ConstantExpr{Sort: SortInt, Int: q}
		case SortFloat:
			f, _ := e.Real.Float64()
			return NewFloatConstantExpr(f)
		}

	case SortFloat:
		assert(!math.IsNaN(e.Float) && !math.IsInf(e.Float, 0), "cast: non-finite float to %s", sort)
		switch sort {
		case SortInt:
			i, _ := new(big.Float).SetFloat64(e.Float).Int(nil)
			return &ConstantExpr{Sort: SortInt, Int: i}
		case SortReal:
			return &ConstantExpr{Sort: SortReal, Real: new(big.Rat).SetFloat64(e.Float)}
		}
	}
	panic(fmt.Sprintf("cast: invalid conversion: %s to %s", e.Sort, sort))
}

// IsConstantExpr returns true if expr is an instance of ConstantExpr.
func IsConstantExpr(expr Expr) bool {
	_, ok := expr.(*ConstantExpr)
	return ok
}

// IsConstantTrue returns true if expr is an instance of ConstantExpr and is true.
func IsConstantTrue(expr Expr) bool {
	v, ok := expr.(*ConstantExpr)
	return ok && v.IsTrue()
}

// IsConstantFalse returns true if expr is an instance of ConstantExpr and is false.
func IsConstantFalse(expr Expr) bool {
	v, ok := expr.(*ConstantExpr)
	return ok && v.IsFalse()
}

// formatFloat formats f so it parses back to the same value.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if _, err := strconv.Atoi(s); err == nil {
		s += ".0"
	}
	return s
}

// CompareExpr returns an integer comparing two expressions.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareExpr(a, b Expr) int {
	if a == b {
		return 0
	} else if a == nil {
		return -1
	} else if b == nil {
		return 1
	}

	// Sort by expression type first.
	if ak, bk := exprKind(a), exprKind(b); ak < bk {
		return -1
	} else if ak > bk {
		return 1
	}

	switch a := a.(type) {
	case *ConstantExpr:
		return compareConstantExpr(a, b.(*ConstantExpr))
	case *VarExpr:
		return compareVarExpr(a, b.(*VarExpr))
	case *SelectExpr:
		return compareSelectExpr(a, b.(*SelectExpr))
	case *NotExpr:
		return CompareExpr(a.Expr, b.(*NotExpr).Expr)
	case *UnaryExpr:
		return compareUnaryExpr(a, b.(*UnaryExpr))
	case *IteExpr:
		return compareIteExpr(a, b.(*IteExpr))
	case *CastExpr:
		return compareCastExpr(a, b.(*CastExpr))
	case *BinaryExpr:
		return compareBinaryExpr(a, b.(*BinaryExpr))
	default:
		panic("unreachable")
	}
}

func compareInt(a, b int) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func compareConstantExpr(a, b *ConstantExpr) int {
	if cmp := compareInt(int(a.Sort), int(b.Sort)); cmp != 0 {
		return cmp
	}

	switch a.Sort {
	case SortBool:
		if a.Bool == b.Bool {
			return 0
		} else if !a.Bool {
			return -1
		}
		return 1
	case SortInt:
		return a.Int.Cmp(b.Int)
	case SortReal:
		return a.Real.Cmp(b.Real)
	case SortFloat:
		// Compare bit patterns so NaN & signed zeros have a stable order.
		if x, y := math.Float64bits(a.Float), math.Float64bits(b.Float); x < y {
			return -1
		} else if x > y {
			return 1
		}
		return 0
	default:
		panic("unreachable")
	}
}

func compareVarExpr(a, b *VarExpr) int {
	if a.Name < b.Name {
		return -1
	} else if a.Name > b.Name {
		return 1
	}
	return compareInt(int(a.Sort), int(b.Sort))
}

func compareSelectExpr(a, b *SelectExpr) int {
	if cmp := CompareArray(a.Array, b.Array); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.Index, b.Index)
}

func compareUnaryExpr(a, b *UnaryExpr) int {
	if cmp := compareInt(int(a.Op), int(b.Op)); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.Expr, b.Expr)
}

func compareIteExpr(a, b *IteExpr) int {
	if cmp := CompareExpr(a.Cond, b.Cond); cmp != 0 {
		return cmp
	} else if cmp := CompareExpr(a.Then, b.Then); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.Else, b.Else)
}

func compareCastExpr(a, b *CastExpr) int {
	if cmp := compareInt(int(a.Sort), int(b.Sort)); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.Src, b.Src)
}

func compareBinaryExpr(a, b *BinaryExpr) int {
	if cmp := compareInt(int(a.Op), int(b.Op)); cmp != 0 {
		return cmp
	}
	if cmp := CompareExpr(a.LHS, b.LHS); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.RHS, b.RHS)
}

// exprKind returns a numeric value for the type of expression.
// Only used internally for equality checks and sorting.
func exprKind(expr Expr) int {
	switch expr.(type) {
	case *ConstantExpr:
		return 1
	case *VarExpr:
		return 2
	case *SelectExpr:
		return 3
	case *NotExpr:
		return 4
	case *UnaryExpr:
		return 5
	case *IteExpr:
		return 6
	case *CastExpr:
		return 7
	case *BinaryExpr:
		return 8
	default:
		panic("unreachable")
	}
}

// ExprVisitor represents a visitor that can be passed to WalkExpr().
type ExprVisitor interface {
	// Executed for every visited node. Return nil to skip the children.
	Visit(expr Expr) ExprVisitor
}

// WalkExpr traverses an expression tree in depth-first order.
func WalkExpr(v ExprVisitor, expr Expr) {
	if v = v.Visit(expr); v == nil {
		return
	}

	switch expr := expr.(type) {
	case *BinaryExpr:
		WalkExpr(v, expr.LHS)
		WalkExpr(v, expr.RHS)
	case *CastExpr:
		WalkExpr(v, expr.Src)
	case *ConstantExpr, *VarExpr:
		// nop
	case *IteExpr:
		WalkExpr(v, expr.Cond)
		WalkExpr(v, expr.Then)
		WalkExpr(v, expr.Else)
	case *NotExpr:
		WalkExpr(v, expr.Expr)
	case *UnaryExpr:
		WalkExpr(v, expr.Expr)
	case *SelectExpr:
		WalkExpr(v, expr.Index)
		for upd := expr.Array.Updates; upd != nil; upd = upd.Next {
			WalkExpr(v, upd.Index)
			WalkExpr(v, upd.Value)
		}
	default:
		panic("unreachable")
	}
}

// FindArrays returns all arrays referenced in the expression trees.
func FindArrays(exprs ...Expr) []*Array {
	v := &symbolExprVisitor{arrays: make(map[uint64]*Array), vars: make(map[string]*VarExpr)}
	for _, expr := range exprs {
		WalkExpr(v, expr)
	}

	a := make([]*Array, 0, len(v.arrays))
	for _, array := range v.arrays {
		a = append(a, array)
	}
	sort.Slice(a, func(i, j int) bool { return a[i].ID < a[j].ID })
	return a
}

// FindVars returns all free variables in the expression trees, sorted by name.
func FindVars(exprs ...Expr) []*VarExpr {
	v := &symbolExprVisitor{arrays: make(map[uint64]*Array), vars: make(map[string]*VarExpr)}
	for _, expr := range exprs {
		WalkExpr(v, expr)
	}

	a := make([]*VarExpr, 0, len(v.vars))
	for _, x := range v.vars {
		a = append(a, x)
	}
	sort.Slice(a, func(i, j int) bool { return a[i].Name < a[j].Name })
	return a
}

type symbolExprVisitor struct {
	arrays map[uint64]*Array
	vars   map[string]*VarExpr
}

func (v *symbolExprVisitor) Visit(expr Expr) ExprVisitor {
	switch expr := expr.(type) {
	case *SelectExpr:
		v.arrays[expr.Array.ID] = expr.Array
	case *VarExpr:
		v.vars[expr.Name] = expr
	}
	return v
}

// ExprEvaluator evaluates expressions under a fixed assignment of variables
// and array contents.
type ExprEvaluator struct {
	vars   map[string]*ConstantExpr
	arrays map[uint64]ArrayValue
}

// ArrayValue is the assignment of an array's contents. Indexes missing from
// Entries take the Default value.
type ArrayValue struct {
	Default *ConstantExpr
	Entries map[string]*ConstantExpr // keyed by index string
}

// NewExprEvaluator returns a new instance of ExprEvaluator.
func NewExprEvaluator(vars map[string]*ConstantExpr, arrays map[uint64]ArrayValue) *ExprEvaluator {
	if vars == nil {
		vars = make(map[string]*ConstantExpr)
	}
	if arrays == nil {
		arrays = make(map[uint64]ArrayValue)
	}
	return &ExprEvaluator{vars: vars, arrays: arrays}
}

// Evaluate evaluates expr to a constant expression.
// Returns an error if an unbound variable or array is encountered.
func (ee *ExprEvaluator) Evaluate(expr Expr) (*ConstantExpr, error) {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr, nil
	case *VarExpr:
		value, ok := ee.vars[expr.Name]
		if !ok {
			return nil, fmt.Errorf("variable not bound: %s", expr.Name)
		}
		return value, nil
	case *BinaryExpr:
		lhs, err := ee.Evaluate(expr.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := ee.Evaluate(expr.RHS)
		if err != nil {
			return nil, err
		}
		if (expr.Op == FLOORDIV || expr.Op == MOD || (expr.Op == DIV && rhs.Sort == SortReal)) && rhs.IsZero() {
			return nil, fmt.Errorf("evaluate: division by zero: %s", expr)
		}
		return NewBinaryExpr(expr.Op, lhs, rhs).(*ConstantExpr), nil
	case *UnaryExpr:
		x, err := ee.Evaluate(expr.Expr)
		if err != nil {
			return nil, err
		}
		return NewUnaryExpr(expr.Op, x).(*ConstantExpr), nil
	case *NotExpr:
		x, err := ee.Evaluate(expr.Expr)
		if err != nil {
			return nil, err
		}
		return NewNotExpr(x).(*ConstantExpr), nil
	case *IteExpr:
		cond, err := ee.Evaluate(expr.Cond)
		if err != nil {
			return nil, err
		} else if cond.IsTrue() {
			return ee.Evaluate(expr.Then)
		}
		return ee.Evaluate(expr.Else)
	case *CastExpr:
		src, err := ee.Evaluate(expr.Src)
		if err != nil {
			return nil, err
		} else if src.Sort == SortFloat && (math.IsNaN(src.Float) || math.IsInf(src.Float, 0)) {
			return nil, fmt.Errorf("evaluate: non-finite cast: %s", expr)
		}
		return src.Cast(expr.Sort), nil
	case *SelectExpr:
		i, err := ee.Evaluate(expr.Index)
		if err != nil {
			return nil, err
		}

		// Return most recent update to given index, if available.
		for upd := expr.Array.Updates; upd != nil; upd = upd.Next {
			index, err := ee.Evaluate(upd.Index)
			if err != nil {
				return nil, err
			} else if index.Int.Cmp(i.Int) != 0 {
				continue
			}
			return ee.Evaluate(upd.Value)
		}

		// Otherwise return the bound contents.
		value, ok := ee.arrays[expr.Array.ID]
		if !ok {
			return nil, fmt.Errorf("array not bound: id=%d", expr.Array.ID)
		} else if v, ok := value.Entries[i.String()]; ok {
			return v, nil
		} else if value.Default == nil {
			return nil, fmt.Errorf("array index not bound: id=%d index=%s", expr.Array.ID, i)
		}
		return value.Default, nil
	default:
		return nil, fmt.Errorf("invalid expression type: %T", expr)
	}
}

// NewSameValueExpr returns an expression that is true when expr is exactly the
// given value. Unlike EQ, floats are compared by identity so NaN matches NaN
// and signed zeros are distinguished.
func NewSameValueExpr(expr Expr, value *ConstantExpr) Expr {
	if value.Sort != SortFloat {
		return NewBinaryExpr(EQ, expr, value)
	}

	switch {
	case math.IsNaN(value.Float):
		return NewUnaryExpr(ISNAN, expr)
	case value.Float == 0:
		// The sign of zero is only observable through division.
		inv := NewBinaryExpr(DIV, NewFloatConstantExpr(1), expr)
		sign := NewBinaryExpr(GT, inv, NewFloatConstantExpr(0))
		if math.Signbit(value.Float) {
			sign = NewBinaryExpr(LT, inv, NewFloatConstantExpr(0))
		}
		return NewBinaryExpr(AND, NewBinaryExpr(EQ, expr, value), sign)
	default:
		return NewBinaryExpr(EQ, expr, value)
	}
}
