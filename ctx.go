package glean

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// errNoEncoding is returned by symbolic handlers for operand combinations that
// have no symbolic encoding. The operation is then realized & run natively.
var errNoEncoding = errors.New("no symbolic encoding")

// ErrBreak may be returned from a ForEach callback to stop iteration early.
var ErrBreak = errors.New("break")

// Ctx is the interception point for every operation performed by an analyzed
// callable. Operations on concrete values run natively. Operations involving a
// symbolic operand are dispatched through per-type handler tables which build
// solver expressions & branch on the path.
//
// A Ctx belongs to a single path attempt and must not be shared.
type Ctx struct {
	space     *StateSpace // nil when running concretely
	heap      *Heap
	initial   *Heap // heap state of the inputs, see Freeze
	intercept bool
	patterns  *PatternCache
	logger    zerolog.Logger
}

// CtxConfig holds optional settings for a Ctx.
type CtxConfig struct {
	Patterns *PatternCache
	Logger   zerolog.Logger
}

// NewCtx returns a Ctx that executes symbolically on space.
func NewCtx(space *StateSpace, config CtxConfig) *Ctx {
	c := &Ctx{
		space:     space,
		heap:      NewHeap(),
		intercept: true,
		patterns:  config.Patterns,
		logger:    config.Logger,
	}
	c.initial = c.heap
	if c.patterns == nil {
		c.patterns = NewPatternCache(DefaultPatternCacheSize)
	}
	return c
}

// NewConcreteCtx returns a Ctx without a state space. Every value must be
// concrete; it is used to replay counterexamples without a solver.
func NewConcreteCtx() *Ctx {
	c := &Ctx{
		heap:     NewHeap(),
		patterns: NewPatternCache(DefaultPatternCacheSize),
		logger:   zerolog.Nop(),
	}
	c.initial = c.heap
	return c
}

// Space returns the state space of the path, or nil for a concrete Ctx.
func (c *Ctx) Space() *StateSpace { return c.space }

// Heap returns the arena holding symbolic containers.
func (c *Ctx) Heap() *Heap { return c.heap }

// IsSymbolic returns true if the Ctx executes symbolically.
func (c *Ctx) IsSymbolic() bool { return c.space != nil }

// Intercepting returns true if symbolic operands are currently dispatched to
// symbolic handlers.
func (c *Ctx) Intercepting() bool { return c.intercept }

// NoIntercept disables interception until the returned func is called.
// While disabled, symbolic operands are realized before running natively.
//
//	defer c.NoIntercept()()
func (c *Ctx) NoIntercept() (restore func()) {
	return c.setIntercept(false)
}

// Intercept re-enables interception until the returned func is called.
func (c *Ctx) Intercept() (restore func()) {
	return c.setIntercept(true)
}

func (c *Ctx) setIntercept(v bool) func() {
	prev := c.intercept
	c.intercept = v
	return func() { c.intercept = prev }
}

// Raise returns a new language-level exception.
func (c *Ctx) Raise(kind *ExceptionType, format string, args ...interface{}) error {
	return NewException(kind, format, args...)
}

// Op is a language-level operator.
type Op int

// Operators.
const (
	OpAdd Op = iota + 1
	OpSub
	OpMul
	OpTrueDiv
	OpFloorDiv
	OpMod
	OpPow
	OpBitAnd
	OpBitOr
	OpBitXor
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpNeg
	OpAbs
)

var opSymbols = [...]string{
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpTrueDiv:  "/",
	OpFloorDiv: "//",
	OpMod:      "%",
	OpPow:      "** or pow()",
	OpBitAnd:   "&",
	OpBitOr:    "|",
	OpBitXor:   "^",
	OpEq:       "==",
	OpNe:       "!=",
	OpLt:       "<",
	OpLe:       "<=",
	OpGt:       ">",
	OpGe:       ">=",
	OpNeg:      "unary -",
	OpAbs:      "abs()",
}

// String returns the operator symbol.
func (op Op) String() string {
	if op > 0 && int(op) < len(opSymbols) {
		return opSymbols[op]
	}
	return fmt.Sprintf("Op<%d>", op)
}

// IsCompare returns true for comparison operators.
func (op Op) IsCompare() bool { return op >= OpEq && op <= OpGe }

// binaryOp returns the expression operation of a comparison operator.
func (op Op) binaryOp() BinaryOp {
	switch op {
	case OpEq:
		return EQ
	case OpNe:
		return NE
	case OpLt:
		return LT
	case OpLe:
		return LE
	case OpGt:
		return GT
	case OpGe:
		return GE
	default:
		panic(fmt.Sprintf("binary op: not a comparison: %s", op))
	}
}

// swap returns the comparison with its operands reversed.
func (op Op) swap() Op {
	switch op {
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	default:
		return op
	}
}

// Method is a method implementation. It handles both concrete & symbolic receivers.
type Method func(c *Ctx, recv Value, args ...Value) (Value, error)

// handlers is the symbolic method table of a type. Nil entries have no
// symbolic encoding and fall back to realization.
type handlers struct {
	binary   func(c *Ctx, op Op, a, b Value) (Value, error)
	unary    func(c *Ctx, op Op, a Value) (Value, error)
	truth    func(c *Ctx, a Value) (bool, error)
	length   func(c *Ctx, a Value) (Value, error)
	getItem  func(c *Ctx, a, key Value) (Value, error)
	slice    func(c *Ctx, a Value, start, stop Value) (Value, error)
	setItem  func(c *Ctx, a, key, value Value) error
	delItem  func(c *Ctx, a, key Value) error
	contains func(c *Ctx, a, item Value) (Value, error)
	iter     func(c *Ctx, a Value) (Iterator, error)
	hash     func(c *Ctx, a Value) (Value, error)
	str      func(c *Ctx, a Value) (Value, error)
}

// dispatch maps each type to its symbolic handlers. It is populated in init
// because handlers refer back to Ctx operations.
var dispatch map[Type]*handlers

// methods maps each type to its methods.
var methods map[Type]map[string]Method

func init() {
	dispatch = map[Type]*handlers{
		TypeBool:  numHandlers,
		TypeInt:   numHandlers,
		TypeFloat: numHandlers,
		TypeStr:   seqHandlers,
		TypeBytes: seqHandlers,
		TypeList:  listHandlers,
		TypeDict:  dictHandlers,
		TypeSet:   setHandlers,
	}
	methods = map[Type]map[string]Method{
		TypeStr:     strMethods,
		TypeBytes:   bytesMethods,
		TypeList:    listMethods,
		TypeDict:    dictMethods,
		TypeSet:     setMethods,
		TypePattern: patternMethods,
		TypeMatch:   matchMethods,
	}
}

// isContainer returns true for types whose binary operators are dispatched on
// the container rather than on a numeric operand.
func isContainer(t Type) bool {
	switch t {
	case TypeStr, TypeBytes, TypeList, TypeDict, TypeSet:
		return true
	}
	return false
}

// binaryKey returns the type whose handlers implement a binary operation.
func binaryKey(a, b Value) Type {
	ta, tb := a.Type(), b.Type()
	if ta.IsNumeric() && tb.IsNumeric() {
		return max(ta, tb)
	} else if isContainer(ta) {
		return ta
	}
	return tb
}

// symbolic returns true if any operand must go through a symbolic handler.
// With interception disabled the operands are realized instead.
func (c *Ctx) symbolic(vals ...Value) bool {
	for _, v := range vals {
		if IsSymbolic(v) {
			return c.intercept
		}
	}
	return false
}

// realizeAll returns concrete copies of vals if any are symbolic.
func (c *Ctx) realizeAll(vals []Value) ([]Value, error) {
	out := make([]Value, len(vals))
	for i, v := range vals {
		r, err := c.Realize(v)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// unsupported records an operation without a symbolic encoding & returns
// the realized operands.
func (c *Ctx) unsupported(op string, vals ...Value) ([]Value, error) {
	if c.space != nil {
		c.space.RecordUnsupported(op)
	}
	return c.realizeAll(vals)
}

// Realize returns a concrete copy of v. Symbolic values are realized & the
// path is committed to their values. Concrete containers holding symbolic
// elements are copied with realized elements.
func (c *Ctx) Realize(v Value) (Value, error) {
	switch v := v.(type) {
	case Symbolic:
		return v.Realize(c)
	case *List:
		items, err := c.realizeAll(v.Items)
		if err != nil {
			return nil, err
		}
		return &List{Items: items}, nil
	case *Dict:
		d := NewDict()
		for i, k := range v.Keys() {
			rk, err := c.Realize(k)
			if err != nil {
				return nil, err
			}
			rv, err := c.Realize(v.Values()[i])
			if err != nil {
				return nil, err
			}
			if err := d.Set(rk, rv); err != nil {
				return nil, err
			}
		}
		return d, nil
	case *Set:
		items, err := c.realizeAll(v.Items())
		if err != nil {
			return nil, err
		}
		return NewSet(items...)
	default:
		return v, nil
	}
}

// Binary applies a binary operator.
func (c *Ctx) Binary(op Op, a, b Value) (Value, error) {
	if op == OpEq || op == OpNe {
		if ok, result := trivialEq(a, b); ok {
			return Bool(result == (op == OpEq)), nil
		}
	}

	if !c.symbolic(a, b) {
		if IsSymbolic(a) || IsSymbolic(b) {
			vals, err := c.realizeAll([]Value{a, b})
			if err != nil {
				return nil, err
			}
			a, b = vals[0], vals[1]
		}
		return nativeBinary(c, op, a, b)
	}

	if h := dispatch[binaryKey(a, b)]; h != nil && h.binary != nil {
		v, err := h.binary(c, op, a, b)
		if err != errNoEncoding {
			return v, err
		}
	}
	vals, err := c.unsupported(op.String(), a, b)
	if err != nil {
		return nil, err
	}
	return nativeBinary(c, op, vals[0], vals[1])
}

// trivialEq decides equality between values whose types can never compare
// equal, without realizing either operand.
func trivialEq(a, b Value) (decided, equal bool) {
	ta, tb := a.Type(), b.Type()
	if ta == tb || (ta.IsNumeric() && tb.IsNumeric()) {
		return false, false
	}
	return true, false
}

// Unary applies a unary operator.
func (c *Ctx) Unary(op Op, a Value) (Value, error) {
	if !c.symbolic(a) {
		r, err := c.Realize(a)
		if err != nil {
			return nil, err
		}
		return nativeUnary(op, r)
	}
	if h := dispatch[a.Type()]; h != nil && h.unary != nil {
		v, err := h.unary(c, op, a)
		if err != errNoEncoding {
			return v, err
		}
	}
	vals, err := c.unsupported(op.String(), a)
	if err != nil {
		return nil, err
	}
	return nativeUnary(op, vals[0])
}

func (c *Ctx) Add(a, b Value) (Value, error)      { return c.Binary(OpAdd, a, b) }
func (c *Ctx) Sub(a, b Value) (Value, error)      { return c.Binary(OpSub, a, b) }
func (c *Ctx) Mul(a, b Value) (Value, error)      { return c.Binary(OpMul, a, b) }
func (c *Ctx) TrueDiv(a, b Value) (Value, error)  { return c.Binary(OpTrueDiv, a, b) }
func (c *Ctx) FloorDiv(a, b Value) (Value, error) { return c.Binary(OpFloorDiv, a, b) }
func (c *Ctx) Mod(a, b Value) (Value, error)      { return c.Binary(OpMod, a, b) }
func (c *Ctx) Pow(a, b Value) (Value, error)      { return c.Binary(OpPow, a, b) }
func (c *Ctx) Eq(a, b Value) (Value, error)       { return c.Binary(OpEq, a, b) }
func (c *Ctx) Ne(a, b Value) (Value, error)       { return c.Binary(OpNe, a, b) }
func (c *Ctx) Lt(a, b Value) (Value, error)       { return c.Binary(OpLt, a, b) }
func (c *Ctx) Le(a, b Value) (Value, error)       { return c.Binary(OpLe, a, b) }
func (c *Ctx) Gt(a, b Value) (Value, error)       { return c.Binary(OpGt, a, b) }
func (c *Ctx) Ge(a, b Value) (Value, error)       { return c.Binary(OpGe, a, b) }
func (c *Ctx) Neg(a Value) (Value, error)         { return c.Unary(OpNeg, a) }
func (c *Ctx) Abs(a Value) (Value, error)         { return c.Unary(OpAbs, a) }

// Truth returns the truthiness of v. A symbolic value branches the path.
func (c *Ctx) Truth(v Value) (bool, error) {
	if !c.symbolic(v) {
		r, err := c.Realize(v)
		if err != nil {
			return false, err
		}
		return nativeTruth(r), nil
	}
	if h := dispatch[v.Type()]; h != nil && h.truth != nil {
		ok, err := h.truth(c, v)
		if err != errNoEncoding {
			return ok, err
		}
	}
	vals, err := c.unsupported("bool()", v)
	if err != nil {
		return false, err
	}
	return nativeTruth(vals[0]), nil
}

// Cond returns the truthiness of the result of an operation. It is shorthand
// for branching on an operation that may fail:
//
//	if ok, err := c.Cond(c.Lt(x, y)); err != nil {
//		return nil, err
//	} else if ok {
//		...
//	}
func (c *Ctx) Cond(v Value, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return c.Truth(v)
}

// Not returns the boolean negation of v.
func (c *Ctx) Not(v Value) (Value, error) {
	if b, ok := v.(*SymbolicBool); ok && c.intercept {
		return newBool(NewNotExpr(b.expr)), nil
	}
	ok, err := c.Truth(v)
	return Bool(!ok), err
}

// Is returns true if a & b are the same object.
func (c *Ctx) Is(a, b Value) bool {
	switch a := a.(type) {
	case NoneType:
		_, ok := b.(NoneType)
		return ok
	case Bool:
		other, ok := b.(Bool)
		return ok && a == other
	case *SymbolicList:
		other, ok := b.(*SymbolicList)
		return ok && a.handle == other.handle && a.heap == other.heap
	case *SymbolicDict:
		other, ok := b.(*SymbolicDict)
		return ok && a.handle == other.handle && a.heap == other.heap
	case *SymbolicSet:
		other, ok := b.(*SymbolicSet)
		return ok && a.handle == other.handle && a.heap == other.heap
	case *List, *Dict, *Set, *SymbolicBool, *SymbolicInt, *SymbolicFloat, *SymbolicStr, *SymbolicBytes, *Pattern, *Match:
		return a == b
	default:
		return false
	}
}

// TypeOf returns the type of v without realizing it.
func (c *Ctx) TypeOf(v Value) Type { return v.Type() }

// IsInstance returns true if v is an instance of t or of a subtype of t.
func (c *Ctx) IsInstance(v Value, t Type) bool { return v.Type().IsSubtype(t) }

// Len returns the length of a sized value.
func (c *Ctx) Len(v Value) (Value, error) {
	if !c.symbolic(v) {
		r, err := c.Realize(v)
		if err != nil {
			return nil, err
		}
		return nativeLen(r)
	}
	if h := dispatch[v.Type()]; h != nil && h.length != nil {
		return h.length(c, v)
	}
	vals, err := c.unsupported("len()", v)
	if err != nil {
		return nil, err
	}
	return nativeLen(vals[0])
}

// GetItem returns v[key].
func (c *Ctx) GetItem(v, key Value) (Value, error) {
	if !c.symbolic(v, key) {
		if !IsSymbolic(v) && !IsSymbolic(key) {
			return nativeGetItem(c, v, key)
		}
		vals, err := c.realizeAll([]Value{v, key})
		if err != nil {
			return nil, err
		}
		return nativeGetItem(c, vals[0], vals[1])
	}

	// Concrete containers accept symbolic keys through their own lookups.
	if !IsSymbolic(v) {
		return nativeGetItem(c, v, key)
	}
	if h := dispatch[v.Type()]; h != nil && h.getItem != nil {
		r, err := h.getItem(c, v, key)
		if err != errNoEncoding {
			return r, err
		}
	}
	vals, err := c.unsupported("getitem", v, key)
	if err != nil {
		return nil, err
	}
	return nativeGetItem(c, vals[0], vals[1])
}

// Slice returns v[start:stop:step]. Nil or None bounds are omitted.
func (c *Ctx) Slice(v Value, start, stop, step Value) (Value, error) {
	start, stop, step = orNone(start), orNone(stop), orNone(step)
	if c.symbolic(v, start, stop, step) && IsSymbolic(v) && isUnitStep(step) {
		if h := dispatch[v.Type()]; h != nil && h.slice != nil {
			r, err := h.slice(c, v, start, stop)
			if err != errNoEncoding {
				return r, err
			}
		}
	}

	vals := []Value{v, start, stop, step}
	var err error
	if IsSymbolic(v) || IsSymbolic(start) || IsSymbolic(stop) || IsSymbolic(step) {
		op := "slice"
		if !c.intercept {
			vals, err = c.realizeAll(vals)
		} else if vals, err = c.unsupported(op, vals...); err != nil {
			return nil, err
		}
		if err != nil {
			return nil, err
		}
	}
	return nativeSlice(c, vals[0], vals[1], vals[2], vals[3])
}

func orNone(v Value) Value {
	if v == nil {
		return None
	}
	return v
}

func isUnitStep(step Value) bool {
	switch step := step.(type) {
	case NoneType:
		return true
	case Int:
		n, ok := step.Int64()
		return ok && n == 1
	}
	return false
}

// SetItem performs v[key] = value.
func (c *Ctx) SetItem(v, key, value Value) error {
	if IsSymbolic(v) {
		if h := dispatch[v.Type()]; h != nil && h.setItem != nil {
			return h.setItem(c, v, key, value)
		}
		return NewException(TypeError, "'%s' object does not support item assignment", v.Type())
	}
	return nativeSetItem(c, v, key, value)
}

// DelItem performs del v[key].
func (c *Ctx) DelItem(v, key Value) error {
	if IsSymbolic(v) {
		if h := dispatch[v.Type()]; h != nil && h.delItem != nil {
			return h.delItem(c, v, key)
		}
		return NewException(TypeError, "'%s' object does not support item deletion", v.Type())
	}
	return nativeDelItem(c, v, key)
}

// Contains returns the result of item in v.
func (c *Ctx) Contains(v, item Value) (Value, error) {
	if !c.symbolic(v, item) {
		vals, err := c.realizeAll([]Value{v, item})
		if err != nil {
			return nil, err
		}
		return nativeContains(c, vals[0], vals[1])
	}
	if !IsSymbolic(v) && v.Type() != TypeStr && v.Type() != TypeBytes {
		return nativeContains(c, v, item)
	}

	key := v.Type()
	if !IsSymbolic(v) {
		key = item.Type()
	}
	if h := dispatch[key]; h != nil && h.contains != nil {
		r, err := h.contains(c, v, item)
		if err != errNoEncoding {
			return r, err
		}
	}
	vals, err := c.unsupported("in", v, item)
	if err != nil {
		return nil, err
	}
	return nativeContains(c, vals[0], vals[1])
}

// Hash returns hash(v).
func (c *Ctx) Hash(v Value) (Value, error) {
	if c.symbolic(v) {
		if h := dispatch[v.Type()]; h != nil && h.hash != nil {
			r, err := h.hash(c, v)
			if err != errNoEncoding {
				return r, err
			}
		}
		if !isHashable(v.Type()) {
			return nil, NewException(TypeError, "unhashable type: '%s'", v.Type())
		}
	}
	vals, err := c.realizeMaybe("hash()", v)
	if err != nil {
		return nil, err
	}
	return nativeHash(vals[0])
}

// Str returns str(v).
func (c *Ctx) Str(v Value) (Value, error) {
	if c.symbolic(v) {
		if h := dispatch[v.Type()]; h != nil && h.str != nil {
			r, err := h.str(c, v)
			if err != errNoEncoding {
				return r, err
			}
		}
	}
	vals, err := c.realizeMaybe("str()", v)
	if err != nil {
		return nil, err
	}
	s, err := nativeStr(vals[0])
	if err != nil {
		return nil, err
	}
	return Str(s), nil
}

// Repr returns repr(v). Symbolic values are realized.
func (c *Ctx) Repr(v Value) (Value, error) {
	if s, ok := v.(*SymbolicStr); ok && c.intercept {
		// Strings without quotes or escapes keep a symbolic repr.
		if r, err := s.repr(c); err != errNoEncoding {
			return r, err
		}
	}
	vals, err := c.realizeMaybe("repr()", v)
	if err != nil {
		return nil, err
	}
	s, err := nativeRepr(vals[0])
	if err != nil {
		return nil, err
	}
	return Str(s), nil
}

// realizeMaybe realizes v for a native operation, recording the fallback if v
// contains symbolic values.
func (c *Ctx) realizeMaybe(op string, vals ...Value) ([]Value, error) {
	for _, v := range vals {
		if containsSymbolic(v) {
			if c.intercept {
				return c.unsupported(op, vals...)
			}
			return c.realizeAll(vals)
		}
	}
	return vals, nil
}

// containsSymbolic returns true if v is symbolic or is a concrete container
// holding symbolic values.
func containsSymbolic(v Value) bool {
	switch v := v.(type) {
	case Symbolic:
		return true
	case *List:
		for _, item := range v.Items {
			if containsSymbolic(item) {
				return true
			}
		}
	case *Dict:
		for i, k := range v.Keys() {
			if containsSymbolic(k) || containsSymbolic(v.Values()[i]) {
				return true
			}
		}
	case *Set:
		for _, item := range v.Items() {
			if containsSymbolic(item) {
				return true
			}
		}
	}
	return false
}

// CallMethod calls the method name on recv.
func (c *Ctx) CallMethod(recv Value, name string, args ...Value) (Value, error) {
	m, ok := methods[recv.Type()][name]
	if !ok {
		return nil, NewException(AttributeError, "'%s' object has no attribute '%s'", recv.Type(), name)
	}
	return m(c, recv, args...)
}

// Iterator produces the items of an iterable one at a time.
type Iterator interface {
	Value

	// Next returns the next item. Returns false when exhausted.
	Next(c *Ctx) (Value, bool, error)
}

// Iter returns an iterator over v.
func (c *Ctx) Iter(v Value) (Iterator, error) {
	if it, ok := v.(Iterator); ok {
		return it, nil
	}
	if IsSymbolic(v) {
		if !c.intercept {
			r, err := c.Realize(v)
			if err != nil {
				return nil, err
			}
			return nativeIter(r)
		}
		if h := dispatch[v.Type()]; h != nil && h.iter != nil {
			return h.iter(c, v)
		}
		vals, err := c.unsupported("iter()", v)
		if err != nil {
			return nil, err
		}
		v = vals[0]
	}
	return nativeIter(v)
}

// ForEach calls fn with each item of v. Iteration stops early without error
// if fn returns ErrBreak.
func (c *Ctx) ForEach(v Value, fn func(item Value) error) error {
	it, err := c.Iter(v)
	if err != nil {
		return err
	}
	for {
		item, ok, err := it.Next(c)
		if err != nil {
			return err
		} else if !ok {
			return nil
		}
		if err := fn(item); err == ErrBreak {
			return nil
		} else if err != nil {
			return err
		}
	}
}

// Items returns every item of v.
func (c *Ctx) Items(v Value) ([]Value, error) {
	var items []Value
	err := c.ForEach(v, func(item Value) error {
		items = append(items, item)
		return nil
	})
	return items, err
}

// sliceIterator iterates over a fixed slice of values.
type sliceIterator struct {
	items []Value
	i     int
}

func (*sliceIterator) Type() Type { return TypeIterator }

func (it *sliceIterator) Next(c *Ctx) (Value, bool, error) {
	if it.i >= len(it.items) {
		return nil, false, nil
	}
	it.i++
	return it.items[it.i-1], true, nil
}

// NewList returns a new list containing items.
func (c *Ctx) NewList(items ...Value) *List { return NewList(items...) }

// NewDict returns a new, empty dict. Symbolic keys are supported when the
// Ctx executes symbolically.
func (c *Ctx) NewDict() Value {
	if c.space == nil {
		return NewDict()
	}
	return c.allocDict(&dictRecord{})
}

// NewSet returns a new set containing items.
func (c *Ctx) NewSet(items ...Value) (Value, error) {
	if c.space == nil {
		return NewSet(items...)
	}
	s := c.allocSet(&setRecord{})
	for _, item := range items {
		if err := s.add(c, item); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Dump returns a human readable description of the path & heap.
func (c *Ctx) Dump() string {
	var s string
	if c.space != nil {
		s = c.space.Dump()
	}
	return s + "\n== HEAP\n" + c.heap.Dump()
}
