package glean

import (
	"fmt"
)

// NewSymbolic returns an unconstrained symbolic value of the given spec.
// Lists without an element spec hold ints.
func (c *Ctx) NewSymbolic(name string, spec TypeSpec) (Value, error) {
	assert(c.space != nil, "new symbolic: concrete context")
	s := c.space

	switch spec.Type {
	case TypeNone:
		return None, nil
	case TypeBool:
		return &SymbolicBool{expr: s.NewVar(name, SortBool)}, nil
	case TypeInt:
		return &SymbolicInt{expr: s.NewVar(name, SortInt)}, nil
	case TypeFloat:
		return &SymbolicFloat{expr: s.NewVar(name, SortFloat)}, nil

	case TypeStr:
		q, err := newSymbolicSeq(s, SortInt, elemCodePoint, name)
		if err != nil {
			return nil, err
		}
		return &SymbolicStr{seq: q}, nil

	case TypeBytes:
		q, err := newSymbolicSeq(s, SortInt, elemByte, name)
		if err != nil {
			return nil, err
		}
		return &SymbolicBytes{seq: q}, nil

	case TypeList:
		elem := IntSpec
		if spec.Elem != nil {
			elem = *spec.Elem
		}
		rec := &listRecord{elem: elem}
		if elem.isScalar() {
			q, err := newSymbolicSeq(s, scalarSort(elem.Type), elemAny, name)
			if err != nil {
				return nil, err
			}
			rec.seq = q
		} else {
			rec.lazy = &lazyItems{name: name, elem: elem}
		}
		return &SymbolicList{heap: c.heap, handle: c.allocFresh(rec)}, nil

	case TypeDict:
		if spec.Elem == nil || spec.Value == nil {
			return nil, fmt.Errorf("%w: dict spec requires key & value types", ErrInternal)
		} else if !isHashable(spec.Elem.Type) {
			return nil, NewException(TypeError, "unhashable type: '%s'", spec.Elem.Type)
		}
		rec := &dictRecord{lazy: &lazyEntries{name: name, key: *spec.Elem, val: spec.Value}}
		return &SymbolicDict{heap: c.heap, handle: c.allocFresh(rec)}, nil

	case TypeSet:
		if spec.Elem == nil {
			return nil, fmt.Errorf("%w: set spec requires an element type", ErrInternal)
		} else if !isHashable(spec.Elem.Type) {
			return nil, NewException(TypeError, "unhashable type: '%s'", spec.Elem.Type)
		}
		rec := &setRecord{lazy: &lazyEntries{name: name, key: *spec.Elem}}
		return &SymbolicSet{heap: c.heap, handle: c.allocFresh(rec)}, nil

	default:
		return nil, fmt.Errorf("%w: cannot create symbolic %s", ErrInternal, spec)
	}
}

// allocFresh stores the record of a newly created symbolic input. Inputs may
// be created lazily after the initial heap was frozen, so the record is also
// stored in the initial heap.
func (c *Ctx) allocFresh(rec interface{}) Handle {
	h := c.heap.Alloc(rec)
	if c.initial != c.heap {
		c.initial.Store(h, rec)
	}
	return h
}

// Freeze records the current heap as the initial state of the inputs. Old
// returns values bound to this state.
func (c *Ctx) Freeze() {
	c.initial = c.heap.Snapshot()
}

// Old returns v as it was when the heap was frozen. Only heap containers
// differ from their current state.
func (c *Ctx) Old(v Value) Value {
	return rebind(v, c.initial)
}

// rebind returns a container proxy addressing the same handle in h.
func rebind(v Value, h *Heap) Value {
	switch v := v.(type) {
	case *SymbolicList:
		if v.heap != h {
			return &SymbolicList{heap: h, handle: v.handle}
		}
	case *SymbolicDict:
		if v.heap != h {
			return &SymbolicDict{heap: h, handle: v.handle}
		}
	case *SymbolicSet:
		if v.heap != h {
			return &SymbolicSet{heap: h, handle: v.handle}
		}
	}
	return v
}

func rebindAll(vals []Value, h *Heap) []Value {
	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = rebind(v, h)
	}
	return out
}

// scalarSort returns the sort of a scalar type.
func scalarSort(t Type) Sort {
	switch t {
	case TypeBool:
		return SortBool
	case TypeInt:
		return SortInt
	case TypeFloat:
		return SortFloat
	}
	panic(fmt.Sprintf("scalar sort: not a scalar: %s", t))
}

// scalarExpr returns the expression of v if it has exactly type t.
func scalarExpr(t Type, v Value) (Expr, bool) {
	if v.Type() != t {
		return nil, false
	}
	return numExpr(v)
}

// eqExpr returns a == b as a boolean expression.
func (c *Ctx) eqExpr(a, b Value) (Expr, error) {
	eq, err := c.Eq(a, b)
	if err != nil {
		return nil, err
	}
	return c.boolOf(eq)
}

// boolOf returns the truth of v as an expression without branching when
// possible.
func (c *Ctx) boolOf(v Value) (Expr, error) {
	if v.Type() == TypeBool {
		return boolExpr(v), nil
	}
	ok, err := c.Truth(v)
	if err != nil {
		return nil, err
	}
	return NewBoolConstantExpr(ok), nil
}
