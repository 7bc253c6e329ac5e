package glean

import (
	"fmt"
)

// Array represents a solver array from integer indexes to values of a single
// sort. Arrays back the element functions of symbolic sequences.
type Array struct {
	ID      uint64       // unique id
	Range   Sort         // sort of the elements
	Updates *ArrayUpdate // linked list of symbolic updates
}

// NewArray returns a new, unconstrained Array with elements of the given sort.
func NewArray(id uint64, rng Sort) *Array {
	return &Array{
		ID:    id,
		Range: rng,
	}
}

// Name returns the solver symbol name of the array.
func (a *Array) Name() string {
	return fmt.Sprintf("arr%d", a.ID)
}

// String returns a string representation of the array.
func (a *Array) String() string {
	if a.Updates == nil {
		return a.Name()
	}

	s := a.Name()
	for upd := a.Updates; upd != nil; upd = upd.Next {
		s = fmt.Sprintf("(store %s %s %s)", s, upd.Index, upd.Value)
	}
	return s
}

// Clone returns a copy of the array.
func (a *Array) Clone() *Array {
	return &Array{
		ID:      a.ID,
		Range:   a.Range,
		Updates: a.Updates,
	}
}

// Select reads a value from the array.
//
// Attempts to find a concrete value by traversing the array update history.
// Falls back to a select expression if either the selected index or an update's
// index is symbolic.
func (a *Array) Select(index Expr) Expr {
	assert(ExprSort(index) == SortInt, "select: invalid array index sort: %s", ExprSort(index))
	for upd := a.Updates; upd != nil; upd = upd.Next {
		cond, ok := NewBinaryExpr(EQ, index, upd.Index).(*ConstantExpr)
		if !ok {
			break // found symbolic index, exit
		} else if cond.IsTrue() {
			return upd.Value
		}
	}
	return NewSelectExpr(a, index)
}

// Store writes a value at an index. Returns a new copy of the array.
func (a *Array) Store(index, value Expr) *Array {
	assert(ExprSort(index) == SortInt, "store: invalid array index sort: %s", ExprSort(index))
	assert(ExprSort(value) == a.Range, "store: invalid value sort: %s != %s", ExprSort(value), a.Range)

	other := a.Clone()

	// Add update to the head of the chain.
	other.Updates = NewArrayUpdate(index, value, nil)

	// Copy the previous chain, dropping earlier writes to the same concrete
	// index. Updates are shared between copies so they are never modified.
	prev := other.Updates
	for upd := a.Updates; upd != nil; upd = upd.Next {
		if cond, ok := NewBinaryExpr(EQ, index, upd.Index).(*ConstantExpr); ok && cond.IsTrue() {
			continue
		}
		prev.Next = NewArrayUpdate(upd.Index, upd.Value, nil)
		prev = prev.Next
	}
	return other
}

// CompareArray returns an integer comparing two arrays.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareArray(a, b *Array) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == nil && b == nil {
		return 0
	}

	if a.ID < b.ID {
		return -1
	} else if a.ID > b.ID {
		return 1
	}

	if a.Range < b.Range {
		return -1
	} else if a.Range > b.Range {
		return 1
	}

	return CompareArrayUpdate(a.Updates, b.Updates)
}

// ArrayUpdate represents a symbolic update to an array.
type ArrayUpdate struct {
	Index Expr // integer index of update
	Value Expr // value written

	Next *ArrayUpdate // linked list of next update
}

// NewArrayUpdate returns a new instance of ArrayUpdate.
func NewArrayUpdate(index, value Expr, next *ArrayUpdate) *ArrayUpdate {
	return &ArrayUpdate{
		Index: index,
		Value: value,
		Next:  next,
	}
}

// CompareArrayUpdate returns an integer comparing two array updates.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareArrayUpdate(a, b *ArrayUpdate) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == nil && b == nil {
		return 0
	}

	if cmp := CompareExpr(a.Index, b.Index); cmp != 0 {
		return cmp
	} else if cmp := CompareExpr(a.Value, b.Value); cmp != 0 {
		return cmp
	}
	return CompareArrayUpdate(a.Next, b.Next)
}
