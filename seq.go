package glean

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// elemKind restricts the values elements of a sequence may take.
type elemKind int

const (
	elemAny       elemKind = iota // no restriction
	elemCodePoint                 // 0 <= c <= 0x10FFFF
	elemByte                      // 0 <= c <= 255
)

// seqPart is a contiguous run of elements. A part is either a window into a
// solver array or a literal list of element expressions.
type seqPart struct {
	array  *Array // element function; nil for literal parts
	offset Expr   // index of the first element within array
	length Expr
	elems  []Expr // literal elements when array is nil
}

func (p seqPart) at(i Expr) Expr {
	if p.array != nil {
		return p.array.Select(NewBinaryExpr(ADD, p.offset, i))
	}
	if c, ok := i.(*ConstantExpr); ok {
		return p.elems[c.Int.Int64()]
	}

	// Select a literal element with a chain of conditions on the index.
	result := p.elems[len(p.elems)-1]
	for j := len(p.elems) - 2; j >= 0; j-- {
		result = NewIteExpr(NewBinaryExpr(EQ, i, NewIntConstantExpr(int64(j))), p.elems[j], result)
	}
	return result
}

// Seq is a symbolic sequence: a symbolic length plus the element functions of
// one or more parts. Slicing & concatenation produce new views over the same
// element functions without materializing elements.
type Seq struct {
	sort  Sort
	kind  elemKind
	parts []seqPart
}

// newSymbolicSeq returns an unconstrained sequence of non-negative length.
func newSymbolicSeq(s *StateSpace, sort Sort, kind elemKind, prefix string) (*Seq, error) {
	length := s.NewVar(prefix+"_len", SortInt)
	if err := s.Assume(NewBinaryExpr(GE, length, NewIntConstantExpr(0))); err != nil {
		return nil, err
	}
	return &Seq{
		sort: sort,
		kind: kind,
		parts: []seqPart{{
			array:  s.NewArray(sort),
			offset: NewIntConstantExpr(0),
			length: length,
		}},
	}, nil
}

// newLiteralSeq returns a sequence of the given element expressions.
func newLiteralSeq(sort Sort, kind elemKind, elems []Expr) *Seq {
	q := &Seq{sort: sort, kind: kind}
	if len(elems) > 0 {
		q.parts = []seqPart{{length: NewIntConstantExpr(int64(len(elems))), elems: elems}}
	}
	return q
}

// newStrSeq returns a literal sequence of the code points of s.
func newStrSeq(s string) *Seq {
	elems := make([]Expr, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		elems = append(elems, NewIntConstantExpr(int64(r)))
	}
	return newLiteralSeq(SortInt, elemCodePoint, elems)
}

// newBytesSeq returns a literal sequence of the bytes of b.
func newBytesSeq(b string) *Seq {
	elems := make([]Expr, len(b))
	for i := 0; i < len(b); i++ {
		elems[i] = NewIntConstantExpr(int64(b[i]))
	}
	return newLiteralSeq(SortInt, elemByte, elems)
}

// String returns a debugging representation of the sequence.
func (q *Seq) String() string {
	var parts []string
	for _, p := range q.parts {
		if p.array != nil {
			parts = append(parts, fmt.Sprintf("%s[%s:+%s]", p.array.Name(), p.offset, p.length))
		} else {
			parts = append(parts, fmt.Sprintf("%v", p.elems))
		}
	}
	return "seq(" + strings.Join(parts, " ++ ") + ")"
}

// Sort returns the sort of the elements.
func (q *Seq) Sort() Sort { return q.sort }

// Len returns the length expression of the sequence.
func (q *Seq) Len() Expr {
	var n Expr = NewIntConstantExpr(0)
	for _, p := range q.parts {
		n = NewBinaryExpr(ADD, n, p.length)
	}
	return n
}

// ConcreteLen returns the length if it is known without the solver.
func (q *Seq) ConcreteLen() (int, bool) {
	c, ok := q.Len().(*ConstantExpr)
	if !ok {
		return 0, false
	}
	return int(c.Int.Int64()), true
}

// at returns the element expression at i. The index must be in bounds.
func (q *Seq) at(i Expr) Expr {
	assert(len(q.parts) > 0, "seq: index into empty sequence")
	if len(q.parts) == 1 {
		return q.parts[0].at(i)
	}

	// Build a chain of conditions selecting the part containing the index.
	var start Expr = NewIntConstantExpr(0)
	type span struct {
		end Expr
		val Expr
	}
	spans := make([]span, len(q.parts))
	for k, p := range q.parts {
		end := NewBinaryExpr(ADD, start, p.length)
		spans[k] = span{end: end, val: p.at(NewBinaryExpr(SUB, i, start))}
		start = end
	}

	result := spans[len(spans)-1].val
	for k := len(spans) - 2; k >= 0; k-- {
		result = NewIteExpr(NewBinaryExpr(LT, i, spans[k].end), spans[k].val, result)
	}
	return result
}

// validElem returns the validity constraint for an element value.
func (q *Seq) validElem(e Expr) Expr {
	switch q.kind {
	case elemCodePoint:
		return NewAndExpr(NewBinaryExpr(GE, e, NewIntConstantExpr(0)), NewBinaryExpr(LE, e, NewIntConstantExpr(0x10FFFF)))
	case elemByte:
		return NewAndExpr(NewBinaryExpr(GE, e, NewIntConstantExpr(0)), NewBinaryExpr(LE, e, NewIntConstantExpr(255)))
	default:
		return NewBoolConstantExpr(true)
	}
}

// At returns the element at i and asserts that the element is valid.
// The index must be in bounds.
func (q *Seq) At(s *StateSpace, i Expr) (Expr, error) {
	e := q.at(i)
	if err := s.Assume(q.validElem(e)); err != nil {
		return nil, err
	}
	return e, nil
}

// Concat returns the concatenation of q and other.
func (q *Seq) Concat(other *Seq) *Seq {
	parts := make([]seqPart, 0, len(q.parts)+len(other.parts))
	parts = append(parts, q.parts...)
	for _, p := range other.parts {
		// Merge adjacent literal parts.
		if n := len(parts); n > 0 && parts[n-1].array == nil && p.array == nil {
			elems := make([]Expr, 0, len(parts[n-1].elems)+len(p.elems))
			elems = append(elems, parts[n-1].elems...)
			elems = append(elems, p.elems...)
			parts[n-1] = seqPart{length: NewIntConstantExpr(int64(len(elems))), elems: elems}
			continue
		}
		parts = append(parts, p)
	}
	return &Seq{sort: q.sort, kind: q.kind, parts: parts}
}

// Append returns q with e added to the end.
func (q *Seq) Append(e Expr) *Seq {
	return q.Concat(newLiteralSeq(q.sort, q.kind, []Expr{e}))
}

// Store returns q with the element at i replaced by e. The index must be in bounds.
func (q *Seq) Store(s *StateSpace, i, e Expr) (*Seq, error) {
	if len(q.parts) == 1 && q.parts[0].array != nil {
		p := q.parts[0]
		p.array = p.array.Store(NewBinaryExpr(ADD, p.offset, i), e)
		return &Seq{sort: q.sort, kind: q.kind, parts: []seqPart{p}}, nil
	}

	// Otherwise rebuild the sequence around the index.
	n := NewBinaryExpr(ADD, i, NewIntConstantExpr(1))
	head, err := q.Slice(s, NewIntConstantExpr(0), i)
	if err != nil {
		return nil, err
	}
	tail, err := q.Slice(s, n, q.Len())
	if err != nil {
		return nil, err
	}
	return head.Append(e).Concat(tail), nil
}

// Slice returns the elements in [start, stop). Bounds must satisfy
// 0 <= start <= stop <= len.
//
// A window into a single part stays symbolic. Slicing across parts realizes
// the part lengths & the bounds.
func (q *Seq) Slice(s *StateSpace, start, stop Expr) (*Seq, error) {
	length := NewBinaryExpr(SUB, stop, start)
	if IsConstantExpr(length) && length.(*ConstantExpr).IsZero() {
		return &Seq{sort: q.sort, kind: q.kind}, nil
	}

	if len(q.parts) == 1 {
		p := q.parts[0]
		if p.array != nil {
			return &Seq{sort: q.sort, kind: q.kind, parts: []seqPart{{
				array:  p.array,
				offset: NewBinaryExpr(ADD, p.offset, start),
				length: length,
			}}}, nil
		}
	}

	// Realize the bounds & part lengths so windows can be computed per part.
	lo, err := s.Realize(start)
	if err != nil {
		return nil, err
	}
	hi, err := s.Realize(stop)
	if err != nil {
		return nil, err
	}
	a, b := lo.Int.Int64(), hi.Int.Int64()

	other := &Seq{sort: q.sort, kind: q.kind}
	var pos int64
	for _, p := range q.parts {
		n, err := s.Realize(p.length)
		if err != nil {
			return nil, err
		}
		plen := n.Int.Int64()
		from, to := max(a-pos, 0), min(b-pos, plen)
		pos += plen
		if from >= to {
			continue
		}

		if p.array != nil {
			other.parts = append(other.parts, seqPart{
				array:  p.array,
				offset: NewBinaryExpr(ADD, p.offset, NewIntConstantExpr(from)),
				length: NewIntConstantExpr(to - from),
			})
		} else {
			other = other.Concat(newLiteralSeq(q.sort, q.kind, p.elems[from:to]))
		}
	}
	return other, nil
}

// RealizeLen returns the length as a concrete int, committing the path to it.
func (q *Seq) RealizeLen(s *StateSpace) (int, error) {
	if n, ok := q.ConcreteLen(); ok {
		return n, nil
	}
	n, err := s.Realize(q.Len())
	if err != nil {
		return 0, err
	}
	return int(n.Int.Int64()), nil
}

// Elems returns the element expressions after realizing the length.
func (q *Seq) Elems(s *StateSpace) ([]Expr, error) {
	n, err := q.RealizeLen(s)
	if err != nil {
		return nil, err
	}
	elems := make([]Expr, n)
	for i := range elems {
		if elems[i], err = q.At(s, NewIntConstantExpr(int64(i))); err != nil {
			return nil, err
		}
	}
	return elems, nil
}

// Realize returns concrete values for every element.
func (q *Seq) Realize(s *StateSpace) ([]*ConstantExpr, error) {
	elems, err := q.Elems(s)
	if err != nil {
		return nil, err
	}
	values := make([]*ConstantExpr, len(elems))
	for i, e := range elems {
		if values[i], err = s.Realize(e); err != nil {
			return nil, err
		}
	}
	return values, nil
}

// Equal returns an expression that is true if q & other hold the same elements.
// Differing lengths are decided by a branch; equal lengths are realized.
func (q *Seq) Equal(s *StateSpace, other *Seq) (Expr, error) {
	sameLen, err := s.Choose(NewBinaryExpr(EQ, q.Len(), other.Len()))
	if err != nil {
		return nil, err
	} else if !sameLen {
		return NewBoolConstantExpr(false), nil
	}

	a, err := q.Elems(s)
	if err != nil {
		return nil, err
	}
	b, err := other.Elems(s)
	if err != nil {
		return nil, err
	}

	conds := make([]Expr, len(a))
	for i := range a {
		conds[i] = NewBinaryExpr(EQ, a[i], b[i])
	}
	return NewAndExpr(conds...), nil
}

// Less returns an expression that is true if q sorts before other in
// lexicographic order. When orEqual is set, equal sequences also compare true.
func (q *Seq) Less(s *StateSpace, other *Seq, orEqual bool) (Expr, error) {
	a, err := q.Elems(s)
	if err != nil {
		return nil, err
	}
	b, err := other.Elems(s)
	if err != nil {
		return nil, err
	}

	// Build from the end: at each position the result is decided by the
	// first unequal element, or by the lengths if one is a prefix.
	var tail Expr = NewBoolConstantExpr(len(a) < len(b) || (orEqual && len(a) == len(b)))
	for i := min(len(a), len(b)) - 1; i >= 0; i-- {
		tail = NewIteExpr(NewBinaryExpr(EQ, a[i], b[i]), tail, NewBinaryExpr(LT, a[i], b[i]))
	}
	return tail, nil
}

// HasPrefixAt returns an expression that is true if needle occurs in q at pos.
// The needle must fit, that is pos+len(needle) <= len(q).
func (q *Seq) HasPrefixAt(s *StateSpace, needle []Expr, pos Expr) (Expr, error) {
	conds := make([]Expr, len(needle))
	for j, e := range needle {
		elem, err := q.At(s, NewBinaryExpr(ADD, pos, NewIntConstantExpr(int64(j))))
		if err != nil {
			return nil, err
		}
		conds[j] = NewBinaryExpr(EQ, elem, e)
	}
	return NewAndExpr(conds...), nil
}
