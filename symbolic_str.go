package glean

import (
	"strings"
)

// SymbolicStr is a string of code points described by a symbolic sequence.
type SymbolicStr struct {
	seq *Seq
}

func (*SymbolicStr) Type() Type { return TypeStr }

// Seq returns the underlying sequence.
func (s *SymbolicStr) Seq() *Seq { return s.seq }

func (s *SymbolicStr) String() string { return s.seq.String() }

// Realize returns the concrete string on the current path.
func (s *SymbolicStr) Realize(c *Ctx) (Value, error) {
	elems, err := s.seq.Realize(c.space)
	if err != nil {
		return nil, err
	}
	runes := make([]rune, len(elems))
	for i, e := range elems {
		runes[i] = rune(e.Int.Int64())
	}
	return Str(runes), nil
}

// repr quotes the string symbolically when it holds only printable ASCII
// characters that need no escaping.
func (s *SymbolicStr) repr(c *Ctx) (Value, error) {
	elems, err := s.seq.Elems(c.space)
	if err != nil {
		return nil, err
	}
	conds := make([]Expr, len(elems))
	for i, e := range elems {
		conds[i] = NewAndExpr(
			NewBinaryExpr(GE, e, NewIntConstantExpr(0x20)),
			NewBinaryExpr(LT, e, NewIntConstantExpr(0x7f)),
			NewBinaryExpr(NE, e, NewIntConstantExpr('\'')),
			NewBinaryExpr(NE, e, NewIntConstantExpr('\\')),
		)
	}
	if ok, err := c.space.Choose(NewAndExpr(conds...)); err != nil {
		return nil, err
	} else if !ok {
		return nil, errNoEncoding
	}
	quote := newStrSeq("'")
	return newStr(quote.Concat(newLiteralSeq(SortInt, elemCodePoint, elems)).Concat(quote)), nil
}

// SymbolicBytes is a byte string described by a symbolic sequence.
type SymbolicBytes struct {
	seq *Seq
}

func (*SymbolicBytes) Type() Type { return TypeBytes }

// Seq returns the underlying sequence.
func (b *SymbolicBytes) Seq() *Seq { return b.seq }

func (b *SymbolicBytes) String() string { return b.seq.String() }

// Realize returns the concrete bytes on the current path.
func (b *SymbolicBytes) Realize(c *Ctx) (Value, error) {
	elems, err := b.seq.Realize(c.space)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, len(elems))
	for i, e := range elems {
		buf[i] = byte(e.Int.Int64())
	}
	return Bytes(buf), nil
}

// newStr returns a str value over q. Sequences of constant elements produce
// a concrete Str.
func newStr(q *Seq) Value {
	if elems, ok := seqLiteral(q); ok {
		runes := make([]rune, len(elems))
		for i, e := range elems {
			runes[i] = rune(e)
		}
		return Str(runes)
	}
	return &SymbolicStr{seq: q}
}

// newBytes returns a bytes value over q.
func newBytes(q *Seq) Value {
	if elems, ok := seqLiteral(q); ok {
		buf := make([]byte, len(elems))
		for i, e := range elems {
			buf[i] = byte(e)
		}
		return Bytes(buf)
	}
	return &SymbolicBytes{seq: q}
}

// newSeqValue wraps q as a value of type t.
func newSeqValue(t Type, q *Seq) Value {
	if t == TypeBytes {
		return newBytes(q)
	}
	return newStr(q)
}

// seqLiteral returns the elements of q if they are all constants.
func seqLiteral(q *Seq) ([]int64, bool) {
	var out []int64
	for _, p := range q.parts {
		if p.array != nil {
			return nil, false
		}
		for _, e := range p.elems {
			c, ok := e.(*ConstantExpr)
			if !ok {
				return nil, false
			}
			out = append(out, c.Int.Int64())
		}
	}
	return out, true
}

// seqOf returns the sequence of a str or bytes value.
func seqOf(v Value) (*Seq, bool) {
	switch v := v.(type) {
	case Str:
		return newStrSeq(string(v)), true
	case Bytes:
		return newBytesSeq(string(v)), true
	case *SymbolicStr:
		return v.seq, true
	case *SymbolicBytes:
		return v.seq, true
	}
	return nil, false
}

var seqHandlers = &handlers{
	binary:   seqBinary,
	truth:    seqTruth,
	length:   seqLen,
	getItem:  seqGetItem,
	slice:    seqSlice,
	contains: seqContains,
	iter:     seqIter,
	str:      seqStr,
}

func seqTypeError(op Op, a, b Value) error {
	if op == OpAdd {
		switch a.Type() {
		case TypeStr:
			return NewException(TypeError, "can only concatenate str (not \"%s\") to str", b.Type())
		case TypeBytes:
			return NewException(TypeError, "can't concat %s to bytes", b.Type())
		}
	}
	return binaryTypeError(op, a, b)
}

func seqBinary(c *Ctx, op Op, a, b Value) (Value, error) {
	qa, aok := seqOf(a)
	qb, bok := seqOf(b)
	same := aok && bok && a.Type() == b.Type()

	switch op {
	case OpAdd:
		if same {
			return newSeqValue(a.Type(), qa.Concat(qb)), nil
		}

	case OpMul:
		q, t, count := qa, a.Type(), b
		if !aok {
			q, t, count = qb, b.Type(), a
		}
		n, ok := intExpr(count)
		if !ok {
			return nil, NewException(TypeError, "can't multiply sequence by non-int of type '%s'", count.Type())
		}
		k, err := c.space.Realize(n)
		if err != nil {
			return nil, err
		}
		out := newLiteralSeq(q.sort, q.kind, nil)
		for i := int64(0); i < k.Int.Int64(); i++ {
			out = out.Concat(q)
		}
		return newSeqValue(t, out), nil

	case OpEq, OpNe:
		eq, err := qa.Equal(c.space, qb)
		if err != nil {
			return nil, err
		} else if op == OpNe {
			eq = NewNotExpr(eq)
		}
		return newBool(eq), nil

	case OpLt, OpLe, OpGt, OpGe:
		if !same {
			break
		}
		var e Expr
		var err error
		switch op {
		case OpLt:
			e, err = qa.Less(c.space, qb, false)
		case OpLe:
			e, err = qa.Less(c.space, qb, true)
		case OpGt:
			e, err = qb.Less(c.space, qa, false)
		case OpGe:
			e, err = qb.Less(c.space, qa, true)
		}
		if err != nil {
			return nil, err
		}
		return newBool(e), nil

	case OpMod:
		if a.Type() == TypeStr {
			return nil, errNoEncoding
		}
	}
	return nil, seqTypeError(op, a, b)
}

func seqTruth(c *Ctx, v Value) (bool, error) {
	q, _ := seqOf(v)
	return c.space.Choose(NewBinaryExpr(GT, q.Len(), NewIntConstantExpr(0)))
}

func seqLen(c *Ctx, v Value) (Value, error) {
	q, _ := seqOf(v)
	return newInt(q.Len()), nil
}

// normalizeIndex adjusts a possibly negative index into a sequence of length
// n. The out of range branch raises IndexError with msg.
func (c *Ctx) normalizeIndex(i, n Expr, msg string) (Expr, error) {
	zero := NewIntConstantExpr(0)
	idx := NewIteExpr(NewBinaryExpr(LT, i, zero), NewBinaryExpr(ADD, i, n), i)
	inRange := NewAndExpr(NewBinaryExpr(LE, zero, idx), NewBinaryExpr(LT, idx, n))
	if ok, err := c.space.Choose(inRange); err != nil {
		return nil, err
	} else if !ok {
		return nil, NewException(IndexError, msg)
	}
	return idx, nil
}

func seqGetItem(c *Ctx, v, key Value) (Value, error) {
	q, _ := seqOf(v)
	i, ok := intExpr(key)
	if !ok {
		if v.Type() == TypeBytes {
			return nil, NewException(TypeError, "byte indices must be integers or slices, not %s", key.Type())
		}
		return nil, NewException(TypeError, "string indices must be integers, not '%s'", key.Type())
	}

	msg := "string index out of range"
	if v.Type() == TypeBytes {
		msg = "index out of range"
	}
	idx, err := c.normalizeIndex(i, q.Len(), msg)
	if err != nil {
		return nil, err
	}
	e, err := q.At(c.space, idx)
	if err != nil {
		return nil, err
	}
	if v.Type() == TypeBytes {
		return newInt(e), nil
	}
	return newStr(newLiteralSeq(SortInt, elemCodePoint, []Expr{e})), nil
}

func minExpr(a, b Expr) Expr { return NewIteExpr(NewBinaryExpr(LE, a, b), a, b) }
func maxExpr(a, b Expr) Expr { return NewIteExpr(NewBinaryExpr(GE, a, b), a, b) }

// sliceBound clamps a slice bound into [0, n]. None selects def.
func sliceBound(v Value, def, n Expr) (Expr, error) {
	if v == nil || v.Type() == TypeNone {
		return def, nil
	}
	e, ok := intExpr(v)
	if !ok {
		return nil, NewException(TypeError, "slice indices must be integers or None or have an __index__ method")
	}
	zero := NewIntConstantExpr(0)
	return NewIteExpr(NewBinaryExpr(LT, e, zero), maxExpr(NewBinaryExpr(ADD, e, n), zero), minExpr(e, n)), nil
}

// sliceBounds returns the clamped [start, stop) window of a unit step slice.
func sliceBounds(start, stop Value, n Expr) (Expr, Expr, error) {
	lo, err := sliceBound(start, NewIntConstantExpr(0), n)
	if err != nil {
		return nil, nil, err
	}
	hi, err := sliceBound(stop, n, n)
	if err != nil {
		return nil, nil, err
	}
	return lo, maxExpr(hi, lo), nil
}

func seqSlice(c *Ctx, v Value, start, stop Value) (Value, error) {
	q, _ := seqOf(v)
	lo, hi, err := sliceBounds(start, stop, q.Len())
	if err != nil {
		return nil, err
	}
	out, err := q.Slice(c.space, lo, hi)
	if err != nil {
		return nil, err
	}
	return newSeqValue(v.Type(), out), nil
}

// seqFind returns the index of the first occurrence of needle in hay at or
// after start, or -1. The lengths of both sequences are realized; the
// position stays symbolic. With last set the final occurrence is returned.
func seqFind(c *Ctx, hay, needle *Seq, start Expr, last bool) (Expr, error) {
	h, err := hay.Elems(c.space)
	if err != nil {
		return nil, err
	}
	nd, err := needle.Elems(c.space)
	if err != nil {
		return nil, err
	}

	var result Expr = NewIntConstantExpr(-1)
	check := func(pos int) {
		conds := []Expr{NewBinaryExpr(GE, NewIntConstantExpr(int64(pos)), start)}
		for j := range nd {
			conds = append(conds, NewBinaryExpr(EQ, h[pos+j], nd[j]))
		}
		result = NewIteExpr(NewAndExpr(conds...), NewIntConstantExpr(int64(pos)), result)
	}
	if last {
		for pos := 0; pos <= len(h)-len(nd); pos++ {
			check(pos)
		}
	} else {
		for pos := len(h) - len(nd); pos >= 0; pos-- {
			check(pos)
		}
	}
	return result, nil
}

func seqContains(c *Ctx, v, item Value) (Value, error) {
	hay, _ := seqOf(v)
	if needle, ok := seqOf(item); ok && item.Type() == v.Type() {
		idx, err := seqFind(c, hay, needle, NewIntConstantExpr(0), false)
		if err != nil {
			return nil, err
		}
		return newBool(NewBinaryExpr(GE, idx, NewIntConstantExpr(0))), nil
	}

	if v.Type() == TypeStr {
		return nil, NewException(TypeError, "'in <string>' requires string as left operand, not %s", item.Type())
	}
	e, ok := intExpr(item)
	if !ok {
		return nil, NewException(TypeError, "a bytes-like object is required, not '%s'", item.Type())
	}
	inRange := NewAndExpr(NewBinaryExpr(GE, e, NewIntConstantExpr(0)), NewBinaryExpr(LE, e, NewIntConstantExpr(255)))
	if ok, err := c.space.Choose(inRange); err != nil {
		return nil, err
	} else if !ok {
		return nil, NewException(ValueError, "byte must be in range(0, 256)")
	}
	elems, err := hay.Elems(c.space)
	if err != nil {
		return nil, err
	}
	eqs := make([]Expr, len(elems))
	for i, x := range elems {
		eqs[i] = NewBinaryExpr(EQ, x, e)
	}
	return newBool(NewOrExpr(eqs...)), nil
}

// seqIterator yields the elements of a sequence. Each step branches on
// whether the sequence has another element.
type seqIterator struct {
	seq *Seq
	t   Type
	i   int64
}

func (*seqIterator) Type() Type { return TypeIterator }

func (it *seqIterator) Next(c *Ctx) (Value, bool, error) {
	i := NewIntConstantExpr(it.i)
	if ok, err := c.space.Choose(NewBinaryExpr(LT, i, it.seq.Len())); err != nil || !ok {
		return nil, false, err
	}
	e, err := it.seq.At(c.space, i)
	if err != nil {
		return nil, false, err
	}
	it.i++
	if it.t == TypeBytes {
		return newInt(e), true, nil
	}
	return newStr(newLiteralSeq(SortInt, elemCodePoint, []Expr{e})), true, nil
}

func seqIter(c *Ctx, v Value) (Iterator, error) {
	q, _ := seqOf(v)
	return &seqIterator{seq: q, t: v.Type()}, nil
}

func seqStr(c *Ctx, v Value) (Value, error) {
	if v.Type() == TypeStr {
		return v, nil
	}
	return nil, errNoEncoding
}

// strJoin concatenates parts with sep between each.
func strJoin(t Type, sep *Seq, parts []*Seq) Value {
	out := newLiteralSeq(sep.sort, sep.kind, nil)
	for i, p := range parts {
		if i > 0 {
			out = out.Concat(sep)
		}
		out = out.Concat(p)
	}
	return newSeqValue(t, out)
}

// isASCIIExpr returns a condition that every element is below 0x80.
func isASCIIExpr(elems []Expr) Expr {
	conds := make([]Expr, len(elems))
	for i, e := range elems {
		conds[i] = NewBinaryExpr(LT, e, NewIntConstantExpr(0x80))
	}
	return NewAndExpr(conds...)
}

func inRangeExpr(e Expr, lo, hi rune) Expr {
	return NewAndExpr(
		NewBinaryExpr(GE, e, NewIntConstantExpr(int64(lo))),
		NewBinaryExpr(LE, e, NewIntConstantExpr(int64(hi))),
	)
}

// asciiClass returns the membership condition of an ASCII character class
// named by a str predicate method.
func asciiClass(name string, e Expr) Expr {
	switch name {
	case "isdigit":
		return inRangeExpr(e, '0', '9')
	case "isalpha":
		return NewOrExpr(inRangeExpr(e, 'a', 'z'), inRangeExpr(e, 'A', 'Z'))
	case "isalnum":
		return NewOrExpr(inRangeExpr(e, 'a', 'z'), inRangeExpr(e, 'A', 'Z'), inRangeExpr(e, '0', '9'))
	case "isspace":
		return NewOrExpr(inRangeExpr(e, '\t', '\r'), inRangeExpr(e, 0x1c, ' '))
	case "islower":
		return inRangeExpr(e, 'a', 'z')
	case "isupper":
		return inRangeExpr(e, 'A', 'Z')
	default:
		panic("ascii class: unknown predicate: " + name)
	}
}

// caseMap maps ASCII letters of e to the given case.
func caseMap(e Expr, upper bool) Expr {
	if upper {
		return NewIteExpr(inRangeExpr(e, 'a', 'z'), NewBinaryExpr(SUB, e, NewIntConstantExpr(32)), e)
	}
	return NewIteExpr(inRangeExpr(e, 'A', 'Z'), NewBinaryExpr(ADD, e, NewIntConstantExpr(32)), e)
}

// predicateStr applies a native str predicate to s.
func predicateStr(name, s string) bool {
	if s == "" {
		return false
	}
	var cased bool
	for _, r := range s {
		switch name {
		case "isdigit":
			if !isDigitRune(r) {
				return false
			}
		case "isalpha":
			if !isAlphaRune(r) {
				return false
			}
		case "isalnum":
			if !isAlphaRune(r) && !isDigitRune(r) && !isNumericRune(r) {
				return false
			}
		case "isspace":
			if !isSpaceRune(r) {
				return false
			}
		case "islower":
			if isUpperRune(r) {
				return false
			}
			cased = cased || isLowerRune(r)
		case "isupper":
			if isLowerRune(r) {
				return false
			}
			cased = cased || isUpperRune(r)
		}
	}
	if name == "islower" || name == "isupper" {
		return cased
	}
	return true
}

// splitWhitespace splits s on runs of whitespace, at most maxsplit times.
func splitWhitespace(s string, maxsplit int) []string {
	var out []string
	i := 0
	runes := []rune(s)
	for {
		for i < len(runes) && isSpaceRune(runes[i]) {
			i++
		}
		if i >= len(runes) {
			return out
		}
		if maxsplit >= 0 && len(out) == maxsplit {
			out = append(out, strings.TrimRightFunc(string(runes[i:]), isSpaceRune))
			return out
		}
		j := i
		for j < len(runes) && !isSpaceRune(runes[j]) {
			j++
		}
		out = append(out, string(runes[i:j]))
		i = j
	}
}
