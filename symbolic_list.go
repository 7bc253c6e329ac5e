package glean

import (
	"fmt"
)

// SymbolicList is a list stored in a heap. Copies of the proxy alias the
// same list, as references to a native list do.
type SymbolicList struct {
	heap   *Heap
	handle Handle
}

func (*SymbolicList) Type() Type { return TypeList }

func (l *SymbolicList) String() string { return fmt.Sprintf("list#%d", l.handle) }

// Realize returns a concrete list of realized items.
func (l *SymbolicList) Realize(c *Ctx) (Value, error) {
	items, err := l.items(c)
	if err != nil {
		return nil, err
	}
	if items, err = c.realizeAll(items); err != nil {
		return nil, err
	}
	return &List{Items: items}, nil
}

// listRecord is the contents of a list. Lists whose items are all scalars of
// the element type are held as a sequence with a symbolic length. Other lists
// hold their items, created on first use for inputs.
type listRecord struct {
	elem  TypeSpec
	seq   *Seq
	lazy  *lazyItems
	items []Value
}

// lazyItems creates the items of an input list on first use. The live &
// initial records share it so both observe the same items.
type lazyItems struct {
	name  string
	elem  TypeSpec
	done  bool
	items []Value
}

func (z *lazyItems) get(c *Ctx) ([]Value, error) {
	if z.done {
		return z.items, nil
	}

	n := c.space.NewVar(z.name+"_len", SortInt)
	if err := c.space.Assume(NewBinaryExpr(GE, n, NewIntConstantExpr(0))); err != nil {
		return nil, err
	}
	k, err := c.space.Realize(n)
	if err != nil {
		return nil, err
	}

	items := make([]Value, k.Int.Int64())
	for i := range items {
		if items[i], err = c.NewSymbolic(fmt.Sprintf("%s_%d", z.name, i), z.elem); err != nil {
			return nil, err
		}
	}
	z.items, z.done = items, true
	return items, nil
}

func (c *Ctx) allocList(rec *listRecord) *SymbolicList {
	return &SymbolicList{heap: c.heap, handle: c.heap.Alloc(rec)}
}

// newListValue returns a list holding items. Symbolic contexts produce a heap
// list so that later operations stay symbolic.
func (c *Ctx) newListValue(elem TypeSpec, items []Value) Value {
	if c.space == nil {
		return NewList(items...)
	}
	return c.allocList(packList(elem, items))
}

// packList returns a record for items, as a sequence when every item is a
// scalar of the element type.
func packList(elem TypeSpec, items []Value) *listRecord {
	if elem.isScalar() {
		elems := make([]Expr, len(items))
		for i, item := range items {
			e, ok := scalarExpr(elem.Type, item)
			if !ok {
				return &listRecord{elem: elem, items: items}
			}
			elems[i] = e
		}
		return &listRecord{elem: elem, seq: newLiteralSeq(scalarSort(elem.Type), elemAny, elems)}
	}
	return &listRecord{elem: elem, items: items}
}

func (l *SymbolicList) load() *listRecord { return l.heap.Load(l.handle).(*listRecord) }

func (l *SymbolicList) store(rec *listRecord) { l.heap.Store(l.handle, rec) }

// items returns a copy of the items, realizing the length of a sequence.
func (l *SymbolicList) items(c *Ctx) ([]Value, error) {
	rec := l.load()
	switch {
	case rec.seq != nil:
		elems, err := rec.seq.Elems(c.space)
		if err != nil {
			return nil, err
		}
		items := make([]Value, len(elems))
		for i, e := range elems {
			items[i] = wrapScalar(rec.elem.Type, e)
		}
		return items, nil

	case rec.lazy != nil:
		items, err := rec.lazy.get(c)
		if err != nil {
			return nil, err
		}
		return rebindAll(items, l.heap), nil

	default:
		return rebindAll(rec.items, l.heap), nil
	}
}

func (l *SymbolicList) setItems(items []Value) {
	l.store(packList(l.load().elem, items))
}

// wrapScalar wraps a sequence element as a value of type t.
func wrapScalar(t Type, e Expr) Value {
	switch t {
	case TypeBool:
		return newBool(e)
	case TypeInt:
		return newInt(e)
	default:
		return newFloat(e)
	}
}

// listSeqOf returns the sequence of a list whose items are all scalars of one
// type.
func listSeqOf(v Value) (*Seq, Type, bool) {
	switch v := v.(type) {
	case *SymbolicList:
		rec := v.load()
		if rec.seq == nil {
			return nil, 0, false
		}
		return rec.seq, rec.elem.Type, true
	case *List:
		if len(v.Items) == 0 {
			return nil, 0, false
		}
		t := v.Items[0].Type()
		if !t.IsNumeric() {
			return nil, 0, false
		}
		rec := packList(TypeSpec{Type: t}, v.Items)
		if rec.seq == nil {
			return nil, 0, false
		}
		return rec.seq, t, true
	}
	return nil, 0, false
}

// listItems returns the items of a concrete or symbolic list.
func (c *Ctx) listItems(v Value) ([]Value, error) {
	switch v := v.(type) {
	case *List:
		return v.Items, nil
	case *SymbolicList:
		return v.items(c)
	}
	return nil, NewException(TypeError, "'%s' object is not a list", v.Type())
}

// listElem returns the element spec of a list value.
func listElem(v Value) TypeSpec {
	if l, ok := v.(*SymbolicList); ok {
		return l.load().elem
	}
	return TypeSpec{Type: TypeNone}
}

var listHandlers = &handlers{
	binary:   listBinary,
	truth:    listTruth,
	length:   listLen,
	getItem:  listGetItem,
	slice:    listSlice,
	setItem:  listSetItem,
	delItem:  listDelItem,
	contains: listContains,
	iter:     listIter,
	str:      listStr,
}

func listBinary(c *Ctx, op Op, a, b Value) (Value, error) {
	switch op {
	case OpAdd:
		if b.Type() != TypeList {
			return nil, NewException(TypeError, "can only concatenate list (not \"%s\") to list", b.Type())
		}
		if qa, ta, ok := listSeqOf(a); ok {
			if qb, tb, ok := listSeqOf(b); ok && ta == tb {
				return c.allocList(&listRecord{elem: TypeSpec{Type: ta}, seq: qa.Concat(qb)}), nil
			}
		}
		ia, err := c.listItems(a)
		if err != nil {
			return nil, err
		}
		ib, err := c.listItems(b)
		if err != nil {
			return nil, err
		}
		items := append(append([]Value{}, ia...), ib...)
		return c.newListValue(listElem(a), items), nil

	case OpMul:
		list, count := a, b
		if a.Type() != TypeList {
			list, count = b, a
		}
		n, ok := intExpr(count)
		if !ok {
			return nil, NewException(TypeError, "can't multiply sequence by non-int of type '%s'", count.Type())
		}
		k, err := c.space.Realize(n)
		if err != nil {
			return nil, err
		}
		items, err := c.listItems(list)
		if err != nil {
			return nil, err
		}
		var out []Value
		for i := int64(0); i < k.Int.Int64(); i++ {
			out = append(out, items...)
		}
		return c.newListValue(listElem(list), out), nil

	case OpEq, OpNe:
		eq, err := listEq(c, a, b)
		if err != nil || op == OpEq {
			return eq, err
		}
		return c.Not(eq)

	case OpLt, OpLe, OpGt, OpGe:
		if a.Type() != TypeList || b.Type() != TypeList {
			return nil, binaryTypeError(op, a, b)
		}
		ia, err := c.listItems(a)
		if err != nil {
			return nil, err
		}
		ib, err := c.listItems(b)
		if err != nil {
			return nil, err
		}
		return compareItems(c, op, ia, ib)

	default:
		return nil, binaryTypeError(op, a, b)
	}
}

func listEq(c *Ctx, a, b Value) (Value, error) {
	if qa, ta, ok := listSeqOf(a); ok {
		if qb, tb, ok := listSeqOf(b); ok && ta == tb && ta != TypeFloat {
			e, err := qa.Equal(c.space, qb)
			if err != nil {
				return nil, err
			}
			return newBool(e), nil
		}
	}

	ia, err := c.listItems(a)
	if err != nil {
		return nil, err
	}
	ib, err := c.listItems(b)
	if err != nil {
		return nil, err
	} else if len(ia) != len(ib) {
		return Bool(false), nil
	}
	eqs := make([]Value, len(ia))
	for i := range ia {
		if eqs[i], err = c.Eq(ia[i], ib[i]); err != nil {
			return nil, err
		}
	}
	return andValues(eqs), nil
}

func listTruth(c *Ctx, v Value) (bool, error) {
	n, err := listLen(c, v)
	if err != nil {
		return false, err
	}
	return c.Truth(n)
}

func listLen(c *Ctx, v Value) (Value, error) {
	l := v.(*SymbolicList)
	if rec := l.load(); rec.seq != nil {
		return newInt(rec.seq.Len()), nil
	}
	items, err := l.items(c)
	if err != nil {
		return nil, err
	}
	return NewInt(int64(len(items))), nil
}

func listIndexError(key Value) error {
	return NewException(TypeError, "list indices must be integers or slices, not %s", key.Type())
}

func listGetItem(c *Ctx, v, key Value) (Value, error) {
	l := v.(*SymbolicList)
	i, ok := intExpr(key)
	if !ok {
		return nil, listIndexError(key)
	}

	if rec := l.load(); rec.seq != nil {
		idx, err := c.normalizeIndex(i, rec.seq.Len(), "list index out of range")
		if err != nil {
			return nil, err
		}
		e, err := rec.seq.At(c.space, idx)
		if err != nil {
			return nil, err
		}
		return wrapScalar(rec.elem.Type, e), nil
	}

	items, err := l.items(c)
	if err != nil {
		return nil, err
	}
	return listGetItemSymbolic(c, &List{Items: items}, key)
}

// listIndex returns the realized position selected by an index into n items.
func (c *Ctx) listIndex(key Value, n int, msg string) (int, error) {
	i, ok := intExpr(key)
	if !ok {
		return 0, listIndexError(key)
	}
	idx, err := c.normalizeIndex(i, NewIntConstantExpr(int64(n)), msg)
	if err != nil {
		return 0, err
	}
	k, err := c.space.Realize(idx)
	if err != nil {
		return 0, err
	}
	return int(k.Int.Int64()), nil
}

func listSlice(c *Ctx, v Value, start, stop Value) (Value, error) {
	l := v.(*SymbolicList)
	rec := l.load()
	if rec.seq != nil {
		lo, hi, err := sliceBounds(start, stop, rec.seq.Len())
		if err != nil {
			return nil, err
		}
		q, err := rec.seq.Slice(c.space, lo, hi)
		if err != nil {
			return nil, err
		}
		return c.allocList(&listRecord{elem: rec.elem, seq: q}), nil
	}

	items, err := l.items(c)
	if err != nil {
		return nil, err
	}
	lo, hi, err := sliceBounds(start, stop, NewIntConstantExpr(int64(len(items))))
	if err != nil {
		return nil, err
	}
	a, err := c.space.Realize(lo)
	if err != nil {
		return nil, err
	}
	b, err := c.space.Realize(hi)
	if err != nil {
		return nil, err
	}
	out := append([]Value{}, items[a.Int.Int64():b.Int.Int64()]...)
	return c.allocList(&listRecord{elem: rec.elem, items: out}), nil
}

func listSetItem(c *Ctx, v, key, value Value) error {
	l := v.(*SymbolicList)
	i, ok := intExpr(key)
	if !ok {
		return listIndexError(key)
	}

	if rec := l.load(); rec.seq != nil {
		if e, ok := scalarExpr(rec.elem.Type, value); ok {
			idx, err := c.normalizeIndex(i, rec.seq.Len(), "list assignment index out of range")
			if err != nil {
				return err
			}
			q, err := rec.seq.Store(c.space, idx, e)
			if err != nil {
				return err
			}
			l.store(&listRecord{elem: rec.elem, seq: q})
			return nil
		}
	}

	items, err := l.items(c)
	if err != nil {
		return err
	}
	k, err := c.listIndex(key, len(items), "list assignment index out of range")
	if err != nil {
		return err
	}
	items[k] = value
	l.setItems(items)
	return nil
}

// seqDelete returns q without the element at idx, which must be in bounds.
func seqDelete(c *Ctx, q *Seq, idx Expr) (*Seq, error) {
	head, err := q.Slice(c.space, NewIntConstantExpr(0), idx)
	if err != nil {
		return nil, err
	}
	tail, err := q.Slice(c.space, NewBinaryExpr(ADD, idx, NewIntConstantExpr(1)), q.Len())
	if err != nil {
		return nil, err
	}
	return head.Concat(tail), nil
}

func listDelItem(c *Ctx, v, key Value) error {
	l := v.(*SymbolicList)
	i, ok := intExpr(key)
	if !ok {
		return listIndexError(key)
	}

	if rec := l.load(); rec.seq != nil {
		idx, err := c.normalizeIndex(i, rec.seq.Len(), "list assignment index out of range")
		if err != nil {
			return err
		}
		q, err := seqDelete(c, rec.seq, idx)
		if err != nil {
			return err
		}
		l.store(&listRecord{elem: rec.elem, seq: q})
		return nil
	}

	items, err := l.items(c)
	if err != nil {
		return err
	}
	k, err := c.listIndex(key, len(items), "list assignment index out of range")
	if err != nil {
		return err
	}
	l.setItems(append(items[:k:k], items[k+1:]...))
	return nil
}

func listContains(c *Ctx, v, item Value) (Value, error) {
	items, err := v.(*SymbolicList).items(c)
	if err != nil {
		return nil, err
	}
	return containsScan(c, items, item)
}

// symbolicListIterator iterates over a heap list, observing changes made
// during iteration. Each step over a sequence branches on its length.
type symbolicListIterator struct {
	list *SymbolicList
	i    int64
}

func (*symbolicListIterator) Type() Type { return TypeIterator }

func (it *symbolicListIterator) Next(c *Ctx) (Value, bool, error) {
	rec := it.list.load()
	if rec.seq != nil {
		i := NewIntConstantExpr(it.i)
		if ok, err := c.space.Choose(NewBinaryExpr(LT, i, rec.seq.Len())); err != nil || !ok {
			return nil, false, err
		}
		e, err := rec.seq.At(c.space, i)
		if err != nil {
			return nil, false, err
		}
		it.i++
		return wrapScalar(rec.elem.Type, e), true, nil
	}

	items, err := it.list.items(c)
	if err != nil {
		return nil, false, err
	} else if it.i >= int64(len(items)) {
		return nil, false, nil
	}
	it.i++
	return items[it.i-1], true, nil
}

func listIter(c *Ctx, v Value) (Iterator, error) {
	return &symbolicListIterator{list: v.(*SymbolicList)}, nil
}

func listStr(c *Ctx, v Value) (Value, error) {
	items, err := v.(*SymbolicList).items(c)
	if err != nil {
		return nil, err
	}
	return c.reprItems("[", "]", items)
}

// reprItems formats items between open & close, keeping symbolic item
// representations symbolic.
func (c *Ctx) reprItems(open, close string, items []Value) (Value, error) {
	parts := make([]*Seq, len(items))
	for i, item := range items {
		r, err := c.Repr(item)
		if err != nil {
			return nil, err
		}
		parts[i], _ = seqOf(r)
	}
	body, _ := seqOf(strJoin(TypeStr, newStrSeq(", "), parts))
	return newStr(newStrSeq(open).Concat(body).Concat(newStrSeq(close))), nil
}

var listMethods = map[string]Method{
	"append":  listAppend,
	"extend":  listExtend,
	"insert":  listInsert,
	"pop":     listPop,
	"remove":  listRemove,
	"index":   listIndexOf,
	"count":   listCount,
	"reverse": listReverse,
	"sort":    listSort,
	"copy":    listCopy,
	"clear":   listClear,
}

// putItems replaces the items of a list.
func putItems(v Value, items []Value) {
	switch v := v.(type) {
	case *List:
		v.Items = items
	case *SymbolicList:
		v.setItems(items)
	}
}

func listAppend(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("append", args, 1, 1); err != nil {
		return nil, err
	}
	switch l := recv.(type) {
	case *List:
		l.Items = append(l.Items, args[0])
		return None, nil
	case *SymbolicList:
		rec := l.load()
		if rec.seq != nil {
			if e, ok := scalarExpr(rec.elem.Type, args[0]); ok {
				l.store(&listRecord{elem: rec.elem, seq: rec.seq.Append(e)})
				return None, nil
			}
		}
		items, err := l.items(c)
		if err != nil {
			return nil, err
		}
		l.setItems(append(items, args[0]))
	}
	return None, nil
}

func listExtend(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("extend", args, 1, 1); err != nil {
		return nil, err
	}
	if l, ok := recv.(*SymbolicList); ok {
		if qa, ta, ok := listSeqOf(l); ok {
			if qb, tb, ok := listSeqOf(args[0]); ok && ta == tb {
				l.store(&listRecord{elem: l.load().elem, seq: qa.Concat(qb)})
				return None, nil
			}
		}
	}

	more, err := c.Items(args[0])
	if err != nil {
		return nil, err
	}
	for _, item := range more {
		if _, err := listAppend(c, recv, item); err != nil {
			return nil, err
		}
	}
	return None, nil
}

func listInsert(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("insert", args, 2, 2); err != nil {
		return nil, err
	}
	if _, ok := intExpr(args[0]); !ok {
		return nil, NewException(TypeError, "'%s' object cannot be interpreted as an integer", args[0].Type())
	}

	if l, ok := recv.(*SymbolicList); ok {
		if rec := l.load(); rec.seq != nil {
			if e, ok := scalarExpr(rec.elem.Type, args[1]); ok {
				n := rec.seq.Len()
				pos, err := sliceBound(args[0], NewIntConstantExpr(0), n)
				if err != nil {
					return nil, err
				}
				head, err := rec.seq.Slice(c.space, NewIntConstantExpr(0), pos)
				if err != nil {
					return nil, err
				}
				tail, err := rec.seq.Slice(c.space, pos, n)
				if err != nil {
					return nil, err
				}
				l.store(&listRecord{elem: rec.elem, seq: head.Append(e).Concat(tail)})
				return None, nil
			}
		}
	}

	items, err := c.listItems(recv)
	if err != nil {
		return nil, err
	}
	pos, err := c.clampIndex(args[0], len(items))
	if err != nil {
		return nil, err
	}
	out := append(append(append([]Value{}, items[:pos]...), args[1]), items[pos:]...)
	putItems(recv, out)
	return None, nil
}

// clampIndex returns an insertion position clamped into [0, n].
func (c *Ctx) clampIndex(v Value, n int) (int, error) {
	if !IsSymbolic(v) {
		i, err := indexValue(v, "list")
		if err != nil {
			return 0, err
		}
		if i < 0 {
			i = max(i+n, 0)
		}
		return min(i, n), nil
	}
	pos, err := sliceBound(v, NewIntConstantExpr(0), NewIntConstantExpr(int64(n)))
	if err != nil {
		return 0, err
	}
	k, err := c.space.Realize(pos)
	if err != nil {
		return 0, err
	}
	return int(k.Int.Int64()), nil
}

func listPop(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("pop", args, 0, 1); err != nil {
		return nil, err
	}
	var key Value = NewInt(-1)
	if len(args) == 1 {
		key = args[0]
	}

	if l, ok := recv.(*SymbolicList); ok {
		if rec := l.load(); rec.seq != nil {
			i, ok := intExpr(key)
			if !ok {
				return nil, NewException(TypeError, "'%s' object cannot be interpreted as an integer", key.Type())
			}
			n := rec.seq.Len()
			if empty, err := c.space.Choose(NewBinaryExpr(EQ, n, NewIntConstantExpr(0))); err != nil {
				return nil, err
			} else if empty {
				return nil, NewException(IndexError, "pop from empty list")
			}
			idx, err := c.normalizeIndex(i, n, "pop index out of range")
			if err != nil {
				return nil, err
			}
			e, err := rec.seq.At(c.space, idx)
			if err != nil {
				return nil, err
			}
			q, err := seqDelete(c, rec.seq, idx)
			if err != nil {
				return nil, err
			}
			l.store(&listRecord{elem: rec.elem, seq: q})
			return wrapScalar(rec.elem.Type, e), nil
		}
	}

	items, err := c.listItems(recv)
	if err != nil {
		return nil, err
	} else if len(items) == 0 {
		return nil, NewException(IndexError, "pop from empty list")
	}
	var k int
	if IsSymbolic(key) {
		if k, err = c.listIndex(key, len(items), "pop index out of range"); err != nil {
			return nil, err
		}
	} else {
		i, err := indexValue(key, "list")
		if err != nil {
			return nil, err
		}
		var ok bool
		if k, ok = normalize(i, len(items)); !ok {
			return nil, NewException(IndexError, "pop index out of range")
		}
	}
	item := items[k]
	putItems(recv, append(items[:k:k], items[k+1:]...))
	return item, nil
}

// findItem returns the position of the first item equal to x at or after
// start, or -1.
func (c *Ctx) findItem(items []Value, x Value, start int) (int, error) {
	for i := start; i < len(items); i++ {
		if eq, err := c.Cond(c.Eq(items[i], x)); err != nil {
			return 0, err
		} else if eq {
			return i, nil
		}
	}
	return -1, nil
}

func listRemove(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("remove", args, 1, 1); err != nil {
		return nil, err
	}
	items, err := c.listItems(recv)
	if err != nil {
		return nil, err
	}
	k, err := c.findItem(items, args[0], 0)
	if err != nil {
		return nil, err
	} else if k < 0 {
		return nil, NewException(ValueError, "list.remove(x): x not in list")
	}
	putItems(recv, append(items[:k:k], items[k+1:]...))
	return None, nil
}

func listIndexOf(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("index", args, 1, 2); err != nil {
		return nil, err
	}
	items, err := c.listItems(recv)
	if err != nil {
		return nil, err
	}
	start := 0
	if len(args) == 2 {
		if start, err = c.clampIndex(args[1], len(items)); err != nil {
			return nil, err
		}
	}
	k, err := c.findItem(items, args[0], start)
	if err != nil {
		return nil, err
	} else if k < 0 {
		r, err := c.Realize(args[0])
		if err != nil {
			return nil, err
		}
		s, err := nativeRepr(r)
		if err != nil {
			return nil, err
		}
		return nil, NewException(ValueError, "%s is not in list", s)
	}
	return NewInt(int64(k)), nil
}

func listCount(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("count", args, 1, 1); err != nil {
		return nil, err
	}
	items, err := c.listItems(recv)
	if err != nil {
		return nil, err
	}
	var sum Expr = NewIntConstantExpr(0)
	for _, item := range items {
		eq, err := c.Eq(item, args[0])
		if err != nil {
			return nil, err
		}
		e, err := c.boolOf(eq)
		if err != nil {
			return nil, err
		}
		sum = NewBinaryExpr(ADD, sum, NewCastExpr(e, SortInt))
	}
	return newInt(sum), nil
}

func listReverse(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("reverse", args, 0, 0); err != nil {
		return nil, err
	}
	items, err := c.listItems(recv)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	putItems(recv, out)
	return None, nil
}

func listSort(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("sort", args, 0, 1); err != nil {
		return nil, err
	}
	reverse := false
	if len(args) == 1 {
		r, err := c.Truth(args[0])
		if err != nil {
			return nil, err
		}
		reverse = r
	}
	items, err := c.listItems(recv)
	if err != nil {
		return nil, err
	}
	sorted, err := c.sortItems(items, nil, reverse)
	if err != nil {
		return nil, err
	}
	putItems(recv, sorted)
	return None, nil
}

func listCopy(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("copy", args, 0, 0); err != nil {
		return nil, err
	}
	switch l := recv.(type) {
	case *List:
		return NewList(append([]Value{}, l.Items...)...), nil
	default:
		rec := *recv.(*SymbolicList).load()
		return c.allocList(&rec), nil
	}
}

func listClear(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("clear", args, 0, 0); err != nil {
		return nil, err
	}
	putItems(recv, nil)
	return None, nil
}
