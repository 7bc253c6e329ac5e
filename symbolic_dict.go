package glean

import (
	"fmt"
)

// SymbolicDict is a dict stored in a heap. Its present keys are distinct
// values compared by an ordered equality scan, so keys may be symbolic.
type SymbolicDict struct {
	heap   *Heap
	handle Handle
}

func (*SymbolicDict) Type() Type { return TypeDict }

func (d *SymbolicDict) String() string { return fmt.Sprintf("dict#%d", d.handle) }

// Realize returns a concrete dict of realized entries.
func (d *SymbolicDict) Realize(c *Ctx) (Value, error) {
	keys, vals, err := d.entries(c)
	if err != nil {
		return nil, err
	}
	out := NewDict()
	for i := range keys {
		k, err := c.Realize(keys[i])
		if err != nil {
			return nil, err
		}
		v, err := c.Realize(vals[i])
		if err != nil {
			return nil, err
		}
		if err := out.Set(k, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type dictRecord struct {
	lazy *lazyEntries
	keys []Value
	vals []Value
}

// lazyEntries creates the entries of an input dict or set on first use. The
// number of entries is realized; keys are assumed pairwise distinct.
type lazyEntries struct {
	name string
	key  TypeSpec
	val  *TypeSpec // nil for sets
	done bool
	keys []Value
	vals []Value
}

func (z *lazyEntries) get(c *Ctx) ([]Value, []Value, error) {
	if z.done {
		return z.keys, z.vals, nil
	}

	n := c.space.NewVar(z.name+"_len", SortInt)
	if err := c.space.Assume(NewBinaryExpr(GE, n, NewIntConstantExpr(0))); err != nil {
		return nil, nil, err
	}
	k, err := c.space.Realize(n)
	if err != nil {
		return nil, nil, err
	}

	keys := make([]Value, k.Int.Int64())
	var vals []Value
	if z.val != nil {
		vals = make([]Value, len(keys))
	}
	for i := range keys {
		key, err := c.NewSymbolic(fmt.Sprintf("%s_k%d", z.name, i), z.key)
		if err != nil {
			return nil, nil, err
		}
		for _, prev := range keys[:i] {
			eq, err := c.eqExpr(prev, key)
			if err != nil {
				return nil, nil, err
			} else if err := c.space.Assume(NewNotExpr(eq)); err != nil {
				return nil, nil, err
			}
		}
		keys[i] = key

		if z.val != nil {
			if vals[i], err = c.NewSymbolic(fmt.Sprintf("%s_v%d", z.name, i), *z.val); err != nil {
				return nil, nil, err
			}
		}
	}
	z.keys, z.vals, z.done = keys, vals, true
	return keys, vals, nil
}

func (c *Ctx) allocDict(rec *dictRecord) *SymbolicDict {
	return &SymbolicDict{heap: c.heap, handle: c.heap.Alloc(rec)}
}

func (d *SymbolicDict) load() *dictRecord { return d.heap.Load(d.handle).(*dictRecord) }

// entries returns copies of the keys & values in insertion order.
func (d *SymbolicDict) entries(c *Ctx) (keys, vals []Value, err error) {
	rec := d.load()
	keys, vals = rec.keys, rec.vals
	if rec.lazy != nil {
		if keys, vals, err = rec.lazy.get(c); err != nil {
			return nil, nil, err
		}
	}
	return rebindAll(keys, d.heap), rebindAll(vals, d.heap), nil
}

func (d *SymbolicDict) setEntries(keys, vals []Value) {
	d.heap.Store(d.handle, &dictRecord{keys: keys, vals: vals})
}

// find returns the position of key among keys, or -1. Each comparison with
// a possibly equal key is a branch.
func (c *Ctx) find(keys []Value, key Value) (int, error) {
	if !isHashable(key.Type()) {
		return 0, NewException(TypeError, "unhashable type: '%s'", key.Type())
	}
	return c.findItem(keys, key, 0)
}

// dictEntries returns the entries of a concrete or symbolic dict.
func (c *Ctx) dictEntries(v Value) (keys, vals []Value, err error) {
	switch v := v.(type) {
	case *Dict:
		return v.Keys(), v.Values(), nil
	case *SymbolicDict:
		return v.entries(c)
	}
	return nil, nil, NewException(TypeError, "'%s' object is not a mapping", v.Type())
}

var dictHandlers = &handlers{
	binary:   dictBinary,
	truth:    dictTruth,
	length:   dictLen,
	getItem:  dictGetItem,
	setItem:  dictSetItem,
	delItem:  dictDelItem,
	contains: dictContains,
	iter:     dictIter,
	str:      dictStr,
}

func dictBinary(c *Ctx, op Op, a, b Value) (Value, error) {
	if a.Type() != TypeDict || b.Type() != TypeDict {
		return nil, binaryTypeError(op, a, b)
	}
	ka, va, err := c.dictEntries(a)
	if err != nil {
		return nil, err
	}
	kb, vb, err := c.dictEntries(b)
	if err != nil {
		return nil, err
	}

	switch op {
	case OpEq, OpNe:
		eq, err := entriesEq(c, ka, va, kb, vb)
		if err != nil || op == OpEq {
			return eq, err
		}
		return c.Not(eq)

	case OpBitOr:
		out := c.allocDict(&dictRecord{keys: append([]Value{}, ka...), vals: append([]Value{}, va...)})
		for i := range kb {
			if err := dictSetItem(c, out, kb[i], vb[i]); err != nil {
				return nil, err
			}
		}
		return out, nil

	default:
		return nil, binaryTypeError(op, a, b)
	}
}

// entriesEq compares two sets of distinct keys with their values. Each key of
// a must equal some key of b with an equal value.
func entriesEq(c *Ctx, ka, va, kb, vb []Value) (Value, error) {
	if len(ka) != len(kb) {
		return Bool(false), nil
	}
	conds := make([]Expr, len(ka))
	for i := range ka {
		var alts []Expr
		for j := range kb {
			keq, err := c.eqExpr(ka[i], kb[j])
			if err != nil {
				return nil, err
			} else if IsConstantFalse(keq) {
				continue
			}
			veq := Expr(NewBoolConstantExpr(true))
			if va != nil {
				if veq, err = c.eqExpr(va[i], vb[j]); err != nil {
					return nil, err
				}
			}
			alts = append(alts, NewAndExpr(keq, veq))
		}
		conds[i] = NewOrExpr(alts...)
	}
	return newBool(NewAndExpr(conds...)), nil
}

func dictTruth(c *Ctx, v Value) (bool, error) {
	keys, _, err := v.(*SymbolicDict).entries(c)
	return len(keys) > 0, err
}

func dictLen(c *Ctx, v Value) (Value, error) {
	keys, _, err := v.(*SymbolicDict).entries(c)
	if err != nil {
		return nil, err
	}
	return NewInt(int64(len(keys))), nil
}

func dictGetItem(c *Ctx, v, key Value) (Value, error) {
	keys, vals, err := v.(*SymbolicDict).entries(c)
	if err != nil {
		return nil, err
	}
	i, err := c.find(keys, key)
	if err != nil {
		return nil, err
	} else if i < 0 {
		r, err := c.Realize(key)
		if err != nil {
			return nil, err
		}
		return nil, keyError(r)
	}
	return vals[i], nil
}

func dictSetItem(c *Ctx, v, key, value Value) error {
	d := v.(*SymbolicDict)
	keys, vals, err := d.entries(c)
	if err != nil {
		return err
	}
	i, err := c.find(keys, key)
	if err != nil {
		return err
	} else if i >= 0 {
		vals[i] = value
	} else {
		keys, vals = append(keys, key), append(vals, value)
	}
	d.setEntries(keys, vals)
	return nil
}

func dictDelItem(c *Ctx, v, key Value) error {
	d := v.(*SymbolicDict)
	keys, vals, err := d.entries(c)
	if err != nil {
		return err
	}
	i, err := c.find(keys, key)
	if err != nil {
		return err
	} else if i < 0 {
		r, err := c.Realize(key)
		if err != nil {
			return err
		}
		return keyError(r)
	}
	d.setEntries(append(keys[:i:i], keys[i+1:]...), append(vals[:i:i], vals[i+1:]...))
	return nil
}

func dictContains(c *Ctx, v, item Value) (Value, error) {
	if !isHashable(item.Type()) {
		return nil, NewException(TypeError, "unhashable type: '%s'", item.Type())
	}
	keys, _, err := v.(*SymbolicDict).entries(c)
	if err != nil {
		return nil, err
	}
	return containsScan(c, keys, item)
}

// symbolicDictIterator iterates over the keys of a heap dict.
type symbolicDictIterator struct {
	dict *SymbolicDict
	n    int
	i    int
}

func (*symbolicDictIterator) Type() Type { return TypeIterator }

func (it *symbolicDictIterator) Next(c *Ctx) (Value, bool, error) {
	keys, _, err := it.dict.entries(c)
	if err != nil {
		return nil, false, err
	} else if len(keys) != it.n {
		return nil, false, NewException(RuntimeError, "dictionary changed size during iteration")
	} else if it.i >= it.n {
		return nil, false, nil
	}
	it.i++
	return keys[it.i-1], true, nil
}

func dictIter(c *Ctx, v Value) (Iterator, error) {
	d := v.(*SymbolicDict)
	keys, _, err := d.entries(c)
	if err != nil {
		return nil, err
	}
	return &symbolicDictIterator{dict: d, n: len(keys)}, nil
}

func dictStr(c *Ctx, v Value) (Value, error) {
	keys, vals, err := v.(*SymbolicDict).entries(c)
	if err != nil {
		return nil, err
	}
	return c.reprDict(keys, vals)
}

// reprDict formats dict entries, keeping symbolic representations symbolic.
func (c *Ctx) reprDict(keys, vals []Value) (Value, error) {
	parts := make([]*Seq, len(keys))
	for i := range keys {
		k, err := c.Repr(keys[i])
		if err != nil {
			return nil, err
		}
		v, err := c.Repr(vals[i])
		if err != nil {
			return nil, err
		}
		qk, _ := seqOf(k)
		qv, _ := seqOf(v)
		parts[i] = qk.Concat(newStrSeq(": ")).Concat(qv)
	}
	body, _ := seqOf(strJoin(TypeStr, newStrSeq(", "), parts))
	return newStr(newStrSeq("{").Concat(body).Concat(newStrSeq("}"))), nil
}

var dictMethods = map[string]Method{
	"get":        dictGet,
	"keys":       dictKeys,
	"values":     dictValues,
	"items":      dictItems,
	"pop":        dictPop,
	"popitem":    dictPopitem,
	"setdefault": dictSetdefault,
	"update":     dictUpdate,
	"copy":       dictCopy,
	"clear":      dictClear,
}

func dictGet(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("get", args, 1, 2); err != nil {
		return nil, err
	}
	if ok, err := c.Cond(c.Contains(recv, args[0])); err != nil {
		return nil, err
	} else if ok {
		return c.GetItem(recv, args[0])
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return None, nil
}

func dictKeys(c *Ctx, recv Value, args ...Value) (Value, error) {
	keys, _, err := c.dictEntries(recv)
	if err != nil {
		return nil, err
	}
	return NewList(append([]Value{}, keys...)...), nil
}

func dictValues(c *Ctx, recv Value, args ...Value) (Value, error) {
	_, vals, err := c.dictEntries(recv)
	if err != nil {
		return nil, err
	}
	return NewList(append([]Value{}, vals...)...), nil
}

// dictItems returns the entries as a list of [key, value] pairs.
func dictItems(c *Ctx, recv Value, args ...Value) (Value, error) {
	keys, vals, err := c.dictEntries(recv)
	if err != nil {
		return nil, err
	}
	items := make([]Value, len(keys))
	for i := range keys {
		items[i] = NewList(keys[i], vals[i])
	}
	return NewList(items...), nil
}

func dictPop(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("pop", args, 1, 2); err != nil {
		return nil, err
	}
	if ok, err := c.Cond(c.Contains(recv, args[0])); err != nil {
		return nil, err
	} else if !ok {
		if len(args) == 2 {
			return args[1], nil
		}
		r, err := c.Realize(args[0])
		if err != nil {
			return nil, err
		}
		return nil, keyError(r)
	}
	v, err := c.GetItem(recv, args[0])
	if err != nil {
		return nil, err
	}
	return v, c.DelItem(recv, args[0])
}

func dictPopitem(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("popitem", args, 0, 0); err != nil {
		return nil, err
	}
	keys, vals, err := c.dictEntries(recv)
	if err != nil {
		return nil, err
	} else if len(keys) == 0 {
		return nil, NewException(KeyError, "'popitem(): dictionary is empty'")
	}
	n := len(keys) - 1
	k, v := keys[n], vals[n]
	switch d := recv.(type) {
	case *Dict:
		if _, err := d.Delete(k); err != nil {
			return nil, err
		}
	case *SymbolicDict:
		d.setEntries(keys[:n:n], vals[:n:n])
	}
	return NewList(k, v), nil
}

func dictSetdefault(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("setdefault", args, 1, 2); err != nil {
		return nil, err
	}
	var def Value = None
	if len(args) == 2 {
		def = args[1]
	}
	if ok, err := c.Cond(c.Contains(recv, args[0])); err != nil {
		return nil, err
	} else if ok {
		return c.GetItem(recv, args[0])
	}
	return def, c.SetItem(recv, args[0], def)
}

// dictUpdate adds the entries of a mapping or of an iterable of pairs.
func dictUpdate(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("update", args, 1, 1); err != nil {
		return nil, err
	}
	if args[0].Type() == TypeDict {
		keys, vals, err := c.dictEntries(args[0])
		if err != nil {
			return nil, err
		}
		for i := range keys {
			if err := c.SetItem(recv, keys[i], vals[i]); err != nil {
				return nil, err
			}
		}
		return None, nil
	}

	pairs, err := c.Items(args[0])
	if err != nil {
		return nil, err
	}
	for i, pair := range pairs {
		kv, err := c.Items(pair)
		if err != nil {
			return nil, err
		} else if len(kv) != 2 {
			return nil, NewException(ValueError, "dictionary update sequence element #%d has length %d; 2 is required", i, len(kv))
		}
		if err := c.SetItem(recv, kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	return None, nil
}

func dictCopy(c *Ctx, recv Value, args ...Value) (Value, error) {
	keys, vals, err := c.dictEntries(recv)
	if err != nil {
		return nil, err
	}
	if _, ok := recv.(*SymbolicDict); ok {
		return c.allocDict(&dictRecord{keys: keys, vals: vals}), nil
	}
	out := NewDict()
	for i := range keys {
		if err := out.Set(keys[i], vals[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func dictClear(c *Ctx, recv Value, args ...Value) (Value, error) {
	switch d := recv.(type) {
	case *Dict:
		*d = *NewDict()
	case *SymbolicDict:
		d.setEntries(nil, nil)
	}
	return None, nil
}

// SymbolicSet is a set stored in a heap. Membership is the disjunction of
// equality against its distinct present elements.
type SymbolicSet struct {
	heap   *Heap
	handle Handle
}

func (*SymbolicSet) Type() Type { return TypeSet }

func (s *SymbolicSet) String() string { return fmt.Sprintf("set#%d", s.handle) }

// Realize returns a concrete set of realized elements.
func (s *SymbolicSet) Realize(c *Ctx) (Value, error) {
	items, err := s.items(c)
	if err != nil {
		return nil, err
	}
	if items, err = c.realizeAll(items); err != nil {
		return nil, err
	}
	return NewSet(items...)
}

type setRecord struct {
	lazy  *lazyEntries
	items []Value
}

func (c *Ctx) allocSet(rec *setRecord) *SymbolicSet {
	return &SymbolicSet{heap: c.heap, handle: c.heap.Alloc(rec)}
}

func (s *SymbolicSet) load() *setRecord { return s.heap.Load(s.handle).(*setRecord) }

// items returns a copy of the elements in insertion order.
func (s *SymbolicSet) items(c *Ctx) ([]Value, error) {
	rec := s.load()
	items := rec.items
	if rec.lazy != nil {
		var err error
		if items, _, err = rec.lazy.get(c); err != nil {
			return nil, err
		}
	}
	return rebindAll(items, s.heap), nil
}

func (s *SymbolicSet) setItems(items []Value) {
	s.heap.Store(s.handle, &setRecord{items: items})
}

// add adds item unless an equal element is present.
func (s *SymbolicSet) add(c *Ctx, item Value) error {
	if !isHashable(item.Type()) {
		return NewException(TypeError, "unhashable type: '%s'", item.Type())
	}
	items, err := s.items(c)
	if err != nil {
		return err
	}
	if ok, err := c.Cond(containsScan(c, items, item)); err != nil {
		return err
	} else if !ok {
		s.setItems(append(items, item))
	}
	return nil
}

// setItems returns the elements of a concrete or symbolic set.
func (c *Ctx) setItems(v Value) ([]Value, error) {
	switch v := v.(type) {
	case *Set:
		return v.Items(), nil
	case *SymbolicSet:
		return v.items(c)
	}
	return nil, NewException(TypeError, "'%s' object is not a set", v.Type())
}

var setHandlers = &handlers{
	binary:   setBinary,
	truth:    setTruth,
	length:   setLen,
	contains: setContains,
	iter:     setIter,
	str:      setStr,
}

func setBinary(c *Ctx, op Op, a, b Value) (Value, error) {
	if a.Type() != TypeSet || b.Type() != TypeSet {
		return nil, binaryTypeError(op, a, b)
	}
	ia, err := c.setItems(a)
	if err != nil {
		return nil, err
	}
	ib, err := c.setItems(b)
	if err != nil {
		return nil, err
	}

	switch op {
	case OpBitOr:
		out := c.allocSet(&setRecord{items: append([]Value{}, ia...)})
		for _, x := range ib {
			if err := out.add(c, x); err != nil {
				return nil, err
			}
		}
		return out, nil

	case OpBitAnd, OpSub:
		var items []Value
		for _, x := range ia {
			if in, err := c.Cond(containsScan(c, ib, x)); err != nil {
				return nil, err
			} else if in == (op == OpBitAnd) {
				items = append(items, x)
			}
		}
		return c.allocSet(&setRecord{items: items}), nil

	case OpBitXor:
		var items []Value
		for _, x := range ia {
			if in, err := c.Cond(containsScan(c, ib, x)); err != nil {
				return nil, err
			} else if !in {
				items = append(items, x)
			}
		}
		for _, x := range ib {
			if in, err := c.Cond(containsScan(c, ia, x)); err != nil {
				return nil, err
			} else if !in {
				items = append(items, x)
			}
		}
		return c.allocSet(&setRecord{items: items}), nil

	case OpEq, OpNe:
		eq, err := entriesEq(c, ia, nil, ib, nil)
		if err != nil || op == OpEq {
			return eq, err
		}
		return c.Not(eq)

	case OpLe, OpGe:
		if op == OpGe {
			ia, ib = ib, ia
		}
		return subsetOf(c, ia, ib)

	case OpLt, OpGt:
		if op == OpGt {
			ia, ib = ib, ia
		}
		if len(ia) >= len(ib) {
			return Bool(false), nil
		}
		return subsetOf(c, ia, ib)

	default:
		return nil, binaryTypeError(op, a, b)
	}
}

// subsetOf returns whether every element of a is present in b.
func subsetOf(c *Ctx, a, b []Value) (Value, error) {
	conds := make([]Value, len(a))
	for i, x := range a {
		in, err := containsScan(c, b, x)
		if err != nil {
			return nil, err
		}
		conds[i] = in
	}
	return andValues(conds), nil
}

func setTruth(c *Ctx, v Value) (bool, error) {
	items, err := v.(*SymbolicSet).items(c)
	return len(items) > 0, err
}

func setLen(c *Ctx, v Value) (Value, error) {
	items, err := v.(*SymbolicSet).items(c)
	if err != nil {
		return nil, err
	}
	return NewInt(int64(len(items))), nil
}

func setContains(c *Ctx, v, item Value) (Value, error) {
	if !isHashable(item.Type()) {
		return nil, NewException(TypeError, "unhashable type: '%s'", item.Type())
	}
	items, err := v.(*SymbolicSet).items(c)
	if err != nil {
		return nil, err
	}
	return containsScan(c, items, item)
}

func setIter(c *Ctx, v Value) (Iterator, error) {
	items, err := v.(*SymbolicSet).items(c)
	if err != nil {
		return nil, err
	}
	return &sliceIterator{items: items}, nil
}

func setStr(c *Ctx, v Value) (Value, error) {
	items, err := v.(*SymbolicSet).items(c)
	if err != nil {
		return nil, err
	} else if len(items) == 0 {
		return Str("set()"), nil
	}
	return c.reprItems("{", "}", items)
}

var setMethods = map[string]Method{
	"add":          setAdd,
	"remove":       setRemove(true),
	"discard":      setRemove(false),
	"pop":          setPop,
	"clear":        setClear,
	"copy":         setCopy,
	"update":       setUpdate,
	"union":        setOperator(OpBitOr),
	"intersection": setOperator(OpBitAnd),
	"difference":   setOperator(OpSub),
	"issubset":     setOperator(OpLe),
	"issuperset":   setOperator(OpGe),
	"isdisjoint":   setIsDisjoint,
}

func setAdd(c *Ctx, recv Value, args ...Value) (Value, error) {
	if err := checkArgs("add", args, 1, 1); err != nil {
		return nil, err
	}
	switch s := recv.(type) {
	case *Set:
		vals, err := c.realizeMaybe("set.add", args[0])
		if err != nil {
			return nil, err
		}
		return None, s.Add(vals[0])
	case *SymbolicSet:
		return None, s.add(c, args[0])
	}
	return None, nil
}

func setRemove(required bool) Method {
	return func(c *Ctx, recv Value, args ...Value) (Value, error) {
		if err := checkArgs("remove", args, 1, 1); err != nil {
			return nil, err
		}
		items, err := c.setItems(recv)
		if err != nil {
			return nil, err
		}
		i, err := c.find(items, args[0])
		if err != nil {
			return nil, err
		} else if i < 0 {
			if !required {
				return None, nil
			}
			r, err := c.Realize(args[0])
			if err != nil {
				return nil, err
			}
			return nil, keyError(r)
		}
		putSetItems(recv, append(items[:i:i], items[i+1:]...))
		return None, nil
	}
}

// putSetItems replaces the elements of a set with distinct items.
func putSetItems(v Value, items []Value) {
	switch s := v.(type) {
	case *Set:
		d := NewDict()
		d.keys = items
		d.vals = make([]Value, len(items))
		for i := range d.vals {
			d.vals[i] = None
		}
		d.reindex()
		s.d = d
	case *SymbolicSet:
		s.setItems(items)
	}
}

func setPop(c *Ctx, recv Value, args ...Value) (Value, error) {
	items, err := c.setItems(recv)
	if err != nil {
		return nil, err
	} else if len(items) == 0 {
		return nil, NewException(KeyError, "'pop from an empty set'")
	}
	putSetItems(recv, items[1:])
	return items[0], nil
}

func setClear(c *Ctx, recv Value, args ...Value) (Value, error) {
	putSetItems(recv, nil)
	return None, nil
}

func setCopy(c *Ctx, recv Value, args ...Value) (Value, error) {
	items, err := c.setItems(recv)
	if err != nil {
		return nil, err
	}
	if _, ok := recv.(*SymbolicSet); ok {
		return c.allocSet(&setRecord{items: items}), nil
	}
	return NewSet(items...)
}

func setUpdate(c *Ctx, recv Value, args ...Value) (Value, error) {
	for _, arg := range args {
		items, err := c.Items(arg)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if _, err := setAdd(c, recv, item); err != nil {
				return nil, err
			}
		}
	}
	return None, nil
}

// setOperator implements a method as the corresponding operator on a set
// built from its argument.
func setOperator(op Op) Method {
	return func(c *Ctx, recv Value, args ...Value) (Value, error) {
		if err := checkArgs(op.String(), args, 1, 1); err != nil {
			return nil, err
		}
		other := args[0]
		if other.Type() != TypeSet {
			items, err := c.Items(other)
			if err != nil {
				return nil, err
			}
			if other, err = c.NewSet(items...); err != nil {
				return nil, err
			}
		}
		return c.Binary(op, recv, other)
	}
}

func setIsDisjoint(c *Ctx, recv Value, args ...Value) (Value, error) {
	both, err := setOperator(OpBitAnd)(c, recv, args...)
	if err != nil {
		return nil, err
	}
	n, err := c.Len(both)
	if err != nil {
		return nil, err
	}
	return c.Eq(n, NewInt(0))
}
