package glean

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Type is the language-level type tag of a value.
type Type int

// Value types.
const (
	TypeNone = Type(iota + 1)
	TypeBool
	TypeInt
	TypeFloat
	TypeStr
	TypeBytes
	TypeList
	TypeDict
	TypeSet
	TypeMatch
	TypePattern
	TypeIterator
)

var typeNames = [...]string{
	TypeNone:     "NoneType",
	TypeBool:     "bool",
	TypeInt:      "int",
	TypeFloat:    "float",
	TypeStr:      "str",
	TypeBytes:    "bytes",
	TypeList:     "list",
	TypeDict:     "dict",
	TypeSet:      "set",
	TypeMatch:    "re.Match",
	TypePattern:  "re.Pattern",
	TypeIterator: "iterator",
}

// String returns the name of the type.
func (t Type) String() string {
	if t > 0 && t < Type(len(typeNames)) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type<%d>", t)
}

// IsNumeric returns true for bool, int & float.
func (t Type) IsNumeric() bool {
	return t == TypeBool || t == TypeInt || t == TypeFloat
}

// IsSubtype returns true if t is sub or the same type. Only bool is a proper
// subtype of another type (int).
func (t Type) IsSubtype(sup Type) bool {
	return t == sup || (t == TypeBool && sup == TypeInt)
}

// Value represents a dynamically typed value. Values are either concrete
// natives or symbolic proxies wrapping solver expressions.
type Value interface {
	Type() Type
}

// Symbolic is implemented by values whose contents are described by solver
// expressions. Operations on them are dispatched to symbolic handlers.
type Symbolic interface {
	Value

	// Realize returns a concrete value, committing the path to it.
	Realize(c *Ctx) (Value, error)
}

// IsSymbolic returns true if v is a symbolic proxy.
func IsSymbolic(v Value) bool {
	_, ok := v.(Symbolic)
	return ok
}

// NoneType is the type of None.
type NoneType struct{}

// None is the singleton None value.
var None = NoneType{}

func (NoneType) Type() Type     { return TypeNone }
func (NoneType) String() string { return "None" }

// Bool is a concrete boolean.
type Bool bool

func (Bool) Type() Type { return TypeBool }

func (b Bool) String() string {
	if b {
		return "True"
	}
	return "False"
}

// Int is a concrete arbitrary precision integer. The zero value is 0.
type Int struct {
	x *big.Int
}

// NewInt returns an Int from an int64.
func NewInt(i int64) Int { return Int{x: big.NewInt(i)} }

// NewBigInt returns an Int from a big.Int. The value is copied.
func NewBigInt(i *big.Int) Int { return Int{x: new(big.Int).Set(i)} }

func (Int) Type() Type { return TypeInt }

// Big returns the value as a big.Int. The returned value must not be modified.
func (i Int) Big() *big.Int {
	if i.x == nil {
		return new(big.Int)
	}
	return i.x
}

// Int64 returns the value as an int64 and whether it fits.
func (i Int) Int64() (int64, bool) {
	x := i.Big()
	return x.Int64(), x.IsInt64()
}

func (i Int) String() string { return i.Big().String() }

// MustParseInt returns the Int of a base 10 literal. Panics if s is invalid.
func MustParseInt(s string) Int {
	x, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(fmt.Sprintf("invalid int literal: %q", s))
	}
	return Int{x: x}
}

// Float is a concrete IEEE binary64 float.
type Float float64

func (Float) Type() Type { return TypeFloat }

func (f Float) String() string { return formatPyFloat(float64(f)) }

// Str is a concrete string. Indexing & length use code points.
type Str string

func (Str) Type() Type        { return TypeStr }
func (s Str) String() string { return string(s) }

// Bytes is a concrete immutable byte string.
type Bytes string

func (Bytes) Type() Type { return TypeBytes }

// List is a concrete mutable list.
type List struct {
	Items []Value
}

// NewList returns a new list containing items.
func NewList(items ...Value) *List { return &List{Items: items} }

func (*List) Type() Type { return TypeList }

// Dict is a concrete mutable insertion-ordered mapping.
type Dict struct {
	keys  []Value
	vals  []Value
	index map[hashKey]int
}

// NewDict returns a new, empty dict.
func NewDict() *Dict { return &Dict{index: make(map[hashKey]int)} }

// MustDict returns a dict of alternating keys & values. Panics if a key is
// unhashable.
func MustDict(kvs ...Value) *Dict {
	assert(len(kvs)%2 == 0, "dict: odd number of arguments")
	d := NewDict()
	for i := 0; i < len(kvs); i += 2 {
		if err := d.Set(kvs[i], kvs[i+1]); err != nil {
			panic(err)
		}
	}
	return d
}

func (*Dict) Type() Type { return TypeDict }

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value { return d.keys }

// Values returns the values in insertion order.
func (d *Dict) Values() []Value { return d.vals }

// Get returns the value for key.
func (d *Dict) Get(key Value) (Value, bool, error) {
	k, err := newHashKey(key)
	if err != nil {
		return nil, false, err
	}
	i, ok := d.index[k]
	if !ok {
		return nil, false, nil
	}
	return d.vals[i], true, nil
}

// Set sets the value for key, keeping the original position of an existing key.
func (d *Dict) Set(key, value Value) error {
	k, err := newHashKey(key)
	if err != nil {
		return err
	}
	if i, ok := d.index[k]; ok {
		d.vals[i] = value
		return nil
	}
	d.index[k] = len(d.keys)
	d.keys = append(d.keys, key)
	d.vals = append(d.vals, value)
	return nil
}

// Delete removes key. Returns false if key did not exist.
func (d *Dict) Delete(key Value) (bool, error) {
	k, err := newHashKey(key)
	if err != nil {
		return false, err
	}
	i, ok := d.index[k]
	if !ok {
		return false, nil
	}
	d.keys = append(d.keys[:i:i], d.keys[i+1:]...)
	d.vals = append(d.vals[:i:i], d.vals[i+1:]...)
	d.reindex()
	return true, nil
}

func (d *Dict) reindex() {
	d.index = make(map[hashKey]int, len(d.keys))
	for i, key := range d.keys {
		k, _ := newHashKey(key)
		d.index[k] = i
	}
}

// Set is a concrete mutable insertion-ordered set.
type Set struct {
	d *Dict
}

// NewSet returns a new set containing items.
func NewSet(items ...Value) (*Set, error) {
	s := &Set{d: NewDict()}
	for _, item := range items {
		if err := s.Add(item); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustSet returns a set of items. Panics if an item is unhashable.
func MustSet(items ...Value) *Set {
	s, err := NewSet(items...)
	if err != nil {
		panic(err)
	}
	return s
}

func (*Set) Type() Type { return TypeSet }

// Len returns the number of elements.
func (s *Set) Len() int { return s.d.Len() }

// Items returns the elements in insertion order.
func (s *Set) Items() []Value { return s.d.keys }

// Add adds an element.
func (s *Set) Add(item Value) error { return s.d.Set(item, None) }

// Has returns true if item is an element of the set.
func (s *Set) Has(item Value) (bool, error) {
	_, ok, err := s.d.Get(item)
	return ok, err
}

// Remove removes an element. Returns false if item was not an element.
func (s *Set) Remove(item Value) (bool, error) { return s.d.Delete(item) }

// hashKey is a normalized key for concrete hashable values. Numerically equal
// values of different types share a key so that 1, 1.0 & True collide.
type hashKey struct {
	kind byte
	s    string
}

func newHashKey(v Value) (hashKey, error) {
	switch v := v.(type) {
	case NoneType:
		return hashKey{kind: 'n'}, nil
	case Bool:
		if v {
			return hashKey{kind: 'i', s: "1"}, nil
		}
		return hashKey{kind: 'i', s: "0"}, nil
	case Int:
		return hashKey{kind: 'i', s: v.Big().String()}, nil
	case Float:
		f := float64(v)
		if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) {
			i, _ := new(big.Float).SetFloat64(f).Int(nil)
			return hashKey{kind: 'i', s: i.String()}, nil
		}
		return hashKey{kind: 'f', s: strconv.FormatUint(math.Float64bits(f), 16)}, nil
	case Str:
		return hashKey{kind: 's', s: string(v)}, nil
	case Bytes:
		return hashKey{kind: 'b', s: string(v)}, nil
	default:
		return hashKey{}, NewException(TypeError, "unhashable type: '%s'", v.Type())
	}
}

// formatPyFloat formats f the way repr() formats floats.
func formatPyFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	// Exponent notation is used outside of [1e-4, 1e16). Go pads the exponent
	// to two digits, matching repr().
	if abs := math.Abs(f); abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// TypeSpec describes the declared type of a parameter, including element types
// of containers.
type TypeSpec struct {
	Type  Type
	Elem  *TypeSpec // list & set elements, dict keys
	Value *TypeSpec // dict values
}

// String returns the type annotation form of the type spec.
func (t TypeSpec) String() string {
	switch t.Type {
	case TypeList, TypeSet:
		if t.Elem != nil {
			return fmt.Sprintf("%s[%s]", t.Type, t.Elem)
		}
	case TypeDict:
		if t.Elem != nil && t.Value != nil {
			return fmt.Sprintf("dict[%s, %s]", t.Elem, t.Value)
		}
	}
	return t.Type.String()
}

// isScalar returns true if values of the type spec are represented by a single
// solver expression.
func (t TypeSpec) isScalar() bool {
	return t.Type == TypeBool || t.Type == TypeInt || t.Type == TypeFloat
}

// Common type specs.
var (
	NoneSpec  = TypeSpec{Type: TypeNone}
	BoolSpec  = TypeSpec{Type: TypeBool}
	IntSpec   = TypeSpec{Type: TypeInt}
	FloatSpec = TypeSpec{Type: TypeFloat}
	StrSpec   = TypeSpec{Type: TypeStr}
	BytesSpec = TypeSpec{Type: TypeBytes}
)

// ListOf returns the type spec of a list with elements of elem.
func ListOf(elem TypeSpec) TypeSpec { return TypeSpec{Type: TypeList, Elem: &elem} }

// SetOf returns the type spec of a set with elements of elem.
func SetOf(elem TypeSpec) TypeSpec { return TypeSpec{Type: TypeSet, Elem: &elem} }

// DictOf returns the type spec of a dict from key to value.
func DictOf(key, value TypeSpec) TypeSpec {
	return TypeSpec{Type: TypeDict, Elem: &key, Value: &value}
}
