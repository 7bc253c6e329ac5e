package glean

import (
	"fmt"
)

// Func is the signature of an analyzed callable. Every operation on the
// arguments must go through c so symbolic inputs can be substituted.
type Func func(c *Ctx, args ...Value) (Value, error)

// Param describes a parameter of a target.
type Param struct {
	Name string
	Type TypeSpec
}

// Call is an invocation of a target as seen by its conditions. Return is
// nil while preconditions are evaluated.
type Call struct {
	Params []Param
	Args   []Value // arguments, possibly mutated by the call
	Old    []Value // arguments as they were before the call
	Return Value
}

// Arg returns the current value of the named argument.
func (call *Call) Arg(name string) Value {
	return call.Args[call.index(name)]
}

// OldArg returns the value of the named argument before the call.
func (call *Call) OldArg(name string) Value {
	return call.Old[call.index(name)]
}

func (call *Call) index(name string) int {
	for i, p := range call.Params {
		if p.Name == name {
			return i
		}
	}
	panic(fmt.Sprintf("call: no such parameter: %q", name))
}

// Condition is a predicate over a call. Desc is the source text used in
// reports.
type Condition struct {
	Desc string
	Fn   func(c *Ctx, call *Call) (Value, error)
}

// Contract describes the expected behavior of a target.
//
// Pre conditions restrict the inputs. Post conditions must hold on return.
// An exception escaping the target is a violation unless its type derives
// from one of Raises.
type Contract struct {
	Params []Param
	Pre    []Condition
	Post   []Condition
	Raises []*ExceptionType
}

// allows returns true if the contract allows e to escape the target.
func (ct *Contract) allows(e *Exception) bool {
	for _, kind := range ct.Raises {
		if e.Kind.IsSubtype(kind) {
			return true
		}
	}
	return false
}

// Target is a named callable with its contract.
type Target struct {
	Name     string
	Fn       Func
	Contract Contract
}

// Assert raises an AssertionError if v is false.
func (c *Ctx) Assert(v Value, format string, args ...interface{}) error {
	if ok, err := c.Truth(v); err != nil {
		return err
	} else if !ok {
		return NewException(AssertionError, format, args...)
	}
	return nil
}

// validate returns an error if a parameter cannot be created symbolically.
func (ct *Contract) validate() error {
	seen := make(map[string]bool)
	for _, p := range ct.Params {
		if p.Name == "" {
			return fmt.Errorf("unnamed parameter")
		} else if seen[p.Name] {
			return fmt.Errorf("duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true

		if err := p.Type.validate(); err != nil {
			return fmt.Errorf("parameter %q: %w", p.Name, err)
		}
	}
	return nil
}

func (t TypeSpec) validate() error {
	switch t.Type {
	case TypeNone, TypeBool, TypeInt, TypeFloat, TypeStr, TypeBytes:
		return nil
	case TypeList:
		if t.Elem == nil {
			return nil
		}
		return t.Elem.validate()
	case TypeSet, TypeDict:
		if t.Elem == nil || (t.Type == TypeDict && t.Value == nil) {
			return fmt.Errorf("%s requires element types", t.Type)
		} else if !isHashable(t.Elem.Type) {
			return fmt.Errorf("unhashable type: '%s'", t.Elem.Type)
		} else if err := t.Elem.validate(); err != nil {
			return err
		} else if t.Value != nil {
			return t.Value.validate()
		}
		return nil
	default:
		return fmt.Errorf("unsupported type %s", t)
	}
}
