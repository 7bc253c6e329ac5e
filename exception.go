package glean

import (
	"errors"
	"fmt"
)

// ExceptionType is a language-level exception class. Types form a single
// inheritance hierarchy rooted at BaseException.
type ExceptionType struct {
	Name   string
	Parent *ExceptionType
}

// String returns the name of the exception type.
func (t *ExceptionType) String() string { return t.Name }

// IsSubtype returns true if t is sup or derives from it.
func (t *ExceptionType) IsSubtype(sup *ExceptionType) bool {
	for ; t != nil; t = t.Parent {
		if t == sup {
			return true
		}
	}
	return false
}

// NewExceptionType returns a new exception type deriving from parent.
func NewExceptionType(name string, parent *ExceptionType) *ExceptionType {
	return &ExceptionType{Name: name, Parent: parent}
}

// Builtin exception types.
var (
	BaseException       = NewExceptionType("Exception", nil)
	ArithmeticError     = NewExceptionType("ArithmeticError", BaseException)
	ZeroDivisionError   = NewExceptionType("ZeroDivisionError", ArithmeticError)
	OverflowError       = NewExceptionType("OverflowError", ArithmeticError)
	LookupError         = NewExceptionType("LookupError", BaseException)
	IndexError          = NewExceptionType("IndexError", LookupError)
	KeyError            = NewExceptionType("KeyError", LookupError)
	ValueError          = NewExceptionType("ValueError", BaseException)
	JSONDecodeError     = NewExceptionType("JSONDecodeError", ValueError)
	TypeError           = NewExceptionType("TypeError", BaseException)
	AssertionError      = NewExceptionType("AssertionError", BaseException)
	AttributeError      = NewExceptionType("AttributeError", BaseException)
	NotImplementedError = NewExceptionType("NotImplementedError", BaseException)
	RuntimeError        = NewExceptionType("RuntimeError", BaseException)
)

// Exception is a raised language-level exception. It travels through the
// error return of operations & targets.
type Exception struct {
	Kind *ExceptionType
	Msg  string
}

// NewException returns a new exception of the given type.
func NewException(kind *ExceptionType, format string, args ...interface{}) *Exception {
	return &Exception{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Error returns the exception in "Type: message" form.
func (e *Exception) Error() string {
	if e.Msg == "" {
		return e.Kind.Name
	}
	return e.Kind.Name + ": " + e.Msg
}

// IsInstance returns true if the exception is an instance of kind.
func (e *Exception) IsInstance(kind *ExceptionType) bool {
	return e.Kind.IsSubtype(kind)
}

// AsException returns the language-level exception wrapped by err, if any.
// Engine errors never match so a target catching exceptions cannot hide them.
func AsException(err error) (*Exception, bool) {
	var e *Exception
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Catch returns the exception held by err if it is an instance of one of kinds.
// Otherwise it returns nil along with err unchanged.
func Catch(err error, kinds ...*ExceptionType) (*Exception, error) {
	e, ok := AsException(err)
	if !ok {
		return nil, err
	}
	for _, kind := range kinds {
		if e.IsInstance(kind) {
			return e, nil
		}
	}
	return nil, err
}
