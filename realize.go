package glean

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
	"golang.org/x/tools/imports"
)

// NamedValue is a concrete argument of a counterexample.
type NamedValue struct {
	Name  string
	Value Value
}

// Counterexample is a concrete input that violates a contract, along with the
// outcome it triggers.
type Counterexample struct {
	Target    string
	Args      []NamedValue
	Kind      MessageKind
	Exception *Exception // escaped or raised by a condition
	Condition string     // failed condition
	Return    Value      // nil if the target raised
}

// violation describes how a path violated the contract.
type violation struct {
	kind      MessageKind
	exception *Exception
	condition string
	ret       Value
}

// realizeCounterexample realizes the inputs of the path & the outcome of v.
// Inputs are realized in their state before the call.
func (c *Ctx) realizeCounterexample(t *Target, args []Value, v *violation) (*Counterexample, error) {
	defer c.NoIntercept()()

	ce := &Counterexample{
		Target:    t.Name,
		Kind:      v.kind,
		Exception: v.exception,
		Condition: v.condition,
	}
	for i, p := range t.Contract.Params {
		value, err := c.Realize(c.Old(args[i]))
		if err != nil {
			return nil, err
		}
		ce.Args = append(ce.Args, NamedValue{Name: p.Name, Value: value})
	}

	if v.ret != nil {
		ret, err := c.Realize(v.ret)
		if err != nil {
			return nil, err
		}
		ce.Return = ret
	}

	c.logger.Debug().Str("component", "realize").Str("call", ce.Call()).Msg("counterexample")
	return ce, nil
}

// Call returns the call expression of the counterexample, such as "f(x=1)".
func (ce *Counterexample) Call() string {
	parts := make([]string, len(ce.Args))
	for i, arg := range ce.Args {
		parts[i] = arg.Name + "=" + reprString(arg.Value)
	}
	return ce.Target + "(" + strings.Join(parts, ", ") + ")"
}

// String returns a description of the violation.
func (ce *Counterexample) String() string {
	var ret string
	if ce.Return != nil {
		ret = " (which returns " + reprString(ce.Return) + ")"
	}

	switch ce.Kind {
	case MessageExecutionError:
		return fmt.Sprintf("%s when calling %s", ce.Exception, ce.Call())
	case MessagePostconditionError:
		return fmt.Sprintf("%s in %s when calling %s%s", ce.Exception, ce.Condition, ce.Call(), ret)
	default:
		return fmt.Sprintf("false when calling %s%s: %s", ce.Call(), ret, ce.Condition)
	}
}

// reprString returns the repr of a concrete value, or its Go form if it has
// none.
func reprString(v Value) string {
	s, err := nativeRepr(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return s
}

// Repro returns a Go program that calls the target with the concrete inputs.
// The target function is expected to be in scope under its name.
func (ce *Counterexample) Repro() (string, error) {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "package main")
	fmt.Fprintln(&buf, "")
	fmt.Fprintln(&buf, `import "github.com/benbjohnson/glean"`)
	fmt.Fprintln(&buf, "")
	fmt.Fprintln(&buf, "func main() {")
	fmt.Fprintf(&buf, "// Expect: %s\n", strings.ReplaceAll(ce.expectation(), "\n", " "))
	fmt.Fprintln(&buf, "c := glean.NewConcreteCtx()")
	fmt.Fprintf(&buf, "ret, err := %s(c", goIdent(ce.Target))
	for _, arg := range ce.Args {
		s, err := goValue(arg.Value)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&buf, ", %s", s)
	}
	fmt.Fprintln(&buf, ")")
	fmt.Fprintln(&buf, "fmt.Println(ret, err)")
	fmt.Fprintln(&buf, "}")

	src, err := imports.Process("repro.go", buf.Bytes(), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return "", fmt.Errorf("format repro: %w", err)
	}
	return string(src), nil
}

func (ce *Counterexample) expectation() string {
	switch ce.Kind {
	case MessageExecutionError:
		return ce.Exception.Error()
	case MessagePostconditionError:
		return fmt.Sprintf("%s in %s", ce.Exception, ce.Condition)
	default:
		return "false: " + ce.Condition
	}
}

// goIdent returns name as a Go identifier.
func goIdent(name string) string {
	ident := strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, name)
	if ident == "" || unicode.IsDigit([]rune(ident)[0]) {
		ident = "_" + ident
	}
	return ident
}

// goValue returns a Go expression constructing v.
func goValue(v Value) (string, error) {
	switch v := v.(type) {
	case NoneType:
		return "glean.None", nil
	case Bool:
		return fmt.Sprintf("glean.Bool(%v)", bool(v)), nil
	case Int:
		if i, ok := v.Int64(); ok {
			return fmt.Sprintf("glean.NewInt(%d)", i), nil
		}
		return fmt.Sprintf("glean.MustParseInt(%q)", v.String()), nil
	case Float:
		return "glean.Float(" + goFloat(float64(v)) + ")", nil
	case Str:
		return "glean.Str(" + strconv.Quote(string(v)) + ")", nil
	case Bytes:
		return "glean.Bytes(" + strconv.Quote(string(v)) + ")", nil
	case *List:
		return goValues("glean.NewList", v.Items)
	case *Dict:
		kvs := make([]Value, 0, 2*v.Len())
		for i, k := range v.Keys() {
			kvs = append(kvs, k, v.Values()[i])
		}
		return goValues("glean.MustDict", kvs)
	case *Set:
		return goValues("glean.MustSet", v.Items())
	default:
		return "", fmt.Errorf("%w: no Go form for %s", ErrInternal, v.Type())
	}
}

func goValues(fn string, items []Value) (string, error) {
	parts := make([]string, len(items))
	for i, item := range items {
		s, err := goValue(item)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return fn + "(" + strings.Join(parts, ", ") + ")", nil
}

func goFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "math.NaN()"
	case math.IsInf(f, 1):
		return "math.Inf(1)"
	case math.IsInf(f, -1):
		return "math.Inf(-1)"
	case f == 0 && math.Signbit(f):
		return "math.Copysign(0, -1)"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type counterexampleJSON struct {
	Target    string         `json:"target"`
	Kind      string         `json:"kind"`
	Args      []argJSON      `json:"args"`
	Exception *exceptionJSON `json:"exception,omitempty"`
	Condition string         `json:"condition,omitempty"`
	Return    *string        `json:"return,omitempty"`
}

type argJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Repr string `json:"repr"`
}

type exceptionJSON struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// MarshalJSON encodes the counterexample with each value in repr form.
func (ce *Counterexample) MarshalJSON() ([]byte, error) {
	out := counterexampleJSON{
		Target:    ce.Target,
		Kind:      ce.Kind.String(),
		Args:      make([]argJSON, len(ce.Args)),
		Condition: ce.Condition,
	}
	for i, arg := range ce.Args {
		out.Args[i] = argJSON{Name: arg.Name, Type: arg.Value.Type().String(), Repr: reprString(arg.Value)}
	}
	if ce.Exception != nil {
		out.Exception = &exceptionJSON{Type: ce.Exception.Kind.Name, Message: ce.Exception.Msg}
	}
	if ce.Return != nil {
		s := reprString(ce.Return)
		out.Return = &s
	}
	return json.Marshal(out)
}
