package glean_test

import (
	"math"
	"strings"
	"testing"

	"github.com/benbjohnson/glean"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterexample_String(t *testing.T) {
	t.Run("ExecutionError", func(t *testing.T) {
		ce := &glean.Counterexample{
			Target:    "div",
			Args:      []glean.NamedValue{{Name: "x", Value: glean.NewInt(1)}, {Name: "y", Value: glean.NewInt(0)}},
			Kind:      glean.MessageExecutionError,
			Exception: glean.NewException(glean.ZeroDivisionError, "integer division or modulo by zero"),
		}
		assert.Equal(t, "div(x=1, y=0)", ce.Call())
		assert.Equal(t, "ZeroDivisionError: integer division or modulo by zero when calling div(x=1, y=0)", ce.String())
	})

	t.Run("PostconditionFailed", func(t *testing.T) {
		ce := &glean.Counterexample{
			Target:    "f",
			Args:      []glean.NamedValue{{Name: "s", Value: glean.Str("it's")}},
			Kind:      glean.MessagePostconditionFailed,
			Condition: "__return__ >= 0",
			Return:    glean.NewInt(-1),
		}
		assert.Equal(t, `false when calling f(s="it's") (which returns -1): __return__ >= 0`, ce.String())
	})

	t.Run("PostconditionError", func(t *testing.T) {
		ce := &glean.Counterexample{
			Target:    "f",
			Args:      []glean.NamedValue{{Name: "xs", Value: glean.NewList()}},
			Kind:      glean.MessagePostconditionError,
			Exception: glean.NewException(glean.IndexError, "list index out of range"),
			Condition: "__return__ == xs[0]",
			Return:    glean.None,
		}
		assert.Equal(t, "IndexError: list index out of range in __return__ == xs[0] when calling f(xs=[]) (which returns None)", ce.String())
	})
}

func TestCounterexample_Repro(t *testing.T) {
	ce := &glean.Counterexample{
		Target: "my-target",
		Args: []glean.NamedValue{
			{Name: "x", Value: glean.Float(math.Inf(-1))},
			{Name: "d", Value: glean.MustDict(glean.Str("k"), glean.NewList(glean.NewInt(1)))},
			{Name: "n", Value: glean.MustParseInt("100000000000000000000")},
		},
		Kind:      glean.MessageExecutionError,
		Exception: glean.NewException(glean.ValueError, "bad"),
	}

	src, err := ce.Repro()
	require.NoError(t, err)
	assert.Contains(t, src, "package main")
	assert.Contains(t, src, `"math"`)
	assert.Contains(t, src, `"fmt"`)
	assert.Contains(t, src, "// Expect: ValueError: bad")
	assert.Contains(t, src, `ret, err := my_target(c, glean.Float(math.Inf(-1)), glean.MustDict(glean.Str("k"), glean.NewList(glean.NewInt(1))), glean.MustParseInt("100000000000000000000"))`)
	assert.True(t, strings.HasSuffix(src, "}\n"))
}

func TestCounterexample_MarshalJSON(t *testing.T) {
	ce := &glean.Counterexample{
		Target:    "f",
		Args:      []glean.NamedValue{{Name: "s", Value: glean.Str("a")}},
		Kind:      glean.MessagePostconditionFailed,
		Condition: "len(__return__) > 1",
		Return:    glean.Str(""),
	}

	buf, err := json.Marshal(ce)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"target": "f",
		"kind": "post_fail",
		"args": [{"name": "s", "type": "str", "repr": "'a'"}],
		"condition": "len(__return__) > 1",
		"return": "''"
	}`, string(buf))
}
