package glean_test

import (
	"strings"
	"testing"

	"github.com/benbjohnson/glean"
	"github.com/dlclark/regexp2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtx_Compile(t *testing.T) {
	t.Run("Cached", func(t *testing.T) {
		c := glean.NewConcreteCtx()
		p0, err := c.Compile(glean.Str(`a+b`), 0)
		require.NoError(t, err)
		p1, err := c.Compile(glean.Str(`a+b`), 0)
		require.NoError(t, err)
		assert.Same(t, p0, p1)

		p2, err := c.Compile(glean.Str(`a+b`), glean.ReIgnoreCase)
		require.NoError(t, err)
		assert.NotSame(t, p0, p2)
	})

	t.Run("Native", func(t *testing.T) {
		c := glean.NewConcreteCtx()
		p, err := c.Compile(glean.Str(`(a)\1`), 0)
		require.NoError(t, err)
		assert.True(t, p.IsNative())
		assert.Equal(t, 1, p.Groups())

		p, err = c.Compile(glean.Str(`(?P<x>a)b`), 0)
		require.NoError(t, err)
		assert.False(t, p.IsNative())
		assert.Equal(t, map[string]int{"x": 1}, p.GroupIndex())
	})

	t.Run("SyntaxError", func(t *testing.T) {
		_, err := glean.NewConcreteCtx().Compile(glean.Str(`(a`), 0)
		e, ok := glean.AsException(err)
		require.True(t, ok, "unexpected error: %v", err)
		assert.Equal(t, glean.PatternError, e.Kind)
	})

	t.Run("BadType", func(t *testing.T) {
		_, err := glean.NewConcreteCtx().Compile(glean.NewInt(1), 0)
		MustRaise(t, glean.TypeError, "first argument must be string or compiled pattern", err)
	})

	t.Run("FlagsWithPattern", func(t *testing.T) {
		c := glean.NewConcreteCtx()
		p, err := c.Compile(glean.Str(`a`), 0)
		require.NoError(t, err)
		_, err = c.Compile(p, glean.ReIgnoreCase)
		MustRaise(t, glean.ValueError, "cannot process flags argument with a compiled pattern", err)
	})
}

func TestCtx_Search(t *testing.T) {
	c := glean.NewConcreteCtx()
	repr := reprOf(t, c)

	t.Run("Match", func(t *testing.T) {
		assert.Equal(t, "<re.Match object; span=(1, 4), match='aab'>", repr(c.Search(glean.Str(`a+b`), glean.Str("xaab"), 0)))
		assert.Equal(t, "None", repr(c.Search(glean.Str(`a+b`), glean.Str("xyz"), 0)))
	})

	t.Run("Anchored", func(t *testing.T) {
		assert.Equal(t, "None", repr(c.Match(glean.Str(`b`), glean.Str("ab"), 0)))
		assert.Equal(t, "<re.Match object; span=(0, 1), match='a'>", repr(c.Match(glean.Str(`a`), glean.Str("ab"), 0)))
		assert.Equal(t, "None", repr(c.FullMatch(glean.Str(`a`), glean.Str("ab"), 0)))
		assert.Equal(t, "<re.Match object; span=(0, 2), match='ab'>", repr(c.FullMatch(glean.Str(`a|ab`), glean.Str("ab"), 0)))
	})

	t.Run("Flags", func(t *testing.T) {
		assert.Equal(t, "<re.Match object; span=(0, 3), match='ABC'>", repr(c.Search(glean.Str(`abc`), glean.Str("ABC"), glean.ReIgnoreCase)))
		assert.Equal(t, "<re.Match object; span=(2, 3), match='b'>", repr(c.Search(glean.Str(`^b`), glean.Str("a\nb"), glean.ReMultiline)))
		assert.Equal(t, "None", repr(c.Search(glean.Str(`a.b`), glean.Str("a\nb"), 0)))
		assert.Equal(t, "<re.Match object; span=(0, 3), match='a\\nb'>", repr(c.Search(glean.Str(`a.b`), glean.Str("a\nb"), glean.ReDotAll)))
	})

	t.Run("Groups", func(t *testing.T) {
		m, err := c.Search(glean.Str(`(?P<key>\w+)=(\d+)?`), glean.Str("  x= "), 0)
		require.NoError(t, err)
		assert.Equal(t, "'x='", repr(c.CallMethod(m, "group")))
		assert.Equal(t, "'x'", repr(c.CallMethod(m, "group", glean.Str("key"))))
		assert.Equal(t, "['x', None]", repr(c.CallMethod(m, "groups")))
		assert.Equal(t, "['x', '']", repr(c.CallMethod(m, "groups", glean.Str(""))))
		assert.Equal(t, "{'key': 'x'}", repr(c.CallMethod(m, "groupdict")))
		assert.Equal(t, "[2, 4]", repr(c.CallMethod(m, "span")))
		assert.Equal(t, "-1", repr(c.CallMethod(m, "start", glean.NewInt(2))))
		assert.Equal(t, "'x:'", repr(c.CallMethod(m, "expand", glean.Str(`\g<key>:\2`))))

		_, err = c.CallMethod(m, "group", glean.NewInt(3))
		MustRaise(t, glean.IndexError, "no such group", err)
	})

	t.Run("Bytes", func(t *testing.T) {
		assert.Equal(t, "<re.Match object; span=(1, 2), match=b'b'>", repr(c.Search(glean.Bytes(`b`), glean.Bytes("abc"), 0)))

		_, err := c.Search(glean.Bytes(`b`), glean.Str("abc"), 0)
		MustRaise(t, glean.TypeError, "cannot use a bytes pattern on a string-like object", err)

		_, err = c.Search(glean.Str(`b`), glean.Bytes("abc"), 0)
		MustRaise(t, glean.TypeError, "cannot use a string pattern on a bytes-like object", err)
	})

	t.Run("Native", func(t *testing.T) {
		assert.Equal(t, "<re.Match object; span=(2, 6), match='abab'>", repr(c.Search(glean.Str(`(ab)\1`), glean.Str("xxabab"), 0)))
		assert.Equal(t, "None", repr(c.Match(glean.Str(`(ab)\1`), glean.Str("xxabab"), 0)))
	})
}

func TestCtx_FindAll(t *testing.T) {
	c := glean.NewConcreteCtx()
	repr := reprOf(t, c)

	assert.Equal(t, "['1', '22', '333']", repr(c.FindAll(glean.Str(`\d+`), glean.Str("a1b22c333"), 0)))
	assert.Equal(t, "['a', 'b']", repr(c.FindAll(glean.Str(`(\w)=`), glean.Str("a=1 b=2"), 0)))
	assert.Equal(t, "[['a', '1'], ['b', '2']]", repr(c.FindAll(glean.Str(`(\w)=(\d)`), glean.Str("a=1 b=2"), 0)))
	assert.Equal(t, "['', 'x', '', '']", repr(c.FindAll(glean.Str(`x*`), glean.Str("axb"), 0)))

	it, err := c.FindIter(glean.Str(`\d`), glean.Str("1a2"), 0)
	require.NoError(t, err)
	items, err := c.Items(it)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "<re.Match object; span=(2, 3), match='2'>", repr(items[1], nil))
}

func TestCtx_Sub(t *testing.T) {
	c := glean.NewConcreteCtx()
	repr := reprOf(t, c)

	t.Run("Template", func(t *testing.T) {
		assert.Equal(t, "'2-1 4-3'", repr(c.ReSub(glean.Str(`(\d)(\d)`), glean.Str(`\2-\1`), glean.Str("12 34"), 0, 0)))
		assert.Equal(t, "'<a>'", repr(c.ReSub(glean.Str(`(?P<w>\w+)`), glean.Str(`<\g<w>>`), glean.Str("a"), 0, 0)))
		assert.Equal(t, "'a\\nb'", repr(c.ReSub(glean.Str(`,`), glean.Str(`\n`), glean.Str("a,b"), 0, 0)))

		_, err := c.ReSub(glean.Str(`a`), glean.Str(`\1`), glean.Str("a"), 0, 0)
		MustRaise(t, glean.PatternError, "invalid group reference 1 at position 1", err)
	})

	t.Run("EmptyMatches", func(t *testing.T) {
		assert.Equal(t, "'-a-b--d-'", repr(c.ReSub(glean.Str(`x*`), glean.Str("-"), glean.Str("abxd"), 0, 0)))
		assert.Equal(t, "['-a-b--d-', 5]", repr(c.ReSubn(glean.Str(`x*`), glean.Str("-"), glean.Str("abxd"), 0, 0)))
	})

	t.Run("Count", func(t *testing.T) {
		assert.Equal(t, "'-ba-c'", repr(c.ReSub(glean.Str(`a`), glean.Str("-"), glean.Str("aba-c"), 1, 0)))
		assert.Equal(t, "'aaa'", repr(c.ReSub(glean.Str(`a`), glean.Str("-"), glean.Str("aaa"), -1, 0)))
	})

	t.Run("Func", func(t *testing.T) {
		upper := func(c *glean.Ctx, m *glean.Match) (glean.Value, error) {
			g, err := c.CallMethod(m, "group")
			if err != nil {
				return nil, err
			}
			return c.CallMethod(g, "upper")
		}
		assert.Equal(t, "'A-BB-c'", repr(c.ReSubFunc(glean.Str(`[ab]+`), upper, glean.Str("a-bb-c"), 0, 0)))

		bad := func(c *glean.Ctx, m *glean.Match) (glean.Value, error) { return glean.NewInt(1), nil }
		_, err := c.ReSubFunc(glean.Str(`a`), bad, glean.Str("a"), 0, 0)
		MustRaise(t, glean.TypeError, "expected str instance, int found", err)
	})
}

func TestCtx_Split(t *testing.T) {
	c := glean.NewConcreteCtx()
	repr := reprOf(t, c)

	assert.Equal(t, "['a', 'b', 'c']", repr(c.ReSplit(glean.Str(`[,;]`), glean.Str("a,b;c"), 0, 0)))
	assert.Equal(t, "['a', ',', 'b', ';', 'c']", repr(c.ReSplit(glean.Str(`([,;])`), glean.Str("a,b;c"), 0, 0)))
	assert.Equal(t, "['a', 'b;c']", repr(c.ReSplit(glean.Str(`[,;]`), glean.Str("a,b;c"), 1, 0)))
	assert.Equal(t, "['', 'a', '']", repr(c.ReSplit(glean.Str(`,`), glean.Str(",a,"), 0, 0)))
	assert.Equal(t, "['a,b']", repr(c.ReSplit(glean.Str(`,`), glean.Str("a,b"), -1, 0)))
}

// Ensure the compiled engine agrees with the native engine on patterns both
// support.
func TestPattern_NativeAgreement(t *testing.T) {
	patterns := []string{`a+b`, `(a|ab)(c|bcd)`, `^\w+\s*$`, `[^a-c]+`, `a*?b`, `(?:ab)+`, `\bfoo\b`, `x?y?z?`}
	inputs := []string{"", "ab", "aab", "abcd", "foo bar", "xyzzy", "  dab", "b", "cccxyz"}

	c := glean.NewConcreteCtx()
	for _, pattern := range patterns {
		re := regexp2.MustCompile(pattern, regexp2.RE2)
		for _, input := range inputs {
			got, err := c.Search(glean.Str(pattern), glean.Str(input), 0)
			require.NoError(t, err)

			m, err := re.FindStringMatch(input)
			require.NoError(t, err)
			if m == nil {
				assert.Equal(t, glean.Value(glean.None), got, "pattern=%q input=%q", pattern, input)
				continue
			}

			match, ok := got.(*glean.Match)
			require.True(t, ok, "pattern=%q input=%q: expected match", pattern, input)
			start, end := match.Span(0)
			assert.Equal(t, m.Index, start, "pattern=%q input=%q", pattern, input)
			assert.Equal(t, m.Index+m.Length, end, "pattern=%q input=%q", pattern, input)
			assert.Equal(t, m.String(), input[start:end], "pattern=%q input=%q", pattern, input)
		}
	}
}

// Every string over {a,b,c} up to length 6 matches a+b exactly when it
// contains "ab".
func TestPattern_SearchAlphabet(t *testing.T) {
	c := glean.NewConcreteCtx()
	re := regexp2.MustCompile(`a+b`, regexp2.RE2)

	inputs := []string{""}
	for n := 0; n < 6; n++ {
		for _, s := range inputs {
			if len(s) != n {
				continue
			}
			inputs = append(inputs, s+"a", s+"b", s+"c")
		}
	}
	require.Len(t, inputs, 1093)

	for _, input := range inputs {
		got, err := c.Search(glean.Str(`a+b`), glean.Str(input), 0)
		require.NoError(t, err)
		ok, err := re.MatchString(input)
		require.NoError(t, err)

		assert.Equal(t, ok, !c.Is(got, glean.None), "input=%q", input)
		assert.Equal(t, strings.Contains(input, "ab"), ok, "input=%q", input)
	}
}

func TestPatternCache(t *testing.T) {
	pc := glean.NewPatternCache(2)
	for _, src := range []string{"a", "b", "c", "a"} {
		_, err := pc.Compile(src, false, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, pc.Len())

	_, err := pc.Compile(strings.Repeat("(", 3), false, 0)
	assert.Error(t, err)
	assert.Equal(t, 2, pc.Len())
}
