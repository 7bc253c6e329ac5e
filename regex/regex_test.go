package regex_test

import (
	"errors"
	"testing"

	"github.com/benbjohnson/glean/regex"
	"github.com/dlclark/regexp2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	t.Run("Unsupported", func(t *testing.T) {
		for _, pattern := range []string{`(a)\1`, `(?P<x>a)(?P=x)`, `(?>a)`, `a*+`, `(?(1)a|b)`, `(?i:a)`} {
			_, err := regex.Compile(pattern, 0)
			assert.True(t, errors.Is(err, regex.ErrUnsupported), "pattern %q: %v", pattern, err)
		}
	})

	t.Run("SyntaxError", func(t *testing.T) {
		for _, pattern := range []string{`(a`, `a)`, `*a`, `[a`, `a{3,2}`, `(?<=a+)b`, `\q`} {
			_, err := regex.Compile(pattern, 0)
			var e *regex.Error
			assert.True(t, errors.As(err, &e), "pattern %q: %v", pattern, err)
		}
	})

	t.Run("MultipleRepeat", func(t *testing.T) {
		for _, pattern := range []string{`a**`, `a{2}{3}`, `a*??`, `(?:a)+*`} {
			_, err := regex.Compile(pattern, 0)
			var e *regex.Error
			if assert.True(t, errors.As(err, &e), "pattern %q: %v", pattern, err) {
				assert.Equal(t, "multiple repeat", e.Msg, "pattern %q", pattern)
			}
		}
	})

	t.Run("RepeatedGroup", func(t *testing.T) {
		for _, pattern := range []string{`(?:a*)*b`, `(?:a+)?`, `(?:ab){2}?`, `(a*)+`} {
			_, err := regex.Compile(pattern, 0)
			assert.NoError(t, err, "pattern %q", pattern)
		}
	})

	t.Run("GroupNames", func(t *testing.T) {
		prog, err := regex.Compile(`(?P<year>\d+)-(\d+)-(?P<day>\d+)`, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, prog.NumGroups)
		assert.Equal(t, map[string]int{"year": 1, "day": 3}, prog.Names)
	})

	t.Run("InlineFlags", func(t *testing.T) {
		prog, err := regex.Compile(`(?im)^abc`, 0)
		require.NoError(t, err)
		assert.Equal(t, regex.IgnoreCase|regex.Multiline, prog.Flags)
	})
}

func TestProgram_Exec(t *testing.T) {
	for _, tt := range []struct {
		pattern string
		flags   regex.Flags
		input   string
		mode    regex.Mode
		want    []int
	}{
		{pattern: `a+b`, input: "aaab", want: []int{0, 4}},
		{pattern: `a+b`, input: "b", want: nil},
		{pattern: `(a+)(a*)`, input: "aaa", want: []int{0, 3, 0, 3, 3, 3}},
		{pattern: `(a+?)(a*)`, input: "aaa", want: []int{0, 3, 0, 1, 1, 3}},
		{pattern: `(a|ab)(c|bcd)`, input: "abcd", want: []int{0, 4, 0, 1, 1, 4}},
		{pattern: `a{2,3}`, input: "aaaa", want: []int{0, 3}},
		{pattern: `a{2,3}?`, input: "aaaa", want: []int{0, 2}},
		{pattern: `a{,2}`, input: "aaa", want: []int{0, 2}},
		{pattern: `x{2`, input: "x{2", want: []int{0, 3}},
		{pattern: `(a|)*`, input: "aab", want: []int{0, 2, 2, 2}},
		{pattern: `(?:a*)*b`, input: "aab", want: []int{0, 3}},
		{pattern: `a(?=b)`, input: "ab", want: []int{0, 1}},
		{pattern: `a(?!b)`, input: "ab", want: nil},
		{pattern: `.(?<=b)`, input: "b", want: []int{0, 1}},
		{pattern: `.(?<!b)`, input: "b", want: nil},
		{pattern: `ABC`, flags: regex.IgnoreCase, input: "aBc", want: []int{0, 3}},
		{pattern: `[^a]`, flags: regex.IgnoreCase, input: "A", want: nil},
		{pattern: `\d+`, input: "12x", want: []int{0, 2}},
		{pattern: `\w+\b`, input: "ab cd", want: []int{0, 2}},
		{pattern: `\s\S`, input: " x", want: []int{0, 2}},
		{pattern: `a.c`, input: "a\nc", want: nil},
		{pattern: `a.c`, flags: regex.DotAll, input: "a\nc", want: []int{0, 3}},
		{pattern: `a$`, input: "a\n", want: []int{0, 1}},
		{pattern: `a\Z`, input: "a\n", want: nil},
		{pattern: `a+`, input: "aab", mode: regex.ModeFull, want: nil},
		{pattern: `a+|aab`, input: "aab", mode: regex.ModeFull, want: []int{0, 3}},
		{pattern: `[a-c]+`, input: "cab", want: []int{0, 3}},
		{pattern: `[\d-]+`, input: "1-2", want: []int{0, 3}},
		{pattern: `[]a]+`, input: "]a", want: []int{0, 2}},
	} {
		t.Run(tt.pattern, func(t *testing.T) {
			prog, err := regex.Compile(tt.pattern, tt.flags)
			require.NoError(t, err)

			caps, err := prog.Exec(regex.RuneInput(tt.input), 0, tt.mode, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, caps)
		})
	}
}

func TestProgram_Search(t *testing.T) {
	t.Run("Leftmost", func(t *testing.T) {
		prog, err := regex.Compile(`b+`, 0)
		require.NoError(t, err)
		caps, err := prog.Search(regex.RuneInput("aabbb"), 0, false)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 5}, caps)
	})

	t.Run("Multiline", func(t *testing.T) {
		prog, err := regex.Compile(`^b`, regex.Multiline)
		require.NoError(t, err)
		caps, err := prog.Search(regex.RuneInput("a\nb"), 0, false)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3}, caps)
	})

	t.Run("MustAdvance", func(t *testing.T) {
		prog, err := regex.Compile(`a*`, 0)
		require.NoError(t, err)
		caps, err := prog.Search(regex.RuneInput("ba"), 0, true)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, caps)
	})

	t.Run("NoMatch", func(t *testing.T) {
		prog, err := regex.Compile(`c`, 0)
		require.NoError(t, err)
		caps, err := prog.Search(regex.RuneInput("ab"), 0, false)
		require.NoError(t, err)
		assert.Nil(t, caps)
	})
}

// Ensure searches agree with a native engine on every short string.
func TestProgram_Search_Native(t *testing.T) {
	for _, pattern := range []string{`a+b`, `(a|b)*c`, `ab?c`, `[ab]{2}`, `a*?b`, `^a|c$`, `b(?=c)`, `(?<=a)b`} {
		t.Run(pattern, func(t *testing.T) {
			prog, err := regex.Compile(pattern, 0)
			require.NoError(t, err)
			native := regexp2.MustCompile(pattern, regexp2.None)

			for _, s := range enumerate("abc", 4) {
				caps, err := prog.Search(regex.RuneInput(s), 0, false)
				require.NoError(t, err)

				m, err := native.FindStringMatch(s)
				require.NoError(t, err)
				if m == nil {
					assert.Nil(t, caps, "input %q", s)
					continue
				}
				if assert.NotNil(t, caps, "input %q", s) {
					assert.Equal(t, []int{m.Index, m.Index + m.Length}, caps[:2], "input %q", s)
				}
			}
		})
	}
}

func TestClass(t *testing.T) {
	t.Run("Merge", func(t *testing.T) {
		c := regex.NewClass(regex.Range{Lo: 'a', Hi: 'c'}, regex.Range{Lo: 'd', Hi: 'f'}, regex.Range{Lo: 'b', Hi: 'd'})
		assert.Equal(t, []regex.Range{{Lo: 'a', Hi: 'f'}}, c.Ranges())
	})

	t.Run("Negate", func(t *testing.T) {
		c := regex.NewClass(regex.Range{Lo: 'b', Hi: 'b'}).Negate()
		assert.True(t, c.Contains('a'))
		assert.False(t, c.Contains('b'))
		assert.True(t, c.Contains(0x10FFFF))
		assert.Len(t, c.Ranges(), 2)
	})

	t.Run("Fold", func(t *testing.T) {
		c := regex.NewClass(regex.Range{Lo: 'k', Hi: 'k'}).Fold()
		assert.True(t, c.Contains('K'))
		assert.True(t, c.Contains('\u212A')) // Kelvin sign
	})

	t.Run("Single", func(t *testing.T) {
		ch, ok := regex.NewClass(regex.Range{Lo: 'x', Hi: 'x'}).Single()
		assert.True(t, ok)
		assert.Equal(t, 'x', ch)
	})
}

// enumerate returns every string over alphabet up to length n.
func enumerate(alphabet string, n int) []string {
	out := []string{""}
	prev := []string{""}
	for i := 0; i < n; i++ {
		var next []string
		for _, s := range prev {
			for _, ch := range alphabet {
				next = append(next, s+string(ch))
			}
		}
		out = append(out, next...)
		prev = next
	}
	return out
}
