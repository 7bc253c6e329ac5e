package regex

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/bits-and-blooms/bitset"
)

// MaxRune is the largest character a class can contain.
const MaxRune = unicode.MaxRune

// maxFoldRange is the largest range expanded rune by rune for case folding.
const maxFoldRange = 1 << 13

// Range is an inclusive range of characters.
type Range struct {
	Lo, Hi rune
}

// Class is a set of characters, stored as sorted non-overlapping ranges.
// ASCII membership is precomputed in a bitmap.
type Class struct {
	ranges []Range
	ascii  *bitset.BitSet
}

// NewClass returns a class containing the union of ranges.
func NewClass(ranges ...Range) *Class {
	rs := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if r.Lo <= r.Hi {
			rs = append(rs, r)
		}
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].Lo < rs[j].Lo })

	// Merge overlapping & adjacent ranges.
	var merged []Range
	for _, r := range rs {
		if n := len(merged); n > 0 && r.Lo <= merged[n-1].Hi+1 {
			if r.Hi > merged[n-1].Hi {
				merged[n-1].Hi = r.Hi
			}
			continue
		}
		merged = append(merged, r)
	}

	c := &Class{ranges: merged, ascii: bitset.New(128)}
	for _, r := range merged {
		for ch := r.Lo; ch <= r.Hi && ch < 128; ch++ {
			c.ascii.Set(uint(ch))
		}
	}
	return c
}

// Ranges returns the ranges of the class in ascending order.
func (c *Class) Ranges() []Range { return c.ranges }

// Contains returns true if ch is a member of the class.
func (c *Class) Contains(ch rune) bool {
	if ch >= 0 && ch < 128 {
		return c.ascii.Test(uint(ch))
	}
	i := sort.Search(len(c.ranges), func(i int) bool { return c.ranges[i].Hi >= ch })
	return i < len(c.ranges) && c.ranges[i].Lo <= ch
}

// Single returns the only member of the class, if it has exactly one.
func (c *Class) Single() (rune, bool) {
	if len(c.ranges) == 1 && c.ranges[0].Lo == c.ranges[0].Hi {
		return c.ranges[0].Lo, true
	}
	return 0, false
}

// Negate returns the complement of the class.
func (c *Class) Negate() *Class {
	var out []Range
	next := rune(0)
	for _, r := range c.ranges {
		if r.Lo > next {
			out = append(out, Range{next, r.Lo - 1})
		}
		next = r.Hi + 1
	}
	if next <= MaxRune {
		out = append(out, Range{next, MaxRune})
	}
	return NewClass(out...)
}

// Union returns a class containing members of both classes.
func (c *Class) Union(other *Class) *Class {
	rs := make([]Range, 0, len(c.ranges)+len(other.ranges))
	rs = append(rs, c.ranges...)
	rs = append(rs, other.ranges...)
	return NewClass(rs...)
}

// Fold returns the class closed under simple case folding.
func (c *Class) Fold() *Class {
	rs := append([]Range(nil), c.ranges...)
	for _, r := range c.ranges {
		if r.Hi-r.Lo > maxFoldRange {
			continue
		}
		for ch := r.Lo; ch <= r.Hi; ch++ {
			for f := unicode.SimpleFold(ch); f != ch; f = unicode.SimpleFold(f) {
				rs = append(rs, Range{f, f})
			}
		}
	}
	return NewClass(rs...)
}

// String returns the class in bracket notation.
func (c *Class) String() string {
	if ch, ok := c.Single(); ok {
		return fmt.Sprintf("%q", ch)
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, r := range c.ranges {
		if i == 8 {
			fmt.Fprintf(&sb, "...+%d", len(c.ranges)-i)
			break
		}
		if r.Lo == r.Hi {
			fmt.Fprintf(&sb, "%U", r.Lo)
		} else {
			fmt.Fprintf(&sb, "%U-%U", r.Lo, r.Hi)
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

// rangesFromTable returns the ranges of a unicode table.
func rangesFromTable(tables ...*unicode.RangeTable) []Range {
	var rs []Range
	for _, t := range tables {
		for _, r := range t.R16 {
			rs = appendStride(rs, rune(r.Lo), rune(r.Hi), rune(r.Stride))
		}
		for _, r := range t.R32 {
			rs = appendStride(rs, rune(r.Lo), rune(r.Hi), rune(r.Stride))
		}
	}
	return rs
}

func appendStride(rs []Range, lo, hi, stride rune) []Range {
	if stride == 1 {
		return append(rs, Range{lo, hi})
	}
	for ch := lo; ch <= hi; ch += stride {
		rs = append(rs, Range{ch, ch})
	}
	return rs
}

// Builtin classes.
var (
	anyClass       = NewClass(Range{0, MaxRune})
	newlineClass   = NewClass(Range{'\n', '\n'})
	notNewline     = newlineClass.Negate()
	asciiDigit     = NewClass(Range{'0', '9'})
	asciiWord      = NewClass(Range{'0', '9'}, Range{'A', 'Z'}, Range{'_', '_'}, Range{'a', 'z'})
	asciiSpace     = NewClass(Range{'\t', '\r'}, Range{' ', ' '})
	unicodeDigit   = NewClass(rangesFromTable(unicode.Nd)...)
	unicodeWord    = NewClass(append(rangesFromTable(unicode.L, unicode.N), Range{'_', '_'})...)
	unicodeSpace   = NewClass(
		Range{'\t', '\r'}, Range{0x1c, ' '}, Range{0x85, 0x85}, Range{0xa0, 0xa0},
		Range{0x1680, 0x1680}, Range{0x2000, 0x200a}, Range{0x2028, 0x2029},
		Range{0x202f, 0x202f}, Range{0x205f, 0x205f}, Range{0x3000, 0x3000},
	)
)

// NewlineClass returns the class matching only '\n'.
func NewlineClass() *Class { return newlineClass }

// WordClass returns the class of word characters used by \w & \b.
func WordClass(flags Flags) *Class {
	if flags&ASCII != 0 {
		return asciiWord
	}
	return unicodeWord
}

func digitClass(flags Flags) *Class {
	if flags&ASCII != 0 {
		return asciiDigit
	}
	return unicodeDigit
}

func spaceClass(flags Flags) *Class {
	if flags&ASCII != 0 {
		return asciiSpace
	}
	return unicodeSpace
}
