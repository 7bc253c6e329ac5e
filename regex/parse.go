package regex

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// maxRepeat is the largest explicit repetition count that is expanded.
const maxRepeat = 1000

type nodeKind int

const (
	nodeEmpty nodeKind = iota
	nodeChar           // single character from class
	nodeConcat
	nodeAlt
	nodeRepeat
	nodeGroup // capturing group
	nodeAssert
	nodeLook
)

// node is a parsed pattern element.
type node struct {
	kind   nodeKind
	class  *Class
	subs   []*node
	min    int
	max    int // -1 is unbounded
	greedy bool
	group  int
	assert Assertion
	behind bool
	negate bool
}

// width returns the fixed number of characters matched by n, if any.
func (n *node) width() (int, bool) {
	switch n.kind {
	case nodeEmpty, nodeAssert, nodeLook:
		return 0, true
	case nodeChar:
		return 1, true
	case nodeGroup:
		return n.subs[0].width()
	case nodeConcat:
		total := 0
		for _, sub := range n.subs {
			w, ok := sub.width()
			if !ok {
				return 0, false
			}
			total += w
		}
		return total, true
	case nodeAlt:
		w, ok := n.subs[0].width()
		for _, sub := range n.subs[1:] {
			if v, vok := sub.width(); !ok || !vok || v != w {
				return 0, false
			}
		}
		return w, ok
	case nodeRepeat:
		if n.min != n.max {
			return 0, false
		}
		w, ok := n.subs[0].width()
		return w * n.min, ok
	}
	return 0, false
}

// nullable returns true if n can match without consuming input.
func (n *node) nullable() bool {
	switch n.kind {
	case nodeEmpty, nodeAssert, nodeLook:
		return true
	case nodeChar:
		return false
	case nodeGroup:
		return n.subs[0].nullable()
	case nodeConcat:
		for _, sub := range n.subs {
			if !sub.nullable() {
				return false
			}
		}
		return true
	case nodeAlt:
		for _, sub := range n.subs {
			if sub.nullable() {
				return true
			}
		}
		return false
	case nodeRepeat:
		return n.min == 0 || n.subs[0].nullable()
	}
	return true
}

// parser is a recursive descent parser for the pattern syntax.
type parser struct {
	src     []rune
	pattern string
	pos     int
	flags   Flags
	ngroups int
	names   map[string]int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...), Pattern: p.pattern, Pos: p.pos}
}

func (p *parser) unsupported(feature string) error {
	return fmt.Errorf("%w: %s at position %d", ErrUnsupported, feature, p.pos)
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

// index returns the offset of the next ch from the current position, or -1.
func (p *parser) index(ch rune) int {
	for i := p.pos; i < len(p.src); i++ {
		if p.src[i] == ch {
			return i - p.pos
		}
	}
	return -1
}

func (p *parser) lookingAt(s string) bool {
	return strings.HasPrefix(string(p.src[p.pos:]), s)
}

func (p *parser) parse() (*node, error) {
	if err := p.parseGlobalFlags(); err != nil {
		return nil, err
	}
	n, err := p.parseAlt()
	if err != nil {
		return nil, err
	} else if !p.eof() {
		return nil, p.errorf("unbalanced parenthesis")
	}
	return n, nil
}

// parseGlobalFlags consumes inline flag groups at the start of the pattern.
func (p *parser) parseGlobalFlags() error {
	for p.lookingAt("(?") && p.pos+2 < len(p.src) && strings.ContainsRune("aiLmsux", p.src[p.pos+2]) {
		start := p.pos
		p.pos += 2
		for !p.eof() && p.peek() != ')' {
			switch p.peek() {
			case 'i':
				p.flags |= IgnoreCase
			case 'm':
				p.flags |= Multiline
			case 's':
				p.flags |= DotAll
			case 'a':
				p.flags |= ASCII
			case 'u':
			case ':', '-':
				p.pos = start
				return p.unsupported("scoped inline flags")
			default:
				return p.unsupported(fmt.Sprintf("inline flag %q", p.peek()))
			}
			p.pos++
		}
		if p.eof() {
			return p.errorf("missing ), unterminated subpattern")
		}
		p.pos++
	}
	return nil
}

func (p *parser) parseAlt() (*node, error) {
	var alts []*node
	for {
		n, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		alts = append(alts, n)
		if p.peek() != '|' || p.eof() {
			break
		}
		p.pos++
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return &node{kind: nodeAlt, subs: alts}, nil
}

func (p *parser) parseConcat() (*node, error) {
	var items []*node
	for !p.eof() && p.peek() != '|' && p.peek() != ')' {
		atom, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		if atom, err = p.parseQuantifier(atom); err != nil {
			return nil, err
		}
		items = append(items, atom)
	}

	switch len(items) {
	case 0:
		return &node{kind: nodeEmpty}, nil
	case 1:
		return items[0], nil
	default:
		return &node{kind: nodeConcat, subs: items}, nil
	}
}

func (p *parser) parseQuantifier(atom *node) (*node, error) {
	if p.eof() {
		return atom, nil
	}

	start := p.pos
	min, max := -1, -1
	switch p.peek() {
	case '*':
		min, max = 0, -1
		p.pos++
	case '+':
		min, max = 1, -1
		p.pos++
	case '?':
		min, max = 0, 1
		p.pos++
	case '{':
		var ok bool
		if min, max, ok = p.parseBraces(); !ok {
			p.pos = start
			return atom, nil
		}
	default:
		return atom, nil
	}

	if atom.kind == nodeAssert || atom.kind == nodeLook || atom.kind == nodeEmpty {
		p.pos = start
		return nil, p.errorf("nothing to repeat")
	}
	if max >= 0 && min > max {
		return nil, p.errorf("min repeat greater than max repeat")
	} else if min > maxRepeat || max > maxRepeat {
		return nil, p.unsupported("repetition count")
	}

	greedy := true
	if !p.eof() {
		switch p.peek() {
		case '?':
			greedy = false
			p.pos++
		case '+':
			return nil, p.unsupported("possessive quantifier")
		}
	}

	// A quantifier may only follow an atom. A group whose body is a
	// repeat, such as (?:a*)*, is still an atom.
	if p.atQuantifier() {
		return nil, p.errorf("multiple repeat")
	}
	return &node{kind: nodeRepeat, subs: []*node{atom}, min: min, max: max, greedy: greedy}, nil
}

// atQuantifier returns true if the next token is a quantifier.
func (p *parser) atQuantifier() bool {
	if p.eof() {
		return false
	}
	switch p.peek() {
	case '*', '+', '?':
		return true
	case '{':
		start := p.pos
		_, _, ok := p.parseBraces()
		p.pos = start
		return ok
	}
	return false
}

// parseBraces parses a {m,n} quantifier. Returns false if the braces are not
// a valid quantifier, in which case they are literal characters.
func (p *parser) parseBraces() (min, max int, ok bool) {
	end := p.index('}')
	if end < 0 {
		return 0, 0, false
	}
	body := string(p.src[p.pos+1 : p.pos+end])
	lo, hi, hasComma := strings.Cut(body, ",")

	parse := func(s string, def int) (int, bool) {
		if s == "" {
			return def, true
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return 0, false
			}
		}
		n, err := strconv.Atoi(s)
		return n, err == nil
	}

	if min, ok = parse(lo, 0); !ok {
		return 0, 0, false
	}
	if !hasComma {
		if lo == "" {
			return 0, 0, false
		}
		max = min
	} else if max, ok = parse(hi, -1); !ok {
		return 0, 0, false
	}
	p.pos += end + 1
	return min, max, true
}

func (p *parser) parseAtom() (*node, error) {
	ch := p.peek()
	switch ch {
	case '(':
		return p.parseGroup()
	case '[':
		cls, err := p.parseClass()
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeChar, class: cls}, nil
	case '.':
		p.pos++
		if p.flags&DotAll != 0 {
			return &node{kind: nodeChar, class: anyClass}, nil
		}
		return &node{kind: nodeChar, class: notNewline}, nil
	case '^':
		p.pos++
		if p.flags&Multiline != 0 {
			return &node{kind: nodeAssert, assert: AssertBeginLine}, nil
		}
		return &node{kind: nodeAssert, assert: AssertBeginText}, nil
	case '$':
		p.pos++
		if p.flags&Multiline != 0 {
			return &node{kind: nodeAssert, assert: AssertEndLine}, nil
		}
		return &node{kind: nodeAssert, assert: AssertEndTextOpt}, nil
	case '\\':
		return p.parseEscape()
	case '*', '+', '?':
		return nil, p.errorf("nothing to repeat")
	case '{':
		if _, _, ok := p.parseBraces(); ok {
			return nil, p.errorf("nothing to repeat")
		}
	}
	p.pos++
	return p.char(NewClass(Range{ch, ch})), nil
}

// char returns a character node, folding its class for IgnoreCase.
func (p *parser) char(cls *Class) *node {
	if p.flags&IgnoreCase != 0 {
		cls = cls.Fold()
	}
	return &node{kind: nodeChar, class: cls}
}

func (p *parser) parseGroup() (*node, error) {
	start := p.pos
	p.pos++ // (

	if p.peek() != '?' {
		p.ngroups++
		index := p.ngroups
		return p.parseGroupBody(&node{kind: nodeGroup, group: index}, start)
	}

	p.pos++ // ?
	switch {
	case p.lookingAt(":"):
		p.pos++
		return p.parseGroupBody(nil, start)
	case p.lookingAt("P<"):
		p.pos += 2
		end := p.index('>')
		if end < 0 {
			return nil, p.errorf("missing >, unterminated name")
		}
		name := string(p.src[p.pos : p.pos+end])
		if !isIdentifier(name) {
			return nil, p.errorf("bad character in group name %q", name)
		} else if _, ok := p.names[name]; ok {
			return nil, p.errorf("redefinition of group name %q", name)
		}
		p.pos += end + 1
		p.ngroups++
		p.names[name] = p.ngroups
		return p.parseGroupBody(&node{kind: nodeGroup, group: p.ngroups}, start)
	case p.lookingAt("P="):
		return nil, p.unsupported("named backreference")
	case p.lookingAt("="), p.lookingAt("!"):
		negate := p.peek() == '!'
		p.pos++
		return p.parseGroupBody(&node{kind: nodeLook, negate: negate}, start)
	case p.lookingAt("<="), p.lookingAt("<!"):
		negate := p.src[p.pos+1] == '!'
		p.pos += 2
		n, err := p.parseGroupBody(&node{kind: nodeLook, behind: true, negate: negate}, start)
		if err != nil {
			return nil, err
		} else if _, ok := n.subs[0].width(); !ok {
			p.pos = start
			return nil, p.errorf("look-behind requires fixed-width pattern")
		}
		return n, nil
	case p.lookingAt("#"):
		end := p.index(')')
		if end < 0 {
			return nil, p.errorf("missing ), unterminated comment")
		}
		p.pos += end + 1
		return &node{kind: nodeEmpty}, nil
	case p.lookingAt("("):
		return nil, p.unsupported("conditional group")
	case p.lookingAt(">"):
		return nil, p.unsupported("atomic group")
	default:
		return nil, p.unsupported("group extension")
	}
}

// parseGroupBody parses the alternatives of a group up to the closing paren.
// A nil wrapper returns the body itself.
func (p *parser) parseGroupBody(wrapper *node, start int) (*node, error) {
	body, err := p.parseAlt()
	if err != nil {
		return nil, err
	} else if p.eof() || p.peek() != ')' {
		p.pos = start
		return nil, p.errorf("missing ), unterminated subpattern")
	}
	p.pos++

	if wrapper == nil {
		return body, nil
	}
	wrapper.subs = []*node{body}
	return wrapper, nil
}

func (p *parser) parseEscape() (*node, error) {
	p.pos++ // backslash
	if p.eof() {
		return nil, p.errorf("bad escape (end of pattern)")
	}

	ch := p.peek()
	switch ch {
	case 'A':
		p.pos++
		return &node{kind: nodeAssert, assert: AssertBeginText}, nil
	case 'Z':
		p.pos++
		return &node{kind: nodeAssert, assert: AssertEndText}, nil
	case 'b':
		p.pos++
		return &node{kind: nodeAssert, assert: AssertWordBoundary}, nil
	case 'B':
		p.pos++
		return &node{kind: nodeAssert, assert: AssertNonWordBoundary}, nil
	case '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return nil, p.unsupported("backreference")
	}

	cls, err := p.parseClassEscape()
	if err != nil {
		return nil, err
	}
	return p.char(cls), nil
}

// parseClassEscape parses an escape valid both inside & outside of brackets.
// The position must be just after the backslash.
func (p *parser) parseClassEscape() (*Class, error) {
	ch := p.peek()
	p.pos++

	switch ch {
	case 'd':
		return digitClass(p.flags), nil
	case 'D':
		return digitClass(p.flags).Negate(), nil
	case 'w':
		return WordClass(p.flags), nil
	case 'W':
		return WordClass(p.flags).Negate(), nil
	case 's':
		return spaceClass(p.flags), nil
	case 'S':
		return spaceClass(p.flags).Negate(), nil
	}

	r, err := p.parseCharEscape(ch)
	if err != nil {
		return nil, err
	}
	return NewClass(Range{r, r}), nil
}

// parseCharEscape returns the character denoted by an escape sequence.
func (p *parser) parseCharEscape(ch rune) (rune, error) {
	switch ch {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case 'f':
		return '\f', nil
	case 'v':
		return '\v', nil
	case 'a':
		return '\a', nil
	case '0':
		// Up to two more octal digits.
		value := rune(0)
		for i := 0; i < 2 && !p.eof() && p.peek() >= '0' && p.peek() <= '7'; i++ {
			value = value*8 + (p.peek() - '0')
			p.pos++
		}
		return value, nil
	case 'x':
		return p.parseHex(2)
	case 'u':
		return p.parseHex(4)
	case 'U':
		return p.parseHex(8)
	}

	if ch < 128 && (unicode.IsLetter(ch) || unicode.IsDigit(ch)) {
		p.pos--
		return 0, p.errorf("bad escape \\%c", ch)
	}
	return ch, nil
}

func (p *parser) parseHex(n int) (rune, error) {
	if p.pos+n > len(p.src) {
		return 0, p.errorf("incomplete escape")
	}
	v, err := strconv.ParseUint(string(p.src[p.pos:p.pos+n]), 16, 32)
	if err != nil {
		return 0, p.errorf("incomplete escape")
	} else if v > MaxRune {
		return 0, p.errorf("bad escape")
	}
	p.pos += n
	return rune(v), nil
}

func (p *parser) parseClass() (*Class, error) {
	start := p.pos
	p.pos++ // [

	negate := false
	if p.peek() == '^' && !p.eof() {
		negate = true
		p.pos++
	}

	var cls *Class
	add := func(c *Class) {
		if cls == nil {
			cls = c
		} else {
			cls = cls.Union(c)
		}
	}

	first := true
	for {
		if p.eof() {
			p.pos = start
			return nil, p.errorf("unterminated character set")
		}
		ch := p.peek()
		if ch == ']' && !first {
			p.pos++
			break
		}
		first = false

		// Read the low end of a possible range.
		var lo rune
		if ch == '\\' {
			p.pos++
			if p.eof() {
				return nil, p.errorf("bad escape (end of pattern)")
			}
			esc := p.peek()
			if strings.ContainsRune("dDwWsS", esc) {
				c, err := p.parseClassEscape()
				if err != nil {
					return nil, err
				}
				add(c)
				continue
			}
			if esc == 'b' {
				p.pos++
				lo = '\b'
			} else {
				p.pos++
				r, err := p.parseCharEscape(esc)
				if err != nil {
					return nil, err
				}
				lo = r
			}
		} else {
			p.pos++
			lo = ch
		}

		// Read the high end of a range.
		hi := lo
		if p.peek() == '-' && p.pos+1 < len(p.src) && p.src[p.pos+1] != ']' {
			p.pos++
			ch := p.peek()
			p.pos++
			if ch == '\\' {
				if p.eof() {
					return nil, p.errorf("bad escape (end of pattern)")
				}
				esc := p.peek()
				p.pos++
				if strings.ContainsRune("dDwWsS", esc) {
					return nil, p.errorf("bad character range")
				}
				r, err := p.parseCharEscape(esc)
				if err != nil {
					return nil, err
				}
				ch = r
			}
			hi = ch
			if hi < lo {
				return nil, p.errorf("bad character range")
			}
		}
		add(NewClass(Range{lo, hi}))
	}

	if cls == nil {
		cls = NewClass()
	}
	if p.flags&IgnoreCase != 0 {
		cls = cls.Fold()
	}
	if negate {
		cls = cls.Negate()
	}
	return cls, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if !(r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r))) {
			return false
		}
	}
	return true
}
