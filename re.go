package glean

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/glean/regex"
	"github.com/dlclark/regexp2"
	"github.com/tidwall/tinylru"
)

// PatternError is raised for invalid regular expressions.
var PatternError = NewExceptionType("re.error", BaseException)

// Flags accepted by Compile & the other re functions. Values match the
// language's re module.
const (
	ReIgnoreCase = 2
	ReMultiline  = 8
	ReDotAll     = 16
	ReUnicode    = 32
	ReVerbose    = 64
	ReASCII      = 256
)

// DefaultPatternCacheSize is the number of compiled patterns kept by a
// PatternCache.
const DefaultPatternCacheSize = 256

// nativeMatchTimeout bounds a single match by the native engine.
const nativeMatchTimeout = 10 * time.Second

// PatternCache holds recently compiled patterns. It is safe for concurrent use.
type PatternCache struct {
	lru tinylru.LRU
}

// NewPatternCache returns a cache holding up to size patterns.
func NewPatternCache(size int) *PatternCache {
	pc := &PatternCache{}
	pc.lru.Resize(size)
	return pc
}

type patternKey struct {
	source string
	bytes  bool
	flags  int
}

// Len returns the number of cached patterns.
func (pc *PatternCache) Len() int { return pc.lru.Len() }

// Compile returns the compiled pattern for source, compiling it on a miss.
func (pc *PatternCache) Compile(source string, isBytes bool, flags int) (*Pattern, error) {
	key := patternKey{source: source, bytes: isBytes, flags: flags}
	if v, ok := pc.lru.Get(key); ok {
		return v.(*Pattern), nil
	}
	p, err := compilePattern(source, isBytes, flags)
	if err != nil {
		return nil, err
	}
	pc.lru.Set(key, p)
	return p, nil
}

// execMode selects where a match may start & end.
type execMode int

const (
	execSearch execMode = iota // first match at or after pos
	execPrefix                 // match anchored at pos
	execFull                   // match anchored at pos & ending at the end
)

// Pattern is a compiled regular expression. Patterns our compiler supports
// run over symbolic input; the rest run on the native engine over realized
// input.
type Pattern struct {
	source string
	bytes  bool
	flags  int
	groups int
	names  map[string]int

	prog   *regex.Program
	native [3]*regexp2.Regexp // indexed by execMode
}

func (*Pattern) Type() Type { return TypePattern }

// Source returns the pattern text.
func (p *Pattern) Source() string { return p.source }

// Flags returns the flags the pattern was compiled with.
func (p *Pattern) Flags() int { return p.flags }

// Groups returns the number of capture groups.
func (p *Pattern) Groups() int { return p.groups }

// GroupIndex returns the index of each named group.
func (p *Pattern) GroupIndex() map[string]int { return p.names }

// IsNative returns true if the pattern runs on the native engine only.
func (p *Pattern) IsNative() bool { return p.prog == nil }

func compilePattern(source string, isBytes bool, flags int) (*Pattern, error) {
	if flags&^(ReIgnoreCase|ReMultiline|ReDotAll|ReUnicode|ReVerbose|ReASCII) != 0 {
		return nil, NewException(ValueError, "unsupported regex flags: %d", flags)
	} else if isBytes && flags&ReUnicode != 0 {
		return nil, NewException(ValueError, "cannot use UNICODE flag with a bytes pattern")
	}
	p := &Pattern{source: source, bytes: isBytes, flags: flags}

	var rf regex.Flags
	if flags&ReIgnoreCase != 0 {
		rf |= regex.IgnoreCase
	}
	if flags&ReMultiline != 0 {
		rf |= regex.Multiline
	}
	if flags&ReDotAll != 0 {
		rf |= regex.DotAll
	}
	if isBytes || flags&ReASCII != 0 {
		rf |= regex.ASCII
	}

	if flags&ReVerbose == 0 {
		prog, err := regex.Compile(source, rf)
		if err == nil {
			p.prog, p.groups, p.names = prog, prog.NumGroups, prog.Names
			return p, nil
		}
		var serr *regex.Error
		if errors.As(err, &serr) {
			return nil, NewException(PatternError, "%s", serr.Error())
		} else if !errors.Is(err, regex.ErrUnsupported) {
			return nil, err
		}
	}

	if err := p.compileNative(); err != nil {
		return nil, err
	}
	return p, nil
}

// compileNative compiles the pattern for the native engine. Every group is
// rewritten as a named group so the engine numbers groups left to right.
func (p *Pattern) compileNative() error {
	src, names, n, err := translatePattern(p.source)
	if err != nil {
		return err
	}
	p.groups, p.names = n, names

	opts := regexp2.None
	if p.flags&ReIgnoreCase != 0 {
		opts |= regexp2.IgnoreCase
	}
	if p.flags&ReMultiline != 0 {
		opts |= regexp2.Multiline
	}
	if p.flags&ReDotAll != 0 {
		opts |= regexp2.Singleline
	}
	if p.flags&ReVerbose != 0 {
		opts |= regexp2.IgnorePatternWhitespace
	}

	for mode, expr := range [...]string{
		execSearch: src,
		execPrefix: `\G(?:` + src + `)`,
		execFull:   `\G(?:` + src + `)\z`,
	} {
		re, err := regexp2.Compile(expr, opts)
		if err != nil {
			return NewException(PatternError, "%s", err)
		}
		re.MatchTimeout = nativeMatchTimeout
		p.native[mode] = re
	}
	return nil
}

// translatePattern rewrites a pattern into the native engine's dialect.
// Returns the named group indexes & the number of groups.
func translatePattern(src string) (string, map[string]int, int, error) {
	rs := []rune(src)
	names := make(map[string]int)
	var sb strings.Builder
	var n int
	for i := 0; i < len(rs); i++ {
		switch ch := rs[i]; {
		case ch == '\\' && i+1 < len(rs):
			if rs[i+1] == 'Z' {
				sb.WriteString(`\z`)
			} else {
				sb.WriteRune(ch)
				sb.WriteRune(rs[i+1])
			}
			i++

		case ch == '[':
			// Copy the class verbatim. A leading ] is a literal.
			j := i + 1
			if j < len(rs) && rs[j] == '^' {
				j++
			}
			if j < len(rs) && rs[j] == ']' {
				j++
			}
			for ; j < len(rs) && rs[j] != ']'; j++ {
				if rs[j] == '\\' {
					j++
				}
			}
			if j >= len(rs) {
				return "", nil, 0, NewException(PatternError, "unterminated character set at position %d", i)
			}
			sb.WriteString(string(rs[i : j+1]))
			i = j

		case ch == '(' && strings.HasPrefix(string(rs[i+1:]), "?P<"):
			end := indexRune(rs, '>', i+4)
			if end < 0 {
				return "", nil, 0, NewException(PatternError, "missing >, unterminated name at position %d", i+4)
			}
			n++
			name := string(rs[i+4 : end])
			names[name] = n
			sb.WriteString("(?<" + name + ">")
			i = end

		case ch == '(' && strings.HasPrefix(string(rs[i+1:]), "?P="):
			end := indexRune(rs, ')', i+4)
			if end < 0 {
				return "", nil, 0, NewException(PatternError, "missing ), unterminated name at position %d", i+4)
			}
			sb.WriteString(`\k<` + string(rs[i+4:end]) + ">")
			i = end

		case ch == '(' && (i+1 >= len(rs) || rs[i+1] != '?'):
			n++
			fmt.Fprintf(&sb, "(?<_g%d>", n)

		default:
			sb.WriteRune(ch)
		}
	}
	return sb.String(), names, n, nil
}

func indexRune(rs []rune, r rune, from int) int {
	for i := from; i < len(rs); i++ {
		if rs[i] == r {
			return i
		}
	}
	return -1
}

// execNative runs a native pattern over concrete input.
func (p *Pattern) execNative(runes []rune, pos int, mode execMode, mustAdvance bool) ([]int, error) {
	re := p.native[mode]
	for start := pos; start <= len(runes); start++ {
		m, err := re.FindRunesMatchStartingAt(runes, start)
		if err != nil {
			return nil, fmt.Errorf("native regex: %w", err)
		} else if m == nil {
			return nil, nil
		}
		if mustAdvance && m.Index == pos && m.Length == 0 {
			if mode != execSearch {
				return nil, nil
			}
			continue
		}

		caps := make([]int, 2*(p.groups+1))
		for i := 0; i <= p.groups; i++ {
			caps[2*i], caps[2*i+1] = -1, -1
			if g := m.GroupByNumber(i); g != nil && len(g.Captures) > 0 {
				caps[2*i], caps[2*i+1] = g.Index, g.Index+g.Length
			}
		}
		return caps, nil
	}
	return nil, nil
}

// seqInput is a regex input over a symbolic sequence. Every bounds check &
// character test is a decision on the path.
type seqInput struct {
	space *StateSpace
	q     *Seq
}

func (in *seqInput) InBounds(pos int) (bool, error) {
	return in.space.Choose(NewBinaryExpr(LT, NewIntConstantExpr(int64(pos)), in.q.Len()))
}

func (in *seqInput) Test(pos int, cls *regex.Class) (bool, error) {
	e, err := in.q.At(in.space, NewIntConstantExpr(int64(pos)))
	if err != nil {
		return false, err
	}
	return in.space.Choose(classExpr(e, cls))
}

// classExpr returns the membership condition of e in cls.
func classExpr(e Expr, cls *regex.Class) Expr {
	if r, ok := cls.Single(); ok {
		return NewBinaryExpr(EQ, e, NewIntConstantExpr(int64(r)))
	}
	ranges := cls.Ranges()
	conds := make([]Expr, len(ranges))
	for i, r := range ranges {
		if r.Lo == r.Hi {
			conds[i] = NewBinaryExpr(EQ, e, NewIntConstantExpr(int64(r.Lo)))
		} else {
			conds[i] = inRangeExpr(e, r.Lo, r.Hi)
		}
	}
	return NewOrExpr(conds...)
}

// reSubject is the prepared input of a match operation.
type reSubject struct {
	value Value
	in    regex.Input
	runes []rune // concrete input only
	q     *Seq   // symbolic input only
}

// subject checks the type of v against p & prepares it for matching.
// Native patterns realize symbolic input.
func (c *Ctx) subject(p *Pattern, v Value, endpos Value, op string) (*reSubject, error) {
	switch t := v.Type(); {
	case t != TypeStr && t != TypeBytes:
		return nil, NewException(TypeError, "expected string or bytes-like object, got '%s'", t)
	case p.bytes && t == TypeStr:
		return nil, NewException(TypeError, "cannot use a bytes pattern on a string-like object")
	case !p.bytes && t == TypeBytes:
		return nil, NewException(TypeError, "cannot use a string pattern on a bytes-like object")
	}

	if endpos != nil && endpos.Type() != TypeNone {
		end, err := c.Max(c.NewList(NewInt(0), endpos))
		if err != nil {
			return nil, err
		}
		if v, err = c.Slice(v, None, end, None); err != nil {
			return nil, err
		}
	}

	if p.prog != nil && c.symbolic(v) {
		q, _ := seqOf(v)
		return &reSubject{value: v, in: &seqInput{space: c.space, q: q}, q: q}, nil
	}

	var vals []Value
	var err error
	if p.prog == nil {
		vals, err = c.realizeMaybe("re."+op, v)
	} else {
		vals, err = c.realizeAll([]Value{v})
	}
	if err != nil {
		return nil, err
	}
	runes := units(vals[0])
	return &reSubject{value: vals[0], in: regex.RuneInput(runes), runes: runes}, nil
}

// clamp limits pos to the bounds of the subject.
func (c *Ctx) clamp(s *reSubject, pos int) (int, error) {
	if pos <= 0 {
		return 0, nil
	} else if s.q == nil {
		return min(pos, len(s.runes)), nil
	}
	if ok, err := s.in.InBounds(pos - 1); err != nil {
		return 0, err
	} else if ok {
		return pos, nil
	}
	return s.q.RealizeLen(c.space)
}

// exec runs p on the subject from pos. Returns nil if there is no match.
func (p *Pattern) exec(s *reSubject, pos int, mode execMode, mustAdvance bool) ([]int, error) {
	if p.prog == nil {
		return p.execNative(s.runes, pos, mode, mustAdvance)
	}
	switch mode {
	case execSearch:
		return p.prog.Search(s.in, pos, mustAdvance)
	case execPrefix:
		return p.prog.Exec(s.in, pos, regex.ModePrefix, mustAdvance)
	default:
		return p.prog.Exec(s.in, pos, regex.ModeFull, mustAdvance)
	}
}

// each calls fn for successive non-overlapping matches from pos. An empty
// match may not start where the previous empty match did. A positive limit
// bounds the number of matches.
func (p *Pattern) each(s *reSubject, pos, limit int, fn func(caps []int) error) error {
	var mustAdvance bool
	for n := 0; limit <= 0 || n < limit; n++ {
		caps, err := p.exec(s, pos, execSearch, mustAdvance)
		if err != nil {
			return err
		} else if caps == nil {
			return nil
		}
		if err := fn(caps); err != nil {
			return err
		}
		pos, mustAdvance = caps[1], caps[0] == caps[1]
	}
	return nil
}

// Match is the result of a successful match.
type Match struct {
	pattern *Pattern
	subject Value
	caps    []int
}

func (*Match) Type() Type { return TypeMatch }

// Span returns the offsets of group i, or -1, -1 if it did not participate.
func (m *Match) Span(i int) (start, end int) { return m.caps[2*i], m.caps[2*i+1] }

// Pattern returns the pattern that produced the match.
func (m *Match) Pattern() *Pattern { return m.pattern }

func (m *Match) repr() string {
	start, end := m.Span(0)
	if IsSymbolic(m.subject) {
		return fmt.Sprintf("<re.Match object; span=(%d, %d)>", start, end)
	}
	u := units(m.subject)[start:end]
	match := quoteStr(string(u))
	if m.subject.Type() == TypeBytes {
		match = quoteBytes(text(fromUnits(m.subject, u)))
	}
	return fmt.Sprintf("<re.Match object; span=(%d, %d), match=%s>", start, end, match)
}

// groupIndex resolves a group number or name.
func (m *Match) groupIndex(key Value) (int, error) {
	switch key := key.(type) {
	case Str:
		if i, ok := m.pattern.names[string(key)]; ok {
			return i, nil
		}
	case Int, Bool:
		if i, ok := toBig(key); ok && i.IsInt64() && i.Int64() >= 0 && i.Int64() <= int64(m.pattern.groups) {
			return int(i.Int64()), nil
		}
	}
	return 0, NewException(IndexError, "no such group")
}

// group returns the text of a group, or def if it did not participate.
func (m *Match) groupOr(c *Ctx, i int, def Value) (Value, error) {
	start, end := m.Span(i)
	if start < 0 {
		return def, nil
	}
	return c.Slice(m.subject, NewInt(int64(start)), NewInt(int64(end)), None)
}

func (m *Match) group(c *Ctx, key Value) (Value, error) {
	if IsSymbolic(key) {
		vals, err := c.realizeMaybe("re.Match[]", key)
		if err != nil {
			return nil, err
		}
		key = vals[0]
	}
	i, err := m.groupIndex(key)
	if err != nil {
		return nil, err
	}
	return m.groupOr(c, i, None)
}

// Compile returns the compiled pattern of a str or bytes pattern. A
// compiled pattern is returned as is.
func (c *Ctx) Compile(pattern Value, flags int) (*Pattern, error) {
	if p, ok := pattern.(*Pattern); ok {
		if flags != 0 {
			return nil, NewException(ValueError, "cannot process flags argument with a compiled pattern")
		}
		return p, nil
	} else if t := pattern.Type(); t != TypeStr && t != TypeBytes {
		return nil, NewException(TypeError, "first argument must be string or compiled pattern")
	}

	vals, err := c.realizeMaybe("re.compile", pattern)
	if err != nil {
		return nil, err
	}
	p, err := c.patterns.Compile(text(vals[0]), vals[0].Type() == TypeBytes, flags)
	if err != nil {
		return nil, err
	}
	c.logger.Trace().Str("component", "re").Str("pattern", p.source).Bool("native", p.IsNative()).Msg("compiled")
	return p, nil
}

// Match matches pattern at the start of s. Returns None if there is no match.
func (c *Ctx) Match(pattern, s Value, flags int) (Value, error) {
	return c.reCall(pattern, flags, "match", s)
}

// Search returns the first match of pattern in s, or None.
func (c *Ctx) Search(pattern, s Value, flags int) (Value, error) {
	return c.reCall(pattern, flags, "search", s)
}

// FullMatch matches pattern against the whole of s, or returns None.
func (c *Ctx) FullMatch(pattern, s Value, flags int) (Value, error) {
	return c.reCall(pattern, flags, "fullmatch", s)
}

// FindAll returns every non-overlapping match of pattern in s.
func (c *Ctx) FindAll(pattern, s Value, flags int) (Value, error) {
	return c.reCall(pattern, flags, "findall", s)
}

// FindIter returns an iterator over the matches of pattern in s.
func (c *Ctx) FindIter(pattern, s Value, flags int) (Value, error) {
	return c.reCall(pattern, flags, "finditer", s)
}

// ReSub replaces the first count matches of pattern in s with repl. A count
// of zero replaces every match.
func (c *Ctx) ReSub(pattern, repl, s Value, count, flags int) (Value, error) {
	return c.reCall(pattern, flags, "sub", repl, s, NewInt(int64(count)))
}

// ReSubn is like ReSub but returns a list of the result & the number of
// replacements.
func (c *Ctx) ReSubn(pattern, repl, s Value, count, flags int) (Value, error) {
	return c.reCall(pattern, flags, "subn", repl, s, NewInt(int64(count)))
}

// ReSplit splits s by the matches of pattern. Groups in the pattern are
// included in the result.
func (c *Ctx) ReSplit(pattern, s Value, maxsplit, flags int) (Value, error) {
	return c.reCall(pattern, flags, "split", s, NewInt(int64(maxsplit)))
}

// ReplFunc computes the replacement of a match.
type ReplFunc func(c *Ctx, m *Match) (Value, error)

// ReSubFunc is like ReSub but computes each replacement with fn.
func (c *Ctx) ReSubFunc(pattern Value, fn ReplFunc, s Value, count, flags int) (Value, error) {
	p, err := c.Compile(pattern, flags)
	if err != nil {
		return nil, err
	}
	out, _, err := c.sub(p, fn, s, count)
	return out, err
}

func (c *Ctx) reCall(pattern Value, flags int, name string, args ...Value) (Value, error) {
	p, err := c.Compile(pattern, flags)
	if err != nil {
		return nil, err
	}
	return c.CallMethod(p, name, args...)
}

var patternMethods = map[string]Method{
	"match":     patternExec("match", execPrefix),
	"search":    patternExec("search", execSearch),
	"fullmatch": patternExec("fullmatch", execFull),
	"findall":   patternFindAll,
	"finditer":  patternFindIter,
	"sub":       patternSub(false),
	"subn":      patternSub(true),
	"split":     patternSplit,
}

func asPattern(recv Value) *Pattern { return recv.(*Pattern) }

// intArg returns args[i] as an int, or def if it is missing or None.
func (c *Ctx) intArg(args []Value, i int, def int, name string) (int, error) {
	v := optArg(args, i)
	if v == nil {
		return def, nil
	}
	vals, err := c.realizeMaybe(name, v)
	if err != nil {
		return 0, err
	}
	return argInt(vals[0], name)
}

// posArgs returns the pos & endpos arguments following the subject.
func (c *Ctx) posArgs(name string, args []Value) (int, Value, error) {
	if err := checkArgs(name, args, 1, 3); err != nil {
		return 0, nil, err
	}
	pos, err := c.intArg(args, 1, 0, name)
	if err != nil {
		return 0, nil, err
	}
	return pos, optArg(args, 2), nil
}

func patternExec(name string, mode execMode) Method {
	return func(c *Ctx, recv Value, args ...Value) (Value, error) {
		p := asPattern(recv)
		pos, endpos, err := c.posArgs(name, args)
		if err != nil {
			return nil, err
		}
		s, err := c.subject(p, args[0], endpos, name)
		if err != nil {
			return nil, err
		}
		if pos, err = c.clamp(s, pos); err != nil {
			return nil, err
		}
		caps, err := p.exec(s, pos, mode, false)
		if err != nil {
			return nil, err
		} else if caps == nil {
			return None, nil
		}
		return &Match{pattern: p, subject: s.value, caps: caps}, nil
	}
}

// findAllItem returns the findall result of a single match.
func (c *Ctx) findAllItem(m *Match) (Value, error) {
	empty := wrapText(m.subject, "")
	if m.pattern.groups == 0 {
		return m.groupOr(c, 0, empty)
	} else if m.pattern.groups == 1 {
		return m.groupOr(c, 1, empty)
	}
	items := make([]Value, m.pattern.groups)
	for i := range items {
		g, err := m.groupOr(c, i+1, empty)
		if err != nil {
			return nil, err
		}
		items[i] = g
	}
	return c.NewList(items...), nil
}

func patternFindAll(c *Ctx, recv Value, args ...Value) (Value, error) {
	p := asPattern(recv)
	pos, endpos, err := c.posArgs("findall", args)
	if err != nil {
		return nil, err
	}
	s, err := c.subject(p, args[0], endpos, "findall")
	if err != nil {
		return nil, err
	}
	if pos, err = c.clamp(s, pos); err != nil {
		return nil, err
	}

	var out []Value
	if err := p.each(s, pos, 0, func(caps []int) error {
		item, err := c.findAllItem(&Match{pattern: p, subject: s.value, caps: caps})
		if err != nil {
			return err
		}
		out = append(out, item)
		return nil
	}); err != nil {
		return nil, err
	}
	return c.NewList(out...), nil
}

// matchIterator lazily produces successive matches.
type matchIterator struct {
	p           *Pattern
	s           *reSubject
	pos         int
	mustAdvance bool
	done        bool
}

func (*matchIterator) Type() Type { return TypeIterator }

func (it *matchIterator) Next(c *Ctx) (Value, bool, error) {
	if it.done {
		return nil, false, nil
	}
	caps, err := it.p.exec(it.s, it.pos, execSearch, it.mustAdvance)
	if err != nil {
		return nil, false, err
	} else if caps == nil {
		it.done = true
		return nil, false, nil
	}
	m := &Match{pattern: it.p, subject: it.s.value, caps: caps}
	it.pos, it.mustAdvance = caps[1], caps[0] == caps[1]
	return m, true, nil
}

func patternFindIter(c *Ctx, recv Value, args ...Value) (Value, error) {
	p := asPattern(recv)
	pos, endpos, err := c.posArgs("finditer", args)
	if err != nil {
		return nil, err
	}
	s, err := c.subject(p, args[0], endpos, "finditer")
	if err != nil {
		return nil, err
	}
	if pos, err = c.clamp(s, pos); err != nil {
		return nil, err
	}
	return &matchIterator{p: p, s: s, pos: pos}, nil
}

func patternSub(withCount bool) Method {
	name := "sub"
	if withCount {
		name = "subn"
	}
	return func(c *Ctx, recv Value, args ...Value) (Value, error) {
		p := asPattern(recv)
		if err := checkArgs(name, args, 2, 3); err != nil {
			return nil, err
		}
		count, err := c.intArg(args, 2, 0, name)
		if err != nil {
			return nil, err
		}

		repl := args[0]
		if t := repl.Type(); t != TypeStr && t != TypeBytes {
			return nil, NewException(TypeError, "expected str or bytes-like object, got '%s'", t)
		}
		vals, err := c.realizeMaybe("re."+name, repl)
		if err != nil {
			return nil, err
		}
		parts, err := parseTemplate(p, text(vals[0]))
		if err != nil {
			return nil, err
		}
		fn := func(c *Ctx, m *Match) (Value, error) { return m.expand(c, parts) }

		out, n, err := c.sub(p, fn, args[1], count)
		if err != nil {
			return nil, err
		} else if withCount {
			return c.NewList(out, NewInt(int64(n))), nil
		}
		return out, nil
	}
}

// sub replaces up to count matches of p in v using fn. A negative count
// replaces nothing.
func (c *Ctx) sub(p *Pattern, fn ReplFunc, v Value, count int) (Value, int, error) {
	s, err := c.subject(p, v, nil, "sub")
	if err != nil {
		return nil, 0, err
	} else if count < 0 {
		return s.value, 0, nil
	}

	out, last, n := wrapText(s.value, ""), 0, 0
	if err := p.each(s, 0, count, func(caps []int) error {
		m := &Match{pattern: p, subject: s.value, caps: caps}
		r, err := fn(c, m)
		if err != nil {
			return err
		} else if r.Type() != s.value.Type() {
			return NewException(TypeError, "expected %s instance, %s found", s.value.Type(), r.Type())
		}
		piece, err := c.Slice(s.value, NewInt(int64(last)), NewInt(int64(caps[0])), None)
		if err != nil {
			return err
		}
		if out, err = c.Add(out, piece); err != nil {
			return err
		} else if out, err = c.Add(out, r); err != nil {
			return err
		}
		last, n = caps[1], n+1
		return nil
	}); err != nil {
		return nil, 0, err
	}

	rest, err := c.Slice(s.value, NewInt(int64(last)), None, None)
	if err != nil {
		return nil, 0, err
	}
	out, err = c.Add(out, rest)
	return out, n, err
}

func patternSplit(c *Ctx, recv Value, args ...Value) (Value, error) {
	p := asPattern(recv)
	if err := checkArgs("split", args, 1, 2); err != nil {
		return nil, err
	}
	maxsplit, err := c.intArg(args, 1, 0, "split")
	if err != nil {
		return nil, err
	}
	s, err := c.subject(p, args[0], nil, "split")
	if err != nil {
		return nil, err
	} else if maxsplit < 0 {
		return c.NewList(s.value), nil
	}

	var out []Value
	last := 0
	if err := p.each(s, 0, maxsplit, func(caps []int) error {
		piece, err := c.Slice(s.value, NewInt(int64(last)), NewInt(int64(caps[0])), None)
		if err != nil {
			return err
		}
		out = append(out, piece)
		m := &Match{pattern: p, subject: s.value, caps: caps}
		for i := 1; i <= p.groups; i++ {
			g, err := m.groupOr(c, i, None)
			if err != nil {
				return err
			}
			out = append(out, g)
		}
		last = caps[1]
		return nil
	}); err != nil {
		return nil, err
	}

	rest, err := c.Slice(s.value, NewInt(int64(last)), None, None)
	if err != nil {
		return nil, err
	}
	return c.NewList(append(out, rest)...), nil
}

// templatePart is a literal or a group reference of a replacement template.
type templatePart struct {
	lit   string
	group int // -1 for literals
}

// parseTemplate parses the backslash escapes & group references of a
// replacement template.
func parseTemplate(p *Pattern, tmpl string) ([]templatePart, error) {
	var parts []templatePart
	var lit strings.Builder
	ref := func(i int) {
		if lit.Len() > 0 {
			parts = append(parts, templatePart{lit: lit.String(), group: -1})
			lit.Reset()
		}
		parts = append(parts, templatePart{group: i})
	}

	rs := []rune(tmpl)
	for i := 0; i < len(rs); i++ {
		if rs[i] != '\\' {
			lit.WriteRune(rs[i])
			continue
		} else if i+1 >= len(rs) {
			return nil, NewException(PatternError, "bad escape (end of pattern) at position %d", i)
		}

		i++
		switch ch := rs[i]; {
		case ch == 'g':
			if i+1 >= len(rs) || rs[i+1] != '<' {
				return nil, NewException(PatternError, "missing < at position %d", i+1)
			}
			end := indexRune(rs, '>', i+2)
			if end < 0 {
				return nil, NewException(PatternError, "missing >, unterminated name at position %d", i+2)
			}
			name := string(rs[i+2 : end])
			g, err := strconv.Atoi(name)
			if err != nil {
				idx, ok := p.names[name]
				if !ok {
					return nil, NewException(IndexError, "unknown group name '%s'", name)
				}
				g = idx
			} else if g < 0 || g > p.groups {
				return nil, NewException(PatternError, "invalid group reference %d at position %d", g, i+2)
			}
			ref(g)
			i = end

		case ch >= '0' && ch <= '9':
			g := int(ch - '0')
			if i+1 < len(rs) && rs[i+1] >= '0' && rs[i+1] <= '9' {
				g = g*10 + int(rs[i+1]-'0')
				i++
			}
			if g > p.groups {
				return nil, NewException(PatternError, "invalid group reference %d at position %d", g, i)
			}
			ref(g)

		case ch == 'n':
			lit.WriteByte('\n')
		case ch == 't':
			lit.WriteByte('\t')
		case ch == 'r':
			lit.WriteByte('\r')
		case ch == 'f':
			lit.WriteByte('\f')
		case ch == 'v':
			lit.WriteByte('\v')
		case ch == 'a':
			lit.WriteByte('\a')
		case ch == 'b':
			lit.WriteByte('\b')
		case ch == '\\':
			lit.WriteByte('\\')
		case ch < 0x80 && (ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'):
			return nil, NewException(PatternError, "bad escape \\%c at position %d", ch, i-1)
		default:
			lit.WriteRune('\\')
			lit.WriteRune(ch)
		}
	}
	if lit.Len() > 0 {
		parts = append(parts, templatePart{lit: lit.String(), group: -1})
	}
	return parts, nil
}

// expand substitutes the groups of m into a parsed template. Groups that
// did not participate are empty.
func (m *Match) expand(c *Ctx, parts []templatePart) (Value, error) {
	empty := wrapText(m.subject, "")
	out := empty
	for _, part := range parts {
		v := wrapText(m.subject, part.lit)
		if part.group >= 0 {
			var err error
			if v, err = m.groupOr(c, part.group, empty); err != nil {
				return nil, err
			}
		}
		var err error
		if out, err = c.Add(out, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

var matchMethods = map[string]Method{
	"group":     matchGroup,
	"groups":    matchGroups,
	"groupdict": matchGroupDict,
	"start":     matchSpan("start"),
	"end":       matchSpan("end"),
	"span":      matchSpan("span"),
	"expand":    matchExpand,
}

func matchGroup(c *Ctx, recv Value, args ...Value) (Value, error) {
	m := recv.(*Match)
	if len(args) == 0 {
		return m.groupOr(c, 0, None)
	} else if len(args) == 1 {
		return m.group(c, args[0])
	}
	items := make([]Value, len(args))
	for i, arg := range args {
		g, err := m.group(c, arg)
		if err != nil {
			return nil, err
		}
		items[i] = g
	}
	return c.NewList(items...), nil
}

func matchGroups(c *Ctx, recv Value, args ...Value) (Value, error) {
	m := recv.(*Match)
	if err := checkArgs("groups", args, 0, 1); err != nil {
		return nil, err
	}
	def := Value(None)
	if len(args) > 0 {
		def = args[0]
	}
	items := make([]Value, m.pattern.groups)
	for i := range items {
		g, err := m.groupOr(c, i+1, def)
		if err != nil {
			return nil, err
		}
		items[i] = g
	}
	return c.NewList(items...), nil
}

func matchGroupDict(c *Ctx, recv Value, args ...Value) (Value, error) {
	m := recv.(*Match)
	if err := checkArgs("groupdict", args, 0, 1); err != nil {
		return nil, err
	}
	def := Value(None)
	if len(args) > 0 {
		def = args[0]
	}

	// Named groups in pattern order.
	names := make([]string, m.pattern.groups+1)
	for name, i := range m.pattern.names {
		names[i] = name
	}
	d := NewDict()
	for i, name := range names {
		if name == "" {
			continue
		}
		g, err := m.groupOr(c, i, def)
		if err != nil {
			return nil, err
		}
		if err := d.Set(Str(name), g); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func matchSpan(name string) Method {
	return func(c *Ctx, recv Value, args ...Value) (Value, error) {
		m := recv.(*Match)
		if err := checkArgs(name, args, 0, 1); err != nil {
			return nil, err
		}
		i := 0
		if len(args) > 0 {
			vals, err := c.realizeMaybe("re.Match."+name, args[0])
			if err != nil {
				return nil, err
			}
			if i, err = m.groupIndex(vals[0]); err != nil {
				return nil, err
			}
		}
		start, end := m.Span(i)
		switch name {
		case "start":
			return NewInt(int64(start)), nil
		case "end":
			return NewInt(int64(end)), nil
		default:
			return c.NewList(NewInt(int64(start)), NewInt(int64(end))), nil
		}
	}
}

func matchExpand(c *Ctx, recv Value, args ...Value) (Value, error) {
	m := recv.(*Match)
	if err := checkArgs("expand", args, 1, 1); err != nil {
		return nil, err
	}
	vals, err := c.realizeMaybe("re.Match.expand", args[0])
	if err != nil {
		return nil, err
	} else if vals[0].Type() != m.subject.Type() {
		return nil, NewException(TypeError, "expected %s instance, %s found", m.subject.Type(), vals[0].Type())
	}
	parts, err := parseTemplate(m.pattern, text(vals[0]))
	if err != nil {
		return nil, err
	}
	return m.expand(c, parts)
}
