package regex

// Input is the subject of a match. Positions are character offsets. Each call
// is a decision point, so a symbolic implementation may branch on the outcome.
type Input interface {
	// InBounds returns true if pos is less than the length of the input.
	InBounds(pos int) (bool, error)

	// Test returns true if the character at pos is a member of cls. The
	// position is always in bounds.
	Test(pos int, cls *Class) (bool, error)
}

// RuneInput is a concrete Input over a slice of characters.
type RuneInput []rune

// InBounds returns true if pos is a valid index.
func (in RuneInput) InBounds(pos int) (bool, error) { return pos < len(in), nil }

// Test returns true if the character at pos is in cls.
func (in RuneInput) Test(pos int, cls *Class) (bool, error) { return cls.Contains(in[pos]), nil }

// Mode selects where a match must end.
type Mode int

// Match modes.
const (
	ModePrefix Mode = iota // match may end anywhere
	ModeFull               // match must end at the end of input
)

// Exec runs the program anchored at pos. It returns the capture positions of
// the first match found in priority order: 2*(NumGroups+1) offsets where -1
// marks an unset group. Returns nil if there is no match.
//
// If mustAdvance is set, an empty match at pos is rejected.
func (p *Program) Exec(in Input, pos int, mode Mode, mustAdvance bool) ([]int, error) {
	m := &machine{prog: p, in: in, full: mode == ModeFull, endAt: -1, start: pos, mustAdvance: mustAdvance}
	caps := make([]int, 2*(p.NumGroups+1))
	for i := range caps {
		caps[i] = -1
	}
	return m.exec(pos, caps)
}

// Search returns the captures of the first match starting at or after pos.
// Returns nil if there is no match.
func (p *Program) Search(in Input, pos int, mustAdvance bool) ([]int, error) {
	for start := pos; ; start++ {
		caps, err := p.Exec(in, start, ModePrefix, mustAdvance && start == pos)
		if err != nil || caps != nil {
			return caps, err
		}
		if ok, err := in.InBounds(start); err != nil {
			return nil, err
		} else if !ok {
			return nil, nil
		}
	}
}

// machine is a backtracking executor for a single match attempt.
type machine struct {
	prog        *Program
	in          Input
	full        bool
	endAt       int // required end position; -1 if unset
	start       int
	mustAdvance bool
}

func (m *machine) exec(pos int, caps []int) ([]int, error) {
	marks := make([]int, m.prog.NumMarks)
	caps, ok, err := m.run(m.prog.Start, pos, caps, marks)
	if err != nil || !ok {
		return nil, err
	}
	return caps, nil
}

// run executes from pc until the match succeeds or fails. Alternatives of a
// split are tried recursively so the first success in priority order wins.
func (m *machine) run(pc, pos int, caps, marks []int) ([]int, bool, error) {
	for {
		inst := &m.prog.Insts[pc]
		switch inst.Op {
		case OpMatch:
			if m.endAt >= 0 && pos != m.endAt {
				return nil, false, nil
			} else if m.mustAdvance && pos == m.start {
				return nil, false, nil
			}
			if m.full {
				if ok, err := m.in.InBounds(pos); err != nil || ok {
					return nil, false, err
				}
			}
			return caps, true, nil

		case OpChar:
			if ok, err := m.in.InBounds(pos); err != nil || !ok {
				return nil, false, err
			}
			if ok, err := m.in.Test(pos, inst.Class); err != nil || !ok {
				return nil, false, err
			}
			pos, pc = pos+1, inst.X

		case OpSplit:
			if result, ok, err := m.run(inst.X, pos, caps, marks); err != nil || ok {
				return result, ok, err
			}
			pc = inst.Y

		case OpJmp:
			pc = inst.X

		case OpSave:
			caps = with(caps, inst.Arg, pos)
			pc = inst.X

		case OpMark:
			marks = with(marks, inst.Arg, pos)
			pc = inst.X

		case OpProgress:
			if pos == marks[inst.Arg] {
				pc = inst.Y
			} else {
				pc = inst.X
			}

		case OpAssert:
			if ok, err := m.assert(inst.Assert, pos); err != nil || !ok {
				return nil, false, err
			}
			pc = inst.X

		case OpLook:
			next, ok, err := m.look(inst.Look, pos, caps)
			if err != nil || !ok {
				return nil, false, err
			}
			caps, pc = next, inst.X

		default:
			panic("unreachable")
		}
	}
}

// look runs a lookaround sub-program. Captures set by a successful positive
// lookaround are kept. Lookarounds never backtrack into their body.
func (m *machine) look(look *Lookaround, pos int, caps []int) ([]int, bool, error) {
	sub := &machine{prog: look.Prog, in: m.in, endAt: -1}
	start := pos
	if look.Behind {
		start, sub.endAt = pos-look.Width, pos
	}
	sub.start = start

	var result []int
	if start >= 0 {
		var err error
		if result, err = sub.exec(start, caps); err != nil {
			return nil, false, err
		}
	}

	if look.Negate {
		return caps, result == nil, nil
	} else if result == nil {
		return nil, false, nil
	}
	return result, true, nil
}

func (m *machine) assert(a Assertion, pos int) (bool, error) {
	switch a {
	case AssertBeginText:
		return pos == 0, nil

	case AssertBeginLine:
		if pos == 0 {
			return true, nil
		}
		return m.in.Test(pos-1, newlineClass)

	case AssertEndText:
		ok, err := m.in.InBounds(pos)
		return !ok, err

	case AssertEndLine:
		if ok, err := m.in.InBounds(pos); err != nil || !ok {
			return !ok, err
		}
		return m.in.Test(pos, newlineClass)

	case AssertEndTextOpt:
		if ok, err := m.in.InBounds(pos); err != nil || !ok {
			return !ok, err
		}
		if ok, err := m.in.Test(pos, newlineClass); err != nil || !ok {
			return false, err
		}
		ok, err := m.in.InBounds(pos + 1)
		return !ok, err

	case AssertWordBoundary, AssertNonWordBoundary:
		before, err := m.isWord(pos - 1)
		if err != nil {
			return false, err
		}
		after, err := m.isWord(pos)
		if err != nil {
			return false, err
		}
		if a == AssertWordBoundary {
			return before != after, nil
		}

		// An empty input has no non-boundary position.
		if pos == 0 {
			if ok, err := m.in.InBounds(0); err != nil || !ok {
				return false, err
			}
		}
		return before == after, nil

	default:
		panic("unreachable")
	}
}

func (m *machine) isWord(pos int) (bool, error) {
	if pos < 0 {
		return false, nil
	}
	if ok, err := m.in.InBounds(pos); err != nil || !ok {
		return false, err
	}
	return m.in.Test(pos, WordClass(m.prog.Flags))
}

// with returns a copy of a with a[i] set to v.
func with(a []int, i, v int) []int {
	other := make([]int, len(a))
	copy(other, a)
	other[i] = v
	return other
}
