package regex

// compiler translates a parsed pattern into program instructions.
type compiler struct {
	flags  Flags
	insts  []Inst
	nmarks int
}

func (c *compiler) compile(root *node, ngroups int) (*Program, error) {
	// Group 0 wraps the whole pattern.
	wrapped := &node{kind: nodeGroup, group: 0, subs: []*node{root}}
	start, err := c.emitNode(wrapped)
	if err != nil {
		return nil, err
	}
	match := c.emit(Inst{Op: OpMatch})
	c.patch(start.out, match)

	return &Program{
		Flags:     c.flags,
		Insts:     c.insts,
		Start:     start.entry,
		NumGroups: ngroups,
		NumMarks:  c.nmarks,
	}, nil
}

// frag is a compiled fragment with an entry point & a list of dangling exits.
type frag struct {
	entry int
	out   []exit
}

// exit refers to an instruction field that must be patched to the next fragment.
type exit struct {
	pc int
	y  bool // patch Y instead of X
}

func (c *compiler) emit(inst Inst) int {
	c.insts = append(c.insts, inst)
	return len(c.insts) - 1
}

func (c *compiler) patch(out []exit, target int) {
	for _, e := range out {
		if e.y {
			c.insts[e.pc].Y = target
		} else {
			c.insts[e.pc].X = target
		}
	}
}

// emitNode compiles n. The returned fragment's exits are unpatched.
func (c *compiler) emitNode(n *node) (frag, error) {
	switch n.kind {
	case nodeEmpty:
		pc := c.emit(Inst{Op: OpJmp})
		return frag{entry: pc, out: []exit{{pc: pc}}}, nil

	case nodeChar:
		pc := c.emit(Inst{Op: OpChar, Class: n.class})
		return frag{entry: pc, out: []exit{{pc: pc}}}, nil

	case nodeAssert:
		pc := c.emit(Inst{Op: OpAssert, Assert: n.assert})
		return frag{entry: pc, out: []exit{{pc: pc}}}, nil

	case nodeConcat:
		var f frag
		for i, sub := range n.subs {
			next, err := c.emitNode(sub)
			if err != nil {
				return frag{}, err
			}
			if i == 0 {
				f = next
			} else {
				c.patch(f.out, next.entry)
				f.out = next.out
			}
		}
		return f, nil

	case nodeAlt:
		return c.emitAlt(n.subs)

	case nodeGroup:
		open := c.emit(Inst{Op: OpSave, Arg: 2 * n.group})
		body, err := c.emitNode(n.subs[0])
		if err != nil {
			return frag{}, err
		}
		c.insts[open].X = body.entry
		closing := c.emit(Inst{Op: OpSave, Arg: 2*n.group + 1})
		c.patch(body.out, closing)
		return frag{entry: open, out: []exit{{pc: closing}}}, nil

	case nodeLook:
		sub := &compiler{flags: c.flags}
		body, err := sub.emitNode(n.subs[0])
		if err != nil {
			return frag{}, err
		}
		match := sub.emit(Inst{Op: OpMatch})
		sub.patch(body.out, match)

		look := &Lookaround{
			Prog:   &Program{Flags: c.flags, Insts: sub.insts, Start: body.entry, NumMarks: sub.nmarks},
			Behind: n.behind,
			Negate: n.negate,
		}
		if n.behind {
			look.Width, _ = n.subs[0].width()
		}
		pc := c.emit(Inst{Op: OpLook, Look: look})
		return frag{entry: pc, out: []exit{{pc: pc}}}, nil

	case nodeRepeat:
		return c.emitRepeat(n)

	default:
		panic("unreachable")
	}
}

func (c *compiler) emitAlt(subs []*node) (frag, error) {
	first, err := c.emitNode(subs[0])
	if err != nil {
		return frag{}, err
	} else if len(subs) == 1 {
		return first, nil
	}

	split := c.emit(Inst{Op: OpSplit, X: first.entry})
	rest, err := c.emitAlt(subs[1:])
	if err != nil {
		return frag{}, err
	}
	c.insts[split].Y = rest.entry
	return frag{entry: split, out: append(first.out, rest.out...)}, nil
}

// emitRepeat expands a counted repetition into copies of the body followed by
// optional copies or a loop.
func (c *compiler) emitRepeat(n *node) (frag, error) {
	body := n.subs[0]

	var f frag
	has := false
	join := func(next frag) {
		if !has {
			f, has = next, true
			return
		}
		c.patch(f.out, next.entry)
		f.out = next.out
	}

	for i := 0; i < n.min; i++ {
		next, err := c.emitNode(body)
		if err != nil {
			return frag{}, err
		}
		join(next)
	}

	if n.max < 0 {
		next, err := c.emitStar(body, n.greedy)
		if err != nil {
			return frag{}, err
		}
		join(next)
	} else {
		for i := n.min; i < n.max; i++ {
			next, err := c.emitOptional(body, n.greedy)
			if err != nil {
				return frag{}, err
			}
			join(next)
		}
	}

	if !has {
		pc := c.emit(Inst{Op: OpJmp})
		return frag{entry: pc, out: []exit{{pc: pc}}}, nil
	}
	return f, nil
}

// emitOptional compiles body?, preferring the body when greedy.
func (c *compiler) emitOptional(body *node, greedy bool) (frag, error) {
	split := c.emit(Inst{Op: OpSplit})
	f, err := c.emitNode(body)
	if err != nil {
		return frag{}, err
	}
	if greedy {
		c.insts[split].X = f.entry
		return frag{entry: split, out: append(f.out, exit{pc: split, y: true})}, nil
	}
	c.insts[split].Y = f.entry
	return frag{entry: split, out: append(f.out, exit{pc: split})}, nil
}

// emitStar compiles body*. Bodies that can match the empty string record
// their starting position & stop looping once an iteration consumes nothing.
func (c *compiler) emitStar(body *node, greedy bool) (frag, error) {
	split := c.emit(Inst{Op: OpSplit})

	entry, mark := split, -1
	if body.nullable() {
		mark = c.nmarks
		c.nmarks++
	}

	f, err := c.emitNode(body)
	if err != nil {
		return frag{}, err
	}

	loopEntry := f.entry
	if mark >= 0 {
		loopEntry = c.emit(Inst{Op: OpMark, Arg: mark, X: f.entry})
		progress := c.emit(Inst{Op: OpProgress, Arg: mark, X: split})
		c.patch(f.out, progress)
	} else {
		c.patch(f.out, split)
	}

	var out []exit
	if greedy {
		c.insts[split].X = loopEntry
		out = []exit{{pc: split, y: true}}
	} else {
		c.insts[split].Y = loopEntry
		out = []exit{{pc: split}}
	}
	if mark >= 0 {
		out = append(out, exit{pc: len(c.insts) - 1, y: true})
	}
	return frag{entry: entry, out: out}, nil
}
