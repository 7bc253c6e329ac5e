// Package regex compiles regular expressions into backtracking programs that
// run over an abstract Input. Because every character test & bounds test goes
// through the Input, a program can be run over symbolic strings where each test
// is a branch decision.
package regex

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned by Compile for valid patterns that use features
// the machine does not implement, such as backreferences.
var ErrUnsupported = errors.New("unsupported regex feature")

// Flags modify the matching behavior of a pattern.
type Flags uint

// Pattern flags.
const (
	IgnoreCase Flags = 1 << iota // case-insensitive matching
	Multiline                    // ^ & $ also match at line boundaries
	DotAll                       // . also matches newline
	ASCII                        // \w, \d, \s & \b match ASCII only
)

// String returns the flags in the form used by inline flag groups.
func (f Flags) String() string {
	var sb strings.Builder
	if f&IgnoreCase != 0 {
		sb.WriteByte('i')
	}
	if f&Multiline != 0 {
		sb.WriteByte('m')
	}
	if f&DotAll != 0 {
		sb.WriteByte('s')
	}
	if f&ASCII != 0 {
		sb.WriteByte('a')
	}
	return sb.String()
}

// Error represents a syntax error in a pattern.
type Error struct {
	Msg     string
	Pattern string
	Pos     int
}

// Error returns the error message with the position of the error.
func (e *Error) Error() string {
	return fmt.Sprintf("%s at position %d", e.Msg, e.Pos)
}

// Op is the operation of an instruction.
type Op uint8

// Instruction operations.
const (
	OpMatch    Op = iota // accept
	OpChar               // consume one character in Class
	OpSplit              // try X, then Y
	OpJmp                // continue at X
	OpSave               // record the position in slot Arg
	OpAssert             // zero-width test of kind Assert
	OpLook               // run Sub at the current position without consuming
	OpMark               // record the position in loop mark Arg
	OpProgress           // continue at X if input was consumed since mark Arg, else Y
)

var opNames = [...]string{
	OpMatch:    "match",
	OpChar:     "char",
	OpSplit:    "split",
	OpJmp:      "jmp",
	OpSave:     "save",
	OpAssert:   "assert",
	OpLook:     "look",
	OpMark:     "mark",
	OpProgress: "progress",
}

// String returns the name of the operation.
func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op<%d>", op)
}

// Assertion is a zero-width condition on the current position.
type Assertion uint8

// Assertion kinds.
const (
	AssertBeginLine   Assertion = iota + 1 // ^
	AssertEndLine                          // $
	AssertBeginText                        // \A, or ^ without Multiline
	AssertEndText                          // \Z
	AssertEndTextOpt                       // $ without Multiline: end, or before a final newline
	AssertWordBoundary                     // \b
	AssertNonWordBoundary                  // \B
)

// Inst is a single instruction of a Program.
type Inst struct {
	Op     Op
	X, Y   int
	Arg    int
	Class  *Class
	Assert Assertion
	Look   *Lookaround
}

// Lookaround is a sub-program run at the current position.
type Lookaround struct {
	Prog   *Program
	Behind bool // match must end at the current position
	Width  int  // characters consumed by a lookbehind
	Negate bool
}

// Program is a compiled pattern.
type Program struct {
	Pattern   string
	Flags     Flags
	Insts     []Inst
	Start     int
	NumGroups int            // number of capture groups, excluding group 0
	Names     map[string]int // named group indexes
	NumMarks  int
}

// Compile parses pattern & compiles it into a program. Patterns using
// backreferences, conditionals, atomic groups or possessive quantifiers
// return an error wrapping ErrUnsupported.
func Compile(pattern string, flags Flags) (*Program, error) {
	p := &parser{src: []rune(pattern), pattern: pattern, flags: flags, names: make(map[string]int)}
	root, err := p.parse()
	if err != nil {
		return nil, err
	}

	c := &compiler{flags: p.flags}
	prog, err := c.compile(root, p.ngroups)
	if err != nil {
		return nil, err
	}
	prog.Pattern, prog.Flags, prog.Names = pattern, p.flags, p.names
	return prog, nil
}

// String returns a listing of the program instructions.
func (p *Program) String() string {
	var sb strings.Builder
	for i, inst := range p.Insts {
		if i == p.Start {
			sb.WriteString("*")
		}
		fmt.Fprintf(&sb, "%d\t%s", i, inst.Op)
		switch inst.Op {
		case OpChar:
			fmt.Fprintf(&sb, " %s -> %d", inst.Class, inst.X)
		case OpSplit:
			fmt.Fprintf(&sb, " %d, %d", inst.X, inst.Y)
		case OpJmp:
			fmt.Fprintf(&sb, " %d", inst.X)
		case OpSave, OpMark:
			fmt.Fprintf(&sb, " %d -> %d", inst.Arg, inst.X)
		case OpAssert:
			fmt.Fprintf(&sb, " %d -> %d", inst.Assert, inst.X)
		case OpLook:
			fmt.Fprintf(&sb, " behind=%v negate=%v -> %d", inst.Look.Behind, inst.Look.Negate, inst.X)
		case OpProgress:
			fmt.Fprintf(&sb, " %d ? %d : %d", inst.Arg, inst.X, inst.Y)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
