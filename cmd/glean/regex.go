package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/benbjohnson/glean/regex"
)

// RegexCommand represents a command for inspecting compiled patterns.
type RegexCommand struct{}

// NewRegexCommand returns a new instance of RegexCommand.
func NewRegexCommand() *RegexCommand {
	return &RegexCommand{}
}

// Run executes the "regex" subcommand.
func (cmd *RegexCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("glean-regex", flag.ContinueOnError)
	ignoreCase := fs.Bool("i", false, "ignore case")
	multiline := fs.Bool("m", false, "multiline")
	dotAll := fs.Bool("s", false, "dot matches newline")
	ascii := fs.Bool("a", false, "ascii classes")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() == 0 {
		return fmt.Errorf("pattern required")
	} else if fs.NArg() > 1 {
		return fmt.Errorf("too many patterns specified")
	}

	var flags regex.Flags
	if *ignoreCase {
		flags |= regex.IgnoreCase
	}
	if *multiline {
		flags |= regex.Multiline
	}
	if *dotAll {
		flags |= regex.DotAll
	}
	if *ascii {
		flags |= regex.ASCII
	}

	prog, err := regex.Compile(fs.Arg(0), flags)
	if err != nil {
		return err
	}
	fmt.Print(prog.String())
	return nil
}

func (cmd *RegexCommand) usage() {
	fmt.Fprintln(os.Stderr, `
usage: glean regex [arguments] PATTERN

Arguments:

	-i
	    Ignore case.
	-m
	    ^ & $ match at line boundaries.
	-s
	    . matches newlines.
	-a
	    Restrict \w, \d & \s to ASCII.
`[1:])
}
