package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/benbjohnson/glean"
	"github.com/benbjohnson/glean/z3"
	"github.com/goccy/go-json"
)

// CheckCommand represents a command for analyzing targets.
type CheckCommand struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewCheckCommand returns a new instance of CheckCommand.
func NewCheckCommand() *CheckCommand {
	return &CheckCommand{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes the "check" subcommand.
func (cmd *CheckCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("glean-check", flag.ContinueOnError)
	configPath := fs.String("config", "", "options file")
	asJSON := fs.Bool("json", false, "write results as JSON")
	repro := fs.Bool("repro", false, "print a reproduction program per violation")
	verbose := fs.Bool("v", false, "verbose")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	}

	opt := glean.DefaultOptions()
	if *configPath != "" {
		var err error
		if opt, err = glean.LoadOptions(*configPath); err != nil {
			return err
		}
	}
	if *verbose {
		opt.LogLevel = "debug"
	}
	logger, err := opt.Logger(cmd.Stderr)
	if err != nil {
		return err
	}

	targets, err := selectTargets(builtinTargets(), fs.Args())
	if err != nil {
		return err
	}

	pool := glean.NewPool(func() (glean.Solver, error) { return z3.NewSolver(), nil }, opt)
	pool.Logger = logger
	results, err := pool.Run(ctx, targets)
	if err != nil {
		return err
	}

	if *asJSON {
		if err := cmd.writeJSON(results); err != nil {
			return err
		}
	} else {
		cmd.writeText(results, *repro)
	}

	var failed int
	for _, r := range results {
		if r.Err != nil || r.Result.Outcome == glean.Violation || r.Result.Outcome == glean.Nondeterministic {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d target(s) failed", failed, len(results))
	}
	return nil
}

// selectTargets returns the targets named by names, or all targets if none.
func selectTargets(all []glean.Target, names []string) ([]glean.Target, error) {
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]glean.Target, len(all))
	for _, t := range all {
		byName[t.Name] = t
	}
	targets := make([]glean.Target, 0, len(names))
	for _, name := range names {
		t, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown target: %q", name)
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func (cmd *CheckCommand) writeText(results []*glean.PoolResult, repro bool) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(cmd.Stdout, "%s: error: %s\n", r.Target, r.Err)
			continue
		}

		res := r.Result
		fmt.Fprintf(cmd.Stdout, "%s\t%d paths\t%d steps\t%s\n", res, res.Stats.Paths(), res.Steps, res.Duration.Round(time.Millisecond))
		if repro && res.Counterexample != nil {
			if src, err := res.Counterexample.Repro(); err != nil {
				fmt.Fprintf(cmd.Stdout, "\trepro: %s\n", err)
			} else {
				fmt.Fprintln(cmd.Stdout, src)
			}
		}
	}
}

type resultJSON struct {
	Target         string                `json:"target"`
	RunID          string                `json:"run_id,omitempty"`
	Outcome        string                `json:"outcome,omitempty"`
	Reason         string                `json:"reason,omitempty"`
	Counterexample *glean.Counterexample `json:"counterexample,omitempty"`
	Paths          int                   `json:"paths"`
	Steps          int                   `json:"steps"`
	Unsupported    map[string]int        `json:"unsupported,omitempty"`
	Duration       string                `json:"duration,omitempty"`
	Error          string                `json:"error,omitempty"`
}

func (cmd *CheckCommand) writeJSON(results []*glean.PoolResult) error {
	out := make([]resultJSON, len(results))
	for i, r := range results {
		out[i].Target = r.Target
		if r.Err != nil {
			out[i].Error = r.Err.Error()
			continue
		}

		res := r.Result
		out[i].RunID = res.RunID.String()
		out[i].Outcome = res.Outcome.String()
		out[i].Reason = res.Reason
		out[i].Counterexample = res.Counterexample
		out[i].Paths = res.Stats.Paths()
		out[i].Steps = res.Steps
		out[i].Unsupported = res.Unsupported
		out[i].Duration = res.Duration.String()
	}

	enc := json.NewEncoder(cmd.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (cmd *CheckCommand) usage() {
	fmt.Fprintln(cmd.Stderr, `
usage: glean check [arguments] [target...]

Arguments:

	-config PATH
	    Read options from a YAML file.
	-json
	    Write results as JSON.
	-repro
	    Print a reproduction program for each violation.
	-v
	    Enable verbose logging.
`[1:])
}
