package glean

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Budget limits the exploration of a single target.
type Budget struct {
	MaxSteps        int           // branch decisions across all paths; zero is unlimited
	MaxDuration     time.Duration // whole analysis; zero is unlimited
	PerPathTimeout  time.Duration // single path attempt; zero is unlimited
	PerCheckTimeout time.Duration // single solver check; zero is unlimited
	MaxIterations   int           // path attempts; zero is unlimited
}

// DefaultBudget returns the budget used when none is configured.
func DefaultBudget() Budget {
	return Budget{
		MaxSteps:        100000,
		MaxDuration:     30 * time.Second,
		PerPathTimeout:  5 * time.Second,
		PerCheckTimeout: 2 * time.Second,
	}
}

// Outcome is the verdict of an analysis.
type Outcome int

// Outcomes.
const (
	Safe             Outcome = iota // every path was explored without a violation
	Violation                       // a counterexample was found & replayed
	Inconclusive                    // exploration stopped before the tree was exhausted
	Vacuous                         // no input satisfies the preconditions
	Nondeterministic                // the target did not behave the same on replay
)

var outcomeNames = [...]string{
	Safe:             "safe",
	Violation:        "violation",
	Inconclusive:     "inconclusive",
	Vacuous:          "vacuous",
	Nondeterministic: "nondeterministic",
}

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome<%d>", o)
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Result is the result of analyzing a single target.
type Result struct {
	RunID          ulid.ULID
	Target         string
	Outcome        Outcome
	Reason         string // why the analysis was inconclusive or vacuous
	Counterexample *Counterexample
	Messages       []*Message
	Stats          PathStats
	Solver         BridgeStats
	Steps          int
	Unsupported    map[string]int // fallback operation counts
	Duration       time.Duration
}

// UnsupportedCount returns the total number of operations that fell back to
// concrete execution.
func (r *Result) UnsupportedCount() int {
	var n int
	for _, v := range r.Unsupported {
		n += v
	}
	return n
}

// Analyzer explores the paths of targets looking for contract violations.
// An Analyzer owns its solver and must not be used concurrently.
type Analyzer struct {
	solver Solver

	Budget Budget

	// If true, exploration continues after the first violation.
	ReportAllViolations bool

	// Maximum number of unsupported operation events before a clean
	// exploration is reported as inconclusive. Negative is unlimited.
	UnsupportedTolerance int

	Patterns *PatternCache
	Logger   zerolog.Logger
}

// NewAnalyzer returns a new Analyzer using solver.
func NewAnalyzer(solver Solver) *Analyzer {
	return &Analyzer{
		solver:               solver,
		Budget:               DefaultBudget(),
		UnsupportedTolerance: -1,
		Patterns:             NewPatternCache(DefaultPatternCacheSize),
		Logger:               zerolog.Nop(),
	}
}

// Analyze explores t until its search tree is exhausted, a violation is
// found, or the budget runs out. An internal engine fault is returned as an
// error wrapping ErrInternal.
func (a *Analyzer) Analyze(ctx context.Context, t Target) (_ *Result, err error) {
	if t.Fn == nil {
		return nil, fmt.Errorf("%w: target %q has no function", ErrInternal, t.Name)
	} else if err := t.Contract.validate(); err != nil {
		return nil, fmt.Errorf("%w: target %q: %s", ErrInternal, t.Name, err)
	}

	start := time.Now()
	res := &Result{RunID: ulid.Make(), Target: t.Name, Unsupported: make(map[string]int)}
	logger := a.Logger.With().Str("run", res.RunID.String()).Str("target", t.Name).Logger()

	if err := a.solver.SetTimeout(a.Budget.PerCheckTimeout); err != nil {
		return nil, err
	}
	if i, ok := a.solver.(Interrupter); ok {
		// An interrupt already in flight must finish before the caller
		// can close the solver.
		done := make(chan struct{})
		stop := context.AfterFunc(ctx, func() {
			defer close(done)
			i.Interrupt()
		})
		defer func() {
			if !stop() {
				<-done
			}
		}()
	}

	bridge := NewBridge(a.solver)
	defer func() {
		if e := bridge.Reset(); e != nil && err == nil {
			err = e
		}
	}()

	var deadline time.Time
	if a.Budget.MaxDuration > 0 {
		deadline = start.Add(a.Budget.MaxDuration)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}

	tree := NewSearchTree()
	steps := &StepBudget{Max: a.Budget.MaxSteps}
	var nondeterministic bool

	for iter := 0; !tree.Exhausted(); iter++ {
		if err := ctx.Err(); err != nil {
			res.Reason = err.Error()
			break
		} else if a.Budget.MaxIterations > 0 && iter >= a.Budget.MaxIterations {
			res.Reason = "iteration limit reached"
			break
		} else if !deadline.IsZero() && time.Now().After(deadline) {
			res.Reason = "deadline exceeded"
			break
		}

		pathDeadline := deadline
		if a.Budget.PerPathTimeout > 0 {
			if d := time.Now().Add(a.Budget.PerPathTimeout); pathDeadline.IsZero() || d.Before(pathDeadline) {
				pathDeadline = d
			}
		}

		space := NewStateSpace(tree, bridge, StateSpaceConfig{Deadline: pathDeadline, Steps: steps, Logger: logger})
		result, err := a.runPath(space, &t, logger)
		if err != nil {
			logger.Error().Str("component", "path").Err(err).Msg("internal error")
			return nil, err
		}
		for _, op := range space.Unsupported() {
			res.Unsupported[op]++
		}
		space.Bubble(result)
		logger.Debug().Str("component", "path").Int("iter", iter).Stringer("status", result.Status).Int("choices", space.Choices()).Msg("path complete")

		if aborted := space.Aborted(); errors.Is(aborted, ErrNotDeterministic) {
			nondeterministic, res.Reason = true, "decisions changed on replay"
			break
		} else if errors.Is(aborted, ErrBudgetExhausted) {
			res.Reason = "step budget exhausted"
			break
		}

		if result.Status != StatusRefuted {
			continue
		}
		for _, msg := range result.Messages {
			res.Messages = append(res.Messages, msg)
			if ok, err := a.replay(&t, msg.Counterexample); err != nil {
				return nil, err
			} else if !ok {
				logger.Info().Str("component", "path").Str("call", msg.Counterexample.Call()).Msg("replay mismatch")
				nondeterministic, res.Reason = true, "counterexample did not replay"
			}
		}
		if nondeterministic || !a.ReportAllViolations {
			break
		}
	}

	res.Stats, res.Solver, res.Steps = tree.Stats(), bridge.Stats(), steps.Used()
	res.Duration = time.Since(start)
	if len(res.Messages) > 0 {
		res.Counterexample = res.Messages[0].Counterexample
	}
	res.Outcome = a.outcome(res, tree, nondeterministic)

	if len(res.Unsupported) > 0 {
		ops := maps.Keys(res.Unsupported)
		slices.Sort(ops)
		logger.Debug().Str("component", "realize").Strs("ops", ops).Int("count", res.UnsupportedCount()).Msg("unsupported operations")
	}
	logger.Info().
		Stringer("outcome", res.Outcome).
		Int("paths", res.Stats.Paths()).
		Int("steps", res.Steps).
		Dur("elapsed", res.Duration).
		Str("reason", res.Reason).
		Msg("analysis complete")
	return res, nil
}

func (a *Analyzer) outcome(res *Result, tree *SearchTree, nondeterministic bool) Outcome {
	switch {
	case nondeterministic:
		return Nondeterministic
	case len(res.Messages) > 0:
		return Violation
	case !tree.Exhausted():
		if res.Reason == "" {
			res.Reason = "search tree not exhausted"
		}
		return Inconclusive
	case res.Stats.Paths() == res.Stats.Ignored:
		res.Reason = "no input satisfies the preconditions"
		return Vacuous
	case res.Stats.Unknown > 0:
		res.Reason = fmt.Sprintf("%d path(s) with unknown satisfiability", res.Stats.Unknown)
		return Inconclusive
	case a.UnsupportedTolerance >= 0 && res.UnsupportedCount() > a.UnsupportedTolerance:
		res.Reason = fmt.Sprintf("%d unsupported operation(s) exceed tolerance", res.UnsupportedCount())
		return Inconclusive
	default:
		return Safe
	}
}

// runPath runs a single path attempt & returns its result. Only internal
// faults are returned as errors; a panic is one of them.
func (a *Analyzer) runPath(space *StateSpace, t *Target, logger zerolog.Logger) (result PathResult, err error) {
	c := NewCtx(space, CtxConfig{Patterns: a.Patterns, Logger: logger})
	defer func() {
		if r := recover(); r != nil {
			logger.Debug().Str("component", "path").Msg(space.Dump())
			result, err = PathResult{}, fmt.Errorf("%w: panic: %v", ErrInternal, r)
		}
	}()

	args, err := c.freshArgs(t.Contract.Params)
	if err != nil {
		return abandon(err)
	}
	v, ignored, err := c.execute(t, args)
	if err != nil {
		return abandon(err)
	} else if ignored {
		return PathResult{Status: StatusIgnored}, nil
	}

	if err := space.Detach(); err != nil {
		return abandon(err)
	} else if v == nil {
		return PathResult{Status: StatusConfirmed}, nil
	}

	ce, err := c.realizeCounterexample(t, args, v)
	if err != nil {
		return abandon(err)
	}
	logger.Info().Str("component", "path").Stringer("kind", v.kind).Str("call", ce.Call()).Msg("violation")
	msg := &Message{Kind: v.kind, Text: ce.String(), Condition: v.condition, Counterexample: ce}
	return PathResult{Status: StatusRefuted, Messages: []*Message{msg}}, nil
}

// abandon returns the result of a path stopped by err.
func abandon(err error) (PathResult, error) {
	switch {
	case errors.Is(err, ErrInternal):
		return PathResult{}, err
	case errors.Is(err, ErrIgnoreAttempt):
		return PathResult{Status: StatusIgnored}, nil
	case isPathControl(err):
		return PathResult{Status: StatusUnknown}, nil
	default:
		return PathResult{}, fmt.Errorf("%w: %s", ErrInternal, err)
	}
}

// freshArgs returns a symbolic input per parameter.
func (c *Ctx) freshArgs(params []Param) ([]Value, error) {
	args := make([]Value, len(params))
	for i, p := range params {
		v, err := c.NewSymbolic(p.Name, p.Type)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// execute evaluates the preconditions, the target & the postconditions.
// Returns the violation, if any, or true if the preconditions rejected the
// inputs. Path control errors are returned even if the target swallowed them.
func (c *Ctx) execute(t *Target, args []Value) (*violation, bool, error) {
	c.Freeze()
	call := &Call{Params: t.Contract.Params, Args: args, Old: c.oldArgs(args)}

	for _, pre := range t.Contract.Pre {
		ok, err := c.Cond(pre.Fn(c, call))
		if perr := c.engineError(err); perr != nil {
			return nil, false, perr
		} else if err != nil || !ok {
			return nil, true, nil
		}
	}

	ret, err := t.Fn(c, args...)
	if perr := c.engineError(err); perr != nil {
		return nil, false, perr
	} else if err != nil {
		exc, ok := AsException(err)
		if !ok {
			return nil, false, fmt.Errorf("%w: target returned a non-exception error: %s", ErrInternal, err)
		} else if t.Contract.allows(exc) {
			return nil, false, nil
		}
		return &violation{kind: MessageExecutionError, exception: exc}, false, nil
	}

	call.Return = ret
	for _, post := range t.Contract.Post {
		ok, err := c.Cond(post.Fn(c, call))
		if perr := c.engineError(err); perr != nil {
			return nil, false, perr
		} else if err != nil {
			exc, isExc := AsException(err)
			if !isExc {
				return nil, false, fmt.Errorf("%w: postcondition returned a non-exception error: %s", ErrInternal, err)
			}
			return &violation{kind: MessagePostconditionError, exception: exc, condition: post.Desc, ret: ret}, false, nil
		} else if !ok {
			return &violation{kind: MessagePostconditionFailed, condition: post.Desc, ret: ret}, false, nil
		}
	}
	return nil, false, nil
}

// engineError returns the path control error that stopped the path, if any.
func (c *Ctx) engineError(err error) error {
	if c.space != nil {
		if aborted := c.space.Aborted(); aborted != nil {
			return aborted
		}
	}
	if err != nil && isPathControl(err) {
		return err
	}
	return nil
}

// oldArgs returns the arguments as they are before the call. Concrete
// containers are copied since they have no heap snapshot.
func (c *Ctx) oldArgs(args []Value) []Value {
	old := make([]Value, len(args))
	for i, v := range args {
		old[i] = copyValue(c.Old(v))
	}
	return old
}

// copyValue returns a deep copy of a concrete container. Other values are
// returned as is.
func copyValue(v Value) Value {
	switch v := v.(type) {
	case *List:
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			items[i] = copyValue(item)
		}
		return NewList(items...)
	case *Dict:
		d := NewDict()
		for i, k := range v.Keys() {
			_ = d.Set(k, copyValue(v.Values()[i]))
		}
		return d
	case *Set:
		s := MustSet(v.Items()...)
		return s
	default:
		return v
	}
}

// replay runs the target concretely on the counterexample's inputs. Returns
// true if the same violation occurs.
func (a *Analyzer) replay(t *Target, ce *Counterexample) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("%w: panic on replay: %v", ErrInternal, r)
		}
	}()

	c := NewConcreteCtx()
	c.patterns = a.Patterns
	args := make([]Value, len(ce.Args))
	for i, arg := range ce.Args {
		args[i] = copyValue(arg.Value)
	}

	v, ignored, err := c.execute(t, args)
	if err != nil {
		return false, err
	} else if ignored || v == nil {
		return false, nil
	} else if v.kind != ce.Kind || v.condition != ce.Condition {
		return false, nil
	} else if (v.exception == nil) != (ce.Exception == nil) {
		return false, nil
	} else if v.exception != nil && v.exception.Kind != ce.Exception.Kind {
		return false, nil
	}
	return true, nil
}

// String returns a one-line summary of the result.
func (r *Result) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", r.Target, r.Outcome)
	if r.Counterexample != nil {
		fmt.Fprintf(&sb, ": %s", r.Counterexample)
	} else if r.Reason != "" {
		fmt.Fprintf(&sb, " (%s)", r.Reason)
	}
	return sb.String()
}
