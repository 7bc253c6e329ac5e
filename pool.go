package glean

import (
	"context"
	"fmt"

	"github.com/maruel/natural"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// PoolResult is the result of analyzing one target in a pool. Err is set if
// the analysis failed with an internal fault.
type PoolResult struct {
	Target string
	Result *Result
	Err    error
}

// Pool analyzes targets in parallel. Each worker owns a solver & an Analyzer
// and only the results registry is shared.
type Pool struct {
	results cmap.ConcurrentMap[string, *PoolResult]

	// Builds the solver of a worker. The solver is closed when the worker
	// exits.
	NewSolver func() (Solver, error)

	Options Options
	Logger  zerolog.Logger
}

// NewPool returns a new Pool using options.
func NewPool(newSolver func() (Solver, error), options Options) *Pool {
	return &Pool{
		results:   cmap.New[*PoolResult](),
		NewSolver: newSolver,
		Options:   options,
		Logger:    zerolog.Nop(),
	}
}

// Result returns the result of the named target from any previous run.
func (p *Pool) Result(name string) (*PoolResult, bool) {
	return p.results.Get(name)
}

// Len returns the number of results in the registry.
func (p *Pool) Len() int { return p.results.Count() }

// Run analyzes targets & returns their results ordered naturally by name.
// An internal fault while analyzing a target is reported in its result and
// does not stop the other workers. An error is returned only if a worker
// could not start or ctx was canceled.
func (p *Pool) Run(ctx context.Context, targets []Target) ([]*PoolResult, error) {
	names := make(map[string]bool, len(targets))
	for _, t := range targets {
		if names[t.Name] {
			return nil, fmt.Errorf("duplicate target name: %q", t.Name)
		}
		names[t.Name] = true
	}

	n := p.Options.Workers
	if n <= 0 {
		n = 1
	}
	if n > len(targets) {
		n = len(targets)
	}

	g, ctx := errgroup.WithContext(ctx)
	ch := make(chan Target)
	g.Go(func() error {
		defer close(ch)
		for _, t := range targets {
			select {
			case ch <- t:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for i := 0; i < n; i++ {
		id := i
		g.Go(func() error { return p.work(ctx, id, ch) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]*PoolResult, 0, len(targets))
	for _, t := range targets {
		if r, ok := p.results.Get(t.Name); ok {
			results = append(results, r)
		}
	}
	slices.SortFunc(results, func(a, b *PoolResult) int {
		switch {
		case natural.Less(a.Target, b.Target):
			return -1
		case natural.Less(b.Target, a.Target):
			return 1
		}
		return 0
	})
	return results, nil
}

// work runs one worker until ch is closed.
func (p *Pool) work(ctx context.Context, id int, ch <-chan Target) (err error) {
	logger := p.Logger.With().Str("component", "pool").Int("worker", id).Logger()

	solver, err := p.NewSolver()
	if err != nil {
		return fmt.Errorf("worker %d: new solver: %w", id, err)
	}
	defer func() {
		if e := solver.Close(); e != nil && err == nil {
			err = e
		}
	}()

	a := p.Options.NewAnalyzer(solver, p.Logger)
	for t := range ch {
		logger.Debug().Str("target", t.Name).Msg("analyze")

		res, err := a.Analyze(ctx, t)
		if err != nil {
			logger.Error().Str("target", t.Name).Err(err).Msg("analysis failed")
		}
		p.results.Set(t.Name, &PoolResult{Target: t.Name, Result: res, Err: err})

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
