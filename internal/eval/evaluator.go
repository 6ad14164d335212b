// Package eval computes the least fixpoint of a validated, stratified
// program. Strata run in increasing order; each stratum is iterated
// semi-naively until no rule derives a new fact, then frozen.
package eval

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"stratalog/internal/analysis"
	"stratalog/internal/datalog"
	"stratalog/internal/logging"
)

var (
	// ErrNotStratified means the strata do not describe the program: a
	// predicate is missing or a dependency points the wrong way.
	ErrNotStratified = errors.New("program is not stratified")
	// ErrFactLimit means the store grew past Options.MaxFacts.
	ErrFactLimit = errors.New("fact limit exceeded")
	// ErrRoundLimit means a stratum needed more than Options.MaxRounds rounds.
	ErrRoundLimit = errors.New("round limit exceeded")
)

// Options tunes an evaluation. The zero value evaluates sequentially without
// limits.
type Options struct {
	// Parallel applies the rules of a round concurrently.
	Parallel bool
	// Workers bounds concurrent rule applications; 0 means GOMAXPROCS.
	Workers int
	// MaxFacts aborts the run once the store holds more facts; 0 disables.
	MaxFacts int
	// MaxRounds aborts a stratum after that many rounds; 0 disables.
	MaxRounds int
	// Metrics receives counters for every run; nil disables recording.
	Metrics *Metrics
}

// Stats describes a finished (or aborted) run.
type Stats struct {
	// Rounds[i] is the number of rounds stratum i needed.
	Rounds []int
	// Derived counts facts added by rules, input facts excluded.
	Derived int
	// DroppedBindings counts bindings discarded by a failure.
	DroppedBindings int
	Dropped         map[DropReason]int
	Duration        time.Duration
}

// Result is the outcome of an evaluation.
type Result struct {
	// Store holds input and derived facts.
	Store *Store
	// Derived lists the facts added by rules, in derivation order.
	Derived []datalog.Atom
	Stats   Stats
}

// Evaluator runs programs with fixed options.
type Evaluator struct {
	opts Options
	log  *logging.Logger
}

// New returns an Evaluator.
func New(opts Options) *Evaluator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Evaluator{opts: opts, log: logging.Get(logging.CategoryEval)}
}

// Evaluate runs p sequentially and returns the final store.
func Evaluate(p datalog.Program, s *analysis.Strata) (*Store, error) {
	res, err := New(Options{}).Run(context.Background(), p, s)
	if err != nil {
		return nil, err
	}
	return res.Store, nil
}

// Run evaluates p over the strata computed for it. On error the partial
// result is returned alongside it for inspection.
func (e *Evaluator) Run(ctx context.Context, p datalog.Program, s *analysis.Strata) (*Result, error) {
	start := time.Now()
	res := &Result{
		Store: NewStore(),
		Stats: Stats{Dropped: make(map[DropReason]int)},
	}

	err := e.run(ctx, p, s, res)
	res.Stats.Duration = time.Since(start)
	e.opts.Metrics.observe(&res.Stats, err)
	if err != nil {
		e.log.Warn("evaluation stopped: %v", err)
		return res, err
	}
	e.log.Info("evaluated %d strata: %d facts, %d derived, %d dropped bindings in %s",
		len(res.Stats.Rounds), res.Store.Len(), res.Stats.Derived, res.Stats.DroppedBindings, res.Stats.Duration)
	return res, nil
}

func (e *Evaluator) run(ctx context.Context, p datalog.Program, s *analysis.Strata, res *Result) error {
	rules, err := compile(p, s)
	if err != nil {
		return err
	}

	seeds := make([][]datalog.Atom, len(s.Levels))
	for _, f := range p.Facts {
		n, ok := s.StratumOf[f.Atom.Pred]
		if !ok || n >= len(seeds) {
			return fmt.Errorf("%w: fact predicate %s has no stratum", ErrNotStratified, f.Atom.Pred)
		}
		seeds[n] = append(seeds[n], f.Atom)
	}

	for n, preds := range s.Levels {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, a := range seeds[n] {
			if _, err := res.Store.Add(a); err != nil {
				return err
			}
		}
		if err := e.checkLimit(res.Store); err != nil {
			return err
		}

		rounds, err := e.stratum(ctx, n, preds, rules[n], res)
		res.Stats.Rounds = append(res.Stats.Rounds, rounds)
		if err != nil {
			return err
		}
		res.Store.freeze(preds)
		e.log.Debug("stratum %d fixpoint after %d rounds (%d predicates, %d rules)", n, rounds, len(preds), len(rules[n]))
	}
	return nil
}

// task applies one rule. deltaPos is the body position matched against the
// previous round's delta, or -1 to match every atom against the full store.
type task struct {
	rule     *compiledRule
	deltaPos int
}

type taskResult struct {
	derived []datalog.Atom
	dropped map[DropReason]int
}

func (e *Evaluator) stratum(ctx context.Context, n int, preds []string, rules []*compiledRule, res *Result) (int, error) {
	inStratum := make(map[string]bool, len(preds))
	for _, p := range preds {
		inStratum[p] = true
	}

	var delta *Store
	rounds := 0
	for {
		if err := ctx.Err(); err != nil {
			return rounds, err
		}
		if e.opts.MaxRounds > 0 && rounds >= e.opts.MaxRounds {
			return rounds, fmt.Errorf("%w: stratum %d after %d rounds", ErrRoundLimit, n, rounds)
		}

		tasks := plan(rules, delta, inStratum)
		if len(tasks) == 0 {
			return rounds, nil
		}
		rounds++

		results, err := e.apply(ctx, tasks, res.Store, delta)
		if err != nil {
			return rounds, err
		}

		next := NewStore()
		for _, r := range results {
			for reason, c := range r.dropped {
				res.Stats.Dropped[reason] += c
				res.Stats.DroppedBindings += c
			}
			for _, a := range r.derived {
				added, err := res.Store.Add(a)
				if err != nil {
					return rounds, err
				}
				if !added {
					continue
				}
				_, _ = next.Add(a)
				res.Derived = append(res.Derived, a)
				res.Stats.Derived++
			}
			if err := e.checkLimit(res.Store); err != nil {
				return rounds, err
			}
		}
		if next.Len() == 0 {
			return rounds, nil
		}
		delta = next
	}
}

// plan lists the rule applications of one round. The first round applies
// every rule once; later rounds apply a rule once per body atom of the
// current stratum that has new facts in delta.
func plan(rules []*compiledRule, delta *Store, inStratum map[string]bool) []task {
	var tasks []task
	for _, r := range rules {
		if delta == nil {
			tasks = append(tasks, task{rule: r, deltaPos: -1})
			continue
		}
		for _, st := range r.steps {
			a, ok := st.lit.(datalog.Atom)
			if !ok || !inStratum[a.Pred] {
				continue
			}
			if len(delta.FactsFor(a.Pred)) == 0 {
				continue
			}
			tasks = append(tasks, task{rule: r, deltaPos: st.pos})
		}
	}
	return tasks
}

func (e *Evaluator) apply(ctx context.Context, tasks []task, store, delta *Store) ([]taskResult, error) {
	results := make([]taskResult, len(tasks))
	if !e.opts.Parallel || len(tasks) == 1 {
		for i, t := range tasks {
			results[i] = fire(t, store, delta)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = fire(t, store, delta)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// fire enumerates every binding satisfying the rule body and collects the
// instantiated heads that are not stored yet. It only reads the stores.
func fire(t task, store, delta *Store) taskResult {
	var out taskResult
	drop := func(r DropReason) {
		if out.dropped == nil {
			out.dropped = make(map[DropReason]int)
		}
		out.dropped[r]++
	}
	steps := t.rule.steps
	head := t.rule.rule.Head

	var solve func(i int, env binding)
	solve = func(i int, env binding) {
		if i == len(steps) {
			a, ok := ground(head, env)
			if !ok {
				drop(DropNonGroundHead)
				return
			}
			if !store.Contains(a) {
				out.derived = append(out.derived, a)
			}
			return
		}

		switch l := steps[i].lit.(type) {
		case datalog.Atom:
			src := store
			if steps[i].pos == t.deltaPos {
				src = delta
			}
			src.scan(l, env, func(row []datalog.Term) bool {
				if ext, ok := unify(l.Args, row, env); ok {
					solve(i+1, ext)
				}
				return true
			})
		case datalog.Neg:
			found := false
			store.scan(l.Atom, env, func(row []datalog.Term) bool {
				_, found = unify(l.Atom.Args, row, env)
				return !found
			})
			if !found {
				solve(i+1, env)
			}
		case datalog.Builtin:
			ext, ok, reason := applyBuiltin(l, env)
			if reason != "" {
				drop(reason)
			}
			if ok {
				solve(i+1, ext)
			}
		case datalog.Aggregate:
			aggregate(l, env, store, drop, func(ext binding) { solve(i+1, ext) })
		default:
			panic(fmt.Sprintf("eval: unknown literal %T", l))
		}
	}
	solve(0, binding{})
	return out
}

// compile schedules every rule and groups the rules by the stratum of their
// head. It rejects strata that do not satisfy the dependency constraints.
func compile(p datalog.Program, s *analysis.Strata) ([][]*compiledRule, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: no strata", ErrNotStratified)
	}
	byStratum := make([][]*compiledRule, len(s.Levels))
	for _, r := range p.Rules {
		head, ok := s.StratumOf[r.Head.Pred]
		if !ok || head >= len(s.Levels) {
			return nil, fmt.Errorf("%w: rule head %s has no stratum", ErrNotStratified, r.Head.Pred)
		}
		for _, lit := range r.Body {
			a, neg, ok := datalog.LiteralAtoms(lit)
			if !ok {
				continue
			}
			_, isAgg := lit.(datalog.Aggregate)
			body, known := s.StratumOf[a.Pred]
			strict := neg || isAgg
			if !known || body > head || (strict && body == head) {
				return nil, fmt.Errorf("%w: rule %s reads %s from stratum %d", ErrNotStratified, r, a.Pred, body)
			}
		}
		byStratum[head] = append(byStratum[head], &compiledRule{
			rule:    r,
			steps:   schedule(r.Body),
			stratum: head,
		})
	}
	return byStratum, nil
}

func (e *Evaluator) checkLimit(s *Store) error {
	if e.opts.MaxFacts > 0 && s.Len() > e.opts.MaxFacts {
		return fmt.Errorf("%w: %d facts, limit %d", ErrFactLimit, s.Len(), e.opts.MaxFacts)
	}
	return nil
}
