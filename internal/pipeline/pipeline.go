// Package pipeline sequences validation, stratification and evaluation of a
// program and collects the outcome of every stage in one Report.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stratalog/internal/analysis"
	"stratalog/internal/config"
	"stratalog/internal/datalog"
	"stratalog/internal/eval"
	"stratalog/internal/logging"
)

// Options configures a run.
type Options struct {
	// FatalIssues lists the issue kinds that stop the run before
	// stratification. Other issues only appear in the report.
	FatalIssues map[analysis.IssueKind]bool
	Eval        eval.Options
}

// OptionsFromConfig builds run options from the engine section.
func OptionsFromConfig(c config.EngineConfig, metrics *eval.Metrics) Options {
	return Options{
		FatalIssues: c.FatalKinds(),
		Eval: eval.Options{
			Parallel:  c.Parallel,
			Workers:   c.Workers,
			MaxFacts:  c.MaxFacts,
			MaxRounds: c.MaxRounds,
			Metrics:   metrics,
		},
	}
}

// Report is everything a run produced. Fields of stages that did not run
// stay empty.
type Report struct {
	RunID   string
	Issues  []analysis.Issue
	Strata  *analysis.Strata
	Facts   []datalog.Atom
	Derived []datalog.Atom
	Stats   eval.Stats
	Store   *eval.Store
}

// IssuesError reports the fatal issues that stopped a run.
type IssuesError struct {
	Issues []analysis.Issue
}

func (e *IssuesError) Error() string {
	kinds := make(map[analysis.IssueKind]int)
	for _, is := range e.Issues {
		kinds[is.Kind()]++
	}
	names := make([]string, 0, len(kinds))
	for k, n := range kinds {
		names = append(names, fmt.Sprintf("%s x%d", k, n))
	}
	sort.Strings(names)
	return fmt.Sprintf("%d fatal issues: %s", len(e.Issues), strings.Join(names, ", "))
}

// Run validates, stratifies and evaluates p. The returned report is never
// nil and carries whatever the completed stages produced, also on error.
func Run(ctx context.Context, p datalog.Program, opts Options) (*Report, error) {
	rep := &Report{RunID: uuid.New().String()}
	log := logging.Get(logging.CategoryPipeline).With(zap.String("run_id", rep.RunID))
	audit := logging.AuditRun(rep.RunID)
	audit.RunStart(len(p.Facts), len(p.Rules))

	rep.Issues = analysis.Validate(p)
	var fatal []analysis.Issue
	perKind := make(map[analysis.IssueKind]int)
	for _, is := range rep.Issues {
		perKind[is.Kind()]++
		if opts.FatalIssues[is.Kind()] {
			fatal = append(fatal, is)
		}
	}
	for _, kind := range analysis.AllIssueKinds {
		if n := perKind[kind]; n > 0 {
			audit.RunIssue(string(kind), n, opts.FatalIssues[kind])
		}
	}
	log.Debug("validated %d facts, %d rules: %d issues, %d fatal", len(p.Facts), len(p.Rules), len(rep.Issues), len(fatal))
	if len(fatal) > 0 {
		err := &IssuesError{Issues: fatal}
		audit.RunAborted("validate", err)
		return rep, err
	}

	strata, err := analysis.Stratify(p)
	if err != nil {
		log.Warn("stratification failed: %v", err)
		audit.RunAborted("stratify", err)
		return rep, err
	}
	rep.Strata = strata
	audit.RunStrata(len(strata.Levels))
	log.Debug("stratified into %d levels", len(strata.Levels))

	res, err := eval.New(opts.Eval).Run(ctx, p, strata)
	if res != nil {
		rep.Store = res.Store
		rep.Facts = res.Store.Facts()
		rep.Derived = res.Derived
		rep.Stats = res.Stats
	}
	if err != nil {
		audit.RunAborted("eval", err)
		return rep, fmt.Errorf("evaluation failed: %w", err)
	}
	audit.RunEnd(len(rep.Derived), rep.Stats.Duration)
	log.Info("run complete: %d facts, %d derived", len(rep.Facts), len(rep.Derived))
	return rep, nil
}
