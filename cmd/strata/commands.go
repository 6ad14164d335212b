package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"stratalog/internal/analysis"
	"stratalog/internal/mangle"
	"stratalog/internal/pipeline"
)

// =============================================================================
// CHECK / STRATIFY - static analysis only
// =============================================================================

var checkCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate a program and report issues",
	Long: `Runs the static checks (arity agreement, builtin and aggregate shape,
range restriction, ground facts). Exits non-zero when an issue kind listed in
engine.fatal_issues is found.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var stratifyCmd = &cobra.Command{
	Use:   "stratify FILE",
	Short: "Print the strata of a program",
	Args:  cobra.ExactArgs(1),
	RunE:  runStratify,
}

// =============================================================================
// EVAL / CROSSCHECK - fixpoint evaluation
// =============================================================================

var (
	evalPreds       []string
	evalFormat      string
	evalDerivedOnly bool
	evalStats       bool
)

var evalCmd = &cobra.Command{
	Use:   "eval FILE",
	Short: "Evaluate a program and print its facts",
	Args:  cobra.ExactArgs(1),
	RunE:  runEval,
}

var crosscheckCmd = &cobra.Command{
	Use:   "crosscheck FILE",
	Short: "Compare evaluation results with the Mangle engine",
	Long: `Evaluates the program twice, once with strata and once with the Google
Mangle engine, and prints the facts only one side derived. Exits non-zero when
the results differ.`,
	Args: cobra.ExactArgs(1),
	RunE: runCrosscheck,
}

func init() {
	evalCmd.Flags().StringSliceVarP(&evalPreds, "pred", "p", nil, "Only print these predicates")
	evalCmd.Flags().StringVarP(&evalFormat, "format", "f", formatText, "Output format: text, mangle, json or yaml")
	evalCmd.Flags().BoolVar(&evalDerivedOnly, "derived-only", false, "Omit input facts")
	evalCmd.Flags().BoolVar(&evalStats, "stats", false, "Print evaluation statistics to stderr")
}

func runCheck(cmd *cobra.Command, args []string) error {
	p, err := loadProgram(args[0])
	if err != nil {
		return err
	}
	issues := analysis.Validate(p)
	out := cmd.OutOrStdout()
	fatal := printIssues(out, issues, cfg.Engine.FatalKinds())
	if fatal > 0 {
		return fmt.Errorf("%d fatal issues in %s", fatal, args[0])
	}
	fmt.Fprintf(out, "%s %s (%d facts, %d rules, %d warnings)\n", okText("OK:"), args[0], len(p.Facts), len(p.Rules), len(issues))
	return nil
}

func runStratify(cmd *cobra.Command, args []string) error {
	p, err := loadProgram(args[0])
	if err != nil {
		return err
	}
	s, err := analysis.Stratify(p)
	if err != nil {
		return err
	}
	printStrata(cmd.OutOrStdout(), s)
	return nil
}

func runEval(cmd *cobra.Command, args []string) error {
	p, err := loadProgram(args[0])
	if err != nil {
		return err
	}
	rep, err := pipeline.Run(commandContext(cmd), p, pipeline.OptionsFromConfig(cfg.Engine, nil))
	printIssues(cmd.ErrOrStderr(), rep.Issues, cfg.Engine.FatalKinds())
	if err != nil {
		return err
	}

	atoms := rep.Facts
	if evalDerivedOnly {
		atoms = rep.Derived
	}
	if err := printFacts(cmd.OutOrStdout(), filterPreds(atoms, evalPreds), evalFormat); err != nil {
		return err
	}
	if evalStats {
		printStats(cmd.ErrOrStderr(), rep.Stats)
	}
	return nil
}

var errMismatch = errors.New("evaluators disagree")

func runCrosscheck(cmd *cobra.Command, args []string) error {
	p, err := loadProgram(args[0])
	if err != nil {
		return err
	}
	rep, err := pipeline.Run(commandContext(cmd), p, pipeline.OptionsFromConfig(cfg.Engine, nil))
	if err != nil {
		return err
	}
	ref, err := mangle.ReferenceEval(p)
	if err != nil {
		return err
	}

	d := mangle.Compare(rep.Facts, mangle.Atoms(ref))
	out := cmd.OutOrStdout()
	for _, a := range d.OnlyLeft {
		fmt.Fprintf(out, "%s %s.\n", warnText("only strata:"), a)
	}
	for _, a := range d.OnlyRight {
		fmt.Fprintf(out, "%s %s.\n", warnText("only mangle:"), a)
	}
	if !d.Empty() {
		return fmt.Errorf("%w: %d facts only in strata, %d only in mangle", errMismatch, len(d.OnlyLeft), len(d.OnlyRight))
	}
	fmt.Fprintf(out, "%s %d facts agree\n", okText("OK:"), len(rep.Facts))
	return nil
}
