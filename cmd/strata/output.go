package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"stratalog/internal/analysis"
	"stratalog/internal/datalog"
	"stratalog/internal/eval"
	"stratalog/internal/mangle"
	"stratalog/internal/programspec"
)

var (
	errorText = color.New(color.FgRed, color.Bold).SprintFunc()
	warnText  = color.New(color.FgYellow).SprintFunc()
	okText    = color.New(color.FgGreen).SprintFunc()
	dimText   = color.New(color.Faint).SprintFunc()
)

// Output formats for facts.
const (
	formatText   = "text"
	formatMangle = "mangle"
	formatJSON   = "json"
	formatYAML   = "yaml"
)

// printIssues writes one line per issue, fatal kinds highlighted. It returns
// the number of fatal issues.
func printIssues(w io.Writer, issues []analysis.Issue, fatal map[analysis.IssueKind]bool) int {
	n := 0
	for _, is := range issues {
		if fatal[is.Kind()] {
			n++
			fmt.Fprintf(w, "%s %s %s\n", errorText("FATAL"), dimText("["+string(is.Kind())+"]"), is.String())
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", warnText("WARN "), dimText("["+string(is.Kind())+"]"), is.String())
	}
	return n
}

func printStrata(w io.Writer, s *analysis.Strata) {
	for n, preds := range s.Levels {
		fmt.Fprintf(w, "%s %s\n", okText(fmt.Sprintf("stratum %d:", n)), strings.Join(preds, " "))
	}
}

func printFacts(w io.Writer, atoms []datalog.Atom, format string) error {
	switch format {
	case formatText:
		for _, a := range atoms {
			fmt.Fprintln(w, a.String()+".")
		}
		return nil
	case formatMangle:
		b := datalog.NewBuilder()
		for _, a := range atoms {
			b.Fact(a)
		}
		src, err := mangle.Render(b.Program())
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, src)
		return err
	case formatJSON, formatYAML:
		data, err := programspec.Encode(programspec.FromAtoms(atoms), programspec.Encoding(format))
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		if format == formatJSON {
			_, err = fmt.Fprintln(w)
		}
		return err
	default:
		return fmt.Errorf("unknown format %q, want text, mangle, json or yaml", format)
	}
}

func printStats(w io.Writer, st eval.Stats) {
	fmt.Fprintf(w, "%s rounds=%v derived=%d dropped=%d duration=%s\n",
		dimText("stats:"), st.Rounds, st.Derived, st.DroppedBindings, st.Duration)
	for _, reason := range eval.DropReasons {
		if n := st.Dropped[reason]; n > 0 {
			fmt.Fprintf(w, "  %s %s=%d\n", dimText("dropped"), reason, n)
		}
	}
}

// filterPreds keeps atoms whose predicate is in preds; empty preds keeps all.
func filterPreds(atoms []datalog.Atom, preds []string) []datalog.Atom {
	if len(preds) == 0 {
		return atoms
	}
	keep := make(map[string]bool, len(preds))
	for _, p := range preds {
		keep[p] = true
	}
	var out []datalog.Atom
	for _, a := range atoms {
		if keep[a.Pred] {
			out = append(out, a)
		}
	}
	return out
}
