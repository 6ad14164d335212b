package mangle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"stratalog/internal/datalog"
	"stratalog/internal/logging"
)

// ReferenceEval renders p, parses and analyzes it with Mangle, evaluates it
// with the Mangle engine and returns every fact in the resulting store,
// ordered by predicate and then by rendered arguments.
func ReferenceEval(p datalog.Program) ([]datalog.Fact, error) {
	log := logging.Get(logging.CategoryMangle)

	src, err := Render(p)
	if err != nil {
		return nil, fmt.Errorf("failed to render program: %w", err)
	}
	unit, err := parse.Unit(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered program: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("mangle analysis failed: %w", err)
	}

	store := factstore.NewSimpleInMemoryStore()
	stats, err := mengine.EvalProgramWithStats(info, store)
	if err != nil {
		return nil, fmt.Errorf("mangle evaluation failed: %w", err)
	}
	log.Debug("reference evaluation stats: %+v", stats)

	var facts []datalog.Fact
	for _, sym := range store.ListPredicates() {
		err := store.GetFacts(ast.NewQuery(sym), func(a ast.Atom) error {
			atom, err := fromAtom(a)
			if err != nil {
				return err
			}
			facts = append(facts, datalog.Fact{Atom: atom})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", sym.Symbol, err)
		}
	}

	sort.SliceStable(facts, func(i, j int) bool {
		a, b := facts[i].Atom, facts[j].Atom
		if a.Pred != b.Pred {
			return a.Pred < b.Pred
		}
		return a.String() < b.String()
	})
	return facts, nil
}

// Diff is the symmetric difference between two fact sets.
type Diff struct {
	OnlyLeft  []datalog.Atom
	OnlyRight []datalog.Atom
}

// Empty reports whether both sides hold the same facts.
func (d Diff) Empty() bool { return len(d.OnlyLeft) == 0 && len(d.OnlyRight) == 0 }

// Compare returns the facts present on exactly one side, each side in its
// input order. Facts are compared by kind and value.
func Compare(left, right []datalog.Atom) Diff {
	key := func(a datalog.Atom) string { return a.String() }
	inLeft := make(map[string]bool, len(left))
	for _, a := range left {
		inLeft[key(a)] = true
	}
	inRight := make(map[string]bool, len(right))
	for _, a := range right {
		inRight[key(a)] = true
	}

	var d Diff
	for _, a := range left {
		if !inRight[key(a)] {
			d.OnlyLeft = append(d.OnlyLeft, a)
		}
	}
	for _, a := range right {
		if !inLeft[key(a)] {
			d.OnlyRight = append(d.OnlyRight, a)
		}
	}
	return d
}

// Atoms extracts the atoms of facts.
func Atoms(facts []datalog.Fact) []datalog.Atom {
	out := make([]datalog.Atom, len(facts))
	for i, f := range facts {
		out[i] = f.Atom
	}
	return out
}
