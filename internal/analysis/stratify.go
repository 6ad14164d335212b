package analysis

import (
	"fmt"
	"sort"
	"strings"

	"stratalog/internal/datalog"
	"stratalog/internal/logging"
)

// StratificationError reports negation (or aggregation) through recursion.
// It is terminal: the program must not be evaluated.
type StratificationError struct {
	Message    string
	Predicates []string
}

func (e *StratificationError) Error() string {
	if len(e.Predicates) == 0 {
		return "stratification: " + e.Message
	}
	return fmt.Sprintf("stratification: %s: %s", e.Message, strings.Join(e.Predicates, ", "))
}

// Strata is the result of a successful stratification.
type Strata struct {
	// Levels[i] holds the predicates of stratum i, sorted by name.
	Levels [][]string
	// StratumOf maps every predicate of the program to its stratum.
	StratumOf map[string]int
	Graph     *Graph
}

// Max returns the highest stratum number, or -1 for an empty program.
func (s *Strata) Max() int { return len(s.Levels) - 1 }

// Of returns the stratum of pred.
func (s *Strata) Of(pred string) (int, bool) {
	n, ok := s.StratumOf[pred]
	return n, ok
}

// Stratify assigns every predicate of p a stratum such that positive
// dependencies never decrease it and negated or aggregated dependencies
// strictly increase it. It returns a *StratificationError when a strict
// dependency lies on a cycle.
func Stratify(p datalog.Program) (*Strata, error) {
	log := logging.Get(logging.CategoryStratify)
	g := BuildGraph(p)

	if err := checkCycles(g); err != nil {
		log.Debug("rejected program: %v", err)
		return nil, err
	}

	stratum := make(map[string]int, len(g.Preds))
	for _, pred := range g.Preds {
		stratum[pred] = 0
	}

	// Bellman-Ford style relaxation. Each raise strictly increases a value
	// bounded by the number of predicates, so the pass count is bounded too.
	limit := len(g.Edges)*len(g.Preds) + 1
	passes := 0
	for changed := true; changed; passes++ {
		if passes > limit {
			return nil, &StratificationError{
				Message:    "stratum assignment did not converge",
				Predicates: append([]string(nil), g.Preds...),
			}
		}
		changed = false
		for _, e := range g.Edges {
			need := stratum[e.To]
			if e.Strict() {
				need++
			}
			if stratum[e.From] < need {
				stratum[e.From] = need
				changed = true
			}
		}
	}

	top := -1
	for _, s := range stratum {
		if s > top {
			top = s
		}
	}
	levels := make([][]string, top+1)
	for _, pred := range g.Preds {
		s := stratum[pred]
		levels[s] = append(levels[s], pred)
	}

	log.Debug("stratified %d predicates into %d strata after %d passes", len(g.Preds), len(levels), passes)
	return &Strata{Levels: levels, StratumOf: stratum, Graph: g}, nil
}

// checkCycles rejects any strict edge whose endpoints share a strongly
// connected component, including a strict self-loop.
func checkCycles(g *Graph) error {
	for _, e := range g.Edges {
		if e.From == e.To && e.Strict() {
			return &StratificationError{
				Message:    cycleMessage(e),
				Predicates: []string{e.From},
			}
		}
	}

	fwd, rev := g.adjacency()
	comp := make([]int, len(g.Preds))
	comps := stronglyConnected(fwd, rev)
	for ci, members := range comps {
		for _, n := range members {
			comp[n] = ci
		}
	}

	for _, e := range g.Edges {
		if !e.Strict() {
			continue
		}
		from, to := g.index[e.From], g.index[e.To]
		if comp[from] != comp[to] || len(comps[comp[from]]) < 2 {
			continue
		}
		names := make([]string, 0, len(comps[comp[from]]))
		for _, n := range comps[comp[from]] {
			names = append(names, g.Preds[n])
		}
		sort.Strings(names)
		return &StratificationError{Message: cycleMessage(e), Predicates: names}
	}
	return nil
}

func cycleMessage(e Edge) string {
	if e.Neg {
		return "negation inside a recursive cycle"
	}
	return "aggregation inside a recursive cycle"
}
