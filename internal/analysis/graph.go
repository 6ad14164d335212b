package analysis

import (
	"sort"

	"stratalog/internal/datalog"
)

// Edge records that the head predicate From depends on the body predicate To.
type Edge struct {
	From string
	To   string
	Neg  bool // To occurs negated
	Agg  bool // To is the relation an aggregate reads
}

// Strict reports whether the edge requires From to sit in a strictly higher
// stratum than To.
func (e Edge) Strict() bool { return e.Neg || e.Agg }

// Graph is the predicate dependency graph of a program. Preds is sorted and
// Edges are deduplicated, so two builds of the same program are identical.
type Graph struct {
	Preds []string
	Edges []Edge

	index map[string]int
}

// BuildGraph derives the dependency graph of p. Every predicate occurring in
// a fact, a rule head or a rule body is a node. Positive atoms, negated atoms
// and aggregate relations produce edges; builtins never do.
func BuildGraph(p datalog.Program) *Graph {
	g := &Graph{index: make(map[string]int)}

	for _, pred := range p.Predicates() {
		g.index[pred] = len(g.Preds)
		g.Preds = append(g.Preds, pred)
	}

	seen := make(map[Edge]bool)
	for _, r := range p.Rules {
		for _, lit := range r.Body {
			var e Edge
			switch l := lit.(type) {
			case datalog.Atom:
				e = Edge{From: r.Head.Pred, To: l.Pred}
			case datalog.Neg:
				e = Edge{From: r.Head.Pred, To: l.Atom.Pred, Neg: true}
			case datalog.Aggregate:
				e = Edge{From: r.Head.Pred, To: l.Over.Pred, Agg: true}
			case datalog.Builtin:
				continue
			}
			if !seen[e] {
				seen[e] = true
				g.Edges = append(g.Edges, e)
			}
		}
	}
	sort.SliceStable(g.Edges, func(i, j int) bool {
		a, b := g.Edges[i], g.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return !a.Strict() && b.Strict()
	})
	return g
}

// Index returns the node number of pred.
func (g *Graph) Index(pred string) (int, bool) {
	i, ok := g.index[pred]
	return i, ok
}

// adjacency returns forward and reverse adjacency lists over node numbers.
func (g *Graph) adjacency() (fwd, rev [][]int) {
	fwd = make([][]int, len(g.Preds))
	rev = make([][]int, len(g.Preds))
	for _, e := range g.Edges {
		from, to := g.index[e.From], g.index[e.To]
		fwd[from] = append(fwd[from], to)
		rev[to] = append(rev[to], from)
	}
	return fwd, rev
}
