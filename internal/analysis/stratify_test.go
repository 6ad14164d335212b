package analysis

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dl "stratalog/internal/datalog"
)

func x() dl.Term { return dl.Var("X") }

func TestBuildGraphEdges(t *testing.T) {
	p := dl.NewBuilder().
		Rule(dl.NewAtom("p", x()),
			dl.NewAtom("q", x()),
			dl.Not(dl.NewAtom("r", x())),
			dl.Cmp(dl.OpGt, x(), dl.Num(0)),
			dl.Agg(dl.AggCount, dl.Var("N"), dl.NewAtom("s", x()), dl.Term{})).
		Rule(dl.NewAtom("p", x()), dl.NewAtom("q", x())).
		Program()

	g := BuildGraph(p)
	assert.Equal(t, []string{"p", "q", "r", "s"}, g.Preds)
	assert.Equal(t, []Edge{
		{From: "p", To: "q"},
		{From: "p", To: "r", Neg: true},
		{From: "p", To: "s", Agg: true},
	}, g.Edges)
}

func TestStratifyPositiveRecursion(t *testing.T) {
	p := dl.NewBuilder().
		Fact(dl.NewAtom("edge", dl.Sym("a"), dl.Sym("b"))).
		Rule(dl.NewAtom("path", x(), dl.Var("Y")), dl.NewAtom("edge", x(), dl.Var("Y"))).
		Rule(dl.NewAtom("path", x(), dl.Var("Z")),
			dl.NewAtom("path", x(), dl.Var("Y")),
			dl.NewAtom("edge", dl.Var("Y"), dl.Var("Z"))).
		Program()

	s, err := Stratify(p)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"edge", "path"}}, s.Levels)
	assert.Equal(t, 0, s.Max())
}

func TestStratifyNegation(t *testing.T) {
	p := dl.NewBuilder().
		Fact(dl.NewAtom("employee", dl.Sym("alice"))).
		Fact(dl.NewAtom("employee", dl.Sym("bob"))).
		Fact(dl.NewAtom("manager", dl.Sym("alice"))).
		Rule(dl.NewAtom("nonManager", x()),
			dl.NewAtom("employee", x()),
			dl.Not(dl.NewAtom("manager", x()))).
		Program()

	s, err := Stratify(p)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"employee", "manager"}, {"nonManager"}}, s.Levels)
	n, ok := s.Of("nonManager")
	require.True(t, ok)
	assert.Equal(t, 1, n)
}

func TestStratifyChainsRaiseThroughPositiveEdges(t *testing.T) {
	// c depends negatively on a; d depends positively on c, so d lands with c.
	p := dl.NewBuilder().
		Fact(dl.NewAtom("a", dl.Num(1))).
		Fact(dl.NewAtom("b", dl.Num(1))).
		Rule(dl.NewAtom("c", x()), dl.NewAtom("b", x()), dl.Not(dl.NewAtom("a", x()))).
		Rule(dl.NewAtom("d", x()), dl.NewAtom("c", x())).
		Rule(dl.NewAtom("e", x()), dl.NewAtom("b", x()), dl.Not(dl.NewAtom("d", x()))).
		Program()

	s, err := Stratify(p)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 0, "b": 0, "c": 1, "d": 1, "e": 2}, s.StratumOf)
}

func TestStratifyAggregateIsStrict(t *testing.T) {
	p := dl.NewBuilder().
		Rule(dl.NewAtom("qcount", x(), dl.Var("N")),
			dl.Agg(dl.AggCount, dl.Var("N"), dl.NewAtom("quality", x(), dl.Var("_")), dl.Term{}, x())).
		Program()

	s, err := Stratify(p)
	require.NoError(t, err)
	assert.Equal(t, 0, s.StratumOf["quality"])
	assert.Equal(t, 1, s.StratumOf["qcount"])
}

func TestStratifyRejectsNegationCycle(t *testing.T) {
	p := dl.NewBuilder().
		Rule(dl.NewAtom("p", x()), dl.NewAtom("q", x()), dl.Not(dl.NewAtom("r", x()))).
		Rule(dl.NewAtom("r", x()), dl.Not(dl.NewAtom("p", x()))).
		Program()

	s, err := Stratify(p)
	require.Error(t, err)
	assert.Nil(t, s)

	var se *StratificationError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "negation inside a recursive cycle", se.Message)
	assert.Equal(t, []string{"p", "r"}, se.Predicates)
}

func TestStratifyRejectsNegatedSelfLoop(t *testing.T) {
	p := dl.NewBuilder().
		Rule(dl.NewAtom("p", x()), dl.NewAtom("q", x()), dl.Not(dl.NewAtom("p", x()))).
		Program()

	_, err := Stratify(p)
	var se *StratificationError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"p"}, se.Predicates)
}

func TestStratifyRejectsAggregateCycle(t *testing.T) {
	p := dl.NewBuilder().
		Rule(dl.NewAtom("total", dl.Var("N")),
			dl.Agg(dl.AggCount, dl.Var("N"), dl.NewAtom("item", x()), dl.Term{})).
		Rule(dl.NewAtom("item", x()), dl.NewAtom("total", x())).
		Program()

	_, err := Stratify(p)
	var se *StratificationError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "aggregation inside a recursive cycle", se.Message)
}

func TestStratifyAllowsPositiveCycleNextToNegation(t *testing.T) {
	// p and q are mutually recursive through positive edges only; the
	// negation points at r outside their component.
	p := dl.NewBuilder().
		Fact(dl.NewAtom("r", dl.Num(1))).
		Fact(dl.NewAtom("base", dl.Num(2))).
		Rule(dl.NewAtom("p", x()), dl.NewAtom("q", x()), dl.Not(dl.NewAtom("r", x()))).
		Rule(dl.NewAtom("q", x()), dl.NewAtom("p", x())).
		Rule(dl.NewAtom("q", x()), dl.NewAtom("base", x())).
		Program()

	s, err := Stratify(p)
	require.NoError(t, err)
	assert.Equal(t, s.StratumOf["p"], s.StratumOf["q"])
	assert.Greater(t, s.StratumOf["p"], s.StratumOf["r"])
}

func TestStratifyMonotonicity(t *testing.T) {
	p := dl.NewBuilder().
		Fact(dl.NewAtom("e", dl.Num(1), dl.Num(2))).
		Rule(dl.NewAtom("t", x(), dl.Var("Y")), dl.NewAtom("e", x(), dl.Var("Y"))).
		Rule(dl.NewAtom("t", x(), dl.Var("Z")), dl.NewAtom("t", x(), dl.Var("Y")), dl.NewAtom("e", dl.Var("Y"), dl.Var("Z"))).
		Rule(dl.NewAtom("node", x()), dl.NewAtom("e", x(), dl.Var("_"))).
		Rule(dl.NewAtom("node", x()), dl.NewAtom("e", dl.Var("_"), x())).
		Rule(dl.NewAtom("unreach", x(), dl.Var("Y")), dl.NewAtom("node", x()), dl.NewAtom("node", dl.Var("Y")), dl.Not(dl.NewAtom("t", x(), dl.Var("Y")))).
		Rule(dl.NewAtom("isolated", x()), dl.NewAtom("node", x()), dl.Not(dl.NewAtom("unreach", x(), dl.Var("_")))).
		Rule(dl.NewAtom("deg", x(), dl.Var("N")), dl.Agg(dl.AggCount, dl.Var("N"), dl.NewAtom("unreach", x(), dl.Var("Y")), dl.Term{}, x())).
		Program()

	s, err := Stratify(p)
	require.NoError(t, err)
	for _, r := range p.Rules {
		head := s.StratumOf[r.Head.Pred]
		for _, lit := range r.Body {
			a, neg, ok := dl.LiteralAtoms(lit)
			if !ok {
				continue
			}
			_, isAgg := lit.(dl.Aggregate)
			body := s.StratumOf[a.Pred]
			if neg || isAgg {
				assert.Greater(t, head, body, r.String())
			} else {
				assert.GreaterOrEqual(t, head, body, r.String())
			}
		}
	}
	assert.Equal(t, 2, s.Max())
}

func TestStratifyDeepChainDoesNotRecurse(t *testing.T) {
	b := dl.NewBuilder()
	b.Fact(dl.NewAtom("p0", dl.Num(0)))
	const depth = 5000
	for i := 1; i <= depth; i++ {
		b.Rule(dl.NewAtom(fmt.Sprintf("p%d", i), x()), dl.NewAtom(fmt.Sprintf("p%d", i-1), x()))
	}
	// close the loop positively
	b.Rule(dl.NewAtom("p0", x()), dl.NewAtom(fmt.Sprintf("p%d", depth), x()))

	s, err := Stratify(b.Program())
	require.NoError(t, err)
	assert.Len(t, s.Levels, 1)
	assert.Len(t, s.Levels[0], depth+1)
}

func TestStratifyEmptyProgram(t *testing.T) {
	s, err := Stratify(dl.Program{})
	require.NoError(t, err)
	assert.Equal(t, -1, s.Max())
	assert.Empty(t, s.StratumOf)
}

func TestStronglyConnected(t *testing.T) {
	// 0 -> 1 -> 2 -> 0, 2 -> 3, 3 -> 4 -> 3
	fwd := [][]int{{1}, {2}, {0, 3}, {4}, {3}}
	rev := make([][]int, len(fwd))
	for from, succs := range fwd {
		for _, to := range succs {
			rev[to] = append(rev[to], from)
		}
	}
	comps := stronglyConnected(fwd, rev)
	sizes := map[int]int{}
	for _, c := range comps {
		sizes[len(c)]++
	}
	assert.Equal(t, map[int]int{3: 1, 2: 1}, sizes)
}
