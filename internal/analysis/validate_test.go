package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dl "stratalog/internal/datalog"
)

func TestValidateCleanProgram(t *testing.T) {
	p := dl.NewBuilder().
		Fact(dl.NewAtom("edge", dl.Sym("a"), dl.Sym("b"))).
		Rule(dl.NewAtom("path", dl.Var("X"), dl.Var("Y")), dl.NewAtom("edge", dl.Var("X"), dl.Var("Y"))).
		Rule(dl.NewAtom("path", dl.Var("X"), dl.Var("Z")),
			dl.NewAtom("path", dl.Var("X"), dl.Var("Y")),
			dl.NewAtom("edge", dl.Var("Y"), dl.Var("Z"))).
		Program()

	assert.Empty(t, Validate(p))
}

func TestValidateArityMismatchFirstOccurrenceWins(t *testing.T) {
	p := dl.NewBuilder().
		Fact(dl.NewAtom("q", dl.Sym("a"))).
		Fact(dl.NewAtom("q", dl.Sym("a"), dl.Sym("b"))).
		Rule(dl.NewAtom("p", dl.Var("X")), dl.NewAtom("q", dl.Var("X"), dl.Var("Y"), dl.Var("Z"))).
		Program()

	issues := Validate(p)
	require.Len(t, issues, 2)

	first, ok := issues[0].(ArityMismatch)
	require.True(t, ok)
	assert.Equal(t, ArityMismatch{Predicate: "q", ExpectedArity: 1, FoundArity: 2, Where: "fact #1"}, first)

	second, ok := issues[1].(ArityMismatch)
	require.True(t, ok)
	assert.Equal(t, 1, second.ExpectedArity)
	assert.Equal(t, 3, second.FoundArity)
	assert.Equal(t, "rule #0 body[0]", second.Where)
}

func TestValidateArityAcrossNegationAndAggregates(t *testing.T) {
	p := dl.NewBuilder().
		Fact(dl.NewAtom("r", dl.Sym("a"))).
		Rule(dl.NewAtom("p", dl.Var("X")),
			dl.NewAtom("s", dl.Var("X")),
			dl.Not(dl.NewAtom("r", dl.Var("X"), dl.Var("X")))).
		Rule(dl.NewAtom("c", dl.Var("N")),
			dl.Agg(dl.AggCount, dl.Var("N"), dl.NewAtom("s", dl.Var("X"), dl.Var("Y")), dl.Term{})).
		Program()

	issues := FilterIssues(Validate(p), KindArityMismatch)
	require.Len(t, issues, 2)
	assert.Equal(t, "r", issues[0].(ArityMismatch).Predicate)
	assert.Equal(t, "s", issues[1].(ArityMismatch).Predicate)
}

func TestValidateBuiltins(t *testing.T) {
	p := dl.NewBuilder().
		Rule(dl.NewAtom("p", dl.Var("X")),
			dl.NewAtom("q", dl.Var("X")),
			dl.Builtin{Op: dl.OpLt, Args: []dl.Term{dl.Var("X")}},
			dl.Builtin{Op: dl.OpAdd, Args: []dl.Term{dl.Var("X"), dl.Num(1)}},
			dl.Builtin{Op: "pow", Args: []dl.Term{dl.Var("X"), dl.Num(2), dl.Var("Y")}}).
		Program()

	issues := Validate(p)
	require.Len(t, issues, 3)
	assert.Equal(t, BuiltinArityError{Op: dl.OpLt, Expected: 2, Found: 1, Where: "rule #0 body[1]"}, issues[0])
	assert.Equal(t, BuiltinArityError{Op: dl.OpAdd, Expected: 3, Found: 2, Where: "rule #0 body[2]"}, issues[1])
	assert.Equal(t, KindUnknownBuiltin, issues[2].Kind())
}

func TestValidateAggregateInto(t *testing.T) {
	over := dl.NewAtom("quality", dl.Var("X"), dl.Var("_"))
	p := dl.NewBuilder().
		Rule(dl.NewAtom("n", dl.Var("X")),
			dl.Agg(dl.AggCount, dl.Num(3), over, dl.Term{}, dl.Var("X"))).
		Rule(dl.NewAtom("s", dl.Var("X"), dl.Var("S")),
			dl.Agg(dl.AggSum, dl.Var("S"), over, dl.Term{}, dl.Var("X"))).
		Program()

	issues := Validate(p)
	require.Len(t, issues, 2)
	assert.Equal(t, AggregateIntoNotVar{Where: "rule #0 body[0]"}, issues[0])
	assert.Equal(t, AggregateMissingValue{Fun: dl.AggSum, Where: "rule #1 body[0]"}, issues[1])
}

func TestValidateAggregateOutputsBindHeadVars(t *testing.T) {
	p := dl.NewBuilder().
		Rule(dl.NewAtom("qcount", dl.Var("X"), dl.Var("N")),
			dl.Agg(dl.AggCount, dl.Var("N"), dl.NewAtom("quality", dl.Var("X"), dl.Var("_")), dl.Term{}, dl.Var("X"))).
		Program()

	assert.Empty(t, Validate(p))
}

func TestValidateRangeRestriction(t *testing.T) {
	b := dl.NewBuilder()
	b.Rule(dl.NewAtom("head", dl.Var("X")), dl.NewAtom("body", dl.Var("Y")))
	p := b.Program()

	issues := Validate(p)
	require.Len(t, issues, 1)
	assert.Equal(t, RangeRestrictionViolation{Rule: p.Rules[0].ID, Variable: "X"}, issues[0])
}

func TestValidateRangeRestrictionIgnoresNegationAndBuiltins(t *testing.T) {
	p := dl.NewBuilder().
		Rule(dl.NewAtom("p", dl.Var("X"), dl.Var("Y"), dl.Var("Z")),
			dl.NewAtom("q", dl.Var("W")),
			dl.Not(dl.NewAtom("r", dl.Var("X"))),
			dl.Arith(dl.OpAdd, dl.Var("W"), dl.Num(1), dl.Var("Y")),
			dl.Cmp(dl.OpEq, dl.Var("Z"), dl.Num(1))).
		Program()

	issues := FilterIssues(Validate(p), KindRangeRestriction)
	require.Len(t, issues, 3)
	var vars []string
	for _, is := range issues {
		vars = append(vars, is.(RangeRestrictionViolation).Variable)
	}
	assert.Equal(t, []string{"X", "Y", "Z"}, vars)
}

func TestValidateWildcardInHead(t *testing.T) {
	p := dl.NewBuilder().
		Rule(dl.NewAtom("p", dl.Var("_")), dl.NewAtom("q", dl.Var("X"))).
		Program()
	issues := Validate(p)
	require.Len(t, issues, 1)
	assert.Equal(t, "_", issues[0].(RangeRestrictionViolation).Variable)
}

func TestValidateNonGroundFact(t *testing.T) {
	p := dl.Program{Facts: []dl.Fact{{Atom: dl.NewAtom("p", dl.Var("X"))}}}
	issues := Validate(p)
	require.Len(t, issues, 1)
	assert.Equal(t, NonGroundFact{Where: "fact #0"}, issues[0])
}

func TestValidateIsDeterministic(t *testing.T) {
	p := dl.NewBuilder().
		Fact(dl.NewAtom("q", dl.Sym("a"))).
		Fact(dl.NewAtom("q", dl.Sym("a"), dl.Sym("b"))).
		Rule(dl.NewAtom("p", dl.Var("X"), dl.Var("Z")), dl.NewAtom("q", dl.Var("X")), dl.Builtin{Op: dl.OpLt, Args: []dl.Term{dl.Var("X")}}).
		Program()

	first := Validate(p)
	second := Validate(p)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestIssueStrings(t *testing.T) {
	assert.Equal(t, "fact #1: predicate q used with arity 2, expected 1",
		ArityMismatch{Predicate: "q", ExpectedArity: 1, FoundArity: 2, Where: "fact #1"}.String())
	assert.Equal(t, "rule #4: head variable X is not bound by the body",
		RangeRestrictionViolation{Rule: 4, Variable: "X"}.String())
}
