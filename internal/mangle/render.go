package mangle

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/google/mangle/ast"

	"stratalog/internal/datalog"
)

var (
	predicatePattern = regexp.MustCompile(`^[a-z][A-Za-z0-9_]*(\.[A-Za-z0-9_]+)*$`)
	variablePattern  = regexp.MustCompile(`^(_|[A-Z][A-Za-z0-9_]*)$`)
)

var opFns = map[datalog.BuiltinOp]string{
	datalog.OpAdd: "fn:plus",
	datalog.OpSub: "fn:minus",
	datalog.OpMul: "fn:mult",
	datalog.OpDiv: "fn:div",
}

var opAtoms = map[datalog.BuiltinOp]string{
	datalog.OpLt: ":lt",
	datalog.OpLe: ":le",
	datalog.OpGt: ":gt",
	datalog.OpGe: ":ge",
}

// Render writes p as Mangle source, facts first, one clause per line. Rules
// that mix an aggregate with other literals, and names that are not valid
// Mangle tokens, cannot be rendered.
func Render(p datalog.Program) (string, error) {
	clauses, err := Clauses(p)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, c := range clauses {
		sb.WriteString(c.String())
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// Clauses converts p to Mangle clauses.
func Clauses(p datalog.Program) ([]ast.Clause, error) {
	out := make([]ast.Clause, 0, len(p.Facts)+len(p.Rules))
	for i, f := range p.Facts {
		head, err := toAtom(f.Atom)
		if err != nil {
			return nil, fmt.Errorf("fact #%d: %w", i, err)
		}
		out = append(out, ast.Clause{Head: head})
	}
	for i, r := range p.Rules {
		c, err := toClause(r)
		if err != nil {
			return nil, fmt.Errorf("rule #%d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func toClause(r datalog.Rule) (ast.Clause, error) {
	head, err := toAtom(r.Head)
	if err != nil {
		return ast.Clause{}, err
	}
	if len(r.Body) == 1 {
		if agg, ok := r.Body[0].(datalog.Aggregate); ok {
			return toAggregateClause(head, agg)
		}
	}

	premises := make([]ast.Term, 0, len(r.Body))
	for _, lit := range r.Body {
		t, err := toPremise(lit)
		if err != nil {
			return ast.Clause{}, err
		}
		premises = append(premises, t)
	}
	return ast.Clause{Head: head, Premises: premises}, nil
}

func toPremise(lit datalog.Literal) (ast.Term, error) {
	switch l := lit.(type) {
	case datalog.Atom:
		return toAtom(l)
	case datalog.Neg:
		a, err := toAtom(l.Atom)
		if err != nil {
			return nil, err
		}
		return ast.NegAtom{Atom: a}, nil
	case datalog.Builtin:
		return toBuiltin(l)
	case datalog.Aggregate:
		return nil, fmt.Errorf("aggregate must be the only body literal")
	default:
		panic(fmt.Sprintf("mangle: unknown literal %T", lit))
	}
}

func toBuiltin(b datalog.Builtin) (ast.Term, error) {
	if len(b.Args) != b.Op.Arity() {
		return nil, fmt.Errorf("builtin %s with %d arguments", b.Op, len(b.Args))
	}
	args := make([]ast.BaseTerm, len(b.Args))
	for i, t := range b.Args {
		bt, err := toTerm(t)
		if err != nil {
			return nil, err
		}
		args[i] = bt
	}
	switch {
	case b.Op == datalog.OpEq:
		return ast.Eq{Left: args[0], Right: args[1]}, nil
	case b.Op == datalog.OpNeq:
		return ast.Ineq{Left: args[0], Right: args[1]}, nil
	case b.Op.IsComparison():
		return ast.NewAtom(opAtoms[b.Op], args[0], args[1]), nil
	default:
		fn := ast.ApplyFn{Function: ast.FunctionSym{Symbol: opFns[b.Op], Arity: 2}, Args: args[:2]}
		return ast.Eq{Left: args[2], Right: fn}, nil
	}
}

// toAggregateClause renders head :- over |> do fn:group_by(By), let Into = fn:f(Value).
// Wildcards in over get fresh names so that every matching fact is a
// distinct row of the grouped relation.
func toAggregateClause(head ast.Atom, a datalog.Aggregate) (ast.Clause, error) {
	used := make(map[string]bool)
	for _, name := range a.Over.Vars() {
		used[name] = true
	}
	next := 0
	fresh := func() string {
		for {
			name := fmt.Sprintf("Anon%d", next)
			next++
			if !used[name] {
				used[name] = true
				return name
			}
		}
	}

	over := a.Over.Clone()
	for i, t := range over.Args {
		if t.IsWildcard() {
			over.Args[i] = datalog.Var(fresh())
		}
	}
	overAtom, err := toAtom(over)
	if err != nil {
		return ast.Clause{}, err
	}

	by := make([]ast.BaseTerm, 0, len(a.By))
	for _, t := range a.By {
		if !t.IsVar() || t.IsWildcard() {
			return ast.Clause{}, fmt.Errorf("group_by takes variables, got %s", t)
		}
		v, err := toTerm(t)
		if err != nil {
			return ast.Clause{}, err
		}
		by = append(by, v)
	}

	if !a.Into.IsVar() || a.Into.IsWildcard() {
		return ast.Clause{}, fmt.Errorf("aggregate result must be a variable, got %s", a.Into)
	}
	var args []ast.BaseTerm
	if a.Fun != datalog.AggCount {
		v, err := toTerm(a.Value)
		if err != nil {
			return ast.Clause{}, err
		}
		args = append(args, v)
	}

	into := ast.Variable{Symbol: a.Into.Str}
	transform := ast.Transform{Statements: []ast.TransformStmt{
		{Fn: ast.ApplyFn{Function: ast.FunctionSym{Symbol: "fn:group_by", Arity: len(by)}, Args: by}},
		{Var: &into, Fn: ast.ApplyFn{Function: ast.FunctionSym{Symbol: "fn:" + string(a.Fun), Arity: len(args)}, Args: args}},
	}}
	return ast.Clause{Head: head, Premises: []ast.Term{overAtom}, Transform: &transform}, nil
}

func toAtom(a datalog.Atom) (ast.Atom, error) {
	if !predicatePattern.MatchString(a.Pred) {
		return ast.Atom{}, fmt.Errorf("predicate %q is not a valid mangle name", a.Pred)
	}
	args := make([]ast.BaseTerm, len(a.Args))
	for i, t := range a.Args {
		bt, err := toTerm(t)
		if err != nil {
			return ast.Atom{}, err
		}
		args[i] = bt
	}
	return ast.NewAtom(a.Pred, args...), nil
}

func toTerm(t datalog.Term) (ast.BaseTerm, error) {
	switch t.Kind {
	case datalog.KindVar:
		if !variablePattern.MatchString(t.Str) {
			return nil, fmt.Errorf("variable %q must start with an uppercase letter", t.Str)
		}
		return ast.Variable{Symbol: t.Str}, nil
	case datalog.KindSym:
		c, err := ast.Name("/" + strings.TrimPrefix(t.Str, "/"))
		if err != nil {
			return nil, fmt.Errorf("symbol %q: %w", t.Str, err)
		}
		return c, nil
	case datalog.KindStr:
		return ast.String(t.Str), nil
	case datalog.KindNum:
		if t.Num == math.Trunc(t.Num) && math.Abs(t.Num) < 1<<53 {
			return ast.Number(int64(t.Num)), nil
		}
		return ast.Float64(t.Num), nil
	default:
		return nil, fmt.Errorf("missing term")
	}
}
