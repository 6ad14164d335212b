// Package mangle translates between datalog.Program values and Google Mangle
// source, and runs programs through the Mangle engine as a reference
// evaluator.
package mangle

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/parse"

	"stratalog/internal/datalog"
	"stratalog/internal/logging"
)

var arithFns = map[string]datalog.BuiltinOp{
	"fn:plus":  datalog.OpAdd,
	"fn:minus": datalog.OpSub,
	"fn:mult":  datalog.OpMul,
	"fn:div":   datalog.OpDiv,
}

var comparisonAtoms = map[string]datalog.BuiltinOp{
	":lt": datalog.OpLt,
	":le": datalog.OpLe,
	":gt": datalog.OpGt,
	":ge": datalog.OpGe,
}

var reducers = map[string]datalog.AggFunc{
	"fn:count": datalog.AggCount,
	"fn:sum":   datalog.AggSum,
	"fn:min":   datalog.AggMin,
	"fn:max":   datalog.AggMax,
	"fn:avg":   datalog.AggAvg,
}

// Parse reads Mangle source into a Program. Clauses without premises become
// facts; the remaining clauses become rules. Declarations are ignored.
// Clauses outside the supported subset return an error naming the clause.
func Parse(src string) (datalog.Program, error) {
	unit, err := parse.Unit(strings.NewReader(src))
	if err != nil {
		return datalog.Program{}, fmt.Errorf("failed to parse mangle source: %w", err)
	}

	b := datalog.NewBuilder()
	for _, clause := range unit.Clauses {
		head, err := fromAtom(clause.Head)
		if err != nil {
			return datalog.Program{}, clauseError(clause, err)
		}
		if len(clause.Premises) == 0 && clause.Transform == nil {
			b.Fact(head)
			continue
		}
		body, err := fromBody(clause)
		if err != nil {
			return datalog.Program{}, clauseError(clause, err)
		}
		b.Rule(head, body...)
	}

	p := b.Program()
	logging.Get(logging.CategoryMangle).Debug("parsed %d facts and %d rules", len(p.Facts), len(p.Rules))
	return p, nil
}

func clauseError(c ast.Clause, err error) error {
	return fmt.Errorf("clause %s: %w", c.String(), err)
}

func fromBody(c ast.Clause) ([]datalog.Literal, error) {
	if c.Transform != nil {
		lit, err := fromAggregate(c)
		if err != nil {
			return nil, err
		}
		return []datalog.Literal{lit}, nil
	}

	body := make([]datalog.Literal, 0, len(c.Premises))
	for _, premise := range c.Premises {
		lit, err := fromPremise(premise)
		if err != nil {
			return nil, err
		}
		body = append(body, lit)
	}
	return body, nil
}

func fromPremise(t ast.Term) (datalog.Literal, error) {
	switch p := t.(type) {
	case ast.Atom:
		if op, ok := comparisonAtoms[p.Predicate.Symbol]; ok {
			if len(p.Args) != 2 {
				return nil, fmt.Errorf("%s takes 2 arguments", p.Predicate.Symbol)
			}
			l, r, err := fromPair(p.Args[0], p.Args[1])
			if err != nil {
				return nil, err
			}
			return datalog.Cmp(op, l, r), nil
		}
		if strings.HasPrefix(p.Predicate.Symbol, ":") {
			return nil, fmt.Errorf("unsupported builtin predicate %s", p.Predicate.Symbol)
		}
		return fromAtom(p)
	case ast.NegAtom:
		a, err := fromAtom(p.Atom)
		if err != nil {
			return nil, err
		}
		return datalog.Not(a), nil
	case ast.Eq:
		return fromEq(p.Left, p.Right)
	case ast.Ineq:
		l, r, err := fromPair(p.Left, p.Right)
		if err != nil {
			return nil, err
		}
		return datalog.Cmp(datalog.OpNeq, l, r), nil
	default:
		return nil, fmt.Errorf("unsupported premise %v", t)
	}
}

// fromEq maps Z = fn:op(X, Y) to arithmetic and anything else to eq.
func fromEq(left, right ast.BaseTerm) (datalog.Literal, error) {
	if _, ok := left.(ast.ApplyFn); ok {
		left, right = right, left
	}
	if fn, ok := right.(ast.ApplyFn); ok {
		op, known := arithFns[fn.Function.Symbol]
		if !known {
			return nil, fmt.Errorf("unsupported function %s", fn.Function.Symbol)
		}
		if len(fn.Args) != 2 {
			return nil, fmt.Errorf("%s takes 2 arguments", fn.Function.Symbol)
		}
		x, y, err := fromPair(fn.Args[0], fn.Args[1])
		if err != nil {
			return nil, err
		}
		z, err := fromTerm(left)
		if err != nil {
			return nil, err
		}
		return datalog.Arith(op, x, y, z), nil
	}
	l, r, err := fromPair(left, right)
	if err != nil {
		return nil, err
	}
	return datalog.Cmp(datalog.OpEq, l, r), nil
}

// fromAggregate accepts exactly one body atom followed by
// do fn:group_by(...) and a single let with a known reducer.
func fromAggregate(c ast.Clause) (datalog.Literal, error) {
	if len(c.Premises) != 1 {
		return nil, fmt.Errorf("aggregation needs exactly one body atom, got %d premises", len(c.Premises))
	}
	overAtom, ok := c.Premises[0].(ast.Atom)
	if !ok || strings.HasPrefix(overAtom.Predicate.Symbol, ":") {
		return nil, fmt.Errorf("aggregation must read a plain atom")
	}
	over, err := fromAtom(overAtom)
	if err != nil {
		return nil, err
	}

	stmts := c.Transform.Statements
	if len(stmts) != 2 || stmts[0].Var != nil || stmts[0].Fn.Function.Symbol != "fn:group_by" || stmts[1].Var == nil {
		return nil, fmt.Errorf("transform must be: do fn:group_by(...), let V = fn:reducer(...)")
	}

	var by []datalog.Term
	for _, arg := range stmts[0].Fn.Args {
		v, ok := arg.(ast.Variable)
		if !ok {
			return nil, fmt.Errorf("fn:group_by takes variables only")
		}
		by = append(by, datalog.Var(v.Symbol))
	}

	let := stmts[1]
	fun, known := reducers[strings.ToLower(let.Fn.Function.Symbol)]
	if !known {
		return nil, fmt.Errorf("unsupported reducer %s", let.Fn.Function.Symbol)
	}
	var value datalog.Term
	switch {
	case fun == datalog.AggCount && len(let.Fn.Args) == 0:
	case fun != datalog.AggCount && len(let.Fn.Args) == 1:
		value, err = fromTerm(let.Fn.Args[0])
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%s called with %d arguments", let.Fn.Function.Symbol, len(let.Fn.Args))
	}

	return datalog.Agg(fun, datalog.Var(let.Var.Symbol), over, value, by...), nil
}

func fromAtom(a ast.Atom) (datalog.Atom, error) {
	args := make([]datalog.Term, len(a.Args))
	for i, arg := range a.Args {
		t, err := fromTerm(arg)
		if err != nil {
			return datalog.Atom{}, err
		}
		args[i] = t
	}
	return datalog.NewAtom(a.Predicate.Symbol, args...), nil
}

func fromPair(l, r ast.BaseTerm) (datalog.Term, datalog.Term, error) {
	left, err := fromTerm(l)
	if err != nil {
		return datalog.Term{}, datalog.Term{}, err
	}
	right, err := fromTerm(r)
	if err != nil {
		return datalog.Term{}, datalog.Term{}, err
	}
	return left, right, nil
}

func fromTerm(t ast.BaseTerm) (datalog.Term, error) {
	switch v := t.(type) {
	case ast.Variable:
		return datalog.Var(v.Symbol), nil
	case ast.Constant:
		return fromConstant(v)
	default:
		return datalog.Term{}, fmt.Errorf("unsupported term %v", t)
	}
}

func fromConstant(c ast.Constant) (datalog.Term, error) {
	switch c.Type {
	case ast.NameType:
		return datalog.Sym(strings.TrimPrefix(c.Symbol, "/")), nil
	case ast.StringType:
		return datalog.Str(c.Symbol), nil
	case ast.NumberType:
		return datalog.Num(float64(c.NumValue)), nil
	case ast.Float64Type:
		return datalog.Num(math.Float64frombits(uint64(c.NumValue))), nil
	default:
		return datalog.Term{}, fmt.Errorf("unsupported constant %s", c.String())
	}
}
