package datalog

import (
	"fmt"
	"strings"
)

// Literal is one conjunct of a rule body. The set of implementations is
// closed: Atom, Neg, Builtin and Aggregate. Consumers switch over these four
// types; the unexported marker keeps other packages from adding variants.
type Literal interface {
	fmt.Stringer
	isLiteral()
}

func (Atom) isLiteral()      {}
func (Neg) isLiteral()       {}
func (Builtin) isLiteral()   {}
func (Aggregate) isLiteral() {}

// Neg is a negated occurrence of an atom.
type Neg struct {
	Atom Atom
}

// Not builds a negated literal.
func Not(a Atom) Neg { return Neg{Atom: a} }

func (n Neg) String() string { return "not " + n.Atom.String() }

// BuiltinOp names a comparison or arithmetic builtin.
type BuiltinOp string

const (
	OpEq  BuiltinOp = "eq"
	OpNeq BuiltinOp = "neq"
	OpLt  BuiltinOp = "lt"
	OpLe  BuiltinOp = "le"
	OpGt  BuiltinOp = "gt"
	OpGe  BuiltinOp = "ge"
	OpAdd BuiltinOp = "add"
	OpSub BuiltinOp = "sub"
	OpMul BuiltinOp = "mul"
	OpDiv BuiltinOp = "div"
)

// IsComparison reports whether op takes two operands and only filters.
func (op BuiltinOp) IsComparison() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// IsArithmetic reports whether op takes two operands and a result position.
func (op BuiltinOp) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv:
		return true
	}
	return false
}

// Arity returns the expected argument count, or -1 for an unknown operator.
func (op BuiltinOp) Arity() int {
	switch {
	case op.IsComparison():
		return 2
	case op.IsArithmetic():
		return 3
	default:
		return -1
	}
}

// Builtin is a comparison (two args) or arithmetic (three args, the last one
// being the result) evaluated under the current binding. Builtins are never
// stored and never appear in the dependency graph.
type Builtin struct {
	Op   BuiltinOp
	Args []Term
}

// Cmp builds a comparison builtin.
func Cmp(op BuiltinOp, left, right Term) Builtin {
	return Builtin{Op: op, Args: []Term{left, right}}
}

// Arith builds an arithmetic builtin binding or checking result.
func Arith(op BuiltinOp, x, y, result Term) Builtin {
	return Builtin{Op: op, Args: []Term{x, y, result}}
}

func (b Builtin) String() string {
	parts := make([]string, len(b.Args))
	for i, t := range b.Args {
		parts[i] = t.String()
	}
	return string(b.Op) + "(" + strings.Join(parts, ", ") + ")"
}

// AggFunc names an aggregate reduction.
type AggFunc string

const (
	AggCount AggFunc = "count"
	AggSum   AggFunc = "sum"
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
	AggAvg   AggFunc = "avg"
)

// Valid reports whether f is a known reduction.
func (f AggFunc) Valid() bool {
	switch f {
	case AggCount, AggSum, AggMin, AggMax, AggAvg:
		return true
	}
	return false
}

// Aggregate groups the matches of Over by the By variables, reduces Value
// (or counts matches for count) per group and binds the result to Into.
type Aggregate struct {
	Fun   AggFunc
	Over  Atom
	Into  Term
	By    []Term
	Value Term // zero Term when absent
}

// Agg builds an aggregate literal. value may be the zero Term for count.
func Agg(fun AggFunc, into Term, over Atom, value Term, by ...Term) Aggregate {
	return Aggregate{Fun: fun, Over: over, Into: into, By: by, Value: value}
}

func (a Aggregate) String() string {
	var sb strings.Builder
	sb.WriteString("agg(")
	sb.WriteString(string(a.Fun))
	sb.WriteString(", ")
	sb.WriteString(a.Into.String())
	sb.WriteString(", ")
	sb.WriteString(a.Over.String())
	if !a.Value.IsZero() {
		sb.WriteString(", value=")
		sb.WriteString(a.Value.String())
	}
	if len(a.By) > 0 {
		sb.WriteString(", by=[")
		for i, t := range a.By {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(t.String())
		}
		sb.WriteByte(']')
	}
	sb.WriteByte(')')
	return sb.String()
}

// LiteralAtoms returns the predicate-bearing atoms of a literal, if any, and
// whether the occurrence is negated.
func LiteralAtoms(lit Literal) (Atom, bool, bool) {
	switch l := lit.(type) {
	case Atom:
		return l, false, true
	case Neg:
		return l.Atom, true, true
	case Aggregate:
		return l.Over, false, true
	case Builtin:
		return Atom{}, false, false
	default:
		panic(fmt.Sprintf("datalog: unknown literal %T", lit))
	}
}
