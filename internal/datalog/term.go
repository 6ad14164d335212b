// Package datalog defines the rule-program model: terms, atoms, body literals,
// rules, facts and programs. Values here are plain data; analysis and
// evaluation live in sibling packages.
package datalog

import (
	"strconv"
	"strings"
)

// TermKind discriminates the Term variants.
type TermKind uint8

const (
	// KindNone is the zero Term. It is used for optional slots such as an
	// aggregate without a value variable.
	KindNone TermKind = iota
	KindNum
	KindStr
	KindSym
	KindVar
)

// String returns the lower-case variant name.
func (k TermKind) String() string {
	switch k {
	case KindNum:
		return "num"
	case KindStr:
		return "str"
	case KindSym:
		return "sym"
	case KindVar:
		return "var"
	default:
		return "none"
	}
}

// Wildcard is the anonymous variable name. Each occurrence matches anything
// and never binds.
const Wildcard = "_"

// Term is one argument of an atom. It is a comparable value so it can key
// maps and indexes directly.
type Term struct {
	Kind TermKind
	Num  float64
	Str  string // string value, symbol name, or variable name
}

// Num returns a numeric constant.
func Num(v float64) Term { return Term{Kind: KindNum, Num: v} }

// Str returns a string constant.
func Str(s string) Term { return Term{Kind: KindStr, Str: s} }

// Sym returns an interned symbolic constant.
func Sym(name string) Term { return Term{Kind: KindSym, Str: name} }

// Var returns a logic variable. Variables are scoped to a single rule.
func Var(name string) Term { return Term{Kind: KindVar, Str: name} }

// IsVar reports whether t is a variable (including the wildcard).
func (t Term) IsVar() bool { return t.Kind == KindVar }

// IsWildcard reports whether t is the anonymous variable.
func (t Term) IsWildcard() bool { return t.Kind == KindVar && t.Str == Wildcard }

// IsConst reports whether t is a ground constant.
func (t Term) IsConst() bool {
	return t.Kind == KindNum || t.Kind == KindStr || t.Kind == KindSym
}

// IsZero reports whether t is the absent term.
func (t Term) IsZero() bool { return t.Kind == KindNone }

// Equal compares value and kind. A Num never equals a Str with the same text.
func (t Term) Equal(o Term) bool { return t == o }

// String renders the term in clause syntax: numbers bare, strings quoted,
// symbols as names, variables by name.
func (t Term) String() string {
	switch t.Kind {
	case KindNum:
		return FormatNum(t.Num)
	case KindStr:
		return strconv.Quote(t.Str)
	case KindSym, KindVar:
		return t.Str
	default:
		return "<none>"
	}
}

// FormatNum renders integral values without a fractional part.
func FormatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Atom is a predicate applied to an ordered argument list. Predicate name and
// arity together form the signature.
type Atom struct {
	Pred string
	Args []Term
}

// NewAtom builds an atom.
func NewAtom(pred string, args ...Term) Atom {
	return Atom{Pred: pred, Args: args}
}

// Arity returns the number of arguments.
func (a Atom) Arity() int { return len(a.Args) }

// IsGround reports whether no argument is a variable.
func (a Atom) IsGround() bool {
	for _, t := range a.Args {
		if !t.IsConst() {
			return false
		}
	}
	return true
}

// Vars returns the distinct named variables of the atom in first-occurrence
// order. The wildcard is skipped.
func (a Atom) Vars() []string {
	return appendVars(nil, a.Args...)
}

// Equal compares predicate and arguments.
func (a Atom) Equal(o Atom) bool {
	if a.Pred != o.Pred || len(a.Args) != len(o.Args) {
		return false
	}
	for i := range a.Args {
		if a.Args[i] != o.Args[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that does not share the argument slice.
func (a Atom) Clone() Atom {
	args := make([]Term, len(a.Args))
	copy(args, a.Args)
	return Atom{Pred: a.Pred, Args: args}
}

func (a Atom) String() string {
	var sb strings.Builder
	sb.WriteString(a.Pred)
	sb.WriteByte('(')
	for i, t := range a.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(t.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func appendVars(dst []string, terms ...Term) []string {
	for _, t := range terms {
		if t.Kind != KindVar || t.Str == Wildcard {
			continue
		}
		dup := false
		for _, v := range dst {
			if v == t.Str {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, t.Str)
		}
	}
	return dst
}
