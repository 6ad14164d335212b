package analysis

import (
	"fmt"

	"stratalog/internal/datalog"
)

// Validate runs the structural checks over p and returns every issue found,
// in discovery order. It never fails and never mutates p; an empty result
// means no structural defect was found, not that the rules are meaningful.
//
// The signature table is seeded from facts in input order, then from each
// rule's head and body atoms in declaration order. The first occurrence of a
// predicate fixes its arity.
func Validate(p datalog.Program) []Issue {
	v := &validator{arity: make(map[string]int)}

	for i, f := range p.Facts {
		where := fmt.Sprintf("fact #%d", i)
		v.signature(f.Atom, where)
		if !f.Atom.IsGround() {
			v.add(NonGroundFact{Where: where})
		}
	}

	for i, r := range p.Rules {
		v.rule(i, r)
	}

	return v.issues
}

type validator struct {
	arity  map[string]int
	issues []Issue
}

func (v *validator) add(is Issue) {
	v.issues = append(v.issues, is)
}

func (v *validator) signature(a datalog.Atom, where string) {
	expected, ok := v.arity[a.Pred]
	if !ok {
		v.arity[a.Pred] = a.Arity()
		return
	}
	if expected != a.Arity() {
		v.add(ArityMismatch{
			Predicate:     a.Pred,
			ExpectedArity: expected,
			FoundArity:    a.Arity(),
			Where:         where,
		})
	}
}

func (v *validator) rule(index int, r datalog.Rule) {
	prefix := fmt.Sprintf("rule #%d", index)
	v.signature(r.Head, prefix+" head")

	bound := make(map[string]bool)
	for j, lit := range r.Body {
		where := fmt.Sprintf("%s body[%d]", prefix, j)
		switch l := lit.(type) {
		case datalog.Atom:
			v.signature(l, where)
			for _, name := range l.Vars() {
				bound[name] = true
			}
		case datalog.Neg:
			v.signature(l.Atom, where)
		case datalog.Builtin:
			v.builtin(l, where)
		case datalog.Aggregate:
			v.signature(l.Over, where)
			v.aggregate(l, where, bound)
		default:
			panic(fmt.Sprintf("analysis: unknown literal %T", lit))
		}
	}

	for _, name := range r.Head.Vars() {
		if !bound[name] {
			v.add(RangeRestrictionViolation{Rule: r.ID, Variable: name})
		}
	}
	for _, t := range r.Head.Args {
		if t.IsWildcard() {
			v.add(RangeRestrictionViolation{Rule: r.ID, Variable: datalog.Wildcard})
		}
	}
}

func (v *validator) builtin(b datalog.Builtin, where string) {
	expected := b.Op.Arity()
	if expected < 0 {
		v.add(UnknownBuiltin{Op: b.Op, Where: where})
		return
	}
	if len(b.Args) != expected {
		v.add(BuiltinArityError{Op: b.Op, Expected: expected, Found: len(b.Args), Where: where})
	}
}

func (v *validator) aggregate(a datalog.Aggregate, where string, bound map[string]bool) {
	if !a.Into.IsVar() || a.Into.IsWildcard() {
		v.add(AggregateIntoNotVar{Where: where})
	} else {
		bound[a.Into.Str] = true
	}
	for _, t := range a.By {
		if t.IsVar() && !t.IsWildcard() {
			bound[t.Str] = true
		}
	}
	if a.Value.IsVar() && !a.Value.IsWildcard() {
		bound[a.Value.Str] = true
	}
	if a.Fun != datalog.AggCount && a.Value.IsZero() {
		v.add(AggregateMissingValue{Fun: a.Fun, Where: where})
	}
}
