package eval

import "stratalog/internal/datalog"

// step is one scheduled body literal. pos is its index in the rule body.
type step struct {
	lit datalog.Literal
	pos int
}

// compiledRule is a rule with its body in evaluation order.
type compiledRule struct {
	rule    datalog.Rule
	steps   []step
	stratum int
}

// schedule orders a rule body for evaluation. Literals run left to right,
// except that a negation or builtin whose inputs are not yet bound waits
// until they are. Positive atoms and aggregates never wait. Whatever is still
// waiting at the end runs last, with unbound inputs.
func schedule(body []datalog.Literal) []step {
	bound := make(map[string]bool)
	plan := make([]step, 0, len(body))
	var pending []step

	place := func(s step) {
		plan = append(plan, s)
		markBound(s.lit, bound)
	}

	for i, lit := range body {
		s := step{lit: lit, pos: i}
		if !ready(lit, bound) {
			pending = append(pending, s)
			continue
		}
		place(s)
		for progress := true; progress; {
			progress = false
			for j := 0; j < len(pending); j++ {
				if ready(pending[j].lit, bound) {
					place(pending[j])
					pending = append(pending[:j], pending[j+1:]...)
					progress = true
					break
				}
			}
		}
	}
	return append(plan, pending...)
}

func isBound(t datalog.Term, bound map[string]bool) bool {
	if t.IsWildcard() {
		return false
	}
	if t.IsVar() {
		return bound[t.Str]
	}
	return true
}

func ready(lit datalog.Literal, bound map[string]bool) bool {
	switch l := lit.(type) {
	case datalog.Neg:
		for _, name := range l.Atom.Vars() {
			if !bound[name] {
				return false
			}
		}
		return true
	case datalog.Builtin:
		switch {
		case len(l.Args) != l.Op.Arity():
			return true
		case l.Op == datalog.OpEq:
			return isBound(l.Args[0], bound) || isBound(l.Args[1], bound)
		default:
			return isBound(l.Args[0], bound) && isBound(l.Args[1], bound)
		}
	}
	return true
}

func markBound(lit datalog.Literal, bound map[string]bool) {
	mark := func(t datalog.Term) {
		if t.IsVar() && !t.IsWildcard() {
			bound[t.Str] = true
		}
	}
	switch l := lit.(type) {
	case datalog.Atom:
		for _, t := range l.Args {
			mark(t)
		}
	case datalog.Builtin:
		if l.Op == datalog.OpEq && len(l.Args) == 2 {
			mark(l.Args[0])
			mark(l.Args[1])
		}
		if l.Op.IsArithmetic() && len(l.Args) == 3 {
			mark(l.Args[2])
		}
	case datalog.Aggregate:
		mark(l.Into)
		for _, t := range l.By {
			mark(t)
		}
		if l.Fun == datalog.AggMin || l.Fun == datalog.AggMax {
			mark(l.Value)
		}
	}
}
