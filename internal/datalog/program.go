package datalog

import (
	"sort"
	"strings"
)

// Rule derives Head whenever every body literal holds under one binding.
type Rule struct {
	ID   int
	Head Atom
	Body []Literal
	Tags []string
}

// String renders the rule as a clause.
func (r Rule) String() string {
	if len(r.Body) == 0 {
		return r.Head.String() + "."
	}
	parts := make([]string, len(r.Body))
	for i, l := range r.Body {
		parts[i] = l.String()
	}
	return r.Head.String() + " :- " + strings.Join(parts, ", ") + "."
}

// Fact is a ground atom.
type Fact struct {
	ID   int
	Atom Atom
	Tags []string
}

func (f Fact) String() string { return f.Atom.String() + "." }

// Program is a set of facts and rules. It is treated as immutable once built.
type Program struct {
	Facts []Fact
	Rules []Rule
}

// Predicates returns every predicate name mentioned anywhere in the program,
// sorted.
func (p Program) Predicates() []string {
	seen := make(map[string]struct{})
	for _, f := range p.Facts {
		seen[f.Atom.Pred] = struct{}{}
	}
	for _, r := range p.Rules {
		seen[r.Head.Pred] = struct{}{}
		for _, lit := range r.Body {
			if a, _, ok := LiteralAtoms(lit); ok {
				seen[a.Pred] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for pred := range seen {
		out = append(out, pred)
	}
	sort.Strings(out)
	return out
}

// String renders facts then rules, one clause per line.
func (p Program) String() string {
	var sb strings.Builder
	for _, f := range p.Facts {
		sb.WriteString(f.String())
		sb.WriteByte('\n')
	}
	for _, r := range p.Rules {
		sb.WriteString(r.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
