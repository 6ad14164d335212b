package eval

import "stratalog/internal/datalog"

// binding maps variable names to ground terms. A binding is never mutated
// once handed to the next body literal; extensions copy.
type binding map[string]datalog.Term

// lookup resolves t under b. Constants resolve to themselves, the wildcard
// never resolves.
func (b binding) lookup(t datalog.Term) (datalog.Term, bool) {
	switch {
	case t.IsWildcard():
		return datalog.Term{}, false
	case t.IsVar():
		v, ok := b[t.Str]
		return v, ok
	default:
		return t, true
	}
}

func (b binding) clone(extra int) binding {
	out := make(binding, len(b)+extra)
	for k, v := range b {
		out[k] = v
	}
	return out
}

func (b binding) with(name string, v datalog.Term) binding {
	out := b.clone(1)
	out[name] = v
	return out
}

// unify matches a pattern against a ground row under b and returns the
// extended binding. Repeated variables in the pattern must agree.
func unify(pattern, row []datalog.Term, b binding) (binding, bool) {
	if len(pattern) != len(row) {
		return nil, false
	}
	out := b
	copied := false
	for i, t := range pattern {
		switch {
		case t.IsWildcard():
		case !t.IsVar():
			if t != row[i] {
				return nil, false
			}
		default:
			if v, ok := out[t.Str]; ok {
				if v != row[i] {
					return nil, false
				}
				continue
			}
			if !copied {
				out = b.clone(len(pattern))
				copied = true
			}
			out[t.Str] = row[i]
		}
	}
	return out, true
}

// ground instantiates a under b. It fails when some argument stays unbound.
func ground(a datalog.Atom, b binding) (datalog.Atom, bool) {
	args := make([]datalog.Term, len(a.Args))
	for i, t := range a.Args {
		v, ok := b.lookup(t)
		if !ok {
			return datalog.Atom{}, false
		}
		args[i] = v
	}
	return datalog.Atom{Pred: a.Pred, Args: args}, true
}
