package eval

import (
	"math"

	"stratalog/internal/datalog"
)

type aggGroup struct {
	key     []datalog.Term
	count   int
	values  []float64
	invalid bool
}

// aggregate groups the facts of a.Over matching under env by the By terms,
// reduces each group and calls emit once per surviving group with env
// extended by the By variables and Into. For min and max an unbound Value
// variable is bound to the result as well.
func aggregate(a datalog.Aggregate, env binding, src *Store, drop func(DropReason), emit func(binding)) {
	var order []*aggGroup
	groups := make(map[string]*aggGroup)

	src.scan(a.Over, env, func(row []datalog.Term) bool {
		ext, ok := unify(a.Over.Args, row, env)
		if !ok {
			return true
		}
		key := make([]datalog.Term, len(a.By))
		for i, t := range a.By {
			key[i], _ = ext.lookup(t)
		}
		k := rowKey(key)
		g, seen := groups[k]
		if !seen {
			g = &aggGroup{key: key}
			groups[k] = g
			order = append(order, g)
		}
		g.count++
		if a.Fun != datalog.AggCount {
			v, ok := ext.lookup(a.Value)
			if !ok || v.Kind != datalog.KindNum {
				g.invalid = true
			} else {
				g.values = append(g.values, v.Num)
			}
		}
		return true
	})

	for _, g := range order {
		if g.invalid {
			drop(DropKindMismatch)
			continue
		}
		res, ok := reduce(a.Fun, g)
		if !ok {
			continue
		}
		out, ok := bindGroup(a, env, g.key, res)
		if ok {
			emit(out)
		}
	}
}

func bindGroup(a datalog.Aggregate, env binding, key []datalog.Term, res datalog.Term) (binding, bool) {
	out := env.clone(len(a.By) + 2)
	for i, t := range a.By {
		// A By variable that neither Over nor an earlier literal binds has no
		// key value; leaving it unbound makes the head drop as non-ground.
		if !t.IsVar() || t.IsWildcard() || key[i].IsZero() {
			continue
		}
		if cur, ok := out[t.Str]; ok && cur != key[i] {
			return nil, false
		}
		out[t.Str] = key[i]
	}
	if cur, ok := out.lookup(a.Into); ok {
		if cur != res {
			return nil, false
		}
	} else if a.Into.IsVar() && !a.Into.IsWildcard() {
		out[a.Into.Str] = res
	}
	if a.Fun == datalog.AggMin || a.Fun == datalog.AggMax {
		if a.Value.IsVar() && !a.Value.IsWildcard() {
			if _, ok := out[a.Value.Str]; !ok {
				out[a.Value.Str] = res
			}
		}
	}
	return out, true
}

func reduce(fun datalog.AggFunc, g *aggGroup) (datalog.Term, bool) {
	if g.count == 0 {
		return datalog.Term{}, false
	}
	switch fun {
	case datalog.AggCount:
		return datalog.Num(float64(g.count)), true
	case datalog.AggSum, datalog.AggAvg:
		var sum float64
		for _, v := range g.values {
			sum += v
		}
		if fun == datalog.AggAvg {
			return datalog.Num(sum / float64(len(g.values))), true
		}
		return datalog.Num(sum), true
	case datalog.AggMin:
		m := math.Inf(1)
		for _, v := range g.values {
			m = math.Min(m, v)
		}
		return datalog.Num(m), true
	case datalog.AggMax:
		m := math.Inf(-1)
		for _, v := range g.values {
			m = math.Max(m, v)
		}
		return datalog.Num(m), true
	}
	return datalog.Term{}, false
}
