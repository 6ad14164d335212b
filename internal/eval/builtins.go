package eval

import "stratalog/internal/datalog"

// DropReason explains why a binding was discarded by a builtin or aggregate
// rather than simply filtered out.
type DropReason string

const (
	DropUnbound        DropReason = "unbound"
	DropKindMismatch   DropReason = "kind_mismatch"
	DropDivisionByZero DropReason = "division_by_zero"
	DropUnknownBuiltin DropReason = "unknown_builtin"
	DropNonGroundHead  DropReason = "non_ground_head"
)

// DropReasons lists every reason in a fixed order for reporting.
var DropReasons = []DropReason{
	DropUnbound,
	DropKindMismatch,
	DropDivisionByZero,
	DropUnknownBuiltin,
	DropNonGroundHead,
}

// applyBuiltin evaluates b under env. ok reports whether the binding
// survives; a non-empty reason means it was dropped by a failure instead of
// a false comparison.
func applyBuiltin(b datalog.Builtin, env binding) (out binding, ok bool, reason DropReason) {
	if len(b.Args) != b.Op.Arity() {
		return nil, false, DropUnknownBuiltin
	}
	switch {
	case b.Op == datalog.OpEq:
		return applyEq(b.Args[0], b.Args[1], env)
	case b.Op == datalog.OpNeq:
		l, lok := env.lookup(b.Args[0])
		r, rok := env.lookup(b.Args[1])
		if !lok || !rok {
			return nil, false, DropUnbound
		}
		return env, l != r, ""
	case b.Op.IsComparison():
		return applyOrder(b.Op, b.Args[0], b.Args[1], env)
	case b.Op.IsArithmetic():
		return applyArith(b.Op, b.Args, env)
	}
	return nil, false, DropUnknownBuiltin
}

// applyEq compares by kind and value. With exactly one side unbound it binds
// that side instead.
func applyEq(left, right datalog.Term, env binding) (binding, bool, DropReason) {
	l, lok := env.lookup(left)
	r, rok := env.lookup(right)
	switch {
	case lok && rok:
		return env, l == r, ""
	case lok && right.IsVar() && !right.IsWildcard():
		return env.with(right.Str, l), true, ""
	case rok && left.IsVar() && !left.IsWildcard():
		return env.with(left.Str, r), true, ""
	}
	return nil, false, DropUnbound
}

func applyOrder(op datalog.BuiltinOp, left, right datalog.Term, env binding) (binding, bool, DropReason) {
	l, lok := env.lookup(left)
	r, rok := env.lookup(right)
	if !lok || !rok {
		return nil, false, DropUnbound
	}
	if l.Kind != datalog.KindNum || r.Kind != datalog.KindNum {
		return nil, false, DropKindMismatch
	}
	var holds bool
	switch op {
	case datalog.OpLt:
		holds = l.Num < r.Num
	case datalog.OpLe:
		holds = l.Num <= r.Num
	case datalog.OpGt:
		holds = l.Num > r.Num
	case datalog.OpGe:
		holds = l.Num >= r.Num
	}
	return env, holds, ""
}

func applyArith(op datalog.BuiltinOp, args []datalog.Term, env binding) (binding, bool, DropReason) {
	x, xok := env.lookup(args[0])
	y, yok := env.lookup(args[1])
	if !xok || !yok {
		return nil, false, DropUnbound
	}
	if x.Kind != datalog.KindNum || y.Kind != datalog.KindNum {
		return nil, false, DropKindMismatch
	}

	var v float64
	switch op {
	case datalog.OpAdd:
		v = x.Num + y.Num
	case datalog.OpSub:
		v = x.Num - y.Num
	case datalog.OpMul:
		v = x.Num * y.Num
	case datalog.OpDiv:
		if y.Num == 0 {
			return nil, false, DropDivisionByZero
		}
		v = x.Num / y.Num
	}
	res := datalog.Num(v)

	target := args[2]
	if bound, ok := env.lookup(target); ok {
		return env, bound == res, ""
	}
	if target.IsWildcard() {
		return env, true, ""
	}
	return env.with(target.Str, res), true, ""
}
