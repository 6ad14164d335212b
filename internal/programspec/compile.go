package programspec

import (
	"strings"

	"stratalog/internal/datalog"
	"stratalog/internal/logging"
)

// Compile validates spec and converts it to a Program. Fact and rule ids
// come from a single generator in document order, facts first.
func Compile(spec Spec) (datalog.Program, error) {
	return CompileWithIDs(spec, datalog.NewIDGen(1))
}

// CompileWithIDs is Compile drawing ids from ids, so several documents can
// share one id space.
func CompileWithIDs(spec Spec, ids *datalog.IDGen) (datalog.Program, error) {
	if err := ValidateSpec(spec); err != nil {
		return datalog.Program{}, err
	}

	b := datalog.NewBuilderWithIDs(ids)
	for _, f := range spec.Program.Facts {
		b.Fact(buildAtom(f.Atom), f.Tags...)
	}
	for _, r := range spec.Program.Rules {
		body := make([]datalog.Literal, len(r.Body))
		for i, lit := range r.Body {
			body[i] = buildLiteral(lit)
		}
		b.TaggedRule(r.Tags, buildAtom(r.Head), body...)
	}

	p := b.Program()
	logging.Get(logging.CategoryBoot).Debug("compiled program document: %d facts, %d rules", len(p.Facts), len(p.Rules))
	return p, nil
}

// Load decodes, validates and compiles a document.
func Load(data []byte, enc Encoding) (datalog.Program, error) {
	spec, err := Decode(data, enc)
	if err != nil {
		return datalog.Program{}, err
	}
	return Compile(spec)
}

func buildLiteral(spec LiteralSpec) datalog.Literal {
	switch {
	case spec.Atom != nil:
		return buildAtom(*spec.Atom)
	case spec.Not != nil:
		return datalog.Not(buildAtom(*spec.Not))
	case spec.Builtin != nil:
		return datalog.Builtin{
			Op:   datalog.BuiltinOp(strings.ToLower(spec.Builtin.Op)),
			Args: buildTerms(spec.Builtin.Args),
		}
	default:
		a := spec.Agg
		var value datalog.Term
		if a.Value != nil {
			value = buildTerm(*a.Value)
		}
		return datalog.Agg(datalog.AggFunc(strings.ToLower(a.Fun)), buildTerm(a.Into), buildAtom(a.Over), value, buildTerms(a.By)...)
	}
}

func buildAtom(spec AtomSpec) datalog.Atom {
	return datalog.NewAtom(spec.Pred, buildTerms(spec.Args)...)
}

func buildTerms(specs []TermSpec) []datalog.Term {
	if len(specs) == 0 {
		return nil
	}
	out := make([]datalog.Term, len(specs))
	for i, s := range specs {
		out[i] = buildTerm(s)
	}
	return out
}

func buildTerm(spec TermSpec) datalog.Term {
	switch {
	case spec.Num != nil:
		return datalog.Num(*spec.Num)
	case spec.Str != nil:
		return datalog.Str(*spec.Str)
	case spec.Sym != nil:
		return datalog.Sym(*spec.Sym)
	default:
		return datalog.Var(*spec.Var)
	}
}
