package programspec

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"stratalog/internal/datalog"
)

// FromAtoms returns a document whose program holds atoms as facts, so that
// evaluation output can be fed back in as input.
func FromAtoms(atoms []datalog.Atom) Spec {
	facts := make([]FactSpec, len(atoms))
	for i, a := range atoms {
		facts[i] = FactSpec{Atom: atomSpec(a)}
	}
	return Spec{Format: FormatV1, Program: ProgramSpec{Facts: facts}}
}

// Encode marshals spec as enc.
func Encode(spec Spec, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingJSON:
		return json.MarshalIndent(spec, "", "  ")
	case EncodingYAML:
		return yaml.Marshal(spec)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
}

func atomSpec(a datalog.Atom) AtomSpec {
	args := make([]TermSpec, len(a.Args))
	for i, t := range a.Args {
		args[i] = termSpec(t)
	}
	return AtomSpec{Pred: a.Pred, Args: args}
}

func termSpec(t datalog.Term) TermSpec {
	switch t.Kind {
	case datalog.KindNum:
		v := t.Num
		return TermSpec{Num: &v}
	case datalog.KindStr:
		s := t.Str
		return TermSpec{Str: &s}
	case datalog.KindSym:
		s := t.Str
		return TermSpec{Sym: &s}
	default:
		s := t.Str
		return TermSpec{Var: &s}
	}
}
