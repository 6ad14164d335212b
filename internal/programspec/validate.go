package programspec

import (
	"fmt"
	"regexp"
	"strings"

	"stratalog/internal/datalog"
)

var predicatePattern = regexp.MustCompile(`^[a-z][A-Za-z0-9_]*(\.[A-Za-z0-9_]+)*$`)

// ValidateSpec checks the document shape and returns the first problem as a
// SpecError. Semantic checks such as arity agreement and range restriction
// are left to the analysis package.
func ValidateSpec(spec Spec) error {
	if spec.Format != FormatV1 {
		return NewSpecError("format", fmt.Sprintf("expected %q", FormatV1))
	}
	program := spec.Program
	if len(program.Facts) == 0 && len(program.Rules) == 0 {
		return NewSpecError("program", "program must contain at least one fact or rule")
	}
	for i, fact := range program.Facts {
		if err := validateAtomSpec(fact.Atom, fmt.Sprintf("program.facts[%d].atom", i)); err != nil {
			return err
		}
	}
	for i, rule := range program.Rules {
		if err := validateRuleSpec(rule, fmt.Sprintf("program.rules[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func validateRuleSpec(spec RuleSpec, path string) error {
	if err := validateAtomSpec(spec.Head, path+".head"); err != nil {
		return err
	}
	if len(spec.Body) == 0 {
		return NewSpecError(path+".body", "rule body is required")
	}
	for i, lit := range spec.Body {
		if err := validateLiteralSpec(lit, fmt.Sprintf("%s.body[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func validateLiteralSpec(spec LiteralSpec, path string) error {
	set := 0
	for _, present := range []bool{spec.Atom != nil, spec.Not != nil, spec.Builtin != nil, spec.Agg != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return NewSpecError(path, "literal must set exactly one of atom, not, builtin, agg")
	}

	switch {
	case spec.Atom != nil:
		return validateAtomSpec(*spec.Atom, path+".atom")
	case spec.Not != nil:
		return validateAtomSpec(*spec.Not, path+".not")
	case spec.Builtin != nil:
		return validateBuiltinSpec(*spec.Builtin, path+".builtin")
	default:
		return validateAggSpec(*spec.Agg, path+".agg")
	}
}

func validateBuiltinSpec(spec BuiltinSpec, path string) error {
	if strings.TrimSpace(spec.Op) == "" {
		return NewSpecError(path+".op", "builtin op is required")
	}
	for i, arg := range spec.Args {
		if err := validateTermSpec(arg, fmt.Sprintf("%s.args[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func validateAggSpec(spec AggSpec, path string) error {
	if !datalog.AggFunc(strings.ToLower(spec.Fun)).Valid() {
		return NewSpecError(path+".fun", "aggregate fun must be count, sum, min, max, or avg")
	}
	if err := validateAtomSpec(spec.Over, path+".over"); err != nil {
		return err
	}
	if err := validateTermSpec(spec.Into, path+".into"); err != nil {
		return err
	}
	for i, t := range spec.By {
		if err := validateTermSpec(t, fmt.Sprintf("%s.by[%d]", path, i)); err != nil {
			return err
		}
	}
	if spec.Value != nil {
		return validateTermSpec(*spec.Value, path+".value")
	}
	return nil
}

func validateAtomSpec(spec AtomSpec, path string) error {
	if strings.TrimSpace(spec.Pred) == "" {
		return NewSpecError(path+".pred", "predicate is required")
	}
	if !predicatePattern.MatchString(spec.Pred) {
		return NewSpecError(path+".pred", "predicate must start with a lowercase letter")
	}
	for i, arg := range spec.Args {
		if err := validateTermSpec(arg, fmt.Sprintf("%s.args[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func validateTermSpec(spec TermSpec, path string) error {
	set := 0
	for _, present := range []bool{spec.Num != nil, spec.Str != nil, spec.Sym != nil, spec.Var != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return NewSpecError(path, "term must set exactly one of num, str, sym, var")
	}
	if spec.Var != nil && !isValidVariable(*spec.Var) {
		return NewSpecError(path+".var", "variable must be '_' or start with an uppercase letter")
	}
	if spec.Sym != nil && *spec.Sym == "" {
		return NewSpecError(path+".sym", "symbol must not be empty")
	}
	return nil
}

func isValidVariable(value string) bool {
	if value == datalog.Wildcard {
		return true
	}
	if value == "" {
		return false
	}
	if value[0] < 'A' || value[0] > 'Z' {
		return false
	}
	for i := 1; i < len(value); i++ {
		ch := value[i]
		if (ch < 'A' || ch > 'Z') && (ch < 'a' || ch > 'z') && (ch < '0' || ch > '9') && ch != '_' {
			return false
		}
	}
	return true
}
