// Package analysis implements the static checks run over a datalog.Program
// before evaluation: signature and builtin validation, range restriction, the
// predicate dependency graph and stratification.
package analysis

import (
	"fmt"

	"stratalog/internal/datalog"
)

// IssueKind is a stable, machine-readable issue identifier.
type IssueKind string

const (
	KindArityMismatch         IssueKind = "arity_mismatch"
	KindBuiltinArity          IssueKind = "builtin_arity"
	KindUnknownBuiltin        IssueKind = "unknown_builtin"
	KindAggregateIntoNotVar   IssueKind = "aggregate_into_not_var"
	KindAggregateMissingValue IssueKind = "aggregate_missing_value"
	KindRangeRestriction      IssueKind = "range_restriction"
	KindNonGroundFact         IssueKind = "non_ground_fact"
)

// AllIssueKinds lists every kind Validate can report.
var AllIssueKinds = []IssueKind{
	KindArityMismatch,
	KindBuiltinArity,
	KindUnknownBuiltin,
	KindAggregateIntoNotVar,
	KindAggregateMissingValue,
	KindRangeRestriction,
	KindNonGroundFact,
}

// Issue is an advisory finding. Issues never abort validation; callers decide
// which kinds are fatal for them.
type Issue interface {
	Kind() IssueKind
	String() string
}

// ArityMismatch: a predicate occurrence disagrees with the arity fixed by its
// first occurrence.
type ArityMismatch struct {
	Predicate     string
	ExpectedArity int
	FoundArity    int
	Where         string
}

func (ArityMismatch) Kind() IssueKind { return KindArityMismatch }

func (i ArityMismatch) String() string {
	return fmt.Sprintf("%s: predicate %s used with arity %d, expected %d", i.Where, i.Predicate, i.FoundArity, i.ExpectedArity)
}

// BuiltinArityError: a builtin called with the wrong number of arguments.
type BuiltinArityError struct {
	Op       datalog.BuiltinOp
	Expected int
	Found    int
	Where    string
}

func (BuiltinArityError) Kind() IssueKind { return KindBuiltinArity }

func (i BuiltinArityError) String() string {
	return fmt.Sprintf("%s: builtin %s takes %d arguments, got %d", i.Where, i.Op, i.Expected, i.Found)
}

// UnknownBuiltin: an operator outside the comparison and arithmetic sets.
type UnknownBuiltin struct {
	Op    datalog.BuiltinOp
	Where string
}

func (UnknownBuiltin) Kind() IssueKind { return KindUnknownBuiltin }

func (i UnknownBuiltin) String() string {
	return fmt.Sprintf("%s: unknown builtin %q", i.Where, string(i.Op))
}

// AggregateIntoNotVar: the aggregate result slot is not a variable.
type AggregateIntoNotVar struct {
	Where string
}

func (AggregateIntoNotVar) Kind() IssueKind { return KindAggregateIntoNotVar }

func (i AggregateIntoNotVar) String() string {
	return fmt.Sprintf("%s: aggregate result must be a variable", i.Where)
}

// AggregateMissingValue: sum/min/max/avg without a value variable.
type AggregateMissingValue struct {
	Fun   datalog.AggFunc
	Where string
}

func (AggregateMissingValue) Kind() IssueKind { return KindAggregateMissingValue }

func (i AggregateMissingValue) String() string {
	return fmt.Sprintf("%s: aggregate %s needs a value variable", i.Where, i.Fun)
}

// RangeRestrictionViolation: a head variable with no binding occurrence in
// the body.
type RangeRestrictionViolation struct {
	Rule     int // rule id
	Variable string
}

func (RangeRestrictionViolation) Kind() IssueKind { return KindRangeRestriction }

func (i RangeRestrictionViolation) String() string {
	return fmt.Sprintf("rule #%d: head variable %s is not bound by the body", i.Rule, i.Variable)
}

// NonGroundFact: a fact containing a variable.
type NonGroundFact struct {
	Where string
}

func (NonGroundFact) Kind() IssueKind { return KindNonGroundFact }

func (i NonGroundFact) String() string {
	return fmt.Sprintf("%s: fact is not ground", i.Where)
}

// FilterIssues returns the issues whose kind is in kinds.
func FilterIssues(issues []Issue, kinds ...IssueKind) []Issue {
	want := make(map[IssueKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []Issue
	for _, is := range issues {
		if want[is.Kind()] {
			out = append(out, is)
		}
	}
	return out
}
