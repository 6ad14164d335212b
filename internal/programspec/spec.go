// Package programspec decodes structured program documents (YAML or JSON),
// checks their shape and compiles them into datalog.Program values.
package programspec

// FormatV1 is the only document format accepted.
const FormatV1 = "stratalog_program_v1"

type Spec struct {
	Format  string      `json:"format" yaml:"format"`
	Program ProgramSpec `json:"program" yaml:"program"`
}

type ProgramSpec struct {
	Facts []FactSpec `json:"facts,omitempty" yaml:"facts,omitempty"`
	Rules []RuleSpec `json:"rules,omitempty" yaml:"rules,omitempty"`
}

type FactSpec struct {
	Atom AtomSpec `json:"atom" yaml:"atom"`
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

type RuleSpec struct {
	Head AtomSpec      `json:"head" yaml:"head"`
	Body []LiteralSpec `json:"body,omitempty" yaml:"body,omitempty"`
	Tags []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// LiteralSpec holds exactly one of its variants.
type LiteralSpec struct {
	Atom    *AtomSpec    `json:"atom,omitempty" yaml:"atom,omitempty"`
	Not     *AtomSpec    `json:"not,omitempty" yaml:"not,omitempty"`
	Builtin *BuiltinSpec `json:"builtin,omitempty" yaml:"builtin,omitempty"`
	Agg     *AggSpec     `json:"agg,omitempty" yaml:"agg,omitempty"`
}

type AtomSpec struct {
	Pred string     `json:"pred" yaml:"pred"`
	Args []TermSpec `json:"args,omitempty" yaml:"args,omitempty"`
}

type BuiltinSpec struct {
	Op   string     `json:"op" yaml:"op"`
	Args []TermSpec `json:"args" yaml:"args"`
}

type AggSpec struct {
	Fun   string     `json:"fun" yaml:"fun"`
	Over  AtomSpec   `json:"over" yaml:"over"`
	Into  TermSpec   `json:"into" yaml:"into"`
	By    []TermSpec `json:"by,omitempty" yaml:"by,omitempty"`
	Value *TermSpec  `json:"value,omitempty" yaml:"value,omitempty"`
}

// TermSpec holds exactly one of its variants.
type TermSpec struct {
	Num *float64 `json:"num,omitempty" yaml:"num,omitempty"`
	Str *string  `json:"str,omitempty" yaml:"str,omitempty"`
	Sym *string  `json:"sym,omitempty" yaml:"sym,omitempty"`
	Var *string  `json:"var,omitempty" yaml:"var,omitempty"`
}

// SpecError locates a structural problem in a document, e.g.
// program.rules[2].body[0].builtin.op.
type SpecError struct {
	Path    string
	Message string
}

func (e SpecError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

func NewSpecError(path, message string) SpecError {
	return SpecError{Path: path, Message: message}
}
