package datalog

// IDGen mints sequential identifiers. Each builder or decoder owns its own
// generator; there is no package-level counter.
type IDGen struct {
	next int
}

// NewIDGen returns a generator whose first id is start.
func NewIDGen(start int) *IDGen {
	return &IDGen{next: start}
}

// Next returns the next id.
func (g *IDGen) Next() int {
	id := g.next
	g.next++
	return id
}

// Peek returns the id Next would return without consuming it.
func (g *IDGen) Peek() int { return g.next }

// Builder accumulates facts and rules, assigning ids from its own IDGen.
type Builder struct {
	ids   *IDGen
	facts []Fact
	rules []Rule
}

// NewBuilder returns an empty builder with ids starting at 1.
func NewBuilder() *Builder {
	return &Builder{ids: NewIDGen(1)}
}

// NewBuilderWithIDs returns a builder drawing ids from ids. Sharing one IDGen
// across builders keeps ids unique across the programs they produce.
func NewBuilderWithIDs(ids *IDGen) *Builder {
	return &Builder{ids: ids}
}

// Fact appends a fact and returns the builder.
func (b *Builder) Fact(atom Atom, tags ...string) *Builder {
	b.facts = append(b.facts, Fact{ID: b.ids.Next(), Atom: atom, Tags: tags})
	return b
}

// Rule appends a rule and returns the builder.
func (b *Builder) Rule(head Atom, body ...Literal) *Builder {
	b.rules = append(b.rules, Rule{ID: b.ids.Next(), Head: head, Body: body})
	return b
}

// TaggedRule appends a rule carrying metadata tags.
func (b *Builder) TaggedRule(tags []string, head Atom, body ...Literal) *Builder {
	b.rules = append(b.rules, Rule{ID: b.ids.Next(), Head: head, Body: body, Tags: tags})
	return b
}

// Program returns the accumulated program. The builder may keep being used;
// later additions do not affect programs already returned.
func (b *Builder) Program() Program {
	facts := make([]Fact, len(b.facts))
	copy(facts, b.facts)
	rules := make([]Rule, len(b.rules))
	copy(rules, b.rules)
	return Program{Facts: facts, Rules: rules}
}
