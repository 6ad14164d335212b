package eval

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"stratalog/internal/datalog"
)

// ErrFrozen is returned when adding a fact to a relation whose stratum has
// already reached its fixpoint.
var ErrFrozen = errors.New("relation is frozen")

// Store is an in-memory set of ground facts grouped by predicate. Rows keep
// their insertion order and duplicates are discarded. Column indexes are
// built on first use and kept up to date by Add.
//
// A Store is not safe for concurrent mutation. Concurrent reads are safe as
// long as no Add runs at the same time.
type Store struct {
	rels map[string]*relation
	size int
}

type relation struct {
	rows   [][]datalog.Term
	keys   map[string]struct{}
	frozen bool

	mu    sync.Mutex
	index map[int]map[datalog.Term][]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{rels: make(map[string]*relation)}
}

// Add inserts a ground atom. It reports whether the atom was new.
func (s *Store) Add(a datalog.Atom) (bool, error) {
	if !a.IsGround() {
		return false, fmt.Errorf("eval: cannot store non-ground atom %s", a)
	}
	r := s.relation(a.Pred)
	if r.frozen {
		return false, fmt.Errorf("eval: add %s: %w", a, ErrFrozen)
	}
	key := rowKey(a.Args)
	if _, dup := r.keys[key]; dup {
		return false, nil
	}

	row := append([]datalog.Term(nil), a.Args...)
	pos := len(r.rows)
	r.rows = append(r.rows, row)
	r.keys[key] = struct{}{}
	for col, idx := range r.index {
		if col < len(row) {
			idx[row[col]] = append(idx[row[col]], pos)
		}
	}
	s.size++
	return true, nil
}

// Contains reports whether the ground atom a is stored.
func (s *Store) Contains(a datalog.Atom) bool {
	r, ok := s.rels[a.Pred]
	if !ok {
		return false
	}
	_, ok = r.keys[rowKey(a.Args)]
	return ok
}

// Len returns the number of stored facts.
func (s *Store) Len() int { return s.size }

// Predicates returns the predicates holding at least one fact, sorted.
func (s *Store) Predicates() []string {
	out := make([]string, 0, len(s.rels))
	for pred, r := range s.rels {
		if len(r.rows) > 0 {
			out = append(out, pred)
		}
	}
	sort.Strings(out)
	return out
}

// FactsFor returns the facts of pred in insertion order.
func (s *Store) FactsFor(pred string) []datalog.Atom {
	r, ok := s.rels[pred]
	if !ok {
		return nil
	}
	out := make([]datalog.Atom, len(r.rows))
	for i, row := range r.rows {
		out[i] = datalog.Atom{Pred: pred, Args: append([]datalog.Term(nil), row...)}
	}
	return out
}

// Facts returns every fact ordered by predicate name, then insertion order.
func (s *Store) Facts() []datalog.Atom {
	out := make([]datalog.Atom, 0, s.size)
	for _, pred := range s.Predicates() {
		out = append(out, s.FactsFor(pred)...)
	}
	return out
}

// Frozen reports whether pred has been frozen.
func (s *Store) Frozen(pred string) bool {
	r, ok := s.rels[pred]
	return ok && r.frozen
}

func (s *Store) freeze(preds []string) {
	for _, pred := range preds {
		s.relation(pred).frozen = true
	}
}

func (s *Store) relation(pred string) *relation {
	r, ok := s.rels[pred]
	if !ok {
		r = &relation{keys: make(map[string]struct{})}
		s.rels[pred] = r
	}
	return r
}

// scan calls fn with every row of pattern's relation that may match under
// env, using a column index on the first bound position. fn returns false
// to stop the scan. Rows are candidates only; callers still unify.
func (s *Store) scan(pattern datalog.Atom, env binding, fn func([]datalog.Term) bool) {
	r, ok := s.rels[pattern.Pred]
	if !ok {
		return
	}
	for col, t := range pattern.Args {
		v, bound := env.lookup(t)
		if !bound {
			continue
		}
		rows := r.rows
		for _, pos := range r.column(col)[v] {
			if !fn(rows[pos]) {
				return
			}
		}
		return
	}
	for _, row := range r.rows {
		if !fn(row) {
			return
		}
	}
}

// column returns the index for col, building it on first use. The build is
// serialized so parallel readers can share it.
func (r *relation) column(col int) map[datalog.Term][]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.index[col]; ok {
		return idx
	}
	idx := make(map[datalog.Term][]int)
	for pos, row := range r.rows {
		if col < len(row) {
			idx[row[col]] = append(idx[row[col]], pos)
		}
	}
	if r.index == nil {
		r.index = make(map[int]map[datalog.Term][]int)
	}
	r.index[col] = idx
	return idx
}

// rowKey encodes a tuple of terms so that distinct tuples get distinct keys.
func rowKey(args []datalog.Term) string {
	var sb strings.Builder
	for _, t := range args {
		sb.WriteByte(byte('0' + t.Kind))
		switch t.Kind {
		case datalog.KindNum:
			v := t.Num
			if v == 0 {
				v = 0 // fold -0
			}
			sb.WriteString(strconv.FormatUint(math.Float64bits(v), 16))
		default:
			sb.WriteString(strconv.Itoa(len(t.Str)))
			sb.WriteByte(':')
			sb.WriteString(t.Str)
		}
		sb.WriteByte('|')
	}
	return sb.String()
}
