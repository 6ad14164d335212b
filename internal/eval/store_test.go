package eval

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dl "stratalog/internal/datalog"
)

func TestStoreAddDeduplicates(t *testing.T) {
	s := NewStore()

	added, err := s.Add(atom("p", sym("a"), dl.Num(1)))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add(atom("p", sym("a"), dl.Num(1)))
	require.NoError(t, err)
	assert.False(t, added)

	// Same text, different kinds.
	added, err = s.Add(atom("p", dl.Str("a"), dl.Num(1)))
	require.NoError(t, err)
	assert.True(t, added)

	assert.Equal(t, 2, s.Len())
}

func TestStoreRejectsNonGround(t *testing.T) {
	_, err := NewStore().Add(atom("p", X))
	assert.Error(t, err)
}

func TestStoreFrozenRelation(t *testing.T) {
	s := NewStore()
	_, err := s.Add(atom("p", dl.Num(1)))
	require.NoError(t, err)
	s.freeze([]string{"p", "q"})

	_, err = s.Add(atom("p", dl.Num(2)))
	assert.True(t, errors.Is(err, ErrFrozen))
	_, err = s.Add(atom("q", dl.Num(2)))
	assert.True(t, errors.Is(err, ErrFrozen))
	assert.True(t, s.Frozen("q"))
	assert.False(t, s.Frozen("r"))
}

func TestStoreOrdering(t *testing.T) {
	s := NewStore()
	for _, a := range []dl.Atom{
		atom("zeta", dl.Num(2)),
		atom("alpha", sym("y")),
		atom("zeta", dl.Num(1)),
		atom("alpha", sym("x")),
	} {
		_, err := s.Add(a)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"alpha", "zeta"}, s.Predicates())
	assert.Equal(t, []string{"alpha(y)", "alpha(x)", "zeta(2)", "zeta(1)"}, strs(s.Facts()))
	assert.Nil(t, s.FactsFor("missing"))
}

func TestStoreContains(t *testing.T) {
	s := NewStore()
	_, err := s.Add(atom("p", dl.Num(0)))
	require.NoError(t, err)

	assert.True(t, s.Contains(atom("p", dl.Num(0))))
	assert.True(t, s.Contains(atom("p", dl.Num(math.Copysign(0, -1)))))
	assert.False(t, s.Contains(atom("p", dl.Str("0"))))
	assert.False(t, s.Contains(atom("q", dl.Num(0))))
}

func TestStoreScanUsesIndexAndStaysCurrent(t *testing.T) {
	s := NewStore()
	for _, a := range []dl.Atom{
		atom("e", sym("a"), sym("b")),
		atom("e", sym("a"), sym("c")),
		atom("e", sym("b"), sym("c")),
	} {
		_, err := s.Add(a)
		require.NoError(t, err)
	}

	collect := func(pattern dl.Atom, env binding) []string {
		var out []string
		s.scan(pattern, env, func(row []dl.Term) bool {
			if _, ok := unify(pattern.Args, row, env); ok {
				out = append(out, dl.Atom{Pred: pattern.Pred, Args: row}.String())
			}
			return true
		})
		return out
	}

	assert.Equal(t, []string{"e(a, b)", "e(a, c)"}, collect(atom("e", sym("a"), Y), binding{}))
	assert.Equal(t, []string{"e(a, c)", "e(b, c)"}, collect(atom("e", X, Y), binding{"Y": sym("c")}))

	// The column-0 index exists now and must see later rows.
	_, err := s.Add(atom("e", sym("a"), sym("d")))
	require.NoError(t, err)
	assert.Equal(t, []string{"e(a, b)", "e(a, c)", "e(a, d)"}, collect(atom("e", sym("a"), Y), binding{}))
	assert.Len(t, collect(atom("e", W, W), binding{}), 4)
}

func TestUnifyRepeatedVariable(t *testing.T) {
	row := []dl.Term{sym("a"), sym("b")}
	_, ok := unify([]dl.Term{X, X}, row, binding{})
	assert.False(t, ok)

	env, ok := unify([]dl.Term{X, Y}, row, binding{})
	require.True(t, ok)
	assert.Equal(t, binding{"X": sym("a"), "Y": sym("b")}, env)

	base := binding{"X": sym("a")}
	env, ok = unify([]dl.Term{X, Y}, row, base)
	require.True(t, ok)
	assert.Len(t, base, 1, "unify must not mutate its input")
	assert.Len(t, env, 2)
}
