package store

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortedSet_CanonicalOrder(t *testing.T) {
	z := NewSortedSet()
	z.Set("c", 1)
	z.Set("b", 1)
	z.Set("a", 2)

	assert.Equal(t, []ScoredMember{{"b", 1}, {"c", 1}, {"a", 2}}, z.Members())

	rank, ok := z.Rank("c")
	require.True(t, ok)
	assert.Equal(t, 1, rank)
	_, ok = z.Rank("missing")
	assert.False(t, ok)
}

func TestSortedSet_OrderSurvivesRandomMutation(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	z := NewSortedSet()
	names := []string{"a", "b", "c", "d", "e", "f"}
	for i := 0; i < 200; i++ {
		m := names[rnd.Intn(len(names))]
		if rnd.Intn(4) == 0 {
			z.Remove(m)
			continue
		}
		z.Set(m, float64(rnd.Intn(5)))
	}
	got := z.Members()
	assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool {
		if got[i].Score != got[j].Score {
			return got[i].Score < got[j].Score
		}
		return got[i].Member < got[j].Member
	}))
	assert.Len(t, got, z.Len())
}

func TestSortedSet_Range(t *testing.T) {
	z := NewSortedSet()
	z.Set("a", 1)
	z.Set("b", 2)
	z.Set("c", 3)
	assert.Equal(t, []ScoredMember{{"b", 2}, {"c", 3}}, z.Range(-2, -1))
	assert.Nil(t, z.Range(2, 1))
}

func TestSortedSet_Clone(t *testing.T) {
	z := NewSortedSet()
	z.Set("a", 1)
	c := z.Clone().(*SortedSet)
	c.Set("a", 5)
	s, _ := z.Score("a")
	assert.Equal(t, 1.0, s)
}
