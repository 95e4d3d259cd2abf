package store

import "sort"

// ScoredMember is a member with its score in a sorted set.
type ScoredMember struct {
	Member string
	Score  float64
}

// SortedSet maps members to scores and keeps them materialized in
// canonical order: ascending score, ties by ascending member.
// The order is rebuilt after every mutation.
type SortedSet struct {
	scores map[string]float64
	order  []ScoredMember
}

// NewSortedSet creates a new empty sorted set.
func NewSortedSet() *SortedSet {
	return &SortedSet{scores: make(map[string]float64)}
}

func (z *SortedSet) Kind() Kind  { return KindSortedSet }
func (z *SortedSet) Empty() bool { return len(z.scores) == 0 }

func (z *SortedSet) Clone() Value {
	c := NewSortedSet()
	for m, s := range z.scores {
		c.scores[m] = s
	}
	c.reorder()
	return c
}

func (z *SortedSet) reorder() {
	order := make([]ScoredMember, 0, len(z.scores))
	for m, s := range z.scores {
		order = append(order, ScoredMember{Member: m, Score: s})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].Score != order[j].Score {
			return order[i].Score < order[j].Score
		}
		return order[i].Member < order[j].Member
	})
	z.order = order
}

// Set stores member with score. Returns true if the member is new.
func (z *SortedSet) Set(member string, score float64) bool {
	_, existed := z.scores[member]
	z.scores[member] = score
	z.reorder()
	return !existed
}

// Score returns the score of a member.
func (z *SortedSet) Score(member string) (float64, bool) {
	s, ok := z.scores[member]
	return s, ok
}

// Remove deletes members and returns how many existed.
func (z *SortedSet) Remove(members ...string) int {
	n := 0
	for _, m := range members {
		if _, ok := z.scores[m]; ok {
			delete(z.scores, m)
			n++
		}
	}
	if n > 0 {
		z.reorder()
	}
	return n
}

// Len returns the cardinality.
func (z *SortedSet) Len() int { return len(z.scores) }

// Rank returns the 0-based ascending rank of member.
func (z *SortedSet) Rank(member string) (int, bool) {
	score, ok := z.scores[member]
	if !ok {
		return -1, false
	}
	i := sort.Search(len(z.order), func(i int) bool {
		o := z.order[i]
		return o.Score > score || (o.Score == score && o.Member >= member)
	})
	return i, true
}

// Members returns all members in canonical order. The slice must not be modified.
func (z *SortedSet) Members() []ScoredMember {
	return z.order
}

// Range returns the members with ranks between start and stop inclusive.
func (z *SortedSet) Range(start, stop int) []ScoredMember {
	lo, hi, ok := NormalizeRange(start, stop, len(z.order))
	if !ok {
		return nil
	}
	out := make([]ScoredMember, hi-lo+1)
	copy(out, z.order[lo:hi+1])
	return out
}
