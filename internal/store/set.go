package store

import "sort"

// Set is an unordered collection of unique members stored under a single key.
type Set struct {
	members map[string]struct{}
}

// NewSet creates a Set holding members.
func NewSet(members ...string) *Set {
	s := &Set{members: make(map[string]struct{}, len(members))}
	s.Add(members...)
	return s
}

func (s *Set) Kind() Kind  { return KindSet }
func (s *Set) Empty() bool { return len(s.members) == 0 }

func (s *Set) Clone() Value {
	c := &Set{members: make(map[string]struct{}, len(s.members))}
	for m := range s.members {
		c.members[m] = struct{}{}
	}
	return c
}

// Add inserts members and returns how many were new.
func (s *Set) Add(members ...string) int {
	n := 0
	for _, m := range members {
		if _, ok := s.members[m]; !ok {
			s.members[m] = struct{}{}
			n++
		}
	}
	return n
}

// Remove deletes members and returns how many existed.
func (s *Set) Remove(members ...string) int {
	n := 0
	for _, m := range members {
		if _, ok := s.members[m]; ok {
			delete(s.members, m)
			n++
		}
	}
	return n
}

// Has reports whether member is in the set.
func (s *Set) Has(member string) bool {
	_, ok := s.members[member]
	return ok
}

// Len returns the cardinality.
func (s *Set) Len() int { return len(s.members) }

// Members returns the members in storage order, which is unspecified.
func (s *Set) Members() []string {
	out := make([]string, 0, len(s.members))
	for m := range s.members {
		out = append(out, m)
	}
	return out
}

// Sorted returns the members in ascending byte order.
func (s *Set) Sorted() []string {
	out := s.Members()
	sort.Strings(out)
	return out
}

// Union returns a new set with the members of every input.
func Union(sets ...*Set) *Set {
	out := NewSet()
	for _, s := range sets {
		for m := range s.members {
			out.members[m] = struct{}{}
		}
	}
	return out
}

// Inter returns a new set with the members common to every input.
func Inter(sets ...*Set) *Set {
	out := NewSet()
	if len(sets) == 0 {
		return out
	}
outer:
	for m := range sets[0].members {
		for _, s := range sets[1:] {
			if !s.Has(m) {
				continue outer
			}
		}
		out.members[m] = struct{}{}
	}
	return out
}

// Diff returns a new set with the members of the first input that are in no other.
func Diff(sets ...*Set) *Set {
	out := NewSet()
	if len(sets) == 0 {
		return out
	}
outer:
	for m := range sets[0].members {
		for _, s := range sets[1:] {
			if s.Has(m) {
				continue outer
			}
		}
		out.members[m] = struct{}{}
	}
	return out
}
