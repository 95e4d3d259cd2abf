package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_AddRemove(t *testing.T) {
	s := NewSet()
	assert.Equal(t, 2, s.Add("a", "b", "a"))
	assert.Equal(t, 0, s.Add("a"))
	assert.True(t, s.Has("a"))
	assert.Equal(t, 1, s.Remove("a", "zz"))
	assert.Equal(t, []string{"b"}, s.Sorted())
}

func TestSet_Algebra(t *testing.T) {
	a := NewSet("x", "y")
	b := NewSet("y", "z")

	assert.Equal(t, []string{"x", "y", "z"}, Union(a, b).Sorted())
	assert.Equal(t, []string{"y"}, Inter(a, b).Sorted())
	assert.Equal(t, []string{"x"}, Diff(a, b).Sorted())
	assert.True(t, Inter().Empty())
	assert.True(t, Inter(a, NewSet()).Empty())
}
