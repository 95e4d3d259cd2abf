package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func bs(items ...string) [][]byte {
	out := make([][]byte, len(items))
	for i, s := range items {
		out[i] = []byte(s)
	}
	return out
}

func TestList_PushAndLen(t *testing.T) {
	l := NewList()
	assert.True(t, l.Empty())

	assert.Equal(t, 3, l.RPush(bs("a", "b", "c")...))
	assert.Equal(t, 5, l.LPush(bs("y", "z")...))
	assert.Equal(t, bs("z", "y", "a", "b", "c"), l.Values())
}

func TestList_Pop(t *testing.T) {
	l := NewList(bs("a", "b", "c")...)

	v, ok := l.LPop()
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), v)
	v, ok = l.RPop()
	assert.True(t, ok)
	assert.Equal(t, []byte("c"), v)

	l.LPop()
	_, ok = l.LPop()
	assert.False(t, ok)
	_, ok = l.RPop()
	assert.False(t, ok)
}

func TestList_IndexAndSet(t *testing.T) {
	l := NewList(bs("a", "b", "c")...)

	v, ok := l.Index(-1)
	assert.True(t, ok)
	assert.Equal(t, []byte("c"), v)
	_, ok = l.Index(3)
	assert.False(t, ok)

	assert.True(t, l.Set(-3, []byte("A")))
	assert.False(t, l.Set(3, []byte("x")))
	assert.Equal(t, bs("A", "b", "c"), l.Values())
}

func TestList_RangeAndTrim(t *testing.T) {
	l := NewList(bs("a", "b", "c", "d")...)
	assert.Equal(t, bs("b", "c"), l.Range(1, -2))
	assert.Equal(t, [][]byte{}, l.Range(3, 1))

	l.Trim(1, 2)
	assert.Equal(t, bs("b", "c"), l.Values())
	l.Trim(5, 10)
	assert.True(t, l.Empty())
}

func TestList_Insert(t *testing.T) {
	l := NewList(bs("a", "b", "b")...)
	assert.Equal(t, 4, l.Insert(true, []byte("b"), []byte("x")))
	assert.Equal(t, 5, l.Insert(false, []byte("b"), []byte("y")))
	assert.Equal(t, bs("a", "x", "b", "y", "b"), l.Values())
	assert.Equal(t, -1, l.Insert(true, []byte("zz"), []byte("q")))
}

func TestList_Remove(t *testing.T) {
	l := NewList(bs("x", "a", "x", "b", "x")...)
	assert.Equal(t, 1, l.Remove(1, []byte("x")))
	assert.Equal(t, bs("a", "x", "b", "x"), l.Values())

	l = NewList(bs("x", "a", "x", "b", "x")...)
	assert.Equal(t, 2, l.Remove(-2, []byte("x")))
	assert.Equal(t, bs("x", "a", "b"), l.Values())

	l = NewList(bs("x", "a", "x", "b", "x")...)
	assert.Equal(t, 3, l.Remove(0, []byte("x")))
	assert.Equal(t, bs("a", "b"), l.Values())
	assert.Equal(t, 0, l.Remove(0, []byte("x")))
}

func TestList_CloneIsDeep(t *testing.T) {
	l := NewList(bs("a")...)
	c := l.Clone().(*List)
	c.Set(0, []byte("b"))
	v, _ := l.Index(0)
	assert.Equal(t, []byte("a"), v)
}
