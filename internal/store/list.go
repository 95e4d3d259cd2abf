package store

import "bytes"

// List is an ordered sequence of byte values stored under a single key.
type List struct {
	items [][]byte
}

// NewList creates a new empty List.
func NewList(items ...[]byte) *List {
	l := &List{items: make([][]byte, 0, len(items))}
	l.RPush(items...)
	return l
}

func (l *List) Kind() Kind  { return KindList }
func (l *List) Empty() bool { return len(l.items) == 0 }

func (l *List) Clone() Value {
	return NewList(l.items...)
}

// LPush prepends values one at a time, so LPUSH k a b c leaves c at the head.
// Returns the new length.
func (l *List) LPush(values ...[]byte) int {
	items := make([][]byte, len(values)+len(l.items))
	for i, v := range values {
		items[len(values)-1-i] = cloneBytes(v)
	}
	copy(items[len(values):], l.items)
	l.items = items
	return len(l.items)
}

// RPush appends values and returns the new length.
func (l *List) RPush(values ...[]byte) int {
	for _, v := range values {
		l.items = append(l.items, cloneBytes(v))
	}
	return len(l.items)
}

// LPop removes and returns the first element.
func (l *List) LPop() ([]byte, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	v := l.items[0]
	l.items = l.items[1:]
	return v, true
}

// RPop removes and returns the last element.
func (l *List) RPop() ([]byte, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	v := l.items[len(l.items)-1]
	l.items = l.items[:len(l.items)-1]
	return v, true
}

// Len returns the number of elements.
func (l *List) Len() int { return len(l.items) }

func (l *List) resolve(index int) int {
	if index < 0 {
		index += len(l.items)
	}
	return index
}

// Index returns the element at index. Negative indices count from the end.
func (l *List) Index(index int) ([]byte, bool) {
	i := l.resolve(index)
	if i < 0 || i >= len(l.items) {
		return nil, false
	}
	return l.items[i], true
}

// Set replaces the element at index. It reports false when index is out of range.
func (l *List) Set(index int, value []byte) bool {
	i := l.resolve(index)
	if i < 0 || i >= len(l.items) {
		return false
	}
	l.items[i] = cloneBytes(value)
	return true
}

// Range returns the elements between start and stop inclusive.
func (l *List) Range(start, stop int) [][]byte {
	lo, hi, ok := NormalizeRange(start, stop, len(l.items))
	if !ok {
		return [][]byte{}
	}
	out := make([][]byte, hi-lo+1)
	copy(out, l.items[lo:hi+1])
	return out
}

// Trim keeps only the elements between start and stop inclusive.
func (l *List) Trim(start, stop int) {
	lo, hi, ok := NormalizeRange(start, stop, len(l.items))
	if !ok {
		l.items = l.items[:0]
		return
	}
	l.items = append([][]byte(nil), l.items[lo:hi+1]...)
}

// Insert places value before or after the first element equal to pivot.
// It returns the new length, or -1 when pivot is not found.
func (l *List) Insert(before bool, pivot, value []byte) int {
	for i, item := range l.items {
		if !bytes.Equal(item, pivot) {
			continue
		}
		if !before {
			i++
		}
		l.items = append(l.items, nil)
		copy(l.items[i+1:], l.items[i:])
		l.items[i] = cloneBytes(value)
		return len(l.items)
	}
	return -1
}

// Remove deletes up to count occurrences of value: from the head when
// count > 0, from the tail when count < 0, and all of them when count == 0.
// The order of the remaining elements is preserved.
func (l *List) Remove(count int, value []byte) int {
	limit := count
	if limit < 0 {
		limit = -limit
	}
	drop := make(map[int]bool)
	if count < 0 {
		for i := len(l.items) - 1; i >= 0; i-- {
			if bytes.Equal(l.items[i], value) {
				drop[i] = true
				if len(drop) == limit {
					break
				}
			}
		}
	} else {
		for i, item := range l.items {
			if bytes.Equal(item, value) {
				drop[i] = true
				if len(drop) == limit {
					break
				}
			}
		}
	}
	if len(drop) == 0 {
		return 0
	}
	kept := l.items[:0]
	for i, item := range l.items {
		if !drop[i] {
			kept = append(kept, item)
		}
	}
	l.items = kept
	return len(drop)
}

// Pos returns the index of the first element equal to value, or -1.
func (l *List) Pos(value []byte) int {
	if found := l.Positions(value, 1, 1, 0); len(found) > 0 {
		return found[0]
	}
	return -1
}

// Positions returns the indexes of elements equal to value. A negative rank
// scans from the tail and skips the first -rank-1 matches; a positive rank
// skips rank-1 matches from the head. A count of 0 collects every match and
// maxlen 0 compares the whole list.
func (l *List) Positions(value []byte, rank, count, maxlen int) []int {
	var out []int
	n := len(l.items)
	skip := rank - 1
	step, i := 1, 0
	if rank < 0 {
		skip = -rank - 1
		step, i = -1, n-1
	}
	for seen := 0; i >= 0 && i < n; i += step {
		if maxlen > 0 && seen == maxlen {
			break
		}
		seen++
		if !bytes.Equal(l.items[i], value) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, i)
		if count > 0 && len(out) == count {
			break
		}
	}
	return out
}

// Values returns a copy of all elements in order.
func (l *List) Values() [][]byte {
	out := make([][]byte, len(l.items))
	copy(out, l.items)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// NormalizeRange applies inclusive, negative-from-the-end indexing to
// start and stop over length items. It reports false for an empty result.
func NormalizeRange(start, stop, length int) (int, int, bool) {
	if start < 0 {
		start += length
	}
	if stop < 0 {
		stop += length
	}
	if start < 0 {
		start = 0
	}
	if stop > length-1 {
		stop = length - 1
	}
	if start > stop || length == 0 {
		return 0, 0, false
	}
	return start, stop, true
}
