package store

import "sort"

// Hash is a map of field/value pairs stored under a single key.
type Hash struct {
	fields map[string][]byte
}

// NewHash creates a new empty Hash.
func NewHash() *Hash {
	return &Hash{fields: make(map[string][]byte)}
}

func (h *Hash) Kind() Kind  { return KindHash }
func (h *Hash) Empty() bool { return len(h.fields) == 0 }

func (h *Hash) Clone() Value {
	c := NewHash()
	for f, v := range h.fields {
		c.fields[f] = cloneBytes(v)
	}
	return c
}

// Set sets field to value. Returns true if the field is new.
func (h *Hash) Set(field string, value []byte) bool {
	_, existed := h.fields[field]
	h.fields[field] = cloneBytes(value)
	return !existed
}

// Get returns the value of a field.
func (h *Hash) Get(field string) ([]byte, bool) {
	v, ok := h.fields[field]
	return v, ok
}

// Has reports whether field exists.
func (h *Hash) Has(field string) bool {
	_, ok := h.fields[field]
	return ok
}

// Del removes fields and returns how many existed.
func (h *Hash) Del(fields ...string) int {
	n := 0
	for _, f := range fields {
		if _, ok := h.fields[f]; ok {
			delete(h.fields, f)
			n++
		}
	}
	return n
}

// Len returns the number of fields.
func (h *Hash) Len() int { return len(h.fields) }

// Fields returns the field names in sorted order.
func (h *Hash) Fields() []string {
	out := make([]string, 0, len(h.fields))
	for f := range h.fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
