package store

// String is a binary-safe string value. A nil String is absent; use
// String{} for a present empty value.
type String []byte

func (s String) Kind() Kind  { return KindString }
func (s String) Empty() bool { return s == nil }

func (s String) Clone() Value {
	return String(cloneBytes(s))
}

// NewString returns a present String holding a copy of s, even when s is empty.
func NewString(s string) String {
	b := make([]byte, len(s))
	copy(b, s)
	return b
}
