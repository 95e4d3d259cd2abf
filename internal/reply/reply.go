// Package reply defines the values every command returns: a tagged union with
// one case per protocol reply shape, plus the typed error carried by error replies.
package reply

import (
	"math"
	"strconv"
)

// Type identifies the shape of a Reply.
type Type byte

const (
	TypeInteger Type = iota + 1
	TypeBulk
	TypeNilBulk
	TypeArray
	TypeNilArray
	TypeStatus
	TypeError
)

func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeBulk:
		return "bulk"
	case TypeNilBulk:
		return "nil-bulk"
	case TypeArray:
		return "array"
	case TypeNilArray:
		return "nil-array"
	case TypeStatus:
		return "status"
	case TypeError:
		return "error"
	}
	return "unknown"
}

// Reply is the result of a single command.
// Only the field matching Type is meaningful.
type Reply struct {
	Type  Type
	Int   int64
	Str   []byte // bulk payload or status text
	Array []Reply
	Err   *Error
}

// Int returns an integer reply.
func Int(n int64) Reply { return Reply{Type: TypeInteger, Int: n} }

// Bool returns 1 or 0 as an integer reply.
func Bool(b bool) Reply {
	if b {
		return Int(1)
	}
	return Int(0)
}

// Bulk returns a bulk string reply. A nil slice is still a present, empty string.
func Bulk(b []byte) Reply {
	if b == nil {
		b = []byte{}
	}
	return Reply{Type: TypeBulk, Str: b}
}

// BulkString returns a bulk string reply for s.
func BulkString(s string) Reply { return Reply{Type: TypeBulk, Str: []byte(s)} }

// Float returns a bulk reply holding f in the server's score format.
func Float(f float64) Reply { return BulkString(FormatFloat(f)) }

// Nil returns the absent bulk reply.
func Nil() Reply { return Reply{Type: TypeNilBulk} }

// Array returns an array reply.
func Array(items ...Reply) Reply {
	if items == nil {
		items = []Reply{}
	}
	return Reply{Type: TypeArray, Array: items}
}

// NilArray returns the absent array reply.
func NilArray() Reply { return Reply{Type: TypeNilArray} }

// Strings returns an array of bulk strings.
func Strings(items []string) Reply {
	out := make([]Reply, len(items))
	for i, s := range items {
		out[i] = BulkString(s)
	}
	return Array(out...)
}

// Bytes returns an array of bulk strings.
func Bytes(items [][]byte) Reply {
	out := make([]Reply, len(items))
	for i, b := range items {
		out[i] = Bulk(b)
	}
	return Array(out...)
}

// Status returns a status reply with an arbitrary text.
func Status(s string) Reply { return Reply{Type: TypeStatus, Str: []byte(s)} }

// OK returns the "OK" status.
func OK() Reply { return Status("OK") }

// FromError wraps e as an error reply.
func FromError(e *Error) Reply { return Reply{Type: TypeError, Err: e} }

// IsNil reports whether r is one of the absent replies.
func (r Reply) IsNil() bool { return r.Type == TypeNilBulk || r.Type == TypeNilArray }

// String renders r for logs and tests.
func (r Reply) String() string {
	switch r.Type {
	case TypeInteger:
		return strconv.FormatInt(r.Int, 10)
	case TypeBulk:
		return strconv.Quote(string(r.Str))
	case TypeNilBulk, TypeNilArray:
		return "(nil)"
	case TypeStatus:
		return string(r.Str)
	case TypeError:
		return r.Err.Error()
	case TypeArray:
		out := "["
		for i, item := range r.Array {
			if i > 0 {
				out += " "
			}
			out += item.String()
		}
		return out + "]"
	}
	return "(invalid)"
}

// FormatFloat renders a score the way sorted-set and float replies print it.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if abs := math.Abs(f); abs == 0 || (abs >= 1e-4 && abs < 1e17) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatIncrFloat renders an INCRBYFLOAT-style result: plain decimal, no exponent.
func FormatIncrFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
