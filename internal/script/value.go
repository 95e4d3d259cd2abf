// Package script is the bridge between the command engine and an embedded
// scripting runtime. The engine never sees runtime-native values: replies
// are converted to the small Value model below and back.
package script

import (
	"sort"

	"github.com/mockredis/mockredis/internal/reply"
)

// Value is a runtime-neutral script value.
type Value interface {
	scriptValue()
}

// Nil is the absent value.
type Nil struct{}

// Bool is a script boolean.
type Bool bool

// Int is a script number. Scripts only ever exchange integers with the engine.
type Int int64

// Str is a binary-safe script string.
type Str string

// Table is a script table. Items is 1-based.
type Table struct {
	Fields map[string]Value
	Items  map[int]Value
}

func (Nil) scriptValue()    {}
func (Bool) scriptValue()   {}
func (Int) scriptValue()    {}
func (Str) scriptValue()    {}
func (*Table) scriptValue() {}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{Fields: make(map[string]Value), Items: make(map[int]Value)}
}

// List returns a table with items at 1..len(items).
func List(items ...Value) *Table {
	t := NewTable()
	for i, v := range items {
		t.Items[i+1] = v
	}
	return t
}

// ErrorTable returns the {err = msg} table scripts receive for a failed call.
func ErrorTable(msg string) *Table {
	t := NewTable()
	t.Fields["err"] = Str(msg)
	return t
}

// Len returns the number of consecutive items starting at index 1.
func (t *Table) Len() int {
	n := 0
	for {
		if _, ok := t.Items[n+1]; !ok {
			return n
		}
		n++
	}
}

// ToScript converts an engine reply to a script value.
func ToScript(r reply.Reply) Value {
	switch r.Type {
	case reply.TypeInteger:
		return Int(r.Int)
	case reply.TypeBulk:
		return Str(r.Str)
	case reply.TypeStatus:
		t := NewTable()
		t.Fields["ok"] = Str(r.Str)
		return t
	case reply.TypeError:
		return ErrorTable(r.Err.Error())
	case reply.TypeArray:
		items := make([]Value, len(r.Array))
		for i, item := range r.Array {
			items[i] = ToScript(item)
		}
		return List(items...)
	}
	return Bool(false)
}

// FromScript converts a value returned by a script to an engine reply.
// A table with an err or ok field is an error or status; any other table
// is an array of its consecutive items.
func FromScript(v Value) reply.Reply {
	switch val := v.(type) {
	case Bool:
		if val {
			return reply.Int(1)
		}
		return reply.Nil()
	case Int:
		return reply.Int(int64(val))
	case Str:
		return reply.BulkString(string(val))
	case *Table:
		if e, ok := val.Fields["err"].(Str); ok {
			return reply.FromError(reply.Parse(reply.KindScript, string(e)))
		}
		if s, ok := val.Fields["ok"].(Str); ok {
			return reply.Status(string(s))
		}
		n := val.Len()
		items := make([]reply.Reply, n)
		for i := 0; i < n; i++ {
			items[i] = FromScript(val.Items[i+1])
		}
		return reply.Array(items...)
	}
	return reply.Nil()
}

// sortReply orders the bulk elements of an array reply bytewise.
func sortReply(r reply.Reply) reply.Reply {
	if r.Type != reply.TypeArray {
		return r
	}
	items := append([]reply.Reply(nil), r.Array...)
	sort.SliceStable(items, func(i, j int) bool {
		return string(items[i].Str) < string(items[j].Str)
	})
	return reply.Array(items...)
}
