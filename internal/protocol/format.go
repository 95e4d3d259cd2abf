package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mockredis/mockredis/internal/reply"
)

// Format renders r the way redis-cli prints replies on a terminal.
func Format(r reply.Reply) string {
	var b strings.Builder
	format(&b, r, "")
	return b.String()
}

func format(b *strings.Builder, r reply.Reply, indent string) {
	switch r.Type {
	case reply.TypeInteger:
		fmt.Fprintf(b, "(integer) %d", r.Int)
	case reply.TypeBulk:
		b.WriteString(strconv.Quote(string(r.Str)))
	case reply.TypeNilBulk, reply.TypeNilArray:
		b.WriteString("(nil)")
	case reply.TypeStatus:
		b.Write(r.Str)
	case reply.TypeError:
		b.WriteString("(error) " + r.Err.Error())
	case reply.TypeArray:
		if len(r.Array) == 0 {
			b.WriteString("(empty array)")
			return
		}
		width := len(strconv.Itoa(len(r.Array)))
		for i, item := range r.Array {
			if i > 0 {
				b.WriteString("\n" + indent)
			}
			prefix := fmt.Sprintf("%*d) ", width, i+1)
			b.WriteString(prefix)
			format(b, item, indent+strings.Repeat(" ", len(prefix)))
		}
	}
}

// SplitCommand splits a command line into words. Single and double quotes
// group words; inside double quotes a backslash escapes the next byte.
func SplitCommand(input string) []string {
	var parts []string
	var current strings.Builder
	inWord := false
	quote := byte(0)

	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else if c == '\\' && quote == '"' && i+1 < len(input) {
				i++
				current.WriteByte(input[i])
			} else {
				current.WriteByte(c)
			}
		case c == '"' || c == '\'':
			quote = c
			inWord = true
		case c == ' ' || c == '\t':
			if inWord {
				parts = append(parts, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteByte(c)
			inWord = true
		}
	}
	if inWord {
		parts = append(parts, current.String())
	}
	return parts
}
