// Package protocol encodes engine replies as RESP and reads them back.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tidwall/redcon"

	"github.com/mockredis/mockredis/internal/reply"
)

var (
	// ErrInvalidProtocol indicates malformed RESP data
	ErrInvalidProtocol = errors.New("protocol: invalid RESP format")
)

const (
	maxBulkStringLength = 512 * 1024 * 1024 // 512 MiB
	maxArrayLength      = 1_000_000
	defaultBufSize      = 64 * 1024
)

var nilArray = []byte("*-1\r\n")

// AppendReply appends the RESP encoding of r to b.
func AppendReply(b []byte, r reply.Reply) []byte {
	switch r.Type {
	case reply.TypeInteger:
		return redcon.AppendInt(b, r.Int)
	case reply.TypeBulk:
		return redcon.AppendBulk(b, r.Str)
	case reply.TypeNilBulk:
		return redcon.AppendNull(b)
	case reply.TypeNilArray:
		return append(b, nilArray...)
	case reply.TypeStatus:
		return redcon.AppendString(b, string(r.Str))
	case reply.TypeError:
		return redcon.AppendError(b, r.Err.Error())
	case reply.TypeArray:
		b = redcon.AppendArray(b, len(r.Array))
		for _, item := range r.Array {
			b = AppendReply(b, item)
		}
		return b
	}
	return redcon.AppendError(b, "ERR invalid reply")
}

// AppendError appends err as an error reply. Errors that are not command
// errors are reported with the ERR code.
func AppendError(b []byte, err error) []byte {
	var re *reply.Error
	if errors.As(err, &re) {
		return redcon.AppendError(b, re.Error())
	}
	return redcon.AppendError(b, "ERR "+err.Error())
}

// AppendCommand appends args as an array of bulk strings, the form clients
// send commands in.
func AppendCommand(b []byte, args ...string) []byte {
	b = redcon.AppendArray(b, len(args))
	for _, a := range args {
		b = redcon.AppendBulkString(b, a)
	}
	return b
}

// Reader decodes RESP replies.
type Reader struct {
	rd *bufio.Reader
}

// NewReader creates a new RESP Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{rd: bufio.NewReaderSize(r, defaultBufSize)}
}

// ReadReply reads a single reply. Error replies come back as a Reply of
// TypeError, not as a Go error.
func (r *Reader) ReadReply() (reply.Reply, error) {
	typeByte, err := r.rd.ReadByte()
	if err != nil {
		return reply.Reply{}, err
	}

	switch typeByte {
	case '+':
		line, err := r.readLine()
		if err != nil {
			return reply.Reply{}, err
		}
		return reply.Status(line), nil
	case '-':
		line, err := r.readLine()
		if err != nil {
			return reply.Reply{}, err
		}
		return reply.FromError(reply.Parse(reply.KindGeneric, line)), nil
	case ':':
		n, err := r.readInt()
		if err != nil {
			return reply.Reply{}, fmt.Errorf("%w: invalid integer", ErrInvalidProtocol)
		}
		return reply.Int(n), nil
	case '$':
		return r.readBulk()
	case '*':
		return r.readArray()
	default:
		return reply.Reply{}, fmt.Errorf("%w: unknown type %c", ErrInvalidProtocol, typeByte)
	}
}

// readLine reads a line until \r\n
func (r *Reader) readLine() (string, error) {
	line, err := r.rd.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return "", ErrInvalidProtocol
	}
	return line[:len(line)-2], nil
}

func (r *Reader) readInt() (int64, error) {
	line, err := r.readLine()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(line, 10, 64)
}

func (r *Reader) readBulk() (reply.Reply, error) {
	length, err := r.readInt()
	if err != nil {
		return reply.Reply{}, fmt.Errorf("%w: invalid bulk string length", ErrInvalidProtocol)
	}
	switch {
	case length == -1:
		return reply.Nil(), nil
	case length < 0:
		return reply.Reply{}, fmt.Errorf("%w: negative bulk string length", ErrInvalidProtocol)
	case length > maxBulkStringLength:
		return reply.Reply{}, fmt.Errorf("%w: bulk string too large", ErrInvalidProtocol)
	}

	data := make([]byte, length+2)
	if _, err := io.ReadFull(r.rd, data); err != nil {
		return reply.Reply{}, err
	}
	if data[length] != '\r' || data[length+1] != '\n' {
		return reply.Reply{}, ErrInvalidProtocol
	}
	return reply.Bulk(data[:length]), nil
}

func (r *Reader) readArray() (reply.Reply, error) {
	count, err := r.readInt()
	if err != nil {
		return reply.Reply{}, fmt.Errorf("%w: invalid array length", ErrInvalidProtocol)
	}
	switch {
	case count == -1:
		return reply.NilArray(), nil
	case count < 0:
		return reply.Reply{}, fmt.Errorf("%w: negative array length", ErrInvalidProtocol)
	case count > maxArrayLength:
		return reply.Reply{}, fmt.Errorf("%w: array too large", ErrInvalidProtocol)
	}

	items := make([]reply.Reply, count)
	for i := range items {
		item, err := r.ReadReply()
		if err != nil {
			return reply.Reply{}, err
		}
		items[i] = item
	}
	return reply.Array(items...), nil
}
