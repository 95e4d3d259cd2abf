// Package codec implements the structural binary encoding behind DUMP and
// RESTORE, and the keyspace image used by the persistence backends.
//
// Every value is a tagged node: a byte string, a signed varint, a float64,
// or a map of node pairs. Nothing in the encoding depends on the length of
// the enclosing buffer.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	tagBytes byte = 'b'
	tagInt   byte = 'i'
	tagFloat byte = 'f'
	tagMap   byte = 'm'
)

var byteOrder = binary.LittleEndian

// ErrCorrupt is returned for payloads that cannot be decoded into nodes.
var ErrCorrupt = errors.New("codec: corrupt payload")

type pair struct {
	key, value node
}

type node struct {
	tag   byte
	b     []byte
	i     int64
	f     float64
	pairs []pair
}

func bytesNode(b []byte) node  { return node{tag: tagBytes, b: b} }
func stringNode(s string) node { return node{tag: tagBytes, b: []byte(s)} }
func intNode(i int64) node     { return node{tag: tagInt, i: i} }
func floatNode(f float64) node { return node{tag: tagFloat, f: f} }
func mapNode(pairs ...pair) node {
	return node{tag: tagMap, pairs: pairs}
}

// field returns the value stored under the byte-string key name.
func (n node) field(name string) (node, bool) {
	for _, p := range n.pairs {
		if p.key.tag == tagBytes && string(p.key.b) == name {
			return p.value, true
		}
	}
	return node{}, false
}

func appendNode(buf []byte, n node) []byte {
	buf = append(buf, n.tag)
	switch n.tag {
	case tagBytes:
		buf = binary.AppendUvarint(buf, uint64(len(n.b)))
		buf = append(buf, n.b...)
	case tagInt:
		buf = binary.AppendVarint(buf, n.i)
	case tagFloat:
		buf = byteOrder.AppendUint64(buf, math.Float64bits(n.f))
	case tagMap:
		buf = binary.AppendUvarint(buf, uint64(len(n.pairs)))
		for _, p := range n.pairs {
			buf = appendNode(buf, p.key)
			buf = appendNode(buf, p.value)
		}
	default:
		panic(fmt.Sprintf("codec: unknown tag %q", n.tag))
	}
	return buf
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) uvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf[d.pos:])
	if n <= 0 {
		return 0, ErrCorrupt
	}
	d.pos += n
	return v, nil
}

func (d *decoder) node(depth int) (node, error) {
	if depth > 8 || d.pos >= len(d.buf) {
		return node{}, ErrCorrupt
	}
	tag := d.buf[d.pos]
	d.pos++
	switch tag {
	case tagBytes:
		n, err := d.uvarint()
		if err != nil {
			return node{}, err
		}
		if n > uint64(len(d.buf)-d.pos) {
			return node{}, ErrCorrupt
		}
		b := append([]byte{}, d.buf[d.pos:d.pos+int(n)]...)
		d.pos += int(n)
		return bytesNode(b), nil
	case tagInt:
		v, n := binary.Varint(d.buf[d.pos:])
		if n <= 0 {
			return node{}, ErrCorrupt
		}
		d.pos += n
		return intNode(v), nil
	case tagFloat:
		if len(d.buf)-d.pos < 8 {
			return node{}, ErrCorrupt
		}
		f := math.Float64frombits(byteOrder.Uint64(d.buf[d.pos:]))
		d.pos += 8
		return floatNode(f), nil
	case tagMap:
		count, err := d.uvarint()
		if err != nil {
			return node{}, err
		}
		// Each pair needs at least four bytes.
		if count > uint64(len(d.buf)-d.pos)/4 {
			return node{}, ErrCorrupt
		}
		pairs := make([]pair, 0, count)
		for i := uint64(0); i < count; i++ {
			k, err := d.node(depth + 1)
			if err != nil {
				return node{}, err
			}
			v, err := d.node(depth + 1)
			if err != nil {
				return node{}, err
			}
			pairs = append(pairs, pair{key: k, value: v})
		}
		return mapNode(pairs...), nil
	}
	return node{}, ErrCorrupt
}

func decodeNode(buf []byte) (node, error) {
	d := &decoder{buf: buf}
	n, err := d.node(0)
	if err != nil {
		return node{}, err
	}
	if d.pos != len(buf) {
		return node{}, ErrCorrupt
	}
	return n, nil
}
