package codec

import (
	"bytes"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/mockredis/mockredis/internal/reply"
	"github.com/mockredis/mockredis/internal/store"
)

// marker is the 2-byte format version written after a payload. Its value is
// far above any RDB version a real server accepts.
var marker = []byte{'M', 'R'}

const trailerLen = 2 + 8

func encodeValue(v store.Value) node {
	switch val := v.(type) {
	case store.String:
		return bytesNode(val)
	case *store.List:
		items := val.Values()
		pairs := make([]pair, len(items))
		for i, item := range items {
			pairs[i] = pair{key: intNode(int64(i)), value: bytesNode(item)}
		}
		return mapNode(pairs...)
	case *store.Set:
		members := val.Sorted()
		pairs := make([]pair, len(members))
		for i, m := range members {
			pairs[i] = pair{key: stringNode(m), value: intNode(1)}
		}
		return mapNode(pairs...)
	case *store.Hash:
		fields := val.Fields()
		pairs := make([]pair, len(fields))
		for i, f := range fields {
			b, _ := val.Get(f)
			pairs[i] = pair{key: stringNode(f), value: bytesNode(b)}
		}
		return mapNode(pairs...)
	case *store.SortedSet:
		members := val.Members()
		pairs := make([]pair, len(members))
		for i, m := range members {
			pairs[i] = pair{key: stringNode(m.Member), value: floatNode(m.Score)}
		}
		return mapNode(pairs...)
	}
	panic("codec: unknown value type")
}

func encodeEntry(v store.Value) node {
	return mapNode(
		pair{key: stringNode("kind"), value: stringNode(v.Kind().String())},
		pair{key: stringNode("value"), value: encodeValue(v)},
	)
}

// decodeEntry validates the structure of an entry node and builds its value.
// Any mismatch is reported as ErrBadFormat.
func decodeEntry(n node) (store.Value, error) {
	if n.tag != tagMap {
		return nil, reply.ErrBadFormat
	}
	kn, ok := n.field("kind")
	if !ok || kn.tag != tagBytes {
		return nil, reply.ErrBadFormat
	}
	kind, ok := store.ParseKind(string(kn.b))
	if !ok {
		return nil, reply.ErrBadFormat
	}
	vn, ok := n.field("value")
	if !ok {
		return nil, reply.ErrBadFormat
	}
	if kind == store.KindString {
		if vn.tag != tagBytes {
			return nil, reply.ErrBadFormat
		}
		return store.String(vn.b), nil
	}
	if vn.tag != tagMap {
		return nil, reply.ErrBadFormat
	}
	switch kind {
	case store.KindList:
		items := make([][]byte, len(vn.pairs))
		for i, p := range vn.pairs {
			if p.key.tag != tagInt || p.key.i != int64(i) || p.value.tag != tagBytes {
				return nil, reply.ErrBadFormat
			}
			items[i] = p.value.b
		}
		return store.NewList(items...), nil
	case store.KindSet:
		s := store.NewSet()
		for _, p := range vn.pairs {
			if p.key.tag != tagBytes || p.value.tag != tagInt {
				return nil, reply.ErrBadFormat
			}
			s.Add(string(p.key.b))
		}
		return s, nil
	case store.KindHash:
		h := store.NewHash()
		for _, p := range vn.pairs {
			if p.key.tag != tagBytes || p.value.tag != tagBytes {
				return nil, reply.ErrBadFormat
			}
			h.Set(string(p.key.b), p.value.b)
		}
		return h, nil
	default:
		z := store.NewSortedSet()
		for _, p := range vn.pairs {
			if p.key.tag != tagBytes || p.value.tag != tagFloat || math.IsNaN(p.value.f) {
				return nil, reply.ErrBadFormat
			}
			z.Set(string(p.key.b), p.value.f)
		}
		return z, nil
	}
}

func checksum(b []byte) []byte {
	return byteOrder.AppendUint64(nil, xxhash.Sum64(b))
}

// Dump serializes v with the format marker and a checksum trailer.
func Dump(v store.Value) []byte {
	buf := appendNode(nil, encodeEntry(v))
	buf = append(buf, marker...)
	return append(buf, checksum(buf)...)
}

// Restore verifies the trailer of data and decodes the entry it holds.
// A wrong marker or checksum is ErrDumpPayload; a payload that decodes
// but fails validation is ErrBadFormat.
func Restore(data []byte) (store.Value, error) {
	if len(data) < trailerLen {
		return nil, reply.ErrDumpPayload
	}
	body, sum := data[:len(data)-8], data[len(data)-8:]
	payload, mark := body[:len(body)-2], body[len(body)-2:]
	if !bytes.Equal(mark, marker) || !bytes.Equal(sum, checksum(body)) {
		return nil, reply.ErrDumpPayload
	}
	n, err := decodeNode(payload)
	if err != nil {
		return nil, reply.ErrBadFormat
	}
	return decodeEntry(n)
}
