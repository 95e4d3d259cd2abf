package engine

import (
	"strings"

	"github.com/mockredis/mockredis/internal/reply"
	"github.com/mockredis/mockredis/internal/store"
)

const maxBitOffset = 1<<32 - 1

// popcount[b] is the number of set bits in b; firstSet[b] is the index of
// the most significant set bit of b counting from the left, or 8.
var popcount, firstSet [256]uint8

func init() {
	for i := 0; i < 256; i++ {
		for b := 0; b < 8; b++ {
			if i&(1<<b) != 0 {
				popcount[i]++
			}
		}
		firstSet[i] = 8
		for b := 0; b < 8; b++ {
			if i&(0x80>>b) != 0 {
				firstSet[i] = uint8(b)
				break
			}
		}
	}

	register("setbit", 4, "write denyoom", 1, 1, 1, cmdSetBit)
	register("getbit", 3, "readonly fast", 1, 1, 1, cmdGetBit)
	register("bitcount", -2, "readonly", 1, 1, 1, cmdBitCount)
	register("bitpos", -3, "readonly", 1, 1, 1, cmdBitPos)
	register("bitop", -4, "write denyoom", 2, -1, 1, cmdBitOp)
}

func parseBitOffset(s string) (int64, error) {
	n, err := parseIntAs(s, reply.ErrBitOffset)
	if err != nil || n < 0 || n > maxBitOffset {
		return 0, reply.ErrBitOffset
	}
	return n, nil
}

func cmdSetBit(in *Instance, args []string) (reply.Reply, error) {
	offset, err := parseBitOffset(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	if args[2] != "0" && args[2] != "1" {
		return reply.Reply{}, reply.ErrBitValue
	}
	s, err := in.store.StringOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	idx := int(offset >> 3)
	out := make(store.String, max(len(s), idx+1))
	copy(out, s)
	mask := byte(0x80 >> (offset & 7))
	old := out[idx]&mask != 0
	if args[2] == "1" {
		out[idx] |= mask
	} else {
		out[idx] &^= mask
	}
	in.store.Put(args[0], out)
	return reply.Bool(old), nil
}

func cmdGetBit(in *Instance, args []string) (reply.Reply, error) {
	offset, err := parseBitOffset(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	s, err := in.store.StringOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	idx := int(offset >> 3)
	if idx >= len(s) {
		return reply.Int(0), nil
	}
	return reply.Bool(s[idx]&(0x80>>(offset&7)) != 0), nil
}

// byteRange resolves optional start/end byte arguments over s.
func byteRange(s []byte, args []string) (lo, hi int, ok bool, err error) {
	start, stop := 0, -1
	if len(args) > 0 {
		if start, err = parseIndex(args[0]); err != nil {
			return 0, 0, false, err
		}
	}
	if len(args) > 1 {
		if stop, err = parseIndex(args[1]); err != nil {
			return 0, 0, false, err
		}
	}
	lo, hi, ok = store.NormalizeRange(start, stop, len(s))
	return lo, hi, ok, nil
}

// BITCOUNT key [start end]
func cmdBitCount(in *Instance, args []string) (reply.Reply, error) {
	if len(args) != 1 && len(args) != 3 {
		return reply.Reply{}, reply.ErrSyntax
	}
	s, err := in.store.StringOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	lo, hi, ok, err := byteRange(s, args[1:])
	if err != nil || !ok {
		return reply.Int(0), err
	}
	n := 0
	for _, b := range s[lo : hi+1] {
		n += int(popcount[b])
	}
	return reply.Int(int64(n)), nil
}

// BITPOS key bit [start [end]]
func cmdBitPos(in *Instance, args []string) (reply.Reply, error) {
	if len(args) > 4 {
		return reply.Reply{}, reply.ErrSyntax
	}
	if args[1] != "0" && args[1] != "1" {
		return reply.Reply{}, reply.ErrBitArg
	}
	want := args[1] == "1"
	s, err := in.store.StringOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	if s == nil {
		if want {
			return reply.Int(-1), nil
		}
		return reply.Int(0), nil
	}
	lo, hi, ok, err := byteRange(s, args[2:])
	if err != nil {
		return reply.Reply{}, err
	}
	if !ok {
		return reply.Int(-1), nil
	}
	for i := lo; i <= hi; i++ {
		b := s[i]
		if !want {
			b = ^b
		}
		if pos := firstSet[b]; pos < 8 {
			return reply.Int(int64(i*8 + int(pos))), nil
		}
	}
	// Looking for a clear bit without an explicit end: the string is
	// treated as padded with zeros on the right.
	if !want && len(args) < 4 {
		return reply.Int(int64((hi + 1) * 8)), nil
	}
	return reply.Int(-1), nil
}

// BITOP AND|OR|XOR|NOT destkey key [key ...]
func cmdBitOp(in *Instance, args []string) (reply.Reply, error) {
	op := strings.ToUpper(args[0])
	dest, keys := args[1], args[2:]
	switch op {
	case "AND", "OR", "XOR":
	case "NOT":
		if len(keys) != 1 {
			return reply.Reply{}, reply.Errorf("BITOP NOT must be called with a single source key.")
		}
	default:
		return reply.Reply{}, reply.ErrSyntax
	}

	srcs := make([]store.String, len(keys))
	size := 0
	for i, k := range keys {
		s, err := in.store.StringOf(k)
		if err != nil {
			return reply.Reply{}, err
		}
		srcs[i] = s
		size = max(size, len(s))
	}

	out := make(store.String, size)
	for i := 0; i < size; i++ {
		at := func(s store.String) byte {
			if i < len(s) {
				return s[i]
			}
			return 0
		}
		b := at(srcs[0])
		for _, s := range srcs[1:] {
			switch op {
			case "AND":
				b &= at(s)
			case "OR":
				b |= at(s)
			case "XOR":
				b ^= at(s)
			}
		}
		if op == "NOT" {
			b = ^b
		}
		out[i] = b
	}
	if size == 0 {
		in.store.Delete(dest)
		return reply.Int(0), nil
	}
	in.store.Write(dest, out, store.NoExpiry)
	return reply.Int(int64(size)), nil
}
