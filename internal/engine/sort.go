package engine

import (
	"sort"
	"strings"

	"github.com/mockredis/mockredis/internal/option"
	"github.com/mockredis/mockredis/internal/reply"
	"github.com/mockredis/mockredis/internal/store"
)

func init() {
	register("sort", -2, "write denyoom", 1, 1, 1, cmdSort)
}

// Only one GET clause is accepted; a second GET with a different pattern
// is a syntax error.
var sortOptions = option.MustCompile("[BY pattern] [LIMIT offset count] [GET pattern] [ASC|DESC] [ALPHA] [STORE destination]")

// deref resolves a SORT pattern for element. "#" is the element itself;
// otherwise the first '*' is replaced by the element and an optional
// "->field" suffix reads a hash field. Lookups are weak: a missing key or
// one of another kind resolves to nil.
func (in *Instance) deref(pattern string, element []byte) []byte {
	if pattern == "#" {
		return element
	}
	star := strings.IndexByte(pattern, '*')
	if star < 0 {
		return nil
	}
	key, field := pattern, ""
	if arrow := strings.Index(pattern[star:], "->"); arrow >= 0 {
		key, field = pattern[:star+arrow], pattern[star+arrow+2:]
	}
	key = key[:star] + string(element) + key[star+1:]
	if field == "" {
		if s, ok := in.store.LookupWeak(key, store.KindString).(store.String); ok && s != nil {
			return s
		}
		return nil
	}
	if h, ok := in.store.LookupWeak(key, store.KindHash).(*store.Hash); ok && h != nil {
		if v, ok := h.Get(field); ok {
			return v
		}
	}
	return nil
}

// sortSource collects the elements SORT operates on.
func (in *Instance) sortSource(key string) ([][]byte, error) {
	e, ok := in.store.Get(key)
	if !ok {
		return nil, nil
	}
	switch v := e.Value.(type) {
	case *store.List:
		return v.Values(), nil
	case *store.Set:
		return bytesArgs(v.Sorted()), nil
	case *store.SortedSet:
		out := make([][]byte, 0, v.Len())
		for _, m := range v.Members() {
			out = append(out, []byte(m.Member))
		}
		return out, nil
	}
	return nil, reply.ErrWrongType
}

type sortItem struct {
	element []byte
	weight  []byte
	score   float64
}

// SORT key [BY pattern] [LIMIT offset count] [GET pattern] [ASC|DESC] [ALPHA] [STORE destination]
func cmdSort(in *Instance, args []string) (reply.Reply, error) {
	opts, err := sortOptions.ParseAll(args[1:])
	if err != nil {
		return reply.Reply{}, err
	}
	var offset, count int64 = 0, -1
	if l := opts.Args("LIMIT"); l != nil {
		if offset, err = parseInt(l[0]); err != nil {
			return reply.Reply{}, err
		}
		if count, err = parseInt(l[1]); err != nil {
			return reply.Reply{}, err
		}
	}
	elements, err := in.sortSource(args[0])
	if err != nil {
		return reply.Reply{}, err
	}

	by, hasBy := opts.Arg("BY")
	dontSort := hasBy && !strings.Contains(by, "*")
	alpha := opts.Has("ALPHA")

	items := make([]sortItem, len(elements))
	for i, el := range elements {
		items[i] = sortItem{element: el, weight: el}
		if hasBy && !dontSort {
			items[i].weight = in.deref(by, el)
		}
		if dontSort || alpha {
			continue
		}
		if items[i].weight == nil {
			continue
		}
		f, err := parseFloatAs(string(items[i].weight), reply.ErrSortScore)
		if err != nil {
			return reply.Reply{}, err
		}
		items[i].score = f
	}

	if !dontSort {
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i], items[j]
			if alpha {
				if c := strings.Compare(string(a.weight), string(b.weight)); c != 0 {
					return c < 0
				}
			} else if a.score != b.score {
				return a.score < b.score
			}
			return string(a.element) < string(b.element)
		})
		if opts.Has("DESC") {
			for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
				items[i], items[j] = items[j], items[i]
			}
		}
	}

	if offset < 0 {
		offset = 0
	}
	if offset > int64(len(items)) {
		offset = int64(len(items))
	}
	items = items[offset:]
	if count >= 0 && count < int64(len(items)) {
		items = items[:count]
	}

	out := make([][]byte, len(items))
	get, hasGet := opts.Arg("GET")
	for i, it := range items {
		if hasGet {
			out[i] = in.deref(get, it.element)
		} else {
			out[i] = it.element
		}
	}

	if dest, ok := opts.Arg("STORE"); ok {
		values := make([][]byte, len(out))
		for i, v := range out {
			if v == nil {
				v = []byte{}
			}
			values[i] = v
		}
		in.store.Write(dest, store.NewList(values...), store.NoExpiry)
		return reply.Int(int64(len(values))), nil
	}
	return reply.Bytes(out), nil
}
