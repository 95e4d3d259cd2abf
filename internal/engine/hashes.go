package engine

import (
	"github.com/mockredis/mockredis/internal/reply"
	"github.com/mockredis/mockredis/internal/store"
)

func init() {
	register("hset", -4, "write denyoom fast", 1, 1, 1, cmdHSet)
	register("hmset", -4, "write denyoom fast", 1, 1, 1, cmdHMSet)
	register("hsetnx", 4, "write denyoom fast", 1, 1, 1, cmdHSetNX)
	register("hget", 3, "readonly fast", 1, 1, 1, cmdHGet)
	register("hmget", -3, "readonly fast", 1, 1, 1, cmdHMGet)
	register("hdel", -3, "write fast", 1, 1, 1, cmdHDel)
	register("hexists", 3, "readonly fast", 1, 1, 1, cmdHExists)
	register("hlen", 2, "readonly fast", 1, 1, 1, cmdHLen)
	register("hstrlen", 3, "readonly fast", 1, 1, 1, cmdHStrLen)
	register("hkeys", 2, "readonly", 1, 1, 1, cmdHKeys)
	register("hvals", 2, "readonly", 1, 1, 1, cmdHVals)
	register("hgetall", 2, "readonly random", 1, 1, 1, cmdHGetAll)
	register("hincrby", 4, "write denyoom fast", 1, 1, 1, cmdHIncrBy)
	register("hincrbyfloat", 4, "write denyoom fast", 1, 1, 1, cmdHIncrByFloat)
	register("hscan", -3, "readonly random", 1, 1, 1, cmdHScan)
}

func hsetPairs(in *Instance, cmd string, args []string) (int, error) {
	if len(args)%2 != 1 {
		return 0, reply.WrongArgs(cmd)
	}
	h, err := in.store.HashOf(args[0])
	if err != nil {
		return 0, err
	}
	added := 0
	for i := 1; i < len(args); i += 2 {
		if h.Set(args[i], []byte(args[i+1])) {
			added++
		}
	}
	in.store.Put(args[0], h)
	return added, nil
}

func cmdHSet(in *Instance, args []string) (reply.Reply, error) {
	n, err := hsetPairs(in, "hset", args)
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Int(int64(n)), nil
}

func cmdHMSet(in *Instance, args []string) (reply.Reply, error) {
	if _, err := hsetPairs(in, "hmset", args); err != nil {
		return reply.Reply{}, err
	}
	return reply.OK(), nil
}

func cmdHSetNX(in *Instance, args []string) (reply.Reply, error) {
	h, err := in.store.HashOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	if h.Has(args[1]) {
		return reply.Int(0), nil
	}
	h.Set(args[1], []byte(args[2]))
	in.store.Put(args[0], h)
	return reply.Int(1), nil
}

func cmdHGet(in *Instance, args []string) (reply.Reply, error) {
	h, err := in.store.HashOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	v, ok := h.Get(args[1])
	if !ok {
		return reply.Nil(), nil
	}
	return reply.Bulk(v), nil
}

func cmdHMGet(in *Instance, args []string) (reply.Reply, error) {
	h, err := in.store.HashOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	out := make([]reply.Reply, len(args)-1)
	for i, f := range args[1:] {
		if v, ok := h.Get(f); ok {
			out[i] = reply.Bulk(v)
		} else {
			out[i] = reply.Nil()
		}
	}
	return reply.Array(out...), nil
}

func cmdHDel(in *Instance, args []string) (reply.Reply, error) {
	h, err := in.store.HashOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	n := h.Del(args[1:]...)
	in.store.Put(args[0], h)
	return reply.Int(int64(n)), nil
}

func cmdHExists(in *Instance, args []string) (reply.Reply, error) {
	h, err := in.store.HashOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Bool(h.Has(args[1])), nil
}

func cmdHLen(in *Instance, args []string) (reply.Reply, error) {
	h, err := in.store.HashOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Int(int64(h.Len())), nil
}

func cmdHStrLen(in *Instance, args []string) (reply.Reply, error) {
	h, err := in.store.HashOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	v, _ := h.Get(args[1])
	return reply.Int(int64(len(v))), nil
}

func cmdHKeys(in *Instance, args []string) (reply.Reply, error) {
	h, err := in.store.HashOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Strings(h.Fields()), nil
}

func cmdHVals(in *Instance, args []string) (reply.Reply, error) {
	h, err := in.store.HashOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	fields := h.Fields()
	out := make([]reply.Reply, len(fields))
	for i, f := range fields {
		v, _ := h.Get(f)
		out[i] = reply.Bulk(v)
	}
	return reply.Array(out...), nil
}

func cmdHGetAll(in *Instance, args []string) (reply.Reply, error) {
	h, err := in.store.HashOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	fields := h.Fields()
	out := make([]reply.Reply, 0, 2*len(fields))
	for _, f := range fields {
		v, _ := h.Get(f)
		out = append(out, reply.BulkString(f), reply.Bulk(v))
	}
	return reply.Array(out...), nil
}

func cmdHIncrBy(in *Instance, args []string) (reply.Reply, error) {
	delta, err := parseInt(args[2])
	if err != nil {
		return reply.Reply{}, err
	}
	h, err := in.store.HashOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	var cur int64
	if v, ok := h.Get(args[1]); ok {
		if cur, err = parseIntAs(string(v), reply.ErrHashNotInt); err != nil {
			return reply.Reply{}, err
		}
	}
	n, err := addInt(cur, delta)
	if err != nil {
		return reply.Reply{}, err
	}
	h.Set(args[1], []byte(itoa(n)))
	in.store.Put(args[0], h)
	return reply.Int(n), nil
}

func cmdHIncrByFloat(in *Instance, args []string) (reply.Reply, error) {
	delta, err := parseFloat(args[2])
	if err != nil {
		return reply.Reply{}, err
	}
	h, err := in.store.HashOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	var cur float64
	if v, ok := h.Get(args[1]); ok {
		if cur, err = parseFloatAs(string(v), reply.ErrHashNotFlt); err != nil {
			return reply.Reply{}, err
		}
	}
	n := cur + delta
	if isNaNOrInf(n) {
		return reply.Reply{}, reply.ErrNaNOrInf
	}
	out := reply.FormatIncrFloat(n)
	h.Set(args[1], []byte(out))
	in.store.Put(args[0], h)
	return reply.BulkString(out), nil
}

// HSCAN key cursor [MATCH pattern] [COUNT count]
func cmdHScan(in *Instance, args []string) (reply.Reply, error) {
	opts, first, err := parseScan(args[1], args[2:])
	if err != nil {
		return reply.Reply{}, err
	}
	if _, err := in.store.HashOf(args[0]); err != nil || !first {
		return scanReply(reply.Array()), err
	}
	pattern, _ := opts.Arg("MATCH")
	pairs, err := in.store.HScan(args[0], pattern)
	if err != nil {
		return reply.Reply{}, err
	}
	return scanReply(flattenPairs(pairs)), nil
}

func flattenPairs(pairs []store.Pair) reply.Reply {
	out := make([]reply.Reply, 0, 2*len(pairs))
	for _, p := range pairs {
		out = append(out, reply.BulkString(p.Key), reply.Bulk(p.Value))
	}
	return reply.Array(out...)
}
