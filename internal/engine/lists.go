package engine

import (
	"strings"

	"github.com/mockredis/mockredis/internal/option"
	"github.com/mockredis/mockredis/internal/reply"
)

func init() {
	register("lpush", -3, "write denyoom fast", 1, 1, 1, cmdLPush)
	register("rpush", -3, "write denyoom fast", 1, 1, 1, cmdRPush)
	register("lpushx", -3, "write denyoom fast", 1, 1, 1, cmdLPushX)
	register("rpushx", -3, "write denyoom fast", 1, 1, 1, cmdRPushX)
	register("lpop", -2, "write fast", 1, 1, 1, cmdLPop)
	register("rpop", -2, "write fast", 1, 1, 1, cmdRPop)
	register("llen", 2, "readonly fast", 1, 1, 1, cmdLLen)
	register("lindex", 3, "readonly", 1, 1, 1, cmdLIndex)
	register("lset", 4, "write denyoom", 1, 1, 1, cmdLSet)
	register("lrange", 4, "readonly", 1, 1, 1, cmdLRange)
	register("ltrim", 4, "write", 1, 1, 1, cmdLTrim)
	register("linsert", 5, "write denyoom", 1, 1, 1, cmdLInsert)
	register("lrem", 4, "write", 1, 1, 1, cmdLRem)
	register("lpos", -3, "readonly", 1, 1, 1, cmdLPos)
	register("rpoplpush", 3, "write denyoom", 1, 2, 1, cmdRPopLPush)
	register("lmove", 5, "write denyoom", 1, 2, 1, cmdLMove)
}

func bytesArgs(args []string) [][]byte {
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = []byte(a)
	}
	return out
}

func push(in *Instance, args []string, left, onlyExisting bool) (reply.Reply, error) {
	l, err := in.store.ListOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	if onlyExisting && l.Empty() {
		return reply.Int(0), nil
	}
	var n int
	if left {
		n = l.LPush(bytesArgs(args[1:])...)
	} else {
		n = l.RPush(bytesArgs(args[1:])...)
	}
	in.store.Put(args[0], l)
	return reply.Int(int64(n)), nil
}

func cmdLPush(in *Instance, args []string) (reply.Reply, error)  { return push(in, args, true, false) }
func cmdRPush(in *Instance, args []string) (reply.Reply, error)  { return push(in, args, false, false) }
func cmdLPushX(in *Instance, args []string) (reply.Reply, error) { return push(in, args, true, true) }
func cmdRPushX(in *Instance, args []string) (reply.Reply, error) { return push(in, args, false, true) }

// pop implements LPOP/RPOP key [count].
func pop(in *Instance, args []string, left bool) (reply.Reply, error) {
	if len(args) > 2 {
		return reply.Reply{}, reply.ErrSyntax
	}
	count := int64(-1)
	if len(args) == 2 {
		n, err := parseInt(args[1])
		if err != nil {
			return reply.Reply{}, reply.ErrPositive
		}
		if n < 0 {
			return reply.Reply{}, reply.ErrPositive
		}
		count = n
	}
	l, err := in.store.ListOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	take := func() ([]byte, bool) {
		if left {
			return l.LPop()
		}
		return l.RPop()
	}
	if count < 0 {
		v, ok := take()
		if !ok {
			return reply.Nil(), nil
		}
		in.store.Put(args[0], l)
		return reply.Bulk(v), nil
	}
	if l.Empty() {
		return reply.NilArray(), nil
	}
	var out [][]byte
	for i := int64(0); i < count; i++ {
		v, ok := take()
		if !ok {
			break
		}
		out = append(out, v)
	}
	in.store.Put(args[0], l)
	return reply.Bytes(out), nil
}

func cmdLPop(in *Instance, args []string) (reply.Reply, error) { return pop(in, args, true) }
func cmdRPop(in *Instance, args []string) (reply.Reply, error) { return pop(in, args, false) }

func cmdLLen(in *Instance, args []string) (reply.Reply, error) {
	l, err := in.store.ListOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Int(int64(l.Len())), nil
}

func cmdLIndex(in *Instance, args []string) (reply.Reply, error) {
	idx, err := parseIndex(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	l, err := in.store.ListOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	v, ok := l.Index(idx)
	if !ok {
		return reply.Nil(), nil
	}
	return reply.Bulk(v), nil
}

func cmdLSet(in *Instance, args []string) (reply.Reply, error) {
	idx, err := parseIndex(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	l, err := in.store.ListOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	if l.Empty() {
		return reply.Reply{}, reply.ErrNoSuchKey
	}
	if !l.Set(idx, []byte(args[2])) {
		return reply.Reply{}, reply.ErrIndexRange
	}
	in.store.Put(args[0], l)
	return reply.OK(), nil
}

func cmdLRange(in *Instance, args []string) (reply.Reply, error) {
	start, err := parseIndex(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	stop, err := parseIndex(args[2])
	if err != nil {
		return reply.Reply{}, err
	}
	l, err := in.store.ListOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Bytes(l.Range(start, stop)), nil
}

func cmdLTrim(in *Instance, args []string) (reply.Reply, error) {
	start, err := parseIndex(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	stop, err := parseIndex(args[2])
	if err != nil {
		return reply.Reply{}, err
	}
	l, err := in.store.ListOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	l.Trim(start, stop)
	in.store.Put(args[0], l)
	return reply.OK(), nil
}

// LINSERT key BEFORE|AFTER pivot element
func cmdLInsert(in *Instance, args []string) (reply.Reply, error) {
	var before bool
	switch strings.ToUpper(args[1]) {
	case "BEFORE":
		before = true
	case "AFTER":
	default:
		return reply.Reply{}, reply.ErrSyntax
	}
	l, err := in.store.ListOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	if l.Empty() {
		return reply.Int(0), nil
	}
	n := l.Insert(before, []byte(args[2]), []byte(args[3]))
	in.store.Put(args[0], l)
	return reply.Int(int64(n)), nil
}

func cmdLRem(in *Instance, args []string) (reply.Reply, error) {
	count, err := parseIndex(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	l, err := in.store.ListOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	n := l.Remove(count, []byte(args[2]))
	in.store.Put(args[0], l)
	return reply.Int(int64(n)), nil
}

var lposOptions = option.MustCompile("[RANK rank] [COUNT num-matches] [MAXLEN len]")

var (
	errRankZero  = reply.Errorf("RANK can't be zero: use 1 to start from the first match, 2 from the second ... or use negative to start from the end of the list")
	errCountNeg  = reply.Errorf("COUNT can't be negative")
	errMaxLenNeg = reply.Errorf("MAXLEN can't be negative")
)

// LPOS key element [RANK rank] [COUNT num-matches] [MAXLEN len]
func cmdLPos(in *Instance, args []string) (reply.Reply, error) {
	opts, err := lposOptions.ParseAll(args[2:])
	if err != nil {
		return reply.Reply{}, err
	}
	rank, count, maxlen := int64(1), int64(1), int64(0)
	if v, ok := opts.Arg("RANK"); ok {
		if rank, err = parseInt(v); err != nil {
			return reply.Reply{}, err
		}
		if rank == 0 {
			return reply.Reply{}, errRankZero
		}
	}
	if v, ok := opts.Arg("COUNT"); ok {
		if count, err = parseInt(v); err != nil {
			return reply.Reply{}, err
		}
		if count < 0 {
			return reply.Reply{}, errCountNeg
		}
	}
	if v, ok := opts.Arg("MAXLEN"); ok {
		if maxlen, err = parseInt(v); err != nil {
			return reply.Reply{}, err
		}
		if maxlen < 0 {
			return reply.Reply{}, errMaxLenNeg
		}
	}
	l, err := in.store.ListOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	found := l.Positions([]byte(args[1]), int(rank), int(count), int(maxlen))
	if !opts.Has("COUNT") {
		if len(found) == 0 {
			return reply.Nil(), nil
		}
		return reply.Int(int64(found[0])), nil
	}
	out := make([]reply.Reply, len(found))
	for i, idx := range found {
		out[i] = reply.Int(int64(idx))
	}
	return reply.Array(out...), nil
}

// move pops from one end of src and pushes on one end of dst.
func move(in *Instance, src, dst string, fromLeft, toLeft bool) (reply.Reply, error) {
	from, err := in.store.ListOf(src)
	if err != nil {
		return reply.Reply{}, err
	}
	to, err := in.store.ListOf(dst)
	if err != nil {
		return reply.Reply{}, err
	}
	if src == dst {
		to = from
	}
	var v []byte
	var ok bool
	if fromLeft {
		v, ok = from.LPop()
	} else {
		v, ok = from.RPop()
	}
	if !ok {
		return reply.Nil(), nil
	}
	if toLeft {
		to.LPush(v)
	} else {
		to.RPush(v)
	}
	in.store.Put(src, from)
	in.store.Put(dst, to)
	return reply.Bulk(v), nil
}

func cmdRPopLPush(in *Instance, args []string) (reply.Reply, error) {
	return move(in, args[0], args[1], false, true)
}

func parseSide(s string) (bool, error) {
	switch strings.ToUpper(s) {
	case "LEFT":
		return true, nil
	case "RIGHT":
		return false, nil
	}
	return false, reply.ErrSyntax
}

// LMOVE source destination LEFT|RIGHT LEFT|RIGHT
func cmdLMove(in *Instance, args []string) (reply.Reply, error) {
	fromLeft, err := parseSide(args[2])
	if err != nil {
		return reply.Reply{}, err
	}
	toLeft, err := parseSide(args[3])
	if err != nil {
		return reply.Reply{}, err
	}
	return move(in, args[0], args[1], fromLeft, toLeft)
}
