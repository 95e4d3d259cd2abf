package engine

import (
	"github.com/mockredis/mockredis/internal/option"
	"github.com/mockredis/mockredis/internal/reply"
	"github.com/mockredis/mockredis/internal/store"
)

const maxStringSize = 512 << 20

func init() {
	register("get", 2, "readonly fast", 1, 1, 1, cmdGet)
	register("set", -3, "write denyoom", 1, 1, 1, cmdSet)
	register("setnx", 3, "write denyoom fast", 1, 1, 1, cmdSetNX)
	register("setex", 4, "write denyoom", 1, 1, 1, cmdSetEX)
	register("psetex", 4, "write denyoom", 1, 1, 1, cmdPSetEX)
	register("getset", 3, "write denyoom fast", 1, 1, 1, cmdGetSet)
	register("getex", -2, "write fast", 1, 1, 1, cmdGetEX)
	register("getdel", 2, "write fast", 1, 1, 1, cmdGetDel)
	register("mget", -2, "readonly fast", 1, -1, 1, cmdMGet)
	register("mset", -3, "write denyoom", 1, -1, 2, cmdMSet)
	register("msetnx", -3, "write denyoom", 1, -1, 2, cmdMSetNX)
	register("append", 3, "write denyoom fast", 1, 1, 1, cmdAppend)
	register("strlen", 2, "readonly fast", 1, 1, 1, cmdStrLen)
	register("getrange", 4, "readonly", 1, 1, 1, cmdGetRange)
	register("substr", 4, "readonly", 1, 1, 1, cmdGetRange)
	register("setrange", 4, "write denyoom", 1, 1, 1, cmdSetRange)
	register("incr", 2, "write denyoom fast", 1, 1, 1, cmdIncr)
	register("decr", 2, "write denyoom fast", 1, 1, 1, cmdDecr)
	register("incrby", 3, "write denyoom fast", 1, 1, 1, cmdIncrBy)
	register("decrby", 3, "write denyoom fast", 1, 1, 1, cmdDecrBy)
	register("incrbyfloat", 3, "write denyoom fast", 1, 1, 1, cmdIncrByFloat)
}

var (
	setOptions   = option.MustCompile("[NX|XX] [EX|PX|EXAT|PXAT time] [KEEPTTL] [GET]")
	getexOptions = option.MustCompile("[EX|PX|EXAT|PXAT time] [PERSIST]")
)

// expireAt turns an EX/PX/EXAT/PXAT option into an absolute expiry.
// It reports false when no expiry option was given.
func (in *Instance) expireAt(opts option.Options, cmd string) (float64, bool, error) {
	tok := opts.Choice("EX")
	if tok == "" {
		return 0, false, nil
	}
	arg, _ := opts.Arg(tok)
	n, err := parseInt(arg)
	if err != nil {
		return 0, false, err
	}
	if n <= 0 {
		return 0, false, reply.Errorf("invalid expire time in '%s' command", cmd)
	}
	v := float64(n)
	switch tok {
	case "EX":
		return in.now() + v, true, nil
	case "PX":
		return in.now() + v/1000, true, nil
	case "EXAT":
		return v, true, nil
	}
	return v / 1000, true, nil
}

func bulkOrNil(s store.String) reply.Reply {
	if s == nil {
		return reply.Nil()
	}
	return reply.Bulk(s)
}

func cmdGet(in *Instance, args []string) (reply.Reply, error) {
	s, err := in.store.StringOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return bulkOrNil(s), nil
}

// SET key value [NX|XX] [EX|PX|EXAT|PXAT time] [KEEPTTL] [GET]
func cmdSet(in *Instance, args []string) (reply.Reply, error) {
	key, value := args[0], args[1]
	opts, err := setOptions.ParseAll(args[2:])
	if err != nil {
		return reply.Reply{}, err
	}
	if opts.Has("KEEPTTL") && opts.Choice("EX") != "" {
		return reply.Reply{}, reply.ErrSyntax
	}
	at, hasTTL, err := in.expireAt(opts, "set")
	if err != nil {
		return reply.Reply{}, err
	}

	var old store.String
	if opts.Has("GET") {
		if old, err = in.store.StringOf(key); err != nil {
			return reply.Reply{}, err
		}
	}
	e, exists := in.store.Get(key)
	if (opts.Has("NX") && exists) || (opts.Has("XX") && !exists) {
		if opts.Has("GET") {
			return bulkOrNil(old), nil
		}
		return reply.Nil(), nil
	}

	expire := store.NoExpiry
	switch {
	case hasTTL:
		expire = at
	case opts.Has("KEEPTTL") && exists:
		expire = e.ExpireAt
	}
	in.store.Write(key, store.NewString(value), expire)
	if opts.Has("GET") {
		return bulkOrNil(old), nil
	}
	return reply.OK(), nil
}

func cmdSetNX(in *Instance, args []string) (reply.Reply, error) {
	if in.store.Exists(args[0]) {
		return reply.Int(0), nil
	}
	in.store.Write(args[0], store.NewString(args[1]), store.NoExpiry)
	return reply.Int(1), nil
}

func setWithTTL(in *Instance, cmd string, args []string, scale float64) (reply.Reply, error) {
	n, err := parseInt(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	if n <= 0 {
		return reply.Reply{}, reply.Errorf("invalid expire time in '%s' command", cmd)
	}
	in.store.Write(args[0], store.NewString(args[2]), in.now()+float64(n)*scale)
	return reply.OK(), nil
}

func cmdSetEX(in *Instance, args []string) (reply.Reply, error) {
	return setWithTTL(in, "setex", args, 1)
}

func cmdPSetEX(in *Instance, args []string) (reply.Reply, error) {
	return setWithTTL(in, "psetex", args, 0.001)
}

func cmdGetSet(in *Instance, args []string) (reply.Reply, error) {
	old, err := in.store.StringOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	in.store.Write(args[0], store.NewString(args[1]), store.NoExpiry)
	return bulkOrNil(old), nil
}

// GETEX key [EX|PX|EXAT|PXAT time | PERSIST]
func cmdGetEX(in *Instance, args []string) (reply.Reply, error) {
	opts, err := getexOptions.ParseAll(args[1:])
	if err != nil {
		return reply.Reply{}, err
	}
	if opts.Has("PERSIST") && opts.Choice("EX") != "" {
		return reply.Reply{}, reply.ErrSyntax
	}
	at, hasTTL, err := in.expireAt(opts, "getex")
	if err != nil {
		return reply.Reply{}, err
	}
	s, err := in.store.StringOf(args[0])
	if err != nil || s == nil {
		return bulkOrNil(s), err
	}
	switch {
	case hasTTL:
		in.store.Expire(args[0], at)
	case opts.Has("PERSIST"):
		in.store.Persist(args[0])
	}
	return reply.Bulk(s), nil
}

func cmdGetDel(in *Instance, args []string) (reply.Reply, error) {
	s, err := in.store.StringOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	in.store.Delete(args[0])
	return bulkOrNil(s), nil
}

func cmdMGet(in *Instance, args []string) (reply.Reply, error) {
	out := make([]reply.Reply, len(args))
	for i, k := range args {
		// Keys of other kinds read as absent.
		if v, ok := in.store.LookupWeak(k, store.KindString).(store.String); ok {
			out[i] = reply.Bulk(v)
		} else {
			out[i] = reply.Nil()
		}
	}
	return reply.Array(out...), nil
}

func cmdMSet(in *Instance, args []string) (reply.Reply, error) {
	if len(args)%2 != 0 {
		return reply.Reply{}, reply.WrongArgs("mset")
	}
	for i := 0; i < len(args); i += 2 {
		in.store.Write(args[i], store.NewString(args[i+1]), store.NoExpiry)
	}
	return reply.OK(), nil
}

func cmdMSetNX(in *Instance, args []string) (reply.Reply, error) {
	if len(args)%2 != 0 {
		return reply.Reply{}, reply.WrongArgs("msetnx")
	}
	for i := 0; i < len(args); i += 2 {
		if in.store.Exists(args[i]) {
			return reply.Int(0), nil
		}
	}
	for i := 0; i < len(args); i += 2 {
		in.store.Write(args[i], store.NewString(args[i+1]), store.NoExpiry)
	}
	return reply.Int(1), nil
}

func cmdAppend(in *Instance, args []string) (reply.Reply, error) {
	s, err := in.store.StringOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	out := make(store.String, 0, len(s)+len(args[1]))
	out = append(append(out, s...), args[1]...)
	in.store.Put(args[0], out)
	return reply.Int(int64(len(out))), nil
}

func cmdStrLen(in *Instance, args []string) (reply.Reply, error) {
	s, err := in.store.StringOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Int(int64(len(s))), nil
}

func cmdGetRange(in *Instance, args []string) (reply.Reply, error) {
	start, err := parseIndex(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	stop, err := parseIndex(args[2])
	if err != nil {
		return reply.Reply{}, err
	}
	s, err := in.store.StringOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	lo, hi, ok := store.NormalizeRange(start, stop, len(s))
	if !ok {
		return reply.BulkString(""), nil
	}
	return reply.Bulk(s[lo : hi+1]), nil
}

func cmdSetRange(in *Instance, args []string) (reply.Reply, error) {
	offset, err := parseInt(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	if offset < 0 {
		return reply.Reply{}, reply.ErrOffset
	}
	s, err := in.store.StringOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	value := args[2]
	if value == "" {
		return reply.Int(int64(len(s))), nil
	}
	if offset+int64(len(value)) > maxStringSize {
		return reply.Reply{}, reply.ErrMaxSize
	}
	end := int(offset) + len(value)
	out := make(store.String, max(len(s), end))
	copy(out, s)
	copy(out[offset:], value)
	in.store.Put(args[0], out)
	return reply.Int(int64(len(out))), nil
}

func incrBy(in *Instance, key string, delta int64) (reply.Reply, error) {
	s, err := in.store.StringOf(key)
	if err != nil {
		return reply.Reply{}, err
	}
	var cur int64
	if s != nil {
		if cur, err = parseInt(string(s)); err != nil {
			return reply.Reply{}, err
		}
	}
	n, err := addInt(cur, delta)
	if err != nil {
		return reply.Reply{}, err
	}
	in.store.Put(key, store.NewString(itoa(n)))
	return reply.Int(n), nil
}

func cmdIncr(in *Instance, args []string) (reply.Reply, error) {
	return incrBy(in, args[0], 1)
}

func cmdDecr(in *Instance, args []string) (reply.Reply, error) {
	return incrBy(in, args[0], -1)
}

func cmdIncrBy(in *Instance, args []string) (reply.Reply, error) {
	delta, err := parseInt(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	return incrBy(in, args[0], delta)
}

func cmdDecrBy(in *Instance, args []string) (reply.Reply, error) {
	delta, err := parseInt(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	if delta == -1<<63 {
		return reply.Reply{}, reply.ErrOverflow
	}
	return incrBy(in, args[0], -delta)
}

func cmdIncrByFloat(in *Instance, args []string) (reply.Reply, error) {
	delta, err := parseFloat(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	s, err := in.store.StringOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	var cur float64
	if s != nil {
		if cur, err = parseFloat(string(s)); err != nil {
			return reply.Reply{}, err
		}
	}
	n := cur + delta
	if isNaNOrInf(n) {
		return reply.Reply{}, reply.ErrNaNOrInf
	}
	out := reply.FormatIncrFloat(n)
	in.store.Put(args[0], store.NewString(out))
	return reply.BulkString(out), nil
}
