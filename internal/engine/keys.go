package engine

import (
	"math"
	"strings"

	"github.com/mockredis/mockredis/internal/codec"
	"github.com/mockredis/mockredis/internal/option"
	"github.com/mockredis/mockredis/internal/reply"
	"github.com/mockredis/mockredis/internal/store"
)

func init() {
	register("del", -2, "write", 1, -1, 1, cmdDel)
	register("unlink", -2, "write fast", 1, -1, 1, cmdDel)
	register("exists", -2, "readonly fast", 1, -1, 1, cmdExists)
	register("touch", -2, "readonly fast", 1, -1, 1, cmdExists)
	register("type", 2, "readonly fast", 1, 1, 1, cmdType)
	register("keys", 2, "readonly", 0, 0, 0, cmdKeys)
	register("scan", -2, "readonly random", 0, 0, 0, cmdScan)
	register("randomkey", 1, "readonly random", 0, 0, 0, cmdRandomKey)
	register("rename", 3, "write", 1, 2, 1, cmdRename)
	register("renamenx", 3, "write fast", 1, 2, 1, cmdRenameNX)
	register("move", 3, "write fast", 1, 1, 1, cmdMove)
	register("copy", -3, "write denyoom", 1, 2, 1, cmdCopy)
	register("expire", -3, "write fast", 1, 1, 1, cmdExpire)
	register("pexpire", -3, "write fast", 1, 1, 1, cmdPExpire)
	register("expireat", -3, "write fast", 1, 1, 1, cmdExpireAt)
	register("pexpireat", -3, "write fast", 1, 1, 1, cmdPExpireAt)
	register("ttl", 2, "readonly random fast", 1, 1, 1, cmdTTL)
	register("pttl", 2, "readonly random fast", 1, 1, 1, cmdPTTL)
	register("persist", 2, "write fast", 1, 1, 1, cmdPersist)
	register("dump", 2, "readonly random", 1, 1, 1, cmdDump)
	register("restore", -4, "write denyoom", 1, 1, 1, cmdRestore)
}

var (
	expireOptions  = option.MustCompile("[NX|XX|GT|LT]")
	scanOptions    = option.MustCompile("[MATCH pattern] [COUNT count] [TYPE type]")
	copyOptions    = option.MustCompile("[DB db] [REPLACE]")
	restoreOptions = option.MustCompile("[REPLACE] [ABSTTL] [IDLETIME seconds] [FREQ frequency]")
)

func cmdDel(in *Instance, args []string) (reply.Reply, error) {
	return reply.Int(int64(in.store.Delete(args...))), nil
}

func cmdExists(in *Instance, args []string) (reply.Reply, error) {
	n := 0
	for _, k := range args {
		if in.store.Exists(k) {
			n++
		}
	}
	return reply.Int(int64(n)), nil
}

func cmdType(in *Instance, args []string) (reply.Reply, error) {
	return reply.Status(in.store.Type(args[0]).String()), nil
}

func cmdKeys(in *Instance, args []string) (reply.Reply, error) {
	return reply.Strings(in.store.Keys(args[0])), nil
}

// scanReply is the two element reply of the SCAN family. The cursor is
// always "0": every scan completes in one pass.
func scanReply(items reply.Reply) reply.Reply {
	return reply.Array(reply.BulkString("0"), items)
}

// parseScan validates the cursor and options of a SCAN-family command.
// A non-zero cursor continues a finished scan and yields nothing.
func parseScan(cursor string, args []string) (option.Options, bool, error) {
	c, err := parseInt(cursor)
	if err != nil {
		return option.Options{}, false, reply.Errorf("invalid cursor")
	}
	opts, err := scanOptions.ParseAll(args)
	if err != nil {
		return option.Options{}, false, err
	}
	if count, ok := opts.Arg("COUNT"); ok {
		n, err := parseInt(count)
		if err != nil {
			return option.Options{}, false, err
		}
		if n < 1 {
			return option.Options{}, false, reply.ErrSyntax
		}
	}
	return opts, c == 0, nil
}

// SCAN cursor [MATCH pattern] [COUNT count] [TYPE type]
func cmdScan(in *Instance, args []string) (reply.Reply, error) {
	opts, first, err := parseScan(args[0], args[1:])
	if err != nil || !first {
		return scanReply(reply.Array()), err
	}
	pattern, _ := opts.Arg("MATCH")
	var kind store.Kind
	if t, ok := opts.Arg("TYPE"); ok {
		if kind, ok = store.ParseKind(strings.ToLower(t)); !ok {
			return scanReply(reply.Array()), nil
		}
	}
	return scanReply(reply.Strings(in.store.Scan(pattern, kind))), nil
}

func cmdRandomKey(in *Instance, args []string) (reply.Reply, error) {
	k, ok := in.store.RandomKey(in.rnd)
	if !ok {
		return reply.Nil(), nil
	}
	return reply.BulkString(k), nil
}

func cmdRename(in *Instance, args []string) (reply.Reply, error) {
	if err := in.store.Rename(args[0], args[1]); err != nil {
		return reply.Reply{}, err
	}
	return reply.OK(), nil
}

func cmdRenameNX(in *Instance, args []string) (reply.Reply, error) {
	if !in.store.Exists(args[0]) {
		return reply.Reply{}, reply.ErrNoSuchKey
	}
	if in.store.Exists(args[1]) {
		return reply.Int(0), nil
	}
	if err := in.store.Rename(args[0], args[1]); err != nil {
		return reply.Reply{}, err
	}
	return reply.Int(1), nil
}

func parseDB(s string) (int, error) {
	n, err := parseInt(s)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxInt32 {
		return 0, reply.ErrDBIndex
	}
	return int(n), nil
}

func cmdMove(in *Instance, args []string) (reply.Reply, error) {
	db, err := parseDB(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	if db == in.store.Index() {
		return reply.Reply{}, reply.ErrSameObject
	}
	return reply.Bool(in.store.Move(args[0], db)), nil
}

// COPY source destination [DB db] [REPLACE]
func cmdCopy(in *Instance, args []string) (reply.Reply, error) {
	opts, err := copyOptions.ParseAll(args[2:])
	if err != nil {
		return reply.Reply{}, err
	}
	src, dst := args[0], args[1]
	db := in.store.Index()
	if v, ok := opts.Arg("DB"); ok {
		if db, err = parseDB(v); err != nil {
			return reply.Reply{}, err
		}
	}
	if src == dst && db == in.store.Index() {
		return reply.Reply{}, reply.ErrSameObject
	}
	e, ok := in.store.Get(src)
	if !ok {
		return reply.Int(0), nil
	}
	value, expire := e.Value.Clone(), e.ExpireAt

	cur := in.store.Index()
	in.store.Select(db)
	defer in.store.Select(cur)
	if in.store.Exists(dst) && !opts.Has("REPLACE") {
		return reply.Int(0), nil
	}
	in.store.Write(dst, value, expire)
	return reply.Int(1), nil
}

// expire sets the expiry of key to at, honoring NX|XX|GT|LT.
func expire(in *Instance, key string, at float64, opts []string) (reply.Reply, error) {
	o, err := expireOptions.ParseAll(opts)
	if err != nil {
		return reply.Reply{}, err
	}
	e, ok := in.store.Get(key)
	if !ok {
		return reply.Int(0), nil
	}
	cur := e.ExpireAt
	// A key without a TTL counts as an infinite TTL for GT and LT.
	switch o.Choice("NX") {
	case "NX":
		if e.HasExpire() {
			return reply.Int(0), nil
		}
	case "XX":
		if !e.HasExpire() {
			return reply.Int(0), nil
		}
	case "GT":
		if !e.HasExpire() || at <= cur {
			return reply.Int(0), nil
		}
	case "LT":
		if e.HasExpire() && at >= cur {
			return reply.Int(0), nil
		}
	}
	return reply.Bool(in.store.Expire(key, at)), nil
}

func cmdExpire(in *Instance, args []string) (reply.Reply, error) {
	n, err := parseInt(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	return expire(in, args[0], in.now()+float64(n), args[2:])
}

func cmdPExpire(in *Instance, args []string) (reply.Reply, error) {
	n, err := parseInt(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	return expire(in, args[0], in.now()+float64(n)/1000, args[2:])
}

func cmdExpireAt(in *Instance, args []string) (reply.Reply, error) {
	n, err := parseInt(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	return expire(in, args[0], float64(n), args[2:])
}

func cmdPExpireAt(in *Instance, args []string) (reply.Reply, error) {
	n, err := parseInt(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	return expire(in, args[0], float64(n)/1000, args[2:])
}

func ttl(in *Instance, key string, scale float64) reply.Reply {
	t := in.store.TTL(key)
	if t < 0 {
		return reply.Int(int64(t))
	}
	return reply.Int(int64(math.Round(t * scale)))
}

func cmdTTL(in *Instance, args []string) (reply.Reply, error) {
	return ttl(in, args[0], 1), nil
}

func cmdPTTL(in *Instance, args []string) (reply.Reply, error) {
	return ttl(in, args[0], 1000), nil
}

func cmdPersist(in *Instance, args []string) (reply.Reply, error) {
	return reply.Bool(in.store.Persist(args[0])), nil
}

func cmdDump(in *Instance, args []string) (reply.Reply, error) {
	e, ok := in.store.Get(args[0])
	if !ok {
		return reply.Nil(), nil
	}
	return reply.Bulk(codec.Dump(e.Value)), nil
}

// RESTORE key ttl serialized-value [REPLACE] [ABSTTL] [IDLETIME seconds] [FREQ frequency]
func cmdRestore(in *Instance, args []string) (reply.Reply, error) {
	key := args[0]
	n, err := parseInt(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	if n < 0 {
		return reply.Reply{}, reply.Errorf("Invalid TTL value, must be >= 0")
	}
	opts, err := restoreOptions.ParseAll(args[3:])
	if err != nil {
		return reply.Reply{}, err
	}
	if in.store.Exists(key) && !opts.Has("REPLACE") {
		return reply.Reply{}, reply.ErrBusyKey
	}
	value, err := codec.Restore([]byte(args[2]))
	if err != nil {
		in.logger.Printf("engine: RESTORE %q rejected: %v", key, err)
		return reply.Reply{}, err
	}
	at := store.NoExpiry
	switch {
	case n > 0 && opts.Has("ABSTTL"):
		at = float64(n) / 1000
	case n > 0:
		at = in.now() + float64(n)/1000
	}
	in.store.Write(key, value, at)
	return reply.OK(), nil
}
