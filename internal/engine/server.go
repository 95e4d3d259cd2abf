package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/mockredis/mockredis/internal/reply"
	"github.com/mockredis/mockredis/internal/version"
)

func init() {
	register("ping", -1, "stale fast", 0, 0, 0, cmdPing)
	register("echo", 2, "fast", 0, 0, 0, cmdEcho)
	register("select", 2, "loading stale fast", 0, 0, 0, cmdSelect)
	register("swapdb", 3, "write fast", 0, 0, 0, cmdSwapDB)
	register("dbsize", 1, "readonly fast", 0, 0, 0, cmdDBSize)
	register("flushdb", -1, "write", 0, 0, 0, cmdFlushDB)
	register("flushall", -1, "write", 0, 0, 0, cmdFlushAll)
	register("save", 1, "admin noscript", 0, 0, 0, cmdSave)
	register("bgsave", -1, "admin noscript", 0, 0, 0, cmdBgSave)
	register("lastsave", 1, "random fast", 0, 0, 0, cmdLastSave)
	register("time", 1, "random fast", 0, 0, 0, cmdTime)
	register("info", -1, "random loading stale", 0, 0, 0, cmdInfo)
	register("debug", -2, "admin noscript", 0, 0, 0, cmdDebug)
	register("quit", 1, "fast", 0, 0, 0, cmdQuit)
}

func cmdPing(in *Instance, args []string) (reply.Reply, error) {
	switch len(args) {
	case 0:
		return reply.Status("PONG"), nil
	case 1:
		return reply.BulkString(args[0]), nil
	}
	return reply.Reply{}, reply.WrongArgs("ping")
}

func cmdEcho(in *Instance, args []string) (reply.Reply, error) {
	return reply.BulkString(args[0]), nil
}

func cmdSelect(in *Instance, args []string) (reply.Reply, error) {
	db, err := parseDB(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	in.store.Select(db)
	return reply.OK(), nil
}

func cmdSwapDB(in *Instance, args []string) (reply.Reply, error) {
	a, err := parseIntAs(args[0], reply.Errorf("invalid first DB index"))
	if err != nil {
		return reply.Reply{}, err
	}
	b, err := parseIntAs(args[1], reply.Errorf("invalid second DB index"))
	if err != nil {
		return reply.Reply{}, err
	}
	if a < 0 || b < 0 {
		return reply.Reply{}, reply.ErrDBIndex
	}
	in.store.SwapDatabases(int(a), int(b))
	return reply.OK(), nil
}

func cmdDBSize(in *Instance, args []string) (reply.Reply, error) {
	return reply.Int(int64(in.store.Size())), nil
}

// flushMode accepts the optional ASYNC|SYNC argument. Both flush at once.
func flushMode(cmd string, args []string) error {
	switch len(args) {
	case 0:
		return nil
	case 1:
		if m := strings.ToUpper(args[0]); m == "ASYNC" || m == "SYNC" {
			return nil
		}
		return reply.ErrSyntax
	}
	return reply.WrongArgs(cmd)
}

func cmdFlushDB(in *Instance, args []string) (reply.Reply, error) {
	if err := flushMode("flushdb", args); err != nil {
		return reply.Reply{}, err
	}
	in.store.Flush()
	return reply.OK(), nil
}

func cmdFlushAll(in *Instance, args []string) (reply.Reply, error) {
	if err := flushMode("flushall", args); err != nil {
		return reply.Reply{}, err
	}
	in.store.FlushAll()
	return reply.OK(), nil
}

func cmdSave(in *Instance, args []string) (reply.Reply, error) {
	if err := in.Save(); err != nil {
		in.logger.Printf("engine: SAVE failed: %v", err)
		return reply.Reply{}, reply.New(reply.KindInternal, "ERR", err.Error())
	}
	return reply.OK(), nil
}

// BGSAVE [SCHEDULE] saves synchronously; the reply matches the background form.
func cmdBgSave(in *Instance, args []string) (reply.Reply, error) {
	if len(args) > 1 || len(args) == 1 && strings.ToUpper(args[0]) != "SCHEDULE" {
		return reply.Reply{}, reply.ErrSyntax
	}
	if err := in.Save(); err != nil {
		in.logger.Printf("engine: BGSAVE failed: %v", err)
		return reply.Reply{}, reply.New(reply.KindInternal, "ERR", err.Error())
	}
	return reply.Status("Background saving started"), nil
}

func cmdLastSave(in *Instance, args []string) (reply.Reply, error) {
	t := in.persister.LastSave(in.name)
	if t.IsZero() {
		t = in.startTime
	}
	return reply.Int(t.Unix()), nil
}

func cmdTime(in *Instance, args []string) (reply.Reply, error) {
	now := in.clock()
	return reply.Array(
		reply.BulkString(itoa(now.Unix())),
		reply.BulkString(itoa(int64(now.Nanosecond()/1000))),
	), nil
}

// INFO [section]
func cmdInfo(in *Instance, args []string) (reply.Reply, error) {
	if len(args) > 1 {
		return reply.Reply{}, reply.ErrSyntax
	}
	section := "all"
	if len(args) == 1 {
		section = strings.ToLower(args[0])
	}
	var b strings.Builder
	show := func(name string) bool {
		return section == "all" || section == "default" || section == "everything" || section == name
	}
	st := in.Stats()
	if show("server") {
		fmt.Fprintf(&b, "# Server\r\n")
		fmt.Fprintf(&b, "redis_version:%s\r\n", version.RedisCompat)
		fmt.Fprintf(&b, "mockredis_version:%s\r\n", version.Version)
		fmt.Fprintf(&b, "server_name:%s\r\n", st.Name)
		fmt.Fprintf(&b, "uptime_in_seconds:%d\r\n", int64(st.Uptime/time.Second))
		fmt.Fprintf(&b, "\r\n")
	}
	if show("stats") {
		fmt.Fprintf(&b, "# Stats\r\n")
		fmt.Fprintf(&b, "total_commands_processed:%d\r\n", st.Commands)
		fmt.Fprintf(&b, "\r\n")
	}
	if show("keyspace") {
		fmt.Fprintf(&b, "# Keyspace\r\n")
		for _, db := range st.DBs {
			fmt.Fprintf(&b, "db%d:keys=%d,expires=%d\r\n", db.Index, db.Keys, db.Expires)
		}
	}
	return reply.BulkString(b.String()), nil
}

// DBStats counts the live keys of one database.
type DBStats struct {
	Index   int
	Keys    int
	Expires int
}

// Stats is a point-in-time summary of an Instance.
type Stats struct {
	Name     string
	Uptime   time.Duration
	Commands int64
	LastSave time.Time
	// DBs holds the non-empty databases in index order.
	DBs []DBStats
}

// Stats summarizes the instance. Like commands, it must not run
// concurrently with other calls.
func (in *Instance) Stats() Stats {
	st := Stats{
		Name:     in.name,
		Uptime:   in.clock().Sub(in.startTime),
		Commands: in.totalCommands,
		LastSave: in.persister.LastSave(in.name),
	}
	cur := in.store.Index()
	defer in.store.Select(cur)
	for _, i := range in.store.Keyspace().Indexes() {
		in.store.Select(i)
		db := DBStats{Index: i}
		for _, k := range in.store.Keys("") {
			db.Keys++
			if e, ok := in.store.Get(k); ok && e.HasExpire() {
				db.Expires++
			}
		}
		if db.Keys > 0 {
			st.DBs = append(st.DBs, db)
		}
	}
	return st
}

// DEBUG RELOAD saves and reloads the key space.
func cmdDebug(in *Instance, args []string) (reply.Reply, error) {
	switch strings.ToUpper(args[0]) {
	case "RELOAD":
		if err := in.Reload(); err != nil {
			in.logger.Printf("engine: DEBUG RELOAD failed: %v", err)
			return reply.Reply{}, reply.New(reply.KindInternal, "ERR", err.Error())
		}
		return reply.OK(), nil
	}
	return reply.Reply{}, reply.NotSupported("debug " + strings.ToLower(args[0]))
}

// QUIT replies OK; closing the connection is up to the front end.
func cmdQuit(in *Instance, args []string) (reply.Reply, error) {
	return reply.OK(), nil
}
