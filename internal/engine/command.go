package engine

import (
	"sort"
	"strings"

	"github.com/mockredis/mockredis/internal/reply"
)

type handler func(in *Instance, args []string) (reply.Reply, error)

// command describes one entry of the dispatch table.
type command struct {
	name  string
	arity int // Redis style: negative means "at least -arity"
	flags []string
	first int
	last  int
	step  int
	run   handler
}

func (c *command) arityOK(n int) bool {
	if c.arity < 0 {
		return n >= -c.arity
	}
	return n == c.arity
}

func (c *command) has(flag string) bool {
	for _, f := range c.flags {
		if f == flag {
			return true
		}
	}
	return false
}

// commands is filled by the init functions of the per-family files.
var commands = make(map[string]*command)

// register adds a command. flags is a space separated list such as "write fast".
func register(name string, arity int, flags string, first, last, step int, run handler) {
	if _, dup := commands[name]; dup {
		panic("engine: command registered twice: " + name)
	}
	commands[name] = &command{
		name:  name,
		arity: arity,
		flags: strings.Fields(flags),
		first: first,
		last:  last,
		step:  step,
		run:   run,
	}
}

// Commands returns the names of all implemented commands, sorted.
func Commands() []string {
	var out []string
	for name, c := range commands {
		if !c.has("notsupported") {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (c *command) info() reply.Reply {
	return reply.Array(
		reply.BulkString(c.name),
		reply.Int(int64(c.arity)),
		reply.Strings(c.flags),
		reply.Int(int64(c.first)),
		reply.Int(int64(c.last)),
		reply.Int(int64(c.step)),
	)
}

func init() {
	register("command", -1, "loading stale", 0, 0, 0, cmdCommand)
}

// COMMAND [COUNT | INFO name... | LIST]
func cmdCommand(in *Instance, args []string) (reply.Reply, error) {
	names := Commands()
	if len(args) == 0 {
		out := make([]reply.Reply, len(names))
		for i, n := range names {
			out[i] = commands[n].info()
		}
		return reply.Array(out...), nil
	}
	switch strings.ToUpper(args[0]) {
	case "COUNT":
		if len(args) != 1 {
			return reply.Reply{}, reply.ErrSyntax
		}
		return reply.Int(int64(len(names))), nil
	case "LIST":
		return reply.Strings(names), nil
	case "INFO":
		out := make([]reply.Reply, len(args)-1)
		for i, n := range args[1:] {
			c, ok := commands[strings.ToLower(n)]
			if !ok || c.has("notsupported") {
				out[i] = reply.NilArray()
				continue
			}
			out[i] = c.info()
		}
		return reply.Array(out...), nil
	}
	return reply.Reply{}, reply.Errorf("unknown subcommand '%s'. Try COMMAND HELP.", args[0])
}

// Deliberately absent commands fail fast instead of silently doing nothing.
var unsupported = []string{
	"multi", "exec", "discard", "watch", "unwatch",
	"subscribe", "psubscribe", "unsubscribe", "punsubscribe", "publish", "pubsub",
	"cluster", "readonly", "readwrite", "asking",
	"blpop", "brpop", "brpoplpush", "blmove", "bzpopmin", "bzpopmax",
	"geoadd", "geodist", "geohash", "geopos", "georadius", "georadiusbymember", "geosearch",
	"pfadd", "pfcount", "pfmerge",
	"bitfield", "wait", "monitor", "sync", "psync", "replicaof", "slaveof",
}

func init() {
	for _, name := range unsupported {
		name := name
		register(name, -1, "notsupported", 0, 0, 0, func(*Instance, []string) (reply.Reply, error) {
			return reply.Reply{}, reply.NotSupported(name)
		})
	}
}
