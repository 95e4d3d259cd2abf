package engine

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockredis/mockredis/internal/reply"
	"github.com/mockredis/mockredis/internal/store"
)

// fakeClock is a settable clock for TTL tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestInstance(t testing.TB) (*Instance, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	in, err := New(Config{Clock: clock.Now, Seed: 1})
	require.NoError(t, err)
	t.Cleanup(func() { in.Close() })
	return in, clock
}

// do runs a command that must succeed.
func do(t testing.TB, in *Instance, name string, args ...string) reply.Reply {
	t.Helper()
	r, err := in.Do(name, args...)
	require.NoError(t, err, "%s %v", name, args)
	return r
}

// doErr runs a command that must fail and returns its error.
func doErr(t testing.TB, in *Instance, name string, args ...string) *reply.Error {
	t.Helper()
	_, err := in.Do(name, args...)
	require.Error(t, err, "%s %v", name, args)
	var e *reply.Error
	require.True(t, errors.As(err, &e), "%s: %v is not a reply error", name, err)
	return e
}

// strs flattens an array reply of bulk strings.
func strs(t testing.TB, r reply.Reply) []string {
	t.Helper()
	require.Equal(t, reply.TypeArray, r.Type, "reply %s", r)
	out := make([]string, len(r.Array))
	for i, item := range r.Array {
		out[i] = string(item.Str)
	}
	return out
}

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func TestInstance_OpenAndClose(t *testing.T) {
	in, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, "default", in.Name())

	require.NoError(t, in.Close())
	require.NoError(t, in.Close())

	_, err = in.Do("ping")
	assert.Error(t, err)
}

func TestInstance_UnknownAndArity(t *testing.T) {
	in, _ := newTestInstance(t)

	e := doErr(t, in, "nosuchcmd", "a")
	assert.Equal(t, "ERR unknown command 'nosuchcmd'", e.Error())

	e = doErr(t, in, "GET")
	assert.Equal(t, "ERR wrong number of arguments for 'get' command", e.Error())
	assert.Equal(t, reply.KindSyntax, e.Kind)

	e = doErr(t, in, "get", "a", "b")
	assert.Equal(t, reply.KindSyntax, e.Kind)
}

func TestInstance_NotSupported(t *testing.T) {
	in, _ := newTestInstance(t)

	for _, name := range []string{"multi", "subscribe", "blpop", "pfadd"} {
		_, err := in.Do(name, "x")
		assert.True(t, reply.IsNotSupported(err), name)
	}
	assert.True(t, in.Known("MULTI"))
	assert.NotContains(t, Commands(), "multi")
}

func TestInstance_CaseInsensitiveNames(t *testing.T) {
	in, _ := newTestInstance(t)

	assert.Equal(t, "OK", do(t, in, "SeT", "k", "v").String())
	assert.Equal(t, `"v"`, do(t, in, "GET", "k").String())
}

func TestScenario_StringCounterAppend(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "set", "a", "1")
	assert.Equal(t, int64(2), do(t, in, "incr", "a").Int)
	assert.Equal(t, int64(2), do(t, in, "append", "a", "x").Int)
	assert.Equal(t, "2x", string(do(t, in, "get", "a").Str))
}

func TestScenario_ListRemove(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "rpush", "L", "a", "b", "c")
	assert.Equal(t, []string{"a", "b", "c"}, strs(t, do(t, in, "lrange", "L", "0", "-1")))
	assert.Equal(t, int64(1), do(t, in, "lrem", "L", "1", "b").Int)
	assert.Equal(t, []string{"a", "c"}, strs(t, do(t, in, "lrange", "L", "0", "-1")))
}

func TestScenario_SortedSetWithScores(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "zadd", "z", "1", "a", "2", "b")
	do(t, in, "zadd", "z", "GT", "0", "a")
	assert.Equal(t, []string{"a", "1", "b", "2"}, strs(t, do(t, in, "zrange", "z", "0", "-1", "WITHSCORES")))
}

func TestScenario_TTLAndPersist(t *testing.T) {
	in, clock := newTestInstance(t)

	do(t, in, "set", "k", "v", "EX", "100")
	assert.Equal(t, int64(100), do(t, in, "ttl", "k").Int)

	clock.Advance(10 * time.Second)
	assert.Equal(t, int64(90), do(t, in, "ttl", "k").Int)

	assert.Equal(t, int64(1), do(t, in, "persist", "k").Int)
	assert.Equal(t, int64(-1), do(t, in, "ttl", "k").Int)
}

func TestScenario_SetAlgebra(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "sadd", "s1", "x", "y")
	do(t, in, "sadd", "s2", "y", "z")
	assert.Equal(t, []string{"y"}, strs(t, do(t, in, "sinter", "s1", "s2")))
	assert.Equal(t, int64(1), do(t, in, "sdiffstore", "d", "s1", "s2").Int)
	assert.Equal(t, []string{"x"}, strs(t, do(t, in, "smembers", "d")))
}

func TestLivenessPruning(t *testing.T) {
	in, _ := newTestInstance(t)

	reads := [][]string{
		{"hget", "k", "f"},
		{"llen", "k"},
		{"lrange", "k", "0", "-1"},
		{"smembers", "k"},
		{"scard", "k"},
		{"zrange", "k", "0", "-1"},
		{"zscore", "k", "m"},
		{"hgetall", "k"},
		{"get", "k"},
		{"strlen", "k"},
		{"lpop", "k"},
		{"srem", "k", "m"},
		{"zrem", "k", "m"},
		{"hdel", "k", "f"},
		{"lpushx", "k", "v"},
		{"ltrim", "k", "0", "1"},
	}
	for _, r := range reads {
		do(t, in, r[0], r[1:]...)
		assert.Equal(t, int64(0), do(t, in, "exists", "k").Int, "%v created the key", r)
	}

	do(t, in, "sadd", "s", "a")
	do(t, in, "srem", "s", "a")
	assert.Equal(t, int64(0), do(t, in, "exists", "s").Int)
	assert.Equal(t, "none", do(t, in, "type", "s").String())
}

func TestLazyExpiry(t *testing.T) {
	in, clock := newTestInstance(t)

	do(t, in, "set", "k", "v", "PX", "1500")
	do(t, in, "rpush", "l", "a")
	do(t, in, "expire", "l", "1")
	assert.Equal(t, int64(2), do(t, in, "dbsize").Int)

	clock.Advance(time.Second)
	assert.Equal(t, int64(-2), do(t, in, "ttl", "l").Int)
	assert.Equal(t, int64(500), do(t, in, "pttl", "k").Int)

	clock.Advance(time.Second)
	assert.True(t, do(t, in, "get", "k").IsNil())
	assert.Equal(t, int64(0), do(t, in, "dbsize").Int)
}

func TestWrongType(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "set", "s", "v")
	for _, c := range [][]string{
		{"lpush", "s", "a"},
		{"hget", "s", "f"},
		{"sadd", "s", "a"},
		{"zadd", "s", "1", "a"},
		{"sinter", "s"},
	} {
		e := doErr(t, in, c[0], c[1:]...)
		assert.Equal(t, reply.KindWrongType, e.Kind, "%v", c)
		assert.Equal(t, "WRONGTYPE Operation against a key holding the wrong kind of value", e.Error())
	}
	do(t, in, "lpush", "l", "a")
	assert.Equal(t, reply.KindWrongType, doErr(t, in, "get", "l").Kind)
	assert.True(t, do(t, in, "mget", "l").Array[0].IsNil())
}

func TestSelectAndSwapDB(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "set", "k", "zero")
	do(t, in, "select", "1")
	assert.True(t, do(t, in, "get", "k").IsNil())
	do(t, in, "set", "k", "one")

	do(t, in, "swapdb", "0", "1")
	assert.Equal(t, "zero", string(do(t, in, "get", "k").Str))

	do(t, in, "select", "0")
	assert.Equal(t, "one", string(do(t, in, "get", "k").Str))

	assert.Equal(t, reply.ErrDBIndex, doErr(t, in, "select", "-1"))
}

func TestPipeline(t *testing.T) {
	in, _ := newTestInstance(t)

	p := in.Pipeline().
		Queue("set", "a", "1").
		Queue("incr", "a").
		Queue("lpush", "a", "x").
		Queue("get", "a")
	assert.Equal(t, 4, p.Len())

	res := p.Exec()
	require.Len(t, res, 4)
	assert.NoError(t, res[0].Err)
	assert.Equal(t, int64(2), res[1].Reply.Int)
	assert.ErrorIs(t, res[2].Err, reply.ErrWrongType)
	assert.Equal(t, "2", string(res[3].Reply.Str))
	assert.Equal(t, 0, p.Len())
}

type recordingObserver struct {
	names  []string
	errors int
}

func (o *recordingObserver) ObserveCommand(name string, _ time.Duration, err error) {
	o.names = append(o.names, name)
	if err != nil {
		o.errors++
	}
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	in, err := New(Config{Observer: obs})
	require.NoError(t, err)
	defer in.Close()

	in.Do("SET", "k", "v")
	in.Do("lpush", "k", "v")
	in.Do("NoSuchCommand")
	assert.Equal(t, []string{"set", "lpush", "unknown"}, obs.names)
	assert.Equal(t, 2, obs.errors)
}

func TestStats(t *testing.T) {
	in, clock := newTestInstance(t)

	do(t, in, "set", "a", "1")
	do(t, in, "set", "b", "2", "EX", "100")
	do(t, in, "select", "2")
	do(t, in, "set", "c", "3")
	clock.Advance(5 * time.Second)

	st := in.Stats()
	assert.Equal(t, "default", st.Name)
	assert.Equal(t, 5*time.Second, st.Uptime)
	assert.Equal(t, int64(4), st.Commands)
	assert.Equal(t, []DBStats{{Index: 0, Keys: 2, Expires: 1}, {Index: 2, Keys: 1}}, st.DBs)
	assert.Equal(t, "3", string(do(t, in, "get", "c").Str), "selected database is kept")
}

// memoryPersister keeps saved key spaces by name.
type memoryPersister struct {
	saved map[string]*store.Keyspace
	saves int
}

func (m *memoryPersister) Load(name string, _ float64) (*store.Keyspace, error) {
	if ks, ok := m.saved[name]; ok {
		return ks, nil
	}
	ks := store.NewKeyspace()
	m.saved[name] = ks
	return ks, nil
}

func (m *memoryPersister) LastSave(string) time.Time { return time.Time{} }

func (m *memoryPersister) Save(name string, ks *store.Keyspace, _ float64) error {
	m.saved[name] = ks
	m.saves++
	return nil
}

func TestPersisterSharedByName(t *testing.T) {
	p := &memoryPersister{saved: map[string]*store.Keyspace{}}

	a, err := New(Config{Name: "shared", Persister: p})
	require.NoError(t, err)
	do(t, a, "set", "k", "v")
	require.NoError(t, a.Close())
	assert.Equal(t, 1, p.saves)

	b, err := New(Config{Name: "shared", Persister: p})
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, "v", string(do(t, b, "get", "k").Str))

	c, err := New(Config{Name: "other", Persister: p})
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, do(t, c, "get", "k").IsNil())
}

func TestServerCommands(t *testing.T) {
	in, clock := newTestInstance(t)

	assert.Equal(t, "PONG", do(t, in, "ping").String())
	assert.Equal(t, "hi", string(do(t, in, "ping", "hi").Str))
	assert.Equal(t, "hi", string(do(t, in, "echo", "hi").Str))

	tm := strs(t, do(t, in, "time"))
	assert.Equal(t, []string{"1700000000", "0"}, tm)

	do(t, in, "set", "a", "1")
	assert.Equal(t, "OK", do(t, in, "save").String())
	assert.Equal(t, "Background saving started", do(t, in, "bgsave").String())
	assert.Equal(t, int64(1700000000), do(t, in, "lastsave").Int)

	clock.Advance(5 * time.Second)
	info := string(do(t, in, "info").Str)
	assert.Contains(t, info, "uptime_in_seconds:5")
	assert.Contains(t, info, "db0:keys=1,expires=0")
	assert.NotContains(t, string(do(t, in, "info", "server").Str), "# Keyspace")

	assert.Equal(t, "OK", do(t, in, "debug", "reload").String())
	assert.Equal(t, "1", string(do(t, in, "get", "a").Str))

	do(t, in, "flushall", "ASYNC")
	assert.Equal(t, int64(0), do(t, in, "dbsize").Int)
	assert.Equal(t, reply.ErrSyntax, doErr(t, in, "flushdb", "LATER"))
}

func TestCommandIntrospection(t *testing.T) {
	in, _ := newTestInstance(t)

	count := do(t, in, "command", "count").Int
	assert.Equal(t, int64(len(Commands())), count)

	info := do(t, in, "command", "info", "get", "nosuch")
	require.Len(t, info.Array, 2)
	assert.Equal(t, "get", string(info.Array[0].Array[0].Str))
	assert.Equal(t, int64(2), info.Array[0].Array[1].Int)
	assert.True(t, info.Array[1].IsNil())
}
