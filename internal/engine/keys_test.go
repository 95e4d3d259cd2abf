package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockredis/mockredis/internal/reply"
)

func TestKeys_DelExistsType(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "set", "s", "v")
	do(t, in, "rpush", "l", "a")
	do(t, in, "hset", "h", "f", "v")
	do(t, in, "sadd", "st", "m")
	do(t, in, "zadd", "z", "1", "m")

	for key, kind := range map[string]string{"s": "string", "l": "list", "h": "hash", "st": "set", "z": "zset", "nope": "none"} {
		assert.Equal(t, kind, do(t, in, "type", key).String(), key)
	}
	assert.Equal(t, int64(3), do(t, in, "exists", "s", "s", "l").Int)
	assert.Equal(t, int64(2), do(t, in, "del", "s", "l", "nope").Int)
	assert.Equal(t, int64(1), do(t, in, "unlink", "h").Int)
	assert.Equal(t, int64(2), do(t, in, "touch", "st", "z").Int)
}

func TestKeys_PatternAndScan(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "mset", "user:1", "a", "user:2", "b", "order:1", "c")
	do(t, in, "rpush", "user:list", "x")

	assert.Equal(t, []string{"user:1", "user:2", "user:list"}, strs(t, do(t, in, "keys", "user:*")))
	assert.Equal(t, []string{"order:1", "user:1"}, strs(t, do(t, in, "keys", "*:1")))
	assert.Equal(t, []string{"user:1", "user:2"}, strs(t, do(t, in, "keys", "user:[12]")))

	r := do(t, in, "scan", "0", "MATCH", "user:*", "TYPE", "string", "COUNT", "10")
	require.Len(t, r.Array, 2)
	assert.Equal(t, "0", string(r.Array[0].Str))
	assert.Equal(t, []string{"user:1", "user:2"}, strs(t, r.Array[1]))

	r = do(t, in, "scan", "5")
	assert.Empty(t, r.Array[1].Array)

	assert.Equal(t, "ERR invalid cursor", doErr(t, in, "scan", "abc").Error())
	assert.Equal(t, reply.ErrSyntax, doErr(t, in, "scan", "0", "COUNT", "0"))
	assert.Equal(t, reply.ErrSyntax, doErr(t, in, "scan", "0", "BOGUS"))

	k := do(t, in, "randomkey")
	assert.Contains(t, []string{"user:1", "user:2", "user:list", "order:1"}, string(k.Str))
	do(t, in, "flushdb")
	assert.True(t, do(t, in, "randomkey").IsNil())
}

func TestKeys_RenameAndMove(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "set", "a", "1", "EX", "100")
	assert.Equal(t, "OK", do(t, in, "rename", "a", "b").String())
	assert.Equal(t, int64(100), do(t, in, "ttl", "b").Int)
	assert.Equal(t, reply.ErrNoSuchKey, doErr(t, in, "rename", "a", "c"))

	do(t, in, "set", "c", "3")
	assert.Equal(t, int64(0), do(t, in, "renamenx", "b", "c").Int)
	assert.Equal(t, int64(1), do(t, in, "renamenx", "b", "d").Int)

	assert.Equal(t, int64(1), do(t, in, "move", "d", "2").Int)
	assert.Equal(t, int64(0), do(t, in, "exists", "d").Int)
	assert.Equal(t, reply.ErrSameObject, doErr(t, in, "move", "c", "0"))

	do(t, in, "select", "2")
	assert.Equal(t, "1", string(do(t, in, "get", "d").Str))
	do(t, in, "set", "c", "other")
	do(t, in, "select", "0")
	assert.Equal(t, int64(0), do(t, in, "move", "c", "2").Int)
}

func TestKeys_Copy(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "rpush", "src", "a", "b")
	assert.Equal(t, int64(1), do(t, in, "copy", "src", "dst").Int)
	do(t, in, "rpush", "dst", "c")
	assert.Equal(t, []string{"a", "b"}, strs(t, do(t, in, "lrange", "src", "0", "-1")))

	assert.Equal(t, int64(0), do(t, in, "copy", "src", "dst").Int)
	assert.Equal(t, int64(1), do(t, in, "copy", "src", "dst", "REPLACE").Int)
	assert.Equal(t, int64(2), do(t, in, "llen", "dst").Int)

	assert.Equal(t, int64(1), do(t, in, "copy", "src", "src", "DB", "3").Int)
	assert.Equal(t, reply.ErrSameObject, doErr(t, in, "copy", "src", "src"))
	assert.Equal(t, int64(0), do(t, in, "copy", "missing", "x").Int)
}

func TestKeys_ExpireOptions(t *testing.T) {
	in, clock := newTestInstance(t)

	do(t, in, "set", "k", "v")
	assert.Equal(t, int64(0), do(t, in, "expire", "k", "100", "XX").Int)
	assert.Equal(t, int64(0), do(t, in, "expire", "k", "100", "GT").Int)
	assert.Equal(t, int64(1), do(t, in, "expire", "k", "100", "NX").Int)
	assert.Equal(t, int64(0), do(t, in, "expire", "k", "50", "GT").Int)
	assert.Equal(t, int64(1), do(t, in, "expire", "k", "50", "LT").Int)
	assert.Equal(t, int64(50), do(t, in, "ttl", "k").Int)
	assert.Equal(t, reply.ErrSyntax, doErr(t, in, "expire", "k", "5", "NX", "XX"))

	assert.Equal(t, int64(1), do(t, in, "pexpire", "k", "1500").Int)
	assert.Equal(t, int64(1500), do(t, in, "pttl", "k").Int)

	assert.Equal(t, int64(1), do(t, in, "expireat", "k", "1700000010").Int)
	assert.Equal(t, int64(10), do(t, in, "ttl", "k").Int)
	assert.Equal(t, int64(1), do(t, in, "pexpireat", "k", "1700000020000").Int)
	assert.Equal(t, int64(20), do(t, in, "ttl", "k").Int)

	clock.Advance(20 * time.Second)
	assert.Equal(t, int64(-2), do(t, in, "ttl", "k").Int)

	do(t, in, "set", "gone", "v")
	assert.Equal(t, int64(1), do(t, in, "expire", "gone", "-1").Int)
	assert.Equal(t, int64(0), do(t, in, "exists", "gone").Int)
	assert.Equal(t, int64(0), do(t, in, "expire", "missing", "10").Int)
	assert.Equal(t, int64(0), do(t, in, "persist", "missing").Int)
}

func TestDumpRestore_RoundTrip(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "set", "s", "hello")
	do(t, in, "rpush", "l", "a", "b", "a")
	do(t, in, "sadd", "st", "x", "y")
	do(t, in, "hset", "h", "f1", "v1", "f2", "v2")
	do(t, in, "zadd", "z", "1.5", "a", "-2", "b")

	reads := map[string][]string{
		"s":  {"get"},
		"l":  {"lrange", "0", "-1"},
		"st": {"smembers"},
		"h":  {"hgetall"},
		"z":  {"zrange", "0", "-1", "WITHSCORES"},
	}
	for key, read := range reads {
		payload := do(t, in, "dump", key)
		require.Equal(t, reply.TypeBulk, payload.Type)

		target := key + ":copy"
		assert.Equal(t, "OK", do(t, in, "restore", target, "0", string(payload.Str)).String())
		assert.Equal(t, do(t, in, "type", key).String(), do(t, in, "type", target).String())

		want := do(t, in, read[0], append([]string{key}, read[1:]...)...)
		got := do(t, in, read[0], append([]string{target}, read[1:]...)...)
		if key == "st" {
			assert.Equal(t, sorted(strs(t, want)), sorted(strs(t, got)))
		} else {
			assert.Equal(t, want.String(), got.String(), key)
		}
	}
	assert.True(t, do(t, in, "dump", "missing").IsNil())
}

func TestDumpRestore_Errors(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "set", "s", "hello")
	payload := do(t, in, "dump", "s").Str

	assert.Equal(t, reply.ErrBusyKey, doErr(t, in, "restore", "s", "0", string(payload)))
	assert.Equal(t, "OK", do(t, in, "restore", "s", "0", string(payload), "REPLACE").String())

	// Any corrupted byte in the trailer is detected.
	for i := len(payload) - 10; i < len(payload); i++ {
		bad := append([]byte(nil), payload...)
		bad[i] ^= 0xff
		e := doErr(t, in, "restore", "bad", "0", string(bad))
		assert.Equal(t, reply.KindInternal, e.Kind)
	}
	assert.Equal(t, reply.ErrDumpPayload, doErr(t, in, "restore", "bad", "0", "short"))
	assert.Equal(t, "ERR Invalid TTL value, must be >= 0", doErr(t, in, "restore", "bad", "-1", string(payload)).Error())

	do(t, in, "restore", "ttl", "5000", string(payload))
	assert.Equal(t, int64(5), do(t, in, "ttl", "ttl").Int)
	do(t, in, "restore", "abs", "1700000030000", string(payload), "ABSTTL")
	assert.Equal(t, int64(30), do(t, in, "ttl", "abs").Int)
}
