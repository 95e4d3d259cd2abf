package engine

import (
	"fmt"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockredis/mockredis/internal/reply"
)

func TestZAdd_Options(t *testing.T) {
	in, _ := newTestInstance(t)

	assert.Equal(t, int64(2), do(t, in, "zadd", "z", "1", "a", "2", "b").Int)
	assert.Equal(t, int64(0), do(t, in, "zadd", "z", "NX", "5", "a").Int)
	assert.Equal(t, "1", string(do(t, in, "zscore", "z", "a").Str))
	assert.Equal(t, int64(0), do(t, in, "zadd", "z", "XX", "5", "c").Int)
	assert.True(t, do(t, in, "zscore", "z", "c").IsNil())

	assert.Equal(t, int64(1), do(t, in, "zadd", "z", "CH", "3", "a", "2", "b").Int)
	assert.Equal(t, int64(2), do(t, in, "zadd", "z", "CH", "4", "a", "9", "d").Int)

	do(t, in, "zadd", "z", "GT", "1", "a")
	assert.Equal(t, "4", string(do(t, in, "zscore", "z", "a").Str))
	do(t, in, "zadd", "z", "LT", "1", "a")
	assert.Equal(t, "1", string(do(t, in, "zscore", "z", "a").Str))

	assert.Equal(t, "3.5", string(do(t, in, "zadd", "z", "INCR", "2.5", "a").Str))
	assert.True(t, do(t, in, "zadd", "z", "NX", "INCR", "1", "a").IsNil())

	assert.Equal(t, "ERR INCR option supports a single increment-element pair",
		doErr(t, in, "zadd", "z", "INCR", "1", "a", "2", "b").Error())
	assert.Equal(t, "ERR GT, LT, and/or NX options at the same time are not compatible",
		doErr(t, in, "zadd", "z", "NX", "GT", "1", "a").Error())
	assert.Equal(t, reply.ErrSyntax, doErr(t, in, "zadd", "z", "NX", "XX", "1", "a"))
	assert.Equal(t, reply.ErrSyntax, doErr(t, in, "zadd", "z", "1", "a", "2"))
}

func TestZAdd_ValidatesBeforeMutating(t *testing.T) {
	in, _ := newTestInstance(t)

	assert.Equal(t, reply.ErrNotFloat, doErr(t, in, "zadd", "z", "1", "a", "x", "b"))
	assert.Equal(t, int64(0), do(t, in, "exists", "z").Int)

	do(t, in, "zadd", "z", "inf", "a")
	assert.Equal(t, reply.ErrScoreNaN, doErr(t, in, "zadd", "z", "INCR", "-inf", "a"))
	assert.Equal(t, reply.ErrScoreNaN, doErr(t, in, "zincrby", "z", "-inf", "a"))
	assert.Equal(t, "inf", string(do(t, in, "zscore", "z", "a").Str))
}

func TestZSet_CanonicalOrder(t *testing.T) {
	in, _ := newTestInstance(t)
	rnd := rand.New(rand.NewSource(7))

	members := []string{"a", "b", "c", "d", "e", "f"}
	for i := 0; i < 200; i++ {
		m := members[rnd.Intn(len(members))]
		switch rnd.Intn(3) {
		case 0:
			do(t, in, "zadd", "z", strconv.Itoa(rnd.Intn(4)), m)
		case 1:
			do(t, in, "zincrby", "z", strconv.Itoa(rnd.Intn(3)-1), m)
		case 2:
			do(t, in, "zrem", "z", m)
		}

		got := strs(t, do(t, in, "zrange", "z", "0", "-1", "WITHSCORES"))
		for j := 2; j < len(got); j += 2 {
			prev, _ := strconv.ParseFloat(got[j-1], 64)
			cur, _ := strconv.ParseFloat(got[j+1], 64)
			ordered := prev < cur || prev == cur && got[j-2] < got[j]
			require.True(t, ordered, "step %d: %v", i, got)
		}
	}
}

func TestZSet_Basics(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "zadd", "z", "1", "a", "2", "b", "3", "c")
	assert.Equal(t, int64(3), do(t, in, "zcard", "z").Int)
	assert.Equal(t, int64(1), do(t, in, "zrank", "z", "b").Int)
	assert.Equal(t, int64(0), do(t, in, "zrevrank", "z", "c").Int)
	assert.True(t, do(t, in, "zrank", "z", "zz").IsNil())
	assert.Equal(t, []string{"1", "", "3"}, strs(t, do(t, in, "zmscore", "z", "a", "zz", "c")))
	assert.Equal(t, "2.5", string(do(t, in, "zincrby", "z", "0.5", "b").Str))
	assert.Equal(t, int64(2), do(t, in, "zrem", "z", "a", "b", "zz").Int)
	do(t, in, "zrem", "z", "c")
	assert.Equal(t, int64(0), do(t, in, "exists", "z").Int)
}

func TestZRange_Forms(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "zadd", "z", "1", "a", "2", "b", "3", "c", "4", "d")

	assert.Equal(t, []string{"b", "c"}, strs(t, do(t, in, "zrange", "z", "1", "2")))
	assert.Equal(t, []string{"d", "c"}, strs(t, do(t, in, "zrevrange", "z", "0", "1")))
	assert.Equal(t, []string{"d", "4"}, strs(t, do(t, in, "zrevrange", "z", "0", "0", "WITHSCORES")))
	assert.Equal(t, []string{"c", "b"}, strs(t, do(t, in, "zrange", "z", "1", "2", "REV")))

	assert.Equal(t, []string{"b", "c"}, strs(t, do(t, in, "zrangebyscore", "z", "(1", "3")))
	assert.Equal(t, []string{"a", "b", "c", "d"}, strs(t, do(t, in, "zrangebyscore", "z", "-inf", "+inf")))
	assert.Equal(t, []string{"c", "3"}, strs(t, do(t, in, "zrangebyscore", "z", "2", "4", "WITHSCORES", "LIMIT", "1", "1")))
	assert.Equal(t, []string{"c", "b"}, strs(t, do(t, in, "zrevrangebyscore", "z", "3", "(1")))
	assert.Equal(t, []string{"d", "c"}, strs(t, do(t, in, "zrange", "z", "+inf", "3", "BYSCORE", "REV")))
	assert.Equal(t, []string{"b", "c", "d"}, strs(t, do(t, in, "zrange", "z", "2", "10", "BYSCORE", "LIMIT", "0", "-1")))
	assert.Empty(t, strs(t, do(t, in, "zrange", "z", "1", "4", "BYSCORE", "LIMIT", "-1", "2")))

	assert.Equal(t, reply.ErrMinMaxFloat, doErr(t, in, "zrangebyscore", "z", "x", "1"))
	assert.Equal(t, "ERR syntax error, LIMIT is only supported in combination with either BYSCORE or BYLEX",
		doErr(t, in, "zrange", "z", "0", "1", "LIMIT", "0", "1").Error())
	assert.Equal(t, reply.ErrSyntax, doErr(t, in, "zrange", "z", "0", "1", "BYSCORE", "BYLEX"))
}

func TestZRange_Lex(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "zadd", "z", "0", "a", "0", "b", "0", "c", "0", "d")
	assert.Equal(t, []string{"a", "b", "c"}, strs(t, do(t, in, "zrangebylex", "z", "-", "[c")))
	assert.Equal(t, []string{"b"}, strs(t, do(t, in, "zrangebylex", "z", "(a", "(c")))
	assert.Equal(t, []string{"d", "c"}, strs(t, do(t, in, "zrevrangebylex", "z", "+", "[c")))
	assert.Equal(t, []string{"b", "c"}, strs(t, do(t, in, "zrange", "z", "[b", "+", "BYLEX", "LIMIT", "0", "2")))
	assert.Equal(t, int64(2), do(t, in, "zlexcount", "z", "[b", "[c").Int)
	assert.Equal(t, reply.ErrMinMaxLex, doErr(t, in, "zrangebylex", "z", "a", "+"))
	assert.Equal(t, "ERR syntax error, WITHSCORES not supported in combination with BYLEX",
		doErr(t, in, "zrange", "z", "-", "+", "BYLEX", "WITHSCORES").Error())
}

func TestZSet_CountAndRemoveRanges(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "zadd", "z", "1", "a", "2", "b", "3", "c", "4", "d", "5", "e")
	assert.Equal(t, int64(3), do(t, in, "zcount", "z", "2", "4").Int)
	assert.Equal(t, int64(1), do(t, in, "zcount", "z", "(2", "(4").Int)

	assert.Equal(t, int64(2), do(t, in, "zremrangebyrank", "z", "0", "1").Int)
	assert.Equal(t, int64(1), do(t, in, "zremrangebyscore", "z", "(3", "4").Int)
	assert.Equal(t, []string{"c", "e"}, strs(t, do(t, in, "zrange", "z", "0", "-1")))
	assert.Equal(t, int64(2), do(t, in, "zremrangebylex", "z", "-", "+").Int)
	assert.Equal(t, int64(0), do(t, in, "exists", "z").Int)
}

func TestZStore_UnionInter(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "zadd", "z1", "1", "a", "2", "b")
	do(t, in, "zadd", "z2", "10", "b", "20", "c")
	do(t, in, "sadd", "s", "a", "c")

	assert.Equal(t, int64(3), do(t, in, "zunionstore", "u", "2", "z1", "z2").Int)
	assert.Equal(t, []string{"a", "1", "b", "12", "c", "20"}, strs(t, do(t, in, "zrange", "u", "0", "-1", "WITHSCORES")))

	do(t, in, "zunionstore", "u", "2", "z1", "z2", "WEIGHTS", "2", "0.5", "AGGREGATE", "MAX")
	assert.Equal(t, []string{"a", "2", "b", "5", "c", "10"}, strs(t, do(t, in, "zrange", "u", "0", "-1", "WITHSCORES")))

	assert.Equal(t, int64(1), do(t, in, "zinterstore", "i", "2", "z1", "z2", "AGGREGATE", "min").Int)
	assert.Equal(t, []string{"b", "2"}, strs(t, do(t, in, "zrange", "i", "0", "-1", "WITHSCORES")))

	// A plain set contributes score 1 times its weight.
	do(t, in, "zinterstore", "i", "2", "z1", "s", "WEIGHTS", "1", "3")
	assert.Equal(t, []string{"a", "4"}, strs(t, do(t, in, "zrange", "i", "0", "-1", "WITHSCORES")))

	assert.Equal(t, "ERR at least 1 input key is needed for ZUNIONSTORE", doErr(t, in, "zunionstore", "u", "0", "z1").Error())
	assert.Equal(t, reply.ErrSyntax, doErr(t, in, "zunionstore", "u", "3", "z1", "z2"))
	assert.Equal(t, reply.ErrSyntax, doErr(t, in, "zunionstore", "u", "2", "z1", "z2", "WEIGHTS", "1"))
	assert.Equal(t, "ERR weight value is not a float", doErr(t, in, "zunionstore", "u", "1", "z1", "WEIGHTS", "x").Error())
	assert.Equal(t, reply.ErrSyntax, doErr(t, in, "zunionstore", "u", "1", "z1", "AGGREGATE", "AVG"))

	do(t, in, "set", "str", "v")
	assert.Equal(t, reply.ErrWrongType, doErr(t, in, "zunionstore", "u", "2", "z1", "str"))

	assert.Equal(t, int64(0), do(t, in, "zinterstore", "i", "2", "z1", "missing").Int)
	assert.Equal(t, int64(0), do(t, in, "exists", "i").Int)
}

func TestZStore_InfiniteWeightsFoldNaN(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "zadd", "z1", "inf", "a")
	do(t, in, "zadd", "z2", "-inf", "a")
	do(t, in, "zunionstore", "u", "2", "z1", "z2")
	assert.Equal(t, "0", string(do(t, in, "zscore", "u", "a").Str))

	do(t, in, "zadd", "z3", "0", "a")
	do(t, in, "zunionstore", "u", "1", "z3", "WEIGHTS", "inf")
	assert.Equal(t, "0", string(do(t, in, "zscore", "u", "a").Str))
}

func TestZPop(t *testing.T) {
	in, _ := newTestInstance(t)

	do(t, in, "zadd", "z", "1", "a", "2", "b", "3", "c")
	assert.Equal(t, []string{"a", "1"}, strs(t, do(t, in, "zpopmin", "z")))
	assert.Equal(t, []string{"c", "3", "b", "2"}, strs(t, do(t, in, "zpopmax", "z", "5")))
	assert.Equal(t, int64(0), do(t, in, "exists", "z").Int)
	assert.Empty(t, strs(t, do(t, in, "zpopmin", "z")))
	assert.Equal(t, reply.ErrPositive, doErr(t, in, "zpopmin", "z", "-1"))
}

func TestZScan(t *testing.T) {
	in, _ := newTestInstance(t)

	for i := 0; i < 3; i++ {
		do(t, in, "zadd", "z", fmt.Sprint(i), fmt.Sprintf("m%d", i))
	}
	r := do(t, in, "zscan", "z", "0", "MATCH", "m[01]")
	assert.Equal(t, []string{"m0", "0", "m1", "1"}, strs(t, r.Array[1]))
}
