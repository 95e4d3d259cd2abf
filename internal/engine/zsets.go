package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/mockredis/mockredis/internal/option"
	"github.com/mockredis/mockredis/internal/reply"
	"github.com/mockredis/mockredis/internal/store"
)

func init() {
	register("zadd", -4, "write denyoom fast", 1, 1, 1, cmdZAdd)
	register("zincrby", 4, "write denyoom fast", 1, 1, 1, cmdZIncrBy)
	register("zrem", -3, "write fast", 1, 1, 1, cmdZRem)
	register("zcard", 2, "readonly fast", 1, 1, 1, cmdZCard)
	register("zscore", 3, "readonly fast", 1, 1, 1, cmdZScore)
	register("zmscore", -3, "readonly fast", 1, 1, 1, cmdZMScore)
	register("zrank", 3, "readonly fast", 1, 1, 1, cmdZRank)
	register("zrevrank", 3, "readonly fast", 1, 1, 1, cmdZRevRank)
	register("zcount", 4, "readonly fast", 1, 1, 1, cmdZCount)
	register("zlexcount", 4, "readonly fast", 1, 1, 1, cmdZLexCount)
	register("zrange", -4, "readonly", 1, 1, 1, cmdZRange)
	register("zrevrange", -4, "readonly", 1, 1, 1, cmdZRevRange)
	register("zrangebyscore", -4, "readonly", 1, 1, 1, cmdZRangeByScore)
	register("zrevrangebyscore", -4, "readonly", 1, 1, 1, cmdZRevRangeByScore)
	register("zrangebylex", -4, "readonly", 1, 1, 1, cmdZRangeByLex)
	register("zrevrangebylex", -4, "readonly", 1, 1, 1, cmdZRevRangeByLex)
	register("zremrangebyrank", 4, "write", 1, 1, 1, cmdZRemRangeByRank)
	register("zremrangebyscore", 4, "write", 1, 1, 1, cmdZRemRangeByScore)
	register("zremrangebylex", 4, "write", 1, 1, 1, cmdZRemRangeByLex)
	register("zunionstore", -4, "write denyoom", 0, 0, 0, cmdZUnionStore)
	register("zinterstore", -4, "write denyoom", 0, 0, 0, cmdZInterStore)
	register("zpopmin", -2, "write fast", 1, 1, 1, cmdZPopMin)
	register("zpopmax", -2, "write fast", 1, 1, 1, cmdZPopMax)
	register("zscan", -3, "readonly random", 1, 1, 1, cmdZScan)
}

var (
	zaddOptions       = option.MustCompile("[NX|XX] [GT|LT] [CH] [INCR]")
	zrangeOptions     = option.MustCompile("[BYSCORE|BYLEX] [REV] [LIMIT offset count] [WITHSCORES]")
	zrangeByOptions   = option.MustCompile("[LIMIT offset count] [WITHSCORES]")
	zrangeLexOptions  = option.MustCompile("[LIMIT offset count]")
	withScoresOptions = option.MustCompile("[WITHSCORES]")
)

const aggregateOptions = "[AGGREGATE mode]"

// ZADD key [NX|XX] [GT|LT] [CH] [INCR] score member [score member ...]
func cmdZAdd(in *Instance, args []string) (reply.Reply, error) {
	key := args[0]
	opts, rest, err := zaddOptions.Parse(args[1:])
	if err != nil {
		return reply.Reply{}, err
	}
	if opts.Has("NX") && opts.Choice("GT") != "" {
		return reply.Reply{}, reply.Errorf("GT, LT, and/or NX options at the same time are not compatible")
	}
	if len(rest) == 0 || len(rest)%2 != 0 {
		return reply.Reply{}, reply.ErrSyntax
	}
	incr := opts.Has("INCR")
	if incr && len(rest) != 2 {
		return reply.Reply{}, reply.Errorf("INCR option supports a single increment-element pair")
	}
	pairs := make([]store.ScoredMember, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		score, err := parseFloat(rest[i])
		if err != nil {
			return reply.Reply{}, err
		}
		pairs = append(pairs, store.ScoredMember{Member: rest[i+1], Score: score})
	}
	z, err := in.store.ZSetOf(key)
	if err != nil {
		return reply.Reply{}, err
	}

	added, changed := 0, 0
	result := reply.Nil()
	for _, p := range pairs {
		cur, exists := z.Score(p.Member)
		switch {
		case exists && opts.Has("NX"), !exists && opts.Has("XX"):
			continue
		}
		score := p.Score
		if incr && exists {
			score += cur
		}
		if math.IsNaN(score) {
			return reply.Reply{}, reply.ErrScoreNaN
		}
		if exists {
			if opts.Has("GT") && score <= cur || opts.Has("LT") && score >= cur {
				continue
			}
		}
		z.Set(p.Member, score)
		if !exists {
			added++
			changed++
		} else if score != cur {
			changed++
		}
		if incr {
			result = reply.Float(score)
		}
	}
	in.store.Put(key, z)
	if incr {
		return result, nil
	}
	if opts.Has("CH") {
		return reply.Int(int64(changed)), nil
	}
	return reply.Int(int64(added)), nil
}

func cmdZIncrBy(in *Instance, args []string) (reply.Reply, error) {
	delta, err := parseFloat(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	z, err := in.store.ZSetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	cur, _ := z.Score(args[2])
	score := cur + delta
	if math.IsNaN(score) {
		return reply.Reply{}, reply.ErrScoreNaN
	}
	z.Set(args[2], score)
	in.store.Put(args[0], z)
	return reply.Float(score), nil
}

func cmdZRem(in *Instance, args []string) (reply.Reply, error) {
	z, err := in.store.ZSetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	n := z.Remove(args[1:]...)
	in.store.Put(args[0], z)
	return reply.Int(int64(n)), nil
}

func cmdZCard(in *Instance, args []string) (reply.Reply, error) {
	z, err := in.store.ZSetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Int(int64(z.Len())), nil
}

func cmdZScore(in *Instance, args []string) (reply.Reply, error) {
	z, err := in.store.ZSetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	s, ok := z.Score(args[1])
	if !ok {
		return reply.Nil(), nil
	}
	return reply.Float(s), nil
}

func cmdZMScore(in *Instance, args []string) (reply.Reply, error) {
	z, err := in.store.ZSetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	out := make([]reply.Reply, len(args)-1)
	for i, m := range args[1:] {
		if s, ok := z.Score(m); ok {
			out[i] = reply.Float(s)
		} else {
			out[i] = reply.Nil()
		}
	}
	return reply.Array(out...), nil
}

func rank(in *Instance, args []string, rev bool) (reply.Reply, error) {
	z, err := in.store.ZSetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	r, ok := z.Rank(args[1])
	if !ok {
		return reply.Nil(), nil
	}
	if rev {
		r = z.Len() - 1 - r
	}
	return reply.Int(int64(r)), nil
}

func cmdZRank(in *Instance, args []string) (reply.Reply, error)    { return rank(in, args, false) }
func cmdZRevRank(in *Instance, args []string) (reply.Reply, error) { return rank(in, args, true) }

// scoreBound is one end of a score interval.
type scoreBound struct {
	value     float64
	exclusive bool
}

func parseScoreBound(s string) (scoreBound, error) {
	var b scoreBound
	if strings.HasPrefix(s, "(") {
		b.exclusive = true
		s = s[1:]
	}
	v, err := parseFloatAs(s, reply.ErrMinMaxFloat)
	if err != nil {
		return scoreBound{}, err
	}
	b.value = v
	return b, nil
}

func (b scoreBound) above(f float64) bool {
	if b.exclusive {
		return f > b.value
	}
	return f >= b.value
}

func (b scoreBound) below(f float64) bool {
	if b.exclusive {
		return f < b.value
	}
	return f <= b.value
}

// lexBound is one end of a member interval. "-" and "+" are the
// unbounded ends; other bounds start with '[' (inclusive) or '(' (exclusive).
type lexBound struct {
	value     string
	exclusive bool
	inf       int // -1 for "-", +1 for "+"
}

func parseLexBound(s string) (lexBound, error) {
	switch {
	case s == "-":
		return lexBound{inf: -1}, nil
	case s == "+":
		return lexBound{inf: 1}, nil
	case strings.HasPrefix(s, "["):
		return lexBound{value: s[1:]}, nil
	case strings.HasPrefix(s, "("):
		return lexBound{value: s[1:], exclusive: true}, nil
	}
	return lexBound{}, reply.ErrMinMaxLex
}

func (b lexBound) above(m string) bool {
	switch b.inf {
	case -1:
		return true
	case 1:
		return false
	}
	if b.exclusive {
		return m > b.value
	}
	return m >= b.value
}

func (b lexBound) below(m string) bool {
	switch b.inf {
	case -1:
		return false
	case 1:
		return true
	}
	if b.exclusive {
		return m < b.value
	}
	return m <= b.value
}

func byScore(z *store.SortedSet, min, max scoreBound) []store.ScoredMember {
	var out []store.ScoredMember
	for _, m := range z.Members() {
		if min.above(m.Score) && max.below(m.Score) {
			out = append(out, m)
		}
	}
	return out
}

func byLex(z *store.SortedSet, min, max lexBound) []store.ScoredMember {
	var out []store.ScoredMember
	for _, m := range z.Members() {
		if min.above(m.Member) && max.below(m.Member) {
			out = append(out, m)
		}
	}
	return out
}

func cmdZCount(in *Instance, args []string) (reply.Reply, error) {
	min, err := parseScoreBound(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	max, err := parseScoreBound(args[2])
	if err != nil {
		return reply.Reply{}, err
	}
	z, err := in.store.ZSetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Int(int64(len(byScore(z, min, max)))), nil
}

func cmdZLexCount(in *Instance, args []string) (reply.Reply, error) {
	min, err := parseLexBound(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	max, err := parseLexBound(args[2])
	if err != nil {
		return reply.Reply{}, err
	}
	z, err := in.store.ZSetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Int(int64(len(byLex(z, min, max)))), nil
}

func reverse(ms []store.ScoredMember) []store.ScoredMember {
	out := make([]store.ScoredMember, len(ms))
	for i, m := range ms {
		out[len(ms)-1-i] = m
	}
	return out
}

// limit applies LIMIT offset count. A negative count means all remaining
// elements; a negative offset yields nothing.
func limit(ms []store.ScoredMember, opts option.Options) ([]store.ScoredMember, error) {
	args := opts.Args("LIMIT")
	if args == nil {
		return ms, nil
	}
	offset, err := parseInt(args[0])
	if err != nil {
		return nil, err
	}
	count, err := parseInt(args[1])
	if err != nil {
		return nil, err
	}
	if offset < 0 || offset >= int64(len(ms)) {
		return nil, nil
	}
	ms = ms[offset:]
	if count >= 0 && count < int64(len(ms)) {
		ms = ms[:count]
	}
	return ms, nil
}

func membersReply(ms []store.ScoredMember, withScores bool) reply.Reply {
	n := len(ms)
	if withScores {
		n *= 2
	}
	out := make([]reply.Reply, 0, n)
	for _, m := range ms {
		out = append(out, reply.BulkString(m.Member))
		if withScores {
			out = append(out, reply.Float(m.Score))
		}
	}
	return reply.Array(out...)
}

// rangeQuery is a parsed ZRANGE-family request.
type rangeQuery struct {
	key        string
	start      string
	stop       string
	mode       string // "", "BYSCORE" or "BYLEX"
	rev        bool
	opts       option.Options
	withScores bool
}

func (in *Instance) zrange(q rangeQuery) (reply.Reply, error) {
	var ms []store.ScoredMember
	var z *store.SortedSet
	load := func() error {
		var err error
		z, err = in.store.ZSetOf(q.key)
		return err
	}
	switch q.mode {
	case "BYSCORE":
		lo, hi := q.start, q.stop
		if q.rev {
			lo, hi = hi, lo
		}
		min, err := parseScoreBound(lo)
		if err != nil {
			return reply.Reply{}, err
		}
		max, err := parseScoreBound(hi)
		if err != nil {
			return reply.Reply{}, err
		}
		if err := load(); err != nil {
			return reply.Reply{}, err
		}
		ms = byScore(z, min, max)
		if q.rev {
			ms = reverse(ms)
		}
		if ms, err = limit(ms, q.opts); err != nil {
			return reply.Reply{}, err
		}
	case "BYLEX":
		lo, hi := q.start, q.stop
		if q.rev {
			lo, hi = hi, lo
		}
		min, err := parseLexBound(lo)
		if err != nil {
			return reply.Reply{}, err
		}
		max, err := parseLexBound(hi)
		if err != nil {
			return reply.Reply{}, err
		}
		if err := load(); err != nil {
			return reply.Reply{}, err
		}
		ms = byLex(z, min, max)
		if q.rev {
			ms = reverse(ms)
		}
		if ms, err = limit(ms, q.opts); err != nil {
			return reply.Reply{}, err
		}
	default:
		start, err := parseIndex(q.start)
		if err != nil {
			return reply.Reply{}, err
		}
		stop, err := parseIndex(q.stop)
		if err != nil {
			return reply.Reply{}, err
		}
		if err := load(); err != nil {
			return reply.Reply{}, err
		}
		if q.rev {
			ms = reverse(z.Members())
			if lo, hi, ok := store.NormalizeRange(start, stop, len(ms)); ok {
				ms = ms[lo : hi+1]
			} else {
				ms = nil
			}
		} else {
			ms = z.Range(start, stop)
		}
	}
	return membersReply(ms, q.withScores), nil
}

// ZRANGE key start stop [BYSCORE|BYLEX] [REV] [LIMIT offset count] [WITHSCORES]
func cmdZRange(in *Instance, args []string) (reply.Reply, error) {
	opts, err := zrangeOptions.ParseAll(args[3:])
	if err != nil {
		return reply.Reply{}, err
	}
	mode := opts.Choice("BYSCORE")
	if opts.Has("LIMIT") && mode == "" {
		return reply.Reply{}, reply.Errorf("syntax error, LIMIT is only supported in combination with either BYSCORE or BYLEX")
	}
	if opts.Has("WITHSCORES") && mode == "BYLEX" {
		return reply.Reply{}, reply.Errorf("syntax error, WITHSCORES not supported in combination with BYLEX")
	}
	return in.zrange(rangeQuery{
		key: args[0], start: args[1], stop: args[2],
		mode: mode, rev: opts.Has("REV"), opts: opts, withScores: opts.Has("WITHSCORES"),
	})
}

// ZREVRANGE key start stop [WITHSCORES]
func cmdZRevRange(in *Instance, args []string) (reply.Reply, error) {
	opts, err := withScoresOptions.ParseAll(args[3:])
	if err != nil {
		return reply.Reply{}, err
	}
	return in.zrange(rangeQuery{
		key: args[0], start: args[1], stop: args[2],
		rev: true, opts: opts, withScores: opts.Has("WITHSCORES"),
	})
}

func rangeByScore(in *Instance, args []string, rev bool) (reply.Reply, error) {
	opts, err := zrangeByOptions.ParseAll(args[3:])
	if err != nil {
		return reply.Reply{}, err
	}
	// The REV forms take max before min, as ZRANGE ... REV does.
	return in.zrange(rangeQuery{
		key: args[0], start: args[1], stop: args[2],
		mode: "BYSCORE", rev: rev, opts: opts, withScores: opts.Has("WITHSCORES"),
	})
}

func cmdZRangeByScore(in *Instance, args []string) (reply.Reply, error) {
	return rangeByScore(in, args, false)
}

func cmdZRevRangeByScore(in *Instance, args []string) (reply.Reply, error) {
	return rangeByScore(in, args, true)
}

func rangeByLex(in *Instance, args []string, rev bool) (reply.Reply, error) {
	opts, err := zrangeLexOptions.ParseAll(args[3:])
	if err != nil {
		return reply.Reply{}, err
	}
	return in.zrange(rangeQuery{
		key: args[0], start: args[1], stop: args[2],
		mode: "BYLEX", rev: rev, opts: opts,
	})
}

func cmdZRangeByLex(in *Instance, args []string) (reply.Reply, error) {
	return rangeByLex(in, args, false)
}

func cmdZRevRangeByLex(in *Instance, args []string) (reply.Reply, error) {
	return rangeByLex(in, args, true)
}

func removeMembers(in *Instance, key string, z *store.SortedSet, ms []store.ScoredMember) reply.Reply {
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Member
	}
	n := z.Remove(names...)
	in.store.Put(key, z)
	return reply.Int(int64(n))
}

func cmdZRemRangeByRank(in *Instance, args []string) (reply.Reply, error) {
	start, err := parseIndex(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	stop, err := parseIndex(args[2])
	if err != nil {
		return reply.Reply{}, err
	}
	z, err := in.store.ZSetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return removeMembers(in, args[0], z, z.Range(start, stop)), nil
}

func cmdZRemRangeByScore(in *Instance, args []string) (reply.Reply, error) {
	min, err := parseScoreBound(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	max, err := parseScoreBound(args[2])
	if err != nil {
		return reply.Reply{}, err
	}
	z, err := in.store.ZSetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return removeMembers(in, args[0], z, byScore(z, min, max)), nil
}

func cmdZRemRangeByLex(in *Instance, args []string) (reply.Reply, error) {
	min, err := parseLexBound(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	max, err := parseLexBound(args[2])
	if err != nil {
		return reply.Reply{}, err
	}
	z, err := in.store.ZSetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return removeMembers(in, args[0], z, byLex(z, min, max)), nil
}

// weightedInput is one source of ZUNIONSTORE/ZINTERSTORE.
type weightedInput struct {
	scores map[string]float64
	weight float64
}

// storeSpec compiles the WEIGHTS grammar for n inputs.
func storeSpec(n int) (*option.Spec, error) {
	return option.Cached(fmt.Sprintf("[WEIGHTS%s] %s", strings.Repeat(" weight", n), aggregateOptions))
}

// aggregate folds a score into an accumulated one.
func aggregate(mode string, acc, v float64) float64 {
	switch mode {
	case "MIN":
		return math.Min(acc, v)
	case "MAX":
		return math.Max(acc, v)
	}
	return foldNaN(acc + v)
}

// ZUNIONSTORE|ZINTERSTORE destination numkeys key [key ...] [WEIGHTS weight ...] [AGGREGATE SUM|MIN|MAX]
func zstore(in *Instance, cmd string, args []string, inter bool) (reply.Reply, error) {
	dest := args[0]
	numkeys, err := parseInt(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	if numkeys < 1 {
		return reply.Reply{}, reply.Errorf("at least 1 input key is needed for %s", strings.ToUpper(cmd))
	}
	if numkeys > int64(len(args)-2) {
		return reply.Reply{}, reply.ErrSyntax
	}
	keys := args[2 : 2+numkeys]
	spec, err := storeSpec(int(numkeys))
	if err != nil {
		return reply.Reply{}, err
	}
	opts, err := spec.ParseAll(args[2+numkeys:])
	if err != nil {
		return reply.Reply{}, err
	}
	mode := "SUM"
	if v, ok := opts.Arg("AGGREGATE"); ok {
		mode = strings.ToUpper(v)
		if mode != "SUM" && mode != "MIN" && mode != "MAX" {
			return reply.Reply{}, reply.ErrSyntax
		}
	}

	inputs := make([]weightedInput, len(keys))
	weights := opts.Args("WEIGHTS")
	for i, k := range keys {
		w := 1.0
		if weights != nil {
			if w, err = parseFloatAs(weights[i], reply.Errorf("weight value is not a float")); err != nil {
				return reply.Reply{}, err
			}
		}
		scores := make(map[string]float64)
		switch in.store.Type(k) {
		case store.KindSortedSet:
			z, _ := in.store.ZSetOf(k)
			for _, m := range z.Members() {
				scores[m.Member] = m.Score
			}
		case store.KindSet:
			s, _ := in.store.SetOf(k)
			for _, m := range s.Members() {
				scores[m] = 1
			}
		case 0:
		default:
			return reply.Reply{}, reply.ErrWrongType
		}
		inputs[i] = weightedInput{scores: scores, weight: w}
	}

	result := store.NewSortedSet()
	acc := make(map[string]float64)
	seen := make(map[string]int)
	for _, input := range inputs {
		for m, s := range input.scores {
			v := foldNaN(s * input.weight)
			if n, ok := seen[m]; ok && n > 0 {
				acc[m] = aggregate(mode, acc[m], v)
			} else {
				acc[m] = v
			}
			seen[m]++
		}
	}
	for m, s := range acc {
		if inter && seen[m] != len(inputs) {
			continue
		}
		result.Set(m, s)
	}
	in.store.Write(dest, result, store.NoExpiry)
	return reply.Int(int64(result.Len())), nil
}

func cmdZUnionStore(in *Instance, args []string) (reply.Reply, error) {
	return zstore(in, "zunionstore", args, false)
}

func cmdZInterStore(in *Instance, args []string) (reply.Reply, error) {
	return zstore(in, "zinterstore", args, true)
}

func zpop(in *Instance, args []string, max bool) (reply.Reply, error) {
	if len(args) > 2 {
		return reply.Reply{}, reply.ErrSyntax
	}
	count := int64(1)
	if len(args) == 2 {
		n, err := parseInt(args[1])
		if err != nil {
			return reply.Reply{}, err
		}
		if n < 0 {
			return reply.Reply{}, reply.ErrPositive
		}
		count = n
	}
	z, err := in.store.ZSetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	ms := z.Members()
	if max {
		ms = reverse(ms)
	}
	if count < int64(len(ms)) {
		ms = append([]store.ScoredMember(nil), ms[:count]...)
	} else {
		ms = append([]store.ScoredMember(nil), ms...)
	}
	removeMembers(in, args[0], z, ms)
	return membersReply(ms, true), nil
}

// ZPOPMIN key [count]
func cmdZPopMin(in *Instance, args []string) (reply.Reply, error) { return zpop(in, args, false) }

// ZPOPMAX key [count]
func cmdZPopMax(in *Instance, args []string) (reply.Reply, error) { return zpop(in, args, true) }

// ZSCAN key cursor [MATCH pattern] [COUNT count]
func cmdZScan(in *Instance, args []string) (reply.Reply, error) {
	opts, first, err := parseScan(args[1], args[2:])
	if err != nil {
		return reply.Reply{}, err
	}
	if _, err := in.store.ZSetOf(args[0]); err != nil || !first {
		return scanReply(reply.Array()), err
	}
	pattern, _ := opts.Arg("MATCH")
	pairs, err := in.store.ZScan(args[0], pattern)
	if err != nil {
		return reply.Reply{}, err
	}
	return scanReply(flattenPairs(pairs)), nil
}
