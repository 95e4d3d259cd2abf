package engine

import (
	"github.com/mockredis/mockredis/internal/reply"
	"github.com/mockredis/mockredis/internal/store"
)

func init() {
	register("sadd", -3, "write denyoom fast", 1, 1, 1, cmdSAdd)
	register("srem", -3, "write fast", 1, 1, 1, cmdSRem)
	register("sismember", 3, "readonly fast", 1, 1, 1, cmdSIsMember)
	register("smismember", -3, "readonly fast", 1, 1, 1, cmdSMIsMember)
	register("scard", 2, "readonly fast", 1, 1, 1, cmdSCard)
	register("smembers", 2, "readonly", 1, 1, 1, cmdSMembers)
	register("sinter", -2, "readonly", 1, -1, 1, cmdSInter)
	register("sinterstore", -3, "write denyoom", 1, -1, 1, cmdSInterStore)
	register("sunion", -2, "readonly", 1, -1, 1, cmdSUnion)
	register("sunionstore", -3, "write denyoom", 1, -1, 1, cmdSUnionStore)
	register("sdiff", -2, "readonly", 1, -1, 1, cmdSDiff)
	register("sdiffstore", -3, "write denyoom", 1, -1, 1, cmdSDiffStore)
	register("smove", 4, "write fast", 1, 2, 1, cmdSMove)
	register("spop", -2, "write random fast", 1, 1, 1, cmdSPop)
	register("srandmember", -2, "readonly random", 1, 1, 1, cmdSRandMember)
	register("sscan", -3, "readonly random", 1, 1, 1, cmdSScan)
}

func cmdSAdd(in *Instance, args []string) (reply.Reply, error) {
	s, err := in.store.SetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	n := s.Add(args[1:]...)
	in.store.Put(args[0], s)
	return reply.Int(int64(n)), nil
}

func cmdSRem(in *Instance, args []string) (reply.Reply, error) {
	s, err := in.store.SetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	n := s.Remove(args[1:]...)
	in.store.Put(args[0], s)
	return reply.Int(int64(n)), nil
}

func cmdSIsMember(in *Instance, args []string) (reply.Reply, error) {
	s, err := in.store.SetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Bool(s.Has(args[1])), nil
}

func cmdSMIsMember(in *Instance, args []string) (reply.Reply, error) {
	s, err := in.store.SetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	out := make([]reply.Reply, len(args)-1)
	for i, m := range args[1:] {
		out[i] = reply.Bool(s.Has(m))
	}
	return reply.Array(out...), nil
}

func cmdSCard(in *Instance, args []string) (reply.Reply, error) {
	s, err := in.store.SetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Int(int64(s.Len())), nil
}

func cmdSMembers(in *Instance, args []string) (reply.Reply, error) {
	s, err := in.store.SetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Strings(s.Members()), nil
}

// sets fetches every key as a set, failing on the first wrong type.
func sets(in *Instance, keys []string) ([]*store.Set, error) {
	out := make([]*store.Set, len(keys))
	for i, k := range keys {
		s, err := in.store.SetOf(k)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

type setOp func(...*store.Set) *store.Set

func setAlgebra(in *Instance, keys []string, op setOp) (reply.Reply, error) {
	in2, err := sets(in, keys)
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Strings(op(in2...).Members()), nil
}

func setAlgebraStore(in *Instance, args []string, op setOp) (reply.Reply, error) {
	in2, err := sets(in, args[1:])
	if err != nil {
		return reply.Reply{}, err
	}
	result := op(in2...)
	in.store.Write(args[0], result, store.NoExpiry)
	return reply.Int(int64(result.Len())), nil
}

func cmdSInter(in *Instance, args []string) (reply.Reply, error) {
	return setAlgebra(in, args, store.Inter)
}

func cmdSInterStore(in *Instance, args []string) (reply.Reply, error) {
	return setAlgebraStore(in, args, store.Inter)
}

func cmdSUnion(in *Instance, args []string) (reply.Reply, error) {
	return setAlgebra(in, args, store.Union)
}

func cmdSUnionStore(in *Instance, args []string) (reply.Reply, error) {
	return setAlgebraStore(in, args, store.Union)
}

func cmdSDiff(in *Instance, args []string) (reply.Reply, error) {
	return setAlgebra(in, args, store.Diff)
}

func cmdSDiffStore(in *Instance, args []string) (reply.Reply, error) {
	return setAlgebraStore(in, args, store.Diff)
}

func cmdSMove(in *Instance, args []string) (reply.Reply, error) {
	src, err := in.store.SetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	dst, err := in.store.SetOf(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	member := args[2]
	if !src.Has(member) {
		return reply.Int(0), nil
	}
	if args[0] == args[1] {
		return reply.Int(1), nil
	}
	src.Remove(member)
	dst.Add(member)
	in.store.Put(args[0], src)
	in.store.Put(args[1], dst)
	return reply.Int(1), nil
}

// sample draws count members of s. A negative count allows repeats: the
// shuffled membership is tiled until -count samples are taken.
func (in *Instance) sample(s *store.Set, count int64) []string {
	members := s.Sorted()
	in.rnd.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
	if count >= 0 {
		if count < int64(len(members)) {
			members = members[:count]
		}
		return members
	}
	n := -count
	out := make([]string, 0, n)
	for i := int64(0); i < n && len(members) > 0; i++ {
		out = append(out, members[i%int64(len(members))])
	}
	return out
}

// SPOP key [count]
func cmdSPop(in *Instance, args []string) (reply.Reply, error) {
	if len(args) > 2 {
		return reply.Reply{}, reply.ErrSyntax
	}
	s, err := in.store.SetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	if len(args) == 1 {
		picked := in.sample(s, 1)
		if len(picked) == 0 {
			return reply.Nil(), nil
		}
		s.Remove(picked[0])
		in.store.Put(args[0], s)
		return reply.BulkString(picked[0]), nil
	}
	count, err := parseInt(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	// a negative count repeats members; each distinct one drawn is removed
	picked := in.sample(s, count)
	s.Remove(picked...)
	in.store.Put(args[0], s)
	return reply.Strings(picked), nil
}

// SRANDMEMBER key [count]
func cmdSRandMember(in *Instance, args []string) (reply.Reply, error) {
	if len(args) > 2 {
		return reply.Reply{}, reply.ErrSyntax
	}
	s, err := in.store.SetOf(args[0])
	if err != nil {
		return reply.Reply{}, err
	}
	if len(args) == 1 {
		picked := in.sample(s, 1)
		if len(picked) == 0 {
			return reply.Nil(), nil
		}
		return reply.BulkString(picked[0]), nil
	}
	count, err := parseInt(args[1])
	if err != nil {
		return reply.Reply{}, err
	}
	return reply.Strings(in.sample(s, count)), nil
}

// SSCAN key cursor [MATCH pattern] [COUNT count]
func cmdSScan(in *Instance, args []string) (reply.Reply, error) {
	opts, first, err := parseScan(args[1], args[2:])
	if err != nil {
		return reply.Reply{}, err
	}
	pattern, _ := opts.Arg("MATCH")
	members, err := in.store.SScan(args[0], pattern)
	if err != nil {
		return reply.Reply{}, err
	}
	if !first {
		members = nil
	}
	return scanReply(reply.Strings(members)), nil
}
