package engine

import (
	"strings"

	"github.com/mockredis/mockredis/internal/reply"
)

func init() {
	register("eval", -3, "noscript movablekeys", 0, 0, 0, cmdEval)
	register("evalsha", -3, "noscript movablekeys", 0, 0, 0, cmdEvalSHA)
	register("script", -2, "noscript", 0, 0, 0, cmdScript)
}

// scriptArgs splits "numkeys key... arg..." into keys and arguments.
func scriptArgs(args []string) (keys, argv []string, err error) {
	n, err := parseInt(args[0])
	if err != nil {
		return nil, nil, err
	}
	if n < 0 {
		return nil, nil, reply.Errorf("Number of keys can't be negative")
	}
	if n > int64(len(args)-1) {
		return nil, nil, reply.Errorf("Number of keys can't be greater than number of args")
	}
	return args[1 : 1+n], args[1+n:], nil
}

// EVAL script numkeys [key ...] [arg ...]
func cmdEval(in *Instance, args []string) (reply.Reply, error) {
	if in.bridge == nil {
		return reply.Reply{}, reply.NotSupported("eval")
	}
	keys, argv, err := scriptArgs(args[1:])
	if err != nil {
		return reply.Reply{}, err
	}
	return in.bridge.Eval(args[0], keys, argv)
}

// EVALSHA sha1 numkeys [key ...] [arg ...]
func cmdEvalSHA(in *Instance, args []string) (reply.Reply, error) {
	if in.bridge == nil {
		return reply.Reply{}, reply.NotSupported("evalsha")
	}
	keys, argv, err := scriptArgs(args[1:])
	if err != nil {
		return reply.Reply{}, err
	}
	return in.bridge.EvalSHA(args[0], keys, argv)
}

// SCRIPT LOAD|EXISTS|FLUSH|KILL
func cmdScript(in *Instance, args []string) (reply.Reply, error) {
	if in.bridge == nil {
		return reply.Reply{}, reply.NotSupported("script")
	}
	sub := strings.ToUpper(args[0])
	switch sub {
	case "LOAD":
		if len(args) != 2 {
			return reply.Reply{}, reply.WrongArgs("script|load")
		}
		sha, err := in.bridge.Load(args[1])
		if err != nil {
			return reply.Reply{}, err
		}
		return reply.BulkString(sha), nil
	case "EXISTS":
		if len(args) < 2 {
			return reply.Reply{}, reply.WrongArgs("script|exists")
		}
		out := make([]reply.Reply, len(args)-1)
		for i, sha := range args[1:] {
			out[i] = reply.Bool(in.bridge.Exists(sha))
		}
		return reply.Array(out...), nil
	case "FLUSH":
		if len(args) > 2 {
			return reply.Reply{}, reply.ErrSyntax
		}
		if err := in.bridge.Flush(); err != nil {
			return reply.Reply{}, err
		}
		return reply.OK(), nil
	case "KILL":
		return reply.Reply{}, reply.New(reply.KindGeneric, "NOTBUSY", "No scripts in execution right now.")
	}
	return reply.Reply{}, reply.Errorf("unknown subcommand '%s'. Try SCRIPT HELP.", args[0])
}
