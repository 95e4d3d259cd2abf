package lua

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockredis/mockredis/internal/reply"
	"github.com/mockredis/mockredis/internal/script"
)

// fakeDispatcher serves a few commands from a map.
type fakeDispatcher struct {
	data  map[string]string
	set   []string
	calls []string
}

func (f *fakeDispatcher) Known(name string) bool {
	switch name {
	case "get", "set", "smembers", "incr", "multi", "boom":
		return true
	}
	return false
}

func (f *fakeDispatcher) Dispatch(name string, args []string) (reply.Reply, error) {
	f.calls = append(f.calls, name)
	switch name {
	case "get":
		v, ok := f.data[args[0]]
		if !ok {
			return reply.Nil(), nil
		}
		return reply.BulkString(v), nil
	case "set":
		f.data[args[0]] = args[1]
		return reply.OK(), nil
	case "smembers":
		return reply.Strings(f.set), nil
	case "incr":
		return reply.Reply{}, reply.ErrWrongType
	case "boom":
		return reply.Reply{}, errors.New("disk on fire")
	}
	return reply.Reply{}, reply.UnknownCommand(name)
}

func newBridge(t *testing.T) (*script.Bridge, *fakeDispatcher) {
	t.Helper()
	d := &fakeDispatcher{data: map[string]string{}, set: []string{"c", "a", "b"}}
	b, err := script.NewBridge(New(), d)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b, d
}

func TestEvalReturnTypes(t *testing.T) {
	b, _ := newBridge(t)

	cases := []struct {
		src  string
		want reply.Reply
	}{
		{"return 1", reply.Int(1)},
		{"return 3.7", reply.Int(3)},
		{"return 'x'", reply.BulkString("x")},
		{"return true", reply.Int(1)},
		{"return false", reply.Nil()},
		{"return nil", reply.Nil()},
		{"return {1, 'a', {2}}", reply.Array(reply.Int(1), reply.BulkString("a"), reply.Array(reply.Int(2)))},
		{"return {1, nil, 3}", reply.Array(reply.Int(1))},
		{"return redis.status_reply('PONG')", reply.Status("PONG")},
		{"return {KEYS[1], ARGV[1]}", reply.Strings([]string{"k", "v"})},
	}
	for _, tc := range cases {
		got, err := b.Eval(tc.src, []string{"k"}, []string{"v"})
		require.NoError(t, err, tc.src)
		assert.Equal(t, tc.want, got, tc.src)
	}
}

func TestEvalCallsEngine(t *testing.T) {
	b, d := newBridge(t)

	got, err := b.Eval("redis.call('set', KEYS[1], ARGV[1]); return redis.call('get', KEYS[1])", []string{"k"}, []string{"v"})
	require.NoError(t, err)
	assert.Equal(t, reply.BulkString("v"), got)
	assert.Equal(t, []string{"set", "get"}, d.calls)

	got, err = b.Eval("return redis.call('get', 'missing') == false", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, reply.Int(1), got)
}

func TestEvalSortsUnorderedReplies(t *testing.T) {
	b, _ := newBridge(t)
	got, err := b.Eval("return redis.call('SMEMBERS', 's')", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, reply.Strings([]string{"a", "b", "c"}), got)
}

func TestEngineErrors(t *testing.T) {
	b, _ := newBridge(t)

	// redis.call re-raises the engine error unchanged.
	_, err := b.Eval("return redis.call('incr', 'k')", nil, nil)
	assert.ErrorIs(t, err, reply.ErrWrongType)

	// redis.pcall hands it to the script as a value.
	got, err := b.Eval("local r = redis.pcall('incr', 'k'); return r.err", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, reply.BulkString(reply.ErrWrongType.Error()), got)

	_, err = b.Eval("return redis.call('nosuch')", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown Redis command called from Lua script")

	_, err = b.Eval("return redis.call('multi')", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed from scripts")

	_, err = b.Eval("return redis.error_reply('MYERR custom')", nil, nil)
	var re *reply.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "MYERR", re.Code)
}

func TestInternalFaultUnwinds(t *testing.T) {
	b, _ := newBridge(t)
	_, err := b.Eval("return redis.pcall('boom')", nil, nil)
	require.Error(t, err)
	assert.EqualError(t, err, "disk on fire")
}

func TestScriptErrors(t *testing.T) {
	b, _ := newBridge(t)

	_, err := b.Eval("return (", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error compiling script")

	_, err = b.Eval("error('oops')", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")
}

func TestLoadExistsFlush(t *testing.T) {
	b, _ := newBridge(t)

	sha, err := b.Load("return 42")
	require.NoError(t, err)
	assert.Equal(t, script.SHA1("return 42"), sha)
	assert.True(t, b.Exists(sha))
	assert.False(t, b.Exists(script.SHA1("return 43")))

	got, err := b.EvalSHA(sha, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, reply.Int(42), got)

	require.NoError(t, b.Flush())
	assert.False(t, b.Exists(sha))
	_, err = b.EvalSHA(sha, nil, nil)
	assert.ErrorIs(t, err, reply.ErrNoScript)
}
