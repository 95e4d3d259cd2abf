package script

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mockredis/mockredis/internal/reply"
)

// HookName is the global under which a Runtime must expose the CallHook.
const HookName = "__mockredis_call"

// Bootstrap defines the redis.* helpers on top of the raw call hook.
const Bootstrap = `
redis = {}
function redis.call(cmd, ...)
  local r = ` + HookName + `(cmd, ...)
  if type(r) == "table" and r.err then
    error(r, 0)
  end
  return r
end
function redis.pcall(cmd, ...)
  return ` + HookName + `(cmd, ...)
end
function redis.status_reply(s)
  return {ok = s}
end
function redis.error_reply(s)
  return {err = s}
end
redis.LOG_DEBUG, redis.LOG_VERBOSE, redis.LOG_NOTICE, redis.LOG_WARNING = 0, 1, 2, 3
function redis.log(level, ...) end
`

// CallHook invokes an engine command on behalf of a script. Engine errors
// come back as an ErrorTable value; a returned error is an internal fault.
type CallHook func(name string, args []string) (Value, error)

// Runtime is an embedded script interpreter.
type Runtime interface {
	// Initialize runs bootstrap and exposes call as the global HookName.
	Initialize(bootstrap string, call CallHook) error
	// Run executes source with the KEYS and ARGV globals set. ok is false
	// when the script raised an error, in which case result holds it.
	// err reports a fault of the runtime or of the call hook.
	Run(source string, keys, args []string) (ok bool, result Value, err error)
	Close()
}

// Dispatcher resolves and runs engine commands by lower-case name.
type Dispatcher interface {
	Known(name string) bool
	Dispatch(name string, args []string) (reply.Reply, error)
}

// Commands that cannot run inside a script.
var denied = map[string]struct{}{
	"multi": {}, "exec": {}, "discard": {}, "watch": {}, "unwatch": {},
	"subscribe": {}, "psubscribe": {}, "unsubscribe": {}, "punsubscribe": {},
	"publish": {}, "pubsub": {}, "monitor": {}, "sync": {}, "psync": {},
	"quit": {}, "eval": {}, "evalsha": {}, "script": {}, "debug": {},
}

// Commands whose reply order depends on storage order. Scripts get them sorted.
var sortForScript = map[string]struct{}{
	"smembers": {}, "sinter": {}, "sunion": {}, "sdiff": {},
	"keys": {}, "hkeys": {}, "hvals": {},
}

// Denied reports whether name may not be called from a script.
func Denied(name string) bool {
	_, ok := denied[strings.ToLower(name)]
	return ok
}

// Bridge runs scripts against a Dispatcher.
type Bridge struct {
	rt     Runtime
	d      Dispatcher
	loaded map[string]struct{}
	// errors handed to the running script, by rendered text
	raised map[string]*reply.Error
}

// NewBridge initializes rt and binds it to d.
func NewBridge(rt Runtime, d Dispatcher) (*Bridge, error) {
	b := &Bridge{rt: rt, d: d, loaded: make(map[string]struct{}), raised: make(map[string]*reply.Error)}
	if err := rt.Initialize(Bootstrap, b.Invoke); err != nil {
		return nil, fmt.Errorf("script: initialize runtime: %w", err)
	}
	return b, nil
}

// Close releases the runtime.
func (b *Bridge) Close() { b.rt.Close() }

// Invoke is the CallHook given to the runtime.
func (b *Bridge) Invoke(name string, args []string) (Value, error) {
	cmd := strings.ToLower(name)
	if !b.d.Known(cmd) {
		return b.raise(reply.Errorf("Unknown Redis command called from Lua script")), nil
	}
	if _, ok := denied[cmd]; ok {
		return b.raise(reply.Errorf("This Redis command is not allowed from scripts")), nil
	}
	r, err := b.d.Dispatch(cmd, args)
	if err != nil {
		var re *reply.Error
		if errors.As(err, &re) {
			return b.raise(re), nil
		}
		return nil, err
	}
	if _, ok := sortForScript[cmd]; ok {
		r = sortReply(r)
	}
	return ToScript(r), nil
}

func (b *Bridge) raise(e *reply.Error) Value {
	b.raised[e.Error()] = e
	return ErrorTable(e.Error())
}

// SHA1 returns the lower-case hex digest that names source.
func SHA1(source string) string {
	sum := sha1.Sum([]byte(source))
	return hex.EncodeToString(sum[:])
}

// funcName is the runtime global a loaded script is bound to.
func funcName(sha string) string {
	return "f_" + sha
}

func validSHA(sha string) bool {
	if len(sha) != 40 {
		return false
	}
	_, err := hex.DecodeString(sha)
	return err == nil
}

// Load compiles source and binds it under its digest.
func (b *Bridge) Load(source string) (string, error) {
	sha := SHA1(source)
	if _, ok := b.loaded[sha]; ok {
		return sha, nil
	}
	def := "function " + funcName(sha) + "()\n" + source + "\nend"
	ok, result, err := b.rt.Run(def, nil, nil)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", reply.New(reply.KindScript, "ERR", "Error compiling script (new function): "+describe(result))
	}
	b.loaded[sha] = struct{}{}
	return sha, nil
}

// Exists reports whether a script with digest sha is bound in the runtime.
func (b *Bridge) Exists(sha string) bool {
	sha = strings.ToLower(sha)
	if !validSHA(sha) {
		return false
	}
	ok, result, err := b.rt.Run("return type("+funcName(sha)+") == 'function'", nil, nil)
	return err == nil && ok && result == Bool(true)
}

// Flush unbinds every loaded script.
func (b *Bridge) Flush() error {
	for sha := range b.loaded {
		if _, _, err := b.rt.Run(funcName(sha)+" = nil", nil, nil); err != nil {
			return err
		}
	}
	b.loaded = make(map[string]struct{})
	return nil
}

// EvalSHA runs a loaded script.
func (b *Bridge) EvalSHA(sha string, keys, args []string) (reply.Reply, error) {
	sha = strings.ToLower(sha)
	if !b.Exists(sha) {
		return reply.Reply{}, reply.ErrNoScript
	}
	b.raised = make(map[string]*reply.Error)
	ok, result, err := b.rt.Run("return "+funcName(sha)+"()", keys, args)
	if err != nil {
		return reply.Reply{}, err
	}
	if !ok {
		if t, isTable := result.(*Table); isTable {
			if msg, isStr := t.Fields["err"].(Str); isStr {
				return reply.Reply{}, b.errorFor(string(msg))
			}
		}
		return reply.Reply{}, reply.New(reply.KindScript, "ERR",
			fmt.Sprintf("Error running script (call to %s): %s", funcName(sha), describe(result)))
	}
	r := FromScript(result)
	if r.Type == reply.TypeError {
		return reply.Reply{}, b.errorFor(r.Err.Error())
	}
	return r, nil
}

// Eval loads source and runs it.
func (b *Bridge) Eval(source string, keys, args []string) (reply.Reply, error) {
	sha, err := b.Load(source)
	if err != nil {
		return reply.Reply{}, err
	}
	return b.EvalSHA(sha, keys, args)
}

// errorFor returns the engine error a script re-raised, or a script error for text.
func (b *Bridge) errorFor(text string) *reply.Error {
	if e, ok := b.raised[text]; ok {
		return e
	}
	return reply.Parse(reply.KindScript, text)
}

func describe(v Value) string {
	switch val := v.(type) {
	case Str:
		return string(val)
	case *Table:
		if msg, ok := val.Fields["err"].(Str); ok {
			return string(msg)
		}
	}
	return fmt.Sprintf("%v", v)
}
