// Package lua implements script.Runtime on top of gopher-lua.
package lua

import (
	"errors"
	"fmt"

	glua "github.com/yuin/gopher-lua"

	"github.com/mockredis/mockredis/internal/script"
)

// Runtime is a single Lua state. It is not safe for concurrent use.
type Runtime struct {
	L     *glua.LState
	call  script.CallHook
	fault error
}

var _ script.Runtime = (*Runtime)(nil)

// New creates a runtime with the standard Lua libraries opened.
func New() *Runtime {
	return &Runtime{L: glua.NewState()}
}

// Initialize registers the call hook and runs the bootstrap source.
func (r *Runtime) Initialize(bootstrap string, call script.CallHook) error {
	r.call = call
	r.L.SetGlobal(script.HookName, r.L.NewFunction(r.hook))
	if err := r.L.DoString(bootstrap); err != nil {
		return fmt.Errorf("lua: bootstrap: %w", err)
	}
	return nil
}

func (r *Runtime) hook(L *glua.LState) int {
	n := L.GetTop()
	if n == 0 {
		L.Push(toLua(L, script.ErrorTable("ERR Please specify at least one argument for this redis lib call")))
		return 1
	}
	args := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		v := L.Get(i)
		switch v.Type() {
		case glua.LTString, glua.LTNumber:
			args = append(args, v.String())
		default:
			L.Push(toLua(L, script.ErrorTable("ERR Lua redis lib command arguments must be strings or integers")))
			return 1
		}
	}
	v, err := r.call(args[0], args[1:])
	if err != nil {
		r.fault = err
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(toLua(L, v))
	return 1
}

// Run executes source and returns its first result.
func (r *Runtime) Run(source string, keys, args []string) (bool, script.Value, error) {
	L := r.L
	L.SetTop(0)
	defer L.SetTop(0)
	L.SetGlobal("KEYS", stringTable(L, keys))
	L.SetGlobal("ARGV", stringTable(L, args))
	r.fault = nil

	fn, err := L.LoadString(source)
	if err != nil {
		return false, script.Str(err.Error()), nil
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		if fault := r.fault; fault != nil {
			r.fault = nil
			return false, nil, fault
		}
		var apiErr *glua.ApiError
		if errors.As(err, &apiErr) && apiErr.Object != nil {
			return false, fromLua(apiErr.Object), nil
		}
		return false, script.Str(err.Error()), nil
	}
	// A fault swallowed by a Lua-side pcall still aborts the script.
	if fault := r.fault; fault != nil {
		r.fault = nil
		return false, nil, fault
	}
	return true, fromLua(L.Get(-1)), nil
}

// Close releases the Lua state.
func (r *Runtime) Close() { r.L.Close() }

func stringTable(L *glua.LState, items []string) *glua.LTable {
	t := L.CreateTable(len(items), 0)
	for i, s := range items {
		t.RawSetInt(i+1, glua.LString(s))
	}
	return t
}

func toLua(L *glua.LState, v script.Value) glua.LValue {
	switch val := v.(type) {
	case script.Bool:
		return glua.LBool(val)
	case script.Int:
		return glua.LNumber(val)
	case script.Str:
		return glua.LString(val)
	case *script.Table:
		t := L.CreateTable(len(val.Items), len(val.Fields))
		for k, f := range val.Fields {
			t.RawSetString(k, toLua(L, f))
		}
		for i, item := range val.Items {
			t.RawSetInt(i, toLua(L, item))
		}
		return t
	}
	// Absent values are false in Lua, never nil, so arrays keep their length.
	return glua.LFalse
}

func fromLua(v glua.LValue) script.Value {
	switch val := v.(type) {
	case glua.LBool:
		return script.Bool(val)
	case glua.LNumber:
		return script.Int(int64(val))
	case glua.LString:
		return script.Str(string(val))
	case *glua.LTable:
		t := script.NewTable()
		for _, name := range []string{"ok", "err"} {
			if f := val.RawGetString(name); f != glua.LNil {
				t.Fields[name] = fromLua(f)
			}
		}
		for i := 1; ; i++ {
			item := val.RawGetInt(i)
			if item == glua.LNil {
				break
			}
			t.Items[i] = fromLua(item)
		}
		return t
	}
	return script.Nil{}
}
