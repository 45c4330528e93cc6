package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/justyntemme/imagine/pkg/framework/debug"
)

// LuaHandler runs the generation function of a Lua script. The script is
// compiled once per (re)load; every call gets a fresh interpreter so calls
// may run in parallel.
type LuaHandler struct {
	path     string
	function string
	log      *debug.Logger

	mu    sync.RWMutex
	proto *lua.FunctionProto
}

// NewLuaHandler compiles the script at path. function names the global
// the handler calls; empty means DefaultFunction.
func NewLuaHandler(path, function string) (*LuaHandler, error) {
	if function == "" {
		function = DefaultFunction
	}
	h := &LuaHandler{
		path:     path,
		function: function,
		log:      debug.Default().Named("generate.lua"),
	}
	if err := h.Reload(); err != nil {
		return nil, err
	}
	return h, nil
}

// Path returns the script location
func (h *LuaHandler) Path() string {
	return h.path
}

// Reload recompiles the script. On error the previous version stays active.
func (h *LuaHandler) Reload() error {
	f, err := os.Open(h.path)
	if err != nil {
		return fmt.Errorf("generate: open script: %w", err)
	}
	defer f.Close()

	chunk, err := parse.Parse(f, h.path)
	if err != nil {
		return fmt.Errorf("generate: parse %s: %w", h.path, err)
	}
	proto, err := lua.Compile(chunk, h.path)
	if err != nil {
		return fmt.Errorf("generate: compile %s: %w", h.path, err)
	}

	h.mu.Lock()
	h.proto = proto
	h.mu.Unlock()
	return nil
}

// Generate implements Handler
func (h *LuaHandler) Generate(ctx context.Context, req Request) (string, error) {
	h.mu.RLock()
	proto := h.proto
	h.mu.RUnlock()

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	L.SetGlobal("log", L.NewFunction(h.luaLog))

	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return "", h.callError(ctx, err)
	}

	fn := L.GetGlobal(h.function)
	if fn.Type() != lua.LTFunction {
		return "", fmt.Errorf("%w: %s in %s", ErrNoHandler, h.function, h.path)
	}

	args := make([]lua.LValue, 0, 2+NumParams)
	args = append(args, lua.LString(req.ImagePath), lua.LString(req.OutputDir))
	for _, v := range req.Params.Ints() {
		args = append(args, lua.LNumber(v))
	}
	for _, v := range req.Params.Floats() {
		args = append(args, lua.LNumber(v))
	}

	err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...)
	if err != nil {
		return "", h.callError(ctx, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	s, ok := ret.(lua.LString)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: got %s", ErrBadResult, ret.Type())
	}
	return string(s), nil
}

func (h *LuaHandler) callError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("generate: %s: %w", h.function, err)
}

func (h *LuaHandler) luaLog(L *lua.LState) int {
	h.log.Infow(L.CheckString(1), "script", filepath.Base(h.path))
	return 0
}

// Watch reloads the script whenever it changes, until ctx ends. Reload
// failures are logged and the previous version keeps running.
func (h *LuaHandler) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("generate: watch: %w", err)
	}
	defer w.Close()

	// Editors often replace the file, so watch the directory
	if err := w.Add(filepath.Dir(h.path)); err != nil {
		return fmt.Errorf("generate: watch %s: %w", h.path, err)
	}
	target := filepath.Clean(h.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := h.Reload(); err != nil {
				h.log.Warnw("script reload failed", "path", h.path, "err", err)
				continue
			}
			h.log.Infow("script reloaded", "path", h.path)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			h.log.Warnw("script watch error", "err", err)
		}
	}
}
