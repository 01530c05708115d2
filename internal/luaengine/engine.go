// Package luaengine evaluates lua condition actions in short-lived
// sandboxed VMs. Each evaluation gets a fresh state with a small `keyforge`
// API and no os/io access.
package luaengine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/keyforge/keyforge/internal/imagematch"
	"github.com/keyforge/keyforge/internal/platform"
)

// evalTimeout bounds a single condition evaluation so a runaway chunk
// cannot hang playback.
const evalTimeout = 5 * time.Second

// Engine runs lua condition chunks. The screenshotter may be nil; calls to
// keyforge.find then raise a lua error the chunk can pcall around.
type Engine struct {
	screens platform.Screenshotter
	logger  *slog.Logger
}

// New creates a lua engine.
func New(screens platform.Screenshotter, logger *slog.Logger) *Engine {
	return &Engine{
		screens: screens,
		logger:  logger.With("component", "lua"),
	}
}

// Eval runs a chunk and returns its boolean verdict. A chunk that returns
// nothing, nil, or a truthy value passes; an explicit false fails the
// condition. Runtime errors are returned as errors.
func (e *Engine) Eval(ctx context.Context, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	L := e.newState(ctx)
	defer L.Close()

	if err := L.DoString(code); err != nil {
		return false, fmt.Errorf("lua: %w", err)
	}

	ret := L.Get(-1)
	if ret == lua.LFalse {
		return false, nil
	}
	return true, nil
}

// newState builds a sandboxed VM: base, table, string and math libraries
// only, plus the keyforge table.
func (e *Engine) newState(ctx context.Context) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	L.SetContext(ctx)

	for _, pair := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(pair.fn))
		L.Push(lua.LString(pair.name))
		L.Call(1, 0)
	}

	kf := L.NewTable()
	L.SetGlobal("keyforge", kf)
	L.SetField(kf, "log", L.NewFunction(e.luaLog))
	L.SetField(kf, "sleep", L.NewFunction(e.luaSleep))
	L.SetField(kf, "find", L.NewFunction(e.luaFind))
	return L
}

// keyforge.log(msg) emits a message into the engine log.
func (e *Engine) luaLog(L *lua.LState) int {
	e.logger.Info("script log", "msg", L.CheckString(1))
	return 0
}

// keyforge.sleep(ms) blocks the chunk for the given milliseconds, bounded
// by the evaluation timeout.
func (e *Engine) luaSleep(L *lua.LState) int {
	ms := L.CheckInt(1)
	if ms < 0 {
		ms = 0
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-L.Context().Done():
	}
	return 0
}

// keyforge.find(templatePath, minConfidence) captures the screen and looks
// for the template. Returns (x, y, confidence) on a match, nil otherwise.
func (e *Engine) luaFind(L *lua.LState) int {
	path := L.CheckString(1)
	minConf := float64(L.OptNumber(2, 0.8))

	if e.screens == nil {
		L.RaiseError("screen capture not available on this platform")
		return 0
	}
	if err := imagematch.Validate(minConf); err != nil {
		L.RaiseError("find: %v", err)
		return 0
	}

	tmpl, err := imagematch.LoadTemplate(path)
	if err != nil {
		L.RaiseError("find: %v", err)
		return 0
	}
	screen, err := e.screens.CaptureScreen()
	if err != nil {
		L.RaiseError("find: %v", err)
		return 0
	}

	m, ok := imagematch.FindMatch(screen, tmpl, minConf)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(m.X))
	L.Push(lua.LNumber(m.Y))
	L.Push(lua.LNumber(m.Confidence))
	return 3
}
