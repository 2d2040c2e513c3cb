// Package scripthost embeds github.com/yuin/gopher-lua as the scripted
// extractor's runtime: one *lua.LState per configured script, a host API of
// DOM bindings and leveled logging registered as Lua globals, and a
// decoder for the entry table a script's extract() function returns.
package scripthost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// levelTrace sits one step below slog's lowest built-in level, matching the
// scripted host API's logTrace/logDebug/logInfo/logWarn/logError ladder.
const levelTrace = slog.LevelDebug - 4

// Entry is the normalized shape decodeEntry produces from a Lua entry
// table. script.go converts it to extract.Entry, resolving URL against the
// source page the same way the xpath extractor does.
type Entry struct {
	ID          string
	Title       string
	Description string
	URL         string
	Author      string
	Published   *time.Time
}

// Host owns the logger bound into every Script it loads.
type Host struct {
	logger *slog.Logger
}

// New builds a Host. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{logger: logger}
}

// Script is one loaded, initialized Lua program: its top level has already
// run once (the script's "initialization phase"). A *Script's *lua.LState
// is not safe for concurrent use; the scheduler owns exactly one goroutine
// per feed, which is the only caller of Extract for a given Script.
type Script struct {
	state *lua.LState
	path  string
}

// Load creates a fresh Lua state, registers the host API, and runs the
// script's top level.
func (h *Host) Load(path string) (*Script, error) {
	L := lua.NewState()
	registerNodeType(L)
	registerDocumentType(L)
	registerSelectorType(L)
	registerSourceBuffer(L)
	h.registerGlobals(L)

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("scripthost: loading %s: %w", path, err)
	}
	return &Script{state: L, path: path}, nil
}

// Close releases the script's Lua state.
func (s *Script) Close() {
	s.state.Close()
}

var errNoExtractFunction = errors.New("script does not define a global 'extract' function")

// Extract invokes the script's extract(buf) function with body wrapped as
// a SourceBuffer userdata, and decodes its returned entry table.
func (s *Script) Extract(ctx context.Context, body []byte) ([]Entry, error) {
	L := s.state
	L.SetContext(ctx)

	fn := L.GetGlobal("extract")
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("scripthost: %s: %w", s.path, errNoExtractFunction)
	}

	buf := newSourceBuffer(L, body)
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, buf); err != nil {
		return nil, fmt.Errorf("scripthost: %s: %v", s.path, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("scripthost: %s: extract must return a table of entries, got %s", s.path, ret.Type())
	}

	var entries []Entry
	var decodeErr error
	idx := 0
	tbl.ForEach(func(_, v lua.LValue) {
		if decodeErr != nil {
			return
		}
		idx++
		et, ok := v.(*lua.LTable)
		if !ok {
			decodeErr = fmt.Errorf("scripthost: %s: entry %d is not a table", s.path, idx)
			return
		}
		e, err := decodeEntry(L, et)
		if err != nil {
			decodeErr = fmt.Errorf("scripthost: %s: entry %d: %w", s.path, idx, err)
			return
		}
		entries = append(entries, e)
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return entries, nil
}

func (h *Host) registerGlobals(L *lua.LState) {
	L.SetGlobal("parseSelector", L.NewFunction(luaParseSelector))
	L.SetGlobal("parseHtml", L.NewFunction(luaParseHTML))

	L.SetGlobal("logTrace", L.NewFunction(h.logFunc(levelTrace)))
	L.SetGlobal("logDebug", L.NewFunction(h.logFunc(slog.LevelDebug)))
	L.SetGlobal("logInfo", L.NewFunction(h.logFunc(slog.LevelInfo)))
	L.SetGlobal("logWarn", L.NewFunction(h.logFunc(slog.LevelWarn)))
	L.SetGlobal("logError", L.NewFunction(h.logFunc(slog.LevelError)))

	// print/warn are the Lua idiom scripts reach for by habit; route them
	// through the same leveled logger rather than stdout.
	L.SetGlobal("print", L.NewFunction(h.logFunc(slog.LevelInfo)))
	L.SetGlobal("warn", L.NewFunction(h.logFunc(slog.LevelWarn)))
}

func (h *Host) logFunc(level slog.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, top)
		for i := 1; i <= top; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		h.logger.Log(context.Background(), level, strings.Join(parts, " "))
		return 0
	}
}
