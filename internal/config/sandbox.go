package config

import (
	"context"

	lua "github.com/yuin/gopher-lua"
)

// Resource limits for settings evaluation.
const (
	maxCallStackSize = 256
	maxRegistrySize  = 8 * 1024
)

// blockedGlobals are removed from every settings VM.
var blockedGlobals = []string{
	"os", "io", "debug",
	"require", "module", "dofile", "loadfile", "load", "loadstring",
	"rawset", "rawget", "rawequal", "setmetatable", "getmetatable",
	"setfenv", "getfenv", "collectgarbage", "newproxy",
}

// sandboxLuaVM removes every global that can reach the filesystem, run
// commands, load code or bypass the read-only platform table. The string,
// table and math libraries and the basic functions stay available.
func sandboxLuaVM(L *lua.LState) {
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	if pkg, ok := L.GetGlobal("package").(*lua.LTable); ok {
		L.SetField(pkg, "loadlib", lua.LNil)
	}
	L.SetGlobal("package", lua.LNil)
}

// newSandboxedVM creates a Lua VM for settings evaluation bound to ctx, so a
// runaway settings file stops when ctx is done.
func newSandboxedVM(ctx context.Context) *lua.LState {
	L := lua.NewState(lua.Options{
		CallStackSize: maxCallStackSize,
		RegistrySize:  maxRegistrySize,
	})
	L.SetContext(ctx)
	sandboxLuaVM(L)
	return L
}
