package platform

import (
	lua "github.com/yuin/gopher-lua"
)

// InjectPlatformTable creates a read-only platform table and injects it into the Lua state as a global.
// This should be called before loading any user settings code.
func InjectPlatformTable(L *lua.LState, info *Info) error {
	platformTable := L.NewTable()

	L.SetField(platformTable, "os", lua.LString(info.OS))
	L.SetField(platformTable, "arch", lua.LString(info.Arch))
	L.SetField(platformTable, "arch_raw", lua.LString(info.ArchRaw))
	L.SetField(platformTable, "pair", lua.LString(info.Pair().String()))

	L.SetField(platformTable, "is_linux", lua.LBool(info.IsLinux()))
	L.SetField(platformTable, "is_macos", lua.LBool(info.IsMacOS()))
	L.SetField(platformTable, "is_windows", lua.LBool(info.IsWindows()))
	L.SetField(platformTable, "is_amd64", lua.LBool(info.IsAMD64()))
	L.SetField(platformTable, "is_arm64", lua.LBool(info.IsARM64()))
	L.SetField(platformTable, "is_apple_silicon", lua.LBool(info.IsAppleSilicon()))

	if distro := info.GetDistro(); distro != nil {
		distroTable := L.NewTable()
		L.SetField(distroTable, "id", lua.LString(distro.ID))
		L.SetField(distroTable, "family", lua.LString(distro.Family))
		L.SetField(distroTable, "version", lua.LString(distro.Version))
		L.SetField(platformTable, "distro", distroTable)
	} else {
		L.SetField(platformTable, "distro", lua.LNil)
	}

	// when(condition, value) returns value if condition is true, nil otherwise
	L.SetField(platformTable, "when", L.NewFunction(func(L *lua.LState) int {
		if L.CheckBool(1) {
			L.Push(L.Get(2))
		} else {
			L.Push(lua.LNil)
		}
		return 1
	}))

	L.SetGlobal("platform", makeReadOnly(L, platformTable))

	return nil
}

// makeReadOnly makes a Lua table read-only by creating a proxy table with a metatable.
// The proxy redirects reads to the original table but prevents all writes.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()
	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform table is read-only and cannot be modified")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)

	return proxy
}
