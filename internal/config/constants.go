package config

// Lua schema field names and globals
const (
	luaGlobalBinstall = "binstall"
	luaFieldInstall   = "install_dir"
	luaFieldState     = "state_dir"
	luaFieldCatalog   = "catalog"
	luaFieldLogLevel  = "log_level"
	luaFieldFetch     = "fetch"
	luaFieldSmoke     = "smoke"
	luaFieldTimeout   = "timeout"
	luaFieldRetries   = "retries"
	luaFieldUserAgent = "user_agent"
	luaFieldMaxBytes  = "max_bytes"
)

// Environment variables consulted by Load.
const (
	EnvConfig     = "BINSTALL_CONFIG"
	EnvInstallDir = "BINSTALL_INSTALL_DIR"
	EnvLogLevel   = "BINSTALL_LOG_LEVEL"
)
