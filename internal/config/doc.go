// Package config loads binstall settings from a Lua file.
//
// The settings file is executed in a sandboxed gopher-lua VM. The os, io,
// debug and module loading libraries are removed, as are the raw table and
// metatable functions, so a settings file can compute values but cannot touch
// the system. A read-only platform table is injected before the file runs:
//
//	binstall = {
//	  install_dir = platform.is_macos and "/opt/homebrew/bin" or "~/.local/bin",
//	  fetch = { timeout = "2m", retries = 5 },
//	  smoke = { timeout = 10 },
//	  log_level = "info",
//	}
//
// Durations are Go duration strings or a number of seconds. Keys not listed
// in the schema are rejected so typos surface as errors.
//
// Resolution order, last wins: built-in defaults, the settings file, then
// the BINSTALL_INSTALL_DIR and BINSTALL_LOG_LEVEL environment variables. The
// file itself is found through --config, then BINSTALL_CONFIG, then
// $XDG_CONFIG_HOME/binstall/settings.lua. A missing default file is not an
// error.
package config
