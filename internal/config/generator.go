package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Generator writes settings back out as a Lua settings file.
type Generator struct {
	indent string // Indentation string (default: two spaces)
}

// NewGenerator creates a new Lua settings generator.
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ", // Two spaces
	}
}

// Generate renders s as Lua that ParseString reads back to the same values.
func (g *Generator) Generate(s *Settings) string {
	var buf bytes.Buffer

	buf.WriteString("-- binstall settings\n")
	buf.WriteString("-- The read-only `platform` table is available, e.g.\n")
	buf.WriteString("--   install_dir = platform.is_macos and \"/opt/homebrew/bin\" or \"~/.local/bin\",\n\n")

	buf.WriteString(luaGlobalBinstall + " = {\n")
	g.writeField(&buf, 1, luaFieldInstall, g.quoteLuaString(s.InstallDir))
	g.writeField(&buf, 1, luaFieldState, g.quoteLuaString(s.StateDir))
	if s.Catalog != "" {
		g.writeField(&buf, 1, luaFieldCatalog, g.quoteLuaString(s.Catalog))
	}
	g.writeField(&buf, 1, luaFieldLogLevel, g.quoteLuaString(s.LogLevel))

	buf.WriteString("\n")
	g.open(&buf, 1, luaFieldFetch)
	g.writeField(&buf, 2, luaFieldTimeout, g.quoteDuration(s.Fetch.Timeout))
	g.writeField(&buf, 2, luaFieldRetries, fmt.Sprintf("%d", s.Fetch.Retries))
	g.writeField(&buf, 2, luaFieldUserAgent, g.quoteLuaString(s.Fetch.UserAgent))
	g.writeField(&buf, 2, luaFieldMaxBytes, fmt.Sprintf("%d", s.Fetch.MaxBytes))
	g.close(&buf, 1)

	buf.WriteString("\n")
	g.open(&buf, 1, luaFieldSmoke)
	g.writeField(&buf, 2, luaFieldTimeout, g.quoteDuration(s.Smoke.Timeout))
	g.close(&buf, 1)

	buf.WriteString("}\n")
	return buf.String()
}

func (g *Generator) open(buf *bytes.Buffer, depth int, name string) {
	buf.WriteString(strings.Repeat(g.indent, depth))
	buf.WriteString(name)
	buf.WriteString(" = {\n")
}

func (g *Generator) close(buf *bytes.Buffer, depth int) {
	buf.WriteString(strings.Repeat(g.indent, depth))
	buf.WriteString("},\n")
}

func (g *Generator) writeField(buf *bytes.Buffer, depth int, name, value string) {
	buf.WriteString(strings.Repeat(g.indent, depth))
	buf.WriteString(name)
	buf.WriteString(" = ")
	buf.WriteString(value)
	buf.WriteString(",\n")
}

func (g *Generator) quoteDuration(d time.Duration) string {
	return g.quoteLuaString(d.String())
}

// quoteLuaString quotes a string for Lua, handling special characters.
func (g *Generator) quoteLuaString(s string) string {
	// Use double quotes and escape special characters
	s = strings.ReplaceAll(s, "\\", "\\\\") // Escape backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"") // Escape double quotes
	s = strings.ReplaceAll(s, "\n", "\\n")  // Escape newlines
	s = strings.ReplaceAll(s, "\r", "\\r")  // Escape carriage returns
	s = strings.ReplaceAll(s, "\t", "\\t")  // Escape tabs
	return "\"" + s + "\""
}
