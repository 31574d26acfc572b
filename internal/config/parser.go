package config

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/binstall/internal/platform"
)

const (
	// maxSettingsSize bounds the settings file read by Load.
	maxSettingsSize = 1 << 20
	// parseTimeout bounds the evaluation of a settings file.
	parseTimeout = 5 * time.Second
)

// Parser evaluates Lua settings with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new settings parser with the given platform detector.
// A nil detector leaves the platform table out.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseString evaluates luaCode and returns the defaults overlaid with the
// values it sets. Paths are returned as written.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Settings, error) {
	ctx, cancel := context.WithTimeout(ctx, parseTimeout)
	defer cancel()

	L := newSandboxedVM(ctx)
	defer L.Close()

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &ParseError{Message: "settings evaluation aborted", Detail: ctxErr.Error()}
		}
		return nil, &ParseError{
			Message: "Lua error",
			Detail:  err.Error(),
		}
	}

	settings := Defaults()
	if err := extractSettings(L, settings); err != nil {
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		return nil, &ParseError{
			Message: "invalid settings",
			Detail:  err.Error(),
		}
	}

	return settings, nil
}

// ParseError represents a settings parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

var (
	topLevelFields = map[string]bool{
		luaFieldInstall: true, luaFieldState: true, luaFieldCatalog: true,
		luaFieldLogLevel: true, luaFieldFetch: true, luaFieldSmoke: true,
	}
	fetchFields = map[string]bool{
		luaFieldTimeout: true, luaFieldRetries: true, luaFieldUserAgent: true, luaFieldMaxBytes: true,
	}
	smokeFields = map[string]bool{
		luaFieldTimeout: true,
	}
)

// extractSettings copies the global "binstall" table into s. A file that
// does not define the table keeps every default.
func extractSettings(L *lua.LState, s *Settings) error {
	root := L.GetGlobal(luaGlobalBinstall)
	switch root.Type() {
	case lua.LTNil:
		return nil
	case lua.LTTable:
	default:
		return &ParseError{
			Message: "invalid 'binstall' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}
	table := root.(*lua.LTable)

	if err := checkFields(table, "binstall", topLevelFields); err != nil {
		return err
	}

	if err := optString(table, luaFieldInstall, "binstall", &s.InstallDir); err != nil {
		return err
	}
	if err := optString(table, luaFieldState, "binstall", &s.StateDir); err != nil {
		return err
	}
	if err := optString(table, luaFieldCatalog, "binstall", &s.Catalog); err != nil {
		return err
	}
	if err := optString(table, luaFieldLogLevel, "binstall", &s.LogLevel); err != nil {
		return err
	}

	if fetchTable, err := optTable(table, luaFieldFetch, "binstall"); err != nil {
		return err
	} else if fetchTable != nil {
		if err := extractFetch(fetchTable, &s.Fetch); err != nil {
			return err
		}
	}

	if smokeTable, err := optTable(table, luaFieldSmoke, "binstall"); err != nil {
		return err
	} else if smokeTable != nil {
		if err := checkFields(smokeTable, "binstall.smoke", smokeFields); err != nil {
			return err
		}
		if err := optDuration(smokeTable, luaFieldTimeout, "binstall.smoke", &s.Smoke.Timeout); err != nil {
			return err
		}
	}

	return nil
}

func extractFetch(table *lua.LTable, f *FetchSettings) error {
	const scope = "binstall.fetch"

	if err := checkFields(table, scope, fetchFields); err != nil {
		return err
	}
	if err := optDuration(table, luaFieldTimeout, scope, &f.Timeout); err != nil {
		return err
	}
	if err := optString(table, luaFieldUserAgent, scope, &f.UserAgent); err != nil {
		return err
	}

	var retries, maxBytes float64
	if ok, err := optNumber(table, luaFieldRetries, scope, &retries); err != nil {
		return err
	} else if ok {
		f.Retries = int(retries)
	}
	if ok, err := optNumber(table, luaFieldMaxBytes, scope, &maxBytes); err != nil {
		return err
	} else if ok {
		f.MaxBytes = int64(maxBytes)
	}

	return nil
}

// checkFields rejects keys outside allowed.
func checkFields(table *lua.LTable, scope string, allowed map[string]bool) error {
	var unknown []string
	table.ForEach(func(key, _ lua.LValue) {
		if name, ok := key.(lua.LString); !ok || !allowed[string(name)] {
			unknown = append(unknown, key.String())
		}
	})
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &ParseError{
		Message: "unknown settings field",
		Detail:  fmt.Sprintf("%s: %s", scope, strings.Join(unknown, ", ")),
	}
}

func typeError(scope, field, want string, got lua.LValue) error {
	return &ParseError{
		Message: "invalid settings value",
		Detail:  fmt.Sprintf("%s.%s: expected %s, got %s", scope, field, want, got.Type()),
	}
}

func optString(table *lua.LTable, field, scope string, dst *string) error {
	v := table.RawGetString(field)
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTString:
		*dst = v.String()
		return nil
	default:
		return typeError(scope, field, "string", v)
	}
}

func optNumber(table *lua.LTable, field, scope string, dst *float64) (bool, error) {
	v := table.RawGetString(field)
	switch v.Type() {
	case lua.LTNil:
		return false, nil
	case lua.LTNumber:
		*dst = float64(lua.LVAsNumber(v))
		return true, nil
	default:
		return false, typeError(scope, field, "number", v)
	}
}

func optTable(table *lua.LTable, field, scope string) (*lua.LTable, error) {
	v := table.RawGetString(field)
	switch v.Type() {
	case lua.LTNil:
		return nil, nil
	case lua.LTTable:
		return v.(*lua.LTable), nil
	default:
		return nil, typeError(scope, field, "table", v)
	}
}

// optDuration accepts a Go duration string or a number of seconds.
func optDuration(table *lua.LTable, field, scope string, dst *time.Duration) error {
	v := table.RawGetString(field)
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTNumber:
		*dst = time.Duration(float64(lua.LVAsNumber(v)) * float64(time.Second))
		return nil
	case lua.LTString:
		d, err := time.ParseDuration(v.String())
		if err != nil {
			return &ParseError{
				Message: "invalid settings value",
				Detail:  fmt.Sprintf("%s.%s: %v", scope, field, err),
			}
		}
		*dst = d
		return nil
	default:
		return typeError(scope, field, "duration string or seconds", v)
	}
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		// Extract the most relevant part of the error
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
