// Package smoke runs an installed binary with a side-effect-free flag to
// confirm that it executes on the host.
package smoke

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/binstall/internal/logger"
)

const (
	// DefaultTimeout bounds a single smoke test run.
	DefaultTimeout = 10 * time.Second
	// DefaultFlag is the version query passed when none is configured.
	DefaultFlag = "--version"

	maxOutput = 4 << 10
)

// ErrSmokeTestFailed is matched by every failed smoke test.
var ErrSmokeTestFailed = errors.New("smoke test failed")

// Error describes a failed run. ExitCode is -1 when the process did not
// exit on its own (it could not be started or was killed on timeout or
// cancellation).
type Error struct {
	Path     string
	Flag     string
	ExitCode int
	Output   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("smoke test failed: %s %s", e.Path, e.Flag)
	switch {
	case e.ExitCode > 0:
		msg += fmt.Sprintf(": exit status %d", e.ExitCode)
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	if line := firstLine(e.Output); line != "" {
		msg += ": " + line
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSmokeTestFailed.
func (e *Error) Is(target error) bool {
	return target == ErrSmokeTestFailed
}

// Result is a successful run.
type Result struct {
	Path     string
	Flag     string
	Output   string
	Duration time.Duration
}

// Reports reports whether the output mentions version. A binary that
// passes the smoke test but prints another version is still installed; the
// caller decides whether to warn.
func (r *Result) Reports(version string) bool {
	version = strings.TrimPrefix(version, "v")
	return version != "" && strings.Contains(r.Output, version)
}

// Tester runs smoke tests.
type Tester struct {
	timeout time.Duration
}

// NewTester creates a tester; a non-positive timeout selects DefaultTimeout.
func NewTester(timeout time.Duration) *Tester {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tester{timeout: timeout}
}

// SelfTest runs path with flag and requires a zero exit status.
func (t *Tester) SelfTest(ctx context.Context, path, flag string) (*Result, error) {
	if flag == "" {
		flag = DefaultFlag
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	// Create command with context for cancellation/timeout support
	cmd := exec.CommandContext(ctx, path, flag)
	cmd.Env = scrubbedEnv()
	cmd.WaitDelay = time.Second

	start := time.Now()
	out, err := cmd.CombinedOutput()
	output := truncate(string(out))

	if err != nil {
		serr := &Error{Path: path, Flag: flag, ExitCode: -1, Output: output, Err: err}

		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			serr.Err = fmt.Errorf("timed out after %s: %w", t.timeout, ctx.Err())
		case ctx.Err() != nil:
			serr.Err = fmt.Errorf("interrupted: %w", ctx.Err())
		case errors.As(err, &exitErr):
			serr.ExitCode = exitErr.ExitCode()
		}

		logger.DebugKV(ctx, "smoke test failed", "path", path, "flag", flag, "exit_code", serr.ExitCode, "error", err)
		return nil, serr
	}

	res := &Result{Path: path, Flag: flag, Output: output, Duration: time.Since(start)}
	logger.DebugKV(ctx, "smoke test passed", "path", path, "output", firstLine(output), "duration", res.Duration)
	return res, nil
}

// scrubbedEnv passes through only the variables a version query needs.
func scrubbedEnv() []string {
	var env []string
	for _, name := range []string{"HOME", "PATH", "USER", "LANG", "TMPDIR", "SYSTEMROOT"} {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	return env
}

func truncate(s string) string {
	if len(s) <= maxOutput {
		return s
	}
	return s[:maxOutput] + "\n[output truncated]"
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
