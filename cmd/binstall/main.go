// Command binstall installs prebuilt binaries for the host platform from a
// catalog of release artifacts.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Build metadata, set at build time via -ldflags.
var (
	Version   = "v0.1.0"
	Commit    = "none"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line in args and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}
