// Package install places verified binaries into the install directory.
//
// A binary is written to a temporary file next to its final path, synced,
// made executable and then renamed over the final path. Readers of the final
// path observe either the previous binary or the new one, never a partial
// write, and a failed install removes its temporary file.
package install

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/ZebulonRouseFrantzich/binstall/internal/logger"
)

const (
	// DefaultMode is the permission set on installed binaries.
	DefaultMode fs.FileMode = 0o755
	// DefaultLockWait is how long Install waits for a concurrent install of
	// the same binary.
	DefaultLockWait = 30 * time.Second

	// spaceMargin is kept free on top of the payload size.
	spaceMargin = 1 << 20
)

// Config configures an Installer.
type Config struct {
	// Dir is the install directory. Required.
	Dir      string
	Mode     fs.FileMode
	LockWait time.Duration
}

// InstalledBinary is the result of a successful install.
type InstalledBinary struct {
	Path string
	Mode fs.FileMode
	Size int64
}

// Installer writes binaries into one directory.
type Installer struct {
	dir      string
	mode     fs.FileMode
	lockWait time.Duration

	freeSpace    func(ctx context.Context, path string) (uint64, error)
	beforeRename func(tmpPath string) error
}

// New creates an installer for config.Dir.
func New(config Config) (*Installer, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("install directory is required")
	}

	dir, err := filepath.Abs(config.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve install directory: %w", err)
	}

	if config.Mode == 0 {
		config.Mode = DefaultMode
	}
	if config.LockWait <= 0 {
		config.LockWait = DefaultLockWait
	}

	return &Installer{
		dir:       dir,
		mode:      config.Mode,
		lockWait:  config.LockWait,
		freeSpace: diskFree,
	}, nil
}

// Dir returns the install directory.
func (i *Installer) Dir() string {
	return i.dir
}

// Path returns where a binary named name is installed.
func (i *Installer) Path(name string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		name += ".exe"
	}
	return filepath.Join(i.dir, name)
}

// Executable reports whether path is a regular file that can be run. A
// missing file is not an error.
func Executable(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return false, nil
	case err != nil:
		return false, &Error{Op: "stat", Path: path, Err: err}
	case !info.Mode().IsRegular():
		return false, nil
	case runtime.GOOS == "windows":
		return true, nil
	}
	return info.Mode().Perm()&0o111 != 0, nil
}

// Install writes payload to the canonical path for name and marks it
// executable, replacing any previous binary atomically. Installing the same
// payload again leaves the same path, mode and content.
func (i *Installer) Install(ctx context.Context, payload []byte, name string) (*InstalledBinary, error) {
	if err := validateName(name); err != nil {
		return nil, &Error{Op: "validate", Path: name, Err: err}
	}

	target := i.Path(name)

	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "install", Path: target, Err: err}
	}

	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return nil, &Error{Op: "create directory", Path: i.dir, Err: err}
	}

	l, err := acquireLock(ctx, i.dir, filepath.Base(target), i.lockWait)
	if err != nil {
		return nil, &Error{Op: "lock", Path: target, Err: err}
	}
	defer func() {
		if err := l.release(); err != nil {
			logger.WarnKV(ctx, "failed to release install lock", "path", l.path, "error", err)
		}
	}()

	if err := i.checkSpace(ctx, int64(len(payload))); err != nil {
		return nil, &Error{Op: "check space", Path: i.dir, Err: err}
	}

	if err := i.writeAtomic(target, payload); err != nil {
		return nil, err
	}

	syncDir(i.dir)

	info, err := os.Stat(target)
	if err != nil {
		return nil, &Error{Op: "stat", Path: target, Err: err}
	}

	logger.DebugKV(ctx, "binary installed", "path", target, "bytes", info.Size(), "mode", info.Mode().Perm().String())

	return &InstalledBinary{Path: target, Mode: info.Mode().Perm(), Size: info.Size()}, nil
}

func (i *Installer) writeAtomic(target string, payload []byte) error {
	tmp, err := os.CreateTemp(i.dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return &Error{Op: "create temp file", Path: i.dir, Err: err}
	}
	tmpPath := tmp.Name()

	// Track whether we need to clean up the temp file
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(payload); err != nil {
		return &Error{Op: "write", Path: tmpPath, Err: err}
	}

	if err := tmp.Sync(); err != nil {
		return &Error{Op: "sync", Path: tmpPath, Err: err}
	}

	if err := tmp.Chmod(i.mode); err != nil {
		return &Error{Op: "chmod", Path: tmpPath, Err: err}
	}

	if err := tmp.Close(); err != nil {
		return &Error{Op: "close", Path: tmpPath, Err: err}
	}

	if i.beforeRename != nil {
		if err := i.beforeRename(tmpPath); err != nil {
			return &Error{Op: "rename", Path: target, Err: err}
		}
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return &Error{Op: "rename", Path: target, Err: err}
	}

	cleanupNeeded = false
	return nil
}

func (i *Installer) checkSpace(ctx context.Context, need int64) error {
	free, err := i.freeSpace(ctx, i.dir)
	if err != nil {
		// not every filesystem reports usage; the write itself still fails on ENOSPC
		logger.DebugKV(ctx, "disk usage unavailable", "path", i.dir, "error", err)
		return nil
	}

	if uint64(need)+spaceMargin > free {
		return fmt.Errorf("%w: need %d bytes, %d available", ErrNoSpace, need+spaceMargin, free)
	}
	return nil
}

func diskFree(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// syncDir flushes a directory entry update. Errors are ignored: not every
// platform can fsync a directory.
func syncDir(dir string) {
	df, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = df.Sync()
	df.Close()
}
