package install

import (
	"errors"
	"io/fs"
	"syscall"
)

var (
	// ErrInstall is matched by every installation failure.
	ErrInstall = errors.New("install failed")

	ErrNoSpace     = errors.New("insufficient disk space")
	ErrLockExists  = errors.New("install lock exists: another install of this binary may be in progress")
	ErrInvalidName = errors.New("invalid binary name")
)

// Error reports the filesystem operation that failed and the path it
// failed on.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return "install failed: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInstall.
func (e *Error) Is(target error) bool {
	return target == ErrInstall
}

// IsPermission reports whether err was caused by a permission denial.
func IsPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}

// IsNoSpace reports whether err was caused by a full filesystem.
func IsNoSpace(err error) bool {
	return errors.Is(err, ErrNoSpace) || errors.Is(err, syscall.ENOSPC)
}
