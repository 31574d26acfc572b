package install

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// StaleLockThreshold is the maximum age of a lock before it's considered stale.
	StaleLockThreshold = 10 * time.Minute

	lockPollInterval = 50 * time.Millisecond
)

// lock is an exclusive per-binary install lock held in the target directory.
type lock struct {
	path string
	file *os.File
}

func lockPath(dir, name string) string {
	return filepath.Join(dir, "."+name+".binstall.lock")
}

// acquireLock takes the install lock for name in dir, waiting up to wait for
// a concurrent install to finish. Uses O_CREATE|O_EXCL for atomic lock creation.
func acquireLock(ctx context.Context, dir, name string, wait time.Duration) (*lock, error) {
	path := lockPath(dir, name)
	deadline := time.Now().Add(wait)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		l, err := tryLock(path)
		if err == nil {
			return l, nil
		}
		if err != ErrLockExists {
			return nil, err
		}

		if time.Now().After(deadline) {
			return nil, ErrLockExists
		}

		select {
		case <-time.After(lockPollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func tryLock(path string) (*lock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}

		if stale, _ := isLockStale(path); !stale {
			return nil, ErrLockExists
		}

		// Remove stale lock and retry once
		os.Remove(path)
		file, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
		if err != nil {
			return nil, ErrLockExists
		}
	}

	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	return &lock{path: path, file: file}, nil
}

// release releases the lock.
func (l *lock) release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
	}

	return nil
}

// isLockStale checks if a lock file is older than the stale lock threshold.
func isLockStale(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return time.Since(info.ModTime()) > StaleLockThreshold, nil
}
