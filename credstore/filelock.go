package credstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultLockWait = 5 * time.Second
	lockPoll        = 50 * time.Millisecond
	// A save or clear holds the lock for milliseconds. Anything older was left
	// by a process that died before unlocking.
	lockStaleAge = 10 * time.Second
)

// writeLock serializes writers of auth.json across processes. It is held by
// creating auth.json.lock exclusively; the file records the holder's PID.
type writeLock struct {
	path string
	file *os.File
}

// lockRecord takes the lock guarding recordPath, polling until ctx is done.
func lockRecord(ctx context.Context, recordPath string) (*writeLock, error) {
	lockPath := recordPath + ".lock"
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s held by %s: %w", filepath.Base(lockPath), lockHolder(lockPath), err)
		}

		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
			return &writeLock{path: lockPath, file: f}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		reclaimed, err := reclaimStale(lockPath)
		if err != nil {
			return nil, err
		}
		if reclaimed {
			continue
		}

		select {
		case <-ctx.Done():
		case <-time.After(lockPoll):
		}
	}
}

// reclaimStale removes lockPath when it is older than lockStaleAge. A lock
// that vanished in the meantime counts as reclaimed.
func reclaimStale(lockPath string) (bool, error) {
	info, err := os.Stat(lockPath)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil || time.Since(info.ModTime()) <= lockStaleAge {
		return false, nil
	}
	if err := os.Remove(lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to remove stale lock file %s: %w", lockPath, err)
	}
	return true, nil
}

func lockHolder(lockPath string) string {
	data, err := os.ReadFile(lockPath)
	pid := strings.TrimSpace(string(data))
	if err != nil || pid == "" {
		return "another process"
	}
	return "pid " + pid
}

// unlock removes the lock file. Unlocking twice returns the remove error.
func (l *writeLock) unlock() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	return os.Remove(l.path)
}
