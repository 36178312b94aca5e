// Package runlock keeps a second slotwatch from polling the same page.
package runlock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/example/slotwatch/internal/internaltypes"
)

type Holder struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	Command   string    `json:"command"`
}

// writeGrace is how long an unparsable lock file is still treated as live.
const writeGrace = 5 * time.Second

// Acquire creates path exclusively. A lock left by a dead process is taken
// over once. The returned func removes the lock.
func Acquire(path, command string) (func() error, error) {
	return acquire(path, command, true)
}

func acquire(path, command string, retry bool) (func() error, error) {
	data, err := json.MarshalIndent(Holder{PID: os.Getpid(), StartedAt: time.Now(), Command: command}, "", "    ")
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		h, readErr := Read(path)
		if readErr == nil && h.PID > 0 && processAlive(h.PID) {
			return nil, fmt.Errorf("%w (pid %d, %s since %s)", internaltypes.ErrAlreadyRunning, h.PID, h.Command, h.StartedAt.Format(time.RFC3339))
		}
		// An unreadable lock may still be between create and write.
		if readErr != nil && modifiedWithin(path, writeGrace) {
			return nil, fmt.Errorf("%w (lock file %s is being written)", internaltypes.ErrAlreadyRunning, path)
		}
		if retry && os.Remove(path) == nil {
			return acquire(path, command, false)
		}
		return nil, fmt.Errorf("%w (lock file %s exists)", internaltypes.ErrAlreadyRunning, path)
	}
	if err != nil {
		return nil, fmt.Errorf("create lock: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, err
	}
	return func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}, nil
}

// Read returns the current holder of the lock at path.
func Read(path string) (Holder, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Holder{}, err
	}
	var h Holder
	if err := json.Unmarshal(b, &h); err != nil {
		return Holder{}, fmt.Errorf("parse lock: %w", err)
	}
	return h, nil
}

func modifiedWithin(path string, d time.Duration) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(fi.ModTime()) < d
}

func processAlive(pid int) bool {
	// signal 0 only checks existence and permission
	return syscall.Kill(pid, 0) == nil
}
