// Package stopsignal merges every way of asking a run to stop (in-process
// calls, OS signals, the sentinel file, the control endpoint) into one
// monotonic flag.
package stopsignal

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultSentinel is the stop file name used when none is configured.
const DefaultSentinel = "stop_automation.txt"

// Aggregator is safe for concurrent use. Once stopped it stays stopped.
type Aggregator struct {
	sentinel string
	log      zerolog.Logger

	once   sync.Once
	done   chan struct{}
	mu     sync.Mutex
	reason string
}

// New returns an aggregator that also treats the existence of sentinelPath
// as a stop request. An empty path disables the file check.
func New(sentinelPath string, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		sentinel: sentinelPath,
		log:      log,
		done:     make(chan struct{}),
	}
}

// RequestStop sets the flag. Only the first reason is kept.
func (a *Aggregator) RequestStop(reason string) {
	a.once.Do(func() {
		a.mu.Lock()
		a.reason = reason
		a.mu.Unlock()
		close(a.done)
		a.log.Info().Str("reason", reason).Msg("stop requested")
	})
}

// IsStopRequested reports whether a stop was requested. It checks the
// sentinel file on every call, so a file created by another process is
// seen even if no watcher is running.
func (a *Aggregator) IsStopRequested() bool {
	select {
	case <-a.done:
		return true
	default:
	}
	return a.checkSentinel()
}

// Done is closed when a stop is requested.
func (a *Aggregator) Done() <-chan struct{} { return a.done }

func (a *Aggregator) Reason() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reason
}

func (a *Aggregator) SentinelPath() string { return a.sentinel }

// checkSentinel consumes the sentinel file if present.
func (a *Aggregator) checkSentinel() bool {
	if a.sentinel == "" {
		return false
	}
	if _, err := os.Stat(a.sentinel); err != nil {
		return false
	}
	a.RequestStop(fmt.Sprintf("stop file %s", a.sentinel))
	if err := os.Remove(a.sentinel); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.log.Warn().Err(err).Str("path", a.sentinel).Msg("could not remove stop file")
	}
	return true
}

// ClearStale removes a sentinel left behind by an earlier run so it does
// not stop this one on startup. It reports whether a file was removed.
func (a *Aggregator) ClearStale() (bool, error) {
	if a.sentinel == "" {
		return false, nil
	}
	err := os.Remove(a.sentinel)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove stale stop file: %w", err)
	}
	return true, nil
}

// WriteSentinel creates the stop file that a running instance watches.
func WriteSentinel(path string) error {
	if path == "" {
		path = DefaultSentinel
	}
	if err := os.WriteFile(path, []byte("stop\n"), 0o644); err != nil {
		return fmt.Errorf("write stop file: %w", err)
	}
	return nil
}
