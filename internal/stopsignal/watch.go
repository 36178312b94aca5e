package stopsignal

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reacts to the sentinel file being created until ctx is done or a
// stop is requested. fsnotify gives prompt detection; the poll ticker
// covers filesystems where events are not delivered.
func (a *Aggregator) Watch(ctx context.Context, poll time.Duration) {
	if a.sentinel == "" {
		return
	}
	if poll <= 0 {
		poll = 2 * time.Second
	}

	var events <-chan fsnotify.Event
	var errs <-chan error
	w, err := fsnotify.NewWatcher()
	if err == nil {
		if err = w.Add(filepath.Dir(a.sentinel)); err == nil {
			events, errs = w.Events, w.Errors
		}
		defer w.Close()
	}
	if err != nil {
		a.log.Warn().Err(err).Msg("stop file watcher unavailable, polling only")
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	base := filepath.Base(a.sentinel)

	for {
		if a.IsStopRequested() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-a.done:
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Base(ev.Name) != base || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.log.Warn().Err(err).Msg("stop file watcher error")
		case <-ticker.C:
		}
	}
}

// NotifySignals turns SIGINT and SIGTERM into stop requests. The returned
// func unregisters the handler.
func (a *Aggregator) NotifySignals() func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	quit := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			a.RequestStop("received signal " + sig.String())
		case <-quit:
		}
	}()
	return func() {
		signal.Stop(ch)
		close(quit)
	}
}
