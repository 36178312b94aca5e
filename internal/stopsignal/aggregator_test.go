package stopsignal

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestStopIsMonotonicAndKeepsFirstReason(t *testing.T) {
	a := New("", zerolog.Nop())
	assert.False(t, a.IsStopRequested())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.RequestStop("concurrent")
		}()
	}
	wg.Wait()
	a.RequestStop("later")

	assert.True(t, a.IsStopRequested())
	assert.True(t, a.IsStopRequested())
	assert.Equal(t, "concurrent", a.Reason())
	select {
	case <-a.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestSentinelFileRequestsStopAndIsConsumed(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultSentinel)
	a := New(path, zerolog.Nop())
	assert.False(t, a.IsStopRequested())

	require.NoError(t, WriteSentinel(path))
	assert.True(t, a.IsStopRequested())
	assert.Contains(t, a.Reason(), "stop file")
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// The flag survives removal of the file.
	assert.True(t, a.IsStopRequested())
}

func TestClearStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultSentinel)
	a := New(path, zerolog.Nop())

	removed, err := a.ClearStale()
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, WriteSentinel(path))
	removed, err = a.ClearStale()
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, a.IsStopRequested())
}

func TestWatchDetectsSentinel(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultSentinel)
	a := New(path, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		a.Watch(ctx, 50*time.Millisecond)
		close(done)
	}()

	require.NoError(t, WriteSentinel(path))
	select {
	case <-a.Done():
	case <-ctx.Done():
		t.Fatal("stop file not detected")
	}
	<-done
}

func TestWatchReturnsOnContextCancel(t *testing.T) {
	a := New(filepath.Join(t.TempDir(), DefaultSentinel), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Watch(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return")
	}
	assert.False(t, a.IsStopRequested())
}

func TestNotifySignalsTurnsSIGTERMIntoStop(t *testing.T) {
	a := New("", zerolog.Nop())
	unregister := a.NotifySignals()
	defer unregister()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))
	select {
	case <-a.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("SIGTERM did not request a stop")
	}
	assert.True(t, a.IsStopRequested())
	assert.Equal(t, "received signal terminated", a.Reason())
}
