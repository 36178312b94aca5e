package clock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

func TestFakeSleepAdvances(t *testing.T) {
	f := NewFake(epoch)
	require.NoError(t, f.Sleep(context.Background(), 90*time.Second))
	assert.Equal(t, epoch.Add(90*time.Second), f.Now())
	assert.Equal(t, 90*time.Second, f.Slept())
	assert.Equal(t, 1, f.Naps())
}

func TestFakeSleepHonoursCancelledContext(t *testing.T) {
	f := NewFake(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.Sleep(ctx, time.Minute), context.Canceled)
	assert.Equal(t, epoch, f.Now())
}

func TestFakeHooksRunAtTheirInstant(t *testing.T) {
	f := NewFake(epoch)
	var seen []time.Time
	f.At(epoch.Add(2*time.Minute), func() { seen = append(seen, f.Now()) })
	f.At(epoch.Add(time.Minute), func() { seen = append(seen, f.Now()) })

	f.Advance(5 * time.Minute)
	require.Len(t, seen, 2)
	assert.Equal(t, epoch.Add(time.Minute), seen[0])
	assert.Equal(t, epoch.Add(2*time.Minute), seen[1])
	assert.Equal(t, epoch.Add(5*time.Minute), f.Now())
}

func TestPauseRunsFullDuration(t *testing.T) {
	f := NewFake(epoch)
	ok := Pause(context.Background(), f, 10*time.Second, 2*time.Second, func() bool { return false })
	assert.True(t, ok)
	assert.Equal(t, epoch.Add(10*time.Second), f.Now())
	assert.Equal(t, 5, f.Naps())
}

func TestPauseStopsWithinOneStep(t *testing.T) {
	f := NewFake(epoch)
	var stopped atomic.Bool
	stopAt := epoch.Add(7 * time.Second)
	f.At(stopAt, func() { stopped.Store(true) })

	ok := Pause(context.Background(), f, time.Hour, 2*time.Second, stopped.Load)
	assert.False(t, ok)
	assert.LessOrEqual(t, f.Now().Sub(stopAt), 2*time.Second)
}

func TestPauseZeroDuration(t *testing.T) {
	f := NewFake(epoch)
	assert.True(t, Pause(context.Background(), f, 0, time.Second, nil))
	assert.Equal(t, 0, f.Naps())
}

func TestRealSleepCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := Real{}.Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
