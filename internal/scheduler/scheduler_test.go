package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/slotwatch/internal/application/poller"
	"github.com/example/slotwatch/internal/clock"
	"github.com/example/slotwatch/internal/domain/schedule"
	"github.com/example/slotwatch/internal/domain/signup"
	"github.com/example/slotwatch/internal/stopsignal"
)

type fixedRunner struct {
	clock   *clock.Fake
	results []poller.State
	runs    []time.Time
}

func (f *fixedRunner) Run(ctx context.Context) poller.Result {
	now := f.clock.Now()
	f.runs = append(f.runs, now)
	i := len(f.runs) - 1
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return poller.Result{
		State:      f.results[i],
		Occurrence: schedule.Occurrence{Open: now, Close: now.Add(30 * time.Minute)},
	}
}

var start = time.Date(2024, time.January, 1, 9, 30, 0, 0, time.UTC)

func TestReArmsUntilSuccessWhenStopAfterSuccess(t *testing.T) {
	fc := clock.NewFake(start)
	r := &fixedRunner{clock: fc, results: []poller.State{poller.StateWindowExpired, poller.StateWindowExpired, poller.StateSucceeded}}
	var seen []poller.State
	s := &Scheduler{
		Runner:           r,
		StopAfterSuccess: true,
		Clock:            fc,
		Log:              zerolog.Nop(),
		OnResult:         func(_ context.Context, res poller.Result) { seen = append(seen, res.State) },
	}

	res := s.Run(context.Background())
	assert.Equal(t, poller.StateSucceeded, res.State)
	require.Len(t, r.runs, 3)
	assert.Equal(t, start.Add(30*time.Minute+time.Second), r.runs[1])
	assert.Equal(t, []poller.State{poller.StateWindowExpired, poller.StateWindowExpired, poller.StateSucceeded}, seen)
}

func TestKeepsGoingAfterSuccessByDefault(t *testing.T) {
	fc := clock.NewFake(start)
	r := &fixedRunner{clock: fc, results: []poller.State{poller.StateSucceeded, poller.StateSucceeded, poller.StateFailed}}
	s := &Scheduler{Runner: r, Clock: fc, Log: zerolog.Nop()}

	res := s.Run(context.Background())
	assert.Equal(t, poller.StateFailed, res.State)
	assert.Len(t, r.runs, 3)
}

func TestOnceReturnsFirstResult(t *testing.T) {
	fc := clock.NewFake(start)
	r := &fixedRunner{clock: fc, results: []poller.State{poller.StateWindowExpired}}
	s := &Scheduler{Runner: r, Once: true, Clock: fc, Log: zerolog.Nop()}

	assert.Equal(t, poller.StateWindowExpired, s.Run(context.Background()).State)
	assert.Len(t, r.runs, 1)
}

func TestStopBetweenRunsEndsWithCancelledRun(t *testing.T) {
	day := schedule.Monday
	open, _ := schedule.ParseTimeOfDay("09:30")
	closeAt, _ := schedule.ParseTimeOfDay("09:40")
	p, err := schedule.NewPlan(schedule.Config{Day: &day, Start: &open, End: &closeAt, Interval: 10 * time.Minute})
	require.NoError(t, err)

	fc := clock.NewFake(start)
	stop := stopsignal.New("", zerolog.Nop())
	fc.At(start.Add(time.Hour), func() { stop.RequestStop("operator") })
	loop := &poller.Loop{
		Plan:      p,
		Attempter: noSlot{},
		Stop:      stop,
		Clock:     fc,
		Log:       zerolog.Nop(),
	}
	s := &Scheduler{Runner: loop, Clock: fc, Stop: stop, Log: zerolog.Nop()}

	res := s.Run(context.Background())
	assert.Equal(t, poller.StateCancelled, res.State)
	assert.Equal(t, "operator", res.StopReason)
	assert.Zero(t, res.Attempts)
}

type noSlot struct{}

func (noSlot) Attempt(context.Context, signup.RunTarget) (signup.Outcome, time.Duration) {
	return signup.NoSlotAvailable("none"), 0
}
