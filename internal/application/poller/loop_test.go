package poller

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/slotwatch/internal/clock"
	"github.com/example/slotwatch/internal/domain/schedule"
	"github.com/example/slotwatch/internal/domain/signup"
	"github.com/example/slotwatch/internal/stopsignal"
)

// 2024-01-01 was a Monday.
func at(day, hour, minute, second int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, second, 0, time.UTC)
}

type scripted struct {
	clock    clock.Clock
	outcomes []signup.Outcome
	cost     time.Duration
	calls    []time.Time
}

func (s *scripted) Attempt(ctx context.Context, _ signup.RunTarget) (signup.Outcome, time.Duration) {
	s.calls = append(s.calls, s.clock.Now())
	if f, ok := s.clock.(*clock.Fake); ok && s.cost > 0 {
		f.Advance(s.cost)
	}
	i := len(s.calls) - 1
	if i >= len(s.outcomes) {
		return s.outcomes[len(s.outcomes)-1], s.cost
	}
	return s.outcomes[i], s.cost
}

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) Transition(rs RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.states); n == 0 || r.states[n-1] != rs.State {
		r.states = append(r.states, rs.State)
	}
}

func plan(t *testing.T, day schedule.Weekday, start, end string, interval time.Duration) schedule.Plan {
	t.Helper()
	s, err := schedule.ParseTimeOfDay(start)
	require.NoError(t, err)
	e, err := schedule.ParseTimeOfDay(end)
	require.NoError(t, err)
	p, err := schedule.NewPlan(schedule.Config{Day: &day, Start: &s, End: &e, Interval: interval})
	require.NoError(t, err)
	return p
}

func newLoop(p schedule.Plan, fc *clock.Fake, a Attempter, stop StopSource, obs Observer) *Loop {
	return &Loop{
		Plan:      p,
		Target:    signup.RunTarget{URL: "https://club.example/events"},
		Attempter: a,
		Stop:      stop,
		Clock:     fc,
		Observer:  obs,
		Log:       zerolog.Nop(),
		NewRunID:  func() string { return "run-test" },
	}
}

var (
	noSlot    = signup.NoSlotAvailable("no link")
	transient = signup.TransientError("timeout")
	success   = signup.Success("Thank you", "https://www.signupgenius.com/go/x")
	fatal     = signup.FatalError("form missing")
)

func TestSucceedsOnThirdAttempt(t *testing.T) {
	fc := clock.NewFake(at(1, 9, 0, 0))
	a := &scripted{clock: fc, outcomes: []signup.Outcome{noSlot, noSlot, success}}
	rec := &recorder{}
	res := newLoop(plan(t, schedule.Monday, "09:30", "10:00", 10*time.Minute), fc, a, nil, rec).Run(context.Background())

	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "run-test", res.RunID)
	assert.Equal(t, signup.OutcomeSuccess, res.Outcome.Kind)
	assert.Equal(t, []time.Time{at(1, 9, 30, 0), at(1, 9, 40, 0), at(1, 9, 50, 0)}, a.calls)
	assert.Equal(t, 20*time.Minute, res.EndedAt.Sub(a.calls[0]))
	assert.Equal(t, []State{StateWaitingForWindow, StateChecking, StateSucceeded}, rec.states)
}

func TestWindowExpiresWithoutSlot(t *testing.T) {
	fc := clock.NewFake(at(1, 9, 0, 0))
	a := &scripted{clock: fc, outcomes: []signup.Outcome{noSlot}}
	res := newLoop(plan(t, schedule.Monday, "09:30", "09:50", 10*time.Minute), fc, a, nil, nil).Run(context.Background())

	assert.Equal(t, StateWindowExpired, res.State)
	assert.Equal(t, []time.Time{at(1, 9, 30, 0), at(1, 9, 40, 0), at(1, 9, 50, 0)}, a.calls)
	assert.Equal(t, signup.OutcomeNoSlot, res.Outcome.Kind)
	for _, c := range a.calls {
		assert.False(t, c.After(res.Occurrence.Close))
	}
}

func TestFinalCheckIsPulledToWindowEnd(t *testing.T) {
	fc := clock.NewFake(at(1, 9, 45, 0))
	a := &scripted{clock: fc, outcomes: []signup.Outcome{transient}, cost: 30 * time.Second}
	res := newLoop(plan(t, schedule.Monday, "09:30", "10:00", 10*time.Minute), fc, a, nil, nil).Run(context.Background())

	assert.Equal(t, StateWindowExpired, res.State)
	assert.Equal(t, []time.Time{at(1, 9, 45, 0), at(1, 9, 55, 30), at(1, 10, 0, 0)}, a.calls)
}

func TestTransientErrorsKeepPolling(t *testing.T) {
	fc := clock.NewFake(at(1, 9, 30, 0))
	a := &scripted{clock: fc, outcomes: []signup.Outcome{transient, transient, success}}
	res := newLoop(plan(t, schedule.Monday, "09:30", "10:00", 10*time.Minute), fc, a, nil, nil).Run(context.Background())
	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, 3, res.Attempts)
}

func TestFatalErrorFails(t *testing.T) {
	fc := clock.NewFake(at(1, 9, 30, 0))
	a := &scripted{clock: fc, outcomes: []signup.Outcome{noSlot, fatal}}
	res := newLoop(plan(t, schedule.Monday, "09:30", "10:00", 10*time.Minute), fc, a, nil, nil).Run(context.Background())

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, "form missing", res.Outcome.Reason)
}

func TestStopDuringSleepCancelsPromptly(t *testing.T) {
	fc := clock.NewFake(at(1, 9, 30, 0))
	stop := stopsignal.New("", zerolog.Nop())
	stopAt := at(1, 9, 33, 0)
	fc.At(stopAt, func() { stop.RequestStop("test") })
	a := &scripted{clock: fc, outcomes: []signup.Outcome{noSlot}}

	res := newLoop(plan(t, schedule.Monday, "09:30", "10:00", 10*time.Minute), fc, a, stop, nil).Run(context.Background())

	assert.Equal(t, StateCancelled, res.State)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "test", res.StopReason)
	assert.LessOrEqual(t, res.EndedAt.Sub(stopAt), DefaultStopCheckInterval)
}

func TestStopFileDuringSleepCancelsPromptly(t *testing.T) {
	fc := clock.NewFake(at(1, 9, 30, 0))
	path := filepath.Join(t.TempDir(), "stop_automation.txt")
	stop := stopsignal.New(path, zerolog.Nop())
	stopAt := at(1, 9, 35, 0)
	fc.At(stopAt, func() { require.NoError(t, os.WriteFile(path, []byte("stop\n"), 0o644)) })
	a := &scripted{clock: fc, outcomes: []signup.Outcome{noSlot}}

	res := newLoop(plan(t, schedule.Monday, "09:30", "10:00", 10*time.Minute), fc, a, stop, nil).Run(context.Background())

	assert.Equal(t, StateCancelled, res.State)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "stop file "+path, res.StopReason)
	assert.LessOrEqual(t, res.EndedAt.Sub(stopAt), DefaultStopCheckInterval)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "stop file is consumed")
}

// oversleeper wakes every sleep late by extra.
type oversleeper struct {
	*clock.Fake
	extra time.Duration
}

func (o oversleeper) Sleep(ctx context.Context, d time.Duration) error {
	return o.Fake.Sleep(ctx, d+o.extra)
}

func TestLateWakePastWindowCloseExpires(t *testing.T) {
	fc := clock.NewFake(at(1, 9, 0, 0))
	c := oversleeper{Fake: fc, extra: 2 * time.Hour}
	a := &scripted{clock: fc, outcomes: []signup.Outcome{success}}
	l := newLoop(plan(t, schedule.Monday, "09:30", "10:00", 10*time.Minute), fc, a, nil, nil)
	l.Clock = c

	res := l.Run(context.Background())
	assert.Equal(t, StateWindowExpired, res.State)
	assert.Zero(t, res.Attempts)
	assert.Empty(t, a.calls)
}

func TestLateWakeWithinToleranceStillAttempts(t *testing.T) {
	fc := clock.NewFake(at(1, 8, 59, 0))
	zero, _ := schedule.ParseTimeOfDay("09:00")
	p, err := schedule.NewPlan(schedule.Config{FixedTimes: []schedule.TimeOfDay{zero}})
	require.NoError(t, err)
	a := &scripted{clock: fc, outcomes: []signup.Outcome{noSlot}}
	l := newLoop(p, fc, a, nil, nil)
	l.Clock = oversleeper{Fake: fc, extra: 30 * time.Second}

	res := l.Run(context.Background())
	assert.Equal(t, StateWindowExpired, res.State)
	assert.Equal(t, 1, res.Attempts)
}

func TestStopWhileWaitingForDay(t *testing.T) {
	fc := clock.NewFake(at(3, 12, 0, 0))
	stop := stopsignal.New("", zerolog.Nop())
	stopAt := at(4, 1, 0, 0)
	fc.At(stopAt, func() { stop.RequestStop("test") })
	a := &scripted{clock: fc, outcomes: []signup.Outcome{success}}
	rec := &recorder{}

	res := newLoop(plan(t, schedule.Monday, "09:30", "10:00", 10*time.Minute), fc, a, stop, rec).Run(context.Background())
	assert.Equal(t, StateCancelled, res.State)
	assert.Zero(t, res.Attempts)
	assert.Empty(t, a.calls)
	assert.LessOrEqual(t, res.EndedAt.Sub(stopAt), DefaultStopCheckInterval)
	assert.Equal(t, []State{StateWaitingForDay, StateCancelled}, rec.states)
}

func TestStopBeforeStart(t *testing.T) {
	fc := clock.NewFake(at(1, 9, 30, 0))
	stop := stopsignal.New("", zerolog.Nop())
	stop.RequestStop("early")
	a := &scripted{clock: fc, outcomes: []signup.Outcome{success}}

	res := newLoop(plan(t, schedule.Monday, "09:30", "10:00", 10*time.Minute), fc, a, stop, nil).Run(context.Background())
	assert.Equal(t, StateCancelled, res.State)
	assert.Empty(t, a.calls)
}

func TestContextCancelIsCancellation(t *testing.T) {
	fc := clock.NewFake(at(1, 9, 30, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &scripted{clock: fc, outcomes: []signup.Outcome{success}}

	res := newLoop(plan(t, schedule.Monday, "09:30", "10:00", 10*time.Minute), fc, a, nil, nil).Run(ctx)
	assert.Equal(t, StateCancelled, res.State)
	assert.Equal(t, "context canceled", res.StopReason)
}

func TestZeroWidthWindowMakesOneAttempt(t *testing.T) {
	fc := clock.NewFake(at(1, 9, 0, 0))
	a := &scripted{clock: fc, outcomes: []signup.Outcome{noSlot}}
	res := newLoop(plan(t, schedule.Monday, "09:30", "09:30", 10*time.Minute), fc, a, nil, nil).Run(context.Background())

	assert.Equal(t, StateWindowExpired, res.State)
	assert.Equal(t, []time.Time{at(1, 9, 30, 0)}, a.calls)
}

func TestWaitsForDayThenWindow(t *testing.T) {
	// Sunday evening before a Monday window.
	fc := clock.NewFake(at(7, 20, 0, 0))
	a := &scripted{clock: fc, outcomes: []signup.Outcome{success}}
	rec := &recorder{}
	res := newLoop(plan(t, schedule.Monday, "09:30", "10:00", 10*time.Minute), fc, a, nil, rec).Run(context.Background())

	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, []time.Time{at(8, 9, 30, 0)}, a.calls)
	assert.Equal(t, []State{StateWaitingForDay, StateWaitingForWindow, StateChecking, StateSucceeded}, rec.states)
}

func TestFixedTimesRunCoversOneTime(t *testing.T) {
	fc := clock.NewFake(at(3, 8, 0, 0))
	nine, _ := schedule.ParseTimeOfDay("09:00")
	six, _ := schedule.ParseTimeOfDay("18:00")
	p, err := schedule.NewPlan(schedule.Config{FixedTimes: []schedule.TimeOfDay{six, nine}})
	require.NoError(t, err)
	a := &scripted{clock: fc, outcomes: []signup.Outcome{noSlot}}

	res := newLoop(p, fc, a, nil, nil).Run(context.Background())
	assert.Equal(t, StateWindowExpired, res.State)
	assert.Equal(t, []time.Time{at(3, 9, 0, 0)}, a.calls)
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []State{StateSucceeded, StateWindowExpired, StateCancelled, StateFailed} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []State{StateWaitingForDay, StateWaitingForWindow, StateChecking} {
		assert.False(t, s.Terminal(), s)
	}
}
