package poller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/slotwatch/internal/application/attempt"
	"github.com/example/slotwatch/internal/clock"
	"github.com/example/slotwatch/internal/domain/schedule"
	"github.com/example/slotwatch/internal/domain/signup"
)

const (
	DefaultStopCheckInterval = 2 * time.Second
	DefaultMaxLateness       = time.Minute
)

// Attempter makes one registration attempt.
type Attempter interface {
	Attempt(ctx context.Context, target signup.RunTarget) (signup.Outcome, time.Duration)
}

// StopSource is the read side of the stop aggregator.
type StopSource interface {
	IsStopRequested() bool
	Done() <-chan struct{}
	Reason() string
}

type Options struct {
	// StopCheckInterval caps every sleep so a stop is noticed within it.
	StopCheckInterval time.Duration
	// MaxLateness is how far past a due check the loop may wake and still
	// make the attempt after the window has closed.
	MaxLateness time.Duration
}

func (o Options) withDefaults() Options {
	if o.StopCheckInterval <= 0 {
		o.StopCheckInterval = DefaultStopCheckInterval
	}
	if o.MaxLateness <= 0 {
		o.MaxLateness = DefaultMaxLateness
	}
	return o
}

// Loop drives one run through its states for the next occurrence of Plan.
// Attempts are strictly sequential.
type Loop struct {
	Plan      schedule.Plan
	Target    signup.RunTarget
	Attempter Attempter
	Stop      StopSource
	Clock     clock.Clock
	Observer  Observer
	Log       zerolog.Logger
	Options   Options
	// NewRunID defaults to a random UUID.
	NewRunID func() string
}

// Run blocks until the run reaches a terminal state. Cancelling ctx has the
// same effect as a stop request.
func (l *Loop) Run(ctx context.Context) Result {
	opts := l.Options.withDefaults()
	c := l.clock()
	rs := &RunState{RunID: l.newRunID(), StartedAt: c.Now()}
	log := l.Log.With().Str("run_id", rs.RunID).Logger()

	sleepCtx, cancel := l.sleepContext(ctx)
	defer cancel()
	pause := func(d time.Duration) bool {
		return clock.Pause(sleepCtx, c, d, opts.StopCheckInterval, l.stopRequested)
	}

	occ := l.Plan.Next(rs.StartedAt)
	rs.Occurrence = occ
	log.Info().
		Str("plan", l.Plan.String()).
		Time("opens", occ.Open).
		Time("closes", occ.Close).
		Str("url", l.Target.URL).
		Msg("run started")

	for {
		if l.cancelled(ctx) {
			return l.finish(ctx, log, rs, StateCancelled)
		}
		now := c.Now()
		if !now.Before(occ.Open) {
			break
		}
		state := StateWaitingForWindow
		wait := occ.Open.Sub(now)
		if !sameDate(now, occ.Open) {
			state = StateWaitingForDay
			if m := nextMidnight(now).Sub(now); m < wait {
				wait = m
			}
		}
		rs.NextCheckAt = occ.Open
		l.enter(log, rs, state, "wait", wait)
		if !pause(wait) {
			return l.finish(ctx, log, rs, StateCancelled)
		}
	}

	rs.WindowEnteredAt = c.Now()
	// The first check is due at the opening, however late the wait woke.
	due := occ.Open
	for {
		if l.cancelled(ctx) {
			return l.finish(ctx, log, rs, StateCancelled)
		}
		now := c.Now()
		if now.After(occ.Close) && now.Sub(due) > opts.MaxLateness {
			return l.finish(ctx, log, rs, StateWindowExpired)
		}

		rs.Cycle++
		l.enter(log, rs, StateChecking, "", 0)
		out, _ := l.Attempter.Attempt(attempt.WithLabels(ctx, rs.RunID, rs.Cycle), l.Target)
		rs.LastOutcome = &out

		switch out.Kind {
		case signup.OutcomeSuccess:
			return l.finish(ctx, log, rs, StateSucceeded)
		case signup.OutcomeNoSlot, signup.OutcomeTransientError:
		default:
			return l.finish(ctx, log, rs, StateFailed)
		}

		now = c.Now()
		if !now.Before(occ.Close) {
			return l.finish(ctx, log, rs, StateWindowExpired)
		}
		due = now.Add(l.Plan.Interval())
		if due.After(occ.Close) {
			due = occ.Close
		}
		rs.NextCheckAt = due
		l.notify(rs)
		log.Debug().Int("cycle", rs.Cycle).Time("next_check", due).Msg("waiting for next check")
		if !pause(due.Sub(now)) {
			return l.finish(ctx, log, rs, StateCancelled)
		}
	}
}

func (l *Loop) enter(log zerolog.Logger, rs *RunState, s State, key string, wait time.Duration) {
	if rs.State != s {
		ev := log.Info().Str("from", string(rs.State)).Str("to", string(s))
		if key != "" {
			ev = ev.Dur(key, wait)
		}
		ev.Msg("state change")
	}
	rs.State = s
	l.notify(rs)
}

func (l *Loop) finish(ctx context.Context, log zerolog.Logger, rs *RunState, s State) Result {
	c := l.clock()
	res := Result{
		RunID:      rs.RunID,
		State:      s,
		Attempts:   rs.Cycle,
		Occurrence: rs.Occurrence,
		StartedAt:  rs.StartedAt,
		EndedAt:    c.Now(),
	}
	if rs.LastOutcome != nil {
		res.Outcome = *rs.LastOutcome
	}
	if s == StateCancelled {
		res.StopReason = l.stopReason(ctx)
	}
	rs.State = s
	rs.NextCheckAt = time.Time{}
	l.notify(rs)

	ev := log.Info()
	switch s {
	case StateFailed:
		ev = log.Error()
	case StateWindowExpired:
		ev = log.Warn()
	}
	ev.Str("state", string(s)).
		Int("attempts", res.Attempts).
		Dur("elapsed", res.EndedAt.Sub(res.StartedAt)).
		Str("stop_reason", res.StopReason).
		Str("last_outcome", res.Outcome.String()).
		Msg("run finished")
	return res
}

func (l *Loop) notify(rs *RunState) {
	if l.Observer != nil {
		l.Observer.Transition(rs.clone())
	}
}

func (l *Loop) cancelled(ctx context.Context) bool {
	return ctx.Err() != nil || l.stopRequested()
}

func (l *Loop) stopRequested() bool {
	return l.Stop != nil && l.Stop.IsStopRequested()
}

func (l *Loop) stopReason(ctx context.Context) string {
	if l.stopRequested() {
		return l.Stop.Reason()
	}
	if err := ctx.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// sleepContext is cancelled by ctx or by a stop request, so long sleeps on
// the real clock wake immediately.
func (l *Loop) sleepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	sctx, cancel := context.WithCancel(ctx)
	if l.Stop == nil {
		return sctx, cancel
	}
	go func() {
		select {
		case <-l.Stop.Done():
			cancel()
		case <-sctx.Done():
		}
	}()
	return sctx, cancel
}

func (l *Loop) clock() clock.Clock {
	if l.Clock == nil {
		return clock.Real{}
	}
	return l.Clock
}

func (l *Loop) newRunID() string {
	if l.NewRunID != nil {
		return l.NewRunID()
	}
	return uuid.NewString()
}

func sameDate(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
