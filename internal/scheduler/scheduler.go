package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/slotwatch/internal/application/poller"
	"github.com/example/slotwatch/internal/clock"
)

// Runner is one poller run.
type Runner interface {
	Run(ctx context.Context) poller.Result
}

// Scheduler keeps re-arming the poller for each new occurrence until a run
// is cancelled, fails, or succeeds with StopAfterSuccess set.
type Scheduler struct {
	Runner           Runner
	StopAfterSuccess bool
	// Once returns after the first run whatever its result.
	Once bool

	Clock             clock.Clock
	Stop              poller.StopSource
	StopCheckInterval time.Duration
	Log               zerolog.Logger

	// OnResult is called after every run, before re-arming.
	OnResult func(ctx context.Context, res poller.Result)
}

func (s *Scheduler) Run(ctx context.Context) poller.Result {
	c := s.Clock
	if c == nil {
		c = clock.Real{}
	}
	step := s.StopCheckInterval
	if step <= 0 {
		step = poller.DefaultStopCheckInterval
	}

	for runs := 1; ; runs++ {
		res := s.Runner.Run(ctx)
		if s.OnResult != nil {
			s.OnResult(ctx, res)
		}
		if s.done(res) {
			return res
		}

		// Wait until the occurrence is over so the next run targets the
		// following one.
		resume := res.Occurrence.Close.Add(time.Second)
		wait := resume.Sub(c.Now())
		s.Log.Info().
			Int("runs", runs).
			Str("last_state", string(res.State)).
			Time("resume_at", resume).
			Msg("re-arming for next occurrence")
		if wait > 0 {
			clock.Pause(ctx, c, wait, step, s.stopRequested)
		}
	}
}

func (s *Scheduler) done(res poller.Result) bool {
	if s.Once {
		return true
	}
	switch res.State {
	case poller.StateCancelled, poller.StateFailed:
		return true
	case poller.StateSucceeded:
		return s.StopAfterSuccess
	}
	return false
}

func (s *Scheduler) stopRequested() bool {
	return s.Stop != nil && s.Stop.IsStopRequested()
}
