package attempt

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/slotwatch/internal/clock"
	"github.com/example/slotwatch/internal/domain/signup"
)

// Executor performs one registration attempt: optional link discovery, then
// submission. Collaborator failures never escape; they become outcomes.
type Executor struct {
	Interactor signup.PageInteractor
	Sink       RecordSink
	Clock      clock.Clock
	// Timeout bounds a whole attempt. Zero means no extra bound.
	Timeout time.Duration
	Log     zerolog.Logger
}

// Attempt runs one attempt against target and emits exactly one Record.
func (e *Executor) Attempt(ctx context.Context, target signup.RunTarget) (signup.Outcome, time.Duration) {
	c := e.Clock
	if c == nil {
		c = clock.Real{}
	}
	started := c.Now()
	out, link := e.run(ctx, target)
	elapsed := c.Now().Sub(started)
	if out.Link == "" {
		out.Link = link
	}

	l := labelsFrom(ctx)
	rec := Record{
		RunID:     l.runID,
		Cycle:     l.cycle,
		Timestamp: started,
		URL:       target.URL,
		Link:      out.Link,
		Outcome:   out,
		Elapsed:   elapsed,
	}
	e.log(rec)
	if e.Sink != nil {
		e.Sink.Emit(context.WithoutCancel(ctx), rec)
	}
	return out, elapsed
}

func (e *Executor) run(ctx context.Context, target signup.RunTarget) (out signup.Outcome, link string) {
	defer func() {
		if r := recover(); r != nil {
			out = signup.FatalError(fmt.Sprintf("page interactor panicked: %v", r))
		}
	}()
	if e.Interactor == nil {
		return signup.FatalError("no page interactor configured"), ""
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	link = target.URL
	if !target.SkipLinkDiscovery {
		found, ok, err := e.Interactor.DiscoverRegistrationLink(ctx, target.URL)
		if err != nil {
			return outcomeFromError(fmt.Errorf("discover registration link: %w", err)), ""
		}
		if !ok {
			return signup.NoSlotAvailable("no registration link on page"), ""
		}
		link = found
	}

	res, err := e.Interactor.SubmitRegistration(ctx, link, target.Registrant)
	if err != nil {
		return outcomeFromError(fmt.Errorf("submit registration: %w", err)), link
	}
	switch res.Status {
	case signup.SubmissionConfirmed:
		return signup.Success(res.Details, link), link
	case signup.SubmissionSlotUnavailable:
		reason := res.Details
		if reason == "" {
			reason = "slot no longer available"
		}
		return signup.NoSlotAvailable(reason), link
	}
	return signup.FatalError(fmt.Sprintf("unrecognized submission status %d", int(res.Status))), link
}

func (e *Executor) log(rec Record) {
	var ev *zerolog.Event
	switch rec.Outcome.Kind {
	case signup.OutcomeSuccess, signup.OutcomeNoSlot:
		ev = e.Log.Info()
	case signup.OutcomeTransientError:
		ev = e.Log.Warn()
	default:
		ev = e.Log.Error()
	}
	ev = ev.Str("run_id", rec.RunID).
		Int("cycle", rec.Cycle).
		Str("url", rec.URL).
		Str("outcome", rec.Outcome.Kind.String()).
		Dur("elapsed", rec.Elapsed)
	if rec.Link != "" {
		ev = ev.Str("link", rec.Link)
	}
	if rec.Outcome.Reason != "" {
		ev = ev.Str("reason", rec.Outcome.Reason)
	}
	if rec.Outcome.Details != "" {
		ev = ev.Str("details", rec.Outcome.Details)
	}
	ev.Msg("registration attempt")
}
