package attempt

import (
	"context"
	"time"

	"github.com/example/slotwatch/internal/domain/signup"
)

// Record is the single log entry written for every attempt.
type Record struct {
	RunID     string
	Cycle     int
	Timestamp time.Time
	URL       string
	Link      string
	Outcome   signup.Outcome
	Elapsed   time.Duration
}

// RecordSink receives attempt records. Implementations must not block for
// long and must not fail the attempt; they log their own errors.
type RecordSink interface {
	Emit(ctx context.Context, rec Record)
}

// Sinks fans a record out to several sinks in order.
type Sinks []RecordSink

func (s Sinks) Emit(ctx context.Context, rec Record) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(ctx, rec)
		}
	}
}

// SinkFunc adapts a function to RecordSink.
type SinkFunc func(ctx context.Context, rec Record)

func (f SinkFunc) Emit(ctx context.Context, rec Record) { f(ctx, rec) }

type labelsKey struct{}

type labels struct {
	runID string
	cycle int
}

// WithLabels tags ctx with the run id and cycle number copied into the
// record of the attempt made under it.
func WithLabels(ctx context.Context, runID string, cycle int) context.Context {
	return context.WithValue(ctx, labelsKey{}, labels{runID: runID, cycle: cycle})
}

func labelsFrom(ctx context.Context) labels {
	l, _ := ctx.Value(labelsKey{}).(labels)
	return l
}
