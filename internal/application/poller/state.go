package poller

import (
	"time"

	"github.com/example/slotwatch/internal/domain/schedule"
	"github.com/example/slotwatch/internal/domain/signup"
)

type State string

const (
	StateWaitingForDay    State = "waiting_for_day"
	StateWaitingForWindow State = "waiting_for_window"
	StateChecking         State = "checking"
	StateSucceeded        State = "succeeded"
	StateWindowExpired    State = "window_expired"
	StateCancelled        State = "cancelled"
	StateFailed           State = "failed"
)

// Terminal states end a run.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateWindowExpired, StateCancelled, StateFailed:
		return true
	}
	return false
}

// RunState is owned by the loop; observers get copies.
type RunState struct {
	RunID           string
	State           State
	Cycle           int
	Occurrence      schedule.Occurrence
	StartedAt       time.Time
	WindowEnteredAt time.Time
	NextCheckAt     time.Time
	LastOutcome     *signup.Outcome
}

func (rs RunState) clone() RunState {
	if rs.LastOutcome != nil {
		o := *rs.LastOutcome
		rs.LastOutcome = &o
	}
	return rs
}

// Result is what a finished run reports.
type Result struct {
	RunID      string
	State      State
	Attempts   int
	Outcome    signup.Outcome
	Occurrence schedule.Occurrence
	StartedAt  time.Time
	EndedAt    time.Time
	StopReason string
}

func (r Result) Succeeded() bool { return r.State == StateSucceeded }

// Observer is told about every state change and every checking cycle.
type Observer interface {
	Transition(rs RunState)
}

type ObserverFunc func(rs RunState)

func (f ObserverFunc) Transition(rs RunState) { f(rs) }

// Observers notifies each observer in order.
type Observers []Observer

func (o Observers) Transition(rs RunState) {
	for _, ob := range o {
		if ob != nil {
			ob.Transition(rs)
		}
	}
}
