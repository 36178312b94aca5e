package web

import (
	"sync"
	"time"

	"github.com/example/slotwatch/internal/application/poller"
)

// StatusBoard remembers the latest run state for /status.
type StatusBoard struct {
	mu      sync.RWMutex
	current poller.RunState
	last    *poller.Result
	runs    int
	plan    string
}

func NewStatusBoard(plan string) *StatusBoard {
	return &StatusBoard{plan: plan}
}

// Transition implements poller.Observer.
func (b *StatusBoard) Transition(rs poller.RunState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = rs
}

func (b *StatusBoard) Finish(res poller.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = &res
	b.runs++
}

type Status struct {
	Plan        string     `json:"plan"`
	RunID       string     `json:"run_id,omitempty"`
	State       string     `json:"state,omitempty"`
	Cycle       int        `json:"cycle"`
	WindowOpen  *time.Time `json:"window_open,omitempty"`
	WindowClose *time.Time `json:"window_close,omitempty"`
	NextCheckAt *time.Time `json:"next_check_at,omitempty"`
	LastOutcome string     `json:"last_outcome,omitempty"`
	RunsDone    int        `json:"runs_done"`
	LastResult  *RunResult `json:"last_result,omitempty"`
}

type RunResult struct {
	RunID      string    `json:"run_id"`
	State      string    `json:"state"`
	Attempts   int       `json:"attempts"`
	Outcome    string    `json:"outcome,omitempty"`
	StopReason string    `json:"stop_reason,omitempty"`
	EndedAt    time.Time `json:"ended_at"`
}

func (b *StatusBoard) Snapshot() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rs := b.current
	s := Status{
		Plan:     b.plan,
		RunID:    rs.RunID,
		State:    string(rs.State),
		Cycle:    rs.Cycle,
		RunsDone: b.runs,
	}
	if !rs.Occurrence.IsZero() {
		open, closeAt := rs.Occurrence.Open, rs.Occurrence.Close
		s.WindowOpen, s.WindowClose = &open, &closeAt
	}
	if !rs.NextCheckAt.IsZero() {
		next := rs.NextCheckAt
		s.NextCheckAt = &next
	}
	if rs.LastOutcome != nil {
		s.LastOutcome = rs.LastOutcome.String()
	}
	if b.last != nil {
		r := RunResult{
			RunID:      b.last.RunID,
			State:      string(b.last.State),
			Attempts:   b.last.Attempts,
			StopReason: b.last.StopReason,
			EndedAt:    b.last.EndedAt,
		}
		if b.last.Attempts > 0 {
			r.Outcome = b.last.Outcome.String()
		}
		s.LastResult = &r
	}
	return s
}
