// Package history keeps the attempt log in Postgres when a database is
// configured. It is another log sink, never an input to the poller.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/slotwatch/internal/application/attempt"
	"github.com/example/slotwatch/internal/application/poller"
	"github.com/example/slotwatch/internal/db"
)

type Repo struct {
	DB  *db.DB
	Log zerolog.Logger
}

func NewRepo(d *db.DB, log zerolog.Logger) *Repo {
	return &Repo{DB: d, Log: log}
}

// Entry is one stored attempt.
type Entry struct {
	ID          int64
	RunID       string
	Cycle       int
	AttemptedAt time.Time
	URL         string
	Link        string
	Outcome     string
	Reason      string
	Details     string
	Elapsed     time.Duration
}

// Emit implements attempt.RecordSink. Write failures are logged only.
func (r *Repo) Emit(ctx context.Context, rec attempt.Record) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.InsertAttempt(ctx, rec); err != nil {
		r.Log.Warn().Err(err).Str("run_id", rec.RunID).Msg("history: store attempt failed")
	}
}

func (r *Repo) InsertAttempt(ctx context.Context, rec attempt.Record) error {
	err := r.DB.Exec(ctx, `
INSERT INTO attempts (run_id, cycle, attempted_at, url, link, outcome, reason, details, elapsed_ms)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''), $9)`,
		rec.RunID, rec.Cycle, rec.Timestamp, rec.URL, rec.Link,
		rec.Outcome.Kind.String(), rec.Outcome.Reason, rec.Outcome.Details, rec.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// Transition implements poller.Observer and upserts the run row.
func (r *Repo) Transition(rs poller.RunState) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.upsertRun(ctx, rs); err != nil {
		r.Log.Warn().Err(err).Str("run_id", rs.RunID).Msg("history: store run failed")
	}
}

func (r *Repo) upsertRun(ctx context.Context, rs poller.RunState) error {
	var last string
	if rs.LastOutcome != nil {
		last = rs.LastOutcome.Kind.String()
	}
	var open, closeAt *time.Time
	if !rs.Occurrence.IsZero() {
		open, closeAt = &rs.Occurrence.Open, &rs.Occurrence.Close
	}
	return r.DB.Exec(ctx, `
INSERT INTO runs (run_id, state, attempts, window_open, window_close, last_outcome, started_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
ON CONFLICT (run_id) DO UPDATE SET
    state = EXCLUDED.state,
    attempts = EXCLUDED.attempts,
    last_outcome = EXCLUDED.last_outcome`,
		rs.RunID, string(rs.State), rs.Cycle, open, closeAt, last, rs.StartedAt)
}

// FinishRun records the terminal result of a run.
func (r *Repo) FinishRun(ctx context.Context, res poller.Result) error {
	err := r.DB.Exec(ctx, `
INSERT INTO runs (run_id, state, attempts, window_open, window_close, last_outcome, stop_reason, started_at, ended_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9)
ON CONFLICT (run_id) DO UPDATE SET
    state = EXCLUDED.state,
    attempts = EXCLUDED.attempts,
    last_outcome = EXCLUDED.last_outcome,
    stop_reason = EXCLUDED.stop_reason,
    ended_at = EXCLUDED.ended_at`,
		res.RunID, string(res.State), res.Attempts, res.Occurrence.Open, res.Occurrence.Close,
		lastOutcome(res), res.StopReason, res.StartedAt, res.EndedAt)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func lastOutcome(res poller.Result) string {
	if res.Attempts == 0 {
		return ""
	}
	return res.Outcome.Kind.String()
}

// Recent returns the newest attempts first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.Query(ctx, `
SELECT id, run_id, cycle, attempted_at, url, COALESCE(link, ''), outcome,
       COALESCE(reason, ''), COALESCE(details, ''), elapsed_ms
FROM attempts
ORDER BY attempted_at DESC, id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, db.WrapNotFound(err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Cycle, &e.AttemptedAt, &e.URL, &e.Link, &e.Outcome, &e.Reason, &e.Details, &ms); err != nil {
			return nil, err
		}
		e.Elapsed = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
