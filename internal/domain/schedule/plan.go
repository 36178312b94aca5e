package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// Mode says which form of Config a Plan was built from.
type Mode int

const (
	ModeWindow Mode = iota
	ModeFixedTimes
)

func (m Mode) String() string {
	if m == ModeFixedTimes {
		return "fixed_times"
	}
	return "window"
}

var (
	ErrNoSchedule     = errors.New("schedule has neither a window nor fixed times")
	ErrWindowInverted = errors.New("window start is after window end")
	ErrBadInterval    = errors.New("check interval must be greater than zero")
)

var openingParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Plan is a validated Config that answers window questions for any instant.
// All evaluation uses the location of the instant passed in.
type Plan struct {
	mode     Mode
	day      *Weekday
	start    TimeOfDay
	end      TimeOfDay
	times    []TimeOfDay
	interval time.Duration
	openings []cron.Schedule
}

// NewPlan validates cfg and prepares the opening schedules.
func NewPlan(cfg Config) (Plan, error) {
	p := Plan{interval: cfg.Interval}
	if cfg.Day != nil {
		if !cfg.Day.Valid() {
			return Plan{}, fmt.Errorf("day of week %d out of range 0..6", int(*cfg.Day))
		}
		d := *cfg.Day
		p.day = &d
	}

	var opens []TimeOfDay
	switch {
	case cfg.Start != nil && cfg.End != nil:
		if *cfg.Start > *cfg.End {
			return Plan{}, fmt.Errorf("%w: %s > %s", ErrWindowInverted, cfg.Start, cfg.End)
		}
		if cfg.Interval <= 0 {
			return Plan{}, ErrBadInterval
		}
		p.mode = ModeWindow
		p.start, p.end = *cfg.Start, *cfg.End
		opens = []TimeOfDay{p.start}
	case len(cfg.FixedTimes) > 0:
		p.mode = ModeFixedTimes
		p.times = normalizeTimes(cfg.FixedTimes)
		opens = p.times
	default:
		return Plan{}, ErrNoSchedule
	}

	for _, tod := range opens {
		if tod < 0 || tod >= TimeOfDay(24*time.Hour) {
			return Plan{}, fmt.Errorf("time %s out of range", tod)
		}
		sched, err := openingParser.Parse(p.cronSpec(tod))
		if err != nil {
			return Plan{}, fmt.Errorf("build opening for %s: %w", tod, err)
		}
		p.openings = append(p.openings, sched)
	}
	return p, nil
}

func normalizeTimes(in []TimeOfDay) []TimeOfDay {
	out := append([]TimeOfDay(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	uniq := out[:0]
	for i, t := range out {
		if i == 0 || t != out[i-1] {
			uniq = append(uniq, t)
		}
	}
	return uniq
}

func (p Plan) cronSpec(tod TimeOfDay) string {
	dow := "*"
	if p.day != nil {
		dow = fmt.Sprintf("%d", int(p.day.Std()))
	}
	return fmt.Sprintf("%d %d %d * * %s", tod.Second(), tod.Minute(), tod.Hour(), dow)
}

func (p Plan) Mode() Mode              { return p.mode }
func (p Plan) Interval() time.Duration { return p.interval }

// Day returns the restricted weekday, or false when every day qualifies.
func (p Plan) Day() (Weekday, bool) {
	if p.day == nil {
		return 0, false
	}
	return *p.day, true
}

// Window returns the window bounds; only meaningful in ModeWindow.
func (p Plan) Window() (TimeOfDay, TimeOfDay) { return p.start, p.end }

// Times returns the sorted fixed times; only meaningful in ModeFixedTimes.
func (p Plan) Times() []TimeOfDay { return append([]TimeOfDay(nil), p.times...) }

// IsTodayScheduledDay reports whether now falls on the configured weekday.
// Without a day restriction every day is scheduled.
func (p Plan) IsTodayScheduledDay(now time.Time) bool {
	return p.day == nil || WeekdayOf(now) == *p.day
}

// IsWithinWindow reports whether now is inside the window, both ends
// included. In fixed-times mode only the exact fixed instants qualify.
func (p Plan) IsWithinWindow(now time.Time) bool {
	_, ok := p.current(now)
	return ok
}

func (p Plan) current(now time.Time) (Occurrence, bool) {
	if !p.IsTodayScheduledDay(now) {
		return Occurrence{}, false
	}
	tod := TimeOfDayOf(now)
	if p.mode == ModeWindow {
		if tod < p.start || tod > p.end {
			return Occurrence{}, false
		}
		return Occurrence{Open: p.start.On(now), Close: p.end.On(now)}, true
	}
	for _, t := range p.times {
		if tod == t {
			at := t.On(now)
			return Occurrence{Open: at, Close: at}, true
		}
	}
	return Occurrence{}, false
}

// TimeUntilWindowOpens is zero inside the window, otherwise the exact
// duration until the next opening (possibly on a later week).
func (p Plan) TimeUntilWindowOpens(now time.Time) time.Duration {
	if p.IsWithinWindow(now) {
		return 0
	}
	return p.nextOpening(now).Sub(now)
}

func (p Plan) nextOpening(now time.Time) time.Time {
	var best time.Time
	for _, sched := range p.openings {
		n := sched.Next(now)
		if best.IsZero() || n.Before(best) {
			best = n
		}
	}
	return best
}

// Next returns the occurrence containing now, or the next one to open.
func (p Plan) Next(now time.Time) Occurrence {
	if occ, ok := p.current(now); ok {
		return occ
	}
	open := p.nextOpening(now)
	if p.mode == ModeWindow {
		return Occurrence{Open: open, Close: p.end.On(open)}
	}
	return Occurrence{Open: open, Close: open}
}

func (p Plan) String() string {
	day := "every day"
	if p.day != nil {
		day = p.day.String()
	}
	if p.mode == ModeWindow {
		return fmt.Sprintf("%s %s-%s every %s", day, p.start, p.end, p.interval)
	}
	return fmt.Sprintf("%s at %v", day, p.times)
}
