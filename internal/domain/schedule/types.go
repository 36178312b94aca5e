package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday counts from Monday = 0 to Sunday = 6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func (w Weekday) Valid() bool { return w >= Monday && w <= Sunday }

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

// Std converts to the standard library numbering (Sunday = 0).
func (w Weekday) Std() time.Weekday { return time.Weekday((int(w) + 1) % 7) }

// WeekdayOf returns the Monday-based weekday of t in t's location.
func WeekdayOf(t time.Time) Weekday { return Weekday((int(t.Weekday()) + 6) % 7) }

// ParseWeekday accepts a number 0..6 or an English day name.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		w := Weekday(n)
		if !w.Valid() {
			return 0, fmt.Errorf("day of week %d out of range 0..6", n)
		}
		return w, nil
	}
	for i, name := range weekdayNames {
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("invalid day of week %q", s)
}

// TimeOfDay is a local clock time stored as the offset from midnight.
type TimeOfDay time.Duration

// ParseTimeOfDay accepts HH:MM or HH:MM:SS in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock(t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return 0, fmt.Errorf("invalid time %q (want HH:MM)", s)
}

// Clock builds a TimeOfDay from its components.
func Clock(hour, minute, second int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// TimeOfDayOf returns the wall-clock offset of t from its local midnight.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return Clock(t.Hour(), t.Minute(), t.Second()) + TimeOfDay(t.Nanosecond())
}

func (t TimeOfDay) Hour() int   { return int(time.Duration(t) / time.Hour) }
func (t TimeOfDay) Minute() int { return int(time.Duration(t)%time.Hour) / int(time.Minute) }
func (t TimeOfDay) Second() int { return int(time.Duration(t)%time.Minute) / int(time.Second) }

// On returns the instant at this clock time on the calendar date of day.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, day.Location())
}

func (t TimeOfDay) String() string {
	if t.Second() != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
	}
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Config is the schedule for one run. It is read-only once built.
//
// When Start and End are both set the window fields win and FixedTimes is
// ignored. Otherwise FixedTimes (the legacy form) is used. A nil Day means
// every day is a scheduled day.
type Config struct {
	Day        *Weekday
	Start      *TimeOfDay
	End        *TimeOfDay
	Interval   time.Duration
	FixedTimes []TimeOfDay
}

// Occurrence is one concrete opening of the schedule. Both bounds are
// inclusive; a fixed time or a start == end window has Open == Close.
type Occurrence struct {
	Open  time.Time
	Close time.Time
}

func (o Occurrence) ZeroWidth() bool { return o.Open.Equal(o.Close) }

func (o Occurrence) Contains(t time.Time) bool {
	return !t.Before(o.Open) && !t.After(o.Close)
}

func (o Occurrence) IsZero() bool { return o.Open.IsZero() && o.Close.IsZero() }
