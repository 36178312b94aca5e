package configstore

import (
	"fmt"
	"strings"

	"github.com/example/slotwatch/internal/domain/schedule"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in a document.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, "  - "+e.Error())
	}
	return fmt.Sprintf("invalid configuration (%d problem(s)):\n%s", len(errs), strings.Join(msgs, "\n"))
}

func (errs ValidationErrors) HasErrors() bool { return len(errs) > 0 }

func (errs *ValidationErrors) add(field, format string, args ...any) {
	*errs = append(*errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// ValidateSchedule checks the schedule block only.
func (d Document) ValidateSchedule() ValidationErrors {
	var errs ValidationErrors
	s := d.Schedule

	if s.DayOfWeek != nil && (*s.DayOfWeek < 0 || *s.DayOfWeek > 6) {
		errs.add("schedule.day_of_week", "must be 0 (Monday) to 6 (Sunday), got %d", *s.DayOfWeek)
	}

	var start, end *schedule.TimeOfDay
	for _, f := range []struct {
		name string
		val  *string
		dst  **schedule.TimeOfDay
	}{
		{"schedule.start_time", s.StartTime, &start},
		{"schedule.end_time", s.EndTime, &end},
	} {
		if f.val == nil {
			continue
		}
		t, err := schedule.ParseTimeOfDay(*f.val)
		if err != nil {
			errs.add(f.name, "%v", err)
			continue
		}
		*f.dst = &t
	}
	if start != nil && end != nil && *start > *end {
		errs.add("schedule.end_time", "must not be before start_time (%s > %s)", start, end)
	}
	window := s.windowMode()
	if window && s.CheckInterval <= 0 {
		errs.add("schedule.check_interval", "must be greater than zero minutes")
	}
	for i, raw := range s.Times {
		if _, err := schedule.ParseTimeOfDay(raw); err != nil {
			errs.add(fmt.Sprintf("schedule.times[%d]", i), "%v", err)
		}
	}
	if !window && len(s.Times) == 0 {
		errs.add("schedule", "needs start_time and end_time or a list of times")
	}
	return errs
}

// Validate checks everything a run needs, including the registrant.
func (d Document) Validate() ValidationErrors {
	errs := d.ValidateSchedule()
	if strings.TrimSpace(d.User.FirstName) == "" {
		errs.add("user.first_name", "is required")
	}
	if strings.TrimSpace(d.User.LastName) == "" {
		errs.add("user.last_name", "is required")
	}
	if e := strings.TrimSpace(d.User.Email); e == "" {
		errs.add("user.email", "is required")
	} else if !strings.Contains(e, "@") {
		errs.add("user.email", "%q is not an email address", e)
	}
	switch d.Settings.Discovery {
	case "", DiscoveryBrowser, DiscoveryHTTP:
	default:
		errs.add("settings.discovery", "must be %q or %q", DiscoveryBrowser, DiscoveryHTTP)
	}
	return errs
}
