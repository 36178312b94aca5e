package configstore

import (
	"errors"
	"time"

	"github.com/example/slotwatch/internal/domain/schedule"
	"github.com/example/slotwatch/internal/domain/signup"
)

var ErrNoURL = errors.New("no url given and urls.default is empty")

// windowMode is true when every window field is present. Otherwise the
// document falls back to the fixed times list.
func (s Schedule) windowMode() bool {
	return s.DayOfWeek != nil && s.StartTime != nil && s.EndTime != nil
}

// Overrides are per-run values from the command line. They are not saved.
type Overrides struct {
	URL       string
	SkipCheck *bool
	// Times forces fixed-times mode for this run.
	Times []string
}

// Resolved is everything a run needs, taken from one document.
type Resolved struct {
	Schedule schedule.Config
	Plan     schedule.Plan
	Target   signup.RunTarget
	Settings Settings
}

func (d Document) Resolve(o Overrides) (Resolved, error) {
	if len(o.Times) > 0 {
		d.Schedule.Times = o.Times
		d.Schedule.StartTime, d.Schedule.EndTime = nil, nil
	}
	if errs := d.Validate(); errs.HasErrors() {
		return Resolved{}, errs
	}

	cfg, err := d.Schedule.config()
	if err != nil {
		return Resolved{}, err
	}
	plan, err := schedule.NewPlan(cfg)
	if err != nil {
		return Resolved{}, err
	}

	url := o.URL
	if url == "" {
		url = d.URLs.Default
	}
	if url == "" {
		return Resolved{}, ErrNoURL
	}
	skip := d.Settings.SkipCheck
	if o.SkipCheck != nil {
		skip = *o.SkipCheck
	}

	settings := d.Settings
	settings.SkipCheck = skip
	if settings.LinkPattern == "" {
		settings.LinkPattern = signup.DefaultLinkPattern
	}
	return Resolved{
		Schedule: cfg,
		Plan:     plan,
		Target: signup.RunTarget{
			URL:               url,
			SkipLinkDiscovery: skip,
			Registrant: signup.Registrant{
				FirstName: d.User.FirstName,
				LastName:  d.User.LastName,
				Email:     d.User.Email,
			},
		},
		Settings: settings,
	}, nil
}

func (s Schedule) config() (schedule.Config, error) {
	var cfg schedule.Config
	if s.DayOfWeek != nil {
		w := schedule.Weekday(*s.DayOfWeek)
		cfg.Day = &w
	}
	cfg.Interval = time.Duration(s.CheckInterval) * time.Minute
	if s.windowMode() {
		start, err := schedule.ParseTimeOfDay(*s.StartTime)
		if err != nil {
			return schedule.Config{}, err
		}
		end, err := schedule.ParseTimeOfDay(*s.EndTime)
		if err != nil {
			return schedule.Config{}, err
		}
		cfg.Start, cfg.End = &start, &end
		return cfg, nil
	}
	for _, raw := range s.Times {
		t, err := schedule.ParseTimeOfDay(raw)
		if err != nil {
			return schedule.Config{}, err
		}
		cfg.FixedTimes = append(cfg.FixedTimes, t)
	}
	return cfg, nil
}
