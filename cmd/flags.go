package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/slotwatch/internal/domain/schedule"
	"github.com/example/slotwatch/internal/infrastructure/configstore"
)

type runOptions struct {
	configure  bool
	showConfig bool
	stop       bool

	runNow    bool
	once      bool
	url       string
	skipCheck bool
	times     string
	headless  bool
	visible   bool

	firstName        string
	lastName         string
	email            string
	stopAfterSuccess bool
	day              string
	start            string
	end              string
	interval         int
	discovery        string
	linkPattern      string
}

func addRunFlags(c *cobra.Command, o *runOptions) {
	f := c.Flags()
	f.BoolVar(&o.runNow, "run-now", false, "make one attempt immediately before scheduling")
	f.BoolVar(&o.once, "once", false, "stop after the first run (or after the immediate attempt with --run-now)")
	f.StringVar(&o.url, "url", "", "page to scan, or the registration page itself with --skip-check")
	f.BoolVar(&o.skipCheck, "skip-check", false, "treat --url as the registration page and skip link discovery")
	f.StringVar(&o.times, "times", "", "comma-separated HH:MM times (fixed-times mode)")
	f.BoolVar(&o.headless, "headless", false, "run the browser headless (saved to the configuration)")
	f.BoolVar(&o.visible, "visible", false, "show the browser window (saved to the configuration)")

	f.StringVar(&o.firstName, "first-name", "", "registrant first name (with --configure)")
	f.StringVar(&o.lastName, "last-name", "", "registrant last name (with --configure)")
	f.StringVar(&o.email, "email", "", "registrant email (with --configure)")
	f.BoolVar(&o.stopAfterSuccess, "stop-after-success", true, "exit after the first successful registration (with --configure)")
	f.StringVar(&o.day, "day", "", "window weekday, 0=Monday..6=Sunday or a day name (with --configure)")
	f.StringVar(&o.start, "start", "", "window start HH:MM (with --configure)")
	f.StringVar(&o.end, "end", "", "window end HH:MM (with --configure)")
	f.IntVar(&o.interval, "interval", 0, "minutes between checks inside the window (with --configure)")
	f.StringVar(&o.discovery, "discovery", "", `link discovery: "browser" or "http" (with --configure)`)
	f.StringVar(&o.linkPattern, "link-pattern", "", "substring a registration link must contain (with --configure)")
	c.MarkFlagsMutuallyExclusive("headless", "visible")
}

func splitTimes(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// headlessOverride is the --headless/--visible choice, if either was given.
func (o *runOptions) headlessOverride(c *cobra.Command) *bool {
	switch {
	case c.Flags().Changed("headless"):
		v := o.headless
		return &v
	case c.Flags().Changed("visible"):
		v := !o.visible
		return &v
	}
	return nil
}

// patch collects every changed flag into a document update.
func (o *runOptions) patch(c *cobra.Command) (configstore.Patch, error) {
	changed := c.Flags().Changed
	str := func(name, v string) *string {
		if !changed(name) {
			return nil
		}
		return &v
	}

	p := configstore.Patch{
		FirstName:   str("first-name", o.firstName),
		LastName:    str("last-name", o.lastName),
		Email:       str("email", o.email),
		DefaultURL:  str("url", o.url),
		StartTime:   str("start", o.start),
		EndTime:     str("end", o.end),
		Discovery:   str("discovery", o.discovery),
		LinkPattern: str("link-pattern", o.linkPattern),
		Headless:    o.headlessOverride(c),
	}
	if changed("times") {
		p.Times = splitTimes(o.times)
	}
	if changed("stop-after-success") {
		v := o.stopAfterSuccess
		p.StopAfterSuccess = &v
	}
	if changed("skip-check") {
		v := o.skipCheck
		p.SkipCheck = &v
	}
	if changed("interval") {
		v := o.interval
		p.CheckInterval = &v
	}
	if changed("day") {
		w, err := schedule.ParseWeekday(o.day)
		if err != nil {
			return configstore.Patch{}, fmt.Errorf("--day: %w", err)
		}
		v := int(w)
		p.DayOfWeek = &v
	}
	return p, nil
}

// overrides are the per-run flags that are not saved.
func (o *runOptions) overrides(c *cobra.Command) configstore.Overrides {
	ov := configstore.Overrides{URL: o.url}
	if c.Flags().Changed("skip-check") {
		v := o.skipCheck
		ov.SkipCheck = &v
	}
	if c.Flags().Changed("times") {
		ov.Times = splitTimes(o.times)
	}
	return ov
}
