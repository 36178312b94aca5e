// Package browser drives a headless Chrome through go-rod to discover the
// registration link and fill in the signup form.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/example/slotwatch/internal/domain/signup"
)

// Selectors locate the parts of a signup page. Zero fields take defaults.
type Selectors struct {
	SignupButtons string
	ConfirmSlot   string
	FirstName     string
	LastName      string
	Email         string
	Submit        string
}

var DefaultSelectors = Selectors{
	SignupButtons: "//div/div/div/signup-button/button",
	ConfirmSlot:   "//div[@id='signupContainerId']/div[4]/div/button",
	FirstName:     "#firstname",
	LastName:      "#lastname",
	Email:         "#email",
	Submit:        "[name='btnSignUp']",
}

func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors
	if s.SignupButtons != "" {
		d.SignupButtons = s.SignupButtons
	}
	if s.ConfirmSlot != "" {
		d.ConfirmSlot = s.ConfirmSlot
	}
	if s.FirstName != "" {
		d.FirstName = s.FirstName
	}
	if s.LastName != "" {
		d.LastName = s.LastName
	}
	if s.Email != "" {
		d.Email = s.Email
	}
	if s.Submit != "" {
		d.Submit = s.Submit
	}
	return d
}

type Options struct {
	Headless bool
	// Bin is an explicit browser binary; empty lets rod find or fetch one.
	Bin string
	// PageTimeout bounds each wait for an element.
	PageTimeout time.Duration
	LinkPattern string
	Selectors   Selectors
}

// Interactor implements signup.PageInteractor. Each call starts and tears
// down its own browser.
type Interactor struct {
	opts Options
	log  zerolog.Logger
}

func New(opts Options, log zerolog.Logger) *Interactor {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 30 * time.Second
	}
	if opts.LinkPattern == "" {
		opts.LinkPattern = signup.DefaultLinkPattern
	}
	opts.Selectors = opts.Selectors.withDefaults()
	return &Interactor{opts: opts, log: log}
}

type session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func (s *session) close() {
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
}

func (i *Interactor) open(ctx context.Context) (*session, error) {
	l := launcher.New().
		Context(ctx).
		Headless(i.opts.Headless).
		Set("window-size", "1920,1080").
		Set("disable-gpu")
	if i.opts.Bin != "" {
		l = l.Bin(i.opts.Bin)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	i.log.Debug().Bool("headless", i.opts.Headless).Msg("browser started")
	return &session{browser: b, launcher: l}, nil
}

func (i *Interactor) navigate(s *session, pageURL string) (*rod.Page, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, &signup.NavigationError{URL: pageURL, Err: err}
	}
	if err := page.Timeout(i.opts.PageTimeout).Navigate(pageURL); err != nil {
		return nil, &signup.NavigationError{URL: pageURL, Err: err}
	}
	if err := page.Timeout(i.opts.PageTimeout).WaitLoad(); err != nil {
		return nil, &signup.NavigationError{URL: pageURL, Err: err}
	}
	return page, nil
}

func (i *Interactor) DiscoverRegistrationLink(ctx context.Context, pageURL string) (string, bool, error) {
	s, err := i.open(ctx)
	if err != nil {
		return "", false, err
	}
	defer s.close()

	page, err := i.navigate(s, pageURL)
	if err != nil {
		return "", false, err
	}
	anchors, err := page.Elements("a[href]")
	if err != nil {
		return "", false, &signup.PageError{URL: pageURL, Reason: "list links", Err: err}
	}
	for _, a := range anchors {
		href, err := a.Attribute("href")
		if err != nil || href == nil {
			continue
		}
		if link, ok := signup.MatchLink(pageURL, *href, i.opts.LinkPattern); ok {
			i.log.Debug().Str("link", link).Msg("registration link found")
			return link, true, nil
		}
	}
	return "", false, nil
}

func (i *Interactor) SubmitRegistration(ctx context.Context, link string, r signup.Registrant) (signup.SubmissionResult, error) {
	s, err := i.open(ctx)
	if err != nil {
		return signup.SubmissionResult{}, err
	}
	defer s.close()

	page, err := i.navigate(s, link)
	if err != nil {
		return signup.SubmissionResult{}, err
	}
	sel := i.opts.Selectors
	wait := page.Timeout(i.opts.PageTimeout)

	if _, err := wait.ElementX(sel.SignupButtons); err != nil {
		return missingButtons(ctx, link, err)
	}
	buttons, err := page.ElementsX(sel.SignupButtons)
	if err != nil {
		return signup.SubmissionResult{}, &signup.PageError{URL: link, Reason: "list signup buttons", Err: err}
	}
	button := firstEnabled(buttons)
	if button == nil {
		return signup.SubmissionResult{Status: signup.SubmissionSlotUnavailable, Details: "all signup buttons are disabled"}, nil
	}
	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return signup.SubmissionResult{}, &signup.PageError{URL: link, Reason: "click signup button", Err: err}
	}

	if err := i.click(wait, link, sel.ConfirmSlot, true, "confirm slot"); err != nil {
		return signup.SubmissionResult{}, err
	}
	for _, f := range []struct{ selector, value, name string }{
		{sel.FirstName, r.FirstName, "first name"},
		{sel.LastName, r.LastName, "last name"},
		{sel.Email, r.Email, "email"},
	} {
		el, err := wait.Element(f.selector)
		if err != nil {
			return signup.SubmissionResult{}, &signup.PageError{URL: link, Reason: "missing " + f.name + " field", Err: err}
		}
		if err := el.SelectAllText(); err == nil {
			_ = el.Input("")
		}
		if err := el.Input(f.value); err != nil {
			return signup.SubmissionResult{}, &signup.PageError{URL: link, Reason: "fill " + f.name, Err: err}
		}
	}
	if err := i.click(wait, link, sel.Submit, false, "submit"); err != nil {
		return signup.SubmissionResult{}, err
	}

	if err := page.Timeout(i.opts.PageTimeout).WaitStable(time.Second); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		i.log.Debug().Err(err).Msg("page did not settle after submit")
	}
	html, err := page.HTML()
	if err != nil {
		return signup.SubmissionResult{}, &signup.NavigationError{URL: link, Err: fmt.Errorf("read confirmation: %w", err)}
	}
	return ClassifyConfirmation(html), nil
}

// missingButtons handles a loaded sheet with no signup buttons: a full or
// closed sheet means no slot, an expired attempt a navigation failure.
func missingButtons(ctx context.Context, link string, err error) (signup.SubmissionResult, error) {
	if ctx.Err() != nil {
		return signup.SubmissionResult{}, &signup.NavigationError{URL: link, Err: err}
	}
	return signup.SubmissionResult{Status: signup.SubmissionSlotUnavailable, Details: "no signup buttons on page"}, nil
}

func (i *Interactor) click(p *rod.Page, link, selector string, xpath bool, name string) error {
	var el *rod.Element
	var err error
	if xpath {
		el, err = p.ElementX(selector)
	} else {
		el, err = p.Element(selector)
	}
	if err != nil {
		return &signup.PageError{URL: link, Reason: "missing " + name + " button", Err: err}
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return &signup.PageError{URL: link, Reason: "click " + name, Err: err}
	}
	return nil
}

func firstEnabled(els rod.Elements) *rod.Element {
	for _, el := range els {
		if disabled, err := el.Attribute("disabled"); err == nil && disabled != nil {
			continue
		}
		if visible, err := el.Visible(); err != nil || !visible {
			continue
		}
		return el
	}
	return nil
}
