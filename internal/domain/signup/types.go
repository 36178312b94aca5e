package signup

import (
	"context"
	"strings"
)

type Registrant struct {
	FirstName string
	LastName  string
	Email     string
}

func (r Registrant) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Complete reports whether every field needed to fill the form is present.
func (r Registrant) Complete() bool {
	return r.FirstName != "" && r.LastName != "" && r.Email != ""
}

// RunTarget is what one run tries to register for.
type RunTarget struct {
	// URL is either the page to scan for a registration link or, when
	// SkipLinkDiscovery is set, the registration page itself.
	URL               string
	SkipLinkDiscovery bool
	Registrant        Registrant
}

type SubmissionStatus int

const (
	SubmissionConfirmed SubmissionStatus = iota + 1
	SubmissionSlotUnavailable
)

func (s SubmissionStatus) String() string {
	switch s {
	case SubmissionConfirmed:
		return "confirmed"
	case SubmissionSlotUnavailable:
		return "slot_unavailable"
	}
	return "unknown"
}

type SubmissionResult struct {
	Status  SubmissionStatus
	Details string
}

// LinkDiscoverer finds the registration link on a page. found is false when
// the page loaded but holds no such link.
type LinkDiscoverer interface {
	DiscoverRegistrationLink(ctx context.Context, pageURL string) (link string, found bool, err error)
}

// Registrar fills and submits the registration form behind link.
type Registrar interface {
	SubmitRegistration(ctx context.Context, link string, r Registrant) (SubmissionResult, error)
}

// PageInteractor is everything an attempt needs from the web page.
type PageInteractor interface {
	LinkDiscoverer
	Registrar
}

// Interaction pairs a discoverer and a registrar backed by different tools.
type Interaction struct {
	LinkDiscoverer
	Registrar
}
