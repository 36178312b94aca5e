package signup

import "fmt"

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomeNoSlot
	OutcomeTransientError
	OutcomeFatalError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoSlot:
		return "no_slot"
	case OutcomeTransientError:
		return "transient_error"
	case OutcomeFatalError:
		return "fatal_error"
	}
	return "unknown"
}

// Outcome is the result of one attempt. Details carries the confirmation
// text on success; Reason explains every other kind.
type Outcome struct {
	Kind    OutcomeKind
	Details string
	Reason  string
	Link    string
}

func Success(details, link string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Details: details, Link: link}
}

func NoSlotAvailable(reason string) Outcome {
	return Outcome{Kind: OutcomeNoSlot, Reason: reason}
}

func TransientError(reason string) Outcome {
	return Outcome{Kind: OutcomeTransientError, Reason: reason}
}

func FatalError(reason string) Outcome {
	return Outcome{Kind: OutcomeFatalError, Reason: reason}
}

// Retryable is true for outcomes the poller keeps going after.
func (o Outcome) Retryable() bool {
	return o.Kind == OutcomeNoSlot || o.Kind == OutcomeTransientError
}

func (o Outcome) String() string {
	if o.Kind == OutcomeSuccess {
		return fmt.Sprintf("%s: %s", o.Kind, o.Details)
	}
	if o.Reason == "" {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s: %s", o.Kind, o.Reason)
}
