package attempt

import (
	"context"
	"errors"
	"net"

	"github.com/example/slotwatch/internal/domain/signup"
)

// Classify maps a collaborator error to an outcome kind. Navigation and
// network failures and timeouts are transient. Anything unknown is fatal.
func Classify(err error) signup.OutcomeKind {
	if err == nil {
		return signup.OutcomeSuccess
	}
	var nav *signup.NavigationError
	if errors.As(err, &nav) {
		return signup.OutcomeTransientError
	}
	var page *signup.PageError
	if errors.As(err, &page) {
		return signup.OutcomeFatalError
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return signup.OutcomeTransientError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return signup.OutcomeTransientError
	}
	return signup.OutcomeFatalError
}

func outcomeFromError(err error) signup.Outcome {
	if Classify(err) == signup.OutcomeTransientError {
		return signup.TransientError(err.Error())
	}
	return signup.FatalError(err.Error())
}
