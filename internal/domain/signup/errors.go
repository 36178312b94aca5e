package signup

import "fmt"

// NavigationError means the page could not be reached or loaded. It is
// expected to clear up on a later attempt.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// PageError means the page loaded but did not look the way the registrar
// expects, e.g. a missing form field.
type PageError struct {
	URL    string
	Reason string
	Err    error
}

func (e *PageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("page %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("page %s: %s", e.URL, e.Reason)
}

func (e *PageError) Unwrap() error { return e.Err }
