package signup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchLink(t *testing.T) {
	cases := []struct {
		name, page, href, want string
		ok                     bool
	}{
		{"absolute", "https://club.example/events", "https://www.SignUpGenius.com/go/abc", "https://www.SignUpGenius.com/go/abc", true},
		{"relative", "https://www.signupgenius.com/index", "/go/abc#top", "https://www.signupgenius.com/go/abc#top", true},
		{"other host", "https://club.example/", "https://elsewhere.example/go", "", false},
		{"mailto", "https://club.example/", "mailto:a@signupgenius.com", "", false},
		{"empty", "https://club.example/", "  ", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := MatchLink(tc.page, tc.href, DefaultLinkPattern)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOutcomeRetryable(t *testing.T) {
	assert.False(t, Success("done", "").Retryable())
	assert.True(t, NoSlotAvailable("full").Retryable())
	assert.True(t, TransientError("timeout").Retryable())
	assert.False(t, FatalError("crash").Retryable())
	assert.Equal(t, "no_slot: full", NoSlotAvailable("full").String())
}

func TestErrorsUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	var err error = &NavigationError{URL: "https://x", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "navigate https://x")

	err = &PageError{URL: "https://x", Reason: "missing #email"}
	assert.Equal(t, "page https://x: missing #email", err.Error())
}

func TestRegistrant(t *testing.T) {
	r := Registrant{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	assert.True(t, r.Complete())
	assert.Equal(t, "Ada Lovelace", r.FullName())
	assert.False(t, Registrant{FirstName: "Ada"}.Complete())
}
