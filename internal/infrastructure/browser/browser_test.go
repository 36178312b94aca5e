package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/slotwatch/internal/domain/signup"
)

func TestClassifyConfirmation(t *testing.T) {
	res := ClassifyConfirmation(`<html><body><h1>Thank you for signing up, Ada!</h1></body></html>`)
	assert.Equal(t, signup.SubmissionConfirmed, res.Status)
	assert.Equal(t, "Thank you for signing up, Ada", res.Details)

	res = ClassifyConfirmation(`<body><p>Sorry, this slot is   no longer available.</p></body>`)
	assert.Equal(t, signup.SubmissionSlotUnavailable, res.Status)
	assert.Equal(t, "no longer available", res.Details)

	res = ClassifyConfirmation(`<body><p>Done.</p></body>`)
	assert.Equal(t, signup.SubmissionConfirmed, res.Status)
	assert.Equal(t, "registration submitted", res.Details)
}

func TestMissingButtonsMeansNoSlot(t *testing.T) {
	res, err := missingButtons(context.Background(), "https://www.signupgenius.com/go/x", context.DeadlineExceeded)
	require.NoError(t, err)
	assert.Equal(t, signup.SubmissionSlotUnavailable, res.Status)
	assert.Equal(t, "no signup buttons on page", res.Details)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = missingButtons(ctx, "https://www.signupgenius.com/go/x", context.Canceled)
	var nav *signup.NavigationError
	assert.ErrorAs(t, err, &nav)
}

func TestSelectorsDefaults(t *testing.T) {
	s := Selectors{Email: "#mail"}.withDefaults()
	assert.Equal(t, "#mail", s.Email)
	assert.Equal(t, DefaultSelectors.Submit, s.Submit)
}

const signupPage = `<html><body>
<div><div><div><signup-button><button disabled>Full</button></signup-button></div></div></div>
<div><div><div><signup-button><button onclick="document.getElementById('signupContainerId').style.display='block'">Sign Up</button></signup-button></div></div></div>
<div id="signupContainerId" style="display:none">
  <div></div><div></div><div></div>
  <div><div><button onclick="document.getElementById('form').style.display='block'">Confirm</button></div></div>
</div>
<form id="form" style="display:none" action="/done" method="get">
  <input id="firstname" name="f"><input id="lastname" name="l"><input id="email" name="e">
  <button name="btnSignUp" type="submit">Sign Up Now</button>
</form>
</body></html>`

// Needs a local Chrome; opt in with SLOTWATCH_BROWSER_TESTS=1.
func TestBrowserSignupFlow(t *testing.T) {
	if testing.Short() || os.Getenv("SLOTWATCH_BROWSER_TESTS") == "" {
		t.Skip("browser tests disabled; set SLOTWATCH_BROWSER_TESTS=1")
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<a href="/signup">Volunteer</a>`))
	})
	mux.HandleFunc("/signup", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(signupPage))
	})
	mux.HandleFunc("/done", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<body>Thank you for signing up</body>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ia := New(Options{Headless: os.Getenv("E2E_HEADLESS") != "false", PageTimeout: 10 * time.Second, LinkPattern: "/signup"}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	link, found, err := ia.DiscoverRegistrationLink(ctx, srv.URL)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, srv.URL+"/signup", link)

	res, err := ia.SubmitRegistration(ctx, link, signup.Registrant{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, signup.SubmissionConfirmed, res.Status)
}
