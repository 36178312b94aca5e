package browser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/example/slotwatch/internal/domain/signup"
)

var (
	unavailableRe = regexp.MustCompile(`(?i)(no longer available|slot is full|already (been )?filled|all slots (are )?filled|sign ?up is closed)`)
	confirmedRe   = regexp.MustCompile(`(?i)(thank you[^.!]*|you have (successfully )?signed up[^.!]*|confirmation[^.!]*)`)
)

// ClassifyConfirmation reads the page shown after submitting. A page that
// says the slot is gone maps to SlotUnavailable; everything else counts as
// confirmed, with the confirmation sentence as details when one is found.
func ClassifyConfirmation(html string) signup.SubmissionResult {
	text := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		text = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	}
	if m := unavailableRe.FindString(text); m != "" {
		return signup.SubmissionResult{Status: signup.SubmissionSlotUnavailable, Details: m}
	}
	details := "registration submitted"
	if m := confirmedRe.FindString(text); m != "" {
		details = strings.TrimSpace(m)
	}
	return signup.SubmissionResult{Status: signup.SubmissionConfirmed, Details: details}
}
