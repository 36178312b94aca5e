package signup

import (
	"net/url"
	"strings"
)

// DefaultLinkPattern is the substring a registration href must contain.
const DefaultLinkPattern = "signupgenius.com"

// MatchLink resolves href against the page URL and reports whether it
// contains pattern (case-insensitive). Only http(s) links qualify.
func MatchLink(pageURL, href, pattern string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || pattern == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base, err := url.Parse(pageURL); err == nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	abs := ref.String()
	if !strings.Contains(strings.ToLower(abs), strings.ToLower(pattern)) {
		return "", false
	}
	return abs, true
}
