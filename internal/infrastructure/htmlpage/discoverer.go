// Package htmlpage finds registration links with a plain HTTP fetch.
package htmlpage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/example/slotwatch/internal/domain/signup"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

type Discoverer struct {
	Client  *http.Client
	Pattern string
}

func New(timeout time.Duration, pattern string) *Discoverer {
	if pattern == "" {
		pattern = signup.DefaultLinkPattern
	}
	return &Discoverer{
		Client:  &http.Client{Timeout: timeout},
		Pattern: pattern,
	}
}

// DiscoverRegistrationLink returns the first matching anchor in document
// order.
func (d *Discoverer) DiscoverRegistrationLink(ctx context.Context, pageURL string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", false, &signup.PageError{URL: pageURL, Reason: "bad page url", Err: err}
	}
	req.Header.Set("user-agent", userAgent)
	req.Header.Set("accept", "text/html,application/xhtml+xml")

	resp, err := d.client().Do(req)
	if err != nil {
		return "", false, &signup.NavigationError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusRequestTimeout:
		return "", false, &signup.NavigationError{URL: pageURL, Err: fmt.Errorf("http status %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return "", false, &signup.PageError{URL: pageURL, Reason: fmt.Sprintf("http status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", false, &signup.NavigationError{URL: pageURL, Err: fmt.Errorf("read body: %w", err)}
	}

	base := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL.String()
	}
	var link string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if l, ok := signup.MatchLink(base, href, d.Pattern); ok {
			link = l
			return false
		}
		return true
	})
	return link, link != "", nil
}

func (d *Discoverer) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}
