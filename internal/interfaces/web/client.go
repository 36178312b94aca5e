package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SendStop asks the instance serving addr to stop.
func SendStop(ctx context.Context, addr string, tokens *TokenCodec) error {
	token, err := tokens.Issue(ActionStop)
	if err != nil {
		return err
	}
	url := addr
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(url, "/")+"/stop", nil)
	if err != nil {
		return err
	}
	req.Header.Set(TokenHeader, token)

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		return fmt.Errorf("post stop: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("post stop: unexpected status %d", resp.StatusCode)
	}
	return nil
}
