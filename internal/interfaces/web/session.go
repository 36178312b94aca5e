package web

import (
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"

	"github.com/example/slotwatch/internal/internaltypes"
)

const (
	tokenName   = "slotwatch_control"
	TokenHeader = "X-Slotwatch-Token"

	ActionStop = "stop"
)

// TokenCodec signs and encrypts short-lived control tokens with the keys
// from CONTROL_HASH_KEY and CONTROL_BLOCK_KEY.
type TokenCodec struct{ sc *securecookie.SecureCookie }

func NewTokenCodec(hashKey, blockKey []byte) *TokenCodec {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(60)
	return &TokenCodec{sc: sc}
}

func (c *TokenCodec) Issue(action string) (string, error) {
	value := map[string]string{"action": action}
	encoded, err := c.sc.Encode(tokenName, value)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return encoded, nil
}

// Verify checks that token is valid, fresh and grants action.
func (c *TokenCodec) Verify(token, action string) error {
	if token == "" {
		return internaltypes.ErrUnauthorized
	}
	value := map[string]string{}
	if err := c.sc.Decode(tokenName, token, &value); err != nil {
		return fmt.Errorf("%w: %v", internaltypes.ErrUnauthorized, err)
	}
	if value["action"] != action {
		return fmt.Errorf("%w: token is for %q", internaltypes.ErrUnauthorized, value["action"])
	}
	return nil
}

func tokenFromRequest(r *http.Request) string {
	if t := r.Header.Get(TokenHeader); t != "" {
		return t
	}
	if c, err := r.Cookie(tokenName); err == nil {
		return c.Value
	}
	return ""
}
