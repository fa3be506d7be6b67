package transport

import (
	"fmt"
	"net/url"
)

// TokenParam is the query parameter carrying the credential on the handshake.
const TokenParam = "token"

// BuildEndpoint appends the credential to a ws:// or wss:// endpoint,
// replacing any token already present.
func BuildEndpoint(endpoint, token string) (string, error) {
	if token == "" {
		return "", ErrNoCredential
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("endpoint %q has no host", endpoint)
	}
	q := u.Query()
	q.Set(TokenParam, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redact returns endpoint without its query string, for logging.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "<invalid endpoint>"
	}
	u.RawQuery = ""
	return u.String()
}
