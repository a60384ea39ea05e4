package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Authenticator validates incoming requests and returns an OrgContext.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (*OrgContext, error)
}

// OrgContext holds the authenticated organization's identity.
type OrgContext struct {
	OrgID string
}

// ErrUnauthenticated is returned when no valid credentials are found.
var ErrUnauthenticated = errors.New("unauthenticated")

// keyPrefix marks dashboard gateway API keys.
const keyPrefix = "dgk_"

// ExtractBearerToken extracts a dgk_ API key from the Authorization header.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrUnauthenticated
	}
	token := header
	token = strings.TrimPrefix(token, "Bearer ")
	token = strings.TrimPrefix(token, "bearer ")
	if !strings.HasPrefix(token, keyPrefix) {
		return "", ErrUnauthenticated
	}
	return token, nil
}
