package auth

import (
	"context"
	"net/http"
)

// StaticAuthenticator is a development-only authenticator that accepts
// any dgk_ key and derives the org ID from its prefix.
type StaticAuthenticator struct{}

func NewStaticAuthenticator() *StaticAuthenticator {
	return &StaticAuthenticator{}
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, r *http.Request) (*OrgContext, error) {
	token, err := ExtractBearerToken(r)
	if err != nil {
		return nil, err
	}
	if len(token) < 8 {
		return nil, ErrUnauthenticated
	}
	return &OrgContext{OrgID: "static-" + token[:8]}, nil
}
