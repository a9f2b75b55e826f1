package auth

import (
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned when no identifiable principal can be
// derived from a request. Connections carrying it are rejected outright.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// Principal is an authenticated identity attached to a connection or request.
type Principal struct {
	UserID   int64
	Username string
}

// Authenticator derives a Principal from an incoming request.
type Authenticator interface {
	Authenticate(r *http.Request) (Principal, error)
}

// TokenAuthenticator authenticates requests by bearer JWT. The token is read
// from the Authorization header, or from the "token" query parameter because
// browser WebSocket clients cannot set custom headers.
type TokenAuthenticator struct {
	tokens *TokenService
}

// NewTokenAuthenticator creates an Authenticator backed by the token service.
func NewTokenAuthenticator(tokens *TokenService) *TokenAuthenticator {
	return &TokenAuthenticator{tokens: tokens}
}

// Authenticate implements Authenticator.
func (a *TokenAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	raw := bearerToken(r)
	if raw == "" {
		return Principal{}, ErrUnauthenticated
	}

	var claims Claims
	if err := a.tokens.Parse(raw, &claims); err != nil {
		return Principal{}, errors.Join(ErrUnauthenticated, err)
	}
	if claims.UserID == 0 {
		return Principal{}, ErrUnauthenticated
	}

	return Principal{UserID: claims.UserID, Username: claims.Subject}, nil
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return after
		}
		return h
	}
	return r.URL.Query().Get("token")
}
