package identity

import (
	"errors"
	"net/http"
	"strings"
)

// SessionCookie is the name of the magic-link session cookie.
const SessionCookie = "vh_session"

// Authenticator resolves requests to users. A bearer header wins over the
// session cookie.
type Authenticator struct {
	provider Provider
	sessions *Sessions
}

// NewAuthenticator accepts a nil provider when bearer tokens are disabled.
func NewAuthenticator(provider Provider, sessions *Sessions) *Authenticator {
	return &Authenticator{provider: provider, sessions: sessions}
}

func (a *Authenticator) Authenticate(r *http.Request) (User, error) {
	if token, ok := bearerToken(r); ok {
		if token == "" {
			return User{}, ErrMissingToken
		}
		if a.provider == nil {
			return User{}, ErrInvalidToken
		}
		return a.provider.GetUser(r.Context(), token)
	}
	c, err := r.Cookie(SessionCookie)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && c.Value == "") {
		return User{}, ErrMissingToken
	}
	if err != nil {
		return User{}, ErrInvalidToken
	}
	if a.sessions == nil {
		return User{}, ErrInvalidToken
	}
	return a.sessions.Verify(c.Value)
}

func bearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.EqualFold(raw, "bearer") {
		return "", true
	}
	if len(raw) < len("bearer ") || !strings.EqualFold(raw[:len("bearer ")], "bearer ") {
		return "", false
	}
	return strings.TrimSpace(raw[len("bearer "):]), true
}
