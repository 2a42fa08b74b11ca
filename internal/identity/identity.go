// Package identity resolves the caller of a request to a User, either from a
// bearer token checked by the identity provider or from a magic-link session
// cookie.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrMissingToken means the request carried neither a bearer token nor a
	// session cookie.
	ErrMissingToken = errors.New("identity: missing token")
	// ErrInvalidToken means a credential was present but rejected.
	ErrInvalidToken = errors.New("identity: invalid token")
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Provider validates bearer tokens issued by the managed identity provider.
type Provider interface {
	GetUser(ctx context.Context, token string) (User, error)
}

type ctxKey struct{}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok
}
