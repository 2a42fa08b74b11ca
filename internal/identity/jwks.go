package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// JWKSProvider verifies provider-issued access tokens locally against the
// provider's published key set.
type JWKSProvider struct {
	keyfunc jwt.Keyfunc
	issuer  string
}

func NewJWKSProvider(jwksURL, issuer string) (*JWKSProvider, error) {
	options := keyfunc.Options{
		RefreshInterval:   time.Minute * 15,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}
	jwks, err := keyfunc.Get(jwksURL, options)
	if err != nil {
		return nil, fmt.Errorf("identity: load jwks: %w", err)
	}
	return &JWKSProvider{keyfunc: jwks.Keyfunc, issuer: issuer}, nil
}

// NewJWKSProviderWithKeys verifies against a fixed key set.
func NewJWKSProviderWithKeys(jwks *keyfunc.JWKS, issuer string) *JWKSProvider {
	return &JWKSProvider{keyfunc: jwks.Keyfunc, issuer: issuer}
}

func (p *JWKSProvider) GetUser(_ context.Context, token string) (User, error) {
	parsed, err := jwt.Parse(token, p.keyfunc)
	if err != nil || !parsed.Valid {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, ErrInvalidToken
	}
	if iss, _ := claims["iss"].(string); p.issuer != "" && iss != p.issuer {
		return User{}, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return User{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)
	return User{ID: sub, Email: email}, nil
}
