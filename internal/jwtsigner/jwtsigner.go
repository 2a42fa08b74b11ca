package jwtsigner

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

var ErrInvalidToken = errors.New("jwtsigner: invalid token")

// Signer holds an Ed25519 keypair for issuing and checking JWTs.
type Signer struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
	KeyID   string
	Issuer  string
}

// NewFromSecret derives the keypair from secret with HKDF-SHA256. Distinct
// purposes yield unrelated keys, so a token minted for one purpose never
// verifies under another.
func NewFromSecret(secret []byte, purpose, kid, iss string) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtsigner: empty secret")
	}
	seed := make([]byte, ed25519.SeedSize)
	r := hkdf.New(sha256.New, secret, nil, []byte("vallalhatatlan/"+purpose))
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, fmt.Errorf("jwtsigner: derive key: %w", err)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Signer{private: priv, public: pub, KeyID: kid, Issuer: iss}, nil
}

// Sign issues a JWT for subject `sub` with TTL and extra claims.
func (s *Signer) Sign(sub string, ttl time.Duration, claims map[string]any) (string, error) {
	now := time.Now()
	m := jwt.MapClaims{}
	for k, v := range claims {
		m[k] = v
	}
	m["iss"] = s.Issuer
	m["sub"] = sub
	m["iat"] = now.Unix()
	m["exp"] = now.Add(ttl).Unix()

	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, m)
	t.Header["kid"] = s.KeyID
	return t.SignedString(s.private)
}

// Verify checks signature, expiry and issuer and returns the claims.
func (s *Signer) Verify(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.public, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(s.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
