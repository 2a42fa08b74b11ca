package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/entitlement"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/jwtsigner"
)

const (
	tokenTypeMagic   = "magic"
	tokenTypeSession = "session"
)

// Mailer delivers magic links.
type Mailer interface {
	SendMagicLink(ctx context.Context, email, link string) error
}

// LogMailer writes links to the log instead of sending mail.
type LogMailer struct{}

func (LogMailer) SendMagicLink(ctx context.Context, email, link string) error {
	slog.InfoContext(ctx, "magic link issued", "email", email, "link", link)
	return nil
}

type SessionConfig struct {
	BaseURL    string
	MagicTTL   time.Duration
	SessionTTL time.Duration
}

// Sessions implements the passwordless login: a short-lived magic token is
// mailed out and exchanged for a long-lived session token.
type Sessions struct {
	magic   *jwtsigner.Signer
	session *jwtsigner.Signer
	mailer  Mailer
	cfg     SessionConfig
}

func NewSessions(magic, session *jwtsigner.Signer, mailer Mailer, cfg SessionConfig) *Sessions {
	return &Sessions{magic: magic, session: session, mailer: mailer, cfg: cfg}
}

// UserIDForEmail derives the stable id magic-link users are known by.
func UserIDForEmail(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+entitlement.Normalize(email))).String()
}

// IssueMagicLink signs a login token for email and hands the link to the
// mailer. The link is returned for callers that surface it in development.
func (s *Sessions) IssueMagicLink(ctx context.Context, email string) (string, error) {
	email = entitlement.Normalize(email)
	if email == "" {
		return "", errors.New("identity: empty email")
	}
	tok, err := s.magic.Sign(UserIDForEmail(email), s.cfg.MagicTTL, map[string]any{
		"email": email,
		"typ":   tokenTypeMagic,
	})
	if err != nil {
		return "", fmt.Errorf("identity: sign magic token: %w", err)
	}
	link := s.cfg.BaseURL + "/api/auth/verify?token=" + url.QueryEscape(tok)
	if err := s.mailer.SendMagicLink(ctx, email, link); err != nil {
		return "", fmt.Errorf("identity: send magic link: %w", err)
	}
	return link, nil
}

// Exchange trades a magic token for a session token.
func (s *Sessions) Exchange(magicToken string) (string, User, error) {
	u, err := userFromClaims(s.magic, magicToken, tokenTypeMagic)
	if err != nil {
		return "", User{}, err
	}
	tok, err := s.session.Sign(u.ID, s.cfg.SessionTTL, map[string]any{
		"email": u.Email,
		"typ":   tokenTypeSession,
	})
	if err != nil {
		return "", User{}, fmt.Errorf("identity: sign session: %w", err)
	}
	return tok, u, nil
}

// Verify resolves a session token to its user.
func (s *Sessions) Verify(sessionToken string) (User, error) {
	return userFromClaims(s.session, sessionToken, tokenTypeSession)
}

func (s *Sessions) SessionTTL() time.Duration { return s.cfg.SessionTTL }

func userFromClaims(signer *jwtsigner.Signer, token, typ string) (User, error) {
	claims, err := signer.Verify(token)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if t, _ := claims["typ"].(string); t != typ {
		return User{}, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, t)
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" || email == "" {
		return User{}, fmt.Errorf("%w: incomplete claims", ErrInvalidToken)
	}
	return User{ID: sub, Email: email}, nil
}
