package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/apperr"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/observability/metrics"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store"
)

// RevealFailure enumerates why a reveal did not happen.
type RevealFailure string

const (
	RevealNotFound        RevealFailure = "gift_not_found"
	RevealAlreadyRevealed RevealFailure = "already_revealed"
	RevealExpired         RevealFailure = "expired"
	RevealUpdateFailed    RevealFailure = "db_update_failed"
)

func (f RevealFailure) Code() apperr.Code {
	switch f {
	case RevealNotFound:
		return apperr.CodeGiftNotFound
	case RevealAlreadyRevealed:
		return apperr.CodeAlreadyRevealed
	case RevealExpired:
		return apperr.CodeExpired
	case RevealUpdateFailed:
		return apperr.CodeDBUpdateFailed
	}
	return apperr.CodeServerError
}

type RevealError struct {
	Reason RevealFailure
	Err    error
}

func (e *RevealError) Error() string {
	if e.Err == nil {
		return "gift reveal: " + string(e.Reason)
	}
	return "gift reveal: " + string(e.Reason) + ": " + e.Err.Error()
}

func (e *RevealError) Unwrap() error { return e.Err }

func (e *RevealError) ErrorCode() apperr.Code { return e.Reason.Code() }

type Gifts struct {
	store *store.Store
	now   Clock
}

func NewGifts(st *store.Store, now Clock) *Gifts {
	return &Gifts{store: st, now: orSystemClock(now)}
}

// Reveal flips the gift to revealed and returns its secret token. The flip
// is one conditional update; when it matches nothing the row is re-read to
// report why. Expiry is reported ahead of a previous reveal.
func (g *Gifts) Reveal(ctx context.Context, id string) (string, error) {
	token, err := g.reveal(ctx, id)
	result := "ok"
	if err != nil {
		result = "error"
		var re *RevealError
		if errors.As(err, &re) {
			result = string(re.Reason)
		}
	}
	metrics.GiftRevealsTotal.WithLabelValues(result).Inc()
	return token, err
}

func (g *Gifts) reveal(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", &RevealError{Reason: RevealNotFound}
	}
	now := g.now()

	// The flip and the token read commit together; a failed read leaves the
	// gift unrevealed.
	var (
		revealed bool
		gift     *domain.Gift
	)
	err := g.store.WithTx(ctx, func(tx *store.Store) error {
		ok, err := tx.Gifts().RevealIfPending(ctx, id, now)
		if err != nil {
			return &RevealError{Reason: RevealUpdateFailed, Err: err}
		}
		revealed = ok
		gift, err = tx.Gifts().Get(ctx, id)
		return err
	})
	var re *RevealError
	switch {
	case errors.As(err, &re):
		return "", re
	case errors.Is(err, store.ErrRecordNotFound):
		return "", &RevealError{Reason: RevealNotFound}
	case err != nil:
		return "", fmt.Errorf("load gift: %w", err)
	case revealed:
		return gift.SecretToken, nil
	}

	switch {
	case gift.Expired(now):
		return "", &RevealError{Reason: RevealExpired}
	case gift.Revealed:
		return "", &RevealError{Reason: RevealAlreadyRevealed}
	}
	return "", &RevealError{Reason: RevealUpdateFailed, Err: errors.New("conditional update matched no row")}
}

// Create stores a new unrevealed gift. An empty id gets a random one.
func (g *Gifts) Create(ctx context.Context, id string, expiresIn time.Duration) (*domain.Gift, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	token, err := newSecretToken()
	if err != nil {
		return nil, err
	}
	now := g.now()
	gift := &domain.Gift{
		ID:          id,
		SecretToken: token,
		CreatedAt:   now,
	}
	if expiresIn > 0 {
		exp := now.Add(expiresIn)
		gift.ExpiresAt = &exp
	}
	if err := g.store.Gifts().Create(ctx, gift); err != nil {
		return nil, err
	}
	return gift, nil
}

func newSecretToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate gift token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
