// Package service holds the site's business operations on top of the store.
package service

import (
	"errors"
	"time"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/apperr"
)

var (
	ErrInvalidRequest       = apperr.New(apperr.CodeBadRequest, errors.New("invalid request"))
	ErrConversationNotFound = apperr.New(apperr.CodeNotFound, errors.New("conversation not found"))
)

// Clock returns the current time. Services stamp rows with it so tests can
// pin time.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now().UTC() }

func orSystemClock(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}
