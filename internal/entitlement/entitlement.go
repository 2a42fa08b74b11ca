// Package entitlement decides whether an email may read the gated stories.
package entitlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/observability/metrics"
)

// Normalize trims and lower-cases an email.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Canonical normalizes email and drops any +tag from the local part.
func Canonical(email string) string {
	e := Normalize(email)
	local, domain, ok := strings.Cut(e, "@")
	if !ok {
		return e
	}
	if i := strings.IndexByte(local, '+'); i >= 0 {
		local = local[:i]
	}
	return local + "@" + domain
}

// Lookup is the allow-list as seen by the checker.
type Lookup interface {
	ExistsExact(ctx context.Context, email string) (bool, error)
	ExistsFold(ctx context.Context, email string) (bool, error)
}

type Checker struct {
	lookup       Lookup
	collapsePlus bool
}

func NewChecker(lookup Lookup, collapsePlus bool) *Checker {
	return &Checker{lookup: lookup, collapsePlus: collapsePlus}
}

// Key is the form an email is stored and looked up in.
func (c *Checker) Key(email string) string {
	if c.collapsePlus {
		return Canonical(email)
	}
	return Normalize(email)
}

// candidates lists the forms email is looked up in: as given, then with the
// +tag dropped when collapsing is on.
func (c *Checker) candidates(email string) []string {
	n := Normalize(email)
	if n == "" {
		return nil
	}
	if k := c.Key(email); k != n {
		return []string{n, k}
	}
	return []string{n}
}

// HasAccess tries exact matches first and case-insensitive ones second. A
// stored +tag row still matches its own address when collapsing is on. An
// empty email is denied without touching the allow-list.
func (c *Checker) HasAccess(ctx context.Context, email string) (bool, error) {
	keys := c.candidates(email)
	if len(keys) == 0 {
		metrics.ReaderAccessChecksTotal.WithLabelValues("denied").Inc()
		return false, nil
	}

	ok, err := anyMatch(ctx, keys, c.lookup.ExistsExact)
	if err != nil {
		metrics.ReaderAccessChecksTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("entitlement: exact lookup: %w", err)
	}
	if !ok {
		ok, err = anyMatch(ctx, keys, c.lookup.ExistsFold)
		if err != nil {
			metrics.ReaderAccessChecksTotal.WithLabelValues("error").Inc()
			return false, fmt.Errorf("entitlement: fold lookup: %w", err)
		}
	}

	if ok {
		metrics.ReaderAccessChecksTotal.WithLabelValues("granted").Inc()
	} else {
		metrics.ReaderAccessChecksTotal.WithLabelValues("denied").Inc()
	}
	return ok, nil
}

func anyMatch(ctx context.Context, keys []string, exists func(context.Context, string) (bool, error)) (bool, error) {
	for _, k := range keys {
		ok, err := exists(ctx, k)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}
