package service

import (
	"context"
	"fmt"
	"time"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/observability/metrics"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store"
)

// OnlineWindow is how recent a heartbeat must be to count as online.
const OnlineWindow = 5 * time.Minute

type Presence struct {
	store *store.Store
	now   Clock
}

func NewPresence(st *store.Store, now Clock) *Presence {
	return &Presence{store: st, now: orSystemClock(now)}
}

func (p *Presence) Heartbeat(ctx context.Context, userID, email string) error {
	if userID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	}
	err := p.store.Presence().Upsert(ctx, domain.Presence{
		UserID:        userID,
		Email:         email,
		LastHeartbeat: p.now(),
	})
	if err != nil {
		return err
	}
	metrics.PresenceHeartbeatsTotal.Inc()
	return nil
}

func (p *Presence) CountOnline(ctx context.Context) (int64, error) {
	return p.store.Presence().CountSince(ctx, p.now().Add(-OnlineWindow))
}
