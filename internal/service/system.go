package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store"
)

type SystemStatus struct {
	Mode      domain.Mode
	UpdatedAt *time.Time
	UpdatedBy string
}

type System struct {
	store *store.Store
	now   Clock
}

func NewSystem(st *store.Store, now Clock) *System {
	return &System{store: st, now: orSystemClock(now)}
}

// Status reads the control row. A missing row means SAFE; the migrations
// seed it, so this only happens on a hand-built database.
func (s *System) Status(ctx context.Context) (SystemStatus, error) {
	row, err := s.store.System().Get(ctx)
	if errors.Is(err, store.ErrRecordNotFound) {
		return SystemStatus{Mode: domain.ModeSafe}, nil
	}
	if err != nil {
		return SystemStatus{}, fmt.Errorf("read system mode: %w", err)
	}
	mode, err := domain.ParseMode(string(row.Mode))
	if err != nil {
		return SystemStatus{}, fmt.Errorf("read system mode: %w", err)
	}
	at := row.UpdatedAt
	return SystemStatus{Mode: mode, UpdatedAt: &at, UpdatedBy: row.UpdatedBy}, nil
}

func (s *System) Mode(ctx context.Context) (domain.Mode, error) {
	st, err := s.Status(ctx)
	return st.Mode, err
}

func (s *System) SetMode(ctx context.Context, mode domain.Mode, by string) (SystemStatus, error) {
	if _, err := domain.ParseMode(string(mode)); err != nil {
		return SystemStatus{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	by = strings.TrimSpace(by)
	now := s.now()
	if err := s.store.System().Set(ctx, mode, by, now); err != nil {
		return SystemStatus{}, err
	}
	return SystemStatus{Mode: mode, UpdatedAt: &now, UpdatedBy: by}, nil
}
