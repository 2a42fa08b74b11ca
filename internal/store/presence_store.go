package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
)

type PresenceStore struct{ db *gorm.DB }

func (s *Store) Presence() *PresenceStore { return &PresenceStore{db: s.DB} }

func (p *PresenceStore) Upsert(ctx context.Context, rec domain.Presence) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "last_heartbeat"}),
		}).
		Create(&rec).Error
}

func (p *PresenceStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := p.db.WithContext(ctx).
		Model(&domain.Presence{}).
		Where("last_heartbeat >= ?", since).
		Count(&n).Error
	return n, err
}
