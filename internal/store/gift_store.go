package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
)

type GiftStore struct{ db *gorm.DB }

func (s *Store) Gifts() *GiftStore { return &GiftStore{db: s.DB} }

func (g *GiftStore) Get(ctx context.Context, id string) (*domain.Gift, error) {
	var gift domain.Gift
	if err := g.db.WithContext(ctx).Where("id = ?", id).First(&gift).Error; err != nil {
		return nil, err
	}
	return &gift, nil
}

func (g *GiftStore) Create(ctx context.Context, gift *domain.Gift) error {
	return g.db.WithContext(ctx).Create(gift).Error
}

// RevealIfPending flips revealed in a single conditional update. It reports
// false when the gift is missing, already revealed or expired at now.
func (g *GiftStore) RevealIfPending(ctx context.Context, id string, now time.Time) (bool, error) {
	res := g.db.WithContext(ctx).
		Model(&domain.Gift{}).
		Where("id = ? AND revealed = ? AND (expires_at IS NULL OR expires_at > ?)", id, false, now).
		Updates(map[string]any{"revealed": true, "reveal_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
