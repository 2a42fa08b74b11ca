package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
)

type SystemStore struct{ db *gorm.DB }

func (s *Store) System() *SystemStore { return &SystemStore{db: s.DB} }

func (s *SystemStore) Get(ctx context.Context) (*domain.SystemControl, error) {
	var row domain.SystemControl
	if err := s.db.WithContext(ctx).Where("id = ?", domain.SystemControlID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *SystemStore) Set(ctx context.Context, mode domain.Mode, by string, at time.Time) error {
	row := domain.SystemControl{
		ID:        domain.SystemControlID,
		Mode:      mode,
		UpdatedAt: at,
		UpdatedBy: by,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"mode", "updated_at", "updated_by"}),
		}).
		Create(&row).Error
}
