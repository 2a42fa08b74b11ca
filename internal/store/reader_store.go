package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
)

type ReaderStore struct{ db *gorm.DB }

func (s *Store) Readers() *ReaderStore { return &ReaderStore{db: s.DB} }

func (r *ReaderStore) ExistsExact(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.AllowedReader{}).
		Where("email = ?", email).
		Count(&n).Error
	return n > 0, err
}

// ExistsFold matches case-insensitively. LOWER() keeps it portable between
// postgres and sqlite.
func (r *ReaderStore) ExistsFold(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.AllowedReader{}).
		Where("LOWER(email) = LOWER(?)", email).
		Count(&n).Error
	return n > 0, err
}

// Add inserts email and reports whether a new row was written.
func (r *ReaderStore) Add(ctx context.Context, email string) (bool, error) {
	row := domain.AllowedReader{Email: email}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&row)
	return res.RowsAffected == 1, res.Error
}
