package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
)

// ErrRecordNotFound is returned by single-row getters.
var ErrRecordNotFound = gorm.ErrRecordNotFound

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func models() []any {
	return []any{
		&domain.AllowedReader{},
		&domain.Conversation{},
		&domain.Message{},
		&domain.Presence{},
		&domain.SystemControl{},
		&domain.Gift{},
	}
}

// AutoMigrate creates the schema from the models and seeds the system row.
// Postgres deployments use the goose migrations instead.
func (s *Store) AutoMigrate(ctx context.Context) error {
	db := s.DB.WithContext(ctx)
	if err := db.AutoMigrate(models()...); err != nil {
		return err
	}
	seed := domain.SystemControl{
		ID:        domain.SystemControlID,
		Mode:      domain.ModeSafe,
		UpdatedAt: time.Now().UTC(),
		UpdatedBy: "migration",
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error
}
