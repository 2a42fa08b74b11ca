package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
)

type MessageStore struct{ db *gorm.DB }

func (s *Store) Messages() *MessageStore { return &MessageStore{db: s.DB} }

func (m *MessageStore) Create(ctx context.Context, msg *domain.Message) error {
	return m.db.WithContext(ctx).Create(msg).Error
}

// ListByConversation returns messages oldest first.
func (m *MessageStore) ListByConversation(ctx context.Context, convID uuid.UUID, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	tx := m.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at asc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
