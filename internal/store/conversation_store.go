package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
)

type ConversationStore struct{ db *gorm.DB }

func (s *Store) Conversations() *ConversationStore { return &ConversationStore{db: s.DB} }

func (c *ConversationStore) GetByUser(ctx context.Context, userID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := c.db.WithContext(ctx).Where("user_id = ?", userID).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *ConversationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := c.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateIfMissing inserts conv unless the user already has a conversation and
// returns whichever row holds the user's slot. The unique index on user_id
// makes the insert the only decision point.
func (c *ConversationStore) CreateIfMissing(ctx context.Context, conv domain.Conversation) (*domain.Conversation, bool, error) {
	res := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&conv)
	if res.Error != nil {
		return nil, false, res.Error
	}
	existing, err := c.GetByUser(ctx, conv.UserID)
	if err != nil {
		return nil, false, err
	}
	return existing, res.RowsAffected == 1, nil
}

// List returns the most recently active conversations first; conversations
// without messages sort last.
func (c *ConversationStore) List(ctx context.Context, limit int) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	err := c.db.WithContext(ctx).
		Order("last_message_at IS NULL").
		Order("last_message_at DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&convs).Error
	return convs, err
}

func (c *ConversationStore) TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error {
	return c.update(ctx, id, "last_message_at", at)
}

func (c *ConversationStore) MarkUserRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	return c.update(ctx, id, "last_user_read_at", at)
}

func (c *ConversationStore) MarkAdminRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	return c.update(ctx, id, "last_admin_read_at", at)
}

func (c *ConversationStore) update(ctx context.Context, id uuid.UUID, column string, at time.Time) error {
	res := c.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Update(column, at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
