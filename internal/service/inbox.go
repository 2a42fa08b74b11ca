package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
	MaxMessageLength = 4000
)

// ClampLimit forces n into [1, MaxListLimit].
func ClampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxListLimit {
		return MaxListLimit
	}
	return n
}

type Inbox struct {
	store *store.Store
	now   Clock
}

func NewInbox(st *store.Store, now Clock) *Inbox {
	return &Inbox{store: st, now: orSystemClock(now)}
}

// ConversationForUser returns nil without error when the user has none yet.
func (s *Inbox) ConversationForUser(ctx context.Context, userID string) (*domain.Conversation, error) {
	conv, err := s.store.Conversations().GetByUser(ctx, userID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// EnsureConversation returns the user's conversation, creating it on first
// use. Concurrent callers for one user all get the same row.
func (s *Inbox) EnsureConversation(ctx context.Context, userID, email string) (*domain.Conversation, error) {
	return ensureConversation(ctx, s.store, userID, email, s.now())
}

func ensureConversation(ctx context.Context, st *store.Store, userID, email string, now time.Time) (*domain.Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	}
	conv, _, err := st.Conversations().CreateIfMissing(ctx, domain.Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		UserEmail: email,
		CreatedAt: now,
	})
	return conv, err
}

func (s *Inbox) ListConversations(ctx context.Context, limit int) ([]domain.Conversation, error) {
	return s.store.Conversations().List(ctx, ClampLimit(limit))
}

// PostUserMessage appends to the sender's own conversation, creating it if
// needed.
func (s *Inbox) PostUserMessage(ctx context.Context, userID, email, body string) (*domain.Message, error) {
	body, err := validateBody(body)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var msg *domain.Message
	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		conv, err := ensureConversation(ctx, tx, userID, email, now)
		if err != nil {
			return err
		}
		msg, err = appendMessage(ctx, tx, conv.ID, userID, false, body, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// PostAdminMessage replies in an existing conversation.
func (s *Inbox) PostAdminMessage(ctx context.Context, adminID string, convID uuid.UUID, body string) (*domain.Message, error) {
	body, err := validateBody(body)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var msg *domain.Message
	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		if _, err := tx.Conversations().GetByID(ctx, convID); err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return ErrConversationNotFound
			}
			return err
		}
		m, err := appendMessage(ctx, tx, convID, adminID, true, body, now)
		msg = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func appendMessage(ctx context.Context, tx *store.Store, convID uuid.UUID, senderID string, fromAdmin bool, body string, now time.Time) (*domain.Message, error) {
	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       senderID,
		FromAdmin:      fromAdmin,
		Body:           body,
		CreatedAt:      now,
	}
	if err := tx.Messages().Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := tx.Conversations().TouchLastMessage(ctx, convID, now); err != nil {
		return nil, err
	}
	return msg, nil
}

// UserMessages lists the caller's thread; no conversation means no messages.
func (s *Inbox) UserMessages(ctx context.Context, userID string) ([]domain.Message, error) {
	conv, err := s.ConversationForUser(ctx, userID)
	if err != nil || conv == nil {
		return []domain.Message{}, err
	}
	return s.store.Messages().ListByConversation(ctx, conv.ID, 0)
}

func (s *Inbox) ConversationMessages(ctx context.Context, convID uuid.UUID) ([]domain.Message, error) {
	if _, err := s.store.Conversations().GetByID(ctx, convID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return s.store.Messages().ListByConversation(ctx, convID, 0)
}

func (s *Inbox) MarkReadByUser(ctx context.Context, userID string) error {
	conv, err := s.ConversationForUser(ctx, userID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrConversationNotFound
	}
	return s.store.Conversations().MarkUserRead(ctx, conv.ID, s.now())
}

func (s *Inbox) MarkReadByAdmin(ctx context.Context, convID uuid.UUID) error {
	err := s.store.Conversations().MarkAdminRead(ctx, convID, s.now())
	if errors.Is(err, store.ErrRecordNotFound) {
		return ErrConversationNotFound
	}
	return err
}

func validateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%w: empty message", ErrInvalidRequest)
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return "", fmt.Errorf("%w: message longer than %d characters", ErrInvalidRequest, MaxMessageLength)
	}
	return body, nil
}
