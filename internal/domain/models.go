package domain

import (
	"time"

	"github.com/google/uuid"
)

// AllowedReader is one row of the reader allow-list.
type AllowedReader struct {
	ID        uint      `gorm:"primaryKey"`
	Email     string    `gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
}

func (AllowedReader) TableName() string { return "users" }

type Conversation struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID          string     `gorm:"type:text;not null;uniqueIndex"`
	UserEmail       string     `gorm:"type:text;not null"`
	CreatedAt       time.Time  `gorm:"not null"`
	LastMessageAt   *time.Time `gorm:"index"`
	LastAdminReadAt *time.Time
	LastUserReadAt  *time.Time
}

type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_conversation_created,priority:1"`
	SenderID       string    `gorm:"type:text;not null"`
	FromAdmin      bool      `gorm:"not null"`
	Body           string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"not null;index:idx_messages_conversation_created,priority:2"`
}

type Presence struct {
	UserID        string    `gorm:"type:text;primaryKey"`
	Email         string    `gorm:"type:text;not null"`
	LastHeartbeat time.Time `gorm:"not null;index"`
}

func (Presence) TableName() string { return "presence" }

// SystemControlID is the primary key of the only system_control row.
const SystemControlID = 1

type SystemControl struct {
	ID        int       `gorm:"primaryKey;autoIncrement:false"`
	Mode      Mode      `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"`
	UpdatedBy string    `gorm:"type:text;not null"`
}

func (SystemControl) TableName() string { return "system_control" }

type Gift struct {
	ID          string `gorm:"type:text;primaryKey"`
	Revealed    bool   `gorm:"not null"`
	RevealAt    *time.Time
	ExpiresAt   *time.Time `gorm:"index"`
	SecretToken string     `gorm:"type:text;not null"`
	CreatedAt   time.Time  `gorm:"not null"`
}

// Expired reports whether the gift can no longer be revealed at now. A gift
// without an expiry never expires.
func (g Gift) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && !now.Before(*g.ExpiresAt)
}
