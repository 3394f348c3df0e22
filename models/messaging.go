package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ConversationOpen   = "open"
	ConversationClosed = "closed"

	SenderProfessional = "professional"
	SenderAdmin        = "admin"
)

// Conversation is a support thread between a professional and the admin team.
type Conversation struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ProfessionalID uuid.UUID     `gorm:"type:uuid;index;not null" json:"professionalId"`
	Professional   *Professional `gorm:"foreignKey:ProfessionalID" json:"professional,omitempty"`
	AdminID        *uuid.UUID    `gorm:"type:uuid" json:"adminId,omitempty"`
	Subject        string        `gorm:"not null" json:"subject"`
	Status         string        `gorm:"type:varchar(20);index;not null" json:"status"`
	LastMessageAt  time.Time     `gorm:"index" json:"lastMessageAt"`
	Messages       []Message     `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	newID(&c.ID)
	if c.Status == "" {
		c.Status = ConversationOpen
	}
	if c.LastMessageAt.IsZero() {
		c.LastMessageAt = time.Now()
	}
	return
}

func (c *Conversation) IsClosed() bool { return c.Status == ConversationClosed }

type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;index;not null" json:"conversationId"`
	SenderType     string    `gorm:"type:varchar(20);not null" json:"senderType"` // professional, admin
	SenderID       uuid.UUID `gorm:"type:uuid;not null" json:"senderId"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	IsRead         bool      `gorm:"index" json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	newID(&m.ID)
	return
}
