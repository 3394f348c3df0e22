package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// NotificationLog records every outbound email or SMS.
type NotificationLog struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Recipient    string    `gorm:"index;not null" json:"recipient"`
	Channel      string    `gorm:"type:varchar(20)" json:"channel"` // email, sms
	Type         string    `gorm:"type:varchar(40)" json:"type"`    // establishment_approved, newsletter, ...
	Subject      string    `json:"subject"`
	Status       string    `gorm:"type:varchar(20)" json:"status"` // sent, failed
	ErrorMessage string    `gorm:"type:text" json:"errorMessage,omitempty"`
	SentAt       time.Time `json:"sentAt"`
}

func (n *NotificationLog) BeforeCreate(tx *gorm.DB) (err error) {
	newID(&n.ID)
	if n.SentAt.IsZero() {
		n.SentAt = time.Now()
	}
	return
}
