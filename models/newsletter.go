package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NewsletterSubscriber struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	IsActive         bool       `gorm:"index" json:"isActive"`
	IsVerified       bool       `json:"isVerified"`
	UnsubscribeToken string     `gorm:"uniqueIndex;not null" json:"-"`
	Preferences      JSONB      `json:"preferences"`
	SubscribedAt     time.Time  `json:"subscribedAt"`
	UnsubscribedAt   *time.Time `json:"unsubscribedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (n *NewsletterSubscriber) BeforeCreate(tx *gorm.DB) (err error) {
	newID(&n.ID)
	if n.UnsubscribeToken == "" {
		n.UnsubscribeToken = uuid.NewString()
	}
	if n.SubscribedAt.IsZero() {
		n.SubscribedAt = time.Now()
	}
	return
}

const (
	WaitlistWaiting = "waiting"
	WaitlistInvited = "invited"
)

// WaitlistEntry is a professional pre-registration.
type WaitlistEntry struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email             string     `gorm:"uniqueIndex;not null" json:"email"`
	FirstName         string     `json:"firstName"`
	LastName          string     `json:"lastName"`
	Phone             string     `json:"phone"`
	EstablishmentName string     `gorm:"not null" json:"establishmentName"`
	City              string     `json:"city"`
	Siret             string     `gorm:"type:varchar(14)" json:"siret"`
	Status            string     `gorm:"type:varchar(20);index;not null" json:"status"`
	InvitedAt         *time.Time `json:"invitedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (w *WaitlistEntry) BeforeCreate(tx *gorm.DB) (err error) {
	newID(&w.ID)
	if w.Status == "" {
		w.Status = WaitlistWaiting
	}
	return
}
