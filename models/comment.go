package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const MaxCommentLength = 2000

type UserComment struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;index;not null" json:"userId"`
	User            *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	EstablishmentID uuid.UUID      `gorm:"type:uuid;index;not null" json:"establishmentId"`
	Establishment   *Establishment `gorm:"foreignKey:EstablishmentID" json:"establishment,omitempty"`
	Content         string         `gorm:"type:text;not null" json:"content"`
	Rating          *int           `json:"rating"`

	EstablishmentReply *string    `gorm:"type:text" json:"establishmentReply,omitempty"`
	RepliedAt          *time.Time `json:"repliedAt,omitempty"`

	IsReported   bool       `gorm:"index" json:"isReported"`
	ReportReason string     `json:"reportReason,omitempty"`
	ReportedAt   *time.Time `json:"reportedAt,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *UserComment) BeforeCreate(tx *gorm.DB) (err error) {
	newID(&c.ID)
	return
}
