package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Tariff struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EstablishmentID uuid.UUID `gorm:"type:uuid;index;not null" json:"establishmentId"`
	Label           string    `gorm:"not null" json:"label"`
	Description     string    `json:"description"`
	Price           float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Category        string    `json:"category"`
	DisplayOrder    int       `json:"displayOrder"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (t *Tariff) BeforeCreate(tx *gorm.DB) (err error) {
	newID(&t.ID)
	if t.Category == "" {
		t.Category = "General"
	}
	return
}

type Menu struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EstablishmentID uuid.UUID `gorm:"type:uuid;index;not null" json:"establishmentId"`
	Name            string    `gorm:"not null" json:"name"`
	Description     string    `json:"description"`
	FileURL         string    `gorm:"not null" json:"fileUrl"`
	DisplayOrder    int       `json:"displayOrder"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (m *Menu) BeforeCreate(tx *gorm.DB) (err error) {
	newID(&m.ID)
	return
}
