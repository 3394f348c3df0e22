package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EstablishmentLearningPattern stores one type detection and its optional admin correction.
type EstablishmentLearningPattern struct {
	ID                uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	EstablishmentName string                      `gorm:"not null" json:"establishmentName"`
	EstablishmentID   *uuid.UUID                  `gorm:"type:uuid;index" json:"establishmentId,omitempty"`
	DetectedType      string                      `gorm:"not null" json:"detectedType"`
	CorrectedType     *string                     `json:"correctedType,omitempty"`
	Keywords          datatypes.JSONSlice[string] `json:"keywords"`
	GoogleTypes       datatypes.JSONSlice[string] `json:"googleTypes"`
	Confidence        float64                     `json:"confidence"`
	IsCorrected       bool                        `gorm:"index" json:"isCorrected"`
	CorrectedBy       *uuid.UUID                  `gorm:"type:uuid" json:"correctedBy,omitempty"`
	CorrectedAt       *time.Time                  `json:"correctedAt,omitempty"`
	CreatedAt         time.Time                   `json:"createdAt"`
	UpdatedAt         time.Time                   `json:"updatedAt"`
}

func (p *EstablishmentLearningPattern) BeforeCreate(tx *gorm.DB) (err error) {
	newID(&p.ID)
	return
}

// EffectiveType is the corrected type when present, else the detected one.
func (p *EstablishmentLearningPattern) EffectiveType() string {
	if p.CorrectedType != nil && *p.CorrectedType != "" {
		return *p.CorrectedType
	}
	return p.DetectedType
}
