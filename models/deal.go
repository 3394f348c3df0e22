package models

import (
	"time"

	"envie2sortir-backend/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const RecurrenceWeekly = "weekly"

// DailyDeal is a time-bounded promotional offer of an establishment.
type DailyDeal struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EstablishmentID uuid.UUID      `gorm:"type:uuid;index;not null" json:"establishmentId"`
	Establishment   *Establishment `gorm:"foreignKey:EstablishmentID" json:"establishment,omitempty"`

	Title           string   `gorm:"not null" json:"title"`
	Description     string   `gorm:"type:text" json:"description"`
	OriginalPrice   *float64 `gorm:"type:decimal(10,2)" json:"originalPrice"`
	DiscountedPrice *float64 `gorm:"type:decimal(10,2)" json:"discountedPrice"`
	ImageURL        string   `json:"imageUrl"`

	DateDebut  time.Time `gorm:"not null" json:"dateDebut"`
	DateFin    time.Time `gorm:"not null" json:"dateFin"`
	HeureDebut string    `gorm:"type:varchar(5)" json:"heureDebut"` // HH:MM
	HeureFin   string    `gorm:"type:varchar(5)" json:"heureFin"`   // HH:MM
	IsActive   bool      `gorm:"index" json:"isActive"`

	IsRecurring       bool                     `json:"isRecurring"`
	RecurrenceType    string                   `gorm:"type:varchar(20)" json:"recurrenceType,omitempty"`
	RecurrenceDays    datatypes.JSONSlice[int] `json:"recurrenceDays"` // ISO weekdays, Monday=1 .. Sunday=7
	RecurrenceEndDate *time.Time               `json:"recurrenceEndDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (d *DailyDeal) BeforeCreate(tx *gorm.DB) (err error) {
	newID(&d.ID)
	if d.IsRecurring && d.RecurrenceType == "" {
		d.RecurrenceType = RecurrenceWeekly
	}
	return
}

// IsActiveAt reports whether the deal applies at the given instant.
func (d *DailyDeal) IsActiveAt(now time.Time) bool {
	if !d.IsActive {
		return false
	}

	today := utils.BeginningOfDay(now)

	if d.IsRecurring {
		if !containsDay(d.RecurrenceDays, utils.ISOWeekday(now)) {
			return false
		}
		if today.Before(utils.BeginningOfDay(d.DateDebut.In(now.Location()))) {
			return false
		}
		if d.RecurrenceEndDate != nil && today.After(utils.BeginningOfDay(d.RecurrenceEndDate.In(now.Location()))) {
			return false
		}
	} else {
		start := utils.BeginningOfDay(d.DateDebut.In(now.Location()))
		end := utils.BeginningOfDay(d.DateFin.In(now.Location()))
		if today.Before(start) || today.After(end) {
			return false
		}
	}

	if d.HeureDebut == "" || d.HeureFin == "" {
		return true
	}
	return utils.WithinClockWindow(now, d.HeureDebut, d.HeureFin)
}

// IsExpiredAt reports whether the deal can never become active again.
func (d *DailyDeal) IsExpiredAt(now time.Time) bool {
	today := utils.BeginningOfDay(now)
	if d.IsRecurring {
		return d.RecurrenceEndDate != nil && today.After(utils.BeginningOfDay(d.RecurrenceEndDate.In(now.Location())))
	}
	return today.After(utils.BeginningOfDay(d.DateFin.In(now.Location())))
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
