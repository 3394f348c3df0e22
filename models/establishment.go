package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Establishment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`

	Address    string   `gorm:"not null" json:"address"`
	City       string   `gorm:"index" json:"city"`
	PostalCode string   `gorm:"type:varchar(10)" json:"postalCode"`
	Country    string   `json:"country"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`

	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Website   string `json:"website"`
	Instagram string `json:"instagram"`
	Facebook  string `json:"facebook"`

	Category   string                      `gorm:"index" json:"category"`
	Activities datatypes.JSONSlice[string] `json:"activities"`
	Tags       datatypes.JSONSlice[string] `json:"tags"`
	PriceMin   *float64                    `json:"priceMin"`
	PriceMax   *float64                    `json:"priceMax"`
	Horaires   JSONB                       `json:"horaires"`
	ImageURL   string                      `json:"imageUrl"`
	Images     datatypes.JSONSlice[string] `json:"images"`

	// pending / approved / rejected
	Status          string     `gorm:"type:varchar(20);index;not null" json:"status"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`

	OwnerID uuid.UUID     `gorm:"type:uuid;uniqueIndex;not null" json:"ownerId"`
	Owner   *Professional `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	AvgRating     float64 `json:"avgRating"`
	TotalComments int     `json:"totalComments"`
	ViewsCount    int     `json:"viewsCount"`
	ClicksCount   int     `json:"clicksCount"`

	Deals   []DailyDeal `gorm:"foreignKey:EstablishmentID" json:"deals,omitempty"`
	Tariffs []Tariff    `gorm:"foreignKey:EstablishmentID" json:"tariffs,omitempty"`
	Menus   []Menu      `gorm:"foreignKey:EstablishmentID" json:"menus,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e *Establishment) BeforeCreate(tx *gorm.DB) (err error) {
	newID(&e.ID)
	if e.Status == "" {
		e.Status = StatusPending
	}
	if e.Country == "" {
		e.Country = "France"
	}
	return
}

func (e *Establishment) IsApproved() bool { return e.Status == StatusApproved }

// HasCoordinates reports whether both coordinates are set.
func (e *Establishment) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// UserFavorite links a consumer to an establishment they saved.
type UserFavorite struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_fav_user_establishment" json:"userId"`
	EstablishmentID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_fav_user_establishment" json:"establishmentId"`
	Establishment   *Establishment `gorm:"foreignKey:EstablishmentID" json:"establishment,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

func (f *UserFavorite) BeforeCreate(tx *gorm.DB) (err error) {
	newID(&f.ID)
	return
}
