package models

import (
	"strings"
	"time"

	"envie2sortir-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RolePro   = "pro"
)

// User is a consumer account; admins are users with the admin role.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `gorm:"type:varchar(20);not null" json:"role"`

	IsVerified bool       `json:"isVerified"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`

	Favorites []UserFavorite `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Initialize UUID and hash the password before creating
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	newID(&u.ID)
	if u.Role == "" {
		u.Role = RoleUser
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return hashPassword(&u.Password)
}

// Professional is the business-owner account type.
type Professional struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	FirstName string    `gorm:"not null" json:"firstName"`
	LastName  string    `gorm:"not null" json:"lastName"`
	Phone     string    `json:"phone"`

	Siret         string `gorm:"type:varchar(14);uniqueIndex;not null" json:"siret"`
	CompanyName   string `json:"companyName"`
	LegalStatus   string `json:"legalStatus"`
	SiretVerified bool   `json:"siretVerified"`

	SubscriptionPlan string `gorm:"type:varchar(20);not null" json:"subscriptionPlan"`
	StripeCustomerID string `gorm:"index" json:"-"`

	LastLogin *time.Time `json:"lastLogin,omitempty"`
	IsActive  bool       `json:"isActive"`

	Establishment *Establishment `gorm:"foreignKey:OwnerID" json:"establishment,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

func (p *Professional) BeforeCreate(tx *gorm.DB) (err error) {
	newID(&p.ID)
	if p.SubscriptionPlan == "" {
		p.SubscriptionPlan = PlanFree
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	return hashPassword(&p.Password)
}

func (p *Professional) IsPremium() bool { return p.SubscriptionPlan == PlanPremium }

// hashPassword always hashes: callers hand over the raw secret, never a digest.
func hashPassword(password *string) error {
	if *password == "" {
		return nil
	}
	hashed, err := utils.HashPassword(*password)
	if err != nil {
		return err
	}
	*password = hashed
	return nil
}
