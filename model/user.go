package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleCaregiver = "caregiver"
	RoleDoctor    = "doctor"
)

// User is a caregiver or doctor account. Password holds a bcrypt hash.
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	Role      string    `gorm:"type:varchar(32);not null;index" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsAdministrator reports whether u is the account created by SeedAdminUser.
func (u User) IsAdministrator() bool {
	return u.Email == AdminEmail
}

// ValidRole reports whether role is one of the account roles.
func ValidRole(role string) bool {
	return role == RoleCaregiver || role == RoleDoctor
}
