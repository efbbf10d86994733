package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// UserRole represents the role of a user
type UserRole int

const (
	UserRoleCustomer UserRole = 1
	UserRoleAdmin    UserRole = 2
)

// MarshalJSON converts UserRole to string for JSON
func (ur UserRole) MarshalJSON() ([]byte, error) {
	var s string
	switch ur {
	case UserRoleCustomer:
		s = "customer"
	case UserRoleAdmin:
		s = "admin"
	default:
		s = "unknown"
	}
	return json.Marshal(s)
}

// UnmarshalJSON converts string back to UserRole for JSON parsing
func (ur *UserRole) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Try as integer for backward compatibility
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*ur = UserRole(i)
		return nil
	}
	switch s {
	case "admin":
		*ur = UserRoleAdmin
	default:
		*ur = UserRoleCustomer
	}
	return nil
}

// User represents a platform user (customer or admin)
type User struct {
	ID        uint           `gorm:"column:id;primaryKey" json:"id"`
	Email     string         `gorm:"column:email;uniqueIndex;size:255;not null" json:"email"`
	Password  string         `gorm:"column:password;size:255;not null" json:"-"`
	FullName  string         `gorm:"column:full_name;size:255" json:"full_name"`
	Role      UserRole       `gorm:"column:role;default:1" json:"role"`
	IsActive  bool           `gorm:"column:is_active;default:true" json:"is_active"`
	LastLogin *time.Time     `gorm:"column:last_login" json:"last_login"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`

	// 2FA fields
	TwoFactorEnabled bool   `gorm:"column:two_factor_enabled;default:false" json:"two_factor_enabled"`
	TwoFactorSecret  string `gorm:"column:two_factor_secret;size:255" json:"-"`

	// Referral program
	ReferralCode string `gorm:"column:referral_code;uniqueIndex;size:50" json:"referral_code"`
	ReferredBy   *uint  `gorm:"column:referred_by;index" json:"referred_by"`
}

func (User) TableName() string {
	return "users"
}
