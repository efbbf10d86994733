package models

import (
	"time"

	"gorm.io/gorm"
)

// BillingCycle represents the billing cycle of a purchase
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

// PurchaseStatus represents the status of a purchase
type PurchaseStatus string

const (
	PurchaseStatusActive    PurchaseStatus = "active"
	PurchaseStatusSuspended PurchaseStatus = "suspended"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

// Purchase represents a paid plan subscription owned by a user.
// Each purchase owns exactly one hosting account.
type Purchase struct {
	ID     uint `gorm:"column:id;primaryKey" json:"id"`
	UserID uint `gorm:"column:user_id;not null;index" json:"user_id"`
	PlanID uint `gorm:"column:plan_id;not null;index" json:"plan_id"`

	// Relations - loaded manually, no FK constraints
	User *User        `gorm:"-" json:"user,omitempty"`
	Plan *HostingPlan `gorm:"-" json:"plan,omitempty"`

	BillingCycle BillingCycle   `gorm:"column:billing_cycle;size:20;default:monthly" json:"billing_cycle"`
	PricePaid    float64        `gorm:"column:price_paid;type:decimal(15,2);not null" json:"price_paid"`
	PromoCodeID  *uint          `gorm:"column:promo_code_id" json:"promo_code_id"`
	Status       PurchaseStatus `gorm:"column:status;size:20;default:active;index" json:"status"`

	// Per-purchase autoscaling opt-out; both this and the account flag
	// must be set for the sweep to pick the account up
	AutoscalingEnabled bool `gorm:"column:autoscaling_enabled;default:true" json:"autoscaling_enabled"`

	ExpiresAt *time.Time `gorm:"column:expires_at" json:"expires_at"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Purchase) TableName() string {
	return "purchases"
}
