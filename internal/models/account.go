package models

import (
	"time"

	"gorm.io/gorm"
)

// AccountStatus represents the status of a hosting account
type AccountStatus string

const (
	AccountStatusPending   AccountStatus = "pending"
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
)

// HostingAccount represents one provisioned hosting endpoint. CurrentRAM and
// CurrentCPU are the allocations applied on the resource manager panel and
// never exceed the plan ceilings; they are mutated only by the scaler and by
// administrative suspension.
type HostingAccount struct {
	ID         uint `gorm:"column:id;primaryKey" json:"id"`
	UserID     uint `gorm:"column:user_id;not null;index" json:"user_id"`
	PurchaseID uint `gorm:"column:purchase_id;uniqueIndex;not null" json:"purchase_id"`
	PlanID     uint `gorm:"column:plan_id;not null;index" json:"plan_id"`

	// Relations - loaded manually, no FK constraints
	User     *User        `gorm:"-" json:"user,omitempty"`
	Purchase *Purchase    `gorm:"-" json:"purchase,omitempty"`
	Plan     *HostingPlan `gorm:"-" json:"plan,omitempty"`

	Domain string `gorm:"column:domain;size:255" json:"domain"`

	// Identifiers on the external systems; empty ExternalID means the
	// account was never provisioned and cannot be scaled or metered
	ExternalID        string `gorm:"column:external_id;size:100;index" json:"external_id"`
	ExternalBillingID string `gorm:"column:external_billing_id;size:100" json:"external_billing_id"`

	// Current allocation
	CurrentRAM int `gorm:"column:current_ram;not null" json:"current_ram"` // MB
	CurrentCPU int `gorm:"column:current_cpu;not null" json:"current_cpu"` // percentage points

	AutoscalingEnabled bool          `gorm:"column:autoscaling_enabled;default:true" json:"autoscaling_enabled"`
	Status             AccountStatus `gorm:"column:status;size:20;default:pending;index" json:"status"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (HostingAccount) TableName() string {
	return "hosting_accounts"
}
