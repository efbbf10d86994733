package models

import (
	"time"

	"gorm.io/gorm"
)

// HostingPlan represents a purchasable hosting plan. RAM/CPU are the base
// allocation granted at purchase; MaxRAM/MaxCPU are the hard ceilings the
// autoscaler may grow an account to.
type HostingPlan struct {
	ID          uint   `gorm:"column:id;primaryKey" json:"id"`
	Name        string `gorm:"column:name;size:100;not null" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`

	// Base allocation
	RAM int `gorm:"column:ram;not null" json:"ram"` // MB
	CPU int `gorm:"column:cpu;not null" json:"cpu"` // percentage points

	// Autoscaling ceilings (max >= base, enforced at create/update)
	MaxRAM int `gorm:"column:max_ram;not null" json:"max_ram"` // MB
	MaxCPU int `gorm:"column:max_cpu;not null" json:"max_cpu"` // percentage points

	// Pricing
	PriceMonthly float64 `gorm:"column:price_monthly;type:decimal(15,2);not null" json:"price_monthly"`
	PriceYearly  float64 `gorm:"column:price_yearly;type:decimal(15,2);not null" json:"price_yearly"`

	IsActive  bool      `gorm:"column:is_active;default:true" json:"is_active"`
	SortOrder int       `gorm:"column:sort_order;default:0" json:"sort_order"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (HostingPlan) TableName() string {
	return "hosting_plans"
}
