package models

import (
	"time"

	"gorm.io/gorm"
)

// PromoCode represents a percentage discount code redeemable at checkout
type PromoCode struct {
	ID              uint       `gorm:"column:id;primaryKey" json:"id"`
	Code            string     `gorm:"column:code;uniqueIndex;size:50;not null" json:"code"`
	DiscountPercent float64    `gorm:"column:discount_percent;type:decimal(5,2);not null" json:"discount_percent"`
	MaxUses         int        `gorm:"column:max_uses;default:0" json:"max_uses"` // 0 = unlimited
	UsedCount       int        `gorm:"column:used_count;default:0" json:"used_count"`
	ExpiresAt       *time.Time `gorm:"column:expires_at" json:"expires_at"`
	IsActive        bool       `gorm:"column:is_active;default:true" json:"is_active"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (PromoCode) TableName() string {
	return "promo_codes"
}

// IsRedeemable reports whether the code can still be applied at checkout
func (p *PromoCode) IsRedeemable(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.MaxUses > 0 && p.UsedCount >= p.MaxUses {
		return false
	}
	if p.ExpiresAt != nil && now.After(*p.ExpiresAt) {
		return false
	}
	return true
}
