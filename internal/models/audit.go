package models

import (
	"time"
)

// AuditAction represents the type of audited action
type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionDelete  AuditAction = "delete"
	AuditActionSuspend AuditAction = "suspend"
	AuditActionScale   AuditAction = "scale"
	AuditActionTopup   AuditAction = "topup"
	AuditActionLogin   AuditAction = "login"
)

// AuditLog records administrative mutations for traceability
type AuditLog struct {
	ID          uint        `gorm:"column:id;primaryKey" json:"id"`
	UserID      uint        `gorm:"column:user_id;index" json:"user_id"`
	Email       string      `gorm:"column:email;size:255" json:"email"`
	Action      AuditAction `gorm:"column:action;size:30;not null;index" json:"action"`
	EntityType  string      `gorm:"column:entity_type;size:50;index" json:"entity_type"`
	EntityID    uint        `gorm:"column:entity_id" json:"entity_id"`
	Description string      `gorm:"column:description;size:500" json:"description"`
	IPAddress   string      `gorm:"column:ip_address;size:50" json:"ip_address"`

	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
