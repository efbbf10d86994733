package models

import (
	"time"
)

// ScalingReason represents what triggered a scaling attempt
type ScalingReason string

const (
	ScalingReasonAutoscaling ScalingReason = "autoscaling"
	ScalingReasonManual      ScalingReason = "manual"
	ScalingReasonScheduled   ScalingReason = "scheduled"
)

// PaymentStatus represents the payment state of a scaling log entry
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// ScalingLog is one immutable record per scaling attempt. The resource
// columns (previous/new/delta) never change after creation; only the payment
// status and reference may transition afterwards.
type ScalingLog struct {
	ID         uint `gorm:"column:id;primaryKey" json:"id"`
	AccountID  uint `gorm:"column:account_id;not null;index" json:"account_id"`
	PurchaseID uint `gorm:"column:purchase_id;not null;index" json:"purchase_id"`

	PreviousRAM int `gorm:"column:previous_ram;not null" json:"previous_ram"`
	NewRAM      int `gorm:"column:new_ram;not null" json:"new_ram"`
	DeltaRAM    int `gorm:"column:delta_ram;not null" json:"delta_ram"`

	PreviousCPU int `gorm:"column:previous_cpu;not null" json:"previous_cpu"`
	NewCPU      int `gorm:"column:new_cpu;not null" json:"new_cpu"`
	DeltaCPU    int `gorm:"column:delta_cpu;not null" json:"delta_cpu"`

	Reason ScalingReason `gorm:"column:reason;size:20;not null;index" json:"reason"`

	Cost             float64       `gorm:"column:cost;type:decimal(15,2);not null" json:"cost"`
	PaymentReference string        `gorm:"column:payment_reference;size:100" json:"payment_reference"`
	PaymentStatus    PaymentStatus `gorm:"column:payment_status;size:20;default:pending;index" json:"payment_status"`

	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (ScalingLog) TableName() string {
	return "scaling_logs"
}

// MarkPaid transitions the log to paid with a payment reference. Calling it
// again is a no-op except that the reference may be updated.
func (l *ScalingLog) MarkPaid(reference string) {
	l.PaymentStatus = PaymentStatusPaid
	if reference != "" {
		l.PaymentReference = reference
	}
}

// MarkFailed transitions the log to failed. Idempotent.
func (l *ScalingLog) MarkFailed() {
	l.PaymentStatus = PaymentStatusFailed
}

// MarkPending transitions the log back to pending. Idempotent.
func (l *ScalingLog) MarkPending() {
	l.PaymentStatus = PaymentStatusPending
}
