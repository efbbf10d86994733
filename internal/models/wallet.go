package models

import (
	"time"
)

// WalletLogSource tags where a ledger entry came from
type WalletLogSource string

const (
	WalletSourceTopup    WalletLogSource = "topup"
	WalletSourcePurchase WalletLogSource = "purchase"
	WalletSourceScaling  WalletLogSource = "scaling"
	WalletSourceRefund   WalletLogSource = "refund"
	WalletSourceReferral WalletLogSource = "referral"
	WalletSourceManual   WalletLogSource = "manual"
)

// Wallet holds a user's prepaid balance. The balance is only ever mutated
// through the ledger service, which appends a WalletLog entry for every
// change; summing the entries always reproduces the balance.
type Wallet struct {
	ID       uint    `gorm:"column:id;primaryKey" json:"id"`
	UserID   uint    `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	Balance  float64 `gorm:"column:balance;type:decimal(15,2);default:0" json:"balance"`
	Currency string  `gorm:"column:currency;size:3;default:PLN" json:"currency"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// WalletLog is an append-only record of a single balance change.
// Amount is signed: credits positive, debits negative.
type WalletLog struct {
	ID       uint `gorm:"column:id;primaryKey" json:"id"`
	WalletID uint `gorm:"column:wallet_id;not null;index" json:"wallet_id"`
	UserID   uint `gorm:"column:user_id;not null;index" json:"user_id"`

	Amount       float64         `gorm:"column:amount;type:decimal(15,2);not null" json:"amount"`
	BalanceAfter float64         `gorm:"column:balance_after;type:decimal(15,2);not null" json:"balance_after"`
	Source       WalletLogSource `gorm:"column:source;size:30;not null;index" json:"source"`
	Reference    string          `gorm:"column:reference;size:100" json:"reference"`
	Description  string          `gorm:"column:description;size:500" json:"description"`

	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

func (WalletLog) TableName() string {
	return "wallet_logs"
}
