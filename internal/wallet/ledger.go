package wallet

import (
	"errors"
	"fmt"

	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrInvalidAmount is returned for zero or negative credit/debit amounts
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInsufficientFunds is returned when a debit exceeds the balance
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Ledger mutates wallet balances. Every mutation appends a WalletLog entry
// in the same transaction; the balance check on debit is performed by the
// UPDATE itself, so concurrent debits against one wallet cannot race past it.
type Ledger struct {
	db       *gorm.DB
	currency string
}

// NewLedger creates a ledger over the given database
func NewLedger(db *gorm.DB, currency string) *Ledger {
	return &Ledger{db: db, currency: currency}
}

// GetOrCreate returns the user's wallet, creating an empty one on first use
func (l *Ledger) GetOrCreate(userID uint) (*models.Wallet, error) {
	var w models.Wallet
	err := l.db.Where("user_id = ?", userID).First(&w).Error
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	w = models.Wallet{UserID: userID, Balance: 0, Currency: l.currency}
	if err := l.db.Create(&w).Error; err != nil {
		// Lost a create race with a concurrent request; reload
		if err2 := l.db.Where("user_id = ?", userID).First(&w).Error; err2 != nil {
			return nil, err
		}
	}
	return &w, nil
}

// Credit adds funds to the user's wallet and appends a ledger entry
func (l *Ledger) Credit(userID uint, amount float64, source models.WalletLogSource, reference, description string) (*models.WalletLog, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	w, err := l.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}

	if reference == "" {
		reference = uuid.NewString()
	}

	var entry models.WalletLog
	err = l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Wallet{}).Where("id = ?", w.ID).
			Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
			return err
		}

		var fresh models.Wallet
		if err := tx.First(&fresh, w.ID).Error; err != nil {
			return err
		}

		entry = models.WalletLog{
			WalletID:     w.ID,
			UserID:       userID,
			Amount:       amount,
			BalanceAfter: fresh.Balance,
			Source:       source,
			Reference:    reference,
			Description:  description,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, fmt.Errorf("credit wallet %d: %w", w.ID, err)
	}

	return &entry, nil
}

// Debit removes funds from the user's wallet and appends a ledger entry.
// The funds check happens inside the conditional UPDATE: if the balance no
// longer covers the amount the update matches no row and the debit fails,
// regardless of what HasSufficientFunds said a moment earlier.
func (l *Ledger) Debit(userID uint, amount float64, source models.WalletLogSource, reference, description string) (*models.WalletLog, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	w, err := l.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}

	if reference == "" {
		reference = uuid.NewString()
	}

	var entry models.WalletLog
	err = l.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Wallet{}).
			Where("id = ? AND balance >= ?", w.ID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientFunds
		}

		var fresh models.Wallet
		if err := tx.First(&fresh, w.ID).Error; err != nil {
			return err
		}

		entry = models.WalletLog{
			WalletID:     w.ID,
			UserID:       userID,
			Amount:       -amount,
			BalanceAfter: fresh.Balance,
			Source:       source,
			Reference:    reference,
			Description:  description,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("debit wallet %d: %w", w.ID, err)
	}

	return &entry, nil
}

// HasSufficientFunds is a point-in-time check only. The balance may change
// before a subsequent Debit, which re-checks atomically.
func (l *Ledger) HasSufficientFunds(userID uint, amount float64) (bool, error) {
	w, err := l.GetOrCreate(userID)
	if err != nil {
		return false, err
	}
	return w.Balance >= amount, nil
}
