package wallet

import (
	"errors"
	"math"
	"testing"

	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Wallet{}, &models.WalletLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewLedger(db, "PLN"), db
}

func TestGetOrCreate(t *testing.T) {
	ledger, _ := newTestLedger(t)

	w, err := ledger.GetOrCreate(1)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if w.Balance != 0 {
		t.Errorf("new wallet balance = %v, want 0", w.Balance)
	}
	if w.Currency != "PLN" {
		t.Errorf("currency = %q, want PLN", w.Currency)
	}

	again, err := ledger.GetOrCreate(1)
	if err != nil {
		t.Fatalf("GetOrCreate second call: %v", err)
	}
	if again.ID != w.ID {
		t.Errorf("second call created a new wallet: %d != %d", again.ID, w.ID)
	}
}

func TestCreditAndDebit(t *testing.T) {
	ledger, _ := newTestLedger(t)

	entry, err := ledger.Credit(1, 50, models.WalletSourceTopup, "", "top-up")
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if entry.Amount != 50 || entry.BalanceAfter != 50 {
		t.Errorf("credit entry = %+v, want amount 50, balance 50", entry)
	}
	if entry.Reference == "" {
		t.Error("credit entry has no reference")
	}

	debit, err := ledger.Debit(1, 20, models.WalletSourceScaling, "scaling-1", "scale charge")
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if debit.Amount != -20 {
		t.Errorf("debit amount = %v, want -20", debit.Amount)
	}
	if math.Abs(debit.BalanceAfter-30) > 1e-9 {
		t.Errorf("balance after debit = %v, want 30", debit.BalanceAfter)
	}
	if debit.Reference != "scaling-1" {
		t.Errorf("reference = %q, want scaling-1", debit.Reference)
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	ledger, db := newTestLedger(t)

	if _, err := ledger.Credit(1, 10, models.WalletSourceTopup, "", "seed"); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	_, err := ledger.Debit(1, 10.01, models.WalletSourceScaling, "", "too much")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	// Balance untouched and no debit entry written
	w, _ := ledger.GetOrCreate(1)
	if w.Balance != 10 {
		t.Errorf("balance = %v, want 10", w.Balance)
	}
	var count int64
	db.Model(&models.WalletLog{}).Where("amount < 0").Count(&count)
	if count != 0 {
		t.Errorf("debit entries = %d, want 0", count)
	}
}

func TestInvalidAmounts(t *testing.T) {
	ledger, _ := newTestLedger(t)

	if _, err := ledger.Credit(1, 0, models.WalletSourceTopup, "", ""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Credit(0) err = %v, want ErrInvalidAmount", err)
	}
	if _, err := ledger.Credit(1, -5, models.WalletSourceTopup, "", ""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Credit(-5) err = %v, want ErrInvalidAmount", err)
	}
	if _, err := ledger.Debit(1, 0, models.WalletSourceScaling, "", ""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Debit(0) err = %v, want ErrInvalidAmount", err)
	}
}

func TestLedgerSumMatchesBalance(t *testing.T) {
	ledger, db := newTestLedger(t)

	amounts := []float64{100, 25.5, 10}
	for _, a := range amounts {
		if _, err := ledger.Credit(1, a, models.WalletSourceTopup, "", "credit"); err != nil {
			t.Fatalf("Credit(%v): %v", a, err)
		}
	}
	debits := []float64{12.25, 40}
	for _, a := range debits {
		if _, err := ledger.Debit(1, a, models.WalletSourceScaling, "", "debit"); err != nil {
			t.Fatalf("Debit(%v): %v", a, err)
		}
	}

	var sum float64
	db.Model(&models.WalletLog{}).Where("user_id = ?", 1).
		Select("COALESCE(SUM(amount), 0)").Scan(&sum)

	w, _ := ledger.GetOrCreate(1)
	if math.Abs(w.Balance-sum) > 1e-9 {
		t.Errorf("balance %v does not match ledger sum %v", w.Balance, sum)
	}
	if math.Abs(w.Balance-83.25) > 1e-9 {
		t.Errorf("balance = %v, want 83.25", w.Balance)
	}
}

func TestHasSufficientFunds(t *testing.T) {
	ledger, _ := newTestLedger(t)

	if _, err := ledger.Credit(1, 30, models.WalletSourceTopup, "", "seed"); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	ok, err := ledger.HasSufficientFunds(1, 30)
	if err != nil || !ok {
		t.Errorf("HasSufficientFunds(30) = %v, %v, want true", ok, err)
	}
	ok, err = ledger.HasSufficientFunds(1, 30.01)
	if err != nil || ok {
		t.Errorf("HasSufficientFunds(30.01) = %v, %v, want false", ok, err)
	}
}
