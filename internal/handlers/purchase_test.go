package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dominik-hvln/hv-hosting-platform/internal/config"
	"github.com/dominik-hvln/hv-hosting-platform/internal/database"
	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/dominik-hvln/hv-hosting-platform/internal/provisioner"
	"github.com/dominik-hvln/hv-hosting-platform/internal/wallet"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection so every query sees the same in-memory database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	database.DB = db
	return db
}

// newCheckoutApp mounts the checkout route with the given user pre-authenticated
func newCheckoutApp(h *PurchaseHandler, user *models.User) *fiber.App {
	app := fiber.New()
	app.Post("/purchases", func(c *fiber.Ctx) error {
		c.Locals("user", user)
		c.Locals("userID", user.ID)
		c.Locals("role", user.Role)
		return c.Next()
	}, h.Checkout)
	return app
}

func TestCheckoutProvisioningFailureCleansUp(t *testing.T) {
	db := newHandlerTestDB(t)

	user := models.User{Email: "buyer@example.com", Password: "x", Role: models.UserRoleCustomer, IsActive: true, ReferralCode: "BUYER00001"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	plan := models.HostingPlan{Name: "Basic", RAM: 1024, CPU: 100, MaxRAM: 2048, MaxCPU: 200, PriceMonthly: 20, IsActive: true}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("create plan: %v", err)
	}

	ledger := wallet.NewLedger(db, "PLN")
	if _, err := ledger.Credit(user.ID, 50, models.WalletSourceTopup, "", "seed"); err != nil {
		t.Fatalf("credit: %v", err)
	}

	panel := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "node full"})
	}))
	t.Cleanup(panel.Close)

	h := NewPurchaseHandler(&config.Config{ReferralPercent: 10}, ledger,
		provisioner.NewClient(panel.URL, "test-key", 5*time.Second))
	app := newCheckoutApp(h, &user)

	body, _ := json.Marshal(CheckoutRequest{PlanID: plan.ID, BillingCycle: "monthly", Domain: "example.com"})
	req := httptest.NewRequest(http.MethodPost, "/purchases", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}

	var purchase models.Purchase
	if err := db.Where("user_id = ?", user.ID).First(&purchase).Error; err != nil {
		t.Fatalf("load purchase: %v", err)
	}
	if purchase.Status != models.PurchaseStatusCancelled {
		t.Errorf("purchase status = %v, want cancelled", purchase.Status)
	}

	// The never-provisioned account must not be left behind in pending
	var accountCount int64
	db.Model(&models.HostingAccount{}).Where("purchase_id = ?", purchase.ID).Count(&accountCount)
	if accountCount != 0 {
		t.Errorf("hosting account count = %d, want 0 after failed provisioning", accountCount)
	}

	// Full refund back to the wallet
	w, err := ledger.GetOrCreate(user.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if math.Abs(w.Balance-50) > 1e-9 {
		t.Errorf("wallet balance = %v, want refunded 50", w.Balance)
	}
}

func TestCheckoutSuccess(t *testing.T) {
	db := newHandlerTestDB(t)

	user := models.User{Email: "buyer@example.com", Password: "x", Role: models.UserRoleCustomer, IsActive: true, ReferralCode: "BUYER00001"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	plan := models.HostingPlan{Name: "Basic", RAM: 1024, CPU: 100, MaxRAM: 2048, MaxCPU: 200, PriceMonthly: 20, IsActive: true}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("create plan: %v", err)
	}

	ledger := wallet.NewLedger(db, "PLN")
	if _, err := ledger.Credit(user.ID, 50, models.WalletSourceTopup, "", "seed"); err != nil {
		t.Fatalf("credit: %v", err)
	}

	panel := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(provisioner.CreateAccountResponse{ExternalID: "ext-7", Status: "active"})
	}))
	t.Cleanup(panel.Close)

	h := NewPurchaseHandler(&config.Config{ReferralPercent: 10}, ledger,
		provisioner.NewClient(panel.URL, "test-key", 5*time.Second))
	app := newCheckoutApp(h, &user)

	body, _ := json.Marshal(CheckoutRequest{PlanID: plan.ID, BillingCycle: "monthly", Domain: "Example.COM"})
	req := httptest.NewRequest(http.MethodPost, "/purchases", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var account models.HostingAccount
	if err := db.Where("user_id = ?", user.ID).First(&account).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	if account.ExternalID != "ext-7" || account.Status != models.AccountStatusActive {
		t.Errorf("account = %q/%v, want ext-7/active", account.ExternalID, account.Status)
	}
	if account.Domain != "example.com" {
		t.Errorf("domain = %q, want lowercased example.com", account.Domain)
	}
	if account.CurrentRAM != 1024 || account.CurrentCPU != 100 {
		t.Errorf("allocation = %d/%d, want plan base 1024/100", account.CurrentRAM, account.CurrentCPU)
	}

	w, err := ledger.GetOrCreate(user.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if math.Abs(w.Balance-30) > 1e-9 {
		t.Errorf("wallet balance = %v, want 30 after 20 debit", w.Balance)
	}
}
