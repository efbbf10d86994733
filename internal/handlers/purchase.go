package handlers

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dominik-hvln/hv-hosting-platform/internal/config"
	"github.com/dominik-hvln/hv-hosting-platform/internal/database"
	"github.com/dominik-hvln/hv-hosting-platform/internal/middleware"
	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/dominik-hvln/hv-hosting-platform/internal/provisioner"
	"github.com/dominik-hvln/hv-hosting-platform/internal/wallet"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type PurchaseHandler struct {
	cfg         *config.Config
	ledger      *wallet.Ledger
	provisioner *provisioner.Client
}

func NewPurchaseHandler(cfg *config.Config, ledger *wallet.Ledger, prov *provisioner.Client) *PurchaseHandler {
	return &PurchaseHandler{cfg: cfg, ledger: ledger, provisioner: prov}
}

// CheckoutRequest represents a plan purchase
type CheckoutRequest struct {
	PlanID       uint   `json:"plan_id"`
	BillingCycle string `json:"billing_cycle"`
	Domain       string `json:"domain"`
	PromoCode    string `json:"promo_code"`
}

// Checkout purchases a plan: price with promo discount, debit the wallet,
// create the purchase and account records, then provision on the panel.
// Provisioning failure refunds the wallet and cancels the purchase.
func (h *PurchaseHandler) Checkout(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	cycle := models.BillingCycle(req.BillingCycle)
	if cycle != models.BillingCycleMonthly && cycle != models.BillingCycleYearly {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Billing cycle must be monthly or yearly",
		})
	}

	req.Domain = strings.ToLower(strings.TrimSpace(req.Domain))
	if req.Domain == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Domain is required",
		})
	}

	var plan models.HostingPlan
	if err := database.DB.Where("id = ? AND is_active = ?", req.PlanID, true).First(&plan).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Plan not found or inactive",
		})
	}

	price := plan.PriceMonthly
	expiresAt := time.Now().AddDate(0, 1, 0)
	if cycle == models.BillingCycleYearly {
		price = plan.PriceYearly
		expiresAt = time.Now().AddDate(1, 0, 0)
	}

	// Apply promo discount
	var promoID *uint
	if req.PromoCode != "" {
		code := strings.ToUpper(strings.TrimSpace(req.PromoCode))
		var promo models.PromoCode
		if err := database.DB.Where("code = ?", code).First(&promo).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Promo code not found",
			})
		}
		if !promo.IsRedeemable(time.Now()) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Promo code is no longer valid",
			})
		}
		price = math.Round(price*(100-promo.DiscountPercent)) / 100
		promoID = &promo.ID
	}

	// Charge the wallet before creating anything
	debitEntry, err := h.ledger.Debit(user.ID, price, models.WalletSourcePurchase, "",
		fmt.Sprintf("Purchase of plan %s (%s)", plan.Name, cycle))
	if err != nil {
		if err == wallet.ErrInsufficientFunds {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"success": false,
				"message": "Insufficient wallet balance",
			})
		}
		if err == wallet.ErrInvalidAmount && price == 0 {
			// Free plan or 100% discount, nothing to charge
			debitEntry = nil
		} else {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Payment failed",
			})
		}
	}

	purchase := models.Purchase{
		UserID:             user.ID,
		PlanID:             plan.ID,
		BillingCycle:       cycle,
		PricePaid:          price,
		PromoCodeID:        promoID,
		Status:             models.PurchaseStatusActive,
		AutoscalingEnabled: true,
		ExpiresAt:          &expiresAt,
	}
	account := models.HostingAccount{
		UserID:             user.ID,
		PlanID:             plan.ID,
		Domain:             req.Domain,
		CurrentRAM:         plan.RAM,
		CurrentCPU:         plan.CPU,
		AutoscalingEnabled: true,
		Status:             models.AccountStatusPending,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&purchase).Error; err != nil {
			return err
		}
		account.PurchaseID = purchase.ID
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		if promoID != nil {
			return tx.Model(&models.PromoCode{}).Where("id = ?", *promoID).
				Update("used_count", gorm.Expr("used_count + 1")).Error
		}
		return nil
	})
	if err != nil {
		h.refund(user.ID, price, debitEntry, "Purchase could not be recorded")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create purchase",
		})
	}

	// Provision the account on the panel
	provResp, err := h.provisioner.CreateAccount(c.Context(), &provisioner.CreateAccountRequest{
		Username: fmt.Sprintf("hv%d", account.ID),
		Domain:   account.Domain,
		RAMMB:    plan.RAM,
		CPU:      plan.CPU,
	})
	if err != nil {
		log.Printf("Provisioning failed for purchase %d: %v", purchase.ID, err)
		database.DB.Model(&purchase).Update("status", models.PurchaseStatusCancelled)
		// The account was never provisioned; remove it so it cannot linger
		// in pending
		database.DB.Delete(&account)
		h.refund(user.ID, price, debitEntry, fmt.Sprintf("Refund for failed provisioning of purchase %d", purchase.ID))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Provisioning failed, payment refunded",
		})
	}

	database.DB.Model(&account).Updates(map[string]interface{}{
		"external_id": provResp.ExternalID,
		"status":      models.AccountStatusActive,
	})
	account.ExternalID = provResp.ExternalID
	account.Status = models.AccountStatusActive

	// Credit the referrer a percentage of the first payment
	h.creditReferrer(user, price, purchase.ID)

	writeAudit(c, models.AuditActionCreate, "purchase", purchase.ID,
		fmt.Sprintf("Purchased plan %s for %s", plan.Name, account.Domain))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"purchase": purchase,
			"account":  account,
		},
	})
}

// refund returns a charged amount to the wallet. Only runs when something
// was actually debited.
func (h *PurchaseHandler) refund(userID uint, amount float64, debitEntry *models.WalletLog, description string) {
	if debitEntry == nil || amount <= 0 {
		return
	}
	if _, err := h.ledger.Credit(userID, amount, models.WalletSourceRefund, debitEntry.Reference, description); err != nil {
		log.Printf("CRITICAL: refund of %.2f to user %d failed: %v", amount, userID, err)
	}
}

// creditReferrer pays the referral commission on a completed purchase
func (h *PurchaseHandler) creditReferrer(buyer *models.User, price float64, purchaseID uint) {
	if buyer.ReferredBy == nil || price <= 0 || h.cfg.ReferralPercent <= 0 {
		return
	}
	commission := math.Round(price*h.cfg.ReferralPercent) / 100
	if commission <= 0 {
		return
	}
	_, err := h.ledger.Credit(*buyer.ReferredBy, commission, models.WalletSourceReferral,
		fmt.Sprintf("purchase-%d", purchaseID),
		fmt.Sprintf("Referral commission for %s", buyer.Email))
	if err != nil {
		log.Printf("Referral credit for purchase %d failed: %v", purchaseID, err)
	}
}

// List returns the current user's purchases; admins see all with ?all=true
func (h *PurchaseHandler) List(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Purchase{})
	if !(c.Query("all", "false") == "true" && middleware.IsAdmin(c)) {
		query = query.Where("user_id = ?", middleware.GetCurrentUserID(c))
	}

	var purchases []models.Purchase
	if err := query.Order("created_at DESC").Find(&purchases).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch purchases",
		})
	}

	// Load plans manually (Preload doesn't work with gorm:"-")
	for i := range purchases {
		var plan models.HostingPlan
		if err := database.DB.First(&plan, purchases[i].PlanID).Error; err == nil {
			purchases[i].Plan = &plan
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    purchases,
	})
}

// Get returns a single purchase with its hosting account
func (h *PurchaseHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid purchase ID",
		})
	}

	var purchase models.Purchase
	if err := database.DB.First(&purchase, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Purchase not found",
		})
	}

	if purchase.UserID != middleware.GetCurrentUserID(c) && !middleware.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	var plan models.HostingPlan
	if err := database.DB.First(&plan, purchase.PlanID).Error; err == nil {
		purchase.Plan = &plan
	}

	var account models.HostingAccount
	database.DB.Where("purchase_id = ?", purchase.ID).First(&account)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"purchase": purchase,
			"account":  account,
		},
	})
}

// Cancel marks a purchase cancelled and suspends its hosting account
func (h *PurchaseHandler) Cancel(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid purchase ID",
		})
	}

	var purchase models.Purchase
	if err := database.DB.First(&purchase, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Purchase not found",
		})
	}

	if purchase.UserID != middleware.GetCurrentUserID(c) && !middleware.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	if purchase.Status == models.PurchaseStatusCancelled {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Purchase is already cancelled",
		})
	}

	database.DB.Model(&purchase).Update("status", models.PurchaseStatusCancelled)

	var account models.HostingAccount
	if err := database.DB.Where("purchase_id = ?", purchase.ID).First(&account).Error; err == nil {
		if account.ExternalID != "" {
			if err := h.provisioner.SuspendAccount(c.Context(), account.ExternalID); err != nil {
				log.Printf("Suspend on cancel failed for account %d: %v", account.ID, err)
			}
		}
		database.DB.Model(&account).Update("status", models.AccountStatusSuspended)
	}

	writeAudit(c, models.AuditActionUpdate, "purchase", purchase.ID, "Purchase cancelled")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Purchase cancelled",
	})
}
