package handlers

import (
	"strconv"

	"github.com/dominik-hvln/hv-hosting-platform/internal/database"
	"github.com/dominik-hvln/hv-hosting-platform/internal/middleware"
	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/dominik-hvln/hv-hosting-platform/internal/wallet"
	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	ledger *wallet.Ledger
}

func NewWalletHandler(ledger *wallet.Ledger) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// Get returns the current user's wallet
func (h *WalletHandler) Get(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	w, err := h.ledger.GetOrCreate(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch wallet",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    w,
	})
}

// TopUpRequest represents a wallet top-up
type TopUpRequest struct {
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference"`
}

// TopUp credits the current user's wallet after a confirmed payment
func (h *WalletHandler) TopUp(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	var req TopUpRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Amount must be positive",
		})
	}

	entry, err := h.ledger.Credit(userID, req.Amount, models.WalletSourceTopup, req.Reference, "Wallet top-up")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to top up wallet",
		})
	}

	writeAudit(c, models.AuditActionTopup, "wallet", entry.WalletID, "Wallet topped up")

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entry,
	})
}

// History returns the current user's wallet ledger, newest first
func (h *WalletHandler) History(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := database.DB.Model(&models.WalletLog{}).Where("user_id = ?", userID)
	if source := c.Query("source"); source != "" {
		query = query.Where("source = ?", source)
	}

	var total int64
	query.Count(&total)

	var entries []models.WalletLog
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&entries).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch wallet history",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// AdjustRequest represents a manual wallet adjustment by an admin
type AdjustRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// Adjust applies a manual credit or debit to a user's wallet (admin only).
// Positive amounts credit, negative amounts debit.
func (h *WalletHandler) Adjust(c *fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user ID",
		})
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	var req AdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Amount == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Amount cannot be zero",
		})
	}

	description := req.Description
	if description == "" {
		description = "Manual adjustment"
	}

	var entry *models.WalletLog
	if req.Amount > 0 {
		entry, err = h.ledger.Credit(user.ID, req.Amount, models.WalletSourceManual, "", description)
	} else {
		entry, err = h.ledger.Debit(user.ID, -req.Amount, models.WalletSourceManual, "", description)
	}
	if err != nil {
		if err == wallet.ErrInsufficientFunds {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Insufficient funds",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to adjust wallet",
		})
	}

	writeAudit(c, models.AuditActionUpdate, "wallet", entry.WalletID, "Manual wallet adjustment for "+user.Email)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entry,
	})
}
