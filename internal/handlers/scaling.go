package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dominik-hvln/hv-hosting-platform/internal/autoscaler"
	"github.com/dominik-hvln/hv-hosting-platform/internal/config"
	"github.com/dominik-hvln/hv-hosting-platform/internal/database"
	"github.com/dominik-hvln/hv-hosting-platform/internal/middleware"
	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/dominik-hvln/hv-hosting-platform/internal/wallet"
	"github.com/gofiber/fiber/v2"
)

type ScalingHandler struct {
	cfg          *config.Config
	ledger       *wallet.Ledger
	orchestrator *autoscaler.Orchestrator
}

func NewScalingHandler(cfg *config.Config, ledger *wallet.Ledger, orchestrator *autoscaler.Orchestrator) *ScalingHandler {
	return &ScalingHandler{cfg: cfg, ledger: ledger, orchestrator: orchestrator}
}

// RunSweep triggers a sweep on demand (admin only). With ?dry_run=true the
// sweep only reports what it would do.
func (h *ScalingHandler) RunSweep(c *fiber.Ctx) error {
	dryRun := c.Query("dry_run", "false") == "true"

	policy := autoscaler.LoadPolicy(database.DB, h.cfg)
	result, err := h.orchestrator.SweepAll(c.Context(), policy, dryRun)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Sweep failed: " + err.Error(),
		})
	}

	if !dryRun {
		writeAudit(c, models.AuditActionScale, "sweep", 0,
			fmt.Sprintf("Manual sweep: checked %d, scaled %d", result.AccountsChecked, result.AccountsScaled))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// ListLogs returns scaling history with filters. Customers see only their
// own accounts; admins see everything.
func (h *ScalingHandler) ListLogs(c *fiber.Ctx) error {
	query := database.DB.Model(&models.ScalingLog{})

	if !middleware.IsAdmin(c) {
		query = query.
			Joins("JOIN hosting_accounts ON hosting_accounts.id = scaling_logs.account_id").
			Where("hosting_accounts.user_id = ?", middleware.GetCurrentUserID(c))
	}

	if accountID := c.Query("account_id"); accountID != "" {
		if id, err := strconv.Atoi(accountID); err == nil {
			query = query.Where("scaling_logs.account_id = ?", id)
		}
	}
	if status := c.Query("payment_status"); status != "" {
		query = query.Where("scaling_logs.payment_status = ?", status)
	}
	if reason := c.Query("reason"); reason != "" {
		query = query.Where("scaling_logs.reason = ?", reason)
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			query = query.Where("scaling_logs.created_at >= ?", t)
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			query = query.Where("scaling_logs.created_at <= ?", t)
		}
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var total int64
	query.Count(&total)

	var logs []models.ScalingLog
	if err := query.Order("scaling_logs.created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch scaling logs",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    logs,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// RetryPayment re-attempts wallet payment for a pending scaling log
// (admin only). Used for reconciliation after a customer tops up.
func (h *ScalingHandler) RetryPayment(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid scaling log ID",
		})
	}

	var scalingLog models.ScalingLog
	if err := database.DB.First(&scalingLog, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Scaling log not found",
		})
	}

	if scalingLog.PaymentStatus == models.PaymentStatusPaid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Scaling log is already paid",
		})
	}

	var account models.HostingAccount
	if err := database.DB.First(&account, scalingLog.AccountID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Account not found",
		})
	}

	entry, err := h.ledger.Debit(account.UserID, scalingLog.Cost, models.WalletSourceScaling,
		fmt.Sprintf("scaling-%d", scalingLog.ID),
		fmt.Sprintf("Payment retry for scaling event %d", scalingLog.ID))
	if err != nil {
		if err == wallet.ErrInsufficientFunds {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"success": false,
				"message": "Insufficient wallet balance",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Payment retry failed",
		})
	}

	scalingLog.MarkPaid(entry.Reference)
	database.DB.Model(&scalingLog).Updates(map[string]interface{}{
		"payment_status":    scalingLog.PaymentStatus,
		"payment_reference": scalingLog.PaymentReference,
	})

	writeAudit(c, models.AuditActionUpdate, "scaling_log", scalingLog.ID, "Pending scaling payment settled")

	return c.JSON(fiber.Map{
		"success": true,
		"data":    scalingLog,
	})
}
