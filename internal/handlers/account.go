package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/dominik-hvln/hv-hosting-platform/internal/autoscaler"
	"github.com/dominik-hvln/hv-hosting-platform/internal/config"
	"github.com/dominik-hvln/hv-hosting-platform/internal/database"
	"github.com/dominik-hvln/hv-hosting-platform/internal/middleware"
	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/dominik-hvln/hv-hosting-platform/internal/provisioner"
	"github.com/gofiber/fiber/v2"
)

type AccountHandler struct {
	cfg          *config.Config
	provisioner  *provisioner.Client
	orchestrator *autoscaler.Orchestrator
}

func NewAccountHandler(cfg *config.Config, prov *provisioner.Client, orchestrator *autoscaler.Orchestrator) *AccountHandler {
	return &AccountHandler{cfg: cfg, provisioner: prov, orchestrator: orchestrator}
}

// loadAccount fetches an account and checks ownership
func (h *AccountHandler) loadAccount(c *fiber.Ctx) (*models.HostingAccount, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid account ID",
		})
	}

	var account models.HostingAccount
	if err := database.DB.First(&account, id).Error; err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Account not found",
		})
	}

	if account.UserID != middleware.GetCurrentUserID(c) && !middleware.IsAdmin(c) {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	return &account, nil
}

// List returns the current user's hosting accounts; admins see all with ?all=true
func (h *AccountHandler) List(c *fiber.Ctx) error {
	query := database.DB.Model(&models.HostingAccount{})
	if !(c.Query("all", "false") == "true" && middleware.IsAdmin(c)) {
		query = query.Where("user_id = ?", middleware.GetCurrentUserID(c))
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var accounts []models.HostingAccount
	if err := query.Order("created_at DESC").Find(&accounts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch accounts",
		})
	}

	// Load plans manually (Preload doesn't work with gorm:"-")
	for i := range accounts {
		var plan models.HostingPlan
		if err := database.DB.First(&plan, accounts[i].PlanID).Error; err == nil {
			accounts[i].Plan = &plan
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    accounts,
	})
}

// Get returns an account with its plan and recent scaling history
func (h *AccountHandler) Get(c *fiber.Ctx) error {
	account, err := h.loadAccount(c)
	if err != nil {
		return err
	}

	var plan models.HostingPlan
	if err := database.DB.First(&plan, account.PlanID).Error; err == nil {
		account.Plan = &plan
	}

	var scalingLogs []models.ScalingLog
	database.DB.Where("account_id = ?", account.ID).
		Order("created_at DESC").Limit(20).Find(&scalingLogs)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"account":         account,
			"scaling_history": scalingLogs,
		},
	})
}

// ToggleAutoscaling enables or disables autoscaling for an account
func (h *AccountHandler) ToggleAutoscaling(c *fiber.Ctx) error {
	account, err := h.loadAccount(c)
	if err != nil {
		return err
	}

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Field 'enabled' is required",
		})
	}

	if err := database.DB.Model(account).Update("autoscaling_enabled", *req.Enabled).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update account",
		})
	}

	state := "disabled"
	if *req.Enabled {
		state = "enabled"
	}
	writeAudit(c, models.AuditActionUpdate, "account", account.ID, "Autoscaling "+state)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Autoscaling " + state,
	})
}

// Usage proxies the live usage snapshot from the panel
func (h *AccountHandler) Usage(c *fiber.Ctx) error {
	account, err := h.loadAccount(c)
	if err != nil {
		return err
	}

	if account.ExternalID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Account is not provisioned yet",
		})
	}

	usage, err := h.provisioner.GetUsage(c.Context(), account.ExternalID)
	if err != nil {
		if errors.Is(err, provisioner.ErrUsageUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"message": "Usage data is temporarily unavailable",
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch usage",
		})
	}

	ramPercent := 0.0
	cpuPercent := 0.0
	if account.CurrentRAM > 0 {
		ramPercent = float64(usage.RAMUsageMB) / float64(account.CurrentRAM) * 100
	}
	if account.CurrentCPU > 0 {
		cpuPercent = float64(usage.CPUUsagePercent) / float64(account.CurrentCPU) * 100
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"ram_usage_mb":      usage.RAMUsageMB,
			"cpu_usage_percent": usage.CPUUsagePercent,
			"ram_allocated_mb":  account.CurrentRAM,
			"cpu_allocated":     account.CurrentCPU,
			"ram_percent":       ramPercent,
			"cpu_percent":       cpuPercent,
		},
	})
}

// ScaleRequest represents a manual scaling request
type ScaleRequest struct {
	DeltaRAM int `json:"delta_ram"`
	DeltaCPU int `json:"delta_cpu"`
}

// Scale applies a manual scale-up through the same sequence the autoscaler
// uses, including payment
func (h *AccountHandler) Scale(c *fiber.Ctx) error {
	account, err := h.loadAccount(c)
	if err != nil {
		return err
	}

	var req ScaleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.DeltaRAM < 0 || req.DeltaCPU < 0 || (req.DeltaRAM == 0 && req.DeltaCPU == 0) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Scaling deltas must be non-negative and at least one must be positive",
		})
	}

	policy := autoscaler.LoadPolicy(database.DB, h.cfg)
	outcome, err := h.orchestrator.ScaleOne(account.ID, req.DeltaRAM, req.DeltaCPU, models.ScalingReasonManual, policy)
	if err != nil {
		switch {
		case errors.Is(err, autoscaler.ErrNoScalingNeeded):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Account is already at its plan ceiling",
			})
		case errors.Is(err, autoscaler.ErrAccountBusy):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "Another scaling operation is in progress",
			})
		case errors.Is(err, autoscaler.ErrAccountNotScalable):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Account cannot be scaled in its current state",
			})
		case errors.Is(err, autoscaler.ErrProvisioningFailed):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"success": false,
				"message": "Provisioning failed, nothing was charged",
			})
		default:
			log.Printf("Manual scaling of account %d failed: %v", account.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Scaling failed",
			})
		}
	}

	writeAudit(c, models.AuditActionScale, "account", account.ID,
		fmt.Sprintf("Manual scale to ram=%dMB cpu=%d%%", outcome.NewRAM, outcome.NewCPU))

	return c.JSON(fiber.Map{
		"success": true,
		"data":    outcome,
	})
}

// Suspend suspends an account on the panel (admin only)
func (h *AccountHandler) Suspend(c *fiber.Ctx) error {
	account, err := h.loadAccount(c)
	if err != nil {
		return err
	}

	if account.Status == models.AccountStatusSuspended {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Account is already suspended",
		})
	}

	if account.ExternalID != "" {
		if err := h.provisioner.SuspendAccount(c.Context(), account.ExternalID); err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"success": false,
				"message": "Failed to suspend account on the panel",
			})
		}
	}

	database.DB.Model(account).Update("status", models.AccountStatusSuspended)
	writeAudit(c, models.AuditActionSuspend, "account", account.ID, "Account suspended")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Account suspended",
	})
}

// Unsuspend reactivates a suspended account (admin only)
func (h *AccountHandler) Unsuspend(c *fiber.Ctx) error {
	account, err := h.loadAccount(c)
	if err != nil {
		return err
	}

	if account.Status != models.AccountStatusSuspended {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Account is not suspended",
		})
	}

	if account.ExternalID != "" {
		if err := h.provisioner.UnsuspendAccount(c.Context(), account.ExternalID); err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"success": false,
				"message": "Failed to unsuspend account on the panel",
			})
		}
	}

	database.DB.Model(account).Update("status", models.AccountStatusActive)
	writeAudit(c, models.AuditActionUpdate, "account", account.ID, "Account unsuspended")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Account unsuspended",
	})
}
