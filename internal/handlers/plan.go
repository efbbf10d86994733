package handlers

import (
	"strconv"

	"github.com/dominik-hvln/hv-hosting-platform/internal/database"
	"github.com/dominik-hvln/hv-hosting-platform/internal/middleware"
	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/gofiber/fiber/v2"
)

type PlanHandler struct{}

func NewPlanHandler() *PlanHandler {
	return &PlanHandler{}
}

// List returns hosting plans. Customers see active plans only; admins can
// request all with ?all=true
func (h *PlanHandler) List(c *fiber.Ctx) error {
	var plans []models.HostingPlan

	showAll := c.Query("all", "false") == "true" && middleware.IsAdmin(c)

	// Active plan list is the hot path (public pricing page), serve from cache
	if !showAll {
		if err := database.CacheGet(database.CacheKeyPlans, &plans); err == nil {
			return c.JSON(fiber.Map{
				"success": true,
				"data":    plans,
			})
		}
	}

	query := database.DB.Model(&models.HostingPlan{}).Where("is_active = ?", true)
	if showAll {
		query = database.DB.Model(&models.HostingPlan{})
	}

	if err := query.Order("sort_order ASC, price_monthly ASC").Find(&plans).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch plans",
		})
	}

	if !showAll {
		database.CacheSet(database.CacheKeyPlans, plans, database.CacheTTLPlans)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    plans,
	})
}

// Get returns a single plan
func (h *PlanHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid plan ID",
		})
	}

	var plan models.HostingPlan
	if err := database.DB.First(&plan, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Plan not found",
		})
	}

	var accountCount int64
	database.DB.Model(&models.HostingAccount{}).Where("plan_id = ?", id).Count(&accountCount)

	return c.JSON(fiber.Map{
		"success":       true,
		"data":          plan,
		"account_count": accountCount,
	})
}

// PlanRequest represents create/update plan request
type PlanRequest struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	RAM          int     `json:"ram"`
	CPU          int     `json:"cpu"`
	MaxRAM       int     `json:"max_ram"`
	MaxCPU       int     `json:"max_cpu"`
	PriceMonthly float64 `json:"price_monthly"`
	PriceYearly  float64 `json:"price_yearly"`
	IsActive     *bool   `json:"is_active"`
	SortOrder    int     `json:"sort_order"`
}

func (r *PlanRequest) validate() string {
	if r.Name == "" {
		return "Name is required"
	}
	if r.RAM <= 0 || r.CPU <= 0 {
		return "Base RAM and CPU must be positive"
	}
	if r.MaxRAM < r.RAM || r.MaxCPU < r.CPU {
		return "Max allocation cannot be below the base allocation"
	}
	if r.PriceMonthly < 0 || r.PriceYearly < 0 {
		return "Prices cannot be negative"
	}
	return ""
}

// Create creates a new hosting plan (admin only)
func (h *PlanHandler) Create(c *fiber.Ctx) error {
	var req PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if msg := req.validate(); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": msg,
		})
	}

	plan := models.HostingPlan{
		Name:         req.Name,
		Description:  req.Description,
		RAM:          req.RAM,
		CPU:          req.CPU,
		MaxRAM:       req.MaxRAM,
		MaxCPU:       req.MaxCPU,
		PriceMonthly: req.PriceMonthly,
		PriceYearly:  req.PriceYearly,
		IsActive:     true,
		SortOrder:    req.SortOrder,
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := database.DB.Create(&plan).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create plan",
		})
	}

	database.InvalidatePlansCache()
	writeAudit(c, models.AuditActionCreate, "plan", plan.ID, "Plan created: "+plan.Name)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    plan,
	})
}

// Update updates an existing plan (admin only)
func (h *PlanHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid plan ID",
		})
	}

	var plan models.HostingPlan
	if err := database.DB.First(&plan, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Plan not found",
		})
	}

	var req PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if msg := req.validate(); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": msg,
		})
	}

	updates := map[string]interface{}{
		"name":          req.Name,
		"description":   req.Description,
		"ram":           req.RAM,
		"cpu":           req.CPU,
		"max_ram":       req.MaxRAM,
		"max_cpu":       req.MaxCPU,
		"price_monthly": req.PriceMonthly,
		"price_yearly":  req.PriceYearly,
		"sort_order":    req.SortOrder,
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := database.DB.Model(&plan).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update plan",
		})
	}

	database.InvalidatePlansCache()
	writeAudit(c, models.AuditActionUpdate, "plan", plan.ID, "Plan updated: "+plan.Name)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    plan,
	})
}

// Delete removes a plan. Plans with accounts attached are deactivated
// instead so existing accounts keep their ceilings.
func (h *PlanHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid plan ID",
		})
	}

	var plan models.HostingPlan
	if err := database.DB.First(&plan, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Plan not found",
		})
	}

	var accountCount int64
	database.DB.Model(&models.HostingAccount{}).Where("plan_id = ?", id).Count(&accountCount)

	if accountCount > 0 {
		if err := database.DB.Model(&plan).Update("is_active", false).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to deactivate plan",
			})
		}
		database.InvalidatePlansCache()
		writeAudit(c, models.AuditActionUpdate, "plan", plan.ID, "Plan deactivated (has accounts): "+plan.Name)
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Plan has active accounts and was deactivated instead of deleted",
		})
	}

	if err := database.DB.Delete(&plan).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete plan",
		})
	}

	database.InvalidatePlansCache()
	writeAudit(c, models.AuditActionDelete, "plan", plan.ID, "Plan deleted: "+plan.Name)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Plan deleted successfully",
	})
}
