package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/dominik-hvln/hv-hosting-platform/internal/database"
	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/gofiber/fiber/v2"
)

type PromoHandler struct{}

func NewPromoHandler() *PromoHandler {
	return &PromoHandler{}
}

// List returns all promo codes (admin only)
func (h *PromoHandler) List(c *fiber.Ctx) error {
	var codes []models.PromoCode
	if err := database.DB.Order("created_at DESC").Find(&codes).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch promo codes",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    codes,
	})
}

// PromoRequest represents create/update promo code request
type PromoRequest struct {
	Code            string     `json:"code"`
	DiscountPercent float64    `json:"discount_percent"`
	MaxUses         int        `json:"max_uses"`
	ExpiresAt       *time.Time `json:"expires_at"`
	IsActive        *bool      `json:"is_active"`
}

// Create creates a new promo code (admin only)
func (h *PromoHandler) Create(c *fiber.Ctx) error {
	var req PromoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Code is required",
		})
	}
	if req.DiscountPercent <= 0 || req.DiscountPercent > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Discount must be between 0 and 100 percent",
		})
	}

	var count int64
	database.DB.Model(&models.PromoCode{}).Where("code = ?", req.Code).Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Promo code already exists",
		})
	}

	promo := models.PromoCode{
		Code:            req.Code,
		DiscountPercent: req.DiscountPercent,
		MaxUses:         req.MaxUses,
		ExpiresAt:       req.ExpiresAt,
		IsActive:        true,
	}
	if req.IsActive != nil {
		promo.IsActive = *req.IsActive
	}

	if err := database.DB.Create(&promo).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create promo code",
		})
	}

	writeAudit(c, models.AuditActionCreate, "promo_code", promo.ID, "Promo code created: "+promo.Code)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    promo,
	})
}

// Update updates a promo code (admin only)
func (h *PromoHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid promo code ID",
		})
	}

	var promo models.PromoCode
	if err := database.DB.First(&promo, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Promo code not found",
		})
	}

	var req PromoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	updates := map[string]interface{}{}
	if req.DiscountPercent > 0 && req.DiscountPercent <= 100 {
		updates["discount_percent"] = req.DiscountPercent
	}
	if req.MaxUses >= 0 {
		updates["max_uses"] = req.MaxUses
	}
	if req.ExpiresAt != nil {
		updates["expires_at"] = req.ExpiresAt
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := database.DB.Model(&promo).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update promo code",
		})
	}

	writeAudit(c, models.AuditActionUpdate, "promo_code", promo.ID, "Promo code updated: "+promo.Code)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    promo,
	})
}

// Delete removes a promo code (admin only). Past purchases keep their
// promo_code_id reference.
func (h *PromoHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid promo code ID",
		})
	}

	var promo models.PromoCode
	if err := database.DB.First(&promo, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Promo code not found",
		})
	}

	if err := database.DB.Delete(&promo).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete promo code",
		})
	}

	writeAudit(c, models.AuditActionDelete, "promo_code", promo.ID, "Promo code deleted: "+promo.Code)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Promo code deleted successfully",
	})
}

// Validate checks whether a promo code is currently redeemable. Used by the
// checkout form before purchase.
func (h *PromoHandler) Validate(c *fiber.Ctx) error {
	code := strings.ToUpper(strings.TrimSpace(c.Query("code")))
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Code is required",
		})
	}

	var promo models.PromoCode
	if err := database.DB.Where("code = ?", code).First(&promo).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Promo code not found",
		})
	}

	if !promo.IsRedeemable(time.Now()) {
		return c.JSON(fiber.Map{
			"success": false,
			"message": "Promo code is no longer valid",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"code":             promo.Code,
			"discount_percent": promo.DiscountPercent,
		},
	})
}
