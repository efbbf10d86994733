package handlers

import (
	"strings"

	"github.com/dominik-hvln/hv-hosting-platform/internal/database"
	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/gofiber/fiber/v2"
)

type SettingsHandler struct{}

func NewSettingsHandler() *SettingsHandler {
	return &SettingsHandler{}
}

// List returns all system settings (admin only)
func (h *SettingsHandler) List(c *fiber.Ctx) error {
	var settings []models.SystemSetting
	if err := database.DB.Order("key ASC").Find(&settings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch settings",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    settings,
	})
}

// SettingRequest represents a setting upsert
type SettingRequest struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	ValueType string `json:"value_type"`
}

// Set creates or updates a setting (admin only). Autoscaler settings take
// effect at the next sweep.
func (h *SettingsHandler) Set(c *fiber.Ctx) error {
	var req SettingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Key is required",
		})
	}
	if req.ValueType == "" {
		req.ValueType = "string"
	}

	var setting models.SystemSetting
	err := database.DB.Where("key = ?", req.Key).First(&setting).Error
	if err != nil {
		setting = models.SystemSetting{Key: req.Key, Value: req.Value, ValueType: req.ValueType}
		if err := database.DB.Create(&setting).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to create setting",
			})
		}
	} else {
		if err := database.DB.Model(&setting).Updates(map[string]interface{}{
			"value":      req.Value,
			"value_type": req.ValueType,
		}).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to update setting",
			})
		}
	}

	database.InvalidateSettingsCache()
	writeAudit(c, models.AuditActionUpdate, "setting", setting.ID, "Setting changed: "+setting.Key)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    setting,
	})
}

// Delete removes a setting so its env default applies again (admin only)
func (h *SettingsHandler) Delete(c *fiber.Ctx) error {
	key := c.Params("key")

	var setting models.SystemSetting
	if err := database.DB.Where("key = ?", key).First(&setting).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Setting not found",
		})
	}

	if err := database.DB.Delete(&setting).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete setting",
		})
	}

	database.InvalidateSettingsCache()
	writeAudit(c, models.AuditActionDelete, "setting", setting.ID, "Setting removed: "+setting.Key)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Setting deleted",
	})
}
