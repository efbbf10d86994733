package handlers

import (
	"strconv"

	"github.com/dominik-hvln/hv-hosting-platform/internal/database"
	"github.com/dominik-hvln/hv-hosting-platform/internal/middleware"
	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/gofiber/fiber/v2"
)

// writeAudit records an audit entry for the current request's user.
// Audit writes never fail the request.
func writeAudit(c *fiber.Ctx, action models.AuditAction, entityType string, entityID uint, description string) {
	user := middleware.GetCurrentUser(c)
	entry := models.AuditLog{
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		IPAddress:   c.IP(),
	}
	if user != nil {
		entry.UserID = user.ID
		entry.Email = user.Email
	}
	database.DB.Create(&entry)
}

type AuditHandler struct{}

func NewAuditHandler() *AuditHandler {
	return &AuditHandler{}
}

// List returns audit log entries, newest first, with optional filters
func (h *AuditHandler) List(c *fiber.Ctx) error {
	query := database.DB.Model(&models.AuditLog{})

	if userID := c.Query("user_id"); userID != "" {
		if id, err := strconv.Atoi(userID); err == nil {
			query = query.Where("user_id = ?", id)
		}
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if entityType := c.Query("entity_type"); entityType != "" {
		query = query.Where("entity_type = ?", entityType)
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

	var logs []models.AuditLog
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch audit logs",
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
