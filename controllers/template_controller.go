package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"whatrack/models"
	"whatrack/utils"
)

type TemplateController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Client *utils.CloudAPIClient
}

func NewTemplateController(db *gorm.DB, logger *log.Logger, client *utils.CloudAPIClient) *TemplateController {
	return &TemplateController{
		DB:     db,
		Logger: logger,
		Client: client,
	}
}

// GetTemplates lists the organization's synced templates.
func (tc *TemplateController) GetTemplates(c *fiber.Ctx) error {
	org := c.Locals("organization").(*models.Organization)

	query := tc.DB.Where("organization_id = ?", org.ID)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var templates []models.WhatsAppTemplate
	if err := query.Order("name ASC").Find(&templates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch templates",
		})
	}

	return c.JSON(templates)
}

// SyncTemplates pulls the approved templates from the Graph API and upserts
// them locally. Remote rejections surface to the caller with the remote
// error message.
func (tc *TemplateController) SyncTemplates(c *fiber.Ctx) error {
	org := c.Locals("organization").(*models.Organization)

	var connection models.WhatsAppConnection
	if err := tc.DB.
		Where("organization_id = ? AND is_active = ? AND status = ?", org.ID, true, "connected").
		First(&connection).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No active WhatsApp connection",
		})
	}

	remote, err := tc.Client.FetchTemplates(&connection)
	if err != nil {
		tc.Logger.Printf("Template sync failed for organization %d: %v", org.ID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	synced := 0
	for _, rt := range remote {
		template := models.WhatsAppTemplate{
			OrganizationID: org.ID,
			Name:           rt.Name,
			Language:       rt.Language,
			Category:       rt.Category,
			Status:         rt.Status,
			Components:     rt.Components,
			MetaTemplateID: rt.ID,
		}

		var existing models.WhatsAppTemplate
		err := tc.DB.Where("organization_id = ? AND meta_template_id = ?", org.ID, rt.ID).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tc.DB.Create(&template).Error; err != nil {
				tc.Logger.Printf("Failed to insert template %s: %v", rt.Name, err)
				continue
			}
		case err != nil:
			tc.Logger.Printf("Failed to look up template %s: %v", rt.Name, err)
			continue
		default:
			if err := tc.DB.Model(&existing).
				Select("name", "language", "category", "status", "components").
				Updates(&template).Error; err != nil {
				tc.Logger.Printf("Failed to update template %s: %v", rt.Name, err)
				continue
			}
		}
		synced++
	}

	return c.JSON(fiber.Map{
		"message": "Templates synced successfully",
		"synced":  synced,
	})
}
