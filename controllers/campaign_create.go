package controller

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"whatrack/models"
	"whatrack/utils"
)

type recipientInput struct {
	Phone     string                  `json:"phone" validate:"required,phone"`
	Variables models.OrderedVariables `json:"variables"`
}

type createCampaignInput struct {
	Name        string           `json:"name" validate:"required,min=1,max=120"`
	TemplateID  uint             `json:"template_id" validate:"required"`
	Recipients  []recipientInput `json:"recipients" validate:"required,min=1,dive"`
	ScheduledAt *string          `json:"scheduled_at"`
}

// CreateCampaign creates a DRAFT campaign together with all its recipient
// rows in one transaction. The estimated cost is locked in here from the
// template's category price and the recipient count.
func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	org := organizationFromCtx(c)

	var input createCampaignInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if len(input.Recipients) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Campaign needs at least one recipient",
		})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var template models.WhatsAppTemplate
	if err := cc.DB.Where("id = ? AND organization_id = ?", input.TemplateID, org.ID).
		First(&template).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	scheduledAt, err := parseScheduledAt(input.ScheduledAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid scheduled_at, expected RFC 3339",
		})
	}

	status := models.CampaignStatusDraft
	if scheduledAt != nil {
		status = models.CampaignStatusScheduled
	}

	campaign := models.Campaign{
		OrganizationID:     org.ID,
		TemplateID:         template.ID,
		Name:               input.Name,
		Status:             status,
		ScheduledAt:        scheduledAt,
		TotalRecipients:    len(input.Recipients),
		EstimatedCostCents: utils.PricePerMessageCents(template.Category) * int64(len(input.Recipients)),
	}

	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&campaign).Error; err != nil {
			return err
		}

		recipients := make([]models.CampaignRecipient, len(input.Recipients))
		for i, r := range input.Recipients {
			recipients[i] = models.CampaignRecipient{
				CampaignID: campaign.ID,
				Phone:      r.Phone,
				Variables:  r.Variables,
				Status:     models.RecipientStatusPending,
			}
		}
		return tx.CreateInBatches(recipients, 500).Error
	})
	if err != nil {
		cc.Logger.Printf("Failed to create campaign for organization %d: %v", org.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create campaign",
		})
	}

	campaign.Template = template
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Campaign created successfully",
		"campaign": campaign,
	})
}
