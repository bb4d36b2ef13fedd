package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"whatrack/models"
	"whatrack/utils"
	"whatrack/worker"
)

type CampaignController struct {
	DB        *gorm.DB
	Logger    *log.Logger
	Sender    utils.WhatsAppSenderInterface
	Credits   *utils.CreditService
	Processor *worker.CampaignProcessor
}

func NewCampaignController(db *gorm.DB, logger *log.Logger, sender utils.WhatsAppSenderInterface, credits *utils.CreditService, processor *worker.CampaignProcessor) *CampaignController {
	return &CampaignController{
		DB:        db,
		Logger:    logger,
		Sender:    sender,
		Credits:   credits,
		Processor: processor,
	}
}

// loadCampaign fetches a campaign scoped to the calling organization.
func (cc *CampaignController) loadCampaign(orgID uint, campaignID string, preloadTemplate bool) (*models.Campaign, error) {
	query := cc.DB.Where("id = ? AND organization_id = ?", campaignID, orgID)
	if preloadTemplate {
		query = query.Preload("Template")
	}

	var campaign models.Campaign
	if err := query.First(&campaign).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

func organizationFromCtx(c *fiber.Ctx) *models.Organization {
	return c.Locals("organization").(*models.Organization)
}
