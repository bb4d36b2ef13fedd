package controller

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"whatrack/models"
	"whatrack/utils"
)

const exportRecipientLimit = 10000

// GetCampaigns returns one page of the organization's campaigns, optionally
// filtered by status, template and creation date range.
func (cc *CampaignController) GetCampaigns(c *fiber.Ctx) error {
	org := organizationFromCtx(c)

	page, limit := parsePagination(c)

	query := cc.DB.Model(&models.Campaign{}).Where("organization_id = ?", org.ID)
	countQuery := cc.DB.Model(&models.Campaign{}).Where("organization_id = ?", org.ID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
		countQuery = countQuery.Where("status = ?", status)
	}
	if templateID := c.Query("template_id"); templateID != "" {
		query = query.Where("template_id = ?", templateID)
		countQuery = countQuery.Where("template_id = ?", templateID)
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			query = query.Where("created_at >= ?", t)
			countQuery = countQuery.Where("created_at >= ?", t)
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			query = query.Where("created_at <= ?", t)
			countQuery = countQuery.Where("created_at <= ?", t)
		}
	}

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count campaigns",
		})
	}

	var campaigns []models.Campaign
	if err := query.
		Preload("Template").
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&campaigns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch campaigns",
		})
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  campaigns,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetCampaign returns a single campaign with its template.
func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	org := organizationFromCtx(c)

	campaign, err := cc.loadCampaign(org.ID, c.Params("id"), true)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	return c.JSON(campaign)
}

// GetCampaignRecipients returns one page of a campaign's recipients,
// optionally filtered by status.
func (cc *CampaignController) GetCampaignRecipients(c *fiber.Ctx) error {
	org := organizationFromCtx(c)

	campaign, err := cc.loadCampaign(org.ID, c.Params("id"), false)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	page, limit := parsePagination(c)

	query := cc.DB.Model(&models.CampaignRecipient{}).Where("campaign_id = ?", campaign.ID)
	countQuery := cc.DB.Model(&models.CampaignRecipient{}).Where("campaign_id = ?", campaign.ID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
		countQuery = countQuery.Where("status = ?", status)
	}

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count recipients",
		})
	}

	var recipients []models.CampaignRecipient
	if err := query.
		Order("id ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&recipients).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch recipients",
		})
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  recipients,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// ExportCampaignRecipients streams the recipient list as a CSV download,
// capped at 10,000 rows.
func (cc *CampaignController) ExportCampaignRecipients(c *fiber.Ctx) error {
	org := organizationFromCtx(c)

	campaign, err := cc.loadCampaign(org.ID, c.Params("id"), false)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	var recipients []models.CampaignRecipient
	if err := cc.DB.
		Where("campaign_id = ?", campaign.ID).
		Order("id ASC").
		Limit(exportRecipientLimit).
		Find(&recipients).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch recipients",
		})
	}

	data, err := utils.RenderRecipientsCSV(recipients)
	if err != nil {
		cc.Logger.Printf("Failed to render CSV for campaign %d: %v", campaign.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to render export",
		})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="campaign-%d-recipients.csv"`, campaign.ID))
	return c.Send(data)
}

func parsePagination(c *fiber.Ctx) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	limit, _ = strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
