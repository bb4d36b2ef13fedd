package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"whatrack/models"
	"whatrack/utils"
)

type updateCampaignInput struct {
	Name        *string `json:"name"`
	ScheduledAt *string `json:"scheduled_at"`
}

// UpdateCampaign partially updates name and schedule. Campaigns stay
// editable until they start: DRAFT and SCHEDULED both qualify, so a
// scheduled campaign can be renamed or re-scheduled before its due time.
// Setting a schedule moves a draft to SCHEDULED.
func (cc *CampaignController) UpdateCampaign(c *fiber.Ctx) error {
	org := organizationFromCtx(c)

	var input updateCampaignInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	campaign, err := cc.loadCampaign(org.ID, c.Params("id"), false)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	if campaign.Status != models.CampaignStatusDraft &&
		campaign.Status != models.CampaignStatusScheduled {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only draft or scheduled campaigns can be edited",
		})
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		if *input.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Campaign name cannot be empty",
			})
		}
		updates["name"] = *input.Name
	}
	if input.ScheduledAt != nil {
		scheduledAt, err := parseScheduledAt(input.ScheduledAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid scheduled_at, expected RFC 3339",
			})
		}
		updates["scheduled_at"] = scheduledAt
		if scheduledAt != nil {
			updates["status"] = models.CampaignStatusScheduled
		}
	}

	if len(updates) == 0 {
		return c.JSON(fiber.Map{
			"message":  "Nothing to update",
			"campaign": campaign,
		})
	}

	if err := cc.DB.Model(campaign).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update campaign",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Campaign updated successfully",
		"campaign": campaign,
	})
}

// CancelCampaign flips a non-terminal campaign to CANCELLED. A running
// processor notices the change before its next batch and stops; already
// debited credits are not refunded.
func (cc *CampaignController) CancelCampaign(c *fiber.Ctx) error {
	org := organizationFromCtx(c)

	campaign, err := cc.loadCampaign(org.ID, c.Params("id"), false)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	if campaign.Status == models.CampaignStatusCompleted ||
		campaign.Status == models.CampaignStatusCancelled {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Campaign is already " + campaign.Status,
		})
	}

	res := cc.DB.Model(&models.Campaign{}).
		Where("id = ? AND status NOT IN ?", campaign.ID,
			[]string{models.CampaignStatusCompleted, models.CampaignStatusCancelled}).
		Updates(map[string]interface{}{
			"status":       models.CampaignStatusCancelled,
			"completed_at": time.Now(),
		})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to cancel campaign",
		})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Campaign reached a terminal state first",
		})
	}

	utils.LogEvent("campaign_cancelled", map[string]interface{}{
		"campaign_id":     campaign.ID,
		"organization_id": org.ID,
	})

	return c.JSON(fiber.Map{
		"message": "Campaign cancelled successfully",
	})
}

func parseScheduledAt(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
