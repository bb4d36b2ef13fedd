package controller

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"whatrack/metrics"
	"whatrack/models"
	"whatrack/utils"
)

// StartCampaign debits the estimated cost and hands the campaign to the
// processor. The status flip and the debit run in one transaction behind a
// conditional update, so two concurrent starts cannot both pass the guard
// and an unfunded start leaves the campaign exactly where it was.
func (cc *CampaignController) StartCampaign(c *fiber.Ctx) error {
	org := organizationFromCtx(c)

	campaign, err := cc.loadCampaign(org.ID, c.Params("id"), true)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	if campaign.Status != models.CampaignStatusDraft &&
		campaign.Status != models.CampaignStatusScheduled {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only draft or scheduled campaigns can be started",
		})
	}

	var ledger *models.CampaignCredits
	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Campaign{}).
			Where("id = ? AND status IN ?", campaign.ID,
				[]string{models.CampaignStatusDraft, models.CampaignStatusScheduled}).
			Updates(map[string]interface{}{
				"status":     models.CampaignStatusProcessing,
				"started_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAlreadyStarted
		}

		ledger, err = cc.Credits.DebitCreditsTx(tx, org.ID, campaign.EstimatedCostCents, &campaign.ID)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInsufficientCredits):
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error": "Insufficient credits",
			})
		case errors.Is(err, errAlreadyStarted):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Campaign was already started",
			})
		default:
			cc.Logger.Printf("Failed to start campaign %d: %v", campaign.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to start campaign",
			})
		}
	}

	metrics.CreditsDebited.Add(float64(campaign.EstimatedCostCents))
	cc.notifyLowBalance(org, ledger)

	// Fire-and-forget: the caller gets the PROCESSING campaign back
	// immediately, completion happens in the background.
	go cc.Processor.Process(campaign.ID)

	campaign.Status = models.CampaignStatusProcessing
	return c.JSON(fiber.Map{
		"message":  "Campaign started successfully",
		"campaign": campaign,
		"balance":  ledger.BalanceCents,
	})
}

var errAlreadyStarted = errors.New("campaign already started")

type sendSingleInput struct {
	To         string                  `json:"to" validate:"required,phone"`
	TemplateID uint                    `json:"template_id" validate:"required"`
	Variables  models.OrderedVariables `json:"variables"`
}

// SendSingleTemplate sends one ad-hoc template message outside campaign
// bookkeeping and returns the sender's raw result.
func (cc *CampaignController) SendSingleTemplate(c *fiber.Ctx) error {
	org := organizationFromCtx(c)

	var input sendSingleInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
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

	var connection models.WhatsAppConnection
	if err := cc.DB.
		Where("organization_id = ? AND is_active = ? AND status = ?", org.ID, true, "connected").
		First(&connection).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No active WhatsApp connection",
		})
	}

	result, err := cc.Sender.SendTemplate(utils.SendTemplateInput{
		Connection:   &connection,
		To:           input.To,
		TemplateName: template.Name,
		LanguageCode: template.Language,
		Components:   utils.BuildComponents(template.Components, input.Variables),
	})
	if err != nil {
		cc.Logger.Printf("Single send to %s failed: %v", input.To, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Message could not be sent",
		})
	}

	return c.JSON(result)
}

// notifyLowBalance fires the alert email when a debit drops the balance
// under the organization's threshold. Best effort only.
func (cc *CampaignController) notifyLowBalance(org *models.Organization, ledger *models.CampaignCredits) {
	if ledger == nil || org.LowBalanceThresholdCents <= 0 {
		return
	}
	if ledger.BalanceCents >= org.LowBalanceThresholdCents {
		return
	}
	go func() {
		if err := utils.SendLowBalanceAlert(org, ledger.BalanceCents); err != nil {
			cc.Logger.Printf("Failed to send low balance alert to organization %d: %v", org.ID, err)
		}
	}()
}
