package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"whatrack/config"
	"whatrack/models"
	"whatrack/utils"
)

type deliveryStatusInput struct {
	MessageID string `json:"message_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=delivered read failed"`
	Timestamp int64  `json:"timestamp"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_message"`
}

// HandleDeliveryStatus ingests the delivery-status feed (Meta's status
// webhooks, relayed by the webhook gateway) and advances recipient rows
// past SENT. The relay signs every request with an HMAC over the body;
// unsigned or missigned requests are rejected, as is everything when no
// secret is configured. Statuses never regress: a late "delivered" after
// "read" is ignored.
func (cc *CampaignController) HandleDeliveryStatus(c *fiber.Ctx) error {
	secret := config.AppConfig.DeliveryWebhookSecret
	if secret == "" ||
		!utils.VerifyDeliverySignature(c.Body(), c.Get("X-Webhook-Signature"), secret) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	var input deliveryStatusInput
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

	var recipient models.CampaignRecipient
	if err := cc.DB.Where("message_id = ?", input.MessageID).First(&recipient).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Recipient not found for message",
		})
	}

	eventTime := time.Now()
	if input.Timestamp > 0 {
		eventTime = time.Unix(input.Timestamp, 0)
	}

	updates := map[string]interface{}{}
	switch input.Status {
	case "delivered":
		if recipient.Status == models.RecipientStatusSent {
			updates["status"] = models.RecipientStatusDelivered
		}
		if recipient.DeliveredAt == nil {
			updates["delivered_at"] = eventTime
		}
	case "read":
		if recipient.Status == models.RecipientStatusSent ||
			recipient.Status == models.RecipientStatusDelivered {
			updates["status"] = models.RecipientStatusRead
		}
		if recipient.ReadAt == nil {
			updates["read_at"] = eventTime
		}
	case "failed":
		if recipient.Status != models.RecipientStatusRead {
			updates["status"] = models.RecipientStatusFailed
			updates["failed_at"] = eventTime
			updates["error_code"] = input.ErrorCode
			updates["error_message"] = input.ErrorMsg
		}
	}

	if len(updates) > 0 {
		if err := cc.DB.Model(&models.CampaignRecipient{}).
			Where("id = ?", recipient.ID).
			Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update recipient",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "Delivery status processed",
	})
}
