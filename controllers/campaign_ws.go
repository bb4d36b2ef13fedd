package controller

import (
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"whatrack/config"
	"whatrack/models"
)

type campaignProgress struct {
	CampaignID      uint   `json:"campaign_id"`
	Status          string `json:"status"`
	TotalRecipients int    `json:"total_recipients"`
	SentCount       int    `json:"sent_count"`
	DeliveredCount  int    `json:"delivered_count"`
	ReadCount       int    `json:"read_count"`
	FailedCount     int    `json:"failed_count"`
}

// HandleCampaignProgressWS streams live campaign counters to the dashboard
// while a campaign is processing, and closes once it reaches a terminal
// state. The connection carries the organization resolved during the
// upgrade, and the campaign lookup is scoped to it.
func HandleCampaignProgressWS(c *websocket.Conn) {
	defer c.Close()

	org, ok := c.Locals("organization").(*models.Organization)
	if !ok {
		log.Printf("Progress socket opened without an organization, closing")
		return
	}

	var input struct {
		CampaignID uint `json:"campaign_id"`
	}
	if err := c.ReadJSON(&input); err != nil {
		log.Printf("Error reading progress subscription: %v", err)
		return
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		var campaign models.Campaign
		if err := config.DB.
			Where("id = ? AND organization_id = ?", input.CampaignID, org.ID).
			First(&campaign).Error; err != nil {
			log.Printf("Campaign %d not found: %v", input.CampaignID, err)
			return
		}

		progress := campaignProgress{
			CampaignID:      campaign.ID,
			Status:          campaign.Status,
			TotalRecipients: campaign.TotalRecipients,
			SentCount:       campaign.SentCount,
			DeliveredCount:  campaign.DeliveredCount,
			ReadCount:       campaign.ReadCount,
			FailedCount:     campaign.FailedCount,
		}

		if err := c.WriteJSON(progress); err != nil {
			log.Printf("Error writing progress update: %v", err)
			return
		}

		if campaign.IsTerminal() {
			return
		}
	}
}
