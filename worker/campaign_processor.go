package worker

import (
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"whatrack/config"
	"whatrack/metrics"
	"whatrack/models"
	"whatrack/utils"
)

// CampaignProcessor drives PROCESSING campaigns to a terminal state by
// sending template messages to all PENDING recipients in bounded batches.
// One logical run per campaign; the inFlight set stops a second in-process
// run from attaching to the same campaign.
type CampaignProcessor struct {
	DB     *gorm.DB
	Sender utils.WhatsAppSenderInterface
	Logger *log.Logger

	// Batch tuning; zero values fall back to configuration.
	BatchSize  int
	BatchDelay time.Duration

	mu       sync.Mutex
	inFlight map[uint]struct{}
}

func NewCampaignProcessor(db *gorm.DB, sender utils.WhatsAppSenderInterface, logger *log.Logger) *CampaignProcessor {
	return &CampaignProcessor{
		DB:       db,
		Sender:   sender,
		Logger:   logger,
		inFlight: make(map[uint]struct{}),
	}
}

func (cp *CampaignProcessor) batchSize() int {
	if cp.BatchSize > 0 {
		return cp.BatchSize
	}
	if config.AppConfig.CampaignBatchSize > 0 {
		return config.AppConfig.CampaignBatchSize
	}
	return 50
}

func (cp *CampaignProcessor) batchDelay() time.Duration {
	if cp.BatchDelay > 0 {
		return cp.BatchDelay
	}
	return config.AppConfig.CampaignBatchDelay
}

// acquire claims a campaign for this process. Returns false when another
// goroutine already owns it.
func (cp *CampaignProcessor) acquire(campaignID uint) bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if _, busy := cp.inFlight[campaignID]; busy {
		return false
	}
	cp.inFlight[campaignID] = struct{}{}
	return true
}

func (cp *CampaignProcessor) release(campaignID uint) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	delete(cp.inFlight, campaignID)
}

// IsRunning reports whether this process currently owns the campaign.
func (cp *CampaignProcessor) IsRunning(campaignID uint) bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	_, busy := cp.inFlight[campaignID]
	return busy
}

// Process runs the batch loop for one campaign. It is fire-and-forget from
// the caller's point of view: all outcomes are persisted, nothing is
// returned. Safe to call for the same campaign twice; the second call is a
// no-op while the first is running.
func (cp *CampaignProcessor) Process(campaignID uint) {
	if !cp.acquire(campaignID) {
		cp.Logger.Printf("Campaign %d is already being processed, skipping", campaignID)
		return
	}
	defer cp.release(campaignID)

	var campaign models.Campaign
	if err := cp.DB.Preload("Template").First(&campaign, campaignID).Error; err != nil {
		cp.Logger.Printf("Campaign %d not found: %v", campaignID, err)
		return
	}

	// The processor only acts on campaigns already flipped to PROCESSING by
	// the start gate. Anything else is a terminal failure, not a retry.
	if campaign.Status != models.CampaignStatusProcessing {
		cp.Logger.Printf("Campaign %d has status %s, expected PROCESSING", campaignID, campaign.Status)
		cp.markCampaignFailed(&campaign, "campaign was not in PROCESSING state")
		return
	}

	connection, err := cp.activeConnection(campaign.OrganizationID)
	if err != nil {
		cp.Logger.Printf("Campaign %d has no active WhatsApp connection: %v", campaignID, err)
		cp.markCampaignFailed(&campaign, "no active WhatsApp connection")
		return
	}

	cp.Logger.Printf("Processing campaign %d (%d recipients)", campaign.ID, campaign.TotalRecipients)

	for {
		// Cooperative cancellation: a cancel issued through the API flips the
		// stored status, and the loop stops before dispatching the next batch.
		var current models.Campaign
		if err := cp.DB.Select("status").First(&current, campaign.ID).Error; err != nil {
			cp.Logger.Printf("Failed to reload campaign %d status: %v", campaign.ID, err)
			return
		}
		if current.Status != models.CampaignStatusProcessing {
			cp.Logger.Printf("Campaign %d status changed to %s, stopping", campaign.ID, current.Status)
			return
		}

		var batch []models.CampaignRecipient
		if err := cp.DB.
			Where("campaign_id = ? AND status = ?", campaign.ID, models.RecipientStatusPending).
			Order("id ASC").
			Limit(cp.batchSize()).
			Find(&batch).Error; err != nil {
			cp.Logger.Printf("Failed to fetch pending recipients for campaign %d: %v", campaign.ID, err)
			return
		}
		if len(batch) == 0 {
			break
		}

		cp.processBatch(&campaign, connection, batch)

		if err := cp.refreshCounters(campaign.ID); err != nil {
			cp.Logger.Printf("Failed to refresh counters for campaign %d: %v", campaign.ID, err)
		}

		// Throttle outbound call rate between batches
		time.Sleep(cp.batchDelay())
	}

	cp.finalize(&campaign)
}

// processBatch dispatches all sends of one batch concurrently and waits for
// them. Outcomes land on the recipient rows; nothing is kept in memory.
func (cp *CampaignProcessor) processBatch(campaign *models.Campaign, connection *models.WhatsAppConnection, batch []models.CampaignRecipient) {
	var wg sync.WaitGroup

	for i := range batch {
		wg.Add(1)
		go func(recipient *models.CampaignRecipient) {
			defer wg.Done()
			cp.sendToRecipient(campaign, connection, recipient)
		}(&batch[i])
	}
	wg.Wait()
}

// sendToRecipient attempts one send and persists the outcome on the
// recipient row. Errors never escape: a failed send is recorded and the
// batch moves on.
func (cp *CampaignProcessor) sendToRecipient(campaign *models.Campaign, connection *models.WhatsAppConnection, recipient *models.CampaignRecipient) bool {
	started := time.Now()
	components := utils.BuildComponents(campaign.Template.Components, recipient.Variables)

	result, err := cp.Sender.SendTemplate(utils.SendTemplateInput{
		Connection:   connection,
		To:           recipient.Phone,
		TemplateName: campaign.Template.Name,
		LanguageCode: campaign.Template.Language,
		Components:   components,
	})
	metrics.SendDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		cp.markRecipientFailed(recipient, err.Error())
		return false
	}
	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = "send rejected"
		}
		cp.markRecipientFailed(recipient, reason)
		return false
	}

	now := time.Now()
	update := cp.DB.Model(&models.CampaignRecipient{}).
		Where("id = ?", recipient.ID).
		Updates(map[string]interface{}{
			"status":     models.RecipientStatusSent,
			"message_id": result.MessageID,
			"sent_at":    now,
		})
	if update.Error != nil {
		cp.Logger.Printf("Failed to mark recipient %d sent: %v", recipient.ID, update.Error)
		return false
	}

	metrics.MessagesSent.Inc()
	return true
}

func (cp *CampaignProcessor) markRecipientFailed(recipient *models.CampaignRecipient, message string) {
	now := time.Now()
	if err := cp.DB.Model(&models.CampaignRecipient{}).
		Where("id = ?", recipient.ID).
		Updates(map[string]interface{}{
			"status":        models.RecipientStatusFailed,
			"failed_at":     now,
			"error_message": message,
		}).Error; err != nil {
		cp.Logger.Printf("Failed to mark recipient %d failed: %v", recipient.ID, err)
	}
	metrics.MessagesFailed.Inc()
}

// refreshCounters recomputes the campaign's aggregate counters from the
// recipient rows. Full re-aggregation, not incremental, so any drift
// self-corrects on the next batch. Delivery receipts advance a recipient
// past SENT, so the sent counter includes DELIVERED and READ rows.
func (cp *CampaignProcessor) refreshCounters(campaignID uint) error {
	type statusCount struct {
		Status string
		Count  int
	}

	var rows []statusCount
	if err := cp.DB.Model(&models.CampaignRecipient{}).
		Select("status, COUNT(*) AS count").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	sent := counts[models.RecipientStatusSent] +
		counts[models.RecipientStatusDelivered] +
		counts[models.RecipientStatusRead]
	delivered := counts[models.RecipientStatusDelivered] + counts[models.RecipientStatusRead]

	return cp.DB.Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Updates(map[string]interface{}{
			"sent_count":      sent,
			"delivered_count": delivered,
			"read_count":      counts[models.RecipientStatusRead],
			"failed_count":    counts[models.RecipientStatusFailed],
		}).Error
}

// finalize moves the campaign to COMPLETED or FAILED and reconciles the
// actual cost. The outcome comes from the persisted recipient rows, not
// from this run's memory: a campaign resumed after a restart still counts
// recipients that failed before the crash. The conditional update respects
// a cancellation that slipped in after the last batch.
func (cp *CampaignProcessor) finalize(campaign *models.Campaign) {
	var failed int64
	if err := cp.DB.Model(&models.CampaignRecipient{}).
		Where("campaign_id = ? AND status = ?", campaign.ID, models.RecipientStatusFailed).
		Count(&failed).Error; err != nil {
		cp.Logger.Printf("Failed to count failed recipients for campaign %d: %v", campaign.ID, err)
		return
	}

	status := models.CampaignStatusCompleted
	if failed > 0 {
		status = models.CampaignStatusFailed
	}

	actualCost := campaign.ActualCostCents
	if actualCost <= 0 {
		actualCost = utils.PricePerMessageCents(campaign.Template.Category) * int64(campaign.TotalRecipients)
	}

	res := cp.DB.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", campaign.ID, models.CampaignStatusProcessing).
		Updates(map[string]interface{}{
			"status":            status,
			"completed_at":      time.Now(),
			"actual_cost_cents": actualCost,
		})
	if res.Error != nil {
		cp.Logger.Printf("Failed to finalize campaign %d: %v", campaign.ID, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		cp.Logger.Printf("Campaign %d left PROCESSING before finalize, leaving as-is", campaign.ID)
		return
	}

	metrics.CampaignsProcessed.WithLabelValues(status).Inc()
	cp.Logger.Printf("Campaign %d finished with status %s", campaign.ID, status)
}

// markCampaignFailed is the pre-loop failure path: wrong state or missing
// credential. The campaign goes straight to FAILED with the failed counter
// bumped; no recipient rows are touched.
func (cp *CampaignProcessor) markCampaignFailed(campaign *models.Campaign, reason string) {
	if err := cp.DB.Model(&models.Campaign{}).
		Where("id = ?", campaign.ID).
		Updates(map[string]interface{}{
			"status":       models.CampaignStatusFailed,
			"completed_at": time.Now(),
			"failed_count": gorm.Expr("failed_count + ?", 1),
		}).Error; err != nil {
		cp.Logger.Printf("Failed to mark campaign %d failed: %v", campaign.ID, err)
		return
	}

	metrics.CampaignsProcessed.WithLabelValues(models.CampaignStatusFailed).Inc()
	utils.ReportError("campaign_failed", fmt.Errorf("campaign %d: %s", campaign.ID, reason), map[string]interface{}{
		"campaign_id":     campaign.ID,
		"organization_id": campaign.OrganizationID,
	})
}

func (cp *CampaignProcessor) activeConnection(organizationID uint) (*models.WhatsAppConnection, error) {
	var connection models.WhatsAppConnection
	err := cp.DB.
		Where("organization_id = ? AND is_active = ? AND status = ?",
			organizationID, true, "connected").
		First(&connection).Error
	if err != nil {
		return nil, err
	}
	return &connection, nil
}
