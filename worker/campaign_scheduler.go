package worker

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"whatrack/models"
	"whatrack/utils"
)

// CampaignScheduler is the durable-job sweep behind campaign dispatch. The
// campaigns table is the job table: SCHEDULED rows whose time has come are
// started through the same debit-and-flip gate the API uses, and PROCESSING
// rows with no in-process owner (typically after a restart) get a processor
// re-attached so they resume from their remaining PENDING recipients.
type CampaignScheduler struct {
	DB        *gorm.DB
	Processor *CampaignProcessor
	Credits   *utils.CreditService
	Logger    *log.Logger

	Interval time.Duration
}

func NewCampaignScheduler(db *gorm.DB, processor *CampaignProcessor, credits *utils.CreditService, logger *log.Logger) *CampaignScheduler {
	return &CampaignScheduler{
		DB:        db,
		Processor: processor,
		Credits:   credits,
		Logger:    logger,
		Interval:  30 * time.Second,
	}
}

func (cs *CampaignScheduler) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(5 * time.Second)

	cs.Logger.Println("Campaign scheduler started")
	cs.resumeOrphans()

	ticker := time.NewTicker(cs.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cs.Logger.Println("Campaign scheduler shutting down...")
			return
		case <-ticker.C:
			cs.startDueCampaigns()
			cs.resumeOrphans()
		}
	}
}

// startDueCampaigns starts every SCHEDULED campaign whose scheduled time has
// passed. Each one goes through the same atomic gate as a manual start: a
// conditional status flip plus the credit debit in one transaction, so a
// campaign that cannot pay stays SCHEDULED.
func (cs *CampaignScheduler) startDueCampaigns() {
	var due []models.Campaign
	if err := cs.DB.
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?",
			models.CampaignStatusScheduled, time.Now()).
		Find(&due).Error; err != nil {
		cs.Logger.Printf("Error fetching due campaigns: %v", err)
		return
	}

	for i := range due {
		campaign := &due[i]
		if err := cs.startCampaign(campaign); err != nil {
			cs.Logger.Printf("Could not start scheduled campaign %d: %v", campaign.ID, err)
			continue
		}
		cs.Logger.Printf("Starting scheduled campaign %d", campaign.ID)
		go cs.Processor.Process(campaign.ID)
	}
}

func (cs *CampaignScheduler) startCampaign(campaign *models.Campaign) error {
	return cs.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Campaign{}).
			Where("id = ? AND status = ?", campaign.ID, models.CampaignStatusScheduled).
			Updates(map[string]interface{}{
				"status":     models.CampaignStatusProcessing,
				"started_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		_, err := cs.Credits.DebitCreditsTx(tx, campaign.OrganizationID,
			campaign.EstimatedCostCents, &campaign.ID)
		return err
	})
}

// resumeOrphans re-attaches a processor to PROCESSING campaigns nobody in
// this process owns. After a crash the batch loop picks up exactly where the
// PENDING recipients left off.
func (cs *CampaignScheduler) resumeOrphans() {
	var stuck []models.Campaign
	if err := cs.DB.
		Where("status = ?", models.CampaignStatusProcessing).
		Find(&stuck).Error; err != nil {
		cs.Logger.Printf("Error fetching in-flight campaigns: %v", err)
		return
	}

	for i := range stuck {
		campaign := &stuck[i]
		if cs.Processor.IsRunning(campaign.ID) {
			continue
		}
		cs.Logger.Printf("Resuming campaign %d left in PROCESSING", campaign.ID)
		go cs.Processor.Process(campaign.ID)
	}
}
